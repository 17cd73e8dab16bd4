package platform

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func fakeDetector(kernel, version string) *Detector {
	return &Detector{
		KernelName:    func(context.Context) string { return kernel },
		KernelVersion: func(context.Context) string { return version },
		IsDir:         func(string) bool { return false },
		LoginName:     func() string { return "user" },
		Log:           zerolog.Nop(),
	}
}

func TestDetectTails(t *testing.T) {
	d := fakeDetector("Linux", "#1 SMP Debian 6.1.76-1 (2024-02-01)")
	d.IsDir = func(path string) bool {
		return path == "/etc/tails" || path == "/etc/amnesia"
	}
	d.LoginName = func() string { return "amnesia" }

	id := d.Detect(context.Background())
	assert.Equal(t, Identity{OS: "linux", Distro: "tails"}, id)
}

func TestDetectDebianWithoutTailsMarkers(t *testing.T) {
	// Same Debian kernel, but the marker directories are missing.
	d := fakeDetector("Linux", "#1 SMP Debian 6.1.76-1 (2024-02-01)")

	id := d.Detect(context.Background())
	assert.Equal(t, "linux", id.OS)
	assert.NotEqual(t, "tails", id.Distro)
}

func TestDetectCodenameFromHyphenSegment(t *testing.T) {
	d := fakeDetector("Linux", "#1 SMP PREEMPT_DYNAMIC Debian 6.3.7-1kali1 (2023-06-29)")

	id := d.Detect(context.Background())
	assert.Equal(t, Identity{OS: "linux", Distro: "1kali1"}, id)
}

func TestDetectFallbackWithoutHyphen(t *testing.T) {
	d := fakeDetector("Linux", "#123 SMP Tue Jan 1 00:00:00 UTC 2030")

	id := d.Detect(context.Background())
	assert.Equal(t, "linux", id.OS)
	assert.Equal(t, "#123", id.Distro)
}

func TestDetectNonLinux(t *testing.T) {
	d := fakeDetector("Darwin", "Darwin Kernel Version 22.1.0")

	id := d.Detect(context.Background())
	assert.Equal(t, "darwin", id.OS)
	assert.Equal(t, "darwin kernel version 22.1.0", id.Distro)
}

func TestDetectIsMemoized(t *testing.T) {
	calls := 0
	d := fakeDetector("Linux", "")
	d.KernelVersion = func(context.Context) string {
		calls++
		if calls > 1 {
			return "#1 SMP Debian 9.9.9-changed (2031-01-01)"
		}
		return "#1 SMP Debian 6.1.76-1 (2024-02-01)"
	}

	first := d.Detect(context.Background())
	second := d.Detect(context.Background())

	assert.Equal(t, first, second, "identity must not change mid-process")
	assert.Equal(t, 1, calls, "detection must run exactly once")
}

func TestIdentitySupportedAndRecommended(t *testing.T) {
	assert.True(t, Identity{OS: "linux", Distro: "tails"}.Supported())
	assert.True(t, Identity{OS: "linux", Distro: "tails"}.Recommended())
	assert.True(t, Identity{OS: "linux", Distro: "debian"}.Supported())
	assert.False(t, Identity{OS: "linux", Distro: "debian"}.Recommended())
	assert.False(t, Identity{OS: "windows", Distro: "10"}.Supported())
}
