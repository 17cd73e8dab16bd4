// Package platform fingerprints the host operating system and distribution.
// Detection shells out to uname and probes filesystem markers, so the result
// is computed once and memoized for the process lifetime.
package platform

import (
	"context"
	"os"
	"os/user"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/asciimoth/yubikey-setup/pkg/runner"
)

// SupportedOS lists the platform kinds the tool can run on.
var SupportedOS = []string{"linux"}

// RecommendedDistros lists the hardened distributions the tool is meant for.
var RecommendedDistros = []string{"tails"}

// Tails detection markers. The kernel on Tails is a Debian build, the two
// marker directories exist, and the default login is the amnesia user.
const (
	tailsMarkerDir   = "/etc/tails"
	amnesiaMarkerDir = "/etc/amnesia"
	tailsLoginName   = "amnesia"
)

// Identity is the detected (platform, distribution) pair.
// An empty Distro means an unrecognized variant of the platform.
type Identity struct {
	OS     string `json:"os"`
	Distro string `json:"distro"`
}

// Supported reports whether the platform kind is in the supported set.
func (id Identity) Supported() bool {
	for _, os := range SupportedOS {
		if id.OS == os {
			return true
		}
	}
	return false
}

// Recommended reports whether the distribution is a hardened reference target.
func (id Identity) Recommended() bool {
	for _, distro := range RecommendedDistros {
		if id.Distro == distro {
			return true
		}
	}
	return false
}

// Detector determines the host identity. The probe functions are injectable
// so tests can simulate arbitrary hosts; zero values use the real host.
type Detector struct {
	// KernelName returns the kernel name, e.g. "Linux" (uname -s).
	KernelName func(ctx context.Context) string

	// KernelVersion returns the kernel version string (uname -v).
	KernelVersion func(ctx context.Context) string

	// IsDir reports whether a filesystem marker directory exists.
	IsDir func(path string) bool

	// LoginName returns the current login identity.
	LoginName func() string

	Log zerolog.Logger

	once sync.Once
	id   Identity
}

// NewDetector creates a detector that probes the real host through run.
func NewDetector(run runner.Runner, log zerolog.Logger) *Detector {
	return &Detector{
		KernelName:    unameProbe(run, "uname -s"),
		KernelVersion: unameProbe(run, "uname -v"),
		IsDir:         isDir,
		LoginName:     loginName,
		Log:           log,
	}
}

// Detect returns the host identity, computing it on first call and caching
// it for the process lifetime. There is no error path: an unrecognized host
// yields a distribution key that fails every known-distro lookup downstream.
func (d *Detector) Detect(ctx context.Context) Identity {
	d.once.Do(func() {
		d.id = d.detect(ctx)
		d.Log.Debug().
			Str("os", d.id.OS).
			Str("distro", d.id.Distro).
			Msg("Detected host identity")
	})
	return d.id
}

func (d *Detector) detect(ctx context.Context) Identity {
	system := strings.ToLower(strings.TrimSpace(d.KernelName(ctx)))
	version := strings.TrimSpace(d.KernelVersion(ctx))

	if system != "linux" {
		return Identity{OS: system, Distro: strings.ToLower(version)}
	}

	if strings.Contains(version, "Debian") &&
		d.IsDir(tailsMarkerDir) && d.IsDir(amnesiaMarkerDir) &&
		d.LoginName() == tailsLoginName {
		return Identity{OS: system, Distro: "tails"}
	}

	// Debian-family version strings look like "#1 SMP Debian 6.1.76-1kali1
	// (2024-02-01)"; the distro codename is the token between the first
	// hyphen and the following space.
	distro := version
	if _, after, found := strings.Cut(version, "-"); found {
		distro, _, _ = strings.Cut(after, " ")
	} else if fields := strings.Fields(version); len(fields) > 0 {
		distro = fields[0]
	}

	return Identity{OS: system, Distro: strings.ToLower(distro)}
}

func unameProbe(run runner.Runner, command string) func(ctx context.Context) string {
	return func(ctx context.Context) string {
		result, err := run.Run(ctx, command, false)
		if err != nil || result.ExitCode != 0 {
			return ""
		}
		return strings.TrimSpace(result.Stdout)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func loginName() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}
