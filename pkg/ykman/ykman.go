// Package ykman resolves how the YubiKey manager CLI is invoked on this
// host. Depending on the installed distribution there are two variants:
//
//	ykman ykman   when the yubikey-manager-qt AppImage provides the CLI
//	ykman         when the standalone CLI is installed
//
// See https://github.com/Yubico/yubikey-manager-qt/pull/293.
package ykman

import (
	"context"
	"sync"

	"github.com/asciimoth/yubikey-setup/pkg/runner"
)

// Resolver decides the ykman invocation once per process.
type Resolver struct {
	Runner runner.Runner

	once sync.Once
	cmd  string
}

// Command returns the resolved invocation prefix. The probe runs once and
// is cached; the installed variant cannot change mid-run.
func (r *Resolver) Command(ctx context.Context) string {
	r.once.Do(func() {
		r.cmd = "ykman"
		result, err := r.Runner.Run(ctx, "ykman ykman", false)
		if err == nil && result.ExitCode == 0 {
			r.cmd = "ykman ykman"
		}
	})
	return r.cmd
}
