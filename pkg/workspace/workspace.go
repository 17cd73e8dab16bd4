// Package workspace manages the process-scoped ephemeral directory used
// while provisioning commands run. The directory is created with owner-only
// permissions under the system temp root, named with an unpredictable suffix
// so concurrent invocations cannot collide, and wiped on release: best-effort
// secure overwrite per file, then a guaranteed ordinary recursive delete.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/asciimoth/yubikey-setup/pkg/runner"
)

// EnvVar is exported to every child process so install recipes can reference
// the workspace path.
const EnvVar = "YKSETUP_TMP"

const dirPrefix = "YUBIKEY_SETUP_"

// Workspace is one ephemeral directory whose lifetime brackets a
// provisioning run.
type Workspace struct {
	path string
	run  runner.Runner
	log  zerolog.Logger
}

// Acquire creates the workspace directory under root (the system temp
// directory when root is empty) with owner-only permissions.
func Acquire(root string, run runner.Runner, log zerolog.Logger) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}

	path := filepath.Join(root, dirPrefix+uuid.NewString())
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	log.Debug().Str("path", path).Msg("Workspace acquired")
	return &Workspace{path: path, run: run, log: log}, nil
}

// Path returns the workspace directory path.
func (w *Workspace) Path() string {
	return w.path
}

// Env returns the environment entry exported to child processes.
func (w *Workspace) Env() string {
	return EnvVar + "=" + w.path
}

// Release wipes and removes the workspace. Each regular file is first
// overwritten with shred when the utility is available; the outcome of the
// wipe is deliberately ignored and an ordinary recursive delete always
// follows, so release succeeds on hosts without shred. Release runs even
// when ctx is already cancelled.
func (w *Workspace) Release(ctx context.Context) error {
	// Cleanup must still run after user interruption.
	ctx = context.WithoutCancel(ctx)

	err := filepath.WalkDir(w.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		result, runErr := w.run.Run(ctx, "shred -f -u -z "+path, false)
		if runErr != nil || result.ExitCode != 0 {
			w.log.Debug().Str("path", path).Msg("Secure wipe unavailable, falling back to plain delete")
		}
		return nil
	})
	if err != nil {
		w.log.Debug().Err(err).Msg("Workspace walk failed")
	}

	if err := os.RemoveAll(w.path); err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}

	w.log.Debug().Str("path", w.path).Msg("Workspace released")
	return nil
}
