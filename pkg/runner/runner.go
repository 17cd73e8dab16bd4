// Package runner executes the opaque shell commands the provisioning engine
// works with. Commands are passed to a shell verbatim; the runner only
// understands comment lines, exit codes, and the interactive/captured split.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultShell is used when no shell is configured.
const DefaultShell = "/bin/sh"

// Result holds the outcome of a single command execution.
// Stdout and Stderr are empty in interactive mode, where the child
// inherits the caller's terminal and output is visible live.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes shell commands and ordered command sequences.
type Runner interface {
	// Run executes a single command. An empty command is a no-op success.
	Run(ctx context.Context, command string, interactive bool) (Result, error)

	// RunSequence executes commands in order, skipping comment lines.
	// The first non-zero exit code aborts the sequence and is returned.
	// An empty sequence returns 0.
	RunSequence(ctx context.Context, commands []string, interactive bool) (int, error)
}

// ShellRunner runs commands through a POSIX shell on the local host.
type ShellRunner struct {
	// Shell is the shell binary. Defaults to DefaultShell when empty.
	Shell string

	// Env holds extra KEY=VALUE pairs exported to every child process,
	// appended to the current process environment.
	Env []string

	// Log receives per-command debug entries. Zero value logs nowhere.
	Log zerolog.Logger
}

// New creates a ShellRunner with the default shell.
func New(log zerolog.Logger) *ShellRunner {
	return &ShellRunner{Shell: DefaultShell, Log: log}
}

// IsComment reports whether a command line is a comment entry.
// Comment lines are rendered in previews but never executed.
func IsComment(command string) bool {
	return strings.HasPrefix(strings.TrimSpace(command), "#")
}

// Run executes a single command through the shell.
func (r *ShellRunner) Run(ctx context.Context, command string, interactive bool) (Result, error) {
	if command == "" {
		return Result{}, nil
	}

	shell := r.Shell
	if shell == "" {
		shell = DefaultShell
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Env = append(os.Environ(), r.Env...)

	var stdout, stderr bytes.Buffer
	if interactive {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	r.Log.Debug().Str("command", command).Bool("interactive", interactive).Msg("Running command")

	err := cmd.Run()

	result := Result{}
	if !interactive {
		result.Stdout = stdout.String()
		result.Stderr = stderr.String()
	}

	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}

	return result, nil
}

// RunSequence executes an ordered list of commands with fail-fast semantics.
func (r *ShellRunner) RunSequence(ctx context.Context, commands []string, interactive bool) (int, error) {
	for _, command := range commands {
		if IsComment(command) {
			continue
		}
		result, err := r.Run(ctx, command, interactive)
		if err != nil {
			return result.ExitCode, err
		}
		if result.ExitCode != 0 {
			r.Log.Debug().
				Str("command", command).
				Int("exit_code", result.ExitCode).
				Msg("Command sequence aborted")
			return result.ExitCode, nil
		}
	}
	return 0, nil
}
