package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/asciimoth/yubikey-setup/pkg/platform"
	"github.com/asciimoth/yubikey-setup/pkg/registry"
	"github.com/asciimoth/yubikey-setup/pkg/runner"
	"github.com/asciimoth/yubikey-setup/pkg/store"
	"github.com/asciimoth/yubikey-setup/pkg/ui"
)

// UserIO is the interactive surface the engine talks to. Implemented by
// ui.Console; tests supply scripted fakes.
type UserIO interface {
	Say(format string, a ...any)
	Ask(ctx context.Context, prompt string) (bool, error)
	AskContinue(ctx context.Context) error
	ConfirmExecution(ctx context.Context, commands []string) (bool, error)
}

// Engine orchestrates environment checking and the dependency provisioning
// loop for one process. The pre-install guard is engine state, so the
// distribution-wide preparation step runs at most once per process no matter
// how many loop iterations happen.
type Engine struct {
	Registry *registry.Registry
	Runner   runner.Runner
	Console  UserIO
	Detector *platform.Detector

	// Journal is the optional run journal; nil disables recording.
	Journal store.Store

	// JournalRunID identifies the current run in the journal.
	JournalRunID string

	Log zerolog.Logger

	preInstallDone bool
}

// CheckPlatform verifies the detected environment. An unsupported platform
// refuses to proceed; a supported but unrecommended distribution requires an
// explicit opt-in from the user.
func (e *Engine) CheckPlatform(ctx context.Context) error {
	id := e.Detector.Detect(ctx)

	recommend := fmt.Sprintf(
		"It is strongly recommended to use hardened OS distros to work with this tool.\nSuch as %s.",
		strings.Join(platform.RecommendedDistros, " or "))

	if !id.Supported() {
		e.Console.Say("%s", ui.Red("Sorry, your OS is not currently supported by this tool"))
		e.Console.Say("%s", ui.Yellow(recommend))
		return NewUnsupportedError("platform " + id.OS + " is not supported")
	}

	if !id.Recommended() {
		e.Console.Say("%s", ui.Yellow(recommend))
		ok, err := e.Console.Ask(ctx, "Do you want to continue on current system")
		if err != nil {
			return promptError(err)
		}
		if !ok {
			return NewDeclinedError("user declined to continue on " + id.Distro)
		}
	}

	return nil
}

// EnsureDependencies runs the provisioning loop until every registry package
// is satisfied, an install step fails, or the user interrupts. Consent
// declines and manual-only packages are not terminal: the loop re-probes
// after the user acknowledges, so packages installed out-of-band are picked
// up on the next iteration.
func (e *Engine) EnsureDependencies(ctx context.Context) error {
	id := e.Detector.Detect(ctx)

	// Suppresses the dependency banner for exactly one iteration after a
	// manual-install acknowledgement.
	recheck := false

	for {
		missing, err := registry.Unsatisfied(ctx, e.Runner, e.Registry.Packages)
		if err != nil {
			return promptError(err)
		}

		if len(missing) == 0 {
			e.record(ctx, store.EventKindProbe, "", "all packages satisfied")
			return nil
		}

		e.Log.Debug().Strs("packages", registry.Names(missing)).Msg("Unsatisfied packages")
		e.record(ctx, store.EventKindProbe, "", "missing: "+strings.Join(registry.Names(missing), " "))

		if !recheck {
			e.Console.Say("This tool needs to install those dependencies:")
			for _, pkg := range missing {
				e.Console.Say("\t%s (%s)", ui.Green(pkg.Name), pkg.Comment)
			}
			e.Console.Say("Press %s to skip packages management %s",
				ui.Grey("Ctrl+c"), ui.Grey("at your own risk"))
		}
		recheck = false

		plan := registry.Partition(missing, id.Distro)

		if len(plan.Manual) != 0 {
			recheck = true
			if len(plan.Auto) == 0 {
				e.Console.Say("They cannot be installed automatically on current system")
			} else {
				names := ui.Yellow(strings.Join(registry.Names(plan.Manual), " "))
				e.Console.Say("Those packages cannot be installed automatically on current system:\n\t%s", names)
			}
			e.Console.Say("Please install them manually before continue")
			e.record(ctx, store.EventKindManual, "", "manual install required: "+strings.Join(registry.Names(plan.Manual), " "))
			if err := e.Console.AskContinue(ctx); err != nil {
				return promptError(err)
			}
			continue
		}

		e.Console.Say("They can be installed automatically")
		consent, err := e.Console.Ask(ctx, "Do you want to install them?")
		if err != nil {
			return promptError(err)
		}
		if !consent {
			e.record(ctx, store.EventKindConsent, "", "declined")
			e.Console.Say("Please install them manually before continue")
			if err := e.Console.AskContinue(ctx); err != nil {
				return promptError(err)
			}
			continue
		}
		e.record(ctx, store.EventKindConsent, "", "granted")

		if err := e.runPreInstall(ctx, id.Distro); err != nil {
			e.Console.Say("\n%s", ui.Red("Failed to install script dependencies"))
			return err
		}
		if err := e.installPackages(ctx, id.Distro, plan.Auto); err != nil {
			e.Console.Say("\n%s", ui.Red("Failed to install script dependencies"))
			return err
		}
	}
}

// runPreInstall executes the distribution-wide preparation step, guarded to
// run at most once per process. The guard is set before the outcome is known:
// the step is idempotent but noisy, and a failed attempt is already fatal.
func (e *Engine) runPreInstall(ctx context.Context, distro string) error {
	if e.preInstallDone {
		return nil
	}
	e.preInstallDone = true

	commands := e.Registry.PreInstall[distro]
	if len(commands) == 0 {
		return nil
	}

	ok, err := e.Console.ConfirmExecution(ctx, commands)
	if err != nil {
		return promptError(err)
	}
	if !ok {
		e.record(ctx, store.EventKindPreInstall, "", "declined")
		return NewInstallFailedError("pre-install step was not approved", nil)
	}

	code, err := e.Runner.RunSequence(ctx, commands, true)
	if err != nil {
		return promptError(err)
	}
	if code != 0 {
		e.record(ctx, store.EventKindPreInstall, "", fmt.Sprintf("failed with exit code %d", code))
		return NewInstallFailedError(fmt.Sprintf("pre-install step exited with code %d", code), nil)
	}

	e.record(ctx, store.EventKindPreInstall, "", "completed")
	return nil
}

// installPackages gathers the install recipes of all auto-installable
// packages into one flattened command list, previews it through the
// confirmation gate, and executes it interactively.
func (e *Engine) installPackages(ctx context.Context, distro string, pkgs []registry.Package) error {
	commands := registry.InstallCommands(pkgs, distro)

	ok, err := e.Console.ConfirmExecution(ctx, commands)
	if err != nil {
		return promptError(err)
	}
	if !ok {
		e.record(ctx, store.EventKindInstall, "", "declined")
		return NewInstallFailedError("installation was not approved", nil)
	}

	code, err := e.Runner.RunSequence(ctx, commands, true)
	if err != nil {
		return promptError(err)
	}
	if code != 0 {
		e.record(ctx, store.EventKindInstall, "", fmt.Sprintf("failed with exit code %d", code))
		return NewInstallFailedError(fmt.Sprintf("install batch exited with code %d", code), nil)
	}

	e.record(ctx, store.EventKindInstall, "", "installed: "+strings.Join(registry.Names(pkgs), " "))
	return nil
}

// record appends a journal event, when a journal is configured. Journal
// failures never disturb the provisioning flow.
func (e *Engine) record(ctx context.Context, kind store.EventKind, pkg, msg string) {
	if e.Journal == nil {
		return
	}
	event := &store.Event{
		RunID:   e.JournalRunID,
		Kind:    kind,
		Package: pkg,
		Message: msg,
	}
	if err := e.Journal.AppendEvent(context.WithoutCancel(ctx), event); err != nil {
		e.Log.Debug().Err(err).Msg("Failed to record journal event")
	}
}

// promptError maps cancellation surfaced by a blocking prompt or command
// wait to an interrupted-class error; everything else passes through.
func promptError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return NewInterruptedError("interrupted by user", err)
	}
	return err
}
