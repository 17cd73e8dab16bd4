package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/asciimoth/yubikey-setup/pkg/engine"
	"github.com/asciimoth/yubikey-setup/pkg/platform"
	"github.com/asciimoth/yubikey-setup/pkg/registry"
	"github.com/asciimoth/yubikey-setup/pkg/runner"
	"github.com/asciimoth/yubikey-setup/pkg/store"
	"github.com/asciimoth/yubikey-setup/pkg/telemetry"
	"github.com/asciimoth/yubikey-setup/pkg/ui"
	"github.com/asciimoth/yubikey-setup/pkg/workspace"
	"github.com/asciimoth/yubikey-setup/pkg/ykman"
)

// runSetup drives the whole interactive flow: workspace bracket, platform
// gate, dependency provisioning loop, ready banner. Interruption is handled
// at two levels: inside the dependency phase it degrades to a warning and
// the flow continues; anywhere else it aborts the run.
func runSetup(ctx context.Context, opts *options, version string) error {
	log := telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  opts.logLevel,
		Format: opts.logFormat,
	})

	tracer, err := telemetry.NewTracer(opts.traceEnabled, version)
	if err != nil {
		return err
	}
	defer func() {
		if err := tracer.Shutdown(ctx); err != nil {
			log.Debug().Err(err).Msg("Tracer shutdown failed")
		}
	}()

	reg, err := loadRegistry(opts)
	if err != nil {
		return err
	}

	// Each delivered interrupt cancels only the currently active phase;
	// a pending interrupt carries over to the next phase. This gives the
	// two-level behavior: the first Ctrl+c abandons dependency checking,
	// the next one aborts the run.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	console := ui.NewConsole(os.Stdin, os.Stdout)
	run := runner.New(telemetry.NewComponentLogger(log, "runner"))

	ws, err := workspace.Acquire("", run, telemetry.NewComponentLogger(log, "workspace"))
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Release(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to release workspace")
		}
	}()
	run.Env = []string{ws.Env()}

	detector := platform.NewDetector(run, telemetry.NewComponentLogger(log, "platform"))

	eng := &engine.Engine{
		Registry: reg,
		Runner:   run,
		Console:  console,
		Detector: detector,
		Log:      telemetry.NewComponentLogger(log, "engine"),
	}

	// Platform gate.
	platCtx, platCancel := phaseContext(ctx, sig)
	detectCtx, span := tracer.Start(platCtx, "platform.check")
	id := detector.Detect(detectCtx)
	err = eng.CheckPlatform(detectCtx)
	span.End()
	platCancel()
	if err != nil {
		if engine.IsUnsupported(err) || engine.IsDeclined(err) {
			log.Debug().Err(err).Msg("Stopping after platform check")
			return nil
		}
		return err
	}

	// Journal is opened only after the platform gate: a refused run records
	// nothing.
	if opts.journalPath != "" {
		journal, jErr := openJournal(ctx, opts.journalPath)
		if jErr != nil {
			return jErr
		}
		defer journal.Close()

		runID := uuid.NewString()
		if jErr := journal.CreateRun(ctx, &store.Run{
			ID:        runID,
			OS:        id.OS,
			Distro:    id.Distro,
			Status:    store.RunStatusRunning,
			StartedAt: time.Now(),
		}); jErr != nil {
			return jErr
		}
		eng.Journal = journal
		eng.JournalRunID = runID
		defer func() {
			finishJournalRun(journal, runID, err, log)
		}()
	}

	// Dependency provisioning loop.
	depCtx, depCancel := phaseContext(ctx, sig)
	depTraceCtx, span := tracer.Start(depCtx, "dependencies.ensure")
	err = eng.EnsureDependencies(depTraceCtx)
	span.End()
	depCancel()
	if err != nil {
		if !engine.IsInterrupted(err) {
			return err
		}
		// Degrade gracefully: the user opted out of dependency management.
		console.Say("\n\n%s", ui.Red("Dependencies checking interrupted by user"))
		console.Say("%s %s\n", ui.Yellow("Continue without them."), ui.Red("It may cause problems"))
		err = nil
	}

	// Everything after this point is the actual YubiKey workflow boundary.
	restCtx, restCancel := phaseContext(ctx, sig)
	defer restCancel()

	resolver := &ykman.Resolver{Runner: run}
	log.Debug().Str("ykman", resolver.Command(restCtx)).Msg("Resolved ykman invocation")

	console.Say("\nAll set. Plug in your YubiKey and manage it with '%s'.", ui.Green(resolver.Command(restCtx)))

	if restCtx.Err() != nil {
		err = engine.NewInterruptedError("interrupted by user", restCtx.Err())
		return err
	}
	return nil
}

// phaseContext derives a context cancelled by the next delivered interrupt
// signal, or by the parent.
func phaseContext(parent context.Context, sig <-chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func loadRegistry(opts *options) (*registry.Registry, error) {
	if opts.registryPath != "" {
		return registry.LoadFile(opts.registryPath)
	}
	return registry.Default()
}

func openJournal(ctx context.Context, path string) (store.Store, error) {
	journal, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	if err := journal.Init(ctx); err != nil {
		return nil, err
	}
	return journal, nil
}

func finishJournalRun(journal store.Store, runID string, runErr error, log zerolog.Logger) {
	status := store.RunStatusCompleted
	errMsg := ""
	switch {
	case runErr == nil:
	case engine.IsInterrupted(runErr):
		status = store.RunStatusInterrupted
		errMsg = runErr.Error()
	default:
		status = store.RunStatusFailed
		errMsg = runErr.Error()
	}
	if err := journal.FinishRun(context.Background(), runID, status, errMsg); err != nil {
		log.Debug().Err(err).Msg("Failed to finish journal run")
	}
}
