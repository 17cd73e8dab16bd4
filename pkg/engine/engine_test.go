package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asciimoth/yubikey-setup/pkg/platform"
	"github.com/asciimoth/yubikey-setup/pkg/registry"
	"github.com/asciimoth/yubikey-setup/pkg/runner"
	"github.com/asciimoth/yubikey-setup/pkg/store"
)

// Mock implementations for testing

// fakeRunner resolves commands against a mutable exit-code table instead of
// spawning processes. Sequences are recorded for assertions; onSequence lets
// a test flip probe results after an install batch "runs".
type fakeRunner struct {
	codes      map[string]int
	sequences  [][]string
	onSequence func(commands []string)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{codes: map[string]int{}}
}

func (f *fakeRunner) Run(_ context.Context, command string, _ bool) (runner.Result, error) {
	return runner.Result{ExitCode: f.codes[command]}, nil
}

func (f *fakeRunner) RunSequence(ctx context.Context, commands []string, interactive bool) (int, error) {
	f.sequences = append(f.sequences, commands)
	code := 0
	for _, command := range commands {
		if runner.IsComment(command) {
			continue
		}
		result, err := f.Run(ctx, command, interactive)
		if err != nil {
			return result.ExitCode, err
		}
		if result.ExitCode != 0 {
			code = result.ExitCode
			break
		}
	}
	if f.onSequence != nil {
		f.onSequence(commands)
	}
	return code, nil
}

// fakeConsole scripts prompt answers and records everything said.
type fakeConsole struct {
	askAnswers     []bool
	confirmAnswers []bool
	askErr         error

	askCalls      int
	confirmCalls  int
	continueCalls int
	confirmed     [][]string
	sayings       []string

	onContinue func()
}

func (f *fakeConsole) Say(format string, a ...any) {
	f.sayings = append(f.sayings, fmt.Sprintf(format, a...))
}

func (f *fakeConsole) Ask(_ context.Context, _ string) (bool, error) {
	if f.askErr != nil {
		return false, f.askErr
	}
	f.askCalls++
	if len(f.askAnswers) == 0 {
		return true, nil
	}
	answer := f.askAnswers[0]
	f.askAnswers = f.askAnswers[1:]
	return answer, nil
}

func (f *fakeConsole) AskContinue(context.Context) error {
	f.continueCalls++
	if f.onContinue != nil {
		f.onContinue()
	}
	return nil
}

func (f *fakeConsole) ConfirmExecution(_ context.Context, commands []string) (bool, error) {
	if len(commands) == 0 {
		return true, nil
	}
	f.confirmCalls++
	f.confirmed = append(f.confirmed, commands)
	if len(f.confirmAnswers) == 0 {
		return true, nil
	}
	answer := f.confirmAnswers[0]
	f.confirmAnswers = f.confirmAnswers[1:]
	return answer, nil
}

func (f *fakeConsole) saidContaining(substr string) int {
	count := 0
	for _, s := range f.sayings {
		if strings.Contains(s, substr) {
			count++
		}
	}
	return count
}

func fakeDetector(kernel, version string) *platform.Detector {
	return &platform.Detector{
		KernelName:    func(context.Context) string { return kernel },
		KernelVersion: func(context.Context) string { return version },
		IsDir:         func(string) bool { return false },
		LoginName:     func() string { return "user" },
		Log:           zerolog.Nop(),
	}
}

func tailsDetector() *platform.Detector {
	d := fakeDetector("Linux", "#1 SMP Debian 6.1.76-1 (2024-02-01)")
	d.IsDir = func(string) bool { return true }
	d.LoginName = func() string { return "amnesia" }
	return d
}

// fakeJournal records appended events in memory.
type fakeJournal struct {
	events []store.Event
}

func (f *fakeJournal) Init(context.Context) error { return nil }
func (f *fakeJournal) Close() error               { return nil }
func (f *fakeJournal) CreateRun(context.Context, *store.Run) error {
	return nil
}
func (f *fakeJournal) FinishRun(context.Context, string, store.RunStatus, string) error {
	return nil
}
func (f *fakeJournal) AppendEvent(_ context.Context, event *store.Event) error {
	f.events = append(f.events, *event)
	return nil
}
func (f *fakeJournal) ListRuns(context.Context, int) ([]store.Run, error) {
	return nil, nil
}
func (f *fakeJournal) ListEvents(context.Context, string, int) ([]store.Event, error) {
	return nil, nil
}

func newTestEngine(reg *registry.Registry, run *fakeRunner, console *fakeConsole) *Engine {
	return &Engine{
		Registry: reg,
		Runner:   run,
		Console:  console,
		Detector: tailsDetector(),
		Log:      zerolog.Nop(),
	}
}

// CheckPlatform

func TestCheckPlatformUnsupported(t *testing.T) {
	console := &fakeConsole{}
	eng := newTestEngine(&registry.Registry{}, newFakeRunner(), console)
	eng.Detector = fakeDetector("Windows_NT", "10.0.19045")

	err := eng.CheckPlatform(context.Background())
	assert.True(t, IsUnsupported(err))
	assert.Zero(t, console.askCalls, "unsupported platform must not prompt")
}

func TestCheckPlatformRecommendedSkipsPrompt(t *testing.T) {
	console := &fakeConsole{}
	eng := newTestEngine(&registry.Registry{}, newFakeRunner(), console)

	require.NoError(t, eng.CheckPlatform(context.Background()))
	assert.Zero(t, console.askCalls)
}

func TestCheckPlatformUnrecommendedRequiresOptIn(t *testing.T) {
	console := &fakeConsole{askAnswers: []bool{false}}
	eng := newTestEngine(&registry.Registry{}, newFakeRunner(), console)
	eng.Detector = fakeDetector("Linux", "#1 SMP Debian 6.1.76-1 (2024-02-01)")

	err := eng.CheckPlatform(context.Background())
	assert.True(t, IsDeclined(err))
	assert.Equal(t, 1, console.askCalls)
}

// EnsureDependencies

func TestAllSatisfiedTerminatesWithoutPrompts(t *testing.T) {
	reg := &registry.Registry{Packages: []registry.Package{
		{Name: "a", Check: registry.Check{Command: "check-a"}},
		{Name: "b", Check: registry.Check{Command: "check-b"}},
	}}
	run := newFakeRunner()
	console := &fakeConsole{}

	err := newTestEngine(reg, run, console).EnsureDependencies(context.Background())
	require.NoError(t, err)
	assert.Zero(t, console.askCalls)
	assert.Zero(t, console.confirmCalls)
	assert.Zero(t, console.continueCalls)
	assert.Empty(t, run.sequences)
}

func TestAutoInstallFlow(t *testing.T) {
	// One package already satisfied, one missing but auto-installable.
	reg := &registry.Registry{Packages: []registry.Package{
		{Name: "have", Check: registry.Check{Command: "check-have"}},
		{
			Name:    "need",
			Check:   registry.Check{Command: "check-need"},
			Install: map[string]registry.CommandList{"tails": {"install-need"}},
		},
	}}
	run := newFakeRunner()
	run.codes["check-need"] = 1
	run.onSequence = func([]string) {
		// The install batch makes the probe succeed on the re-check.
		run.codes["check-need"] = 0
	}
	console := &fakeConsole{askAnswers: []bool{true}}
	journal := &fakeJournal{}

	eng := newTestEngine(reg, run, console)
	eng.Journal = journal
	eng.JournalRunID = "run-1"

	err := eng.EnsureDependencies(context.Background())
	require.NoError(t, err)

	require.Len(t, run.sequences, 1, "exactly one install batch")
	assert.Equal(t, []string{"install-need"}, run.sequences[0])
	assert.Equal(t, 1, console.confirmCalls)

	kinds := make([]store.EventKind, 0, len(journal.events))
	for _, event := range journal.events {
		kinds = append(kinds, event.Kind)
	}
	assert.Contains(t, kinds, store.EventKindConsent)
	assert.Contains(t, kinds, store.EventKindInstall)
}

func TestManualOnlyRechecksWithoutInstalling(t *testing.T) {
	reg := &registry.Registry{Packages: []registry.Package{
		{Name: "odd", Comment: "no recipe anywhere", Check: registry.Check{Command: "check-odd"}},
	}}
	run := newFakeRunner()
	run.codes["check-odd"] = 1
	console := &fakeConsole{}
	console.onContinue = func() {
		// User installs the package out-of-band, then acknowledges.
		run.codes["check-odd"] = 0
	}

	err := newTestEngine(reg, run, console).EnsureDependencies(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, console.continueCalls)
	assert.Empty(t, run.sequences, "manual-only packages must not trigger installs")
	assert.Equal(t, 1, console.saidContaining("cannot be installed automatically"))
}

func TestManualBlockSuppressesBannerOnce(t *testing.T) {
	reg := &registry.Registry{Packages: []registry.Package{
		{Name: "odd", Check: registry.Check{Command: "check-odd"}},
	}}
	run := newFakeRunner()
	run.codes["check-odd"] = 1
	console := &fakeConsole{}
	acknowledged := 0
	console.onContinue = func() {
		acknowledged++
		if acknowledged == 2 {
			run.codes["check-odd"] = 0
		}
	}

	err := newTestEngine(reg, run, console).EnsureDependencies(context.Background())
	require.NoError(t, err)

	// Three probe rounds, but the banner prints only on the first: the
	// suppression set by the manual block persists exactly one iteration.
	assert.Equal(t, 2, console.continueCalls)
	assert.Equal(t, 1, console.saidContaining("needs to install those dependencies"))
}

func TestConsentDeclinedIsNotTerminal(t *testing.T) {
	reg := &registry.Registry{Packages: []registry.Package{
		{
			Name:    "need",
			Check:   registry.Check{Command: "check-need"},
			Install: map[string]registry.CommandList{"tails": {"install-need"}},
		},
	}}
	run := newFakeRunner()
	run.codes["check-need"] = 1
	console := &fakeConsole{askAnswers: []bool{false}}
	console.onContinue = func() {
		run.codes["check-need"] = 0
	}

	err := newTestEngine(reg, run, console).EnsureDependencies(context.Background())
	require.NoError(t, err)

	assert.Empty(t, run.sequences)
	assert.Equal(t, 1, console.continueCalls)
}

func TestInstallFailureIsFatal(t *testing.T) {
	reg := &registry.Registry{Packages: []registry.Package{
		{
			Name:    "need",
			Check:   registry.Check{Command: "check-need"},
			Install: map[string]registry.CommandList{"tails": {"install-need"}},
		},
	}}
	run := newFakeRunner()
	run.codes["check-need"] = 1
	run.codes["install-need"] = 7
	console := &fakeConsole{}

	err := newTestEngine(reg, run, console).EnsureDependencies(context.Background())
	assert.True(t, IsInstallFailed(err))
	assert.Equal(t, 1, console.saidContaining("Failed to install"))
}

func TestInstallGateDeclineIsFatal(t *testing.T) {
	reg := &registry.Registry{Packages: []registry.Package{
		{
			Name:    "need",
			Check:   registry.Check{Command: "check-need"},
			Install: map[string]registry.CommandList{"tails": {"install-need"}},
		},
	}}
	run := newFakeRunner()
	run.codes["check-need"] = 1
	console := &fakeConsole{confirmAnswers: []bool{false}}

	err := newTestEngine(reg, run, console).EnsureDependencies(context.Background())
	assert.True(t, IsInstallFailed(err))
	assert.Empty(t, run.sequences)
}

func TestPreInstallRunsAtMostOnce(t *testing.T) {
	reg := &registry.Registry{
		Packages: []registry.Package{
			{
				Name:    "need",
				Check:   registry.Check{Command: "check-need"},
				Install: map[string]registry.CommandList{"tails": {"install-need"}},
			},
		},
		PreInstall: map[string]registry.CommandList{"tails": {"refresh-index"}},
	}
	run := newFakeRunner()
	run.codes["check-need"] = 1
	installs := 0
	run.onSequence = func(commands []string) {
		if len(commands) == 1 && commands[0] == "install-need" {
			installs++
			if installs == 2 {
				// Satisfied only after the second install iteration.
				run.codes["check-need"] = 0
			}
		}
	}
	console := &fakeConsole{}

	err := newTestEngine(reg, run, console).EnsureDependencies(context.Background())
	require.NoError(t, err)

	preInstalls := 0
	for _, seq := range run.sequences {
		if len(seq) == 1 && seq[0] == "refresh-index" {
			preInstalls++
		}
	}
	assert.Equal(t, 2, installs)
	assert.Equal(t, 1, preInstalls, "pre-install step must run at most once per process")
}

func TestPreInstallFailureIsFatal(t *testing.T) {
	reg := &registry.Registry{
		Packages: []registry.Package{
			{
				Name:    "need",
				Check:   registry.Check{Command: "check-need"},
				Install: map[string]registry.CommandList{"tails": {"install-need"}},
			},
		},
		PreInstall: map[string]registry.CommandList{"tails": {"refresh-index"}},
	}
	run := newFakeRunner()
	run.codes["check-need"] = 1
	run.codes["refresh-index"] = 100
	console := &fakeConsole{}

	err := newTestEngine(reg, run, console).EnsureDependencies(context.Background())
	assert.True(t, IsInstallFailed(err))
	require.Len(t, run.sequences, 1, "install batch must not run after pre-install failure")
}

func TestPromptCancellationIsInterrupted(t *testing.T) {
	reg := &registry.Registry{Packages: []registry.Package{
		{
			Name:    "need",
			Check:   registry.Check{Command: "check-need"},
			Install: map[string]registry.CommandList{"tails": {"install-need"}},
		},
	}}
	run := newFakeRunner()
	run.codes["check-need"] = 1
	console := &fakeConsole{askErr: context.Canceled}

	err := newTestEngine(reg, run, console).EnsureDependencies(context.Background())
	assert.True(t, IsInterrupted(err))
}
