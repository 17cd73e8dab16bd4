// Package store persists a local journal of provisioning runs: when each run
// started, how it ended, and the probe/install events observed along the way.
// The journal is opt-in and purely informational; the engine works without it.
package store

import (
	"context"
	"time"
)

// RunStatus is the terminal state of a provisioning run.
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusFailed      RunStatus = "failed"
	RunStatusInterrupted RunStatus = "interrupted"
)

// EventKind classifies a journal event.
type EventKind string

const (
	EventKindProbe      EventKind = "probe"
	EventKindManual     EventKind = "manual"
	EventKindConsent    EventKind = "consent"
	EventKindPreInstall EventKind = "pre_install"
	EventKindInstall    EventKind = "install"
)

// Run is one recorded provisioning run.
type Run struct {
	ID          string     `json:"id"`
	OS          string     `json:"os"`
	Distro      string     `json:"distro"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
}

// Event is one append-only journal entry within a run.
type Event struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Kind      EventKind `json:"kind"`
	Package   string    `json:"package,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the journal persistence interface.
type Store interface {
	// Init opens the backing database and applies migrations.
	Init(ctx context.Context) error

	// Close releases the backing database.
	Close() error

	// CreateRun records the start of a provisioning run.
	CreateRun(ctx context.Context, run *Run) error

	// FinishRun marks a run terminal with its status and optional error.
	FinishRun(ctx context.Context, runID string, status RunStatus, errMsg string) error

	// AppendEvent appends a journal event to a run.
	AppendEvent(ctx context.Context, event *Event) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// ListEvents returns the events of a run in append order.
	ListEvents(ctx context.Context, runID string, limit int) ([]Event, error)
}
