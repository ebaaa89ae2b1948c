// Package core defines the ports between the runner's services and its
// adapters (Postgres store, Redis queue and event log, browser driver).
// Services depend on these interfaces, never on concrete implementations.
package core

import (
	"context"
	"time"

	"github.com/agenticqa/runner/internal/domain/model"
)

// RunRepository defines run-record persistence operations.
type RunRepository interface {
	// CreateQueued inserts a new run row in the queued state.
	CreateQueued(ctx context.Context, runID, testID string) error

	// GetByID returns a run or model.ErrRunNotFound.
	GetByID(ctx context.Context, runID string) (*model.TestRun, error)

	// MarkRunning transitions queued -> running and records the start time.
	MarkRunning(ctx context.Context, runID string, startedAt time.Time) error

	// Complete writes the terminal state as one atomic update.
	Complete(ctx context.Context, c model.RunCompletion) error

	// FailRun force-fails a run with the given error. Used by the worker's
	// infrastructure-failure path and by stuck-run recovery; it never
	// overwrites an already terminal run.
	FailRun(ctx context.Context, p FailRunParams) error

	// FindStuck returns ids of runs that have been in the running state
	// longer than maxAge with no terminal update.
	FindStuck(ctx context.Context, maxAge time.Duration) ([]string, error)
}

// FailRunParams groups arguments for RunRepository.FailRun.
type FailRunParams struct {
	RunID      string
	Error      string
	ErrorStep  *int
	DurationMs int64
}

// TestRepository reads stored test definitions. The CRUD surface that writes
// them lives outside this service.
type TestRepository interface {
	// GetByID returns a test or model.ErrTestNotFound.
	GetByID(ctx context.Context, testID string) (*model.Test, error)
	// Exists reports whether a test with the given id exists.
	Exists(ctx context.Context, testID string) (bool, error)
}

// RunQueue is the durable job queue with consumer-group delivery semantics.
// Delivery is at-least-once: a claimed-but-unacknowledged job becomes
// claimable again once its idle time passes the reclaim threshold.
type RunQueue interface {
	// Enqueue appends a job and returns the queue-assigned delivery id.
	Enqueue(ctx context.Context, runID, testID string) (string, error)

	// EnsureGroup creates the consumer group if it does not exist yet.
	// Safe to call repeatedly.
	EnsureGroup(ctx context.Context) error

	// Claim blocks up to block waiting for a job for this consumer.
	// Returns nil when no job arrived within the window.
	Claim(ctx context.Context, consumer string, block time.Duration) (*model.RunJob, error)

	// ClaimStale transfers one pending entry idle longer than minIdle to
	// this consumer. Returns nil when nothing is reclaimable.
	ClaimStale(ctx context.Context, consumer string, minIdle time.Duration) (*model.RunJob, error)

	// Ack acknowledges a delivery. Acknowledging twice is a no-op.
	Ack(ctx context.Context, deliveryID string) error
}

// EventLog is the append-only per-run event log. Single producer per run,
// any number of concurrent readers.
type EventLog interface {
	// Append adds an event and returns its entry id (monotonic per run).
	Append(ctx context.Context, runID string, eventType model.EventType, data any) (string, error)

	// ReadAfter returns up to count events with ids greater than afterID,
	// in id order. afterID "0" reads from the start.
	ReadAfter(ctx context.Context, runID, afterID string, count int) ([]model.RunEvent, error)
}

// Target describes how to locate a page element. Exactly one locator kind is
// meaningful per target.
type Target struct {
	Kind TargetKind

	// Selector is a CSS selector (TargetSelector).
	Selector string

	// Role is an ARIA role such as "button" or "link" (TargetRole);
	// Text carries the accessible name.
	Role string

	// Text is the visible text, label text or accessible name, depending
	// on Kind.
	Text string
}

// TargetKind enumerates element locator kinds.
type TargetKind string

const (
	TargetSelector TargetKind = "selector"
	TargetRole     TargetKind = "role"
	TargetLabel    TargetKind = "label"
	TargetText     TargetKind = "text"
)

// PageDriver is the browser capability used by step execution. Implementations
// wrap a real browser session; tests substitute a mock. All calls block until
// the underlying browser operation finishes or its own timeout fires.
type PageDriver interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, target Target) error
	Fill(ctx context.Context, target Target, value string) error

	// Content returns the current page HTML.
	Content(ctx context.Context) (string, error)

	// Screenshot captures the page as a base64-encoded PNG.
	Screenshot(ctx context.Context) (string, error)

	Close(ctx context.Context) error
}

// DriverFactory opens a fresh browser page session for one run. The engine
// calls it only after step validation passes, so invalid runs never cost a
// browser session.
type DriverFactory func(ctx context.Context) (PageDriver, error)
