package model

import (
	"errors"
	"time"
)

// RunStatus is the lifecycle state of a test run.
// Transitions: queued -> running -> passed | failed.
type RunStatus string

const (
	RunStatusQueued  RunStatus = "queued"
	RunStatusRunning RunStatus = "running"
	RunStatusPassed  RunStatus = "passed"
	RunStatusFailed  RunStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusPassed || s == RunStatusFailed
}

// Sentinel errors shared across packages.
var (
	// ErrRunNotFound indicates the requested run does not exist.
	ErrRunNotFound = errors.New("run not found")
	// ErrTestNotFound indicates the referenced test definition does not exist.
	ErrTestNotFound = errors.New("test not found")
	// ErrNoSteps indicates a test definition with no steps was submitted.
	ErrNoSteps = errors.New("no steps in test definition")
	// ErrRunFinished indicates an operation targeted a run that already
	// reached a terminal state.
	ErrRunFinished = errors.New("run already finished")
)

// StepResult is the outcome of executing one step.
type StepResult struct {
	// Step is the zero-based index of the step in the definition.
	Step int `json:"step"`

	// Status is "passed" or "failed".
	Status RunStatus `json:"status"`

	// Strategy names the resolution strategy that performed the action
	// ("direct", "semantic", ...). Empty for steps that do not resolve
	// targets (navigate, verify).
	Strategy string `json:"strategy,omitempty"`

	// SelfHealed is true when a fallback strategy succeeded after an
	// earlier strategy was attempted and failed.
	SelfHealed bool `json:"self_healed"`

	// Attempts counts strategies that were actually tried; strategies
	// skipped for lack of input are excluded.
	Attempts int `json:"attempts"`

	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Screenshot is a captured page image, stored as a base64 PNG data URL.
type Screenshot struct {
	Step      int       `json:"step"`
	DataURL   string    `json:"data_url"`
	Timestamp time.Time `json:"timestamp"`
}

// TestRun is the persisted record of one run of a test.
type TestRun struct {
	ID          string
	TestID      string
	Status      RunStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
	DurationMs  *int64
	Screenshots []Screenshot
	StepResults []StepResult
	Error       string
	ErrorStep   *int
	CreatedAt   time.Time
}

// RunCompletion carries everything the terminal update writes. The update is
// a single atomic write: status, results, screenshots, duration and error
// detail land together or not at all.
type RunCompletion struct {
	RunID       string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt time.Time
	DurationMs  int64
	Screenshots []Screenshot
	StepResults []StepResult
	Error       string
	ErrorStep   *int
}
