package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agenticqa/runner/internal/core"
	"github.com/agenticqa/runner/internal/domain/model"
)

// DefaultRunTimeout is the total wall-clock budget for one run. It is
// checked cooperatively between steps, not preemptively.
const DefaultRunTimeout = 5 * time.Minute

// EngineOptions groups dependencies for Engine.
type EngineOptions struct {
	Runs     core.RunRepository // Required: run persistence
	Events   core.EventLog      // Required: per-run event log
	Driver   core.DriverFactory // Required: opens a browser page per run
	Executor *StepExecutor      // Optional: defaults to NewStepExecutor
	// RunTimeout is the total-run deadline; defaults to DefaultRunTimeout.
	RunTimeout time.Duration
	Logger     *slog.Logger
}

// Engine orchestrates a full test run: validates the step list, drives the
// step executor across it in strict order, enforces the total-run deadline,
// and writes the terminal state. At most one Engine executes a given run at
// a time; the queue's consumer-group exclusivity enforces that, not locking
// here.
type Engine struct {
	runs       core.RunRepository
	events     core.EventLog
	driver     core.DriverFactory
	executor   *StepExecutor
	runTimeout time.Duration
	logger     *slog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Runs == nil {
		return nil, errors.New("RunRepository is required")
	}
	if opts.Events == nil {
		return nil, errors.New("EventLog is required")
	}
	if opts.Driver == nil {
		return nil, errors.New("DriverFactory is required")
	}
	executor := opts.Executor
	if executor == nil {
		executor = NewStepExecutor(StepExecutorOptions{Logger: opts.Logger})
	}
	timeout := opts.RunTimeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		runs:       opts.Runs,
		events:     opts.Events,
		driver:     opts.Driver,
		executor:   executor,
		runTimeout: timeout,
		logger:     logger.With("component", "run_engine"),
	}, nil
}

// Execute runs one test to its terminal state. It returns an error only for
// infrastructure failures (store or event log); step failures terminate the
// run as failed without an error, so the worker's retry policy never replays
// a run that merely failed its steps.
func (e *Engine) Execute(ctx context.Context, runID string, test *model.Test) error {
	steps := test.Definition.Steps
	if err := model.ValidateSteps(steps); err != nil {
		// Invalid definitions fail with zero steps executed and no
		// browser session opened.
		return e.failBeforeExecution(ctx, runID, err)
	}

	startedAt := time.Now().UTC()
	if _, err := e.events.Append(ctx, runID, model.EventLog, map[string]any{
		"message":   "Starting test execution",
		"test_name": test.Name,
	}); err != nil {
		return fmt.Errorf("append start event: %w", err)
	}
	if err := e.runs.MarkRunning(ctx, runID, startedAt); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}

	outcome := e.executeSteps(ctx, runID, test, startedAt)

	completedAt := time.Now().UTC()
	durationMs := completedAt.Sub(startedAt).Milliseconds()
	status := model.RunStatusPassed
	message := "Test completed"
	if outcome.err != "" {
		status = model.RunStatusFailed
		message = outcome.err
	}

	if _, err := e.events.Append(ctx, runID, model.EventComplete, map[string]any{
		"status":          string(status),
		"duration_ms":     durationMs,
		"steps_completed": len(outcome.results),
		"message":         message,
	}); err != nil {
		return fmt.Errorf("append terminal event: %w", err)
	}

	if err := e.runs.Complete(ctx, model.RunCompletion{
		RunID:       runID,
		Status:      status,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		DurationMs:  durationMs,
		Screenshots: outcome.screenshots,
		StepResults: outcome.results,
		Error:       outcome.err,
		ErrorStep:   outcome.errStep,
	}); err != nil {
		return fmt.Errorf("write terminal state: %w", err)
	}

	e.logger.InfoContext(ctx, "run finished",
		"run_id", runID, "status", status, "duration_ms", durationMs,
		"steps_completed", len(outcome.results))
	return nil
}

// runOutcome accumulates per-run execution state. Owned by exactly one
// Execute call; never shared across goroutines.
type runOutcome struct {
	results     []model.StepResult
	screenshots []model.Screenshot
	err         string
	errStep     *int
}

func (e *Engine) executeSteps(ctx context.Context, runID string, test *model.Test, startedAt time.Time) runOutcome {
	var out runOutcome

	page, err := e.driver(ctx)
	if err != nil {
		out.err = fmt.Sprintf("open browser session: %v", err)
		zero := 0
		out.errStep = &zero
		return out
	}
	defer func() {
		if closeErr := page.Close(context.WithoutCancel(ctx)); closeErr != nil {
			e.logger.WarnContext(ctx, "close browser session", "run_id", runID, "error", closeErr)
		}
	}()

	for i, step := range test.Definition.Steps {
		if time.Since(startedAt) > e.runTimeout {
			idx := i
			out.err = fmt.Sprintf("total timeout (%s) exceeded", e.runTimeout)
			out.errStep = &idx
			break
		}

		instruction := step.Instruction
		if instruction == "" {
			instruction = string(step.Action)
		}
		e.appendEvent(ctx, runID, model.EventLog, map[string]any{
			"step":    i,
			"message": fmt.Sprintf("Executing %s: %s", step.Action, instruction),
		})

		result, shot := e.executor.Execute(ctx, page, ExecuteParams{
			Step:    step,
			Index:   i,
			BaseURL: test.URL,
		})
		out.results = append(out.results, result)

		message := "Step completed"
		if result.Status == model.RunStatusFailed {
			message = "Step failed: " + result.Error
		}
		e.appendEvent(ctx, runID, model.EventLog, map[string]any{
			"step":        i,
			"message":     message,
			"duration_ms": result.DurationMs,
			"status":      string(result.Status),
		})

		if shot != nil {
			out.screenshots = append(out.screenshots, *shot)
			e.appendEvent(ctx, runID, model.EventScreenshot, map[string]any{
				"step":     i,
				"data_url": shot.DataURL,
			})
		}

		if result.Status == model.RunStatusFailed {
			idx := i
			out.err = result.Error
			out.errStep = &idx
			break
		}
	}

	return out
}

// appendEvent appends a non-terminal progress event. Append failures are
// logged, not fatal: losing a progress event must not abort a browser run
// that is otherwise healthy.
func (e *Engine) appendEvent(ctx context.Context, runID string, t model.EventType, data map[string]any) {
	if _, err := e.events.Append(ctx, runID, t, data); err != nil {
		e.logger.WarnContext(ctx, "append run event", "run_id", runID, "type", t, "error", err)
	}
}

// failBeforeExecution terminates a run that never got to execute: the
// terminal error event and the failed run record are written with zero
// steps executed.
func (e *Engine) failBeforeExecution(ctx context.Context, runID string, cause error) error {
	if _, err := e.events.Append(ctx, runID, model.EventError, map[string]any{
		"message": cause.Error(),
	}); err != nil {
		return fmt.Errorf("append validation error event: %w", err)
	}
	if err := e.runs.FailRun(ctx, core.FailRunParams{
		RunID: runID,
		Error: cause.Error(),
	}); err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return nil
}
