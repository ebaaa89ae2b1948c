package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agenticqa/runner/internal/core"
	"github.com/agenticqa/runner/internal/domain/model"
)

const (
	// DefaultStepTimeout bounds a single step's browser work.
	DefaultStepTimeout = 30 * time.Second

	// expectedPreviewLen bounds how much of the expected text appears in a
	// verify failure message. The comparison itself is never truncated.
	expectedPreviewLen = 50
)

// StepExecutorOptions configures a StepExecutor.
type StepExecutorOptions struct {
	Resolver    *Resolver
	StepTimeout time.Duration
	Logger      *slog.Logger
}

// StepExecutor applies one step's action via the resolver and returns a
// structured outcome. It never returns an error: step problems land in the
// StepResult so the engine's control flow stays data-driven.
type StepExecutor struct {
	resolver    *Resolver
	stepTimeout time.Duration
	logger      *slog.Logger
}

// NewStepExecutor constructs a StepExecutor with defaults filled in.
func NewStepExecutor(opts StepExecutorOptions) *StepExecutor {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = NewResolver(ResolverOptions{Logger: opts.Logger})
	}
	timeout := opts.StepTimeout
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StepExecutor{resolver: resolver, stepTimeout: timeout, logger: logger}
}

// ExecuteParams groups per-step execution input.
type ExecuteParams struct {
	Step    model.Step
	Index   int
	BaseURL string
}

// Execute runs one step against the page, bounded by the per-step timeout.
// On completion of every step, pass or fail, it captures a best-effort
// screenshot; capture failure is logged but never fails the step.
func (e *StepExecutor) Execute(ctx context.Context, page core.PageDriver, p ExecuteParams) (model.StepResult, *model.Screenshot) {
	start := time.Now()
	stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()

	result := e.executeAction(stepCtx, page, p)
	result.Step = p.Index
	result.DurationMs = time.Since(start).Milliseconds()

	shot := e.captureScreenshot(ctx, page, p.Index)
	return result, shot
}

func (e *StepExecutor) executeAction(ctx context.Context, page core.PageDriver, p ExecuteParams) model.StepResult {
	switch p.Step.Action {
	case model.ActionNavigate:
		return e.executeNavigate(ctx, page, p.Step, p.BaseURL)
	case model.ActionClick:
		return e.executeResolved(ctx, page, p.Step, model.ActionClick, "")
	case model.ActionFill:
		return e.executeResolved(ctx, page, p.Step, model.ActionFill, p.Step.Value)
	case model.ActionVerify:
		return e.executeVerify(ctx, page, p.Step)
	default:
		return failedResult(fmt.Sprintf("unknown action %q", p.Step.Action))
	}
}

// executeNavigate goes to the step's target, falling back to the run's base
// URL. Fails when both are empty.
func (e *StepExecutor) executeNavigate(ctx context.Context, page core.PageDriver, step model.Step, baseURL string) model.StepResult {
	target := strings.TrimSpace(step.Target)
	if target == "" {
		target = strings.TrimSpace(baseURL)
	}
	if target == "" {
		return failedResult("navigate requires a target or test url")
	}
	if err := page.Navigate(ctx, target); err != nil {
		return failedResult(fmt.Sprintf("navigate to %s: %v", target, err))
	}
	return model.StepResult{Status: model.RunStatusPassed}
}

func (e *StepExecutor) executeResolved(
	ctx context.Context,
	page core.PageDriver,
	step model.Step,
	action model.Action,
	value string,
) model.StepResult {
	res, err := e.resolver.Resolve(ctx, page, step, action, value)
	if err != nil {
		return model.StepResult{
			Status:   model.RunStatusFailed,
			Attempts: res.Attempts,
			Error:    err.Error(),
		}
	}
	return model.StepResult{
		Status:     model.RunStatusPassed,
		Strategy:   res.Strategy,
		SelfHealed: res.SelfHealed,
		Attempts:   res.Attempts,
	}
}

// executeVerify checks that the expected text appears in the page content.
// The containment check is byte-for-byte and case-sensitive; only the failure
// message truncates the expected text.
func (e *StepExecutor) executeVerify(ctx context.Context, page core.PageDriver, step model.Step) model.StepResult {
	expected := step.Expected
	if strings.TrimSpace(expected) == "" {
		return failedResult("verify requires expected text")
	}
	content, err := page.Content(ctx)
	if err != nil {
		return failedResult(fmt.Sprintf("fetch page content: %v", err))
	}
	if !strings.Contains(content, expected) {
		preview := expected
		if len(preview) > expectedPreviewLen {
			preview = preview[:expectedPreviewLen] + "..."
		}
		return failedResult(fmt.Sprintf("expected text %q not found in page", preview))
	}
	return model.StepResult{Status: model.RunStatusPassed}
}

func (e *StepExecutor) captureScreenshot(ctx context.Context, page core.PageDriver, stepIdx int) *model.Screenshot {
	data, err := page.Screenshot(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "screenshot capture failed", "step", stepIdx, "error", err)
		return nil
	}
	return &model.Screenshot{
		Step:      stepIdx,
		DataURL:   "data:image/png;base64," + data,
		Timestamp: time.Now().UTC(),
	}
}

func failedResult(msg string) model.StepResult {
	return model.StepResult{Status: model.RunStatusFailed, Error: msg}
}
