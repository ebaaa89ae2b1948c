// Package agent implements test-run execution: the strategy fallback chain
// that resolves logical steps into browser operations, the per-step executor,
// and the run engine that drives a full test.
package agent

import (
	"context"
	"fmt"

	"github.com/agenticqa/runner/internal/core"
	"github.com/agenticqa/runner/internal/domain/model"
)

// StrategyStatus is the three-valued outcome of one strategy attempt.
type StrategyStatus int

const (
	// StrategyNotApplicable means the strategy's required input was absent.
	// It does not count as an attempt and the chain skips it silently.
	StrategyNotApplicable StrategyStatus = iota
	// StrategySucceeded terminates the chain immediately.
	StrategySucceeded
	// StrategyFailed counts as an attempt and falls through to the next
	// strategy.
	StrategyFailed
)

// StrategyResult is the outcome of ActionStrategy.TryExecute.
type StrategyResult struct {
	Status StrategyStatus

	// Detail describes how the element was located, e.g. "role:button".
	Detail string

	// Err holds the failure reason when Status is StrategyFailed.
	Err error
}

func notApplicable() StrategyResult { return StrategyResult{Status: StrategyNotApplicable} }

func succeeded(detail string) StrategyResult {
	return StrategyResult{Status: StrategySucceeded, Detail: detail}
}

func failed(err error) StrategyResult { return StrategyResult{Status: StrategyFailed, Err: err} }

// ActionStrategy resolves one click/fill action against the page. The chain
// is a plain ordered list of these, so new strategies slot in without
// touching the resolver's control flow.
type ActionStrategy interface {
	Name() string
	TryExecute(ctx context.Context, page core.PageDriver, step model.Step, action model.Action, value string) StrategyResult
}

// DirectStrategy uses the step's explicit selector. Deterministic and fast,
// so it always runs first when a selector is supplied.
type DirectStrategy struct{}

func (DirectStrategy) Name() string { return "direct" }

func (DirectStrategy) TryExecute(
	ctx context.Context,
	page core.PageDriver,
	step model.Step,
	action model.Action,
	value string,
) StrategyResult {
	if !step.HasSelector() {
		return notApplicable()
	}
	target := core.Target{Kind: core.TargetSelector, Selector: step.Selector}
	switch action {
	case model.ActionClick:
		if err := page.Click(ctx, target); err != nil {
			return failed(fmt.Errorf("selector %q: %w", step.Selector, err))
		}
	case model.ActionFill:
		if err := page.Fill(ctx, target, value); err != nil {
			return failed(fmt.Errorf("selector %q: %w", step.Selector, err))
		}
	default:
		return notApplicable()
	}
	return succeeded(string(core.TargetSelector))
}

// SemanticStrategy derives a target description from the step's
// natural-language instruction and resolves it by role, label or text.
// Exists because explicit selectors drift when page markup changes.
type SemanticStrategy struct{}

func (SemanticStrategy) Name() string { return "semantic" }

func (SemanticStrategy) TryExecute(
	ctx context.Context,
	page core.PageDriver,
	step model.Step,
	action model.Action,
	value string,
) StrategyResult {
	if !step.HasInstruction() {
		return notApplicable()
	}
	text := ExtractTargetText(step.Instruction)
	if text == "" {
		return notApplicable()
	}
	target := ClassifyTarget(step.Instruction, text)
	switch action {
	case model.ActionClick:
		if err := page.Click(ctx, target); err != nil {
			return failed(fmt.Errorf("%s %q: %w", target.Kind, text, err))
		}
	case model.ActionFill:
		if err := page.Fill(ctx, target, value); err != nil {
			return failed(fmt.Errorf("%s %q: %w", target.Kind, text, err))
		}
	default:
		return notApplicable()
	}
	detail := string(target.Kind)
	if target.Role != "" {
		detail += ":" + target.Role
	}
	return succeeded(detail)
}

// VisualStrategy is reserved for screenshot-based resolution. It reports
// not-applicable rather than failed so it never counts as an attempt.
type VisualStrategy struct{}

func (VisualStrategy) Name() string { return "visual" }

func (VisualStrategy) TryExecute(
	_ context.Context,
	_ core.PageDriver,
	_ model.Step,
	_ model.Action,
	_ string,
) StrategyResult {
	return notApplicable()
}
