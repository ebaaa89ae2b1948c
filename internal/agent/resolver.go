package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agenticqa/runner/internal/core"
	"github.com/agenticqa/runner/internal/domain/model"
)

// ErrNoStrategyApplicable is returned when every strategy in the chain was
// skipped for lack of input.
var ErrNoStrategyApplicable = errors.New("no resolution strategy applicable")

// Resolution describes how an action was resolved.
type Resolution struct {
	// Strategy is the name/detail of the strategy that succeeded,
	// e.g. "direct" or "semantic:role:button".
	Strategy string

	// SelfHealed is true only when at least one earlier strategy was
	// actually attempted and failed before this one succeeded. Strategies
	// skipped as not-applicable never count.
	SelfHealed bool

	// Attempts counts strategies actually tried, including the successful
	// one.
	Attempts int
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	// Strategies overrides the default chain. Order matters.
	Strategies []ActionStrategy
	Logger     *slog.Logger
}

// Resolver runs the ordered strategy chain for one action.
type Resolver struct {
	strategies []ActionStrategy
	logger     *slog.Logger
}

// NewResolver constructs a Resolver. With no explicit strategies it uses the
// default direct -> semantic -> visual chain.
func NewResolver(opts ResolverOptions) *Resolver {
	strategies := opts.Strategies
	if len(strategies) == 0 {
		strategies = []ActionStrategy{DirectStrategy{}, SemanticStrategy{}, VisualStrategy{}}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{strategies: strategies, logger: logger}
}

// Resolve tries each strategy in order until one succeeds. Failed attempts
// fall through; not-applicable strategies are skipped silently. When nothing
// succeeds the returned error aggregates every tried strategy's failure, and
// the Resolution still reports how many attempts were made.
func (r *Resolver) Resolve(
	ctx context.Context,
	page core.PageDriver,
	step model.Step,
	action model.Action,
	value string,
) (Resolution, error) {
	attempts := 0
	priorFailed := false
	var failures []string

	for _, s := range r.strategies {
		result := s.TryExecute(ctx, page, step, action, value)
		switch result.Status {
		case StrategyNotApplicable:
			continue
		case StrategySucceeded:
			attempts++
			name := s.Name()
			if result.Detail != "" && result.Detail != name {
				name += ":" + result.Detail
			}
			if priorFailed {
				r.logger.InfoContext(ctx, "action self-healed",
					"strategy", s.Name(), "action", action, "attempts", attempts)
			}
			return Resolution{Strategy: name, SelfHealed: priorFailed, Attempts: attempts}, nil
		case StrategyFailed:
			attempts++
			priorFailed = true
			failures = append(failures, fmt.Sprintf("%s: %v", s.Name(), result.Err))
			r.logger.DebugContext(ctx, "strategy failed",
				"strategy", s.Name(), "action", action, "error", result.Err)
		}
	}

	res := Resolution{Attempts: attempts}
	if attempts == 0 {
		return res, ErrNoStrategyApplicable
	}
	return res, fmt.Errorf("all strategies failed: %s", strings.Join(failures, "; "))
}
