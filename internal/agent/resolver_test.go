package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticqa/runner/internal/core"
	"github.com/agenticqa/runner/internal/domain/model"
)

// stubStrategy returns a canned result and records whether it was called.
type stubStrategy struct {
	name   string
	result StrategyResult
	called bool
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) TryExecute(context.Context, core.PageDriver, model.Step, model.Action, string) StrategyResult {
	s.called = true
	return s.result
}

func TestResolveFirstStrategySucceeds(t *testing.T) {
	first := &stubStrategy{name: "direct", result: succeeded("selector")}
	second := &stubStrategy{name: "semantic", result: succeeded("text")}
	r := NewResolver(ResolverOptions{Strategies: []ActionStrategy{first, second}})

	res, err := r.Resolve(context.Background(), &fakePage{}, model.Step{}, model.ActionClick, "")
	require.NoError(t, err)
	assert.Equal(t, "direct:selector", res.Strategy)
	assert.False(t, res.SelfHealed, "no prior failure, not self-healed")
	assert.Equal(t, 1, res.Attempts)
	assert.False(t, second.called, "chain must stop at first success")
}

func TestResolveFallbackIsSelfHealed(t *testing.T) {
	first := &stubStrategy{name: "direct", result: failed(errors.New("no such element"))}
	second := &stubStrategy{name: "semantic", result: succeeded("role:button")}
	r := NewResolver(ResolverOptions{Strategies: []ActionStrategy{first, second}})

	res, err := r.Resolve(context.Background(), &fakePage{}, model.Step{}, model.ActionClick, "")
	require.NoError(t, err)
	assert.Equal(t, "semantic:role:button", res.Strategy)
	assert.True(t, res.SelfHealed)
	assert.Equal(t, 2, res.Attempts)
}

func TestResolveSkippedStrategyDoesNotSelfHeal(t *testing.T) {
	// A strategy skipped as not-applicable is not a failed attempt, so a
	// later success is not a heal.
	first := &stubStrategy{name: "direct", result: notApplicable()}
	second := &stubStrategy{name: "semantic", result: succeeded("text")}
	r := NewResolver(ResolverOptions{Strategies: []ActionStrategy{first, second}})

	res, err := r.Resolve(context.Background(), &fakePage{}, model.Step{}, model.ActionClick, "")
	require.NoError(t, err)
	assert.False(t, res.SelfHealed)
	assert.Equal(t, 1, res.Attempts)
}

func TestResolveAllFailAggregatesErrors(t *testing.T) {
	first := &stubStrategy{name: "direct", result: failed(errors.New("selector miss"))}
	second := &stubStrategy{name: "semantic", result: failed(errors.New("text miss"))}
	third := &stubStrategy{name: "visual", result: notApplicable()}
	r := NewResolver(ResolverOptions{Strategies: []ActionStrategy{first, second, third}})

	res, err := r.Resolve(context.Background(), &fakePage{}, model.Step{}, model.ActionClick, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "direct: selector miss")
	assert.Contains(t, err.Error(), "semantic: text miss")
	assert.Equal(t, 2, res.Attempts, "not-applicable strategies never count")
}

func TestResolveNothingApplicable(t *testing.T) {
	first := &stubStrategy{name: "direct", result: notApplicable()}
	second := &stubStrategy{name: "visual", result: notApplicable()}
	r := NewResolver(ResolverOptions{Strategies: []ActionStrategy{first, second}})

	res, err := r.Resolve(context.Background(), &fakePage{}, model.Step{}, model.ActionClick, "")
	require.ErrorIs(t, err, ErrNoStrategyApplicable)
	assert.Equal(t, 0, res.Attempts)
}

func TestResolveDefaultChain(t *testing.T) {
	t.Run("selector works on first try", func(t *testing.T) {
		var clicked []core.Target
		page := &fakePage{
			clickFn: func(_ context.Context, target core.Target) error {
				clicked = append(clicked, target)
				return nil
			},
		}
		r := NewResolver(ResolverOptions{})
		step := model.Step{Action: model.ActionClick, Selector: "#login"}

		res, err := r.Resolve(context.Background(), page, step, model.ActionClick, "")
		require.NoError(t, err)
		assert.Equal(t, "direct:selector", res.Strategy)
		assert.False(t, res.SelfHealed)
		require.Len(t, clicked, 1)
		assert.Equal(t, core.TargetSelector, clicked[0].Kind)
		assert.Equal(t, "#login", clicked[0].Selector)
	})

	t.Run("selector fails then instruction heals", func(t *testing.T) {
		page := &fakePage{
			clickFn: func(_ context.Context, target core.Target) error {
				if target.Kind == core.TargetSelector {
					return errors.New("element not found")
				}
				return nil
			},
		}
		r := NewResolver(ResolverOptions{})
		step := model.Step{
			Action:      model.ActionClick,
			Selector:    "#stale",
			Instruction: "Click the Login button",
		}

		res, err := r.Resolve(context.Background(), page, step, model.ActionClick, "")
		require.NoError(t, err)
		assert.Equal(t, "semantic:role:button", res.Strategy)
		assert.True(t, res.SelfHealed)
		assert.Equal(t, 2, res.Attempts)
	})

	t.Run("instruction only, no heal", func(t *testing.T) {
		page := &fakePage{}
		r := NewResolver(ResolverOptions{})
		step := model.Step{Action: model.ActionClick, Instruction: "Click Submit"}

		res, err := r.Resolve(context.Background(), page, step, model.ActionClick, "")
		require.NoError(t, err)
		assert.Equal(t, "semantic:text", res.Strategy)
		assert.False(t, res.SelfHealed, "direct was skipped, not failed")
		assert.Equal(t, 1, res.Attempts)
	})

	t.Run("fill passes the value through", func(t *testing.T) {
		var gotValue string
		page := &fakePage{
			fillFn: func(_ context.Context, _ core.Target, value string) error {
				gotValue = value
				return nil
			},
		}
		r := NewResolver(ResolverOptions{})
		step := model.Step{Action: model.ActionFill, Selector: "#email"}

		_, err := r.Resolve(context.Background(), page, step, model.ActionFill, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", gotValue)
	})

	t.Run("everything fails lists both strategies", func(t *testing.T) {
		page := &fakePage{
			clickFn: func(context.Context, core.Target) error {
				return errors.New("not visible")
			},
		}
		r := NewResolver(ResolverOptions{})
		step := model.Step{
			Action:      model.ActionClick,
			Selector:    "#gone",
			Instruction: "Click the Login button",
		}

		res, err := r.Resolve(context.Background(), page, step, model.ActionClick, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all strategies failed")
		assert.Contains(t, err.Error(), "direct")
		assert.Contains(t, err.Error(), "semantic")
		assert.Equal(t, 2, res.Attempts)
	})
}
