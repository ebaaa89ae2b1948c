package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticqa/runner/config"
	"github.com/agenticqa/runner/internal/domain/model"
)

func recoveryTestConfig() config.RecoveryConfig {
	return config.RecoveryConfig{
		Interval:     10 * time.Millisecond,
		StuckTimeout: 10 * time.Minute,
	}
}

func newTestRecovery(t *testing.T, runs *fakeRunRepo, events *fakeEventLog) *RecoveryService {
	t.Helper()
	r, err := NewRecoveryService(RecoveryOptions{
		Runs:   runs,
		Events: events,
		Config: recoveryTestConfig(),
		Logger: discardLogger(),
	})
	require.NoError(t, err)
	return r
}

func TestSweepFailsStuckRuns(t *testing.T) {
	runs := &fakeRunRepo{
		findStuckFn: func(_ context.Context, maxAge time.Duration) ([]string, error) {
			assert.Equal(t, 10*time.Minute, maxAge)
			return []string{"run-a", "run-b"}, nil
		},
	}
	events := &fakeEventLog{}
	r := newTestRecovery(t, runs, events)

	require.NoError(t, r.Sweep(context.Background()))

	failures := runs.failedRuns()
	require.Len(t, failures, 2)
	assert.Equal(t, "run-a", failures[0].RunID)
	assert.Equal(t, "run-b", failures[1].RunID)
	assert.Contains(t, failures[0].Error, "stuck")
	assert.Contains(t, failures[0].Error, "10m")

	// The terminal error event lands for every recovered run so open
	// streams observe the run ending.
	errorEvents := events.ofType(model.EventError)
	require.Len(t, errorEvents, 2)
	assert.Equal(t, "run-a", errorEvents[0].runID)
	assert.Equal(t, failures[0].Error, errorEvents[0].data["message"])
}

func TestSweepNothingStuck(t *testing.T) {
	runs := &fakeRunRepo{}
	events := &fakeEventLog{}
	r := newTestRecovery(t, runs, events)

	require.NoError(t, r.Sweep(context.Background()))
	assert.Empty(t, runs.failedRuns())
	assert.Empty(t, events.appended())
}

func TestSweepFindStuckErrorPropagates(t *testing.T) {
	runs := &fakeRunRepo{
		findStuckFn: func(context.Context, time.Duration) ([]string, error) {
			return nil, errors.New("connection refused")
		},
	}
	r := newTestRecovery(t, runs, &fakeEventLog{})

	err := r.Sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find stuck runs")
}

func TestSweepEventFailureSkipsStatusWrite(t *testing.T) {
	runs := &fakeRunRepo{
		findStuckFn: func(context.Context, time.Duration) ([]string, error) {
			return []string{"run-a", "run-b"}, nil
		},
	}
	events := &fakeEventLog{
		appendFn: func(_ context.Context, runID string, _ model.EventType, _ any) (string, error) {
			if runID == "run-a" {
				return "", errors.New("redis down")
			}
			return "1-0", nil
		},
	}
	r := newTestRecovery(t, runs, events)

	require.NoError(t, r.Sweep(context.Background()))

	// run-a keeps its running status for the next sweep; run-b recovered.
	failures := runs.failedRuns()
	require.Len(t, failures, 1)
	assert.Equal(t, "run-b", failures[0].RunID)
}

func TestRecoveryRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	sweeps := 0
	runs := &fakeRunRepo{
		findStuckFn: func(context.Context, time.Duration) ([]string, error) {
			sweeps++
			if sweeps >= 2 {
				cancel()
			}
			return nil, nil
		},
	}
	r := newTestRecovery(t, runs, &fakeEventLog{})

	err := r.Run(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sweeps, 2)
}

func TestNewRecoveryServiceRequiresDependencies(t *testing.T) {
	_, err := NewRecoveryService(RecoveryOptions{})
	require.Error(t, err)

	_, err = NewRecoveryService(RecoveryOptions{Runs: &fakeRunRepo{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EventLog")
}
