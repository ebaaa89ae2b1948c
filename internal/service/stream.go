package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agenticqa/runner/internal/core"
	"github.com/agenticqa/runner/internal/domain/model"
)

// streamBatchSize bounds one poll's read so replaying a long-finished run
// does not load its whole log at once.
const streamBatchSize = 100

// StreamerOptions groups dependencies for Streamer.
type StreamerOptions struct {
	Events       core.EventLog      // Required: per-run event log
	Runs         core.RunRepository // Required: run persistence, for terminal fallback
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Streamer tails a run's event log, replaying history from a cursor and then
// polling for live events until the run's terminal event arrives. It is the
// transport-agnostic half of event streaming; the HTTP layer turns delivered
// events into SSE frames.
type Streamer struct {
	events       core.EventLog
	runs         core.RunRepository
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewStreamer constructs a Streamer.
func NewStreamer(opts StreamerOptions) (*Streamer, error) {
	if opts.Events == nil {
		return nil, errors.New("EventLog is required")
	}
	if opts.Runs == nil {
		return nil, errors.New("RunRepository is required")
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Streamer{
		events:       opts.Events,
		runs:         opts.Runs,
		pollInterval: pollInterval,
		logger:       logger.With("component", "event_streamer"),
	}, nil
}

// Stream delivers the run's events to fn in log order, starting after
// afterID ("" or "0" replays from the start). It returns nil once a terminal
// event was delivered, the first error fn returns, or the context's error on
// cancellation.
//
// The run's status is checked only when a poll comes back empty: a run that
// reached a terminal status with no terminal event in its log (the terminal
// event write was lost) still ends the stream instead of polling forever.
func (s *Streamer) Stream(ctx context.Context, runID, afterID string, fn func(model.RunEvent) error) error {
	cursor := afterID

	for {
		events, err := s.events.ReadAfter(ctx, runID, cursor, streamBatchSize)
		if err != nil {
			if isContextCancellation(err) && ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read events: %w", err)
		}

		for _, event := range events {
			if err := fn(event); err != nil {
				return err
			}
			cursor = event.ID
			if event.Type.Terminal() {
				return nil
			}
		}

		if len(events) == 0 {
			ended, err := s.runEnded(ctx, runID)
			if err != nil {
				return err
			}
			if ended {
				// The terminal event lands before the status flips, so it may
				// have arrived between the empty poll and the status check.
				// Drain once more before closing.
				return s.drain(ctx, runID, cursor, fn)
			}
		}

		if !sleepCtx(ctx, s.pollInterval) {
			return ctx.Err()
		}
	}
}

// drain delivers whatever is left in the log and ends the stream. Reached
// only once the run's status is terminal, so no further events can arrive.
func (s *Streamer) drain(ctx context.Context, runID, cursor string, fn func(model.RunEvent) error) error {
	for {
		events, err := s.events.ReadAfter(ctx, runID, cursor, streamBatchSize)
		if err != nil {
			return fmt.Errorf("read events: %w", err)
		}
		if len(events) == 0 {
			s.logger.DebugContext(ctx, "run terminal with no terminal event, closing stream",
				"run_id", runID)
			return nil
		}
		for _, event := range events {
			if err := fn(event); err != nil {
				return err
			}
			cursor = event.ID
			if event.Type.Terminal() {
				return nil
			}
		}
	}
}

// runEnded reports whether the run reached a terminal status.
func (s *Streamer) runEnded(ctx context.Context, runID string) (bool, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, model.ErrRunNotFound) {
			return false, err
		}
		return false, fmt.Errorf("check run status: %w", err)
	}
	return run.Status.Terminal(), nil
}
