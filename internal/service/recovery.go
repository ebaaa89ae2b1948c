package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/agenticqa/runner/config"
	"github.com/agenticqa/runner/internal/core"
	"github.com/agenticqa/runner/internal/domain/model"
)

// RecoveryOptions groups dependencies for RecoveryService.
type RecoveryOptions struct {
	Runs   core.RunRepository // Required: run persistence
	Events core.EventLog      // Required: per-run event log
	Config config.RecoveryConfig
	Logger *slog.Logger
}

// RecoveryService periodically force-fails runs stuck in the running state.
// A run gets stuck when its worker dies between marking it running and
// writing the terminal state; without the sweep such runs would stay
// "running" forever and their event streams would never close.
//
// Multiple instances may run concurrently: the repository takes an advisory
// lock per sweep, so only one instance does the work per tick.
type RecoveryService struct {
	runs   core.RunRepository
	events core.EventLog
	config config.RecoveryConfig
	logger *slog.Logger
}

// NewRecoveryService constructs a RecoveryService.
func NewRecoveryService(opts RecoveryOptions) (*RecoveryService, error) {
	if opts.Runs == nil {
		return nil, errors.New("RunRepository is required")
	}
	if opts.Events == nil {
		return nil, errors.New("EventLog is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RecoveryService{
		runs:   opts.Runs,
		events: opts.Events,
		config: opts.Config,
		logger: logger.With("component", "run_recovery"),
	}, nil
}

// Run starts the sweep loop and runs until the context is cancelled.
// Returns nil on graceful shutdown.
func (s *RecoveryService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting stuck-run recovery",
		"interval", s.config.Interval,
		"stuck_timeout", s.config.StuckTimeout)

	// Stagger instances started at the same moment.
	if !sleepCtx(ctx, time.Duration(rand.Int63n(int64(s.config.Interval/4)+1))) {
		return nil
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if err := s.Sweep(ctx); err != nil && !isContextCancellation(err) {
			s.logger.ErrorContext(ctx, "recovery sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "stuck-run recovery stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep finds runs stuck past the timeout and force-fails each one, writing
// the terminal error event before the status update so stream consumers see
// the stream close. One run failing to recover does not stop the others.
func (s *RecoveryService) Sweep(ctx context.Context) error {
	runIDs, err := s.runs.FindStuck(ctx, s.config.StuckTimeout)
	if err != nil {
		return fmt.Errorf("find stuck runs: %w", err)
	}
	if len(runIDs) == 0 {
		return nil
	}

	message := fmt.Sprintf(
		"test run stuck: no progress for over %s, worker assumed dead",
		s.config.StuckTimeout,
	)

	recovered := 0
	for _, runID := range runIDs {
		if ctx.Err() != nil {
			break
		}

		if _, err := s.events.Append(ctx, runID, model.EventError, map[string]any{
			"message": message,
		}); err != nil {
			s.logger.ErrorContext(ctx, "could not append recovery event",
				"run_id", runID, "error", err)
			continue
		}
		if err := s.runs.FailRun(ctx, core.FailRunParams{RunID: runID, Error: message}); err != nil {
			s.logger.ErrorContext(ctx, "could not fail stuck run",
				"run_id", runID, "error", err)
			continue
		}

		s.logger.WarnContext(ctx, "recovered stuck run", "run_id", runID)
		recovered++
	}

	s.logger.InfoContext(ctx, "recovery sweep finished",
		"stuck", len(runIDs), "recovered", recovered)
	return nil
}
