// Package service contains the long-running services: the run worker, the
// stuck-run recovery sweep, and the event stream tailer.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/agenticqa/runner/config"
	"github.com/agenticqa/runner/internal/core"
	"github.com/agenticqa/runner/internal/data"
	"github.com/agenticqa/runner/internal/domain/model"
)

// RunExecutor executes one claimed run to its terminal state.
// *agent.Engine is the production implementation.
type RunExecutor interface {
	Execute(ctx context.Context, runID string, test *model.Test) error
}

// WorkerOptions groups dependencies for WorkerService.
type WorkerOptions struct {
	Queue    core.RunQueue       // Required: job queue
	Runs     core.RunRepository  // Required: run persistence
	Tests    core.TestRepository // Required: test definitions
	Events   core.EventLog       // Required: per-run event log
	Executor RunExecutor         // Required: run execution engine
	Config   config.WorkerConfig
	Logger   *slog.Logger
	// Consumer overrides the generated consumer name. Useful in tests.
	Consumer string
}

// WorkerService claims run jobs from the queue and executes them. Transient
// infrastructure failures are retried with exponential backoff; permanent
// failures terminate the run immediately. Every delivery is acknowledged only
// after the run has reached a terminal state, so a crashed worker's jobs stay
// claimable.
type WorkerService struct {
	queue    core.RunQueue
	runs     core.RunRepository
	tests    core.TestRepository
	events   core.EventLog
	executor RunExecutor
	config   config.WorkerConfig
	logger   *slog.Logger
	consumer string

	processed int64
	failed    int64
}

// NewWorkerService constructs a WorkerService.
func NewWorkerService(opts WorkerOptions) (*WorkerService, error) {
	if opts.Queue == nil {
		return nil, errors.New("RunQueue is required")
	}
	if opts.Runs == nil {
		return nil, errors.New("RunRepository is required")
	}
	if opts.Tests == nil {
		return nil, errors.New("TestRepository is required")
	}
	if opts.Events == nil {
		return nil, errors.New("EventLog is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("RunExecutor is required")
	}

	consumer := opts.Consumer
	if consumer == "" {
		consumer = newConsumerName()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &WorkerService{
		queue:    opts.Queue,
		runs:     opts.Runs,
		tests:    opts.Tests,
		events:   opts.Events,
		executor: opts.Executor,
		config:   opts.Config,
		logger:   logger.With("component", "run_worker", "consumer", consumer),
		consumer: consumer,
	}, nil
}

// newConsumerName builds a queue consumer name unique across hosts,
// processes and restarts.
func newConsumerName() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown"
	}
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("worker-%s-%d", hostname, os.Getpid())
	}
	return fmt.Sprintf("worker-%s-%d-%s", hostname, os.Getpid(), hex.EncodeToString(buf[:]))
}

// Run starts the claim loop and runs until the context is cancelled.
// Returns nil on graceful shutdown.
func (s *WorkerService) Run(ctx context.Context) error {
	if err := s.queue.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	s.logger.InfoContext(ctx, "starting run worker",
		"claim_block", s.config.ClaimBlock,
		"max_attempts", s.config.MaxAttempts)

	lastHeartbeat := time.Now()
	lastHealth := time.Now()

	for {
		if ctx.Err() != nil {
			s.logger.InfoContext(ctx, "run worker stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		}

		job, err := s.queue.Claim(ctx, s.consumer, s.config.ClaimBlock)
		if err != nil {
			if isContextCancellation(err) || ctx.Err() != nil {
				continue
			}
			s.logger.ErrorContext(ctx, "claim failed", "error", err)
			sleepCtx(ctx, s.config.BackoffBase)
			continue
		}

		if job == nil {
			// Idle: try to rescue a delivery stranded by a dead worker.
			job, err = s.queue.ClaimStale(ctx, s.consumer, s.config.ReclaimMinIdle)
			if err != nil && !isContextCancellation(err) {
				s.logger.ErrorContext(ctx, "stale claim failed", "error", err)
			}
		}

		now := time.Now()
		if job == nil {
			if now.Sub(lastHeartbeat) >= s.config.HeartbeatInterval {
				s.logger.DebugContext(ctx, "worker idle")
				lastHeartbeat = now
			}
			if now.Sub(lastHealth) >= s.config.HealthLogInterval {
				s.logger.InfoContext(ctx, "worker healthy",
					"processed", s.processed, "failed", s.failed)
				lastHealth = now
			}
			continue
		}

		s.process(ctx, job)
		lastHeartbeat = time.Now()
	}
}

// process drives one delivery to a terminal state and acknowledges it. The
// delivery stays unacked when the terminal state could not be written, so a
// later redelivery can finish the job.
func (s *WorkerService) process(ctx context.Context, job *model.RunJob) {
	log := s.logger.With("run_id", job.RunID, "test_id", job.TestID, "delivery_id", job.DeliveryID)
	log.InfoContext(ctx, "claimed run")

	var lastErr error
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		lastErr = s.executeOnce(ctx, job)
		if lastErr == nil {
			break
		}
		if errors.Is(lastErr, model.ErrTestNotFound) || errors.Is(lastErr, model.ErrRunFinished) {
			break
		}
		if !data.IsTransient(lastErr) || attempt == s.config.MaxAttempts {
			break
		}

		delay := s.config.BackoffBase << (attempt - 1)
		log.WarnContext(ctx, "transient failure, retrying",
			"attempt", attempt, "delay", delay, "error", lastErr)
		if !sleepCtx(ctx, delay) {
			return
		}
	}

	switch {
	case lastErr == nil:
		s.processed++
	case errors.Is(lastErr, model.ErrRunFinished):
		// A previous delivery already finished this run.
		log.InfoContext(ctx, "run already finished, dropping duplicate delivery")
	default:
		s.failed++
		log.ErrorContext(ctx, "run failed permanently", "error", lastErr)
		if err := s.terminateRun(ctx, job.RunID, lastErr.Error()); err != nil {
			// No terminal state on record: leave the delivery pending so a
			// redelivery can try again once the stores recover.
			log.ErrorContext(ctx, "could not record failure, leaving delivery unacked", "error", err)
			return
		}
	}

	if err := s.queue.Ack(ctx, job.DeliveryID); err != nil {
		log.ErrorContext(ctx, "ack failed", "error", err)
	}
}

func (s *WorkerService) executeOnce(ctx context.Context, job *model.RunJob) error {
	test, err := s.tests.GetByID(ctx, job.TestID)
	if err != nil {
		return err
	}
	return s.executor.Execute(ctx, job.RunID, test)
}

// terminateRun writes the terminal error event and force-fails the run.
func (s *WorkerService) terminateRun(ctx context.Context, runID, message string) error {
	// Shutdown must not stop the terminal write.
	ctx = context.WithoutCancel(ctx)

	if _, err := s.events.Append(ctx, runID, model.EventError, map[string]any{
		"message": message,
	}); err != nil {
		return fmt.Errorf("append error event: %w", err)
	}
	if err := s.runs.FailRun(ctx, core.FailRunParams{RunID: runID, Error: message}); err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return nil
}

// sleepCtx sleeps for d or until the context is cancelled. Reports whether
// the full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
