package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/agenticqa/runner/config"
	"github.com/agenticqa/runner/internal/adapters/redisq"
	"github.com/agenticqa/runner/internal/agent"
	"github.com/agenticqa/runner/internal/cdp"
	"github.com/agenticqa/runner/internal/data"
	"github.com/agenticqa/runner/internal/service"
)

// shutdownTimeout is the maximum time to wait for the HTTP server to stop
// gracefully.
const shutdownTimeout = 15 * time.Second

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Runs     *data.RunRepo
	Tests    *data.TestRepo
	Queue    *redisq.Queue
	Events   *redisq.EventLog
	Streamer *service.Streamer
	Worker   *service.WorkerService
	Recovery *service.RecoveryService
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires repositories, queue adapters and services for the
// enabled service modes.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	runRepo := data.NewRunRepo(deps.DB)
	testRepo := data.NewTestRepo(deps.DB)

	queue, err := redisq.NewQueue(redisq.QueueOptions{
		Client: deps.RedisClient,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build run queue: %w", err)
	}
	eventLog, err := redisq.NewEventLog(redisq.EventLogOptions{
		Client: deps.RedisClient,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build event log: %w", err)
	}

	streamer, err := service.NewStreamer(service.StreamerOptions{
		Events:       eventLog,
		Runs:         runRepo,
		PollInterval: cfg.HTTP.StreamPollInterval,
		Logger:       logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build streamer: %w", err)
	}

	container := ServiceContainer{
		Runs:     runRepo,
		Tests:    testRepo,
		Queue:    queue,
		Events:   eventLog,
		Streamer: streamer,
	}

	if cfg.IsWorkerEnabled() {
		engine, err := agent.NewEngine(agent.EngineOptions{
			Runs:   runRepo,
			Events: eventLog,
			Driver: cdp.NewDriverFactory(cfg.Agent.CDPURL, logger),
			Executor: agent.NewStepExecutor(agent.StepExecutorOptions{
				StepTimeout: cfg.Agent.StepTimeout,
				Logger:      logger,
			}),
			RunTimeout: cfg.Agent.RunTimeout,
			Logger:     logger,
		})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("build run engine: %w", err)
		}

		container.Worker, err = service.NewWorkerService(service.WorkerOptions{
			Queue:    queue,
			Runs:     runRepo,
			Tests:    testRepo,
			Events:   eventLog,
			Executor: engine,
			Config:   cfg.Worker,
			Logger:   logger,
		})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("build worker: %w", err)
		}
	}

	if cfg.IsRecoveryEnabled() {
		container.Recovery, err = service.NewRecoveryService(service.RecoveryOptions{
			Runs:   runRepo,
			Events: eventLog,
			Config: cfg.Recovery,
			Logger: logger,
		})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("build recovery: %w", err)
		}
	}

	return container, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. Blocks until a shutdown signal is received or a service fails;
// either way every service is stopped before it returns.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Config.IsHTTPServerEnabled() {
		server := NewHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
		group.Go(func() error {
			logger.Info("starting HTTP server", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			return shutdownHTTPServer(server, logger)
		})
	}

	if worker := cfg.Services.Worker; worker != nil {
		group.Go(func() error {
			if err := worker.Run(groupCtx); err != nil {
				return fmt.Errorf("worker: %w", err)
			}
			return nil
		})
	}

	if recovery := cfg.Services.Recovery; recovery != nil {
		group.Go(func() error {
			if err := recovery.Run(groupCtx); err != nil {
				return fmt.Errorf("recovery: %w", err)
			}
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		logger.Error("service error", "error", err)
		return err
	}

	logger.Info("all services stopped")
	return nil
}

// shutdownHTTPServer drains in-flight requests, bounded by shutdownTimeout.
// Open SSE streams end when their request contexts are cancelled by the
// server closing.
func shutdownHTTPServer(server *http.Server, logger *slog.Logger) error {
	logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		// Streams may outlive the drain window; force-close them.
		if closeErr := server.Close(); closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}

	logger.Info("HTTP server stopped")
	return nil
}
