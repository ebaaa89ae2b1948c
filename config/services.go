package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeWorker runs the test run worker.
	ServiceModeWorker ServiceMode = "worker"
	// ServiceModeRecovery runs the stuck-run recovery sweep.
	ServiceModeRecovery ServiceMode = "recovery"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeWorker, ServiceModeRecovery}
}

// ParseServices parses a comma-delimited string of service names and returns
// the enabled services. Unknown names are an error.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeWorker, ServiceModeRecovery:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, worker, recovery)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// WorkerConfig contains test run worker configuration.
type WorkerConfig struct {
	// MaxAttempts is the maximum number of execution attempts for one
	// delivered job, the first attempt included.
	MaxAttempts int `env:"WORKER_MAX_ATTEMPTS" envDefault:"3"`

	// BackoffBase is the first retry delay; subsequent delays double.
	BackoffBase time.Duration `env:"WORKER_BACKOFF_BASE" envDefault:"1s"`

	// ClaimBlock is how long one claim call blocks waiting for a job.
	ClaimBlock time.Duration `env:"WORKER_CLAIM_BLOCK" envDefault:"5s"`

	// ReclaimMinIdle is how long a pending delivery must sit idle before an
	// idle worker may steal it from a dead consumer.
	ReclaimMinIdle time.Duration `env:"WORKER_RECLAIM_MIN_IDLE" envDefault:"60s"`

	// HeartbeatInterval is how often an idle worker logs a heartbeat.
	HeartbeatInterval time.Duration `env:"WORKER_HEARTBEAT_INTERVAL" envDefault:"30s"`

	// HealthLogInterval is how often the worker logs a liveness summary.
	HealthLogInterval time.Duration `env:"WORKER_HEALTH_LOG_INTERVAL" envDefault:"5m"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.MaxAttempts < 1 {
		w.MaxAttempts = 1
	}
	if w.BackoffBase <= 0 {
		w.BackoffBase = time.Second
	}
	if w.ClaimBlock <= 0 {
		w.ClaimBlock = 5 * time.Second
	}
	if w.ReclaimMinIdle < 10*time.Second {
		w.ReclaimMinIdle = 10 * time.Second
	}
	if w.HeartbeatInterval <= 0 {
		w.HeartbeatInterval = 30 * time.Second
	}
	if w.HealthLogInterval <= 0 {
		w.HealthLogInterval = 5 * time.Minute
	}
}

// RecoveryConfig contains stuck-run recovery configuration.
type RecoveryConfig struct {
	// Interval is the sweep tick interval.
	Interval time.Duration `env:"RECOVERY_INTERVAL" envDefault:"5m"`

	// StuckTimeout is how long a run may stay in the running state before
	// the sweep force-fails it.
	StuckTimeout time.Duration `env:"RECOVERY_STUCK_TIMEOUT" envDefault:"10m"`
}

// Sanitize applies guardrails to recovery configuration values.
func (r *RecoveryConfig) Sanitize() {
	if r.Interval < time.Second {
		r.Interval = time.Second
	}
	if r.StuckTimeout < time.Minute {
		r.StuckTimeout = time.Minute
	}
}

// AgentConfig contains browser execution configuration.
type AgentConfig struct {
	// CDPURL is the browser's DevTools debug endpoint.
	CDPURL string `env:"AGENT_CDP_URL" envDefault:"http://127.0.0.1:9222"`

	// StepTimeout bounds a single step's browser work.
	StepTimeout time.Duration `env:"AGENT_STEP_TIMEOUT" envDefault:"30s"`

	// RunTimeout bounds a whole run's wall-clock time.
	RunTimeout time.Duration `env:"AGENT_RUN_TIMEOUT" envDefault:"5m"`
}

// Sanitize applies guardrails to agent configuration values.
func (a *AgentConfig) Sanitize() {
	if a.StepTimeout < time.Second {
		a.StepTimeout = time.Second
	}
	if a.RunTimeout < a.StepTimeout {
		a.RunTimeout = a.StepTimeout
	}
}
