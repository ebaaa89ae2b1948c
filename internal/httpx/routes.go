package httpx

import (
	"log/slog"
	"net/http"

	"github.com/agenticqa/runner/internal/core"
	"github.com/agenticqa/runner/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Runs     core.RunRepository
	Tests    core.TestRepository
	Queue    core.RunQueue
	Streamer *service.Streamer
	Logger   *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	runHandlers := &RunHandlers{
		Runs:     services.Runs,
		Tests:    services.Tests,
		Queue:    services.Queue,
		Streamer: services.Streamer,
		Logger:   services.Logger,
	}
	registerRunRoutes(mux, runHandlers)

	mux.Handle("GET /health", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /health", http.HandlerFunc(healthHandler))

	return mux
}

func registerRunRoutes(mux *http.ServeMux, h *RunHandlers) {
	mux.HandleFunc("POST /api/v1/test/run", h.CreateRun)
	mux.HandleFunc("GET /api/v1/results/{run_id}", h.GetRun)
	mux.HandleFunc("GET /api/v1/results/{run_id}/stream", h.StreamRun)
}
