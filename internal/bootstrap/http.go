package bootstrap

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/agenticqa/runner/config"
	"github.com/agenticqa/runner/internal/httpx"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// NewHTTPServer builds the HTTP server with the API router mounted. The
// caller starts and stops it.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	router := httpx.NewRouter(httpx.RouterServices{
		Runs:     cfg.Services.Runs,
		Tests:    cfg.Services.Tests,
		Queue:    cfg.Services.Queue,
		Streamer: cfg.Services.Streamer,
		Logger:   logger,
	})

	addr := appCfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// WriteTimeout must stay 0: the event stream endpoint holds its
		// response open for the lifetime of a run.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}
}
