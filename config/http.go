package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application, used for generating
	// absolute URLs in external contexts.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// StreamPollInterval is how often event streams poll for new entries.
	StreamPollInterval time.Duration `env:"HTTP_STREAM_POLL_INTERVAL" envDefault:"500ms"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.StreamPollInterval < 50*time.Millisecond {
		h.StreamPollInterval = 50 * time.Millisecond
	}
}
