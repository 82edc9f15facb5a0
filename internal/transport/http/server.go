// Package httptransport builds the HTTP server fronting the snapshot API.
package httptransport

import (
	"net/http"
	"time"
)

// Defaults sized for the engine: a forced snapshot request may block behind
// a full sync cycle, so the write timeout must exceed the coordinator's
// cycle timeout.
const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 45 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// ServerConfig contains tunables for the engine's HTTP listener.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates an *http.Server for the snapshot API. Zero timeouts
// fall back to the engine defaults.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
