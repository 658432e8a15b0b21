package httpserver

import (
	"net/http"
	"time"

	"breachledger/internal/platform/config"
)

// New builds an HTTP server with sane defaults for this project. The write
// timeout leaves headroom over the per-request deadline so timeouts surface
// as JSON errors rather than dropped connections.
func New(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}
}
