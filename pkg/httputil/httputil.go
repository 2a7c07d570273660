// Package httputil centralizes HTTP client and server timeout defaults so
// the draft API server and its clients agree on them.
package httputil

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Standard timeout defaults used across the project.
const (
	// DefaultDraftStoreTimeout bounds a single call from drafts.HTTPStore
	// to a remote draft API.
	DefaultDraftStoreTimeout = 10 * time.Second

	// DefaultReadHeaderTimeout is applied to every server we start.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds graceful server shutdown.
	DefaultShutdownTimeout = 5 * time.Second
)

// NewHTTPClient returns an *http.Client with the given timeout whose
// transport records an OpenTelemetry client span per request.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// NewServer returns an *http.Server for addr with the default header
// read timeout.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}
}
