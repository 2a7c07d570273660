// Package draftapi serves a drafts.Store over HTTP. It is the remote end of
// drafts.HTTPStore.
//
//	PUT    /drafts/{id}   create or replace a draft
//	POST   /drafts        create a draft, assigning an id when none is given
//	GET    /drafts/{id}   fetch a draft
//	DELETE /drafts/{id}   delete a draft
//	GET    /drafts        list ids (?wizard=&limit=&offset=)
//	GET    /healthz       liveness
//
// Bodies are JSON. Errors are {"error": "..."}.
package draftapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/AltairaLabs/WizardKit/pkg/httputil"
	"github.com/AltairaLabs/WizardKit/runtime/drafts"
	"github.com/AltairaLabs/WizardKit/runtime/logger"
)

const (
	defaultAddr = ":8080"

	// defaultReadTimeout is the maximum duration for reading the entire
	// request, including the body.
	defaultReadTimeout = 30 * time.Second

	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	// defaultMaxBodySize is the maximum allowed size of a request body (1 MB).
	defaultMaxBodySize int64 = 1 << 20

	// limiterTTL is how long an idle client's token bucket is kept.
	limiterTTL = 10 * time.Minute

	// evictionInterval is how often idle buckets are swept.
	evictionInterval = 1 * time.Minute
)

// Authenticator validates incoming requests.
type Authenticator interface {
	Authenticate(r *http.Request) error
}

// Option configures a Server.
type Option func(*Server)

// WithMaxBodySize sets the maximum request body size in bytes.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodySize = n
		}
	}
}

// WithRateLimit enables a per-client token bucket of rps requests per
// second with the given burst. Clients are keyed by remote IP.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = newClientLimiter(rps, burst, limiterTTL)
		}
	}
}

// WithAuthenticator sets an authenticator for /drafts requests.
func WithAuthenticator(auth Authenticator) Option {
	return func(s *Server) { s.authenticator = auth }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithAddr sets the listen address used by ListenAndServe. Default ":8080".
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithReadTimeout sets the HTTP server read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

// WithWriteTimeout sets the HTTP server write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) { s.writeTimeout = d }
}

// Server exposes a drafts.Store as a REST API.
type Server struct {
	store         drafts.Store
	authenticator Authenticator
	limiter       *clientLimiter
	log           *slog.Logger
	addr          string

	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
	maxBodySize  int64

	httpSrv   *http.Server
	httpSrvMu sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewServer creates a server for store.
func NewServer(store drafts.Store, opts ...Option) *Server {
	s := &Server{
		store:        store,
		log:          logger.WithModule("server.draftapi"),
		addr:         defaultAddr,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		idleTimeout:  defaultIdleTimeout,
		maxBodySize:  defaultMaxBodySize,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter != nil {
		go s.evictionLoop()
	}
	return s
}

// Handler returns the API handler, instrumented with otelhttp.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /schema", s.handleSchema)
	mux.Handle("GET /drafts", s.guard(s.handleList))
	mux.Handle("POST /drafts", s.guard(s.handleCreate))
	mux.Handle("GET /drafts/{id}", s.guard(s.handleGet))
	mux.Handle("PUT /drafts/{id}", s.guard(s.handlePut))
	mux.Handle("DELETE /drafts/{id}", s.guard(s.handleDelete))
	return otelhttp.NewHandler(mux, "draftapi")
}

// guard applies rate limiting, authentication and the body size limit.
func (s *Server) guard(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.allow(clientKey(r), time.Now()) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		if s.authenticator != nil {
			if err := s.authenticator.Authenticate(r); err != nil {
				writeError(w, http.StatusUnauthorized, "authentication failed: "+err.Error())
				return
			}
		}
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize)
		}
		next(w, r)
	})
}

// ListenAndServe starts the HTTP server on the configured address.
// It returns http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe() error {
	return s.httpServer().ListenAndServe()
}

// Serve starts the HTTP server on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer().Serve(ln)
}

// httpServer returns the server's single *http.Server, so that a Shutdown
// issued before Serve still stops it.
func (s *Server) httpServer() *http.Server {
	s.httpSrvMu.Lock()
	defer s.httpSrvMu.Unlock()
	if s.httpSrv == nil {
		srv := httputil.NewServer(s.addr, s.Handler())
		srv.ReadTimeout = s.readTimeout
		srv.WriteTimeout = s.writeTimeout
		srv.IdleTimeout = s.idleTimeout
		s.httpSrv = srv
	}
	return s.httpSrv
}

// Shutdown stops the eviction goroutine and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return s.httpServer().Shutdown(ctx)
}

// evictionLoop periodically drops idle client buckets. It runs until
// stopCh is closed (via Shutdown).
func (s *Server) evictionLoop() {
	ticker := time.NewTicker(evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.limiter.evict(now)
		}
	}
}
