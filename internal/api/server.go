package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yasserelgammal/rate-limiter/limiter"
	"github.com/yasserelgammal/rate-limiter/store"

	"github.com/mattjoyce/excbridge/internal/auth"
	"github.com/mattjoyce/excbridge/internal/dispatch"
	"github.com/mattjoyce/excbridge/internal/events"
	"github.com/mattjoyce/excbridge/internal/exc"
	"github.com/mattjoyce/excbridge/internal/service"
)

// Service is the part of service.Front the API exposes.
type Service interface {
	Bind() (*service.Endpoint, error)
	Unbind()
	Bindings() int
	Running() bool
	Uptime() time.Duration
	Stats() dispatch.Stats
	Snapshot() (exc.Snapshot, bool)
}

// JournalReader reads back persisted lifecycle notifications.
type JournalReader interface {
	Recent(ctx context.Context, n int) ([]events.Record, error)
}

// ForwarderStatser reports event forwarding outcomes.
type ForwarderStatser interface {
	Stats() events.ForwarderStats
}

// Config holds API server configuration
type Config struct {
	Listen string
	// Tokens are scoped bearer tokens. Empty leaves the API open.
	Tokens []auth.TokenConfig
	// Fingerprint identifies the loaded configuration on /healthz.
	Fingerprint string
	// CommandTimeout bounds how long POST /command waits for a reply.
	CommandTimeout time.Duration
	// CommandRate is the sustained POST /command rate per caller; zero
	// disables limiting. CommandBurst defaults to CommandRate.
	CommandRate  int
	CommandBurst int
}

// Server represents the HTTP API server
type Server struct {
	config    Config
	svc       Service
	endpoint  *service.Endpoint
	hub       *events.Hub
	journal   JournalReader
	forwarder ForwarderStatser
	keyring   *auth.Keyring
	limiter   *limiter.TokenBucket
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New binds an endpoint on svc and returns a server exposing it. journal may
// be nil when no journal is configured.
func New(config Config, svc Service, hub *events.Hub, journal JournalReader, logger *slog.Logger) (*Server, error) {
	if config.CommandTimeout <= 0 {
		config.CommandTimeout = 30 * time.Second
	}
	if hub == nil {
		hub = events.NewHub(0)
	}
	var tb *limiter.TokenBucket
	if config.CommandRate > 0 {
		burst := config.CommandBurst
		if burst <= 0 {
			burst = config.CommandRate
		}
		var err error
		tb, err = limiter.NewTokenBucket(limiter.Config{
			Rate:     int64(config.CommandRate),
			Duration: time.Second,
			Burst:    int64(burst),
		}, store.NewMemoryStore(time.Minute))
		if err != nil {
			return nil, fmt.Errorf("create rate limiter: %w", err)
		}
	}
	endpoint, err := svc.Bind()
	if err != nil {
		return nil, fmt.Errorf("bind service endpoint: %w", err)
	}
	return &Server{
		config:    config,
		svc:       svc,
		endpoint:  endpoint,
		hub:       hub,
		journal:   journal,
		keyring:   auth.NewKeyring(config.Tokens),
		limiter:   tb,
		logger:    logger,
		startedAt: time.Now(),
	}, nil
}

// WithForwarder adds the event forwarder's counters to GET /stats.
func (s *Server) WithForwarder(f ForwarderStatser) *Server {
	s.forwarder = f
	return s
}

// Start starts the HTTP server (blocking)
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()
	defer s.svc.Unbind()

	s.server = &http.Server{
		Addr:        s.config.Listen,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// WAIT_COMPLETION can hold a request open until the EXC is done.
		WriteTimeout: s.config.CommandTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting",
		"listen", s.config.Listen,
		"auth", s.keyring.Len() > 0,
		"command_rate", s.config.CommandRate,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated ops endpoints.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/openapi.json", s.handleOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.With(s.requireScopes(auth.ScopeEXCRead)).Get("/exc", s.handleSnapshot)
		r.With(s.requireScopes(auth.ScopeEXCRead)).Get("/stats", s.handleStats)
		r.With(s.requireScopes(auth.ScopeEXCWrite), s.rateLimit).Post("/command/{opcode}", s.handleCommand)
		r.With(s.requireScopes(auth.ScopeEventsRead)).Get("/events", s.handleEvents)
		r.With(s.requireScopes(auth.ScopeEventsRead)).Get("/events/ws", s.handleEventsWS)
		r.With(s.requireScopes(auth.ScopeEventsRead)).Get("/journal", s.handleJournal)
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
