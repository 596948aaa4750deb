package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ordersuite/orderflow/internal/bot"
)

// SimulationHeader carries the shared secret that switches the webhook into
// simulation mode.
const SimulationHeader = "X-Bot-Secret"

// DefaultAddr is the default listen address.
const DefaultAddr = ":8080"

// Opts holds server configuration.
type Opts struct {
	Addr string

	// SimulationSecret enables the simulation webhook path when non-empty.
	SimulationSecret string
}

// Option configures the server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithSimulationSecret enables simulation mode behind the given secret.
func WithSimulationSecret(secret string) Option {
	return func(o *Opts) { o.SimulationSecret = secret }
}

// Server is the HTTP front door.
type Server struct {
	bot        *bot.Bot
	opts       Opts
	httpServer *http.Server
}

// NewServer builds the HTTP server around a bot.
func NewServer(b *bot.Bot, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server{bot: b, opts: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/webhook", s.webhookHandler)
	r.Get("/conversations/{phone}", s.conversationHandler)
	r.Get("/health", s.healthHandler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.opts.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("Server.Run: shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}
