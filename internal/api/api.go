// Package api exposes the interview engine over HTTP. Sessions are created
// and advanced through a small JSON API; the same engine drives the terminal
// client, so transport and dialog logic stay separate.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/BTreeMap/SurveyPipe/internal/classify"
	"github.com/BTreeMap/SurveyPipe/internal/flow"
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option configures server options.
type Option func(*Opts)

// WithAddr sets the listen address (host:port).
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server is the HTTP front end for interview sessions.
type Server struct {
	addr       string
	manager    *flow.SessionManager
	classifier classify.Classifier
	scale      *classify.ScaleClassifier
	httpServer *http.Server

	mu      sync.Mutex
	engines map[string]*flow.Engine
}

// NewServer creates an API server. The classifier and scale classifier are
// shared across all goals; engines are built per goal on first use.
func NewServer(manager *flow.SessionManager, classifier classify.Classifier, scale *classify.ScaleClassifier, opts ...Option) *Server {
	o := Opts{Addr: ":8080"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		addr:       o.Addr,
		manager:    manager,
		classifier: classifier,
		scale:      scale,
		engines:    make(map[string]*flow.Engine),
	}
}

// Run starts the HTTP server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api.Server.Run: listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("api.Server.Run: shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Handler returns the server's routing handler, used directly in tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/goals", s.handleGoals)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/", s.handleSessionByID)
	return mux
}

// engineFor returns the cached engine for a goal, building it on first use.
func (s *Server) engineFor(goalName string) (*flow.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if engine, ok := s.engines[goalName]; ok {
		return engine, nil
	}
	engine, err := flow.EngineForGoal(goalName, s.classifier, s.scale)
	if err != nil {
		return nil, err
	}
	s.engines[goalName] = engine
	return engine, nil
}
