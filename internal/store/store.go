// Package store provides persistence for interview sessions. Three backends
// share one interface: an in-memory map for tests and ephemeral runs, SQLite
// for single-node deployments, and PostgreSQL for shared deployments.
package store

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/SurveyPipe/internal/models"
)

// Store persists interview sessions. GetSession returns (nil, nil) when no
// session exists under the id; callers distinguish absence from failure.
type Store interface {
	SaveSession(session *models.Session) error
	GetSession(id string) (*models.Session, error)
	DeleteSession(id string) error
	ListSessions() ([]models.Session, error)
	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	PostgresDSN string
	SQLiteDSN   string
}

// Option configures store options.
type Option func(*Opts)

// WithDSN routes a DSN to the right backend using DetectDSNType.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		if DetectDSNType(dsn) == "postgres" {
			o.PostgresDSN = dsn
		} else {
			o.SQLiteDSN = dsn
		}
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.PostgresDSN = dsn
	}
}

// WithSQLiteDSN sets the SQLite database path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.SQLiteDSN = dsn
	}
}

// DetectDSNType reports "postgres" for URL-style or key=value DSNs and
// "sqlite" for anything else (treated as a file path).
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") || strings.Contains(lower, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// NewStore builds a store from options: PostgreSQL when a Postgres DSN is
// set, SQLite when a SQLite DSN is set, otherwise in-memory.
func NewStore(opts ...Option) (Store, error) {
	var o Opts
	for _, opt := range opts {
		opt(&o)
	}
	switch {
	case o.PostgresDSN != "":
		return NewPostgresStore(o.PostgresDSN)
	case o.SQLiteDSN != "":
		return NewSQLiteStore(o.SQLiteDSN)
	default:
		slog.Info("store.NewStore: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	}
}

// InMemoryStore keeps sessions in a mutex-guarded map. Values are deep-copied
// on the way in and out so callers cannot mutate stored state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]models.Session)}
}

func copySession(s models.Session) models.Session {
	out := s
	out.Answers = make(map[string]any, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	if s.Pending != nil {
		pending := *s.Pending
		pending.Candidates = append([]string(nil), s.Pending.Candidates...)
		out.Pending = &pending
	}
	return out
}

// SaveSession stores a session, overwriting any previous state under its id.
func (s *InMemoryStore) SaveSession(session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := copySession(*session)
	stored.UpdatedAt = time.Now()
	s.sessions[session.ID] = stored
	slog.Debug("InMemoryStore.SaveSession: session saved", "id", session.ID)
	return nil
}

// GetSession retrieves a session by id, or (nil, nil) when absent.
func (s *InMemoryStore) GetSession(id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	out := copySession(stored)
	return &out, nil
}

// DeleteSession removes a session. Deleting an absent session is not an error.
func (s *InMemoryStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *InMemoryStore) ListSessions() ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Session, 0, len(s.sessions))
	for _, stored := range s.sessions {
		out = append(out, copySession(stored))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
