package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/BTreeMap/SurveyPipe/internal/models"
	"github.com/BTreeMap/SurveyPipe/internal/schema"
	"github.com/BTreeMap/SurveyPipe/internal/store"
)

// SessionManager creates, loads, and persists interview sessions against a
// backing store.
type SessionManager struct {
	store store.Store
}

// NewSessionManager creates a session manager backed by the given store.
func NewSessionManager(st store.Store) *SessionManager {
	return &SessionManager{store: st}
}

// CreateSession starts a new session for a registered goal and persists it.
func (m *SessionManager) CreateSession(ctx context.Context, goalName string) (*models.Session, error) {
	if _, ok := schema.Lookup(goalName); !ok {
		return nil, fmt.Errorf("unknown goal %q", goalName)
	}
	session := models.NewSession(uuid.NewString(), goalName)
	if err := m.store.SaveSession(session); err != nil {
		return nil, fmt.Errorf("failed to persist new session: %w", err)
	}
	slog.Info("SessionManager.CreateSession: session created", "id", session.ID, "goal", goalName)
	return session, nil
}

// GetSession loads a session by id, or (nil, nil) when absent.
func (m *SessionManager) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return m.store.GetSession(id)
}

// SaveSession persists the session's current state.
func (m *SessionManager) SaveSession(ctx context.Context, session *models.Session) error {
	return m.store.SaveSession(session)
}

// DeleteSession removes a session.
func (m *SessionManager) DeleteSession(ctx context.Context, id string) error {
	return m.store.DeleteSession(id)
}

// ListSessions returns all persisted sessions.
func (m *SessionManager) ListSessions(ctx context.Context) ([]models.Session, error) {
	return m.store.ListSessions()
}
