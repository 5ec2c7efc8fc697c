package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/BTreeMap/SurveyPipe/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists sessions in PostgreSQL. Session state is stored as a
// JSONB document alongside indexed metadata columns.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL using the DSN and applies the
// schema migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply PostgreSQL migrations: %w", err)
	}
	slog.Info("store.NewPostgresStore: database ready")
	return &PostgresStore{db: db}, nil
}

// SaveSession upserts the session's JSON state.
func (s *PostgresStore) SaveSession(session *models.Session) error {
	session.UpdatedAt = time.Now()
	data, err := session.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize session %s: %w", session.ID, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, goal_name, session_data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET goal_name = $2, session_data = $3, updated_at = $5`,
		session.ID, session.GoalName, data, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// GetSession loads a session by id, or (nil, nil) when absent.
func (s *PostgresStore) GetSession(id string) (*models.Session, error) {
	var data string
	err := s.db.QueryRow(`SELECT session_data FROM sessions WHERE id = $1`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	var session models.Session
	if err := session.FromJSON(data); err != nil {
		return nil, fmt.Errorf("failed to deserialize session %s: %w", id, err)
	}
	return &session, nil
}

// DeleteSession removes a session. Deleting an absent session is not an error.
func (s *PostgresStore) DeleteSession(id string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *PostgresStore) ListSessions() ([]models.Session, error) {
	rows, err := s.db.Query(`SELECT session_data FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		var session models.Session
		if err := session.FromJSON(data); err != nil {
			return nil, fmt.Errorf("failed to deserialize session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
