package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/BTreeMap/SurveyPipe/internal/models"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists sessions in a local SQLite database. Session state is
// stored as a JSON document alongside indexed metadata columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the SQLite database at path and
// applies the schema migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply SQLite migrations: %w", err)
	}
	slog.Info("store.NewSQLiteStore: database ready", "path", path)
	return &SQLiteStore{db: db}, nil
}

// SaveSession upserts the session's JSON state.
func (s *SQLiteStore) SaveSession(session *models.Session) error {
	session.UpdatedAt = time.Now()
	data, err := session.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize session %s: %w", session.ID, err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO sessions (id, goal_name, session_data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.GoalName, data, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// GetSession loads a session by id, or (nil, nil) when absent.
func (s *SQLiteStore) GetSession(id string) (*models.Session, error) {
	var data string
	err := s.db.QueryRow(`SELECT session_data FROM sessions WHERE id = ?`, id).Scan(&data)
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
func (s *SQLiteStore) DeleteSession(id string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *SQLiteStore) ListSessions() ([]models.Session, error) {
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
