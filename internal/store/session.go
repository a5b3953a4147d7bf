package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is one run of the relay.
type Session struct {
	ID        string
	Source    string
	StartedAt time.Time
	// EndedAt is nil while the session is live.
	EndedAt *time.Time
}

// SessionRepository provides operations on sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create starts a new session for source and returns it.
func (r *SessionRepository) Create(source string) (*Session, error) {
	sess := &Session{
		ID:        uuid.New().String(),
		Source:    source,
		StartedAt: time.Now().UTC(),
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, source, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Source, sess.StartedAt,
	)
	if err != nil {
		return nil, err
	}

	return sess, nil
}

// End marks a session as finished.
func (r *SessionRepository) End(id string) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, source, started_at, ended_at FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.Source, &sess.StartedAt, &ended)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if ended.Valid {
		sess.EndedAt = &ended.Time
	}
	return sess, nil
}

// List retrieves all sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, source, started_at, ended_at FROM sessions ORDER BY rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		var ended sql.NullTime

		if err := rows.Scan(&sess.ID, &sess.Source, &sess.StartedAt, &ended); err != nil {
			return nil, err
		}

		if ended.Valid {
			sess.EndedAt = &ended.Time
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}
