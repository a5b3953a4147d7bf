package store

import (
	"database/sql"
	"slices"
	"time"

	"github.com/ayusman/handpilot/internal/control"
)

// Event is a control record stored under a session.
type Event struct {
	ID         int64
	SessionID  string
	Record     control.Record
	RecordedAt time.Time
}

// EventRepository provides operations on control events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Append stores rec under sessionID.
func (r *EventRepository) Append(sessionID string, rec control.Record) (*Event, error) {
	ev := &Event{
		SessionID:  sessionID,
		Record:     rec,
		RecordedAt: time.Now().UTC(),
	}

	result, err := r.db.Exec(
		`INSERT INTO control_events (session_id, state, angle, recorded_at) VALUES (?, ?, ?, ?)`,
		ev.SessionID, rec.State, rec.Angle, ev.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	ev.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return ev, nil
}

// ListBySession returns the events of a session in arrival order. A positive
// limit keeps only the most recent limit events.
func (r *EventRepository) ListBySession(sessionID string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, state, angle, recorded_at FROM control_events
		 WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		ev := &Event{}
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Record.State, &ev.Record.Angle, &ev.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(events)
	return events, nil
}

// Count returns how many events a session holds.
func (r *EventRepository) Count(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM control_events WHERE session_id = ?`,
		sessionID,
	).Scan(&n)
	return n, err
}
