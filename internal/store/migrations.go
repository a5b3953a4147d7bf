package store

import (
	"database/sql"
	"fmt"
)

// migrations are applied in order; the database's user_version records how
// many have run. Append only.
var migrations = []string{
	// 1: sessions and their control events
	`CREATE TABLE sessions (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);
	CREATE TABLE control_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		state TEXT NOT NULL CHECK(state IN ('STOP', 'GO')),
		angle INTEGER NOT NULL CHECK(angle BETWEEN 0 AND 180),
		recorded_at DATETIME NOT NULL
	);
	CREATE INDEX idx_control_events_session_id ON control_events(session_id);`,
}

// SchemaVersion is the user_version of a fully migrated database.
var SchemaVersion = len(migrations)

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("schema version %d is newer than this build (%d)", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not take bind parameters
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
