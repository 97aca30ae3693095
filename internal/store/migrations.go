package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "friends: tracked relationships and their scored state",
		SQL: `
CREATE TABLE friends (
    id           INTEGER PRIMARY KEY,
    name         TEXT NOT NULL UNIQUE,

    -- Scored state, always reproducible from the ledger
    lower_bound  REAL NOT NULL DEFAULT 0 CHECK (lower_bound >= 0),
    fuzziness    REAL NOT NULL CHECK (fuzziness >= 0),

    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);

CREATE INDEX idx_friends_bound ON friends(lower_bound DESC);
`,
	},
	{
		Version:     2,
		Description: "interactions: append-only ledger with per-step audit trail",
		SQL: `
CREATE TABLE interactions (
    id            INTEGER PRIMARY KEY,
    friend_id     INTEGER NOT NULL,

    -- The submitted magnitude and the damped delta actually applied
    magnitude     REAL NOT NULL CHECK (magnitude <> 0),
    applied_delta REAL NOT NULL,

    -- State on each side of the fold step
    prev_bound    REAL NOT NULL,
    new_bound     REAL NOT NULL,
    prev_rank     INTEGER NOT NULL,
    new_rank      INTEGER NOT NULL,

    reason        TEXT,
    occurred_at   INTEGER NOT NULL,

    FOREIGN KEY (friend_id) REFERENCES friends(id) ON DELETE CASCADE
);

CREATE INDEX idx_interactions_friend ON interactions(friend_id, occurred_at);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
