package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Interaction is one ledger row. The audit columns record the fold step
// that produced it: the damped delta actually applied and the bound and
// rank on each side.
type Interaction struct {
	ID           int64
	FriendID     int64
	Magnitude    float64
	AppliedDelta float64
	PrevBound    float64
	NewBound     float64
	PrevRank     int
	NewRank      int
	Reason       string
	OccurredAt   int64
}

// RecordInteraction rewrites the friend's state and appends the ledger
// row in one transaction, so a crash cannot separate the two. Sets the
// row's ID. An unset OccurredAt is stamped with the current time.
func (db *DB) RecordInteraction(friendID int64, lowerBound, fuzziness float64, rec *Interaction) error {
	now := time.Now().UnixMilli()
	if rec.OccurredAt == 0 {
		rec.OccurredAt = now
	}
	rec.FriendID = friendID

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}

	result, err := tx.Exec(`
		UPDATE friends SET lower_bound = ?, fuzziness = ?, updated_at = ?
		WHERE id = ?
	`, lowerBound, fuzziness, now, friendID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("record state: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		tx.Rollback()
		return fmt.Errorf("no friend with id %d", friendID)
	}

	result, err = tx.Exec(`
		INSERT INTO interactions (friend_id, magnitude, applied_delta,
			prev_bound, new_bound, prev_rank, new_rank, reason, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?)
	`, rec.FriendID, rec.Magnitude, rec.AppliedDelta,
		rec.PrevBound, rec.NewBound, rec.PrevRank, rec.NewRank,
		rec.Reason, rec.OccurredAt)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("record interaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}

	id, _ := result.LastInsertId()
	rec.ID = id
	return nil
}

// AppendInteraction inserts a bare ledger row without touching the friend
// state. Used when restoring a ledger that will be refolded afterwards.
func (db *DB) AppendInteraction(rec *Interaction) error {
	if rec.OccurredAt == 0 {
		rec.OccurredAt = time.Now().UnixMilli()
	}

	result, err := db.Exec(`
		INSERT INTO interactions (friend_id, magnitude, applied_delta,
			prev_bound, new_bound, prev_rank, new_rank, reason, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?)
	`, rec.FriendID, rec.Magnitude, rec.AppliedDelta,
		rec.PrevBound, rec.NewBound, rec.PrevRank, rec.NewRank,
		rec.Reason, rec.OccurredAt)
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}

	id, _ := result.LastInsertId()
	rec.ID = id
	return nil
}

// ListInteractions returns a friend's full ledger in fold order:
// occurred_at ascending, insertion order breaking ties.
func (db *DB) ListInteractions(friendID int64) ([]Interaction, error) {
	rows, err := db.Query(`
		SELECT id, friend_id, magnitude, applied_delta,
			prev_bound, new_bound, prev_rank, new_rank, reason, occurred_at
		FROM interactions WHERE friend_id = ?
		ORDER BY occurred_at ASC, id ASC
	`, friendID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

// RecentInteractions returns the newest ledger rows for a friend,
// newest first.
func (db *DB) RecentInteractions(friendID int64, limit int) ([]Interaction, error) {
	rows, err := db.Query(`
		SELECT id, friend_id, magnitude, applied_delta,
			prev_bound, new_bound, prev_rank, new_rank, reason, occurred_at
		FROM interactions WHERE friend_id = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, friendID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent interactions: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

// CountInteractions returns the ledger length for a friend.
func (db *DB) CountInteractions(friendID int64) (int, error) {
	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM interactions WHERE friend_id = ?", friendID,
	).Scan(&count)
	return count, err
}

// Activity is a ledger row joined with the name of the friend it belongs to.
type Activity struct {
	Interaction
	FriendName string
}

// RecentActivity returns the newest ledger rows across all friends,
// newest first.
func (db *DB) RecentActivity(limit int) ([]Activity, error) {
	rows, err := db.Query(`
		SELECT i.id, i.friend_id, i.magnitude, i.applied_delta,
			i.prev_bound, i.new_bound, i.prev_rank, i.new_rank,
			i.reason, i.occurred_at, f.name
		FROM interactions i
		JOIN friends f ON f.id = i.friend_id
		ORDER BY i.occurred_at DESC, i.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	defer rows.Close()

	var acts []Activity
	for rows.Next() {
		var act Activity
		var reason sql.NullString
		if err := rows.Scan(&act.ID, &act.FriendID, &act.Magnitude, &act.AppliedDelta,
			&act.PrevBound, &act.NewBound, &act.PrevRank, &act.NewRank,
			&reason, &act.OccurredAt, &act.FriendName); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		act.Reason = reason.String
		acts = append(acts, act)
	}
	return acts, rows.Err()
}

func scanInteractions(rows *sql.Rows) ([]Interaction, error) {
	var recs []Interaction
	for rows.Next() {
		var rec Interaction
		var reason sql.NullString
		if err := rows.Scan(&rec.ID, &rec.FriendID, &rec.Magnitude, &rec.AppliedDelta,
			&rec.PrevBound, &rec.NewBound, &rec.PrevRank, &rec.NewRank,
			&reason, &rec.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		rec.Reason = reason.String
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
