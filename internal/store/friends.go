package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tinware/rapport/internal/score"
)

// Friend is a tracked relationship row. LowerBound and Fuzziness mirror
// the latest fold over the interactions ledger; the ledger stays the
// source of truth.
type Friend struct {
	ID         int64
	Name       string
	LowerBound float64
	Fuzziness  float64
	CreatedAt  int64
	UpdatedAt  int64
}

// State returns the row's scored state as a core value.
func (f *Friend) State() score.State {
	return score.State{LowerBound: f.LowerBound, Fuzziness: f.Fuzziness}
}

// CreateFriend inserts a new friend at the given state. The name is
// unique; inserting a duplicate fails with the constraint error.
func (db *DB) CreateFriend(name string, lowerBound, fuzziness float64) (*Friend, error) {
	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		INSERT INTO friends (name, lower_bound, fuzziness, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, name, lowerBound, fuzziness, now, now)
	if err != nil {
		return nil, fmt.Errorf("create friend: %w", err)
	}

	id, _ := result.LastInsertId()
	return &Friend{
		ID:         id,
		Name:       name,
		LowerBound: lowerBound,
		Fuzziness:  fuzziness,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// GetFriend returns a friend by name, or nil if not found.
func (db *DB) GetFriend(name string) (*Friend, error) {
	var f Friend
	err := db.QueryRow(`
		SELECT id, name, lower_bound, fuzziness, created_at, updated_at
		FROM friends WHERE name = ?
	`, name).Scan(&f.ID, &f.Name, &f.LowerBound, &f.Fuzziness, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get friend: %w", err)
	}
	return &f, nil
}

// GetFriendByID returns a friend by its database ID, or nil if not found.
func (db *DB) GetFriendByID(id int64) (*Friend, error) {
	var f Friend
	err := db.QueryRow(`
		SELECT id, name, lower_bound, fuzziness, created_at, updated_at
		FROM friends WHERE id = ?
	`, id).Scan(&f.ID, &f.Name, &f.LowerBound, &f.Fuzziness, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get friend by id: %w", err)
	}
	return &f, nil
}

// UpdateFriendState rewrites a friend's stored state and updated_at.
func (db *DB) UpdateFriendState(id int64, lowerBound, fuzziness float64) error {
	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		UPDATE friends SET lower_bound = ?, fuzziness = ?, updated_at = ?
		WHERE id = ?
	`, lowerBound, fuzziness, now, id)
	if err != nil {
		return fmt.Errorf("update friend state: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("no friend with id %d", id)
	}
	return nil
}

// ListFriends returns all friends, closest first, name as tiebreak.
func (db *DB) ListFriends() ([]Friend, error) {
	rows, err := db.Query(`
		SELECT id, name, lower_bound, fuzziness, created_at, updated_at
		FROM friends
		ORDER BY lower_bound DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	return scanFriends(rows)
}

// DeleteFriend removes a friend. The ledger rows cascade.
func (db *DB) DeleteFriend(id int64) error {
	result, err := db.Exec("DELETE FROM friends WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete friend %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("no friend with id %d", id)
	}
	return nil
}

// CountFriends returns the number of tracked friends.
func (db *DB) CountFriends() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM friends").Scan(&count)
	return count, err
}

func scanFriends(rows *sql.Rows) ([]Friend, error) {
	var friends []Friend
	for rows.Next() {
		var f Friend
		if err := rows.Scan(&f.ID, &f.Name, &f.LowerBound, &f.Fuzziness,
			&f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}
