package tracker

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"

	"github.com/tinware/rapport/internal/logging"
	"github.com/tinware/rapport/internal/score"
	"github.com/tinware/rapport/internal/store"
)

var (
	// ErrUnknownFriend marks operations against a name that was never
	// recorded. Replay is the exception: an untracked name folds to the
	// initial state instead of failing.
	ErrUnknownFriend = errors.New("unknown friend")

	// ErrAlreadyTracked rejects explicit creation of a name that exists.
	ErrAlreadyTracked = errors.New("friend already tracked")
)

// DefaultHistoryLimit caps history reads when the caller does not ask
// for a length.
const DefaultHistoryLimit = 5

// Tracker coordinates the scoring core and the store. The mutex
// serializes read-modify-write cycles so concurrent submissions fold
// in one deterministic order per friend.
type Tracker struct {
	db  *store.DB
	mu  sync.Mutex
	log *charmlog.Logger
}

// New returns a Tracker over an open store.
func New(db *store.DB) *Tracker {
	return &Tracker{db: db, log: logging.WithPrefix("tracker")}
}

// Outcome reports one recorded interaction: the appended ledger row and
// the state on each side of the fold step.
type Outcome struct {
	Friend  *store.Friend
	Record  *store.Interaction
	Prev    score.State
	Next    score.State
	Created bool
}

// RankChanged reports whether the fold step crossed a whole level.
func (o *Outcome) RankChanged() bool {
	return o.Record.NewRank != o.Record.PrevRank
}

// Record folds one interaction into a friend's state and appends it to
// the ledger. Unknown names are created at the initial state first, per
// the implicit-creation rule. An invalid magnitude mutates nothing, not
// even for a name that would have been created.
func (t *Tracker) Record(name string, magnitude float64, reason string) (*Outcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("friend name is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	friend, err := t.db.GetFriend(name)
	if err != nil {
		return nil, err
	}

	prev := score.Initial()
	if friend != nil {
		prev = friend.State()
	}

	next, err := score.Apply(prev, magnitude)
	if err != nil {
		return nil, err
	}

	created := false
	if friend == nil {
		friend, err = t.db.CreateFriend(name, prev.LowerBound, prev.Fuzziness)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		created = true
	}

	rec := &store.Interaction{
		Magnitude:    magnitude,
		AppliedDelta: next.LowerBound - prev.LowerBound,
		PrevBound:    prev.LowerBound,
		NewBound:     next.LowerBound,
		PrevRank:     prev.Rank(),
		NewRank:      next.Rank(),
		Reason:       reason,
	}
	if err := t.db.RecordInteraction(friend.ID, next.LowerBound, next.Fuzziness, rec); err != nil {
		return nil, err
	}

	friend.LowerBound = next.LowerBound
	friend.Fuzziness = next.Fuzziness

	t.log.Debug("recorded interaction",
		"friend", name, "magnitude", magnitude,
		"bound", next.LowerBound, "fuzziness", next.Fuzziness)

	return &Outcome{Friend: friend, Record: rec, Prev: prev, Next: next, Created: created}, nil
}

// Create adds a friend at the initial state without an interaction.
func (t *Tracker) Create(name string) (*store.Friend, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("friend name is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	existing, err := t.db.GetFriend(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyTracked, name)
	}

	init := score.Initial()
	friend, err := t.db.CreateFriend(name, init.LowerBound, init.Fuzziness)
	if err != nil {
		return nil, err
	}

	t.log.Debug("created friend", "friend", name)
	return friend, nil
}

// Get returns the tracked row for a name.
func (t *Tracker) Get(name string) (*store.Friend, error) {
	friend, err := t.db.GetFriend(name)
	if err != nil {
		return nil, err
	}
	if friend == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFriend, name)
	}
	return friend, nil
}

// List returns all tracked friends, closest first.
func (t *Tracker) List() ([]store.Friend, error) {
	return t.db.ListFriends()
}

// Remove deletes a friend and its ledger.
func (t *Tracker) Remove(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	friend, err := t.db.GetFriend(name)
	if err != nil {
		return err
	}
	if friend == nil {
		return fmt.Errorf("%w: %s", ErrUnknownFriend, name)
	}
	if err := t.db.DeleteFriend(friend.ID); err != nil {
		return err
	}

	t.log.Debug("removed friend", "friend", name)
	return nil
}

// History returns the newest ledger rows for a friend, newest first.
func (t *Tracker) History(name string, limit int) ([]store.Interaction, error) {
	friend, err := t.Get(name)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return t.db.RecentInteractions(friend.ID, limit)
}

// Count returns the number of tracked friends.
func (t *Tracker) Count() (int, error) {
	return t.db.CountFriends()
}
