package tracker

import (
	"fmt"
	"time"

	"github.com/tinware/rapport/internal/score"
)

// Drift compares a friend's stored state against a fresh fold of its
// ledger. The fold is deterministic, so the two agree bit for bit
// unless the stored state was tampered with or the model constants
// changed underneath it.
type Drift struct {
	Name     string
	Stored   score.State
	Replayed score.State
}

// Clean reports whether stored and replayed states agree exactly.
func (d Drift) Clean() bool {
	return d.Stored == d.Replayed
}

// Replay folds a friend's stored ledger back into a state. An untracked
// name or an empty ledger folds to the initial state: absence of
// evidence is not an error.
func (t *Tracker) Replay(name string) (score.State, error) {
	friend, err := t.db.GetFriend(name)
	if err != nil {
		return score.State{}, err
	}
	if friend == nil {
		return score.Initial(), nil
	}
	return t.replayLedger(friend.ID)
}

// Verify replays a friend's ledger and reports any drift from the
// stored state. The mutex keeps the row and ledger reads consistent
// with concurrent writers.
func (t *Tracker) Verify(name string) (*Drift, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	friend, err := t.db.GetFriend(name)
	if err != nil {
		return nil, err
	}
	if friend == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFriend, name)
	}

	replayed, err := t.replayLedger(friend.ID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", name, err)
	}
	return &Drift{Name: name, Stored: friend.State(), Replayed: replayed}, nil
}

// VerifyAll checks every tracked friend and returns one drift report
// per friend, in listing order.
func (t *Tracker) VerifyAll() ([]Drift, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	friends, err := t.db.ListFriends()
	if err != nil {
		return nil, err
	}

	drifts := make([]Drift, 0, len(friends))
	for _, f := range friends {
		replayed, err := t.replayLedger(f.ID)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", f.Name, err)
		}
		drifts = append(drifts, Drift{Name: f.Name, Stored: f.State(), Replayed: replayed})
	}
	return drifts, nil
}

// Rebuild refolds a friend's ledger, persists the result, and returns
// the drift it corrected.
func (t *Tracker) Rebuild(name string) (*Drift, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	friend, err := t.db.GetFriend(name)
	if err != nil {
		return nil, err
	}
	if friend == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFriend, name)
	}

	replayed, err := t.replayLedger(friend.ID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", name, err)
	}

	drift := &Drift{Name: name, Stored: friend.State(), Replayed: replayed}
	if err := t.db.UpdateFriendState(friend.ID, replayed.LowerBound, replayed.Fuzziness); err != nil {
		return nil, err
	}

	if !drift.Clean() {
		t.log.Warn("rebuild corrected drift",
			"friend", name,
			"stored_bound", drift.Stored.LowerBound,
			"replayed_bound", drift.Replayed.LowerBound)
	}
	return drift, nil
}

func (t *Tracker) replayLedger(friendID int64) (score.State, error) {
	rows, err := t.db.ListInteractions(friendID)
	if err != nil {
		return score.State{}, err
	}

	events := make([]score.Interaction, len(rows))
	for i, r := range rows {
		events[i] = score.Interaction{
			Magnitude:  r.Magnitude,
			Reason:     r.Reason,
			OccurredAt: time.UnixMilli(r.OccurredAt),
		}
	}
	return score.Replay(events)
}
