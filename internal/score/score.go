package score

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Model constants. They are part of the scoring definition: replaying the
// same ledger under different constants produces different states, so
// changing them invalidates every stored score until a rebuild.
const (
	// InitialFuzziness is the uncertainty band of a relationship with no
	// recorded interactions.
	InitialFuzziness = 0.30

	// FuzzinessFloor is the narrowest the band ever gets. Uncertainty
	// shrinks with evidence but never reaches zero.
	FuzzinessFloor = 0.05

	// DecayRate multiplies fuzziness on every applied interaction.
	DecayRate = 0.95
)

var (
	// ErrInvalidInteraction rejects magnitudes that carry no information:
	// zero, NaN, or infinite.
	ErrInvalidInteraction = errors.New("invalid interaction magnitude")

	// ErrMalformedState marks a state with NaN, infinite, or negative
	// fields. States produced by Apply never look like this.
	ErrMalformedState = errors.New("malformed state")
)

// State is the scored position of one relationship: the confirmed level
// plus the width of the uncertainty band above it.
type State struct {
	LowerBound float64
	Fuzziness  float64
}

// Interaction is one ledger entry: a signed magnitude with optional context.
// Only the magnitude feeds the fold; reason and time are for the record.
type Interaction struct {
	Magnitude  float64
	Reason     string
	OccurredAt time.Time
}

// Initial returns the state of a relationship before any interaction:
// nothing confirmed, full starting uncertainty.
func Initial() State {
	return State{LowerBound: 0, Fuzziness: InitialFuzziness}
}

// UpperBound returns the optimistic estimate: confirmed level plus the
// full uncertainty band.
func (s State) UpperBound() float64 {
	return s.LowerBound + s.Fuzziness
}

// Validate reports whether both fields are finite and non-negative.
func (s State) Validate() error {
	if math.IsNaN(s.LowerBound) || math.IsInf(s.LowerBound, 0) ||
		math.IsNaN(s.Fuzziness) || math.IsInf(s.Fuzziness, 0) {
		return fmt.Errorf("%w: non-finite field", ErrMalformedState)
	}
	if s.LowerBound < 0 || s.Fuzziness < 0 {
		return fmt.Errorf("%w: negative field", ErrMalformedState)
	}
	return nil
}

// Apply folds one interaction into a state and returns the successor.
// The confirmed level moves by the magnitude scaled by a logarithmic
// damping factor, so established relationships shift slowly in either
// direction; fuzziness decays toward its floor regardless of sign.
// The input state is never mutated. On error the input is unusable as
// a successor and no partial result is returned.
func Apply(s State, magnitude float64) (State, error) {
	if magnitude == 0 || math.IsNaN(magnitude) || math.IsInf(magnitude, 0) {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidInteraction, magnitude)
	}
	if err := s.Validate(); err != nil {
		return State{}, err
	}

	// Damping is 1 at a zero bound and shrinks as the bound grows.
	// Log1p keeps the argument valid for every non-negative bound.
	d := 1 / (1 + math.Log1p(s.LowerBound))

	return State{
		LowerBound: math.Max(0, s.LowerBound+magnitude*d),
		Fuzziness:  math.Max(FuzzinessFloor, s.Fuzziness*DecayRate),
	}, nil
}

// Replay folds an ordered interaction sequence into a state, starting
// from Initial. An empty sequence is valid and yields the initial state:
// a relationship nobody has recorded against is simply unconfirmed.
// The fold is deterministic, so two replays of the same sequence agree
// exactly.
func Replay(events []Interaction) (State, error) {
	s := Initial()
	for i, ev := range events {
		next, err := Apply(s, ev.Magnitude)
		if err != nil {
			return State{}, fmt.Errorf("event %d: %w", i, err)
		}
		s = next
	}
	return s, nil
}
