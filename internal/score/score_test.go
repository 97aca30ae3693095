package score

import (
	"errors"
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestInitial(t *testing.T) {
	s := Initial()
	if s.LowerBound != 0 {
		t.Errorf("LowerBound = %v, want 0", s.LowerBound)
	}
	if s.Fuzziness != InitialFuzziness {
		t.Errorf("Fuzziness = %v, want %v", s.Fuzziness, InitialFuzziness)
	}
}

func TestApplyNewRelationship(t *testing.T) {
	// At a zero bound damping is 1, so the full magnitude lands.
	s, err := Apply(Initial(), 0.5)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !approx(s.LowerBound, 0.5) {
		t.Errorf("LowerBound = %v, want 0.5", s.LowerBound)
	}
	if !approx(s.Fuzziness, InitialFuzziness*DecayRate) {
		t.Errorf("Fuzziness = %v, want %v", s.Fuzziness, InitialFuzziness*DecayRate)
	}
}

func TestApplyDampedAtHighBound(t *testing.T) {
	s, err := Apply(State{LowerBound: 10, Fuzziness: FuzzinessFloor}, 1.0)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	delta := s.LowerBound - 10
	if delta <= 0 {
		t.Errorf("delta = %v, want > 0", delta)
	}
	if delta >= 1 {
		t.Errorf("delta = %v, want < 1 (damped below the raw magnitude)", delta)
	}
}

func TestApplyFloorsAtZero(t *testing.T) {
	s, err := Apply(State{LowerBound: 0.2, Fuzziness: 0.2}, -5)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if s.LowerBound != 0 {
		t.Errorf("LowerBound = %v, want 0 (clamped)", s.LowerBound)
	}
	// Fuzziness still decays on a clamped interaction.
	if !approx(s.Fuzziness, 0.2*DecayRate) {
		t.Errorf("Fuzziness = %v, want %v", s.Fuzziness, 0.2*DecayRate)
	}
}

func TestApplyRejectsUninformativeMagnitudes(t *testing.T) {
	cases := []struct {
		name      string
		magnitude float64
	}{
		{"zero", 0},
		{"nan", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := State{LowerBound: 2, Fuzziness: 0.2}
			got, err := Apply(before, tc.magnitude)
			if !errors.Is(err, ErrInvalidInteraction) {
				t.Fatalf("err = %v, want ErrInvalidInteraction", err)
			}
			if got != (State{}) {
				t.Errorf("got = %+v, want zero state on error", got)
			}
			// The caller's state is untouched by a rejected interaction.
			if before.LowerBound != 2 || before.Fuzziness != 0.2 {
				t.Errorf("input state mutated: %+v", before)
			}
		})
	}
}

func TestApplyRejectsMalformedState(t *testing.T) {
	cases := []struct {
		name  string
		state State
	}{
		{"nan bound", State{LowerBound: math.NaN(), Fuzziness: 0.3}},
		{"infinite bound", State{LowerBound: math.Inf(1), Fuzziness: 0.3}},
		{"negative bound", State{LowerBound: -1, Fuzziness: 0.3}},
		{"nan fuzziness", State{LowerBound: 1, Fuzziness: math.NaN()}},
		{"negative fuzziness", State{LowerBound: 1, Fuzziness: -0.1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Apply(tc.state, 1.0)
			if !errors.Is(err, ErrMalformedState) {
				t.Errorf("err = %v, want ErrMalformedState", err)
			}
		})
	}
}

func TestFuzzinessNeverIncreases(t *testing.T) {
	magnitudes := []float64{3, -1.5, 0.2, 7, -4, 0.1, 2, -0.3, 5, -2, 1, 1, -1, 4}
	s := Initial()
	prev := s.Fuzziness

	for i, m := range magnitudes {
		next, err := Apply(s, m)
		if err != nil {
			t.Fatalf("Apply %d: %v", i, err)
		}
		if next.Fuzziness > prev {
			t.Errorf("step %d: Fuzziness rose from %v to %v", i, prev, next.Fuzziness)
		}
		if next.Fuzziness < FuzzinessFloor {
			t.Errorf("step %d: Fuzziness = %v, below floor %v", i, next.Fuzziness, FuzzinessFloor)
		}
		prev = next.Fuzziness
		s = next
	}

	// A long enough run pins fuzziness to the floor exactly.
	for i := 0; i < 100; i++ {
		s, _ = Apply(s, 1)
	}
	if s.Fuzziness != FuzzinessFloor {
		t.Errorf("Fuzziness after long run = %v, want floor %v", s.Fuzziness, FuzzinessFloor)
	}
}

func TestLowerBoundNeverNegative(t *testing.T) {
	magnitudes := []float64{-10, 2, -50, 0.1, -0.1, 30, -100, 1, -3, -3, -3, 8}
	s := Initial()
	for i, m := range magnitudes {
		next, err := Apply(s, m)
		if err != nil {
			t.Fatalf("Apply %d: %v", i, err)
		}
		if next.LowerBound < 0 {
			t.Errorf("step %d: LowerBound = %v, want >= 0", i, next.LowerBound)
		}
		s = next
	}
}

func TestDampingShrinksWithBound(t *testing.T) {
	// The same magnitude moves a higher bound by strictly less.
	bounds := []float64{0, 0.5, 1, 2, 5, 10, 50, 100}
	prevDelta := math.Inf(1)

	for _, b := range bounds {
		s, err := Apply(State{LowerBound: b, Fuzziness: 0.1}, 1.0)
		if err != nil {
			t.Fatalf("Apply at bound %v: %v", b, err)
		}
		delta := s.LowerBound - b
		if delta >= prevDelta {
			t.Errorf("bound %v: delta = %v, want < %v", b, delta, prevDelta)
		}
		prevDelta = delta
	}
}

func TestReplayEmptyLedger(t *testing.T) {
	s, err := Replay(nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if s != Initial() {
		t.Errorf("Replay(nil) = %+v, want initial state %+v", s, Initial())
	}
}

func TestReplayMatchesSequentialApplies(t *testing.T) {
	events := []Interaction{
		{Magnitude: 2, Reason: "helped me move"},
		{Magnitude: -0.5, Reason: "late again"},
		{Magnitude: 1.2, Reason: "remembered my birthday"},
		{Magnitude: 3, Reason: "road trip"},
	}

	replayed, err := Replay(events)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	manual := Initial()
	for i, ev := range events {
		manual, err = Apply(manual, ev.Magnitude)
		if err != nil {
			t.Fatalf("Apply %d: %v", i, err)
		}
	}

	if replayed != manual {
		t.Errorf("replayed = %+v, sequential = %+v", replayed, manual)
	}
}

func TestReplayDeterministic(t *testing.T) {
	events := []Interaction{
		{Magnitude: 1}, {Magnitude: -2}, {Magnitude: 4.5}, {Magnitude: 0.3},
	}
	a, err := Replay(events)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	b, err := Replay(events)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if a != b {
		t.Errorf("two replays disagree: %+v vs %+v", a, b)
	}
}

func TestReplayOrderMatters(t *testing.T) {
	// Damping depends on the running bound, so the fold is not commutative.
	forward := []Interaction{{Magnitude: 5}, {Magnitude: -3}}
	reversed := []Interaction{{Magnitude: -3}, {Magnitude: 5}}

	a, err := Replay(forward)
	if err != nil {
		t.Fatalf("Replay forward: %v", err)
	}
	b, err := Replay(reversed)
	if err != nil {
		t.Fatalf("Replay reversed: %v", err)
	}
	if a == b {
		t.Errorf("permuted ledger produced the same state %+v", a)
	}
}

func TestReplayReportsBadEvent(t *testing.T) {
	events := []Interaction{{Magnitude: 1}, {Magnitude: 0}, {Magnitude: 2}}
	_, err := Replay(events)
	if !errors.Is(err, ErrInvalidInteraction) {
		t.Fatalf("err = %v, want ErrInvalidInteraction", err)
	}
	if got := err.Error(); got != "event 1: invalid interaction magnitude: 0" {
		t.Errorf("err = %q, want the failing index named", got)
	}
}

func TestUpperBound(t *testing.T) {
	s := State{LowerBound: 2.5, Fuzziness: 0.15}
	if got := s.UpperBound(); !approx(got, 2.65) {
		t.Errorf("UpperBound = %v, want 2.65", got)
	}
}
