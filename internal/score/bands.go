package score

import (
	"fmt"
	"math"
)

// statusTerms names ranks 0 through 9. Ranks past the table render as
// transcendent levels.
var statusTerms = [...]string{
	"Acquaintance",
	"Casual Friend",
	"Friend",
	"Good Friend",
	"Close Friend",
	"Best Friend",
	"Cherished Friend",
	"Lifelong Friend",
	"Soul Friend",
	"Legendary Friend",
}

// Volatility thresholds, scanned top down. A value sitting exactly on a
// threshold lands in the higher band.
const (
	volatileAt = 0.25
	openAt     = 0.15
	settlingAt = 0.08
)

// Description is the qualitative reading of a state: the named status
// band for the confirmed level and the volatility band for the remaining
// uncertainty.
type Description struct {
	Rank       int
	Status     string
	Volatility string
}

// Describe classifies a state into its bands. Total: every valid state
// lands in exactly one status band and one volatility band.
func Describe(s State) Description {
	return Description{
		Rank:       s.Rank(),
		Status:     s.Status(),
		Volatility: s.Volatility(),
	}
}

// Rank is the whole-number friendship level: the floor of the confirmed
// bound.
func (s State) Rank() int {
	return int(math.Floor(s.LowerBound))
}

// Status names the band for the confirmed level. Thresholds are inclusive
// lower edges: a bound of exactly 1.0 already reads Casual Friend.
func (s State) Status() string {
	r := s.Rank()
	if r < 0 {
		r = 0
	}
	if r < len(statusTerms) {
		return statusTerms[r]
	}
	return fmt.Sprintf("Transcendent Friend Level %d", r)
}

// Volatility names the width of the uncertainty band: a fresh
// relationship reads volatile, a long-evidenced one settled.
func (s State) Volatility() string {
	switch {
	case s.Fuzziness >= volatileAt:
		return "volatile"
	case s.Fuzziness >= openAt:
		return "open"
	case s.Fuzziness >= settlingAt:
		return "settling"
	default:
		return "settled"
	}
}

// Display renders the one-line human reading of a state. Rank zero shows
// only the potential, everything else the band with both bounds.
func (s State) Display() string {
	if s.Rank() <= 0 {
		return fmt.Sprintf("Acquaintance (~%.2f potential)", s.UpperBound())
	}
	return fmt.Sprintf("%s (%.2f-%.2f)", s.Status(), s.LowerBound, s.UpperBound())
}
