package score

import (
	"fmt"
	"strings"
)

// Chart geometry. Bounds map onto a fixed-width track against a fixed
// display ceiling; states past the ceiling clamp to the track edge
// instead of widening the chart.
const (
	BarWidth   = 40
	DisplayMax = 10
)

// Bar is the render plan for one state: solid cells for the confirmed
// bound, fuzzy cells for the span up to the optimistic estimate.
type Bar struct {
	Solid int
	Fuzzy int
	Width int
}

// Visualize computes the bar geometry for a state. Deterministic: the
// same state always yields the same bar, and the bar never exceeds the
// track width.
func Visualize(s State) Bar {
	solid := int(s.LowerBound / DisplayMax * BarWidth)
	fuzzy := int((s.UpperBound() - s.LowerBound) / DisplayMax * BarWidth)
	if solid > BarWidth {
		solid = BarWidth
	}
	if fuzzy < 0 {
		fuzzy = 0
	}
	if solid+fuzzy > BarWidth {
		fuzzy = BarWidth - solid
	}
	return Bar{Solid: solid, Fuzzy: fuzzy, Width: BarWidth}
}

// Render draws the bar: solid blocks, then shaded blocks, then padding
// out to the track width.
func (b Bar) Render() string {
	return strings.Repeat("█", b.Solid) +
		strings.Repeat("░", b.Fuzzy) +
		strings.Repeat(" ", b.Width-b.Solid-b.Fuzzy)
}

// Chart renders the full ASCII chart for a named relationship: header,
// display line, axis, bar, bound caption, and level ruler.
func Chart(name string, s State) string {
	lines := []string{
		fmt.Sprintf("Friendship with %s:", name),
		s.Display(),
		"0" + strings.Repeat(" ", BarWidth-2) + "10",
		Visualize(s).Render(),
		fmt.Sprintf("Lower bound: %.2f  |  Potential upper bound: %.2f", s.LowerBound, s.UpperBound()),
		ruler(),
	}
	return strings.Join(lines, "\n")
}

// ruler draws a tick at each whole level across the track.
func ruler() string {
	var b strings.Builder
	step := BarWidth / DisplayMax
	for i := 0; i < DisplayMax; i++ {
		b.WriteString("|")
		b.WriteString(strings.Repeat(" ", step-1))
	}
	return b.String()
}
