package score

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestVisualizeGeometry(t *testing.T) {
	cases := []struct {
		name      string
		state     State
		wantSolid int
		wantFuzzy int
	}{
		{"fresh", Initial(), 0, 1},
		{"midscale", State{LowerBound: 5, Fuzziness: 0.3}, 20, 1},
		{"wide band", State{LowerBound: 2, Fuzziness: 2}, 8, 8},
		{"at ceiling", State{LowerBound: 10, Fuzziness: 0.05}, 40, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Visualize(tc.state)
			if b.Solid != tc.wantSolid {
				t.Errorf("Solid = %d, want %d", b.Solid, tc.wantSolid)
			}
			if b.Fuzzy != tc.wantFuzzy {
				t.Errorf("Fuzzy = %d, want %d", b.Fuzzy, tc.wantFuzzy)
			}
			if b.Width != BarWidth {
				t.Errorf("Width = %d, want %d", b.Width, BarWidth)
			}
		})
	}
}

func TestVisualizeClampsToTrack(t *testing.T) {
	// States past the display ceiling must not widen the bar.
	states := []State{
		{LowerBound: 12, Fuzziness: 3},
		{LowerBound: 9.9, Fuzziness: 3},
		{LowerBound: 100, Fuzziness: 0.05},
	}

	for _, s := range states {
		b := Visualize(s)
		if b.Solid+b.Fuzzy > b.Width {
			t.Errorf("state %+v: solid %d + fuzzy %d exceeds width %d", s, b.Solid, b.Fuzzy, b.Width)
		}
		if got := utf8.RuneCountInString(b.Render()); got != BarWidth {
			t.Errorf("state %+v: rendered %d cells, want %d", s, got, BarWidth)
		}
	}
}

func TestVisualizeDeterministic(t *testing.T) {
	s := State{LowerBound: 3.33, Fuzziness: 0.21}
	if Visualize(s) != Visualize(s) {
		t.Error("same state produced different bars")
	}
	if Chart("Dana", s) != Chart("Dana", s) {
		t.Error("same state produced different charts")
	}
}

func TestRenderShape(t *testing.T) {
	b := Bar{Solid: 20, Fuzzy: 1, Width: BarWidth}
	r := b.Render()

	if got := utf8.RuneCountInString(r); got != BarWidth {
		t.Fatalf("rendered %d cells, want %d", got, BarWidth)
	}
	if !strings.HasPrefix(r, strings.Repeat("█", 20)+"░") {
		t.Errorf("render = %q, want 20 solid cells then one fuzzy cell", r)
	}
}

func TestChartContents(t *testing.T) {
	s := State{LowerBound: 5, Fuzziness: 0.2}
	chart := Chart("Morgan", s)

	lines := strings.Split(chart, "\n")
	if len(lines) != 6 {
		t.Fatalf("chart has %d lines, want 6", len(lines))
	}
	if lines[0] != "Friendship with Morgan:" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "0") || !strings.HasSuffix(lines[2], "10") {
		t.Errorf("axis = %q, want 0..10 endpoints", lines[2])
	}
	if lines[4] != "Lower bound: 5.00  |  Potential upper bound: 5.20" {
		t.Errorf("caption = %q", lines[4])
	}
	if utf8.RuneCountInString(lines[5]) != BarWidth {
		t.Errorf("ruler is %d cells, want %d", utf8.RuneCountInString(lines[5]), BarWidth)
	}
}
