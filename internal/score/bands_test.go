package score

import "testing"

func TestStatusBands(t *testing.T) {
	cases := []struct {
		bound float64
		want  string
	}{
		{0, "Acquaintance"},
		{0.99, "Acquaintance"},
		{1.0, "Casual Friend"}, // boundary values land in the higher band
		{1.5, "Casual Friend"},
		{2.0, "Friend"},
		{3.7, "Good Friend"},
		{4.0, "Close Friend"},
		{5.0, "Best Friend"},
		{6.2, "Cherished Friend"},
		{7.0, "Lifelong Friend"},
		{8.9, "Soul Friend"},
		{9.0, "Legendary Friend"},
		{10.0, "Transcendent Friend Level 10"},
		{12.7, "Transcendent Friend Level 12"},
	}

	for _, tc := range cases {
		s := State{LowerBound: tc.bound, Fuzziness: 0.1}
		if got := s.Status(); got != tc.want {
			t.Errorf("Status(%v) = %q, want %q", tc.bound, got, tc.want)
		}
	}
}

func TestVolatilityBands(t *testing.T) {
	cases := []struct {
		fuzziness float64
		want      string
	}{
		{0.30, "volatile"},
		{0.25, "volatile"}, // boundary values land in the higher band
		{0.24, "open"},
		{0.15, "open"},
		{0.14, "settling"},
		{0.08, "settling"},
		{0.079, "settled"},
		{0.05, "settled"},
	}

	for _, tc := range cases {
		s := State{LowerBound: 1, Fuzziness: tc.fuzziness}
		if got := s.Volatility(); got != tc.want {
			t.Errorf("Volatility(%v) = %q, want %q", tc.fuzziness, got, tc.want)
		}
	}
}

func TestDescribeIsTotal(t *testing.T) {
	states := []State{
		Initial(),
		{LowerBound: 0, Fuzziness: FuzzinessFloor},
		{LowerBound: 4.5, Fuzziness: 0.12},
		{LowerBound: 99, Fuzziness: 0.05},
	}

	for _, s := range states {
		d := Describe(s)
		if d.Status == "" {
			t.Errorf("Describe(%+v).Status is empty", s)
		}
		if d.Volatility == "" {
			t.Errorf("Describe(%+v).Volatility is empty", s)
		}
		if d.Rank != s.Rank() {
			t.Errorf("Describe(%+v).Rank = %d, want %d", s, d.Rank, s.Rank())
		}
	}
}

func TestRank(t *testing.T) {
	cases := []struct {
		bound float64
		want  int
	}{
		{0, 0},
		{0.99, 0},
		{1.0, 1},
		{2.9999, 2},
		{10.5, 10},
	}
	for _, tc := range cases {
		s := State{LowerBound: tc.bound, Fuzziness: 0.1}
		if got := s.Rank(); got != tc.want {
			t.Errorf("Rank(%v) = %d, want %d", tc.bound, got, tc.want)
		}
	}
}

func TestDisplay(t *testing.T) {
	fresh := Initial()
	if got := fresh.Display(); got != "Acquaintance (~0.30 potential)" {
		t.Errorf("Display = %q, want the acquaintance potential form", got)
	}

	friend := State{LowerBound: 2.31, Fuzziness: 0.14}
	if got := friend.Display(); got != "Friend (2.31-2.45)" {
		t.Errorf("Display = %q, want \"Friend (2.31-2.45)\"", got)
	}
}
