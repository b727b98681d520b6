package swtp

import "testing"

func TestSeqAddWraps(t *testing.T) {
	tests := []struct {
		start Seq
		delta int
		want  Seq
	}{
		{0, 1, 1},
		{seqModulo - 1, 1, 0},
		{10, -1, 9},
		{0, -1, seqModulo - 1},
		{100, seqModulo, 100},
	}

	for _, tt := range tests {
		if got := tt.start.Add(tt.delta); got != tt.want {
			t.Errorf("Seq(%d).Add(%d) = %d, want %d", tt.start, tt.delta, got, tt.want)
		}
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		from, to Seq
		want     int
	}{
		{0, 0, 0},
		{0, 1, 1},
		{seqModulo - 1, 0, 1},
		{5, 3, seqModulo - 2},
	}

	for _, tt := range tests {
		if got := distance(tt.from, tt.to); got != tt.want {
			t.Errorf("distance(%d, %d) = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestInWindow(t *testing.T) {
	tests := []struct {
		name   string
		seq    Seq
		start  Seq
		length int
		want   bool
	}{
		{"start of window", 5, 5, 4, true},
		{"end of window excluded", 9, 5, 4, false},
		{"middle of window", 7, 5, 4, true},
		{"zero length window contains nothing", 5, 5, 0, false},
		{"wraps around 2^15 boundary", 2, seqModulo - 2, 8, true},
		{"just outside wrapped window", 6, seqModulo - 2, 8, false},
		{"before start, no wrap", 4, 5, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inWindow(tt.seq, tt.start, tt.length); got != tt.want {
				t.Errorf("inWindow(%d, %d, %d) = %v, want %v", tt.seq, tt.start, tt.length, got, tt.want)
			}
		})
	}
}
