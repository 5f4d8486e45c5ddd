package trigger

import (
	"testing"
	"time"
)

func TestEqual(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs value", nil, 0, false},
		{"same ints", 5, 5, true},
		{"int vs int64", 5, int64(5), true},
		{"int vs float", 5, 5.0, true},
		{"uint vs int", uint64(7), 7, true},
		{"different numbers", 5, 6, false},
		{"number vs string", 5, "5", false},
		{"strings", "a", "a", true},
		{"bools", true, true, true},
		{"bool vs int", true, 1, false},
		{"times equal", now, now.UTC(), true},
		{"bytes", []byte("x"), []byte("x"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	earlier := time.Now()
	later := earlier.Add(time.Hour)

	tests := []struct {
		name    string
		a, b    any
		want    int
		ordered bool
	}{
		{"int less", 1, 2, -1, true},
		{"mixed numeric", int64(3), 2.5, 1, true},
		{"equal numeric", 2, 2.0, 0, true},
		{"strings", "a", "b", -1, true},
		{"times", earlier, later, -1, true},
		{"number vs string unordered", 1, "1", 0, false},
		{"bools unordered", true, false, 0, false},
		{"nils unordered", nil, nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ordered := Compare(tt.a, tt.b)
			if ordered != tt.ordered {
				t.Fatalf("Compare(%v, %v) ordered = %v, want %v", tt.a, tt.b, ordered, tt.ordered)
			}
			if ordered && sign(got) != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want sign %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
