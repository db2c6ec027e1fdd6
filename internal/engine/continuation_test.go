package engine

import "testing"

func TestDecide(t *testing.T) {
	tests := []struct {
		name        string
		index       int
		puzzleCount int
		want        Decision
	}{
		{"first of many", 0, 3, DecisionContinue},
		{"last puzzle pending", 2, 3, DecisionContinue},
		{"just past the end", 3, 3, DecisionFinalize},
		{"far past the end", 7, 3, DecisionFinalize},
		{"empty game", 0, 0, DecisionFinalize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.index, tt.puzzleCount); got != tt.want {
				t.Errorf("Decide(%d, %d) = %v, want %v", tt.index, tt.puzzleCount, got, tt.want)
			}
		})
	}
}
