package engine

import (
	"testing"

	"github.com/google/uuid"
)

func testOrder(n int) []uuid.UUID {
	order := make([]uuid.UUID, n)
	for i := range order {
		order[i] = uuid.New()
	}
	return order
}

func TestOnClockTeamSerpentine(t *testing.T) {
	// draftOrder = [A, B, C, D]
	order := testOrder(4)
	a, b, c, d := order[0], order[1], order[2], order[3]

	tests := []struct {
		name      string
		round     int
		pickIndex int
		want      uuid.UUID
	}{
		{"round 1 pick 1 is A", 1, 1, a},
		{"round 1 pick 2 is B", 1, 2, b},
		{"round 1 pick 4 is D", 1, 4, d},
		{"round 2 pick 1 is D", 2, 1, d},
		{"round 2 pick 2 is C", 2, 2, c},
		{"round 2 pick 4 is A", 2, 4, a},
		{"round 3 pick 1 is A again", 3, 1, a},
		{"round 3 pick 3 is C", 3, 3, c},
		{"round 4 pick 1 is D", 4, 1, d},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OnClockTeam(tt.round, tt.pickIndex, order)
			if err != nil {
				t.Fatalf("OnClockTeam(%d, %d) failed: %v", tt.round, tt.pickIndex, err)
			}
			if got != tt.want {
				t.Errorf("OnClockTeam(%d, %d) = %s, want %s", tt.round, tt.pickIndex, got, tt.want)
			}
		})
	}
}

func TestOnClockTeamEvenRoundsReverseOddRounds(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 12} {
		order := testOrder(n)
		for round := 1; round <= 4; round++ {
			for idx := 1; idx <= n; idx++ {
				got, err := OnClockTeam(round, idx, order)
				if err != nil {
					t.Fatalf("OnClockTeam(%d, %d) with %d teams failed: %v", round, idx, n, err)
				}
				var want uuid.UUID
				if round%2 == 1 {
					want = order[idx-1]
				} else {
					want = order[n-idx]
				}
				if got != want {
					t.Errorf("n=%d round=%d idx=%d: got %s, want %s", n, round, idx, got, want)
				}
			}
		}
	}
}

func TestOnClockTeamSingleTeamAlwaysForward(t *testing.T) {
	order := testOrder(1)
	for round := 1; round <= 5; round++ {
		got, err := OnClockTeam(round, 1, order)
		if err != nil {
			t.Fatalf("OnClockTeam(%d, 1) failed: %v", round, err)
		}
		if got != order[0] {
			t.Errorf("round %d: got %s, want the only team %s", round, got, order[0])
		}
	}
}

func TestOnClockTeamErrors(t *testing.T) {
	order := testOrder(4)

	tests := []struct {
		name      string
		round     int
		pickIndex int
		order     []uuid.UUID
	}{
		{"empty order", 1, 1, nil},
		{"round zero", 0, 1, order},
		{"pick index zero", 1, 0, order},
		{"pick index past team count", 1, 5, order},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OnClockTeam(tt.round, tt.pickIndex, tt.order); err == nil {
				t.Errorf("OnClockTeam(%d, %d) expected error, got none", tt.round, tt.pickIndex)
			}
		})
	}
}

func TestOverallPick(t *testing.T) {
	tests := []struct {
		round     int
		pickIndex int
		teamCount int
		want      int
	}{
		{1, 1, 4, 1},
		{1, 4, 4, 4},
		{2, 1, 4, 5},
		{2, 3, 4, 7},
		{3, 2, 12, 26},
	}

	for _, tt := range tests {
		if got := OverallPick(tt.round, tt.pickIndex, tt.teamCount); got != tt.want {
			t.Errorf("OverallPick(%d, %d, %d) = %d, want %d", tt.round, tt.pickIndex, tt.teamCount, got, tt.want)
		}
	}
}
