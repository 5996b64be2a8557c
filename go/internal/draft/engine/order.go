// Package engine holds the pure draft sequencing logic: serpentine
// turn-order computation, state seeding and advancement, and event-log
// replay. Nothing in this package does IO or reads the wall clock; every
// caller (validator, admission pipeline, scheduler, reconstruction) shares
// this one implementation so they cannot drift out of sync.
package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// OnClockTeam returns the team entitled to the pick at (round, pickIndex)
// under serpentine order: odd rounds run forward through draftOrder, even
// rounds run reversed. Both round and pickIndex are 1-based.
func OnClockTeam(round, pickIndex int, draftOrder []uuid.UUID) (uuid.UUID, error) {
	n := len(draftOrder)
	if n == 0 {
		return uuid.Nil, fmt.Errorf("draft order is empty")
	}
	if round < 1 {
		return uuid.Nil, fmt.Errorf("round must be >= 1, got %d", round)
	}
	if pickIndex < 1 || pickIndex > n {
		return uuid.Nil, fmt.Errorf("pick index %d out of range [1, %d]", pickIndex, n)
	}

	if round%2 == 1 {
		return draftOrder[pickIndex-1], nil
	}
	return draftOrder[n-pickIndex], nil
}

// OverallPick returns the 1-based global sequence number of the slot at
// (round, pickIndex) for the given team count.
func OverallPick(round, pickIndex, teamCount int) int {
	return (round-1)*teamCount + pickIndex
}
