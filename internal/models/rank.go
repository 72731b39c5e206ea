package models

import (
	"fmt"
	"strconv"
	"strings"
)

// UnitRankings is the rank ladder for units. The index is the rank value.
var UnitRankings = []string{"Unassigned", "Crew", "Squad", "Regiment", "Faction"}

// CharacterRankings is the rank ladder for characters. The index is the rank value.
var CharacterRankings = []string{"Unassigned", "Known", "Novice", "Apprentice", "Adept", "Expert", "Legend", "Myth"}

// Ladder returns the rank ladder for kind.
func Ladder(kind Kind) []string {
	if kind == KindUnit {
		return UnitRankings
	}
	return CharacterRankings
}

// RankName returns the ladder name of rank, or the bare number when it is off the ladder.
func RankName(ladder []string, rank int) string {
	if rank >= 0 && rank < len(ladder) {
		return ladder[rank]
	}
	return strconv.Itoa(rank)
}

// RankIndex parses s as a ladder name (case-insensitive) or a non-negative index into ladder.
func RankIndex(ladder []string, s string) (int, error) {
	s = strings.TrimSpace(s)
	for i, name := range ladder {
		if strings.EqualFold(name, s) {
			return i, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unknown rank %q", s)
	}
	if n < 0 || n >= len(ladder) {
		return 0, fmt.Errorf("rank %d out of range 0..%d", n, len(ladder)-1)
	}
	return n, nil
}

// CapacityPolicy maps a unit rank to the number of members the unit may hold.
type CapacityPolicy []int

// DefaultCapacity is the member cap per unit rank: Unassigned, Crew, Squad, Regiment, Faction.
var DefaultCapacity = CapacityPolicy{1, 2, 8, 32, 128}

// Capacity returns the cap for rank. Ranks past the end of the policy use its last value.
func (p CapacityPolicy) Capacity(rank int) int {
	if len(p) == 0 {
		return 0
	}
	if rank < 0 {
		rank = 0
	}
	if rank >= len(p) {
		rank = len(p) - 1
	}
	return p[rank]
}

// Validate checks the policy is non-empty, non-negative and monotone non-decreasing.
func (p CapacityPolicy) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("capacity policy must not be empty")
	}
	for i, c := range p {
		if c < 0 {
			return fmt.Errorf("capacity for rank %d must be >= 0", i)
		}
		if i > 0 && c < p[i-1] {
			return fmt.Errorf("capacity for rank %d (%d) is smaller than rank %d (%d)", i, c, i-1, p[i-1])
		}
	}
	return nil
}
