package eodata

import "math"

// MaxLevel is the level cap.
const MaxLevel = 250

// ExpTable maps level → total experience required to hold that level.
// The level-up loop advances while experience is strictly greater than the
// next level's threshold.
type ExpTable [MaxLevel + 2]int64

// NewExpTable builds the cubic experience curve.
func NewExpTable() *ExpTable {
	var t ExpTable
	for level := 1; level <= MaxLevel+1; level++ {
		t[level] = int64(math.Round(math.Pow(float64(level), 3) * 133.1))
	}
	return &t
}

// Threshold returns the experience required for a level. Levels past the cap
// are unreachable.
func (t *ExpTable) Threshold(level int) int64 {
	if level < 0 {
		return 0
	}
	if level > MaxLevel+1 {
		return math.MaxInt64
	}
	return t[level]
}

// LevelFor returns the level a given total experience grants.
func (t *ExpTable) LevelFor(exp int64) int {
	level := 0
	for level < MaxLevel && exp >= t[level+1] {
		level++
	}
	return level
}
