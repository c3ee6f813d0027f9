// Package jlpt models the JLPT difficulty grades and the policy used to
// resolve disagreements between sources about which grade a word belongs to.
package jlpt

import (
	"fmt"
	"strings"
)

// Level is a JLPT grade. Lower numeric value means harder: N1 < N2 < ... < N5.
// Common is a level-less bucket for vocabulary that is frequent in the
// dictionary but not uniquely tagged to one grade.
type Level int

const (
	Common Level = 0
	N1     Level = 1
	N2     Level = 2
	N3     Level = 3
	N4     Level = 4
	N5     Level = 5
)

// Graded lists the five real grades, hardest first. Common is excluded.
var Graded = []Level{N1, N2, N3, N4, N5}

// String returns the canonical tag, e.g. "N3" or "common".
func (l Level) String() string {
	if l == Common {
		return "common"
	}
	return fmt.Sprintf("N%d", int(l))
}

// Valid reports whether l is one of the six known buckets.
func (l Level) Valid() bool {
	return l >= Common && l <= N5
}

// HarderThan reports whether l is a strictly harder grade than other.
// Common is never harder than a real grade.
func (l Level) HarderThan(other Level) bool {
	if l == Common {
		return false
	}
	if other == Common {
		return true
	}
	return l < other
}

// Parse accepts "N5", "n5", "jlpt-n5" and "common".
func Parse(s string) (Level, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	t = strings.TrimPrefix(t, "jlpt-")
	switch t {
	case "common":
		return Common, nil
	case "n1":
		return N1, nil
	case "n2":
		return N2, nil
	case "n3":
		return N3, nil
	case "n4":
		return N4, nil
	case "n5":
		return N5, nil
	}
	return Common, fmt.Errorf("jlpt: unknown level %q", s)
}

// Policy decides which grade wins when one vocabulary item is claimed by
// candidates from several grades. The upstream tag source is not
// authoritative and has been observed to disagree with itself, so the
// direction is configurable rather than hard-coded.
type Policy int

const (
	// PolicyHardest keeps the hardest grade: appearing in an advanced
	// level's list implies the word is at least that advanced.
	PolicyHardest Policy = iota
	// PolicyEasiest keeps the easiest grade, matching the placement rule
	// "start with N1 and move down so N5 has priority".
	PolicyEasiest
)

// ParsePolicy accepts "hardest" or "easiest".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hardest":
		return PolicyHardest, nil
	case "easiest":
		return PolicyEasiest, nil
	}
	return PolicyHardest, fmt.Errorf("jlpt: unknown level policy %q", s)
}

// Pick resolves a non-empty set of grades to the single winner under p.
// The result depends only on the set membership, never on order.
func (p Policy) Pick(levels []Level) Level {
	if len(levels) == 0 {
		return Common
	}
	winner := levels[0]
	for _, l := range levels[1:] {
		switch p {
		case PolicyEasiest:
			if winner.HarderThan(l) {
				winner = l
			}
		default:
			if l.HarderThan(winner) {
				winner = l
			}
		}
	}
	return winner
}
