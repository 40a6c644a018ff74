// Package scoring derives a player's auction valuation from fixed attribute
// weights. The rounded score is the minimum bid accepted by the ledger.
package scoring

import "strings"

// Attributes are the fixed, scorable properties of a player.
type Attributes struct {
	Position     string // preferred playing position
	Skill        string // skill category
	BattingLevel string
	BowlingLevel string
	BowlingStyle string
	Wicketkeeper string
}

// Point tables. Keys are matched after normalization (see key).
var (
	PositionPoints = map[string]int{"opener": 100, "middle order": 75, "finisher": 100}
	SkillPoints    = map[string]int{"batsman": 100, "bowler": 100, "all rounder": 150}
	BattingPoints  = map[string]int{"beginner": 25, "intermediate": 50, "advanced": 75, "expert": 100}
	BowlingPoints  = map[string]int{"beginner": 25, "intermediate": 50, "advanced": 75, "expert": 100}
	StylePoints    = map[string]int{"fast": 75, "medium": 50, "spin": 75}
	KeeperPoints   = map[string]int{"yes": 50, "no": 0}
)

// RawPoints returns the unrounded weighted sum. Bowling level and style count
// for every player regardless of skill category.
func RawPoints(a Attributes) int {
	return PositionPoints[key(a.Position)] +
		SkillPoints[key(a.Skill)] +
		BattingPoints[key(a.BattingLevel)] +
		BowlingPoints[key(a.BowlingLevel)] +
		StylePoints[key(a.BowlingStyle)] +
		KeeperPoints[key(a.Wicketkeeper)]
}

// Score returns RawPoints rounded half-up to the nearest multiple of 100.
func Score(a Attributes) int {
	return roundHundred(RawPoints(a))
}

func roundHundred(points int) int {
	return (points + 50) / 100 * 100
}

// skillNames are the canonical spellings of the skill categories.
var skillNames = map[string]string{"batsman": "Batsman", "bowler": "Bowler", "all rounder": "All Rounder"}

// NormalizeSkill returns the canonical spelling of a known skill category,
// so "all-rounder" becomes "All Rounder". Unknown values are only trimmed.
func NormalizeSkill(v string) string {
	if name, ok := skillNames[key(v)]; ok {
		return name
	}
	return strings.TrimSpace(v)
}

// SkillKey returns the form skills are compared in.
func SkillKey(v string) string { return key(v) }

// SameSkill reports whether a and b name the same skill category.
func SameSkill(a, b string) bool { return key(a) == key(b) }

// key lowercases and collapses "All-Rounder" style spellings.
func key(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.ReplaceAll(v, "-", " ")
}
