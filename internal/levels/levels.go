// Package levels defines the static level table and pure derivation helpers
// used by both the API and the client engine. All functions are side-effect
// free and never fail: out-of-range input yields a fallback sentinel.
package levels

// Level is one tier in the progression table.
type Level struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Icon   string `json:"icon"`
	MinXP  int    `json:"min_xp"`
}

// MaxLevel is the terminal level. Progress beyond it is reported as 100%.
const MaxLevel = 7

// Fallback sentinels returned for levels outside the table.
const (
	UnknownName = "Unknown"
	UnknownIcon = "❔"
)

// Table is the ordered level table, ascending by MinXP.
var Table = []Level{
	{Number: 1, Name: "Newcomer", Icon: "🌙", MinXP: 0},
	{Number: 2, Name: "Regular", Icon: "🍸", MinXP: 100},
	{Number: 3, Name: "Explorer", Icon: "🧭", MinXP: 300},
	{Number: 4, Name: "Insider", Icon: "⭐", MinXP: 700},
	{Number: 5, Name: "VIP", Icon: "🥂", MinXP: 1500},
	{Number: 6, Name: "Icon", Icon: "🏆", MinXP: 3000},
	{Number: 7, Name: "Legend", Icon: "👑", MinXP: 6000},
}

// lookup returns the table entry for a level number, or nil if absent.
func lookup(level int) *Level {
	if level < 1 || level > len(Table) {
		return nil
	}
	return &Table[level-1]
}

// Name returns the display name for a level, or UnknownName for any level
// not present in the table.
func Name(level int) string {
	if l := lookup(level); l != nil {
		return l.Name
	}
	return UnknownName
}

// Icon returns the display icon for a level, or UnknownIcon for any level
// not present in the table.
func Icon(level int) string {
	if l := lookup(level); l != nil {
		return l.Icon
	}
	return UnknownIcon
}

// XPForNext returns the XP threshold of the next level, or 0 when the level
// is terminal or has no successor in the table.
func XPForNext(level int) int {
	if level >= MaxLevel {
		return 0
	}
	if next := lookup(level + 1); next != nil {
		return next.MinXP
	}
	return 0
}

// ProgressToNext returns the percentage progress from the current level floor
// toward the next level threshold, clamped to [0, 100]. At the terminal level
// it is always 100. XP below the level floor (stale data) clamps to 0.
func ProgressToNext(currentXP, currentLevel int) float64 {
	if currentLevel >= MaxLevel {
		return 100
	}
	cur := lookup(currentLevel)
	next := lookup(currentLevel + 1)
	if cur == nil || next == nil {
		return 0
	}
	span := next.MinXP - cur.MinXP
	if span <= 0 {
		return 0
	}
	pct := float64(currentXP-cur.MinXP) / float64(span) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// LevelForXP returns the largest level whose threshold the XP total meets.
// This is the authoritative rule the server applies after every award.
func LevelForXP(totalXP int) int {
	level := 1
	for _, l := range Table {
		if totalXP >= l.MinXP {
			level = l.Number
		}
	}
	return level
}
