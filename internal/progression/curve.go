// Package progression implements the shared exponential level curve and
// the state transitions built on it: character leveling, skill leveling,
// and the territory capture machine.
//
// One curve serves all three callers. They used to be easy to implement
// three slightly different ways; keeping a single parameterized function
// removes the drift risk between subsystems that must behave identically.
package progression

import "math"

// Growth rates and base requirements for the three curve consumers.
const (
	SkillGrowth     = 1.2
	TerritoryGrowth = 1.5
	CharacterGrowth = 1.5

	// CharacterBaseXP is the XP needed to go from level 1 to level 2.
	CharacterBaseXP = 100
)

// RequiredForLevel returns the XP threshold for advancing past the given
// level: floor(base * growth^level). Monotonically increasing in level,
// and always positive for level >= 0 and positive base.
func RequiredForLevel(base int, level int, growth float64) int {
	if level < 0 {
		level = 0
	}
	return int(math.Floor(float64(base) * math.Pow(growth, float64(level))))
}

// CharacterLevelUp applies earned XP to a character, advancing through as
// many levels as the XP covers. Levels are 1-based; the threshold to
// leave level L is RequiredForLevel(CharacterBaseXP, L-1, CharacterGrowth),
// and the threshold is subtracted on each level-up so CurrentXP is always
// progress within the current level.
func CharacterLevelUp(level, currentXP, gainedXP int) (newLevel, newXP, levelsGained int) {
	if level < 1 {
		level = 1
	}
	newLevel = level
	newXP = currentXP + gainedXP
	for {
		need := RequiredForLevel(CharacterBaseXP, newLevel-1, CharacterGrowth)
		if newXP < need {
			break
		}
		newXP -= need
		newLevel++
		levelsGained++
	}
	return newLevel, newXP, levelsGained
}

// CharacterLevelDown drops a character one level, flooring at 1.
// Current XP resets to zero either way.
func CharacterLevelDown(level int) int {
	if level <= 1 {
		return 1
	}
	return level - 1
}

// SkillPointsForLevel returns the total skill points earned by reaching
// the given character level: one per level gained past the first.
func SkillPointsForLevel(level int) int {
	if level < 1 {
		return 0
	}
	return level - 1
}
