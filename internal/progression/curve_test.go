package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredForLevelKnownValues(t *testing.T) {
	// floor(500 * 1.5^1) = 750, the territory scenario threshold.
	assert.Equal(t, 750, RequiredForLevel(500, 1, TerritoryGrowth))
	assert.Equal(t, 500, RequiredForLevel(500, 0, TerritoryGrowth))
	assert.Equal(t, 1125, RequiredForLevel(500, 2, TerritoryGrowth))

	// Skill curve grows slower.
	assert.Equal(t, 100, RequiredForLevel(100, 0, SkillGrowth))
	assert.Equal(t, 120, RequiredForLevel(100, 1, SkillGrowth))
	assert.Equal(t, 144, RequiredForLevel(100, 2, SkillGrowth))
}

func TestRequiredForLevelMonotonicAndPositive(t *testing.T) {
	for _, growth := range []float64{SkillGrowth, TerritoryGrowth} {
		prev := 0
		for level := 0; level < 30; level++ {
			got := RequiredForLevel(50, level, growth)
			assert.Positive(t, got, "growth=%v level=%d", growth, level)
			assert.Greater(t, got, prev, "growth=%v level=%d", growth, level)
			prev = got
		}
	}
}

func TestRequiredForLevelNegativeLevelClamps(t *testing.T) {
	assert.Equal(t, RequiredForLevel(100, 0, 1.5), RequiredForLevel(100, -3, 1.5))
}

func TestCharacterLevelUp(t *testing.T) {
	// Level 1 → 2 needs 100 XP.
	level, xp, gained := CharacterLevelUp(1, 40, 60)
	assert.Equal(t, 2, level)
	assert.Equal(t, 0, xp)
	assert.Equal(t, 1, gained)

	// Not enough to level.
	level, xp, gained = CharacterLevelUp(1, 0, 99)
	assert.Equal(t, 1, level)
	assert.Equal(t, 99, xp)
	assert.Equal(t, 0, gained)

	// Multi-level jump: 100 (1→2) + 150 (2→3) + leftover 30.
	level, xp, gained = CharacterLevelUp(1, 0, 280)
	assert.Equal(t, 3, level)
	assert.Equal(t, 30, xp)
	assert.Equal(t, 2, gained)
}

func TestCharacterLevelDownFloorsAtOne(t *testing.T) {
	assert.Equal(t, 4, CharacterLevelDown(5))
	assert.Equal(t, 1, CharacterLevelDown(1))
	assert.Equal(t, 1, CharacterLevelDown(0))
}

func TestSkillPointsForLevel(t *testing.T) {
	assert.Equal(t, 0, SkillPointsForLevel(1))
	assert.Equal(t, 4, SkillPointsForLevel(5))
	assert.Equal(t, 0, SkillPointsForLevel(0))
}
