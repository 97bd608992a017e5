package mcp

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/arisehq/arise/internal/model"
	"github.com/arisehq/arise/internal/reward"
	"github.com/arisehq/arise/internal/service/character"
	"github.com/arisehq/arise/internal/service/rewards"
	"github.com/arisehq/arise/internal/service/territory"
	"github.com/arisehq/arise/internal/skills"
)

func TestCompactReward(t *testing.T) {
	userID := uuid.New()
	territoryID := uuid.New()
	r := rewards.RecordResult{
		Event: model.LedgerEvent{
			ID:          uuid.New(),
			UserID:      userID,
			EventType:   model.EventTask,
			XPAmount:    66,
			GoldAmount:  0,
			Description: "shipped the importer",
			CreatedAt:   time.Now(),
		},
		Reward: reward.Result{
			FinalXP:   66,
			FinalGold: 0,
			IsCrit:    true,
			Bonuses:   []string{"streak_bonus", "crit"},
		},
		Stats:          model.CharacterStats{UserID: userID, Level: 3, CurrentXP: 40, Gold: 120},
		LevelsGained:   1,
		SkillPointsNew: 1,
		StreakCheckin:  true,
		Profile:        model.Profile{StreakCurrent: 5},
	}
	r.Territory = &territory.Result{
		TerritoryID: territoryID,
		CreditedXP:  13,
		Captured:    true,
		Progress:    model.TerritoryProgress{TerritoryID: territoryID, Level: 5},
	}

	m := compactReward(r)

	// Kept fields.
	assert.Equal(t, model.EventTask, m["action_type"])
	assert.Equal(t, 66, m["xp_earned"])
	assert.Equal(t, 3, m["level"])
	assert.Equal(t, true, m["crit"])
	assert.Equal(t, 1, m["levels_gained"])
	assert.Equal(t, 1, m["skill_points_new"])
	assert.Equal(t, 5, m["streak"])
	assert.Equal(t, "shipped the importer", m["description"])

	tm, ok := m["territory"].(map[string]any)
	assert.True(t, ok, "territory should be present")
	assert.Equal(t, 13, tm["credited_xp"])
	assert.Equal(t, true, tm["captured"])

	// Dropped fields.
	_, hasEvent := m["event"]
	_, hasProfile := m["profile"]
	assert.False(t, hasEvent, "raw event should be dropped")
	assert.False(t, hasProfile, "full profile should be dropped")
}

func TestCompactRewardOmitsZeroExtras(t *testing.T) {
	r := rewards.RecordResult{
		Event:  model.LedgerEvent{EventType: model.EventAction},
		Reward: reward.Result{FinalXP: 10},
		Stats:  model.CharacterStats{Level: 1, CurrentXP: 10},
	}

	m := compactReward(r)

	for _, key := range []string{"crit", "bonuses", "levels_gained", "skill_points_new", "streak", "territory", "description"} {
		_, present := m[key]
		assert.False(t, present, "%s should be omitted when zero", key)
	}
}

func TestCompactSnapshotXPToNext(t *testing.T) {
	snap := character.Snapshot{
		Stats:   model.CharacterStats{Level: 1, CurrentXP: 40},
		Profile: model.Profile{DailyActionsTarget: 3},
	}

	m := compactSnapshot(snap)

	// Level 1 needs 100 XP to advance.
	assert.Equal(t, 60, m["xp_to_next"])
	assert.Equal(t, 3, m["daily_target"])
	_, hasEffects := m["effects"]
	assert.False(t, hasEffects, "empty effects should be omitted")
}

func TestCompactSkillsLockedReason(t *testing.T) {
	resp := character.SkillsResponse{
		Skills: []character.SkillView{
			{
				Node:   skills.Node{ID: "focus", Branch: "mind", Name: "Focus", MaxLevel: 5},
				Level:  2,
				Status: skills.AllocationCheck{Allowed: true},
			},
			{
				Node:   skills.Node{ID: "deep_work", Branch: "mind", Name: "Deep Work", MaxLevel: 3, Requires: []string{"focus"}},
				Level:  0,
				Status: skills.AllocationCheck{Reason: skills.DenyPrerequisiteUnmet, Prerequisite: "focus"},
			},
		},
		AllocatedPoints: 2,
		AvailablePoints: 1,
	}

	m := compactSkills(resp)

	list, ok := m["skills"].([]map[string]any)
	assert.True(t, ok)
	assert.Len(t, list, 2)
	assert.Equal(t, true, list[0]["allocatable"])
	assert.Equal(t, skills.DenyPrerequisiteUnmet, list[1]["locked_reason"])
	assert.Equal(t, "focus", list[1]["prerequisite"])
	assert.Equal(t, 2, m["allocated_points"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde…", truncate("abcdefghij", 5))
}
