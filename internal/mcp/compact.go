package mcp

import (
	"github.com/arisehq/arise/internal/progression"
	"github.com/arisehq/arise/internal/service/character"
	"github.com/arisehq/arise/internal/service/rewards"
)

// maxCompactDescription bounds free text echoed back in tool results.
const maxCompactDescription = 120

// compactReward returns a minimal representation of a recorded action
// for MCP responses. Drops internal bookkeeping (ids, timestamps,
// running totals) that agents don't act on.
func compactReward(r rewards.RecordResult) map[string]any {
	m := map[string]any{
		"action_type": r.Event.EventType,
		"xp_earned":   r.Reward.FinalXP,
		"gold_earned": r.Reward.FinalGold,
		"level":       r.Stats.Level,
		"current_xp":  r.Stats.CurrentXP,
		"xp_to_next":  xpToNext(r.Stats.Level, r.Stats.CurrentXP),
	}
	if r.Reward.IsCrit {
		m["crit"] = true
	}
	if len(r.Reward.Bonuses) > 0 {
		m["bonuses"] = r.Reward.Bonuses
	}
	if r.LevelsGained > 0 {
		m["levels_gained"] = r.LevelsGained
	}
	if r.SkillPointsNew > 0 {
		m["skill_points_new"] = r.SkillPointsNew
	}
	if r.StreakCheckin {
		m["streak"] = r.Profile.StreakCurrent
	}
	if r.Territory != nil {
		t := map[string]any{
			"territory_id": r.Territory.TerritoryID,
			"credited_xp":  r.Territory.CreditedXP,
			"level":        r.Territory.Progress.Level,
		}
		if r.Territory.Captured {
			t["captured"] = true
		}
		m["territory"] = t
	}
	if d := r.Event.Description; d != "" {
		m["description"] = truncate(d, maxCompactDescription)
	}
	return m
}

// compactSnapshot returns a minimal representation of a character
// snapshot for MCP responses.
func compactSnapshot(snap character.Snapshot) map[string]any {
	m := map[string]any{
		"level":              snap.Stats.Level,
		"current_xp":         snap.Stats.CurrentXP,
		"xp_to_next":         xpToNext(snap.Stats.Level, snap.Stats.CurrentXP),
		"gold":               snap.Stats.Gold,
		"streak":             snap.Profile.StreakCurrent,
		"streak_best":        snap.Profile.StreakBest,
		"consecutive_misses": snap.Profile.ConsecutiveMisses,
		"daily_target":       snap.Profile.DailyActionsTarget,
		"available_points":   snap.AvailablePoints,
	}
	if len(snap.Effects) > 0 {
		m["effects"] = snap.Effects
	}
	if snap.ActiveTerritory != nil {
		m["active_territory"] = snap.ActiveTerritory
	}
	if len(snap.Territories) > 0 {
		territories := make([]map[string]any, len(snap.Territories))
		for i, p := range snap.Territories {
			territories[i] = map[string]any{
				"territory_id": p.TerritoryID,
				"level":        p.Level,
				"status":       p.Status,
			}
		}
		m["territories"] = territories
	}
	return m
}

// compactSkills returns a minimal skill-tree listing for MCP responses.
// Locked skills carry the deny reason so the agent can explain them.
func compactSkills(resp character.SkillsResponse) map[string]any {
	skillList := make([]map[string]any, len(resp.Skills))
	for i, v := range resp.Skills {
		entry := map[string]any{
			"id":        v.Node.ID,
			"branch":    v.Node.Branch,
			"name":      v.Node.Name,
			"level":     v.Level,
			"max_level": v.Node.MaxLevel,
		}
		if v.Status.Allowed {
			entry["allocatable"] = true
		} else {
			entry["locked_reason"] = v.Status.Reason
			if v.Status.Prerequisite != "" {
				entry["prerequisite"] = v.Status.Prerequisite
			}
		}
		skillList[i] = entry
	}
	return map[string]any{
		"skills":           skillList,
		"allocated_points": resp.AllocatedPoints,
		"available_points": resp.AvailablePoints,
	}
}

// xpToNext is the XP still needed to leave the current level.
func xpToNext(level, currentXP int) int {
	need := progression.RequiredForLevel(progression.CharacterBaseXP, level-1, progression.CharacterGrowth)
	return need - currentXP
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
