package model

import (
	"time"

	"github.com/google/uuid"
)

// CharacterStats tracks a user's level, XP, and gold.
// Mutated by reward application and by the daily reconciler's
// penalty/level-down path. All counters are non-negative except none:
// level never drops below 1.
type CharacterStats struct {
	UserID          uuid.UUID `json:"user_id"`
	Level           int       `json:"level"`
	CurrentXP       int       `json:"current_xp"`
	TotalXPEarned   int       `json:"total_xp_earned"`
	TotalXPLost     int       `json:"total_xp_lost"`
	Gold            int       `json:"gold"`
	TotalGoldEarned int       `json:"total_gold_earned"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Profile tracks a user's streak and penalty state.
// Mutated only by the daily reconciler and the first-action-of-day
// streak check-in.
type Profile struct {
	UserID             uuid.UUID `json:"user_id"`
	StreakCurrent      int       `json:"streak_current"`
	StreakBest         int       `json:"streak_best"`
	ConsecutiveMisses  int       `json:"consecutive_misses"`
	DailyActionsTarget int       `json:"daily_actions_target"`
	PenaltyXP          int       `json:"penalty_xp"` // Base XP penalty per missed day, before skill reductions.
	UpdatedAt          time.Time `json:"updated_at"`
}
