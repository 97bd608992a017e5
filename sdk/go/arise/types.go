package arise

import (
	"time"

	"github.com/google/uuid"
)

// CharacterStats mirrors the server's character stats for API consumers.
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

// Profile tracks streak and penalty state.
type Profile struct {
	UserID             uuid.UUID `json:"user_id"`
	StreakCurrent      int       `json:"streak_current"`
	StreakBest         int       `json:"streak_best"`
	ConsecutiveMisses  int       `json:"consecutive_misses"`
	DailyActionsTarget int       `json:"daily_actions_target"`
	PenaltyXP          int       `json:"penalty_xp"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// LedgerEvent is one row of the XP/gold ledger.
type LedgerEvent struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	EventType   string    `json:"event_type"`
	XPAmount    int       `json:"xp_amount"`
	GoldAmount  int       `json:"gold_amount"`
	EventDate   time.Time `json:"event_date"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Territory is a capturable region definition.
type Territory struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	BaseXP   int       `json:"base_xp"`
	MaxLevel int       `json:"max_level"`
}

// TerritoryProgress is the caller's progress on one territory.
type TerritoryProgress struct {
	UserID      uuid.UUID `json:"user_id"`
	TerritoryID uuid.UUID `json:"territory_id"`
	Level       int       `json:"level"`
	CurrentXP   int       `json:"current_xp"`
	Status      string    `json:"status"`
	Version     int64     `json:"version"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SkillEffect is one effect contributed by a skill node.
type SkillEffect struct {
	Type     string  `json:"type"`
	Base     float64 `json:"base"`
	PerLevel float64 `json:"per_level"`
}

// SkillNode is one node of the skill tree.
type SkillNode struct {
	ID       string        `json:"id"`
	Branch   string        `json:"branch"`
	Name     string        `json:"name"`
	MaxLevel int           `json:"max_level"`
	Requires []string      `json:"requires,omitempty"`
	Effects  []SkillEffect `json:"effects"`
}

// AllocationStatus reports whether one more point could go into a skill.
type AllocationStatus struct {
	Allowed      bool   `json:"allowed"`
	Reason       string `json:"reason,omitempty"`
	Prerequisite string `json:"prerequisite,omitempty"`
}

// SkillView is a skill node annotated with the caller's allocation.
type SkillView struct {
	Node   SkillNode        `json:"node"`
	Level  int              `json:"level"`
	Status AllocationStatus `json:"status"`
}

// SkillsResponse is the output of Client.Skills.
type SkillsResponse struct {
	Skills          []SkillView `json:"skills"`
	AllocatedPoints int         `json:"allocated_points"`
	AvailablePoints int         `json:"available_points"`
}

// AllocateResult is the output of Client.AllocateSkill.
type AllocateResult struct {
	SkillID         string             `json:"skill_id"`
	NewLevel        int                `json:"new_level"`
	AvailablePoints int                `json:"available_points"`
	Effects         map[string]float64 `json:"effects"`
}

// Snapshot is the caller's full progression state.
type Snapshot struct {
	Stats           CharacterStats      `json:"stats"`
	Profile         Profile             `json:"profile"`
	Effects         map[string]float64  `json:"effects"`
	AvailablePoints int                 `json:"available_points"`
	Territories     []TerritoryProgress `json:"territories"`
	ActiveTerritory *uuid.UUID          `json:"active_territory,omitempty"`
	GeneratedAt     time.Time           `json:"generated_at"`
}

// Reconciliation reports what the daily reconciler did at session start.
// A day that was already reconciled yields the zero value.
type Reconciliation struct {
	Shielded    bool `json:"shielded"`
	Penalized   bool `json:"penalized"`
	PenaltyXP   int  `json:"penalty_xp,omitempty"`
	LeveledDown bool `json:"leveled_down"`
	PassiveGold int  `json:"passive_gold,omitempty"`
}

// SessionStart is the output of Client.StartSession.
type SessionStart struct {
	Reconciliation Reconciliation `json:"reconciliation"`
	Snapshot       Snapshot       `json:"snapshot"`
}

// Reward is the computed XP/gold outcome of one action. TargetGold is
// the once-per-day bonus for completing the daily action target,
// already included in FinalGold.
type Reward struct {
	FinalXP    int      `json:"final_xp"`
	FinalGold  int      `json:"final_gold"`
	TargetGold int      `json:"target_gold,omitempty"`
	IsCrit     bool     `json:"is_crit"`
	Bonuses    []string `json:"bonuses,omitempty"`
}

// TerritoryResult is the territory credit attached to an action result.
type TerritoryResult struct {
	TerritoryID  uuid.UUID         `json:"territory_id"`
	CreditedXP   int               `json:"credited_xp"`
	LevelsGained int               `json:"levels_gained"`
	Captured     bool              `json:"captured"`
	Progress     TerritoryProgress `json:"progress"`
}

// ActionResult is the output of Client.RecordAction.
type ActionResult struct {
	Event          LedgerEvent      `json:"event"`
	Reward         Reward           `json:"reward"`
	Stats          CharacterStats   `json:"stats"`
	LevelsGained   int              `json:"levels_gained"`
	StreakCheckin  bool             `json:"streak_checkin"`
	Profile        Profile          `json:"profile"`
	Territory      *TerritoryResult `json:"territory,omitempty"`
	SkillPointsNew int              `json:"skill_points_new"`
}

// RecordActionRequest is the input for Client.RecordAction.
type RecordActionRequest struct {
	ActionType  string `json:"action_type"`
	BaseXP      int    `json:"base_xp"`
	BaseGold    int    `json:"base_gold"`
	Description string `json:"description,omitempty"`
}

// TerritoriesView is the output of Client.Territories.
type TerritoriesView struct {
	Territories     []Territory         `json:"territories"`
	Progress        []TerritoryProgress `json:"progress"`
	ActiveTerritory *uuid.UUID          `json:"active_territory"`
}

// LedgerPage is one page of ledger history, newest first. A non-nil
// NextCursor means another page may follow.
type LedgerPage struct {
	Events     []LedgerEvent `json:"events"`
	NextCursor *uuid.UUID    `json:"next_cursor,omitempty"`
}

// Health is the output of Client.Health.
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Postgres  string `json:"postgres"`
	SSEBroker string `json:"sse_broker,omitempty"`
	Uptime    int64  `json:"uptime_seconds"`
}
