// Package model defines the core domain types for Arise.
//
// Types correspond directly to database tables and API payloads. The
// ledger is the system of record: every reward, penalty, and once-per-day
// effect leaves an immutable row behind, and "has this already happened
// today" questions are always answered from the ledger, never from
// derived state.
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType categorizes a ledger event.
type EventType string

const (
	// Reward events, one per recorded action.
	EventAction   EventType = "action"
	EventTask     EventType = "task"
	EventHardTask EventType = "hard_task"
	EventSale     EventType = "sale"

	// Bonus events. focus_bonus is part of the ledger vocabulary (the
	// schema CHECK admits it) for bonus grants written outside the
	// action flow; no service flow currently emits it.
	EventBossKilled EventType = "boss_killed"
	EventFocusBonus EventType = "focus_bonus"

	// Once-per-day events. Guarded by a partial unique index on
	// (user_id, event_type, event_date); see migrations. perk_bonus
	// marks the daily-target completion gold so it pays out once a day.
	EventPerkBonus     EventType = "perk_bonus"
	EventPenaltyMiss   EventType = "penalty_miss"
	EventStreakShield  EventType = "streak_shield"
	EventStreakCheckin EventType = "streak_checkin"
	EventSkillPassive  EventType = "skill_passive"
)

// DailyUnique reports whether at most one event of this type may exist
// per user per calendar day.
func (t EventType) DailyUnique() bool {
	switch t {
	case EventPerkBonus, EventPenaltyMiss, EventStreakShield, EventStreakCheckin, EventSkillPassive:
		return true
	}
	return false
}

// ActionEventTypes are the event types a user action can produce.
// Used when counting "qualifying actions" for streaks and daily targets.
var ActionEventTypes = []EventType{
	EventAction, EventTask, EventHardTask, EventSale, EventBossKilled,
}

// DateIn truncates t to its calendar date in loc. The result is
// midnight UTC of that date, matching how event_date is stored.
func DateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LedgerEvent is an append-only record in the reward ledger.
// Source of truth. Never mutated or deleted.
type LedgerEvent struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	EventType   EventType `json:"event_type"`
	XPAmount    int       `json:"xp_amount"`
	GoldAmount  int       `json:"gold_amount"`
	EventDate   time.Time `json:"event_date"` // Calendar date in the reporting timezone; time part is zero.
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
