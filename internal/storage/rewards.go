package storage

import (
	"context"
	"fmt"

	"github.com/arisehq/arise/internal/model"
)

// RewardWrite is the transactional batch produced by recording one
// action: the ledger event, the resulting character stats, an optional
// daily-target bonus grant, and an optional first-action-of-day streak
// check-in.
type RewardWrite struct {
	Event model.LedgerEvent
	Stats model.CharacterStats

	// Perk is the daily-target completion bonus grant, set when the
	// reward includes the flat target gold. It is a guarded daily
	// insert; when a concurrent session already banked today's bonus,
	// the gold is stripped from the event and stats before they are
	// written so the bonus cannot pay out twice.
	Perk *model.LedgerEvent

	// Checkin and Profile are set together when this action is the
	// first of the day. The check-in is a guarded daily insert; when a
	// concurrent session already checked in, the profile update is
	// skipped and Applied.Checkin comes back false.
	Checkin *model.LedgerEvent
	Profile *model.Profile
}

// RewardApplied reports which guarded daily inserts in a RewardWrite
// won their once-per-day race.
type RewardApplied struct {
	Checkin bool
	Perk    bool
}

// ApplyReward persists a computed reward atomically.
func (db *DB) ApplyReward(ctx context.Context, w RewardWrite) (RewardApplied, error) {
	var applied RewardApplied

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return applied, fmt.Errorf("storage: begin reward: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if w.Perk != nil {
		applied.Perk, err = insertDailyGuarded(ctx, tx, *w.Perk)
		if err != nil {
			return RewardApplied{}, err
		}
		if !applied.Perk {
			w.Event.GoldAmount -= w.Perk.GoldAmount
			w.Stats.Gold -= w.Perk.GoldAmount
			w.Stats.TotalGoldEarned -= w.Perk.GoldAmount
		}
	}

	if err := insertEvent(ctx, tx, w.Event); err != nil {
		return RewardApplied{}, err
	}
	if err := updateStats(ctx, tx, w.Stats); err != nil {
		return RewardApplied{}, err
	}

	if w.Checkin != nil && w.Profile != nil {
		applied.Checkin, err = insertDailyGuarded(ctx, tx, *w.Checkin)
		if err != nil {
			return RewardApplied{}, err
		}
		if applied.Checkin {
			if err := updateProfile(ctx, tx, *w.Profile); err != nil {
				return RewardApplied{}, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return RewardApplied{}, fmt.Errorf("storage: commit reward: %w", err)
	}
	return applied, nil
}
