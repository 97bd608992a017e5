package storage

import (
	"context"
	"fmt"

	"github.com/arisehq/arise/internal/model"
)

// ApplyReconciliation closes a reconciliation day: it writes the guard
// event (penalty_miss or streak_shield) and, when the penalty path
// taken, the updated profile and stats, all in one transaction.
//
// The guard insert runs first inside the transaction. If another session
// already closed the day, the insert affects no rows and the whole
// transaction is discarded with applied=false and no derived state is
// touched. If any later write fails, the guard event rolls back with it,
// so the ledger never claims a reconciliation whose effects were lost.
func (db *DB) ApplyReconciliation(ctx context.Context, guard model.LedgerEvent, profile *model.Profile, stats *model.CharacterStats) (bool, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("storage: begin reconciliation: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	applied, err := insertDailyGuarded(ctx, tx, guard)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	if profile != nil {
		if err := updateProfile(ctx, tx, *profile); err != nil {
			return false, err
		}
	}
	if stats != nil {
		if err := updateStats(ctx, tx, *stats); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("storage: commit reconciliation: %w", err)
	}
	return true, nil
}

// ApplyPassiveGold grants a daily passive gold amount at most once per
// day, updating the stats gold counters alongside the ledger event.
func (db *DB) ApplyPassiveGold(ctx context.Context, event model.LedgerEvent, gold int) (bool, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("storage: begin passive gold: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	applied, err := insertDailyGuarded(ctx, tx, event)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	tag, err := tx.Exec(ctx,
		`UPDATE character_stats
		 SET gold = gold + $2, total_gold_earned = total_gold_earned + $2, updated_at = now()
		 WHERE user_id = $1`,
		event.UserID, gold,
	)
	if err != nil {
		return false, fmt.Errorf("storage: apply passive gold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("storage: commit passive gold: %w", err)
	}
	return true, nil
}
