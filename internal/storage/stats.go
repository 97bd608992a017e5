package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arisehq/arise/internal/model"
)

// GetStats fetches a user's character stats.
func (db *DB) GetStats(ctx context.Context, userID uuid.UUID) (model.CharacterStats, error) {
	var s model.CharacterStats
	err := db.pool.QueryRow(ctx,
		`SELECT user_id, level, current_xp, total_xp_earned, total_xp_lost,
		        gold, total_gold_earned, updated_at
		 FROM character_stats WHERE user_id = $1`, userID,
	).Scan(&s.UserID, &s.Level, &s.CurrentXP, &s.TotalXPEarned, &s.TotalXPLost,
		&s.Gold, &s.TotalGoldEarned, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CharacterStats{}, ErrNotFound
	}
	if err != nil {
		return model.CharacterStats{}, fmt.Errorf("storage: get stats: %w", err)
	}
	return s, nil
}

// updateStats writes the mutable stats fields inside a transaction.
func updateStats(ctx context.Context, tx pgx.Tx, s model.CharacterStats) error {
	tag, err := tx.Exec(ctx,
		`UPDATE character_stats
		 SET level = $2, current_xp = $3, total_xp_earned = $4, total_xp_lost = $5,
		     gold = $6, total_gold_earned = $7, updated_at = now()
		 WHERE user_id = $1`,
		s.UserID, s.Level, s.CurrentXP, s.TotalXPEarned, s.TotalXPLost,
		s.Gold, s.TotalGoldEarned,
	)
	if err != nil {
		return fmt.Errorf("storage: update stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
