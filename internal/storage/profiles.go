package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arisehq/arise/internal/model"
)

// GetProfile fetches a user's streak/penalty profile.
func (db *DB) GetProfile(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	var p model.Profile
	err := db.pool.QueryRow(ctx,
		`SELECT user_id, streak_current, streak_best, consecutive_misses,
		        daily_actions_target, penalty_xp, updated_at
		 FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.StreakCurrent, &p.StreakBest, &p.ConsecutiveMisses,
		&p.DailyActionsTarget, &p.PenaltyXP, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("storage: get profile: %w", err)
	}
	return p, nil
}

// UpdateDailyTarget sets the user's daily actions target.
func (db *DB) UpdateDailyTarget(ctx context.Context, userID uuid.UUID, target int) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE profiles SET daily_actions_target = $2, updated_at = now() WHERE user_id = $1`,
		userID, target,
	)
	if err != nil {
		return fmt.Errorf("storage: update daily target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// updateProfile writes the mutable profile fields inside a transaction.
func updateProfile(ctx context.Context, tx pgx.Tx, p model.Profile) error {
	tag, err := tx.Exec(ctx,
		`UPDATE profiles
		 SET streak_current = $2, streak_best = $3, consecutive_misses = $4, updated_at = now()
		 WHERE user_id = $1`,
		p.UserID, p.StreakCurrent, p.StreakBest, p.ConsecutiveMisses,
	)
	if err != nil {
		return fmt.Errorf("storage: update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
