package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arisehq/arise/internal/model"
)

// CreateUser inserts a user together with its initial profile and stats
// rows in one transaction. New accounts start at level 1 with an empty
// streak and the given daily target.
func (db *DB) CreateUser(ctx context.Context, user model.User, dailyTarget, penaltyXP int) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin create user: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO users (id, name, role, api_key_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Name, string(user.Role), user.APIKeyHash, user.CreatedAt,
	); err != nil {
		return fmt.Errorf("storage: insert user: %w", err)
	}

	now := user.CreatedAt
	if _, err := tx.Exec(ctx,
		`INSERT INTO profiles (user_id, streak_current, streak_best, consecutive_misses,
		                       daily_actions_target, penalty_xp, updated_at)
		 VALUES ($1, 0, 0, 0, $2, $3, $4)`,
		user.ID, dailyTarget, penaltyXP, now,
	); err != nil {
		return fmt.Errorf("storage: insert profile: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO character_stats (user_id, level, current_xp, total_xp_earned,
		                              total_xp_lost, gold, total_gold_earned, updated_at)
		 VALUES ($1, 1, 0, 0, 0, 0, 0, $2)`,
		user.ID, now,
	); err != nil {
		return fmt.Errorf("storage: insert character stats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit create user: %w", err)
	}
	return nil
}

// GetUser fetches a user by id.
func (db *DB) GetUser(ctx context.Context, id uuid.UUID) (model.User, error) {
	var u model.User
	var role string
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, role, api_key_hash, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &role, &u.APIKeyHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("storage: get user: %w", err)
	}
	u.Role = model.UserRole(role)
	return u, nil
}

// CountUsers returns the total number of user accounts.
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count users: %w", err)
	}
	return n, nil
}
