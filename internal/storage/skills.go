package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// GetAllocations returns a user's skill allocations as skill id → level.
func (db *DB) GetAllocations(ctx context.Context, userID uuid.UUID) (map[string]int, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT skill_id, level FROM skill_allocations WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("storage: get allocations: %w", err)
	}
	defer rows.Close()

	alloc := make(map[string]int)
	for rows.Next() {
		var id string
		var level int
		if err := rows.Scan(&id, &level); err != nil {
			return nil, fmt.Errorf("storage: scan allocation: %w", err)
		}
		alloc[id] = level
	}
	return alloc, rows.Err()
}

// IncrementAllocation raises a skill's allocated level by one, creating
// the row at level 1 on first allocation. The caller validates
// prerequisites and point budget before calling; expectedLevel is the
// level the caller observed, re-checked here so two concurrent
// allocations of the same skill cannot both spend the same point.
func (db *DB) IncrementAllocation(ctx context.Context, userID uuid.UUID, skillID string, expectedLevel int) (int, error) {
	if expectedLevel == 0 {
		tag, err := db.pool.Exec(ctx,
			`INSERT INTO skill_allocations (user_id, skill_id, level, updated_at)
			 VALUES ($1, $2, 1, now())
			 ON CONFLICT DO NOTHING`,
			userID, skillID,
		)
		if err != nil {
			return 0, fmt.Errorf("storage: insert allocation: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return 0, ErrVersionConflict
		}
		return 1, nil
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE skill_allocations SET level = level + 1, updated_at = now()
		 WHERE user_id = $1 AND skill_id = $2 AND level = $3`,
		userID, skillID, expectedLevel,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: increment allocation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrVersionConflict
	}
	return expectedLevel + 1, nil
}
