package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arisehq/arise/internal/model"
)

// ListTerritories returns all territory definitions.
func (db *DB) ListTerritories(ctx context.Context) ([]model.Territory, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, base_xp, max_level FROM territories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("storage: list territories: %w", err)
	}
	defer rows.Close()

	var out []model.Territory
	for rows.Next() {
		var t model.Territory
		if err := rows.Scan(&t.ID, &t.Name, &t.BaseXP, &t.MaxLevel); err != nil {
			return nil, fmt.Errorf("storage: scan territory: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTerritory fetches one territory definition.
func (db *DB) GetTerritory(ctx context.Context, id uuid.UUID) (model.Territory, error) {
	var t model.Territory
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, base_xp, max_level FROM territories WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.BaseXP, &t.MaxLevel)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Territory{}, ErrNotFound
	}
	if err != nil {
		return model.Territory{}, fmt.Errorf("storage: get territory: %w", err)
	}
	return t, nil
}

// GetTerritoryProgress fetches a user's progress on one territory.
func (db *DB) GetTerritoryProgress(ctx context.Context, userID, territoryID uuid.UUID) (model.TerritoryProgress, error) {
	var p model.TerritoryProgress
	var status string
	err := db.pool.QueryRow(ctx,
		`SELECT user_id, territory_id, level, current_xp, status, version, updated_at
		 FROM territory_progress WHERE user_id = $1 AND territory_id = $2`,
		userID, territoryID,
	).Scan(&p.UserID, &p.TerritoryID, &p.Level, &p.CurrentXP, &status, &p.Version, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.TerritoryProgress{}, ErrNotFound
	}
	if err != nil {
		return model.TerritoryProgress{}, fmt.Errorf("storage: get territory progress: %w", err)
	}
	p.Status = model.TerritoryStatus(status)
	return p, nil
}

// ListTerritoryProgress returns all of a user's progress rows.
func (db *DB) ListTerritoryProgress(ctx context.Context, userID uuid.UUID) ([]model.TerritoryProgress, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT user_id, territory_id, level, current_xp, status, version, updated_at
		 FROM territory_progress WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("storage: list territory progress: %w", err)
	}
	defer rows.Close()

	var out []model.TerritoryProgress
	for rows.Next() {
		var p model.TerritoryProgress
		var status string
		if err := rows.Scan(&p.UserID, &p.TerritoryID, &p.Level, &p.CurrentXP, &status, &p.Version, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan territory progress: %w", err)
		}
		p.Status = model.TerritoryStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ActiveTerritoryID returns the user's active territory pointer, or nil.
func (db *DB) ActiveTerritoryID(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	var id *uuid.UUID
	err := db.pool.QueryRow(ctx,
		`SELECT active_territory_id FROM profiles WHERE user_id = $1`, userID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: active territory: %w", err)
	}
	return id, nil
}

// ActivateTerritory makes a territory the user's active one, creating
// the progress row if needed and marking it in_progress.
func (db *DB) ActivateTerritory(ctx context.Context, userID, territoryID uuid.UUID) (model.TerritoryProgress, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.TerritoryProgress{}, fmt.Errorf("storage: begin activate territory: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var p model.TerritoryProgress
	var status string
	err = tx.QueryRow(ctx,
		`INSERT INTO territory_progress (user_id, territory_id, level, current_xp, status, version, updated_at)
		 VALUES ($1, $2, 0, 0, $3, 1, now())
		 ON CONFLICT (user_id, territory_id) DO UPDATE
		   SET status = CASE WHEN territory_progress.status = 'captured'
		                     THEN territory_progress.status ELSE 'in_progress' END,
		       version = territory_progress.version + 1,
		       updated_at = now()
		 RETURNING user_id, territory_id, level, current_xp, status, version, updated_at`,
		userID, territoryID, string(model.TerritoryInProgress),
	).Scan(&p.UserID, &p.TerritoryID, &p.Level, &p.CurrentXP, &status, &p.Version, &p.UpdatedAt)
	if err != nil {
		return model.TerritoryProgress{}, fmt.Errorf("storage: activate territory: %w", err)
	}
	p.Status = model.TerritoryStatus(status)

	if p.Status == model.TerritoryCaptured {
		// Captured territories cannot become active again.
		return model.TerritoryProgress{}, ErrVersionConflict
	}

	if _, err := tx.Exec(ctx,
		`UPDATE profiles SET active_territory_id = $2, updated_at = now() WHERE user_id = $1`,
		userID, territoryID,
	); err != nil {
		return model.TerritoryProgress{}, fmt.Errorf("storage: set active territory: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.TerritoryProgress{}, fmt.Errorf("storage: commit activate territory: %w", err)
	}
	return p, nil
}

// UpdateTerritoryProgress writes an advanced progress state with an
// optimistic version check. expectedVersion is the version the caller
// read; a mismatch means a concurrent writer advanced the same row and
// the caller should re-read and retry. clearActive additionally clears
// the user's active pointer (the capture side effect).
func (db *DB) UpdateTerritoryProgress(ctx context.Context, p model.TerritoryProgress, expectedVersion int64, clearActive bool) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin territory update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE territory_progress
		 SET level = $3, current_xp = $4, status = $5, version = version + 1, updated_at = now()
		 WHERE user_id = $1 AND territory_id = $2 AND version = $6`,
		p.UserID, p.TerritoryID, p.Level, p.CurrentXP, string(p.Status), expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("storage: update territory progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	if clearActive {
		if _, err := tx.Exec(ctx,
			`UPDATE profiles SET active_territory_id = NULL, updated_at = now()
			 WHERE user_id = $1 AND active_territory_id = $2`,
			p.UserID, p.TerritoryID,
		); err != nil {
			return fmt.Errorf("storage: clear active territory: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit territory update: %w", err)
	}
	return nil
}
