package model

import (
	"time"

	"github.com/google/uuid"
)

// TerritoryStatus is the progression state of a user's territory.
// Transitions are monotonic: available → in_progress → captured.
// There are no regression transitions.
type TerritoryStatus string

const (
	TerritoryAvailable  TerritoryStatus = "available"
	TerritoryInProgress TerritoryStatus = "in_progress"
	TerritoryCaptured   TerritoryStatus = "captured"
)

// Territory is a static capturable progression track definition.
type Territory struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	BaseXP   int       `json:"base_xp"`   // XP required for the first level-up.
	MaxLevel int       `json:"max_level"` // Reaching this level captures the territory.
}

// TerritoryProgress is one user's progress on one territory.
// A user has at most one active (in_progress) territory at a time.
type TerritoryProgress struct {
	UserID      uuid.UUID       `json:"user_id"`
	TerritoryID uuid.UUID       `json:"territory_id"`
	Level       int             `json:"level"`
	CurrentXP   int             `json:"current_xp"`
	Status      TerritoryStatus `json:"status"`
	Version     int64           `json:"version"` // Optimistic concurrency token for read-modify-write updates.
	UpdatedAt   time.Time       `json:"updated_at"`
}
