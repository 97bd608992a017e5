// Package territory routes a share of every earned reward into the
// user's active territory and handles activation.
//
// Progress math lives in internal/progression; this service owns the
// read-modify-write cycle against storage, retried on version conflicts
// so concurrent rewards cannot lose an update.
package territory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/arisehq/arise/internal/model"
	"github.com/arisehq/arise/internal/progression"
	"github.com/arisehq/arise/internal/storage"
	"github.com/arisehq/arise/internal/telemetry"
)

// ErrCaptured is returned when activating a territory the user has
// already captured.
var ErrCaptured = errors.New("territory already captured")

// Result describes the territory side effect of one reward.
type Result struct {
	TerritoryID  uuid.UUID               `json:"territory_id"`
	CreditedXP   int                     `json:"credited_xp"`
	LevelsGained int                     `json:"levels_gained"`
	Captured     bool                    `json:"captured"`
	Progress     model.TerritoryProgress `json:"progress"`
}

// Service orchestrates territory activation and XP routing.
type Service struct {
	db     *storage.DB
	logger *slog.Logger

	captures metric.Int64Counter
}

// New creates a territory Service.
func New(db *storage.DB, logger *slog.Logger) *Service {
	meter := telemetry.Meter("arise/territory")
	captures, _ := meter.Int64Counter("arise.territory.captures",
		metric.WithDescription("Territories captured"),
	)
	return &Service{db: db, logger: logger, captures: captures}
}

// Activate makes territoryID the user's active territory, creating or
// resuming its progress record. Captured territories cannot be
// reactivated.
func (s *Service) Activate(ctx context.Context, userID, territoryID uuid.UUID) (model.TerritoryProgress, error) {
	if _, err := s.db.GetTerritory(ctx, territoryID); err != nil {
		return model.TerritoryProgress{}, err
	}
	progress, err := s.db.ActivateTerritory(ctx, userID, territoryID)
	if errors.Is(err, storage.ErrVersionConflict) {
		return model.TerritoryProgress{}, ErrCaptured
	}
	if err != nil {
		return model.TerritoryProgress{}, err
	}
	return progress, nil
}

// OnRewardEarned credits 20% of an earned reward's XP to the user's
// active territory. earnedXP is the reward's final XP, after bonuses
// and crits, not the raw base. Returns nil when there is no active
// territory or the credit rounds to zero.
func (s *Service) OnRewardEarned(ctx context.Context, userID uuid.UUID, earnedXP int) (*Result, error) {
	credit := progression.TerritoryCredit(earnedXP)
	if credit <= 0 {
		return nil, nil
	}

	activeID, err := s.db.ActiveTerritoryID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if activeID == nil {
		return nil, nil
	}

	territory, err := s.db.GetTerritory(ctx, *activeID)
	if err != nil {
		return nil, err
	}

	var result *Result
	err = storage.WithRetry(ctx, 3, 25*time.Millisecond, func() error {
		progress, err := s.db.GetTerritoryProgress(ctx, userID, *activeID)
		if err != nil {
			return err
		}
		if progress.Status != model.TerritoryInProgress {
			result = nil
			return nil
		}

		adv := progression.AdvanceTerritory(progress, territory, credit)
		if err := s.db.UpdateTerritoryProgress(ctx, adv.Progress, progress.Version, adv.Captured); err != nil {
			return err
		}
		result = &Result{
			TerritoryID:  *activeID,
			CreditedXP:   credit,
			LevelsGained: adv.LevelsGained,
			Captured:     adv.Captured,
			Progress:     adv.Progress,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("territory: credit reward: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	if result.Captured {
		s.captures.Add(ctx, 1)
		s.logger.Info("territory captured",
			"user_id", userID, "territory_id", *activeID, "name", territory.Name)
		s.notifyCapture(ctx, userID, territory)
	}
	return result, nil
}

// notifyCapture publishes a capture notification for SSE subscribers.
// Non-fatal: the reward is already committed.
func (s *Service) notifyCapture(ctx context.Context, userID uuid.UUID, t model.Territory) {
	payload, err := json.Marshal(map[string]any{
		"kind":         "territory_captured",
		"user_id":      userID,
		"territory_id": t.ID,
		"name":         t.Name,
	})
	if err != nil {
		s.logger.Error("territory: marshal capture notify", "error", err)
		return
	}
	if err := s.db.Notify(ctx, storage.ChannelProgress, string(payload)); err != nil {
		s.logger.Error("territory: notify capture", "error", err)
	}
}
