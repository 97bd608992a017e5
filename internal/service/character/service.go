// Package character assembles read-side snapshots of a user's
// progression state and handles skill point allocation.
package character

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arisehq/arise/internal/model"
	"github.com/arisehq/arise/internal/progression"
	"github.com/arisehq/arise/internal/skills"
	"github.com/arisehq/arise/internal/storage"
)

// Service serves character, skill, and territory snapshots.
type Service struct {
	db     *storage.DB
	graph  *skills.Graph
	logger *slog.Logger
}

// New creates a character Service.
func New(db *storage.DB, graph *skills.Graph, logger *slog.Logger) *Service {
	return &Service{db: db, graph: graph, logger: logger}
}

// Snapshot is the full progression state returned at session start and
// by the character endpoint.
type Snapshot struct {
	Stats           model.CharacterStats      `json:"stats"`
	Profile         model.Profile             `json:"profile"`
	Effects         skills.EffectTotals       `json:"effects"`
	AvailablePoints int                       `json:"available_points"`
	Territories     []model.TerritoryProgress `json:"territories"`
	ActiveTerritory *uuid.UUID                `json:"active_territory,omitempty"`
	GeneratedAt     time.Time                 `json:"generated_at"`
}

// Snapshot assembles the user's current state. The independent reads
// run in parallel.
func (s *Service) Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	var snap Snapshot
	var allocations map[string]int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Stats, err = s.db.GetStats(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Profile, err = s.db.GetProfile(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		allocations, err = s.db.GetAllocations(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Territories, err = s.db.ListTerritoryProgress(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.ActiveTerritory, err = s.db.ActiveTerritoryID(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}

	snap.Effects = s.graph.Aggregate(allocations)
	snap.AvailablePoints = availablePoints(snap.Stats.Level, allocations)
	snap.GeneratedAt = time.Now().UTC()
	return snap, nil
}

// SkillView is one graph node with the user's progress on it.
type SkillView struct {
	Node   skills.Node            `json:"node"`
	Level  int                    `json:"level"`
	Status skills.AllocationCheck `json:"status"`
}

// SkillsResponse is the payload of the skills listing.
type SkillsResponse struct {
	Skills          []SkillView `json:"skills"`
	AllocatedPoints int         `json:"allocated_points"`
	AvailablePoints int         `json:"available_points"`
}

// Skills returns every graph node annotated with the user's allocation
// level and whether another point could go into it right now.
func (s *Service) Skills(ctx context.Context, userID uuid.UUID) (SkillsResponse, error) {
	allocations, err := s.db.GetAllocations(ctx, userID)
	if err != nil {
		return SkillsResponse{}, fmt.Errorf("skills: %w", err)
	}
	stats, err := s.db.GetStats(ctx, userID)
	if err != nil {
		return SkillsResponse{}, fmt.Errorf("skills: %w", err)
	}
	available := availablePoints(stats.Level, allocations)

	nodes := s.graph.Nodes()
	views := make([]SkillView, len(nodes))
	for i, node := range nodes {
		views[i] = SkillView{
			Node:   node,
			Level:  allocations[node.ID],
			Status: s.graph.CanAllocate(node.ID, allocations, available),
		}
	}
	return SkillsResponse{
		Skills:          views,
		AllocatedPoints: skills.AllocatedPoints(allocations),
		AvailablePoints: available,
	}, nil
}

// AllocateResult is the outcome of spending one skill point.
type AllocateResult struct {
	SkillID         string              `json:"skill_id"`
	NewLevel        int                 `json:"new_level"`
	AvailablePoints int                 `json:"available_points"`
	Effects         skills.EffectTotals `json:"effects"`
}

// Allocate spends one skill point on skillID. Validation runs against a
// fresh read of the user's allocations; the storage write re-checks the
// observed level so two concurrent allocations cannot both spend the
// same point.
func (s *Service) Allocate(ctx context.Context, userID uuid.UUID, skillID string) (AllocateResult, skills.AllocationCheck, error) {
	var result AllocateResult
	var check skills.AllocationCheck

	err := storage.WithRetry(ctx, 3, 25*time.Millisecond, func() error {
		allocations, err := s.db.GetAllocations(ctx, userID)
		if err != nil {
			return err
		}
		stats, err := s.db.GetStats(ctx, userID)
		if err != nil {
			return err
		}
		available := availablePoints(stats.Level, allocations)

		check = s.graph.CanAllocate(skillID, allocations, available)
		if !check.Allowed {
			return nil
		}

		newLevel, err := s.db.IncrementAllocation(ctx, userID, skillID, allocations[skillID])
		if err != nil {
			return err
		}

		allocations[skillID] = newLevel
		result = AllocateResult{
			SkillID:         skillID,
			NewLevel:        newLevel,
			AvailablePoints: available - 1,
			Effects:         s.graph.Aggregate(allocations),
		}
		return nil
	})
	if err != nil {
		return AllocateResult{}, check, fmt.Errorf("allocate: %w", err)
	}
	if !check.Allowed {
		return AllocateResult{}, check, nil
	}

	s.logger.Info("skill allocated",
		"user_id", userID, "skill_id", skillID, "level", result.NewLevel)
	return result, check, nil
}

// availablePoints is the user's unspent skill point budget: one point
// per character level past the first, minus everything allocated.
func availablePoints(level int, allocations map[string]int) int {
	n := progression.SkillPointsForLevel(level) - skills.AllocatedPoints(allocations)
	if n < 0 {
		n = 0
	}
	return n
}
