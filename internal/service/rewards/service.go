// Package rewards records user actions: it aggregates skill effects,
// runs the reward pipeline, persists the ledger event and derived stats
// atomically, performs the first-action-of-day streak check-in, and
// routes a share of the XP to the active territory.
//
// Both the HTTP API and MCP server delegate to this service.
package rewards

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/arisehq/arise/internal/model"
	"github.com/arisehq/arise/internal/progression"
	"github.com/arisehq/arise/internal/reward"
	"github.com/arisehq/arise/internal/service/territory"
	"github.com/arisehq/arise/internal/skills"
	"github.com/arisehq/arise/internal/storage"
	"github.com/arisehq/arise/internal/telemetry"
)

// Service encapsulates the record-action flow shared by HTTP and MCP
// handlers.
type Service struct {
	db        *storage.DB
	graph     *skills.Graph
	territory *territory.Service
	logger    *slog.Logger
	loc       *time.Location
	rng       reward.RNG

	actionsRecorded metric.Int64Counter
	crits           metric.Int64Counter
}

// New creates a rewards Service. loc is the reporting timezone used to
// bucket events into calendar days; rng drives the crit roll and may be
// fixed under test.
func New(db *storage.DB, graph *skills.Graph, territorySvc *territory.Service, loc *time.Location, rng reward.RNG, logger *slog.Logger) *Service {
	meter := telemetry.Meter("arise/rewards")
	recorded, _ := meter.Int64Counter("arise.actions.recorded",
		metric.WithDescription("Actions recorded"),
	)
	crits, _ := meter.Int64Counter("arise.actions.crits",
		metric.WithDescription("Critical hits rolled"),
	)
	return &Service{
		db:              db,
		graph:           graph,
		territory:       territorySvc,
		logger:          logger,
		loc:             loc,
		rng:             rng,
		actionsRecorded: recorded,
		crits:           crits,
	}
}

// RecordResult is the outcome of recording one action.
type RecordResult struct {
	Event          model.LedgerEvent    `json:"event"`
	Reward         reward.Result        `json:"reward"`
	Stats          model.CharacterStats `json:"stats"`
	LevelsGained   int                  `json:"levels_gained"`
	StreakCheckin  bool                 `json:"streak_checkin"`
	Profile        model.Profile        `json:"profile"`
	Territory      *territory.Result    `json:"territory,omitempty"`
	SkillPointsNew int                  `json:"skill_points_new"`
}

// RecordAction runs the full reward flow for one action at time now.
//
// The ledger event, stats update, and (when this is the first action of
// the day) the streak check-in are committed in one transaction.
// Territory routing happens after commit: its XP is derived from an
// already-persisted reward, and a failure there must not take the
// reward down with it.
func (s *Service) RecordAction(ctx context.Context, userID uuid.UUID, req model.RecordActionRequest, now time.Time) (RecordResult, error) {
	if err := req.Validate(); err != nil {
		return RecordResult{}, err
	}
	actionType := model.EventType(req.ActionType)
	today := model.DateIn(now, s.loc)

	allocations, err := s.db.GetAllocations(ctx, userID)
	if err != nil {
		return RecordResult{}, fmt.Errorf("record action: %w", err)
	}
	effects := s.graph.Aggregate(allocations)

	profile, err := s.db.GetProfile(ctx, userID)
	if err != nil {
		return RecordResult{}, fmt.Errorf("record action: %w", err)
	}
	stats, err := s.db.GetStats(ctx, userID)
	if err != nil {
		return RecordResult{}, fmt.Errorf("record action: %w", err)
	}
	todayCount, err := s.db.CountActionsOnDate(ctx, userID, today)
	if err != nil {
		return RecordResult{}, fmt.Errorf("record action: %w", err)
	}

	baseXP := req.BaseXP
	if actionType == model.EventBossKilled {
		baseXP = reward.ApplyBossDamageBonus(baseXP, effects)
	}

	// The target completion bonus is once per day; the perk_bonus guard
	// event in the ledger says whether today's grant already happened.
	targetBonusPaid := false
	if effects.Get(skills.EffectGoldBonusFlat) > 0 {
		targetBonusPaid, err = s.db.HasDailyEvent(ctx, userID, today, model.EventPerkBonus)
		if err != nil {
			return RecordResult{}, fmt.Errorf("record action: %w", err)
		}
	}

	computed := reward.Compute(baseXP, req.BaseGold, effects, reward.Context{
		ActionType:       actionType,
		Hour:             now.In(s.loc).Hour(),
		TodayActionCount: todayCount,
		CurrentStreak:    profile.StreakCurrent,
		DailyTarget:      profile.DailyActionsTarget,
		TargetBonusPaid:  targetBonusPaid,
	}, s.rng)

	newLevel, newXP, levelsGained := progression.CharacterLevelUp(stats.Level, stats.CurrentXP, computed.FinalXP)
	stats.Level = newLevel
	stats.CurrentXP = newXP
	stats.TotalXPEarned += computed.FinalXP
	stats.Gold += computed.FinalGold
	stats.TotalGoldEarned += computed.FinalGold

	write := storage.RewardWrite{
		Event: model.LedgerEvent{
			ID:          uuid.New(),
			UserID:      userID,
			EventType:   actionType,
			XPAmount:    computed.FinalXP,
			GoldAmount:  computed.FinalGold,
			EventDate:   today,
			Description: req.Description,
			CreatedAt:   now,
		},
		Stats: stats,
	}

	if computed.TargetGold > 0 {
		write.Perk = &model.LedgerEvent{
			ID:          uuid.New(),
			UserID:      userID,
			EventType:   model.EventPerkBonus,
			GoldAmount:  computed.TargetGold,
			EventDate:   today,
			Description: fmt.Sprintf("daily target of %d reached", profile.DailyActionsTarget),
			CreatedAt:   now,
		}
	}

	if todayCount == 0 {
		checkin, updated, err := s.buildCheckin(ctx, userID, profile, today, now)
		if err != nil {
			return RecordResult{}, fmt.Errorf("record action: %w", err)
		}
		write.Checkin = &checkin
		write.Profile = &updated
	}

	applied, err := s.db.ApplyReward(ctx, write)
	if err != nil {
		return RecordResult{}, fmt.Errorf("record action: %w", err)
	}
	if applied.Checkin {
		profile = *write.Profile
	}
	if write.Perk != nil && !applied.Perk {
		// A concurrent session banked the target bonus between our
		// ledger read and the commit. Storage already stripped the gold
		// from the persisted event and stats; mirror that here.
		write.Event.GoldAmount -= write.Perk.GoldAmount
		computed.FinalGold -= write.Perk.GoldAmount
		computed.TargetGold = 0
		stats.Gold -= write.Perk.GoldAmount
		stats.TotalGoldEarned -= write.Perk.GoldAmount
	}

	s.actionsRecorded.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event_type", string(actionType))))
	if computed.IsCrit {
		s.crits.Add(ctx, 1)
	}

	// The territory share is cut from the final XP, bonuses and crits
	// included, so territory progress tracks what the user actually earned.
	terrResult, err := s.territory.OnRewardEarned(ctx, userID, computed.FinalXP)
	if err != nil {
		// Reward is committed; territory credit is recoverable on the
		// next action. Log and return the reward anyway.
		s.logger.Error("record action: territory routing failed",
			"error", err, "user_id", userID)
	}

	s.notifyReward(ctx, userID, write.Event, computed, levelsGained)

	if levelsGained > 0 {
		s.logger.Info("level up",
			"user_id", userID, "level", stats.Level, "levels_gained", levelsGained)
	}

	return RecordResult{
		Event:          write.Event,
		Reward:         computed,
		Stats:          stats,
		LevelsGained:   levelsGained,
		StreakCheckin:  applied.Checkin,
		Profile:        profile,
		Territory:      terrResult,
		SkillPointsNew: levelsGained,
	}, nil
}

// buildCheckin prepares the first-action-of-day streak transition: the
// streak extends when yesterday had at least one action, otherwise it
// restarts at 1. Applied via a guarded insert so only one concurrent
// session wins.
func (s *Service) buildCheckin(ctx context.Context, userID uuid.UUID, profile model.Profile, today, now time.Time) (model.LedgerEvent, model.Profile, error) {
	yesterday := today.AddDate(0, 0, -1)
	yesterdayCount, err := s.db.CountActionsOnDate(ctx, userID, yesterday)
	if err != nil {
		return model.LedgerEvent{}, model.Profile{}, err
	}

	if yesterdayCount > 0 {
		profile.StreakCurrent++
	} else {
		profile.StreakCurrent = 1
	}
	if profile.StreakCurrent > profile.StreakBest {
		profile.StreakBest = profile.StreakCurrent
	}
	profile.ConsecutiveMisses = 0

	checkin := model.LedgerEvent{
		ID:          uuid.New(),
		UserID:      userID,
		EventType:   model.EventStreakCheckin,
		EventDate:   today,
		Description: fmt.Sprintf("streak day %d", profile.StreakCurrent),
		CreatedAt:   now,
	}
	return checkin, profile, nil
}

// notifyReward publishes the reward for SSE subscribers. Non-fatal.
func (s *Service) notifyReward(ctx context.Context, userID uuid.UUID, event model.LedgerEvent, computed reward.Result, levelsGained int) {
	payload, err := json.Marshal(map[string]any{
		"kind":          "reward",
		"user_id":       userID,
		"event_type":    event.EventType,
		"xp":            computed.FinalXP,
		"gold":          computed.FinalGold,
		"is_crit":       computed.IsCrit,
		"levels_gained": levelsGained,
	})
	if err != nil {
		s.logger.Error("record action: marshal reward notify", "error", err)
		return
	}
	if err := s.db.Notify(ctx, storage.ChannelRewards, string(payload)); err != nil {
		s.logger.Error("record action: notify reward", "error", err)
	}
}
