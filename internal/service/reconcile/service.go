// Package reconcile closes out the previous calendar day for a user:
// shield consumption, miss penalties, the level-down cascade, and the
// daily passive gold grant.
//
// The reconciler is invoked lazily at session start and must be safe to
// invoke any number of times. Idempotency comes from the ledger: each
// once-per-day effect is written through a guarded insert backed by a
// partial unique index, and the guard insert shares a transaction with
// every derived-state write it implies.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/arisehq/arise/internal/model"
	"github.com/arisehq/arise/internal/progression"
	"github.com/arisehq/arise/internal/reward"
	"github.com/arisehq/arise/internal/skills"
	"github.com/arisehq/arise/internal/storage"
	"github.com/arisehq/arise/internal/telemetry"
)

// Outcome reports what a reconciliation run did. A second run for the
// same day yields the zero Outcome.
type Outcome struct {
	Shielded    bool `json:"shielded"`
	Penalized   bool `json:"penalized"`
	PenaltyXP   int  `json:"penalty_xp,omitempty"`
	LeveledDown bool `json:"leveled_down"`
	PassiveGold int  `json:"passive_gold,omitempty"`
}

// Service runs the once-per-day reconciliation.
type Service struct {
	db     *storage.DB
	graph  *skills.Graph
	logger *slog.Logger
	loc    *time.Location

	runs metric.Int64Counter
}

// New creates a reconcile Service. loc is the reporting timezone.
func New(db *storage.DB, graph *skills.Graph, loc *time.Location, logger *slog.Logger) *Service {
	meter := telemetry.Meter("arise/reconcile")
	runs, _ := meter.Int64Counter("arise.reconcile.runs",
		metric.WithDescription("Reconciliation runs by outcome"),
	)
	return &Service{db: db, graph: graph, logger: logger, loc: loc, runs: runs}
}

// Run reconciles yesterday for userID and grants today's passive gold.
//
// Yesterday's branch: at or above target is a no-op; a zero-action day
// with shield capacity consumes a shield; anything else applies the
// miss penalty and, on the third consecutive miss, a level-down. The
// shield and penalty paths are mutually exclusive per day.
func (s *Service) Run(ctx context.Context, userID uuid.UUID, now time.Time) (Outcome, error) {
	today := model.DateIn(now, s.loc)
	yesterday := today.AddDate(0, 0, -1)

	allocations, err := s.db.GetAllocations(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("reconcile: %w", err)
	}
	effects := s.graph.Aggregate(allocations)

	var outcome Outcome

	closed, err := s.db.HasDailyEvent(ctx, userID, yesterday,
		model.EventPenaltyMiss, model.EventStreakShield)
	if err != nil {
		return Outcome{}, fmt.Errorf("reconcile: %w", err)
	}
	if !closed {
		outcome, err = s.reconcileYesterday(ctx, userID, yesterday, now, effects)
		if err != nil {
			return Outcome{}, err
		}
	}

	passive, err := s.grantPassiveGold(ctx, userID, today, now, effects)
	if err != nil {
		return Outcome{}, err
	}
	outcome.PassiveGold = passive

	s.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("shielded", outcome.Shielded),
		attribute.Bool("penalized", outcome.Penalized),
	))
	return outcome, nil
}

func (s *Service) reconcileYesterday(ctx context.Context, userID uuid.UUID, yesterday, now time.Time, effects skills.EffectTotals) (Outcome, error) {
	profile, err := s.db.GetProfile(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("reconcile: %w", err)
	}
	count, err := s.db.CountActionsOnDate(ctx, userID, yesterday)
	if err != nil {
		return Outcome{}, fmt.Errorf("reconcile: %w", err)
	}
	if count >= profile.DailyActionsTarget {
		return Outcome{}, nil
	}

	if count == 0 {
		if ok, err := s.tryShield(ctx, userID, yesterday, now, effects); err != nil {
			return Outcome{}, err
		} else if ok {
			s.logger.Info("shield consumed", "user_id", userID, "date", yesterday.Format("2006-01-02"))
			return Outcome{Shielded: true}, nil
		}
	}

	return s.applyPenalty(ctx, userID, profile, count, yesterday, now, effects)
}

// tryShield consumes a streak shield for a zero-action day if the
// user's skills grant any and the monthly cap has headroom. The shield
// waives the whole miss: streak and stats stay untouched.
func (s *Service) tryShield(ctx context.Context, userID uuid.UUID, yesterday, now time.Time, effects skills.EffectTotals) (bool, error) {
	shieldDays := reward.StreakShieldDays(effects)
	if shieldDays <= 0 {
		return false, nil
	}

	monthStart := time.Date(yesterday.Year(), yesterday.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	used, err := s.db.CountEventsInRange(ctx, userID, model.EventStreakShield, monthStart, monthEnd)
	if err != nil {
		return false, fmt.Errorf("reconcile: %w", err)
	}
	if used >= shieldDays {
		return false, nil
	}

	guard := model.LedgerEvent{
		ID:          uuid.New(),
		UserID:      userID,
		EventType:   model.EventStreakShield,
		EventDate:   yesterday,
		Description: "streak shield consumed",
		CreatedAt:   now,
	}
	applied, err := s.db.ApplyReconciliation(ctx, guard, nil, nil)
	if err != nil {
		return false, fmt.Errorf("reconcile: %w", err)
	}
	// applied=false means a concurrent session shielded or penalized
	// the day first; either way the day is closed.
	return applied, nil
}

func (s *Service) applyPenalty(ctx context.Context, userID uuid.UUID, profile model.Profile, yesterdayCount int, yesterday, now time.Time, effects skills.EffectTotals) (Outcome, error) {
	stats, err := s.db.GetStats(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("reconcile: %w", err)
	}

	penalty := reward.ApplyPenaltyReduction(profile.PenaltyXP, effects)
	profile.ConsecutiveMisses++
	if yesterdayCount == 0 {
		// Only a fully idle day zeroes the streak. A below-target day
		// still counts as a miss but leaves the streak standing.
		profile.StreakCurrent = 0
	}
	stats.TotalXPLost += penalty

	outcome := Outcome{Penalized: true, PenaltyXP: penalty}
	if profile.ConsecutiveMisses >= 3 {
		stats.Level = progression.CharacterLevelDown(stats.Level)
		stats.CurrentXP = 0
		profile.ConsecutiveMisses = 0
		outcome.LeveledDown = true
	}

	guard := model.LedgerEvent{
		ID:          uuid.New(),
		UserID:      userID,
		EventType:   model.EventPenaltyMiss,
		XPAmount:    -penalty,
		EventDate:   yesterday,
		Description: fmt.Sprintf("missed daily target (%d/%d)", yesterdayCount, profile.DailyActionsTarget),
		CreatedAt:   now,
	}
	applied, err := s.db.ApplyReconciliation(ctx, guard, &profile, &stats)
	if err != nil {
		return Outcome{}, fmt.Errorf("reconcile: %w", err)
	}
	if !applied {
		return Outcome{}, nil
	}

	s.logger.Info("miss penalty applied",
		"user_id", userID,
		"date", yesterday.Format("2006-01-02"),
		"penalty_xp", penalty,
		"leveled_down", outcome.LeveledDown)
	return outcome, nil
}

// grantPassiveGold grants today's skill-derived passive gold once.
func (s *Service) grantPassiveGold(ctx context.Context, userID uuid.UUID, today, now time.Time, effects skills.EffectTotals) (int, error) {
	gold := reward.DailyPassiveGold(effects)
	if gold <= 0 {
		return 0, nil
	}

	event := model.LedgerEvent{
		ID:          uuid.New(),
		UserID:      userID,
		EventType:   model.EventSkillPassive,
		GoldAmount:  gold,
		EventDate:   today,
		Description: "daily passive gold",
		CreatedAt:   now,
	}
	applied, err := s.db.ApplyPassiveGold(ctx, event, gold)
	if err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}
	if !applied {
		return 0, nil
	}
	return gold, nil
}
