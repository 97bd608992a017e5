package storage_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arisehq/arise/internal/model"
	"github.com/arisehq/arise/internal/storage"
	"github.com/arisehq/arise/internal/testutil"
)

// testDB holds a shared test database connection for all tests in this package.
var testDB *storage.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	tc := testutil.MustStartPostgres()

	var err error
	testDB, err = tc.NewTestDB(ctx, testutil.TestLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create test DB: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	testDB.Close(ctx)
	tc.Terminate()
	os.Exit(code)
}

// createTestUser inserts a user with its profile and stats rows.
func createTestUser(t *testing.T) model.User {
	t.Helper()
	user := model.User{
		ID:         uuid.New(),
		Name:       "Test User",
		Role:       model.RoleUser,
		APIKeyHash: "$argon2id$v=19$m=65536,t=1,p=4$dGVzdA$dGVzdA",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, testDB.CreateUser(context.Background(), user, 3, 50))
	return user
}

// dateUTC builds a calendar date the way the services do.
func dateUTC(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func actionEvent(userID uuid.UUID, typ model.EventType, xp int, date time.Time) model.LedgerEvent {
	return model.LedgerEvent{
		ID:        uuid.New(),
		UserID:    userID,
		EventType: typ,
		XPAmount:  xp,
		EventDate: date,
		CreatedAt: time.Now().UTC(),
	}
}

func TestCreateUserInitializesProfileAndStats(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)

	got, err := testDB.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Name, got.Name)
	assert.Equal(t, model.RoleUser, got.Role)

	profile, err := testDB.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, profile.DailyActionsTarget)
	assert.Equal(t, 50, profile.PenaltyXP)
	assert.Zero(t, profile.StreakCurrent)

	stats, err := testDB.GetStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Level)
	assert.Zero(t, stats.CurrentXP)
}

func TestGetUserNotFound(t *testing.T) {
	_, err := testDB.GetUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestApplyRewardWritesEventAndStats(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	today := dateUTC(2026, time.March, 2)

	stats, err := testDB.GetStats(ctx, user.ID)
	require.NoError(t, err)
	stats.CurrentXP = 55
	stats.TotalXPEarned = 55

	_, err = testDB.ApplyReward(ctx, storage.RewardWrite{
		Event: actionEvent(user.ID, model.EventTask, 55, today),
		Stats: stats,
	})
	require.NoError(t, err)

	count, err := testDB.CountActionsOnDate(ctx, user.ID, today)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := testDB.GetStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 55, got.CurrentXP)
	assert.Equal(t, 55, got.TotalXPEarned)
}

func TestApplyRewardCheckinOncePerDay(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	today := dateUTC(2026, time.March, 3)

	stats, err := testDB.GetStats(ctx, user.ID)
	require.NoError(t, err)
	profile, err := testDB.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	profile.StreakCurrent = 1
	profile.StreakBest = 1

	checkin := actionEvent(user.ID, model.EventStreakCheckin, 0, today)
	applied, err := testDB.ApplyReward(ctx, storage.RewardWrite{
		Event:   actionEvent(user.ID, model.EventTask, 10, today),
		Stats:   stats,
		Checkin: &checkin,
		Profile: &profile,
	})
	require.NoError(t, err)
	assert.True(t, applied.Checkin, "first checkin of the day should apply")

	// A second session racing the same day loses the guarded insert and
	// must not touch the profile.
	profile.StreakCurrent = 99
	checkin2 := actionEvent(user.ID, model.EventStreakCheckin, 0, today)
	applied, err = testDB.ApplyReward(ctx, storage.RewardWrite{
		Event:   actionEvent(user.ID, model.EventTask, 10, today),
		Stats:   stats,
		Checkin: &checkin2,
		Profile: &profile,
	})
	require.NoError(t, err)
	assert.False(t, applied.Checkin, "second checkin of the day should be refused")

	got, err := testDB.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StreakCurrent, "losing checkin must not update the profile")
}

func TestApplyRewardPerkBonusOncePerDay(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	today := dateUTC(2026, time.March, 7)

	stats, err := testDB.GetStats(ctx, user.ID)
	require.NoError(t, err)
	stats.Gold = 115
	stats.TotalGoldEarned = 115

	sale := actionEvent(user.ID, model.EventSale, 0, today)
	sale.GoldAmount = 115
	perk := actionEvent(user.ID, model.EventPerkBonus, 0, today)
	perk.GoldAmount = 15
	applied, err := testDB.ApplyReward(ctx, storage.RewardWrite{
		Event: sale,
		Stats: stats,
		Perk:  &perk,
	})
	require.NoError(t, err)
	assert.True(t, applied.Perk, "first target bonus of the day should apply")

	// A second write the same day loses the guarded insert; the bonus
	// gold must be stripped from both the event and the stats.
	stats.Gold = 230
	stats.TotalGoldEarned = 230
	sale2 := actionEvent(user.ID, model.EventSale, 0, today)
	sale2.GoldAmount = 115
	perk2 := actionEvent(user.ID, model.EventPerkBonus, 0, today)
	perk2.GoldAmount = 15
	applied, err = testDB.ApplyReward(ctx, storage.RewardWrite{
		Event: sale2,
		Stats: stats,
		Perk:  &perk2,
	})
	require.NoError(t, err)
	assert.False(t, applied.Perk, "second target bonus of the day should be refused")

	gotStats, err := testDB.GetStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 215, gotStats.Gold)
	assert.Equal(t, 215, gotStats.TotalGoldEarned)

	events, err := testDB.ListLedgerEvents(ctx, user.ID, nil, 10)
	require.NoError(t, err)
	perkCount := 0
	for _, e := range events {
		if e.EventType == model.EventPerkBonus {
			perkCount++
		}
		if e.ID == sale2.ID {
			assert.Equal(t, 100, e.GoldAmount, "losing write persists the reward without the bonus")
		}
	}
	assert.Equal(t, 1, perkCount, "only one perk_bonus row per day")
}

func TestApplyReconciliationGuardIsIdempotent(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	yesterday := dateUTC(2026, time.March, 4)

	profile, err := testDB.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	stats, err := testDB.GetStats(ctx, user.ID)
	require.NoError(t, err)

	profile.ConsecutiveMisses = 1
	stats.CurrentXP = 0
	stats.TotalXPLost = 50

	guard := model.LedgerEvent{
		ID:        uuid.New(),
		UserID:    user.ID,
		EventType: model.EventPenaltyMiss,
		XPAmount:  -50,
		EventDate: yesterday,
		CreatedAt: time.Now().UTC(),
	}
	applied, err := testDB.ApplyReconciliation(ctx, guard, &profile, &stats)
	require.NoError(t, err)
	assert.True(t, applied)

	// Replaying the same day is a no-op: the guard loses and nothing is written.
	profile.ConsecutiveMisses = 7
	guard.ID = uuid.New()
	applied, err = testDB.ApplyReconciliation(ctx, guard, &profile, &stats)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := testDB.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ConsecutiveMisses)

	has, err := testDB.HasDailyEvent(ctx, user.ID, yesterday, model.EventPenaltyMiss, model.EventStreakShield)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestApplyPassiveGoldOncePerDay(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	today := dateUTC(2026, time.March, 5)

	event := actionEvent(user.ID, model.EventSkillPassive, 0, today)
	event.GoldAmount = 20
	applied, err := testDB.ApplyPassiveGold(ctx, event, 20)
	require.NoError(t, err)
	assert.True(t, applied)

	event.ID = uuid.New()
	applied, err = testDB.ApplyPassiveGold(ctx, event, 20)
	require.NoError(t, err)
	assert.False(t, applied, "passive gold grants at most once per day")

	stats, err := testDB.GetStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.Gold)
	assert.Equal(t, 20, stats.TotalGoldEarned)
}

func TestCountEventsInRange(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)

	for day := 1; day <= 3; day++ {
		e := actionEvent(user.ID, model.EventStreakShield, 0, dateUTC(2026, time.April, day))
		_, err := testDB.ApplyReconciliation(ctx, e, nil, nil)
		require.NoError(t, err)
	}

	n, err := testDB.CountEventsInRange(ctx, user.ID, model.EventStreakShield,
		dateUTC(2026, time.April, 1), dateUTC(2026, time.April, 30))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// The range is half-open: [from, to).
	n, err = testDB.CountEventsInRange(ctx, user.ID, model.EventStreakShield,
		dateUTC(2026, time.April, 2), dateUTC(2026, time.April, 3))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListLedgerEventsPagination(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	date := dateUTC(2026, time.March, 6)

	for i := range 5 {
		e := actionEvent(user.ID, model.EventAction, 10+i, date)
		e.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, testDB.InsertLedgerEvent(ctx, e))
	}

	first, err := testDB.ListLedgerEvents(ctx, user.ID, nil, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)

	cursor := first[len(first)-1].ID
	rest, err := testDB.ListLedgerEvents(ctx, user.ID, &cursor, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)

	// No overlap between pages, newest first.
	seen := map[uuid.UUID]bool{}
	for _, e := range append(first, rest...) {
		assert.False(t, seen[e.ID], "event %s appeared twice", e.ID)
		seen[e.ID] = true
	}
	assert.True(t, !first[0].CreatedAt.Before(first[2].CreatedAt))
}

func TestTerritoryActivateAndAdvance(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)

	territories, err := testDB.ListTerritories(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, territories, "seed migration should provide territories")
	terr := territories[0]

	progress, err := testDB.ActivateTerritory(ctx, user.ID, terr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TerritoryInProgress, progress.Status)

	activeID, err := testDB.ActiveTerritoryID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, activeID)
	assert.Equal(t, terr.ID, *activeID)

	// Advance with the version we read.
	progress.CurrentXP = 42
	require.NoError(t, testDB.UpdateTerritoryProgress(ctx, progress, progress.Version, false))

	// A writer holding the stale version loses.
	err = testDB.UpdateTerritoryProgress(ctx, progress, progress.Version, false)
	assert.ErrorIs(t, err, storage.ErrVersionConflict)

	got, err := testDB.GetTerritoryProgress(ctx, user.ID, terr.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, got.CurrentXP)
}

func TestTerritoryCaptureClearsActiveAndLocks(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)

	territories, err := testDB.ListTerritories(ctx)
	require.NoError(t, err)
	terr := territories[0]

	progress, err := testDB.ActivateTerritory(ctx, user.ID, terr.ID)
	require.NoError(t, err)

	progress.Level = terr.MaxLevel
	progress.CurrentXP = 0
	progress.Status = model.TerritoryCaptured
	require.NoError(t, testDB.UpdateTerritoryProgress(ctx, progress, progress.Version, true))

	activeID, err := testDB.ActiveTerritoryID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, activeID, "capture should clear the active pointer")

	// Captured territories cannot be re-activated.
	_, err = testDB.ActivateTerritory(ctx, user.ID, terr.ID)
	assert.ErrorIs(t, err, storage.ErrVersionConflict)
}

func TestIncrementAllocation(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)

	// First point: insert path.
	level, err := testDB.IncrementAllocation(ctx, user.ID, "iron_will", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, level)

	// Racing insert with the same observed level conflicts.
	_, err = testDB.IncrementAllocation(ctx, user.ID, "iron_will", 0)
	assert.ErrorIs(t, err, storage.ErrVersionConflict)

	// Second point: update path with the current level.
	level, err = testDB.IncrementAllocation(ctx, user.ID, "iron_will", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, level)

	allocations, err := testDB.GetAllocations(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"iron_will": 2}, allocations)
}

func TestWithRetryRecoversFromVersionConflict(t *testing.T) {
	ctx := context.Background()

	attempts := 0
	err := storage.WithRetry(ctx, 3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return storage.ErrVersionConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryGivesUpAndStopsOnPermanentErrors(t *testing.T) {
	ctx := context.Background()

	err := storage.WithRetry(ctx, 2, time.Millisecond, func() error {
		return storage.ErrVersionConflict
	})
	assert.ErrorIs(t, err, storage.ErrVersionConflict)

	permanent := errors.New("column does not exist")
	attempts := 0
	err = storage.WithRetry(ctx, 5, time.Millisecond, func() error {
		attempts++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts, "permanent errors should not be retried")
}
