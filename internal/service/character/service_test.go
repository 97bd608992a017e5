package character_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arisehq/arise/internal/model"
	"github.com/arisehq/arise/internal/service/character"
	"github.com/arisehq/arise/internal/skills"
	"github.com/arisehq/arise/internal/storage"
	"github.com/arisehq/arise/internal/testutil"
)

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

func newService() *character.Service {
	return character.New(testDB, skills.Default(), testutil.TestLogger())
}

// createTestUser inserts a user at the given character level.
func createTestUser(t *testing.T, level int) model.User {
	t.Helper()
	ctx := context.Background()
	user := model.User{
		ID:         uuid.New(),
		Name:       "Character User",
		Role:       model.RoleUser,
		APIKeyHash: "$argon2id$v=19$m=65536,t=1,p=4$dGVzdA$dGVzdA",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, testDB.CreateUser(ctx, user, 3, 50))

	if level > 1 {
		stats, err := testDB.GetStats(ctx, user.ID)
		require.NoError(t, err)
		stats.Level = level
		_, err = testDB.ApplyReward(ctx, storage.RewardWrite{
			Event: model.LedgerEvent{
				ID:        uuid.New(),
				UserID:    user.ID,
				EventType: model.EventAction,
				XPAmount:  1000,
				EventDate: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
				CreatedAt: time.Now().UTC(),
			},
			Stats: stats,
		})
		require.NoError(t, err)
	}
	return user
}

func TestSnapshotAssemblesState(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	user := createTestUser(t, 3)

	snap, err := svc.Snapshot(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Stats.Level)
	assert.Equal(t, 3, snap.Profile.DailyActionsTarget)
	assert.Equal(t, 2, snap.AvailablePoints, "one point per level past the first")
	assert.Empty(t, snap.Effects)
	assert.Nil(t, snap.ActiveTerritory)
	assert.False(t, snap.GeneratedAt.IsZero())
}

func TestAllocateSpendsPointsInOrder(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	user := createTestUser(t, 3) // two points to spend

	result, check, err := svc.Allocate(ctx, user.ID, "iron_will")
	require.NoError(t, err)
	require.True(t, check.Allowed)
	assert.Equal(t, 1, result.NewLevel)
	assert.Equal(t, 1, result.AvailablePoints)
	assert.NotEmpty(t, result.Effects)

	// daily_grind requires iron_will, now satisfied.
	result, check, err = svc.Allocate(ctx, user.ID, "daily_grind")
	require.NoError(t, err)
	require.True(t, check.Allowed)
	assert.Equal(t, 1, result.NewLevel)
	assert.Zero(t, result.AvailablePoints)

	// Budget exhausted.
	_, check, err = svc.Allocate(ctx, user.ID, "iron_will")
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	assert.Equal(t, skills.DenyNoPointsAvailable, check.Reason)
}

func TestAllocateRefusalsDoNotMutate(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	user := createTestUser(t, 2) // one point

	_, check, err := svc.Allocate(ctx, user.ID, "no_such_skill")
	require.NoError(t, err)
	assert.Equal(t, skills.DenyNotFound, check.Reason)

	// daily_grind is gated on iron_will.
	_, check, err = svc.Allocate(ctx, user.ID, "daily_grind")
	require.NoError(t, err)
	assert.Equal(t, skills.DenyPrerequisiteUnmet, check.Reason)
	assert.Equal(t, "iron_will", check.Prerequisite)

	allocations, err := testDB.GetAllocations(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, allocations, "refused allocations must not write")
}

func TestSkillsListsEveryNodeWithStatus(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	user := createTestUser(t, 2)

	resp, err := svc.Skills(ctx, user.ID)
	require.NoError(t, err)

	assert.Len(t, resp.Skills, len(skills.Default().Nodes()))
	assert.Equal(t, 1, resp.AvailablePoints)
	assert.Zero(t, resp.AllocatedPoints)

	byID := map[string]character.SkillView{}
	for _, v := range resp.Skills {
		byID[v.Node.ID] = v
	}
	assert.True(t, byID["iron_will"].Status.Allowed, "root nodes are allocatable")
	assert.Equal(t, skills.DenyPrerequisiteUnmet, byID["daily_grind"].Status.Reason)
}
