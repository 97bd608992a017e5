package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testGraph builds a small graph with known magnitudes so expected
// totals can be computed by hand.
func testGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewGraph([]Node{
		{ID: "root_a", Effects: []Effect{{Type: EffectXPBonusPercent, Base: 10, PerLevel: 5}}},
		{ID: "root_b", Effects: []Effect{{Type: EffectGoldBonusPercent, Base: 20, PerLevel: 10}}},
		{ID: "mid", Requires: []string{"root_a"}, Effects: []Effect{
			{Type: EffectXPBonusPercent, Base: 5, PerLevel: 5},
			{Type: EffectCritChancePercent, Base: 3, PerLevel: 2},
		}},
		{ID: "deep", Requires: []string{"mid", "root_b"}, Effects: []Effect{
			{Type: EffectStreakShieldDays, Base: 1, PerLevel: 1},
		}},
	})
	require.NoError(t, err)
	return g
}

func TestAggregateAdditivity(t *testing.T) {
	g := testGraph(t)

	totals := g.Aggregate(map[string]int{
		"root_a": 3, // 10 + 5*2 = 20
		"mid":    2, // xp: 5 + 5 = 10, crit: 3 + 2 = 5
	})

	assert.Equal(t, 30.0, totals.Get(EffectXPBonusPercent))
	assert.Equal(t, 5.0, totals.Get(EffectCritChancePercent))
	assert.Equal(t, 0.0, totals.Get(EffectGoldBonusPercent))
}

func TestAggregateIgnoresZeroAndUnknown(t *testing.T) {
	g := testGraph(t)

	totals := g.Aggregate(map[string]int{
		"root_a":  0,
		"unknown": 2,
	})
	assert.Empty(t, totals)
}

func TestAggregateClampsOverMaxLevel(t *testing.T) {
	g := testGraph(t)

	// Level 99 contributes as if at the cap (3): 10 + 5*2.
	totals := g.Aggregate(map[string]int{"root_a": 99})
	assert.Equal(t, 20.0, totals.Get(EffectXPBonusPercent))
}

func TestAggregateDeterministic(t *testing.T) {
	g := testGraph(t)
	alloc := map[string]int{"root_a": 2, "root_b": 1, "mid": 1, "deep": 3}

	first := g.Aggregate(alloc)
	for range 50 {
		assert.Equal(t, first, g.Aggregate(alloc))
	}
}

func TestCanAllocateReasonOrdering(t *testing.T) {
	g := testGraph(t)

	tests := []struct {
		name    string
		skillID string
		alloc   map[string]int
		points  int
		want    AllocationCheck
	}{
		{
			name:    "unknown id wins over everything",
			skillID: "nope",
			alloc:   nil,
			points:  0,
			want:    AllocationCheck{Reason: DenyNotFound},
		},
		{
			name:    "max level wins over missing points",
			skillID: "root_a",
			alloc:   map[string]int{"root_a": 3},
			points:  0,
			want:    AllocationCheck{Reason: DenyMaxLevelReached},
		},
		{
			name:    "no points wins over unmet prerequisite",
			skillID: "mid",
			alloc:   map[string]int{},
			points:  0,
			want:    AllocationCheck{Reason: DenyNoPointsAvailable},
		},
		{
			name:    "first unmet prerequisite is reported",
			skillID: "deep",
			alloc:   map[string]int{"root_b": 1},
			points:  5,
			want:    AllocationCheck{Reason: DenyPrerequisiteUnmet, Prerequisite: "mid"},
		},
		{
			name:    "allowed when all checks pass",
			skillID: "mid",
			alloc:   map[string]int{"root_a": 1},
			points:  1,
			want:    AllocationCheck{Allowed: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.CanAllocate(tt.skillID, tt.alloc, tt.points))
		})
	}
}

func TestAllocatedPoints(t *testing.T) {
	assert.Equal(t, 0, AllocatedPoints(nil))
	assert.Equal(t, 6, AllocatedPoints(map[string]int{"a": 3, "b": 2, "c": 1}))
	assert.Equal(t, 3, AllocatedPoints(map[string]int{"a": 3, "b": 0, "c": -1}))
}
