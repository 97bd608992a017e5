package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGraphIsValid(t *testing.T) {
	g := Default()
	require.NotNil(t, g)
	assert.Greater(t, g.Len(), 10)

	// Every prerequisite resolves and every node has at least one effect.
	for _, n := range g.Nodes() {
		assert.NotEmpty(t, n.Effects, "node %s has no effects", n.ID)
		assert.GreaterOrEqual(t, n.MaxLevel, 1)
		for _, req := range n.Requires {
			_, ok := g.Node(req)
			assert.True(t, ok, "node %s requires unknown %s", n.ID, req)
		}
	}
}

func TestNewGraphRejectsDanglingRequirement(t *testing.T) {
	_, err := NewGraph([]Node{
		{ID: "a", Effects: []Effect{{Type: EffectXPBonusPercent, Base: 1}}, Requires: []string{"ghost"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestNewGraphRejectsCycle(t *testing.T) {
	_, err := NewGraph([]Node{
		{ID: "a", Requires: []string{"c"}, Effects: []Effect{{Type: EffectXPBonusPercent, Base: 1}}},
		{ID: "b", Requires: []string{"a"}, Effects: []Effect{{Type: EffectXPBonusPercent, Base: 1}}},
		{ID: "c", Requires: []string{"b"}, Effects: []Effect{{Type: EffectXPBonusPercent, Base: 1}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestNewGraphRejectsDuplicateID(t *testing.T) {
	_, err := NewGraph([]Node{
		{ID: "a"},
		{ID: "a"},
	})
	require.Error(t, err)
}

func TestNodesPreservesDefinitionOrder(t *testing.T) {
	g, err := NewGraph([]Node{{ID: "z"}, {ID: "a"}, {ID: "m"}})
	require.NoError(t, err)

	ids := make([]string, 0, 3)
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"z", "a", "m"}, ids)
}
