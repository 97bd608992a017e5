// Package skills defines the static skill graph and the effect
// aggregation logic that turns a user's allocated skill levels into a
// single map of effect totals.
//
// The graph is data, not behavior: nodes carry prerequisite edges and
// per-level effect magnitudes, and nothing in this package knows what an
// effect *does*. Interpretation belongs to the reward pipeline and the
// daily reconciler.
package skills

import "fmt"

// EffectType identifies a skill effect. The aggregator treats these as
// opaque keys; consumers pick out the ones they understand.
type EffectType string

const (
	EffectXPBonusPercent          EffectType = "xp_bonus_percent"
	EffectXPMultiplierActions     EffectType = "xp_multiplier_actions"
	EffectGoldBonusPercent        EffectType = "gold_bonus_percent"
	EffectXPBonusFlat             EffectType = "xp_bonus_flat"
	EffectGoldBonusFlat           EffectType = "gold_bonus_flat"
	EffectCritChancePercent       EffectType = "crit_chance_percent"
	EffectPenaltyReductionPercent EffectType = "penalty_reduction_percent"
	EffectShopDiscountPercent     EffectType = "shop_discount_percent"
	EffectBossDamagePercent       EffectType = "boss_damage_percent"
	EffectStreakShieldDays        EffectType = "streak_shield_days"
	EffectDailyGoldPassive        EffectType = "daily_gold_passive"
)

// Effect is one per-level magnitude granted by a skill node.
// At allocated level L the contribution is Base + PerLevel*(L-1).
type Effect struct {
	Type     EffectType `json:"type"`
	Base     float64    `json:"base"`
	PerLevel float64    `json:"per_level"`
}

// Node is a single skill in the graph. Immutable, defined at compile time.
type Node struct {
	ID       string   `json:"id"`
	Branch   string   `json:"branch"`
	Name     string   `json:"name"`
	MaxLevel int      `json:"max_level"`
	Requires []string `json:"requires,omitempty"`
	Effects  []Effect `json:"effects"`
}

// Graph is a validated set of skill nodes.
type Graph struct {
	nodes map[string]Node
	order []string // Stable listing order (branch grouping as defined).
}

// DefaultMaxLevel is the level cap for nodes that don't override it.
const DefaultMaxLevel = 3

// defaultNodes is the shipped skill tree. Branches: discipline (streaks
// and penalties), wealth (gold and sales), combat (XP output and bosses),
// spirit (passives and protection).
var defaultNodes = []Node{
	// Discipline branch.
	{ID: "iron_will", Branch: "discipline", Name: "Iron Will",
		Effects: []Effect{{Type: EffectXPBonusPercent, Base: 5, PerLevel: 5}}},
	{ID: "daily_grind", Branch: "discipline", Name: "Daily Grind", Requires: []string{"iron_will"},
		Effects: []Effect{{Type: EffectXPBonusFlat, Base: 2, PerLevel: 1}}},
	{ID: "unbreakable", Branch: "discipline", Name: "Unbreakable", Requires: []string{"daily_grind"},
		Effects: []Effect{{Type: EffectPenaltyReductionPercent, Base: 10, PerLevel: 10}}},
	{ID: "aegis", Branch: "discipline", Name: "Aegis", Requires: []string{"unbreakable"},
		Effects: []Effect{{Type: EffectStreakShieldDays, Base: 1, PerLevel: 1}}},

	// Wealth branch.
	{ID: "keen_eye", Branch: "wealth", Name: "Keen Eye",
		Effects: []Effect{{Type: EffectGoldBonusPercent, Base: 10, PerLevel: 5}}},
	{ID: "closer", Branch: "wealth", Name: "Closer", Requires: []string{"keen_eye"},
		Effects: []Effect{{Type: EffectGoldBonusFlat, Base: 15, PerLevel: 10}}},
	{ID: "haggler", Branch: "wealth", Name: "Haggler", Requires: []string{"keen_eye"},
		Effects: []Effect{{Type: EffectShopDiscountPercent, Base: 5, PerLevel: 5}}},
	{ID: "dividends", Branch: "wealth", Name: "Dividends", Requires: []string{"closer", "haggler"},
		Effects: []Effect{{Type: EffectDailyGoldPassive, Base: 10, PerLevel: 10}}},

	// Combat branch.
	{ID: "focus", Branch: "combat", Name: "Focus",
		Effects: []Effect{{Type: EffectXPMultiplierActions, Base: 10, PerLevel: 10}}},
	{ID: "overwhelm", Branch: "combat", Name: "Overwhelm", Requires: []string{"focus"},
		Effects: []Effect{{Type: EffectBossDamagePercent, Base: 10, PerLevel: 10}}},
	{ID: "killer_instinct", Branch: "combat", Name: "Killer Instinct", Requires: []string{"focus"},
		Effects: []Effect{{Type: EffectCritChancePercent, Base: 5, PerLevel: 5}}},

	// Spirit branch.
	{ID: "clarity", Branch: "spirit", Name: "Clarity",
		Effects: []Effect{{Type: EffectXPBonusPercent, Base: 3, PerLevel: 2}}},
	{ID: "flow_state", Branch: "spirit", Name: "Flow State", Requires: []string{"clarity"},
		Effects: []Effect{
			{Type: EffectXPBonusPercent, Base: 5, PerLevel: 5},
			{Type: EffectCritChancePercent, Base: 2, PerLevel: 2},
		}},
	{ID: "transcendence", Branch: "spirit", Name: "Transcendence", Requires: []string{"flow_state", "aegis"},
		Effects: []Effect{{Type: EffectXPBonusPercent, Base: 10, PerLevel: 10}}},
}

var defaultGraph = mustBuild(defaultNodes)

// Default returns the shipped skill graph.
func Default() *Graph {
	return defaultGraph
}

// NewGraph builds a graph from node definitions and validates it:
// every prerequisite must reference an existing node, ids must be
// unique, and the requires relation must be acyclic.
func NewGraph(nodes []Node) (*Graph, error) {
	g := &Graph{nodes: make(map[string]Node, len(nodes)), order: make([]string, 0, len(nodes))}
	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("skills: node with empty id")
		}
		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("skills: duplicate node id %q", n.ID)
		}
		if n.MaxLevel == 0 {
			n.MaxLevel = DefaultMaxLevel
		}
		if n.MaxLevel < 1 {
			return nil, fmt.Errorf("skills: node %q has max level %d", n.ID, n.MaxLevel)
		}
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}

	for _, n := range g.nodes {
		for _, req := range n.Requires {
			if _, ok := g.nodes[req]; !ok {
				return nil, fmt.Errorf("skills: node %q requires unknown node %q", n.ID, req)
			}
		}
	}

	if cycle := findCycle(g); cycle != "" {
		return nil, fmt.Errorf("skills: prerequisite cycle through node %q", cycle)
	}
	return g, nil
}

func mustBuild(nodes []Node) *Graph {
	g, err := NewGraph(nodes)
	if err != nil {
		panic(err)
	}
	return g
}

// findCycle runs a three-color DFS over the requires edges.
// Returns the id of a node on a cycle, or "" if the graph is acyclic.
func findCycle(g *Graph) string {
	const (
		white = 0 // unvisited
		grey  = 1 // on the current DFS path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(g.nodes))

	var visit func(id string) string
	visit = func(id string) string {
		color[id] = grey
		for _, req := range g.nodes[id].Requires {
			switch color[req] {
			case grey:
				return req
			case white:
				if c := visit(req); c != "" {
					return c
				}
			}
		}
		color[id] = black
		return ""
	}

	for _, id := range g.order {
		if color[id] == white {
			if c := visit(id); c != "" {
				return c
			}
		}
	}
	return ""
}

// Node returns a node by id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in definition order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}
