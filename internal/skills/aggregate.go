package skills

// EffectTotals maps effect type to aggregated magnitude across all
// allocated skills. Derived state: always recomputed from allocations,
// never stored or incrementally patched.
type EffectTotals map[EffectType]float64

// Get returns the total for an effect type, or 0 when absent.
func (t EffectTotals) Get(typ EffectType) float64 {
	return t[typ]
}

// Aggregate reduces a user's allocations (skill id → level) into effect
// totals. Each allocated node at level L contributes
// Base + PerLevel*(L-1) per effect. Unallocated nodes and allocations
// referencing unknown skills contribute nothing. Pure function:
// identical input always yields identical totals.
func (g *Graph) Aggregate(allocations map[string]int) EffectTotals {
	totals := make(EffectTotals)
	for id, level := range allocations {
		if level < 1 {
			continue
		}
		node, ok := g.nodes[id]
		if !ok {
			continue
		}
		if level > node.MaxLevel {
			level = node.MaxLevel
		}
		for _, e := range node.Effects {
			totals[e.Type] += e.Base + e.PerLevel*float64(level-1)
		}
	}
	return totals
}

// DenyReason explains why an allocation was refused.
type DenyReason string

const (
	DenyNotFound          DenyReason = "not_found"
	DenyMaxLevelReached   DenyReason = "max_level_reached"
	DenyNoPointsAvailable DenyReason = "no_points_available"
	DenyPrerequisiteUnmet DenyReason = "prerequisite_unmet"
)

// AllocationCheck is the result of CanAllocate.
type AllocationCheck struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
	// Prerequisite names the first unmet requirement when Reason is
	// DenyPrerequisiteUnmet.
	Prerequisite string `json:"prerequisite,omitempty"`
}

// CanAllocate reports whether one more level of the given skill may be
// allocated. Checks run in a fixed order and the first failure wins:
// unknown id, level cap, point budget, then prerequisites (first
// requires entry with no allocation).
func (g *Graph) CanAllocate(skillID string, allocations map[string]int, availablePoints int) AllocationCheck {
	node, ok := g.nodes[skillID]
	if !ok {
		return AllocationCheck{Reason: DenyNotFound}
	}
	if allocations[skillID] >= node.MaxLevel {
		return AllocationCheck{Reason: DenyMaxLevelReached}
	}
	if availablePoints <= 0 {
		return AllocationCheck{Reason: DenyNoPointsAvailable}
	}
	for _, req := range node.Requires {
		if allocations[req] < 1 {
			return AllocationCheck{Reason: DenyPrerequisiteUnmet, Prerequisite: req}
		}
	}
	return AllocationCheck{Allowed: true}
}

// AllocatedPoints sums the levels across all allocations.
func AllocatedPoints(allocations map[string]int) int {
	total := 0
	for _, level := range allocations {
		if level > 0 {
			total += level
		}
	}
	return total
}
