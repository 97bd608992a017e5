package progression

import "github.com/arisehq/arise/internal/model"

// TerritoryXPShare is the fraction of every reward's base XP routed to
// the user's active territory.
const TerritoryXPShare = 0.2

// TerritoryCredit returns the territory XP credited for a reward's base XP.
func TerritoryCredit(baseXP int) int {
	return int(float64(baseXP) * TerritoryXPShare)
}

// TerritoryAdvance is the outcome of feeding XP into a territory.
type TerritoryAdvance struct {
	Progress     model.TerritoryProgress
	LevelsGained int
	Captured     bool // True only on the transition into captured.
}

// AdvanceTerritory accumulates xpDelta into a territory's progress and
// advances its level while the per-level threshold is met. Capture
// (level == MaxLevel) is terminal: current XP clamps to zero and further
// calls are no-ops. Never regresses level or status.
func AdvanceTerritory(p model.TerritoryProgress, t model.Territory, xpDelta int) TerritoryAdvance {
	if p.Status == model.TerritoryCaptured {
		return TerritoryAdvance{Progress: p}
	}

	adv := TerritoryAdvance{Progress: p}
	if xpDelta > 0 {
		adv.Progress.CurrentXP += xpDelta
	}
	adv.Progress.Status = model.TerritoryInProgress

	for adv.Progress.Level < t.MaxLevel {
		need := RequiredForLevel(t.BaseXP, adv.Progress.Level, TerritoryGrowth)
		if adv.Progress.CurrentXP < need {
			break
		}
		adv.Progress.CurrentXP -= need
		adv.Progress.Level++
		adv.LevelsGained++
	}

	if adv.Progress.Level >= t.MaxLevel {
		adv.Progress.CurrentXP = 0
		adv.Progress.Status = model.TerritoryCaptured
		adv.Captured = true
	}
	return adv
}
