// Package reward computes the final XP/gold reward for a single action.
//
// The pipeline is pure: it reads effect totals and an action context,
// consults an injected RNG for the critical-hit roll, and produces a
// result without touching storage or mutating its inputs. Persisting the
// outcome (ledger event, stats update, territory routing) is the job of
// the rewards service.
package reward

import (
	"fmt"
	"math"

	"github.com/arisehq/arise/internal/model"
	"github.com/arisehq/arise/internal/skills"
)

// FlatXPStreakCap bounds the streak-scaled flat XP bonus so long streaks
// cannot run away.
const FlatXPStreakCap = 150

// Context describes the action being rewarded. Value object, never
// persisted.
type Context struct {
	ActionType       model.EventType
	Hour             int // Local hour of day the action was logged.
	TodayActionCount int // Completed actions today, excluding this one.
	CurrentStreak    int
	DailyTarget      int

	// TargetBonusPaid is true when today's daily-target completion bonus
	// already landed in the ledger. The caller reads it off the
	// perk_bonus guard event so the bonus pays out once per day, not on
	// every action at or past the target.
	TargetBonusPaid bool
}

// Result is the computed reward. TargetGold is the portion of FinalGold
// granted for completing the daily target; the caller records it as a
// perk_bonus ledger event so it cannot be earned twice in one day.
type Result struct {
	FinalXP    int      `json:"final_xp"`
	FinalGold  int      `json:"final_gold"`
	TargetGold int      `json:"target_gold,omitempty"`
	IsCrit     bool     `json:"is_crit"`
	Bonuses    []string `json:"bonuses,omitempty"`
}

// RNG yields a float in [0, 1). Injected so the crit roll is
// deterministic under test.
type RNG func() float64

// Compute turns a base XP/gold value into a final reward.
//
// Multiplicative modifiers are summed into a single multiplier before
// applying, never chained, so the result does not depend on effect
// ordering. Flat bonuses are added after the multiplier, then the crit
// roll doubles XP last.
func Compute(baseXP, baseGold int, effects skills.EffectTotals, ctx Context, rng RNG) Result {
	var res Result

	xpMult := 1.0
	if pct := effects.Get(skills.EffectXPBonusPercent); pct > 0 {
		xpMult += pct / 100
		res.Bonuses = append(res.Bonuses, fmt.Sprintf("+%g%% XP", pct))
	}
	if ctx.ActionType == model.EventHardTask {
		if pct := effects.Get(skills.EffectXPMultiplierActions); pct > 0 {
			xpMult += pct / 100
			res.Bonuses = append(res.Bonuses, fmt.Sprintf("+%g%% hard task XP", pct))
		}
	}

	goldMult := 1.0
	if ctx.ActionType == model.EventSale {
		if pct := effects.Get(skills.EffectGoldBonusPercent); pct > 0 {
			goldMult += pct / 100
			res.Bonuses = append(res.Bonuses, fmt.Sprintf("+%g%% sale gold", pct))
		}
	}

	flatXP := 0.0
	if flat := effects.Get(skills.EffectXPBonusFlat); flat > 0 && ctx.CurrentStreak > 0 {
		flatXP = math.Min(flat*float64(ctx.CurrentStreak), FlatXPStreakCap)
		res.Bonuses = append(res.Bonuses, fmt.Sprintf("+%g streak XP", flatXP))
	}

	flatGold := 0.0
	if flat := effects.Get(skills.EffectGoldBonusFlat); flat > 0 && !ctx.TargetBonusPaid &&
		ctx.DailyTarget > 0 && ctx.TodayActionCount+1 >= ctx.DailyTarget {
		// Daily-target completion bonus. The count condition holds for
		// every action at or past the target, so the caller must feed
		// the ledger state back in via TargetBonusPaid and record the
		// grant when TargetGold comes back nonzero.
		flatGold = flat
		res.TargetGold = int(flat)
		res.Bonuses = append(res.Bonuses, fmt.Sprintf("+%g target gold", flatGold))
	}

	res.FinalXP = int(math.Round(float64(baseXP)*xpMult + flatXP))
	res.FinalGold = int(math.Round(float64(baseGold)*goldMult + flatGold))

	if chance := effects.Get(skills.EffectCritChancePercent); chance > 0 && rng != nil && rng()*100 < chance {
		res.FinalXP *= 2
		res.IsCrit = true
		res.Bonuses = append(res.Bonuses, "critical hit: XP doubled")
	}

	if res.FinalXP < 0 {
		res.FinalXP = 0
	}
	if res.FinalGold < 0 {
		res.FinalGold = 0
	}
	return res
}
