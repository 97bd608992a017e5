package reward

import (
	"math"

	"github.com/arisehq/arise/internal/skills"
)

// Floors for the percent-modifier helpers. Extreme effect totals clamp
// to these instead of erroring.
const (
	PenaltyFloor = 10
	PriceFloor   = 1
)

// scaleWithFloor applies a multiplier to a base value, rounds, and
// clamps the result at a floor. All three percent-with-floor transforms
// below share this shape.
func scaleWithFloor(base int, multiplier float64, floor int) int {
	v := int(math.Round(float64(base) * multiplier))
	if v < floor {
		return floor
	}
	return v
}

// ApplyPenaltyReduction discounts a miss penalty by the user's
// penalty_reduction_percent effect, never below PenaltyFloor.
func ApplyPenaltyReduction(base int, effects skills.EffectTotals) int {
	return scaleWithFloor(base, 1-effects.Get(skills.EffectPenaltyReductionPercent)/100, PenaltyFloor)
}

// ApplyShopDiscount discounts a shop price by the user's
// shop_discount_percent effect, never below PriceFloor.
func ApplyShopDiscount(base int, effects skills.EffectTotals) int {
	return scaleWithFloor(base, 1-effects.Get(skills.EffectShopDiscountPercent)/100, PriceFloor)
}

// ApplyBossDamageBonus raises boss damage by the user's
// boss_damage_percent effect.
func ApplyBossDamageBonus(base int, effects skills.EffectTotals) int {
	return scaleWithFloor(base, 1+effects.Get(skills.EffectBossDamagePercent)/100, 0)
}

// StreakShieldDays returns the number of zero-action days per month the
// user's skills can waive.
func StreakShieldDays(effects skills.EffectTotals) int {
	return int(effects.Get(skills.EffectStreakShieldDays))
}

// DailyPassiveGold returns the flat gold granted once per day by passive
// skills, or 0.
func DailyPassiveGold(effects skills.EffectTotals) int {
	g := effects.Get(skills.EffectDailyGoldPassive)
	if g <= 0 {
		return 0
	}
	return int(g)
}
