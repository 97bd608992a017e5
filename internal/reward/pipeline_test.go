package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arisehq/arise/internal/model"
	"github.com/arisehq/arise/internal/skills"
)

func noCrit() float64 { return 0.99 }
func crit() float64   { return 0.0 }

func TestComputeBasePercent(t *testing.T) {
	// 5 base XP with +10% rounds to 6, no crit.
	effects := skills.EffectTotals{skills.EffectXPBonusPercent: 10}

	res := Compute(5, 0, effects, Context{ActionType: model.EventAction}, noCrit)

	assert.Equal(t, 6, res.FinalXP)
	assert.Equal(t, 0, res.FinalGold)
	assert.False(t, res.IsCrit)
}

func TestComputeMultipliersSumNotChain(t *testing.T) {
	// +50% and +50% on a hard task must give x2.0, not x2.25.
	effects := skills.EffectTotals{
		skills.EffectXPBonusPercent:      50,
		skills.EffectXPMultiplierActions: 50,
	}

	res := Compute(100, 0, effects, Context{ActionType: model.EventHardTask}, noCrit)
	assert.Equal(t, 200, res.FinalXP)

	// The hard-task multiplier only applies to hard tasks.
	res = Compute(100, 0, effects, Context{ActionType: model.EventTask}, noCrit)
	assert.Equal(t, 150, res.FinalXP)
}

func TestComputeSaleGoldBonus(t *testing.T) {
	effects := skills.EffectTotals{skills.EffectGoldBonusPercent: 25}

	res := Compute(0, 100, effects, Context{ActionType: model.EventSale}, noCrit)
	assert.Equal(t, 125, res.FinalGold)

	res = Compute(0, 100, effects, Context{ActionType: model.EventAction}, noCrit)
	assert.Equal(t, 100, res.FinalGold, "gold bonus applies to sales only")
}

func TestComputeFlatXPStreakBonus(t *testing.T) {
	effects := skills.EffectTotals{skills.EffectXPBonusFlat: 5}

	res := Compute(10, 0, effects, Context{ActionType: model.EventAction, CurrentStreak: 4}, noCrit)
	assert.Equal(t, 30, res.FinalXP) // 10 + 5*4

	// No streak, no bonus.
	res = Compute(10, 0, effects, Context{ActionType: model.EventAction}, noCrit)
	assert.Equal(t, 10, res.FinalXP)

	// Capped at 150 regardless of streak length.
	res = Compute(10, 0, effects, Context{ActionType: model.EventAction, CurrentStreak: 365}, noCrit)
	assert.Equal(t, 160, res.FinalXP)
}

func TestComputeDailyTargetGoldBonus(t *testing.T) {
	effects := skills.EffectTotals{skills.EffectGoldBonusFlat: 40}

	// This action is the one that reaches the target.
	ctx := Context{ActionType: model.EventAction, TodayActionCount: 4, DailyTarget: 5}
	res := Compute(0, 10, effects, ctx, noCrit)
	assert.Equal(t, 50, res.FinalGold)
	assert.Equal(t, 40, res.TargetGold)

	// One short of the target: no bonus.
	ctx.TodayActionCount = 3
	res = Compute(0, 10, effects, ctx, noCrit)
	assert.Equal(t, 10, res.FinalGold)
	assert.Zero(t, res.TargetGold)

	// Zero target means the bonus never fires.
	res = Compute(0, 10, effects, Context{ActionType: model.EventAction}, noCrit)
	assert.Equal(t, 10, res.FinalGold)
}

func TestComputeDailyTargetGoldBonusAlreadyPaid(t *testing.T) {
	effects := skills.EffectTotals{skills.EffectGoldBonusFlat: 40}

	// Past the target, but today's grant is already in the ledger: the
	// count condition alone must not re-fire the bonus.
	for _, count := range []int{4, 5, 6, 20} {
		ctx := Context{ActionType: model.EventAction, TodayActionCount: count, DailyTarget: 5, TargetBonusPaid: true}
		res := Compute(0, 10, effects, ctx, noCrit)
		assert.Equal(t, 10, res.FinalGold)
		assert.Zero(t, res.TargetGold)
	}
}

func TestComputeCritDoublesXP(t *testing.T) {
	effects := skills.EffectTotals{
		skills.EffectXPBonusPercent:    10,
		skills.EffectCritChancePercent: 30,
	}
	ctx := Context{ActionType: model.EventAction}

	base := Compute(50, 20, effects, ctx, noCrit)
	assert.False(t, base.IsCrit)

	doubled := Compute(50, 20, effects, ctx, crit)
	assert.True(t, doubled.IsCrit)
	assert.Equal(t, 2*base.FinalXP, doubled.FinalXP)
	assert.Equal(t, base.FinalGold, doubled.FinalGold, "crit doubles XP only")
}

func TestComputeCritBoundary(t *testing.T) {
	effects := skills.EffectTotals{skills.EffectCritChancePercent: 30}
	ctx := Context{ActionType: model.EventAction}

	// rng()*100 < 30 crits; exactly 30 does not.
	res := Compute(10, 0, effects, ctx, func() float64 { return 0.2999 })
	assert.True(t, res.IsCrit)

	res = Compute(10, 0, effects, ctx, func() float64 { return 0.30 })
	assert.False(t, res.IsCrit)
}

func TestComputeDeterministicAndNonNegative(t *testing.T) {
	effects := skills.EffectTotals{
		skills.EffectXPBonusPercent:    15,
		skills.EffectXPBonusFlat:       3,
		skills.EffectGoldBonusPercent:  10,
		skills.EffectCritChancePercent: 100,
	}
	ctx := Context{ActionType: model.EventSale, CurrentStreak: 7, TodayActionCount: 1, DailyTarget: 10}

	first := Compute(13, 7, effects, ctx, crit)
	for range 20 {
		assert.Equal(t, first, Compute(13, 7, effects, ctx, crit))
	}
	assert.GreaterOrEqual(t, first.FinalXP, 0)
	assert.GreaterOrEqual(t, first.FinalGold, 0)

	zero := Compute(0, 0, skills.EffectTotals{}, Context{ActionType: model.EventAction}, noCrit)
	assert.Equal(t, 0, zero.FinalXP)
	assert.Equal(t, 0, zero.FinalGold)
}

func TestComputeDoesNotMutateEffects(t *testing.T) {
	effects := skills.EffectTotals{skills.EffectXPBonusPercent: 10}
	Compute(100, 100, effects, Context{ActionType: model.EventAction, CurrentStreak: 3}, crit)
	assert.Equal(t, skills.EffectTotals{skills.EffectXPBonusPercent: 10}, effects)
}

func TestApplyPenaltyReduction(t *testing.T) {
	assert.Equal(t, 75, ApplyPenaltyReduction(100, skills.EffectTotals{skills.EffectPenaltyReductionPercent: 25}))
	assert.Equal(t, 100, ApplyPenaltyReduction(100, skills.EffectTotals{}))
	// Floor at 10, even for absurd reductions.
	assert.Equal(t, 10, ApplyPenaltyReduction(100, skills.EffectTotals{skills.EffectPenaltyReductionPercent: 99}))
	assert.Equal(t, 10, ApplyPenaltyReduction(100, skills.EffectTotals{skills.EffectPenaltyReductionPercent: 500}))
}

func TestApplyShopDiscount(t *testing.T) {
	assert.Equal(t, 80, ApplyShopDiscount(100, skills.EffectTotals{skills.EffectShopDiscountPercent: 20}))
	assert.Equal(t, 1, ApplyShopDiscount(3, skills.EffectTotals{skills.EffectShopDiscountPercent: 95}))
}

func TestApplyBossDamageBonus(t *testing.T) {
	assert.Equal(t, 130, ApplyBossDamageBonus(100, skills.EffectTotals{skills.EffectBossDamagePercent: 30}))
	assert.Equal(t, 100, ApplyBossDamageBonus(100, skills.EffectTotals{}))
}
