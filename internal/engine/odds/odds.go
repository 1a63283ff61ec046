// Package odds holds the pure parimutuel math: implied odds from pool
// ratios, parlay multipliers and stake distribution. Nothing here touches
// storage; every function is deterministic.
package odds

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/radieske/parimutuel-engine/internal/engine/domain"
)

// oddsPlaces is the fixed-point precision of odds and multipliers. All
// roundings truncate (protocol-favoring).
const oddsPlaces = 6

var (
	one      = decimal.NewFromInt(1)
	tenThous = decimal.NewFromInt(10000)
)

// Calculator derives odds from pools. Both sides of the ratio carry a
// constant virtual-liquidity term so a single large bet cannot swing the
// displayed price; virtual liquidity never represents real funds.
type Calculator struct {
	winnerShareBps   decimal.Decimal
	virtualLiquidity decimal.Decimal
	schedule         []decimal.Decimal // parlay bonus per leg count, index 0 = 1 leg
}

// NewCalculator parses the bonus schedule and validates it is monotone
// non-decreasing starting at 1.0x.
func NewCalculator(winnerShareBps, virtualLiquidityCents int64, schedule []string) (*Calculator, error) {
	if winnerShareBps <= 0 || winnerShareBps > 10000 {
		return nil, fmt.Errorf("winner share bps out of range: %d", winnerShareBps)
	}
	if len(schedule) == 0 {
		return nil, fmt.Errorf("empty parlay bonus schedule")
	}

	parsed := make([]decimal.Decimal, len(schedule))
	prev := decimal.Zero
	for i, s := range schedule {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("parlay bonus schedule entry %d: %w", i, err)
		}
		if d.LessThan(one) || d.LessThan(prev) {
			return nil, fmt.Errorf("parlay bonus schedule must be non-decreasing and >= 1.0")
		}
		parsed[i] = d
		prev = d
	}

	return &Calculator{
		winnerShareBps:   decimal.NewFromInt(winnerShareBps),
		virtualLiquidity: decimal.NewFromInt(virtualLiquidityCents),
		schedule:         parsed,
	}, nil
}

// Implied computes the payout odds for one outcome of one match:
//
//	odds = 1 + distributedLosingPool / winningPool
//
// where distributedLosingPool is the losing pools times the winner share,
// and both pools are taken against effective (real + virtual) liquidity.
func (c *Calculator) Implied(pool domain.MatchPool, outcome domain.Outcome) decimal.Decimal {
	winning := decimal.NewFromInt(pool.OutcomeCents(outcome)).Add(c.virtualLiquidity)
	losing := decimal.NewFromInt(pool.Total() - pool.OutcomeCents(outcome)).Add(c.virtualLiquidity)

	distributed := losing.Mul(c.winnerShareBps).Div(tenThous)

	return one.Add(distributed.Div(winning)).Truncate(oddsPlaces)
}

// MatchOdds computes the three implied odds of a match at once.
func (c *Calculator) MatchOdds(pool domain.MatchPool) map[domain.Outcome]decimal.Decimal {
	return map[domain.Outcome]decimal.Decimal{
		domain.OutcomeHome: c.Implied(pool, domain.OutcomeHome),
		domain.OutcomeAway: c.Implied(pool, domain.OutcomeAway),
		domain.OutcomeDraw: c.Implied(pool, domain.OutcomeDraw),
	}
}

// ParlayBonus returns the bonus multiplier for a leg count. Counts beyond the
// schedule stay at the cap.
func (c *Calculator) ParlayBonus(legCount int) decimal.Decimal {
	if legCount < 1 {
		return one
	}
	if legCount > len(c.schedule) {
		return c.schedule[len(c.schedule)-1]
	}
	return c.schedule[legCount-1]
}

// CombinedMultiplier is the product of the legs' locked odds times the parlay
// bonus, truncated. This is the value locked into the bet at placement.
func (c *Calculator) CombinedMultiplier(legOdds []decimal.Decimal) decimal.Decimal {
	combined := one
	for _, o := range legOdds {
		combined = combined.Mul(o)
	}
	return combined.Mul(c.ParlayBonus(len(legOdds))).Truncate(oddsPlaces)
}

// PotentialPayout converts stake times multiplier to cents, floored.
func PotentialPayout(stakeCents int64, multiplier decimal.Decimal) int64 {
	return decimal.NewFromInt(stakeCents).Mul(multiplier).Floor().IntPart()
}
