package odds

// SplitStake divides a stake evenly across legs. Any indivisible remainder
// goes to the first leg: a fixed rule, deliberately independent of the
// caller, so nobody can bias where the extra cents land.
func SplitStake(stakeCents int64, legCount int) []int64 {
	shares := make([]int64, legCount)
	if legCount == 0 {
		return shares
	}

	base := stakeCents / int64(legCount)
	for i := range shares {
		shares[i] = base
	}
	shares[0] += stakeCents - base*int64(legCount)

	return shares
}

// seedSplits are the initial pool distributions, in bps over
// (home, away, draw), cycled by match index so rounds open with varied
// display odds. Each triple sums to 10000.
var seedSplits = [][3]int64{
	{4000, 3500, 2500},
	{3400, 3300, 3300},
	{5000, 3000, 2000},
}

// SeedAllocation divides the per-match seed into the three outcome pools of
// match matchIndex. The bps remainder lands on the home pool.
func SeedAllocation(matchIndex int, seedCents int64) (home, away, draw int64) {
	split := seedSplits[matchIndex%len(seedSplits)]
	away = seedCents * split[1] / 10000
	draw = seedCents * split[2] / 10000
	home = seedCents - away - draw
	return home, away, draw
}
