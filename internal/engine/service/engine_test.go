package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-engine/internal/engine/domain"
	"github.com/radieske/parimutuel-engine/internal/engine/odds"
	"github.com/radieske/parimutuel-engine/internal/engine/outcome"
	"github.com/radieske/parimutuel-engine/internal/engine/store"
	"github.com/radieske/parimutuel-engine/internal/shared/config"
)

// fakeWallet records transfers instead of moving money. Debits can be made
// to fail to exercise the unwind paths.
type fakeWallet struct {
	mu        sync.Mutex
	debited   map[string]int64
	credited  map[string]int64
	refs      []string
	failDebit bool
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{debited: make(map[string]int64), credited: make(map[string]int64)}
}

func (f *fakeWallet) Debit(_ context.Context, account string, amountCents int64, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDebit {
		return errors.New("debit rejected")
	}
	f.debited[account] += amountCents
	f.refs = append(f.refs, ref)
	return nil
}

func (f *fakeWallet) Credit(_ context.Context, account string, amountCents int64, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credited[account] += amountCents
	f.refs = append(f.refs, ref)
	return nil
}

func (f *fakeWallet) net(account string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.credited[account] - f.debited[account]
}

func testParams() config.EngineParams {
	return config.EngineParams{
		MatchesPerRound:       3,
		WinnerShareBps:        5500,
		SeasonShareBps:        200,
		VirtualLiquidityCents: 50_000,
		SeedPerMatchCents:     30_000,
		MinBetCents:           100,
		MaxBetCents:           1_000_000,
		CancelFeeBps:          1000,
		BountyBps:             500,
		MinBountyPayoutCents:  1000,
		ClaimWindow:           24 * time.Hour,
		GracePeriod:           6 * time.Hour,
		ParlayBonusSchedule:   []string{"1.0", "1.15", "1.194"},
	}
}

type fixture struct {
	eng    *Engine
	mem    *store.Memory
	wallet *fakeWallet
	cur    time.Time
	round  domain.Round
}

var testBase = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

// newFixture builds an engine over the in-memory store with a controllable
// clock and a funded reserve, and a round created and seeded.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	params := testParams()
	calc, err := odds.NewCalculator(params.WinnerShareBps, params.VirtualLiquidityCents, params.ParlayBonusSchedule)
	require.NoError(t, err)

	fx := &fixture{
		mem:    store.NewMemory(),
		wallet: newFakeWallet(),
		cur:    testBase,
	}
	fx.eng = New(zap.NewNop(), fx.mem, calc, fx.wallet, nil, nil, params)
	fx.eng.now = func() time.Time { return fx.cur }

	ctx := context.Background()
	_, err = fx.eng.DepositReserves(ctx, 10_000_000)
	require.NoError(t, err)

	fx.round, err = fx.eng.CreateRound(ctx, "season-1", testBase.Add(time.Hour), testBase.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, fx.eng.SeedRound(ctx, fx.round.ID))
	return fx
}

func (fx *fixture) place(t *testing.T, bettor string, stake int64, legs []LegRequest) domain.Bet {
	t.Helper()
	bet, err := fx.eng.PlaceBet(context.Background(), fx.round.ID, bettor, stake, legs)
	require.NoError(t, err)
	return bet
}

// settle walks the round to SETTLED with a fixed seed and returns the derived
// outcomes alongside the settlement result.
func (fx *fixture) settle(t *testing.T, seed string) (domain.SettlementResult, []domain.Outcome) {
	t.Helper()
	ctx := context.Background()

	fx.cur = fx.round.StartTime
	require.NoError(t, fx.eng.LockRound(ctx, fx.round.ID))

	fx.cur = fx.round.EndTime
	requestID, err := fx.eng.RequestResults(ctx, fx.round.ID)
	require.NoError(t, err)

	res, err := fx.eng.FulfillRandomness(ctx, requestID, seed)
	require.NoError(t, err)
	return res, outcome.Derive(seed, 3)
}

func otherOutcome(o domain.Outcome) domain.Outcome {
	if o == domain.OutcomeHome {
		return domain.OutcomeAway
	}
	return domain.OutcomeHome
}

func TestCreateRoundRejectsInvertedWindow(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.eng.CreateRound(context.Background(), "season-1", testBase.Add(2*time.Hour), testBase.Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

// fakeLive is an in-memory LiveOdds double. Published snapshots become
// readable; the miss flag simulates an expired cache entry.
type fakeLive struct {
	snaps map[string]OddsSnapshot
	miss  bool
}

func newFakeLive() *fakeLive { return &fakeLive{snaps: make(map[string]OddsSnapshot)} }

func (f *fakeLive) Publish(_ context.Context, snap OddsSnapshot) error {
	f.snaps[snap.RoundID] = snap
	return nil
}

func (f *fakeLive) GetOdds(_ context.Context, roundID string) (OddsSnapshot, bool, error) {
	if f.miss {
		return OddsSnapshot{}, false, nil
	}
	snap, ok := f.snaps[roundID]
	return snap, ok, nil
}

func TestGetLiveOddsServesCacheThenFallsBack(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	live := newFakeLive()
	fx.eng.live = live

	// Seeding published before the cache was attached; refresh it now.
	fx.eng.refreshLiveOdds(ctx, fx.round.ID)
	cached, ok := live.snaps[fx.round.ID]
	require.True(t, ok)
	require.Len(t, cached.Matches, 3)

	snap, err := fx.eng.GetLiveOdds(ctx, fx.round.ID)
	require.NoError(t, err)
	assert.Equal(t, cached, snap)

	// The cached snapshot is served as-is, even when it disagrees with the
	// pools.
	marker := OddsSnapshot{RoundID: fx.round.ID, Matches: []MatchOddsView{{Index: 99}}}
	live.snaps[fx.round.ID] = marker
	snap, err = fx.eng.GetLiveOdds(ctx, fx.round.ID)
	require.NoError(t, err)
	assert.Equal(t, marker, snap)

	// On a miss the odds are recomputed from the current pools.
	live.miss = true
	fresh, err := fx.eng.GetLiveOdds(ctx, fx.round.ID)
	require.NoError(t, err)
	require.Len(t, fresh.Matches, 3)
	assert.NotEqual(t, marker, fresh)
}

func TestSeedRequiresReserve(t *testing.T) {
	params := testParams()
	calc, err := odds.NewCalculator(params.WinnerShareBps, params.VirtualLiquidityCents, params.ParlayBonusSchedule)
	require.NoError(t, err)

	eng := New(zap.NewNop(), store.NewMemory(), calc, newFakeWallet(), nil, nil, params)

	ctx := context.Background()
	round, err := eng.CreateRound(ctx, "season-1", testBase.Add(time.Hour), testBase.Add(2*time.Hour))
	require.NoError(t, err)

	err = eng.SeedRound(ctx, round.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientReserve)
}

func TestSeedFundsPoolsAndLocksOdds(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	pools, err := fx.eng.GetMatchPools(ctx, fx.round.ID)
	require.NoError(t, err)
	require.Len(t, pools, 3)
	for i, p := range pools {
		assert.Equal(t, int64(30_000), p.Total(), "match %d", i)
	}

	locked, err := fx.eng.GetLockedOdds(ctx, fx.round.ID, 0)
	require.NoError(t, err)
	assert.Len(t, locked, 3)

	// Seeding moved exactly the seed total out of the reserve.
	available, locked0, _, err := fx.eng.GetAvailableReserves(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000-90_000), available)
	assert.Equal(t, int64(0), locked0)
}

func TestPlaceBetValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	leg := func(i int, o domain.Outcome) LegRequest { return LegRequest{MatchIndex: i, Outcome: o} }

	cases := []struct {
		name  string
		stake int64
		legs  []LegRequest
		want  error
	}{
		{"no legs", 10_000, nil, domain.ErrInvalidLegCount},
		{"too many legs", 10_000, []LegRequest{leg(0, domain.OutcomeHome), leg(1, domain.OutcomeHome), leg(2, domain.OutcomeHome), leg(3, domain.OutcomeHome)}, domain.ErrInvalidLegCount},
		{"stake below min", 50, []LegRequest{leg(0, domain.OutcomeHome)}, domain.ErrStakeOutOfRange},
		{"stake above max", 2_000_000, []LegRequest{leg(0, domain.OutcomeHome)}, domain.ErrStakeOutOfRange},
		{"bad outcome", 10_000, []LegRequest{{MatchIndex: 0, Outcome: "GOAL"}}, domain.ErrInvalidOutcome},
		{"match out of range", 10_000, []LegRequest{leg(7, domain.OutcomeHome)}, domain.ErrInvalidMatch},
		{"duplicate match", 10_000, []LegRequest{leg(0, domain.OutcomeHome), leg(0, domain.OutcomeAway)}, domain.ErrDuplicateLeg},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.eng.PlaceBet(ctx, fx.round.ID, "alice", tc.stake, tc.legs)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// Nothing was debited on any rejection.
	assert.Equal(t, int64(0), fx.wallet.debited["alice"])
}

func TestPlaceBetLocksMultiplier(t *testing.T) {
	fx := newFixture(t)

	legs := []LegRequest{{MatchIndex: 0, Outcome: domain.OutcomeHome}}
	first := fx.place(t, "alice", 10_000, legs)

	// A large bet moves the pools but not the locked odds: a later identical
	// bet carries the same multiplier.
	fx.place(t, "whale", 1_000_000, legs)
	second := fx.place(t, "bob", 10_000, legs)

	assert.True(t, first.LockedMultiplier.Equal(second.LockedMultiplier))
	assert.Equal(t, first.PotentialPayoutCents, second.PotentialPayoutCents)
	assert.True(t, first.PotentialPayoutCents > first.StakeCents)
}

func TestPlaceBetSplitsStakeAcrossLegs(t *testing.T) {
	fx := newFixture(t)

	bet := fx.place(t, "carol", 100, []LegRequest{
		{MatchIndex: 0, Outcome: domain.OutcomeHome},
		{MatchIndex: 1, Outcome: domain.OutcomeAway},
		{MatchIndex: 2, Outcome: domain.OutcomeDraw},
	})

	require.Len(t, bet.Legs, 3)
	assert.Equal(t, int64(34), bet.Legs[0].ShareCents)
	assert.Equal(t, int64(33), bet.Legs[1].ShareCents)
	assert.Equal(t, int64(33), bet.Legs[2].ShareCents)

	pools, err := fx.eng.GetMatchPools(context.Background(), fx.round.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30_034), pools[0].Total())
}

func TestPlaceBetDebitFailure(t *testing.T) {
	fx := newFixture(t)
	fx.wallet.failDebit = true

	_, err := fx.eng.PlaceBet(context.Background(), fx.round.ID, "alice", 10_000, []LegRequest{{MatchIndex: 0, Outcome: domain.OutcomeHome}})
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	bets, err := fx.eng.ListBets(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, bets)
}

func TestPlaceBetAfterStartUnwindsDebit(t *testing.T) {
	fx := newFixture(t)
	fx.cur = fx.round.StartTime

	_, err := fx.eng.PlaceBet(context.Background(), fx.round.ID, "alice", 10_000, []LegRequest{{MatchIndex: 0, Outcome: domain.OutcomeHome}})
	assert.ErrorIs(t, err, domain.ErrRoundNotOpen)

	// Debit happened first, then the compensating credit.
	assert.Equal(t, int64(0), fx.wallet.net("alice"))
	assert.Equal(t, int64(10_000), fx.wallet.debited["alice"])
}

func TestCancelBet(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	poolsBefore, err := fx.eng.GetMatchPools(ctx, fx.round.ID)
	require.NoError(t, err)
	availBefore, _, _, err := fx.eng.GetAvailableReserves(ctx)
	require.NoError(t, err)

	bet := fx.place(t, "alice", 10_000, []LegRequest{{MatchIndex: 0, Outcome: domain.OutcomeHome}})

	_, err = fx.eng.CancelBet(ctx, bet.ID, "mallory")
	assert.ErrorIs(t, err, domain.ErrNotBettor)

	res, err := fx.eng.CancelBet(ctx, bet.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.FeeCents)
	assert.Equal(t, int64(9000), res.RefundCents)
	assert.Equal(t, int64(9000), fx.wallet.credited["alice"])

	// Pools return to their seeded state; the fee stays with the reserve.
	poolsAfter, err := fx.eng.GetMatchPools(ctx, fx.round.ID)
	require.NoError(t, err)
	assert.Equal(t, poolsBefore, poolsAfter)

	availAfter, lockedAfter, _, err := fx.eng.GetAvailableReserves(ctx)
	require.NoError(t, err)
	assert.Equal(t, availBefore+res.FeeCents, availAfter)
	assert.Equal(t, int64(0), lockedAfter)

	_, err = fx.eng.CancelBet(ctx, bet.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
}

func TestSettlementAllOrNothing(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	seed := "test-seed"
	outcomes := outcome.Derive(seed, 3)

	winner := fx.place(t, "alice", 10_000, []LegRequest{
		{MatchIndex: 0, Outcome: outcomes[0]},
		{MatchIndex: 1, Outcome: outcomes[1]},
		{MatchIndex: 2, Outcome: outcomes[2]},
	})
	// One wrong leg loses the whole parlay.
	nearMiss := fx.place(t, "bob", 10_000, []LegRequest{
		{MatchIndex: 0, Outcome: outcomes[0]},
		{MatchIndex: 1, Outcome: otherOutcome(outcomes[1])},
	})

	availBefore, lockedBefore, _, err := fx.eng.GetAvailableReserves(ctx)
	require.NoError(t, err)
	pools, err := fx.eng.GetMatchPools(ctx, fx.round.ID)
	require.NoError(t, err)
	var poolTotal int64
	for _, p := range pools {
		poolTotal += p.Total()
	}

	res, derived := fx.settle(t, seed)
	assert.Equal(t, outcomes, derived)
	assert.Equal(t, 1, res.WonBets)
	assert.Equal(t, 1, res.LostBets)
	assert.Equal(t, winner.PotentialPayoutCents, res.EscrowCents)

	got, err := fx.eng.GetBet(ctx, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetWon, got.Status)
	got, err = fx.eng.GetBet(ctx, nearMiss.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetLost, got.Status)

	// Settlement drains the pools and releases every lock; the surplus is
	// exactly what the escrow did not need.
	assert.Equal(t, poolTotal+lockedBefore-res.EscrowCents, res.SurplusCents)
	assert.True(t, res.SurplusCents >= 0)

	availAfter, lockedAfter, _, err := fx.eng.GetAvailableReserves(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), lockedAfter)
	assert.Equal(t, availBefore+res.SurplusCents, availAfter)

	poolsAfter, err := fx.eng.GetMatchPools(ctx, fx.round.ID)
	require.NoError(t, err)
	for _, p := range poolsAfter {
		assert.Equal(t, int64(0), p.Total())
	}

	round, err := fx.eng.GetRound(ctx, fx.round.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundSettled, round.Status)
	assert.Equal(t, fx.round.EndTime.Add(30*time.Hour), res.SweepDeadline)
}

func TestFulfillConsumesRequestOnce(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.cur = fx.round.StartTime
	require.NoError(t, fx.eng.LockRound(ctx, fx.round.ID))
	fx.cur = fx.round.EndTime
	requestID, err := fx.eng.RequestResults(ctx, fx.round.ID)
	require.NoError(t, err)

	_, err = fx.eng.FulfillRandomness(ctx, requestID, "seed-1")
	require.NoError(t, err)

	// A redelivered fulfillment must not settle again, with the same or a
	// different seed.
	_, err = fx.eng.FulfillRandomness(ctx, requestID, "seed-2")
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
}

func TestEmergencySettleExpiresPendingRequest(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.cur = fx.round.StartTime
	require.NoError(t, fx.eng.LockRound(ctx, fx.round.ID))
	fx.cur = fx.round.EndTime
	requestID, err := fx.eng.RequestResults(ctx, fx.round.ID)
	require.NoError(t, err)

	// Oracle stalled; the administrator settles with a fallback seed.
	_, err = fx.eng.EmergencySettleRound(ctx, fx.round.ID, "fallback-seed")
	require.NoError(t, err)

	// The stalled fulfillment arriving later finds the round settled.
	_, err = fx.eng.FulfillRandomness(ctx, requestID, "late-seed")
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
}

func TestClaimWindows(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	seed := "claim-seed"
	outcomes := outcome.Derive(seed, 3)
	betA := fx.place(t, "alice", 10_000, []LegRequest{{MatchIndex: 0, Outcome: outcomes[0]}})
	betB := fx.place(t, "bob", 10_000, []LegRequest{{MatchIndex: 1, Outcome: outcomes[1]}})
	fx.settle(t, seed)

	// Exclusive window: a third party is too early, the bettor claims 100%.
	_, err := fx.eng.ClaimWinnings(ctx, betA.ID, "keeper", 0)
	assert.ErrorIs(t, err, domain.ErrBountyTooEarly)

	split, err := fx.eng.ClaimWinnings(ctx, betA.ID, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), split.BountyCents)
	assert.Equal(t, betA.PotentialPayoutCents, split.PayoutCents)
	assert.Equal(t, betA.PotentialPayoutCents, fx.wallet.credited["alice"])

	// The status flip is the sole double-claim guard.
	_, err = fx.eng.ClaimWinnings(ctx, betA.ID, "alice", 0)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	// Bounty window: anyone may claim for the bettor and keep the cut.
	fx.cur = fx.round.EndTime.Add(24*time.Hour + time.Minute)
	split, err = fx.eng.ClaimWinnings(ctx, betB.ID, "keeper", 0)
	require.NoError(t, err)
	wantBounty := betB.PotentialPayoutCents * 500 / 10000
	assert.Equal(t, wantBounty, split.BountyCents)
	assert.Equal(t, betB.PotentialPayoutCents-wantBounty, split.WinnerCents())
	assert.Equal(t, wantBounty, fx.wallet.credited["keeper"])
	assert.Equal(t, split.WinnerCents(), fx.wallet.credited["bob"])
}

func TestClaimSlippage(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	seed := "slip-seed"
	outcomes := outcome.Derive(seed, 3)
	bet := fx.place(t, "alice", 10_000, []LegRequest{{MatchIndex: 0, Outcome: outcomes[0]}})
	fx.settle(t, seed)

	_, err := fx.eng.ClaimWinnings(ctx, bet.ID, "alice", bet.PotentialPayoutCents+1)
	assert.ErrorIs(t, err, domain.ErrSlippage)

	_, err = fx.eng.ClaimWinnings(ctx, bet.ID, "alice", bet.PotentialPayoutCents)
	assert.NoError(t, err)
}

func TestClaimLostBet(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	seed := "lost-seed"
	outcomes := outcome.Derive(seed, 3)
	bet := fx.place(t, "bob", 10_000, []LegRequest{{MatchIndex: 0, Outcome: otherOutcome(outcomes[0])}})
	fx.settle(t, seed)

	_, err := fx.eng.ClaimWinnings(ctx, bet.ID, "bob", 0)
	assert.ErrorIs(t, err, domain.ErrBetNotWon)
}

func TestBatchClaimSkipsIneligible(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	seed := "batch-seed"
	outcomes := outcome.Derive(seed, 3)
	won1 := fx.place(t, "alice", 10_000, []LegRequest{{MatchIndex: 0, Outcome: outcomes[0]}})
	won2 := fx.place(t, "bob", 20_000, []LegRequest{{MatchIndex: 1, Outcome: outcomes[1]}})
	lost := fx.place(t, "carol", 10_000, []LegRequest{{MatchIndex: 2, Outcome: otherOutcome(outcomes[2])}})
	fx.settle(t, seed)

	fx.cur = fx.round.EndTime.Add(25 * time.Hour)
	res, err := fx.eng.BatchClaim(ctx, []string{won1.ID, lost.ID, "no-such-bet", won2.ID}, "keeper", 0)
	require.NoError(t, err)

	assert.Len(t, res.Claimed, 2)
	assert.ElementsMatch(t, []string{lost.ID, "no-such-bet"}, res.Skipped)

	wantTotal := won1.PotentialPayoutCents*500/10000 + won2.PotentialPayoutCents*500/10000
	assert.Equal(t, wantTotal, res.CallerTotalCents)
	assert.Equal(t, wantTotal, fx.wallet.credited["keeper"])
}

func TestCanClaimWithBounty(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	seed := "bounty-seed"
	outcomes := outcome.Derive(seed, 3)
	bet := fx.place(t, "alice", 10_000, []LegRequest{{MatchIndex: 0, Outcome: outcomes[0]}})
	fx.settle(t, seed)

	st, err := fx.eng.CanClaimWithBounty(ctx, bet.ID)
	require.NoError(t, err)
	assert.False(t, st.Eligible)
	assert.Equal(t, 24*time.Hour, st.TimeUntilEligible)

	fx.cur = fx.round.EndTime.Add(25 * time.Hour)
	st, err = fx.eng.CanClaimWithBounty(ctx, bet.ID)
	require.NoError(t, err)
	assert.True(t, st.Eligible)
	assert.Equal(t, bet.PotentialPayoutCents*500/10000, st.BountyCents)
	assert.Equal(t, bet.PotentialPayoutCents, st.BountyCents+st.WinnerCents)
}

func TestSweepRoundPool(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	seed := "sweep-seed"
	outcomes := outcome.Derive(seed, 3)
	claimed := fx.place(t, "alice", 10_000, []LegRequest{{MatchIndex: 0, Outcome: outcomes[0]}})
	abandoned := fx.place(t, "bob", 10_000, []LegRequest{{MatchIndex: 1, Outcome: outcomes[1]}})
	res, _ := fx.settle(t, seed)

	_, err := fx.eng.ClaimWinnings(ctx, claimed.ID, "alice", 0)
	require.NoError(t, err)

	_, err = fx.eng.SweepRoundPool(ctx, fx.round.ID)
	assert.ErrorIs(t, err, domain.ErrSweepTooEarly)

	availBefore, _, _, err := fx.eng.GetAvailableReserves(ctx)
	require.NoError(t, err)

	fx.cur = res.SweepDeadline
	sweep, err := fx.eng.SweepRoundPool(ctx, fx.round.ID)
	require.NoError(t, err)

	wantUnclaimed := abandoned.PotentialPayoutCents
	wantSeason := wantUnclaimed * 200 / 10000
	assert.Equal(t, wantUnclaimed, sweep.UnclaimedCents)
	assert.Equal(t, wantSeason, sweep.SeasonCents)
	assert.Equal(t, wantUnclaimed-wantSeason, sweep.ReserveCents)

	availAfter, _, _, err := fx.eng.GetAvailableReserves(ctx)
	require.NoError(t, err)
	assert.Equal(t, availBefore+sweep.ReserveCents, availAfter)

	season, err := fx.eng.GetSeasonPool(ctx, "season-1")
	require.NoError(t, err)
	assert.Equal(t, wantSeason, season)

	round, err := fx.eng.GetRound(ctx, fx.round.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundFinalized, round.Status)

	_, err = fx.eng.SweepRoundPool(ctx, fx.round.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadySwept)

	// An abandoned winner cannot claim out of a swept pool.
	_, err = fx.eng.ClaimWinnings(ctx, abandoned.ID, "bob", 0)
	assert.ErrorIs(t, err, domain.ErrAlreadySwept)
}

func TestReserveWithdrawals(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	avail, _, _, err := fx.eng.GetAvailableReserves(ctx)
	require.NoError(t, err)

	_, err = fx.eng.WithdrawReserves(ctx, avail+1, "treasury")
	assert.ErrorIs(t, err, domain.ErrInsufficientReserve)

	_, err = fx.eng.WithdrawReserves(ctx, 0, "treasury")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	res, err := fx.eng.WithdrawReserves(ctx, 50_000, "treasury")
	require.NoError(t, err)
	assert.Equal(t, avail-50_000, res.AvailableCents)
	assert.Equal(t, int64(50_000), fx.wallet.credited["treasury"])
}

// Funds entering the engine equal funds held plus funds owed, at every stage.
func TestConservationAcrossLifecycle(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	seed := "conserve-seed"
	outcomes := outcome.Derive(seed, 3)
	fx.place(t, "alice", 10_000, []LegRequest{{MatchIndex: 0, Outcome: outcomes[0]}})
	fx.place(t, "bob", 20_000, []LegRequest{{MatchIndex: 1, Outcome: otherOutcome(outcomes[1])}})
	fx.place(t, "carol", 3_000, []LegRequest{
		{MatchIndex: 0, Outcome: outcomes[0]},
		{MatchIndex: 1, Outcome: outcomes[1]},
		{MatchIndex: 2, Outcome: outcomes[2]},
	})

	const deposits = int64(10_000_000)
	const stakes = int64(33_000)

	check := func(stage string) {
		t.Helper()
		_, _, reserveTotal, err := fx.eng.GetAvailableReserves(ctx)
		require.NoError(t, err)

		var poolTotal int64
		if pools, err := fx.eng.GetMatchPools(ctx, fx.round.ID); err == nil {
			for _, p := range pools {
				poolTotal += p.Total()
			}
		}
		var escrow int64
		if rp, err := fx.eng.GetRoundPool(ctx, fx.round.ID); err == nil && !rp.Swept {
			escrow = rp.TotalLockedCents - rp.TotalClaimedCents
		}
		var claimedOut int64
		for _, account := range []string{"alice", "bob", "carol", "keeper"} {
			claimedOut += fx.wallet.credited[account]
		}
		season, err := fx.eng.GetSeasonPool(ctx, "season-1")
		require.NoError(t, err)

		assert.Equal(t, deposits+stakes, reserveTotal+poolTotal+escrow+claimedOut+season, stage)
	}

	check("after placement")

	res, _ := fx.settle(t, seed)
	check("after settlement")

	bets, err := fx.eng.ListBets(ctx, "alice")
	require.NoError(t, err)
	_, err = fx.eng.ClaimWinnings(ctx, bets[0].ID, "alice", 0)
	require.NoError(t, err)
	check("after claim")

	fx.cur = res.SweepDeadline
	_, err = fx.eng.SweepRoundPool(ctx, fx.round.ID)
	require.NoError(t, err)
	check("after sweep")
}
