package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/parimutuel-engine/internal/engine/domain"
)

var base = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func seededMemory(t *testing.T) (*Memory, domain.Round) {
	t.Helper()
	ctx := context.Background()
	m := NewMemory()

	_, err := m.DepositReserves(ctx, 1_000_000)
	require.NoError(t, err)

	round := domain.Round{
		ID:        "round-1",
		SeasonID:  "season-1",
		StartTime: base.Add(time.Hour),
		EndTime:   base.Add(2 * time.Hour),
		Status:    domain.RoundCreated,
	}
	require.NoError(t, m.CreateRound(ctx, round))

	entries := make([]SeedEntry, 2)
	for i := range entries {
		entries[i] = SeedEntry{
			MatchIndex: i,
			HomeCents:  10_000,
			AwayCents:  10_000,
			DrawCents:  10_000,
			Odds: map[domain.Outcome]decimal.Decimal{
				domain.OutcomeHome: decimal.RequireFromString("1.5"),
				domain.OutcomeAway: decimal.RequireFromString("1.5"),
				domain.OutcomeDraw: decimal.RequireFromString("1.5"),
			},
		}
	}
	require.NoError(t, m.SeedRound(ctx, round.ID, entries))
	return m, round
}

func activeBet(id, roundID string, stake, payout int64) domain.Bet {
	return domain.Bet{
		ID:                   id,
		Bettor:               "alice",
		RoundID:              roundID,
		StakeCents:           stake,
		Legs:                 []domain.Leg{{MatchIndex: 0, Outcome: domain.OutcomeHome, ShareCents: stake}},
		LockedMultiplier:     decimal.RequireFromString("1.5"),
		PotentialPayoutCents: payout,
		Status:               domain.BetActive,
	}
}

func TestLifecycleGuards(t *testing.T) {
	ctx := context.Background()
	m, round := seededMemory(t)

	// Seeding is CREATED-only.
	err := m.SeedRound(ctx, round.ID, nil)
	assert.ErrorIs(t, err, domain.ErrRoundNotSeedable)

	// Results need a locked round.
	err = m.MarkResultsPending(ctx, round.ID, domain.RandomnessRequest{ID: "req-1", RoundID: round.ID, Status: domain.RequestPending})
	assert.ErrorIs(t, err, domain.ErrRoundNotPending)

	require.NoError(t, m.LockRound(ctx, round.ID))
	err = m.LockRound(ctx, round.ID)
	assert.ErrorIs(t, err, domain.ErrRoundNotLockable)

	// Settling before the results request is a state error.
	_, err = m.SettleRound(ctx, round.ID, "", "seed", []domain.Outcome{domain.OutcomeHome, domain.OutcomeHome}, base.Add(32*time.Hour), base.Add(2*time.Hour))
	assert.ErrorIs(t, err, domain.ErrRoundNotPending)
}

func TestPlacementGuards(t *testing.T) {
	ctx := context.Background()
	m, round := seededMemory(t)

	beforeStart := base.Add(30 * time.Minute)

	// The payout lock cannot exceed the available reserve.
	err := m.ApplyPlacement(ctx, activeBet("bet-big", round.ID, 10_000, 5_000_000), beforeStart)
	assert.ErrorIs(t, err, domain.ErrInsufficientReserve)

	require.NoError(t, m.ApplyPlacement(ctx, activeBet("bet-1", round.ID, 10_000, 15_000), beforeStart))

	// The betting window closes at start time exactly.
	err = m.ApplyPlacement(ctx, activeBet("bet-2", round.ID, 10_000, 15_000), round.StartTime)
	assert.ErrorIs(t, err, domain.ErrRoundNotOpen)

	reserve, err := m.GetReserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), reserve.LockedCents)
}

func TestSettleRoundConsumesRequest(t *testing.T) {
	ctx := context.Background()
	m, round := seededMemory(t)

	require.NoError(t, m.LockRound(ctx, round.ID))
	require.NoError(t, m.MarkResultsPending(ctx, round.ID, domain.RandomnessRequest{ID: "req-1", RoundID: round.ID, Status: domain.RequestPending}))

	outcomes := []domain.Outcome{domain.OutcomeHome, domain.OutcomeAway}
	settleAt := base.Add(2 * time.Hour)

	// Settling before the round's end is rejected even in RESULTS_PENDING.
	_, err := m.SettleRound(ctx, round.ID, "req-1", "seed", outcomes, base.Add(32*time.Hour), base)
	assert.ErrorIs(t, err, domain.ErrRoundTooEarly)

	_, err = m.SettleRound(ctx, round.ID, "req-1", "seed", outcomes, base.Add(32*time.Hour), settleAt)
	require.NoError(t, err)

	req, err := m.GetRandomnessRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestFulfilled, req.Status)
	assert.Equal(t, "seed", req.Value)

	_, err = m.SettleRound(ctx, round.ID, "req-1", "other", outcomes, base.Add(32*time.Hour), settleAt)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
}

func TestSettleRoundRejectsForeignRequest(t *testing.T) {
	ctx := context.Background()
	m, round := seededMemory(t)

	require.NoError(t, m.LockRound(ctx, round.ID))
	require.NoError(t, m.MarkResultsPending(ctx, round.ID, domain.RandomnessRequest{ID: "req-1", RoundID: round.ID, Status: domain.RequestPending}))

	_, err := m.SettleRound(ctx, round.ID, "req-unknown", "seed", []domain.Outcome{domain.OutcomeHome, domain.OutcomeHome}, base.Add(32*time.Hour), base.Add(2*time.Hour))
	assert.ErrorIs(t, err, domain.ErrUnknownRequest)
}
