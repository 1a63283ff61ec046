// Package store is the persistence port of the engine. Every mutating method
// is one atomic operation: guards are re-checked inside the atomic region, so
// racing callers serialize on state, never on engine-side locks.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/parimutuel-engine/internal/engine/domain"
)

// SeedEntry is one match's share of a round seeding: the real funds credited
// into each outcome pool and the odds locked for settlement.
type SeedEntry struct {
	MatchIndex int
	HomeCents  int64
	AwayCents  int64
	DrawCents  int64
	Odds       map[domain.Outcome]decimal.Decimal
}

func (e SeedEntry) Total() int64 { return e.HomeCents + e.AwayCents + e.DrawCents }

// Store persists rounds, bets, pools, the reserve and season pools.
// Implementations: Postgres (production) and Memory (tests, local runs).
type Store interface {
	// Rounds
	CreateRound(ctx context.Context, r domain.Round) error
	GetRound(ctx context.Context, roundID string) (domain.Round, error)
	SeedRound(ctx context.Context, roundID string, entries []SeedEntry) error
	LockRound(ctx context.Context, roundID string) error
	MarkResultsPending(ctx context.Context, roundID string, req domain.RandomnessRequest) error
	GetRandomnessRequest(ctx context.Context, requestID string) (domain.RandomnessRequest, error)

	// Bets
	ApplyPlacement(ctx context.Context, bet domain.Bet, now time.Time) error
	ApplyCancellation(ctx context.Context, betID, caller string, feeBps int64) (domain.CancelResult, error)
	GetBet(ctx context.Context, betID string) (domain.Bet, error)
	ListBetsByBettor(ctx context.Context, bettor string) ([]domain.Bet, error)

	// Settlement, claims, sweep
	SettleRound(ctx context.Context, roundID, requestID, value string, outcomes []domain.Outcome, sweepDeadline, now time.Time) (domain.SettlementResult, error)
	ApplyClaim(ctx context.Context, split domain.ClaimSplit) error
	SweepRoundPool(ctx context.Context, roundID string, seasonShareBps int64, now time.Time) (domain.SweepResult, error)

	// Reads
	GetMatchPools(ctx context.Context, roundID string) ([]domain.MatchPool, error)
	GetLockedOdds(ctx context.Context, roundID string, matchIndex int) (map[domain.Outcome]decimal.Decimal, error)
	GetRoundLockedOdds(ctx context.Context, roundID string) (map[int]map[domain.Outcome]decimal.Decimal, error)
	GetRoundPool(ctx context.Context, roundID string) (domain.RoundPool, error)

	// Reserve and seasons
	DepositReserves(ctx context.Context, amountCents int64) (domain.Reserve, error)
	WithdrawReserves(ctx context.Context, amountCents int64) (domain.Reserve, error)
	GetReserve(ctx context.Context) (domain.Reserve, error)
	GetSeasonPool(ctx context.Context, seasonID string) (int64, error)
}
