package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetStatus transitions: ACTIVE -> WON|LOST|CANCELLED, WON -> CLAIMED.
// No other path reaches CLAIMED.
type BetStatus string

const (
	BetActive    BetStatus = "ACTIVE"
	BetWon       BetStatus = "WON"
	BetLost      BetStatus = "LOST"
	BetCancelled BetStatus = "CANCELLED"
	BetClaimed   BetStatus = "CLAIMED"
)

// Leg is one outcome prediction on one match. ShareCents is the portion of
// the stake credited into that match's pool at placement, recorded so a
// cancellation can reverse exactly what was contributed.
type Leg struct {
	MatchIndex int
	Outcome    Outcome
	ShareCents int64
}

// Bet is a single or multi-leg (parlay) wager. LockedMultiplier is fixed at
// placement and never recomputed; PotentialPayoutCents is stake times that
// multiplier, floored.
type Bet struct {
	ID                   string
	Bettor               string
	RoundID              string
	StakeCents           int64
	Legs                 []Leg
	LockedMultiplier     decimal.Decimal
	PotentialPayoutCents int64
	Status               BetStatus
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ReserveLockCents is the payout excess the reserve holds while the bet is
// live: the stake itself sits in the match pools.
func (b Bet) ReserveLockCents() int64 {
	return b.PotentialPayoutCents - b.StakeCents
}

// Wins reports whether every leg matches the revealed outcomes. A parlay is
// all-or-nothing: one mismatched leg loses the whole bet.
func (b Bet) Wins(outcomes []Outcome) bool {
	for _, leg := range b.Legs {
		if leg.MatchIndex < 0 || leg.MatchIndex >= len(outcomes) {
			return false
		}
		if outcomes[leg.MatchIndex] != leg.Outcome {
			return false
		}
	}
	return true
}

// CancelResult reports what a committed cancellation moved.
type CancelResult struct {
	Bet          Bet
	RefundCents  int64
	FeeCents     int64
	ReleasedLock int64
}

// SettlementResult reports what a committed settlement moved.
type SettlementResult struct {
	RoundID       string
	Outcomes      []Outcome
	WonBets       int
	LostBets      int
	EscrowCents   int64 // sum of potential payouts over won bets
	SurplusCents  int64 // pools + released locks - escrow, credited to the reserve
	SweepDeadline time.Time
}

// ClaimSplit is a claim payout already divided between the bettor and, in the
// bounty window, the third-party caller. BountyCents is zero for a bettor
// claim inside the exclusive window.
type ClaimSplit struct {
	BetID       string
	RoundID     string
	Bettor      string
	Caller      string
	PayoutCents int64
	BountyCents int64
}

// WinnerCents is the bettor's portion of the payout.
func (c ClaimSplit) WinnerCents() int64 { return c.PayoutCents - c.BountyCents }

// SweepResult reports what a committed sweep moved.
type SweepResult struct {
	RoundID        string
	SeasonID       string
	UnclaimedCents int64
	SeasonCents    int64
	ReserveCents   int64
}
