package domain

import "time"

// RoundStatus drives which operations are legal on a round.
type RoundStatus string

const (
	RoundCreated        RoundStatus = "CREATED"
	RoundSeeded         RoundStatus = "SEEDED"
	RoundLocked         RoundStatus = "LOCKED"
	RoundResultsPending RoundStatus = "RESULTS_PENDING"
	RoundSettled        RoundStatus = "SETTLED"
	RoundFinalized      RoundStatus = "FINALIZED"
)

// Outcome of a single match. None until settlement.
type Outcome string

const (
	OutcomeNone Outcome = "NONE"
	OutcomeHome Outcome = "HOME"
	OutcomeAway Outcome = "AWAY"
	OutcomeDraw Outcome = "DRAW"
)

// ValidOutcome reports whether o is a bettable outcome.
func ValidOutcome(o Outcome) bool {
	return o == OutcomeHome || o == OutcomeAway || o == OutcomeDraw
}

// Round groups a fixed set of matches sharing one betting window and one
// settlement. Betting is open while SEEDED and before StartTime.
type Round struct {
	ID        string
	SeasonID  string
	StartTime time.Time
	EndTime   time.Time
	Status    RoundStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Match is one fixture inside a round, identified by its index.
type Match struct {
	RoundID    string
	Index      int
	FinalScore Outcome // NONE until the round settles
}

// MatchPool holds the real funds wagered per outcome of one match.
// Total() always equals the sum of the three outcome pools.
type MatchPool struct {
	RoundID   string
	Index     int
	HomeCents int64
	AwayCents int64
	DrawCents int64
}

func (p MatchPool) Total() int64 {
	return p.HomeCents + p.AwayCents + p.DrawCents
}

// OutcomeCents returns the pool size for a given outcome.
func (p MatchPool) OutcomeCents(o Outcome) int64 {
	switch o {
	case OutcomeHome:
		return p.HomeCents
	case OutcomeAway:
		return p.AwayCents
	case OutcomeDraw:
		return p.DrawCents
	}
	return 0
}

// Add credits amount into the pool of the given outcome.
func (p *MatchPool) Add(o Outcome, amountCents int64) {
	switch o {
	case OutcomeHome:
		p.HomeCents += amountCents
	case OutcomeAway:
		p.AwayCents += amountCents
	case OutcomeDraw:
		p.DrawCents += amountCents
	}
}

// RoundPool is the settlement escrow of one round: funds locked for winning
// bets at settlement, drained by claims, swept after the deadline.
type RoundPool struct {
	RoundID           string
	TotalLockedCents  int64
	TotalClaimedCents int64
	SweepDeadline     time.Time
	Swept             bool
}

// Reserve is the protocol balance backing seeds, bonuses and payouts.
// AvailableCents+LockedCents is conserved by every operation except
// deposits, withdrawals, settlement and sweeps.
type Reserve struct {
	AvailableCents int64
	LockedCents    int64
}

func (r Reserve) Total() int64 { return r.AvailableCents + r.LockedCents }

// RandomnessRequest tracks one outstanding oracle request.
// A request resolves at most once.
type RandomnessRequestStatus string

const (
	RequestPending   RandomnessRequestStatus = "PENDING"
	RequestFulfilled RandomnessRequestStatus = "FULFILLED"
	RequestExpired   RandomnessRequestStatus = "EXPIRED"
)

type RandomnessRequest struct {
	ID        string
	RoundID   string
	Status    RandomnessRequestStatus
	Value     string // oracle seed, set on fulfilment
	CreatedAt time.Time
}
