package dto

import "time"

type CreateRoundRequest struct {
	SeasonID  string    `json:"seasonId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

type EmergencySettleRequest struct {
	FallbackSeed string `json:"fallbackSeed"`
}

type LegRequest struct {
	MatchIndex int    `json:"matchIndex"`
	Outcome    string `json:"outcome"` // HOME | AWAY | DRAW
}

type PlaceBetRequest struct {
	RoundID    string       `json:"roundId"`
	Bettor     string       `json:"bettor"`
	StakeCents int64        `json:"stake_cents"`
	Legs       []LegRequest `json:"legs"`
}

type CancelBetRequest struct {
	Caller string `json:"caller"`
}

type ClaimRequest struct {
	Caller         string `json:"caller"`
	MinPayoutCents int64  `json:"min_payout_cents"`
}

type BatchClaimRequest struct {
	Caller         string   `json:"caller"`
	BetIDs         []string `json:"betIds"`
	MinPayoutCents int64    `json:"min_payout_cents"`
}

type ReserveDepositRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

type ReserveWithdrawRequest struct {
	AmountCents int64  `json:"amount_cents"`
	To          string `json:"to"`
}
