package dto

import "time"

type ErrorResponse struct {
	Class   string `json:"class"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RoundResponse struct {
	RoundID   string    `json:"roundId"`
	SeasonID  string    `json:"seasonId"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

type RequestResultsResponse struct {
	RoundID   string `json:"roundId"`
	RequestID string `json:"requestId"`
}

type SettlementResponse struct {
	RoundID       string    `json:"roundId"`
	Outcomes      []string  `json:"outcomes"`
	WonBets       int       `json:"wonBets"`
	LostBets      int       `json:"lostBets"`
	EscrowCents   int64     `json:"escrow_cents"`
	SurplusCents  int64     `json:"surplus_cents"`
	SweepDeadline time.Time `json:"sweepDeadline"`
}

type LegResponse struct {
	MatchIndex int    `json:"matchIndex"`
	Outcome    string `json:"outcome"`
	ShareCents int64  `json:"share_cents"`
}

type BetResponse struct {
	BetID            string        `json:"betId"`
	Bettor           string        `json:"bettor"`
	RoundID          string        `json:"roundId"`
	Status           string        `json:"status"`
	StakeCents       int64         `json:"stake_cents"`
	LockedMultiplier string        `json:"locked_multiplier"`
	PotentialPayout  int64         `json:"potential_payout_cents"`
	Legs             []LegResponse `json:"legs"`
}

type ClaimResponse struct {
	BetID       string `json:"betId"`
	RoundID     string `json:"roundId"`
	Bettor      string `json:"bettor"`
	Caller      string `json:"caller"`
	PayoutCents int64  `json:"payout_cents"`
	BountyCents int64  `json:"bounty_cents"`
	WinnerCents int64  `json:"winner_cents"`
}

type BatchClaimResponse struct {
	Claimed          []ClaimResponse `json:"claimed"`
	Skipped          []string        `json:"skipped"`
	CallerTotalCents int64           `json:"caller_total_cents"`
}

type BountyStatusResponse struct {
	Eligible           bool   `json:"eligible"`
	SecondsUntilWindow int64  `json:"seconds_until_window"`
	BountyCents        int64  `json:"bounty_cents"`
	WinnerCents        int64  `json:"winner_cents"`
	BetID              string `json:"betId"`
}

type SweepResponse struct {
	RoundID        string `json:"roundId"`
	UnclaimedCents int64  `json:"unclaimed_cents"`
	SeasonCents    int64  `json:"season_cents"`
	ReserveCents   int64  `json:"reserve_cents"`
}

type LockedOddsResponse struct {
	RoundID    string            `json:"roundId"`
	MatchIndex int               `json:"matchIndex"`
	Odds       map[string]string `json:"odds"`
}

type MatchPoolResponse struct {
	Index     int   `json:"index"`
	HomeCents int64 `json:"home_cents"`
	AwayCents int64 `json:"away_cents"`
	DrawCents int64 `json:"draw_cents"`
}

type ReserveResponse struct {
	AvailableCents int64 `json:"available_cents"`
	LockedCents    int64 `json:"locked_cents"`
	TotalCents     int64 `json:"total_cents"`
}

type SeasonPoolResponse struct {
	SeasonID string `json:"seasonId"`
	Cents    int64  `json:"cents"`
}
