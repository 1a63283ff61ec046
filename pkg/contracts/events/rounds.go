package events

import "time"

// Published on "round_settled" once all bets in the round are resolved.
type RoundSettled struct {
	RoundID       string    `json:"round_id"`
	RequestID     string    `json:"request_id,omitempty"` // empty for emergency settlement
	Outcomes      []string  `json:"outcomes"`             // per match index
	WonBets       int       `json:"won_bets"`
	LostBets      int       `json:"lost_bets"`
	EscrowCents   int64     `json:"escrow_cents"` // sum of potential payouts over won bets
	SweepDeadline time.Time `json:"sweep_deadline"`
	Ts            time.Time `json:"ts"`
}

// Published on "winnings_claimed" after a claim commits.
type WinningsClaimed struct {
	BetID        string `json:"bet_id"`
	RoundID      string `json:"round_id"`
	Bettor       string `json:"bettor"`
	Caller       string `json:"caller"`
	PayoutCents  int64  `json:"payout_cents"`
	BountyCents  int64  `json:"bounty_cents"` // 0 inside the exclusive window
	TsUnixMs     int64  `json:"ts_unix_ms"`
}

// Published on "round_swept" when unclaimed funds return to the reserve.
type RoundSwept struct {
	RoundID        string `json:"round_id"`
	UnclaimedCents int64  `json:"unclaimed_cents"`
	SeasonCents    int64  `json:"season_cents"`
	ReserveCents   int64  `json:"reserve_cents"` // portion credited back to the reserve
	TsUnixMs       int64  `json:"ts_unix_ms"`
}
