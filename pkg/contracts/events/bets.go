package events

// Published on "bet_placed" after the placement commits.
type BetPlaced struct {
	BetID            string  `json:"bet_id"`
	Bettor           string  `json:"bettor"`
	RoundID          string  `json:"round_id"`
	StakeCents       int64   `json:"stake_cents"`
	Legs             int     `json:"legs"`
	LockedMultiplier string  `json:"locked_multiplier"` // decimal string, fixed at placement
	PotentialPayout  int64   `json:"potential_payout_cents"`
	TsUnixMs         int64   `json:"ts_unix_ms"`
}

// Published on "bet_cancelled" after a cancellation commits.
type BetCancelled struct {
	BetID       string `json:"bet_id"`
	Bettor      string `json:"bettor"`
	RoundID     string `json:"round_id"`
	RefundCents int64  `json:"refund_cents"`
	FeeCents    int64  `json:"fee_cents"`
	TsUnixMs    int64  `json:"ts_unix_ms"`
}
