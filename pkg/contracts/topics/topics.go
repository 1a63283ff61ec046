package topics

const (
	// Randomness (oracle collaborator)
	RandomnessRequested = "randomness_requested"
	RandomnessFulfilled = "randomness_fulfilled"

	// Bets
	BetPlaced    = "bet_placed"
	BetCancelled = "bet_cancelled"

	// Rounds
	RoundSettled = "round_settled"
	RoundSwept   = "round_swept"

	// Claims
	WinningsClaimed = "winnings_claimed"

	// DLQs
	RandomnessFulfilledDLQ = "randomness_fulfilled_dlq"
)
