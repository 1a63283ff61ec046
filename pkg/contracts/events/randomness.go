package events

import "time"

// Published on "randomness_requested" when a round enters ResultsPending.
type RandomnessRequested struct {
	RequestID string    `json:"request_id"`
	RoundID   string    `json:"round_id"`
	Ts        time.Time `json:"ts"`
}

// Published on "randomness_fulfilled" by the oracle collaborator.
// Value is an opaque hex seed; the engine derives match outcomes from it.
type RandomnessFulfilled struct {
	RequestID string    `json:"request_id"`
	RoundID   string    `json:"round_id"`
	Value     string    `json:"value"`
	Ts        time.Time `json:"ts"`
}
