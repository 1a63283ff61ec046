package ws

// ClientMsg is a message received from a websocket client.
// Type: subscribe | unsubscribe | ping
// RoundID is required for subscribe/unsubscribe.
type ClientMsg struct {
	Type    string `json:"type"`
	RoundID string `json:"roundId"`
}
