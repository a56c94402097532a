package chessdto

import "time"

// Notification is one change feed entry streamed over the /feed websocket.
type Notification struct {
	Seq    uint64    `json:"seq"`
	Kind   string    `json:"kind"`
	GameID string    `json:"game_id"`
	State  string    `json:"state"`
	At     time.Time `json:"at"`
}
