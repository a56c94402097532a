package chessdto

// MovesResponse lists the legal moves of the side to move in wire form ("e2e4").
type MovesResponse struct {
	GameID string   `json:"game_id"`
	Moves  []string `json:"moves"`
}
