package chessdto

import "time"

// ArchivedGame is one finished game from the result archive.
type ArchivedGame struct {
	GameID      string    `json:"game_id"`
	WhitePlayer string    `json:"white_player"`
	BlackPlayer string    `json:"black_player"`
	Result      string    `json:"result"`
	Method      string    `json:"method"`
	Moves       []string  `json:"moves"`
	MovesSAN    []string  `json:"moves_san"`
	PGN         string    `json:"pgn"`
	WhiteTimeMS int64     `json:"white_time_ms"`
	BlackTimeMS int64     `json:"black_time_ms"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
}

type HistoryResponse struct {
	Games []ArchivedGame `json:"games"`
}
