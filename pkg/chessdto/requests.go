package chessdto

// CommandParams carries the event specific arguments of a command.
type CommandParams struct {
	WhitePlayer string `json:"white_player,omitempty"`
	BlackPlayer string `json:"black_player,omitempty"`
	Move        string `json:"move,omitempty"`
	Piece       string `json:"piece,omitempty"`
}

// CommandRequest is the body of POST /commands. The actor comes from the X-User-Id header.
type CommandRequest struct {
	Event  string        `json:"event"`
	GameID string        `json:"game_id,omitempty"`
	Params CommandParams `json:"params"`
}

type CommandResponse struct {
	Game    *GameState `json:"game,omitempty"`
	Deleted bool       `json:"deleted,omitempty"`
}

type GamesResponse struct {
	Games []GameState `json:"games"`
}
