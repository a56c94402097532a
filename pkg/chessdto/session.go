package chessdto

import "time"

// GameState is the public view of one game.
type GameState struct {
	ID             string     `json:"id"`
	WhitePlayer    string     `json:"white_player"`
	BlackPlayer    string     `json:"black_player"`
	State          string     `json:"state"`
	Method         string     `json:"method,omitempty"`
	Moves          []string   `json:"moves"`
	MoveCount      int        `json:"move_count"`
	Board          []string   `json:"board"`
	WhiteTimeMS    int64      `json:"white_time_ms"`
	BlackTimeMS    int64      `json:"black_time_ms"`
	StateEnteredAt time.Time  `json:"state_entered_at"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	InCheck        bool       `json:"in_check"`
	CanClaimDraw   bool       `json:"can_claim_draw"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
