package chessdto

import "time"

type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreatePlayerRequest struct {
	Name string `json:"name"`
}

type PlayersResponse struct {
	Players []Player `json:"players"`
}
