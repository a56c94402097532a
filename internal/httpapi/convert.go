package httpapi

import (
	"time"

	"github.com/park285/robochess/internal/archive"
	"github.com/park285/robochess/internal/game"
	"github.com/park285/robochess/internal/player"
	"github.com/park285/robochess/pkg/chessdto"
)

func gameState(snap game.Snapshot, budget time.Duration) chessdto.GameState {
	g := snap.Game
	moves := make([]string, len(g.Moves))
	for i, m := range g.Moves {
		moves[i] = m.Text()
	}
	st := chessdto.GameState{
		ID:             g.ID,
		WhitePlayer:    g.WhitePlayer,
		BlackPlayer:    g.BlackPlayer,
		State:          g.State.String(),
		Method:         string(g.Method),
		Moves:          moves,
		MoveCount:      len(moves),
		Board:          snap.Board.Codes(),
		WhiteTimeMS:    g.WhiteTime.Milliseconds(),
		BlackTimeMS:    g.BlackTime.Milliseconds(),
		StateEnteredAt: g.StateEnteredAt,
		InCheck:        snap.InCheck,
		CanClaimDraw:   snap.CanClaimDraw,
		CreatedAt:      g.CreatedAt,
		UpdatedAt:      g.UpdatedAt,
	}
	if at, ok := game.Deadline(g, budget); ok {
		st.Deadline = &at
	}
	return st
}

func playerDTO(p player.Player) chessdto.Player {
	return chessdto.Player{ID: p.ID, Name: p.Name, Score: p.Score, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
}

func archivedGame(r archive.Result) chessdto.ArchivedGame {
	return chessdto.ArchivedGame{
		GameID:      r.GameID,
		WhitePlayer: r.WhitePlayer,
		BlackPlayer: r.BlackPlayer,
		Result:      r.Result,
		Method:      r.Method,
		Moves:       r.Moves,
		MovesSAN:    r.MovesSAN,
		PGN:         r.PGN,
		WhiteTimeMS: r.WhiteTime.Milliseconds(),
		BlackTimeMS: r.BlackTime.Milliseconds(),
		StartedAt:   r.StartedAt,
		EndedAt:     r.EndedAt,
	}
}
