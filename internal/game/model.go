package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/park285/robochess/internal/chess"
)

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrConcurrentUpdate = errors.New("game was modified concurrently")
	ErrEngineClosed     = errors.New("engine closed")
)

// Validation codes reported to callers.
const (
	CodeMalformedParams = "malformed_params"
	CodeWrongState      = "wrong_state"
	CodeWrongPlayer     = "wrong_player"
	CodeIllegalMove     = "illegal_move"
	CodeIllegalPiece    = "illegal_piece"
	CodeSamePlayers     = "same_players"
	CodeMustPlayWhite   = "must_play_white"
	CodeUnknownPlayer   = "unknown_player"
	CodeNotLoggedIn     = "not_logged_in"
)

// ValidationError is a rejected command. The game is left unchanged.
type ValidationError struct {
	Code   string
	Reason string
}

func (e *ValidationError) Error() string { return e.Code + ": " + e.Reason }

func reject(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// AsValidation unwraps a ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Game is the persisted state of one match. The board is never stored; it is replayed from Moves.
type Game struct {
	ID             string        `json:"id"`
	WhitePlayer    string        `json:"white_player"`
	BlackPlayer    string        `json:"black_player"`
	Moves          []chess.Move  `json:"moves"`
	WhiteTime      time.Duration `json:"white_time"`
	BlackTime      time.Duration `json:"black_time"`
	State          State         `json:"state"`
	StateEnteredAt time.Time     `json:"state_entered_at"`
	Method         Method        `json:"method,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Version        int64         `json:"version"`
}

// Clone returns a copy that shares no slices with g.
func (g Game) Clone() Game {
	g.Moves = append([]chess.Move(nil), g.Moves...)
	return g
}

func (g Game) Board() chess.Board { return chess.FromMoves(g.Moves) }

func (g Game) PlayerOf(c chess.Color) string {
	if c == chess.White {
		return g.WhitePlayer
	}
	return g.BlackPlayer
}

// ColorOf reports which side player plays in g.
func (g Game) ColorOf(player string) (chess.Color, bool) {
	switch player {
	case g.WhitePlayer:
		return chess.White, true
	case g.BlackPlayer:
		return chess.Black, true
	default:
		return chess.White, false
	}
}

func (g Game) Elapsed(c chess.Color) time.Duration {
	if c == chess.White {
		return g.WhiteTime
	}
	return g.BlackTime
}

func (g *Game) addElapsed(c chess.Color, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if c == chess.White {
		g.WhiteTime += d
	} else {
		g.BlackTime += d
	}
}

// Params carries the event specific arguments of a command.
type Params struct {
	WhitePlayer string `json:"white_player,omitempty"`
	BlackPlayer string `json:"black_player,omitempty"`
	Move        string `json:"move,omitempty"`
	Piece       string `json:"piece,omitempty"`
}

// Command is one request against the engine. GameID is empty only for CreateGame.
type Command struct {
	Event  Event  `json:"event"`
	GameID string `json:"game_id,omitempty"`
	Actor  string `json:"actor"`
	Params Params `json:"params"`
}

// Snapshot is the view of a game after a command or a read.
type Snapshot struct {
	Game         Game
	Board        chess.Board
	Deleted      bool
	InCheck      bool
	CanClaimDraw bool
}

func snapshotOf(g Game) Snapshot {
	b := g.Board()
	s := Snapshot{Game: g, Board: b, CanClaimDraw: chess.CanClaimDraw(g.Moves)}
	if g.State.IsTurn() {
		s.InCheck = chess.IsInCheck(b, g.State.sideToMove())
	}
	return s
}

// Store persists games. Save succeeds only when the stored version equals prevVersion.
type Store interface {
	Create(ctx context.Context, g Game) error
	Get(ctx context.Context, id string) (Game, error)
	Save(ctx context.Context, g Game, prevVersion int64) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Game, error)
}

// RatingSink receives score deltas for finished games.
type RatingSink interface {
	UpdateScore(ctx context.Context, playerID string, delta int) error
}

// PlayerDirectory answers whether a player id refers to a registered player.
type PlayerDirectory interface {
	Exists(ctx context.Context, playerID string) (bool, error)
}

// Archiver stores finished games.
type Archiver interface {
	SaveResult(ctx context.Context, g Game) error
}

// RatingUpdate is an outgoing score command.
type RatingUpdate struct {
	PlayerID string
	Delta    int
}

// Points returns the score awarded to white and black for a terminal state.
func Points(s State) (white, black int) {
	switch s {
	case WhiteVictory:
		return 2, 0
	case BlackVictory:
		return 0, 2
	case Draw:
		return 1, 1
	default:
		panic(fmt.Sprintf("invariant: ratings requested for non-terminal state %s", s))
	}
}

// RatingUpdates lists the score commands emitted when g has finished.
func RatingUpdates(g Game) []RatingUpdate {
	w, b := Points(g.State)
	return []RatingUpdate{{PlayerID: g.WhitePlayer, Delta: w}, {PlayerID: g.BlackPlayer, Delta: b}}
}
