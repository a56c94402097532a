package game

import (
	"fmt"

	"github.com/park285/robochess/internal/chess"
)

// State is the lifecycle state of a game.
type State uint8

const (
	WaitingForInvitedPlayer State = iota + 1
	WhiteTurn
	BlackTurn
	WhitePromotePawn
	BlackPromotePawn
	WhiteHasProposedDraw
	BlackHasProposedDraw
	WhiteVictory
	BlackVictory
	Draw
)

var stateNames = map[State]string{
	WaitingForInvitedPlayer: "WaitingForInvitedPlayer",
	WhiteTurn:               "WhiteTurn",
	BlackTurn:               "BlackTurn",
	WhitePromotePawn:        "WhitePromotePawn",
	BlackPromotePawn:        "BlackPromotePawn",
	WhiteHasProposedDraw:    "WhiteHasProposedDraw",
	BlackHasProposedDraw:    "BlackHasProposedDraw",
	WhiteVictory:            "WhiteVictory",
	BlackVictory:            "BlackVictory",
	Draw:                    "Draw",
}

// States lists every lifecycle state in declaration order.
func States() []State {
	return []State{
		WaitingForInvitedPlayer, WhiteTurn, BlackTurn, WhitePromotePawn, BlackPromotePawn,
		WhiteHasProposedDraw, BlackHasProposedDraw, WhiteVictory, BlackVictory, Draw,
	}
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

func ParseState(raw string) (State, error) {
	for s, n := range stateNames {
		if n == raw {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown game state %q", raw)
}

func (s State) MarshalText() ([]byte, error) {
	if _, ok := stateNames[s]; !ok {
		return nil, fmt.Errorf("unknown game state %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s State) IsTerminal() bool {
	return s == WhiteVictory || s == BlackVictory || s == Draw
}

func (s State) IsTurn() bool { return s == WhiteTurn || s == BlackTurn }

func (s State) IsPromotion() bool { return s == WhitePromotePawn || s == BlackPromotePawn }

func (s State) IsDrawProposal() bool {
	return s == WhiteHasProposedDraw || s == BlackHasProposedDraw
}

// Owner is the color whose player acts in s: the side to move, the promoting side or the
// side that proposed a draw. Waiting and terminal states have no owner.
func (s State) Owner() (chess.Color, bool) {
	switch s {
	case WhiteTurn, WhitePromotePawn, WhiteHasProposedDraw:
		return chess.White, true
	case BlackTurn, BlackPromotePawn, BlackHasProposedDraw:
		return chess.Black, true
	default:
		return chess.White, false
	}
}

// sideToMove is only meaningful in turn states; anything else is a defect in the caller.
func (s State) sideToMove() chess.Color {
	switch s {
	case WhiteTurn:
		return chess.White
	case BlackTurn:
		return chess.Black
	default:
		panic(fmt.Sprintf("invariant: no side to move in state %s", s))
	}
}

func turnOf(c chess.Color) State {
	if c == chess.White {
		return WhiteTurn
	}
	return BlackTurn
}

func promotionOf(c chess.Color) State {
	if c == chess.White {
		return WhitePromotePawn
	}
	return BlackPromotePawn
}

func drawProposalOf(c chess.Color) State {
	if c == chess.White {
		return WhiteHasProposedDraw
	}
	return BlackHasProposedDraw
}

func victoryOf(c chess.Color) State {
	if c == chess.White {
		return WhiteVictory
	}
	return BlackVictory
}

// Event is a command type accepted by the engine.
type Event uint8

const (
	CreateGame Event = iota + 1
	AcceptInvite
	DeclineInvite
	MakeMove
	ProposeDraw
	AcceptDraw
	DeclineDraw
	Resign
	PromotePawn
)

var eventNames = map[Event]string{
	CreateGame:    "CreateGame",
	AcceptInvite:  "AcceptInvite",
	DeclineInvite: "DeclineInvite",
	MakeMove:      "MakeMove",
	ProposeDraw:   "ProposeDraw",
	AcceptDraw:    "AcceptDraw",
	DeclineDraw:   "DeclineDraw",
	Resign:        "Resign",
	PromotePawn:   "PromotePawn",
}

func (e Event) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return fmt.Sprintf("Event(%d)", uint8(e))
}

func ParseEvent(raw string) (Event, error) {
	for e, n := range eventNames {
		if n == raw {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown event %q", raw)
}

func (e Event) MarshalText() ([]byte, error) {
	if _, ok := eventNames[e]; !ok {
		return nil, fmt.Errorf("unknown event %d", uint8(e))
	}
	return []byte(e.String()), nil
}

func (e *Event) UnmarshalText(b []byte) error {
	v, err := ParseEvent(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Method records how a finished game ended.
type Method string

const (
	MethodCheckmate          Method = "checkmate"
	MethodResignation        Method = "resignation"
	MethodTimeout            Method = "timeout"
	MethodStalemate          Method = "stalemate"
	MethodDeadPosition       Method = "dead_position"
	MethodFivefoldRepetition Method = "fivefold_repetition"
	MethodAgreement          Method = "agreement"
)

func methodForDraw(r chess.DrawRule) Method {
	switch r {
	case chess.DrawStalemate:
		return MethodStalemate
	case chess.DrawDeadPosition:
		return MethodDeadPosition
	case chess.DrawFivefoldRepetition:
		return MethodFivefoldRepetition
	default:
		return Method(r.String())
	}
}
