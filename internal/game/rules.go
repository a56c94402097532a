package game

import (
	"strings"
	"time"

	"github.com/park285/robochess/internal/chess"
)

// outcome is the result of applying one command to a game copy.
type outcome struct {
	game    Game
	deleted bool
}

// apply validates cmd against g and returns the next game. g is not modified.
func apply(g Game, cmd Command, now time.Time) (outcome, error) {
	next := g.Clone()
	switch cmd.Event {
	case AcceptInvite, DeclineInvite:
		if g.State != WaitingForInvitedPlayer {
			return outcome{}, wrongState(cmd.Event, g.State)
		}
		if cmd.Actor != g.BlackPlayer {
			return outcome{}, reject(CodeWrongPlayer, "only the invited black player may answer the invitation")
		}
		if cmd.Event == DeclineInvite {
			return outcome{game: next, deleted: true}, nil
		}
		enter(&next, WhiteTurn, now)
		return outcome{game: next}, nil

	case MakeMove:
		mover, err := requireOwner(g, cmd, g.State.IsTurn())
		if err != nil {
			return outcome{}, err
		}
		mv, err := chess.ParseMove(strings.TrimSpace(cmd.Params.Move))
		if err != nil {
			return outcome{}, reject(CodeMalformedParams, "malformed move %q", cmd.Params.Move)
		}
		if !chess.LegalMoves(g.Board(), mover).Contains(mv) {
			return outcome{}, reject(CodeIllegalMove, "%s is not a legal move", mv)
		}
		leave(&next, now)
		next.Moves = append(next.Moves, mv)
		enter(&next, turnOf(mover.Opposite()), now)
		return outcome{game: next}, nil

	case ProposeDraw:
		mover, err := requireOwner(g, cmd, g.State.IsTurn())
		if err != nil {
			return outcome{}, err
		}
		leave(&next, now)
		enter(&next, drawProposalOf(mover), now)
		return outcome{game: next}, nil

	case Resign:
		mover, err := requireOwner(g, cmd, g.State.IsTurn())
		if err != nil {
			return outcome{}, err
		}
		leave(&next, now)
		next.Method = MethodResignation
		enter(&next, victoryOf(mover.Opposite()), now)
		return outcome{game: next}, nil

	case AcceptDraw, DeclineDraw:
		if !g.State.IsDrawProposal() {
			return outcome{}, wrongState(cmd.Event, g.State)
		}
		proposer, _ := g.State.Owner()
		if cmd.Actor != g.PlayerOf(proposer.Opposite()) {
			return outcome{}, reject(CodeWrongPlayer, "only the opponent of the proposer may answer a draw offer")
		}
		if cmd.Event == AcceptDraw {
			next.Method = MethodAgreement
			enter(&next, Draw, now)
		} else {
			enter(&next, turnOf(proposer), now)
		}
		return outcome{game: next}, nil

	case PromotePawn:
		promoter, err := requireOwner(g, cmd, g.State.IsPromotion())
		if err != nil {
			return outcome{}, err
		}
		kind, err := chess.ParsePieceKind(strings.TrimSpace(cmd.Params.Piece))
		if err != nil || !kind.IsPromotable() {
			return outcome{}, reject(CodeIllegalPiece, "cannot promote to %q", cmd.Params.Piece)
		}
		if len(next.Moves) == 0 {
			return outcome{}, reject(CodeWrongState, "no move to promote")
		}
		leave(&next, now)
		last := len(next.Moves) - 1
		next.Moves[last] = next.Moves[last].WithPromotion(kind)
		enter(&next, turnOf(promoter.Opposite()), now)
		return outcome{game: next}, nil

	case CreateGame:
		return outcome{}, reject(CodeMalformedParams, "CreateGame does not take a game id")

	default:
		return outcome{}, reject(CodeMalformedParams, "unknown event %s", cmd.Event)
	}
}

// flagFall ends a turn whose owner ran out of time.
func flagFall(g Game, now time.Time) Game {
	next := g.Clone()
	mover := g.State.sideToMove()
	leave(&next, now)
	next.Method = MethodTimeout
	enter(&next, victoryOf(mover.Opposite()), now)
	return next
}

// Deadline is the instant the side to move in g runs out of budget.
func Deadline(g Game, budget time.Duration) (time.Time, bool) {
	if !g.State.IsTurn() {
		return time.Time{}, false
	}
	remaining := budget - g.Elapsed(g.State.sideToMove())
	return g.StateEnteredAt.Add(remaining), true
}

func requireOwner(g Game, cmd Command, allowed bool) (chess.Color, error) {
	if !allowed {
		return chess.White, wrongState(cmd.Event, g.State)
	}
	owner, _ := g.State.Owner()
	if cmd.Actor != g.PlayerOf(owner) {
		return owner, reject(CodeWrongPlayer, "it is %s's turn", owner)
	}
	return owner, nil
}

func wrongState(e Event, s State) *ValidationError {
	return reject(CodeWrongState, "%s is not allowed in state %s", e, s)
}

// leave charges the time spent in a turn or promotion state to its owner.
func leave(g *Game, now time.Time) {
	if !g.State.IsTurn() && !g.State.IsPromotion() {
		return
	}
	owner, _ := g.State.Owner()
	g.addElapsed(owner, now.Sub(g.StateEnteredAt))
}

// enter moves g into s and runs the automatic transitions of turn states.
func enter(g *Game, s State, now time.Time) {
	g.State = s
	g.StateEnteredAt = now
	if !s.IsTurn() {
		return
	}
	side := s.sideToMove()
	b := g.Board()
	switch {
	case b.CanPromotePawn(side.Opposite()):
		g.State = promotionOf(side.Opposite())
	case chess.IsCheckmate(b, side):
		g.Method = MethodCheckmate
		g.State = victoryOf(side.Opposite())
	default:
		if rule, ok := chess.AutomaticDraw(b, side); ok {
			g.Method = methodForDraw(rule)
			g.State = Draw
		}
	}
}
