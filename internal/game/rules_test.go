package game

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/park285/robochess/internal/chess"
)

func TestPointsSumToTwo(t *testing.T) {
	for _, s := range States() {
		if !s.IsTerminal() {
			continue
		}
		w, b := Points(s)
		for _, p := range []int{w, b} {
			if p < 0 || p > 2 {
				t.Fatalf("%s: points %d out of range", s, p)
			}
		}
		if w+b != 2 {
			t.Fatalf("%s: points %d+%d do not sum to 2", s, w, b)
		}
	}
}

func TestPointsPanicsOutsideTerminalStates(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil || !strings.HasPrefix(r.(string), "invariant:") {
			t.Fatalf("expected invariant panic, got %v", r)
		}
	}()
	Points(WhiteTurn)
}

func TestSideToMovePanicsOutsideTurns(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for Draw")
		}
	}()
	Draw.sideToMove()
}

func TestStateText(t *testing.T) {
	for _, s := range States() {
		raw, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal %s: %v", s, err)
		}
		var back State
		if err := json.Unmarshal(raw, &back); err != nil || back != s {
			t.Fatalf("round trip %s -> %s -> %v (%v)", s, raw, back, err)
		}
	}
	if _, err := ParseState("Stalemate"); err == nil {
		t.Fatalf("unknown state should not parse")
	}
	if _, err := ParseEvent("MakeMove"); err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
}

func TestOwner(t *testing.T) {
	cases := map[State]chess.Color{
		WhiteTurn: chess.White, WhiteHasProposedDraw: chess.White, WhitePromotePawn: chess.White,
		BlackTurn: chess.Black, BlackHasProposedDraw: chess.Black, BlackPromotePawn: chess.Black,
	}
	for s, want := range cases {
		got, ok := s.Owner()
		if !ok || got != want {
			t.Fatalf("%s.Owner() = %v, %v", s, got, ok)
		}
	}
	for _, s := range []State{WaitingForInvitedPlayer, WhiteVictory, BlackVictory, Draw} {
		if _, ok := s.Owner(); ok {
			t.Fatalf("%s should have no owner", s)
		}
	}
}

func TestMethodForDraw(t *testing.T) {
	cases := map[chess.DrawRule]Method{
		chess.DrawStalemate:          MethodStalemate,
		chess.DrawDeadPosition:       MethodDeadPosition,
		chess.DrawFivefoldRepetition: MethodFivefoldRepetition,
	}
	for rule, want := range cases {
		if got := methodForDraw(rule); got != want {
			t.Fatalf("methodForDraw(%v) = %s, want %s", rule, got, want)
		}
	}
}

func TestDeadline(t *testing.T) {
	entered := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := Game{State: BlackTurn, StateEnteredAt: entered, BlackTime: 45 * time.Second}
	at, ok := Deadline(g, time.Minute)
	if !ok || !at.Equal(entered.Add(15*time.Second)) {
		t.Fatalf("deadline = %v, %v", at, ok)
	}
	g.State = BlackHasProposedDraw
	if _, ok := Deadline(g, time.Minute); ok {
		t.Fatalf("no deadline outside turn states")
	}
}

func TestApplyDoesNotAliasMoves(t *testing.T) {
	now := time.Now()
	g := Game{ID: "g", WhitePlayer: "w", BlackPlayer: "b", State: WhiteTurn, StateEnteredAt: now,
		Moves: make([]chess.Move, 0, 8)}
	out, err := apply(g, Command{Event: MakeMove, GameID: "g", Actor: "w", Params: Params{Move: "e2e4"}}, now)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(g.Moves) != 0 || len(out.game.Moves) != 1 {
		t.Fatalf("input game changed: %v / %v", g.Moves, out.game.Moves)
	}
	if g.Moves[:1][0] == out.game.Moves[0] {
		t.Fatalf("backing array shared with the input game")
	}
}
