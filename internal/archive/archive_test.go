package archive

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/park285/robochess/internal/chess"
	"github.com/park285/robochess/internal/game"
	"github.com/park285/robochess/internal/sqldb"
)

func finishedGame(t *testing.T, moves []string, state game.State, method game.Method) game.Game {
	t.Helper()
	parsed, err := chess.ParseMoves(moves)
	if err != nil {
		t.Fatalf("ParseMoves: %v", err)
	}
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return game.Game{
		ID:          "g-1",
		WhitePlayer: "p-white",
		BlackPlayer: "p-black",
		Moves:       parsed,
		WhiteTime:   12 * time.Second,
		BlackTime:   9 * time.Second,
		State:       state,
		Method:      method,
		CreatedAt:   start,
		UpdatedAt:   start.Add(5 * time.Minute),
	}
}

var scholarsLine = []string{
	"e2-e4", "e7-e5", "d1-h5", "g7-g6", "h5-g6", "g8-f6", "g6-f6", "f8-a3", "f1-c4", "h7-h6", "f6-f7",
}

func TestBuildUsesSAN(t *testing.T) {
	res := Build(finishedGame(t, scholarsLine, game.WhiteVictory, game.MethodCheckmate))
	if res.Result != "1-0" || res.Method != "checkmate" {
		t.Fatalf("result = %s/%s", res.Result, res.Method)
	}
	if len(res.MovesSAN) != len(scholarsLine) {
		t.Fatalf("SAN length = %d", len(res.MovesSAN))
	}
	if res.MovesSAN[0] != "e4" || res.MovesSAN[2] != "Qh5" || !strings.HasPrefix(res.MovesSAN[10], "Qxf7") {
		t.Fatalf("SAN = %v", res.MovesSAN)
	}
	if res.Moves[0] != "e2-e4" {
		t.Fatalf("coordinate moves = %v", res.Moves)
	}
}

func TestBuildFallsBackToCoordinates(t *testing.T) {
	line := []string{"e2-e4", "e7-e5", "g1-f3", "b8-c6", "f1-c4", "g8-f6", "e1-f1", "f8-c5", "f1-e1", "e8-e7", "e1-g1"}
	res := Build(finishedGame(t, line, game.Draw, game.MethodAgreement))
	if len(res.MovesSAN) != len(line) {
		t.Fatalf("SAN length = %d", len(res.MovesSAN))
	}
	if res.MovesSAN[0] != "e4" {
		t.Fatalf("first move should be SAN: %v", res.MovesSAN)
	}
	if res.MovesSAN[len(line)-1] != "e1-g1" {
		t.Fatalf("castling after the king moved should stay in coordinates: %v", res.MovesSAN)
	}
	if res.Result != "1/2-1/2" {
		t.Fatalf("result = %s", res.Result)
	}
}

func TestUCIWithPromotion(t *testing.T) {
	if got := uci(chess.MustMove("b7-a8(q)")); got != "b7a8q" {
		t.Fatalf("uci = %s", got)
	}
}

func TestSaveAndRecent(t *testing.T) {
	ctx := context.Background()
	db, err := sqldb.Open(ctx, filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("sqldb.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	names := func(_ context.Context, id string) string {
		return map[string]string{"p-white": "Alice", "p-black": "Mr. \"Robot\""}[id]
	}
	repo := NewRepository(db, names, nil)
	g := finishedGame(t, scholarsLine, game.WhiteVictory, game.MethodCheckmate)
	if err := repo.SaveResult(ctx, g); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if err := repo.SaveResult(ctx, g); err != nil {
		t.Fatalf("SaveResult should upsert: %v", err)
	}

	list, err := repo.Recent(ctx, "p-black", 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Recent returned %d rows", len(list))
	}
	got := list[0]
	if got.GameID != "g-1" || got.Result != "1-0" || got.WhiteTime != 12*time.Second || !got.EndedAt.Equal(g.UpdatedAt) {
		t.Fatalf("stored result = %+v", got)
	}
	if len(got.MovesSAN) != len(scholarsLine) {
		t.Fatalf("SAN not stored: %v", got.MovesSAN)
	}
	for _, want := range []string{`[White "Alice"]`, `[Black "Mr. 'Robot'"]`, `[Termination "checkmate"]`, "1. e4 e5 2. Qh5", "1-0"} {
		if !strings.Contains(got.PGN, want) {
			t.Fatalf("PGN missing %q:\n%s", want, got.PGN)
		}
	}
	if none, _ := repo.Recent(ctx, "someone-else", 5); len(none) != 0 {
		t.Fatalf("unrelated player has results: %v", none)
	}
}
