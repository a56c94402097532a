package chess

import (
	"math/rand"
	"testing"
)

func kingCount(b Board, c Color) int {
	n := 0
	for _, sq := range b.Occupied() {
		if pc, _ := b.PieceAt(sq); pc.Kind == King && pc.Color == c {
			n++
		}
	}
	return n
}

// Random games from the starting layout, checking board properties after every ply.
func TestRandomPlayoutsKeepBoardProperties(t *testing.T) {
	promotions := []PieceKind{Knight, Bishop, Rook, Queen}
	for seed := int64(1); seed <= 40; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		var moves []Move
		b := StartingBoard()
		side := White
		captured := false

		for ply := 0; ply < 200; ply++ {
			legal := LegalMoves(b, side)
			for m := range legal {
				if IsInCheck(b.After(m), side) {
					t.Fatalf("seed %d ply %d: %s leaves %s in check", seed, ply, m, side)
				}
			}
			list := legal.Sorted()
			if len(list) == 0 {
				break
			}
			m := list[rnd.Intn(len(list))]
			if _, occupied := b.PieceAt(m.To); occupied {
				captured = true
			}
			b = b.After(m)
			if b.CanPromotePawn(side) {
				m = m.WithPromotion(promotions[rnd.Intn(len(promotions))])
				b = FromMoves(moves).After(m)
			}
			moves = append(moves, m)

			if got := kingCount(b, White); got != 1 {
				t.Fatalf("seed %d ply %d: %d white kings\n%s", seed, ply, got, b)
			}
			if got := kingCount(b, Black); got != 1 {
				t.Fatalf("seed %d ply %d: %d black kings\n%s", seed, ply, got, b)
			}
			if !captured && b.Count() != 32 {
				t.Fatalf("seed %d ply %d: %d pieces without a capture", seed, ply, b.Count())
			}
			if b.Count() > 32 {
				t.Fatalf("seed %d ply %d: %d pieces on the board", seed, ply, b.Count())
			}
			if FromMoves(moves) != b {
				t.Fatalf("seed %d ply %d: replay differs from incremental board", seed, ply)
			}
			side = side.Opposite()
		}
	}
}
