package chess

// GenOptions tunes move generation. The zero value generates legal moves: castling included
// and moves exposing the mover's king removed.
type GenOptions struct {
	ExcludeCastling bool
	SkipKingSafety  bool
}

var (
	rookDirs   = [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
	bishopDirs = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	kingSteps  = [8][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
	knightHops = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
)

// LegalMoves returns every legal move for side on b.
func LegalMoves(b Board, side Color) MoveSet {
	return GenerateMoves(b, side, GenOptions{})
}

// GenerateMoves enumerates moves for side. Promotion pieces are never part of generated
// moves; promotion is a separate step after the pawn lands.
func GenerateMoves(b Board, side Color, opts GenOptions) MoveSet {
	pseudo := make(MoveSet, 48)
	for i, pc := range b.squares {
		if pc.IsEmpty() || pc.Color != side {
			continue
		}
		from := PositionFromIndex(i)
		switch pc.Kind {
		case Pawn:
			pawnMoves(b, from, side, pseudo)
		case Knight:
			stepMoves(b, from, side, knightHops[:], pseudo)
		case Bishop:
			slideMoves(b, from, side, bishopDirs[:], pseudo)
		case Rook:
			slideMoves(b, from, side, rookDirs[:], pseudo)
		case Queen:
			slideMoves(b, from, side, bishopDirs[:], pseudo)
			slideMoves(b, from, side, rookDirs[:], pseudo)
		case King:
			stepMoves(b, from, side, kingSteps[:], pseudo)
			if !opts.ExcludeCastling {
				castlingMoves(b, from, side, pseudo)
			}
		}
	}
	if opts.SkipKingSafety {
		return pseudo
	}
	legal := make(MoveSet, len(pseudo))
	for m := range pseudo {
		if !IsInCheck(b.After(m), side) {
			legal.add(m)
		}
	}
	return legal
}

func pawnMoves(b Board, from Position, side Color, out MoveSet) {
	dir, startRow := 1, 2
	if side == Black {
		dir, startRow = -1, 7
	}
	one := from.offset(0, dir)
	if !one.Valid() {
		return
	}
	if _, occupied := b.PieceAt(one); !occupied {
		out.add(NewMove(from, one))
		two := from.offset(0, 2*dir)
		if from.Row == startRow {
			if _, occupied := b.PieceAt(two); !occupied {
				out.add(NewMove(from, two))
			}
		}
	}
	for _, dc := range [2]int{-1, 1} {
		diag := from.offset(dc, dir)
		if pc, ok := b.PieceAt(diag); ok && pc.Color != side {
			out.add(NewMove(from, diag))
		}
	}
	// en passant is not modelled
}

func stepMoves(b Board, from Position, side Color, steps [][2]int, out MoveSet) {
	for _, s := range steps {
		to := from.offset(s[0], s[1])
		if !to.Valid() {
			continue
		}
		if pc, ok := b.PieceAt(to); ok && pc.Color == side {
			continue
		}
		out.add(NewMove(from, to))
	}
}

func slideMoves(b Board, from Position, side Color, dirs [][2]int, out MoveSet) {
	for _, d := range dirs {
		to := from.offset(d[0], d[1])
		for to.Valid() {
			pc, ok := b.PieceAt(to)
			if ok && pc.Color == side {
				break
			}
			out.add(NewMove(from, to))
			if ok {
				break
			}
			to = to.offset(d[0], d[1])
		}
	}
}

// castlingMoves only knows the white side of the board; black castling is not generated.
func castlingMoves(b Board, from Position, side Color, out MoveSet) {
	if side != White || from != Pos('e', 1) {
		return
	}
	if IsInCheck(b, White) {
		return
	}
	attacked := func(col int) bool {
		return canReach(b, Black, Position{Col: col, Row: 1})
	}
	empty := func(col int) bool {
		_, occupied := b.PieceAt(Position{Col: col, Row: 1})
		return !occupied
	}
	if empty(5) && empty(6) && !attacked(5) && !attacked(6) &&
		!hasMovedFrom(Pos('e', 1)) && !hasMovedFrom(Pos('h', 1)) {
		out.add(NewMove(from, Pos('g', 1)))
	}
	if empty(1) && empty(2) && empty(3) && !attacked(1) && !attacked(2) && !attacked(3) &&
		!hasMovedFrom(Pos('e', 1)) && !hasMovedFrom(Pos('a', 1)) {
		out.add(NewMove(from, Pos('c', 1)))
	}
}

// hasMovedFrom would consult move history; history is not tracked, so castling rights are
// never lost through earlier king or rook moves.
func hasMovedFrom(Position) bool { return false }

// canReach reports whether side has a legal move (castling excluded) landing on target.
func canReach(b Board, side Color, target Position) bool {
	for m := range GenerateMoves(b, side, GenOptions{ExcludeCastling: true}) {
		if m.To == target {
			return true
		}
	}
	return false
}
