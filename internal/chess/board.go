package chess

import "strings"

// Board is an immutable 8x8 layout indexed a1=0 .. h8=63. It is a value type; every
// mutation returns a new Board, and the only way to reach a game position is FromMoves.
type Board struct {
	squares [64]Piece
}

var backRank = [8]PieceKind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// StartingBoard returns the standard initial layout.
func StartingBoard() Board {
	var b Board
	for col := 0; col < 8; col++ {
		b.squares[Position{Col: col, Row: 1}.Index()] = Piece{Kind: backRank[col], Color: White}
		b.squares[Position{Col: col, Row: 2}.Index()] = Piece{Kind: Pawn, Color: White}
		b.squares[Position{Col: col, Row: 7}.Index()] = Piece{Kind: Pawn, Color: Black}
		b.squares[Position{Col: col, Row: 8}.Index()] = Piece{Kind: backRank[col], Color: Black}
	}
	return b
}

// FromMoves folds the move list onto the starting layout.
func FromMoves(moves []Move) Board {
	b := StartingBoard()
	for _, m := range moves {
		b = b.After(m)
	}
	return b
}

// FromPieces builds a board from square codes, e.g. {"e1": "wk", "e8": "bk"}. Meant for tests
// and diagnostics; game code always goes through FromMoves.
func FromPieces(layout map[string]string) (Board, error) {
	var b Board
	for sq, code := range layout {
		p, err := ParsePosition(sq)
		if err != nil {
			return Board{}, err
		}
		if len(code) != 2 || (code[0] != 'w' && code[0] != 'b') {
			return Board{}, ErrMalformedPiece
		}
		k, err := ParsePieceKind(code[1:])
		if err != nil {
			return Board{}, err
		}
		c := White
		if code[0] == 'b' {
			c = Black
		}
		b.squares[p.Index()] = Piece{Kind: k, Color: c}
	}
	return b, nil
}

// PieceAt returns the piece on p; ok is false for empty or off-board squares.
func (b Board) PieceAt(p Position) (Piece, bool) {
	if !p.Valid() {
		return Piece{}, false
	}
	pc := b.squares[p.Index()]
	return pc, !pc.IsEmpty()
}

// After returns the board with m applied. Castling is recognised as a king moving two files
// from its home square and drags the matching rook; a promotion rewrites the landing piece.
func (b Board) After(m Move) Board {
	next := b
	mover := b.squares[m.From.Index()]
	next.squares[m.To.Index()] = mover
	next.squares[m.From.Index()] = Piece{}

	if mover.Kind == King && m.From.Col == 4 && m.From.Row == m.To.Row && (m.From.Row == 1 || m.From.Row == 8) {
		row := m.From.Row
		switch m.To.Col {
		case 6:
			next.squares[Position{Col: 5, Row: row}.Index()] = b.squares[Position{Col: 7, Row: row}.Index()]
			next.squares[Position{Col: 7, Row: row}.Index()] = Piece{}
		case 2:
			next.squares[Position{Col: 3, Row: row}.Index()] = b.squares[Position{Col: 0, Row: row}.Index()]
			next.squares[Position{Col: 0, Row: row}.Index()] = Piece{}
		}
	}

	if m.Promotion != NoPiece {
		next.squares[m.To.Index()] = Piece{Kind: m.Promotion, Color: mover.Color}
	}
	return next
}

// KingSquare locates the king of color c.
func (b Board) KingSquare(c Color) (Position, bool) {
	for i, pc := range b.squares {
		if pc.Kind == King && pc.Color == c {
			return PositionFromIndex(i), true
		}
	}
	return Position{}, false
}

// CanPromotePawn reports whether c has a pawn standing on the far rank.
func (b Board) CanPromotePawn(c Color) bool {
	row := 8
	if c == Black {
		row = 1
	}
	for col := 0; col < 8; col++ {
		pc := b.squares[Position{Col: col, Row: row}.Index()]
		if pc.Kind == Pawn && pc.Color == c {
			return true
		}
	}
	return false
}

// Occupied lists the non-empty squares in index order.
func (b Board) Occupied() []Position {
	out := make([]Position, 0, 32)
	for i, pc := range b.squares {
		if !pc.IsEmpty() {
			out = append(out, PositionFromIndex(i))
		}
	}
	return out
}

// Count returns how many pieces are on the board.
func (b Board) Count() int {
	n := 0
	for _, pc := range b.squares {
		if !pc.IsEmpty() {
			n++
		}
	}
	return n
}

// Codes returns the 64 square codes in index order ("" for empty squares).
func (b Board) Codes() []string {
	out := make([]string, 64)
	for i, pc := range b.squares {
		out[i] = pc.Code()
	}
	return out
}

// String renders the board rank 8 first, one line per rank, '.' for empty squares.
func (b Board) String() string {
	var sb strings.Builder
	for row := 8; row >= 1; row-- {
		for col := 0; col < 8; col++ {
			pc := b.squares[Position{Col: col, Row: row}.Index()]
			switch {
			case pc.IsEmpty():
				sb.WriteByte('.')
			case pc.Color == White:
				sb.WriteString(strings.ToUpper(pc.Kind.Letter()))
			default:
				sb.WriteString(pc.Kind.Letter())
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
