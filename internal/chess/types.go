package chess

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedPosition = errors.New("malformed position")
	ErrMalformedMove     = errors.New("malformed move")
	ErrMalformedPiece    = errors.New("malformed piece")
)

// Color identifies chess side.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// PieceKind is the kind of a piece. NoPiece marks an empty square or an absent promotion.
type PieceKind uint8

const (
	NoPiece PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// Letter returns the lowercase single-letter code ("p", "n", "b", "r", "q", "k").
func (k PieceKind) Letter() string {
	switch k {
	case Pawn:
		return "p"
	case Knight:
		return "n"
	case Bishop:
		return "b"
	case Rook:
		return "r"
	case Queen:
		return "q"
	case King:
		return "k"
	default:
		return ""
	}
}

func (k PieceKind) String() string {
	switch k {
	case NoPiece:
		return "none"
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return fmt.Sprintf("piece(%d)", uint8(k))
	}
}

// ParsePieceKind reads a single-letter piece code, case-insensitive.
func ParsePieceKind(s string) (PieceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "p":
		return Pawn, nil
	case "n":
		return Knight, nil
	case "b":
		return Bishop, nil
	case "r":
		return Rook, nil
	case "q":
		return Queen, nil
	case "k":
		return King, nil
	}
	return NoPiece, fmt.Errorf("%w: %q", ErrMalformedPiece, s)
}

// IsPromotable reports whether a pawn may be promoted to k.
func (k PieceKind) IsPromotable() bool {
	switch k {
	case Knight, Bishop, Rook, Queen:
		return true
	}
	return false
}

// Piece is the content of one square. The zero value is an empty square.
type Piece struct {
	Kind  PieceKind
	Color Color
}

func (p Piece) IsEmpty() bool { return p.Kind == NoPiece }

// Code returns the two-letter code used in diagrams, e.g. "wk", "bp". Empty squares give "".
func (p Piece) Code() string {
	if p.IsEmpty() {
		return ""
	}
	if p.Color == White {
		return "w" + p.Kind.Letter()
	}
	return "b" + p.Kind.Letter()
}
