package chess

import (
	"fmt"
	"sort"
	"strings"
)

// Move is a from/to pair with an optional promotion piece.
type Move struct {
	From      Position
	To        Position
	Promotion PieceKind
}

// NewMove builds a move without promotion.
func NewMove(from, to Position) Move { return Move{From: from, To: to} }

// WithPromotion returns a copy of m promoting to k.
func (m Move) WithPromotion(k PieceKind) Move {
	m.Promotion = k
	return m
}

// String is the storage form: "e2-e4" or "e7-e8(q)".
func (m Move) String() string {
	return m.format("-")
}

// Text is the wire form: "e2e4" or "e7e8(q)".
func (m Move) Text() string {
	return m.format("")
}

func (m Move) format(sep string) string {
	s := m.From.String() + sep + m.To.String()
	if m.Promotion != NoPiece {
		s += "(" + m.Promotion.Letter() + ")"
	}
	return s
}

// ParseMove reads "e2e4", "e2-e4", "e7e8(q)" or "e7-e8(q)".
func ParseMove(raw string) (Move, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	var promo PieceKind
	if strings.HasSuffix(s, ")") {
		open := strings.LastIndexByte(s, '(')
		if open < 0 || len(s)-open != 3 {
			return Move{}, fmt.Errorf("%w: %q", ErrMalformedMove, raw)
		}
		k, err := ParsePieceKind(s[open+1 : open+2])
		if err != nil || !k.IsPromotable() {
			return Move{}, fmt.Errorf("%w: bad promotion in %q", ErrMalformedMove, raw)
		}
		promo = k
		s = s[:open]
	}
	if len(s) == 5 && s[2] == '-' {
		s = s[:2] + s[3:]
	}
	if len(s) != 4 {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformedMove, raw)
	}
	from, err := ParsePosition(s[:2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformedMove, raw)
	}
	to, err := ParsePosition(s[2:])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformedMove, raw)
	}
	return Move{From: from, To: to, Promotion: promo}, nil
}

// MustMove is ParseMove for literals known to be valid.
func MustMove(s string) Move {
	m, err := ParseMove(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoves parses a list of moves in either notation.
func ParseMoves(list []string) ([]Move, error) {
	out := make([]Move, 0, len(list))
	for _, s := range list {
		m, err := ParseMove(s)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (m Move) MarshalText() ([]byte, error) {
	if !m.From.Valid() || !m.To.Valid() {
		return nil, fmt.Errorf("%w: invalid squares", ErrMalformedMove)
	}
	return []byte(m.String()), nil
}

func (m *Move) UnmarshalText(b []byte) error {
	v, err := ParseMove(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MoveSet is an unordered set of moves.
type MoveSet map[Move]struct{}

func (s MoveSet) add(m Move) { s[m] = struct{}{} }

func (s MoveSet) Contains(m Move) bool {
	_, ok := s[m]
	return ok
}

func (s MoveSet) Len() int { return len(s) }

// Sorted returns the moves ordered by from-square then to-square index, for callers needing
// a stable order before applying their own tie-break.
func (s MoveSet) Sorted() []Move {
	out := make([]Move, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From.Index() < out[j].From.Index()
		}
		if out[i].To != out[j].To {
			return out[i].To.Index() < out[j].To.Index()
		}
		return out[i].Promotion < out[j].Promotion
	})
	return out
}
