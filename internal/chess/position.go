package chess

import "fmt"

const files = "abcdefgh"

// Position is a square. Col 0..7 maps to files a..h, Row 1..8 is the rank.
type Position struct {
	Col int
	Row int
}

// Pos builds a position from a file letter and a rank, e.g. Pos('e', 4).
func Pos(file byte, row int) Position {
	return Position{Col: int(file) - 'a', Row: row}
}

// ParsePosition reads a two-character square code such as "e4".
func ParsePosition(s string) (Position, error) {
	if len(s) != 2 {
		return Position{}, fmt.Errorf("%w: %q", ErrMalformedPosition, s)
	}
	p := Position{Col: int(s[0]) - 'a', Row: int(s[1]) - '0'}
	if !p.Valid() {
		return Position{}, fmt.Errorf("%w: %q", ErrMalformedPosition, s)
	}
	return p, nil
}

// MustPosition is ParsePosition for literals known to be valid.
func MustPosition(s string) Position {
	p, err := ParsePosition(s)
	if err != nil {
		panic(err)
	}
	return p
}

// PositionFromIndex maps 0..63 (a1, b1, ..., h8) to a position.
func PositionFromIndex(i int) Position {
	return Position{Col: i % 8, Row: i/8 + 1}
}

func (p Position) Valid() bool {
	return p.Col >= 0 && p.Col < 8 && p.Row >= 1 && p.Row <= 8
}

// Index returns the 0..63 board index; only meaningful for valid positions.
func (p Position) Index() int { return (p.Row-1)*8 + p.Col }

// IsLight reports whether the square is a light square (a1 is dark).
func (p Position) IsLight() bool { return (p.Col+p.Row-1)%2 == 1 }

func (p Position) offset(dc, dr int) Position {
	return Position{Col: p.Col + dc, Row: p.Row + dr}
}

func (p Position) String() string {
	if !p.Valid() {
		return fmt.Sprintf("?%d,%d", p.Col, p.Row)
	}
	return fmt.Sprintf("%c%d", files[p.Col], p.Row)
}

func (p Position) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: col=%d row=%d", ErrMalformedPosition, p.Col, p.Row)
	}
	return []byte(p.String()), nil
}

func (p *Position) UnmarshalText(b []byte) error {
	v, err := ParsePosition(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
