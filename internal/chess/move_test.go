package chess

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMoveRoundTrip(t *testing.T) {
	cases := []struct {
		in      string
		storage string
		wire    string
	}{
		{"e2e4", "e2-e4", "e2e4"},
		{"e2-e4", "e2-e4", "e2e4"},
		{"e7e8(q)", "e7-e8(q)", "e7e8(q)"},
		{"a2-a1(N)", "a2-a1(n)", "a2a1(n)"},
		{" G1F3 ", "g1-f3", "g1f3"},
	}
	for _, tc := range cases {
		m, err := ParseMove(tc.in)
		if err != nil {
			t.Fatalf("ParseMove(%q): %v", tc.in, err)
		}
		if m.String() != tc.storage || m.Text() != tc.wire {
			t.Fatalf("ParseMove(%q) -> %s / %s", tc.in, m.String(), m.Text())
		}
		back, err := ParseMove(m.String())
		if err != nil || back != m {
			t.Fatalf("storage round trip of %q: %+v, %v", tc.in, back, err)
		}
		back, err = ParseMove(m.Text())
		if err != nil || back != m {
			t.Fatalf("wire round trip of %q: %+v, %v", tc.in, back, err)
		}
	}
}

func TestParseMoveRejects(t *testing.T) {
	for _, s := range []string{"", "e2", "e2e9", "e2-e4-e5", "e7e8(k)", "e7e8(p)", "e7e8(x)", "e7e8q)", "e7e8()", "-e2e4", "e2e4-", "e-2e4", "e2e-4", "e2--e4", "e7e8-(q)"} {
		if _, err := ParseMove(s); !errors.Is(err, ErrMalformedMove) {
			t.Fatalf("ParseMove(%q) err = %v, want ErrMalformedMove", s, err)
		}
	}
}

func TestMoveJSON(t *testing.T) {
	in := []Move{MustMove("e2e4"), MustMove("b7b8(r)")}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `["e2-e4","b7-b8(r)"]` {
		t.Fatalf("unexpected json: %s", raw)
	}
	var out []Move
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Fatalf("json round trip mismatch: %v", out)
	}
}

func TestMoveSetSorted(t *testing.T) {
	s := MoveSet{}
	s.add(MustMove("g1f3"))
	s.add(MustMove("b1c3"))
	s.add(MustMove("b1a3"))
	got := s.Sorted()
	want := []string{"b1a3", "b1c3", "g1f3"}
	for i, m := range got {
		if m.Text() != want[i] {
			t.Fatalf("Sorted()[%d] = %s, want %s", i, m.Text(), want[i])
		}
	}
}
