package chess

// DrawRule names the rule that made a position a draw.
type DrawRule uint8

const (
	NoDraw DrawRule = iota
	DrawStalemate
	DrawDeadPosition
	DrawFivefoldRepetition
	DrawThreefoldRepetition
	DrawFiftyMoves
)

func (r DrawRule) String() string {
	switch r {
	case DrawStalemate:
		return "stalemate"
	case DrawDeadPosition:
		return "dead_position"
	case DrawFivefoldRepetition:
		return "fivefold_repetition"
	case DrawThreefoldRepetition:
		return "threefold_repetition"
	case DrawFiftyMoves:
		return "fifty_moves"
	default:
		return "none"
	}
}

type drawStep struct {
	rule  DrawRule
	check func(b Board, toMove Color) bool
}

// automaticDrawSteps is evaluated in order; the first matching rule wins.
var automaticDrawSteps = []drawStep{
	{DrawStalemate, IsStalemate},
	{DrawDeadPosition, func(b Board, _ Color) bool { return IsDeadPosition(b) }},
	{DrawFivefoldRepetition, IsFivefoldRepetition},
}

// AutomaticDraw runs stalemate, dead position, then fivefold repetition and reports the first
// rule that applies.
func AutomaticDraw(b Board, toMove Color) (DrawRule, bool) {
	for _, step := range automaticDrawSteps {
		if step.check(b, toMove) {
			return step.rule, true
		}
	}
	return NoDraw, false
}

// IsFivefoldRepetition does not count repetitions. It evaluates the stalemate predicate in
// its place and is kept as a separate rule so callers can tell the two apart.
// TODO: count identical positions over the move list once repetition semantics are confirmed.
func IsFivefoldRepetition(b Board, toMove Color) bool {
	return IsStalemate(b, toMove)
}

// CanClaimDraw covers the claimable categories. Neither threefold repetition nor the
// fifty-move rule is implemented, so it is always false.
func CanClaimDraw(moves []Move) bool {
	return isThreefoldRepetition(moves) || isFiftyMoves(moves)
}

func isThreefoldRepetition([]Move) bool { return false }

func isFiftyMoves([]Move) bool { return false }
