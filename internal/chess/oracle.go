package chess

// IsInCheck reports whether any reply of the opponent (castling excluded, king safety
// ignored) lands on c's king.
func IsInCheck(b Board, c Color) bool {
	king, ok := b.KingSquare(c)
	if !ok {
		return false
	}
	for m := range GenerateMoves(b, c.Opposite(), GenOptions{ExcludeCastling: true, SkipKingSafety: true}) {
		if m.To == king {
			return true
		}
	}
	return false
}

// IsCheckmate reports whether toMove is in check with no legal move.
func IsCheckmate(b Board, toMove Color) bool {
	return IsInCheck(b, toMove) && LegalMoves(b, toMove).Len() == 0
}

// IsStalemate reports whether toMove is not in check and has no legal move.
func IsStalemate(b Board, toMove Color) bool {
	return !IsInCheck(b, toMove) && LegalMoves(b, toMove).Len() == 0
}

// IsDeadPosition recognises insufficient material only: K vs K, K+minor vs K, and
// K+B vs K+B with both bishops on the same square color. Other dead positions are not detected.
func IsDeadPosition(b Board) bool {
	occupied := b.Occupied()
	switch len(occupied) {
	case 2:
		return true
	case 3:
		for _, sq := range occupied {
			pc, _ := b.PieceAt(sq)
			if pc.Kind == Bishop || pc.Kind == Knight {
				return true
			}
		}
		return false
	case 4:
		var white, black *Position
		for i := range occupied {
			pc, _ := b.PieceAt(occupied[i])
			if pc.Kind != Bishop {
				continue
			}
			if pc.Color == White {
				white = &occupied[i]
			} else {
				black = &occupied[i]
			}
		}
		return white != nil && black != nil && white.IsLight() == black.IsLight()
	}
	return false
}
