package chessrules

// Termination is the reason a game ended.
type Termination uint8

const (
	NoTermination Termination = iota
	Checkmate
	Stalemate
	InsufficientMaterial
	SeventyFiveMoveRule
	FivefoldRepetition
)

var terminationNames = [...]string{
	"", "checkmate", "stalemate", "insufficient material",
	"seventy-five-move rule", "fivefold repetition",
}

func (t Termination) String() string {
	if int(t) >= len(terminationNames) {
		return "unknown"
	}
	return terminationNames[t]
}

// IsDraw reports whether the termination is a drawn result.
func (t Termination) IsDraw() bool {
	return t != NoTermination && t != Checkmate
}

// IsCheck reports whether the side to move is in check.
func (p Position) IsCheck() bool {
	king, ok := p.KingSquare(p.turn)
	return ok && p.isAttacked(king, p.turn.Other())
}

// IsCheckmate reports whether the side to move is in check and has no legal
// moves.
func (p Position) IsCheckmate() bool {
	return p.IsCheck() && len(p.LegalMoves()) == 0
}

// IsStalemate reports whether the side to move is not in check but has no
// legal moves.
func (p Position) IsStalemate() bool {
	return !p.IsCheck() && len(p.LegalMoves()) == 0
}

// IsSeventyFiveMoveRule reports whether 75 moves by each side have passed
// without a pawn move or capture.
func (p Position) IsSeventyFiveMoveRule() bool {
	return p.halfMoveClock >= 150
}

// IsInsufficientMaterial reports whether neither side can possibly mate: bare
// kings, a single minor piece, or only bishops all on squares of one color.
func (p Position) IsInsufficientMaterial() bool {
	var knights, bishops int
	var bishopOnLight, bishopOnDark bool
	for i, pc := range p.board {
		switch pc.Kind {
		case Pawn, Rook, Queen:
			return false
		case Knight:
			knights++
		case Bishop:
			bishops++
			if Square(i).IsLight() {
				bishopOnLight = true
			} else {
				bishopOnDark = true
			}
		}
	}
	switch {
	case knights == 0 && bishops == 0:
		return true
	case knights == 1 && bishops == 0:
		return true
	case knights == 0:
		return !(bishopOnLight && bishopOnDark)
	}
	return false
}

// Termination returns why the game is over in this position, or
// NoTermination. Mate and stalemate take precedence over the automatic draws.
// Repetition needs the game history and is detected by the caller.
func (p Position) Termination() Termination {
	if len(p.LegalMoves()) == 0 {
		if p.IsCheck() {
			return Checkmate
		}
		return Stalemate
	}
	if p.IsInsufficientMaterial() {
		return InsufficientMaterial
	}
	if p.IsSeventyFiveMoveRule() {
		return SeventyFiveMoveRule
	}
	return NoTermination
}

// IsGameOver reports whether the game has ended in this position.
func (p Position) IsGameOver() bool {
	return p.Termination() != NoTermination
}

// RepetitionKey identifies a position for repetition counting. The
// en-passant target only counts when an en-passant capture is actually legal.
type RepetitionKey struct {
	board     [NumSquares]Piece
	turn      Color
	castling  CastlingRights
	enPassant MaybeSquare
}

// RepetitionKey returns the key of p.
func (p Position) RepetitionKey() RepetitionKey {
	key := RepetitionKey{board: p.board, turn: p.turn, castling: p.castling}
	if ep, ok := p.enPassant.Get(); ok {
		for _, m := range p.LegalMoves() {
			if m.To == ep && p.board[m.From].Kind == Pawn && m.From.File() != m.To.File() {
				key.enPassant = p.enPassant
				break
			}
		}
	}
	return key
}
