// Package chessrules implements the rules of standard chess: board positions,
// legal move generation, move application and end-of-game detection.
//
// A Position is an immutable value. Apply returns a new Position and leaves
// the receiver untouched, so positions can be kept as history snapshots and
// compared with ==.
package chessrules

// CastlingRights holds the four independent castling flags.
type CastlingRights struct {
	WhiteKingSide  bool
	WhiteQueenSide bool
	BlackKingSide  bool
	BlackQueenSide bool
}

// KingSide reports whether color may still castle king-side.
func (c CastlingRights) KingSide(color Color) bool {
	if color == White {
		return c.WhiteKingSide
	}
	return c.BlackKingSide
}

// QueenSide reports whether color may still castle queen-side.
func (c CastlingRights) QueenSide(color Color) bool {
	if color == White {
		return c.WhiteQueenSide
	}
	return c.BlackQueenSide
}

// without clears the rights that depend on a king or rook standing on sq.
func (c CastlingRights) without(sq Square) CastlingRights {
	switch sq {
	case E1:
		c.WhiteKingSide, c.WhiteQueenSide = false, false
	case E8:
		c.BlackKingSide, c.BlackQueenSide = false, false
	case H1:
		c.WhiteKingSide = false
	case A1:
		c.WhiteQueenSide = false
	case H8:
		c.BlackKingSide = false
	case A8:
		c.BlackQueenSide = false
	}
	return c
}

// String returns the FEN castling field ("KQkq", "Kq", "-", ...).
func (c CastlingRights) String() string {
	var b []byte
	if c.WhiteKingSide {
		b = append(b, 'K')
	}
	if c.WhiteQueenSide {
		b = append(b, 'Q')
	}
	if c.BlackKingSide {
		b = append(b, 'k')
	}
	if c.BlackQueenSide {
		b = append(b, 'q')
	}
	if len(b) == 0 {
		return "-"
	}
	return string(b)
}

// Position is a chess position: piece placement, side to move, castling
// rights, en-passant target and the move counters.
type Position struct {
	board          [NumSquares]Piece
	turn           Color
	castling       CastlingRights
	enPassant      MaybeSquare
	halfMoveClock  int
	fullMoveNumber int
}

// StartingFEN is the standard initial position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// StartingPosition returns the standard initial position.
func StartingPosition() Position {
	return MustParseFEN(StartingFEN)
}

// PieceAt returns the piece on sq, or false if the square is empty.
func (p Position) PieceAt(sq Square) (Piece, bool) {
	pc := p.board[sq]
	return pc, !pc.empty()
}

// SideToMove returns the color whose turn it is.
func (p Position) SideToMove() Color { return p.turn }

// Castling returns the castling rights.
func (p Position) Castling() CastlingRights { return p.castling }

// EnPassant returns the en-passant target square, set only right after a
// pawn double step.
func (p Position) EnPassant() MaybeSquare { return p.enPassant }

// HalfMoveClock returns the number of half moves since the last pawn move or
// capture.
func (p Position) HalfMoveClock() int { return p.halfMoveClock }

// FullMoveNumber returns the full move counter, starting at 1 and incremented
// after each Black move.
func (p Position) FullMoveNumber() int { return p.fullMoveNumber }

// KingSquare returns the square of color's king.
func (p Position) KingSquare(color Color) (Square, bool) {
	king := Piece{Kind: King, Color: color}
	for i, pc := range p.board {
		if pc == king {
			return Square(i), true
		}
	}
	return 0, false
}
