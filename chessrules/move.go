package chessrules

import (
	"errors"
	"fmt"
)

// Move is a move from one square to another. Promotion is NoPieceKind unless
// a pawn reaches the last rank. Castling is written as the king's two-square
// move (e1g1, e1c1). Moves are plain values: two moves are equal iff all
// fields are equal.
type Move struct {
	From      Square
	To        Square
	Promotion PieceKind
}

// ErrIllegalMove is matched (via errors.Is) by every *IllegalMoveError.
var ErrIllegalMove = errors.New("chessrules: illegal move")

// ErrMoveSyntax is returned (wrapped) by ParseMove for malformed text.
var ErrMoveSyntax = errors.New("chessrules: malformed move")

// IllegalMoveError reports an attempt to play a move that is not a member of
// the position's legal moves.
type IllegalMoveError struct {
	Move Move
	FEN  string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("chessrules: illegal move %s in %s", e.Move, e.FEN)
}

// Is makes errors.Is(err, ErrIllegalMove) succeed.
func (e *IllegalMoveError) Is(target error) bool { return target == ErrIllegalMove }

// String returns the move in UCI notation (e2e4, e7e8q).
func (m Move) String() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != NoPieceKind {
		s += string(m.Promotion.letter())
	}
	return s
}

// ParseMove parses a move in UCI notation. It checks syntax only; legality is
// decided by Position.LegalMoves.
func ParseMove(s string) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrMoveSyntax, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrMoveSyntax, s)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrMoveSyntax, s)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		switch s[4] {
		case 'n', 'b', 'r', 'q':
			m.Promotion = kindFromLetter(s[4])
		default:
			return Move{}, fmt.Errorf("%w: %q: bad promotion piece", ErrMoveSyntax, s)
		}
	}
	return m, nil
}
