package chessrules

import "fmt"

// Square is one of the 64 board squares, a1 = 0 through h8 = 63.
type Square uint8

// Squares
const (
	A1, B1, C1, D1, E1, F1, G1, H1 Square = 8*iota + 0, 8*iota + 1, 8*iota + 2,
		8*iota + 3, 8*iota + 4, 8*iota + 5, 8*iota + 6, 8*iota + 7
	A2, B2, C2, D2, E2, F2, G2, H2
	A3, B3, C3, D3, E3, F3, G3, H3
	A4, B4, C4, D4, E4, F4, G4, H4
	A5, B5, C5, D5, E5, F5, G5, H5
	A6, B6, C6, D6, E6, F6, G6, H6
	A7, B7, C7, D7, E7, F7, G7, H7
	A8, B8, C8, D8, E8, F8, G8, H8
)

// NumSquares is the number of squares on the board.
const NumSquares = 64

// SquareAt returns the square with the given file and rank (0-7). The second
// result is false if either coordinate is off the board.
func SquareAt(file, rank int) (Square, bool) {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return 0, false
	}
	return Square(rank*8 + file), true
}

// ParseSquare parses algebraic square names such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, fmt.Errorf("chessrules: invalid square %q", s)
	}
	return Square(int(s[1]-'1')*8 + int(s[0]-'a')), nil
}

// File returns the square's file (0-7).
func (sq Square) File() int { return int(sq) % 8 }

// Rank returns the square's rank (0-7).
func (sq Square) Rank() int { return int(sq) / 8 }

// IsLight reports whether the square is a light square.
func (sq Square) IsLight() bool { return (sq.File()+sq.Rank())%2 == 1 }

// String returns the algebraic name of the square (a1, e5, ...).
func (sq Square) String() string {
	if sq >= NumSquares {
		return "??"
	}
	return string([]byte{byte('a' + sq.File()), byte('1' + sq.Rank())})
}

// offset returns the square reached by moving df files and dr ranks, or false
// if that falls off the board.
func (sq Square) offset(df, dr int) (Square, bool) {
	return SquareAt(sq.File()+df, sq.Rank()+dr)
}

// MaybeSquare is an optional Square. The zero value holds no square.
type MaybeSquare struct {
	sq Square
	ok bool
}

// NoSquare returns an empty MaybeSquare.
func NoSquare() MaybeSquare { return MaybeSquare{} }

// SomeSquare wraps sq.
func SomeSquare(sq Square) MaybeSquare { return MaybeSquare{sq: sq, ok: true} }

// Get returns the square and whether one is present.
func (m MaybeSquare) Get() (Square, bool) { return m.sq, m.ok }

// IsSet reports whether a square is present.
func (m MaybeSquare) IsSet() bool { return m.ok }

// Is reports whether m holds exactly sq.
func (m MaybeSquare) Is(sq Square) bool { return m.ok && m.sq == sq }

// String returns the square name, or "-" when empty (as in FEN).
func (m MaybeSquare) String() string {
	if !m.ok {
		return "-"
	}
	return m.sq.String()
}
