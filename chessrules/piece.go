package chessrules

import "fmt"

// Color is the color of a side or piece.
type Color uint8

const (
	White Color = iota
	Black
)

// Other returns the opposing color.
func (c Color) Other() Color { return c ^ 1 }

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// MarshalText encodes c as "white" or "black".
func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(text []byte) error {
	switch string(text) {
	case "white":
		*c = White
	case "black":
		*c = Black
	default:
		return fmt.Errorf("chessrules: unknown color %q", text)
	}
	return nil
}

// PieceKind is the type of a piece. The zero value NoPieceKind means "none"
// and is what an unpromoted Move carries.
type PieceKind uint8

const (
	NoPieceKind PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindNames = [...]string{"", "pawn", "knight", "bishop", "rook", "queen", "king"}

func (k PieceKind) String() string {
	if int(k) >= len(kindNames) {
		return "?"
	}
	return kindNames[k]
}

// letter returns the lowercase letter of the kind as used by FEN and UCI.
func (k PieceKind) letter() byte {
	return " pnbrqk"[k]
}

func kindFromLetter(c byte) PieceKind {
	switch c {
	case 'p', 'P':
		return Pawn
	case 'n', 'N':
		return Knight
	case 'b', 'B':
		return Bishop
	case 'r', 'R':
		return Rook
	case 'q', 'Q':
		return Queen
	case 'k', 'K':
		return King
	}
	return NoPieceKind
}

// Piece is a colored piece. The zero value is the absence of a piece.
type Piece struct {
	Kind  PieceKind
	Color Color
}

func (p Piece) empty() bool { return p.Kind == NoPieceKind }

// Letter returns the FEN letter of the piece: uppercase for White.
func (p Piece) Letter() byte {
	c := p.Kind.letter()
	if p.Color == White {
		c -= 'a' - 'A'
	}
	return c
}

func (p Piece) String() string {
	if p.empty() {
		return "."
	}
	return string(p.Letter())
}
