package chessrules

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFEN is returned (wrapped) by ParseFEN.
var ErrInvalidFEN = errors.New("chessrules: invalid FEN")

// MustParseFEN is like ParseFEN, but panics if fen cannot be parsed.
func MustParseFEN(fen string) Position {
	p, err := ParseFEN(fen)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseFEN parses a position in Forsyth-Edwards Notation. The half-move clock
// and full-move number fields may be omitted and default to "0 1".
//
// Castling flags whose king or rook is not on its home square are dropped, and
// an en-passant square is rejected unless a pawn that could just have double
// stepped stands in front of it. Both kings must be present exactly once.
func ParseFEN(fen string) (Position, error) {
	var p Position
	fail := func(format string, args ...any) (Position, error) {
		return Position{}, fmt.Errorf("%w: %q: %s", ErrInvalidFEN, fen, fmt.Sprintf(format, args...))
	}

	fields := strings.Fields(fen)
	if len(fields) < 4 || len(fields) > 6 {
		return fail("expected 4 to 6 fields, got %d", len(fields))
	}
	defaults := [...]string{"0", "1"}
	for len(fields) < 6 {
		fields = append(fields, defaults[len(fields)-4])
	}

	// field 1: pieces
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return fail("expected 8 ranks")
	}
	var kings [2]int
	for i, row := range ranks {
		rank, file := 7-i, 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			kind := kindFromLetter(c)
			if kind == NoPieceKind {
				return fail("unexpected character %q", c)
			}
			sq, ok := SquareAt(file, rank)
			if !ok {
				return fail("too many files in rank %d", rank+1)
			}
			color := White
			if c >= 'a' {
				color = Black
			}
			if kind == Pawn && (rank == 0 || rank == 7) {
				return fail("pawn on %s", sq)
			}
			if kind == King {
				kings[color]++
			}
			p.board[sq] = Piece{Kind: kind, Color: color}
			file++
		}
		if file != 8 {
			return fail("rank %d has %d files", rank+1, file)
		}
	}
	if kings[White] != 1 || kings[Black] != 1 {
		return fail("each side needs exactly one king")
	}

	// field 2: side to move
	switch fields[1] {
	case "w":
		p.turn = White
	case "b":
		p.turn = Black
	default:
		return fail("side to move must be 'w' or 'b'")
	}

	// field 3: castling rights
	if fields[2] != "-" {
		for i := 0; i < len(fields[2]); i++ {
			switch fields[2][i] {
			case 'K':
				p.castling.WhiteKingSide = p.hasPiece(E1, King, White) && p.hasPiece(H1, Rook, White)
			case 'Q':
				p.castling.WhiteQueenSide = p.hasPiece(E1, King, White) && p.hasPiece(A1, Rook, White)
			case 'k':
				p.castling.BlackKingSide = p.hasPiece(E8, King, Black) && p.hasPiece(H8, Rook, Black)
			case 'q':
				p.castling.BlackQueenSide = p.hasPiece(E8, King, Black) && p.hasPiece(A8, Rook, Black)
			default:
				return fail("invalid castling field %q", fields[2])
			}
		}
	}

	// field 4: en-passant square
	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return fail("invalid en-passant square %q", fields[3])
		}
		wantRank, pawnRank, mover := 5, 4, Black
		if p.turn == Black {
			wantRank, pawnRank, mover = 2, 3, White
		}
		pawnSq, _ := SquareAt(sq.File(), pawnRank)
		if sq.Rank() != wantRank || !p.hasPiece(pawnSq, Pawn, mover) {
			return fail("impossible en-passant square %s", sq)
		}
		p.enPassant = SomeSquare(sq)
	}

	// fields 5-6: counters
	var err error
	if p.halfMoveClock, err = strconv.Atoi(fields[4]); err != nil || p.halfMoveClock < 0 {
		return fail("invalid half-move clock %q", fields[4])
	}
	if p.fullMoveNumber, err = strconv.Atoi(fields[5]); err != nil || p.fullMoveNumber < 1 {
		return fail("invalid full-move number %q", fields[5])
	}
	return p, nil
}

// FEN returns the position in Forsyth-Edwards Notation.
func (p Position) FEN() string {
	var fen bytes.Buffer
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			sq, _ := SquareAt(file, rank)
			pc := p.board[sq]
			if pc.empty() {
				empty++
				continue
			}
			if empty > 0 {
				fen.WriteByte(byte('0' + empty))
				empty = 0
			}
			fen.WriteByte(pc.Letter())
		}
		if empty > 0 {
			fen.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			fen.WriteByte('/')
		}
	}
	fen.WriteByte(' ')
	fen.WriteByte("wb"[p.turn])
	fmt.Fprintf(&fen, " %s %s %d %d", p.castling, p.enPassant, p.halfMoveClock, p.fullMoveNumber)
	return fen.String()
}

// String returns the FEN of the position.
func (p Position) String() string { return p.FEN() }

func (p *Position) hasPiece(sq Square, kind PieceKind, color Color) bool {
	return p.board[sq] == Piece{Kind: kind, Color: color}
}
