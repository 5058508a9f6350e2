package chessrules

import "slices"

type direction struct{ df, dr int }

var (
	knightSteps = []direction{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = []direction{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
	rookDirs    = []direction{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	bishopDirs  = []direction{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}

	promotionKinds = [...]PieceKind{Knight, Bishop, Rook, Queen}
)

type movegen struct {
	*Position
	moves []Move
}

// LegalMoves returns every move that can be played in this position. The
// order is deterministic: by origin square, then by generation order.
func (p Position) LegalMoves() []Move {
	moves := p.pseudoLegalMoves()
	legal := moves[:0]
	for _, m := range moves {
		if p.isLegal(m) {
			legal = append(legal, m)
		}
	}
	return legal
}

// LegalDestinations returns the distinct target squares of the legal moves
// starting on from.
func (p Position) LegalDestinations(from Square) []Square {
	var dests []Square
	for _, m := range p.LegalMoves() {
		if m.From == from && !slices.Contains(dests, m.To) {
			dests = append(dests, m.To)
		}
	}
	return dests
}

// IsLegal reports whether m is a member of LegalMoves.
func (p Position) IsLegal(m Move) bool {
	return slices.Contains(p.LegalMoves(), m)
}

// isLegal checks a pseudo-legal move by playing it on a copy and looking for
// attacks on the mover's king.
func (p Position) isLegal(m Move) bool {
	next := p.play(m)
	king, ok := next.KingSquare(p.turn)
	return !ok || !next.isAttacked(king, p.turn.Other())
}

// pseudoLegalMoves returns the moves that follow the movement rules of the
// pieces but may leave the mover's king in check.
func (p *Position) pseudoLegalMoves() []Move {
	gen := movegen{Position: p, moves: make([]Move, 0, 64)}
	for i, pc := range p.board {
		if pc.empty() || pc.Color != p.turn {
			continue
		}
		sq := Square(i)
		switch pc.Kind {
		case Pawn:
			gen.pawn(sq)
		case Knight:
			gen.leaper(sq, knightSteps)
		case Bishop:
			gen.slider(sq, bishopDirs)
		case Rook:
			gen.slider(sq, rookDirs)
		case Queen:
			gen.slider(sq, bishopDirs)
			gen.slider(sq, rookDirs)
		case King:
			gen.leaper(sq, kingSteps)
			gen.castles(sq)
		}
	}
	return gen.moves
}

// addMove adds from-to unless to holds a friendly piece. Returns whether a
// slider can continue past to.
func (gen *movegen) addMove(from, to Square) bool {
	blocker := gen.board[to]
	if blocker.empty() || blocker.Color != gen.turn {
		gen.moves = append(gen.moves, Move{From: from, To: to})
	}
	return blocker.empty()
}

func (gen *movegen) leaper(from Square, steps []direction) {
	for _, d := range steps {
		if to, ok := from.offset(d.df, d.dr); ok {
			gen.addMove(from, to)
		}
	}
}

func (gen *movegen) slider(from Square, dirs []direction) {
	for _, d := range dirs {
		to, ok := from.offset(d.df, d.dr)
		for ok && gen.addMove(from, to) {
			to, ok = to.offset(d.df, d.dr)
		}
	}
}

// Pawns

func pawnDirection(c Color) int {
	if c == White {
		return 1
	}
	return -1
}

func (gen *movegen) pawn(from Square) {
	dir := pawnDirection(gen.turn)
	startRank := 1
	if gen.turn == Black {
		startRank = 6
	}
	if one, ok := from.offset(0, dir); ok && gen.board[one].empty() {
		gen.addPawnMove(from, one)
		if from.Rank() == startRank {
			if two, _ := from.offset(0, 2*dir); gen.board[two].empty() {
				gen.addPawnMove(from, two)
			}
		}
	}
	for _, df := range [2]int{-1, 1} {
		to, ok := from.offset(df, dir)
		if !ok {
			continue
		}
		target := gen.board[to]
		if (!target.empty() && target.Color != gen.turn) || gen.enPassant.Is(to) {
			gen.addPawnMove(from, to)
		}
	}
}

// addPawnMove adds a pawn move, expanded into the four promotions when the
// pawn reaches the last rank. A bare move to the last rank is never added.
func (gen *movegen) addPawnMove(from, to Square) {
	if to.Rank() == 0 || to.Rank() == 7 {
		for _, kind := range promotionKinds {
			gen.moves = append(gen.moves, Move{From: from, To: to, Promotion: kind})
		}
		return
	}
	gen.moves = append(gen.moves, Move{From: from, To: to})
}

// King

// castles adds the castling moves of the king on from. The king may not be
// in check, and may not cross or land on an attacked square.
func (gen *movegen) castles(from Square) {
	home, rank := E1, 0
	if gen.turn == Black {
		home, rank = E8, 7
	}
	if from != home {
		return
	}
	rights := gen.castling
	if !rights.KingSide(gen.turn) && !rights.QueenSide(gen.turn) {
		return
	}
	enemy := gen.turn.Other()
	if gen.isAttacked(from, enemy) {
		return
	}
	sq := func(file int) Square {
		s, _ := SquareAt(file, rank)
		return s
	}
	rook := Piece{Kind: Rook, Color: gen.turn}
	if rights.KingSide(gen.turn) && gen.board[sq(7)] == rook &&
		gen.board[sq(5)].empty() && gen.board[sq(6)].empty() &&
		!gen.isAttacked(sq(5), enemy) && !gen.isAttacked(sq(6), enemy) {
		gen.moves = append(gen.moves, Move{From: from, To: sq(6)})
	}
	if rights.QueenSide(gen.turn) && gen.board[sq(0)] == rook &&
		gen.board[sq(1)].empty() && gen.board[sq(2)].empty() && gen.board[sq(3)].empty() &&
		!gen.isAttacked(sq(3), enemy) && !gen.isAttacked(sq(2), enemy) {
		gen.moves = append(gen.moves, Move{From: from, To: sq(2)})
	}
}

// Attacks

// isAttacked reports whether any piece of color by attacks sq.
func (p *Position) isAttacked(sq Square, by Color) bool {
	// a pawn of color by attacks diagonally forward, so look one rank back
	dir := pawnDirection(by)
	for _, df := range [2]int{-1, 1} {
		if from, ok := sq.offset(df, -dir); ok && p.board[from] == (Piece{Kind: Pawn, Color: by}) {
			return true
		}
	}
	if p.attackedByLeaper(sq, knightSteps, Piece{Kind: Knight, Color: by}) ||
		p.attackedByLeaper(sq, kingSteps, Piece{Kind: King, Color: by}) {
		return true
	}
	return p.attackedBySlider(sq, rookDirs, by, Rook) || p.attackedBySlider(sq, bishopDirs, by, Bishop)
}

func (p *Position) attackedByLeaper(sq Square, steps []direction, attacker Piece) bool {
	for _, d := range steps {
		if from, ok := sq.offset(d.df, d.dr); ok && p.board[from] == attacker {
			return true
		}
	}
	return false
}

// attackedBySlider walks each direction to the first occupied square and
// checks for a slider of kind (or a queen) of color by.
func (p *Position) attackedBySlider(sq Square, dirs []direction, by Color, kind PieceKind) bool {
	for _, d := range dirs {
		from, ok := sq.offset(d.df, d.dr)
		for ok && p.board[from].empty() {
			from, ok = from.offset(d.df, d.dr)
		}
		if !ok {
			continue
		}
		if pc := p.board[from]; pc.Color == by && (pc.Kind == kind || pc.Kind == Queen) {
			return true
		}
	}
	return false
}
