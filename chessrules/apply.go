package chessrules

// Apply returns the position after playing m. It fails with an
// *IllegalMoveError if m is not a member of LegalMoves; the receiver is never
// modified.
func (p Position) Apply(m Move) (Position, error) {
	if !p.IsLegal(m) {
		return p, &IllegalMoveError{Move: m, FEN: p.FEN()}
	}
	return p.play(m), nil
}

// play makes m without any legality check. m must be pseudo-legal.
func (p Position) play(m Move) Position {
	piece := p.board[m.From]
	captured := p.board[m.To]
	ep := p.enPassant
	p.enPassant = NoSquare()

	switch piece.Kind {
	case Pawn:
		if ep.Is(m.To) && m.From.File() != m.To.File() {
			// the captured pawn stands beside the mover, not on m.To
			victim, _ := SquareAt(m.To.File(), m.From.Rank())
			captured = p.board[victim]
			p.board[victim] = Piece{}
		}
		if dr := m.To.Rank() - m.From.Rank(); dr == 2 || dr == -2 {
			behind, _ := SquareAt(m.From.File(), m.From.Rank()+dr/2)
			p.enPassant = SomeSquare(behind)
		}
		if m.Promotion != NoPieceKind {
			piece.Kind = m.Promotion
		}
	case King:
		rank := m.From.Rank()
		switch m.To.File() - m.From.File() {
		case 2:
			p.moveRook(rank, 7, 5)
		case -2:
			p.moveRook(rank, 0, 3)
		}
	}

	p.castling = p.castling.without(m.From).without(m.To)

	if p.board[m.From].Kind == Pawn || !captured.empty() {
		p.halfMoveClock = 0
	} else {
		p.halfMoveClock++
	}

	p.board[m.To] = piece
	p.board[m.From] = Piece{}
	if p.turn == Black {
		p.fullMoveNumber++
	}
	p.turn = p.turn.Other()
	return p
}

func (p *Position) moveRook(rank, fromFile, toFile int) {
	from, _ := SquareAt(fromFile, rank)
	to, _ := SquareAt(toFile, rank)
	p.board[to] = p.board[from]
	p.board[from] = Piece{}
}
