package chesssession

import (
	"github.com/walterschell/chessplay/chessanalysis"
	"github.com/walterschell/chessplay/chessrules"
)

// View is an immutable snapshot of everything a board view draws.
type View struct {
	FEN         string            `json:"fen"`
	Pieces      map[string]string `json:"pieces"`
	Turn        string            `json:"turn"`
	Status      string            `json:"status"`
	Termination string            `json:"termination,omitempty"`
	Check       string            `json:"check,omitempty"`
	LastMove    string            `json:"lastMove,omitempty"`
	Selected    string            `json:"selected,omitempty"`
	Highlights  []string          `json:"highlights"`
	Flipped     bool              `json:"flipped"`
	Moves       []string          `json:"moves"`
	CanUndo     bool              `json:"canUndo"`
	CanRedo     bool              `json:"canRedo"`

	Eval         string                      `json:"eval"`
	EvalBar      float64                     `json:"evalBar"`
	BestLine     []string                    `json:"bestLine"`
	Hint         string                      `json:"hint,omitempty"`
	LastAnalysis *chessanalysis.MoveAnalysis `json:"lastAnalysis,omitempty"`
	Thinking     bool                        `json:"thinking"`

	EngineAvailable bool   `json:"engineAvailable"`
	EngineStatus    string `json:"engineStatus"`
	Error           string `json:"error,omitempty"`
}

// statusText is the line shown under the board.
func statusText(t *table) string {
	switch reason := t.game.Termination(); reason {
	case chessrules.NoTermination:
		if t.game.Turn() == chessrules.White {
			return "White to move"
		}
		return "Black to move"
	case chessrules.Checkmate:
		return "Checkmate"
	case chessrules.Stalemate:
		return "Stalemate"
	default:
		return "Game over: " + reason.String()
	}
}

func squareNames(sqs []chessrules.Square) []string {
	names := make([]string, len(sqs))
	for i, sq := range sqs {
		names[i] = sq.String()
	}
	return names
}

func (s *Session) view(t *table) View {
	pos := t.game.Position()
	v := View{
		FEN:             pos.FEN(),
		Pieces:          make(map[string]string, 32),
		Turn:            pos.SideToMove().String(),
		Status:          statusText(t),
		Highlights:      squareNames(t.ctrl.Highlights()),
		Flipped:         t.flipped,
		CanUndo:         t.game.CanUndo(),
		CanRedo:         t.game.CanRedo(),
		Thinking:        t.busy,
		EngineAvailable: s.analyst.Available(),
		Error:           t.lastErr,
		EvalBar:         0.5,
	}
	for sq := chessrules.Square(0); sq < chessrules.NumSquares; sq++ {
		if pc, ok := pos.PieceAt(sq); ok {
			v.Pieces[sq.String()] = string(pc.Letter())
		}
	}
	if reason := t.game.Termination(); reason != chessrules.NoTermination {
		v.Termination = reason.String()
	}
	if pos.IsCheck() {
		if king, ok := pos.KingSquare(pos.SideToMove()); ok {
			v.Check = king.String()
		}
	}
	if m, ok := t.game.LastMove(); ok {
		v.LastMove = m.String()
	}
	if sq, ok := t.ctrl.Held(); ok {
		v.Selected = sq.String()
	}
	if moves, err := chessanalysis.SAN(t.game.Initial(), t.game.Moves()); err == nil {
		v.Moves = moves
	} else {
		s.log.Warn().Err(err).Msg("move list")
	}

	if r, ok := t.evals[pos]; ok && !r.IsEmpty() {
		v.Eval = r.Score()
		v.EvalBar = r.WinProbability()
		if line, err := chessanalysis.SAN(pos, r.PV); err == nil {
			v.BestLine = line
		}
	}
	if t.hint != nil && t.hintVersion == t.version {
		v.Hint = t.hint.String()
	}
	v.LastAnalysis = t.lastMoveAnalysis()

	switch {
	case !v.EngineAvailable:
		v.EngineStatus = "Engine error: " + errText(s.analyst.Err())
	case t.engineErr != nil:
		v.EngineStatus = "Engine error: " + t.engineErr.Error()
	default:
		v.EngineStatus = "Engine: OK"
	}
	return v
}

func errText(err error) string {
	if err == nil {
		return "unavailable"
	}
	return err.Error()
}
