package chessanalysis

import (
	"encoding/json"
	"fmt"

	chess "github.com/corentings/chess/v2"

	"github.com/walterschell/chessplay/chessrules"
)

type MoveClassification int

const (
	Neutral MoveClassification = iota
	Blunder
	Questionable
	Good
	Excellent
	Winning
)

func (c MoveClassification) String() string {
	return []string{"Neutral", "Blunder", "Questionable", "Good", "Excellent", "Winning"}[c]
}

// Chess annotation symbols for move classifications
var classificationAnnotations = map[MoveClassification]string{
	Blunder:      "??",
	Questionable: "?",
	Neutral:      "",
	Good:         "!",
	Excellent:    "!!",
	Winning:      "+-",
}

// Annotation returns the symbol appended to a move in the move list.
func (c MoveClassification) Annotation() string { return classificationAnnotations[c] }

// MoveAnalysis grades a single move by comparing the evaluation before it was
// played with the evaluation after.
type MoveAnalysis struct {
	MoveNumber                   int
	Color                        chessrules.Color
	MoveText                     string
	Score                        string
	WinningProbability           float64
	WinningProbabilityDifference float64
	Classification               MoveClassification
	IsBestMove                   bool
	BestMove                     string
	BestMoveSAN                  string
}

func (m *MoveAnalysis) String() string {
	return fmt.Sprintf("Move %d: %s (Score: %s, Classification: %s, Is Best Move: %t)",
		m.MoveNumber, m.MoveText, m.Score, m.Classification, m.IsBestMove)
}

type moveAnalysisJSON struct {
	MoveNumber                   int     `json:"moveNumber"`
	Color                        string  `json:"color"`
	MoveText                     string  `json:"moveText"`
	Score                        string  `json:"score"`
	WinningProbability           float64 `json:"winningProbability"`
	WinningProbabilityDifference float64 `json:"winningProbabilityDifference"`
	Classification               string  `json:"classification"`       // Human readable
	ClassificationSymbol         string  `json:"classificationSymbol"` // Chess annotation
	IsBestMove                   bool    `json:"isBestMove"`
	BestMove                     string  `json:"bestMove"`
	BestMoveSAN                  string  `json:"bestMoveSAN"`
}

// MarshalJSON implements custom JSON serialization for MoveAnalysis
func (m *MoveAnalysis) MarshalJSON() ([]byte, error) {
	return json.Marshal(moveAnalysisJSON{
		MoveNumber:                   m.MoveNumber,
		Color:                        m.Color.String(),
		MoveText:                     m.MoveText,
		Score:                        m.Score,
		WinningProbability:           m.WinningProbability,
		WinningProbabilityDifference: m.WinningProbabilityDifference,
		Classification:               m.Classification.String(),
		ClassificationSymbol:         m.Classification.Annotation(),
		IsBestMove:                   m.IsBestMove,
		BestMove:                     m.BestMove,
		BestMoveSAN:                  m.BestMoveSAN,
	})
}

func (m *MoveAnalysis) UnmarshalJSON(data []byte) error {
	var raw moveAnalysisJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var color chessrules.Color
	if err := color.UnmarshalText([]byte(raw.Color)); err != nil {
		return err
	}
	classification, err := parseClassification(raw.Classification)
	if err != nil {
		return err
	}
	*m = MoveAnalysis{
		MoveNumber:                   raw.MoveNumber,
		Color:                        color,
		MoveText:                     raw.MoveText,
		Score:                        raw.Score,
		WinningProbability:           raw.WinningProbability,
		WinningProbabilityDifference: raw.WinningProbabilityDifference,
		Classification:               classification,
		IsBestMove:                   raw.IsBestMove,
		BestMove:                     raw.BestMove,
		BestMoveSAN:                  raw.BestMoveSAN,
	}
	return nil
}

func parseClassification(s string) (MoveClassification, error) {
	for c := Neutral; c <= Winning; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return Neutral, fmt.Errorf("unknown move classification %q", s)
}

// classifyMove determines the quality of a move from the mover's winning
// probability after it and the probability the best move would have kept.
func classifyMove(winProb, bestWinProb float64) MoveClassification {
	winProbDiff := winProb - bestWinProb

	switch {
	case winProbDiff <= -0.2: // More than 20% worse than best move
		return Blunder
	case winProbDiff <= -0.1: // More than 10% worse than best move
		return Questionable
	case winProbDiff >= 0.1: // More than 10% better than best move
		return Excellent
	case winProbDiff >= 0.05: // More than 5% better than best move
		return Good
	case winProb >= 0.95: // Almost certain win
		return Winning
	default:
		return Neutral
	}
}

// moverWinProbability returns the mover's chance of winning according to r.
func moverWinProbability(r Result, mover chessrules.Color) float64 {
	p := r.WinProbability()
	if mover == chessrules.Black {
		return 1 - p
	}
	return p
}

// Classify grades a move by mover, given the evaluation of the position
// before it and after it. Empty evaluations classify as Neutral.
func Classify(before, after Result, mover chessrules.Color) MoveClassification {
	if before.IsEmpty() || after.IsEmpty() {
		return Neutral
	}
	return classifyMove(moverWinProbability(after, mover), moverWinProbability(before, mover))
}

// AnalyzeMove builds the MoveAnalysis of move played in pos. before is the
// evaluation of pos and after the evaluation of the position that followed.
func AnalyzeMove(pos chessrules.Position, move chessrules.Move, before, after Result) MoveAnalysis {
	mover := pos.SideToMove()
	analysis := MoveAnalysis{
		MoveNumber:     pos.FullMoveNumber(),
		Color:          mover,
		MoveText:       move.String(),
		Score:          after.Score(),
		Classification: Classify(before, after, mover),
	}
	if san, err := SAN(pos, []chessrules.Move{move}); err == nil {
		analysis.MoveText = san[0]
	}
	if !after.IsEmpty() {
		analysis.WinningProbability = moverWinProbability(after, mover)
		if !before.IsEmpty() {
			analysis.WinningProbabilityDifference = analysis.WinningProbability - moverWinProbability(before, mover)
		}
	}
	if before.Move != nil {
		analysis.BestMove = before.Move.String()
		analysis.IsBestMove = *before.Move == move
		if san, err := SAN(pos, []chessrules.Move{*before.Move}); err == nil {
			analysis.BestMoveSAN = san[0]
		}
	}
	return analysis
}

// SAN renders moves, played in sequence from pos, in standard algebraic
// notation. On error it returns the moves rendered so far.
func SAN(pos chessrules.Position, moves []chessrules.Move) ([]string, error) {
	fenOpt, err := chess.FEN(pos.FEN())
	if err != nil {
		return nil, fmt.Errorf("san: %w", err)
	}
	game := chess.NewGame(fenOpt)
	sans := make([]string, 0, len(moves))
	for _, m := range moves {
		next, err := pos.Apply(m)
		if err != nil {
			return sans, fmt.Errorf("san: %w", err)
		}
		pos = next
		move, err := tagged(game, m)
		if err != nil {
			return sans, err
		}
		san := chess.AlgebraicNotation{}.Encode(game.Position(), move)
		if err := game.PushMove(san, &chess.PushMoveOptions{ForceMainline: true}); err != nil {
			return sans, fmt.Errorf("san: push %s: %w", san, err)
		}
		sans = append(sans, san)
	}
	return sans, nil
}

// tagged returns the game's own valid move matching m. Decoded UCI moves
// lack the castling tags the SAN encoder needs.
func tagged(game *chess.Game, m chessrules.Move) (*chess.Move, error) {
	decoded, err := chess.UCINotation{}.Decode(game.Position(), m.String())
	if err != nil {
		return nil, fmt.Errorf("san: decode %s: %w", m, err)
	}
	valid := game.ValidMoves()
	for i := range valid {
		v := &valid[i]
		if v.S1() == decoded.S1() && v.S2() == decoded.S2() && v.Promo() == decoded.Promo() {
			return v, nil
		}
	}
	return nil, fmt.Errorf("san: %s not valid in %s", m, game.Position())
}
