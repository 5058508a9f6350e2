package chessanalysis

import (
	"fmt"
	"math"

	"github.com/walterschell/chessplay/chessrules"
)

// Result is an engine evaluation, always from White's point of view. At most
// one of Centipawns and Mate is set; an empty Result has neither.
type Result struct {
	// Centipawns is the score in hundredths of a pawn, positive when White
	// is better.
	Centipawns *int
	// Mate is the distance to a forced mate in moves. Positive means White
	// mates, negative means Black mates.
	Mate *int
	// Move is the first move of the principal variation, or the engine's
	// committed bestmove.
	Move  *chessrules.Move
	PV    []chessrules.Move
	Depth int
}

// IsEmpty reports whether the result carries no score.
func (r Result) IsEmpty() bool {
	return r.Centipawns == nil && r.Mate == nil
}

// Score formats the evaluation the way a board's eval bar labels it: "+0.35",
// "-1.20", "#3" or "#-2". An empty result formats as "".
func (r Result) Score() string {
	switch {
	case r.Mate != nil:
		return fmt.Sprintf("#%d", *r.Mate)
	case r.Centipawns != nil:
		return fmt.Sprintf("%+.2f", float64(*r.Centipawns)/100)
	}
	return ""
}

// WinProbability maps the evaluation onto White's chance of winning, in
// [0, 1]. A forced mate maps to 0 or 1; an empty result maps to 0.5.
func (r Result) WinProbability() float64 {
	switch {
	case r.Mate != nil:
		if *r.Mate > 0 {
			return 1
		}
		return 0
	case r.Centipawns != nil:
		return winProbability(float64(*r.Centipawns))
	}
	return 0.5
}

// winProbability converts a centipawn score to a winning probability using a
// logistic function.
func winProbability(cp float64) float64 {
	return 1.0 / (1.0 + math.Exp(-cp/200.0))
}

// normalize turns a score given from the side to move's point of view into
// White's point of view.
func normalize(score int, turn chessrules.Color) int {
	if turn == chessrules.Black {
		return -score
	}
	return score
}
