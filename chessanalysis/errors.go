package chessanalysis

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineUnavailable means the engine never started or has exited. It
	// is permanent for the lifetime of a Client.
	ErrEngineUnavailable = errors.New("chessanalysis: engine unavailable")

	// ErrAnalysisTimeout means a search did not finish within its budget plus
	// the stop grace period. The connection stays usable.
	ErrAnalysisTimeout = errors.New("chessanalysis: analysis timed out")

	// ErrNoMove is returned by BestMove when the position has no move to
	// offer, because the game is over or the engine answered "(none)".
	ErrNoMove = errors.New("chessanalysis: no move")

	errEngineExited = fmt.Errorf("%w: engine exited", ErrEngineUnavailable)
)

// ProtocolError reports engine output that could not be understood, or a
// move the engine sent that is not legal in the searched position.
type ProtocolError struct {
	Line   string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("chessanalysis: protocol error: %s: %q", e.Reason, e.Line)
}
