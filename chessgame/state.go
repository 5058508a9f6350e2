package chessgame

import "github.com/walterschell/chessplay/chessrules"

// State is either InProgress or Terminal with the reason the game ended.
type State struct {
	reason chessrules.Termination
}

// InProgress is the state of a game that has not ended.
func InProgress() State { return State{} }

// Terminal is the state of a game that ended for reason.
func Terminal(reason chessrules.Termination) State { return State{reason: reason} }

// IsTerminal reports whether the game has ended.
func (s State) IsTerminal() bool { return s.reason != chessrules.NoTermination }

// Reason returns why the game ended, or NoTermination.
func (s State) Reason() chessrules.Termination { return s.reason }

func (s State) String() string {
	if !s.IsTerminal() {
		return "in progress"
	}
	return "terminal: " + s.reason.String()
}
