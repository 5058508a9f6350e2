// Package chessgame keeps the authoritative game: the current position, the
// moves played to reach it and the moves that were taken back.
package chessgame

import (
	"errors"
	"fmt"
	"slices"

	"github.com/walterschell/chessplay/chessrules"
)

var (
	// ErrEmptyHistory is returned by Undo and Redo when there is nothing to
	// take back or replay.
	ErrEmptyHistory = errors.New("chessgame: empty history")

	// ErrGameOver is returned by Push once the game has ended.
	ErrGameOver = errors.New("chessgame: game is over")

	// ErrIllegalMove is chessrules.ErrIllegalMove, re-exported for callers
	// that only import this package.
	ErrIllegalMove = chessrules.ErrIllegalMove
)

// fivefold is the number of occurrences of a position that ends the game.
const fivefold = 5

type ply struct {
	before chessrules.Position
	move   chessrules.Move
}

// Game is a position plus its undo and redo stacks. A Game is not safe for
// concurrent use; it is owned by a single control loop.
type Game struct {
	initial chessrules.Position
	pos     chessrules.Position
	undo    []ply
	redo    []chessrules.Move
	state   State

	ignoreAutomaticDraws bool
}

// Option configures a Game.
type Option func(*Game)

// FromPosition starts the game from p instead of the standard position.
func FromPosition(p chessrules.Position) Option {
	return func(g *Game) { g.initial = p }
}

// IgnoreAutomaticDraws limits termination to checkmate and stalemate.
func IgnoreAutomaticDraws() Option {
	return func(g *Game) { g.ignoreAutomaticDraws = true }
}

// New returns a game in the standard starting position.
func New(opts ...Option) *Game {
	g := &Game{initial: chessrules.StartingPosition()}
	for _, opt := range opts {
		opt(g)
	}
	g.pos = g.initial
	g.evaluate()
	return g
}

// Push plays m. It fails with an error matching ErrIllegalMove if m is not a
// legal move, or ErrGameOver if the game has ended. A successful push clears
// the redo stack.
func (g *Game) Push(m chessrules.Move) error {
	if err := g.play(m); err != nil {
		return err
	}
	g.redo = g.redo[:0]
	return nil
}

// Undo takes back the last move and returns it. The position is restored
// exactly, including castling rights, en-passant target and clocks.
func (g *Game) Undo() (chessrules.Move, error) {
	if len(g.undo) == 0 {
		return chessrules.Move{}, fmt.Errorf("undo: %w", ErrEmptyHistory)
	}
	last := g.undo[len(g.undo)-1]
	g.undo = g.undo[:len(g.undo)-1]
	g.pos = last.before
	g.redo = append(g.redo, last.move)
	g.evaluate()
	return last.move, nil
}

// Redo replays the most recently undone move and returns it. Unlike Push it
// keeps the remaining redo stack.
func (g *Game) Redo() (chessrules.Move, error) {
	if len(g.redo) == 0 {
		return chessrules.Move{}, fmt.Errorf("redo: %w", ErrEmptyHistory)
	}
	m := g.redo[len(g.redo)-1]
	if err := g.play(m); err != nil {
		return chessrules.Move{}, fmt.Errorf("redo: %w", err)
	}
	g.redo = g.redo[:len(g.redo)-1]
	return m, nil
}

func (g *Game) play(m chessrules.Move) error {
	if g.state.IsTerminal() {
		return fmt.Errorf("push %s: %w", m, ErrGameOver)
	}
	next, err := g.pos.Apply(m)
	if err != nil {
		return err
	}
	g.undo = append(g.undo, ply{before: g.pos, move: m})
	g.pos = next
	g.evaluate()
	return nil
}

func (g *Game) evaluate() {
	reason := g.pos.Termination()
	if g.ignoreAutomaticDraws && reason != chessrules.Checkmate && reason != chessrules.Stalemate {
		reason = chessrules.NoTermination
	}
	if reason == chessrules.NoTermination && !g.ignoreAutomaticDraws && g.repetitions() >= fivefold {
		reason = chessrules.FivefoldRepetition
	}
	g.state = Terminal(reason)
}

// repetitions counts how often the current position has occurred.
func (g *Game) repetitions() int {
	key := g.pos.RepetitionKey()
	n := 1
	for _, p := range g.undo {
		if p.before.RepetitionKey() == key {
			n++
		}
	}
	return n
}

// Position returns the current position.
func (g *Game) Position() chessrules.Position { return g.pos }

// Initial returns the position the game started from.
func (g *Game) Initial() chessrules.Position { return g.initial }

// PreviousPosition returns the position before the last move.
func (g *Game) PreviousPosition() (chessrules.Position, bool) {
	if len(g.undo) == 0 {
		return chessrules.Position{}, false
	}
	return g.undo[len(g.undo)-1].before, true
}

// Turn returns the side to move.
func (g *Game) Turn() chessrules.Color { return g.pos.SideToMove() }

// LegalMoves returns the legal moves of the current position.
func (g *Game) LegalMoves() []chessrules.Move {
	if g.state.IsTerminal() {
		return nil
	}
	return g.pos.LegalMoves()
}

// LegalDestinations returns the squares the piece on from may move to.
func (g *Game) LegalDestinations(from chessrules.Square) []chessrules.Square {
	if g.state.IsTerminal() {
		return nil
	}
	return g.pos.LegalDestinations(from)
}

// IsLegal reports whether m may be pushed.
func (g *Game) IsLegal(m chessrules.Move) bool {
	return !g.state.IsTerminal() && g.pos.IsLegal(m)
}

// LastMove returns the most recently applied move.
func (g *Game) LastMove() (chessrules.Move, bool) {
	if len(g.undo) == 0 {
		return chessrules.Move{}, false
	}
	return g.undo[len(g.undo)-1].move, true
}

// Moves returns the moves played so far, oldest first.
func (g *Game) Moves() []chessrules.Move {
	moves := make([]chessrules.Move, len(g.undo))
	for i, p := range g.undo {
		moves[i] = p.move
	}
	return moves
}

// RedoMoves returns the undone moves, the next one to be redone last.
func (g *Game) RedoMoves() []chessrules.Move { return slices.Clone(g.redo) }

// CanUndo reports whether Undo would succeed.
func (g *Game) CanUndo() bool { return len(g.undo) > 0 }

// CanRedo reports whether Redo would succeed.
func (g *Game) CanRedo() bool { return len(g.redo) > 0 }

// State returns whether the game is in progress or has ended.
func (g *Game) State() State { return g.state }

// Termination is shorthand for State().Reason().
func (g *Game) Termination() chessrules.Termination { return g.state.reason }
