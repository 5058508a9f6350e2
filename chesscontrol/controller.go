// Package chesscontrol turns pointer and key events from a board view into
// game commands. It holds only the transient selection and drag state.
package chesscontrol

import (
	"slices"

	"github.com/walterschell/chessplay/chessrules"
)

// Target is what the controller drives.
type Target interface {
	Position() chessrules.Position
	LegalDestinations(from chessrules.Square) []chessrules.Square
	Push(m chessrules.Move) error
	Undo() error
	Redo() error
	NewGame()
	RequestHint()
	RequestEngineMove()
	Flip()
}

// Mode is the controller state.
type Mode uint8

const (
	Idle Mode = iota
	Selected
	Dragging
)

func (m Mode) String() string {
	switch m {
	case Selected:
		return "selected"
	case Dragging:
		return "dragging"
	}
	return "idle"
}

// Modifiers are the keyboard modifiers held during a pointer event.
type Modifiers uint8

const (
	// Shift promotes to a knight instead of a queen.
	Shift Modifiers = 1 << iota
)

// Controller is the Idle / Selected(from) / Dragging(from) state machine.
type Controller struct {
	target Target
	mode   Mode
	from   chessrules.Square
}

// New returns an idle controller driving t.
func New(t Target) *Controller {
	return &Controller{target: t}
}

// Mode returns the current state.
func (c *Controller) Mode() Mode { return c.mode }

// Held returns the square of the selected or dragged piece.
func (c *Controller) Held() (chessrules.Square, bool) {
	return c.from, c.mode != Idle
}

// Highlights returns the legal destinations of the held piece.
func (c *Controller) Highlights() []chessrules.Square {
	if c.mode == Idle {
		return nil
	}
	return c.target.LegalDestinations(c.from)
}

// Reset drops any selection.
func (c *Controller) Reset() {
	c.mode = Idle
}

// PointerDown handles a press on sq. With a piece selected, pressing one of
// its legal destinations plays the move. Pressing a piece of the side to move
// starts dragging it. Anything else drops the selection.
func (c *Controller) PointerDown(sq chessrules.Square, mods Modifiers) error {
	if c.mode == Selected && c.isDestination(sq) {
		return c.play(sq, mods)
	}
	pos := c.target.Position()
	if pc, ok := pos.PieceAt(sq); ok && pc.Color == pos.SideToMove() {
		c.mode, c.from = Dragging, sq
		return nil
	}
	c.mode = Idle
	return nil
}

// PointerUp handles a release on sq. Releasing a dragged piece on a legal
// destination plays the move; releasing it on its own square selects it for
// click-to-move. Any other release drops the piece without changing the
// game.
func (c *Controller) PointerUp(sq chessrules.Square, mods Modifiers) error {
	if c.mode != Dragging {
		return nil
	}
	switch {
	case sq == c.from:
		c.mode = Selected
		return nil
	case c.isDestination(sq):
		return c.play(sq, mods)
	}
	c.mode = Idle
	return nil
}

// Cancel handles a release outside the board.
func (c *Controller) Cancel() {
	c.mode = Idle
}

// Key handles a key press and reports whether the key is bound.
func (c *Controller) Key(key rune) (bool, error) {
	var err error
	switch key {
	case 'u':
		err = c.target.Undo()
	case 'r':
		err = c.target.Redo()
	case 'h':
		c.target.RequestHint()
	case 'e':
		c.target.RequestEngineMove()
	case 'f':
		c.target.Flip()
		return true, nil
	case 'n':
		c.target.NewGame()
	case 0x1b: // escape
	default:
		return false, nil
	}
	c.mode = Idle
	return true, err
}

func (c *Controller) isDestination(sq chessrules.Square) bool {
	return c.mode != Idle && slices.Contains(c.target.LegalDestinations(c.from), sq)
}

// play pushes the move from the held square to sq and returns to Idle.
func (c *Controller) play(to chessrules.Square, mods Modifiers) error {
	from := c.from
	c.mode = Idle
	return c.target.Push(c.move(from, to, mods))
}

// move builds the Move for from-to, choosing a promotion piece when a pawn
// reaches the last rank: a queen, or a knight with Shift held.
func (c *Controller) move(from, to chessrules.Square, mods Modifiers) chessrules.Move {
	m := chessrules.Move{From: from, To: to}
	pc, ok := c.target.Position().PieceAt(from)
	if ok && pc.Kind == chessrules.Pawn && (to.Rank() == 0 || to.Rank() == 7) {
		m.Promotion = chessrules.Queen
		if mods&Shift != 0 {
			m.Promotion = chessrules.Knight
		}
	}
	return m
}
