package chesssession

import (
	"fmt"

	"github.com/walterschell/chessplay/chessrules"
)

// EventKind says what an Event asks for.
type EventKind uint8

const (
	PointerDown EventKind = iota + 1
	PointerUp
	PointerCancel
	KeyPress
	PushMove
	Undo
	Redo
	NewGame
	RequestHint
	RequestEngineMove
	Flip
)

var eventNames = map[EventKind]string{
	PointerDown:       "pointerdown",
	PointerUp:         "pointerup",
	PointerCancel:     "cancel",
	KeyPress:          "key",
	PushMove:          "move",
	Undo:              "undo",
	Redo:              "redo",
	NewGame:           "new",
	RequestHint:       "hint",
	RequestEngineMove: "engine",
	Flip:              "flip",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", k)
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(s string) (EventKind, error) {
	for k, name := range eventNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event %q", s)
}

// Event is one UI input. Square and Shift apply to pointer events, Key to
// KeyPress and Move to PushMove.
type Event struct {
	Kind   EventKind
	Square chessrules.Square
	Shift  bool
	Key    rune
	Move   chessrules.Move
}
