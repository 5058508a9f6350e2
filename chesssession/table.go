package chesssession

import (
	"context"
	"errors"
	"fmt"

	"github.com/walterschell/chessplay/chessanalysis"
	"github.com/walterschell/chessplay/chesscontrol"
	"github.com/walterschell/chessplay/chessgame"
	"github.com/walterschell/chessplay/chessrules"
)

// table is the state owned by the event loop. It implements
// chesscontrol.Target.
type table struct {
	s    *Session
	game *chessgame.Game
	ctrl *chesscontrol.Controller

	flipped bool
	// version changes on every game mutation; hint and engine-move results
	// are only used if it has not changed since they were requested.
	version uint64

	evals       map[chessrules.Position]chessanalysis.Result
	hint        *chessrules.Move
	hintVersion uint64

	wantHint       bool
	wantEngineMove bool
	busy           bool

	lastErr   string
	engineErr error
}

func newTable(s *Session) *table {
	t := &table{
		s:     s,
		game:  chessgame.New(s.opts.gameOptions...),
		evals: make(map[chessrules.Position]chessanalysis.Result),
	}
	t.ctrl = chesscontrol.New(t)
	return t
}

func (t *table) Position() chessrules.Position { return t.game.Position() }

func (t *table) LegalDestinations(from chessrules.Square) []chessrules.Square {
	return t.game.LegalDestinations(from)
}

func (t *table) Push(m chessrules.Move) error {
	if err := t.game.Push(m); err != nil {
		return t.fail(err)
	}
	t.changed()
	return nil
}

func (t *table) Undo() error {
	if _, err := t.game.Undo(); err != nil {
		return t.fail(err)
	}
	t.changed()
	return nil
}

func (t *table) Redo() error {
	if _, err := t.game.Redo(); err != nil {
		return t.fail(err)
	}
	t.changed()
	return nil
}

func (t *table) NewGame() {
	t.game = chessgame.New(t.s.opts.gameOptions...)
	t.ctrl.Reset()
	t.changed()
}

func (t *table) RequestHint() {
	if !t.s.analyst.Available() {
		t.fail(chessanalysis.ErrEngineUnavailable)
		return
	}
	t.wantHint = true
}

func (t *table) RequestEngineMove() {
	if !t.s.analyst.Available() {
		t.fail(chessanalysis.ErrEngineUnavailable)
		return
	}
	t.wantEngineMove = true
}

func (t *table) Flip() { t.flipped = !t.flipped }

// changed invalidates everything tied to the previous game state.
func (t *table) changed() {
	t.version++
	t.hint = nil
	t.wantHint = false
	t.wantEngineMove = false
	t.lastErr = ""
}

func (t *table) fail(err error) error {
	t.lastErr = err.Error()
	t.s.log.Debug().Err(err).Msg("command rejected")
	return err
}

func (t *table) handle(ev Event) {
	var mods chesscontrol.Modifiers
	if ev.Shift {
		mods |= chesscontrol.Shift
	}
	var err error
	switch ev.Kind {
	case PointerDown:
		err = t.ctrl.PointerDown(ev.Square, mods)
	case PointerUp:
		err = t.ctrl.PointerUp(ev.Square, mods)
	case PointerCancel:
		t.ctrl.Cancel()
	case KeyPress:
		_, err = t.ctrl.Key(ev.Key)
	case PushMove:
		t.ctrl.Reset()
		err = t.Push(ev.Move)
	case Undo:
		t.ctrl.Reset()
		err = t.Undo()
	case Redo:
		t.ctrl.Reset()
		err = t.Redo()
	case NewGame:
		t.NewGame()
	case RequestHint:
		t.RequestHint()
	case RequestEngineMove:
		t.RequestEngineMove()
	case Flip:
		t.Flip()
	default:
		err = t.fail(fmt.Errorf("unknown event %s", ev.Kind))
	}
	t.s.log.Debug().Stringer("event", ev.Kind).AnErr("result", err).Msg("event handled")
}

// nextJob picks the most urgent search: an engine move, then a hint, then
// the evaluation of the current position, then of the one before it so the
// last move can be graded.
func (t *table) nextJob() (job, bool) {
	if !t.s.analyst.Available() {
		t.wantHint, t.wantEngineMove = false, false
		return job{}, false
	}
	pos := t.game.Position()
	opts := t.s.opts
	over := t.game.State().IsTerminal()
	switch {
	case over:
		t.wantHint, t.wantEngineMove = false, false
	case t.wantEngineMove:
		t.wantEngineMove = false
		return job{kind: engineMoveJob, pos: pos, version: t.version, budget: opts.engineMoveBudget}, true
	case t.wantHint:
		t.wantHint = false
		return job{kind: hintJob, pos: pos, version: t.version, budget: opts.hintBudget}, true
	}
	if _, ok := t.evals[pos]; !ok && !over {
		return job{kind: analyzeJob, pos: pos, version: t.version, budget: opts.analysisBudget}, true
	}
	if prev, ok := t.game.PreviousPosition(); ok {
		if _, done := t.evals[prev]; !done {
			return job{kind: analyzeJob, pos: prev, version: t.version, budget: opts.analysisBudget}, true
		}
	}
	return job{}, false
}

// dispatch hands the next job to the worker if it is idle.
func (t *table) dispatch(ctx context.Context, jobs chan<- job) {
	if t.busy {
		return
	}
	j, ok := t.nextJob()
	if !ok {
		return
	}
	select {
	case jobs <- j:
		t.busy = true
	case <-ctx.Done():
	}
}

func (t *table) receive(r jobResult) {
	t.busy = false
	log := t.s.log.With().Stringer("job", r.kind).Str("fen", r.pos.FEN()).Logger()

	switch {
	case errors.Is(r.err, chessanalysis.ErrNoMove):
		t.engineErr = nil
	case r.err != nil:
		t.engineErr = r.err
		log.Warn().Err(r.err).Msg("search failed")
	default:
		t.engineErr = nil
	}

	switch r.kind {
	case analyzeJob, hintJob:
		// evaluations are keyed by the position they were computed for, so
		// they are never shown for another one. A failed search still marks
		// the position as tried.
		if _, ok := t.evals[r.pos]; !ok || r.err == nil {
			t.evals[r.pos] = r.result
		}
		if r.kind == hintJob && r.err == nil {
			if r.version != t.version {
				log.Debug().Msg("discarding stale hint")
				return
			}
			t.hint, t.hintVersion = r.result.Move, r.version
		}
	case engineMoveJob:
		if r.version != t.version || r.pos != t.game.Position() {
			log.Debug().Msg("discarding stale engine move")
			return
		}
		if r.err != nil {
			if errors.Is(r.err, chessanalysis.ErrNoMove) {
				t.fail(r.err)
			}
			return
		}
		if err := t.Push(r.move); err != nil {
			log.Warn().Err(err).Stringer("move", r.move).Msg("engine move rejected")
		}
	}
}

// lastMoveAnalysis grades the last move once both positions around it have
// been evaluated.
func (t *table) lastMoveAnalysis() *chessanalysis.MoveAnalysis {
	m, ok := t.game.LastMove()
	if !ok {
		return nil
	}
	prev, _ := t.game.PreviousPosition()
	before, okBefore := t.evals[prev]
	after, okAfter := t.evals[t.game.Position()]
	if !okBefore || !okAfter || before.IsEmpty() || after.IsEmpty() {
		return nil
	}
	analysis := chessanalysis.AnalyzeMove(prev, m, before, after)
	return &analysis
}
