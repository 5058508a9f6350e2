// Package chesssession ties a game, its interaction controller and an engine
// client into one session driven by a single event loop. Engine searches run
// on a background worker and their results come back over a channel; a
// result computed for a position that is no longer current is discarded.
package chesssession

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/walterschell/chessplay/chessanalysis"
	"github.com/walterschell/chessplay/chessrules"
)

// Analyst evaluates positions. *chessanalysis.Client implements it.
type Analyst interface {
	Available() bool
	Err() error
	Analyze(ctx context.Context, pos chessrules.Position, budget time.Duration) (chessanalysis.Result, error)
	BestMove(ctx context.Context, pos chessrules.Position, budget time.Duration) (chessrules.Move, error)
}

// Session serializes all game mutations on the goroutine running Run.
type Session struct {
	analyst Analyst
	opts    options
	log     zerolog.Logger

	events chan Event
	views  chan View
	done   chan struct{}
}

// New returns a session that has not started yet; call Run.
func New(analyst Analyst, opts ...Option) *Session {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Session{
		analyst: analyst,
		opts:    o,
		log:     o.log,
		events:  make(chan Event, 16),
		views:   make(chan View, 1),
		done:    make(chan struct{}),
	}
}

// ErrStopped is returned by Send once Run has returned.
var ErrStopped = errors.New("chesssession: session stopped")

// Send queues ev for the event loop.
func (s *Session) Send(ctx context.Context, ev Event) error {
	select {
	case <-s.done:
		return ErrStopped
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Views delivers a fresh View after every change. Only the latest View is
// kept; a slow reader skips intermediate ones.
func (s *Session) Views() <-chan View { return s.views }

// Run drives the session until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	jobs := make(chan job)
	results := make(chan jobResult)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.worker(ctx, jobs, results) })
	g.Go(func() error { return s.loop(ctx, jobs, results) })
	return g.Wait()
}

func (s *Session) loop(ctx context.Context, jobs chan<- job, results <-chan jobResult) error {
	defer close(jobs)
	t := newTable(s)
	for {
		t.dispatch(ctx, jobs)
		s.publish(s.view(t))

		select {
		case <-ctx.Done():
			s.log.Debug().Msg("session stopped")
			return nil
		case ev := <-s.events:
			t.handle(ev)
		case r := <-results:
			t.receive(r)
		}
	}
}

func (s *Session) publish(v View) {
	for {
		select {
		case s.views <- v:
			return
		default:
		}
		select {
		case <-s.views:
		default:
		}
	}
}

type jobKind uint8

const (
	analyzeJob jobKind = iota
	hintJob
	engineMoveJob
)

func (k jobKind) String() string {
	return [...]string{"analyze", "hint", "engine move"}[k]
}

// job is one search request. version identifies the game state it was made
// for.
type job struct {
	kind    jobKind
	pos     chessrules.Position
	version uint64
	budget  time.Duration
}

type jobResult struct {
	job
	result chessanalysis.Result
	move   chessrules.Move
	err    error
}

// worker runs searches one at a time. It owns no game state.
func (s *Session) worker(ctx context.Context, jobs <-chan job, results chan<- jobResult) error {
	for j := range jobs {
		r := jobResult{job: j}
		switch j.kind {
		case analyzeJob, hintJob:
			r.result, r.err = s.analyst.Analyze(ctx, j.pos, j.budget)
		case engineMoveJob:
			r.move, r.err = s.analyst.BestMove(ctx, j.pos, j.budget)
		}
		select {
		case results <- r:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}
