package chessanalysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freeeve/uci"
	"github.com/rs/zerolog"

	"github.com/walterschell/chessplay/chessrules"
)

// defaultDepthHash is the hash size used for depth-limited searches when
// Config.Hash is unset.
const defaultDepthHash = 64

// depthDriver runs depth-capped searches through the freeeve/uci engine
// wrapper. The wrapper blocks until the engine answers, so every call runs on
// its own goroutine and the driver waits for it with a deadline. A call that
// misses its deadline stays pending; the engine is not touched again until it
// finishes or the engine is killed.
type depthDriver struct {
	engine      *uci.Engine
	depth       int
	stopGrace   time.Duration
	quitTimeout time.Duration
	log         zerolog.Logger

	pending <-chan depthReply
}

type depthReply struct {
	results *uci.Results
	err     error
}

func openDepthDriver(ctx context.Context, cfg Config) (driver, error) {
	engine, err := uci.NewEngine(cfg.Path, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %v", ErrEngineUnavailable, cfg.Path, err)
	}
	d := &depthDriver{
		engine:      engine,
		depth:       cfg.Depth,
		stopGrace:   cfg.StopGrace,
		quitTimeout: cfg.QuitTimeout,
		log:         cfg.Logger,
	}
	hash := cfg.Hash
	if hash <= 0 {
		hash = defaultDepthHash
	}
	opts := uci.Options{
		Hash:    hash,
		Threads: cfg.Threads,
		MultiPV: 1,
		Ponder:  false,
		OwnBook: false,
	}

	// uciok and readyok are skipped by the search reader; the depth 1
	// search only returns once the engine has answered all of them.
	reply := d.call(func() (*uci.Results, error) {
		if err := engine.UCI(); err != nil {
			return nil, err
		}
		if err := engine.SetOptions(opts); err != nil {
			return nil, err
		}
		if err := engine.SendCommand("isready"); err != nil {
			return nil, err
		}
		if err := engine.SetFEN(chessrules.StartingFEN); err != nil {
			return nil, err
		}
		return engine.Go(1, "", 0)
	})

	timer := time.NewTimer(cfg.HandshakeTimeout)
	defer timer.Stop()
	select {
	case r := <-reply:
		d.pending = nil
		if r.err == nil && r.results.BestMove == "" {
			r.err = errors.New("no bestmove")
		}
		if r.err != nil {
			d.kill()
			return nil, fmt.Errorf("%w: handshake: %v", ErrEngineUnavailable, r.err)
		}
		return d, nil
	case <-timer.C:
		d.kill()
		return nil, fmt.Errorf("%w: handshake: no answer within %s", ErrEngineUnavailable, cfg.HandshakeTimeout)
	case <-ctx.Done():
		d.kill()
		return nil, fmt.Errorf("%w: handshake: %v", ErrEngineUnavailable, ctx.Err())
	}
}

// call runs fn on its own goroutine and records it as pending.
func (d *depthDriver) call(fn func() (*uci.Results, error)) <-chan depthReply {
	reply := make(chan depthReply, 1)
	go func() {
		results, err := fn()
		reply <- depthReply{results: results, err: err}
	}()
	d.pending = reply
	return reply
}

// settle waits up to timeout for an abandoned call to finish. The late
// bestmove is consumed by that call.
func (d *depthDriver) settle(timeout time.Duration) bool {
	if d.pending == nil {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-d.pending:
		d.pending = nil
		return true
	case <-timer.C:
		return false
	}
}

// search asks for d.depth plies within budget. The engine enforces the
// movetime itself; if it overruns budget plus the stop grace the call is
// abandoned with ErrAnalysisTimeout.
func (d *depthDriver) search(ctx context.Context, pos chessrules.Position, budget time.Duration) (searchOutput, error) {
	if !d.settle(d.quitTimeout) {
		return searchOutput{}, fmt.Errorf("%w: previous search never finished", ErrEngineUnavailable)
	}
	fen := pos.FEN()
	movetime := max(1, budget.Milliseconds())
	reply := d.call(func() (*uci.Results, error) {
		if err := d.engine.SetFEN(fen); err != nil {
			return nil, err
		}
		return d.engine.Go(d.depth, "", movetime)
	})

	timer := time.NewTimer(budget + d.stopGrace)
	defer timer.Stop()
	select {
	case r := <-reply:
		d.pending = nil
		if r.err != nil {
			return searchOutput{}, fmt.Errorf("%w: go depth %d: %v", ErrEngineUnavailable, d.depth, r.err)
		}
		return depthOutput(fen, r.results)
	case <-timer.C:
		return searchOutput{}, fmt.Errorf("%w after %s", ErrAnalysisTimeout, budget+d.stopGrace)
	case <-ctx.Done():
		return searchOutput{}, ctx.Err()
	}
}

// depthOutput picks the deepest exact result.
func depthOutput(fen string, results *uci.Results) (searchOutput, error) {
	out := searchOutput{}
	if results.BestMove != "(none)" && results.BestMove != "0000" {
		out.bestMove = results.BestMove
	}
	if len(results.Results) == 0 {
		if out.bestMove == "" {
			return out, nil
		}
		return searchOutput{}, &ProtocolError{Line: fen, Reason: "no results from engine"}
	}

	best := results.Results[0]
	for _, r := range results.Results {
		if r.Depth > best.Depth {
			best = r
		}
	}
	score := best.Score
	out.depth, out.pv = best.Depth, best.BestMoves
	if best.Mate {
		out.mate = &score
	} else {
		out.cp = &score
	}
	return out, nil
}

// close lets a pending call finish, then stops and kills the engine.
func (d *depthDriver) close() error {
	if !d.settle(d.quitTimeout) {
		d.log.Warn().Dur("timeout", d.quitTimeout).Msg("engine search still running, killing it")
	}
	d.kill()
	return nil
}

func (d *depthDriver) kill() {
	d.engine.Close()
}
