// Package chessanalysis drives an external chess engine over UCI and turns
// its output into evaluations of chessrules positions.
package chessanalysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/walterschell/chessplay/chessrules"
)

// Config describes how to start and drive the engine. Zero fields take the
// defaults noted on each field.
type Config struct {
	// Path is the engine binary. Default "stockfish".
	Path string
	Args []string
	// Threads is sent once as the Threads option. Default max(1, NumCPU/2).
	Threads int
	// Hash is the hash table size in MB. Zero leaves the engine default.
	Hash int
	// Depth switches to depth-capped searches through freeeve/uci when
	// positive. Each search still ends within its time budget.
	Depth int
	// HandshakeTimeout bounds the uci/isready exchange. Default 5s.
	HandshakeTimeout time.Duration
	// StopGrace is how long a search may overrun its budget before stop is
	// sent, and again before the search is abandoned. Default 500ms.
	StopGrace time.Duration
	// QuitTimeout is how long Close waits for the process to exit after
	// quit before killing it. Default 2s.
	QuitTimeout time.Duration
	Logger      zerolog.Logger
}

func (cfg Config) withDefaults() Config {
	if cfg.Path == "" {
		cfg.Path = "stockfish"
	}
	if cfg.Threads <= 0 {
		cfg.Threads = max(1, runtime.NumCPU()/2)
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 500 * time.Millisecond
	}
	if cfg.QuitTimeout <= 0 {
		cfg.QuitTimeout = 2 * time.Second
	}
	return cfg
}

// driver runs searches over one engine connection.
type driver interface {
	search(ctx context.Context, pos chessrules.Position, budget time.Duration) (searchOutput, error)
	close() error
}

type opener func(ctx context.Context, cfg Config) (driver, error)

// Client owns one engine process. Searches are serialized. If the engine
// fails to start or exits, the Client stays in a degraded mode where every
// call returns ErrEngineUnavailable.
type Client struct {
	cfg    Config
	log    zerolog.Logger
	cancel context.CancelFunc

	mutex  sync.Mutex
	drv    driver
	err    error
	closed bool
	once   sync.Once
}

// Start launches and configures the engine. It never fails: check Available
// and Err for the outcome. The process is bound to ctx and is killed when ctx
// is cancelled or Close is called.
func Start(ctx context.Context, cfg Config) *Client {
	return start(ctx, cfg, openProcess)
}

func start(ctx context.Context, cfg Config, open opener) *Client {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(ctx)
	c := &Client{cfg: cfg, log: cfg.Logger, cancel: cancel}

	drv, err := open(ctx, cfg)
	if err != nil {
		if !errors.Is(err, ErrEngineUnavailable) {
			err = fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		c.err = err
		c.log.Error().Err(err).Str("path", cfg.Path).Msg("engine unavailable")
		cancel()
		return c
	}
	c.drv = drv
	c.log.Info().Str("path", cfg.Path).Int("threads", cfg.Threads).Int("depth", cfg.Depth).Msg("engine ready")
	return c
}

// Available reports whether the engine is running.
func (c *Client) Available() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.err == nil && !c.closed
}

// Err returns the error that put the client into degraded mode, or nil.
func (c *Client) Err() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.err
}

// Analyze evaluates pos for roughly budget. Positions where the game is over
// yield an empty Result and no error. On any error the Result is empty; only
// errors matching ErrEngineUnavailable are permanent.
func (c *Client) Analyze(ctx context.Context, pos chessrules.Position, budget time.Duration) (Result, error) {
	if pos.IsGameOver() {
		return Result{}, nil
	}
	r, _, err := c.search(ctx, pos, budget)
	return r, err
}

// BestMove asks the engine to commit to a move in pos within budget. The
// move is checked against pos.LegalMoves before it is returned.
func (c *Client) BestMove(ctx context.Context, pos chessrules.Position, budget time.Duration) (chessrules.Move, error) {
	if pos.IsGameOver() {
		return chessrules.Move{}, ErrNoMove
	}
	r, committed, err := c.search(ctx, pos, budget)
	if err != nil {
		return chessrules.Move{}, err
	}
	if !committed {
		return chessrules.Move{}, ErrNoMove
	}
	return *r.Move, nil
}

func (c *Client) search(ctx context.Context, pos chessrules.Position, budget time.Duration) (Result, bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.err != nil {
		return Result{}, false, c.err
	}
	if c.closed {
		return Result{}, false, fmt.Errorf("%w: client closed", ErrEngineUnavailable)
	}

	start := time.Now()
	out, err := c.drv.search(ctx, pos, budget)
	if err != nil {
		if errors.Is(err, ErrEngineUnavailable) {
			c.degrade(err)
		} else {
			c.log.Warn().Err(err).Str("fen", pos.FEN()).Msg("search failed")
		}
		return Result{}, false, err
	}
	r, err := toResult(pos, out)
	if err != nil {
		c.log.Warn().Err(err).Str("fen", pos.FEN()).Msg("bad engine output")
		return Result{}, false, err
	}
	c.log.Debug().
		Str("fen", pos.FEN()).
		Str("score", r.Score()).
		Int("depth", r.Depth).
		Dur("elapsed", time.Since(start)).
		Msg("search done")
	return r, out.bestMove != "", nil
}

// degrade records a permanent failure and tears the connection down. The
// mutex must be held.
func (c *Client) degrade(err error) {
	c.err = err
	c.log.Error().Err(err).Msg("engine lost")
	if c.drv != nil {
		if cerr := c.drv.close(); cerr != nil {
			c.log.Debug().Err(cerr).Msg("engine close")
		}
		c.drv = nil
	}
	c.cancel()
}

// Close sends quit, waits for the process to exit and kills it if it does
// not. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.mutex.Lock()
		defer c.mutex.Unlock()
		c.closed = true
		if c.drv != nil {
			err = c.drv.close()
			c.drv = nil
		}
		c.cancel()
		c.log.Info().Msg("engine closed")
	})
	return err
}

// toResult validates the engine's moves against pos and normalizes the
// score to White's point of view.
func toResult(pos chessrules.Position, out searchOutput) (Result, error) {
	r := Result{Depth: out.depth}
	turn := pos.SideToMove()
	switch {
	case out.mate != nil:
		m := normalize(*out.mate, turn)
		r.Mate = &m
	case out.cp != nil:
		cp := normalize(*out.cp, turn)
		r.Centipawns = &cp
	}

	p := pos
	for _, s := range out.pv {
		m, err := legalMove(p, s)
		if err != nil {
			return Result{}, err
		}
		r.PV = append(r.PV, m)
		p, _ = p.Apply(m)
	}

	switch {
	case out.bestMove != "":
		m, err := legalMove(pos, out.bestMove)
		if err != nil {
			return Result{}, err
		}
		r.Move = &m
	case len(r.PV) > 0:
		m := r.PV[0]
		r.Move = &m
	}
	return r, nil
}

func legalMove(pos chessrules.Position, s string) (chessrules.Move, error) {
	m, err := chessrules.ParseMove(s)
	if err != nil {
		return chessrules.Move{}, &ProtocolError{Line: s, Reason: "malformed move"}
	}
	if !pos.IsLegal(m) {
		return chessrules.Move{}, &ProtocolError{Line: s, Reason: "illegal move in " + pos.FEN()}
	}
	return m, nil
}

// pipeDriver is a UCI engine reached over a process's stdin and stdout.
type pipeDriver struct {
	engine      *uciEngine
	stdin       io.Closer
	wait        func() error
	kill        func() error
	quitTimeout time.Duration
}

func openProcess(ctx context.Context, cfg Config) (driver, error) {
	if cfg.Depth > 0 {
		return openDepthDriver(ctx, cfg)
	}
	cmd := exec.CommandContext(ctx, cfg.Path, cfg.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %v", ErrEngineUnavailable, cfg.Path, err)
	}
	return dial(ctx, cfg, stdout, stdin, cmd.Wait, cmd.Process.Kill)
}

// dial handshakes over an already running engine's streams.
func dial(ctx context.Context, cfg Config, stdout io.Reader, stdin io.WriteCloser, wait, kill func() error) (driver, error) {
	d := &pipeDriver{
		engine:      newUCIEngine(stdout, stdin, cfg.StopGrace, cfg.Logger),
		stdin:       stdin,
		wait:        wait,
		kill:        kill,
		quitTimeout: cfg.QuitTimeout,
	}
	hctx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()
	if err := d.engine.handshake(hctx, cfg.Threads, cfg.Hash); err != nil {
		_ = d.kill()
		_ = d.wait()
		d.engine.shutdown()
		return nil, fmt.Errorf("handshake: %w", err)
	}
	return d, nil
}

func (d *pipeDriver) search(ctx context.Context, pos chessrules.Position, budget time.Duration) (searchOutput, error) {
	return d.engine.search(ctx, pos.FEN(), budget)
}

func (d *pipeDriver) close() error {
	defer d.engine.shutdown()
	_ = d.engine.quit()
	_ = d.stdin.Close()

	exited := make(chan error, 1)
	go func() { exited <- d.wait() }()
	select {
	case err := <-exited:
		return err
	case <-time.After(d.quitTimeout):
		_ = d.kill()
		<-exited
		return fmt.Errorf("engine did not quit within %s, killed", d.quitTimeout)
	}
}
