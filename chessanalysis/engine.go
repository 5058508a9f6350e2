package chessanalysis

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// searchOutput is what one search produced, still in the engine's own
// terms: scores from the side to move's point of view and moves as text.
type searchOutput struct {
	cp       *int
	mate     *int
	depth    int
	pv       []string
	bestMove string
}

// uciEngine speaks UCI over a pair of streams. It is not safe for concurrent
// searches; the Client serializes them.
type uciEngine struct {
	stdin     io.Writer
	lines     chan string
	log       zerolog.Logger
	stopGrace time.Duration
	mutex     sync.Mutex
	done      chan struct{}
	closeOnce sync.Once

	// stale counts bestmove lines still owed by searches that were given up
	// on. They are skipped before the next search reads its own output.
	stale int
}

func newUCIEngine(stdout io.Reader, stdin io.Writer, stopGrace time.Duration, log zerolog.Logger) *uciEngine {
	e := &uciEngine{
		stdin:     stdin,
		lines:     make(chan string, 100),
		log:       log,
		stopGrace: stopGrace,
		done:      make(chan struct{}),
	}
	go e.readOutput(stdout)
	return e
}

// readOutput continuously reads engine output until the stream ends.
func (e *uciEngine) readOutput(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		e.log.Trace().Str("line", line).Msg("engine output")
		select {
		case e.lines <- line:
		case <-e.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		e.log.Debug().Err(err).Msg("engine output closed")
	}
	close(e.lines)
}

// shutdown releases the output reader. The streams themselves belong to the
// caller.
func (e *uciEngine) shutdown() {
	e.closeOnce.Do(func() { close(e.done) })
}

// sendCommand writes one command line to the engine.
func (e *uciEngine) sendCommand(cmd string) error {
	e.log.Trace().Str("command", cmd).Msg("sending command")
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if _, err := fmt.Fprintln(e.stdin, cmd); err != nil {
		return fmt.Errorf("%w: write %q: %v", ErrEngineUnavailable, cmd, err)
	}
	return nil
}

// handshake runs the uci/uciok exchange, configures the engine once and waits
// until it reports readyok.
func (e *uciEngine) handshake(ctx context.Context, threads, hashMB int) error {
	if err := e.sendCommand("uci"); err != nil {
		return err
	}
	if err := e.waitFor(ctx, "uciok"); err != nil {
		return err
	}
	if threads > 0 {
		if err := e.sendCommand(fmt.Sprintf("setoption name Threads value %d", threads)); err != nil {
			return err
		}
	}
	if hashMB > 0 {
		if err := e.sendCommand(fmt.Sprintf("setoption name Hash value %d", hashMB)); err != nil {
			return err
		}
	}
	if err := e.sendCommand("isready"); err != nil {
		return err
	}
	return e.waitFor(ctx, "readyok")
}

// waitFor discards lines until one equal to token arrives.
func (e *uciEngine) waitFor(ctx context.Context, token string) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: waiting for %s: %v", ErrEngineUnavailable, token, ctx.Err())
		case line, ok := <-e.lines:
			if !ok {
				return errEngineExited
			}
			if line == token {
				return nil
			}
		}
	}
}

// search runs "go movetime" for budget on fen and collects the info lines up
// to the bestmove. If the engine overruns budget plus the stop grace, a stop
// is sent; if it still does not answer within another grace period the
// search is abandoned with ErrAnalysisTimeout and its late bestmove is
// skipped by the next search.
func (e *uciEngine) search(ctx context.Context, fen string, budget time.Duration) (searchOutput, error) {
	if err := e.sendCommand("position fen " + fen); err != nil {
		return searchOutput{}, err
	}
	if err := e.sendCommand(fmt.Sprintf("go movetime %d", max(1, budget.Milliseconds()))); err != nil {
		return searchOutput{}, err
	}

	timer := time.NewTimer(budget + e.stopGrace)
	defer timer.Stop()
	stopped := false

	var (
		out     searchOutput
		infoErr error
	)
	for {
		select {
		case <-ctx.Done():
			e.abandon(stopped)
			return searchOutput{}, ctx.Err()
		case <-timer.C:
			if stopped {
				e.abandon(stopped)
				return searchOutput{}, fmt.Errorf("%w after %s", ErrAnalysisTimeout, budget+2*e.stopGrace)
			}
			if err := e.sendCommand("stop"); err != nil {
				return searchOutput{}, err
			}
			stopped = true
			timer.Reset(e.stopGrace)
		case line, ok := <-e.lines:
			if !ok {
				return searchOutput{}, errEngineExited
			}
			if e.stale > 0 {
				if strings.HasPrefix(line, "bestmove") {
					e.stale--
				}
				continue
			}
			done, err := out.consume(line)
			if done {
				if err == nil && out.cp == nil && out.mate == nil {
					err = infoErr
				}
				return out, err
			}
			if err != nil {
				e.log.Debug().Err(err).Msg("ignoring engine output")
				if infoErr == nil {
					infoErr = err
				}
			}
		}
	}
}

// abandon gives up on the running search. The engine still owes a bestmove.
func (e *uciEngine) abandon(stopped bool) {
	if !stopped {
		_ = e.sendCommand("stop")
	}
	e.stale++
}

// consume folds one line of search output into out. It reports true once
// the bestmove line has been read. A malformed bestmove line is fatal for the
// search; malformed info lines are reported and otherwise ignored by the
// caller.
func (out *searchOutput) consume(line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "info":
		return false, out.parseInfo(line, fields[1:])
	case "bestmove":
		if len(fields) < 2 {
			return true, &ProtocolError{Line: line, Reason: "bestmove without a move"}
		}
		if fields[1] != "(none)" && fields[1] != "0000" {
			out.bestMove = fields[1]
		}
		return true, nil
	}
	return false, nil
}

func (out *searchOutput) parseInfo(line string, fields []string) error {
	var (
		cp, mate *int
		depth    int
		pv       []string
	)
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "string":
			// free text until the end of the line
			return nil
		case "multipv":
			if i+1 < len(fields) && fields[i+1] != "1" {
				return nil
			}
			i++
		case "depth":
			n, err := intField(fields, i+1)
			if err != nil {
				return &ProtocolError{Line: line, Reason: "bad depth"}
			}
			depth = n
			i++
		case "score":
			if i+2 >= len(fields) {
				return &ProtocolError{Line: line, Reason: "truncated score"}
			}
			n, err := intField(fields, i+2)
			if err != nil {
				return &ProtocolError{Line: line, Reason: "bad score"}
			}
			switch fields[i+1] {
			case "cp":
				cp = &n
			case "mate":
				mate = &n
			default:
				return &ProtocolError{Line: line, Reason: "unknown score type " + fields[i+1]}
			}
			i += 2
		case "pv":
			pv = fields[i+1:]
			i = len(fields)
		}
	}
	if cp == nil && mate == nil {
		return nil
	}
	out.cp, out.mate = cp, mate
	out.depth = depth
	if len(pv) > 0 {
		out.pv = pv
	}
	return nil
}

func intField(fields []string, i int) (int, error) {
	if i >= len(fields) {
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.Atoi(fields[i])
}

// quit asks the engine to exit.
func (e *uciEngine) quit() error {
	return e.sendCommand("quit")
}
