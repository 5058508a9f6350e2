package chessanalysis

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

var errKilled = errors.New("killed")

// fakeEngine answers UCI commands from a script keyed by FEN.
type fakeEngine struct {
	replies map[string][]string

	noHandshake  bool // never send uciok
	hangs        int  // number of searches to ignore, stop included
	answerOnStop bool // hold replies until stop
	exitOnGo     bool // exit when asked to search
	late         []string // sent on the first position command after a hung search

	mutex    sync.Mutex
	commands []string
}

func (f *fakeEngine) record(cmd string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.commands = append(f.commands, cmd)
}

func (f *fakeEngine) sent() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return slices.Clone(f.commands)
}

func (f *fakeEngine) run(r io.ReadCloser, w io.WriteCloser) {
	defer r.Close()
	defer w.Close()

	var fen string
	var held []string
	hung := false
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		f.record(line)
		switch strings.Fields(line)[0] {
		case "uci":
			if f.noHandshake {
				continue
			}
			fmt.Fprintln(w, "id name fake")
			fmt.Fprintln(w, "uciok")
		case "isready":
			fmt.Fprintln(w, "readyok")
		case "position":
			fen = strings.TrimPrefix(line, "position fen ")
			if hung {
				for _, l := range f.late {
					fmt.Fprintln(w, l)
				}
				f.late = nil
			}
		case "go":
			if f.exitOnGo {
				return
			}
			if f.hangs > 0 {
				f.hangs--
				hung = true
				continue
			}
			reply, ok := f.replies[fen]
			if !ok {
				reply = []string{"bestmove (none)"}
			}
			if f.answerOnStop {
				held = reply
				continue
			}
			for _, l := range reply {
				fmt.Fprintln(w, l)
			}
		case "stop":
			for _, l := range held {
				fmt.Fprintln(w, l)
			}
			held = nil
		case "quit":
			return
		}
	}
}

// startFake starts a Client whose engine is f, connected over io.Pipe.
func startFake(t *testing.T, f *fakeEngine, cfg Config) *Client {
	t.Helper()
	cfg.StopGrace = cmp.Or(cfg.StopGrace, 50*time.Millisecond)
	cfg.HandshakeTimeout = cmp.Or(cfg.HandshakeTimeout, time.Second)
	c := start(context.Background(), cfg, func(ctx context.Context, cfg Config) (driver, error) {
		cmdR, cmdW := io.Pipe()
		outR, outW := io.Pipe()
		done := make(chan struct{})
		go func() {
			defer close(done)
			f.run(cmdR, outW)
		}()
		wait := func() error {
			<-done
			return nil
		}
		kill := func() error {
			cmdR.CloseWithError(errKilled)
			outW.CloseWithError(errKilled)
			return nil
		}
		return dial(ctx, cfg, outR, cmdW, wait, kill)
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}
