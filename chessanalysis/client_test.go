package chessanalysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walterschell/chessplay/chessrules"
)

const (
	afterE4 = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	// Black to move; White mates in two whatever Black does.
	whiteMatesInTwo = "6k1/5ppp/8/8/8/8/1Q3PPP/3R2K1 b - - 0 1"
)

func TestAnalyzeWhiteToMove(t *testing.T) {
	f := &fakeEngine{replies: map[string][]string{
		chessrules.StartingFEN: {
			"info depth 1 score cp 10 pv d2d4",
			"info string NNUE evaluation enabled",
			"info depth 12 seldepth 16 multipv 1 score cp 35 nodes 1000 nps 100000 pv e2e4 e7e5 g1f3",
			"bestmove e2e4 ponder e7e5",
		},
	}}
	c := startFake(t, f, Config{Threads: 3})
	require.True(t, c.Available())
	require.NoError(t, c.Err())

	r, err := c.Analyze(context.Background(), chessrules.StartingPosition(), 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, r.Centipawns)
	assert.Equal(t, 35, *r.Centipawns)
	assert.Nil(t, r.Mate)
	assert.Equal(t, 12, r.Depth)
	require.NotNil(t, r.Move)
	assert.Equal(t, "e2e4", r.Move.String())
	assert.Len(t, r.PV, 3)
	assert.Equal(t, "+0.35", r.Score())

	assert.Contains(t, f.sent(), "setoption name Threads value 3")
	assert.Contains(t, f.sent(), "position fen "+chessrules.StartingFEN)
	assert.Contains(t, f.sent(), "go movetime 100")
}

func TestAnalyzeNormalizesBlackToMove(t *testing.T) {
	f := &fakeEngine{replies: map[string][]string{
		afterE4: {"info depth 8 score cp 20 pv c7c5", "bestmove c7c5"},
	}}
	c := startFake(t, f, Config{})

	r, err := c.Analyze(context.Background(), chessrules.MustParseFEN(afterE4), 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, r.Centipawns)
	assert.Equal(t, -20, *r.Centipawns, "Black is better by 20, so White's score is -20")
	assert.Equal(t, "-0.20", r.Score())
}

func TestAnalyzeMateSignIsWinningSide(t *testing.T) {
	f := &fakeEngine{replies: map[string][]string{
		whiteMatesInTwo: {
			"info depth 5 score cp -900 pv g8f8",
			"info depth 9 score mate -2 pv h7h6 b2b8",
			"bestmove h7h6",
		},
	}}
	c := startFake(t, f, Config{})

	r, err := c.Analyze(context.Background(), chessrules.MustParseFEN(whiteMatesInTwo), 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, r.Mate)
	assert.Nil(t, r.Centipawns, "a mate score replaces the centipawn score")
	assert.Equal(t, 2, *r.Mate, "White delivers the mate")
	assert.Equal(t, "#2", r.Score())
	assert.Equal(t, 1.0, r.WinProbability())
}

func TestBestMove(t *testing.T) {
	f := &fakeEngine{replies: map[string][]string{
		chessrules.StartingFEN: {"info depth 3 score cp 30 pv g1f3", "bestmove g1f3"},
	}}
	c := startFake(t, f, Config{})

	m, err := c.BestMove(context.Background(), chessrules.StartingPosition(), 30*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, chessrules.Move{From: chessrules.G1, To: chessrules.F3}, m)
}

func TestBestMoveNone(t *testing.T) {
	c := startFake(t, &fakeEngine{}, Config{})
	_, err := c.BestMove(context.Background(), chessrules.StartingPosition(), 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrNoMove)
	assert.True(t, c.Available())
}

func TestGameOverShortCircuits(t *testing.T) {
	f := &fakeEngine{}
	c := startFake(t, f, Config{})
	mate := chessrules.MustParseFEN("7k/6Q1/6K1/8/8/8/8/8 b - - 0 1")

	r, err := c.Analyze(context.Background(), mate, 30*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, r.IsEmpty())
	assert.Nil(t, r.Move)

	_, err = c.BestMove(context.Background(), mate, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrNoMove)

	for _, cmd := range f.sent() {
		assert.NotContains(t, cmd, "go ")
	}
}

func TestProtocolErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply []string
	}{
		{"illegal bestmove", []string{"info depth 1 score cp 0 pv e2e4", "bestmove e2e5"}},
		{"malformed bestmove", []string{"info depth 1 score cp 0 pv e2e4", "bestmove zz"}},
		{"illegal pv", []string{"info depth 1 score cp 0 pv e2e4 e2e4", "bestmove e2e4"}},
		{"bestmove without move", []string{"bestmove"}},
		{"only malformed scores", []string{"info depth 1 score cp abc", "bestmove (none)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeEngine{replies: map[string][]string{chessrules.StartingFEN: tt.reply}}
			c := startFake(t, f, Config{})

			r, err := c.Analyze(context.Background(), chessrules.StartingPosition(), 30*time.Millisecond)
			var perr *ProtocolError
			require.ErrorAs(t, err, &perr)
			assert.True(t, r.IsEmpty())
			assert.True(t, c.Available(), "protocol errors are per call")
			assert.NoError(t, c.Err())
		})
	}
}

func TestTimeoutSkipsLateBestMove(t *testing.T) {
	f := &fakeEngine{
		hangs: 1,
		late:  []string{"info depth 30 score cp 999 pv a2a3", "bestmove a2a3"},
		replies: map[string][]string{
			chessrules.StartingFEN: {"info depth 4 score cp 15 pv d2d4", "bestmove d2d4"},
		},
	}
	c := startFake(t, f, Config{StopGrace: 20 * time.Millisecond})

	_, err := c.Analyze(context.Background(), chessrules.StartingPosition(), 10*time.Millisecond)
	require.ErrorIs(t, err, ErrAnalysisTimeout)
	assert.True(t, c.Available())
	assert.Contains(t, f.sent(), "stop")

	r, err := c.Analyze(context.Background(), chessrules.StartingPosition(), 10*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, r.Centipawns)
	assert.Equal(t, 15, *r.Centipawns)
	assert.Equal(t, "d2d4", r.Move.String())
}

func TestStopAfterOverrun(t *testing.T) {
	f := &fakeEngine{
		answerOnStop: true,
		replies: map[string][]string{
			chessrules.StartingFEN: {"info depth 6 score cp 25 pv c2c4", "bestmove c2c4"},
		},
	}
	c := startFake(t, f, Config{StopGrace: 20 * time.Millisecond})

	r, err := c.Analyze(context.Background(), chessrules.StartingPosition(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "c2c4", r.Move.String())
}

func TestEngineExitDegrades(t *testing.T) {
	f := &fakeEngine{exitOnGo: true}
	c := startFake(t, f, Config{})
	require.True(t, c.Available())

	r, err := c.Analyze(context.Background(), chessrules.StartingPosition(), 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	assert.True(t, r.IsEmpty())
	assert.False(t, c.Available())
	assert.ErrorIs(t, c.Err(), ErrEngineUnavailable)

	_, err = c.BestMove(context.Background(), chessrules.StartingPosition(), 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestHandshakeTimeout(t *testing.T) {
	c := startFake(t, &fakeEngine{noHandshake: true}, Config{HandshakeTimeout: 30 * time.Millisecond})
	assert.False(t, c.Available())
	assert.ErrorIs(t, c.Err(), ErrEngineUnavailable)

	r, err := c.Analyze(context.Background(), chessrules.StartingPosition(), 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	assert.True(t, r.IsEmpty())
}

func TestStartMissingBinary(t *testing.T) {
	c := Start(context.Background(), Config{Path: "/nonexistent/chess-engine"})
	defer c.Close()
	assert.False(t, c.Available())
	assert.ErrorIs(t, c.Err(), ErrEngineUnavailable)
}

func TestCloseIsIdempotent(t *testing.T) {
	f := &fakeEngine{}
	c := startFake(t, f, Config{})
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Contains(t, f.sent(), "quit")
	assert.False(t, c.Available())

	_, err := c.Analyze(context.Background(), chessrules.StartingPosition(), 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestContextCancelAbandonsSearch(t *testing.T) {
	f := &fakeEngine{
		hangs: 1,
		late:  []string{"bestmove a2a3"},
		replies: map[string][]string{
			chessrules.StartingFEN: {"info depth 2 score cp 5 pv e2e4", "bestmove e2e4"},
		},
	}
	c := startFake(t, f, Config{StopGrace: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Analyze(ctx, chessrules.StartingPosition(), time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, c.Available())

	r, err := c.Analyze(context.Background(), chessrules.StartingPosition(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", r.Move.String())
}
