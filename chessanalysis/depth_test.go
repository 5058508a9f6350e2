package chessanalysis

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/freeeve/uci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walterschell/chessplay/chessrules"
)

// depthEngineScript is a UCI engine in shell. Its first argument picks a
// behavior: "answer" replies at once, "slow" answers the first search after
// the handshake a second late, "mute" prints noise and exits.
const depthEngineScript = `#!/bin/sh
mode="$1"
if [ "$mode" = "mute" ]; then
  echo "hello"
  exit 0
fi
searches=0
while read -r cmd rest; do
  case "$cmd" in
    uci) echo "id name fake"; echo "uciok" ;;
    isready) echo "readyok" ;;
    go)
      searches=$((searches + 1))
      if [ "$mode" = "slow" ] && [ "$searches" -eq 2 ]; then sleep 1; fi
      echo "info depth 1 score cp 12 pv d2d4"
      echo "info depth 2 score cp 31 pv d2d4 d7d5"
      echo "bestmove d2d4 ponder d7d5"
      ;;
    quit) exit 0 ;;
  esac
done
`

func startDepthEngine(t *testing.T, mode string) *Client {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "engine.sh")
	require.NoError(t, os.WriteFile(path, []byte(depthEngineScript), 0o755))

	c := Start(context.Background(), Config{
		Path:             path,
		Args:             []string{mode},
		Depth:            5,
		HandshakeTimeout: 2 * time.Second,
		StopGrace:        50 * time.Millisecond,
		QuitTimeout:      3 * time.Second,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestDepthSearch(t *testing.T) {
	c := startDepthEngine(t, "answer")
	require.True(t, c.Available(), "%v", c.Err())

	r, err := c.Analyze(context.Background(), chessrules.StartingPosition(), 200*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, r.Centipawns)
	assert.Equal(t, 31, *r.Centipawns)
	assert.Equal(t, 2, r.Depth)
	require.Len(t, r.PV, 2)
	assert.Equal(t, "d7d5", r.PV[1].String())

	m, err := c.BestMove(context.Background(), chessrules.StartingPosition(), 200*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "d2d4", m.String())
}

func TestDepthSearchTimesOut(t *testing.T) {
	c := startDepthEngine(t, "slow")
	require.True(t, c.Available(), "%v", c.Err())

	begin := time.Now()
	_, err := c.Analyze(context.Background(), chessrules.StartingPosition(), 50*time.Millisecond)
	require.ErrorIs(t, err, ErrAnalysisTimeout)
	assert.Less(t, time.Since(begin), 800*time.Millisecond)
	assert.True(t, c.Available())

	// The next search waits for the late answer, then runs normally.
	r, err := c.Analyze(context.Background(), chessrules.StartingPosition(), 200*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, r.Centipawns)
	assert.Equal(t, 31, *r.Centipawns)
}

func TestDepthSearchHonorsContext(t *testing.T) {
	c := startDepthEngine(t, "slow")
	require.True(t, c.Available(), "%v", c.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	begin := time.Now()
	_, err := c.Analyze(ctx, chessrules.StartingPosition(), time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(begin), 800*time.Millisecond)

	require.NoError(t, c.Close())
	assert.False(t, c.Available())
}

func TestDepthHandshakeFailure(t *testing.T) {
	c := startDepthEngine(t, "mute")
	assert.False(t, c.Available())
	assert.ErrorIs(t, c.Err(), ErrEngineUnavailable)

	_, err := c.Analyze(context.Background(), chessrules.StartingPosition(), 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestDepthMissingBinary(t *testing.T) {
	c := Start(context.Background(), Config{Path: "/nonexistent/chess-engine", Depth: 5})
	defer c.Close()
	assert.False(t, c.Available())
	assert.ErrorIs(t, c.Err(), ErrEngineUnavailable)
}

func TestDepthOutput(t *testing.T) {
	out, err := depthOutput(chessrules.StartingFEN, &uci.Results{BestMove: "(none)"})
	require.NoError(t, err)
	assert.Empty(t, out.bestMove)
	assert.Nil(t, out.cp)

	_, err = depthOutput(chessrules.StartingFEN, &uci.Results{BestMove: "e2e4"})
	var perr *ProtocolError
	assert.ErrorAs(t, err, &perr)

	out, err = depthOutput(chessrules.StartingFEN, &uci.Results{
		BestMove: "e2e4",
		Results: []uci.ScoreResult{
			{Depth: 3, Score: 20, BestMoves: []string{"e2e4"}},
			{Depth: 7, Score: 4, Mate: true, BestMoves: []string{"e2e4", "e7e5"}},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, out.mate)
	assert.Equal(t, 4, *out.mate)
	assert.Equal(t, 7, out.depth)
	assert.Equal(t, []string{"e2e4", "e7e5"}, out.pv)
}
