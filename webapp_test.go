package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walterschell/chessplay/chessanalysis"
	"github.com/walterschell/chessplay/chessrules"
	"github.com/walterschell/chessplay/chesssession"
)

// evenAnalyst scores every position as level and never suggests a move.
type evenAnalyst struct{}

func (evenAnalyst) Available() bool { return true }
func (evenAnalyst) Err() error      { return nil }

func (evenAnalyst) Analyze(context.Context, chessrules.Position, time.Duration) (chessanalysis.Result, error) {
	cp := 0
	return chessanalysis.Result{Centipawns: &cp, Depth: 1}, nil
}

func (evenAnalyst) BestMove(context.Context, chessrules.Position, time.Duration) (chessrules.Move, error) {
	return chessrules.Move{}, chessanalysis.ErrNoMove
}

func startApp(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	session := chesssession.New(evenAnalyst{}, chesssession.WithLogger(zerolog.Nop()))
	app := NewApplication(ctx, session, zerolog.Nop())

	done := make(chan struct{}, 2)
	go func() {
		_ = session.Run(ctx)
		done <- struct{}{}
	}()
	go func() {
		_ = app.Publish(ctx)
		done <- struct{}{}
	}()
	srv := httptest.NewServer(app)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
		<-done
	})
	return srv
}

func readView(t *testing.T, conn *websocket.Conn, pred func(chesssession.View) bool) chesssession.View {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var v chesssession.View
		require.NoError(t, conn.ReadJSON(&v))
		if pred(v) {
			return v
		}
	}
}

func TestIndex(t *testing.T) {
	srv := startApp(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<title>Chess</title>")
	assert.Contains(t, string(body), "/static/board.js")
}

func TestStaticAndNotFound(t *testing.T) {
	srv := startApp(t)

	resp, err := http.Get(srv.URL + "/static/board.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsocketPlaysMoves(t *testing.T) {
	srv := startApp(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	v := readView(t, conn, func(v chesssession.View) bool { return v.FEN == chessrules.StartingFEN })
	assert.Equal(t, "Engine: OK", v.EngineStatus)

	require.NoError(t, conn.WriteJSON(message{Type: "move", Move: "e2e4"}))
	v = readView(t, conn, func(v chesssession.View) bool { return v.LastMove == "e2e4" && v.LastAnalysis != nil })
	assert.Equal(t, []string{"e4"}, v.Moves)
	assert.Equal(t, "black", v.Turn)
	assert.Equal(t, chessrules.White, v.LastAnalysis.Color)
	assert.Equal(t, "e4", v.LastAnalysis.MoveText)
	assert.Equal(t, chessanalysis.Neutral, v.LastAnalysis.Classification)

	require.NoError(t, conn.WriteJSON(message{Type: "pointerdown", Square: "e7"}))
	v = readView(t, conn, func(v chesssession.View) bool { return v.Selected == "e7" })
	assert.ElementsMatch(t, []string{"e6", "e5"}, v.Highlights)

	require.NoError(t, conn.WriteJSON(message{Type: "pointerup", Square: "e5"}))
	v = readView(t, conn, func(v chesssession.View) bool { return v.LastMove == "e7e5" })
	assert.Equal(t, []string{"e4", "e5"}, v.Moves)

	require.NoError(t, conn.WriteJSON(message{Type: "key", Key: "u"}))
	v = readView(t, conn, func(v chesssession.View) bool { return v.LastMove == "e2e4" })
	assert.True(t, v.CanRedo)
}

func TestMessageEvent(t *testing.T) {
	ev, err := message{Type: "pointerdown", Square: "g1", Shift: true}.event()
	require.NoError(t, err)
	assert.Equal(t, chesssession.PointerDown, ev.Kind)
	assert.Equal(t, chessrules.G1, ev.Square)
	assert.True(t, ev.Shift)

	ev, err = message{Type: "key", Key: "h"}.event()
	require.NoError(t, err)
	assert.Equal(t, chesssession.KeyPress, ev.Kind)
	assert.Equal(t, 'h', ev.Key)

	ev, err = message{Type: "key", Key: "é"}.event()
	require.NoError(t, err)
	assert.Equal(t, 'é', ev.Key)

	ev, err = message{Type: "move", Move: "a7a8n"}.event()
	require.NoError(t, err)
	assert.Equal(t, chesssession.PushMove, ev.Kind)
	assert.Equal(t, "a7a8n", ev.Move.String())

	ev, err = message{Type: "flip"}.event()
	require.NoError(t, err)
	assert.Equal(t, chesssession.Flip, ev.Kind)

	for _, bad := range []message{
		{Type: "castle"},
		{Type: "pointerup", Square: "z9"},
		{Type: "key", Key: "uu"},
		{Type: "key", Key: "Shift"},
		{Type: "key", Key: ""},
		{Type: "move", Move: "e2"},
	} {
		_, err := bad.event()
		assert.Error(t, err, "%+v", bad)
	}
}
