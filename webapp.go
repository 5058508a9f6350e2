package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/walterschell/chessplay/chessrules"
	"github.com/walterschell/chessplay/chesssession"
)

const writeTimeout = 5 * time.Second

//go:embed assets
var assets embed.FS
var static fs.FS
var templates fs.FS

func init() {
	static, _ = fs.Sub(assets, "assets/static")
	templates, _ = fs.Sub(assets, "assets/templates")
}

// Client is one connected board view.
type Client struct {
	conn      *websocket.Conn
	writeLock sync.Mutex
}

func (c *Client) send(message []byte) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// Application serves the board page and relays events and views between the
// browsers and the session. Every connected browser shows the same game.
type Application struct {
	ctx         context.Context
	router      *mux.Router
	templates   *template.Template
	session     *chesssession.Session
	log         zerolog.Logger
	clients     map[*Client]struct{}
	clientsLock sync.RWMutex
	latest      []byte
	upgrader    websocket.Upgrader
}

func NewApplication(ctx context.Context, session *chesssession.Session, log zerolog.Logger) *Application {
	templateParser := template.New("")
	templateParser.Delims("[[", "]]")
	result := Application{
		ctx:       ctx,
		router:    mux.NewRouter(),
		templates: template.Must(templateParser.ParseFS(templates, "*.html.gotmpl")),
		session:   session,
		log:       log,
		clients:   make(map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	result.router.NotFoundHandler = result.requestLogger(http.HandlerFunc(notFoundHandler))
	result.router.Use(result.requestLogger)
	result.router.Use(handlers.RecoveryHandler(handlers.RecoveryLogger(&result), handlers.PrintRecoveryStack(true)))

	result.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", handlers.CompressHandler(http.FileServer(http.FS(static)))))
	result.router.HandleFunc("/", result.indexHandler).Methods(http.MethodGet)
	result.router.HandleFunc("/ws", result.wsHandler)
	return &result
}

func (app *Application) requestLogger(next http.Handler) http.Handler {
	return handlers.LoggingHandler(app.log, next)
}

// Println lets the recovery handler log panics through zerolog.
func (app *Application) Println(args ...any) {
	app.log.Error().Msg(fmt.Sprint(args...))
}

func (app *Application) indexHandler(w http.ResponseWriter, r *http.Request) {
	templateVars := struct {
		Title string
	}{
		Title: "Chess",
	}

	err := app.templates.ExecuteTemplate(w, "index.html.gotmpl", templateVars)
	if err != nil {
		app.log.Error().Err(err).Msg("rendering template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// message is what a browser sends: an event name plus its arguments.
type message struct {
	Type   string `json:"type"`
	Square string `json:"square,omitempty"`
	Shift  bool   `json:"shift,omitempty"`
	Key    string `json:"key,omitempty"`
	Move   string `json:"move,omitempty"`
}

func (m message) event() (chesssession.Event, error) {
	kind, err := chesssession.ParseEventKind(m.Type)
	if err != nil {
		return chesssession.Event{}, err
	}
	ev := chesssession.Event{Kind: kind, Shift: m.Shift}
	switch kind {
	case chesssession.PointerDown, chesssession.PointerUp:
		if ev.Square, err = chessrules.ParseSquare(m.Square); err != nil {
			return chesssession.Event{}, err
		}
	case chesssession.KeyPress:
		key, size := utf8.DecodeRuneInString(m.Key)
		if key == utf8.RuneError || size != len(m.Key) {
			return chesssession.Event{}, fmt.Errorf("bad key %q", m.Key)
		}
		ev.Key = key
	case chesssession.PushMove:
		if ev.Move, err = chessrules.ParseMove(m.Move); err != nil {
			return chesssession.Event{}, err
		}
	}
	return ev, nil
}

func (app *Application) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := app.upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	log := app.log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	log.Info().Msg("new websocket connection")

	client := &Client{conn: conn}
	app.clientsLock.Lock()
	app.clients[client] = struct{}{}
	latest := app.latest
	app.clientsLock.Unlock()
	if latest != nil {
		if err := client.send(latest); err != nil {
			log.Debug().Err(err).Msg("sending initial view")
		}
	}

	go func() {
		defer app.drop(client)
		for {
			_, messageJson, err := client.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("websocket closed")
				return
			}
			var msg message
			if err := json.Unmarshal(messageJson, &msg); err != nil {
				log.Warn().Err(err).Msg("parsing message")
				continue
			}
			ev, err := msg.event()
			if err != nil {
				log.Warn().Err(err).Str("type", msg.Type).Msg("bad event")
				continue
			}
			if err := app.session.Send(app.ctx, ev); err != nil {
				log.Debug().Err(err).Msg("session gone")
				return
			}
		}
	}()
}

func (app *Application) drop(client *Client) {
	app.clientsLock.Lock()
	delete(app.clients, client)
	app.clientsLock.Unlock()
	client.conn.Close()
}

// Publish broadcasts every session view until ctx is done.
func (app *Application) Publish(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case view := <-app.session.Views():
			data, err := json.Marshal(view)
			if err != nil {
				return fmt.Errorf("encoding view: %w", err)
			}
			app.broadcast(data)
		}
	}
}

func (app *Application) broadcast(message []byte) {
	app.clientsLock.Lock()
	app.latest = message
	clients := make([]*Client, 0, len(app.clients))
	for client := range app.clients {
		clients = append(clients, client)
	}
	app.clientsLock.Unlock()

	for _, client := range clients {
		if err := client.send(message); err != nil {
			app.log.Debug().Err(err).Msg("broadcast")
			app.drop(client)
		}
	}
}

func (app *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	app.router.ServeHTTP(w, r)
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "File Not Found", http.StatusNotFound)
}
