// Package web serves sessions to browsers over WebSocket. Each connection
// attaches to the session named by its ?player= query, receives a JSON
// snapshot feed and sends intents back as small JSON messages.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomz197/asteroid-idle/internal/loop/config"
	"github.com/tomz197/asteroid-idle/internal/loop/server"
)

// Message is the envelope for everything sent to the browser.
type Message struct {
	Type    string `json:"type"` // snapshot, result, shutdown or error
	Payload any    `json:"payload,omitempty"`
}

// Result reports the outcome of one intent.
type Result struct {
	Intent string `json:"intent"`
	Target string `json:"target,omitempty"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// inbound is a message from the browser, e.g. {"type":"purchase","id":"drill"}.
type inbound struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// ErrUnknownMessage is returned for an inbound message with an unknown type.
var ErrUnknownMessage = errors.New("unknown message type")

// Hub upgrades HTTP requests to WebSocket connections and pumps each one
// against a GameServer.
type Hub struct {
	server       server.GameServer
	logger       *log.Logger
	upgrader     websocket.Upgrader
	pushInterval time.Duration
	intentRate   rate.Limit
	intentBurst  int

	mu    sync.Mutex
	conns int
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger for connection events.
func WithLogger(l *log.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// WithPushInterval sets how often snapshots are pushed.
func WithPushInterval(d time.Duration) Option {
	return func(h *Hub) { h.pushInterval = d }
}

// WithIntentRate limits inbound messages per connection.
func WithIntentRate(r rate.Limit, burst int) Option {
	return func(h *Hub) {
		h.intentRate = r
		h.intentBurst = burst
	}
}

// WithCheckOrigin overrides the WebSocket origin check. The default accepts
// same-host origins only.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

// NewHub creates a hub serving gs.
func NewHub(gs server.GameServer, opts ...Option) *Hub {
	h := &Hub{
		server: gs,
		logger: log.New(io.Discard),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		pushInterval: config.WebPushInterval,
		intentRate:   config.WebIntentRate,
		intentBurst:  config.WebIntentBurst,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connections returns the number of open sockets.
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns
}

// ServeHTTP attaches the request to a session and upgrades it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handle, err := h.server.RegisterClient(r.URL.Query().Get("player"))
	if err != nil {
		h.logger.Error("register client", "err", err)
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", "err", err)
		h.server.UnregisterClient(handle.ID)
		return
	}

	h.mu.Lock()
	h.conns++
	h.mu.Unlock()

	logger := h.logger.With("player", handle.Player, "client", handle.ID, "remote", r.RemoteAddr)
	logger.Info("websocket connected")

	c := &peer{
		hub:     h,
		conn:    conn,
		handle:  handle,
		logger:  logger,
		limiter: rate.NewLimiter(h.intentRate, h.intentBurst),
		notices: make(chan Message, 8),
		done:    make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump()
	}()
	c.readPump()

	close(c.done)
	wg.Wait()
	conn.Close()
	h.server.UnregisterClient(handle.ID)

	h.mu.Lock()
	h.conns--
	h.mu.Unlock()
	logger.Info("websocket disconnected")
}

// peer is one browser connection. Only writePump writes to the socket.
type peer struct {
	hub     *Hub
	conn    *websocket.Conn
	handle  *server.ClientHandle
	logger  *log.Logger
	limiter *rate.Limiter
	notices chan Message // Replies from the read side
	done    chan struct{}
}

// readPump decodes intents until the socket fails.
func (c *peer) readPump() {
	c.conn.SetReadLimit(config.WebReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(config.WebPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(config.WebPongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "err", err)
			}
			return
		}

		if !c.limiter.Allow() {
			c.notify(Message{Type: "error", Payload: "rate limited"})
			continue
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.notify(Message{Type: "error", Payload: "malformed message"})
			continue
		}
		intent, err := parseIntent(msg)
		if err != nil {
			c.notify(Message{Type: "error", Payload: err.Error()})
			continue
		}
		c.hub.server.SendIntent(c.handle.ID, intent)
	}
}

// notify queues a reply, dropping it if the writer is backed up.
func (c *peer) notify(m Message) {
	select {
	case c.notices <- m:
	default:
	}
}

// writePump pushes snapshots, intent results and pings until the read side
// finishes or the server drops the client.
func (c *peer) writePump() {
	// Closing the socket unblocks the reader whatever ends this loop.
	defer c.conn.Close()
	push := time.NewTicker(c.hub.pushInterval)
	defer push.Stop()
	ping := time.NewTicker(config.WebPingInterval)
	defer ping.Stop()

	// First frame immediately so the page has something to draw.
	if err := c.pushSnapshot(); err != nil {
		return
	}

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(config.WebWriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-push.C:
			if err := c.pushSnapshot(); err != nil {
				return
			}
		case ev, ok := <-c.handle.EventsCh:
			if !ok {
				return
			}
			if err := c.write(eventMessage(ev)); err != nil {
				return
			}
		case m := <-c.notices:
			if err := c.write(m); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WebWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *peer) pushSnapshot() error {
	snap := c.hub.server.GetSnapshot(c.handle.ID)
	if snap == nil {
		// Registration is picked up on the next server tick.
		return nil
	}
	return c.write(Message{Type: "snapshot", Payload: snap})
}

func (c *peer) write(m Message) error {
	c.conn.SetWriteDeadline(time.Now().Add(config.WebWriteTimeout))
	if err := c.conn.WriteJSON(m); err != nil {
		c.logger.Debug("websocket write failed", "type", m.Type, "err", err)
		return err
	}
	return nil
}

func eventMessage(ev server.ClientEvent) Message {
	if ev.Type == server.EventServerShutdown {
		return Message{Type: "shutdown"}
	}
	res := Result{Intent: ev.Intent.Kind.String(), Target: ev.Intent.Target, OK: ev.Err == nil}
	if ev.Err != nil {
		res.Error = ev.Err.Error()
	}
	return Message{Type: "result", Payload: res}
}

// parseIntent maps an inbound message to a server intent.
func parseIntent(m inbound) (server.Intent, error) {
	switch m.Type {
	case "purchase":
		if m.ID == "" {
			return server.Intent{}, fmt.Errorf("purchase: missing id")
		}
		return server.Intent{Kind: server.IntentPurchase, Target: m.ID}, nil
	case "colonize":
		if m.ID == "" {
			return server.Intent{}, fmt.Errorf("colonize: missing id")
		}
		return server.Intent{Kind: server.IntentColonize, Target: m.ID}, nil
	case "autopilot":
		return server.Intent{Kind: server.IntentToggleAutopilot}, nil
	case "reset":
		return server.Intent{Kind: server.IntentReset}, nil
	}
	return server.Intent{}, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
}
