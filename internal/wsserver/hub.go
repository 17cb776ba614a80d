package wsserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeDeadline bounds a single write; a WebView frozen longer than
	// this is treated as dead.
	writeDeadline = 5 * time.Second
	// readDeadline allows ~3 missed pings before the connection is dropped.
	readDeadline = 90 * time.Second
	pingInterval = 30 * time.Second
	// Subscribe messages are tiny.
	maxReadMessageSize = 8 * 1024
)

// pingIntervalFn is a test seam.
var pingIntervalFn = func() time.Duration { return pingInterval }

var wsUpgrader = websocket.Upgrader{
	// The server binds to 127.0.0.1 only.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4 * 1024,
}

// HubOptions configures the WebSocket server.
type HubOptions struct {
	// Addr is the listen address. Use "127.0.0.1:0" for OS-assigned port.
	Addr string
}

// client is one connected WebSocket peer.
type client struct {
	id   string
	conn *websocket.Conn
	// writeMu serializes WriteMessage; gorilla/websocket allows one writer.
	writeMu sync.Mutex
	topics  map[string]bool // guarded by Hub.mu
}

// Hub broadcasts topic state frames to any number of local clients.
//
// Lock ordering (never acquire in reverse):
//
//	publishMu -> mu
//	publishMu -> client.writeMu
//
// mu is never held during a network write. publishMu keeps a subscribe
// replay from overtaking a newer Publish to the same client.
//
// Write failure policy: a failed write drops that client only.
type Hub struct {
	opts HubOptions

	publishMu sync.Mutex

	mu      sync.RWMutex
	clients map[string]*client
	latest  map[string][]byte // topic -> last encoded state frame

	listener net.Listener
	server   *http.Server
	url      string

	closeOnce sync.Once
}

// NewHub creates a Hub with the given options.
// The hub is not started until Start is called.
func NewHub(opts HubOptions) *Hub {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	return &Hub{
		opts:    opts,
		clients: make(map[string]*client),
		latest:  make(map[string][]byte),
	}
}

// Start listens on the configured address and serves /ws.
// Start must be called once, before concurrent use.
func (h *Hub) Start(ctx context.Context) error {
	if h.server != nil {
		return errors.New("wsserver: already started")
	}

	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("wsserver: listen: %w", err)
	}
	h.listener = ln

	port := ln.Addr().(*net.TCPAddr).Port
	h.url = fmt.Sprintf("ws://127.0.0.1:%d/ws", port)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)

	h.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if serveErr := h.server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("[WS] server error", "error", serveErr)
		}
	}()

	slog.Info("[WS] server started", "url", h.url)
	return nil
}

// Stop shuts down the server and closes every client. Idempotent.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		clients := h.clients
		h.clients = make(map[string]*client)
		h.mu.Unlock()

		for _, c := range clients {
			closeConn(c.conn, "hub stop")
		}

		if h.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.server.Shutdown(shutdownCtx); err != nil {
				stopErr = fmt.Errorf("wsserver: shutdown: %w", err)
			}
		}
		slog.Info("[WS] server stopped")
	})
	return stopErr
}

// URL returns the WebSocket URL, or "" before Start.
func (h *Hub) URL() string {
	return h.url
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish records payload as the latest state of topic and sends it to
// every client subscribed to topic.
func (h *Hub) Publish(topic string, payload any) error {
	if !ValidTopic(topic) {
		return fmt.Errorf("wsserver: publish %q: %w", topic, ErrUnknownTopic)
	}
	frame, err := EncodeFrame(FrameState, topic, payload)
	if err != nil {
		return err
	}

	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	h.mu.Lock()
	h.latest[topic] = frame
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		if c.topics[topic] {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		h.write(c, frame, "publish")
	}
	return nil
}

// write sends one text frame to c and drops c on failure.
func (h *Hub) write(c *client, frame []byte, reason string) bool {
	c.writeMu.Lock()
	err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err == nil {
		err = c.conn.WriteMessage(websocket.TextMessage, frame)
		if clearErr := c.conn.SetWriteDeadline(time.Time{}); clearErr != nil {
			slog.Debug("[WS] clear write deadline failed", "client", c.id, "error", clearErr)
		}
	}
	c.writeMu.Unlock()

	if err != nil {
		slog.Warn("[WS] write failed, dropping client", "client", c.id, "reason", reason, "error", err)
		h.remove(c)
		closeConn(c.conn, "write error")
		return false
	}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
}

func closeConn(conn *websocket.Conn, reason string) {
	if err := conn.Close(); err != nil {
		slog.Debug("[WS] connection close", "reason", reason, "error", err)
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[WS] upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxReadMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		slog.Warn("[WS] SetReadDeadline failed on new connection", "error", err)
		closeConn(conn, "initial SetReadDeadline failure")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	c := &client{
		id:     uuid.NewString(),
		conn:   conn,
		topics: make(map[string]bool),
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	slog.Info("[WS] client connected", "client", c.id, "remoteAddr", conn.RemoteAddr())

	welcome, err := EncodeFrame(FrameWelcome, "", welcomePayload{ClientID: c.id})
	if err == nil && !h.write(c, welcome, "welcome") {
		return
	}

	pingDone := make(chan struct{})
	go h.pingLoop(c, pingDone)

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[WS] handleWS recovered from panic",
				"panic", rec, "stack", string(debug.Stack()))
		}
		close(pingDone)
		h.remove(c)
		closeConn(conn, "read pump exit")
		slog.Info("[WS] client disconnected", "client", c.id)
	}()

	for {
		msgType, msg, readErr := conn.ReadMessage()
		if readErr != nil {
			if websocket.IsUnexpectedCloseError(readErr, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("[WS] read error", "client", c.id, "error", readErr)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var cm ClientMessage
		if jsonErr := json.Unmarshal(msg, &cm); jsonErr != nil {
			h.sendError(c, fmt.Sprintf("invalid JSON: %s", jsonErr))
			continue
		}
		h.handleClientMessage(c, cm)
	}
}

// handleClientMessage applies a subscription change and replays the
// latest state of each newly subscribed topic.
func (h *Hub) handleClientMessage(c *client, msg ClientMessage) {
	var replay [][]byte
	var unknown []string

	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	h.mu.Lock()
	switch msg.Action {
	case subscribeAction:
		for _, topic := range msg.Topics {
			if !ValidTopic(topic) {
				unknown = append(unknown, topic)
				continue
			}
			if c.topics[topic] {
				continue
			}
			c.topics[topic] = true
			if frame, ok := h.latest[topic]; ok {
				replay = append(replay, frame)
			}
		}
	case unsubscribeAction:
		for _, topic := range msg.Topics {
			delete(c.topics, topic)
		}
	default:
		h.mu.Unlock()
		h.sendError(c, fmt.Sprintf("unknown action: %q", msg.Action))
		return
	}
	h.mu.Unlock()

	for _, topic := range unknown {
		if !h.sendError(c, fmt.Sprintf("%s: %q", ErrUnknownTopic, topic)) {
			return
		}
	}
	for _, frame := range replay {
		if !h.write(c, frame, "replay") {
			return
		}
	}
}

func (h *Hub) sendError(c *client, message string) bool {
	frame, err := EncodeFrame(FrameError, "", errorPayload{Message: message})
	if err != nil {
		slog.Debug("[WS] failed to encode error frame", "error", err)
		return true
	}
	return h.write(c, frame, "error")
}

func (h *Hub) pingLoop(c *client, done <-chan struct{}) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[WS] pingLoop recovered from panic",
				"panic", rec, "stack", string(debug.Stack()))
			h.remove(c)
			closeConn(c.conn, "pingLoop panic recovery")
		}
	}()

	ticker := time.NewTicker(pingIntervalFn())
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline))
			c.writeMu.Unlock()
			if err != nil {
				slog.Debug("[WS] ping failed, connection likely dead", "client", c.id, "error", err)
				h.remove(c)
				closeConn(c.conn, "ping failure")
				return
			}
		}
	}
}
