package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/fleetbot/internal/logger"
	"github.com/freeeve/fleetbot/internal/repository"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = pongWait * 9 / 10
	maxMsgSize  = 512
	sendBufSize = 256

	// maxMatchesPerConn caps how many matches one spectator follows.
	maxMatchesPerConn = 8
	maxMatchIDLen     = 64
	replayTimeout     = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WSHandler upgrades spectator connections and feeds them turn events.
type WSHandler struct {
	hub   *Hub
	turns repository.TurnHistory
}

// NewWSHandler creates a WSHandler. When turns is non-nil, every new
// subscription is first sent the match's latest stored turn so a spectator
// joining mid-match has something to draw.
func NewWSHandler(hub *Hub, turns repository.TurnHistory) *WSHandler {
	return &WSHandler{hub: hub, turns: turns}
}

// ServeWS handles GET /api/v1/ws. A ?match_id= query parameter subscribes
// the connection straight away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l := logger.ForRequest(r.Context())
		l.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	id := logger.RequestIDFromContext(r.Context())
	if id == "" {
		id = logger.NewRequestID()
	}
	c := &WSConn{conn: conn, id: id, send: make(chan []byte, sendBufSize)}
	l := log.Logger.With().Str("connId", id).Logger()

	h.hub.Register(c)
	h.enqueue(c, WSEvent{Type: EventConnected, Data: map[string]any{}})
	if matchID := r.URL.Query().Get("match_id"); matchID != "" {
		h.handleMessage(c, l, ClientMessage{Action: "subscribe", MatchID: matchID})
	}

	go h.writePump(c)
	go h.readPump(c, l)

	l.Info().Int("total", h.hub.ConnectionCount()).Msg("Spectator connected")
}

// handleMessage applies one client request. Malformed or over-limit
// requests are ignored.
func (h *WSHandler) handleMessage(c *WSConn, l zerolog.Logger, msg ClientMessage) {
	if msg.MatchID == "" || len(msg.MatchID) > maxMatchIDLen {
		return
	}
	switch msg.Action {
	case "subscribe":
		if h.hub.SubscriptionCount(c) >= maxMatchesPerConn {
			l.Debug().Str("matchId", msg.MatchID).Msg("Subscription limit reached")
			return
		}
		h.hub.Subscribe(c, msg.MatchID)
		h.replayLatest(c, l, msg.MatchID)
	case "unsubscribe":
		h.hub.Unsubscribe(c, msg.MatchID)
	default:
		l.Debug().Str("action", msg.Action).Msg("Unknown spectator action")
	}
}

// replayLatest sends the newest stored turn of matchID to c alone.
func (h *WSHandler) replayLatest(c *WSConn, l zerolog.Logger, matchID string) {
	if h.turns == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), replayTimeout)
	defer cancel()
	report, err := h.turns.LatestTurn(ctx, matchID)
	if err != nil {
		l.Warn().Err(err).Str("matchId", matchID).Msg("Latest turn lookup failed")
		return
	}
	if report == nil {
		return
	}
	h.enqueue(c, WSEvent{Type: EventTurn, MatchID: matchID, Data: report})
}

// enqueue queues an event for c without blocking.
func (h *WSHandler) enqueue(c *WSConn, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *WSHandler) readPump(c *WSConn, l zerolog.Logger) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		l.Info().Msg("Spectator disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Warn().Err(err).Msg("Spectator connection closed unexpectedly")
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		h.handleMessage(c, l, msg)
	}
}

// writePump owns all writes to the connection: queued events, batched one
// per line into a frame, and keepalive pings.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case first, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := writeBatch(c, first); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeBatch(c *WSConn, first []byte) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	w.Write(first)
	for range len(c.send) {
		w.Write([]byte{'\n'})
		w.Write(<-c.send)
	}
	return w.Close()
}
