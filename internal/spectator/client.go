// Package spectator is a client for the telemetry server's HTTP and
// WebSocket endpoints.
package spectator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/fleetbot/internal/model"
)

// Event mirrors handler.WSEvent for client-side deserialization.
type Event struct {
	Type    string          `json:"type"`
	MatchID string          `json:"match_id"`
	Data    json.RawMessage `json:"data"`
}

// Turn decodes a turn event's payload.
func (e Event) Turn() (model.TurnReport, error) {
	var r model.TurnReport
	if err := json.Unmarshal(e.Data, &r); err != nil {
		return r, fmt.Errorf("decode turn event: %w", err)
	}
	return r, nil
}

// Client talks to one telemetry server.
type Client struct {
	baseURL  string
	httpC    *http.Client
	wsConn   *websocket.Conn
	events   chan Event
	mu       sync.Mutex
	closedWS bool
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		events:  make(chan Event, 64),
		httpC:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Matches lists recent matches, optionally filtered by label.
func (c *Client) Matches(ctx context.Context, label string, limit int) ([]model.MatchResult, error) {
	q := url.Values{}
	if label != "" {
		q.Set("label", label)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var out []model.MatchResult
	err := c.getJSON(ctx, "/api/v1/matches?"+q.Encode(), &out)
	return out, err
}

// Turns returns the most recent turn reports of a match, oldest first.
func (c *Client) Turns(ctx context.Context, matchID string, limit int) ([]model.TurnReport, error) {
	var out []model.TurnReport
	err := c.getJSON(ctx, fmt.Sprintf("/api/v1/matches/%s/turns?limit=%d", url.PathEscape(matchID), limit), &out)
	return out, err
}

// Connect opens the WebSocket and starts reading events.
func (c *Client) Connect(ctx context.Context) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	c.wsConn = conn

	go c.readWSLoop()
	return nil
}

// Subscribe asks for the turns of one match.
func (c *Client) Subscribe(matchID string) error {
	msg := map[string]string{"action": "subscribe", "match_id": matchID}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wsConn.WriteJSON(msg)
}

// Events returns the channel of incoming events. It is closed when the
// connection drops.
func (c *Client) Events() <-chan Event { return c.events }

// Close closes the WebSocket connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn != nil && !c.closedWS {
		c.closedWS = true
		c.wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.wsConn.Close()
	}
}

func (c *Client) readWSLoop() {
	defer close(c.events)
	for {
		_, msg, err := c.wsConn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closedWS
			c.mu.Unlock()
			if !closed {
				log.Debug().Err(err).Msg("WS read error")
			}
			return
		}
		// The server may batch several events into one frame.
		for _, line := range strings.Split(string(msg), "\n") {
			var event Event
			if err := json.Unmarshal([]byte(line), &event); err != nil {
				continue
			}
			c.events <- event
		}
	}
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpC.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
