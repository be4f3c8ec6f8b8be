package handler

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/freeeve/fleetbot/internal/model"
)

func newTestConn(id string) *WSConn {
	return &WSConn{
		conn: nil, // no real connection for hub tests
		id:   id,
		send: make(chan []byte, 256),
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	c := newTestConn("conn-1")

	hub.Register(c)
	if hub.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", hub.ConnectionCount())
	}

	hub.Unregister(c)
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubSubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	c := newTestConn("conn-1")
	hub.Register(c)
	defer hub.Unregister(c)

	hub.Subscribe(c, "match-1")
	if hub.MatchSubscriberCount("match-1") != 1 {
		t.Errorf("expected 1 subscriber, got %d", hub.MatchSubscriberCount("match-1"))
	}

	hub.Unsubscribe(c, "match-1")
	if hub.MatchSubscriberCount("match-1") != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.MatchSubscriberCount("match-1"))
	}
}

func TestHubBroadcastToMatch(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("conn-1")
	c2 := newTestConn("conn-2")
	c3 := newTestConn("conn-3") // not subscribed

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)
	defer hub.Unregister(c3)

	hub.Subscribe(c1, "match-1")
	hub.Subscribe(c2, "match-1")

	hub.BroadcastToMatch("match-1", WSEvent{
		Type:    EventTurn,
		MatchID: "match-1",
		Data:    map[string]int{"turn": 3},
	})

	// c1 and c2 should receive, c3 should not
	select {
	case msg := <-c1.send:
		var event WSEvent
		json.Unmarshal(msg, &event)
		if event.Type != EventTurn {
			t.Errorf("expected turn, got %s", event.Type)
		}
	case <-time.After(time.Second):
		t.Error("c1 did not receive broadcast")
	}

	select {
	case <-c2.send:
		// ok
	case <-time.After(time.Second):
		t.Error("c2 did not receive broadcast")
	}

	select {
	case <-c3.send:
		t.Error("c3 should not have received broadcast")
	default:
		// ok
	}
}

func TestHubUnregisterCleansUpSubscriptions(t *testing.T) {
	hub := NewHub()
	c := newTestConn("conn-1")
	hub.Register(c)
	hub.Subscribe(c, "match-1")
	hub.Subscribe(c, "match-2")

	hub.Unregister(c)

	if hub.MatchSubscriberCount("match-1") != 0 {
		t.Errorf("expected 0 subscribers for match-1 after unregister")
	}
	if hub.MatchSubscriberCount("match-2") != 0 {
		t.Errorf("expected 0 subscribers for match-2 after unregister")
	}
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup

	// Concurrently register, subscribe, broadcast, unregister
	for i := range 50 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c := newTestConn("conn")
			hub.Register(c)
			hub.Subscribe(c, "match-1")
			hub.BroadcastToMatch("match-1", WSEvent{Type: "test", MatchID: "match-1"})
			hub.Unsubscribe(c, "match-1")
			hub.Unregister(c)
		}(i)
	}

	wg.Wait()
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections after concurrent test, got %d", hub.ConnectionCount())
	}
}

func TestHubBroadcastTurn(t *testing.T) {
	hub := NewHub()
	c := newTestConn("conn-1")
	hub.Register(c)
	defer hub.Unregister(c)
	hub.Subscribe(c, "match-1")

	hub.BroadcastTurn(model.TurnReport{MatchID: "match-1", Turn: 12, Fleet: 9})

	select {
	case msg := <-c.send:
		var event struct {
			Type    string           `json:"type"`
			MatchID string           `json:"match_id"`
			Data    model.TurnReport `json:"data"`
		}
		json.Unmarshal(msg, &event)
		if event.Type != EventTurn {
			t.Errorf("expected turn, got %s", event.Type)
		}
		if event.MatchID != "match-1" || event.Data.Turn != 12 || event.Data.Fleet != 9 {
			t.Errorf("unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Error("did not receive broadcast")
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c := &WSConn{id: "slow", send: make(chan []byte, 1)}
	hub.Register(c)
	defer hub.Unregister(c)
	hub.Subscribe(c, "match-1")

	hub.BroadcastTurn(model.TurnReport{MatchID: "match-1", Turn: 1})
	hub.BroadcastTurn(model.TurnReport{MatchID: "match-1", Turn: 2})

	if len(c.send) != 1 {
		t.Errorf("expected 1 queued message, got %d", len(c.send))
	}
}

func TestHubUnregisterTwice(t *testing.T) {
	hub := NewHub()
	c := newTestConn("conn-1")
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}
