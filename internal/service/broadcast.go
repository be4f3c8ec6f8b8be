package service

import "github.com/freeeve/fleetbot/internal/model"

// Broadcaster sends real-time events to connected clients.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastTurn(report model.TurnReport)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastTurn(model.TurnReport) {}
