package handler

import "github.com/freeeve/fleetbot/internal/model"

// BroadcastTurn implements service.Broadcaster using the WebSocket hub.
func (h *Hub) BroadcastTurn(report model.TurnReport) {
	h.BroadcastToMatch(report.MatchID, WSEvent{
		Type:    EventTurn,
		MatchID: report.MatchID,
		Data:    report,
	})
}
