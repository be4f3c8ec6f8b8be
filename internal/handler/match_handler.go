package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/fleetbot/internal/logger"
	"github.com/freeeve/fleetbot/internal/model"
	"github.com/freeeve/fleetbot/internal/repository"
)

const (
	defaultMatchLimit = 50
	defaultTurnLimit  = 100
)

// MatchHandler serves stored match results and turn telemetry.
type MatchHandler struct {
	matches repository.MatchRepository
	turns   repository.TurnHistory
}

// NewMatchHandler creates a MatchHandler. Either store may be nil, in
// which case its endpoints answer 503.
func NewMatchHandler(matches repository.MatchRepository, turns repository.TurnHistory) *MatchHandler {
	return &MatchHandler{matches: matches, turns: turns}
}

// ListMatches handles GET /api/v1/matches?label=&limit=
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	if h.matches == nil {
		writeError(w, http.StatusServiceUnavailable, "match store not configured")
		return
	}
	label := r.URL.Query().Get("label")
	list, err := h.matches.ListRecent(r.Context(), label, queryInt(r, "limit", defaultMatchLimit))
	if err != nil {
		l := logger.ForRequest(r.Context())
		l.Error().Err(err).Msg("List matches failed")
		writeError(w, http.StatusInternalServerError, "failed to list matches")
		return
	}
	if list == nil {
		list = []model.MatchResult{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetMatch handles GET /api/v1/matches/{id}
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	if h.matches == nil {
		writeError(w, http.StatusServiceUnavailable, "match store not configured")
		return
	}
	m, err := h.matches.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		l := logger.ForRequest(r.Context())
		l.Error().Err(err).Msg("Find match failed")
		writeError(w, http.StatusInternalServerError, "failed to load match")
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "match not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// WinRate handles GET /api/v1/matches/stats?label=
func (h *MatchHandler) WinRate(w http.ResponseWriter, r *http.Request) {
	if h.matches == nil {
		writeError(w, http.StatusServiceUnavailable, "match store not configured")
		return
	}
	label := r.URL.Query().Get("label")
	wins, total, err := h.matches.WinRate(r.Context(), label)
	if err != nil {
		l := logger.ForRequest(r.Context())
		l.Error().Err(err).Msg("Win rate failed")
		writeError(w, http.StatusInternalServerError, "failed to compute win rate")
		return
	}
	rate := 0.0
	if total > 0 {
		rate = float64(wins) / float64(total)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"label": label,
		"wins":  wins,
		"total": total,
		"rate":  rate,
	})
}

// ListTurns handles GET /api/v1/matches/{id}/turns?limit=
func (h *MatchHandler) ListTurns(w http.ResponseWriter, r *http.Request) {
	if h.turns == nil {
		writeError(w, http.StatusServiceUnavailable, "telemetry store not configured")
		return
	}
	matchID := r.PathValue("id")
	turns, err := h.turns.TurnHistory(r.Context(), matchID, queryInt(r, "limit", defaultTurnLimit))
	if err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Turn history failed")
		writeError(w, http.StatusInternalServerError, "failed to load turns")
		return
	}
	if turns == nil {
		turns = []model.TurnReport{}
	}
	writeJSON(w, http.StatusOK, turns)
}

// LatestTurn handles GET /api/v1/matches/{id}/turns/latest
func (h *MatchHandler) LatestTurn(w http.ResponseWriter, r *http.Request) {
	if h.turns == nil {
		writeError(w, http.StatusServiceUnavailable, "telemetry store not configured")
		return
	}
	matchID := r.PathValue("id")
	turn, err := h.turns.LatestTurn(r.Context(), matchID)
	if err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Latest turn failed")
		writeError(w, http.StatusInternalServerError, "failed to load turn")
		return
	}
	if turn == nil {
		writeError(w, http.StatusNotFound, "no turns for match")
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

// Routes registers the match endpoints on mux.
func (h *MatchHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /matches", h.ListMatches)
	mux.HandleFunc("GET /matches/stats", h.WinRate)
	mux.HandleFunc("GET /matches/{id}", h.GetMatch)
	mux.HandleFunc("GET /matches/{id}/turns", h.ListTurns)
	mux.HandleFunc("GET /matches/{id}/turns/latest", h.LatestTurn)
}
