package model

import (
	"encoding/json"
	"time"
)

// TurnReport summarises one turn of one bot, for telemetry.
type TurnReport struct {
	MatchID   string         `json:"match_id"`
	Player    int            `json:"player"`
	Turn      int            `json:"turn"`
	ElapsedMs float64        `json:"elapsed_ms"`
	Fleet     int            `json:"fleet"`
	Roles     map[string]int `json:"roles"`
	Commands  int            `json:"commands"`
	Skipped   int            `json:"skipped"` // units left without a command at the deadline
	Dead      int            `json:"dead"`
	Born      int            `json:"born"`
	Nemesis   *int           `json:"nemesis,omitempty"`
	Squads    int            `json:"squads,omitempty"`
	At        time.Time      `json:"at"`
}

// MatchResult is one finished game run by the batch evaluator.
type MatchResult struct {
	ID         string          `json:"id"`
	Label      string          `json:"label"`
	Seed       int64           `json:"seed"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Players    int             `json:"players"`
	Rank       int             `json:"rank"` // rank of player 0, 1 is a win
	Turns      int             `json:"turns"`
	DurationMs int64           `json:"duration_ms"`
	Replay     string          `json:"replay,omitempty"`
	Tuning     json.RawMessage `json:"tuning,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Won reports whether player 0 finished first.
func (r *MatchResult) Won() bool { return r.Rank == 1 }
