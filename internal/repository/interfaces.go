package repository

import (
	"context"

	"github.com/freeeve/fleetbot/internal/model"
)

// TurnPublisher ships per-turn telemetry out of the bot process.
type TurnPublisher interface {
	PublishTurn(ctx context.Context, report model.TurnReport) error
}

// TurnHistory reads back published telemetry.
type TurnHistory interface {
	LatestTurn(ctx context.Context, matchID string) (*model.TurnReport, error)
	TurnHistory(ctx context.Context, matchID string, limit int) ([]model.TurnReport, error)
}

// MatchRepository stores finished batch-evaluation matches.
type MatchRepository interface {
	Create(ctx context.Context, m *model.MatchResult) error
	FindByID(ctx context.Context, id string) (*model.MatchResult, error)
	ListRecent(ctx context.Context, label string, limit int) ([]model.MatchResult, error)
	WinRate(ctx context.Context, label string) (wins, total int, err error)
}

// NopPublisher drops every report. It is used when no Redis is configured.
type NopPublisher struct{}

// PublishTurn does nothing.
func (NopPublisher) PublishTurn(context.Context, model.TurnReport) error { return nil }
