package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/fleetbot/internal/model"
)

const (
	latestTTL = 24 * time.Hour
	// maxHistory caps the per-match turn list.
	maxHistory = 1000
)

func latestKey(matchID string) string  { return "fleet:match:" + matchID + ":latest" }
func historyKey(matchID string) string { return "fleet:match:" + matchID + ":turns" }

// Publisher writes turn reports to Redis and announces them on a channel.
type Publisher struct {
	c       *Client
	channel string
}

// NewPublisher creates a Publisher that announces on channel.
func NewPublisher(c *Client, channel string) *Publisher {
	return &Publisher{c: c, channel: channel}
}

// PublishTurn stores the report as the match's latest turn, appends it to
// the match history and publishes it.
func (p *Publisher) PublishTurn(ctx context.Context, report model.TurnReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal turn report: %w", err)
	}

	pipe := p.c.rdb.TxPipeline()
	pipe.Set(ctx, latestKey(report.MatchID), data, latestTTL)
	pipe.RPush(ctx, historyKey(report.MatchID), data)
	pipe.LTrim(ctx, historyKey(report.MatchID), -maxHistory, -1)
	pipe.Expire(ctx, historyKey(report.MatchID), latestTTL)
	pipe.Publish(ctx, p.channel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish turn %d: %w", report.Turn, err)
	}
	return nil
}

// LatestTurn returns the most recent report for a match, or nil if none.
func (c *Client) LatestTurn(ctx context.Context, matchID string) (*model.TurnReport, error) {
	data, err := c.rdb.Get(ctx, latestKey(matchID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest turn: %w", err)
	}
	var r model.TurnReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode latest turn: %w", err)
	}
	return &r, nil
}

// TurnHistory returns up to limit of the most recent reports, oldest first.
// A non-positive limit returns everything kept.
func (c *Client) TurnHistory(ctx context.Context, matchID string, limit int) ([]model.TurnReport, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	items, err := c.rdb.LRange(ctx, historyKey(matchID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get turn history: %w", err)
	}
	out := make([]model.TurnReport, 0, len(items))
	for _, item := range items {
		var r model.TurnReport
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("decode turn history: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// SubscribeTurns subscribes to a telemetry channel.
func (c *Client) SubscribeTurns(ctx context.Context, channel string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, channel)
}
