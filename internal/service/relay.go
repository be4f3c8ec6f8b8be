package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/fleetbot/internal/model"
)

const resubscribeDelay = 2 * time.Second

// TurnRelay forwards turn reports published by bots on a Redis channel to
// WebSocket subscribers.
type TurnRelay struct {
	rdb     *redis.Client
	channel string
	out     Broadcaster

	relayed int
}

// NewTurnRelay creates a TurnRelay.
func NewTurnRelay(rdb *redis.Client, channel string, out Broadcaster) *TurnRelay {
	return &TurnRelay{rdb: rdb, channel: channel, out: out}
}

// Start relays until ctx is cancelled, resubscribing if the channel closes.
func (t *TurnRelay) Start(ctx context.Context) {
	for {
		t.listen(ctx)
		select {
		case <-ctx.Done():
			log.Info().Int("relayed", t.relayed).Msg("Turn relay stopped")
			return
		case <-time.After(resubscribeDelay):
			log.Warn().Str("channel", t.channel).Msg("Turn relay resubscribing")
		}
	}
}

func (t *TurnRelay) listen(ctx context.Context) {
	pubsub := t.rdb.Subscribe(ctx, t.channel)
	defer pubsub.Close()

	log.Info().Str("channel", t.channel).Msg("Turn relay started")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			t.handle(msg.Payload)
		}
	}
}

// handle decodes one published report and broadcasts it.
func (t *TurnRelay) handle(payload string) {
	var report model.TurnReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		log.Warn().Err(err).Msg("Dropping undecodable turn report")
		return
	}
	if report.MatchID == "" {
		log.Debug().Int("turn", report.Turn).Msg("Dropping turn report without match id")
		return
	}
	t.out.BroadcastTurn(report)
	t.relayed++
}
