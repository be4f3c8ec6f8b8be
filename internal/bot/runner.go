package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/fleetbot/internal/config"
	"github.com/freeeve/fleetbot/internal/logger"
	"github.com/freeeve/fleetbot/internal/model"
	"github.com/freeeve/fleetbot/internal/repository"
	"github.com/freeeve/fleetbot/pkg/hlt"
)

const (
	reportBuffer   = 64
	publishTimeout = 500 * time.Millisecond
)

// Runner drives one match: handshake, then one PlayTurn per engine map
// until the engine closes the stream.
type Runner struct {
	Session   *hlt.Session
	Name      string
	MatchID   string
	Tuning    config.Tuning
	Publisher repository.TurnPublisher
	Verify    bool

	// Clock returns the time a turn's map was received. Defaults to time.Now.
	Clock func() time.Time
}

// Run plays the match. It returns nil when the game ends normally.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Session.Handshake(r.Name); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	l := logger.ForMatch(r.MatchID, r.Session.PlayerID)
	l.Info().
		Int("width", r.Session.Width).
		Int("height", r.Session.Height).
		Str("name", r.Name).
		Msg("Match started")

	o := NewOrchestrator(r.Session.PlayerID, r.Tuning)
	o.SetLogger(l)
	o.Verify = r.Verify

	clock := r.Clock
	if clock == nil {
		clock = time.Now
	}

	reports := make(chan model.TurnReport, reportBuffer)
	done := make(chan struct{})
	go r.publishLoop(ctx, l, reports, done)
	defer func() {
		close(reports)
		<-done
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := r.Session.NextTurn()
		if errors.Is(err, hlt.ErrGameOver) {
			l.Info().Int("turns", o.State().Turn).Msg("Match over")
			return nil
		}
		if err != nil {
			return fmt.Errorf("turn %d: %w", o.State().Turn+1, err)
		}
		start := clock()

		cmds, report := o.PlayTurn(start, m)
		if err := r.Session.Send(cmds); err != nil {
			return fmt.Errorf("send turn %d: %w", report.Turn, err)
		}

		report.MatchID = r.MatchID
		select {
		case reports <- report:
		default:
			l.Warn().Int("turn", report.Turn).Msg("Telemetry backlog full, dropping report")
		}
	}
}

// publishLoop ships reports off the turn loop so a slow publisher never
// eats into the next turn's budget.
func (r *Runner) publishLoop(ctx context.Context, l zerolog.Logger, reports <-chan model.TurnReport, done chan<- struct{}) {
	defer close(done)
	pub := r.Publisher
	if pub == nil {
		pub = repository.NopPublisher{}
	}
	for report := range reports {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		if err := pub.PublishTurn(pctx, report); err != nil {
			l.Warn().Err(err).Int("turn", report.Turn).Msg("Failed to publish turn report")
		}
		cancel()
	}
}
