package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/fleetbot/internal/bot"
	"github.com/freeeve/fleetbot/internal/config"
	"github.com/freeeve/fleetbot/internal/logger"
	"github.com/freeeve/fleetbot/internal/repository"
	redisrepo "github.com/freeeve/fleetbot/internal/repository/redis"
	"github.com/freeeve/fleetbot/pkg/hlt"
)

func main() {
	cfg := config.Load()

	name := flag.String("name", cfg.BotName, "bot name sent in the handshake")
	tuningPath := flag.String("tuning", cfg.TuningPath, "YAML tuning file (defaults when empty)")
	verify := flag.Bool("verify", cfg.Verify, "check the role index after every turn")
	matchID := flag.String("match", "", "match id for telemetry (random when empty)")
	flag.Parse()

	// stdout carries the game protocol.
	logger.Init(os.Stderr)

	tuning, err := config.LoadTuning(*tuningPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *tuningPath).Msg("Tuning load failed")
	}

	if *matchID == "" {
		*matchID = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Received shutdown signal")
		cancel()
	}()

	var pub repository.TurnPublisher = repository.NopPublisher{}
	if cfg.RedisURL != "" {
		rc, err := redisrepo.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, telemetry disabled")
		} else {
			defer rc.Close()
			pub = redisrepo.NewPublisher(rc, cfg.TelemetryChannel)
		}
	}

	r := &bot.Runner{
		Session:   hlt.NewSession(os.Stdin, os.Stdout),
		Name:      *name,
		MatchID:   *matchID,
		Tuning:    tuning,
		Publisher: pub,
		Verify:    *verify,
	}
	if err := r.Run(ctx); err != nil {
		log.Error().Err(err).Str("match", *matchID).Msg("Bot failed")
		os.Exit(1)
	}
}
