package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/fleetbot/internal/handler"
	"github.com/freeeve/fleetbot/internal/spectator"
)

func main() {
	url := flag.String("url", "http://localhost:8010", "telemetry server base URL")
	matchID := flag.String("match", "", "match id to follow")
	backlog := flag.Int("backlog", 10, "print this many stored turns before following")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if *matchID == "" {
		log.Fatal().Msg("-match is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	c := spectator.NewClient(*url)
	if *backlog > 0 {
		turns, err := c.Turns(ctx, *matchID, *backlog)
		if err != nil {
			log.Warn().Err(err).Msg("Could not load stored turns")
		}
		for _, t := range turns {
			fmt.Printf("turn %4d  fleet %3d  cmds %3d  skipped %2d  %.1fms  %v\n",
				t.Turn, t.Fleet, t.Commands, t.Skipped, t.ElapsedMs, t.Roles)
		}
	}

	if err := c.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("Connect failed")
	}
	defer c.Close()
	if err := c.Subscribe(*matchID); err != nil {
		log.Fatal().Err(err).Msg("Subscribe failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.Events():
			if !ok {
				log.Info().Msg("Connection closed")
				return
			}
			if ev.Type != handler.EventTurn {
				continue
			}
			t, err := ev.Turn()
			if err != nil {
				log.Warn().Err(err).Msg("Bad turn event")
				continue
			}
			fmt.Printf("turn %4d  fleet %3d  cmds %3d  skipped %2d  %.1fms  %v\n",
				t.Turn, t.Fleet, t.Commands, t.Skipped, t.ElapsedMs, t.Roles)
		}
	}
}
