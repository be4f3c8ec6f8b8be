package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/fleetbot/internal/config"
	"github.com/freeeve/fleetbot/internal/handler"
	"github.com/freeeve/fleetbot/internal/logger"
	"github.com/freeeve/fleetbot/internal/middleware"
	"github.com/freeeve/fleetbot/internal/repository/postgres"
	redisrepo "github.com/freeeve/fleetbot/internal/repository/redis"
	"github.com/freeeve/fleetbot/internal/service"
)

func main() {
	logger.Init(os.Stdout)
	cfg := config.Load()
	log.Info().Str("port", cfg.Port).Str("channel", cfg.TelemetryChannel).Msg("Config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.Pool{MaxOpen: cfg.DBMaxConns})
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()
	matchRepo := postgres.NewMatchRepo(db)

	// Redis
	if cfg.RedisURL == "" {
		log.Fatal().Msg("REDIS_URL is required")
	}
	redisClient, err := redisrepo.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// WebSocket hub and relay
	wsHub := handler.NewHub()
	relay := service.NewTurnRelay(redisClient.Underlying(), cfg.TelemetryChannel, wsHub)

	// Handlers
	matchHandler := handler.NewMatchHandler(matchRepo, redisClient)
	wsHandler := handler.NewWSHandler(wsHub, redisClient)

	// Router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	api := http.NewServeMux()
	matchHandler.Routes(api)
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", api))
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go relay.Start(ctx)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
