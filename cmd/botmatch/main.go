package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/fleetbot/internal/arena"
	"github.com/freeeve/fleetbot/internal/config"
	"github.com/freeeve/fleetbot/internal/model"
	"github.com/freeeve/fleetbot/internal/repository/postgres"
)

// botList collects repeated -bot flags.
type botList []string

func (b *botList) String() string     { return strings.Join(*b, ", ") }
func (b *botList) Set(v string) error { *b = append(*b, v); return nil }

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	cfg := config.Load()

	var (
		bots       botList
		numGames   int
		workers    int
		dbURL      string
		label      string
		size       string
		halite     string
		seed       int64
		dryRun     bool
		jsonOut    bool
		searchN    int
		tuningPath string
		bestPath   string
	)

	flag.Var(&bots, "bot", "Bot command, repeat per player; player 0 is under test. {tuning} is replaced with the tuning file")
	flag.IntVar(&numGames, "n", 10, "Number of games to run (per candidate when searching)")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel games)")
	flag.StringVar(&dbURL, "db", "", "Database URL (or use DATABASE_URL env)")
	flag.StringVar(&label, "label", "botmatch", "Label stored with every match")
	flag.StringVar(&size, "size", "240x160", "Map size WxH")
	flag.StringVar(&halite, "halite", cfg.HaliteBinary, "Engine binary")
	flag.Int64Var(&seed, "seed", 0, "Base seed (0 = random)")
	flag.BoolVar(&dryRun, "dry-run", false, "Skip database writes")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")
	flag.IntVar(&searchN, "search", 0, "Run a tuning search with this many candidates")
	flag.StringVar(&tuningPath, "tuning", cfg.TuningPath, "Tuning to evaluate, or the search starting point")
	flag.StringVar(&bestPath, "best", "best_tuning.yaml", "Where the search saves its best tuning")
	flag.Parse()

	if len(bots) < 2 {
		log.Fatal().Msg("At least two -bot commands are required")
	}
	var width, height int
	if _, err := fmt.Sscanf(size, "%dx%d", &width, &height); err != nil {
		log.Fatal().Err(err).Str("size", size).Msg("Invalid map size")
	}

	if dbURL == "" {
		dbURL = cfg.DatabaseURL
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	var matchRepo *postgres.MatchRepo
	if !dryRun {
		// One connection per worker plus one for the summary queries.
		db, err := postgres.Connect(ctx, dbURL, postgres.Pool{MaxOpen: workers + 1})
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		matchRepo = postgres.NewMatchRepo(db)
	}

	base := arena.MatchConfig{
		Binary: halite,
		Width:  width,
		Height: height,
		Seed:   seed,
		Label:  label,
	}

	tuning, err := config.LoadTuning(tuningPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Tuning load failed")
	}

	evaluate := func(ctx context.Context, path string) ([]*model.MatchResult, arena.Stats, error) {
		t, err := config.LoadTuning(path)
		if err != nil {
			return nil, arena.Stats{}, err
		}
		raw, _ := json.Marshal(t)

		mcfg := base
		mcfg.Bots = arena.WithTuning(bots, path)
		results, stats := arena.RunBatch(ctx, arena.BatchConfig{
			Match:   mcfg,
			Games:   numGames,
			Workers: workers,
		}, arena.RunMatch, func(idx int, r *model.MatchResult) {
			if matchRepo == nil {
				return
			}
			r.Tuning = raw
			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := matchRepo.Create(saveCtx, r); err != nil {
				log.Error().Err(err).Int("game", idx+1).Msg("Failed to save match")
			}
		})
		return results, stats, nil
	}

	if searchN > 0 {
		runSearch(ctx, searchN, seed, bestPath, tuning, evaluate)
		return
	}

	path := tuningPath
	if path == "" {
		dir, err := arena.TempDir()
		if err != nil {
			log.Fatal().Err(err).Msg("Temp dir failed")
		}
		defer os.RemoveAll(dir)
		path = filepath.Join(dir, "tuning.yaml")
		if err := config.SaveTuning(path, tuning); err != nil {
			log.Fatal().Err(err).Msg("Tuning save failed")
		}
	}

	results, stats, err := evaluate(ctx, path)
	if err != nil {
		log.Fatal().Err(err).Msg("Evaluation failed")
	}
	if jsonOut {
		printJSON(results, stats)
	} else {
		printSummary(stats, label, dryRun)
	}
}

type evaluator func(ctx context.Context, path string) ([]*model.MatchResult, arena.Stats, error)

func runSearch(ctx context.Context, loops int, seed int64, bestPath string, base config.Tuning, evaluate evaluator) {
	dir, err := arena.TempDir()
	if err != nil {
		log.Fatal().Err(err).Msg("Temp dir failed")
	}
	defer os.RemoveAll(dir)

	best, stats, err := arena.Search(ctx, arena.SearchConfig{
		Loops:    loops,
		Seed:     seed,
		WorkDir:  dir,
		BestPath: bestPath,
	}, base, func(ctx context.Context, path string) (arena.Stats, error) {
		_, stats, err := evaluate(ctx, path)
		return stats, err
	})
	if err != nil {
		log.Error().Err(err).Msg("Search failed")
	}
	if err := config.SaveTuning(bestPath, best); err != nil {
		log.Error().Err(err).Msg("Failed to save best tuning")
	}
	fmt.Printf("\nBest tuning: %.2f%% +/- %.2f%% over %d games, saved to %s\n",
		stats.WinRate()*100, stats.ErrorMargin()*100, stats.Games, bestPath)
}

func printSummary(stats arena.Stats, label string, dryRun bool) {
	fmt.Printf("\nResults (%d games):\n", stats.Games)
	if stats.Errors > 0 {
		fmt.Printf("  (%d games failed)\n", stats.Errors)
	}
	fmt.Printf("  %d wins, %.2f%% +/- %.2f%%\n", stats.Wins, stats.WinRate()*100, stats.ErrorMargin()*100)

	if !dryRun && stats.Games > 0 {
		fmt.Printf("\nMatches saved to database under label %q\n", label)
	}
}

func printJSON(results []*model.MatchResult, stats arena.Stats) {
	out := struct {
		arena.Stats
		WinRate     float64              `json:"win_rate"`
		ErrorMargin float64              `json:"error_margin"`
		Results     []*model.MatchResult `json:"results"`
	}{
		Stats:       stats,
		WinRate:     stats.WinRate(),
		ErrorMargin: stats.ErrorMargin(),
		Results:     results,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
