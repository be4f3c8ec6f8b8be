package arena

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/fleetbot/internal/model"
)

// confidenceFactor gives a 95% interval.
const confidenceFactor = 1.96

// BatchConfig runs Games matches with at most Workers in flight.
type BatchConfig struct {
	Match   MatchConfig
	Games   int
	Workers int
}

// Stats aggregates a batch.
type Stats struct {
	Games  int `json:"games"`
	Wins   int `json:"wins"`
	Errors int `json:"errors"`
}

// WinRate returns the fraction of completed games won.
func (s Stats) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Games)
}

// ErrorMargin returns the half-width of the 95% interval on WinRate.
func (s Stats) ErrorMargin() float64 {
	if s.Games == 0 {
		return 0
	}
	p := s.WinRate()
	return math.Sqrt(p*(1-p)/float64(s.Games)) * confidenceFactor
}

// Add folds one finished match into the stats.
func (s *Stats) Add(r *model.MatchResult) {
	s.Games++
	if r.Won() {
		s.Wins++
	}
}

// MatchFunc runs one match. RunMatch is the production implementation.
type MatchFunc func(ctx context.Context, cfg MatchConfig) (*model.MatchResult, error)

// RunBatch plays the batch on a bounded worker pool. Seeds, when set, are
// offset by the game index so a batch is reproducible. onResult, if not
// nil, is called for every finished match from the worker goroutines.
func RunBatch(ctx context.Context, cfg BatchConfig, run MatchFunc, onResult func(idx int, r *model.MatchResult)) ([]*model.MatchResult, Stats) {
	results := make([]*model.MatchResult, cfg.Games)
	var stats Stats
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, max(cfg.Workers, 1))

	for i := 0; i < cfg.Games; i++ {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			mcfg := cfg.Match
			if mcfg.Seed != 0 {
				mcfg.Seed += int64(idx)
			}

			result, err := run(ctx, mcfg)
			if err != nil {
				log.Error().Err(err).Int("game", idx+1).Msg("Match failed")
				mu.Lock()
				stats.Errors++
				mu.Unlock()
				return
			}

			mu.Lock()
			results[idx] = result
			stats.Add(result)
			log.Info().
				Int("game", idx+1).
				Int("rank", result.Rank).
				Int("wins", stats.Wins).
				Int("played", stats.Games).
				Float64("winRate", stats.WinRate()).
				Float64("margin", stats.ErrorMargin()).
				Msg("Match completed")
			mu.Unlock()

			if onResult != nil {
				onResult(idx, result)
			}
		}(i)
	}

	wg.Wait()
	return results, stats
}
