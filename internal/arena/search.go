package arena

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/fleetbot/internal/config"
)

// TuningPlaceholder in a bot command is replaced by the candidate tuning
// file during a search.
const TuningPlaceholder = "{tuning}"

// Knob is one searchable tunable. Numeric knobs move by -Delta, 0 or
// +Delta per step; boolean knobs are redrawn.
type Knob struct {
	Name  string
	Delta float64
	get   func(*config.Tuning) float64
	set   func(*config.Tuning, float64)
	flip  func(*config.Tuning, bool)
}

func floatKnob(name string, delta float64, field func(*config.Tuning) *float64) Knob {
	return Knob{
		Name:  name,
		Delta: delta,
		get:   func(t *config.Tuning) float64 { return *field(t) },
		set:   func(t *config.Tuning, v float64) { *field(t) = v },
	}
}

func intKnob(name string, delta int, field func(*config.Tuning) *int) Knob {
	return Knob{
		Name:  name,
		Delta: float64(delta),
		get:   func(t *config.Tuning) float64 { return float64(*field(t)) },
		set:   func(t *config.Tuning, v float64) { *field(t) = int(v) },
	}
}

func boolKnob(name string, field func(*config.Tuning) *bool) Knob {
	return Knob{Name: name, flip: func(t *config.Tuning, v bool) { *field(t) = v }}
}

// DefaultKnobs are the tunables the search explores.
func DefaultKnobs() []Knob {
	return []Knob{
		floatKnob("ghost_ratio_radius", 0.1, func(t *config.Tuning) *float64 { return &t.GhostRatioRadius }),
		floatKnob("ship_influence", 1, func(t *config.Tuning) *float64 { return &t.ShipInfluence }),
		floatKnob("planet_influence", 1, func(t *config.Tuning) *float64 { return &t.PlanetInfluence }),
		intKnob("influence_step", 1, func(t *config.Tuning) *int { return &t.InfluenceStep }),
		floatKnob("squad_distance_creation", 1, func(t *config.Tuning) *float64 { return &t.SquadDistanceCreation }),
		floatKnob("follow_distance", 2, func(t *config.Tuning) *float64 { return &t.FollowDistance }),
		floatKnob("defender_radius", 1, func(t *config.Tuning) *float64 { return &t.DefenderRadius }),
		floatKnob("max_ratio_ship_attackers", 0.05, func(t *config.Tuning) *float64 { return &t.MaxRatioShipAttackers }),
		intKnob("max_turn_defender", 1, func(t *config.Tuning) *int { return &t.MaxTurnDefender }),
		boolKnob("use_influence", func(t *config.Tuning) *bool { return &t.UseInfluence }),
		boolKnob("create_squad", func(t *config.Tuning) *bool { return &t.CreateSquad }),
	}
}

// maxStepAttempts bounds redraws when a step lands outside valid ranges.
const maxStepAttempts = 20

// RandomStep returns a neighbour of base. Steps that fail validation are
// redrawn; if none validates, base is returned unchanged.
func RandomStep(r *rand.Rand, base config.Tuning, knobs []Knob) config.Tuning {
	for range maxStepAttempts {
		next := base
		for _, k := range knobs {
			if k.flip != nil {
				k.flip(&next, coin(r))
				continue
			}
			k.set(&next, k.get(&next)+k.Delta*step(r))
		}
		if next.Validate() == nil {
			return next
		}
	}
	return base
}

// Evaluator plays a batch with the tuning stored at path.
type Evaluator func(ctx context.Context, tuningPath string) (Stats, error)

// SearchConfig drives a random-step search.
type SearchConfig struct {
	Loops    int
	Seed     int64
	Knobs    []Knob
	WorkDir  string // candidate tuning files are written here
	BestPath string // best tuning is saved here on every improvement
}

// Search runs Loops candidates, each one random step from the best so far,
// and returns the best tuning with its stats. base is scored first.
func Search(ctx context.Context, cfg SearchConfig, base config.Tuning, eval Evaluator) (config.Tuning, Stats, error) {
	r := newRand(cfg.Seed)
	knobs := cfg.Knobs
	if knobs == nil {
		knobs = DefaultKnobs()
	}
	candidatePath := filepath.Join(cfg.WorkDir, "candidate.yaml")

	score := func(t config.Tuning) (Stats, error) {
		if err := config.SaveTuning(candidatePath, t); err != nil {
			return Stats{}, err
		}
		return eval(ctx, candidatePath)
	}

	best := base
	bestStats, err := score(base)
	if err != nil {
		return base, Stats{}, fmt.Errorf("score base tuning: %w", err)
	}
	log.Info().Float64("winRate", bestStats.WinRate()).Msg("Base tuning scored")

	for loop := 0; loop < cfg.Loops && ctx.Err() == nil; loop++ {
		candidate := RandomStep(r, best, knobs)
		stats, err := score(candidate)
		if err != nil {
			log.Error().Err(err).Int("loop", loop).Msg("Candidate evaluation failed")
			continue
		}
		log.Info().
			Int("loop", loop).
			Float64("winRate", stats.WinRate()).
			Float64("margin", stats.ErrorMargin()).
			Float64("best", bestStats.WinRate()).
			Msg("Candidate scored")

		if stats.WinRate() <= bestStats.WinRate() {
			continue
		}
		best, bestStats = candidate, stats
		if cfg.BestPath != "" {
			if err := config.SaveTuning(cfg.BestPath, best); err != nil {
				return best, bestStats, fmt.Errorf("save best tuning: %w", err)
			}
		}
	}
	return best, bestStats, nil
}

// WithTuning substitutes the tuning placeholder in bot commands.
func WithTuning(bots []string, path string) []string {
	out := make([]string, len(bots))
	for i, b := range bots {
		out[i] = strings.ReplaceAll(b, TuningPlaceholder, path)
	}
	return out
}

// TempDir creates a scratch directory for candidate files.
func TempDir() (string, error) {
	return os.MkdirTemp("", "fleetbot-search-")
}
