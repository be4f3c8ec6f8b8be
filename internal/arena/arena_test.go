package arena

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/freeeve/fleetbot/internal/config"
	"github.com/freeeve/fleetbot/internal/model"
)

const sampleOutput = `{"error_logs":{},"map_generator":"Default","map_height":160,"map_seed":1234,"map_width":240,` +
	`"replay":"replay-20260101-1234.hlt","stats":{"0":{"rank":1,"last_frame_alive":187},"1":{"rank":2,"last_frame_alive":143}}}`

func TestParseOutput(t *testing.T) {
	r, err := ParseOutput([]byte(sampleOutput))
	if err != nil {
		t.Fatalf("ParseOutput: %v", err)
	}
	if r.Rank != 1 || !r.Won() {
		t.Errorf("rank: got %d", r.Rank)
	}
	if r.Seed != 1234 || r.Width != 240 || r.Height != 160 || r.Players != 2 {
		t.Errorf("unexpected result: %+v", r)
	}
	if r.Turns != 187 || r.Replay != "replay-20260101-1234.hlt" {
		t.Errorf("turns/replay: %d %q", r.Turns, r.Replay)
	}
}

func TestParseOutputErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"not json", "Map seed is 1234", nil},
		{"no player 0", `{"stats":{"1":{"rank":1}}}`, ErrNoStats},
		{"no stats", `{}`, ErrNoStats},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOutput([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMatchConfigArgs(t *testing.T) {
	cfg := MatchConfig{Width: 240, Height: 160, Seed: 7, Bots: []string{"./fleetbot", "./opponent"}}
	want := []string{"-r", "-q", "-d", "240 160", "-s", "7", "./fleetbot", "./opponent"}
	if got := cfg.Args(); !slices.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}

	cfg.Seed = 0
	if got := cfg.Args(); slices.Contains(got, "-s") {
		t.Errorf("unseeded args should omit -s: %q", got)
	}
}

// TestHelperProcess stands in for the engine binary.
func TestHelperProcess(t *testing.T) {
	switch os.Getenv("ARENA_HELPER") {
	case "":
		return
	case "ok":
		fmt.Print(sampleOutput)
		os.Exit(0)
	default:
		fmt.Fprint(os.Stderr, "engine crashed")
		os.Exit(3)
	}
}

func fakeEngine(mode string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "ARENA_HELPER="+mode)
		return cmd
	}
}

func TestRunMatch(t *testing.T) {
	defer func() { commandContext = exec.CommandContext }()
	cfg := MatchConfig{Binary: "halite", Width: 240, Height: 160, Bots: []string{"a", "b"}, Label: "baseline"}

	t.Run("ok", func(t *testing.T) {
		commandContext = fakeEngine("ok")
		r, err := RunMatch(context.Background(), cfg)
		if err != nil {
			t.Fatalf("RunMatch: %v", err)
		}
		if r.ID == "" || r.Label != "baseline" || r.Rank != 1 {
			t.Errorf("unexpected result: %+v", r)
		}
	})

	t.Run("engine failure", func(t *testing.T) {
		commandContext = fakeEngine("fail")
		if _, err := RunMatch(context.Background(), cfg); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("one bot", func(t *testing.T) {
		one := cfg
		one.Bots = []string{"a"}
		if _, err := RunMatch(context.Background(), one); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestRunBatch(t *testing.T) {
	var mu sync.Mutex
	var seeds []int64
	run := func(_ context.Context, cfg MatchConfig) (*model.MatchResult, error) {
		mu.Lock()
		seeds = append(seeds, cfg.Seed)
		mu.Unlock()
		switch cfg.Seed % 4 {
		case 0:
			return nil, errors.New("engine crashed")
		case 1:
			return &model.MatchResult{Rank: 1}, nil
		}
		return &model.MatchResult{Rank: 2}, nil
	}

	var callbacks int
	var cbMu sync.Mutex
	results, stats := RunBatch(context.Background(), BatchConfig{
		Match:   MatchConfig{Seed: 100},
		Games:   8,
		Workers: 3,
	}, run, func(int, *model.MatchResult) {
		cbMu.Lock()
		callbacks++
		cbMu.Unlock()
	})

	slices.Sort(seeds)
	if len(seeds) != 8 || seeds[0] != 100 || seeds[7] != 107 {
		t.Errorf("seeds: %v", seeds)
	}
	if stats.Errors != 2 || stats.Games != 6 || stats.Wins != 2 {
		t.Errorf("stats: %+v", stats)
	}
	if callbacks != 6 {
		t.Errorf("callbacks: got %d, want 6", callbacks)
	}
	if results[0] != nil || results[1] == nil {
		t.Errorf("results not indexed by game: %v", results)
	}
}

func TestStats(t *testing.T) {
	tests := []struct {
		name   string
		stats  Stats
		rate   float64
		margin float64
	}{
		{"empty", Stats{}, 0, 0},
		{"all wins", Stats{Games: 10, Wins: 10}, 1, 0},
		{"half", Stats{Games: 100, Wins: 50}, 0.5, 0.098},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.WinRate(); got != tt.rate {
				t.Errorf("WinRate: got %v, want %v", got, tt.rate)
			}
			if got := tt.stats.ErrorMargin(); math.Abs(got-tt.margin) > 1e-9 {
				t.Errorf("ErrorMargin: got %v, want %v", got, tt.margin)
			}
		})
	}
}

func TestRandomStep(t *testing.T) {
	base := config.DefaultTuning()
	knobs := DefaultKnobs()

	a := RandomStep(newRand(42), base, knobs)
	b := RandomStep(newRand(42), base, knobs)
	if a != b {
		t.Error("same seed should give the same step")
	}
	if err := a.Validate(); err != nil {
		t.Errorf("step produced invalid tuning: %v", err)
	}

	r := newRand(7)
	moved := false
	for range 20 {
		next := RandomStep(r, base, knobs)
		if d := math.Abs(next.DefenderRadius - base.DefenderRadius); d != 0 && d != 1 {
			t.Fatalf("defender radius moved by %v", d)
		}
		if next != base {
			moved = true
		}
	}
	if !moved {
		t.Error("20 steps never moved the tuning")
	}
}

func TestRandomStepKeepsBaseWhenNothingValidates(t *testing.T) {
	base := config.DefaultTuning()
	bad := []Knob{floatKnob("angular_step", 0, func(t *config.Tuning) *float64 { return &t.AngularStep })}
	base.AngularStep = 0
	if got := RandomStep(newRand(1), base, bad); got != base {
		t.Errorf("expected base back, got %+v", got)
	}
}

func TestSearchKeepsBest(t *testing.T) {
	dir := t.TempDir()
	best := filepath.Join(dir, "best.yaml")

	// Larger defender radius wins more often.
	eval := func(_ context.Context, path string) (Stats, error) {
		tun, err := config.LoadTuning(path)
		if err != nil {
			return Stats{}, err
		}
		wins := int(math.Max(0, math.Min(100, tun.DefenderRadius*5)))
		return Stats{Games: 100, Wins: wins}, nil
	}

	knobs := []Knob{floatKnob("defender_radius", 1, func(t *config.Tuning) *float64 { return &t.DefenderRadius })}
	base := config.DefaultTuning()
	got, stats, err := Search(context.Background(), SearchConfig{
		Loops:    30,
		Seed:     3,
		Knobs:    knobs,
		WorkDir:  dir,
		BestPath: best,
	}, base, eval)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got.DefenderRadius <= base.DefenderRadius {
		t.Errorf("search never improved: radius %v", got.DefenderRadius)
	}
	if stats.WinRate() != got.DefenderRadius*5/100 {
		t.Errorf("stats do not match best tuning: %+v vs %v", stats, got.DefenderRadius)
	}

	saved, err := config.LoadTuning(best)
	if err != nil {
		t.Fatalf("load best: %v", err)
	}
	if saved.DefenderRadius != got.DefenderRadius {
		t.Errorf("saved radius %v, want %v", saved.DefenderRadius, got.DefenderRadius)
	}
}

func TestWithTuning(t *testing.T) {
	got := WithTuning([]string{"./fleetbot -tuning {tuning}", "./opponent"}, "/tmp/c.yaml")
	want := []string{"./fleetbot -tuning /tmp/c.yaml", "./opponent"}
	if !slices.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}
