// Package arena runs the external game engine for batch evaluation and
// tuning search.
package arena

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/freeeve/fleetbot/internal/model"
)

// ErrNoStats is returned when the engine output carries no result for
// player 0.
var ErrNoStats = errors.New("arena: engine reported no stats for player 0")

// MatchConfig configures one engine run.
type MatchConfig struct {
	Binary string
	Width  int
	Height int
	Seed   int64 // 0 lets the engine pick
	// Bots are engine bot commands; player 0 is the bot under test.
	Bots  []string
	Label string
}

// Args returns the engine command line, without the binary.
func (c MatchConfig) Args() []string {
	args := []string{"-r", "-q", "-d", fmt.Sprintf("%d %d", c.Width, c.Height)}
	if c.Seed != 0 {
		args = append(args, "-s", strconv.FormatInt(c.Seed, 10))
	}
	return append(args, c.Bots...)
}

// engineOutput is the JSON summary the engine prints with -q.
type engineOutput struct {
	MapWidth  int    `json:"map_width"`
	MapHeight int    `json:"map_height"`
	MapSeed   int64  `json:"map_seed"`
	Replay    string `json:"replay"`
	Stats     map[string]struct {
		Rank           int `json:"rank"`
		LastFrameAlive int `json:"last_frame_alive"`
	} `json:"stats"`
}

// ParseOutput decodes the engine summary into a MatchResult for player 0.
func ParseOutput(data []byte) (*model.MatchResult, error) {
	var out engineOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode engine output: %w", err)
	}
	me, ok := out.Stats["0"]
	if !ok {
		return nil, ErrNoStats
	}
	turns := 0
	for _, s := range out.Stats {
		turns = max(turns, s.LastFrameAlive)
	}
	return &model.MatchResult{
		Seed:    out.MapSeed,
		Width:   out.MapWidth,
		Height:  out.MapHeight,
		Players: len(out.Stats),
		Rank:    me.Rank,
		Turns:   turns,
		Replay:  out.Replay,
	}, nil
}

// commandContext is swapped in tests.
var commandContext = exec.CommandContext

// RunMatch runs one game to completion and returns player 0's result.
func RunMatch(ctx context.Context, cfg MatchConfig) (*model.MatchResult, error) {
	if len(cfg.Bots) < 2 {
		return nil, fmt.Errorf("arena: need at least 2 bots, got %d", len(cfg.Bots))
	}

	start := time.Now()
	cmd := commandContext(ctx, cfg.Binary, cfg.Args()...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run engine: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	result, err := ParseOutput(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	result.ID = uuid.NewString()
	result.Label = cfg.Label
	result.DurationMs = time.Since(start).Milliseconds()
	if result.Seed == 0 {
		result.Seed = cfg.Seed
	}
	if result.Width == 0 {
		result.Width, result.Height = cfg.Width, cfg.Height
	}
	return result, nil
}
