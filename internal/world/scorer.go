package world

import "github.com/freeeve/fleetbot/pkg/hlt"

// Weights combine a faction's size and proximity into a threat score.
// Proximity should be negative so that closer factions score higher.
type Weights struct {
	Ship      float64
	Planet    float64
	Proximity float64
}

// Scorer picks the nemesis: the opposing faction judged most threatening.
// The result is computed at most once per snapshot.
type Scorer struct {
	weights Weights
	snap    *Snapshot

	cached  bool
	nemesis int
	found   bool

	// evaluations counts full score passes; the single-opponent path skips it.
	evaluations int
}

// NewScorer creates a Scorer with the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Reset binds the scorer to a new turn's snapshot and drops the cache.
func (sc *Scorer) Reset(snap *Snapshot) {
	sc.snap = snap
	sc.cached = false
	sc.found = false
	sc.nemesis = 0
}

// Nemesis returns the most threatening opposing faction. The second result
// is false when no opponent has units left.
func (sc *Scorer) Nemesis() (int, bool) {
	if sc.cached {
		return sc.nemesis, sc.found
	}
	sc.nemesis, sc.found = sc.compute()
	sc.cached = true
	return sc.nemesis, sc.found
}

// Score returns a faction's threat score relative to the controlling
// faction. ok is false if the faction has no units.
func (sc *Scorer) Score(faction int) (float64, bool) {
	s := sc.snap
	theirs, ok := s.GravitationalCenter(faction)
	if !ok {
		return 0, false
	}
	dist := 0.0
	if mine, ok := s.GravitationalCenter(s.Me); ok {
		dist = hlt.CenterDistance(mine, theirs)
	}
	score := sc.weights.Ship*float64(len(s.ShipsOf(faction))) +
		sc.weights.Planet*float64(s.OwnedCount(faction)) +
		sc.weights.Proximity*dist
	return score, true
}

func (sc *Scorer) compute() (int, bool) {
	if sc.snap == nil {
		return 0, false
	}
	opponents := sc.snap.Opponents()
	switch len(opponents) {
	case 0:
		return 0, false
	case 1:
		return opponents[0], true
	}

	sc.evaluations++
	best, bestScore, found := 0, 0.0, false
	// Opponents is ascending, so strict > leaves ties on the lowest id.
	for _, f := range opponents {
		score, ok := sc.Score(f)
		if !ok {
			continue
		}
		if !found || score > bestScore {
			best, bestScore, found = f, score, true
		}
	}
	return best, found
}
