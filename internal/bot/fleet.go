package bot

import (
	"github.com/freeeve/fleetbot/internal/config"
	"github.com/freeeve/fleetbot/internal/influence"
	"github.com/freeeve/fleetbot/internal/nav"
	"github.com/freeeve/fleetbot/internal/squad"
	"github.com/freeeve/fleetbot/internal/world"
	"github.com/freeeve/fleetbot/pkg/hlt"
)

// FleetState is everything the bot carries from one turn to the next, plus
// the current turn's read-only views. One Orchestrator owns one FleetState;
// nothing in it is global, so several matches can run in one process.
type FleetState struct {
	Me     int
	Turn   int
	Roster *Roster

	Snap      *world.Snapshot
	Scorer    *world.Scorer
	Solver    *nav.Solver
	Influence *influence.Field
	Squads    *squad.Manager

	// Enemy positions last turn and the displacement since, by ship id.
	lastSeen map[int]hlt.Point
	motion   map[int]hlt.Point

	dead int
	born int
}

// NewFleetState creates the state for faction me.
func NewFleetState(me int, t config.Tuning) *FleetState {
	return &FleetState{
		Me:     me,
		Roster: NewRoster(t.MaxTurnDefender),
		Scorer: world.NewScorer(world.Weights{
			Ship:      t.ShipWeight,
			Planet:    t.PlanetWeight,
			Proximity: t.ProximityWeight,
		}),
		Solver: nav.NewSolver(nav.Options{
			GhostRatioRadius:    t.GhostRatioRadius,
			ShipHorizon:         t.NavigationShipDistance,
			IntermediateRatio:   t.IntermediateRatio,
			FallbackCorrections: t.FallbackCorrections,
		}),
		Squads:   squad.NewManager(t.SquadSize, t.SquadDistanceCreation),
		lastSeen: make(map[int]hlt.Point),
		motion:   make(map[int]hlt.Point),
	}
}

// trackEnemies records how far every enemy moved since the previous turn.
// Ships seen for the first time have no motion yet.
func (s *FleetState) trackEnemies() {
	seen := make(map[int]hlt.Point, len(s.lastSeen))
	clear(s.motion)
	for _, ship := range s.Snap.AllShips() {
		if ship.Owner == s.Me {
			continue
		}
		pos := ship.Pos()
		if prev, ok := s.lastSeen[ship.ID]; ok {
			s.motion[ship.ID] = hlt.Point{X: pos.X - prev.X, Y: pos.Y - prev.Y}
		}
		seen[ship.ID] = pos
	}
	s.lastSeen = seen
}
