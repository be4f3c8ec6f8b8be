package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/fleetbot/internal/config"
	"github.com/freeeve/fleetbot/internal/influence"
	"github.com/freeeve/fleetbot/internal/model"
	"github.com/freeeve/fleetbot/internal/world"
	"github.com/freeeve/fleetbot/pkg/hlt"
)

// Orchestrator runs the per-turn pipeline for one faction. Steps run in a
// fixed order and each completes before the next begins: roles are settled
// before targets are chosen, and targets before any navigation.
type Orchestrator struct {
	tuning config.Tuning
	state  *FleetState
	now    func() time.Time
	log    zerolog.Logger

	// Verify checks the role index after every turn and panics on drift.
	Verify bool
}

// NewOrchestrator creates an Orchestrator for faction me.
func NewOrchestrator(me int, t config.Tuning) *Orchestrator {
	return &Orchestrator{
		tuning: t,
		state:  NewFleetState(me, t),
		now:    time.Now,
		log:    log.Logger.With().Int("player", me).Logger(),
	}
}

// SetLogger replaces the orchestrator's logger.
func (o *Orchestrator) SetLogger(l zerolog.Logger) { o.log = l }

// State exposes the fleet state, read-only between turns.
func (o *Orchestrator) State() *FleetState { return o.state }

// PlayTurn runs every step for one map and returns the commands to send.
// start is when the turn's map arrived; the deadline is measured from it.
func (o *Orchestrator) PlayTurn(start time.Time, m *hlt.Map) ([]hlt.Command, model.TurnReport) {
	deadline := start.Add(o.tuning.MaxTurnDuration)

	o.ingest(m)
	o.reconcileDeaths()
	o.reconcileBirths()
	o.validateTargets()
	o.detectDamage()
	o.sweepDefenders()
	o.releaseStrandedMiners()
	o.assignIdle()
	o.runPolicies()
	o.applySquads()
	cmds, skipped := o.serializeCommands(deadline)

	if o.Verify {
		if err := o.state.Roster.Verify(); err != nil {
			panic(fmt.Sprintf("bot: turn %d: %v", o.state.Turn, err))
		}
	}

	elapsed := o.now().Sub(start)
	report := model.TurnReport{
		Player:    o.state.Me,
		Turn:      o.state.Turn,
		ElapsedMs: float64(elapsed.Microseconds()) / 1000,
		Fleet:     o.state.Roster.Len(),
		Roles:     o.state.Roster.RoleCounts(),
		Commands:  len(cmds),
		Skipped:   skipped,
		Dead:      o.state.dead,
		Born:      o.state.born,
		Squads:    len(o.state.Squads.Squads()),
		At:        start,
	}
	if n, ok := o.state.Scorer.Nemesis(); ok {
		report.Nemesis = &n
	}

	o.log.Debug().
		Int("turn", report.Turn).
		Int("fleet", report.Fleet).
		Int("commands", report.Commands).
		Dur("elapsed", elapsed).
		Msg("Turn played")
	return cmds, report
}

// ingest builds the turn's snapshot and resets every per-turn cache.
func (o *Orchestrator) ingest(m *hlt.Map) {
	s := o.state
	s.Turn++
	s.dead, s.born = 0, 0
	s.Snap = world.Ingest(m, s.Me)
	s.Scorer.Reset(s.Snap)
	s.Solver.Reset(s.Snap)
	s.trackEnemies()
	s.Influence = nil
	if o.tuning.UseInfluence {
		s.Influence = influence.Build(s.Snap, influence.Options{
			ShipInfluence:   o.tuning.ShipInfluence,
			PlanetInfluence: o.tuning.PlanetInfluence,
			Steps:           o.tuning.InfluenceStep,
			Zone:            o.tuning.InfluenceZone,
			Threshold:       o.tuning.InfluenceThreshold,
		})
	}
}

// reconcileDeaths forgets drones whose unit is gone and points the rest at
// this turn's ship data.
func (o *Orchestrator) reconcileDeaths() {
	s := o.state
	for _, id := range s.Roster.IDs() {
		ship, err := s.Snap.Ship(id)
		if err != nil || ship.Owner != s.Me {
			s.Roster.Remove(id)
			s.dead++
			continue
		}
		d, _ := s.Roster.Get(id)
		d.refresh(ship)
	}
	if s.dead > 0 {
		o.log.Debug().Int("turn", s.Turn).Int("dead", s.dead).Msg("Units lost")
	}
}

// reconcileBirths starts tracking new units as IDLE.
func (o *Orchestrator) reconcileBirths() {
	s := o.state
	for _, ship := range s.Snap.MyShips() {
		if _, ok := s.Roster.Get(ship.ID); ok {
			continue
		}
		s.Roster.Add(ship)
		s.born++
	}
}

// validateTargets clears targets that no longer resolve. Roles are left
// alone.
func (o *Orchestrator) validateTargets() {
	for _, d := range o.state.Roster.All() {
		if d.Target().IsSet() && !o.targetValid(d) {
			d.ClearTarget()
		}
	}
}

func (o *Orchestrator) targetValid(d *Drone) bool {
	snap := o.state.Snap
	t := d.Target()
	switch t.Kind {
	case TargetNone:
		return false
	case TargetShip:
		ship, err := snap.Ship(t.ID)
		return err == nil && ship.Owner != o.state.Me
	case TargetSite:
		site, err := snap.Site(t.ID)
		return err == nil && site.IsFree(o.state.Me)
	case TargetPosition:
		// A rendezvous point only holds for the turn it was picked.
		return d.targetAge == 0
	case TargetDocking:
		site, err := snap.Site(t.ID)
		if err != nil {
			return false
		}
		return d.Ship().DockingStatus != hlt.Undocked || site.IsFree(o.state.Me)
	case TargetUndocking:
		return d.Ship().DockingStatus != hlt.Undocked
	}
	panic(fmt.Sprintf("bot: unhandled target kind %d", t.Kind))
}

// detectDamage sends every damaged unit, other than miners and defenders,
// to DEFENDER.
func (o *Orchestrator) detectDamage() {
	r := o.state.Roster
	for _, d := range r.All() {
		if d.Role() == RoleMiner || d.Role() == RoleDefender {
			continue
		}
		if d.Ship().Health != d.MaxHealth {
			r.SetRole(d, RoleDefender)
		}
	}
}

// sweepDefenders returns defenders whose timer ran out to their previous
// role. Former miners become IDLE since they have left their site.
func (o *Orchestrator) sweepDefenders() {
	r := o.state.Roster
	for _, d := range r.WithRole(RoleDefender) {
		if d.DefenseTimer > 0 {
			continue
		}
		back := d.PreviousRole()
		switch back {
		case RoleMiner, RoleUnknown, RoleDefender:
			back = RoleIdle
		}
		r.SetRole(d, back)
	}
}

// releaseStrandedMiners sends undocked miners that lost their docking
// target, because the site was taken or filled before they got in, back to
// conquering.
func (o *Orchestrator) releaseStrandedMiners() {
	r := o.state.Roster
	for _, d := range r.WithRole(RoleMiner) {
		if d.Ship().DockingStatus == hlt.Undocked && !d.Target().IsSet() {
			r.SetRole(d, RoleConqueror)
		}
	}
}

// assignIdle gives every IDLE unit a role. Offense roles are filled first,
// alternating ATTACKER and ASSASSIN, until both the minimum count and the
// fleet ratio are met; the rest conquer. With no unowned site left there is
// nothing to conquer and everyone attacks.
func (o *Orchestrator) assignIdle() {
	s := o.state
	r := s.Roster
	idle := r.WithRole(RoleIdle)
	if len(idle) == 0 {
		return
	}

	if s.Snap.UnownedCount() == 0 {
		for _, d := range idle {
			r.SetRole(d, RoleAttacker)
		}
		return
	}

	fleet := float64(r.Len())
	i := 0
	for ; i < len(idle); i++ {
		offense := r.Count(RoleAttacker) + r.Count(RoleAssassin)
		if offense >= o.tuning.MinShipAttackers && float64(offense)/fleet >= o.tuning.MaxRatioShipAttackers {
			break
		}
		role := RoleAttacker
		if r.Count(RoleAssassin) < r.Count(RoleAttacker) {
			role = RoleAssassin
		}
		r.SetRole(idle[i], role)
	}
	for ; i < len(idle); i++ {
		r.SetRole(idle[i], RoleConqueror)
	}
}
