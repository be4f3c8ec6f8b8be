package bot

import (
	"math"

	"github.com/freeeve/fleetbot/internal/squad"
	"github.com/freeeve/fleetbot/pkg/hlt"
)

// runPolicies runs each role's targeting in a fixed order. Units demoted by
// an earlier policy (an ASSASSIN with no victim, say) are picked up by the
// later one in the same turn.
func (o *Orchestrator) runPolicies() {
	o.conquerorPolicy()
	o.assassinPolicy()
	o.attackerPolicy()
	o.defenderPolicy()
	o.minerPolicy()
}

// defendAgainstNearby turns d into a DEFENDER aimed at the closest enemy
// within radius. Only units with defense time left respond to proximity.
func (o *Orchestrator) defendAgainstNearby(d *Drone, radius float64) bool {
	if d.DefenseTimer <= 0 {
		return false
	}
	enemy, dist, ok := o.state.Snap.NearestEnemy(d.Ship().Circle(), radius)
	if !ok {
		return false
	}
	o.state.Roster.SetRole(d, RoleDefender)
	d.Assign(ShipTarget(enemy.ID, dist))
	return true
}

// conquerorPolicy sends conquerors to free sites, docking them once in range.
// Each site takes at most a share of the conquerors, and never more than
// its free docking spots.
func (o *Orchestrator) conquerorPolicy() {
	s := o.state
	r := s.Roster
	conquerors := r.WithRole(RoleConqueror)
	if len(conquerors) == 0 {
		return
	}

	free := s.Snap.FreeSites()
	if len(free) == 0 {
		for _, d := range conquerors {
			r.SetRole(d, RoleAttacker)
		}
		return
	}

	limit := int(math.Ceil(o.tuning.MaxRatioShipPerPlanet * float64(len(conquerors))))
	assigned := make(map[int]int, len(free))
	for _, d := range conquerors {
		if t := d.Target(); t.Kind == TargetSite {
			assigned[t.ID]++
		}
	}

	for _, d := range conquerors {
		if o.defendAgainstNearby(d, o.tuning.DefenderRadius) {
			continue
		}

		if t := d.Target(); t.Kind == TargetSite {
			o.dockIfInRange(d, t.ID)
			continue
		}

		var best *hlt.Planet
		bestDist := 0.0
		for _, site := range free {
			if assigned[site.ID] >= min(limit, max(site.AvailableSpots(), 1)) {
				continue
			}
			dist := hlt.Distance(d.Ship().Circle(), site.Circle())
			if best == nil || dist < bestDist {
				best, bestDist = site, dist
			}
		}
		if best == nil {
			// Every free site is at its cap. Stay a conqueror and retry
			// next turn.
			continue
		}
		assigned[best.ID]++
		d.Assign(SiteTarget(best.ID, bestDist))
		o.dockIfInRange(d, best.ID)
	}
}

// dockIfInRange turns a conqueror next to its site into a MINER.
func (o *Orchestrator) dockIfInRange(d *Drone, siteID int) {
	site, err := o.state.Snap.Site(siteID)
	if err != nil {
		d.ClearTarget()
		return
	}
	if d.Ship().DockingStatus != hlt.Undocked || !d.Ship().CanDock(site) {
		return
	}
	o.state.Roster.SetRole(d, RoleMiner)
	d.Assign(DockingTarget(site.ID))
}

// assassinPolicy hunts the nemesis's docked units.
func (o *Orchestrator) assassinPolicy() {
	s := o.state
	nemesis, found := s.Scorer.Nemesis()
	for _, d := range s.Roster.WithRole(RoleAssassin) {
		if d.Target().IsSet() {
			continue
		}
		if found {
			victim, dist, ok := s.Snap.NearestShipOf(nemesis, d.Ship().Circle(), func(ship *hlt.Ship) bool {
				return ship.DockingStatus != hlt.Undocked
			})
			if ok {
				d.Assign(ShipTarget(victim.ID, dist))
				continue
			}
		}
		s.Roster.SetRole(d, RoleAttacker)
	}
}

// attackerPolicy engages anything inside the reaction radius, otherwise
// keeps its target or goes after the nemesis.
func (o *Orchestrator) attackerPolicy() {
	s := o.state
	nemesis, found := s.Scorer.Nemesis()
	for _, d := range s.Roster.WithRole(RoleAttacker) {
		from := d.Ship().Circle()
		if enemy, dist, ok := s.Snap.NearestEnemy(from, o.tuning.DefenderRadius); ok {
			d.Assign(ShipTarget(enemy.ID, dist))
			continue
		}
		if d.Target().IsSet() {
			continue
		}
		if s.Influence != nil {
			intruder, dist, ok := o.nearestIntruder(from)
			if ok {
				d.Assign(ShipTarget(intruder.ID, dist))
				continue
			}
		}
		if found {
			if enemy, dist, ok := s.Snap.NearestShipOf(nemesis, from, nil); ok {
				d.Assign(o.chase(from, enemy, dist))
				continue
			}
		}
		if enemy, dist, ok := s.Snap.NearestEnemy(from, -1); ok {
			d.Assign(o.chase(from, enemy, dist))
		}
	}
}

// chase targets enemy directly, or, when it is far and moving, the point it
// will reach by the time we could close the gap at full speed.
func (o *Orchestrator) chase(from hlt.Circle, enemy *hlt.Ship, dist float64) Target {
	s := o.state
	v, moving := s.motion[enemy.ID]
	if o.tuning.FollowDistance <= 0 || dist <= o.tuning.FollowDistance || !moving || v == (hlt.Point{}) {
		return ShipTarget(enemy.ID, dist)
	}
	turns := min(math.Ceil(dist/hlt.MaxSpeed), float64(o.tuning.FollowTurns))
	lead := hlt.Point{
		X: math.Max(0, math.Min(float64(s.Snap.Width), enemy.X+v.X*turns)),
		Y: math.Max(0, math.Min(float64(s.Snap.Height), enemy.Y+v.Y*turns)),
	}
	return PositionTarget(lead, hlt.Distance(from, hlt.At(lead)))
}

// nearestIntruder returns the closest enemy standing inside our zone of
// control.
func (o *Orchestrator) nearestIntruder(from hlt.Circle) (*hlt.Ship, float64, bool) {
	s := o.state
	var best *hlt.Ship
	bestDist := 0.0
	for _, ship := range s.Snap.AllShips() {
		if ship.Owner == s.Me || !s.Influence.Contains(ship.Pos()) {
			continue
		}
		dist := hlt.Distance(from, ship.Circle())
		if best == nil || dist < bestDist {
			best, bestDist = ship, dist
		}
	}
	return best, bestDist, best != nil
}

// defenderPolicy undocks docked defenders; the rest spend a turn of their
// timer chasing the nearest enemy.
func (o *Orchestrator) defenderPolicy() {
	s := o.state
	for _, d := range s.Roster.WithRole(RoleDefender) {
		if d.Ship().DockingStatus != hlt.Undocked {
			if d.Target().Kind != TargetUndocking {
				d.Assign(UndockingTarget())
			}
			continue
		}
		if d.DefenseTimer > 0 {
			d.DefenseTimer--
		}
		if d.Target().Kind == TargetShip {
			continue
		}
		if enemy, dist, ok := s.Snap.NearestEnemy(d.Ship().Circle(), -1); ok {
			d.Assign(ShipTarget(enemy.ID, dist))
		} else {
			d.ClearTarget()
		}
	}
}

// minerPolicy lets miners respond to close threats when allowed.
func (o *Orchestrator) minerPolicy() {
	if !o.tuning.MinerCanDefend {
		return
	}
	for _, d := range o.state.Roster.WithRole(RoleMiner) {
		o.defendAgainstNearby(d, o.tuning.MinerDefenderRadius)
	}
}

// applySquads makes squad followers share their leader's target.
func (o *Orchestrator) applySquads() {
	if !o.tuning.CreateSquad {
		return
	}
	s := o.state
	attackers := s.Roster.WithRole(RoleAttacker)
	candidates := make([]squad.Member, len(attackers))
	for i, d := range attackers {
		candidates[i] = d
	}
	s.Squads.Update(candidates)

	for _, sq := range s.Squads.Squads() {
		leader := sq.Leader().(*Drone)
		t := leader.Target()
		if t.Kind != TargetShip && t.Kind != TargetPosition {
			continue
		}
		dest, ok := o.targetCircle(t)
		if !ok {
			continue
		}
		for _, m := range sq.Followers() {
			f := m.(*Drone)
			shared := t
			shared.Distance = hlt.Distance(f.Ship().Circle(), dest)
			f.Assign(shared)
		}
	}
}
