package bot

import (
	"fmt"
	"sort"
	"time"

	"github.com/freeeve/fleetbot/internal/nav"
	"github.com/freeeve/fleetbot/pkg/hlt"
)

// serializeCommands turns targets into engine commands. Dock and undock
// orders come first. Moves follow, nearest targets first once the fleet is
// large, and stop when the deadline passes; skipped counts the units left
// without a move.
func (o *Orchestrator) serializeCommands(deadline time.Time) (cmds []hlt.Command, skipped int) {
	var moving []*Drone
	for _, d := range o.state.Roster.All() {
		ship := d.Ship()
		if ship.DockingStatus == hlt.Docking || ship.DockingStatus == hlt.Undocking {
			continue
		}
		t := d.Target()
		switch t.Kind {
		case TargetNone:
		case TargetDocking:
			if ship.DockingStatus == hlt.Undocked {
				cmds = append(cmds, hlt.Dock(d.ID(), t.ID))
			}
		case TargetUndocking:
			if ship.DockingStatus == hlt.Docked {
				cmds = append(cmds, hlt.Undock(d.ID()))
			}
		case TargetShip, TargetSite, TargetPosition:
			if ship.DockingStatus == hlt.Undocked {
				moving = append(moving, d)
			}
		default:
			panic(fmt.Sprintf("bot: unhandled target kind %d", t.Kind))
		}
	}

	moving = o.navigationOrder(moving)

	interval := max(o.tuning.DeadlineCheckInterval, 1)
	for i, d := range moving {
		if i > 0 && i%interval == 0 && o.now().After(deadline) {
			skipped = len(moving) - i
			o.log.Warn().
				Int("turn", o.state.Turn).
				Int("navigated", i).
				Int("skipped", skipped).
				Msg("Turn deadline reached, holding remaining units")
			break
		}
		if cmd, ok := o.move(d); ok {
			cmds = append(cmds, cmd)
		}
	}
	return cmds, skipped
}

// navigationOrder sorts by cached target distance once the fleet outgrows
// the threshold, so the nearest fights get commands before the deadline.
func (o *Orchestrator) navigationOrder(moving []*Drone) []*Drone {
	if len(moving) <= o.tuning.NavSortThreshold {
		return moving
	}
	sort.SliceStable(moving, func(i, j int) bool {
		return moving[i].Target().Distance < moving[j].Target().Distance
	})
	return moving
}

// targetCircle resolves a movement target to its footprint this turn.
func (o *Orchestrator) targetCircle(t Target) (hlt.Circle, bool) {
	snap := o.state.Snap
	switch t.Kind {
	case TargetShip:
		ship, err := snap.Ship(t.ID)
		if err != nil {
			return hlt.Circle{}, false
		}
		return ship.Circle(), true
	case TargetSite:
		site, err := snap.Site(t.ID)
		if err != nil {
			return hlt.Circle{}, false
		}
		return site.Circle(), true
	case TargetPosition:
		return hlt.At(t.Pos), true
	case TargetNone, TargetDocking, TargetUndocking:
		return hlt.Circle{}, false
	}
	panic(fmt.Sprintf("bot: unhandled target kind %d", t.Kind))
}

// move asks the solver for a thrust toward d's target. ok is false when the
// unit holds position this turn.
func (o *Orchestrator) move(d *Drone) (hlt.Command, bool) {
	t := d.Target()
	dest, found := o.targetCircle(t)
	if !found {
		d.ClearTarget()
		return hlt.Command{}, false
	}

	req := nav.Request{
		MoverID:        d.ID(),
		Mover:          d.Ship().Circle(),
		SpeedCap:       hlt.MaxSpeed,
		MaxCorrections: o.tuning.MaxCorrections,
		AngularStep:    o.tuning.AngularStep,
		TargetShip:     nav.NoEntity,
		TargetSite:     nav.NoEntity,
	}
	switch t.Kind {
	case TargetShip:
		req.TargetShip = t.ID
		req.Destination = hlt.ClosestPointTo(d.Position(), dest, o.tuning.ClosestPointMinDistance)
	case TargetSite:
		req.TargetSite = t.ID
		req.Destination = hlt.ClosestPointTo(d.Position(), dest, o.tuning.ClosestPointMinDistance)
	case TargetPosition:
		req.Destination = t.Pos
	default:
		panic(fmt.Sprintf("bot: cannot navigate to target kind %s", t.Kind))
	}

	if t.Kind != TargetPosition {
		aim := dest.Center()
		req.Aim = &aim
	}
	m, ok := o.state.Solver.NavigateWithFallback(req)
	if !ok || m.Speed == 0 {
		return hlt.Command{}, false
	}
	return hlt.Thrust(d.ID(), m.Speed, m.Heading), true
}
