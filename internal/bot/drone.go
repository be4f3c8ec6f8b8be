package bot

import (
	"fmt"

	"github.com/freeeve/fleetbot/pkg/hlt"
)

// Role is a unit's current behavioural mode.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleIdle
	RoleAttacker
	RoleAssassin
	RoleConqueror
	RoleMiner
	RoleDefender
)

// Roles lists every role in declaration order.
var Roles = [...]Role{RoleUnknown, RoleIdle, RoleAttacker, RoleAssassin, RoleConqueror, RoleMiner, RoleDefender}

func (r Role) String() string {
	switch r {
	case RoleUnknown:
		return "unknown"
	case RoleIdle:
		return "idle"
	case RoleAttacker:
		return "attacker"
	case RoleAssassin:
		return "assassin"
	case RoleConqueror:
		return "conqueror"
	case RoleMiner:
		return "miner"
	case RoleDefender:
		return "defender"
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// TargetKind tags the variant held by a Target.
type TargetKind uint8

const (
	TargetNone TargetKind = iota
	TargetShip
	TargetSite
	TargetPosition
	TargetDocking
	TargetUndocking
)

func (k TargetKind) String() string {
	switch k {
	case TargetNone:
		return "none"
	case TargetShip:
		return "ship"
	case TargetSite:
		return "site"
	case TargetPosition:
		return "position"
	case TargetDocking:
		return "docking"
	case TargetUndocking:
		return "undocking"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Target is what a unit is heading for, together with the distance measured
// when it was assigned. ID is a ship id for TargetShip and a site id for
// TargetSite and TargetDocking; Pos is only meaningful for TargetPosition.
type Target struct {
	Kind     TargetKind
	ID       int
	Pos      hlt.Point
	Distance float64
}

// ShipTarget aims at an enemy unit.
func ShipTarget(id int, distance float64) Target {
	return Target{Kind: TargetShip, ID: id, Distance: distance}
}

// SiteTarget aims at a site to conquer.
func SiteTarget(id int, distance float64) Target {
	return Target{Kind: TargetSite, ID: id, Distance: distance}
}

// PositionTarget aims at a point on the map.
func PositionTarget(p hlt.Point, distance float64) Target {
	return Target{Kind: TargetPosition, Pos: p, Distance: distance}
}

// DockingTarget asks the unit to dock at a site it is in range of.
func DockingTarget(site int) Target {
	return Target{Kind: TargetDocking, ID: site}
}

// UndockingTarget asks a docked unit to leave its site.
func UndockingTarget() Target {
	return Target{Kind: TargetUndocking}
}

// IsSet reports whether the target holds anything.
func (t Target) IsSet() bool { return t.Kind != TargetNone }

func (t Target) String() string {
	switch t.Kind {
	case TargetNone, TargetUndocking:
		return t.Kind.String()
	case TargetShip, TargetSite, TargetDocking:
		return fmt.Sprintf("%s:%d@%.1f", t.Kind, t.ID, t.Distance)
	case TargetPosition:
		return fmt.Sprintf("position:(%.1f,%.1f)@%.1f", t.Pos.X, t.Pos.Y, t.Distance)
	}
	panic(fmt.Sprintf("bot: unhandled target kind %d", t.Kind))
}

// Drone is the bot's persistent state for one owned unit. Its role can only
// be changed through Roster.SetRole so the role index never drifts.
type Drone struct {
	id           int
	ship         *hlt.Ship
	role         Role
	previousRole Role
	target       Target
	targetAge    int // turns since the target was assigned

	// DefenseTimer counts down the turns left as DEFENDER.
	DefenseTimer int
	// MaxHealth is the health baseline used to detect damage.
	MaxHealth int
}

func newDrone(ship *hlt.Ship, defenderTurns int) *Drone {
	return &Drone{
		id:           ship.ID,
		ship:         ship,
		role:         RoleUnknown,
		DefenseTimer: defenderTurns,
		MaxHealth:    ship.Health,
	}
}

// ID returns the unit id.
func (d *Drone) ID() int { return d.id }

// Ship returns the unit as seen in the latest snapshot.
func (d *Drone) Ship() *hlt.Ship { return d.ship }

// Position returns the unit's current centre.
func (d *Drone) Position() hlt.Point { return d.ship.Pos() }

// Role returns the current role.
func (d *Drone) Role() Role { return d.role }

// PreviousRole returns the role held before the last transition.
func (d *Drone) PreviousRole() Role { return d.previousRole }

// Target returns the current target.
func (d *Drone) Target() Target { return d.target }

// Assign replaces the target and its cached distance in one step.
func (d *Drone) Assign(t Target) {
	d.target = t
	d.targetAge = 0
}

// ClearTarget drops the current target.
func (d *Drone) ClearTarget() { d.target = Target{} }

func (d *Drone) refresh(ship *hlt.Ship) {
	d.ship = ship
	d.targetAge++
}

// transition applies a role change to the drone's own fields. Callers must
// keep the role index in step; see Roster.SetRole.
func (d *Drone) transition(role Role, defenderTurns int) {
	d.target = Target{}
	d.previousRole = d.role
	if role == RoleDefender {
		d.DefenseTimer = defenderTurns
	}
	if d.role == RoleDefender {
		d.MaxHealth = d.ship.Health
	}
	d.role = role
}

func (d *Drone) String() string {
	return fmt.Sprintf("drone %d %s %s", d.id, d.role, d.target)
}
