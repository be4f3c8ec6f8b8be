package bot

import (
	"fmt"
	"slices"

	"github.com/freeeve/fleetbot/pkg/hlt"
)

// Roster owns every tracked drone and the role index. All role changes go
// through SetRole, which updates the drone and the index together.
type Roster struct {
	drones        map[int]*Drone
	byRole        map[Role][]int
	defenderTurns int
}

// NewRoster creates an empty Roster. defenderTurns is the timer a unit gets
// on entering DEFENDER.
func NewRoster(defenderTurns int) *Roster {
	return &Roster{
		drones:        make(map[int]*Drone),
		byRole:        make(map[Role][]int),
		defenderTurns: defenderTurns,
	}
}

// Add starts tracking a newly seen unit as IDLE.
func (r *Roster) Add(ship *hlt.Ship) *Drone {
	d := newDrone(ship, r.defenderTurns)
	r.drones[d.id] = d
	r.byRole[RoleUnknown] = append(r.byRole[RoleUnknown], d.id)
	r.SetRole(d, RoleIdle)
	return d
}

// Remove forgets a unit and drops it from its role list.
func (r *Roster) Remove(id int) {
	d, ok := r.drones[id]
	if !ok {
		return
	}
	r.unindex(d.role, id)
	delete(r.drones, id)
}

// Get returns a tracked drone.
func (r *Roster) Get(id int) (*Drone, bool) {
	d, ok := r.drones[id]
	return d, ok
}

// SetRole moves d to role. Setting the current role is a no-op.
func (r *Roster) SetRole(d *Drone, role Role) {
	if d.role == role {
		return
	}
	r.unindex(d.role, d.id)
	d.transition(role, r.defenderTurns)
	r.byRole[role] = append(r.byRole[role], d.id)
}

func (r *Roster) unindex(role Role, id int) {
	ids := r.byRole[role]
	if i := slices.Index(ids, id); i >= 0 {
		r.byRole[role] = slices.Delete(ids, i, i+1)
	}
}

// WithRole returns the drones holding role, in the order they joined it.
// The slice is a copy: SetRole calls while iterating are safe.
func (r *Roster) WithRole(role Role) []*Drone {
	ids := r.byRole[role]
	out := make([]*Drone, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.drones[id])
	}
	return out
}

// Count returns the number of drones holding role.
func (r *Roster) Count(role Role) int { return len(r.byRole[role]) }

// Len returns the number of tracked drones.
func (r *Roster) Len() int { return len(r.drones) }

// IDs returns every tracked id, ascending.
func (r *Roster) IDs() []int {
	ids := make([]int, 0, len(r.drones))
	for id := range r.drones {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// All returns every tracked drone ordered by id.
func (r *Roster) All() []*Drone {
	ids := r.IDs()
	out := make([]*Drone, len(ids))
	for i, id := range ids {
		out[i] = r.drones[id]
	}
	return out
}

// RoleCounts returns the size of every non-empty role list.
func (r *Roster) RoleCounts() map[string]int {
	counts := make(map[string]int, len(Roles))
	for _, role := range Roles {
		if n := len(r.byRole[role]); n > 0 {
			counts[role.String()] = n
		}
	}
	return counts
}

// Verify checks that every drone appears in exactly its own role list and
// nowhere else.
func (r *Roster) Verify() error {
	seen := make(map[int]Role, len(r.drones))
	for role, ids := range r.byRole {
		for _, id := range ids {
			d, ok := r.drones[id]
			if !ok {
				return fmt.Errorf("role index %s lists unknown drone %d", role, id)
			}
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("drone %d listed under both %s and %s", id, prev, role)
			}
			seen[id] = role
			if d.role != role {
				return fmt.Errorf("drone %d has role %s but is listed under %s", id, d.role, role)
			}
		}
	}
	for id, d := range r.drones {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("drone %d with role %s missing from role index", id, d.role)
		}
	}
	return nil
}
