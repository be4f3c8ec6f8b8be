// Package world holds the per-turn, read-only view of the map and the
// threat scoring built on top of it.
package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/freeeve/fleetbot/pkg/hlt"
)

// ErrNotFound is returned by id lookups that do not resolve this turn.
var ErrNotFound = errors.New("world: not found")

// Snapshot indexes one turn of world state. It is built once per turn by
// Ingest and never mutated afterwards.
type Snapshot struct {
	Me     int
	Width  int
	Height int

	ships          map[int]*hlt.Ship
	sites          map[int]*hlt.Planet
	shipsByFaction map[int][]*hlt.Ship
	sitesByFaction map[int][]*hlt.Planet
	unowned        []*hlt.Planet
	allShips       []*hlt.Ship
	allSites       []*hlt.Planet
	factions       []int
}

// Ingest builds the snapshot for faction me from a parsed map. It runs in
// time linear in the number of entities.
func Ingest(m *hlt.Map, me int) *Snapshot {
	s := &Snapshot{
		Me:             me,
		Width:          m.Width,
		Height:         m.Height,
		ships:          make(map[int]*hlt.Ship),
		sites:          make(map[int]*hlt.Planet, len(m.Planets)),
		shipsByFaction: make(map[int][]*hlt.Ship, len(m.Players)),
		sitesByFaction: make(map[int][]*hlt.Planet, len(m.Players)),
		allSites:       m.Planets,
	}

	for _, p := range m.Players {
		s.factions = append(s.factions, p.ID)
		s.shipsByFaction[p.ID] = p.Ships
		for _, ship := range p.Ships {
			s.ships[ship.ID] = ship
			s.allShips = append(s.allShips, ship)
		}
	}
	sort.Ints(s.factions)

	for _, site := range m.Planets {
		s.sites[site.ID] = site
		if site.Owned {
			s.sitesByFaction[site.Owner] = append(s.sitesByFaction[site.Owner], site)
		} else {
			s.unowned = append(s.unowned, site)
		}
	}
	return s
}

// Ship looks up a unit of any faction.
func (s *Snapshot) Ship(id int) (*hlt.Ship, error) {
	ship, ok := s.ships[id]
	if !ok {
		return nil, fmt.Errorf("ship %d: %w", id, ErrNotFound)
	}
	return ship, nil
}

// Site looks up a planet.
func (s *Snapshot) Site(id int) (*hlt.Planet, error) {
	site, ok := s.sites[id]
	if !ok {
		return nil, fmt.Errorf("site %d: %w", id, ErrNotFound)
	}
	return site, nil
}

// ShipsOf returns a faction's units in engine order.
func (s *Snapshot) ShipsOf(faction int) []*hlt.Ship { return s.shipsByFaction[faction] }

// MyShips returns the controlling faction's units.
func (s *Snapshot) MyShips() []*hlt.Ship { return s.shipsByFaction[s.Me] }

// SitesOf returns the sites a faction owns.
func (s *Snapshot) SitesOf(faction int) []*hlt.Planet { return s.sitesByFaction[faction] }

// AllShips returns every unit on the map.
func (s *Snapshot) AllShips() []*hlt.Ship { return s.allShips }

// AllSites returns every site on the map.
func (s *Snapshot) AllSites() []*hlt.Planet { return s.allSites }

// UnownedSites returns the sites nobody owns.
func (s *Snapshot) UnownedSites() []*hlt.Planet { return s.unowned }

// UnownedCount returns the number of sites nobody owns.
func (s *Snapshot) UnownedCount() int { return len(s.unowned) }

// OwnedCount returns the number of sites a faction owns.
func (s *Snapshot) OwnedCount(faction int) int { return len(s.sitesByFaction[faction]) }

// FreeSites returns sites the controlling faction may dock at.
func (s *Snapshot) FreeSites() []*hlt.Planet {
	var free []*hlt.Planet
	for _, site := range s.allSites {
		if site.IsFree(s.Me) {
			free = append(free, site)
		}
	}
	return free
}

// Factions returns every faction id present this turn, ascending.
func (s *Snapshot) Factions() []int { return s.factions }

// Opponents returns the factions other than Me that still have units,
// ascending by id.
func (s *Snapshot) Opponents() []int {
	var out []int
	for _, f := range s.factions {
		if f != s.Me && len(s.shipsByFaction[f]) > 0 {
			out = append(out, f)
		}
	}
	return out
}

// IsEnemy reports whether a unit belongs to another faction.
func (s *Snapshot) IsEnemy(ship *hlt.Ship) bool { return ship.Owner != s.Me }

// GravitationalCenter returns the mean position of a faction's units. The
// second result is false when the faction has none.
func (s *Snapshot) GravitationalCenter(faction int) (hlt.Point, bool) {
	ships := s.shipsByFaction[faction]
	if len(ships) == 0 {
		return hlt.Point{}, false
	}
	var c hlt.Point
	for _, ship := range ships {
		c.X += ship.X
		c.Y += ship.Y
	}
	n := float64(len(ships))
	return hlt.Point{X: c.X / n, Y: c.Y / n}, true
}

// NearestEnemy returns the closest unit not owned by Me, optionally limited
// to maxDist (pass a negative value for no limit).
func (s *Snapshot) NearestEnemy(from hlt.Circle, maxDist float64) (*hlt.Ship, float64, bool) {
	var best *hlt.Ship
	bestDist := 0.0
	for _, ship := range s.allShips {
		if ship.Owner == s.Me {
			continue
		}
		d := hlt.Distance(from, ship.Circle())
		if maxDist >= 0 && d > maxDist {
			continue
		}
		if best == nil || d < bestDist {
			best, bestDist = ship, d
		}
	}
	return best, bestDist, best != nil
}

// NearestShipOf returns the closest unit of a faction matching keep (nil
// keeps every unit).
func (s *Snapshot) NearestShipOf(faction int, from hlt.Circle, keep func(*hlt.Ship) bool) (*hlt.Ship, float64, bool) {
	var best *hlt.Ship
	bestDist := 0.0
	for _, ship := range s.shipsByFaction[faction] {
		if keep != nil && !keep(ship) {
			continue
		}
		d := hlt.Distance(from, ship.Circle())
		if best == nil || d < bestDist {
			best, bestDist = ship, d
		}
	}
	return best, bestDist, best != nil
}
