// Package squad groups units of one role that move together behind a leader.
package squad

import (
	"math"

	"github.com/freeeve/fleetbot/pkg/hlt"
)

// Member is a unit that can belong to a squad.
type Member interface {
	ID() int
	Position() hlt.Point
}

// Squad is a leader plus followers. Followers copy the leader's target.
type Squad struct {
	leader  Member
	members []Member
}

// Leader returns the squad leader, or nil for an empty squad.
func (s *Squad) Leader() Member { return s.leader }

// Followers returns the members other than the leader.
func (s *Squad) Followers() []Member { return s.members }

// Size counts the leader and followers.
func (s *Squad) Size() int {
	n := len(s.members)
	if s.leader != nil {
		n++
	}
	return n
}

// Center returns the mean position of every member.
func (s *Squad) Center() hlt.Point {
	var c hlt.Point
	n := 0
	if s.leader != nil {
		p := s.leader.Position()
		c.X, c.Y = p.X, p.Y
		n++
	}
	for _, m := range s.members {
		p := m.Position()
		c.X += p.X
		c.Y += p.Y
		n++
	}
	if n == 0 {
		return c
	}
	return hlt.Point{X: c.X / float64(n), Y: c.Y / float64(n)}
}

// refresh swaps every member for this turn's value, dropping those that are
// gone, and promotes a new leader if the old one left.
func (s *Squad) refresh(current map[int]Member) {
	if s.leader != nil {
		s.leader = current[s.leader.ID()]
	}
	kept := s.members[:0]
	for _, m := range s.members {
		if fresh, ok := current[m.ID()]; ok {
			kept = append(kept, fresh)
		}
	}
	s.members = kept
	if s.leader == nil {
		s.promote()
	}
}

// promote makes the follower closest to the squad's centre the leader.
func (s *Squad) promote() {
	if len(s.members) == 0 {
		return
	}
	center := s.Center()
	best, bestDist := 0, math.Inf(1)
	for i, m := range s.members {
		if d := hlt.CenterDistance(m.Position(), center); d < bestDist {
			best, bestDist = i, d
		}
	}
	s.leader = s.members[best]
	s.members = append(s.members[:best], s.members[best+1:]...)
}

// Manager keeps squads alive across turns and forms new ones.
type Manager struct {
	size   int
	radius float64
	squads []*Squad
}

// NewManager creates a Manager building squads of at most size members
// from units within radius of each other.
func NewManager(size int, radius float64) *Manager {
	return &Manager{size: size, radius: radius}
}

// Squads returns the live squads.
func (m *Manager) Squads() []*Squad { return m.squads }

// Update reconciles squads with this turn's candidates: members that are no
// longer candidates leave, squads left with one unit dissolve, and unassigned
// candidates close to each other form new squads. Candidates are taken in the
// order given.
func (m *Manager) Update(candidates []Member) {
	byID := make(map[int]Member, len(candidates))
	for _, c := range candidates {
		byID[c.ID()] = c
	}

	assigned := make(map[int]bool)
	live := m.squads[:0]
	for _, s := range m.squads {
		s.refresh(byID)
		if s.Size() < 2 {
			continue
		}
		assigned[s.leader.ID()] = true
		for _, mem := range s.members {
			assigned[mem.ID()] = true
		}
		live = append(live, s)
	}
	m.squads = live

	if m.size < 2 {
		return
	}
	for _, seed := range candidates {
		if assigned[seed.ID()] {
			continue
		}
		s := &Squad{members: []Member{seed}}
		for _, other := range candidates {
			if len(s.members) >= m.size {
				break
			}
			if other.ID() == seed.ID() || assigned[other.ID()] {
				continue
			}
			if hlt.CenterDistance(seed.Position(), other.Position()) <= m.radius {
				s.members = append(s.members, other)
			}
		}
		if len(s.members) < 2 {
			continue
		}
		for _, mem := range s.members {
			assigned[mem.ID()] = true
		}
		s.promote()
		m.squads = append(m.squads, s)
	}
}
