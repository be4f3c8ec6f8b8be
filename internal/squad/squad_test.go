package squad

import (
	"testing"

	"github.com/freeeve/fleetbot/pkg/hlt"
)

type unit struct {
	id   int
	x, y float64
}

func (u *unit) ID() int             { return u.id }
func (u *unit) Position() hlt.Point { return hlt.Point{X: u.x, Y: u.y} }

func members(us ...*unit) []Member {
	out := make([]Member, len(us))
	for i, u := range us {
		out[i] = u
	}
	return out
}

func TestUpdateFormsSquadsWithinRadius(t *testing.T) {
	m := NewManager(3, 10)
	m.Update(members(
		&unit{1, 0, 0}, &unit{2, 4, 0}, &unit{3, 8, 0}, &unit{4, 6, 0},
		&unit{5, 100, 100},
	))

	squads := m.Squads()
	if len(squads) != 1 {
		t.Fatalf("squads: got %d, want 1", len(squads))
	}
	s := squads[0]
	if s.Size() != 3 {
		t.Errorf("size: got %d, want 3 (capped)", s.Size())
	}
	// Members 1,2,3 at x=0,4,8: centre x=4, so unit 2 leads.
	if s.Leader().ID() != 2 {
		t.Errorf("leader: got %d, want 2", s.Leader().ID())
	}
}

func TestUpdatePromotesWhenLeaderLeaves(t *testing.T) {
	m := NewManager(4, 10)
	m.Update(members(&unit{1, 0, 0}, &unit{2, 2, 0}, &unit{3, 4, 0}))
	if got := m.Squads()[0].Leader().ID(); got != 2 {
		t.Fatalf("leader: got %d, want 2", got)
	}

	m.Update(members(&unit{1, 1, 0}, &unit{3, 5, 0}))
	if len(m.Squads()) != 1 {
		t.Fatalf("squads: got %d, want 1", len(m.Squads()))
	}
	s := m.Squads()[0]
	if s.Size() != 2 {
		t.Errorf("size: got %d, want 2", s.Size())
	}
	if s.Leader() == nil || s.Leader().ID() == 2 {
		t.Errorf("leader should be promoted from survivors, got %v", s.Leader())
	}
	if c := s.Center(); c.X != 3 {
		t.Errorf("center uses fresh positions: got %v, want x=3", c)
	}
}

func TestUpdateDissolvesSingletons(t *testing.T) {
	m := NewManager(4, 10)
	m.Update(members(&unit{1, 0, 0}, &unit{2, 2, 0}))
	m.Update(members(&unit{1, 0, 0}))
	if len(m.Squads()) != 0 {
		t.Errorf("squads: got %d, want 0", len(m.Squads()))
	}
}

func TestUpdateSizeOneNeverForms(t *testing.T) {
	m := NewManager(1, 10)
	m.Update(members(&unit{1, 0, 0}, &unit{2, 1, 0}))
	if len(m.Squads()) != 0 {
		t.Errorf("squads: got %d, want 0", len(m.Squads()))
	}
}
