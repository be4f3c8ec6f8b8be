package world

import (
	"errors"
	"testing"

	"github.com/freeeve/fleetbot/pkg/hlt"
)

func ship(id, owner int, x, y float64) *hlt.Ship {
	return &hlt.Ship{ID: id, Owner: owner, X: x, Y: y, Health: hlt.MaxShipHealth}
}

func testMap() *hlt.Map {
	return &hlt.Map{
		Width:  200,
		Height: 100,
		Players: []*hlt.Player{
			{ID: 0, Ships: []*hlt.Ship{ship(1, 0, 10, 10), ship(2, 0, 12, 10)}},
			{ID: 1, Ships: []*hlt.Ship{ship(10, 1, 40, 10)}},
			{ID: 2, Ships: []*hlt.Ship{ship(20, 2, 150, 90), ship(21, 2, 152, 90)}},
			{ID: 3},
		},
		Planets: []*hlt.Planet{
			{ID: 100, X: 20, Y: 50, Radius: 5, DockingSpots: 2, Owned: true, Owner: 0, DockedShips: []int{7}},
			{ID: 101, X: 60, Y: 50, Radius: 5, DockingSpots: 1, Owned: true, Owner: 0, DockedShips: []int{8}},
			{ID: 102, X: 100, Y: 50, Radius: 5, DockingSpots: 3},
			{ID: 103, X: 140, Y: 50, Radius: 5, DockingSpots: 2, Owned: true, Owner: 2, DockedShips: []int{22}},
		},
	}
}

func TestIngestIndexes(t *testing.T) {
	s := Ingest(testMap(), 0)

	if got := len(s.MyShips()); got != 2 {
		t.Errorf("MyShips: got %d, want 2", got)
	}
	if got := len(s.AllShips()); got != 5 {
		t.Errorf("AllShips: got %d, want 5", got)
	}
	if got := s.UnownedCount(); got != 1 {
		t.Errorf("UnownedCount: got %d, want 1", got)
	}
	if got := s.OwnedCount(0); got != 2 {
		t.Errorf("OwnedCount(0): got %d, want 2", got)
	}
	if got := s.OwnedCount(1); got != 0 {
		t.Errorf("OwnedCount(1): got %d, want 0", got)
	}

	free := s.FreeSites()
	if len(free) != 2 || free[0].ID != 100 || free[1].ID != 102 {
		t.Errorf("FreeSites: got %v", siteIDs(free))
	}

	opp := s.Opponents()
	if len(opp) != 2 || opp[0] != 1 || opp[1] != 2 {
		t.Errorf("Opponents: got %v, want [1 2]", opp)
	}
}

func siteIDs(sites []*hlt.Planet) []int {
	ids := make([]int, len(sites))
	for i, s := range sites {
		ids[i] = s.ID
	}
	return ids
}

func TestLookupNotFound(t *testing.T) {
	s := Ingest(testMap(), 0)

	if _, err := s.Ship(10); err != nil {
		t.Errorf("Ship(10): %v", err)
	}
	if _, err := s.Ship(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Ship(999): got %v, want ErrNotFound", err)
	}
	if _, err := s.Site(102); err != nil {
		t.Errorf("Site(102): %v", err)
	}
	if _, err := s.Site(5); !errors.Is(err, ErrNotFound) {
		t.Errorf("Site(5): got %v, want ErrNotFound", err)
	}
}

func TestGravitationalCenter(t *testing.T) {
	s := Ingest(testMap(), 0)

	c, ok := s.GravitationalCenter(0)
	if !ok || c.X != 11 || c.Y != 10 {
		t.Errorf("center(0): got %+v ok=%v, want (11,10)", c, ok)
	}
	if _, ok := s.GravitationalCenter(3); ok {
		t.Error("faction without units should have no center")
	}
}

func TestNearestEnemy(t *testing.T) {
	s := Ingest(testMap(), 0)
	from := ship(1, 0, 10, 10).Circle()

	got, _, ok := s.NearestEnemy(from, -1)
	if !ok || got.ID != 10 {
		t.Fatalf("NearestEnemy: got %v", got)
	}
	if _, _, ok := s.NearestEnemy(from, 5); ok {
		t.Error("no enemy should be within 5")
	}
}

func TestNemesisSingleOpponentSkipsScoring(t *testing.T) {
	m := testMap()
	m.Players = m.Players[:2]
	sc := NewScorer(Weights{Ship: 1, Planet: 1, Proximity: -1})
	sc.Reset(Ingest(m, 0))

	got, ok := sc.Nemesis()
	if !ok || got != 1 {
		t.Fatalf("Nemesis: got %d ok=%v, want 1", got, ok)
	}
	if sc.evaluations != 0 {
		t.Errorf("evaluations: got %d, want 0", sc.evaluations)
	}
}

func TestNemesisScoresAndCaches(t *testing.T) {
	sc := NewScorer(Weights{Ship: 1, Planet: 2, Proximity: -0.01})
	sc.Reset(Ingest(testMap(), 0))

	// Faction 1: 1 ship, 0 planets, ~29 away. Faction 2: 2 ships, 1 planet, ~150 away.
	got, ok := sc.Nemesis()
	if !ok || got != 2 {
		t.Fatalf("Nemesis: got %d ok=%v, want 2", got, ok)
	}
	sc.Nemesis()
	if sc.evaluations != 1 {
		t.Errorf("evaluations after two calls: got %d, want 1", sc.evaluations)
	}

	sc.Reset(Ingest(testMap(), 0))
	sc.Nemesis()
	if sc.evaluations != 2 {
		t.Errorf("evaluations after reset: got %d, want 2", sc.evaluations)
	}
}

func TestNemesisProximityDominates(t *testing.T) {
	sc := NewScorer(Weights{Ship: 1, Planet: 1, Proximity: -1})
	sc.Reset(Ingest(testMap(), 0))

	if got, _ := sc.Nemesis(); got != 1 {
		t.Errorf("Nemesis: got %d, want 1 (closest)", got)
	}
}

func TestNemesisTieBreaksOnLowestID(t *testing.T) {
	m := &hlt.Map{
		Players: []*hlt.Player{
			{ID: 0, Ships: []*hlt.Ship{ship(1, 0, 50, 50)}},
			{ID: 4, Ships: []*hlt.Ship{ship(40, 4, 60, 50)}},
			{ID: 2, Ships: []*hlt.Ship{ship(20, 2, 40, 50)}},
		},
	}
	sc := NewScorer(Weights{Ship: 1, Planet: 1, Proximity: -1})
	sc.Reset(Ingest(m, 0))

	if got, _ := sc.Nemesis(); got != 2 {
		t.Errorf("Nemesis: got %d, want 2", got)
	}
}

func TestNemesisNoOpponents(t *testing.T) {
	m := &hlt.Map{Players: []*hlt.Player{{ID: 0, Ships: []*hlt.Ship{ship(1, 0, 1, 1)}}}}
	sc := NewScorer(Weights{})
	sc.Reset(Ingest(m, 0))
	if _, ok := sc.Nemesis(); ok {
		t.Error("expected no nemesis")
	}
}
