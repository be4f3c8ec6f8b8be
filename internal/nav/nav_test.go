package nav

import (
	"testing"

	"github.com/freeeve/fleetbot/pkg/hlt"
)

type fakeMap struct {
	ships []*hlt.Ship
	sites []*hlt.Planet
}

func (f *fakeMap) AllShips() []*hlt.Ship   { return f.ships }
func (f *fakeMap) AllSites() []*hlt.Planet { return f.sites }

func testOptions() Options {
	return Options{GhostRatioRadius: 1.3, ShipHorizon: 92, IntermediateRatio: 0.5, FallbackCorrections: 30}
}

func request(from, to hlt.Point) Request {
	return Request{
		MoverID:        1,
		Mover:          hlt.Circle{X: from.X, Y: from.Y, Radius: hlt.ShipRadius},
		Destination:    to,
		SpeedCap:       hlt.MaxSpeed,
		MaxCorrections: 90,
		AngularStep:    1,
		TargetShip:     NoEntity,
		TargetSite:     NoEntity,
	}
}

func TestNavigateClearPath(t *testing.T) {
	s := NewSolver(testOptions())
	s.Reset(&fakeMap{})

	m, ok := s.Navigate(request(hlt.Point{X: 0, Y: 0}, hlt.Point{X: 0, Y: 4.5}))
	if !ok {
		t.Fatal("expected a move")
	}
	if m.Speed != 4 || m.Heading != 90 {
		t.Errorf("got %+v, want speed 4 heading 90", m)
	}
	if len(s.Ghosts()) != 1 {
		t.Errorf("ghosts: got %d, want 1", len(s.Ghosts()))
	}
}

func TestNavigateRotatesAroundSite(t *testing.T) {
	s := NewSolver(testOptions())
	s.Reset(&fakeMap{sites: []*hlt.Planet{{ID: 50, X: 10, Y: 0, Radius: 1}}})

	m, ok := s.Navigate(request(hlt.Point{}, hlt.Point{X: 20, Y: 0}))
	if !ok {
		t.Fatal("expected a move")
	}
	// 10*sin(h) must exceed radius 1 + fudge 0.6, first true at 10 degrees.
	if m.Heading != 10 || m.Speed != hlt.MaxSpeed {
		t.Errorf("got %+v, want heading 10 speed 7", m)
	}
}

func TestNavigateIgnoresDestinationEntity(t *testing.T) {
	s := NewSolver(testOptions())
	s.Reset(&fakeMap{ships: []*hlt.Ship{{ID: 9, Owner: 1, X: 5, Y: 0}}})

	req := request(hlt.Point{}, hlt.Point{X: 5, Y: 0})
	req.TargetShip = 9
	m, ok := s.Navigate(req)
	if !ok || m.Heading != 0 {
		t.Errorf("got %+v ok=%v, want straight line", m, ok)
	}
}

func TestNavigatePolicyIgnoresSites(t *testing.T) {
	s := NewSolver(testOptions())
	s.Reset(&fakeMap{sites: []*hlt.Planet{{ID: 50, X: 10, Y: 0, Radius: 1}}})

	req := request(hlt.Point{}, hlt.Point{X: 20, Y: 0})
	req.Policy = IgnoreSites
	m, ok := s.Navigate(req)
	if !ok || m.Heading != 0 {
		t.Errorf("got %+v ok=%v, want straight line through ignored site", m, ok)
	}
}

func TestNavigateShipHorizon(t *testing.T) {
	s := NewSolver(testOptions())
	s.Reset(&fakeMap{ships: []*hlt.Ship{{ID: 9, Owner: 1, X: 100, Y: 0}}})

	m, ok := s.Navigate(request(hlt.Point{}, hlt.Point{X: 200, Y: 0}))
	if !ok || m.Heading != 0 {
		t.Errorf("ship beyond horizon should not block: got %+v ok=%v", m, ok)
	}
}

func TestNavigateGhostBlocksCrossingMove(t *testing.T) {
	s := NewSolver(testOptions())
	s.Reset(&fakeMap{})

	first := request(hlt.Point{X: 0, Y: 0}, hlt.Point{X: 7, Y: 0})
	if _, ok := s.Navigate(first); !ok {
		t.Fatal("first move should succeed")
	}

	second := request(hlt.Point{X: 7, Y: 5}, hlt.Point{X: 7, Y: -5})
	second.MoverID = 2
	m, ok := s.Navigate(second)
	if !ok {
		t.Fatal("second move should find a heading")
	}
	if m.Heading == 270 {
		t.Error("second move should steer around the first move's ghost")
	}

	s.Reset(&fakeMap{})
	m, _ = s.Navigate(second)
	if m.Heading != 270 {
		t.Errorf("after reset: got heading %d, want 270", m.Heading)
	}
}

func TestNavigateZeroCorrectionsFallsBack(t *testing.T) {
	s := NewSolver(testOptions())
	s.Reset(&fakeMap{sites: []*hlt.Planet{{ID: 50, X: 15, Y: 0, Radius: 3}}})

	req := request(hlt.Point{}, hlt.Point{X: 30, Y: 0})
	req.MaxCorrections = 0

	if _, ok := s.Navigate(req); ok {
		t.Fatal("blocked straight line with no corrections should fail")
	}

	m, ok := s.NavigateWithFallback(req)
	if !ok {
		t.Fatal("fallback should reach the intermediate waypoint")
	}
	if m.Speed != 3 || m.Heading != 0 {
		t.Errorf("got %+v, want speed 3 heading 0", m)
	}
}

func TestNavigateFallbackFollowsAim(t *testing.T) {
	// The site blocks the line to the approach point. The waypoint is laid
	// toward the aim point instead.
	s := NewSolver(testOptions())
	s.Reset(&fakeMap{sites: []*hlt.Planet{{ID: 50, X: 15, Y: 0, Radius: 3}}})

	aim := hlt.Point{X: 0, Y: 30}
	req := request(hlt.Point{}, hlt.Point{X: 30, Y: 0})
	req.MaxCorrections = 0
	req.Aim = &aim

	m, ok := s.NavigateWithFallback(req)
	if !ok {
		t.Fatal("fallback should reach the waypoint toward the aim point")
	}
	if m.Speed != 3 || m.Heading != 90 {
		t.Errorf("got %+v, want speed 3 heading 90", m)
	}
}

func TestNavigateFallbackFailsHolds(t *testing.T) {
	// Mover wedged against a site: every heading clips it.
	s := NewSolver(testOptions())
	s.Reset(&fakeMap{sites: []*hlt.Planet{{ID: 50, X: 1, Y: 0, Radius: 1}}})

	req := request(hlt.Point{}, hlt.Point{X: 30, Y: 0})
	req.MaxCorrections = 2
	if _, ok := s.NavigateWithFallback(req); ok {
		t.Error("expected hold when no heading clears")
	}
	if s.Tested != 3+33 {
		t.Errorf("tested headings: got %d, want 36", s.Tested)
	}
}
