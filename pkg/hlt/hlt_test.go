package hlt

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

// twoPlayerLine has player 0 with ship 3 docked to planet 1, player 1 with
// ship 7 undocked, and planets 1 (owned by 0) and 2 (unowned).
const twoPlayerLine = "2 " +
	"0 1 3 10.0 10.0 255 0.0 0.0 2 1 0 0 " +
	"1 1 7 50.5 40.25 128 1.0 -1.0 0 0 0 0 " +
	"2 " +
	"1 12.0 14.0 2000 4.5 3 5 1200 1 0 1 3 " +
	"2 80.0 60.0 1500 6.0 2 0 900 0 0 0"

func TestParseMap(t *testing.T) {
	m, err := ParseMap(240, 160, twoPlayerLine)
	if err != nil {
		t.Fatalf("ParseMap: %v", err)
	}
	if len(m.Players) != 2 {
		t.Fatalf("players: got %d, want 2", len(m.Players))
	}
	docked := m.Players[0].Ships[0]
	if docked.ID != 3 || docked.DockingStatus != Docked || docked.Planet != 1 {
		t.Errorf("ship 3: got %+v", docked)
	}
	enemy := m.Players[1].Ships[0]
	if enemy.Owner != 1 || enemy.X != 50.5 || enemy.Y != 40.25 || enemy.Health != 128 {
		t.Errorf("ship 7: got %+v", enemy)
	}
	if len(m.Planets) != 2 {
		t.Fatalf("planets: got %d, want 2", len(m.Planets))
	}
	p1 := m.Planets[0]
	if !p1.Owned || p1.Owner != 0 || len(p1.DockedShips) != 1 || p1.DockedShips[0] != 3 {
		t.Errorf("planet 1: got %+v", p1)
	}
	if m.Planets[1].Owned {
		t.Error("planet 2 should be unowned")
	}
}

func TestParseMapMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"bad player count", "x"},
		{"truncated ship", "1 0 1 3 10.0"},
		{"bad float", "1 0 1 3 ten 10.0 255 0 0 0 0 0 0 0"},
		{"bad docking status", "1 0 1 3 1 1 255 0 0 9 0 0 0 0"},
		{"missing planets", "1 0 0"},
		{"trailing tokens", "0 0 42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMap(10, 10, tt.line)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("got %v, want ErrMalformed", err)
			}
		})
	}
}

func TestPlanetPredicates(t *testing.T) {
	p := &Planet{DockingSpots: 2, Owned: true, Owner: 1, DockedShips: []int{4}}
	if p.IsFull() {
		t.Error("one of two spots used should not be full")
	}
	if !p.IsFree(1) {
		t.Error("owner with spare spot should see planet as free")
	}
	if p.IsFree(2) {
		t.Error("other faction should not see owned planet as free")
	}
	p.DockedShips = append(p.DockedShips, 5)
	if !p.IsFull() || p.IsFree(1) {
		t.Error("full planet should not be free for its owner")
	}
	unowned := &Planet{DockingSpots: 1}
	if !unowned.IsFree(3) {
		t.Error("unowned planet should be free for everyone")
	}
}

func TestGeometry(t *testing.T) {
	a := Circle{X: 0, Y: 0, Radius: 1}
	b := Circle{X: 10, Y: 0, Radius: 2}
	if got := Distance(a, b); got != 7 {
		t.Errorf("Distance: got %v, want 7", got)
	}
	if got := Angle(Point{}, Point{X: 0, Y: -5}); got != 270 {
		t.Errorf("Angle: got %v, want 270", got)
	}

	closest := ClosestPointTo(Point{X: 20, Y: 0}, b, 3)
	if math.Abs(closest.X-15) > 1e-9 || math.Abs(closest.Y) > 1e-9 {
		t.Errorf("ClosestPointTo: got %+v, want (15, 0)", closest)
	}

	ship := &Ship{X: 10, Y: 7}
	planet := &Planet{X: 10, Y: 0, Radius: 2.5}
	if !ship.CanDock(planet) {
		t.Error("ship 7 units from a 2.5 radius planet should be able to dock")
	}
	ship.Y = 7.1
	if ship.CanDock(planet) {
		t.Error("ship past the dock radius should not dock")
	}
}

func TestSegmentIntersectsCircle(t *testing.T) {
	c := Circle{X: 5, Y: 0, Radius: 1}
	tests := []struct {
		name       string
		start, end Point
		fudge      float64
		want       bool
	}{
		{"through centre", Point{0, 0}, Point{10, 0}, 0, true},
		{"passes beside", Point{0, 3}, Point{10, 3}, 0.5, false},
		{"fudge reaches", Point{0, 1.5}, Point{10, 1.5}, 0.6, true},
		{"stops short", Point{0, 0}, Point{3, 0}, 0.5, false},
		{"starts past", Point{7, 0}, Point{10, 0}, 0.5, false},
		{"zero length inside", Point{5, 0.5}, Point{5, 0.5}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SegmentIntersectsCircle(tt.start, tt.end, c, tt.fudge); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommandEncoding(t *testing.T) {
	cmds := []Command{
		Thrust(3, 9, -90),
		Dock(4, 1),
		Undock(5),
		ThrustFloat(6, 6.9, 359.6),
	}
	want := "t 3 7 270 d 4 1 u 5 t 6 6 0"
	if got := EncodeCommands(cmds); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSessionHandshakeAndTurns(t *testing.T) {
	in := strings.Join([]string{"0", "240 160", twoPlayerLine, twoPlayerLine}, "\n") + "\n"
	var out bytes.Buffer
	s := NewSession(strings.NewReader(in), &out)

	if err := s.Handshake("fleetbot"); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if s.PlayerID != 0 || s.Width != 240 || s.Height != 160 {
		t.Errorf("handshake: got id=%d size=%dx%d", s.PlayerID, s.Width, s.Height)
	}
	if len(s.Initial.Planets) != 2 {
		t.Errorf("initial map planets: got %d", len(s.Initial.Planets))
	}

	m, err := s.NextTurn()
	if err != nil {
		t.Fatalf("NextTurn: %v", err)
	}
	if m.Width != 240 {
		t.Errorf("turn map width: got %d", m.Width)
	}
	if err := s.Send([]Command{Undock(3)}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := out.String(); got != "fleetbot\nu 3\n" {
		t.Errorf("output: got %q", got)
	}

	if _, err := s.NextTurn(); !errors.Is(err, ErrGameOver) {
		t.Errorf("after last line: got %v, want ErrGameOver", err)
	}
}
