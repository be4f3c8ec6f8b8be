package hlt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a map line cannot be decoded.
var ErrMalformed = errors.New("hlt: malformed map")

// tokens walks a whitespace-separated map line.
type tokens struct {
	fields []string
	pos    int
}

func (t *tokens) next(what string) (string, error) {
	if t.pos >= len(t.fields) {
		return "", fmt.Errorf("%w: expected %s at token %d, got end of line", ErrMalformed, what, t.pos)
	}
	s := t.fields[t.pos]
	t.pos++
	return s, nil
}

func (t *tokens) int(what string) (int, error) {
	s, err := t.next(what)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q at token %d", ErrMalformed, what, s, t.pos-1)
	}
	return n, nil
}

func (t *tokens) float(what string) (float64, error) {
	s, err := t.next(what)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q at token %d", ErrMalformed, what, s, t.pos-1)
	}
	return f, nil
}

func (t *tokens) count(what string) (int, error) {
	n, err := t.int(what)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative %s %d at token %d", ErrMalformed, what, n, t.pos-1)
	}
	return n, nil
}

// ParseMap decodes one turn's map line.
func ParseMap(width, height int, line string) (*Map, error) {
	t := &tokens{fields: strings.Fields(line)}
	m := &Map{Width: width, Height: height}

	numPlayers, err := t.count("player count")
	if err != nil {
		return nil, err
	}
	for range numPlayers {
		p, err := parsePlayer(t)
		if err != nil {
			return nil, err
		}
		m.Players = append(m.Players, p)
	}

	numPlanets, err := t.count("planet count")
	if err != nil {
		return nil, err
	}
	for range numPlanets {
		p, err := parsePlanet(t)
		if err != nil {
			return nil, err
		}
		m.Planets = append(m.Planets, p)
	}

	if t.pos != len(t.fields) {
		return nil, fmt.Errorf("%w: %d trailing tokens", ErrMalformed, len(t.fields)-t.pos)
	}
	return m, nil
}

func parsePlayer(t *tokens) (*Player, error) {
	id, err := t.int("player id")
	if err != nil {
		return nil, err
	}
	numShips, err := t.count("ship count")
	if err != nil {
		return nil, err
	}
	p := &Player{ID: id, Ships: make([]*Ship, 0, numShips)}
	for range numShips {
		s, err := parseShip(t, id)
		if err != nil {
			return nil, err
		}
		p.Ships = append(p.Ships, s)
	}
	return p, nil
}

func parseShip(t *tokens, owner int) (*Ship, error) {
	s := &Ship{Owner: owner}
	var err error
	if s.ID, err = t.int("ship id"); err != nil {
		return nil, err
	}
	if s.X, err = t.float("ship x"); err != nil {
		return nil, err
	}
	if s.Y, err = t.float("ship y"); err != nil {
		return nil, err
	}
	if s.Health, err = t.int("ship health"); err != nil {
		return nil, err
	}
	if s.VelX, err = t.float("ship vel_x"); err != nil {
		return nil, err
	}
	if s.VelY, err = t.float("ship vel_y"); err != nil {
		return nil, err
	}
	status, err := t.int("docking status")
	if err != nil {
		return nil, err
	}
	if status < int(Undocked) || status > int(Undocking) {
		return nil, fmt.Errorf("%w: docking status %d for ship %d", ErrMalformed, status, s.ID)
	}
	s.DockingStatus = DockingStatus(status)
	if s.Planet, err = t.int("docked planet"); err != nil {
		return nil, err
	}
	if s.Progress, err = t.int("docking progress"); err != nil {
		return nil, err
	}
	if s.Cooldown, err = t.int("weapon cooldown"); err != nil {
		return nil, err
	}
	return s, nil
}

func parsePlanet(t *tokens) (*Planet, error) {
	p := &Planet{}
	var err error
	if p.ID, err = t.int("planet id"); err != nil {
		return nil, err
	}
	if p.X, err = t.float("planet x"); err != nil {
		return nil, err
	}
	if p.Y, err = t.float("planet y"); err != nil {
		return nil, err
	}
	if p.Health, err = t.int("planet health"); err != nil {
		return nil, err
	}
	if p.Radius, err = t.float("planet radius"); err != nil {
		return nil, err
	}
	if p.DockingSpots, err = t.count("docking spots"); err != nil {
		return nil, err
	}
	if p.CurrentProduction, err = t.int("current production"); err != nil {
		return nil, err
	}
	if p.RemainingResources, err = t.int("remaining resources"); err != nil {
		return nil, err
	}
	owned, err := t.int("owned flag")
	if err != nil {
		return nil, err
	}
	p.Owned = owned == 1
	if p.Owner, err = t.int("planet owner"); err != nil {
		return nil, err
	}
	numDocked, err := t.count("docked count")
	if err != nil {
		return nil, err
	}
	p.DockedShips = make([]int, 0, numDocked)
	for range numDocked {
		id, err := t.int("docked ship id")
		if err != nil {
			return nil, err
		}
		p.DockedShips = append(p.DockedShips, id)
	}
	return p, nil
}
