package hlt

// DockingStatus is a ship's relationship to a planet.
type DockingStatus int

const (
	Undocked DockingStatus = iota
	Docking
	Docked
	Undocking
)

func (s DockingStatus) String() string {
	switch s {
	case Undocked:
		return "undocked"
	case Docking:
		return "docking"
	case Docked:
		return "docked"
	case Undocking:
		return "undocking"
	}
	return "unknown"
}

// Ship is a mobile unit as reported by the engine.
type Ship struct {
	ID            int
	Owner         int
	X, Y          float64
	Health        int
	VelX, VelY    float64
	DockingStatus DockingStatus
	Planet        int // docked planet id, meaningful only when not Undocked
	Progress      int
	Cooldown      int
}

// Circle returns the ship's footprint.
func (s *Ship) Circle() Circle { return Circle{X: s.X, Y: s.Y, Radius: ShipRadius} }

// Pos returns the ship's centre.
func (s *Ship) Pos() Point { return Point{X: s.X, Y: s.Y} }

// CanDock reports whether the ship is close enough to p to issue a dock command.
func (s *Ship) CanDock(p *Planet) bool {
	return CenterDistance(s.Pos(), p.Pos()) <= p.Radius+DockRadius+ShipRadius
}

// Planet is a stationary dockable site.
type Planet struct {
	ID                 int
	X, Y               float64
	Health             int
	Radius             float64
	DockingSpots       int
	CurrentProduction  int
	RemainingResources int
	Owned              bool
	Owner              int
	DockedShips        []int
}

// Circle returns the planet's footprint.
func (p *Planet) Circle() Circle { return Circle{X: p.X, Y: p.Y, Radius: p.Radius} }

// Pos returns the planet's centre.
func (p *Planet) Pos() Point { return Point{X: p.X, Y: p.Y} }

// AvailableSpots returns the number of docking spots left.
func (p *Planet) AvailableSpots() int {
	return p.DockingSpots - len(p.DockedShips)
}

// IsFull reports whether no docking spot is left.
func (p *Planet) IsFull() bool {
	return p.AvailableSpots() <= 0
}

// IsFree reports whether player may still dock here: the planet is unowned,
// or owned by player and not full.
func (p *Planet) IsFree(player int) bool {
	if !p.Owned {
		return true
	}
	return p.Owner == player && !p.IsFull()
}

// Player groups the ships of one faction, in the order the engine sent them.
type Player struct {
	ID    int
	Ships []*Ship
}

// Map is one turn's raw world state.
type Map struct {
	Width, Height int
	Players       []*Player
	Planets       []*Planet
}
