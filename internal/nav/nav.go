// Package nav turns a mover and a destination into one bounded thrust,
// steering around sites, units and moves already committed this turn.
package nav

import (
	"math"

	"github.com/freeeve/fleetbot/pkg/hlt"
)

// NoEntity marks a request whose destination is not tied to an entity.
const NoEntity = -1

// fudgeMargin is added to the mover's radius for every intersection test.
const fudgeMargin = 0.1

// ObstaclePolicy selects which obstacle classes a request ignores.
type ObstaclePolicy uint8

const (
	IgnoreShips ObstaclePolicy = 1 << iota
	IgnoreSites
	IgnoreGhosts

	AvoidAll ObstaclePolicy = 0
)

// Has reports whether every flag in f is set.
func (p ObstaclePolicy) Has(f ObstaclePolicy) bool { return p&f == f }

// Obstacles is the read-only view of the map the solver steers around.
type Obstacles interface {
	AllShips() []*hlt.Ship
	AllSites() []*hlt.Planet
}

// Request describes one navigation query.
type Request struct {
	MoverID     int
	Mover       hlt.Circle
	Destination hlt.Point
	SpeedCap    float64

	Policy         ObstaclePolicy
	MaxCorrections int
	AngularStep    float64

	// Entities the destination belongs to are never obstacles.
	TargetShip int
	TargetSite int

	// Aim is the centre of the entity being approached. The fallback
	// waypoint is laid along it. Nil means Destination.
	Aim *hlt.Point
}

// Move is a thrust rounded to what the engine accepts.
type Move struct {
	Speed   int
	Heading int
}

// Ghost is the end point of a move committed earlier in the turn.
type Ghost struct {
	Ship   int
	Origin hlt.Point
	End    hlt.Point
	Radius float64
}

func (g Ghost) circle() hlt.Circle {
	return hlt.Circle{X: g.End.X, Y: g.End.Y, Radius: g.Radius}
}

// Options are the solver's tunables.
type Options struct {
	GhostRatioRadius    float64
	ShipHorizon         float64
	IntermediateRatio   float64
	FallbackCorrections int
}

// Solver answers navigation requests for one turn at a time. Reset must be
// called with the new turn's obstacles before the first request.
type Solver struct {
	opts      Options
	obstacles Obstacles
	ghosts    []Ghost

	// Tested counts candidate headings evaluated since the last Reset.
	Tested int
}

// NewSolver creates a Solver.
func NewSolver(opts Options) *Solver {
	return &Solver{opts: opts}
}

// Reset starts a new turn: obstacles are replaced and ghosts dropped.
func (s *Solver) Reset(obs Obstacles) {
	s.obstacles = obs
	s.ghosts = s.ghosts[:0]
	s.Tested = 0
}

// Ghosts returns the moves committed since the last Reset.
func (s *Solver) Ghosts() []Ghost { return s.ghosts }

// Navigate searches headings base, base+step, ... for at most
// MaxCorrections rotations and returns the first clear one.
func (s *Solver) Navigate(req Request) (Move, bool) {
	from := req.Mover.Center()
	distance := hlt.CenterDistance(from, req.Destination)
	base := hlt.Angle(from, req.Destination)

	if req.Policy.Has(IgnoreShips | IgnoreSites) {
		return s.commit(req, distance, base), true
	}

	fudge := req.Mover.Radius + fudgeMargin
	for i := 0; i <= req.MaxCorrections; i++ {
		heading := base + float64(i)*req.AngularStep
		end := hlt.Project(from, heading, distance)
		s.Tested++
		if !s.blocked(req, from, end, fudge) {
			return s.commit(req, distance, heading), true
		}
	}
	return Move{}, false
}

// NavigateWithFallback runs Navigate and, if no heading clears, retries once
// toward a slower waypoint partway along the line to the aim point with a
// larger correction budget. ok is false when the unit should hold position.
func (s *Solver) NavigateWithFallback(req Request) (Move, bool) {
	if m, ok := s.Navigate(req); ok {
		return m, true
	}

	from := req.Mover.Center()
	aim := req.Destination
	if req.Aim != nil {
		aim = *req.Aim
	}
	distance := hlt.CenterDistance(from, aim)
	if distance == 0 {
		return Move{}, false
	}
	speed := math.Min(req.SpeedCap, distance) * s.opts.IntermediateRatio

	retry := req
	retry.Destination = hlt.Project(from, hlt.Angle(from, aim), speed)
	retry.SpeedCap = speed
	retry.MaxCorrections += s.opts.FallbackCorrections
	return s.Navigate(retry)
}

func (s *Solver) blocked(req Request, from, end hlt.Point, fudge float64) bool {
	if !req.Policy.Has(IgnoreSites) && s.obstacles != nil {
		for _, site := range s.obstacles.AllSites() {
			if site.ID == req.TargetSite {
				continue
			}
			if hlt.SegmentIntersectsCircle(from, end, site.Circle(), fudge) {
				return true
			}
		}
	}

	if !req.Policy.Has(IgnoreShips) && s.obstacles != nil {
		for _, ship := range s.obstacles.AllShips() {
			if ship.ID == req.MoverID || ship.ID == req.TargetShip {
				continue
			}
			if s.opts.ShipHorizon > 0 && hlt.CenterDistance(from, ship.Pos()) > s.opts.ShipHorizon {
				continue
			}
			if hlt.SegmentIntersectsCircle(from, end, ship.Circle(), fudge) {
				return true
			}
		}
	}

	if !req.Policy.Has(IgnoreGhosts) {
		for _, g := range s.ghosts {
			if g.Ship == req.MoverID {
				continue
			}
			if hlt.SegmentIntersectsCircle(from, end, g.circle(), fudge) {
				return true
			}
		}
	}
	return false
}

func (s *Solver) commit(req Request, distance, heading float64) Move {
	m := Move{
		Speed:   int(math.Floor(math.Max(0, math.Min(req.SpeedCap, distance)))),
		Heading: int(hlt.NormalizeDegrees(math.Round(heading))),
	}
	if m.Speed > 0 {
		from := req.Mover.Center()
		s.ghosts = append(s.ghosts, Ghost{
			Ship:   req.MoverID,
			Origin: from,
			End:    hlt.Project(from, float64(m.Heading), float64(m.Speed)),
			Radius: req.Mover.Radius * s.opts.GhostRatioRadius,
		})
	}
	return m
}
