package hlt

import "math"

// Game constants fixed by the Halite II rules.
const (
	MaxSpeed      = 7
	ShipRadius    = 0.5
	DockRadius    = 4.0
	WeaponRadius  = 5.0
	MaxShipHealth = 255
)

// Point is a position on the map.
type Point struct {
	X, Y float64
}

// Circle is a point with a radius. Ships, planets and abstract positions
// (radius 0) are all circles for geometry purposes.
type Circle struct {
	X, Y   float64
	Radius float64
}

// Center returns the circle's centre.
func (c Circle) Center() Point { return Point{X: c.X, Y: c.Y} }

// At builds a zero-radius circle at p.
func At(p Point) Circle { return Circle{X: p.X, Y: p.Y} }

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy float64) Point { return Point{X: p.X + dx, Y: p.Y + dy} }

// CenterDistance returns the Euclidean distance between two centres.
func CenterDistance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Distance returns the gap between two circles: centre distance minus both
// radii. Overlapping circles give a negative value.
func Distance(a, b Circle) float64 {
	return CenterDistance(a.Center(), b.Center()) - a.Radius - b.Radius
}

// Angle returns the heading from a to b in degrees, normalised to [0, 360).
func Angle(a, b Point) float64 {
	deg := math.Atan2(b.Y-a.Y, b.X-a.X) * 180 / math.Pi
	return NormalizeDegrees(deg)
}

// NormalizeDegrees maps any angle onto [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Project returns the point reached from p moving dist along heading deg.
func Project(p Point, deg, dist float64) Point {
	rad := deg * math.Pi / 180
	return p.Add(math.Cos(rad)*dist, math.Sin(rad)*dist)
}

// ClosestPointTo returns the point on the line from target toward from that
// sits minDistance beyond the target's edge.
func ClosestPointTo(from Point, target Circle, minDistance float64) Point {
	heading := Angle(target.Center(), from)
	return Project(target.Center(), heading, target.Radius+minDistance)
}

// SegmentIntersectsCircle reports whether the segment start-end passes within
// circle.Radius+fudge of the circle centre. Circles whose closest approach
// lies behind start never intersect.
func SegmentIntersectsCircle(start, end Point, circle Circle, fudge float64) bool {
	dx := end.X - start.X
	dy := end.Y - start.Y
	reach := circle.Radius + fudge

	a := dx*dx + dy*dy
	if a == 0 {
		return CenterDistance(start, circle.Center()) <= reach
	}

	// Closest approach lies behind the start: the segment moves away.
	t := min(((circle.X-start.X)*dx+(circle.Y-start.Y)*dy)/a, 1)
	if t < 0 {
		return false
	}
	closest := Point{X: start.X + t*dx, Y: start.Y + t*dy}
	return CenterDistance(closest, circle.Center()) <= reach
}
