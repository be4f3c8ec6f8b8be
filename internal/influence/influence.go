// Package influence rasterises the area the bot controls: a grid with one
// cell per map unit, painted around our ships and our sites.
package influence

import (
	"fmt"
	"math"

	"gorgonia.org/tensor"

	"github.com/freeeve/fleetbot/internal/world"
	"github.com/freeeve/fleetbot/pkg/hlt"
)

// Options control how far and how strongly each entity projects influence.
type Options struct {
	ShipInfluence   float64
	PlanetInfluence float64
	Steps           int
	Zone            float64
	Threshold       float64
}

// Field is one turn's influence raster, indexed [y, x].
type Field struct {
	width, height int
	opts          Options
	data          []float32
	grid          *tensor.Dense
}

// Build paints the field for the snapshot's controlling faction.
func Build(snap *world.Snapshot, opts Options) *Field {
	f := &Field{
		width:  snap.Width,
		height: snap.Height,
		opts:   opts,
		data:   make([]float32, snap.Width*snap.Height),
	}
	f.grid = tensor.New(
		tensor.WithShape(max(f.height, 1), max(f.width, 1)),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(f.backing()),
	)

	for _, ship := range snap.MyShips() {
		f.paint(ship.Circle(), opts.ShipInfluence)
	}
	for _, site := range snap.SitesOf(snap.Me) {
		f.paint(site.Circle(), opts.PlanetInfluence)
	}
	return f
}

// backing returns the data slice, padded to one cell for an empty map so
// the tensor always has a valid shape.
func (f *Field) backing() []float32 {
	if len(f.data) == 0 {
		f.data = make([]float32, 1)
	}
	return f.data
}

// paint draws Steps nested squares around c. The outermost square reaches
// c.Radius + reach*Steps and carries Zone; each inner square adds Zone.
// Overlaps keep the highest value.
func (f *Field) paint(c hlt.Circle, reach float64) {
	for i := 0; i < f.opts.Steps; i++ {
		half := c.Radius + reach*float64(f.opts.Steps-i)
		value := float32(f.opts.Zone * float64(i+1))

		x0 := max(0, int(math.Floor(c.X-half)))
		x1 := min(f.width-1, int(math.Ceil(c.X+half)))
		y0 := max(0, int(math.Floor(c.Y-half)))
		y1 := min(f.height-1, int(math.Ceil(c.Y+half)))
		for y := y0; y <= y1; y++ {
			row := y * f.width
			for x := x0; x <= x1; x++ {
				if f.data[row+x] < value {
					f.data[row+x] = value
				}
			}
		}
	}
}

// Value returns the influence at p. Points off the map have none.
func (f *Field) Value(p hlt.Point) float32 {
	x, y := int(math.Floor(p.X)), int(math.Floor(p.Y))
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return 0
	}
	v, err := f.grid.At(y, x)
	if err != nil {
		return 0
	}
	return v.(float32)
}

// Contains reports whether p lies inside our zone of control.
func (f *Field) Contains(p hlt.Point) bool {
	return float64(f.Value(p)) > f.opts.Threshold
}

// Coverage returns the share of cells above the threshold.
func (f *Field) Coverage() float64 {
	if f.width == 0 || f.height == 0 {
		return 0
	}
	above := 0
	for _, v := range f.data {
		if float64(v) > f.opts.Threshold {
			above++
		}
	}
	return float64(above) / float64(f.width*f.height)
}

func (f *Field) String() string {
	return fmt.Sprintf("influence %dx%d coverage=%.2f", f.width, f.height, f.Coverage())
}
