package terrain

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrOutOfBounds is returned when a region does not lie fully within a field.
	ErrOutOfBounds = errors.New("region out of bounds")
	// ErrShapeMismatch is returned when a written grid does not match the expected dimensions.
	ErrShapeMismatch = errors.New("region shape mismatch")
)

// Grid is a dense row-major 2D array of scalars, the unit of exchange
// when reading or writing regions of a [Field].
type Grid struct {
	W, H int
	Data []float32
}

// NewGrid allocates a zeroed w x h grid.
func NewGrid(w, h int) *Grid {
	return &Grid{W: w, H: h, Data: make([]float32, w*h)}
}

// Index returns the linear slice index for coordinates (x, y).
func (g *Grid) Index(x, y int) int { return y*g.W + x }

// At returns the value at (x, y).
func (g *Grid) At(x, y int) float32 { return g.Data[y*g.W+x] }

// Set sets the value at (x, y).
func (g *Grid) Set(x, y int, v float32) { g.Data[y*g.W+x] = v }

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	return &Grid{W: g.W, H: g.H, Data: append([]float32(nil), g.Data...)}
}

func (g *Grid) validate() error {
	if g == nil {
		return errors.New("nil grid")
	} else if g.W <= 0 || g.H <= 0 || len(g.Data) != g.W*g.H {
		return fmt.Errorf("grid %dx%d with %d values: %w", g.W, g.H, len(g.Data), ErrShapeMismatch)
	}
	return nil
}

// Field is the external height or weight storage painted by tools.
// Regions must lie within Bounds; implementations never clamp or wrap.
type Field interface {
	Bounds() image.Rectangle
	// Region reads the w x h region with top-left corner at (x, y).
	Region(x, y, w, h int) (*Grid, error)
	// SetRegion writes g with its top-left corner at (x, y).
	SetRegion(x, y int, g *Grid) error
}

func checkRegion(bounds image.Rectangle, x, y, w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("empty region %dx%d: %w", w, h, ErrShapeMismatch)
	}
	r := image.Rect(x, y, x+w, y+h)
	if !r.In(bounds) {
		return fmt.Errorf("region %v not within %v: %w", r, bounds, ErrOutOfBounds)
	}
	return nil
}

// plane is a single dense channel shared by HeightMap and AlphaMap layers.
type plane struct {
	w, h int
	data []float32
}

func (p *plane) bounds() image.Rectangle { return image.Rect(0, 0, p.w, p.h) }

func (p *plane) region(x, y, w, h int) (*Grid, error) {
	if err := checkRegion(p.bounds(), x, y, w, h); err != nil {
		return nil, err
	}
	g := NewGrid(w, h)
	for j := 0; j < h; j++ {
		off := (y+j)*p.w + x
		copy(g.Data[j*w:(j+1)*w], p.data[off:off+w])
	}
	return g, nil
}

func (p *plane) setRegion(x, y int, g *Grid) error {
	if err := g.validate(); err != nil {
		return err
	}
	if err := checkRegion(p.bounds(), x, y, g.W, g.H); err != nil {
		return err
	}
	for j := 0; j < g.H; j++ {
		off := (y+j)*p.w + x
		copy(p.data[off:off+g.W], g.Data[j*g.W:(j+1)*g.W])
	}
	return nil
}
