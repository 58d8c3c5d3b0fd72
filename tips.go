package terrabrush

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/terrabrush/surface"
)

var errMismatchBufferLength = errors.New("position and weight buffer length mismatch")

// Tip is a brush texture: it maps brush-space positions to paint weights.
// Brush space spans [-0.5, 0.5] on both axes with the brush center at the origin.
type Tip interface {
	// Weights evaluates the tip over pos positions and stores the weights in dst.
	// pos and dst must be of same length.
	//
	// userData facilitates getting data to the evaluators for use in processing, such as [surface.VecPool].
	Weights(pos []ms2.Vec, dst []float32, userData any) error
}

// SDF2 is a 2D signed distance field usable as a brush tip outline.
// Negative distances are inside the shape.
type SDF2 interface {
	// Evaluate evaluates the signed distance field over pos positions.
	// dist and pos must be of same length.
	Evaluate(pos []ms2.Vec, dist []float32, userData any) error
	// Bounds returns the SDF's bounding box such that all of the shape is contained within.
	Bounds() ms2.Box
}

type circle2D struct {
	r float32
}

// NewCircle creates a circle of a radius centered at the origin (x,y)=(0,0).
func (bld *Builder) NewCircle(radius float32) SDF2 {
	okRadius := radius > 0 && !math32.IsInf(radius, 1)
	if !okRadius {
		bld.shapeErrorf("bad circle radius: " + strconv.FormatFloat(float64(radius), 'g', 6, 32))
	}
	return &circle2D{r: radius}
}

func (c *circle2D) Bounds() ms2.Box {
	r := c.r
	return ms2.Box{Min: ms2.Vec{X: -r, Y: -r}, Max: ms2.Vec{X: r, Y: r}}
}

func (c *circle2D) Evaluate(pos []ms2.Vec, dist []float32, userData any) error {
	r := c.r
	for i, p := range pos {
		dist[i] = ms2.Norm(p) - r
	}
	return nil
}

type rect2D struct {
	d ms2.Vec
}

// NewRectangle creates a rectangle centered at (x,y)=(0,0) with given x and y dimensions.
func (bld *Builder) NewRectangle(x, y float32) SDF2 {
	okRect := x > 0 && y > 0 && !math32.IsInf(x, 1) && !math32.IsInf(y, 1)
	if !okRect {
		bld.shapeErrorf("bad rectangle dimension")
	}
	return &rect2D{d: ms2.Vec{X: x, Y: y}}
}

func (c *rect2D) Bounds() ms2.Box {
	xd2 := c.d.X / 2
	yd2 := c.d.Y / 2
	return ms2.Box{
		Min: ms2.Vec{X: -xd2, Y: -yd2},
		Max: ms2.Vec{X: xd2, Y: yd2},
	}
}

func (c *rect2D) Evaluate(pos []ms2.Vec, dist []float32, userData any) error {
	b := ms2.Scale(0.5, c.d)
	for i, p := range pos {
		d := ms2.Sub(ms2.AbsElem(p), b)
		dist[i] = ms2.Norm(ms2.MaxElem(d, ms2.Vec{})) + math32.Min(0, math32.Max(d.X, d.Y))
	}
	return nil
}

type hex2D struct {
	side float32
}

// NewHexagon creates a regular hexagon centered at (x,y)=(0,0) with sides of length `side`.
func (bld *Builder) NewHexagon(side float32) SDF2 {
	okHex := side > 0 && !math32.IsInf(side, 1)
	if !okHex {
		bld.shapeErrorf("bad hexagon dimension")
	}
	return &hex2D{side: side}
}

func (c *hex2D) Bounds() ms2.Box {
	s := c.side
	return ms2.Box{Min: ms2.Vec{X: -s, Y: -s}, Max: ms2.Vec{X: s, Y: s}}
}

func (c *hex2D) Evaluate(pos []ms2.Vec, dist []float32, userData any) error {
	r := c.side
	k := ms2.Vec{X: -tribisect, Y: 0.5}
	const kz = 0.577350269
	for i, p := range pos {
		p = ms2.AbsElem(p)
		p = ms2.Sub(p, ms2.Scale(2*math32.Min(ms2.Dot(k, p), 0), k))
		p = ms2.Sub(p, ms2.Vec{X: clampf(p.X, -kz*r, kz*r), Y: r})
		dist[i] = signf(p.Y) * ms2.Norm(p)
	}
	return nil
}

// NewFalloffTip converts a signed distance shape into a [Tip]. The shape's bounding box
// is fit to brush space preserving aspect ratio. falloff is the width of the
// smoothstep band inside the outline as a fraction of brush size in [0, 1].
// A zero falloff results in a hard-edged tip.
func (bld *Builder) NewFalloffTip(sdf SDF2, falloff float32) Tip {
	if sdf == nil {
		panic("nil SDF2 argument to NewFalloffTip")
	}
	if falloff < 0 || falloff > 1 || math32.IsNaN(falloff) {
		bld.shapeErrorf("falloff %g outside [0, 1]", falloff)
		falloff = clampf(falloff, 0, 1)
	}
	bb := sdf.Bounds()
	sz := ms2.Sub(bb.Max, bb.Min)
	size := math32.Max(sz.X, sz.Y)
	if size < epstol {
		bld.shapeErrorf("degenerate tip bounds")
		size = 1
	}
	return &falloffTip{
		sdf:    sdf,
		center: ms2.Scale(0.5, ms2.Add(bb.Min, bb.Max)),
		scale:  size,
		band:   falloff * size,
	}
}

type falloffTip struct {
	sdf    SDF2
	center ms2.Vec
	scale  float32
	band   float32
}

func (ft *falloffTip) Weights(pos []ms2.Vec, dst []float32, userData any) error {
	if len(pos) != len(dst) {
		return errMismatchBufferLength
	}
	vp, err := surface.GetVecPool(userData)
	if err != nil {
		return err
	}
	aux := vp.V2.Acquire(len(pos))
	defer vp.V2.Release(aux)
	for i, p := range pos {
		aux[i] = ms2.Add(ft.center, ms2.Scale(ft.scale, p))
	}
	err = ft.sdf.Evaluate(aux, dst, userData)
	if err != nil {
		return err
	}
	band := ft.band
	for i, d := range dst {
		switch {
		case band == 0 && d <= 0:
			dst[i] = 1
		case band == 0:
			dst[i] = 0
		default:
			dst[i] = ms1.SmoothStep(0, band, -d)
		}
	}
	return nil
}

// RenderTip evaluates tip into every texel of dst. dst is interpreted as the brush square
// with texel centers mapped to brush space. rotation rotates the tip about
// the brush center in degrees, see [RotateBrushSpace]. userData must provide a [surface.VecPool].
func RenderTip(dst *surface.Surface, tip Tip, rotation float32, userData any) error {
	if dst == nil || tip == nil {
		return errors.New("nil argument to RenderTip")
	} else if dst.Released() {
		return surface.ErrReleased
	}
	vp, err := surface.GetVecPool(userData)
	if err != nil {
		return err
	}
	w, h := dst.Width(), dst.Height()
	pos := vp.V2.Acquire(w)
	defer vp.V2.Release(pos)
	pix := dst.Pix()
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			u, v := dst.UV(i, j)
			// Inverse rotation of the sampling position rotates the tip itself.
			pos[i] = RotateBrushSpace(ms2.Vec{X: u - 0.5, Y: v - 0.5}, -rotation)
		}
		err = tip.Weights(pos, pix[j*w:(j+1)*w], userData)
		if err != nil {
			return err
		}
	}
	return nil
}

// NamedTip attaches a stable name to a tip. Recorded strokes reference tips by
// name so that a replay can resolve the same tip.
type NamedTip struct {
	Tip
	name string
}

// WithName names tip.
func WithName(name string, tip Tip) *NamedTip {
	if tip == nil {
		panic("nil tip argument to WithName")
	}
	return &NamedTip{Tip: tip, name: name}
}

// Name returns the name given to the tip.
func (nt *NamedTip) Name() string { return nt.name }

// ShapeTips lists the names accepted by [ShapeTip].
var ShapeTips = []string{"circle", "square", "hexagon"}

// ShapeTip returns one of the built-in falloff tips by name. The same name always
// yields an identical tip.
func ShapeTip(shape string) (*NamedTip, error) {
	bld := Builder{NoDimensionPanic: true}
	var tip Tip
	switch shape {
	case "circle":
		tip = bld.NewFalloffTip(bld.NewCircle(1), 0.4)
	case "square":
		tip = bld.NewFalloffTip(bld.NewRectangle(1, 1), 0.2)
	case "hexagon":
		tip = bld.NewFalloffTip(bld.NewHexagon(1), 0.1)
	default:
		return nil, fmt.Errorf("unknown tip shape %q", shape)
	}
	if err := bld.Err(); err != nil {
		return nil, err
	}
	return WithName(shape, tip), nil
}
