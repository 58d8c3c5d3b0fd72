// Package filter implements brush mask filters and the ordered stack that
// composites them into a floating point mask.
//
// Filters are evaluated in brush space: a surface covering the square brush
// footprint, with texel centers mapped to normalized brush coordinates.
// Values are never clamped by the stack; filters may push them below zero or
// above one and clamping is left to the final consumer.
package filter

import (
	"errors"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/terrabrush/surface"
)

// Neutral is the mask value meaning full strength. An empty stack produces it everywhere.
const Neutral = 1

var (
	// ErrIndexOutOfRange is returned by index based stack mutations.
	ErrIndexOutOfRange = errors.New("filter index out of range")
	// ErrUnknownFilter is returned when creating a filter by an unregistered name.
	ErrUnknownFilter = errors.New("unknown filter")

	errNilDestination = errors.New("nil destination surface")
	errNilFilter      = errors.New("nil filter")
)

// Context is the immutable brush snapshot passed to every filter of one evaluation.
// Filters must not retain it.
type Context struct {
	// BrushPos is the world position of the brush center.
	BrushPos ms3.Vec
	// BrushRotation is the brush rotation in degrees. Positive angles turn +X toward +Z.
	BrushRotation float32
	// BrushSize is the world size of the square brush footprint.
	BrushSize float32
	// BrushStrength is conventionally in [0,1] though not enforced.
	BrushStrength float32
	// Format is the pixel format of the surfaces being evaluated.
	Format surface.Format
	// Scratch provides temporary buffers for filters that need them. [Stack.Eval] sets it
	// to the stack's own pool when nil.
	Scratch *surface.VecPool
}

// VecPool implements the userData contract of [surface.GetVecPool].
func (fc *Context) VecPool() *surface.VecPool { return fc.Scratch }

// BrushSpace returns the brush-space position of texel (x, y) of s, with the brush
// center at the origin and the brush footprint spanning [-0.5, 0.5] on both axes.
func BrushSpace(s *surface.Surface, x, y int) ms2.Vec {
	u, v := s.UV(x, y)
	return ms2.Vec{X: u - 0.5, Y: v - 0.5}
}

// Filter transforms a source surface into a destination surface of identical dimensions.
// Implementations write every texel of dst and must not assume a fixed size.
type Filter interface {
	// Name returns the stable identifier the filter is registered under.
	Name() string
	// Eval reads src and writes dst.
	Eval(fc Context, src, dst *surface.Surface) error
}

// Destroyer is implemented by filters that own resources, such as private surfaces,
// that must be released when the filter is discarded.
type Destroyer interface {
	Destroy() error
}

// Destroy releases f's resources if it owns any.
func Destroy(f Filter) error {
	if d, ok := f.(Destroyer); ok {
		return d.Destroy()
	}
	return nil
}

// pointwise evaluates fn for every texel pair.
func pointwise(src, dst *surface.Surface, fn func(v float32) float32) error {
	if !src.SameSize(dst) {
		return surface.ErrMismatchedSize
	}
	s, d := src.Pix(), dst.Pix()
	for i, v := range s {
		d[i] = fn(v)
	}
	return nil
}
