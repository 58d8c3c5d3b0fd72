package filter

import (
	"github.com/chewxy/math32"
	"github.com/soypat/terrabrush/surface"
)

// Add adds a constant to every texel: dst = src + Value.
type Add struct {
	Value float32
}

func (*Add) Name() string { return "add" }

func (a *Add) Eval(fc Context, src, dst *surface.Surface) error {
	v := a.Value
	return pointwise(src, dst, func(s float32) float32 { return s + v })
}

// Multiply scales every texel: dst = src * Value.
type Multiply struct {
	Value float32
}

func (*Multiply) Name() string { return "multiply" }

func (m *Multiply) Eval(fc Context, src, dst *surface.Surface) error {
	v := m.Value
	return pointwise(src, dst, func(s float32) float32 { return s * v })
}

// Power raises the magnitude of every texel to Exponent preserving its sign.
type Power struct {
	Exponent float32
}

func (*Power) Name() string { return "power" }

func (p *Power) Eval(fc Context, src, dst *surface.Surface) error {
	e := p.Exponent
	return pointwise(src, dst, func(s float32) float32 {
		return math32.Copysign(math32.Pow(math32.Abs(s), e), s)
	})
}

// Abs takes the absolute value of every texel.
type Abs struct{}

func (*Abs) Name() string { return "abs" }

func (*Abs) Eval(fc Context, src, dst *surface.Surface) error {
	return pointwise(src, dst, math32.Abs)
}

// Complement inverts the mask: dst = 1 - src.
type Complement struct{}

func (*Complement) Name() string { return "complement" }

func (*Complement) Eval(fc Context, src, dst *surface.Surface) error {
	return pointwise(src, dst, func(s float32) float32 { return 1 - s })
}

// Clamp limits every texel to [Min, Max].
type Clamp struct {
	Min, Max float32
}

func (*Clamp) Name() string { return "clamp" }

func (c *Clamp) Eval(fc Context, src, dst *surface.Surface) error {
	lo, hi := c.Min, c.Max
	return pointwise(src, dst, func(s float32) float32 {
		return math32.Max(lo, math32.Min(s, hi))
	})
}

// Remap linearly maps [FromMin, FromMax] onto [ToMin, ToMax]. Values outside the
// source range extrapolate; the result is not clamped.
// An empty source range, FromMin == FromMax, is a step: values below FromMin map
// to ToMin and the rest to ToMax.
type Remap struct {
	FromMin, FromMax float32
	ToMin, ToMax     float32
}

func (*Remap) Name() string { return "remap" }

func (r *Remap) Eval(fc Context, src, dst *surface.Surface) error {
	if r.FromMin == r.FromMax {
		edge, lo, hi := r.FromMin, r.ToMin, r.ToMax
		return pointwise(src, dst, func(s float32) float32 {
			if s < edge {
				return lo
			}
			return hi
		})
	}
	scale := (r.ToMax - r.ToMin) / (r.FromMax - r.FromMin)
	fromMin, toMin := r.FromMin, r.ToMin
	return pointwise(src, dst, func(s float32) float32 {
		return toMin + (s-fromMin)*scale
	})
}
