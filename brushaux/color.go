package brushaux

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// A great portion of the HSV logic in this file taken from Esme Lamb's (@dedelala)
// excellent color manipulation work presented at Gophercon AU 2024.
// https://github.com/dedelala/disco/tree/main/color

var red = color.RGBA{R: 255, A: 255}

// ColorConversionGrayscale maps [lo, hi] linearly onto black to white. Values
// outside the range saturate and NaN maps to red.
func ColorConversionGrayscale(lo, hi float32) func(float32) color.Color {
	inv := 1 / (hi - lo)
	return func(v float32) color.Color {
		if math.IsNaN(v) {
			return red
		}
		t := ms1.Clamp((v-lo)*inv, 0, 1)
		return color.Gray{Y: uint8(t*255 + 0.5)}
	}
}

// ColorConversionGradient maps [lo, hi] onto a gradient from c0 to c1 interpolated in HSV space.
func ColorConversionGradient(lo, hi float32, c0, c1 color.Color) func(float32) color.Color {
	h0, s0, v0 := colorToHSV(c0)
	h1, s1, v1 := colorToHSV(c1)
	inv := 1 / (hi - lo)
	return func(v float32) color.Color {
		if math.IsNaN(v) {
			return red
		}
		t := (v - lo) * inv
		if t <= 0 {
			return c0
		} else if t >= 1 {
			return c1
		}
		r, g, b := hsvToRGB(interpHSV(h0, s0, v0, h1, s1, v1, t))
		return color.RGBA{
			R: uint8(ms1.Clamp(r, 0, 1) * 255),
			G: uint8(ms1.Clamp(g, 0, 1) * 255),
			B: uint8(ms1.Clamp(b, 0, 1) * 255),
			A: 255,
		}
	}
}

// ColorConversionSigned renders signed values with contour bands, warm for positive and
// cool for negative, in the style popularized by Inigo Quilez for distance fields.
// scale is the value at which colors saturate. Useful to inspect height differences
// and unclamped masks.
func ColorConversionSigned(scale float32) func(float32) color.Color {
	inv := 1 / scale
	one := ms3.Vec{X: 1, Y: 1, Z: 1}
	return func(v float32) color.Color {
		if math.IsNaN(v) {
			return red
		}
		v *= inv
		c := ms3.Vec{X: 0.65, Y: 0.85, Z: 1.0}
		if v > 0 {
			c = ms3.Vec{X: 0.9, Y: 0.6, Z: 0.3}
		}
		c = ms3.Scale(1-math.Exp(-6*math.Abs(v)), c)
		c = ms3.Scale(0.8+0.2*math.Cos(150*v), c)
		zero := 1 - ms1.SmoothStep(0, 0.01, math.Abs(v))
		c = ms3.Add(c, ms3.Scale(zero, ms3.Sub(one, c)))
		return color.RGBA{R: uint8(c.X * 255), G: uint8(c.Y * 255), B: uint8(c.Z * 255), A: 255}
	}
}

func interpHSV(h0, s0, v0, h1, s1, v1, t float32) (h, s, v float32) {
	switch {
	case h1-h0 > 0.5:
		h0 += 1.0
	case h1-h0 < -0.5:
		h1 += 1.0
	}
	h = math.Mod(ms1.Interp(h0, h1, t), 1)
	s = ms1.Interp(s0, s1, t)
	v = ms1.Interp(v0, v1, t)
	return h, s, v
}

func colorToHSV(c color.Color) (h, s, v float32) {
	r, g, b, _ := c.RGBA()
	return rgbToHSV(float32(r>>8)/255, float32(g>>8)/255, float32(b>>8)/255)
}

// hsvToRGB converts hue, saturation and value in [0,1] to RGB in [0,1].
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	c := s * v
	x := c * (1 - math.Abs(math.Mod(h*6, 2)-1))
	m := v - c
	switch {
	case h < 1.0/6:
		r, g, b = c, x, 0
	case h < 2.0/6:
		r, g, b = x, c, 0
	case h < 3.0/6:
		r, g, b = 0, c, x
	case h < 4.0/6:
		r, g, b = 0, x, c
	case h < 5.0/6:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

func rgbToHSV(r, g, b float32) (h, s, v float32) {
	xmax := max(r, g, b)
	c := xmax - min(r, g, b)
	v = xmax
	switch {
	case c == 0:
		h = 0
	case v == r:
		h = (g - b) / (c * 6)
	case v == g:
		h = 1.0/3 + (b-r)/(c*6)
	default:
		h = 2.0/3 + (r-g)/(c*6)
	}
	if h < 0 {
		h += 1
	}
	if xmax > 0 {
		s = c / xmax
	}
	return h, s, v
}
