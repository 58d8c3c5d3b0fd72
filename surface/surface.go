package surface

import (
	"errors"
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

var (
	// ErrMismatchedSize is returned when two surfaces that must share dimensions do not.
	ErrMismatchedSize = errors.New("mismatched surface size")
	// ErrUnknownHandle is returned when a surface is released to a provider that did not acquire it.
	ErrUnknownHandle = errors.New("unknown surface handle")
	// ErrReleased is returned on operations over a surface that was already released.
	ErrReleased = errors.New("surface already released")

	errBadDimensions = errors.New("surface dimensions must be positive")
	errNilSurface    = errors.New("nil surface")
)

// Format describes how a surface's texels would be stored on a GPU.
// Surface contents are always float32 on the CPU side; the format
// is used for memory accounting and passed along to filters in [filter.Context].
type Format uint8

const (
	formatUndefined Format = iota
	// FormatR32F is a single channel 32 bit float format. It is the default mask format.
	FormatR32F
	// FormatR16 is a single channel 16 bit normalized format, the usual heightmap format.
	FormatR16
	// FormatR8 is a single channel 8 bit normalized format.
	FormatR8
)

// BytesPerPixel returns the GPU storage cost of a single texel.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatR32F:
		return 4
	case FormatR16:
		return 2
	case FormatR8:
		return 1
	}
	return 0
}

// IsValid reports whether f is a known format.
func (f Format) IsValid() bool { return f.BytesPerPixel() > 0 }

func (f Format) String() string {
	switch f {
	case FormatR32F:
		return "R32F"
	case FormatR16:
		return "R16"
	case FormatR8:
		return "R8"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// Handle identifies a surface acquired from a [Provider]. The zero Handle
// belongs to standalone surfaces created with [New] or surfaces that were released.
type Handle uint64

// Surface is a dense, row-major, single channel float32 render target.
// Values are not clamped.
type Surface struct {
	width  int
	height int
	format Format
	handle Handle
	pix    []float32
}

// New creates a standalone surface not tracked by any provider.
func New(width, height int, format Format) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, errBadDimensions
	} else if !format.IsValid() {
		return nil, fmt.Errorf("invalid surface format %s", format)
	}
	return &Surface{
		width:  width,
		height: height,
		format: format,
		pix:    make([]float32, width*height),
	}, nil
}

// Width returns the surface width in texels.
func (s *Surface) Width() int { return s.width }

// Height returns the surface height in texels.
func (s *Surface) Height() int { return s.height }

// Format returns the surface storage format.
func (s *Surface) Format() Format { return s.format }

// Handle returns the provider handle of the surface. Standalone surfaces return 0.
func (s *Surface) Handle() Handle { return s.handle }

// Bounds returns the surface dimensions as an image.Rectangle.
func (s *Surface) Bounds() image.Rectangle { return image.Rect(0, 0, s.width, s.height) }

// Pix exposes the row-major backing slice so callers can read/write values directly.
func (s *Surface) Pix() []float32 { return s.pix }

// Released reports whether the surface was returned to its provider.
func (s *Surface) Released() bool { return s.pix == nil }

// SameSize reports whether both surfaces share dimensions.
func (s *Surface) SameSize(other *Surface) bool {
	return s.width == other.width && s.height == other.height
}

// At returns the value at (x, y). Returns 0 for coordinates outside the surface bounds.
func (s *Surface) At(x, y int) float32 {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return 0
	}
	return s.pix[y*s.width+x]
}

// Set sets the value at (x, y). Coordinates outside the surface bounds are ignored.
func (s *Surface) Set(x, y int, v float32) {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return
	}
	s.pix[y*s.width+x] = v
}

// Fill sets every texel to v.
func (s *Surface) Fill(v float32) {
	for i := range s.pix {
		s.pix[i] = v
	}
}

// UV returns the normalized coordinates of the center of texel (x, y).
func (s *Surface) UV(x, y int) (u, v float32) {
	return (float32(x) + 0.5) / float32(s.width), (float32(y) + 0.5) / float32(s.height)
}

// Sample bilinearly samples the surface at normalized coordinates (u, v)
// with clamp-to-edge addressing. Texel centers lie at (i+0.5)/width.
func (s *Surface) Sample(u, v float32) float32 {
	x := u*float32(s.width) - 0.5
	y := v*float32(s.height) - 0.5
	x0f := math32.Floor(x)
	y0f := math32.Floor(y)
	tx := x - x0f
	ty := y - y0f
	x0, y0 := int(x0f), int(y0f)
	x1, y1 := s.clampX(x0+1), s.clampY(y0+1)
	x0, y0 = s.clampX(x0), s.clampY(y0)
	w := s.width
	a := s.pix[y0*w+x0]
	b := s.pix[y0*w+x1]
	c := s.pix[y1*w+x0]
	d := s.pix[y1*w+x1]
	top := a + (b-a)*tx
	bot := c + (d-c)*tx
	return top + (bot-top)*ty
}

func (s *Surface) clampX(x int) int {
	if x < 0 {
		return 0
	} else if x >= s.width {
		return s.width - 1
	}
	return x
}

func (s *Surface) clampY(y int) int {
	if y < 0 {
		return 0
	} else if y >= s.height {
		return s.height - 1
	}
	return y
}

// Copy copies src's texels into dst. Both surfaces must share dimensions.
func Copy(dst, src *Surface) error {
	if dst == nil || src == nil {
		return errNilSurface
	} else if dst.Released() || src.Released() {
		return ErrReleased
	} else if !dst.SameSize(src) {
		return fmt.Errorf("copy %dx%d into %dx%d: %w", src.width, src.height, dst.width, dst.height, ErrMismatchedSize)
	}
	copy(dst.pix, src.pix)
	return nil
}
