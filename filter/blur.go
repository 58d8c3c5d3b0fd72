package filter

import (
	"errors"
	"fmt"

	"github.com/soypat/terrabrush/surface"
)

// Blur is a separable box blur over the mask. Texels beyond the edge repeat the
// nearest edge texel. Blur owns a private intermediate surface acquired on first use
// that is only returned to the provider by Destroy.
type Blur struct {
	radius   int
	provider surface.Provider
	tmp      *surface.Surface
}

// NewBlur creates a box blur of the given radius in texels. A radius of zero copies src.
func NewBlur(p surface.Provider, radius int) (*Blur, error) {
	if p == nil {
		return nil, errors.New("nil surface provider")
	} else if radius < 0 {
		return nil, fmt.Errorf("negative blur radius %d", radius)
	}
	return &Blur{radius: radius, provider: p}, nil
}

func (*Blur) Name() string { return "blur" }

// Radius returns the blur radius in texels.
func (b *Blur) Radius() int { return b.radius }

func (b *Blur) Eval(fc Context, src, dst *surface.Surface) error {
	if !src.SameSize(dst) {
		return surface.ErrMismatchedSize
	}
	if b.radius == 0 {
		return surface.Copy(dst, src)
	}
	err := b.scratch(dst)
	if err != nil {
		return err
	}
	w, h := dst.Width(), dst.Height()
	in, mid, out := src.Pix(), b.tmp.Pix(), dst.Pix()
	r := b.radius
	norm := 1 / float32(2*r+1)
	for j := 0; j < h; j++ {
		row := in[j*w : j*w+w]
		for i := 0; i < w; i++ {
			var sum float32
			for k := i - r; k <= i+r; k++ {
				sum += row[clampi(k, 0, w-1)]
			}
			mid[j*w+i] = sum * norm
		}
	}
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			var sum float32
			for k := j - r; k <= j+r; k++ {
				sum += mid[clampi(k, 0, h-1)*w+i]
			}
			out[j*w+i] = sum * norm
		}
	}
	return nil
}

// scratch ensures the intermediate surface matches like.
func (b *Blur) scratch(like *surface.Surface) error {
	if b.tmp != nil && b.tmp.SameSize(like) && b.tmp.Format() == like.Format() {
		return nil
	}
	if err := b.Destroy(); err != nil {
		return err
	}
	tmp, err := b.provider.Acquire(like.Width(), like.Height(), like.Format())
	if err != nil {
		return err
	}
	b.tmp = tmp
	return nil
}

// Destroy returns the intermediate surface to the provider. The filter remains
// usable and reacquires a surface on the next evaluation.
func (b *Blur) Destroy() error {
	if b.tmp == nil {
		return nil
	}
	err := b.provider.Release(b.tmp)
	b.tmp = nil
	return err
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}
