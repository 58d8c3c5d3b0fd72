package terrabrush

import (
	"errors"
	"image"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/terrabrush/surface"
	"golang.org/x/image/draw"
)

// ImageTip is a [Tip] sampled from a grayscale rendition of an image.
// Brighter pixels paint with more weight.
type ImageTip struct {
	name string
	tex  *surface.Surface
}

// NewImageTip resamples img to a resolution x resolution grayscale texture used as brush tip.
// The name identifies the tip in replay logs.
func NewImageTip(name string, img image.Image, resolution int) (*ImageTip, error) {
	if img == nil {
		return nil, errors.New("nil image")
	} else if resolution <= 1 {
		return nil, errors.New("image tip resolution must be greater than 1")
	} else if img.Bounds().Empty() {
		return nil, errors.New("empty image")
	}
	gray := image.NewGray16(image.Rect(0, 0, resolution, resolution))
	draw.BiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), draw.Src, nil)
	tex, err := surface.New(resolution, resolution, surface.FormatR16)
	if err != nil {
		return nil, err
	}
	for j := 0; j < resolution; j++ {
		for i := 0; i < resolution; i++ {
			tex.Set(i, j, float32(gray.Gray16At(i, j).Y)/0xffff)
		}
	}
	return &ImageTip{name: name, tex: tex}, nil
}

// Name returns the tip's identifier.
func (it *ImageTip) Name() string { return it.name }

// Weights implements [Tip]. Positions outside brush space have zero weight.
func (it *ImageTip) Weights(pos []ms2.Vec, dst []float32, userData any) error {
	if len(pos) != len(dst) {
		return errMismatchBufferLength
	}
	for i, p := range pos {
		u, v := p.X+0.5, p.Y+0.5
		if u < 0 || u > 1 || v < 0 || v > 1 {
			dst[i] = 0
			continue
		}
		dst[i] = it.tex.Sample(u, v)
	}
	return nil
}
