// Package brushaux renders brush masks and terrain storage to images for debugging
// and for the command line tools.
package brushaux

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/soypat/terrabrush/surface"
	"github.com/soypat/terrabrush/terrain"
	"golang.org/x/image/draw"
)

// SurfaceImage renders s with conv, one pixel per texel, then scales the result by an
// integer factor with nearest neighbor sampling. A nil conv maps [0,1] to grayscale.
func SurfaceImage(s *surface.Surface, scale int, conv func(float32) color.Color) (image.Image, error) {
	if s == nil {
		return nil, errors.New("nil surface")
	} else if s.Released() {
		return nil, surface.ErrReleased
	}
	return renderValues(s.Pix(), s.Width(), s.Height(), scale, conv)
}

// HeightMapImage renders the heightmap with conv, row 0 at the top of the image.
// A nil conv uses a green to white elevation gradient.
func HeightMapImage(hm *terrain.HeightMap, scale int, conv func(float32) color.Color) (image.Image, error) {
	if hm == nil {
		return nil, errors.New("nil heightmap")
	}
	if conv == nil {
		conv = ColorConversionGradient(0, 1, color.RGBA{R: 40, G: 90, B: 40, A: 255}, color.White)
	}
	b := hm.Bounds()
	return renderValues(hm.Data(), b.Dx(), b.Dy(), scale, conv)
}

// HeightDeltaImage renders the height change from before to after with [ColorConversionSigned],
// raised terrain warm and lowered terrain cool. Colors saturate at the largest change.
func HeightDeltaImage(before, after *terrain.HeightMap, scale int) (image.Image, error) {
	if before == nil || after == nil {
		return nil, errors.New("nil heightmap")
	} else if before.Bounds() != after.Bounds() {
		return nil, errors.New("heightmap bounds mismatch")
	}
	b0, b1 := before.Data(), after.Data()
	delta := make([]float32, len(b1))
	var maxAbs float32
	for i := range delta {
		delta[i] = b1[i] - b0[i]
		maxAbs = max(maxAbs, delta[i], -delta[i])
	}
	if maxAbs == 0 {
		maxAbs = 1
	}
	b := after.Bounds()
	return renderValues(delta, b.Dx(), b.Dy(), scale, ColorConversionSigned(maxAbs))
}

func renderValues(values []float32, w, h, scale int, conv func(float32) color.Color) (image.Image, error) {
	if scale < 1 {
		return nil, errors.New("image scale must be at least 1")
	}
	if conv == nil {
		conv = ColorConversionGrayscale(0, 1)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			img.Set(i, j, conv(values[j*w+i]))
		}
	}
	if scale == 1 {
		return img, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}

// WritePNG encodes img to a PNG file with said filename.
func WritePNG(filename string, img image.Image) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = png.Encode(fp, img)
	if err != nil {
		return err
	}
	return fp.Sync()
}

// UIConfig configures the interactive terrain preview opened by [UI].
type UIConfig struct {
	Width, Height int
	// Context, when set, closes the window when done.
	Context context.Context
}

// UI opens a window showing t as a shaded 3D heightfield. Drag with the left mouse
// button to orbit and scroll to zoom. The heightmap is sampled once when UI is called.
// UI must be called from the main thread and requires a build with the glgpu tag and cgo.
func UI(t *terrain.Terrain, cfg UIConfig) error {
	if t == nil {
		return errors.New("nil terrain")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 800, 600
	}
	return ui(t, cfg)
}
