package paint

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/terrabrush/filter"
	"github.com/soypat/terrabrush/terrain"
)

// RaiseLower raises the terrain under the brush, or lowers it when Lower is set.
type RaiseLower struct {
	// Amount is the normalized height change of one occurrence at full weight.
	Amount float32
	Lower  bool
}

func (rl *RaiseLower) Name() string {
	if rl.Lower {
		return "lower"
	}
	return "raise"
}

func (rl *RaiseLower) OnPaint(t *terrain.Terrain, ctx *Context) error {
	amount := rl.Amount
	if rl.Lower {
		amount = -amount
	}
	_, err := applyHeights(t, ctx, func(h float32, _ ms2.Vec, w float32) float32 {
		return h + amount*w
	})
	return err
}

// SetHeight moves the terrain toward a target height. At full weight the target is reached
// in a single occurrence.
type SetHeight struct {
	// Height is the normalized target height in [0,1].
	Height float32
}

func (*SetHeight) Name() string { return "set-height" }

func (sh *SetHeight) OnPaint(t *terrain.Terrain, ctx *Context) error {
	target := sh.Height
	_, err := applyHeights(t, ctx, func(h float32, _ ms2.Vec, w float32) float32 {
		return h + (target-h)*w
	})
	return err
}

// Stamp presses the brush shape into the terrain as a height profile: the mask and tip
// weight scaled by Height is the stamped height, and terrain already above it is kept.
// Strength blends between the current terrain and the stamped result.
type Stamp struct {
	Height float32
}

func (*Stamp) Name() string { return "stamp" }

func (st *Stamp) OnPaint(t *terrain.Terrain, ctx *Context) error {
	if t == nil || t.Heights == nil {
		return errNilTerrain
	}
	// The weight handed to the height function carries strength; recover the shape alone.
	strength := ctx.Strength
	height := st.Height
	_, err := applyHeights(t, ctx, func(h float32, _ ms2.Vec, w float32) float32 {
		shape := w / strength
		target := math32.Max(h, height*shape)
		return h + (target-h)*math32.Abs(strength)
	})
	return err
}

// Smooth averages every sample with its 3x3 neighborhood. A negative Direction
// sharpens instead, pushing samples away from their neighborhood mean.
type Smooth struct {
	// Direction in [-1, 1] scales the change toward the neighborhood mean.
	Direction float32
}

func (*Smooth) Name() string { return "smooth" }

func (sm *Smooth) OnPaint(t *terrain.Terrain, ctx *Context) error {
	if t == nil || t.Heights == nil {
		return errNilTerrain
	} else if !ctx.Active() || sm.Direction == 0 {
		return nil
	}
	r := t.HeightmapRect(ctx.UV, ctx.Size)
	if r.Empty() {
		return nil
	}
	bounds := t.Heights.Bounds()
	// Neighbors outside the brush region are read but never written.
	outer := r.Inset(-1).Intersect(bounds)
	src, err := t.Heights.Region(outer.Min.X, outer.Min.Y, outer.Dx(), outer.Dy())
	if err != nil {
		return err
	}
	dst, err := t.Heights.Region(r.Min.X, r.Min.Y, r.Dx(), r.Dy())
	if err != nil {
		return err
	}
	for j := 0; j < dst.H; j++ {
		for i := 0; i < dst.W; i++ {
			x, y := r.Min.X+i, r.Min.Y+j
			uv := terrain.SampleUV(bounds, x, y, true)
			w := ctx.Weight(t, uv) * ctx.Strength * sm.Direction
			if w == 0 {
				continue
			}
			mean := neighborhoodMean(src, outer, x, y)
			k := dst.Index(i, j)
			dst.Data[k] = clamp01(dst.Data[k] + (mean-dst.Data[k])*w)
		}
	}
	return t.Heights.SetRegion(r.Min.X, r.Min.Y, dst)
}

// neighborhoodMean averages the samples of g around field coordinate (x, y).
// g covers field rectangle r; samples outside r are skipped.
func neighborhoodMean(g *terrain.Grid, r image.Rectangle, x, y int) float32 {
	var sum float32
	var n int
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			p := image.Pt(x+dx, y+dy)
			if !p.In(r) {
				continue
			}
			sum += g.At(p.X-r.Min.X, p.Y-r.Min.Y)
			n++
		}
	}
	return sum / float32(n)
}

// NoiseHeight adds world-space fractal noise to the terrain. The noise is centered so
// equal amounts are raised and lowered on average.
type NoiseHeight struct {
	// Amount is the normalized height change at full weight for a noise extreme.
	Amount float32
	field  *filter.NoiseField
}

// NewNoiseHeight creates a noise tool sampling the field described by settings in world units.
func NewNoiseHeight(settings filter.NoiseSettings, amount float32) (*NoiseHeight, error) {
	field, err := filter.NewNoiseField(settings)
	if err != nil {
		return nil, err
	}
	return &NoiseHeight{Amount: amount, field: field}, nil
}

func (*NoiseHeight) Name() string { return "noise" }

func (nh *NoiseHeight) OnPaint(t *terrain.Terrain, ctx *Context) error {
	if nh.field == nil {
		return fmt.Errorf("noise tool not initialized, use NewNoiseHeight")
	} else if t == nil {
		return errNilTerrain
	}
	amount := nh.Amount
	_, err := applyHeights(t, ctx, func(h float32, uv ms2.Vec, w float32) float32 {
		world := ms2.Vec{X: t.Position.X + uv.X*t.Size.X, Y: t.Position.Z + uv.Y*t.Size.Z}
		n := 2*nh.field.At(world) - 1
		return h + n*amount*w
	})
	return err
}

// TexturePaint raises the weight of one alphamap layer. Remaining layers are scaled
// down so that every painted texel's weights keep summing to one.
type TexturePaint struct {
	Layer int
}

func (*TexturePaint) Name() string { return "texture" }

func (tp *TexturePaint) OnPaint(t *terrain.Terrain, ctx *Context) error {
	if t == nil {
		return errNilTerrain
	} else if t.Alphas == nil {
		return ErrNoAlphamap
	}
	am := t.Alphas
	if tp.Layer < 0 || tp.Layer >= am.Layers() {
		return fmt.Errorf("layer %d of %d: %w", tp.Layer, am.Layers(), ErrLayerOutOfRange)
	}
	if !ctx.Active() {
		return nil
	}
	r := t.AlphamapRect(ctx.UV, ctx.Size)
	if r.Empty() {
		return nil
	}
	layers := make([]*terrain.Grid, am.Layers())
	for i := range layers {
		g, err := am.LayerRegion(i, r.Min.X, r.Min.Y, r.Dx(), r.Dy())
		if err != nil {
			return err
		}
		layers[i] = g
	}
	bounds := am.Bounds()
	target := layers[tp.Layer]
	for j := 0; j < target.H; j++ {
		for i := 0; i < target.W; i++ {
			uv := terrain.SampleUV(bounds, r.Min.X+i, r.Min.Y+j, false)
			w := clamp01(ctx.Weight(t, uv) * ctx.Strength)
			if w == 0 {
				continue
			}
			k := target.Index(i, j)
			old := target.Data[k]
			next := old + (1-old)*w
			target.Data[k] = next
			var rest float32
			for l, g := range layers {
				if l != tp.Layer {
					rest += g.Data[k]
				}
			}
			scale := float32(0)
			if rest > 0 {
				scale = (1 - next) / rest
			} else {
				target.Data[k] = 1
			}
			for l, g := range layers {
				if l != tp.Layer {
					g.Data[k] *= scale
				}
			}
		}
	}
	for i, g := range layers {
		if err := am.SetLayerRegion(i, r.Min.X, r.Min.Y, g); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	Register("raise", func() Tool { return &RaiseLower{Amount: 0.01} })
	Register("lower", func() Tool { return &RaiseLower{Amount: 0.01, Lower: true} })
	Register("set-height", func() Tool { return &SetHeight{Height: 0.5} })
	Register("stamp", func() Tool { return &Stamp{Height: 0.25} })
	Register("smooth", func() Tool { return &Smooth{Direction: 1} })
	Register("noise", func() Tool {
		settings := filter.DefaultNoiseSettings()
		settings.Scale = 0.05
		nh, err := NewNoiseHeight(settings, 0.01)
		if err != nil {
			panic(err)
		}
		return nh
	})
	Register("texture", func() Tool { return &TexturePaint{Layer: 1} })
}
