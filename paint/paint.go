// Package paint implements the tools that apply an evaluated brush to terrain storage.
//
// Every tool follows the same sequence: resolve the brush rectangle of the
// affected field from the context's UV and size, read that region, compute new
// values weighted by brush strength, mask and tip, and write the region back.
// Tools never touch samples outside the resolved rectangle.
package paint

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/terrabrush"
	"github.com/soypat/terrabrush/surface"
	"github.com/soypat/terrabrush/terrain"
)

var (
	// ErrUnknownTool is returned when creating a tool by an unregistered name.
	ErrUnknownTool = errors.New("unknown paint tool")
	// ErrLayerOutOfRange is returned by texture painting on a layer the alphamap lacks.
	ErrLayerOutOfRange = errors.New("texture layer out of range")
	// ErrNoAlphamap is returned by texture painting on a terrain without texture layers.
	ErrNoAlphamap = errors.New("terrain has no alphamap")

	errNilTerrain = errors.New("nil terrain")
)

// Context is the per-tick input of a paint tool.
type Context struct {
	// Mask is the filter stack output covering the brush square in brush space, unrotated.
	// A nil Mask paints at full strength.
	Mask *surface.Surface
	// Texture is the tool's brush tip rendered at Rotation. A nil Texture paints the full square.
	Texture *surface.Surface
	// UV is the normalized terrain coordinate of the brush center.
	UV ms2.Vec
	// Strength scales every change. Zero strength leaves the field untouched.
	Strength float32
	// Size is the world size of the square brush footprint.
	Size float32
	// Rotation of the brush in degrees, see [terrabrush.RotateBrushSpace].
	Rotation float32
	// HitValid is false when the cursor missed the terrain. Tools do nothing on an invalid hit.
	HitValid bool
	Hit      terrain.Hit
	// Provider owns Mask and Texture and receives them back on Release.
	Provider surface.Provider
}

// Active reports whether painting with the context can change anything.
func (c *Context) Active() bool {
	return c.HitValid && c.Strength != 0 && c.Size > 0
}

// Release returns the context's surfaces to its provider. It is safe to call more than once.
func (c *Context) Release() error {
	var errs []error
	for _, s := range []**surface.Surface{&c.Mask, &c.Texture} {
		if *s == nil {
			continue
		}
		if c.Provider != nil {
			if err := c.Provider.Release(*s); err != nil {
				errs = append(errs, err)
			}
		}
		*s = nil
	}
	return errors.Join(errs...)
}

// Weight returns the brush weight at normalized terrain coordinate uv, without strength applied.
// The mask is clamped to [0,1]. Positions outside the brush square weigh zero.
func (c *Context) Weight(t *terrain.Terrain, uv ms2.Vec) float32 {
	bu := (uv.X-c.UV.X)*t.Size.X/c.Size + 0.5
	bv := (uv.Y-c.UV.Y)*t.Size.Z/c.Size + 0.5
	if bu < 0 || bu > 1 || bv < 0 || bv > 1 {
		return 0
	}
	w := float32(1)
	if c.Mask != nil {
		w = clamp01(c.Mask.Sample(bu, bv))
	}
	if c.Texture != nil {
		w *= clamp01(c.Texture.Sample(bu, bv))
	}
	return w
}

// Tool applies a brush to a terrain.
type Tool interface {
	// Name returns the stable identifier the tool is registered under.
	Name() string
	// OnPaint applies one brush occurrence.
	OnPaint(t *terrain.Terrain, ctx *Context) error
}

// Factory creates a tool with default settings.
type Factory func() Tool

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a tool available by name.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		panic("paint: Register with empty name or nil factory")
	}
	registryMu.Lock()
	registry[name] = f
	registryMu.Unlock()
}

// New creates the tool registered under name.
func New(name string) (Tool, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownTool)
	}
	return f(), nil
}

// Names returns the sorted names of all registered tools.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// heightFunc computes the new value of a sample from its current value h,
// normalized terrain coordinate uv and weight w = strength*mask*tip.
type heightFunc func(h float32, uv ms2.Vec, w float32) float32

// applyHeights runs fn over every sample of the resolved heightmap region with a
// non-zero weight and writes the region back. Results are clamped to [0,1].
func applyHeights(t *terrain.Terrain, ctx *Context, fn heightFunc) (image.Rectangle, error) {
	if t == nil || t.Heights == nil {
		return image.Rectangle{}, errNilTerrain
	}
	if !ctx.Active() {
		return image.Rectangle{}, nil
	}
	r := t.HeightmapRect(ctx.UV, ctx.Size)
	if r.Empty() {
		return r, nil
	}
	g, err := t.Heights.Region(r.Min.X, r.Min.Y, r.Dx(), r.Dy())
	if err != nil {
		return r, err
	}
	bounds := t.Heights.Bounds()
	for j := 0; j < g.H; j++ {
		for i := 0; i < g.W; i++ {
			uv := terrain.SampleUV(bounds, r.Min.X+i, r.Min.Y+j, true)
			w := ctx.Weight(t, uv) * ctx.Strength
			if w == 0 {
				continue
			}
			k := g.Index(i, j)
			g.Data[k] = clamp01(fn(g.Data[k], uv, w))
		}
	}
	err = t.Heights.SetRegion(r.Min.X, r.Min.Y, g)
	if err != nil {
		return r, err
	}
	terrabrush.Logger().Debug("painted heights", "terrain", t.Name, "region", r)
	return r, nil
}

func clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(v, 1))
}
