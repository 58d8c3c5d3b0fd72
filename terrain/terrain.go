package terrain

import (
	"errors"
	"image"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Up is the surface-up axis of every terrain. Heights grow along +Y,
// heightmap columns run along +X and heightmap rows along +Z.
var Up = ms3.Vec{Y: 1}

// Hit is a cursor-to-surface raycast result.
type Hit struct {
	Point  ms3.Vec
	Normal ms3.Vec
	// UV is the normalized terrain coordinate of Point.
	UV    ms2.Vec
	Valid bool
}

// Config describes a terrain to be created with [New].
type Config struct {
	Name string
	// Position is the world position of the terrain's (0,0) corner.
	Position ms3.Vec
	// Size is the world extent. Size.Y is the height of a sample of value 1.
	Size ms3.Vec
	// HeightmapResolution is the amount of samples along each side of the heightmap.
	HeightmapResolution int
	// AlphamapResolution and AlphamapLayers configure texture weights.
	// A zero AlphamapLayers creates a terrain without alphamap.
	AlphamapResolution int
	AlphamapLayers     int
}

// DefaultConfig returns a 100x100 unit terrain, 30 units tall, with a 129 sample heightmap
// and a 4 layer 128 texel alphamap.
func DefaultConfig() Config {
	return Config{
		Name:                "terrain",
		Size:                ms3.Vec{X: 100, Y: 30, Z: 100},
		HeightmapResolution: 129,
		AlphamapResolution:  128,
		AlphamapLayers:      4,
	}
}

// Terrain pairs world placement with the height and weight storage painted by tools.
type Terrain struct {
	Name     string
	Position ms3.Vec
	Size     ms3.Vec
	Heights  *HeightMap
	// Alphas may be nil for terrains without texture layers.
	Alphas *AlphaMap
}

// New creates a flat terrain.
func New(cfg Config) (*Terrain, error) {
	if cfg.Size.X <= 0 || cfg.Size.Y <= 0 || cfg.Size.Z <= 0 {
		return nil, errors.New("terrain size must be positive on all axes")
	}
	hm, err := NewHeightMap(cfg.HeightmapResolution, cfg.HeightmapResolution)
	if err != nil {
		return nil, err
	}
	t := &Terrain{
		Name:     cfg.Name,
		Position: cfg.Position,
		Size:     cfg.Size,
		Heights:  hm,
	}
	if cfg.AlphamapLayers > 0 {
		t.Alphas, err = NewAlphaMap(cfg.AlphamapResolution, cfg.AlphamapResolution, cfg.AlphamapLayers)
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Clone returns a deep copy of the terrain and its storage.
func (t *Terrain) Clone() *Terrain {
	clone := *t
	clone.Heights = t.Heights.Clone()
	if t.Alphas != nil {
		clone.Alphas = t.Alphas.Clone()
	}
	return &clone
}

// UVAt returns the normalized terrain coordinate of a world position and
// whether it lies over the terrain.
func (t *Terrain) UVAt(world ms3.Vec) (ms2.Vec, bool) {
	local := ms3.Sub(world, t.Position)
	uv := ms2.Vec{X: local.X / t.Size.X, Y: local.Z / t.Size.Z}
	return uv, uv.X >= 0 && uv.X <= 1 && uv.Y >= 0 && uv.Y <= 1
}

// HeightAtUV returns the interpolated world height at normalized coordinate uv.
func (t *Terrain) HeightAtUV(uv ms2.Vec) float32 {
	b := t.Heights.Bounds()
	x := uv.X * float32(b.Dx()-1)
	y := uv.Y * float32(b.Dy()-1)
	return t.Position.Y + t.Size.Y*t.Heights.Interpolated(x, y)
}

// HitAtUV returns the surface hit straight above normalized coordinate uv.
// The hit is invalid when uv lies outside the terrain.
func (t *Terrain) HitAtUV(uv ms2.Vec) Hit {
	if !(uv.X >= 0 && uv.X <= 1 && uv.Y >= 0 && uv.Y <= 1) {
		return Hit{UV: uv}
	}
	point := ms3.Vec{
		X: t.Position.X + uv.X*t.Size.X,
		Y: t.HeightAtUV(uv),
		Z: t.Position.Z + uv.Y*t.Size.Z,
	}
	return Hit{Point: point, Normal: t.normalAtUV(uv), UV: uv, Valid: true}
}

// HitAtWorld projects a world position vertically onto the terrain surface.
func (t *Terrain) HitAtWorld(world ms3.Vec) Hit {
	uv, _ := t.UVAt(world)
	return t.HitAtUV(uv)
}

func (t *Terrain) normalAtUV(uv ms2.Vec) ms3.Vec {
	b := t.Heights.Bounds()
	nx, nz := b.Dx()-1, b.Dy()-1
	x := uv.X * float32(nx)
	y := uv.Y * float32(nz)
	// Central differences in world units.
	dx := t.Size.X / float32(nx)
	dz := t.Size.Z / float32(nz)
	hL := t.Heights.Interpolated(x-1, y) * t.Size.Y
	hR := t.Heights.Interpolated(x+1, y) * t.Size.Y
	hD := t.Heights.Interpolated(x, y-1) * t.Size.Y
	hU := t.Heights.Interpolated(x, y+1) * t.Size.Y
	n := ms3.Vec{X: (hL - hR) / (2 * dx), Y: 1, Z: (hD - hU) / (2 * dz)}
	norm := ms3.Norm(n)
	if norm == 0 || math32.IsNaN(norm) {
		return Up
	}
	return ms3.Scale(1/norm, n)
}

// HeightmapRect returns the heightmap sample rectangle covered by a square brush
// of world size centered at normalized coordinate uv, clipped to the heightmap bounds.
// The returned rectangle may be empty if the brush lies entirely off the terrain.
func (t *Terrain) HeightmapRect(uv ms2.Vec, size float32) image.Rectangle {
	return brushRect(t.Heights.Bounds(), uv, size/t.Size.X, size/t.Size.Z, true)
}

// AlphamapRect is like [Terrain.HeightmapRect] for alphamap texels.
func (t *Terrain) AlphamapRect(uv ms2.Vec, size float32) image.Rectangle {
	if t.Alphas == nil {
		return image.Rectangle{}
	}
	return brushRect(t.Alphas.Bounds(), uv, size/t.Size.X, size/t.Size.Z, false)
}

// SampleUV returns the normalized terrain coordinate of sample (x, y) of a field with given bounds.
// Heightmaps sample at vertices while alphamaps sample at texel centers.
func SampleUV(bounds image.Rectangle, x, y int, vertexSampled bool) ms2.Vec {
	if vertexSampled {
		return ms2.Vec{X: float32(x) / float32(bounds.Dx()-1), Y: float32(y) / float32(bounds.Dy()-1)}
	}
	return ms2.Vec{X: (float32(x) + 0.5) / float32(bounds.Dx()), Y: (float32(y) + 0.5) / float32(bounds.Dy())}
}

func brushRect(bounds image.Rectangle, uv ms2.Vec, sizeU, sizeV float32, vertexSampled bool) image.Rectangle {
	nx, ny := float32(bounds.Dx()), float32(bounds.Dy())
	if vertexSampled {
		nx--
		ny--
	}
	cx, cy := uv.X*nx, uv.Y*ny
	hx, hy := sizeU*nx/2, sizeV*ny/2
	if !vertexSampled {
		cx -= 0.5
		cy -= 0.5
	}
	r := image.Rect(
		int(math32.Ceil(cx-hx)),
		int(math32.Ceil(cy-hy)),
		int(math32.Floor(cx+hx))+1,
		int(math32.Floor(cy+hy))+1,
	)
	return r.Intersect(bounds)
}
