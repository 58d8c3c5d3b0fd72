// Package brushui implements the interactive brush session: cursor raycast caching,
// keyboard shortcuts driving rotation, size and strength variators, and the per-tick
// assembly of the paint context from the brush mask filter stack.
//
// A Group is single threaded and expects one call sequence per frame:
// input (UpdateHit, KeyEvent, CursorDelta) first, then Tick or Paint.
package brushui

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chewxy/math32"
	"github.com/google/uuid"
	"github.com/soypat/terrabrush"
	"github.com/soypat/terrabrush/filter"
	"github.com/soypat/terrabrush/paint"
	"github.com/soypat/terrabrush/surface"
	"github.com/soypat/terrabrush/terrain"
)

// Config configures a [Group].
type Config struct {
	// Name identifies the session in logs.
	Name string
	// Size is the initial world size of the square brush footprint.
	Size     float32
	Strength float32
	Rotation float32
	// MaskResolution is the side in texels of the mask and tip surfaces.
	MaskResolution int
	Format         surface.Format
	// Tip is the brush texture handed to tools as [paint.Context.Texture]. nil paints the full square.
	Tip terrabrush.Tip

	RotateKey   Key
	SizeKey     Key
	StrengthKey Key
	// SizeSensitivity is the relative size change per cursor pixel.
	SizeSensitivity float32
	// StrengthSensitivity is the strength change per cursor pixel.
	StrengthSensitivity float32
	MinSize, MaxSize    float32
}

// DefaultConfig returns the configuration used by the interactive painter.
func DefaultConfig() Config {
	return Config{
		Name:                "brush",
		Size:                10,
		Strength:            0.5,
		MaskResolution:      64,
		Format:              surface.FormatR32F,
		RotateKey:           "R",
		SizeKey:             "S",
		StrengthKey:         "D",
		SizeSensitivity:     0.01,
		StrengthSensitivity: 0.005,
		MinSize:             0.1,
		MaxSize:             1000,
	}
}

func (cfg *Config) validate() error {
	if cfg.MaskResolution <= 0 {
		return fmt.Errorf("mask resolution %d must be positive", cfg.MaskResolution)
	} else if !cfg.Format.IsValid() {
		return fmt.Errorf("invalid mask format %s", cfg.Format)
	} else if cfg.MinSize <= 0 || cfg.MaxSize < cfg.MinSize {
		return fmt.Errorf("invalid size range [%g, %g]", cfg.MinSize, cfg.MaxSize)
	} else if cfg.Size < cfg.MinSize || cfg.Size > cfg.MaxSize {
		return fmt.Errorf("brush size %g outside [%g, %g]", cfg.Size, cfg.MinSize, cfg.MaxSize)
	}
	return nil
}

// PaintGate decides whether painting is allowed at the current hit.
type PaintGate func(hit terrain.Hit, t *terrain.Terrain) bool

// Group is one brush session. It owns its raycast cache, shortcuts, variators and
// mask filter stack. Surfaces in contexts returned by Tick belong to the caller
// until released.
type Group struct {
	id       uuid.UUID
	log      *slog.Logger
	cfg      Config
	provider surface.Provider

	cache     RaycastCache
	shortcuts Shortcuts
	rotation  RotationVariator
	sizeVar   ScalarVariator
	strVar    ScalarVariator
	holds     int
	cursor    terrain.Hit

	filters  *filter.Stack
	scratch  surface.VecPool
	size     float32
	strength float32
	gate     PaintGate
}

// NewGroup creates a session acquiring its mask surfaces from p.
func NewGroup(p surface.Provider, cfg Config) (*Group, error) {
	if p == nil {
		return nil, errors.New("nil surface provider")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	g := &Group{
		id:       uuid.New(),
		cfg:      cfg,
		provider: p,
		filters:  filter.NewStack(p),
		size:     cfg.Size,
		strength: clamp01(cfg.Strength),
		sizeVar: ScalarVariator{
			Sensitivity:    cfg.SizeSensitivity,
			Multiplicative: true,
			Min:            cfg.MinSize,
			Max:            cfg.MaxSize,
		},
		strVar: ScalarVariator{Sensitivity: cfg.StrengthSensitivity, Min: 0, Max: 1},
	}
	g.rotation.Set(cfg.Rotation)
	g.log = terrabrush.Logger().With(slog.String("session", g.id.String()), slog.String("group", cfg.Name))
	g.bindVariators()
	g.log.Info("brush group created", slog.Int("mask", cfg.MaskResolution), slog.Float64("size", float64(cfg.Size)))
	return g, nil
}

// bindVariators wires the variator shortcuts. Holding any of them locks the raycast
// cache so the brush stays in place while the cursor moves.
func (g *Group) bindVariators() {
	g.shortcuts.Bind(g.cfg.RotateKey, func() error {
		g.hold()
		g.rotation.Press(g.cache.CurrentHit().Point, g.cursor.Point)
		return nil
	}, func() error {
		g.rotation.Release()
		g.unhold()
		return nil
	})
	g.shortcuts.Bind(g.cfg.SizeKey, func() error {
		g.hold()
		g.sizeVar.Press(g.size)
		return nil
	}, func() error {
		g.sizeVar.Release()
		g.unhold()
		return nil
	})
	g.shortcuts.Bind(g.cfg.StrengthKey, func() error {
		g.hold()
		g.strVar.Press(g.strength)
		return nil
	}, func() error {
		g.strVar.Release()
		g.unhold()
		return nil
	})
}

func (g *Group) hold() {
	g.holds++
	g.cache.Lock()
}

func (g *Group) unhold() {
	if g.holds > 0 {
		g.holds--
	}
	if g.holds == 0 {
		g.cache.Unlock()
	}
}

// ID returns the session identifier.
func (g *Group) ID() uuid.UUID { return g.id }

// Filters returns the brush mask filter stack.
func (g *Group) Filters() *filter.Stack { return g.filters }

// Shortcuts returns the session's key bindings so callers can add listeners.
func (g *Group) Shortcuts() *Shortcuts { return &g.shortcuts }

// Cache returns the session's raycast cache.
func (g *Group) Cache() *RaycastCache { return &g.cache }

// SetPaintGate installs a gate consulted by AllowPaint. nil allows painting on any valid hit.
func (g *Group) SetPaintGate(gate PaintGate) { g.gate = gate }

// AllowPaint reports whether the current hit can be painted on.
func (g *Group) AllowPaint() bool {
	hit, t := g.cache.CurrentHit(), g.cache.Terrain()
	if !hit.Valid || t == nil {
		return false
	}
	return g.gate == nil || g.gate(hit, t)
}

// UpdateHit feeds a live cursor hit over t. Rotation tracking consumes the raw hit
// before the raycast cache, which ignores it while a variator shortcut is held.
func (g *Group) UpdateHit(hit terrain.Hit, t *terrain.Terrain) {
	g.cursor = hit
	if hit.Valid {
		g.rotation.Update(hit.Point)
	}
	g.cache.Update(hit, t)
}

// SetTerrain sets the terrain under the cursor, bypassing the cache lock.
func (g *Group) SetTerrain(t *terrain.Terrain) {
	g.cache.Set(g.cache.CurrentHit(), t)
}

// SetRaycastHit sets the current hit, bypassing the cache lock and rotation tracking.
// Replay harnesses use it to inject cursor state.
func (g *Group) SetRaycastHit(hit terrain.Hit) {
	g.cursor = hit
	g.cache.Set(hit, g.cache.Terrain())
}

// KeyEvent dispatches a key state to the session's shortcuts.
func (g *Group) KeyEvent(key Key, pressed bool) error {
	return g.shortcuts.Dispatch(key, pressed)
}

// CursorDelta feeds horizontal cursor motion to the size and strength variators.
func (g *Group) CursorDelta(dx float32) {
	if v, ok := g.sizeVar.Move(dx); ok {
		g.size = v
	}
	if v, ok := g.strVar.Move(dx); ok {
		g.strength = v
	}
}

// BrushSize returns the world size of the brush footprint.
func (g *Group) BrushSize() float32 { return g.size }

// SetBrushSize sets the brush size within the configured range.
func (g *Group) SetBrushSize(size float32) error {
	if size < g.cfg.MinSize || size > g.cfg.MaxSize || math32.IsNaN(size) {
		return fmt.Errorf("brush size %g outside [%g, %g]", size, g.cfg.MinSize, g.cfg.MaxSize)
	}
	g.size = size
	return nil
}

// BrushStrength returns the brush strength in [0,1].
func (g *Group) BrushStrength() float32 { return g.strength }

// SetBrushStrength sets the brush strength, clamped to [0,1].
func (g *Group) SetBrushStrength(strength float32) { g.strength = clamp01(strength) }

// BrushRotation returns the brush rotation in degrees within [0, 360).
func (g *Group) BrushRotation() float32 { return g.rotation.Rotation() }

// SetBrushRotation overrides the accumulated rotation.
func (g *Group) SetBrushRotation(degrees float32) { g.rotation.Set(degrees) }

// Tip returns the brush tip, nil when painting the full square.
func (g *Group) Tip() terrabrush.Tip { return g.cfg.Tip }

// SetTip replaces the brush tip. nil paints the full square.
func (g *Group) SetTip(tip terrabrush.Tip) { g.cfg.Tip = tip }

// Tick assembles the paint context for the current state. When painting is allowed
// the brush mask filter stack is evaluated into a mask surface and the tip, if any,
// is rendered at the current rotation. The caller must call Release on the
// returned context, also when Tick returns an error alongside it.
func (g *Group) Tick() (*paint.Context, error) {
	hit := g.cache.CurrentHit()
	ctx := &paint.Context{
		UV:       hit.UV,
		Strength: g.strength,
		Size:     g.size,
		Rotation: g.rotation.Rotation(),
		Hit:      hit,
		HitValid: g.AllowPaint(),
		Provider: g.provider,
	}
	if !ctx.HitValid {
		return ctx, nil
	}
	res := g.cfg.MaskResolution
	mask, err := g.provider.Acquire(res, res, g.cfg.Format)
	if err != nil {
		return ctx, err
	}
	ctx.Mask = mask
	fc := filter.Context{
		BrushPos:      hit.Point,
		BrushRotation: ctx.Rotation,
		BrushSize:     ctx.Size,
		BrushStrength: ctx.Strength,
		Format:        g.cfg.Format,
		Scratch:       &g.scratch,
	}
	err = g.filters.Eval(fc, nil, mask)
	if err != nil {
		return ctx, fmt.Errorf("evaluating brush mask: %w", err)
	}
	if g.cfg.Tip != nil {
		tex, err := g.provider.Acquire(res, res, g.cfg.Format)
		if err != nil {
			return ctx, err
		}
		ctx.Texture = tex
		err = terrabrush.RenderTip(tex, g.cfg.Tip, ctx.Rotation, &g.scratch)
		if err != nil {
			return ctx, fmt.Errorf("rendering brush tip: %w", err)
		}
	}
	g.log.Debug("tick", slog.Any("uv", hit.UV), slog.Float64("rotation", float64(ctx.Rotation)))
	return ctx, nil
}

// Paint runs one tick and applies the result with tool on the terrain under the cursor.
// Surfaces acquired for the tick are released on every path.
func (g *Group) Paint(tool paint.Tool) (err error) {
	ctx, err := g.Tick()
	defer func() {
		if rerr := ctx.Release(); rerr != nil {
			g.log.Warn("releasing paint context", slog.Any("err", rerr))
			err = errors.Join(err, rerr)
		}
	}()
	if err != nil {
		return err
	}
	if !ctx.HitValid {
		return nil
	}
	err = tool.OnPaint(g.cache.Terrain(), ctx)
	if err != nil {
		return fmt.Errorf("%s tool: %w", tool.Name(), err)
	}
	return nil
}

// Close destroys the session's filters. The group must not be used afterwards.
func (g *Group) Close() error {
	err := g.filters.Clear(true)
	g.log.Info("brush group closed")
	return err
}

func clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(v, 1))
}
