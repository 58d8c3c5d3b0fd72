package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/terrabrush"
	"github.com/soypat/terrabrush/brushui"
	"github.com/soypat/terrabrush/paint"
	"github.com/soypat/terrabrush/terrain"
)

var (
	// ErrEmptyLog is returned when playing a log without occurrences. Tests usually
	// treat it as inconclusive rather than failed.
	ErrEmptyLog = errors.New("empty replay log")
	// ErrUnknownTexture is returned for occurrences naming a tip the player was not given.
	ErrUnknownTexture = errors.New("unknown brush texture")
)

// Recorder captures the brush state of a session as occurrences.
type Recorder struct {
	log Log
}

// Record enqueues the session's current brush if painting is allowed and reports
// whether it did. Call it right before painting with the same session.
func (r *Recorder) Record(g *brushui.Group) bool {
	if !g.AllowPaint() {
		return false
	}
	uv := g.Cache().CurrentHit().UV
	o := Occurrence{
		X:        uv.X,
		Y:        uv.Y,
		Strength: g.BrushStrength(),
		Size:     g.BrushSize(),
		Rotation: g.BrushRotation(),
	}
	if named, ok := g.Tip().(interface{ Name() string }); ok {
		o.Texture = named.Name()
	}
	r.log.Enqueue(o)
	return true
}

// Log returns the recorded occurrences.
func (r *Recorder) Log() *Log { return &r.log }

// PlayerConfig configures a [Player].
type PlayerConfig struct {
	// Tool applies every occurrence.
	Tool paint.Tool
	// Tips resolves occurrence texture names.
	Tips map[string]terrabrush.Tip
}

// Player feeds occurrences through a brush session as if they were live input.
// Occurrences without a texture name paint with the tip the session had when
// the player was created.
type Player struct {
	group *brushui.Group
	cfg   PlayerConfig
	base  terrabrush.Tip
}

// NewPlayer creates a player driving g.
func NewPlayer(g *brushui.Group, cfg PlayerConfig) (*Player, error) {
	if g == nil {
		return nil, errors.New("nil brush group")
	} else if cfg.Tool == nil {
		return nil, errors.New("nil paint tool")
	}
	return &Player{group: g, cfg: cfg, base: g.Tip()}, nil
}

// Play dequeues and paints every occurrence of l on t in order. ctx is checked
// between occurrences; an occurrence in progress always completes.
// It returns the amount of occurrences painted.
func (p *Player) Play(ctx context.Context, t *terrain.Terrain, l *Log) (n int, err error) {
	if t == nil {
		return 0, errors.New("nil terrain")
	}
	log := terrabrush.Logger().With(slog.String("session", p.group.ID().String()))
	if l.Len() == 0 {
		log.Warn("replaying empty log")
		return 0, ErrEmptyLog
	}
	log.Info("replay started", slog.Int("occurrences", l.Len()), slog.String("tool", p.cfg.Tool.Name()))
	g := p.group
	g.SetTerrain(t)
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		o, ok := l.Dequeue()
		if !ok {
			break
		}
		if err := p.apply(t, o); err != nil {
			return n, fmt.Errorf("occurrence %d: %w", n, err)
		}
		n++
		log.Debug("replayed occurrence", slog.Int("n", n), slog.Float64("x", float64(o.X)), slog.Float64("y", float64(o.Y)))
	}
	attrs := []any{slog.Int("occurrences", n), slog.String("heights", t.Heights.Fingerprint())}
	if t.Alphas != nil {
		attrs = append(attrs, slog.String("alphas", t.Alphas.Fingerprint()))
	}
	log.Info("replay finished", attrs...)
	return n, nil
}

func (p *Player) apply(t *terrain.Terrain, o Occurrence) error {
	g := p.group
	tip := p.base
	if o.Texture != "" {
		var ok bool
		tip, ok = p.cfg.Tips[o.Texture]
		if !ok {
			return fmt.Errorf("%q: %w", o.Texture, ErrUnknownTexture)
		}
	}
	g.SetTip(tip)
	if err := g.SetBrushSize(o.Size); err != nil {
		return err
	}
	g.SetBrushStrength(o.Strength)
	g.SetBrushRotation(o.Rotation)
	g.SetRaycastHit(t.HitAtUV(ms2.Vec{X: o.X, Y: o.Y}))
	return g.Paint(p.cfg.Tool)
}
