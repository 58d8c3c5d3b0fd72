//go:build ebiten

package main

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/terrabrush"
	"github.com/soypat/terrabrush/brushaux"
	"github.com/soypat/terrabrush/brushui"
	"github.com/soypat/terrabrush/filter"
	"github.com/soypat/terrabrush/paint"
	"github.com/soypat/terrabrush/replay"
	"github.com/soypat/terrabrush/surface"
	"github.com/soypat/terrabrush/terrain"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

var variatorKeys = []struct {
	key     ebiten.Key
	binding brushui.Key
}{
	{ebiten.KeyR, "R"},
	{ebiten.KeyS, "S"},
	{ebiten.KeyD, "D"},
}

// Game paints a terrain viewed from above. Screen X maps to terrain U and
// screen Y to terrain V.
type Game struct {
	cfg      *Config
	terrain  *terrain.Terrain
	pool     surface.Pool
	group    *brushui.Group
	recorder replay.Recorder

	tools  []string
	tool   paint.Tool
	tips   []terrabrush.Tip
	tipIdx int
	lastX  int
	status string
	conv   func(float32) color.Color
	img    *ebiten.Image
	buf    []byte
	w, h   int
	dirty  bool
}

// NewGame creates a flat terrain and a brush session configured by cfg.
func NewGame(cfg *Config) (*Game, error) {
	tr, err := terrain.New(terrain.Config{
		Name:                "brushpaint",
		Size:                ms3.Vec{X: float32(cfg.Size), Y: float32(cfg.Height), Z: float32(cfg.Size)},
		HeightmapResolution: cfg.Resolution,
		AlphamapResolution:  cfg.Resolution - 1,
		AlphamapLayers:      4,
	})
	if err != nil {
		return nil, err
	}
	g := &Game{
		cfg:     cfg,
		terrain: tr,
		tools:   paint.Names(),
		conv:    brushaux.ColorConversionGradient(0, 1, color.RGBA{R: 30, G: 70, B: 35, A: 255}, color.RGBA{R: 240, G: 235, B: 220, A: 255}),
		w:       cfg.Resolution,
		h:       cfg.Resolution,
	}
	g.tips, err = defaultTips()
	if err != nil {
		return nil, err
	}
	gcfg := brushui.DefaultConfig()
	gcfg.Name = "brushpaint"
	gcfg.MaskResolution = cfg.Mask
	gcfg.Size = float32(cfg.Size) / 10
	gcfg.Tip = g.tips[0]
	g.group, err = brushui.NewGroup(&g.pool, gcfg)
	if err != nil {
		return nil, err
	}
	if cfg.Noise {
		noise, err := filter.New("noise", &g.pool, filter.Params{"blend": float32(filter.BlendMultiply)})
		if err != nil {
			return nil, err
		}
		g.group.Filters().Add(noise)
	}
	g.group.SetTerrain(tr)
	g.tool, err = paint.New(cfg.Tool)
	if err != nil {
		return nil, err
	}
	g.buf = make([]byte, 4*g.w*g.h)
	g.img = ebiten.NewImage(g.w, g.h)
	g.status = "painting with " + g.tool.Name()
	g.dirty = true
	return g, nil
}

func defaultTips() ([]terrabrush.Tip, error) {
	var tips []terrabrush.Tip
	for _, shape := range terrabrush.ShapeTips {
		tip, err := terrabrush.ShapeTip(shape)
		if err != nil {
			return nil, err
		}
		tips = append(tips, tip)
	}
	var font terrabrush.Font
	err := font.LoadTTFBytes(goregular.TTF)
	if err != nil {
		return nil, err
	}
	glyph, err := terrabrush.NewGlyphTip(&font, 'A', 0.05)
	if err != nil {
		return nil, err
	}
	return append(tips, glyph), nil
}

// Update handles input and paints while the left mouse button is held.
func (g *Game) Update() error {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl)
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.save()
	}
	for i := 0; i < len(g.tools) && i < 9; i++ {
		if inpututil.IsKeyJustPressed(ebiten.Key1 + ebiten.Key(i)) {
			tool, err := paint.New(g.tools[i])
			if err != nil {
				return err
			}
			g.tool = tool
			g.status = "painting with " + tool.Name()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		g.tipIdx = (g.tipIdx + 1) % len(g.tips)
		g.group.SetTip(g.tips[g.tipIdx])
	}

	cx, cy := ebiten.CursorPosition()
	g.group.UpdateHit(g.hitAt(cx, cy), g.terrain)
	for _, vk := range variatorKeys {
		// Ctrl+S saves, it must not start a size drag.
		pressed := ebiten.IsKeyPressed(vk.key) && !ctrl
		err := g.group.KeyEvent(vk.binding, pressed)
		if err != nil {
			return err
		}
	}
	g.group.CursorDelta(float32(cx - g.lastX))
	g.lastX = cx

	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) && g.group.AllowPaint() {
		g.recorder.Record(g.group)
		err := g.group.Paint(g.tool)
		if err != nil {
			g.status = err.Error()
			terrabrush.Logger().Error("paint failed", "err", err)
		}
		g.dirty = true
	}
	return nil
}

// hitAt raycasts straight down from screen pixel (x, y).
func (g *Game) hitAt(x, y int) terrain.Hit {
	sw, sh := g.Layout(0, 0)
	if x < 0 || y < 0 || x >= sw || y >= sh {
		return terrain.Hit{}
	}
	return g.terrain.HitAtUV(ms2.Vec{
		X: (float32(x) + 0.5) / float32(sw),
		Y: (float32(y) + 0.5) / float32(sh),
	})
}

func (g *Game) save() {
	fp, err := os.Create(g.cfg.Out)
	if err != nil {
		g.status = err.Error()
		return
	}
	defer fp.Close()
	l := g.recorder.Log()
	err = replay.Encode(fp, l, replay.CodecZstd)
	if err != nil {
		g.status = err.Error()
		return
	}
	g.status = fmt.Sprintf("saved %d occurrences to %s", l.Len(), g.cfg.Out)
}

// Draw renders the heightmap and the brush status line.
func (g *Game) Draw(screen *ebiten.Image) {
	if g.dirty {
		g.fillHeights()
		g.img.ReplacePixels(g.buf)
		g.dirty = false
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.cfg.Scale), float64(g.cfg.Scale))
	screen.DrawImage(g.img, op)

	var sb strings.Builder
	fmt.Fprintf(&sb, "size %.1f  strength %.2f  rotation %.0f", g.group.BrushSize(), g.group.BrushStrength(), g.group.BrushRotation())
	if g.group.Cache().Locked() {
		sb.WriteString("  [locked]")
	}
	face := basicfont.Face7x13
	text.Draw(screen, sb.String(), face, 8, 16, color.White)
	text.Draw(screen, g.status, face, 8, 32, color.RGBA{R: 200, G: 200, B: 210, A: 255})
}

func (g *Game) fillHeights() {
	for i, v := range g.terrain.Heights.Data() {
		r, gr, b, a := g.conv(v).RGBA()
		base := i * 4
		g.buf[base+0] = uint8(r >> 8)
		g.buf[base+1] = uint8(gr >> 8)
		g.buf[base+2] = uint8(b >> 8)
		g.buf[base+3] = uint8(a >> 8)
	}
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.w * g.cfg.Scale, g.h * g.cfg.Scale
}

// Close releases the brush session.
func (g *Game) Close() error {
	return g.group.Close()
}
