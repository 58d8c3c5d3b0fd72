package paint

import (
	"errors"
	"math"
	"testing"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/terrabrush/surface"
	"github.com/soypat/terrabrush/terrain"
)

func newTestTerrain(t *testing.T) *terrain.Terrain {
	t.Helper()
	tr, err := terrain.New(terrain.Config{
		Name:                "test",
		Size:                ms3.Vec{X: 10, Y: 10, Z: 10},
		HeightmapResolution: 11,
		AlphamapResolution:  10,
		AlphamapLayers:      2,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func centerContext(tr *terrain.Terrain, strength float32) *Context {
	uv := ms2.Vec{X: 0.5, Y: 0.5}
	return &Context{
		UV:       uv,
		Strength: strength,
		Size:     3,
		HitValid: true,
		Hit:      tr.HitAtUV(uv),
	}
}

func allTools(t *testing.T) []Tool {
	t.Helper()
	var tools []Tool
	for _, name := range Names() {
		tool, err := New(name)
		if err != nil {
			t.Fatal(err)
		}
		tools = append(tools, tool)
	}
	return tools
}

func TestNoOpConditions(t *testing.T) {
	for _, tool := range allTools(t) {
		tr := newTestTerrain(t)
		tr.Heights.Fill(0.5)
		// Give smoothing something to work on.
		tr.Heights.SetRegion(5, 5, &terrain.Grid{W: 1, H: 1, Data: []float32{1}})
		before := tr.Clone()

		invalid := centerContext(tr, 1)
		invalid.HitValid = false
		zero := centerContext(tr, 0)
		masked := centerContext(tr, 1)
		mask, _ := surface.New(4, 4, surface.FormatR32F)
		masked.Mask = mask // zero initialized

		for _, ctx := range []*Context{invalid, zero, masked} {
			if err := tool.OnPaint(tr, ctx); err != nil {
				t.Fatalf("%s: %v", tool.Name(), err)
			}
		}
		if tr.Heights.Fingerprint() != before.Heights.Fingerprint() {
			t.Errorf("%s: heights changed by no-op paint", tool.Name())
		}
		for l := 0; l < tr.Alphas.Layers(); l++ {
			got, _ := tr.Alphas.LayerRegion(l, 0, 0, 10, 10)
			want, _ := before.Alphas.LayerRegion(l, 0, 0, 10, 10)
			for i := range got.Data {
				if got.Data[i] != want.Data[i] {
					t.Fatalf("%s: alphamap layer %d changed by no-op paint", tool.Name(), l)
				}
			}
		}
	}
}

func TestRaiseConfined(t *testing.T) {
	tr := newTestTerrain(t)
	tool := &RaiseLower{Amount: 0.25}
	err := tool.OnPaint(tr, centerContext(tr, 0.5))
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 11; y++ {
		for x := 0; x < 11; x++ {
			g, _ := tr.Heights.Region(x, y, 1, 1)
			inside := x >= 4 && x < 7 && y >= 4 && y < 7
			want := float32(0)
			if inside {
				want = 0.125
			}
			if math.Abs(float64(g.Data[0]-want)) > 1e-6 {
				t.Errorf("sample (%d,%d): want %g, got %g", x, y, want, g.Data[0])
			}
		}
	}
	lower := &RaiseLower{Amount: 1, Lower: true}
	if err := lower.OnPaint(tr, centerContext(tr, 1)); err != nil {
		t.Fatal(err)
	}
	g, _ := tr.Heights.Region(5, 5, 1, 1)
	if g.Data[0] != 0 {
		t.Error("heights must be clamped at zero, got", g.Data[0])
	}
}

func TestSetHeight(t *testing.T) {
	tr := newTestTerrain(t)
	tool := &SetHeight{Height: 0.75}
	if err := tool.OnPaint(tr, centerContext(tr, 1)); err != nil {
		t.Fatal(err)
	}
	g, _ := tr.Heights.Region(4, 4, 3, 3)
	for i, v := range g.Data {
		if v != 0.75 {
			t.Errorf("sample %d: want target reached at full strength, got %g", i, v)
		}
	}
	// Half strength moves half way.
	tool.Height = 0.25
	if err := tool.OnPaint(tr, centerContext(tr, 0.5)); err != nil {
		t.Fatal(err)
	}
	g, _ = tr.Heights.Region(5, 5, 1, 1)
	if g.Data[0] != 0.5 {
		t.Error("want 0.5, got", g.Data[0])
	}
}

func TestStampKeepsHigherTerrain(t *testing.T) {
	tr := newTestTerrain(t)
	tr.Heights.SetRegion(4, 4, &terrain.Grid{W: 1, H: 1, Data: []float32{0.9}})
	tool := &Stamp{Height: 0.5}
	if err := tool.OnPaint(tr, centerContext(tr, 1)); err != nil {
		t.Fatal(err)
	}
	g, _ := tr.Heights.Region(4, 4, 2, 1)
	if g.Data[0] != 0.9 {
		t.Error("stamp lowered terrain above the stamp height", g.Data[0])
	}
	if g.Data[1] != 0.5 {
		t.Error("want stamped height 0.5, got", g.Data[1])
	}
}

func TestSmooth(t *testing.T) {
	tr := newTestTerrain(t)
	tr.Heights.SetRegion(5, 5, &terrain.Grid{W: 1, H: 1, Data: []float32{0.9}})
	tr.Heights.SetRegion(2, 5, &terrain.Grid{W: 1, H: 1, Data: []float32{0.9}})
	tool := &Smooth{Direction: 1}
	if err := tool.OnPaint(tr, centerContext(tr, 1)); err != nil {
		t.Fatal(err)
	}
	g, _ := tr.Heights.Region(2, 5, 4, 1)
	if math.Abs(float64(g.Data[3]-0.1)) > 1e-6 {
		t.Error("want spike averaged to 0.1, got", g.Data[3])
	}
	if math.Abs(float64(g.Data[2]-0.1)) > 1e-6 {
		t.Error("want neighbor averaged to 0.1, got", g.Data[2])
	}
	if g.Data[0] != 0.9 {
		t.Error("sample outside brush region was written", g.Data[0])
	}
}

func TestNoiseHeightDeterministic(t *testing.T) {
	a, b := newTestTerrain(t), newTestTerrain(t)
	a.Heights.Fill(0.5)
	b.Heights.Fill(0.5)
	for _, tr := range []*terrain.Terrain{a, b} {
		tool, err := New("noise")
		if err != nil {
			t.Fatal(err)
		}
		if err := tool.OnPaint(tr, centerContext(tr, 1)); err != nil {
			t.Fatal(err)
		}
	}
	if a.Heights.Fingerprint() != b.Heights.Fingerprint() {
		t.Error("noise tool is not deterministic")
	}
	var unset NoiseHeight
	if err := unset.OnPaint(a, centerContext(a, 1)); err == nil {
		t.Error("expected error from uninitialized noise tool")
	}
}

func TestTexturePaintNormalized(t *testing.T) {
	tr := newTestTerrain(t)
	tool := &TexturePaint{Layer: 1}
	for i := 0; i < 3; i++ {
		if err := tool.OnPaint(tr, centerContext(tr, 0.4)); err != nil {
			t.Fatal(err)
		}
	}
	l0, _ := tr.Alphas.LayerRegion(0, 0, 0, 10, 10)
	l1, _ := tr.Alphas.LayerRegion(1, 0, 0, 10, 10)
	for i := range l0.Data {
		sum := l0.Data[i] + l1.Data[i]
		if math.Abs(float64(sum-1)) > 1e-5 {
			t.Fatalf("texel %d: layer weights sum to %g", i, sum)
		}
	}
	// Texel (4,4) has its center at uv 0.45, well inside the brush.
	if l1.At(4, 4) <= 0.7 {
		t.Error("painted layer weight too low", l1.At(4, 4))
	}
	if l1.At(0, 0) != 0 {
		t.Error("texel outside brush painted")
	}
}

func TestTexturePaintErrors(t *testing.T) {
	tr := newTestTerrain(t)
	tool := &TexturePaint{Layer: 2}
	err := tool.OnPaint(tr, centerContext(tr, 1))
	if !errors.Is(err, ErrLayerOutOfRange) {
		t.Error("expected ErrLayerOutOfRange, got", err)
	}
	tr.Alphas = nil
	tool.Layer = 0
	err = tool.OnPaint(tr, centerContext(tr, 1))
	if !errors.Is(err, ErrNoAlphamap) {
		t.Error("expected ErrNoAlphamap, got", err)
	}
}

func TestUnknownTool(t *testing.T) {
	_, err := New("chisel")
	if !errors.Is(err, ErrUnknownTool) {
		t.Error("expected ErrUnknownTool, got", err)
	}
}

func TestContextRelease(t *testing.T) {
	var p surface.Pool
	mask, _ := p.Acquire(8, 8, surface.FormatR32F)
	tex, _ := p.Acquire(8, 8, surface.FormatR32F)
	ctx := &Context{Mask: mask, Texture: tex, Provider: &p}
	if err := ctx.Release(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Release(); err != nil {
		t.Error("second release should be a no-op, got", err)
	}
	if err := p.AssertAllReleased(); err != nil {
		t.Error(err)
	}
}
