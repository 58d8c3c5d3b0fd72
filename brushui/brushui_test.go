package brushui

import (
	"errors"
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/terrabrush"
	"github.com/soypat/terrabrush/filter"
	"github.com/soypat/terrabrush/paint"
	"github.com/soypat/terrabrush/surface"
	"github.com/soypat/terrabrush/terrain"
)

// angleDiff returns the shortest angular distance between two angles in degrees.
func angleDiff(a, b float32) float32 {
	d := math32.Mod(math32.Abs(a-b), 360)
	return math32.Min(d, 360-d)
}

func TestSignedAngle(t *testing.T) {
	x := ms3.Vec{X: 1}
	z := ms3.Vec{Z: 1}
	tests := []struct {
		a, b ms3.Vec
		want float32
	}{
		{a: x, b: z, want: 90},
		{a: z, b: x, want: -90},
		{a: x, b: ms3.Vec{X: -1, Y: 5}, want: 180},
		{a: ms3.Vec{X: 1, Y: 3}, b: ms3.Vec{X: 1, Y: -7, Z: 1}, want: 45},
		{a: ms3.Vec{Y: 1}, b: x, want: 0}, // No ground projection.
	}
	for _, test := range tests {
		got := SignedAngle(test.a, test.b)
		if angleDiff(got, test.want) > 1e-3 {
			t.Errorf("SignedAngle(%v, %v): want %g, got %g", test.a, test.b, test.want, got)
		}
	}
}

func TestRotationPersistence(t *testing.T) {
	pivot := ms3.Vec{X: 5, Y: 2, Z: 5}
	at := func(x, z float32) ms3.Vec { return ms3.Add(pivot, ms3.Vec{X: x, Z: z}) }

	// Single continuous drag east -> south -> west.
	var single RotationVariator
	single.Press(pivot, at(1, 0))
	single.Update(at(0, 1))
	single.Update(at(-1, 0))

	// Same motion split over two press cycles.
	var split RotationVariator
	split.Press(pivot, at(1, 0))
	split.Update(at(0, 1))
	afterA := split.Rotation()
	split.Release()
	split.Update(at(0, -1)) // Ignored while idle.
	split.Press(pivot, at(0, 1))
	if split.Rotation() != afterA {
		t.Fatalf("rotation changed across release/press: %g -> %g", afterA, split.Rotation())
	}
	split.Update(at(-1, 0))

	if angleDiff(afterA, 90) > 1e-3 {
		t.Errorf("want 90 after first drag, got %g", afterA)
	}
	if angleDiff(split.Rotation(), single.Rotation()) > 1e-3 {
		t.Errorf("split drag %g differs from continuous drag %g", split.Rotation(), single.Rotation())
	}
	if angleDiff(single.Rotation(), 180) > 1e-3 {
		t.Errorf("want 180, got %g", single.Rotation())
	}
}

func TestRotationWraps(t *testing.T) {
	var rv RotationVariator
	rv.Set(-90)
	if rv.Rotation() != 270 {
		t.Error("want 270, got", rv.Rotation())
	}
	rv.Set(720)
	if rv.Rotation() != 0 {
		t.Error("want 0, got", rv.Rotation())
	}
}

func TestShortcutsAccumulate(t *testing.T) {
	var sc Shortcuts
	var calls []string
	sc.Bind("R", func() error { calls = append(calls, "p1"); return nil }, func() error { calls = append(calls, "r1"); return nil })
	sc.Bind("R", func() error { calls = append(calls, "p2"); return nil }, nil)
	sc.Bind("R", nil, func() error { calls = append(calls, "r3"); return nil })

	steps := []bool{true, true, false, false, true}
	for _, pressed := range steps {
		if err := sc.Dispatch("R", pressed); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"p1", "p2", "r1", "r3", "p1", "p2"}
	if len(calls) != len(want) {
		t.Fatalf("want calls %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("want calls %v, got %v", want, calls)
		}
	}
	if !sc.Pressed("R") || sc.Pressed("Q") {
		t.Error("unexpected pressed state")
	}
	if err := sc.Dispatch("unbound", true); err != nil {
		t.Error("unbound keys must be ignored, got", err)
	}
}

func TestShortcutErrorStopsDispatch(t *testing.T) {
	var sc Shortcuts
	boom := errors.New("boom")
	ranAfter := false
	sc.Bind("K", func() error { return boom }, nil)
	sc.Bind("K", func() error { ranAfter = true; return nil }, nil)
	err := sc.Dispatch("K", true)
	if !errors.Is(err, boom) {
		t.Fatal("expected listener error, got", err)
	}
	if ranAfter {
		t.Error("listeners after a failing one must not run")
	}
	if !sc.Pressed("K") {
		t.Error("key state must be updated even on listener failure")
	}
}

func TestRaycastCacheLock(t *testing.T) {
	var rc RaycastCache
	if rc.CurrentHit().Valid {
		t.Fatal("zero cache must hold an invalid hit")
	}
	a := terrain.Hit{Point: ms3.Vec{X: 1}, Valid: true}
	b := terrain.Hit{Point: ms3.Vec{X: 2}, Valid: true}
	if !rc.Update(a, nil) {
		t.Fatal("unlocked update rejected")
	}
	rc.Lock()
	if rc.Update(b, nil) || rc.CurrentHit() != a {
		t.Error("locked cache accepted update")
	}
	rc.Unlock()
	rc.Update(b, nil)
	if rc.CurrentHit() != b {
		t.Error("unlocked cache rejected update")
	}
}

func newTestGroup(t *testing.T, p surface.Provider, cfg Config) (*Group, *terrain.Terrain) {
	t.Helper()
	tr, err := terrain.New(terrain.Config{
		Size:                ms3.Vec{X: 10, Y: 10, Z: 10},
		HeightmapResolution: 11,
		AlphamapResolution:  10,
		AlphamapLayers:      2,
	})
	if err != nil {
		t.Fatal(err)
	}
	g, err := NewGroup(p, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return g, tr
}

func TestGroupRotateLocksCache(t *testing.T) {
	var p surface.Pool
	g, tr := newTestGroup(t, &p, DefaultConfig())
	center := tr.HitAtUV(ms2.Vec{X: 0.5, Y: 0.5})
	g.UpdateHit(center, tr)
	if err := g.KeyEvent("R", true); err != nil {
		t.Fatal(err)
	}
	g.UpdateHit(tr.HitAtUV(ms2.Vec{X: 0.6, Y: 0.5}), tr)
	g.UpdateHit(tr.HitAtUV(ms2.Vec{X: 0.5, Y: 0.6}), tr)
	if g.Cache().CurrentHit() != center {
		t.Error("brush moved while rotating")
	}
	if angleDiff(g.BrushRotation(), 90) > 1e-3 {
		t.Error("want rotation 90, got", g.BrushRotation())
	}
	if err := g.KeyEvent("R", false); err != nil {
		t.Fatal(err)
	}
	moved := tr.HitAtUV(ms2.Vec{X: 0.2, Y: 0.2})
	g.UpdateHit(moved, tr)
	if g.Cache().CurrentHit() != moved {
		t.Error("cache still locked after release")
	}
	if angleDiff(g.BrushRotation(), 90) > 1e-3 {
		t.Error("rotation changed after release", g.BrushRotation())
	}
}

func TestGroupScalarVariators(t *testing.T) {
	var p surface.Pool
	g, tr := newTestGroup(t, &p, DefaultConfig())
	g.UpdateHit(tr.HitAtUV(ms2.Vec{X: 0.5, Y: 0.5}), tr)
	g.CursorDelta(100) // Not held, ignored.
	if g.BrushSize() != 10 {
		t.Fatal("size changed without shortcut", g.BrushSize())
	}
	g.KeyEvent("S", true)
	g.CursorDelta(100)
	g.KeyEvent("S", false)
	if math.Abs(float64(g.BrushSize()-20)) > 1e-4 {
		t.Error("want size doubled, got", g.BrushSize())
	}
	g.KeyEvent("D", true)
	g.CursorDelta(1000)
	g.KeyEvent("D", false)
	if g.BrushStrength() != 1 {
		t.Error("strength must clamp at 1, got", g.BrushStrength())
	}
	if g.Cache().Locked() {
		t.Error("cache locked after all shortcuts released")
	}
	if err := g.SetBrushSize(-1); err == nil {
		t.Error("expected size range error")
	}
}

func TestGroupTickInvalidHit(t *testing.T) {
	var p surface.Pool
	g, tr := newTestGroup(t, &p, DefaultConfig())
	ctx, err := g.Tick()
	if err != nil {
		t.Fatal(err)
	}
	if ctx.HitValid || ctx.Mask != nil || p.Outstanding() != 0 {
		t.Error("tick without hit must not acquire surfaces")
	}
	g.UpdateHit(tr.HitAtUV(ms2.Vec{X: 2, Y: 2}), tr)
	before := tr.Heights.Fingerprint()
	if err := g.Paint(&paint.RaiseLower{Amount: 1}); err != nil {
		t.Fatal(err)
	}
	if tr.Heights.Fingerprint() != before {
		t.Error("painting off terrain changed heights")
	}
}

func TestGroupPaintGate(t *testing.T) {
	var p surface.Pool
	g, tr := newTestGroup(t, &p, DefaultConfig())
	g.SetPaintGate(func(terrain.Hit, *terrain.Terrain) bool { return false })
	g.UpdateHit(tr.HitAtUV(ms2.Vec{X: 0.5, Y: 0.5}), tr)
	if g.AllowPaint() {
		t.Fatal("gate ignored")
	}
	before := tr.Heights.Fingerprint()
	if err := g.Paint(&paint.RaiseLower{Amount: 1}); err != nil {
		t.Fatal(err)
	}
	if tr.Heights.Fingerprint() != before {
		t.Error("gated paint changed heights")
	}
}

func TestGroupTickUsesCurrentRotation(t *testing.T) {
	var p surface.Pool
	cfg := DefaultConfig()
	cfg.MaskResolution = 9
	bld := terrabrush.Builder{}
	cfg.Tip = bld.NewFalloffTip(bld.NewRectangle(1, 1), 0)
	g, tr := newTestGroup(t, &p, cfg)
	g.UpdateHit(tr.HitAtUV(ms2.Vec{X: 0.5, Y: 0.5}), tr)
	g.KeyEvent("R", true)
	g.UpdateHit(tr.HitAtUV(ms2.Vec{X: 0.6, Y: 0.5}), tr)
	g.UpdateHit(tr.HitAtUV(ms2.Vec{X: 0.6, Y: 0.6}), tr)
	ctx, err := g.Tick()
	if err != nil {
		t.Fatal(err)
	}
	defer ctx.Release()
	if angleDiff(ctx.Rotation, 45) > 1e-3 {
		t.Fatal("want rotation 45, got", ctx.Rotation)
	}
	if ctx.Texture.At(0, 0) != 0 || ctx.Texture.At(4, 4) != 1 {
		t.Error("tip not rendered at the rotation of the same tick")
	}
	if ctx.Mask.At(0, 0) != filter.Neutral {
		t.Error("empty filter stack must produce a neutral mask")
	}
}

func TestGroupResourceBaseline(t *testing.T) {
	var p surface.Pool
	cfg := DefaultConfig()
	cfg.MaskResolution = 16
	bld := terrabrush.Builder{}
	cfg.Tip = bld.NewFalloffTip(bld.NewCircle(1), 0.5)
	g, tr := newTestGroup(t, &p, cfg)
	blur, err := filter.NewBlur(&p, 2)
	if err != nil {
		t.Fatal(err)
	}
	noise, err := filter.NewNoise(filter.DefaultNoiseSettings(), true, filter.BlendMultiply)
	if err != nil {
		t.Fatal(err)
	}
	g.Filters().Add(noise)
	g.Filters().Add(blur)
	for i := 0; i < 10; i++ {
		uv := ms2.Vec{X: 0.3 + float32(i)*0.04, Y: 0.5}
		g.UpdateHit(tr.HitAtUV(uv), tr)
		if err := g.Paint(&paint.RaiseLower{Amount: 0.05}); err != nil {
			t.Fatal(err)
		}
	}
	if p.Outstanding() != 1 {
		t.Fatal("want only the blur's private surface outstanding, got", p.Outstanding())
	}
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.AssertAllReleased(); err != nil {
		t.Error(err)
	}
	if err := g.scratch.AssertAllReleased(); err != nil {
		t.Error(err)
	}
}
