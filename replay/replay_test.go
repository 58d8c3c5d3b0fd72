package replay

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/terrabrush"
	"github.com/soypat/terrabrush/brushui"
	"github.com/soypat/terrabrush/filter"
	"github.com/soypat/terrabrush/paint"
	"github.com/soypat/terrabrush/surface"
	"github.com/soypat/terrabrush/terrain"
)

func TestLogFIFO(t *testing.T) {
	var l Log
	if _, ok := l.Dequeue(); ok {
		t.Fatal("dequeued from empty log")
	}
	for i := 0; i < 5; i++ {
		l.Enqueue(Occurrence{X: float32(i)})
	}
	clone := l.Clone()
	for i := 0; i < 5; i++ {
		head, _ := l.Peek()
		o, ok := l.Dequeue()
		if !ok || o.X != float32(i) || head != o {
			t.Fatalf("dequeue %d: got %+v", i, o)
		}
		if l.Len() != 4-i {
			t.Fatal("unexpected length", l.Len())
		}
	}
	if clone.Len() != 5 {
		t.Error("clone consumed with original")
	}
}

func TestEncodeDecode(t *testing.T) {
	want := []Occurrence{
		{X: 0.25, Y: 0.75, Strength: 0.5, Size: 12, Rotation: 33.5, Texture: "ramp"},
		{X: 1, Y: 0, Strength: 1, Size: 0.5, Rotation: 359.9},
		{X: 0.5, Y: 0.5, Strength: 0.125, Size: 3, Texture: "disc"},
	}
	for _, codec := range []Codec{CodecNone, CodecSnappy, CodecZstd} {
		var buf bytes.Buffer
		src := NewLog(want...)
		if err := Encode(&buf, src, codec); err != nil {
			t.Fatal(codec, err)
		}
		if src.Len() != len(want) {
			t.Fatal("encode consumed the log")
		}
		got, err := Decode(&buf)
		if err != nil {
			t.Fatal(codec, err)
		}
		occ := got.Occurrences()
		if len(occ) != len(want) {
			t.Fatalf("%s: want %d occurrences, got %d", codec, len(want), len(occ))
		}
		for i := range want {
			if occ[i] != want[i] {
				t.Errorf("%s: occurrence %d: want %+v, got %+v", codec, i, want[i], occ[i])
			}
		}
		parsed, err := ParseCodec(codec.String())
		if err != nil || parsed != codec {
			t.Error("codec name does not parse back", codec, err)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, NewLog(Occurrence{X: 1, Texture: "abc"}, Occurrence{Y: 1}), CodecNone)
	if err != nil {
		t.Fatal(err)
	}
	valid := buf.Bytes()

	_, err = Decode(bytes.NewReader(valid[:7]))
	if !errors.Is(err, ErrTruncated) {
		t.Error("short header: expected ErrTruncated, got", err)
	}
	_, err = Decode(bytes.NewReader(valid[:len(valid)-2]))
	if !errors.Is(err, ErrTruncated) {
		t.Error("short records: expected ErrTruncated, got", err)
	}
	bad := bytes.Clone(valid)
	bad[0] = 'X'
	_, err = Decode(bytes.NewReader(bad))
	if !errors.Is(err, ErrBadMagic) {
		t.Error("expected ErrBadMagic, got", err)
	}
	bad = bytes.Clone(valid)
	bad[4] = Version + 1
	_, err = Decode(bytes.NewReader(bad))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Error("expected ErrUnsupportedVersion, got", err)
	}
	_, err = Decode(bytes.NewReader(append(bytes.Clone(valid), 0)))
	if err == nil {
		t.Error("expected trailing data error")
	}
}

func TestEmptyLog(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, &Log{}, CodecSnappy); err != nil {
		t.Fatal(err)
	}
	l, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 0 {
		t.Fatal("want empty log")
	}
	var p surface.Pool
	g, err := brushui.NewGroup(&p, brushui.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	player, err := NewPlayer(g, PlayerConfig{Tool: &paint.RaiseLower{Amount: 1}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = player.Play(context.Background(), newTerrain(t), l)
	if !errors.Is(err, ErrEmptyLog) {
		t.Error("expected ErrEmptyLog, got", err)
	}
}

func newTerrain(t *testing.T) *terrain.Terrain {
	t.Helper()
	tr, err := terrain.New(terrain.Config{
		Name:                "replay",
		Size:                ms3.Vec{X: 64, Y: 20, Z: 64},
		HeightmapResolution: 65,
		AlphamapResolution:  64,
		AlphamapLayers:      2,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func rampTip(t *testing.T) *terrabrush.ImageTip {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(16 * x)})
		}
	}
	tip, err := terrabrush.NewImageTip("ramp", img, 32)
	if err != nil {
		t.Fatal(err)
	}
	return tip
}

// newSession creates a brush group with a fixed filter stack.
func newSession(t *testing.T, p surface.Provider, tip terrabrush.Tip) *brushui.Group {
	t.Helper()
	cfg := brushui.DefaultConfig()
	cfg.MaskResolution = 32
	cfg.Tip = tip
	g, err := brushui.NewGroup(p, cfg)
	if err != nil {
		t.Fatal(err)
	}
	noise, err := filter.NewNoise(filter.DefaultNoiseSettings(), true, filter.BlendMultiply)
	if err != nil {
		t.Fatal(err)
	}
	blur, err := filter.NewBlur(p, 1)
	if err != nil {
		t.Fatal(err)
	}
	g.Filters().Add(noise)
	g.Filters().Add(&filter.Add{Value: 0.1})
	g.Filters().Add(blur)
	return g
}

func TestReplayDeterminism(t *testing.T) {
	tools := []paint.Tool{
		&paint.RaiseLower{Amount: 0.02},
		&paint.TexturePaint{Layer: 1},
	}
	for _, tool := range tools {
		testReplayDeterminism(t, tool)
	}
}

// fingerprint digests both terrain fields.
func fingerprint(tr *terrain.Terrain) string {
	return tr.Heights.Fingerprint() + "/" + tr.Alphas.Fingerprint()
}

func testReplayDeterminism(t *testing.T, tool paint.Tool) {
	var p surface.Pool
	tip := rampTip(t)

	// Live stroke, recorded as it is painted.
	live := newTerrain(t)
	g := newSession(t, &p, tip)
	var rec Recorder
	for i := 0; i < 24; i++ {
		uv := ms2.Vec{X: 0.2 + 0.025*float32(i), Y: 0.3 + 0.01*float32(i)}
		g.UpdateHit(live.HitAtUV(uv), live)
		g.SetBrushRotation(float32(15 * i))
		g.SetBrushStrength(0.3 + 0.02*float32(i))
		if !rec.Record(g) {
			t.Fatal("occurrence not recorded")
		}
		if err := g.Paint(tool); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, rec.Log(), CodecZstd); err != nil {
		t.Fatal(err)
	}
	recorded, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if first, _ := recorded.Peek(); first.Texture != "ramp" {
		t.Fatal("tip name not recorded, got", first.Texture)
	}

	var fingerprints []string
	for run := 0; run < 2; run++ {
		tr := newTerrain(t)
		g := newSession(t, &p, nil)
		player, err := NewPlayer(g, PlayerConfig{
			Tool: tool,
			Tips: map[string]terrabrush.Tip{"ramp": tip},
		})
		if err != nil {
			t.Fatal(err)
		}
		n, err := player.Play(context.Background(), tr, recorded.Clone())
		if err != nil {
			t.Fatal(err)
		}
		if n != 24 {
			t.Fatal("want 24 occurrences replayed, got", n)
		}
		if err := g.Close(); err != nil {
			t.Fatal(err)
		}
		fingerprints = append(fingerprints, fingerprint(tr))
	}
	if fingerprints[0] != fingerprints[1] {
		t.Errorf("%s: replays of the same log differ", tool.Name())
	}
	if fingerprints[0] != fingerprint(live) {
		t.Errorf("%s: replay differs from the live stroke", tool.Name())
	}
	if fingerprints[0] == fingerprint(newTerrain(t)) {
		t.Errorf("%s: replay did not paint anything", tool.Name())
	}
	if err := p.AssertAllReleased(); err != nil {
		t.Error(err)
	}
}

func TestPlayCancelled(t *testing.T) {
	var p surface.Pool
	g := newSession(t, &p, nil)
	defer g.Close()
	player, err := NewPlayer(g, PlayerConfig{Tool: &paint.RaiseLower{Amount: 1}})
	if err != nil {
		t.Fatal(err)
	}
	l := NewLog(Occurrence{X: 0.5, Y: 0.5, Strength: 1, Size: 10})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := newTerrain(t)
	n, err := player.Play(ctx, tr, l)
	if !errors.Is(err, context.Canceled) || n != 0 {
		t.Fatalf("want cancellation before painting, got n=%d err=%v", n, err)
	}
	if l.Len() != 1 {
		t.Error("cancelled replay consumed occurrences")
	}
	if tr.Heights.Fingerprint() != newTerrain(t).Heights.Fingerprint() {
		t.Error("cancelled replay painted")
	}
}

func TestPlayUnknownTexture(t *testing.T) {
	var p surface.Pool
	g := newSession(t, &p, nil)
	defer g.Close()
	player, err := NewPlayer(g, PlayerConfig{Tool: &paint.RaiseLower{Amount: 1}})
	if err != nil {
		t.Fatal(err)
	}
	l := NewLog(Occurrence{X: 0.5, Y: 0.5, Strength: 1, Size: 10, Texture: "missing"})
	_, err = player.Play(context.Background(), newTerrain(t), l)
	if !errors.Is(err, ErrUnknownTexture) {
		t.Error("expected ErrUnknownTexture, got", err)
	}
}

func TestReplayTipSwitch(t *testing.T) {
	var bld terrabrush.Builder
	bases := []terrabrush.Tip{nil, bld.NewFalloffTip(bld.NewCircle(1), 0.3)}
	ramp := rampTip(t)
	tool := &paint.RaiseLower{Amount: 0.05}
	for ib, base := range bases {
		var p surface.Pool
		live := newTerrain(t)
		g := newSession(t, &p, base)
		var rec Recorder
		for i := 0; i < 16; i++ {
			switch i {
			case 4:
				g.SetTip(ramp)
			case 10:
				g.SetTip(base)
			}
			uv := ms2.Vec{X: 0.4 + 0.01*float32(i), Y: 0.5}
			g.UpdateHit(live.HitAtUV(uv), live)
			g.SetBrushRotation(float32(20 * i))
			if !rec.Record(g) {
				t.Fatal("occurrence not recorded")
			}
			if err := g.Paint(tool); err != nil {
				t.Fatal(err)
			}
		}
		g.Close()
		occ := rec.Log().Occurrences()
		if occ[3].Texture != "" || occ[4].Texture != "ramp" || occ[15].Texture != "" {
			t.Fatalf("base %d: unexpected recorded textures %q %q %q", ib, occ[3].Texture, occ[4].Texture, occ[15].Texture)
		}

		tr := newTerrain(t)
		replayer := newSession(t, &p, base)
		player, err := NewPlayer(replayer, PlayerConfig{
			Tool: tool,
			Tips: map[string]terrabrush.Tip{"ramp": ramp},
		})
		if err != nil {
			t.Fatal(err)
		}
		_, err = player.Play(context.Background(), tr, rec.Log().Clone())
		if err != nil {
			t.Fatal(err)
		}
		replayer.Close()
		if fingerprint(tr) != fingerprint(live) {
			t.Errorf("base %d: replay after tip switch differs from the live stroke", ib)
		}
		if replayer.Tip() != base {
			t.Errorf("base %d: session tip not restored after replay", ib)
		}
		if err := p.AssertAllReleased(); err != nil {
			t.Error(err)
		}
	}
}
