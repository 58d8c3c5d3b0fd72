package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"log/slog"
	"strings"
	"testing"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/terrabrush"
	"github.com/soypat/terrabrush/filter"
	"github.com/soypat/terrabrush/replay"
	"github.com/soypat/terrabrush/surface"
	"github.com/soypat/terrabrush/terrain"
)

func TestConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tool != "raise" || cfg.Resolution != 129 || cfg.Codec != "zstd" || cfg.Scale != 4 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestConfigEnvAndFlags(t *testing.T) {
	t.Setenv("TBRUSH_TOOL", "smooth")
	t.Setenv("TBRUSH_RESOLUTION", "33")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tool != "smooth" || cfg.Resolution != 33 {
		t.Fatalf("environment not applied: %+v", cfg)
	}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.Bind(fs)
	err = fs.Parse([]string{"-res", "65", "-filters", "noise,blur"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tool != "smooth" {
		t.Error("flag default should keep environment value")
	}
	if cfg.Resolution != 65 || cfg.Filters != "noise,blur" {
		t.Errorf("flags not applied: %+v", cfg)
	}
}

func TestSpiral(t *testing.T) {
	l := spiral(50)
	if l.Len() != 50 {
		t.Fatalf("want 50 occurrences, got %d", l.Len())
	}
	for _, o := range l.Occurrences() {
		if o.X < 0 || o.X > 1 || o.Y < 0 || o.Y > 1 {
			t.Errorf("occurrence outside terrain: %+v", o)
		}
	}
}

func TestNewTip(t *testing.T) {
	for _, shape := range []string{"circle", "square", "hexagon", "glyph:A"} {
		tip, err := newTip(shape)
		if err != nil || tip == nil {
			t.Errorf("%s: tip=%v err=%v", shape, tip, err)
		}
	}
	tip, err := newTip("none")
	if err != nil || tip != nil {
		t.Error("none should give nil tip")
	}
	_, err = newTip("star")
	if err == nil {
		t.Error("expected error for unknown shape")
	}
	_, err = newTip("glyph:AB")
	if err == nil {
		t.Error("expected error for multi character glyph")
	}
}

func TestParseFilters(t *testing.T) {
	specs, err := parseFilters(" noise:scale=8:octaves=2, ,blur:radius=2,complement")
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 3 {
		t.Fatalf("want 3 filters, got %d", len(specs))
	}
	if specs[0].name != "noise" || specs[0].params["scale"] != 8 || specs[0].params["octaves"] != 2 {
		t.Errorf("unexpected noise spec %+v", specs[0])
	}
	if specs[1].name != "blur" || specs[1].params["radius"] != 2 {
		t.Errorf("unexpected blur spec %+v", specs[1])
	}
	if specs[2].name != "complement" || specs[2].params != nil {
		t.Errorf("unexpected complement spec %+v", specs[2])
	}
	for _, bad := range []string{"noise:scale", "noise:=1", "noise:scale=big"} {
		if _, err := parseFilters(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestAddNamedTips(t *testing.T) {
	l := replay.NewLog(
		replay.Occurrence{Texture: "square"},
		replay.Occurrence{Texture: "glyph-B"},
		replay.Occurrence{},
		replay.Occurrence{Texture: "rock"},
	)
	tips := map[string]terrabrush.Tip{}
	if err := addNamedTips(tips, l); err != nil {
		t.Fatal(err)
	}
	if tips["square"] == nil || tips["glyph-B"] == nil {
		t.Error("built-in tips not resolved", tips)
	}
	if _, ok := tips["rock"]; ok {
		t.Error("image tip names must be left to -tipimages")
	}
	if len(tips) != 2 {
		t.Error("unexpected tips resolved", tips)
	}
}

func TestHeightImagePalettes(t *testing.T) {
	before, err := terrain.NewHeightMap(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	after := before.Clone()
	after.Fill(0.25)
	for _, palette := range []string{"terrain", "gray", "signed"} {
		cfg := &Config{Palette: palette, Scale: 1}
		img, err := heightImage(cfg, before, after)
		if err != nil {
			t.Fatal(palette, err)
		}
		if img.Bounds().Dx() != 4 {
			t.Error(palette, "unexpected image bounds", img.Bounds())
		}
	}
	_, err = heightImage(&Config{Palette: "rainbow", Scale: 1}, before, after)
	if err == nil {
		t.Error("expected unknown palette error")
	}
}

// destroyFails is an add filter whose resources cannot be released.
type destroyFails struct{ filter.Add }

func (*destroyFails) Name() string   { return "destroy-fails" }
func (*destroyFails) Destroy() error { return errors.New("destroy failed") }

func TestPlayLogsCloseError(t *testing.T) {
	filter.Register("destroy-fails", func(surface.Provider, filter.Params) (filter.Filter, error) {
		return &destroyFails{}, nil
	})
	var buf bytes.Buffer
	terrabrush.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer terrabrush.SetLogger(nil)
	tr, err := terrain.New(terrain.Config{
		Name:                "close",
		Size:                ms3.Vec{X: 10, Y: 5, Z: 10},
		HeightmapResolution: 17,
		AlphamapResolution:  16,
		AlphamapLayers:      2,
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg := &Config{Tool: "raise", Filters: "destroy-fails", Tip: "circle", MaskResolution: 16}
	n, tool, err := play(context.Background(), cfg, tr, spiral(3))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || tool != "raise" {
		t.Errorf("want 3 occurrences with raise, got %d with %s", n, tool)
	}
	out := buf.String()
	if !strings.Contains(out, "closing brush group") || !strings.Contains(out, "destroy failed") {
		t.Error("filter destruction error not logged:\n" + out)
	}
}
