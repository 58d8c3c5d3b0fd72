// Command brushreplay plays a recorded brush stroke log against a flat terrain and
// prints the fingerprints of the resulting heightmap and alphamap. Identical logs
// always print identical fingerprints, which makes it suitable for regression checks.
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/terrabrush"
	"github.com/soypat/terrabrush/brushaux"
	"github.com/soypat/terrabrush/brushui"
	"github.com/soypat/terrabrush/filter"
	"github.com/soypat/terrabrush/paint"
	"github.com/soypat/terrabrush/replay"
	"github.com/soypat/terrabrush/surface"
	"github.com/soypat/terrabrush/terrain"
	"golang.org/x/image/font/gofont/goregular"
)

func init() {
	runtime.LockOSThread() // In case the terrain UI is requested.
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	cfg.Bind(flag.CommandLine)
	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *Config) error {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	terrabrush.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	occurrences, err := loadLog(cfg)
	if err != nil {
		return err
	}
	if cfg.Out != "" {
		if err := saveLog(cfg, occurrences); err != nil {
			return err
		}
	}
	tr, err := terrain.New(terrain.Config{
		Name:                "replay",
		Size:                ms3.Vec{X: float32(cfg.TerrainSize), Y: float32(cfg.TerrainHeight), Z: float32(cfg.TerrainSize)},
		HeightmapResolution: cfg.Resolution,
		AlphamapResolution:  cfg.Resolution - 1,
		AlphamapLayers:      4,
	})
	if err != nil {
		return err
	}

	before := tr.Heights.Clone()
	n, toolName, err := play(ctx, cfg, tr, occurrences)
	if errors.Is(err, replay.ErrEmptyLog) {
		fmt.Println("empty log, nothing to replay")
		return nil
	} else if err != nil {
		return err
	}
	fmt.Printf("replayed %d occurrences with %s\nheights %s\nalphas  %s\n", n, toolName, tr.Heights.Fingerprint(), tr.Alphas.Fingerprint())
	if cfg.PNG != "" {
		img, err := heightImage(cfg, before, tr.Heights)
		if err != nil {
			return err
		}
		err = brushaux.WritePNG(cfg.PNG, img)
		if err != nil {
			return err
		}
	}
	if cfg.STL != "" {
		err = writeSTL(cfg.STL, tr)
		if err != nil {
			return err
		}
	}
	if cfg.UI {
		return brushaux.UI(tr, brushaux.UIConfig{Width: 800, Height: 600, Context: ctx})
	}
	return nil
}

// play replays occurrences on tr through a brush session configured by cfg.
// The session and its filters are destroyed before returning.
func play(ctx context.Context, cfg *Config, tr *terrain.Terrain, occurrences *replay.Log) (n int, toolName string, err error) {
	specs, err := parseFilters(cfg.Filters)
	if err != nil {
		return 0, "", err
	}
	if slices.ContainsFunc(specs, func(fs filterSpec) bool { return fs.name == "compute" }) {
		// Deferred first so the GPU outlives the filters destroyed by group.Close.
		terminate, err := filter.InitGPU()
		if err != nil {
			return 0, "", fmt.Errorf("compute filter: %w", err)
		}
		defer terminate()
	}

	var pool surface.Pool
	gcfg := brushui.DefaultConfig()
	gcfg.Name = "brushreplay"
	gcfg.MaskResolution = cfg.MaskResolution
	gcfg.Tip, err = newTip(cfg.Tip)
	if err != nil {
		return 0, "", err
	}
	group, err := brushui.NewGroup(&pool, gcfg)
	if err != nil {
		return 0, "", err
	}
	defer func() {
		if cerr := group.Close(); cerr != nil {
			terrabrush.Logger().Warn("closing brush group", slog.Any("err", cerr))
		}
	}()
	for _, spec := range specs {
		f, err := filter.New(spec.name, &pool, spec.params)
		if err != nil {
			return 0, "", err
		}
		group.Filters().Add(f)
	}
	tool, err := paint.New(cfg.Tool)
	if err != nil {
		return 0, "", fmt.Errorf("%w (available: %s)", err, strings.Join(paint.Names(), ", "))
	}
	tips, err := loadTips(cfg.TipImages, cfg.MaskResolution)
	if err != nil {
		return 0, "", err
	}
	err = addNamedTips(tips, occurrences)
	if err != nil {
		return 0, "", err
	}
	player, err := replay.NewPlayer(group, replay.PlayerConfig{Tool: tool, Tips: tips})
	if err != nil {
		return 0, "", err
	}
	n, err = player.Play(ctx, tr, occurrences)
	return n, tool.Name(), err
}

type filterSpec struct {
	name   string
	params filter.Params
}

// parseFilters parses a comma separated filter list. Parameters follow the
// filter name separated by colons, i.e: "noise:scale=8:octaves=2,blur:radius=2".
func parseFilters(list string) ([]filterSpec, error) {
	var specs []filterSpec
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		parts := strings.Split(field, ":")
		spec := filterSpec{name: parts[0]}
		for _, kv := range parts[1:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("filter %s: parameter %q wants key=value", spec.name, kv)
			}
			f, err := strconv.ParseFloat(v, 32)
			if err != nil {
				return nil, fmt.Errorf("filter %s: parameter %s: %w", spec.name, k, err)
			}
			if spec.params == nil {
				spec.params = make(filter.Params)
			}
			spec.params[k] = float32(f)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func heightImage(cfg *Config, before, after *terrain.HeightMap) (image.Image, error) {
	switch cfg.Palette {
	case "terrain", "":
		return brushaux.HeightMapImage(after, cfg.Scale, nil)
	case "gray":
		return brushaux.HeightMapImage(after, cfg.Scale, brushaux.ColorConversionGrayscale(0, 1))
	case "signed":
		return brushaux.HeightDeltaImage(before, after, cfg.Scale)
	}
	return nil, fmt.Errorf("unknown palette %q", cfg.Palette)
}

func writeSTL(filename string, tr *terrain.Terrain) error {
	tris, err := brushaux.TerrainMesh(tr)
	if err != nil {
		return err
	}
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	bw := bufio.NewWriter(fp)
	_, err = brushaux.WriteBinarySTL(bw, tris)
	if err != nil {
		return err
	}
	err = bw.Flush()
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d triangles to %s\n", len(tris), filename)
	return fp.Sync()
}

func loadLog(cfg *Config) (*replay.Log, error) {
	if cfg.Demo > 0 {
		return spiral(cfg.Demo), nil
	} else if cfg.Log == "" {
		return nil, errors.New("no replay log given, use -log or -demo")
	}
	b, err := os.ReadFile(cfg.Log)
	if err != nil {
		return nil, err
	}
	return replay.Decode(bytes.NewReader(b))
}

func saveLog(cfg *Config, l *replay.Log) error {
	codec, err := replay.ParseCodec(cfg.Codec)
	if err != nil {
		return err
	}
	fp, err := os.Create(cfg.Out)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = replay.Encode(fp, l, codec)
	if err != nil {
		return err
	}
	return fp.Sync()
}

// spiral generates a stroke winding outward from the terrain center.
func spiral(n int) *replay.Log {
	l := &replay.Log{}
	for i := 0; i < n; i++ {
		t := float32(i) / float32(n)
		angle := 6 * math32.Pi * t
		r := 0.05 + 0.35*t
		l.Enqueue(replay.Occurrence{
			X:        0.5 + r*math32.Cos(angle),
			Y:        0.5 + r*math32.Sin(angle),
			Strength: 0.3 + 0.5*t,
			Size:     8,
			Rotation: angle * 180 / math32.Pi,
		})
	}
	return l
}

// loadTips reads image tips named after their file, i.e: "tips/rock.png" resolves texture "rock".
func loadTips(files string, resolution int) (map[string]terrabrush.Tip, error) {
	tips := make(map[string]terrabrush.Tip)
	for _, file := range strings.Split(files, ",") {
		file = strings.TrimSpace(file)
		if file == "" {
			continue
		}
		fp, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		img, err := png.Decode(fp)
		fp.Close()
		if err != nil {
			return nil, fmt.Errorf("decoding tip %s: %w", file, err)
		}
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		tip, err := terrabrush.NewImageTip(name, img, resolution)
		if err != nil {
			return nil, err
		}
		tips[name] = tip
	}
	return tips, nil
}

// addNamedTips resolves the built-in shape names and "glyph-X" texture names of l,
// the latter with the Go Regular font.
func addNamedTips(tips map[string]terrabrush.Tip, l *replay.Log) error {
	var font *terrabrush.Font
	for _, o := range l.Occurrences() {
		if o.Texture == "" || tips[o.Texture] != nil {
			continue
		}
		if slices.Contains(terrabrush.ShapeTips, o.Texture) {
			tip, err := terrabrush.ShapeTip(o.Texture)
			if err != nil {
				return err
			}
			tips[o.Texture] = tip
			continue
		}
		c, ok := strings.CutPrefix(o.Texture, "glyph-")
		if !ok {
			continue
		}
		if font == nil {
			font = new(terrabrush.Font)
			if err := font.LoadTTFBytes(goregular.TTF); err != nil {
				return err
			}
		}
		r, size := utf8.DecodeRuneInString(c)
		if size != len(c) {
			return fmt.Errorf("invalid glyph texture %q", o.Texture)
		}
		tip, err := terrabrush.NewGlyphTip(font, r, glyphFalloff)
		if err != nil {
			return err
		}
		tips[o.Texture] = tip
	}
	return nil
}

const glyphFalloff = 0.05

func newTip(shape string) (terrabrush.Tip, error) {
	if c, ok := strings.CutPrefix(shape, "glyph:"); ok {
		r, size := utf8.DecodeRuneInString(c)
		if size == 0 || size != len(c) {
			return nil, fmt.Errorf("glyph tip wants a single character, got %q", c)
		}
		var font terrabrush.Font
		if err := font.LoadTTFBytes(goregular.TTF); err != nil {
			return nil, err
		}
		tip, err := terrabrush.NewGlyphTip(&font, r, glyphFalloff)
		if err != nil {
			return nil, err
		}
		return tip, nil
	}
	if shape == "none" || shape == "" {
		return nil, nil
	}
	tip, err := terrabrush.ShapeTip(shape)
	if err != nil {
		return nil, err
	}
	return tip, nil
}
