package terrabrush

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/chewxy/math32"
	"github.com/golang/freetype/truetype"
	"github.com/soypat/geometry/ms2"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Font generates brush tip outlines from TrueType glyphs, i.e: letter stamps.
type Font struct {
	ttf *truetype.Font
	gb  truetype.GlyphBuf
	// Subdivisions is the amount of line segments each quadratic curve of an
	// outline is split into. If zero a reasonable value is chosen.
	Subdivisions int
	glyphs       map[rune]*glyphSDF
}

// LoadTTFBytes parses a TrueType font blob. Previously generated glyphs are discarded.
func (f *Font) LoadTTFBytes(ttf []byte) error {
	parsed, err := truetype.Parse(ttf)
	if err != nil {
		return err
	}
	f.ttf = parsed
	clear(f.glyphs)
	return nil
}

// Glyph returns the outline of character c as a signed distance field. Font units
// are normalized to the em square and +Y of the font points toward -Z so glyphs read
// upright when the terrain is viewed from above.
func (f *Font) Glyph(c rune) (SDF2, error) {
	if f.ttf == nil {
		return nil, errors.New("no font loaded")
	} else if !unicode.IsGraphic(c) || unicode.IsSpace(c) {
		return nil, fmt.Errorf("char %q has no outline", c)
	}
	if g, ok := f.glyphs[c]; ok {
		return g, nil
	}
	idx := f.ttf.Index(c)
	if idx == 0 {
		return nil, fmt.Errorf("char %q not in font", c)
	}
	scale := fixed.Int26_6(f.ttf.FUnitsPerEm())
	err := f.gb.Load(f.ttf, scale, idx, font.HintingNone)
	if err != nil {
		return nil, err
	}
	subdiv := f.Subdivisions
	if subdiv <= 0 {
		subdiv = 6
	}
	g := &glyphSDF{}
	start := 0
	for _, end := range f.gb.Ends {
		contour := outlineContour(f.gb.Points[start:end], float32(scale), subdiv)
		start = end
		if len(contour) < 3 {
			continue
		}
		g.contours = append(g.contours, contour)
	}
	if len(g.contours) == 0 {
		return nil, fmt.Errorf("char %q has no outline", c)
	}
	g.bounds = ms2.Box{Min: g.contours[0][0], Max: g.contours[0][0]}
	for _, contour := range g.contours {
		for _, v := range contour {
			g.bounds.Min = ms2.MinElem(g.bounds.Min, v)
			g.bounds.Max = ms2.MaxElem(g.bounds.Max, v)
		}
	}
	if f.glyphs == nil {
		f.glyphs = make(map[rune]*glyphSDF)
	}
	f.glyphs[c] = g
	return g, nil
}

// outlineContour flattens a closed TrueType contour of on-curve and off-curve
// (quadratic control) points into a polygon.
func outlineContour(points []truetype.Point, scale float32, subdiv int) []ms2.Vec {
	n := len(points)
	if n == 0 {
		return nil
	}
	type pt struct {
		v  ms2.Vec
		on bool
	}
	// Two consecutive off-curve points imply an on-curve point at their midpoint.
	expanded := make([]pt, 0, 2*n)
	first := -1
	for i := 0; i < n; i++ {
		cur, next := points[i], points[(i+1)%n]
		p := pt{v: ms2.Vec{X: float32(cur.X) / scale, Y: -float32(cur.Y) / scale}, on: cur.Flags&1 != 0}
		expanded = append(expanded, p)
		if p.on && first < 0 {
			first = len(expanded) - 1
		}
		if !p.on && next.Flags&1 == 0 {
			nv := ms2.Vec{X: float32(next.X) / scale, Y: -float32(next.Y) / scale}
			expanded = append(expanded, pt{v: ms2.Scale(0.5, ms2.Add(p.v, nv)), on: true})
			if first < 0 {
				first = len(expanded) - 1
			}
		}
	}
	m := len(expanded)
	poly := make([]ms2.Vec, 0, m*subdiv)
	for k := 0; k < m; {
		p0 := expanded[(first+k)%m]
		p1 := expanded[(first+k+1)%m]
		poly = append(poly, p0.v)
		if p1.on {
			k++
			continue
		}
		p2 := expanded[(first+k+2)%m]
		for s := 1; s < subdiv; s++ {
			t := float32(s) / float32(subdiv)
			a := (1 - t) * (1 - t)
			b := 2 * t * (1 - t)
			c := t * t
			poly = append(poly, ms2.Add(ms2.Add(ms2.Scale(a, p0.v), ms2.Scale(b, p1.v)), ms2.Scale(c, p2.v)))
		}
		k += 2
	}
	return poly
}

// glyphSDF is the signed distance to a set of closed polygons. Insideness follows
// the even-odd rule so counters (holes) of glyphs are outside.
type glyphSDF struct {
	contours [][]ms2.Vec
	bounds   ms2.Box
}

func (g *glyphSDF) Bounds() ms2.Box { return g.bounds }

func (g *glyphSDF) Evaluate(pos []ms2.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	}
	for i, p := range pos {
		d2 := math32.Inf(1)
		inside := false
		for _, contour := range g.contours {
			prev := contour[len(contour)-1]
			for _, v := range contour {
				e := ms2.Sub(v, prev)
				w := ms2.Sub(p, prev)
				t := clampf(ms2.Dot(w, e)/math32.Max(ms2.Dot(e, e), epstol), 0, 1)
				b := ms2.Sub(w, ms2.Scale(t, e))
				d2 = math32.Min(d2, ms2.Dot(b, b))
				if (prev.Y > p.Y) != (v.Y > p.Y) && p.X < prev.X+(p.Y-prev.Y)*e.X/e.Y {
					inside = !inside
				}
				prev = v
			}
		}
		d := math32.Sqrt(d2)
		if inside {
			d = -d
		}
		dist[i] = d
	}
	return nil
}

// GlyphTip is a [Tip] shaped like a font glyph.
type GlyphTip struct {
	Tip
	name string
}

// NewGlyphTip creates a tip from the outline of character c in f. falloff is
// the smoothing band width as in [Builder.NewFalloffTip].
func NewGlyphTip(f *Font, c rune, falloff float32) (*GlyphTip, error) {
	sdf, err := f.Glyph(c)
	if err != nil {
		return nil, err
	}
	bld := Builder{NoDimensionPanic: true}
	tip := bld.NewFalloffTip(sdf, falloff)
	if err := bld.Err(); err != nil {
		return nil, err
	}
	return &GlyphTip{Tip: tip, name: "glyph-" + string(c)}, nil
}

// Name returns the tip's identifier, "glyph-" followed by the character.
func (gt *GlyphTip) Name() string { return gt.name }
