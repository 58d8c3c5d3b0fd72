package terrain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"image"

	"github.com/chewxy/math32"
)

// HeightMap stores normalized terrain heights in [0, 1] as a dense grid.
type HeightMap struct {
	p plane
}

var _ Field = (*HeightMap)(nil)

// NewHeightMap allocates a flat heightmap of w x h samples.
func NewHeightMap(w, h int) (*HeightMap, error) {
	if w <= 1 || h <= 1 {
		return nil, errors.New("heightmap needs at least 2x2 samples")
	}
	return &HeightMap{p: plane{w: w, h: h, data: make([]float32, w*h)}}, nil
}

// Bounds implements [Field].
func (hm *HeightMap) Bounds() image.Rectangle { return hm.p.bounds() }

// Region implements [Field].
func (hm *HeightMap) Region(x, y, w, h int) (*Grid, error) { return hm.p.region(x, y, w, h) }

// SetRegion implements [Field].
func (hm *HeightMap) SetRegion(x, y int, g *Grid) error { return hm.p.setRegion(x, y, g) }

// At returns the height sample at (x, y). Coordinates are clamped to the heightmap.
func (hm *HeightMap) At(x, y int) float32 {
	x = min(max(x, 0), hm.p.w-1)
	y = min(max(y, 0), hm.p.h-1)
	return hm.p.data[y*hm.p.w+x]
}

// Fill sets every sample to v.
func (hm *HeightMap) Fill(v float32) {
	for i := range hm.p.data {
		hm.p.data[i] = v
	}
}

// Data exposes the row-major backing slice.
func (hm *HeightMap) Data() []float32 { return hm.p.data }

// Clone returns a deep copy of the heightmap.
func (hm *HeightMap) Clone() *HeightMap {
	return &HeightMap{p: plane{w: hm.p.w, h: hm.p.h, data: append([]float32(nil), hm.p.data...)}}
}

// Interpolated bilinearly samples heights at fractional sample coordinates.
func (hm *HeightMap) Interpolated(x, y float32) float32 {
	x0f, y0f := math32.Floor(x), math32.Floor(y)
	tx, ty := x-x0f, y-y0f
	x0, y0 := int(x0f), int(y0f)
	a := hm.At(x0, y0)
	b := hm.At(x0+1, y0)
	c := hm.At(x0, y0+1)
	d := hm.At(x0+1, y0+1)
	top := a + (b-a)*tx
	bot := c + (d-c)*tx
	return top + (bot-top)*ty
}

// AppendBytes appends the little-endian IEEE-754 encoding of all samples to b.
func (hm *HeightMap) AppendBytes(b []byte) []byte {
	for _, v := range hm.p.data {
		b = binary.LittleEndian.AppendUint32(b, math32.Float32bits(v))
	}
	return b
}

// Fingerprint returns a hex SHA-256 digest of the exact heightmap contents.
// Two heightmaps have the same fingerprint only if they are bit-identical.
func (hm *HeightMap) Fingerprint() string {
	sum := sha256.Sum256(hm.AppendBytes(make([]byte, 0, 4*len(hm.p.data))))
	return hex.EncodeToString(sum[:])
}
