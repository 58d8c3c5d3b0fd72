package terrain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// AlphaMap stores per-layer texture weights. Layer weights at a texel
// conventionally sum to one.
type AlphaMap struct {
	layers []plane
}

// NewAlphaMap allocates an alphamap of w x h texels and the given number of layers.
// The first layer starts with full weight.
func NewAlphaMap(w, h, layers int) (*AlphaMap, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.New("alphamap dimensions must be positive")
	} else if layers <= 0 {
		return nil, errors.New("alphamap needs at least one layer")
	}
	am := &AlphaMap{layers: make([]plane, layers)}
	for i := range am.layers {
		am.layers[i] = plane{w: w, h: h, data: make([]float32, w*h)}
	}
	for i := range am.layers[0].data {
		am.layers[0].data[i] = 1
	}
	return am, nil
}

// Layers returns the number of texture layers.
func (am *AlphaMap) Layers() int { return len(am.layers) }

// Bounds returns the texel bounds shared by all layers.
func (am *AlphaMap) Bounds() image.Rectangle { return am.layers[0].bounds() }

// LayerRegion reads a region of a single layer.
func (am *AlphaMap) LayerRegion(layer, x, y, w, h int) (*Grid, error) {
	if err := am.checkLayer(layer); err != nil {
		return nil, err
	}
	return am.layers[layer].region(x, y, w, h)
}

// SetLayerRegion writes a region of a single layer.
func (am *AlphaMap) SetLayerRegion(layer, x, y int, g *Grid) error {
	if err := am.checkLayer(layer); err != nil {
		return err
	}
	return am.layers[layer].setRegion(x, y, g)
}

// Layer returns a [Field] view over a single layer.
func (am *AlphaMap) Layer(layer int) (Field, error) {
	if err := am.checkLayer(layer); err != nil {
		return nil, err
	}
	return layerField{am: am, layer: layer}, nil
}

// Clone returns a deep copy of the alphamap.
func (am *AlphaMap) Clone() *AlphaMap {
	clone := &AlphaMap{layers: make([]plane, len(am.layers))}
	for i, l := range am.layers {
		clone.layers[i] = plane{w: l.w, h: l.h, data: append([]float32(nil), l.data...)}
	}
	return clone
}

// AppendBytes appends the little endian IEEE 754 bits of every layer to b, layer after layer.
func (am *AlphaMap) AppendBytes(b []byte) []byte {
	for _, l := range am.layers {
		for _, v := range l.data {
			b = binary.LittleEndian.AppendUint32(b, math32.Float32bits(v))
		}
	}
	return b
}

// Fingerprint returns a hex SHA-256 digest of the exact contents of all layers.
func (am *AlphaMap) Fingerprint() string {
	n := 0
	for _, l := range am.layers {
		n += 4 * len(l.data)
	}
	sum := sha256.Sum256(am.AppendBytes(make([]byte, 0, n)))
	return hex.EncodeToString(sum[:])
}

func (am *AlphaMap) checkLayer(layer int) error {
	if layer < 0 || layer >= len(am.layers) {
		return fmt.Errorf("layer %d of %d: %w", layer, len(am.layers), ErrOutOfBounds)
	}
	return nil
}

type layerField struct {
	am    *AlphaMap
	layer int
}

func (lf layerField) Bounds() image.Rectangle { return lf.am.Bounds() }

func (lf layerField) Region(x, y, w, h int) (*Grid, error) {
	return lf.am.LayerRegion(lf.layer, x, y, w, h)
}

func (lf layerField) SetRegion(x, y int, g *Grid) error {
	return lf.am.SetLayerRegion(lf.layer, x, y, g)
}
