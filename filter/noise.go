package filter

import (
	"errors"
	"fmt"

	"github.com/ojrac/opensimplex-go"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/terrabrush"
	"github.com/soypat/terrabrush/surface"
)

// NoiseSettings describes a fractal simplex noise field.
type NoiseSettings struct {
	Seed int64
	// Scale is the base frequency of the field. For brush-local noise it counts
	// features across the brush footprint, for world noise features per world unit.
	Scale float32
	// Octaves of detail summed together, at least 1.
	Octaves int
	// Persistence is the amplitude multiplier between octaves.
	Persistence float32
	// Lacunarity is the frequency multiplier between octaves.
	Lacunarity float32
	// Amplitude and Offset map the normalized [0,1] field: v = Offset + Amplitude*n.
	Amplitude float32
	Offset    float32
}

// DefaultNoiseSettings returns a 4 octave field of unit amplitude.
func DefaultNoiseSettings() NoiseSettings {
	return NoiseSettings{
		Seed:        1,
		Scale:       4,
		Octaves:     4,
		Persistence: 0.5,
		Lacunarity:  2,
		Amplitude:   1,
	}
}

// NoiseField samples fractal simplex noise. It is deterministic for a given seed.
type NoiseField struct {
	settings NoiseSettings
	gen      opensimplex.Noise
	norm     float64
}

// NewNoiseField validates settings and creates the field.
func NewNoiseField(settings NoiseSettings) (*NoiseField, error) {
	if settings.Octaves < 1 || settings.Octaves > 16 {
		return nil, fmt.Errorf("noise octaves %d outside [1, 16]", settings.Octaves)
	} else if settings.Scale <= 0 {
		return nil, errors.New("noise scale must be positive")
	} else if settings.Lacunarity <= 0 || settings.Persistence <= 0 {
		return nil, errors.New("noise lacunarity and persistence must be positive")
	}
	var norm, amp float64 = 0, 1
	for i := 0; i < settings.Octaves; i++ {
		norm += amp
		amp *= float64(settings.Persistence)
	}
	return &NoiseField{
		settings: settings,
		gen:      opensimplex.NewNormalized(settings.Seed),
		norm:     norm,
	}, nil
}

// Settings returns the field's settings.
func (nf *NoiseField) Settings() NoiseSettings { return nf.settings }

// At samples the field at p.
func (nf *NoiseField) At(p ms2.Vec) float32 {
	s := nf.settings
	freq := float64(s.Scale)
	amp := 1.0
	var sum float64
	for i := 0; i < s.Octaves; i++ {
		sum += amp * nf.gen.Eval2(float64(p.X)*freq, float64(p.Y)*freq)
		freq *= float64(s.Lacunarity)
		amp *= float64(s.Persistence)
	}
	return s.Offset + s.Amplitude*float32(sum/nf.norm)
}

// BlendMode selects how the noise filter combines the field with its source.
type BlendMode uint8

const (
	// BlendReplace writes the noise field: dst = n.
	BlendReplace BlendMode = iota
	// BlendAdd adds the noise field: dst = src + n.
	BlendAdd
	// BlendMultiply modulates the source: dst = src * n.
	BlendMultiply
)

// Noise is a procedural noise filter. Local noise is attached to the brush and rotates
// with it about the brush center. World noise is sampled at the world position under each
// texel and stays fixed while the brush moves or rotates.
type Noise struct {
	field *NoiseField
	local bool
	blend BlendMode
}

// NewNoise creates a noise filter.
func NewNoise(settings NoiseSettings, local bool, blend BlendMode) (*Noise, error) {
	if blend > BlendMultiply {
		return nil, fmt.Errorf("invalid noise blend mode %d", blend)
	}
	field, err := NewNoiseField(settings)
	if err != nil {
		return nil, err
	}
	return &Noise{field: field, local: local, blend: blend}, nil
}

func (*Noise) Name() string { return "noise" }

// Local reports whether the noise is sampled in brush-local space.
func (n *Noise) Local() bool { return n.local }

func (n *Noise) Eval(fc Context, src, dst *surface.Surface) error {
	if !src.SameSize(dst) {
		return surface.ErrMismatchedSize
	}
	w, h := dst.Width(), dst.Height()
	in, out := src.Pix(), dst.Pix()
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			p := BrushSpace(dst, i, j)
			if n.local {
				p = terrabrush.RotateBrushSpace(p, -fc.BrushRotation)
			} else {
				p = ms2.Vec{
					X: fc.BrushPos.X + p.X*fc.BrushSize,
					Y: fc.BrushPos.Z + p.Y*fc.BrushSize,
				}
			}
			v := n.field.At(p)
			k := j*w + i
			switch n.blend {
			case BlendAdd:
				v += in[k]
			case BlendMultiply:
				v *= in[k]
			}
			out[k] = v
		}
	}
	return nil
}
