package filter

import (
	"fmt"
	"sort"
	"sync"

	"github.com/soypat/terrabrush"
	"github.com/soypat/terrabrush/surface"
)

// Params holds numeric filter parameters keyed by name, as stored in brush presets.
type Params map[string]float32

// Get returns the parameter value for key or def if absent.
func (p Params) Get(key string, def float32) float32 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Bool interprets the parameter as a boolean: any non-zero value is true.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key]; ok {
		return v != 0
	}
	return def
}

// Factory creates a filter from parameters. Filters owning private
// surfaces acquire them from p.
type Factory func(p surface.Provider, params Params) (Filter, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a filter factory available by name. Registering an
// existing name replaces the previous factory.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		panic("filter: Register with empty name or nil factory")
	}
	registryMu.Lock()
	registry[name] = f
	registryMu.Unlock()
}

// New creates a filter registered under name.
func New(name string, p surface.Provider, params Params) (Filter, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownFilter)
	}
	return factory(p, params)
}

// Names returns the sorted names of all registered filters.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("add", func(_ surface.Provider, params Params) (Filter, error) {
		return &Add{Value: params.Get("value", 0)}, nil
	})
	Register("multiply", func(_ surface.Provider, params Params) (Filter, error) {
		return &Multiply{Value: params.Get("value", 1)}, nil
	})
	Register("power", func(_ surface.Provider, params Params) (Filter, error) {
		return &Power{Exponent: params.Get("exponent", 1)}, nil
	})
	Register("abs", func(surface.Provider, Params) (Filter, error) {
		return &Abs{}, nil
	})
	Register("complement", func(surface.Provider, Params) (Filter, error) {
		return &Complement{}, nil
	})
	Register("clamp", func(_ surface.Provider, params Params) (Filter, error) {
		c := &Clamp{Min: params.Get("min", 0), Max: params.Get("max", 1)}
		if c.Min > c.Max {
			return nil, fmt.Errorf("clamp min %g greater than max %g", c.Min, c.Max)
		}
		return c, nil
	})
	Register("remap", func(_ surface.Provider, params Params) (Filter, error) {
		r := &Remap{
			FromMin: params.Get("from_min", 0),
			FromMax: params.Get("from_max", 1),
			ToMin:   params.Get("to_min", 0),
			ToMax:   params.Get("to_max", 1),
		}
		if r.FromMin == r.FromMax {
			return nil, fmt.Errorf("remap source range is empty")
		}
		return r, nil
	})
	Register("noise", func(_ surface.Provider, params Params) (Filter, error) {
		settings := DefaultNoiseSettings()
		settings.Seed = int64(params.Get("seed", float32(settings.Seed)))
		settings.Scale = params.Get("scale", settings.Scale)
		settings.Octaves = int(params.Get("octaves", float32(settings.Octaves)))
		settings.Persistence = params.Get("persistence", settings.Persistence)
		settings.Lacunarity = params.Get("lacunarity", settings.Lacunarity)
		settings.Amplitude = params.Get("amplitude", settings.Amplitude)
		settings.Offset = params.Get("offset", settings.Offset)
		return NewNoise(settings, params.Bool("local", true), BlendMode(params.Get("blend", float32(BlendReplace))))
	})
	Register("blur", func(p surface.Provider, params Params) (Filter, error) {
		return NewBlur(p, int(params.Get("radius", 1)))
	})
	Register("compute", newAffineCompute)
	Register("tip", func(_ surface.Provider, params Params) (Filter, error) {
		bld := terrabrush.Builder{NoDimensionPanic: true}
		var shape terrabrush.SDF2
		switch int(params.Get("shape", 0)) {
		case 0:
			shape = bld.NewCircle(0.5)
		case 1:
			shape = bld.NewRectangle(1, 1)
		case 2:
			shape = bld.NewHexagon(0.5)
		default:
			return nil, fmt.Errorf("unknown tip shape %g", params.Get("shape", 0))
		}
		tip := bld.NewFalloffTip(shape, params.Get("falloff", 0.5))
		if err := bld.Err(); err != nil {
			return nil, err
		}
		return &TipFilter{Tip: tip}, nil
	})
}
