//go:build !glgpu || !cgo

package filter

import "github.com/soypat/terrabrush/surface"

// InitGPU is unavailable without the glgpu build tag and cgo.
func InitGPU() (terminate func(), err error) {
	return nil, ErrNoGPU
}

// Compute is a filter evaluated by an OpenGL compute shader.
// Builds without the glgpu tag cannot create one.
type Compute struct {
	cfg ComputeConfig
}

// NewCompute validates cfg and fails with an error since no GPU backend is compiled in.
func NewCompute(cfg ComputeConfig) (*Compute, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return nil, ErrNoGPU
}

func (c *Compute) Name() string { return c.cfg.Name }

func (c *Compute) Eval(fc Context, src, dst *surface.Surface) error { return ErrNoGPU }
