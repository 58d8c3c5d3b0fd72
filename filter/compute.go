package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/soypat/terrabrush/surface"
)

// ComputeConfig configures a [Compute] filter.
type ComputeConfig struct {
	// Name identifies the filter in the stack. Defaults to "compute".
	Name string
	// Body is the GLSL body of a function
	//
	//	float brushFilter(float src, vec2 brushSpace)
	//
	// evaluated once per texel. The uniforms BrushPos (vec3), BrushRotation,
	// BrushSize and BrushStrength (float) are in scope.
	Body string
	// InvocX is the compute shader local work group size. Defaults to 32.
	InvocX int
}

// ErrNoGPU is returned when creating a compute filter without a GPU context, either because
// the glgpu build tag and cgo are missing or because [InitGPU] was not called.
var ErrNoGPU = errors.New("compute filters need the glgpu build tag, cgo and an initialized GPU")

const computeShaderFmt = `#version 430
layout(local_size_x = %d, local_size_y = 1, local_size_z = 1) in;
layout(std430, binding = 0) buffer SrcBuffer { float src[]; };
layout(std430, binding = 1) buffer DstBuffer { float dst[]; };
uniform vec3 BrushPos;
uniform float BrushRotation;
uniform float BrushSize;
uniform float BrushStrength;
uniform int Width;
uniform int Height;

float brushFilter(float src, vec2 brushSpace) {
%s
}

void main() {
	int idx = int(gl_GlobalInvocationID.x);
	if (idx >= Width*Height) {
		return;
	}
	int x = idx %% Width;
	int y = idx / Width;
	vec2 bs = vec2((float(x)+0.5)/float(Width) - 0.5, (float(y)+0.5)/float(Height) - 0.5);
	dst[idx] = brushFilter(src[idx], bs);
}
`

func (cfg *ComputeConfig) validate() error {
	if cfg.Body == "" {
		return errors.New("empty compute filter body")
	}
	if cfg.Name == "" {
		cfg.Name = "compute"
	}
	if cfg.InvocX == 0 {
		cfg.InvocX = 32
	} else if cfg.InvocX < 0 {
		return fmt.Errorf("negative compute invocation size %d", cfg.InvocX)
	}
	return nil
}

func (cfg ComputeConfig) shaderSource() string {
	return fmt.Sprintf(computeShaderFmt, cfg.InvocX, cfg.Body) + "\x00"
}

// glslFloat formats v as a GLSL float literal.
func glslFloat(v float32) string {
	s := strconv.FormatFloat(float64(v), 'g', -1, 32)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// newAffineCompute creates a compute filter evaluating src*scale + bias.
func newAffineCompute(_ surface.Provider, params Params) (Filter, error) {
	scale, bias := params.Get("scale", 1), params.Get("bias", 0)
	if math32.IsNaN(scale+bias) || math32.IsInf(scale, 0) || math32.IsInf(bias, 0) {
		return nil, fmt.Errorf("compute scale %g and bias %g must be finite", scale, bias)
	}
	c, err := NewCompute(ComputeConfig{
		Name: "compute",
		Body: "return src*" + glslFloat(scale) + " + " + glslFloat(bias) + ";",
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
