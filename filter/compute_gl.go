//go:build glgpu && cgo

package filter

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/terrabrush/surface"
)

var gpuReady atomic.Bool

// InitGPU starts a hidden 1x1 window with a current OpenGL 4.6 context so that
// compute filters can run. Call terminate when done with the GPU, after every
// compute filter has been destroyed. Compute filters must be used from the
// thread that called InitGPU.
func InitGPU() (terminate func(), err error) {
	_, glfwTerm, err := glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:      "terrabrush compute",
		Version:    [2]int{4, 6},
		Width:      1,
		Height:     1,
		HideWindow: true,
	})
	if err != nil {
		return nil, err
	}
	gpuReady.Store(true)
	return func() {
		gpuReady.Store(false)
		glfwTerm()
	}, nil
}

// Compute is a filter evaluated by an OpenGL compute shader. The program is
// owned by the filter and deleted by Destroy.
type Compute struct {
	cfg  ComputeConfig
	prog glgl.Program
}

// NewCompute compiles a compute filter. A GL context must be current, see [InitGPU].
func NewCompute(cfg ComputeConfig) (*Compute, error) {
	err := cfg.validate()
	if err != nil {
		return nil, err
	} else if !gpuReady.Load() {
		return nil, ErrNoGPU
	}
	src := cfg.shaderSource()
	prog, err := glgl.CompileProgram(glgl.ShaderSource{Compute: src})
	if err != nil {
		return nil, errors.New(src + "\n" + err.Error())
	}
	return &Compute{cfg: cfg, prog: prog}, nil
}

func (c *Compute) Name() string { return c.cfg.Name }

func (c *Compute) Eval(fc Context, src, dst *surface.Surface) error {
	if c.prog.ID() == 0 {
		return errors.New("compute filter program deleted")
	} else if !gpuReady.Load() {
		return ErrNoGPU
	} else if !src.SameSize(dst) {
		return surface.ErrMismatchedSize
	}
	prog := c.prog
	prog.Bind()
	defer prog.Unbind()
	uniforms := []struct {
		name string
		v    []float32
	}{
		{"BrushPos\x00", []float32{fc.BrushPos.X, fc.BrushPos.Y, fc.BrushPos.Z}},
		{"BrushRotation\x00", []float32{fc.BrushRotation}},
		{"BrushSize\x00", []float32{fc.BrushSize}},
		{"BrushStrength\x00", []float32{fc.BrushStrength}},
	}
	for _, u := range uniforms {
		loc, err := prog.UniformLocation(u.name)
		if err != nil {
			// Uniforms unused by the body are optimized out by the GLSL compiler.
			continue
		}
		err = prog.SetUniformf(loc, u.v...)
		if err != nil {
			return fmt.Errorf("setting %s: %w", u.name, err)
		}
	}
	w, h := dst.Width(), dst.Height()
	gl.Uniform1i(gl.GetUniformLocation(prog.ID(), gl.Str("Width\x00")), int32(w))
	gl.Uniform1i(gl.GetUniformLocation(prog.ID(), gl.Str("Height\x00")), int32(h))

	in, out := src.Pix(), dst.Pix()
	var p runtime.Pinner
	ssboIn := loadSSBO(in, 0, gl.STATIC_DRAW)
	ssboOut := createSSBO(4*len(out), 1, gl.DYNAMIC_READ)
	p.Pin(&ssboIn)
	p.Pin(&ssboOut)
	defer p.Unpin()
	defer gl.DeleteBuffers(1, &ssboIn)
	defer gl.DeleteBuffers(1, &ssboOut)
	err := glgl.Err()
	if err != nil {
		return err
	}
	nWorkX := (len(out) + c.cfg.InvocX - 1) / c.cfg.InvocX
	gl.DispatchCompute(uint32(nWorkX), 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
	err = glgl.Err()
	if err != nil {
		return err
	}
	return copySSBO(out, ssboOut)
}

// Destroy deletes the compute program.
func (c *Compute) Destroy() error {
	if c.prog.ID() != 0 {
		c.prog.Delete()
		c.prog = glgl.Program{}
	}
	return glgl.Err()
}

func loadSSBO(slice []float32, base, usage uint32) (ssbo uint32) {
	gl.GenBuffers(1, &ssbo)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, 4*len(slice), unsafe.Pointer(&slice[0]), usage)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, base, ssbo)
	return ssbo
}

func createSSBO(size int, base, usage uint32) (ssbo uint32) {
	gl.GenBuffers(1, &ssbo)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, nil, usage)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, base, ssbo)
	return ssbo
}

func copySSBO(dst []float32, ssbo uint32) error {
	bufSize := 4 * len(dst)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	ptr := gl.MapBufferRange(gl.SHADER_STORAGE_BUFFER, 0, bufSize, gl.MAP_READ_BIT)
	if ptr == nil {
		err := glgl.Err()
		if err == nil {
			err = errors.New("failed to map SSBO buffer during copy")
		}
		return err
	}
	defer gl.UnmapBuffer(gl.SHADER_STORAGE_BUFFER)
	copy(dst, unsafe.Slice((*float32)(ptr), len(dst)))
	return nil
}
