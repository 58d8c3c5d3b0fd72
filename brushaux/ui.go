//go:build glgpu && cgo

package brushaux

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/terrabrush"
	"github.com/soypat/terrabrush/terrain"
)

func ui(t *terrain.Terrain, cfg UIConfig) error {
	window, term, err := startGLFW(cfg.Width, cfg.Height, "terrabrush "+t.Name)
	if err != nil {
		return err
	}
	defer term()
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex: `#version 460
in vec2 aPos;
out vec2 vTexCoord;
void main() {
    vTexCoord = aPos * 0.5 + 0.5;
    gl_Position = vec4(aPos, 0.0, 1.0);
}
` + "\x00",
		Fragment: heightfieldFrag,
	})
	if err != nil {
		return fmt.Errorf("%s\n\n%w", heightfieldFrag, err)
	}
	defer prog.Delete()
	prog.Bind()

	// Full screen quad.
	var vao, vbo uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	vertices := []float32{
		-1.0, -1.0,
		1.0, -1.0,
		-1.0, 1.0,
		-1.0, 1.0,
		1.0, -1.0,
		1.0, 1.0,
	}
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
	posAttrib, err := prog.AttribLocation("aPos\x00")
	if err != nil {
		return err
	}
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))

	// Heights go in a single channel float texture sampled bilinearly.
	b := t.Heights.Bounds()
	heights := t.Heights.Data()
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.R32F, int32(b.Dx()), int32(b.Dy()), 0, gl.RED, gl.FLOAT, gl.Ptr(heights))
	defer gl.DeleteTextures(1, &tex)
	if err := glgl.Err(); err != nil {
		return fmt.Errorf("uploading heightmap: %w", err)
	}

	uniform := func(name string) (int32, error) {
		return prog.UniformLocation(name + "\x00")
	}
	heightsUniform, err := uniform("uHeights")
	if err != nil {
		return err
	}
	gl.Uniform1i(heightsUniform, 0)
	extentUniform, err := uniform("uExtent")
	if err != nil {
		return err
	}
	// Terrain is normalized to a unit footprint along X.
	gl.Uniform3f(extentUniform, 1, t.Size.Y/t.Size.X, t.Size.Z/t.Size.X)
	camDistUniform, err := uniform("uCamDist")
	if err != nil {
		return err
	}
	resUniform, err := uniform("uResolution")
	if err != nil {
		return err
	}
	yawUniform, err := uniform("uYaw")
	if err != nil {
		return err
	}
	pitchUniform, err := uniform("uPitch")
	if err != nil {
		return err
	}

	const (
		minZoom          = 0.05
		maxZoom          = 10
		yawSensitivity   = 0.005
		pitchSensitivity = 0.005
	)
	var (
		yaw            = math.Pi / 4
		pitch          = 0.6
		camDist        = 1.6
		lastX, lastY   float64
		firstMouseMove = true
		dragging       = false
		refresh        = true
	)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if !dragging {
			return
		}
		refresh = true
		if firstMouseMove {
			lastX, lastY = xpos, ypos
			firstMouseMove = false
		}
		yaw += (xpos - lastX) * yawSensitivity
		pitch += (ypos - lastY) * pitchSensitivity
		maxPitch := math.Pi/2 - 0.01
		pitch = math.Max(0.02, math.Min(pitch, maxPitch))
		lastX, lastY = xpos, ypos
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		refresh = true
		camDist -= yoff * (camDist*.1 + .01)
		camDist = math.Max(minZoom, math.Min(camDist, maxZoom))
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		refresh = true
		if action == glfw.Press {
			dragging = true
			firstMouseMove = true
			window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		} else if action == glfw.Release {
			dragging = false
			window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	})

	log := terrabrush.Logger()
	log.Info("terrain UI opened", "terrain", t.Name, "heights", t.Heights.Fingerprint())
	ctx := cfg.Context
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		width, height := window.GetSize()
		gl.ClearColor(0, 0, 0, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT)
		prog.Bind()
		gl.Uniform1f(camDistUniform, float32(camDist))
		gl.Uniform2f(resUniform, float32(width), float32(height))
		gl.Uniform1f(yawUniform, float32(yaw))
		gl.Uniform1f(pitchUniform, float32(pitch))
		gl.BindVertexArray(vao)
		gl.DrawArrays(gl.TRIANGLES, 0, 6)
		window.SwapBuffers()

		for {
			time.Sleep(time.Second / 60)
			glfw.PollEvents()
			if refresh || window.ShouldClose() {
				refresh = false
				break
			}
		}
	}
	return nil
}

func startGLFW(width, height int, title string) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	window, err = glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}

const heightfieldFrag = `#version 460
in vec2 vTexCoord;
out vec4 fragColor;

uniform sampler2D uHeights;
uniform vec3 uExtent;
uniform vec2 uResolution;
uniform float uCamDist;
uniform float uYaw;
uniform float uPitch;

// Terrain spans x in [-X/2, X/2], z in [-Z/2, Z/2], heights in [0, Y].
float terrainHeight(vec2 xz) {
    vec2 uv = xz / uExtent.xz + 0.5;
    if (any(lessThan(uv, vec2(0.0))) || any(greaterThan(uv, vec2(1.0)))) {
        return -1.0;
    }
    return texture(uHeights, uv).r * uExtent.y;
}

vec3 calcNormal(vec3 pos) {
    vec2 e = vec2(1.0 / float(textureSize(uHeights, 0).x), 0.0) * uExtent.x;
    float hx = terrainHeight(pos.xz + e.xy) - terrainHeight(pos.xz - e.xy);
    float hz = terrainHeight(pos.xz + e.yx) - terrainHeight(pos.xz - e.yx);
    return normalize(vec3(-hx, 2.0 * e.x, -hz));
}

void main() {
    vec2 fragCoord = vTexCoord * uResolution;
    vec3 ta = vec3(0.0, 0.25 * uExtent.y, 0.0);
    vec3 dir = vec3(cos(uPitch) * sin(uYaw), sin(uPitch), cos(uPitch) * cos(uYaw));
    vec3 ro = ta + dir * uCamDist;
    vec3 ww = normalize(ta - ro);
    vec3 uu = normalize(cross(ww, vec3(0.0, 1.0, 0.0)));
    vec3 vv = cross(uu, ww);
    vec2 p = (2.0 * fragCoord - uResolution) / uResolution.y;
    vec3 rd = normalize(p.x * uu + p.y * vv + 1.5 * ww);

    // Fixed step march followed by bisection of the crossing interval.
    const int steps = 512;
    float tmax = 2.0 * uCamDist + 2.0;
    float dt = tmax / float(steps);
    float t = 0.0;
    bool hit = false;
    for (int i = 0; i < steps; i++) {
        vec3 pos = ro + t * rd;
        if (pos.y < terrainHeight(pos.xz)) {
            hit = true;
            break;
        }
        t += dt;
    }
    vec3 col = vec3(0.05, 0.06, 0.08);
    if (hit) {
        float lo = t - dt, hi = t;
        for (int i = 0; i < 8; i++) {
            float mid = 0.5 * (lo + hi);
            vec3 pos = ro + mid * rd;
            if (pos.y < terrainHeight(pos.xz)) {
                hi = mid;
            } else {
                lo = mid;
            }
        }
        vec3 pos = ro + hi * rd;
        vec3 nor = calcNormal(pos);
        float dif = clamp(dot(nor, normalize(vec3(0.6, 0.7, 0.4))), 0.0, 1.0);
        float amb = 0.5 + 0.5 * nor.y;
        vec3 base = mix(vec3(0.16, 0.35, 0.16), vec3(0.92, 0.9, 0.85), pos.y / max(uExtent.y, 1e-6));
        col = sqrt(base * (0.3 * amb + 0.8 * dif));
    }
    fragColor = vec4(col, 1.0);
}
` + "\x00"
