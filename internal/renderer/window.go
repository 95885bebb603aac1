// Package renderer presents face display lists in a GLFW window through an
// OpenGL 4.1 core context. All methods must be called from the thread that
// created the window, normally the locked main goroutine.
package renderer

import (
	"fmt"
	"path/filepath"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexface/internal/canvas"
)

// Config describes the window.
type Config struct {
	Width  int
	Height int
	Title  string
	VSync  bool
	// ShaderDir holds face.vert and face.frag overriding the built-in
	// shaders. They are reloaded when edited.
	ShaderDir      string
	CircleSegments int
}

// Window is a canvas.Surface backed by a GLFW window.
type Window struct {
	window *glfw.Window
	cfg    Config
	logger zerolog.Logger

	shader  *Shader
	watcher *ShaderWatcher

	vao      uint32
	vbo      uint32
	vertices []float32

	fbWidth  int
	fbHeight int

	onResize func(w, h int)
	onClose  func()

	triangles int
}

// New creates the window and its GL resources. glfw.Init must have been
// called on the current thread.
func New(cfg Config, logger zerolog.Logger) (*Window, error) {
	if cfg.CircleSegments <= 0 {
		cfg.CircleSegments = canvas.DefaultCircleSegments
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Samples, 4)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		window.Destroy()
		return nil, fmt.Errorf("gl init: %w", err)
	}

	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	w := &Window{
		window: window,
		cfg:    cfg,
		logger: logger,
	}
	w.fbWidth, w.fbHeight = window.GetFramebufferSize()

	if err := w.initShader(); err != nil {
		window.Destroy()
		return nil, fmt.Errorf("init shader: %w", err)
	}
	w.initBuffers()

	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.MULTISAMPLE)

	window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.fbWidth, w.fbHeight = width, height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})
	window.SetCloseCallback(func(*glfw.Window) {
		if w.onClose != nil {
			w.onClose()
		}
	})

	logger.Info().
		Int("width", w.fbWidth).
		Int("height", w.fbHeight).
		Str("gl", gl.GoStr(gl.GetString(gl.VERSION))).
		Msg("Window created")
	return w, nil
}

func (w *Window) initShader() error {
	if w.cfg.ShaderDir != "" {
		s, err := NewShaderFromFiles(
			filepath.Join(w.cfg.ShaderDir, "face.vert"),
			filepath.Join(w.cfg.ShaderDir, "face.frag"),
		)
		if err == nil {
			w.shader = s
			w.watcher, err = NewShaderWatcher(w.logger)
			if err == nil {
				err = w.watcher.Watch(s)
			}
			if err != nil {
				w.logger.Warn().Err(err).Msg("Shader hot reload disabled")
			}
			return nil
		}
		w.logger.Warn().Err(err).Str("dir", w.cfg.ShaderDir).Msg("Falling back to built-in shaders")
	}

	s, err := NewShaderFromSource(faceVertSrc, faceFragSrc)
	if err != nil {
		return err
	}
	w.shader = s
	return nil
}

func (w *Window) initBuffers() {
	gl.GenVertexArrays(1, &w.vao)
	gl.GenBuffers(1, &w.vbo)

	gl.BindVertexArray(w.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, w.vbo)

	stride := int32(canvas.FloatsPerVertex * 4)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 4, gl.FLOAT, false, stride, 2*4)
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)
}

// SetResizeHandler registers fn for framebuffer size changes and calls it
// once with the current size.
func (w *Window) SetResizeHandler(fn func(w, h int)) {
	w.onResize = fn
	if fn != nil {
		fn(w.fbWidth, w.fbHeight)
	}
}

// SetCloseHandler registers fn for close requests from the window system.
func (w *Window) SetCloseHandler(fn func()) {
	w.onClose = fn
}

// Present draws dl, swaps buffers and processes pending window events.
func (w *Window) Present(dl *canvas.DisplayList) error {
	if w.watcher != nil {
		w.watcher.ReloadPending()
	}

	gl.Viewport(0, 0, int32(w.fbWidth), int32(w.fbHeight))
	bg := dl.Background
	gl.ClearColor(float32(bg.R), float32(bg.G), float32(bg.B), float32(bg.A))
	gl.Clear(gl.COLOR_BUFFER_BIT)

	w.vertices = canvas.Tessellate(w.vertices[:0], dl, w.cfg.CircleSegments)
	count := int32(len(w.vertices) / canvas.FloatsPerVertex)
	w.triangles = int(count / 3)

	if count > 0 {
		w.shader.Use()
		w.shader.SetMat4("uProjection", mgl32.Ortho2D(0, float32(w.fbWidth), float32(w.fbHeight), 0))

		gl.BindVertexArray(w.vao)
		gl.BindBuffer(gl.ARRAY_BUFFER, w.vbo)
		gl.BufferData(gl.ARRAY_BUFFER, len(w.vertices)*4, gl.Ptr(w.vertices), gl.STREAM_DRAW)
		gl.DrawArrays(gl.TRIANGLES, 0, count)
		gl.BindVertexArray(0)
	}

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl error 0x%x", code)
	}

	w.window.SwapBuffers()
	glfw.PollEvents()
	return nil
}

// Closed reports whether the user asked to close the window.
func (w *Window) Closed() bool {
	return w.window.ShouldClose()
}

// Triangles returns the triangle count of the last presented frame.
func (w *Window) Triangles() int {
	return w.triangles
}

// Shutdown releases GL resources and destroys the window.
func (w *Window) Shutdown() {
	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Close shader watcher")
		}
	}
	gl.DeleteVertexArrays(1, &w.vao)
	gl.DeleteBuffers(1, &w.vbo)
	w.shader.Delete()
	w.window.Destroy()
}

var faceVertSrc = `#version 410 core

layout(location = 0) in vec2 aPosition;
layout(location = 1) in vec4 aColor;

uniform mat4 uProjection;

out vec4 vColor;

void main() {
    vColor = aColor;
    gl_Position = uProjection * vec4(aPosition, 0.0, 1.0);
}
`

var faceFragSrc = `#version 410 core

in vec4 vColor;
out vec4 FragColor;

void main() {
    FragColor = vColor;
}
`
