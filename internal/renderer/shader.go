package renderer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
)

var errNoSourceFiles = errors.New("shader was not loaded from files")

// Shader is a linked GL program with a uniform location cache.
type Shader struct {
	ID uint32

	vertPath string
	fragPath string

	uniforms map[string]int32
}

// NewShaderFromFiles compiles the program from a vertex and a fragment file.
func NewShaderFromFiles(vertPath, fragPath string) (*Shader, error) {
	vertSrc, err := os.ReadFile(vertPath)
	if err != nil {
		return nil, fmt.Errorf("read vertex shader %s: %w", vertPath, err)
	}
	fragSrc, err := os.ReadFile(fragPath)
	if err != nil {
		return nil, fmt.Errorf("read fragment shader %s: %w", fragPath, err)
	}

	s, err := NewShaderFromSource(string(vertSrc), string(fragSrc))
	if err != nil {
		return nil, err
	}
	s.vertPath = vertPath
	s.fragPath = fragPath
	return s, nil
}

// NewShaderFromSource compiles and links a program from GLSL sources.
func NewShaderFromSource(vertSrc, fragSrc string) (*Shader, error) {
	vert, err := compileShader(terminate(vertSrc), gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vert)

	frag, err := compileShader(terminate(fragSrc), gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(frag)

	program := gl.CreateProgram()
	gl.AttachShader(program, vert)
	gl.AttachShader(program, frag)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return nil, fmt.Errorf("link failed: %s", strings.TrimRight(log, "\x00"))
	}

	return &Shader{ID: program, uniforms: make(map[string]int32)}, nil
}

func terminate(src string) string {
	if strings.HasSuffix(src, "\x00") {
		return src
	}
	return src + "\x00"
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csource, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile error: %s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

// Use activates this shader program
func (s *Shader) Use() {
	gl.UseProgram(s.ID)
}

// Delete releases shader resources
func (s *Shader) Delete() {
	gl.DeleteProgram(s.ID)
}

// Reload recompiles the program from its files. On failure the current
// program stays in use.
func (s *Shader) Reload() error {
	if s.vertPath == "" || s.fragPath == "" {
		return errNoSourceFiles
	}
	next, err := NewShaderFromFiles(s.vertPath, s.fragPath)
	if err != nil {
		return err
	}
	gl.DeleteProgram(s.ID)
	s.ID = next.ID
	s.uniforms = make(map[string]int32)
	return nil
}

func (s *Shader) location(name string) int32 {
	if loc, ok := s.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(s.ID, gl.Str(name+"\x00"))
	s.uniforms[name] = loc
	return loc
}

// SetMat4 sets a mat4 uniform
func (s *Shader) SetMat4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(s.location(name), 1, false, &m[0])
}

// ShaderWatcher records shaders whose files changed. GL calls must stay on
// the thread owning the context, so the watcher only marks shaders and the
// render loop reloads them through ReloadPending.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	mu      sync.Mutex
	shaders map[string]*Shader // cleaned path -> shader
	pending map[*Shader]struct{}
	done    chan struct{}
}

// NewShaderWatcher starts watching for shader file changes.
func NewShaderWatcher(logger zerolog.Logger) (*ShaderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	sw := &ShaderWatcher{
		watcher: watcher,
		logger:  logger,
		shaders: make(map[string]*Shader),
		pending: make(map[*Shader]struct{}),
		done:    make(chan struct{}),
	}
	go sw.watchLoop()
	return sw, nil
}

// Watch registers a file-backed shader.
func (sw *ShaderWatcher) Watch(s *Shader) error {
	if s.vertPath == "" || s.fragPath == "" {
		return errNoSourceFiles
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	for _, dir := range []string{filepath.Dir(s.vertPath), filepath.Dir(s.fragPath)} {
		if err := sw.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	sw.shaders[filepath.Clean(s.vertPath)] = s
	sw.shaders[filepath.Clean(s.fragPath)] = s
	return nil
}

// ReloadPending recompiles every shader marked since the last call. It must
// run on the GL thread.
func (sw *ShaderWatcher) ReloadPending() {
	sw.mu.Lock()
	if len(sw.pending) == 0 {
		sw.mu.Unlock()
		return
	}
	pending := sw.pending
	sw.pending = make(map[*Shader]struct{})
	sw.mu.Unlock()

	for s := range pending {
		if err := s.Reload(); err != nil {
			sw.logger.Warn().Err(err).Str("shader", s.fragPath).Msg("Shader reload failed")
			continue
		}
		sw.logger.Info().Str("shader", s.fragPath).Msg("Shader reloaded")
	}
}

func (sw *ShaderWatcher) watchLoop() {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			sw.mu.Lock()
			if s, ok := sw.shaders[filepath.Clean(event.Name)]; ok {
				sw.pending[s] = struct{}{}
			}
			sw.mu.Unlock()
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Warn().Err(err).Msg("Shader watcher error")
		}
	}
}

// Close stops the shader watcher
func (sw *ShaderWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}
