//go:build !headless
// +build !headless

package graphics

import (
	"fmt"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"
)

// SDL2Backend implements the Backend interface using SDL2's renderer and
// texture streaming, as an alternative to the Ebitengine backend for
// platforms where a native SDL2 window is preferred.
type SDL2Backend struct {
	initialized bool
	config      Config
}

// SDL2Window implements the Window interface on top of an sdl.Window,
// sdl.Renderer, and a single streaming RGB24 texture sized to the NES
// picture.
type SDL2Window struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	title    string
	width    int
	height   int
	running  bool
	pixels   []byte
}

// NewSDL2Backend creates a new SDL2 graphics backend.
func NewSDL2Backend() Backend {
	return &SDL2Backend{}
}

// Initialize brings up the SDL2 video subsystem.
func (b *SDL2Backend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("sdl2 backend already initialized")
	}
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("initialize sdl2: %w", err)
	}
	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow creates an SDL2 window, accelerated renderer, and the
// streaming texture frames are pushed into.
func (b *SDL2Backend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	flags := uint32(sdl.WINDOW_SHOWN)
	if b.config.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}

	window, err := sdl.CreateWindow(
		title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(width), int32(height),
		flags,
	)
	if err != nil {
		return nil, fmt.Errorf("create sdl2 window: %w", err)
	}

	rendererFlags := uint32(sdl.RENDERER_ACCELERATED)
	if b.config.VSync {
		rendererFlags |= sdl.RENDERER_PRESENTVSYNC
	}
	renderer, err := sdl.CreateRenderer(window, -1, rendererFlags)
	if err != nil {
		window.Destroy()
		return nil, fmt.Errorf("create sdl2 renderer: %w", err)
	}

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_RGB24,
		sdl.TEXTUREACCESS_STREAMING,
		256, 240,
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		return nil, fmt.Errorf("create sdl2 texture: %w", err)
	}

	return &SDL2Window{
		window:   window,
		renderer: renderer,
		texture:  texture,
		title:    title,
		width:    width,
		height:   height,
		running:  true,
		pixels:   make([]byte, 256*240*3),
	}, nil
}

// Cleanup shuts down the SDL2 video subsystem.
func (b *SDL2Backend) Cleanup() error {
	sdl.Quit()
	b.initialized = false
	return nil
}

// IsHeadless always returns false for the SDL2 backend.
func (b *SDL2Backend) IsHeadless() bool { return false }

// GetName returns the backend name.
func (b *SDL2Backend) GetName() string { return "SDL2" }

// SetTitle retitles the window.
func (w *SDL2Window) SetTitle(title string) {
	w.title = title
	w.window.SetTitle(title)
}

// GetSize returns the window dimensions.
func (w *SDL2Window) GetSize() (width, height int) {
	ww, wh := w.window.GetSize()
	return int(ww), int(wh)
}

// ShouldClose reports whether a quit event has been observed.
func (w *SDL2Window) ShouldClose() bool {
	return !w.running
}

// SwapBuffers presents the renderer's back buffer.
func (w *SDL2Window) SwapBuffers() {
	w.renderer.Present()
}

// PollEvents drains the SDL event queue and translates it into the
// backend-agnostic InputEvent form.
func (w *SDL2Window) PollEvents() []InputEvent {
	var events []InputEvent
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			w.running = false
			events = append(events, InputEvent{Type: InputEventTypeQuit})
		case *sdl.KeyboardEvent:
			pressed := e.Type == sdl.KEYDOWN
			key, ok := sdlKeyToKey(e.Keysym.Sym)
			if !ok {
				continue
			}
			if key == KeyEscape && pressed {
				w.running = false
			}
			events = append(events, InputEvent{
				Type:      InputEventTypeKey,
				Key:       key,
				Pressed:   pressed,
				Modifiers: sdlModToModifier(e.Keysym.Mod),
			})
		}
	}
	return events
}

// RenderFrame converts the NES's packed-RGB frame buffer into the RGB24
// byte layout SDL2's streaming texture expects, then draws it scaled to
// the window.
func (w *SDL2Window) RenderFrame(frameBuffer [256 * 240]uint32) error {
	for i, pixel := range frameBuffer {
		w.pixels[i*3+0] = uint8(pixel >> 16)
		w.pixels[i*3+1] = uint8(pixel >> 8)
		w.pixels[i*3+2] = uint8(pixel)
	}

	if err := w.texture.Update(nil, unsafe.Pointer(&w.pixels[0]), 256*3); err != nil {
		return fmt.Errorf("update sdl2 texture: %w", err)
	}

	w.renderer.Clear()
	if err := w.renderer.Copy(w.texture, nil, nil); err != nil {
		return fmt.Errorf("copy sdl2 texture: %w", err)
	}
	return nil
}

// Cleanup destroys the texture, renderer, and window in order.
func (w *SDL2Window) Cleanup() error {
	w.running = false
	w.texture.Destroy()
	w.renderer.Destroy()
	w.window.Destroy()
	return nil
}

func sdlKeyToKey(sym sdl.Keycode) (Key, bool) {
	switch sym {
	case sdl.K_ESCAPE:
		return KeyEscape, true
	case sdl.K_RETURN:
		return KeyEnter, true
	case sdl.K_SPACE:
		return KeySpace, true
	case sdl.K_UP:
		return KeyUp, true
	case sdl.K_DOWN:
		return KeyDown, true
	case sdl.K_LEFT:
		return KeyLeft, true
	case sdl.K_RIGHT:
		return KeyRight, true
	case sdl.K_w:
		return KeyW, true
	case sdl.K_a:
		return KeyA, true
	case sdl.K_s:
		return KeyS, true
	case sdl.K_d:
		return KeyD, true
	case sdl.K_j:
		return KeyJ, true
	case sdl.K_k:
		return KeyK, true
	case sdl.K_x:
		return KeyX, true
	case sdl.K_z:
		return KeyZ, true
	case sdl.K_F1:
		return KeyF1, true
	case sdl.K_F2:
		return KeyF2, true
	case sdl.K_F3:
		return KeyF3, true
	default:
		return KeyUnknown, false
	}
}

func sdlModToModifier(mod sdl.Keymod) ModifierKey {
	var m ModifierKey
	if mod&sdl.KMOD_SHIFT != 0 {
		m |= ModifierShift
	}
	if mod&sdl.KMOD_CTRL != 0 {
		m |= ModifierCtrl
	}
	if mod&sdl.KMOD_ALT != 0 {
		m |= ModifierAlt
	}
	if mod&sdl.KMOD_GUI != 0 {
		m |= ModifierSuper
	}
	return m
}
