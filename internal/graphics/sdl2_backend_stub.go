//go:build headless
// +build headless

package graphics

import "fmt"

// SDL2Backend stub for headless builds, which exclude cgo-linked SDL2.
type SDL2Backend struct{}

// SDL2Window stub for headless builds.
type SDL2Window struct{}

// NewSDL2Backend creates a stub backend for headless builds.
func NewSDL2Backend() Backend {
	return &SDL2Backend{}
}

func (b *SDL2Backend) Initialize(config Config) error {
	return fmt.Errorf("SDL2 backend not available in headless build")
}

func (b *SDL2Backend) CreateWindow(title string, width, height int) (Window, error) {
	return nil, fmt.Errorf("SDL2 backend not available in headless build")
}

func (b *SDL2Backend) Cleanup() error { return nil }

func (b *SDL2Backend) IsHeadless() bool { return true }

func (b *SDL2Backend) GetName() string { return "SDL2-Stub" }

func (w *SDL2Window) SetTitle(title string)                            {}
func (w *SDL2Window) GetSize() (width, height int)                     { return 0, 0 }
func (w *SDL2Window) ShouldClose() bool                                { return true }
func (w *SDL2Window) SwapBuffers()                                     {}
func (w *SDL2Window) PollEvents() []InputEvent                        { return nil }
func (w *SDL2Window) RenderFrame(frameBuffer [256 * 240]uint32) error {
	return fmt.Errorf("SDL2 backend not available in headless build")
}
func (w *SDL2Window) Cleanup() error { return nil }
