// Package config manages the emulator's on-disk TOML configuration,
// with compiled-in defaults so a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds every user-adjustable setting, grouped the way the host
// application's subsystems consume them.
type Config struct {
	Window    WindowConfig    `toml:"window"`
	Video     VideoConfig     `toml:"video"`
	Audio     AudioConfig     `toml:"audio"`
	Input     InputConfig     `toml:"input"`
	Emulation EmulationConfig `toml:"emulation"`
	Debug     DebugConfig     `toml:"debug"`
	Paths     PathsConfig     `toml:"paths"`

	path string
}

// WindowConfig controls the host window.
type WindowConfig struct {
	Width      int  `toml:"width"`
	Height     int  `toml:"height"`
	Fullscreen bool `toml:"fullscreen"`
	Scale      int  `toml:"scale"` // NES resolution multiplier
}

// VideoConfig selects the rendering backend and picture adjustments.
type VideoConfig struct {
	VSync        bool    `toml:"vsync"`
	Backend      string  `toml:"backend"` // "ebitengine", "sdl2", "headless", "terminal"
	Brightness   float32 `toml:"brightness"`
	Contrast     float32 `toml:"contrast"`
	Saturation   float32 `toml:"saturation"`
	CropOverscan bool    `toml:"crop_overscan"`
}

// AudioConfig controls APU sample output.
type AudioConfig struct {
	Enabled    bool    `toml:"enabled"`
	SampleRate int     `toml:"sample_rate"`
	BufferSize int     `toml:"buffer_size"`
	Volume     float32 `toml:"volume"`
}

// InputConfig holds keyboard bindings for both joypad ports.
type InputConfig struct {
	Player1Keys KeyMapping `toml:"player1_keys"`
	Player2Keys KeyMapping `toml:"player2_keys"`
}

// KeyMapping names a key per NES button.
type KeyMapping struct {
	Up     string `toml:"up"`
	Down   string `toml:"down"`
	Left   string `toml:"left"`
	Right  string `toml:"right"`
	A      string `toml:"a"`
	B      string `toml:"b"`
	Start  string `toml:"start"`
	Select string `toml:"select"`
}

// EmulationConfig controls core timing behavior.
type EmulationConfig struct {
	Region    string  `toml:"region"` // "NTSC", "PAL"
	FrameRate float64 `toml:"frame_rate"`
}

// DebugConfig controls diagnostic output.
type DebugConfig struct {
	ShowFPS       bool   `toml:"show_fps"`
	EnableLogging bool   `toml:"enable_logging"`
	LogLevel      string `toml:"log_level"` // "debug", "info", "warn", "error"
}

// PathsConfig names directories the host reads/writes.
type PathsConfig struct {
	ROMs       string `toml:"roms"`
	SaveStates string `toml:"save_states"`
	Logs       string `toml:"logs"`
}

// New returns a Config populated with the emulator's defaults.
func New() *Config {
	return &Config{
		Window: WindowConfig{Width: 768, Height: 720, Scale: 3},
		Video: VideoConfig{
			VSync:        true,
			Backend:      "ebitengine",
			Brightness:   1.0,
			Contrast:     1.0,
			Saturation:   1.0,
			CropOverscan: true,
		},
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: 44100,
			BufferSize: 1024,
			Volume:     0.8,
		},
		Input: InputConfig{
			Player1Keys: KeyMapping{
				Up: "W", Down: "S", Left: "A", Right: "D",
				A: "J", B: "K", Start: "Return", Select: "Space",
			},
			Player2Keys: KeyMapping{
				Up: "Up", Down: "Down", Left: "Left", Right: "Right",
				A: "N", B: "M", Start: "RShift", Select: "RCtrl",
			},
		},
		Emulation: EmulationConfig{Region: "NTSC", FrameRate: 60.0},
		Debug:     DebugConfig{LogLevel: "info"},
		Paths: PathsConfig{
			ROMs:       "./roms",
			SaveStates: "./states",
			Logs:       "./logs",
		},
	}
}

// LoadFromFile loads config from a TOML file. A missing file is not an
// error: defaults are written to path and returned instead.
func LoadFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		c := New()
		if err := c.SaveToFile(path); err != nil {
			return nil, err
		}
		return c, nil
	}

	c := New()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	c.validate()
	c.path = path
	return c, nil
}

// SaveToFile writes c to path as TOML, creating parent directories as
// needed.
func (c *Config) SaveToFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	c.path = path
	return nil
}

// Save rewrites the file this Config was loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no associated file path")
	}
	return c.SaveToFile(c.path)
}

// validate clamps out-of-range values to safe defaults instead of
// rejecting the whole file over one bad field.
func (c *Config) validate() {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		c.Window.Width, c.Window.Height = 768, 720
	}
	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}
	if c.Video.Brightness < 0.1 || c.Video.Brightness > 3.0 {
		c.Video.Brightness = 1.0
	}
	if c.Video.Contrast < 0.1 || c.Video.Contrast > 3.0 {
		c.Video.Contrast = 1.0
	}
	if c.Video.Saturation < 0.0 || c.Video.Saturation > 3.0 {
		c.Video.Saturation = 1.0
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 44100
	}
	if c.Audio.BufferSize <= 0 {
		c.Audio.BufferSize = 1024
	}
	if c.Audio.Volume < 0.0 || c.Audio.Volume > 1.0 {
		c.Audio.Volume = 0.8
	}
	if c.Emulation.FrameRate <= 0 {
		c.Emulation.FrameRate = 60.0
	}
}
