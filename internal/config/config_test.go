package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigHasSaneDefaults(t *testing.T) {
	c := New()
	assert.Equal(t, "NTSC", c.Emulation.Region)
	assert.Equal(t, 44100, c.Audio.SampleRate)
	assert.Equal(t, "ebitengine", c.Video.Backend)
}

func TestLoadFromFileWritesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 60.0, c.Emulation.FrameRate)
	assert.FileExists(t, path)
}

func TestLoadFromFileRoundTripsCustomValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	c := New()
	c.Audio.Volume = 0.25
	c.Window.Scale = 4
	require.NoError(t, c.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, float32(0.25), loaded.Audio.Volume)
	assert.Equal(t, 4, loaded.Window.Scale)
}

func TestValidateClampsOutOfRangeValues(t *testing.T) {
	c := New()
	c.Video.Brightness = 99
	c.Audio.Volume = -1
	c.Window.Scale = 0
	c.validate()

	assert.Equal(t, float32(1.0), c.Video.Brightness)
	assert.Equal(t, float32(0.8), c.Audio.Volume)
	assert.Equal(t, 1, c.Window.Scale)
}

func TestSaveWithoutPathFails(t *testing.T) {
	c := New()
	assert.Error(t, c.Save())
}
