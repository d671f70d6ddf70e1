package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewControllerDefaultState(t *testing.T) {
	c := New()
	assert.Equal(t, uint8(0), c.buttons)
	assert.False(t, c.strobe)
}

func TestSetButtonIndependence(t *testing.T) {
	c := New()
	c.SetButton(ButtonA, true)
	c.SetButton(ButtonStart, true)
	assert.True(t, c.IsPressed(ButtonA))
	assert.True(t, c.IsPressed(ButtonStart))
	assert.False(t, c.IsPressed(ButtonB))

	c.SetButton(ButtonA, false)
	assert.False(t, c.IsPressed(ButtonA))
	assert.True(t, c.IsPressed(ButtonStart))
}

func TestStrobeContinuouslyReloadsFromLiveState(t *testing.T) {
	c := New()
	c.Write(0x01) // strobe on
	assert.Equal(t, uint8(0), c.Read())
	c.SetButton(ButtonA, true)
	assert.Equal(t, uint8(1), c.Read()) // still strobing, sees live state
}

func TestReadSequenceMatchesButtonOrder(t *testing.T) {
	c := New()
	c.SetButton(ButtonA, true)
	c.SetButton(ButtonStart, true)
	c.SetButton(ButtonRight, true)

	c.Write(0x01)
	c.Write(0x00)

	expected := []uint8{1, 0, 0, 1, 0, 0, 0, 1} // A,B,Select,Start,Up,Down,Left,Right
	for i, want := range expected {
		assert.Equal(t, want, c.Read(), "bit %d", i)
	}
}

func TestReadPastEighthBitReturnsOnes(t *testing.T) {
	c := New()
	c.Write(0x01)
	c.Write(0x00)
	for i := 0; i < 8; i++ {
		c.Read()
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, uint8(1), c.Read())
	}
}

func TestResetClearsState(t *testing.T) {
	c := New()
	c.SetButton(ButtonA, true)
	c.Write(0x01)
	c.Reset()
	assert.Equal(t, uint8(0), c.buttons)
	assert.False(t, c.strobe)
}

func TestInputStateRoutesToCorrectController(t *testing.T) {
	is := NewInputState()
	is.Controller1.SetButton(ButtonA, true)
	is.Controller2.SetButton(ButtonB, true)
	is.Write(0x4016, 0x01)
	is.Write(0x4016, 0x00)

	assert.Equal(t, uint8(1), is.Read(0x4016)&0x01)
	assert.Equal(t, uint8(0), is.Read(0x4017)&0x01) // ButtonB isn't bit 0
}

func TestSecondControllerPortForcesBit6High(t *testing.T) {
	is := NewInputState()
	assert.Equal(t, uint8(0x40), is.Read(0x4017)&0x40)
}

func TestInputStateWriteIgnoredOutsideStrobePort(t *testing.T) {
	is := NewInputState()
	is.Controller1.SetButton(ButtonA, true)
	is.Write(0x4017, 0x01) // read-only port, write ignored
	assert.False(t, is.Controller1.strobe)
}
