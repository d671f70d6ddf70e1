package ppu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeCart struct {
	chr [0x2000]uint8
}

func (c *fakeCart) ReadCHR(addr uint16) uint8     { return c.chr[addr&0x1FFF] }
func (c *fakeCart) WriteCHR(addr uint16, v uint8) { c.chr[addr&0x1FFF] = v }

func newTestPPU(mirror MirrorMode) (*PPU, *fakeCart) {
	cart := &fakeCart{}
	p := New(mirror, nil)
	p.AttachCartridge(cart, mirror)
	p.Reset()
	return p, cart
}

func TestPaletteMirroring(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.writePalette(0x3F10, 0x15)
	assert.Equal(t, uint8(0x15), p.readPalette(0x3F00))
	p.writePalette(0x3F04, 0x22)
	assert.Equal(t, uint8(0x22), p.readPalette(0x3F14))
}

func TestNametableMirroringHorizontal(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.writeVRAMOrCHR(0x2400, 0x7E)
	assert.Equal(t, uint8(0x7E), p.readVRAMOrCHR(0x2000))
}

func TestNametableMirroringVertical(t *testing.T) {
	p, _ := newTestPPU(MirrorVertical)
	p.writeVRAMOrCHR(0x2800, 0x33)
	assert.Equal(t, uint8(0x33), p.readVRAMOrCHR(0x2000))
}

func TestVBlankSetAndCleared(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.scanline, p.dot = 240, 339
	p.Step() // dot 339 -> 340
	p.Step() // dot 340 -> wraps to scanline 241 dot 0
	p.Step() // scanline 241 dot 0 -> sets vblank
	assert.True(t, p.status&statusVBlank != 0)

	status := p.ReadRegister(2)
	assert.True(t, status&statusVBlank != 0)
	assert.False(t, p.status&statusVBlank != 0)
}

func TestNMIFiresOnVBlankWhenEnabled(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	fired := false
	p.SetNMICallback(func() { fired = true })
	p.WriteRegister(0, ctrlNMI)
	p.scanline, p.dot = 241, 0
	p.Step()
	assert.True(t, fired)
}

func TestNMICanceledWhenDisabledWithinRaceWindow(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	fired, canceled := false, false
	p.SetNMICallback(func() { fired = true })
	p.SetNMICancelCallback(func() { canceled = true })
	p.WriteRegister(0, ctrlNMI)
	p.scanline, p.dot = 241, 0
	p.Step() // vblank set, NMI fires
	assert.True(t, fired)

	p.WriteRegister(0, 0) // disable NMI within the 0-2 dot window
	assert.True(t, canceled)
}

func TestNMINotCanceledOutsideRaceWindow(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	canceled := false
	p.SetNMICallback(func() {})
	p.SetNMICancelCallback(func() { canceled = true })
	p.WriteRegister(0, ctrlNMI)
	p.scanline, p.dot = 241, 0
	p.Step() // vblank set, NMI fires
	p.dot = 10

	p.WriteRegister(0, 0) // well past the cancellation window
	assert.False(t, canceled)
}

func TestScrollAndAddrLatch(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.WriteRegister(6, 0x21)
	p.WriteRegister(6, 0x08)
	assert.Equal(t, uint16(0x2108), p.v)

	p.w = false
	p.WriteRegister(5, 0x7D)
	p.WriteRegister(5, 0x5E)
	assert.Equal(t, uint8(0x7D&0x07), p.x)
}

func TestOAMWriteReadRoundTrip(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.WriteRegister(3, 0x10)
	p.WriteRegister(4, 0xAB)
	assert.Equal(t, uint8(0xAB), p.oam[0x10])
}

func TestMaskWriteLatency(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.WriteRegister(1, maskBGEnable)
	assert.Equal(t, uint8(0), p.mask)
	p.Step()
	p.Step()
	assert.Equal(t, maskBGEnable, p.mask)
}

func TestIncrementYWrapsAtRow29(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.v = 0x7000 | 29<<5 // fine Y 7, coarse Y 29
	p.incrementY()
	assert.Equal(t, uint16(0), p.coarseY())
	assert.Equal(t, uint16(0x0800), p.v&0x0800)
}

func TestIncrementXWrapsAndTogglesNametable(t *testing.T) {
	p, _ := newTestPPU(MirrorHorizontal)
	p.v = 31
	p.incrementX()
	assert.Equal(t, uint16(0), p.coarseX())
	assert.Equal(t, uint16(0x0400), p.v&0x0400)
}
