package bus

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gones/internal/cartridge"
)

func buildINES(prgBanks, chrBanks int) []byte {
	var buf bytes.Buffer
	buf.WriteString("NES\x1A")
	buf.WriteByte(uint8(prgBanks))
	buf.WriteByte(uint8(chrBanks))
	buf.WriteByte(0x00)
	buf.WriteByte(0x00)
	buf.Write(make([]byte, 8))
	buf.Write(make([]byte, prgBanks*16384))
	if chrBanks > 0 {
		buf.Write(make([]byte, chrBanks*8192))
	}
	return buf.Bytes()
}

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	cart, err := cartridge.LoadFromReader(bytes.NewReader(buildINES(2, 1)))
	require.NoError(t, err)
	b := New(nil)
	b.LoadCartridge(cart)
	b.Reset()
	return b
}

func TestRAMMirroring(t *testing.T) {
	b := newTestBus(t)
	b.Write(0x0000, 0x42)
	assert.Equal(t, uint8(0x42), b.Read(0x0800))
	assert.Equal(t, uint8(0x42), b.Read(0x1800))
}

func TestPPURegisterMirrorEvery8Bytes(t *testing.T) {
	b := newTestBus(t)
	b.Write(0x2003, 0x10) // OAMADDR
	b.Write(0x2004, 0x99) // OAMDATA, auto-increments OAMADDR to 0x11
	b.Write(0x200B, 0x10) // mirror of $2003, rewinds OAMADDR to re-read
	assert.Equal(t, uint8(0x99), b.Read(0x200C))

	b.Write(0x200B, 0x20) // mirror of $2003 (OAMADDR)
	b.Write(0x200C, 0x55) // mirror of $2004 (OAMDATA)
	b.Write(0x2003, 0x20)
	assert.Equal(t, uint8(0x55), b.Read(0x2004))
}

func TestClockRatioThreePPUStepsPerCPUCycle(t *testing.T) {
	b := newTestBus(t)
	before := b.cycleCount
	b.tick(10)
	assert.Equal(t, before+10, b.cycleCount)

	// Reset's 7 reads already ran 21 PPU dots. At three dots per tick the
	// PPU reaches its frame-ready dot (scanline 240, dot 340) on tick
	// 27387 after reset; at one dot per tick it would take over 82000.
	frames := 0
	b.SetFrameCallback(func() { frames++ })
	b.tick(27376)
	assert.Equal(t, 0, frames)
	b.tick(1)
	assert.Equal(t, 1, frames)
}

func TestFrameCallbackFiresOncePerFrame(t *testing.T) {
	b := newTestBus(t)
	frames := 0
	b.SetFrameCallback(func() { frames++ })

	// A full NTSC frame is 341*262 PPU dots; at 3 dots per CPU cycle
	// that is 29780.67 CPU cycles. The first frame completes 27387 cycles
	// after reset, so 30000 cycles hold exactly one.
	b.tick(30000)
	assert.Equal(t, 1, frames)
}

func TestOAMDMAStallsCPUForOddEvenCycles(t *testing.T) {
	b := newTestBus(t)
	b.cycleCount = 9 // the $4014 write's own tick makes DMA start on even cycle 10
	b.Write(0x4014, 0x02)
	assert.Equal(t, uint16(513), b.pendingStall)

	b2 := newTestBus(t)
	b2.cycleCount = 10 // the $4014 write's own tick makes DMA start on odd cycle 11
	b2.Write(0x4014, 0x02)
	assert.Equal(t, uint16(514), b2.pendingStall)
}

func TestOAMDMACopiesPageIntoOAM(t *testing.T) {
	b := newTestBus(t)
	b.Write(0x0200, 0x11)
	b.Write(0x0201, 0x22)
	b.Write(0x4014, 0x02)
	assert.Equal(t, uint16(513), b.pendingStall)
	assert.Equal(t, uint8(0x11), b.Read(0x2004)) // OAMADDR is 0
	b.Write(0x2003, 0x01)
	assert.Equal(t, uint8(0x22), b.Read(0x2004))
}

func TestPollIRQReflectsAPULines(t *testing.T) {
	b := newTestBus(t)
	assert.False(t, b.PollIRQ())
	b.APU.WriteRegister(0x4017, 0x00) // 4-step mode, frame IRQ enabled
	assert.False(t, b.PollIRQ())
}

func TestPollNMIAlwaysFalseSincePPUPushesDirectly(t *testing.T) {
	b := newTestBus(t)
	assert.False(t, b.PollNMI())
}

func TestOpenBusLatchRetainsLastValue(t *testing.T) {
	b := newTestBus(t)
	b.Write(0x0000, 0x37)
	b.Read(0x0000)
	v := b.Read(0x4018) // unmapped APU/IO region falls back to open bus
	assert.Equal(t, uint8(0x37), v)
}

func TestSecondControllerReadForcesBit6(t *testing.T) {
	b := newTestBus(t)
	assert.Equal(t, uint8(0x40), b.Read(0x4017)&0x40)
}

func TestCartridgePRGVisibleAtFFFC(t *testing.T) {
	b := newTestBus(t)
	// Reset already pulled the vector; just confirm PRG ROM is reachable
	// through the decoded address space at all.
	_ = b.Read(0xFFFC)
	_ = b.Read(0xFFFD)
}
