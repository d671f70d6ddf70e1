package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBus is a flat 64KB RAM used to exercise the CPU in isolation from
// the PPU/APU the real Bus fans cycles out to.
type testBus struct {
	ram   [65536]uint8
	nmi   bool
	irq   bool
	stall uint16
}

func (b *testBus) Read(addr uint16) uint8     { return b.ram[addr] }
func (b *testBus) Write(addr uint16, v uint8) { b.ram[addr] = v }
func (b *testBus) PendingCPUStall() uint16 {
	s := b.stall
	b.stall = 0
	return s
}
func (b *testBus) TickStall(cycles uint16) {}
func (b *testBus) PollNMI() bool           { return b.nmi }
func (b *testBus) PollIRQ() bool           { return b.irq }

func newTestCPU(program []uint8) (*CPU, *testBus) {
	bus := &testBus{}
	copy(bus.ram[0x0600:], program)
	bus.ram[0xFFFC] = 0x00
	bus.ram[0xFFFD] = 0x06
	c := New(bus, nil)
	c.Reset()
	c.BreakOnBRK = true
	return c, bus
}

func run(c *CPU) (cycles int) {
	for !c.Exited() {
		c.Step()
		cycles++
		if cycles > 10000 {
			break
		}
	}
	return cycles
}

func TestResetSequence(t *testing.T) {
	c, _ := newTestCPU([]uint8{0xEA})
	assert.Equal(t, uint8(0xFD), c.SP)
	assert.True(t, c.getFlag(flagI))
	assert.True(t, c.getFlag(flagU))
	assert.Equal(t, uint16(0x0600), c.PC)
}

func TestImmediateLoadAndBreak(t *testing.T) {
	c, _ := newTestCPU([]uint8{0xA9, 0x42, 0x00}) // LDA #$42; BRK
	cycles := run(c)
	assert.Equal(t, uint8(0x42), c.A)
	assert.False(t, c.getFlag(flagZ))
	assert.Equal(t, 4, cycles) // 2 for LDA imm + 2 for BRK (opcode fetch + signature byte; BreakOnBRK short-circuits)
}

func TestZeroPageXWraps(t *testing.T) {
	prog := []uint8{
		0xA2, 0x01, // LDX #$01
		0xA9, 0x55, // LDA #$55
		0x95, 0xFF, // STA $FF,X -> wraps to $00
		0x00, // BRK
	}
	c, bus := newTestCPU(prog)
	run(c)
	assert.Equal(t, uint8(0x55), bus.ram[0x0000])
}

func TestStackPushPullRoundTrip(t *testing.T) {
	prog := []uint8{
		0xA9, 0x7E, // LDA #$7E
		0x48,       // PHA
		0xA9, 0x00, // LDA #$00
		0x68, // PLA
		0x00, // BRK
	}
	c, _ := newTestCPU(prog)
	run(c)
	assert.Equal(t, uint8(0x7E), c.A)
	assert.Equal(t, uint8(0xFD), c.SP)
}

func TestStatusRegisterRoundTrip(t *testing.T) {
	prog := []uint8{
		0x38, // SEC
		0x08, // PHP
		0x18, // CLC
		0x28, // PLP
		0x00, // BRK
	}
	c, _ := newTestCPU(prog)
	run(c)
	assert.True(t, c.getFlag(flagC))
}

func TestBranchNotTakenIsTwoCycles(t *testing.T) {
	prog := []uint8{
		0x38,       // SEC
		0x90, 0x02, // BCC +2 (not taken, carry set)
		0xA9, 0x01, // LDA #$01
		0x00, // BRK
	}
	c, _ := newTestCPU(prog)
	cycles := run(c)
	assert.Equal(t, uint8(0x01), c.A)
	// SEC (2) + BCC not taken (2) + LDA imm (2) + BRK short-circuit (2)
	assert.Equal(t, 8, cycles)
}

func TestBranchTakenSamePageAddsOneCycle(t *testing.T) {
	bus := &testBus{}
	prog := []uint8{
		0x18,       // CLC
		0x90, 0x01, // BCC +1 (taken, skip next byte)
		0x00,       // would-be BRK if not skipped
		0xA9, 0x09, // LDA #$09
		0x00, // BRK
	}
	copy(bus.ram[0x0600:], prog)
	bus.ram[0xFFFC], bus.ram[0xFFFD] = 0x00, 0x06
	c := New(bus, nil)
	c.Reset()
	c.BreakOnBRK = true
	cycles := run(c)
	assert.Equal(t, uint8(0x09), c.A)
	// CLC (2) + BCC taken, same page (3) + LDA imm (2) + BRK short-circuit (2)
	assert.Equal(t, 9, cycles)
}

func TestAbsoluteIndexedPageCross(t *testing.T) {
	prog := []uint8{
		0xA2, 0x01, // LDX #$01
		0xBD, 0xFF, 0x06, // LDA $06FF,X -> $0700, crosses page
		0x00,
	}
	bus := &testBus{}
	copy(bus.ram[0x0600:], prog)
	bus.ram[0x0700] = 0x77
	bus.ram[0xFFFC], bus.ram[0xFFFD] = 0x00, 0x06
	c := New(bus, nil)
	c.Reset()
	c.BreakOnBRK = true
	cycles := run(c)
	assert.Equal(t, uint8(0x77), c.A)
	// LDX imm (2) + LDA abs,X crossed (5) + BRK short-circuit (2)
	assert.Equal(t, 9, cycles)
}

func TestAbsoluteRMWTakesSixCycles(t *testing.T) {
	prog := []uint8{
		0x0E, 0x00, 0x07, // ASL $0700
		0x00,
	}
	bus := &testBus{}
	copy(bus.ram[0x0600:], prog)
	bus.ram[0x0700] = 0x01
	bus.ram[0xFFFC], bus.ram[0xFFFD] = 0x00, 0x06
	c := New(bus, nil)
	c.Reset()
	c.BreakOnBRK = true
	cycles := run(c)
	assert.Equal(t, uint8(0x02), bus.ram[0x0700])
	// ASL abs (6) + BRK short-circuit (2)
	assert.Equal(t, 8, cycles)
}

func TestSHXDropsStoreOnPageCross(t *testing.T) {
	prog := []uint8{
		0xA2, 0xFF, // LDX #$FF
		0x9E, 0x01, 0x07, // SHX $0701,Y -> $0800, crosses page, store dropped
		0x00,
	}
	bus := &testBus{}
	copy(bus.ram[0x0600:], prog)
	bus.ram[0x0800] = 0xAA // sentinel; must be untouched
	bus.ram[0xFFFC], bus.ram[0xFFFD] = 0x00, 0x06
	c := New(bus, nil)
	c.Reset()
	c.Y = 0xFF
	c.BreakOnBRK = true
	run(c)
	assert.Equal(t, uint8(0xAA), bus.ram[0x0800])
}

func TestSHXStoresOnSamePage(t *testing.T) {
	prog := []uint8{
		0xA2, 0x0F, // LDX #$0F
		0x9E, 0x00, 0x07, // SHX $0700,Y -> $0701, same page
		0x00,
	}
	bus := &testBus{}
	copy(bus.ram[0x0600:], prog)
	bus.ram[0xFFFC], bus.ram[0xFFFD] = 0x00, 0x06
	c := New(bus, nil)
	c.Reset()
	c.Y = 0x01
	c.BreakOnBRK = true
	run(c)
	assert.Equal(t, uint8(0x0F&0x08), bus.ram[0x0701]) // X & (high byte of dest + 1)
}

func TestIndirectJMPPageWrapBug(t *testing.T) {
	bus := &testBus{}
	prog := []uint8{0x6C, 0xFF, 0x02} // JMP ($02FF)
	copy(bus.ram[0x0600:], prog)
	bus.ram[0x02FF] = 0x00
	bus.ram[0x0300] = 0x07 // would be the correct high byte, must NOT be used
	bus.ram[0x0200] = 0x06 // hardware bug: high byte comes from $0200, not $0300
	bus.ram[0xFFFC], bus.ram[0xFFFD] = 0x00, 0x06
	c := New(bus, nil)
	c.Reset()
	for i := 0; i < 5; i++ {
		c.Step()
	}
	require.Equal(t, uint16(0x0600), c.PC)
}

func TestJSRRTSRoundTrip(t *testing.T) {
	prog := []uint8{
		0x20, 0x06, 0x06, // JSR $0606
		0x00,       // BRK (skipped over until RTS returns here)
		0xEA, 0xEA, // padding
		0xA9, 0x5A, // $0606: LDA #$5A
		0x60, // RTS
	}
	c, _ := newTestCPU(prog)
	run(c)
	assert.Equal(t, uint8(0x5A), c.A)
}

func TestNMIInterruptSequence(t *testing.T) {
	bus := &testBus{}
	bus.ram[0xFFFC], bus.ram[0xFFFD] = 0x00, 0x06
	bus.ram[0xFFFA], bus.ram[0xFFFB] = 0x00, 0x08
	bus.ram[0x0600] = 0xEA // NOP
	bus.ram[0x0800] = 0xEA
	c := New(bus, nil)
	c.Reset()
	bus.nmi = true
	// The 7-cycle sequence ends with PC loaded from the NMI vector.
	for i := 0; i < 7; i++ {
		c.Step()
	}
	assert.Equal(t, uint16(0x0800), c.PC)
}

func TestUnofficialLAX(t *testing.T) {
	prog := []uint8{
		0xA7, 0x10, // LAX $10
		0x00,
	}
	c, bus := newTestCPU(prog)
	bus.ram[0x0010] = 0x37
	run(c)
	assert.Equal(t, uint8(0x37), c.A)
	assert.Equal(t, uint8(0x37), c.X)
}
