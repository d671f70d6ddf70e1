// Package bus wires the CPU, PPU, APU, cartridge, and joypads into a
// single master clock. It owns CPU-side address decoding directly (the
// 2KB work RAM, PPU register mirror, and APU/IO page) rather than
// delegating to a separate memory object, so OAM DMA can stall the CPU
// and fan clock ticks out to the PPU/APU without a callback cycle back
// into a decoder that itself needs to reach the DMA engine.
package bus

import (
	"gones/internal/apu"
	"gones/internal/cartridge"
	"gones/internal/cpu"
	"gones/internal/input"
	"gones/internal/logging"
	"gones/internal/ppu"
)

// Bus is the NES's shared address space and clock. One CPU cycle ticks
// the PPU three times and the APU once, per the NTSC clock ratio.
type Bus struct {
	log *logging.Logger

	CPU   *cpu.CPU
	PPU   *ppu.PPU
	APU   *apu.APU
	Input *input.InputState
	Cart  *cartridge.Cartridge

	ram [0x0800]uint8

	openBus uint8

	dmaPending   bool
	dmaPage      uint8
	pendingStall uint16

	cycleCount uint64

	frameCallback func()
}

// New builds a Bus with no cartridge attached; LoadCartridge must be
// called before Step/StepInstruction produces anything meaningful.
func New(log *logging.Logger) *Bus {
	log = logging.OrNop(log)
	b := &Bus{log: log}
	b.APU = apu.New()
	b.APU.SetMemoryReader(func(addr uint16) uint8 { return b.read(addr) })
	b.Input = input.NewInputState()
	b.PPU = ppu.New(ppu.MirrorHorizontal, log)
	b.PPU.SetNMICallback(func() { b.CPU.RequestNMI() })
	b.PPU.SetNMICancelCallback(func() { b.CPU.CancelNMI() })
	b.CPU = cpu.New(b, log)
	return b
}

// LoadCartridge attaches a cartridge, wiring its CHR banks into the PPU
// and its mirroring mode into the PPU's nametable decode.
func (b *Bus) LoadCartridge(cart *cartridge.Cartridge) {
	b.Cart = cart
	b.PPU.AttachCartridge(cart, toPPUMirror(cart.GetMirrorMode()))
}

func toPPUMirror(m cartridge.MirrorMode) ppu.MirrorMode {
	switch m {
	case cartridge.MirrorVertical:
		return ppu.MirrorVertical
	case cartridge.MirrorSingleScreen0:
		return ppu.MirrorSingleScreen0
	case cartridge.MirrorSingleScreen1:
		return ppu.MirrorSingleScreen1
	case cartridge.MirrorFourScreen:
		return ppu.MirrorFourScreen
	default:
		return ppu.MirrorHorizontal
	}
}

// SetFrameCallback registers a function invoked once per completed
// frame, right after the PPU reports one ready.
func (b *Bus) SetFrameCallback(fn func()) { b.frameCallback = fn }

// Reset brings every component to its power-on/reset state.
func (b *Bus) Reset() {
	for i := range b.ram {
		b.ram[i] = 0
	}
	b.openBus = 0
	b.dmaPending = false
	b.PPU.Reset()
	b.APU.Reset()
	b.Input.Reset()
	b.CPU.Reset()
}

// Step drives the CPU by one cycle. The CPU's Step performs at most one
// bus access; every access ticks the shared clock by one CPU cycle,
// which this Bus fans out to the PPU (×3) and APU (×1).
func (b *Bus) Step() {
	b.CPU.Step()
}

// StepInstruction runs cycles until the CPU has completed one whole
// instruction (including any interrupt sequence it was mid-way
// through), for debuggers that want instruction-granularity stepping
// instead of the cycle-granularity Step provides.
func (b *Bus) StepInstruction() {
	b.CPU.Step()
	for !b.CPU.AtInstructionBoundary() {
		b.CPU.Step()
	}
}

// tick advances the PPU and APU by n CPU cycles' worth of clock.
func (b *Bus) tick(n uint16) {
	for i := uint16(0); i < n; i++ {
		b.cycleCount++
		b.PPU.Step()
		b.PPU.Step()
		b.PPU.Step()
		b.APU.Step()
		if b.PPU.ConsumeFrameReady() && b.frameCallback != nil {
			b.frameCallback()
		}
	}
}

// Read implements cpu.Bus. Every access ticks the clock once and
// updates the open-bus latch with whatever was actually read.
func (b *Bus) Read(addr uint16) uint8 {
	v := b.read(addr)
	b.openBus = v
	b.tick(1)
	return v
}

// Write implements cpu.Bus.
func (b *Bus) Write(addr uint16, value uint8) {
	b.write(addr, value)
	b.openBus = value
	b.tick(1)
	if addr == 0x4014 {
		b.startOAMDMA(value)
	}
}

// Peek reads addr the same way Read does, but without ticking the clock
// or disturbing the open-bus latch. It exists for debuggers and other
// inspection tools that must not perturb emulation timing.
func (b *Bus) Peek(addr uint16) uint8 {
	return b.read(addr)
}

func (b *Bus) read(addr uint16) uint8 {
	switch {
	case addr < 0x2000:
		return b.ram[addr&0x07FF]
	case addr < 0x4000:
		return b.PPU.ReadRegister(uint8(addr & 0x0007))
	case addr == 0x4015:
		return b.APU.ReadStatus()
	case addr == 0x4016:
		return b.Input.Read(0x4016) | (b.openBus &^ 0x01)
	case addr == 0x4017:
		return b.Input.Read(0x4017) | (b.openBus &^ 0x5F)
	case addr < 0x4020:
		b.log.Debugf("read of $%04X (no readable register) returns open bus", addr)
		return b.openBus
	default:
		if b.Cart != nil {
			return b.Cart.ReadPRG(addr)
		}
		return b.openBus
	}
}

func (b *Bus) write(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		b.ram[addr&0x07FF] = value
	case addr < 0x4000:
		b.PPU.WriteRegister(uint8(addr&0x0007), value)
	case addr == 0x4014:
		// OAM DMA trigger is handled by the caller after the write
		// tick, once the source page is known.
	case addr == 0x4016:
		b.Input.Write(0x4016, value)
	case addr < 0x4020:
		b.APU.WriteRegister(addr, value)
	default:
		if b.Cart != nil {
			b.Cart.WritePRG(addr, value)
		}
	}
}

// startOAMDMA copies 256 bytes from page*$100 into the PPU's OAM. Real
// hardware stalls the CPU for 513 cycles, or 514 if the DMA starts on an
// odd CPU cycle (one extra "get" cycle to realign to the write phase).
// Individual byte transfers are not separately clocked here; the stall
// is booked up front and the CPU burns it via PendingCPUStall/TickStall
// before its next instruction.
func (b *Bus) startOAMDMA(page uint8) {
	base := uint16(page) << 8
	for i := 0; i < 256; i++ {
		b.PPU.WriteOAM(uint8(i), b.read(base+uint16(i)))
	}
	cycles := uint16(513)
	if b.cpuCycleIsOdd() {
		cycles = 514
	}
	b.dmaPending = true
	b.dmaPage = page
	b.pendingStall += cycles
}

func (b *Bus) cpuCycleIsOdd() bool {
	return b.cycleCount%2 == 1
}

// PendingCPUStall implements cpu.Bus: it returns and clears any
// outstanding stall cycles requested by OAM DMA.
func (b *Bus) PendingCPUStall() uint16 {
	s := b.pendingStall
	b.pendingStall = 0
	b.dmaPending = false
	return s
}

// TickStall implements cpu.Bus: it advances the shared clock for cycles
// the CPU spends stalled, without performing a memory access.
func (b *Bus) TickStall(cycles uint16) {
	b.tick(cycles)
}

// PollNMI implements cpu.Bus.
func (b *Bus) PollNMI() bool {
	return false
}

// PollIRQ implements cpu.Bus: the frame counter and DMC IRQ lines are
// OR'd together onto the single IRQ line the 6502 sees.
func (b *Bus) PollIRQ() bool {
	return b.APU.GetFrameIRQ() || b.APU.GetDMCIRQ()
}
