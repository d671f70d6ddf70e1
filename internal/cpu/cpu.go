// Package cpu implements a cycle-accurate MOS 6502 (Ricoh 2A03) core for
// the NES. Execution is driven one master cycle at a time: each call to
// Step performs the work of exactly one CPU cycle and, at most, one bus
// access, so the caller (the Bus) can fan clock ticks out to the PPU and
// APU at the documented ratio.
package cpu

import "gones/internal/logging"

// Status register bit masks. Bit 5 is hard-wired high; it is never
// cleared by software and always reads back as 1.
const (
	flagC uint8 = 1 << 0
	flagZ uint8 = 1 << 1
	flagI uint8 = 1 << 2
	flagD uint8 = 1 << 3
	flagB uint8 = 1 << 4
	flagU uint8 = 1 << 5
	flagV uint8 = 1 << 6
	flagN uint8 = 1 << 7
)

const (
	stackBase   = 0x0100
	nmiVector   = 0xFFFA
	resetVector = 0xFFFC
	irqVector   = 0xFFFE
)

// execState is the CPU's coroutine-style state tag from the design
// notes: {Next, Processing(cycle), NMI(cycle), IRQ(cycle), Done, Exit}.
// Processing/NMI/IRQ carry an implicit cycle position via queue/qindex
// rather than a numeric payload; Done is folded into the transition at
// the end of the last micro-op instead of being its own Step call.
type execState uint8

const (
	stateNext execState = iota
	stateProcessing
	stateNMI
	stateIRQ
	stateExit
)

// Bus is the memory interface the CPU borrows uniquely for the duration
// of a run. Every access is expected to advance the shared master clock
// exactly once.
type Bus interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
	// PendingCPUStall returns and clears any CPU-stall cycles requested by
	// OAM DMA; the CPU ticks these via the bus directly
	// without performing a memory access of its own.
	PendingCPUStall() uint16
	TickStall(cycles uint16)
	PollNMI() bool
	PollIRQ() bool
}

// microop is one CPU cycle's worth of work. It performs at most one bus
// access and may append further microops to the CPU's queue (used for
// page-crossing and branch-taken cycles that are only known once an
// earlier microop has run).
type microop func(c *CPU)

// CPU holds the 6502's architectural and cycle-scratch state.
type CPU struct {
	A  uint8
	X  uint8
	Y  uint8
	SP uint8
	PC uint16
	P  uint8 // packed status byte; bit 5 always reads 1

	bus Bus
	log *logging.Logger

	state  execState
	queue  []microop
	qindex int

	// Cycle scratchpad (spec data model: current opcode, effective
	// address hi/lo, pointer byte, fetched operand, computed result,
	// page-crossing flag).
	opcode      uint8
	addrLo      uint8
	addrHi      uint8
	ptr         uint8
	operand     uint8
	result      uint8
	effAddr     uint16
	wrongAddr   uint16
	pageCrossed bool
	branchTaken bool

	mode AddressingMode
	kind opKind

	nmiPending bool
	irqLine    bool // raw IRQ line sampled this cycle
	irqLatched bool // IRQ line value from one cycle ago (2-step polling)

	// BreakOnBRK makes BRK return control to the caller instead of
	// running the interrupt sequence; used by test harnesses that load
	// a short program terminated with BRK.
	BreakOnBRK bool
	exited     bool
}

// New creates a CPU wired to bus. Call Reset before running it.
func New(bus Bus, log *logging.Logger) *CPU {
	return &CPU{bus: bus, log: logging.OrNop(log)}
}

// Reset performs the documented 6502 reset sequence: A=X=0, P=$24 ($20
// unused bit set, I set), SP=$FD, PC loaded from the reset vector. The
// bus is given its own warm-up budget (7-8 cycles) to clock the PPU/APU
// before the first real fetch.
func (c *CPU) Reset() {
	c.A, c.X, c.Y = 0, 0, 0
	c.SP = 0xFD
	c.P = flagU | flagI
	for i := 0; i < 5; i++ {
		c.bus.Read(c.PC)
	}
	lo := uint16(c.bus.Read(resetVector))
	hi := uint16(c.bus.Read(resetVector + 1))
	c.PC = hi<<8 | lo
	c.state = stateNext
	c.queue = nil
	c.qindex = 0
	c.exited = false
}

// Exited reports whether BreakOnBRK caused the CPU to stop.
func (c *CPU) Exited() bool { return c.exited }

// RequestNMI latches a pending NMI edge; cleared once serviced.
func (c *CPU) RequestNMI() { c.nmiPending = true }

// CancelNMI retracts a latched-but-not-yet-serviced NMI, for the PPU's
// 0-2 dot window where disabling NMI after vblank-set cancels delivery.
func (c *CPU) CancelNMI() { c.nmiPending = false }

// AtInstructionBoundary reports whether the next Step call will begin a
// new instruction (as opposed to continuing one already in flight). A
// debugger stepping a whole instruction at a time calls Step in a loop
// until this turns true again.
func (c *CPU) AtInstructionBoundary() bool { return c.state == stateNext }

// Step executes the work of exactly one CPU cycle.
func (c *CPU) Step() {
	switch c.state {
	case stateExit:
		return
	case stateNext:
		c.beginInstruction()
	default:
		c.runMicroop()
	}
}

func (c *CPU) beginInstruction() {
	if stall := c.bus.PendingCPUStall(); stall > 0 {
		c.bus.TickStall(stall)
		return
	}
	c.sampleInterruptLines()
	if c.nmiPending {
		c.nmiPending = false
		c.queue = c.buildInterruptSequence(nmiVector, false)
		c.qindex = 0
		c.state = stateNMI
		c.runMicroop()
		return
	}
	if c.irqLatched && c.P&flagI == 0 {
		c.queue = c.buildInterruptSequence(irqVector, false)
		c.qindex = 0
		c.state = stateIRQ
		c.runMicroop()
		return
	}

	c.opcode = c.bus.Read(c.PC)
	c.PC++
	info := opcodeTable[c.opcode]
	c.mode = info.mode
	c.kind = info.kind
	c.pageCrossed = false
	c.branchTaken = false
	c.queue = c.buildMicroops(info)
	c.qindex = 0
	c.state = stateProcessing
}

func (c *CPU) runMicroop() {
	op := c.queue[c.qindex]
	c.qindex++
	op(c)
	if c.qindex >= len(c.queue) {
		c.finishInstruction()
	}
}

func (c *CPU) finishInstruction() {
	if c.exited {
		c.state = stateExit
		return
	}
	c.queue = nil
	c.qindex = 0
	c.state = stateNext
}

// sampleInterruptLines implements the documented two-cycle polling
// delay: the value used for the decision is the one sampled on the
// previous poll (IRQ line high with I clear), so a CLI or PLP that
// clears I is not observed until the instruction after it. The decision
// also requires I to be clear at the current poll, so an instruction
// that sets I blocks the IRQ at once.
func (c *CPU) sampleInterruptLines() {
	c.irqLatched = c.irqLine
	c.irqLine = c.bus.PollIRQ() && c.P&flagI == 0
	if c.bus.PollNMI() {
		c.nmiPending = true
	}
}

func (c *CPU) setZN(v uint8) {
	if v == 0 {
		c.P |= flagZ
	} else {
		c.P &^= flagZ
	}
	if v&0x80 != 0 {
		c.P |= flagN
	} else {
		c.P &^= flagN
	}
}

func (c *CPU) getFlag(mask uint8) bool { return c.P&mask != 0 }

func (c *CPU) setFlag(mask uint8, v bool) {
	if v {
		c.P |= mask
	} else {
		c.P &^= mask
	}
}

func (c *CPU) push(v uint8) {
	c.bus.Write(stackBase+uint16(c.SP), v)
	c.SP--
}

func (c *CPU) pull() uint8 {
	c.SP++
	return c.bus.Read(stackBase + uint16(c.SP))
}

// buildInterruptSequence builds the 7-cycle NMI/IRQ microop queue (the
// first op runs in the same Step that detects the interrupt): two
// dummy reads of PC, push PCH/PCL/P (B clear), set I, load PC from
// vector. forceBRK selects the BRK-flavoured status push (B set).
func (c *CPU) buildInterruptSequence(vector uint16, forceBRK bool) []microop {
	return []microop{
		func(c *CPU) { c.bus.Read(c.PC) },
		func(c *CPU) { c.bus.Read(c.PC) },
		func(c *CPU) { c.push(uint8(c.PC >> 8)) },
		func(c *CPU) { c.push(uint8(c.PC & 0xFF)) },
		func(c *CPU) {
			status := c.P | flagU
			if forceBRK {
				status |= flagB
			} else {
				status &^= flagB
			}
			c.push(status)
			c.setFlag(flagI, true)
		},
		func(c *CPU) { c.addrLo = c.bus.Read(vector) },
		func(c *CPU) { c.addrHi = c.bus.Read(vector + 1); c.PC = uint16(c.addrHi)<<8 | uint16(c.addrLo) },
	}
}
