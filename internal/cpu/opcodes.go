package cpu

// AddressingMode identifies how an instruction's operand is located.
type AddressingMode uint8

const (
	modeImplied AddressingMode = iota
	modeAccumulator
	modeImmediate
	modeZeroPage
	modeZeroPageX
	modeZeroPageY
	modeAbsolute
	modeAbsoluteX
	modeAbsoluteY
	modeIndirect
	modeIndexedIndirect // (zp,X)
	modeIndirectIndexed // (zp),Y
	modeRelative
)

// opKind identifies the operation performed once the operand is ready.
// The zero value (opNOP) is also the fallback for undefined opcodes.
type opKind uint8

const (
	opNOP opKind = iota
	opADC
	opAND
	opASL
	opBCC
	opBCS
	opBEQ
	opBIT
	opBMI
	opBNE
	opBPL
	opBRK
	opBVC
	opBVS
	opCLC
	opCLD
	opCLI
	opCLV
	opCMP
	opCPX
	opCPY
	opDEC
	opDEX
	opDEY
	opEOR
	opINC
	opINX
	opINY
	opJMP
	opJSR
	opLDA
	opLDX
	opLDY
	opLSR
	opORA
	opPHA
	opPHP
	opPLA
	opPLP
	opROL
	opROR
	opRTI
	opRTS
	opSBC
	opSEC
	opSED
	opSEI
	opSTA
	opSTX
	opSTY
	opTAX
	opTAY
	opTSX
	opTXA
	opTXS
	opTYA
	// Documented unofficial opcodes.
	opLAX
	opSAX
	opAXS // SBX: (A&X)-imm -> X
	opDCP
	opISB
	opSLO
	opRLA
	opSRE
	opRRA
	opALR
	opARR
	opANC
	opSHX
	opSHY
)

type opcodeInfo struct {
	mode    AddressingMode
	kind    opKind
	illegal bool
}

// opcodeTable is indexed by opcode byte; unlisted entries default to a
// 1-cycle-operand implied NOP, the conventional fallback for the
// remaining unstable/kill opcodes real hardware treats idiosyncratically
// (see DESIGN.md).
var opcodeTable = buildOpcodeTable()

func buildOpcodeTable() [256]opcodeInfo {
	var t [256]opcodeInfo

	set := func(op uint8, mode AddressingMode, kind opKind) {
		t[op] = opcodeInfo{mode: mode, kind: kind}
	}
	setIllegal := func(op uint8, mode AddressingMode, kind opKind) {
		t[op] = opcodeInfo{mode: mode, kind: kind, illegal: true}
	}

	// BRK / control flow.
	set(0x00, modeImplied, opBRK)
	set(0x20, modeAbsolute, opJSR)
	set(0x40, modeImplied, opRTI)
	set(0x60, modeImplied, opRTS)
	set(0x4C, modeAbsolute, opJMP)
	set(0x6C, modeIndirect, opJMP)

	// Flag instructions.
	set(0x18, modeImplied, opCLC)
	set(0x38, modeImplied, opSEC)
	set(0x58, modeImplied, opCLI)
	set(0x78, modeImplied, opSEI)
	set(0xB8, modeImplied, opCLV)
	set(0xD8, modeImplied, opCLD)
	set(0xF8, modeImplied, opSED)

	// Register transfers / stack.
	set(0xAA, modeImplied, opTAX)
	set(0x8A, modeImplied, opTXA)
	set(0xA8, modeImplied, opTAY)
	set(0x98, modeImplied, opTYA)
	set(0xBA, modeImplied, opTSX)
	set(0x9A, modeImplied, opTXS)
	set(0xE8, modeImplied, opINX)
	set(0xC8, modeImplied, opINY)
	set(0xCA, modeImplied, opDEX)
	set(0x88, modeImplied, opDEY)
	set(0xEA, modeImplied, opNOP)
	set(0x48, modeImplied, opPHA)
	set(0x08, modeImplied, opPHP)
	set(0x68, modeImplied, opPLA)
	set(0x28, modeImplied, opPLP)

	// Branches (relative).
	branches := map[uint8]opKind{
		0x10: opBPL, 0x30: opBMI, 0x50: opBVC, 0x70: opBVS,
		0x90: opBCC, 0xB0: opBCS, 0xD0: opBNE, 0xF0: opBEQ,
	}
	for op, kind := range branches {
		set(op, modeRelative, kind)
	}

	type family struct {
		kind                                   opKind
		imm, zp, zpx, zpy, abs, absx, absy, ix, iy uint8
		hasImm, hasZPY, hasAbsY, hasIX, hasIY  bool
	}

	// Read/ALU families across the standard addressing-mode progression.
	alu := []struct {
		kind                   opKind
		imm, zp, zpx, abs, absx, absy, ix, iy uint8
		hasImm                 bool
	}{
		{opORA, 0x09, 0x05, 0x15, 0x0D, 0x1D, 0x19, 0x01, 0x11, true},
		{opAND, 0x29, 0x25, 0x35, 0x2D, 0x3D, 0x39, 0x21, 0x31, true},
		{opEOR, 0x49, 0x45, 0x55, 0x4D, 0x5D, 0x59, 0x41, 0x51, true},
		{opADC, 0x69, 0x65, 0x75, 0x6D, 0x7D, 0x79, 0x61, 0x71, true},
		{opCMP, 0xC9, 0xC5, 0xD5, 0xCD, 0xDD, 0xD9, 0xC1, 0xD1, true},
		{opSBC, 0xE9, 0xE5, 0xF5, 0xED, 0xFD, 0xF9, 0xE1, 0xF1, true},
		{opLDA, 0xA9, 0xA5, 0xB5, 0xAD, 0xBD, 0xB9, 0xA1, 0xB1, true},
	}
	for _, f := range alu {
		if f.hasImm {
			set(f.imm, modeImmediate, f.kind)
		}
		set(f.zp, modeZeroPage, f.kind)
		set(f.zpx, modeZeroPageX, f.kind)
		set(f.abs, modeAbsolute, f.kind)
		set(f.absx, modeAbsoluteX, f.kind)
		set(f.absy, modeAbsoluteY, f.kind)
		set(f.ix, modeIndexedIndirect, f.kind)
		set(f.iy, modeIndirectIndexed, f.kind)
	}

	// Read-modify-write family (ASL/LSR/ROL/ROR/INC/DEC), no indirect modes.
	rmw := []struct {
		kind                         opKind
		acc                          uint8
		hasAcc                       bool
		zp, zpx, abs, absx           uint8
	}{
		{opASL, 0x0A, true, 0x06, 0x16, 0x0E, 0x1E},
		{opROL, 0x2A, true, 0x26, 0x36, 0x2E, 0x3E},
		{opLSR, 0x4A, true, 0x46, 0x56, 0x4E, 0x5E},
		{opROR, 0x6A, true, 0x66, 0x76, 0x6E, 0x7E},
		{opINC, 0, false, 0xE6, 0xF6, 0xEE, 0xFE},
		{opDEC, 0, false, 0xC6, 0xD6, 0xCE, 0xDE},
	}
	for _, f := range rmw {
		if f.hasAcc {
			set(f.acc, modeAccumulator, f.kind)
		}
		set(f.zp, modeZeroPage, f.kind)
		set(f.zpx, modeZeroPageX, f.kind)
		set(f.abs, modeAbsolute, f.kind)
		set(f.absx, modeAbsoluteX, f.kind)
	}

	// Compares with fixed modes.
	set(0xE0, modeImmediate, opCPX)
	set(0xE4, modeZeroPage, opCPX)
	set(0xEC, modeAbsolute, opCPX)
	set(0xC0, modeImmediate, opCPY)
	set(0xC4, modeZeroPage, opCPY)
	set(0xCC, modeAbsolute, opCPY)

	// BIT.
	set(0x24, modeZeroPage, opBIT)
	set(0x2C, modeAbsolute, opBIT)

	// LDX/LDY/STX/STY/STA.
	set(0xA2, modeImmediate, opLDX)
	set(0xA6, modeZeroPage, opLDX)
	set(0xB6, modeZeroPageY, opLDX)
	set(0xAE, modeAbsolute, opLDX)
	set(0xBE, modeAbsoluteY, opLDX)

	set(0xA0, modeImmediate, opLDY)
	set(0xA4, modeZeroPage, opLDY)
	set(0xB4, modeZeroPageX, opLDY)
	set(0xAC, modeAbsolute, opLDY)
	set(0xBC, modeAbsoluteX, opLDY)

	set(0x86, modeZeroPage, opSTX)
	set(0x96, modeZeroPageY, opSTX)
	set(0x8E, modeAbsolute, opSTX)

	set(0x84, modeZeroPage, opSTY)
	set(0x94, modeZeroPageX, opSTY)
	set(0x8C, modeAbsolute, opSTY)

	set(0x85, modeZeroPage, opSTA)
	set(0x95, modeZeroPageX, opSTA)
	set(0x8D, modeAbsolute, opSTA)
	set(0x9D, modeAbsoluteX, opSTA)
	set(0x99, modeAbsoluteY, opSTA)
	set(0x81, modeIndexedIndirect, opSTA)
	set(0x91, modeIndirectIndexed, opSTA)

	// Documented unofficial opcodes.
	setIllegal(0xA3, modeIndexedIndirect, opLAX)
	setIllegal(0xA7, modeZeroPage, opLAX)
	setIllegal(0xAF, modeAbsolute, opLAX)
	setIllegal(0xB3, modeIndirectIndexed, opLAX)
	setIllegal(0xB7, modeZeroPageY, opLAX)
	setIllegal(0xBF, modeAbsoluteY, opLAX)

	setIllegal(0x83, modeIndexedIndirect, opSAX)
	setIllegal(0x87, modeZeroPage, opSAX)
	setIllegal(0x8F, modeAbsolute, opSAX)
	setIllegal(0x97, modeZeroPageY, opSAX)

	setIllegal(0xEB, modeImmediate, opSBC) // duplicate SBC

	dcpLike := []struct {
		kind                                                   opKind
		ix, zp, abs, iy, zpx, absy, absx                       uint8
	}{
		{opSLO, 0x03, 0x07, 0x0F, 0x13, 0x17, 0x1B, 0x1F},
		{opRLA, 0x23, 0x27, 0x2F, 0x33, 0x37, 0x3B, 0x3F},
		{opSRE, 0x43, 0x47, 0x4F, 0x53, 0x57, 0x5B, 0x5F},
		{opRRA, 0x63, 0x67, 0x6F, 0x73, 0x77, 0x7B, 0x7F},
		{opDCP, 0xC3, 0xC7, 0xCF, 0xD3, 0xD7, 0xDB, 0xDF},
		{opISB, 0xE3, 0xE7, 0xEF, 0xF3, 0xF7, 0xFB, 0xFF},
	}
	for _, f := range dcpLike {
		setIllegal(f.ix, modeIndexedIndirect, f.kind)
		setIllegal(f.zp, modeZeroPage, f.kind)
		setIllegal(f.abs, modeAbsolute, f.kind)
		setIllegal(f.iy, modeIndirectIndexed, f.kind)
		setIllegal(f.zpx, modeZeroPageX, f.kind)
		setIllegal(f.absy, modeAbsoluteY, f.kind)
		setIllegal(f.absx, modeAbsoluteX, f.kind)
	}

	setIllegal(0x4B, modeImmediate, opALR)
	setIllegal(0x6B, modeImmediate, opARR)
	setIllegal(0x0B, modeImmediate, opANC)
	setIllegal(0x2B, modeImmediate, opANC)
	setIllegal(0xCB, modeImmediate, opAXS)
	setIllegal(0x9E, modeAbsoluteY, opSHX)
	setIllegal(0x9C, modeAbsoluteX, opSHY)

	// Duplicate/unofficial NOPs.
	for _, op := range []uint8{0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA} {
		setIllegal(op, modeImplied, opNOP)
	}
	for _, op := range []uint8{0x80, 0x82, 0x89, 0xC2, 0xE2} {
		setIllegal(op, modeImmediate, opNOP)
	}
	for _, op := range []uint8{0x04, 0x44, 0x64} {
		setIllegal(op, modeZeroPage, opNOP)
	}
	for _, op := range []uint8{0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4} {
		setIllegal(op, modeZeroPageX, opNOP)
	}
	setIllegal(0x0C, modeAbsolute, opNOP)
	for _, op := range []uint8{0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC} {
		setIllegal(op, modeAbsoluteX, opNOP)
	}

	return t
}
