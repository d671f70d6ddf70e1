package cpu

// accessClass says whether an opcode's addressing mode is used to read an
// operand, write a result, or read-modify-write a location in place. The
// addressing-mode builders below use this to decide how many bus cycles
// the mode costs and when the operation itself runs.
type accessClass uint8

const (
	accessRead accessClass = iota
	accessWrite
	accessRMW
)

func (k opKind) accessClass() accessClass {
	switch k {
	case opSTA, opSTX, opSTY, opSAX, opSHX, opSHY:
		return accessWrite
	case opASL, opROL, opLSR, opROR, opINC, opDEC,
		opSLO, opRLA, opSRE, opRRA, opDCP, opISB:
		return accessRMW
	default:
		return accessRead
	}
}

// impliedOnly reports whether kind operates with no addressing-mode operand at
// all (register/flag instructions, the bare "A" accumulator shift forms
// excepted since those still flow through the RMW path for a uniform
// execute hook).
func impliedOnly(kind opKind) bool {
	switch kind {
	case opCLC, opSEC, opCLI, opSEI, opCLV, opCLD, opSED,
		opTAX, opTXA, opTAY, opTYA, opTSX, opTXS,
		opINX, opINY, opDEX, opDEY:
		return true
	default:
		return false
	}
}

// buildMicroops returns the micro-op queue for one instruction, following
// spec.md's per-addressing-mode cycle tables. Page-crossing and
// branch-taken extra cycles are not known until an earlier micro-op in
// the queue has executed; those micro-ops append further micro-ops to
// c.queue at runtime rather than being pre-computed here.
func (c *CPU) buildMicroops(info opcodeInfo) []microop {
	switch info.kind {
	case opBRK:
		return c.buildBRK()
	case opJSR:
		return c.buildJSR()
	case opRTS:
		return c.buildRTS()
	case opRTI:
		return c.buildRTI()
	case opPHA, opPHP:
		return c.buildPush()
	case opPLA, opPLP:
		return c.buildPull()
	case opBCC, opBCS, opBEQ, opBMI, opBNE, opBPL, opBVC, opBVS:
		return c.buildBranch()
	case opJMP:
		if info.mode == modeAbsolute {
			return []microop{
				func(c *CPU) { c.addrLo = c.bus.Read(c.PC); c.PC++ },
				func(c *CPU) { c.addrHi = c.bus.Read(c.PC); c.PC = uint16(c.addrHi)<<8 | uint16(c.addrLo) },
			}
		}
	}

	if info.mode == modeImplied && impliedOnly(info.kind) {
		return []microop{
			func(c *CPU) { c.bus.Read(c.PC); c.execute() },
		}
	}
	if info.mode == modeImplied {
		// Unofficial single-byte NOPs (0x1A, 0x3A, ...).
		return []microop{
			func(c *CPU) { c.bus.Read(c.PC) },
		}
	}

	switch info.mode {
	case modeAccumulator:
		return []microop{
			func(c *CPU) { c.bus.Read(c.PC); c.operand = c.A; c.execute(); c.A = c.result },
		}
	case modeImmediate:
		return []microop{
			func(c *CPU) { c.operand = c.bus.Read(c.PC); c.PC++; c.execute() },
		}
	case modeZeroPage:
		return c.buildZeroPage(0)
	case modeZeroPageX:
		return c.buildZeroPage(c.X)
	case modeZeroPageY:
		return c.buildZeroPage(c.Y)
	case modeAbsolute:
		return c.buildAbsolute(0, false)
	case modeAbsoluteX:
		return c.buildAbsolute(c.X, true)
	case modeAbsoluteY:
		return c.buildAbsolute(c.Y, true)
	case modeIndirect:
		return c.buildIndirectJMP()
	case modeIndexedIndirect:
		return c.buildIndexedIndirect()
	case modeIndirectIndexed:
		return c.buildIndirectIndexed()
	}
	return []microop{func(c *CPU) { c.bus.Read(c.PC) }}
}

// buildZeroPage handles ZeroPage and ZeroPage,X/Y. index is 0 for the
// unindexed form.
func (c *CPU) buildZeroPage(index uint8) []microop {
	ops := []microop{
		func(c *CPU) { c.addrLo = c.bus.Read(c.PC); c.PC++ },
	}
	if c.mode != modeZeroPage {
		ops = append(ops, func(c *CPU) {
			c.bus.Read(uint16(c.addrLo))
			c.addrLo += index
		})
	}
	switch c.kind.accessClass() {
	case accessWrite:
		ops = append(ops, func(c *CPU) {
			c.effAddr = uint16(c.addrLo)
			c.execute()
			c.bus.Write(c.effAddr, c.result)
		})
	case accessRMW:
		ops = append(ops,
			func(c *CPU) { c.effAddr = uint16(c.addrLo); c.operand = c.bus.Read(c.effAddr) },
			func(c *CPU) { c.bus.Write(c.effAddr, c.operand) },
			func(c *CPU) { c.execute(); c.bus.Write(c.effAddr, c.result) },
		)
	default:
		ops = append(ops, func(c *CPU) {
			c.effAddr = uint16(c.addrLo)
			c.operand = c.bus.Read(c.effAddr)
			c.execute()
		})
	}
	return ops
}

// buildAbsolute handles Absolute and Absolute,X/Y. indexed selects
// whether a page-crossing / always-dummy-read cycle applies.
func (c *CPU) buildAbsolute(index uint8, indexed bool) []microop {
	ops := []microop{
		func(c *CPU) { c.addrLo = c.bus.Read(c.PC); c.PC++ },
	}
	if !indexed {
		ops = append(ops, func(c *CPU) { c.addrHi = c.bus.Read(c.PC); c.PC++ })
		switch c.kind.accessClass() {
		case accessWrite:
			ops = append(ops, func(c *CPU) {
				c.effAddr = uint16(c.addrHi)<<8 | uint16(c.addrLo)
				c.execute()
				c.bus.Write(c.effAddr, c.result)
			})
		case accessRMW:
			ops = append(ops,
				func(c *CPU) {
					c.effAddr = uint16(c.addrHi)<<8 | uint16(c.addrLo)
					c.operand = c.bus.Read(c.effAddr)
				},
				func(c *CPU) { c.bus.Write(c.effAddr, c.operand) },
				func(c *CPU) { c.execute(); c.bus.Write(c.effAddr, c.result) },
			)
		default:
			ops = append(ops, func(c *CPU) {
				c.effAddr = uint16(c.addrHi)<<8 | uint16(c.addrLo)
				c.operand = c.bus.Read(c.effAddr)
				c.execute()
			})
		}
		return ops
	}

	ops = append(ops, func(c *CPU) {
		c.addrHi = c.bus.Read(c.PC)
		c.PC++
		base := uint16(c.addrHi)<<8 | uint16(c.addrLo)
		summed := base + uint16(index)
		c.pageCrossed = (summed & 0xFF00) != (base & 0xFF00)
		c.wrongAddr = (base & 0xFF00) | (summed & 0x00FF)
		c.effAddr = summed
	})

	switch c.kind.accessClass() {
	case accessWrite:
		ops = append(ops,
			func(c *CPU) { c.bus.Read(c.wrongAddr) },
			func(c *CPU) {
				c.execute()
				// SHX/SHY drop the store entirely when indexing crossed a
				// page boundary; every other absolute,X/Y store still
				// writes normally.
				if c.pageCrossed && (c.kind == opSHX || c.kind == opSHY) {
					return
				}
				c.bus.Write(c.effAddr, c.result)
			},
		)
	case accessRMW:
		ops = append(ops,
			func(c *CPU) { c.bus.Read(c.wrongAddr) },
			func(c *CPU) { c.operand = c.bus.Read(c.effAddr) },
			func(c *CPU) { c.bus.Write(c.effAddr, c.operand) },
			func(c *CPU) { c.execute(); c.bus.Write(c.effAddr, c.result) },
		)
	default:
		ops = append(ops, func(c *CPU) {
			if c.pageCrossed {
				c.queue = append(c.queue, func(c *CPU) {
					c.operand = c.bus.Read(c.effAddr)
					c.execute()
				})
				c.bus.Read(c.wrongAddr)
				return
			}
			c.operand = c.bus.Read(c.effAddr)
			c.execute()
		})
	}
	return ops
}

func (c *CPU) buildIndirectJMP() []microop {
	return []microop{
		func(c *CPU) { c.addrLo = c.bus.Read(c.PC); c.PC++ },
		func(c *CPU) { c.addrHi = c.bus.Read(c.PC); c.PC++ },
		func(c *CPU) { c.ptr = c.bus.Read(uint16(c.addrHi)<<8 | uint16(c.addrLo)) },
		func(c *CPU) {
			// Hardware bug: the high byte fetch does not cross a page;
			// it wraps within the same page as the pointer's low byte.
			hiAddr := uint16(c.addrHi)<<8 | uint16(c.addrLo+1)
			hi := c.bus.Read(hiAddr)
			c.PC = uint16(hi)<<8 | uint16(c.ptr)
		},
	}
}

func (c *CPU) buildIndexedIndirect() []microop {
	ops := []microop{
		func(c *CPU) { c.ptr = c.bus.Read(c.PC); c.PC++ },
		func(c *CPU) { c.bus.Read(uint16(c.ptr)); c.ptr += c.X },
		func(c *CPU) { c.addrLo = c.bus.Read(uint16(c.ptr)) },
		func(c *CPU) { c.addrHi = c.bus.Read(uint16(c.ptr + 1)); c.effAddr = uint16(c.addrHi)<<8 | uint16(c.addrLo) },
	}
	switch c.kind.accessClass() {
	case accessWrite:
		ops = append(ops, func(c *CPU) { c.execute(); c.bus.Write(c.effAddr, c.result) })
	case accessRMW:
		ops = append(ops,
			func(c *CPU) { c.operand = c.bus.Read(c.effAddr) },
			func(c *CPU) { c.bus.Write(c.effAddr, c.operand) },
			func(c *CPU) { c.execute(); c.bus.Write(c.effAddr, c.result) },
		)
	default:
		ops = append(ops, func(c *CPU) { c.operand = c.bus.Read(c.effAddr); c.execute() })
	}
	return ops
}

func (c *CPU) buildIndirectIndexed() []microop {
	ops := []microop{
		func(c *CPU) { c.ptr = c.bus.Read(c.PC); c.PC++ },
		func(c *CPU) { c.addrLo = c.bus.Read(uint16(c.ptr)) },
		func(c *CPU) {
			c.addrHi = c.bus.Read(uint16(c.ptr + 1))
			base := uint16(c.addrHi)<<8 | uint16(c.addrLo)
			summed := base + uint16(c.Y)
			c.pageCrossed = (summed & 0xFF00) != (base & 0xFF00)
			c.wrongAddr = (base & 0xFF00) | (summed & 0x00FF)
			c.effAddr = summed
		},
	}
	switch c.kind.accessClass() {
	case accessWrite:
		ops = append(ops,
			func(c *CPU) { c.bus.Read(c.wrongAddr) },
			func(c *CPU) { c.execute(); c.bus.Write(c.effAddr, c.result) },
		)
	case accessRMW:
		ops = append(ops,
			func(c *CPU) { c.bus.Read(c.wrongAddr) },
			func(c *CPU) { c.operand = c.bus.Read(c.effAddr) },
			func(c *CPU) { c.bus.Write(c.effAddr, c.operand) },
			func(c *CPU) { c.execute(); c.bus.Write(c.effAddr, c.result) },
		)
	default:
		ops = append(ops, func(c *CPU) {
			if c.pageCrossed {
				c.queue = append(c.queue, func(c *CPU) {
					c.operand = c.bus.Read(c.effAddr)
					c.execute()
				})
				c.bus.Read(c.wrongAddr)
				return
			}
			c.operand = c.bus.Read(c.effAddr)
			c.execute()
		})
	}
	return ops
}

// buildBranch builds the 2-cycle baseline; the taken (and taken+crossed)
// cycles are spliced in at runtime once the condition is known, per
// spec.md's documented branch timing.
func (c *CPU) buildBranch() []microop {
	return []microop{
		func(c *CPU) {
			offset := c.bus.Read(c.PC)
			c.PC++
			if !c.branchCondition() {
				return
			}
			c.branchTaken = true
			oldPC := c.PC
			target := oldPC + uint16(int8(offset))
			c.effAddr = target
			c.queue = append(c.queue, func(c *CPU) {
				c.bus.Read(oldPC)
				if (target & 0xFF00) != (oldPC & 0xFF00) {
					c.queue = append(c.queue, func(c *CPU) {
						fixedLo := uint16(oldPC&0xFF00) | (target & 0x00FF)
						c.bus.Read(fixedLo)
						c.PC = target
					})
				} else {
					c.PC = target
				}
			})
		},
	}
}

func (c *CPU) buildPush() []microop {
	return []microop{
		func(c *CPU) { c.bus.Read(c.PC) },
		func(c *CPU) {
			if c.kind == opPHP {
				c.push(c.P | flagU | flagB)
			} else {
				c.push(c.A)
			}
		},
	}
}

func (c *CPU) buildPull() []microop {
	return []microop{
		func(c *CPU) { c.bus.Read(c.PC) },
		func(c *CPU) { c.bus.Read(stackBase + uint16(c.SP)) },
		func(c *CPU) {
			v := c.pull()
			if c.kind == opPLP {
				c.P = (v &^ flagB) | flagU
			} else {
				c.A = v
				c.setZN(c.A)
			}
		},
	}
}

func (c *CPU) buildJSR() []microop {
	return []microop{
		func(c *CPU) { c.addrLo = c.bus.Read(c.PC); c.PC++ },
		func(c *CPU) { c.bus.Read(stackBase + uint16(c.SP)) },
		func(c *CPU) { c.push(uint8(c.PC >> 8)) },
		func(c *CPU) { c.push(uint8(c.PC & 0xFF)) },
		func(c *CPU) {
			c.addrHi = c.bus.Read(c.PC)
			c.PC = uint16(c.addrHi)<<8 | uint16(c.addrLo)
		},
	}
}

func (c *CPU) buildRTS() []microop {
	return []microop{
		func(c *CPU) { c.bus.Read(c.PC) },
		func(c *CPU) { c.bus.Read(stackBase + uint16(c.SP)) },
		func(c *CPU) { c.addrLo = c.pull() },
		func(c *CPU) { c.addrHi = c.pull() },
		func(c *CPU) {
			c.PC = uint16(c.addrHi)<<8 | uint16(c.addrLo)
			c.bus.Read(c.PC)
			c.PC++
		},
	}
}

func (c *CPU) buildRTI() []microop {
	return []microop{
		func(c *CPU) { c.bus.Read(c.PC) },
		func(c *CPU) { c.bus.Read(stackBase + uint16(c.SP)) },
		func(c *CPU) { c.P = (c.pull() &^ flagB) | flagU },
		func(c *CPU) { c.addrLo = c.pull() },
		func(c *CPU) {
			c.addrHi = c.pull()
			c.PC = uint16(c.addrHi)<<8 | uint16(c.addrLo)
		},
	}
}

func (c *CPU) buildBRK() []microop {
	if c.BreakOnBRK {
		return []microop{
			func(c *CPU) { c.bus.Read(c.PC); c.PC++; c.exited = true },
		}
	}
	return []microop{
		func(c *CPU) { c.bus.Read(c.PC); c.PC++ },
		func(c *CPU) { c.push(uint8(c.PC >> 8)) },
		func(c *CPU) { c.push(uint8(c.PC & 0xFF)) },
		func(c *CPU) { c.push(c.P | flagU | flagB); c.setFlag(flagI, true) },
		func(c *CPU) { c.addrLo = c.bus.Read(irqVector) },
		func(c *CPU) { c.addrHi = c.bus.Read(irqVector + 1); c.PC = uint16(c.addrHi)<<8 | uint16(c.addrLo) },
	}
}
