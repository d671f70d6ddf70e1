// Package ppu implements the NES 2C02 picture processing unit: register
// ports, the loopy v/t/x/w scroll state machine, the per-dot background
// shift-register pipeline, sprite evaluation, and nametable/palette
// mirroring. The PPU owns its own VRAM and OAM; it is driven one dot at a
// time by the bus, three dots per CPU cycle.
package ppu

import "gones/internal/logging"

const (
	ctrlNMI        uint8 = 1 << 7
	ctrlSpriteSize uint8 = 1 << 5
	ctrlBGTable    uint8 = 1 << 4
	ctrlSpriteTbl  uint8 = 1 << 3
	ctrlIncrement  uint8 = 1 << 2

	maskGreyscale   uint8 = 1 << 0
	maskBGLeft      uint8 = 1 << 1
	maskSpriteLeft  uint8 = 1 << 2
	maskBGEnable    uint8 = 1 << 3
	maskSpriteEnbl  uint8 = 1 << 4

	statusOverflow uint8 = 1 << 5
	statusSprite0  uint8 = 1 << 6
	statusVBlank   uint8 = 1 << 7
)

// Cartridge is the PPU's view of the cartridge: pattern-table (CHR) access
// only. PRG access belongs to the bus.
type Cartridge interface {
	ReadCHR(addr uint16) uint8
	WriteCHR(addr uint16, v uint8)
}

// PPU holds all picture-processing state: registers, loopy scroll
// registers, VRAM/OAM, and the current frame buffer.
type PPU struct {
	log *logging.Logger
	cart Cartridge

	ctrl   uint8
	mask   uint8
	status uint8

	pendingMask      uint8
	pendingMaskDelay int

	openBus uint8

	oamAddr uint8
	oam     [256]uint8

	secondaryOAM      [32]uint8
	spriteCount       int
	spritePatternLo   [8]uint8
	spritePatternHi   [8]uint8
	spriteAttr        [8]uint8
	spriteX           [8]uint8
	spriteIsZero      [8]bool
	sprite0OnScanline bool

	v, t uint16
	x    uint8
	w    bool

	readBuffer uint8

	scanline int
	dot      int
	oddFrame bool

	ntLatch, atLatch, patLoLatch, patHiLatch uint8
	bgShiftLo, bgShiftHi                     uint16
	attrShiftLo, attrShiftHi                 uint16

	vram    [0x800]uint8
	palette [32]uint8
	mirror  MirrorMode

	frameBuffer [256 * 240]uint32
	frameReady  bool

	vblankSetScanline, vblankSetDot int
	suppressNMI                     bool

	nmiCallback       func()
	nmiCancelCallback func()
}

// New creates a PPU with no cartridge attached; call AttachCartridge once
// the ROM has been loaded.
func New(mirror MirrorMode, log *logging.Logger) *PPU {
	return &PPU{mirror: mirror, log: logging.OrNop(log)}
}

// AttachCartridge wires pattern-table access and mirroring for the loaded
// cartridge.
func (p *PPU) AttachCartridge(cart Cartridge, mirror MirrorMode) {
	p.cart = cart
	p.mirror = mirror
}

// SetNMICallback installs the function invoked when CTRL.NMI and
// STATUS.vblank are both set at the moment vblank begins (or become both
// set afterward).
func (p *PPU) SetNMICallback(fn func()) { p.nmiCallback = fn }

// SetNMICancelCallback installs the function invoked when a CTRL write
// disables NMI generation within 0-2 dots of vblank being set, retracting
// an NMI that fireNMI already latched on the CPU side.
func (p *PPU) SetNMICancelCallback(fn func()) { p.nmiCancelCallback = fn }

func (p *PPU) Reset() {
	p.ctrl, p.mask, p.status = 0, 0, 0
	p.v, p.t, p.x = 0, 0, 0
	p.w = false
	p.scanline, p.dot = 0, 0
	p.oddFrame = false
	for i := range p.frameBuffer {
		p.frameBuffer[i] = 0
	}
}

// ConsumeFrameReady reports and clears the end-of-visible-frame edge the
// bus polls once per tick batch.
func (p *PPU) ConsumeFrameReady() bool {
	r := p.frameReady
	p.frameReady = false
	return r
}

// FrameBuffer returns the current 256x240 RGB frame, one uint32 per pixel
// (0x00RRGGBB).
func (p *PPU) FrameBuffer() *[256 * 240]uint32 { return &p.frameBuffer }

// ReadRegister services a CPU read of $2000-$2007 (already reduced mod 8
// by the bus). Reads of write-only ports return the open-bus latch.
func (p *PPU) ReadRegister(reg uint8) uint8 {
	switch reg {
	case 2: // STATUS
		result := (p.status & 0xE0) | (p.openBus & 0x1F)
		if p.scanline == 241 {
			switch p.dot {
			case 0:
				result &^= statusVBlank
				p.suppressNMI = true
			case 1:
				p.suppressNMI = true
			}
		}
		p.status &^= statusVBlank
		p.w = false
		p.openBus = result
		return result
	case 4: // OAMDATA
		v := p.oam[p.oamAddr]
		p.openBus = v
		return v
	case 7: // PPUDATA
		addr := p.v & 0x3FFF
		var result uint8
		if addr >= 0x3F00 {
			result = p.readPalette(addr)
			p.readBuffer = p.readVRAMOrCHR(addr - 0x1000)
		} else {
			result = p.readBuffer
			p.readBuffer = p.readVRAMOrCHR(addr)
		}
		p.incrementVRAMAddr()
		p.openBus = result
		return result
	default:
		p.log.Debugf("read of write-only PPU register $%04X returns open bus", 0x2000+uint16(reg))
		return p.openBus
	}
}

// WriteRegister services a CPU write of $2000-$2007. Every write updates
// the open-bus latch regardless of which port it targets.
func (p *PPU) WriteRegister(reg uint8, val uint8) {
	p.openBus = val
	switch reg {
	case 0: // CTRL
		wasNMI := p.ctrl&ctrlNMI != 0
		p.ctrl = val
		p.t = (p.t &^ (0x3 << 10)) | (uint16(val&0x3) << 10)
		nowNMI := p.ctrl&ctrlNMI != 0
		switch {
		case !wasNMI && nowNMI && p.status&statusVBlank != 0 && !p.suppressNMI:
			p.fireNMI()
		case wasNMI && !nowNMI && p.status&statusVBlank != 0 && p.withinNMICancelWindow():
			p.cancelNMI()
		}
	case 1: // MASK, takes effect after a 2-dot delay
		p.pendingMask = val
		p.pendingMaskDelay = 2
	case 3: // OAMADDR
		p.oamAddr = val
	case 4: // OAMDATA
		p.oam[p.oamAddr] = val
		p.oamAddr++
	case 5: // SCROLL
		if !p.w {
			p.x = val & 0x07
			p.t = (p.t &^ 0x1F) | uint16(val>>3)
		} else {
			p.t = (p.t &^ (0x7 << 12)) | (uint16(val&0x07) << 12)
			p.t = (p.t &^ (0x1F << 5)) | (uint16(val>>3) << 5)
		}
		p.w = !p.w
	case 6: // ADDR
		if !p.w {
			p.t = (p.t &^ 0x7F00) | (uint16(val&0x3F) << 8)
		} else {
			p.t = (p.t &^ 0x00FF) | uint16(val)
			p.v = p.t
		}
		p.w = !p.w
	case 7: // DATA
		addr := p.v & 0x3FFF
		if addr >= 0x3F00 {
			p.writePalette(addr, val)
		} else {
			p.writeVRAMOrCHR(addr, val)
		}
		p.incrementVRAMAddr()
	}
}

// WriteOAM is the destination of OAM DMA; the bus calls this 256 times
// starting at the current OAM address.
func (p *PPU) WriteOAM(offset uint8, val uint8) {
	p.oam[p.oamAddr+offset] = val
}

func (p *PPU) incrementVRAMAddr() {
	if p.ctrl&ctrlIncrement != 0 {
		p.v += 32
	} else {
		p.v++
	}
}

func (p *PPU) renderingEnabled() bool {
	return p.mask&(maskBGEnable|maskSpriteEnbl) != 0
}

func (p *PPU) fireNMI() {
	if p.nmiCallback != nil {
		p.nmiCallback()
	}
}

// withinNMICancelWindow reports whether the current dot is 0-2 dots past
// the vblank-set edge this frame, the documented race window in which a
// CTRL write disabling NMI retracts the one vblank-set already fired.
func (p *PPU) withinNMICancelWindow() bool {
	return p.scanline == p.vblankSetScanline && p.dot <= p.vblankSetDot+2
}

func (p *PPU) cancelNMI() {
	if p.nmiCancelCallback != nil {
		p.nmiCancelCallback()
	}
}

// Step advances the PPU by exactly one dot, per spec.md's 262x341
// scanline/dot schedule.
func (p *PPU) Step() {
	if p.pendingMaskDelay > 0 {
		p.pendingMaskDelay--
		if p.pendingMaskDelay == 0 {
			p.mask = p.pendingMask
		}
	}

	switch {
	case p.scanline >= 0 && p.scanline <= 239:
		p.visibleScanline()
	case p.scanline == 240:
		if p.dot == 340 {
			p.frameReady = true
		}
	case p.scanline >= 241 && p.scanline <= 260:
		if p.scanline == 241 && p.dot == 0 {
			p.status |= statusVBlank
			p.vblankSetScanline, p.vblankSetDot = p.scanline, p.dot
			p.suppressNMI = false
			if p.ctrl&ctrlNMI != 0 {
				p.fireNMI()
			}
		}
	case p.scanline == 261:
		p.preRenderScanline()
	}

	p.dot++
	if p.dot > 340 {
		p.dot = 0
		p.scanline++
		if p.scanline > 261 {
			p.scanline = 0
			p.oddFrame = !p.oddFrame
			if p.oddFrame && p.renderingEnabled() && p.scanline == 0 && p.dot == 0 {
				p.dot = 1
			}
		}
	}
}

func (p *PPU) visibleScanline() {
	if p.dot >= 1 && p.dot <= 256 {
		if p.renderingEnabled() {
			p.fetchCycle()
			p.evaluateAndOutputPixel()
			p.shiftBackgroundRegisters()
		} else {
			p.frameBuffer[p.scanline*256+(p.dot-1)] = p.backdropColor()
		}
		if p.dot == 256 && p.renderingEnabled() {
			p.incrementY()
		}
	} else if p.dot == 257 {
		if p.renderingEnabled() {
			p.copyX()
		}
		p.evaluateSprites(p.scanline + 1)
	} else if p.dot >= 321 && p.dot <= 336 && p.renderingEnabled() {
		p.fetchCycle()
	}
}

func (p *PPU) preRenderScanline() {
	if p.dot == 0 {
		p.status &^= (statusVBlank | statusSprite0 | statusOverflow)
	}
	if p.dot >= 280 && p.dot <= 304 && p.renderingEnabled() {
		p.copyY()
	}
	if p.dot >= 1 && p.dot <= 256 && p.renderingEnabled() {
		p.fetchCycle()
		p.shiftBackgroundRegisters()
		if p.dot == 256 {
			p.incrementY()
		}
	}
	if p.dot == 257 && p.renderingEnabled() {
		p.copyX()
	}
	if p.dot >= 321 && p.dot <= 336 && p.renderingEnabled() {
		p.fetchCycle()
	}
}
