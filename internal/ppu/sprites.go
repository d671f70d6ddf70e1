package ppu

// evaluateSprites scans primary OAM for the up-to-8 sprites visible on
// scanline, per spec.md's "entries evaluated on the previous scanline,
// max 8" rule: called at dot 257 of scanline-1 to populate the sprite
// data used while rendering scanline.
func (p *PPU) evaluateSprites(scanline int) {
	height := 8
	if p.ctrl&ctrlSpriteSize != 0 {
		height = 16
	}

	p.spriteCount = 0
	p.sprite0OnScanline = false

	for i := 0; i < 64 && p.spriteCount < 8; i++ {
		y := int(p.oam[i*4])
		if scanline < y || scanline >= y+height || y >= 240 {
			continue
		}
		idx := p.spriteCount
		tileIndex := p.oam[i*4+1]
		attr := p.oam[i*4+2]
		x := p.oam[i*4+3]

		row := scanline - y
		if attr&0x80 != 0 { // vertical flip
			row = height - 1 - row
		}

		var patAddr uint16
		if height == 16 {
			table := uint16(tileIndex&0x01) * 0x1000
			tile := uint16(tileIndex &^ 0x01)
			if row >= 8 {
				tile++
				row -= 8
			}
			patAddr = table + tile*16 + uint16(row)
		} else {
			table := uint16(0)
			if p.ctrl&ctrlSpriteTbl != 0 {
				table = 0x1000
			}
			patAddr = table + uint16(tileIndex)*16 + uint16(row)
		}

		lo := p.readCHR(patAddr)
		hi := p.readCHR(patAddr + 8)
		if attr&0x40 != 0 { // horizontal flip
			lo = reverseBits(lo)
			hi = reverseBits(hi)
		}

		p.spritePatternLo[idx] = lo
		p.spritePatternHi[idx] = hi
		p.spriteAttr[idx] = attr
		p.spriteX[idx] = x
		p.spriteIsZero[idx] = i == 0
		if i == 0 {
			p.sprite0OnScanline = true
		}
		p.spriteCount++
	}

	if p.countSpritesOnScanline(scanline, height) > 8 {
		p.status |= statusOverflow
	}
}

func (p *PPU) countSpritesOnScanline(scanline, height int) int {
	n := 0
	for i := 0; i < 64; i++ {
		y := int(p.oam[i*4])
		if scanline >= y && scanline < y+height {
			n++
		}
	}
	return n
}

func reverseBits(b uint8) uint8 {
	var r uint8
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

// evaluateAndOutputPixel composites the background and sprite pixel for
// the current dot and writes it to the frame buffer, setting sprite-zero
// hit per spec.md's exclusion rules.
func (p *PPU) evaluateAndOutputPixel() {
	x := p.dot - 1
	y := p.scanline

	bgPixel, bgPalette := p.backgroundPixelAt()
	if p.mask&maskBGEnable == 0 || (x < 8 && p.mask&maskBGLeft == 0) {
		bgPixel = 0
	}

	spPixel, spPalette, spPriority, spIsZero := p.spritePixelAt(x)
	if p.mask&maskSpriteEnbl == 0 || (x < 8 && p.mask&maskSpriteLeft == 0) {
		spPixel = 0
	}

	if bgPixel != 0 && spPixel != 0 && spIsZero && x != 255 &&
		p.mask&maskBGEnable != 0 && p.mask&maskSpriteEnbl != 0 {
		p.status |= statusSprite0
	}

	var colorIndex uint8
	switch {
	case spPixel != 0 && (bgPixel == 0 || !spPriority):
		colorIndex = p.readPalette(0x3F10 + uint16(spPalette)*4 + uint16(spPixel))
	case bgPixel != 0:
		colorIndex = p.readPalette(0x3F00 + uint16(bgPalette)*4 + uint16(bgPixel))
	default:
		colorIndex = p.readPalette(0x3F00)
	}
	p.frameBuffer[y*256+x] = nesPalette[colorIndex&0x3F]
}

func (p *PPU) backgroundPixelAt() (pixel, palette uint8) {
	bit := uint16(15 - p.x)
	lo := (p.bgShiftLo >> bit) & 1
	hi := (p.bgShiftHi >> bit) & 1
	pixel = uint8(lo) | uint8(hi)<<1

	aLo := (p.attrShiftLo >> bit) & 1
	aHi := (p.attrShiftHi >> bit) & 1
	palette = uint8(aLo) | uint8(aHi)<<1
	return
}

// spritePixelAt returns the first (highest-priority) opaque sprite pixel
// covering screen column x, along with whether it came from sprite 0 and
// its background-priority bit (true = behind background).
func (p *PPU) spritePixelAt(x int) (pixel, palette uint8, behindBG bool, isZero bool) {
	for i := 0; i < p.spriteCount; i++ {
		offset := x - int(p.spriteX[i])
		if offset < 0 || offset > 7 {
			continue
		}
		bit := uint(7 - offset)
		lo := (p.spritePatternLo[i] >> bit) & 1
		hi := (p.spritePatternHi[i] >> bit) & 1
		v := lo | hi<<1
		if v == 0 {
			continue
		}
		attr := p.spriteAttr[i]
		return v, attr & 0x03, attr&0x20 != 0, p.spriteIsZero[i]
	}
	return 0, 0, false, false
}
