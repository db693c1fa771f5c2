// Package ppu implements the picture generation component: the
// four-state per-line timing machine (OAM-search, pixel-transfer,
// H-blank, V-blank), the LCDC/STAT/scroll/palette register file, and
// the BG/window/sprite compositor that fills a 160x144 shade buffer
// one scanline at a time. The bus owns the VRAM and OAM backing
// storage; this package only sees them through the narrow VRAM/OAM
// reader interfaces below, so it composites without caring whether the
// CPU is allowed to see the same bytes at the same moment.
package ppu

const (
	ScreenWidth  = 160
	ScreenHeight = 144

	modeHBlank = 0
	modeVBlank = 1
	modeOAM    = 2
	modeXfer   = 3
)

// InterruptRequester ORs a bit into the bus's IF register (0:VBlank,
// 1:LCD-STAT, ...).
type InterruptRequester func(bit int)

// VRAM is the read side of the bus's video RAM region.
type VRAM interface {
	Read(addr uint16) byte
}

// OAM is the read side of the bus's object attribute table.
type OAM interface {
	Read(addr uint16) byte
}

type sprite struct {
	oamIdx int
	y, x   byte
	tile   byte
	attrs  byte
}

// PPU holds the line-timing state machine, the LCD register file, and
// the assembled framebuffer for the current frame.
type PPU struct {
	lcdc, stat        byte
	scy, scx, ly, lyc byte
	bgp, obp0, obp1   byte
	wy, wx            byte

	dot int

	sprites []sprite

	fb [ScreenWidth * ScreenHeight]byte

	// FrameReady is set for exactly one Step call per frame, the tick
	// on which LY transitions from 143 to 144 (V-blank entry). Step
	// clears it at the start of every call, so the host polls it after
	// each step.
	FrameReady bool

	requestIF InterruptRequester
}

// New returns a PPU with LCDC off and STAT/LY/LYC zeroed, the reset
// state before the boot overlay (or cartridge, if booting directly at
// 0x0100) turns the display on. requestIF ORs a bit into the bus's IF
// register; it must not be nil.
func New(requestIF InterruptRequester) *PPU {
	return &PPU{requestIF: requestIF}
}

// Mode returns the current 2-bit STAT mode (0-3).
func (p *PPU) Mode() byte { return p.stat & 0x03 }

func (p *PPU) setMode(m byte) {
	p.stat = (p.stat &^ 0x03) | m
}

// VRAMAccessible reports whether the CPU may currently read/write
// VRAM: blocked only during pixel-transfer (mode 3).
func (p *PPU) VRAMAccessible() bool {
	return p.lcdc&0x80 == 0 || p.Mode() != modeXfer
}

// OAMAccessible reports whether the CPU may currently read/write OAM:
// blocked during OAM-search and pixel-transfer (modes 2 and 3).
func (p *PPU) OAMAccessible() bool {
	if p.lcdc&0x80 == 0 {
		return true
	}
	m := p.Mode()
	return m != modeOAM && m != modeXfer
}

// LY returns the current scanline, 0-153.
func (p *PPU) LY() byte { return p.ly }

// Framebuffer returns the 160x144 shade buffer for the frame most
// recently completed (shades are 0-3, 0 lightest).
func (p *PPU) Framebuffer() *[ScreenWidth * ScreenHeight]byte { return &p.fb }

// ReadReg reads one of the LCD I/O registers at 0xFF40-0xFF4B.
func (p *PPU) ReadReg(addr uint16) byte {
	switch addr {
	case 0xFF40:
		return p.lcdc
	case 0xFF41:
		return p.stat | 0x80
	case 0xFF42:
		return p.scy
	case 0xFF43:
		return p.scx
	case 0xFF44:
		return p.ly
	case 0xFF45:
		return p.lyc
	case 0xFF47:
		return p.bgp
	case 0xFF48:
		return p.obp0
	case 0xFF49:
		return p.obp1
	case 0xFF4A:
		return p.wy
	case 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// WriteReg writes one of the LCD I/O registers. LY (0xFF44) is
// documented as read-only: a CPU write to it is a plain no-op, never a
// line reset. Turning LCDC off (bit 7 falling) resets LY and the STAT
// mode to 0, matching real hardware blanking the screen immediately.
// Turning it on (bit 7 rising) starts the current line in OAM-search
// (mode 2) at dot 0.
func (p *PPU) WriteReg(addr uint16, v byte) {
	switch addr {
	case 0xFF40:
		wasOn := p.lcdc&0x80 != 0
		p.lcdc = v
		if wasOn && v&0x80 == 0 {
			p.ly = 0
			p.dot = 0
			p.setMode(modeHBlank)
		} else if !wasOn && v&0x80 != 0 {
			p.dot = 0
			p.setMode(modeOAM)
		}
	case 0xFF41:
		p.stat = (p.stat & 0x07) | (v &^ 0x07)
	case 0xFF42:
		p.scy = v
	case 0xFF43:
		p.scx = v
	case 0xFF44:
		// read-only; writes are ignored
	case 0xFF45:
		p.lyc = v
	case 0xFF47:
		p.bgp = v
	case 0xFF48:
		p.obp0 = v
	case 0xFF49:
		p.obp1 = v
	case 0xFF4A:
		p.wy = v
	case 0xFF4B:
		p.wx = v
	}
}

// Step advances the line-timing state machine by one machine cycle
// and returns 1, the cost the top-level accumulator subtracts. Every
// call first refreshes the LYC coincidence bit and, on every call where
// LY==LYC and STAT bit 6 is set, requests the LCD-STAT interrupt (bit 1) —
// this runs unconditionally, even while the LCD is off.
func (p *PPU) Step(vram VRAM, oam OAM) int {
	p.FrameReady = false
	p.updateLYC()

	if p.lcdc&0x80 == 0 {
		return 1
	}

	p.dot++
	switch p.Mode() {
	case modeOAM:
		if p.dot >= 20 {
			p.dot = 0
			p.scanSprites(oam)
			p.setMode(modeXfer)
		}
	case modeXfer:
		if p.dot >= 43 {
			p.dot = 0
			p.renderLine(vram, oam)
			p.setMode(modeHBlank)
			if p.stat&0x08 != 0 {
				p.requestIF(1)
			}
		}
	case modeHBlank:
		if p.dot >= 51 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				p.setMode(modeVBlank)
				p.requestIF(0)
				if p.stat&0x10 != 0 {
					p.requestIF(1)
				}
				p.FrameReady = true
			} else {
				p.setMode(modeOAM)
				if p.stat&0x20 != 0 {
					p.requestIF(1)
				}
			}
		}
	case modeVBlank:
		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly >= 154 {
				p.ly = 0
				p.setMode(modeOAM)
				if p.stat&0x20 != 0 {
					p.requestIF(1)
				}
			}
		}
	}
	return 1
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 0x04
		if p.stat&0x40 != 0 {
			p.requestIF(1)
		}
	} else {
		p.stat &^= 0x04
	}
}

func (p *PPU) spriteHeight() int {
	if p.lcdc&0x04 != 0 {
		return 16
	}
	return 8
}

// scanSprites builds the up-to-10-entry sprite list for the line about
// to be rendered, in ascending OAM order, testing LY+16 against each
// sprite's Y range per the OAM entry's raw (unbiased) Y byte.
func (p *PPU) scanSprites(oam OAM) {
	height := p.spriteHeight()
	p.sprites = p.sprites[:0]
	for i := 0; i < 40 && len(p.sprites) < 10; i++ {
		base := uint16(i * 4)
		y := oam.Read(0xFE00 + base)
		lyPlus16 := int(p.ly) + 16
		if lyPlus16 >= int(y) && lyPlus16 < int(y)+height {
			p.sprites = append(p.sprites, sprite{
				oamIdx: i,
				y:      y,
				x:      oam.Read(0xFE00 + base + 1),
				tile:   oam.Read(0xFE00 + base + 2),
				attrs:  oam.Read(0xFE00 + base + 3),
			})
		}
	}
}

func (p *PPU) bgTileMapBase() uint16 {
	if p.lcdc&0x08 != 0 {
		return 0x9C00
	}
	return 0x9800
}

func (p *PPU) winTileMapBase() uint16 {
	if p.lcdc&0x40 != 0 {
		return 0x9C00
	}
	return 0x9800
}

// tileAddr resolves a background/window tile index to its row address
// in VRAM, honoring LCDC bit 4's unsigned-at-0x8000 vs
// signed-at-0x9000 addressing mode.
func (p *PPU) tileAddr(idx byte, row int) uint16 {
	if p.lcdc&0x10 != 0 {
		return 0x8000 + uint16(idx)*16 + uint16(row)*2
	}
	return uint16(int32(0x9000) + int32(int8(idx))*16 + int32(row)*2)
}

func (p *PPU) tileRow(vram VRAM, idx byte, row int) (lo, hi byte) {
	addr := p.tileAddr(idx, row)
	return vram.Read(addr), vram.Read(addr + 1)
}

// spriteTileRow reads a sprite tile row; sprites always use the
// unsigned 0x8000 addressing mode regardless of LCDC bit 4.
func spriteTileRow(vram VRAM, idx byte, row int) (lo, hi byte) {
	addr := 0x8000 + uint16(idx)*16 + uint16(row)*2
	return vram.Read(addr), vram.Read(addr + 1)
}

func shade(pal byte, colorIdx byte) byte { return (pal >> (colorIdx * 2)) & 0x03 }

// bgColorIdx returns the raw 2-bit background color index (not yet
// palette-mapped) at screen column x, sampling the map at
// (map_base + ((LY+SCY)/8 & 31)*32 + ((x+SCX)/8 & 31)) per the spec's
// tile-map addressing rule.
func (p *PPU) bgColorIdx(vram VRAM, x int) byte {
	mapX := (x + int(p.scx)) & 0xFF
	mapY := (int(p.ly) + int(p.scy)) & 0xFF
	tileCol := (mapX / 8) & 31
	tileRow8 := (mapY / 8) & 31
	tileIdx := vram.Read(p.bgTileMapBase() + uint16(tileRow8*32+tileCol))
	lo, hi := p.tileRow(vram, tileIdx, mapY%8)
	bit := uint(7 - mapX%8)
	return ((hi>>bit)&1)<<1 | (lo>>bit)&1
}

// winColorIdx returns the raw window color index at screen column x,
// and whether the window covers this pixel at all: enabled, LY>=WY,
// and x+7>=WX (i.e. x >= WX-7).
func (p *PPU) winColorIdx(vram VRAM, x int) (byte, bool) {
	if p.lcdc&0x20 == 0 {
		return 0, false
	}
	if int(p.ly) < int(p.wy) {
		return 0, false
	}
	wx := int(p.wx) - 7
	if x < wx {
		return 0, false
	}
	winX := x - wx
	winY := int(p.ly) - int(p.wy)
	tileCol := (winX / 8) & 31
	tileRow8 := (winY / 8) & 31
	tileIdx := vram.Read(p.winTileMapBase() + uint16(tileRow8*32+tileCol))
	lo, hi := p.tileRow(vram, tileIdx, winY%8)
	bit := uint(7 - winX%8)
	return ((hi>>bit)&1)<<1 | (lo>>bit)&1, true
}

// renderLine composites background, window and sprites for the
// current LY into the framebuffer.
func (p *PPU) renderLine(vram VRAM, oam OAM) {
	row := int(p.ly) * ScreenWidth
	height := p.spriteHeight()
	spritesOn := p.lcdc&0x02 != 0

	for x := 0; x < ScreenWidth; x++ {
		colorIdx := p.bgColorIdx(vram, x)
		if wIdx, ok := p.winColorIdx(vram, x); ok {
			colorIdx = wIdx
		}
		pixel := shade(p.bgp, colorIdx)

		if spritesOn {
			best, found := p.bestSprite(vram, x, height)
			if found && (!best.behindBG || colorIdx == 0) {
				pixel = best.shade
			}
		}
		p.fb[row+x] = pixel
	}
}

type spriteHit struct {
	x        byte
	oamIdx   int
	shade    byte
	behindBG bool
}

// bestSprite resolves the winning sprite pixel at screen column x:
// lower OAM X wins, ties broken by lower OAM index. Transparent
// (color index 0) sprite pixels never win.
func (p *PPU) bestSprite(vram VRAM, x int, height int) (spriteHit, bool) {
	var best spriteHit
	found := false
	for _, s := range p.sprites {
		sx := int(s.x) - 8
		if x < sx || x >= sx+8 {
			continue
		}
		row := int(p.ly) - (int(s.y) - 16)
		if s.attrs&0x40 != 0 { // Y flip
			row = height - 1 - row
		}
		tile := s.tile
		if height == 16 {
			tile &^= 0x01
			if row >= 8 {
				tile |= 0x01
				row -= 8
			}
		}
		lo, hi := spriteTileRow(vram, tile, row)
		col := x - sx
		if s.attrs&0x20 != 0 { // X flip
			col = 7 - col
		}
		bit := uint(7 - col)
		colorIdx := ((hi>>bit)&1)<<1 | (lo>>bit)&1
		if colorIdx == 0 {
			continue
		}
		if found && (s.x > best.x || (s.x == best.x && s.oamIdx > best.oamIdx)) {
			continue
		}
		pal := p.obp0
		if s.attrs&0x10 != 0 {
			pal = p.obp1
		}
		best = spriteHit{
			x:        s.x,
			oamIdx:   s.oamIdx,
			shade:    shade(pal, colorIdx),
			behindBG: s.attrs&0x80 != 0,
		}
		found = true
	}
	return best, found
}
