// Package bus implements the address decoder that arbitrates the 64 KiB
// map among the cartridge, the plain RAM regions, the PPU's register
// file and pixel pipeline, the APU's register stub, the joypad, and the
// interrupt/timer/DMA I/O registers. It is the sole coupling medium
// between the CPU and PPU components: neither sees the other directly.
package bus

import (
	"github.com/hollowtile/gbcore/internal/apu"
	"github.com/hollowtile/gbcore/internal/cart"
	"github.com/hollowtile/gbcore/internal/mem"
	"github.com/hollowtile/gbcore/internal/ppu"
)

// Joypad button bitmask constants for SetJoypadState.
const (
	JoypRight byte = 1 << iota
	JoypLeft
	JoypUp
	JoypDown
	JoypA
	JoypB
	JoypSelect
	JoypStart
)

// Bus owns every memory-mapped region and the I/O register file, and
// implements cpu.Bus.
type Bus struct {
	cart cart.Cartridge

	vram mem.VRAM
	wram mem.WRAM
	oam  mem.OAM
	hram mem.HRAM

	apu *apu.APU
	ppu *ppu.PPU

	ie    byte
	ifReg byte

	joypSelect byte
	buttons    byte

	div  uint16
	tima byte
	tma  byte
	tac  byte

	sb byte
	sc byte

	dmaPending bool
	dmaSrcHi   byte

	bootROM     []byte
	bootEnabled bool
}

// New builds a bus over the given cartridge ROM image, picking a mapper
// per the header and starting with the boot latch disabled (CPU starts
// at 0x0100). Use SetBootROM to enable the overlay before running. An
// unrecognized mapper code is a fatal load-time error per spec §7, so
// it is returned rather than silently downgraded to ROM-only.
func New(rom []byte) (*Bus, error) {
	c, err := cart.New(rom)
	if err != nil {
		return nil, err
	}
	b := &Bus{cart: c, apu: apu.New()}
	b.ppu = ppu.New(b.requestIF)
	b.tac = 0xF8
	return b, nil
}

func (b *Bus) requestIF(bit int) {
	b.ifReg |= 1 << uint(bit)
}

// PPU exposes the owned PPU for the host/Machine to read the
// framebuffer and FrameReady edge.
func (b *Bus) PPU() *ppu.PPU { return b.ppu }

// StepPPU advances the PPU's line-timing machine by one tick and
// returns its cost (always 1), per spec §4.10's top-level tick.
func (b *Bus) StepPPU() int { return b.ppu.Step(&b.vram, &b.oam) }

// SetBootROM installs a 256-byte boot overlay and enables the boot
// latch; absent a call to this, the bus behaves as if boot already
// completed.
func (b *Bus) SetBootROM(data []byte) {
	b.bootROM = data
	b.bootEnabled = len(data) > 0
}

// SetJoypadState replaces the full pressed-button bitmask (OR of the
// Joyp* constants).
func (b *Bus) SetJoypadState(mask byte) { b.buttons = mask }

// DMAPending, DMASourceHigh, ClearDMA and TickDIV implement cpu.Bus.
func (b *Bus) DMAPending() bool    { return b.dmaPending }
func (b *Bus) DMASourceHigh() byte { return b.dmaSrcHi }
func (b *Bus) ClearDMA()           { b.dmaPending = false }
func (b *Bus) TickDIV()            { b.div++ }

// DMACopyOAM performs the 160-byte OAM DMA copy directly against the
// backing array, bypassing the CPU-visibility gate in Write (which
// blocks OAM writes whenever the PPU is in mode 2/3). That gate models
// what the *CPU* may poke at directly; the DMA unit is not the CPU and
// copies unconditionally per spec §4.8 step 6, reading source bytes
// through the normal Read path (source is ROM/RAM, never OAM itself).
func (b *Bus) DMACopyOAM(srcHi byte) {
	src := uint16(srcHi) << 8
	dst := b.oam.Bytes()
	for i := uint16(0); i < 0xA0; i++ {
		dst[i] = b.Read(src + i)
	}
}

// Read implements the spec §4.7 address decoder.
func (b *Bus) Read(addr uint16) byte {
	if addr < 0x0100 && b.bootEnabled {
		return b.bootROM[addr]
	}
	switch {
	case addr < 0x8000:
		return b.cart.Read(addr)
	case addr < 0xA000:
		if !b.ppu.VRAMAccessible() {
			return 0xFF
		}
		return b.vram.Read(addr)
	case addr < 0xC000:
		return b.cart.Read(addr)
	case addr < 0xE000:
		return b.wram.Read(addr)
	case addr < 0xFE00:
		return b.wram.Read(addr - 0x2000)
	case addr < 0xFEA0:
		if b.dmaPending || !b.ppu.OAMAccessible() {
			return 0xFF
		}
		return b.oam.Read(addr)
	case addr < 0xFF00:
		return 0xFF
	case addr < 0xFF80:
		return b.readIO(addr)
	case addr < 0xFFFF:
		return b.hram.Read(addr)
	default:
		return b.ie
	}
}

// Write implements the spec §4.7 address decoder's write routing.
func (b *Bus) Write(addr uint16, v byte) {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, v)
	case addr < 0xA000:
		if b.ppu.VRAMAccessible() {
			b.vram.Write(addr, v)
		}
	case addr < 0xC000:
		b.cart.Write(addr, v)
	case addr < 0xE000:
		b.wram.Write(addr, v)
	case addr < 0xFE00:
		b.wram.Write(addr-0x2000, v)
	case addr < 0xFEA0:
		if !b.dmaPending && b.ppu.OAMAccessible() {
			b.oam.Write(addr, v)
		}
	case addr < 0xFF00:
		// unusable; writes dropped
	case addr < 0xFF80:
		b.writeIO(addr, v)
	case addr < 0xFFFF:
		b.hram.Write(addr, v)
	default:
		b.ie = v
	}
}

func (b *Bus) joypRead() byte {
	res := byte(0xFF) // bits 6-7 unused read as 1; a selected row's bit (5 or 4) is cleared below
	if b.joypSelect&0x20 == 0 {
		res &^= 0x20
		if b.buttons&JoypA != 0 {
			res &^= 0x01
		}
		if b.buttons&JoypB != 0 {
			res &^= 0x02
		}
		if b.buttons&JoypSelect != 0 {
			res &^= 0x04
		}
		if b.buttons&JoypStart != 0 {
			res &^= 0x08
		}
	}
	if b.joypSelect&0x10 == 0 {
		res &^= 0x10
		if b.buttons&JoypRight != 0 {
			res &^= 0x01
		}
		if b.buttons&JoypLeft != 0 {
			res &^= 0x02
		}
		if b.buttons&JoypUp != 0 {
			res &^= 0x04
		}
		if b.buttons&JoypDown != 0 {
			res &^= 0x08
		}
	}
	if b.joypSelect&0x30 == 0x30 {
		res |= 0x0F
	}
	return res
}

func (b *Bus) readIO(addr uint16) byte {
	switch {
	case addr == 0xFF00:
		return b.joypRead()
	case addr == 0xFF01:
		return b.sb
	case addr == 0xFF02:
		return (b.sc & 0x81) | 0x7E
	case addr == 0xFF04:
		return byte(b.div >> 8)
	case addr == 0xFF05:
		return b.tima
	case addr == 0xFF06:
		return b.tma
	case addr == 0xFF07:
		return b.tac | 0xF8
	case addr == 0xFF0F:
		return b.ifReg | 0xE0
	case addr == 0xFF46:
		return b.dmaSrcHi
	case addr == 0xFF50:
		if b.bootEnabled {
			return 0
		}
		return 1
	case addr >= 0xFF40 && addr <= 0xFF4B:
		return b.ppu.ReadReg(addr)
	case addr >= 0xFF10 && addr <= 0xFF3F:
		return b.apu.Read(addr)
	default:
		return 0xFF
	}
}

func (b *Bus) writeIO(addr uint16, v byte) {
	switch {
	case addr == 0xFF00:
		b.joypSelect = v & 0x30
	case addr == 0xFF01:
		b.sb = v
	case addr == 0xFF02:
		b.sc = v
	case addr == 0xFF04:
		b.div = 0
	case addr == 0xFF05:
		b.tima = v
	case addr == 0xFF06:
		b.tma = v
	case addr == 0xFF07:
		b.tac = v & 0x07
	case addr == 0xFF0F:
		b.ifReg = v & 0x1F
	case addr == 0xFF46:
		b.dmaSrcHi = v
		b.dmaPending = true
	case addr == 0xFF50:
		if v == 1 {
			b.bootEnabled = false
		}
	case addr >= 0xFF40 && addr <= 0xFF4B:
		b.ppu.WriteReg(addr, v)
	case addr >= 0xFF10 && addr <= 0xFF3F:
		b.apu.Write(addr, v)
	}
}
