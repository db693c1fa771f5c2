// Package emu wires the CPU, bus and PPU into the top-level tick loop
// (component J): each call to Tick advances the CPU's cycle-budget
// accumulator by one and the PPU's by one, running whichever of the
// two fires its next step, in that order, per spec §4.10.
package emu

import (
	"github.com/hollowtile/gbcore/internal/bus"
	"github.com/hollowtile/gbcore/internal/cpu"
)

// Buttons mirrors the eight joypad booleans a host polls each frame.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.A {
		m |= bus.JoypA
	}
	if b.B {
		m |= bus.JoypB
	}
	if b.Start {
		m |= bus.JoypStart
	}
	if b.Select {
		m |= bus.JoypSelect
	}
	if b.Up {
		m |= bus.JoypUp
	}
	if b.Down {
		m |= bus.JoypDown
	}
	if b.Left {
		m |= bus.JoypLeft
	}
	if b.Right {
		m |= bus.JoypRight
	}
	return m
}

// Machine owns one running console: a CPU, a bus (which in turn owns
// cartridge, RAM regions, PPU and APU), and the two tick-budget
// accumulators described in spec §4.10.
type Machine struct {
	cfg Config

	cpu *cpu.CPU
	bus *bus.Bus

	cpuBudget int
	ppuBudget int

	romTitle string
	romPath  string

	prevButtons Buttons
}

// New returns a Machine with no cartridge loaded; call LoadCartridge
// before ticking.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// LoadCartridge parses the ROM header, builds the matching mapper, and
// resets the CPU. If boot is non-empty it is installed as the boot
// overlay (CPU starts at address 0); otherwise the CPU starts at 0x0100
// with the documented post-boot register defaults.
func (m *Machine) LoadCartridge(rom []byte, boot []byte) error {
	b, err := bus.New(rom)
	if err != nil {
		return err
	}

	h, herr := headerFor(rom)
	if herr == nil {
		m.romTitle = h
	}

	var c *cpu.CPU
	if len(boot) > 0 {
		b.SetBootROM(boot)
		c = cpu.NewAtBoot()
	} else {
		c = cpu.New()
	}

	m.bus = b
	m.cpu = c
	m.cpuBudget = 0
	m.ppuBudget = 0
	return nil
}

// SetOpcodeLogger wires the CPU's UnknownOpcode soft-fault hook (§7) to
// a host-supplied logger; cmd/gbemu uses this to route the fault
// through the standard log package when -trace is set.
func (m *Machine) SetOpcodeLogger(fn func(pc uint16, op byte)) {
	if m.cpu != nil {
		m.cpu.OpcodeLogger = fn
	}
}

// SetBootROM installs a boot overlay onto an already-loaded machine,
// for hosts that load the cartridge and boot ROM from separate steps.
func (m *Machine) SetBootROM(boot []byte) {
	if m.bus == nil || len(boot) == 0 {
		return
	}
	m.bus.SetBootROM(boot)
}

// SetButtons replaces the current joypad state and, on each button's
// press edge, ORs the joypad interrupt bit into IF per spec §4.6 — the
// host input bridge's documented responsibility.
func (m *Machine) SetButtons(b Buttons) {
	if m.bus == nil {
		return
	}
	m.bus.SetJoypadState(b.mask())
	if newlyPressed(m.prevButtons, b) {
		m.bus.Write(0xFF0F, m.bus.Read(0xFF0F)|0x10)
	}
	m.prevButtons = b
}

func newlyPressed(prev, cur Buttons) bool {
	return (cur.A && !prev.A) || (cur.B && !prev.B) ||
		(cur.Start && !prev.Start) || (cur.Select && !prev.Select) ||
		(cur.Up && !prev.Up) || (cur.Down && !prev.Down) ||
		(cur.Left && !prev.Left) || (cur.Right && !prev.Right)
}

// Tick runs one iteration of the top-level loop: the CPU's budget
// accumulator grows by one and fires at most one instruction/interrupt
// dispatch/DMA copy; the PPU's grows by one and advances its line state
// by up to one transition.
func (m *Machine) Tick() {
	m.cpuBudget++
	for m.cpuBudget > 0 {
		cost := m.cpu.Step(m.bus)
		m.cpuBudget -= cost
	}

	m.ppuBudget++
	for m.ppuBudget > 0 {
		cost := m.bus.StepPPU()
		m.ppuBudget -= cost
	}
}

// StepFrame runs Tick until the PPU reports a completed frame
// (V-blank entry), then returns.
func (m *Machine) StepFrame() {
	if m.cpu == nil || m.bus == nil {
		return
	}
	for {
		m.Tick()
		if m.bus.PPU().FrameReady {
			return
		}
	}
}

// Framebuffer returns the most recently completed frame as packed
// RGBA8888 bytes, 160x144, using the reference palette from spec §6.
func (m *Machine) Framebuffer() []byte {
	out := make([]byte, 160*144*4)
	if m.bus == nil {
		return out
	}
	fb := m.bus.PPU().Framebuffer()
	for i, shade := range fb {
		r, g, bl := paletteRGB(shade)
		out[i*4+0] = r
		out[i*4+1] = g
		out[i*4+2] = bl
		out[i*4+3] = 0xFF
	}
	return out
}

// paletteRGB maps a 2-bit shade to the reference DMG palette named in
// spec §6.
func paletteRGB(shade byte) (r, g, b byte) {
	switch shade {
	case 0:
		return 155, 188, 15
	case 1:
		return 132, 172, 15
	case 2:
		return 48, 98, 48
	default:
		return 15, 56, 15
	}
}

// ROMTitle returns the cartridge title from the header, if a cartridge
// is loaded.
func (m *Machine) ROMTitle() string { return m.romTitle }

// ROMPath returns the path LoadROMFromFile was given, for window-title
// display purposes only.
func (m *Machine) ROMPath() string { return m.romPath }

// LoadROMFromFile records the path a ROM was loaded from so the host
// can display it; it does not itself read or load the ROM.
func (m *Machine) LoadROMFromFile(path string) {
	m.romPath = path
}
