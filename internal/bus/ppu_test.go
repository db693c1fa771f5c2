package bus

import "testing"

func stepLine(b *Bus, n int) {
	for i := 0; i < n; i++ {
		b.StepPPU()
	}
}

func TestBusPPU_STAT_HBlankInterrupt(t *testing.T) {
	b := newTestBus(t, make([]byte, 0x8000))
	b.Write(0xFF40, 0x80)
	b.Write(0xFF41, 1<<3)
	b.Write(0xFF0F, 0)
	stepLine(b, 20+43)
	if (b.Read(0xFF0F) & (1 << 1)) == 0 {
		t.Fatalf("expected STAT IF on HBlank mode change")
	}
}

func TestBusPPU_LYC_InterruptAndFlag(t *testing.T) {
	b := newTestBus(t, make([]byte, 0x8000))
	b.Write(0xFF40, 0x80)
	b.Write(0xFF41, 1<<6)
	b.Write(0xFF45, 0x01)
	b.Write(0xFF0F, 0)
	// One full line (114 steps) brings LY to 1; the coincidence check runs
	// at the start of each step, so it sees LY=1 on step 115.
	stepLine(b, 115)
	if (b.Read(0xFF0F) & (1 << 1)) == 0 {
		t.Fatalf("expected STAT IF on LYC=LY match at LY=1")
	}
	if b.Read(0xFF41)&(1<<2) == 0 {
		t.Fatalf("expected STAT coincidence flag set when LY==LYC")
	}
}

func TestBusPPU_VRAM_OAM_AccessRestrictions(t *testing.T) {
	b := newTestBus(t, make([]byte, 0x8000))
	b.Write(0xFF40, 0x80)
	stepLine(b, 63) // mode 0 after 20+43
	b.Write(0x8000, 0x11)
	b.Write(0xFE00, 0x22)

	stepLine(b, 51)      // new line, mode 2
	stepLine(b, 20)       // enter mode 3
	b.Write(0x8000, 0xAA) // blocked
	b.Write(0xFE00, 0xBB) // blocked
	if got := b.Read(0x8000); got != 0xFF {
		t.Fatalf("VRAM read during mode3 got %02x want FF", got)
	}
	if got := b.Read(0xFE00); got != 0xFF {
		t.Fatalf("OAM read during mode3 got %02x want FF", got)
	}
	stepLine(b, 43) // back to hblank
	if got := b.Read(0x8000); got != 0x11 {
		t.Fatalf("VRAM value changed despite blocked write: got %02x want 11", got)
	}
	if got := b.Read(0xFE00); got != 0x22 {
		t.Fatalf("OAM value changed despite blocked write: got %02x want 22", got)
	}
}

func TestBusPPU_ModeSequenceVisibleLine(t *testing.T) {
	b := newTestBus(t, make([]byte, 0x8000))
	b.Write(0xFF40, 0x80)
	if mode := b.Read(0xFF41) & 0x03; mode != 2 {
		t.Fatalf("mode at start got %d want 2", mode)
	}
	stepLine(b, 20)
	if mode := b.Read(0xFF41) & 0x03; mode != 3 {
		t.Fatalf("mode after 20 dots got %d want 3", mode)
	}
	stepLine(b, 43)
	if mode := b.Read(0xFF41) & 0x03; mode != 0 {
		t.Fatalf("mode after 63 dots got %d want 0", mode)
	}
	stepLine(b, 51)
	if ly := b.Read(0xFF44); ly != 1 {
		t.Fatalf("LY after one line got %d want 1", ly)
	}
	if mode := b.Read(0xFF41) & 0x03; mode != 2 {
		t.Fatalf("mode at new line got %d want 2", mode)
	}
}

func TestBusPPU_VBlankDurationAndIF(t *testing.T) {
	b := newTestBus(t, make([]byte, 0x8000))
	b.Write(0xFF40, 0x80)
	b.Write(0xFF0F, 0)
	stepLine(b, 144*114)
	if ly := b.Read(0xFF44); ly != 144 {
		t.Fatalf("LY at vblank start got %d want 144", ly)
	}
	if mode := b.Read(0xFF41) & 0x03; mode != 1 {
		t.Fatalf("mode at vblank start got %d want 1", mode)
	}
	if b.Read(0xFF0F)&0x01 == 0 {
		t.Fatalf("VBlank IF not set on entering vblank")
	}
	if !b.PPU().FrameReady {
		t.Fatalf("expected FrameReady on vblank entry")
	}
	stepLine(b, 10*456)
	if ly := b.Read(0xFF44); ly != 0 {
		t.Fatalf("LY after vblank wrap got %d want 0", ly)
	}
}

func TestBusPPU_STAT_VBlankInterruptEnable(t *testing.T) {
	b := newTestBus(t, make([]byte, 0x8000))
	b.Write(0xFF40, 0x80)
	b.Write(0xFF0F, 0)
	b.Write(0xFF41, 0)
	stepLine(b, 144*114)
	if b.Read(0xFF0F)&0x01 == 0 {
		t.Fatalf("VBlank IF not set")
	}
	if b.Read(0xFF0F)&0x02 != 0 {
		t.Fatalf("STAT IF set unexpectedly when disabled")
	}

	b.Write(0xFF0F, 0)
	b.Write(0xFF41, 1<<4)
	stepLine(b, 10*456+144*114)
	if b.Read(0xFF0F)&0x02 == 0 {
		t.Fatalf("STAT IF not set on VBlank when enabled")
	}
}
