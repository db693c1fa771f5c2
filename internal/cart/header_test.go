package cart

import (
	"encoding/binary"
	"testing"
)

// buildROM makes a synthetic ROM with a valid header. size should be at
// least large enough to hold the header bytes.
func buildROM(title string, cartType, romSizeCode, ramSizeCode byte, size int) []byte {
	rom := make([]byte, size)

	tbytes := []byte(title)
	if len(tbytes) > 16 {
		tbytes = tbytes[:16]
	}
	copy(rom[0x0134:0x0144], tbytes)

	rom[0x0147] = cartType
	rom[0x0148] = romSizeCode
	rom[0x0149] = ramSizeCode
	rom[0x014C] = 0x01

	var gsum uint16
	for i := 0; i < len(rom); i++ {
		if i == 0x014E || i == 0x014F {
			continue
		}
		gsum += uint16(rom[i])
	}
	binary.BigEndian.PutUint16(rom[0x014E:0x0150], gsum)

	return rom
}

func TestParseHeader_Basic(t *testing.T) {
	rom := buildROM("TEST", 0x01, 0x01, 0x02, 64*1024)

	h, err := ParseHeader(rom)
	if err != nil {
		t.Fatalf("ParseHeader error: %v", err)
	}
	if h.Title != "TEST" {
		t.Fatalf("Title got %q want %q", h.Title, "TEST")
	}
	if h.CartType != 0x01 {
		t.Fatalf("CartType got %#02x", h.CartType)
	}
	if h.ROMSizeBytes != 64*1024 {
		t.Fatalf("ROM size decode got %d bytes", h.ROMSizeBytes)
	}
	if h.RAMSizeBytes != 8*1024 {
		t.Fatalf("RAM size decode got %d", h.RAMSizeBytes)
	}

	var gsum uint16
	for i := 0; i < len(rom); i++ {
		if i == 0x014E || i == 0x014F {
			continue
		}
		gsum += uint16(rom[i])
	}
	if h.GlobalChecksum != gsum {
		t.Fatalf("Global checksum got %#04x want %#04x", h.GlobalChecksum, gsum)
	}
}

func TestParseHeader_InvalidRAMSizeCode(t *testing.T) {
	rom := buildROM("TEST", 0x00, 0x00, 0x06, 32*1024)
	if _, err := ParseHeader(rom); err == nil {
		t.Fatalf("expected ErrInvalidSizeCode, got nil")
	} else if _, ok := err.(*ErrInvalidSizeCode); !ok {
		t.Fatalf("expected *ErrInvalidSizeCode, got %T: %v", err, err)
	}
}

func TestParseHeader_ShortROM(t *testing.T) {
	short := make([]byte, 0x140)
	if _, err := ParseHeader(short); err == nil {
		t.Fatalf("expected error on too-small ROM, got nil")
	}
}

func TestNew_UnsupportedMapper(t *testing.T) {
	rom := buildROM("TEST", 0x0F, 0x00, 0x00, 32*1024) // MBC3, not implemented
	if _, err := New(rom); err == nil {
		t.Fatalf("expected ErrUnsupportedMapper, got nil")
	} else if _, ok := err.(*ErrUnsupportedMapper); !ok {
		t.Fatalf("expected *ErrUnsupportedMapper, got %T: %v", err, err)
	}
}

func TestNew_ROMOnlyAndMBC1(t *testing.T) {
	rom := buildROM("TEST", 0x00, 0x00, 0x00, 32*1024)
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(*ROMOnly); !ok {
		t.Fatalf("expected *ROMOnly, got %T", c)
	}

	rom = buildROM("TEST", 0x01, 0x01, 0x02, 64*1024)
	c, err = New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(*MBC1); !ok {
		t.Fatalf("expected *MBC1, got %T", c)
	}
}
