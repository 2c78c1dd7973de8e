package cartridge

import (
	"bytes"
	"testing"
)

func buildINES(mapperID uint8, prgBanks, chrBanks int, flags6Extra uint8) []byte {
	header := make([]byte, 16)
	copy(header[0:4], "NES\x1A")
	header[4] = uint8(prgBanks)
	header[5] = uint8(chrBanks)
	header[6] = (mapperID << 4) | flags6Extra
	header[7] = mapperID & 0xF0

	buf := bytes.NewBuffer(header)
	buf.Write(make([]byte, prgBanks*16384))
	buf.Write(make([]byte, chrBanks*8192))
	return buf.Bytes()
}

// createValidINESHeader returns a 16-byte iNES header. The mapper ID's low
// and high nibbles are ORed into flags6 and flags7 the way buildINES does.
func createValidINESHeader(prgSize, chrSize, mapperID, flags6, flags7 uint8) []byte {
	header := make([]byte, 16)
	copy(header[0:4], "NES\x1A")
	header[4] = prgSize
	header[5] = chrSize
	header[6] = (mapperID << 4) | flags6
	header[7] = (mapperID & 0xF0) | flags7
	return header
}

// createMinimalValidROM returns an NROM image with zero-filled PRG and CHR.
func createMinimalValidROM(prgSize, chrSize uint8) []byte {
	rom := createValidINESHeader(prgSize, chrSize, 0, 0, 0)
	rom = append(rom, make([]byte, int(prgSize)*16384)...)
	return append(rom, make([]byte, int(chrSize)*8192)...)
}

func TestLoadFromReaderRejectsBadMagic(t *testing.T) {
	data := []byte("NOPE0000000000001234")
	if _, err := LoadFromReader(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error for bad magic number")
	}
}

func TestLoadFromReaderNROM(t *testing.T) {
	data := buildINES(0, 1, 1, 0)
	cart, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.GetMirrorMode() != MirrorHorizontal {
		t.Fatalf("expected horizontal mirroring, got %v", cart.GetMirrorMode())
	}
	cart.WritePRG(0x6000, 0x42)
	if got := cart.ReadPRG(0x6000); got != 0x42 {
		t.Fatalf("SRAM round trip failed: got %#x", got)
	}
}

func TestLoadFromReaderUnsupportedMapper(t *testing.T) {
	data := buildINES(99, 1, 1, 0)
	if _, err := LoadFromReader(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error for unsupported mapper id")
	}
}

func TestNROMMirrors16KBBank(t *testing.T) {
	data := buildINES(0, 1, 1, 0)
	data[16] = 0xAB
	cart, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cart.ReadPRG(0x8000); got != 0xAB {
		t.Fatalf("expected 0xAB at $8000, got %#x", got)
	}
	if got := cart.ReadPRG(0xC000); got != 0xAB {
		t.Fatalf("expected 16KB mirror at $C000, got %#x", got)
	}
}

func TestMMC1ShiftRegisterCommitsOnFifthWrite(t *testing.T) {
	data := buildINES(1, 4, 1, 0)
	cart, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Select vertical mirroring (control bits 0-1 = 2) via five shift writes,
	// bits pushed LSB-first: value 0b00010 -> bits 0,1,0,0,0.
	bits := []uint8{0, 1, 0, 0, 0}
	for _, b := range bits {
		cart.WritePRG(0x8000, b)
	}
	if cart.GetMirrorMode() != MirrorVertical {
		t.Fatalf("expected vertical mirroring after control write, got %v", cart.GetMirrorMode())
	}
}

func TestMMC1ResetOnHighBitWrite(t *testing.T) {
	data := buildINES(1, 4, 1, 0)
	cart, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cart.WritePRG(0x8000, 0x80)
	cart.WithMapper(func(m Mapper) {
		mm := m.(*mapper1)
		if mm.prgMode() != 3 {
			t.Fatalf("expected prg mode 3 after reset, got %d", mm.prgMode())
		}
	})
}

func TestUxROMSwitchesLowBankFixesHighBank(t *testing.T) {
	data := buildINES(2, 4, 0, 0)
	data[16] = 0x11          // bank 0, offset 0
	data[16+0x4000*3] = 0x33 // bank 3 (last), offset 0
	cart, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cart.ReadPRG(0xC000); got != 0x33 {
		t.Fatalf("expected fixed last bank at $C000, got %#x", got)
	}
	cart.WritePRG(0x8000, 0)
	if got := cart.ReadPRG(0x8000); got != 0x11 {
		t.Fatalf("expected bank 0 at $8000, got %#x", got)
	}
}
