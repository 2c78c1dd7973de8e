package ppu

import "testing"

type stubCartridge struct {
	chr [0x2000]uint8
}

func (c *stubCartridge) ReadCHR(address uint16) uint8 { return c.chr[address&0x1FFF] }
func (c *stubCartridge) WriteCHR(address uint16, value uint8) {
	c.chr[address&0x1FFF] = value
}

func runCycles(p *PPU, n int) {
	for i := 0; i < n; i++ {
		p.Step()
	}
}

func TestRegisterWriteReadRoundTrip(t *testing.T) {
	p := New()
	p.WriteRegister(0x2003, 0x10)
	p.WriteRegister(0x2004, 0x42)
	p.WriteRegister(0x2003, 0x10) // the $2004 write advanced OAMADDR
	if got := p.ReadRegister(0x2004); got != 0x42 {
		t.Errorf("OAM readback: got 0x%02X, want 0x42", got)
	}
}

func TestStatusReadClearsVBlankAndLatch(t *testing.T) {
	p := New()
	p.w = true
	p.ppuStatus |= 0x80
	status := p.ReadRegister(0x2002)
	if status&0x80 == 0 {
		t.Fatal("expected VBL bit set on read")
	}
	if p.ppuStatus&0x80 != 0 {
		t.Error("VBL flag should clear after reading $2002")
	}
	if p.w {
		t.Error("write latch should reset after reading $2002")
	}
}

func TestVBlankSetAtScanline241Cycle1(t *testing.T) {
	p := New()
	p.SetNMICallback(func() {})
	runCycles(p, 341*242+1)
	if !p.IsVBlank() {
		t.Fatal("expected VBlank flag set at scanline 241 cycle 1")
	}
}

func TestNMIFiresWhenEnabled(t *testing.T) {
	p := New()
	fired := false
	p.SetNMICallback(func() { fired = true })
	p.WriteRegister(0x2000, 0x80)
	runCycles(p, 341*242+1)
	if !fired {
		t.Fatal("expected NMI callback to fire at VBlank start")
	}
}

func TestPaletteWriteReadRoundTrip(t *testing.T) {
	p := New()
	p.WriteRegister(0x2006, 0x3F)
	p.WriteRegister(0x2006, 0x00)
	p.WriteRegister(0x2007, 0x16)
	p.WriteRegister(0x2006, 0x3F)
	p.WriteRegister(0x2006, 0x00)
	_ = p.ReadRegister(0x2007) // palette reads are unbuffered in real hardware semantics here too
	if got := p.readPalette(0x3F00); got != 0x16 {
		t.Errorf("palette readback: got 0x%02X, want 0x16", got)
	}
}

func TestPaletteSnapshotIsKeyedByScanline(t *testing.T) {
	p := New()
	p.WriteRegister(0x2001, 0x18) // enable rendering so scanlines advance through timingCycle
	runCycles(p, 341*10)          // get to some scanline > 0

	p.scanline = 5
	p.WriteRegister(0x2006, 0x3F)
	p.WriteRegister(0x2006, 0x00)
	p.WriteRegister(0x2007, 0x20)

	p.scanline = 50
	p.WriteRegister(0x2006, 0x3F)
	p.WriteRegister(0x2006, 0x00)
	p.WriteRegister(0x2007, 0x30)

	early := p.PaletteSnapshot(10)
	if early[0] != 0x20 {
		t.Errorf("PaletteSnapshot(10)[0] = 0x%02X, want 0x20 (write from scanline 5)", early[0])
	}
	late := p.PaletteSnapshot(100)
	if late[0] != 0x30 {
		t.Errorf("PaletteSnapshot(100)[0] = 0x%02X, want 0x30 (write from scanline 50)", late[0])
	}
}

func TestScanlineSnapshotRecordsSprites(t *testing.T) {
	p := New()
	p.WriteRegister(0x2001, 0x18)
	p.oam[0] = 10 // Y
	p.oam[1] = 0x01
	p.oam[2] = 0x00
	p.oam[3] = 20

	// Advance into scanline 10's cycle 1.
	runCycles(p, 341*12+1)

	snap := p.Snapshot(10)
	if !snap.Valid {
		t.Fatal("expected a valid snapshot for scanline 10")
	}
	found := false
	for _, s := range snap.Sprites {
		if s.IsSprite0 {
			found = true
		}
	}
	if !found {
		t.Error("expected sprite 0 to be evaluated on scanline 10")
	}
}

func TestSprite0HitFlagExposedToRenderer(t *testing.T) {
	p := New()
	if p.IsSprite0HitSet() {
		t.Fatal("sprite0 hit should start false")
	}
	p.MarkSprite0Hit()
	if !p.IsSprite0HitSet() {
		t.Error("expected sprite0 hit set after MarkSprite0Hit")
	}
	if p.ppuStatus&0x40 == 0 {
		t.Error("expected PPUSTATUS bit 6 set after MarkSprite0Hit")
	}
}

func TestNametableMirroringHorizontal(t *testing.T) {
	p := New()
	p.SetMirroring(MirrorHorizontal)
	p.vram[0x000] = 0xAB
	if got := p.ReadNametable(0x2400); got != 0xAB {
		t.Errorf("horizontal mirror: got 0x%02X, want 0xAB", got)
	}
}

func TestNametableMirroringVertical(t *testing.T) {
	p := New()
	p.SetMirroring(MirrorVertical)
	p.vram[0x000] = 0xCD
	if got := p.ReadNametable(0x2800); got != 0xCD {
		t.Errorf("vertical mirror: got 0x%02X, want 0xCD", got)
	}
}

func TestCHRAccessGoesThroughCartridge(t *testing.T) {
	p := New()
	cart := &stubCartridge{}
	p.SetCartridge(cart)
	p.WriteRegister(0x2006, 0x00)
	p.WriteRegister(0x2006, 0x10)
	p.WriteRegister(0x2007, 0x99)
	if cart.chr[0x10] != 0x99 {
		t.Errorf("expected CHR write to reach cartridge, got 0x%02X", cart.chr[0x10])
	}
}
