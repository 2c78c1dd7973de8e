package render

import (
	"testing"

	"gones/internal/ppu"
)

type mockPPU struct {
	snap        ppu.ScanlineSnapshot
	palette     [32]uint8
	nametable   [0x1000]uint8
	chr         [0x2000]uint8
	sprite0Hit  bool
	hitCallSeen int
}

func (m *mockPPU) Snapshot(scanline int) ppu.ScanlineSnapshot { return m.snap }
func (m *mockPPU) PaletteSnapshot(scanline int) [32]uint8     { return m.palette }
func (m *mockPPU) ReadCHR(address uint16) uint8               { return m.chr[address&0x1FFF] }
func (m *mockPPU) ReadNametable(address uint16) uint8         { return m.nametable[address&0x0FFF] }
func (m *mockPPU) IsSprite0HitSet() bool                      { return m.sprite0Hit }
func (m *mockPPU) MarkSprite0Hit() {
	m.sprite0Hit = true
	m.hitCallSeen++
}

func TestRenderScanlineSkipsInvalidSnapshot(t *testing.T) {
	m := &mockPPU{snap: ppu.ScanlineSnapshot{Valid: false}}
	r := New(m)
	r.RenderScanline(5)
	fb := r.GetFrameBuffer()
	for _, px := range fb {
		if px != 0 {
			t.Fatal("expected untouched frame buffer for an invalid snapshot")
		}
	}
}

func TestRenderScanlineBackgroundDisabledUsesBackdrop(t *testing.T) {
	m := &mockPPU{
		snap: ppu.ScanlineSnapshot{Valid: true, Mask: 0x00},
	}
	m.palette[0] = 0x21 // a distinctive backdrop color
	r := New(m)
	r.RenderScanline(0)
	fb := r.GetFrameBuffer()
	want := NESColorToRGB(0x21)
	if fb[0] != want {
		t.Errorf("pixel 0 = 0x%06X, want backdrop 0x%06X", fb[0], want)
	}
}

func TestRenderScanlineOpaqueBackgroundTile(t *testing.T) {
	m := &mockPPU{
		snap: ppu.ScanlineSnapshot{Valid: true, Mask: 0x1A, Ctrl: 0x00, V: 0, X: 0},
	}
	// Tile 1 at nametable (0,0); CHR rows give color index 1 for every column.
	m.nametable[0] = 1
	for row := 0; row < 8; row++ {
		m.chr[16+row] = 0xFF // low plane all 1s
	}
	m.palette[1] = 0x30
	r := New(m)
	r.RenderScanline(0)
	fb := r.GetFrameBuffer()
	want := NESColorToRGB(0x30)
	if fb[0] != want {
		t.Errorf("pixel 0 = 0x%06X, want 0x%06X (background palette 0 color 1)", fb[0], want)
	}
}

func TestSprite0HitReportedOnOverlap(t *testing.T) {
	m := &mockPPU{
		snap: ppu.ScanlineSnapshot{
			Valid: true,
			Mask:  0x1A, // background + sprites enabled, left-edge clipping on
			Sprites: []ppu.SpriteSlot{
				{Index: 0, Y: 0, Tile: 2, Attr: 0, X: 10, IsSprite0: true},
			},
		},
	}
	// Background opaque across the row via nametable tile 1, all-1 low plane.
	for col := 0; col < 32; col++ {
		m.nametable[col] = 1
	}
	for row := 0; row < 8; row++ {
		m.chr[16+row] = 0xFF
	}
	// Sprite tile 2 opaque too.
	for row := 0; row < 8; row++ {
		m.chr[32+row] = 0xFF
	}
	r := New(m)
	r.RenderScanline(0)
	if !m.sprite0Hit {
		t.Error("expected sprite 0 hit to be reported when sprite and background overlap opaquely")
	}
}

func TestSprite0HitNotReportedWhenTransparentBackground(t *testing.T) {
	m := &mockPPU{
		snap: ppu.ScanlineSnapshot{
			Valid: true,
			Mask:  0x1A,
			Sprites: []ppu.SpriteSlot{
				{Index: 0, Y: 0, Tile: 2, Attr: 0, X: 10, IsSprite0: true},
			},
		},
	}
	for row := 0; row < 8; row++ {
		m.chr[32+row] = 0xFF // sprite opaque
	}
	// Background tile 0 stays all zero -> transparent.
	r := New(m)
	r.RenderScanline(0)
	if m.sprite0Hit {
		t.Error("sprite 0 hit should not fire against a transparent background pixel")
	}
}
