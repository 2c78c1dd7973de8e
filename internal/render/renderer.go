// Package render composites PPU scanline snapshots into an RGB frame
// buffer. It runs after the PPU has recorded a scanline's scroll and sprite
// state, rather than racing per-dot PPU timing the way the original
// combined PPU/renderer did.
package render

import "gones/internal/ppu"

// PPU is the subset of ppu.PPU the renderer needs.
type PPU interface {
	Snapshot(scanline int) ppu.ScanlineSnapshot
	PaletteSnapshot(scanline int) [32]uint8
	ReadCHR(address uint16) uint8
	ReadNametable(address uint16) uint8
	IsSprite0HitSet() bool
	MarkSprite0Hit()
}

// Renderer composites completed PPU scanlines into a 256x240 RGB frame.
type Renderer struct {
	ppu         PPU
	frameBuffer [256 * 240]uint32
}

// New creates a Renderer bound to the given PPU.
func New(p PPU) *Renderer {
	return &Renderer{ppu: p}
}

// Clear resets the frame buffer to black.
func (r *Renderer) Clear() {
	for i := range r.frameBuffer {
		r.frameBuffer[i] = 0
	}
}

// GetFrameBuffer returns the current frame buffer.
func (r *Renderer) GetFrameBuffer() [256 * 240]uint32 {
	return r.frameBuffer
}

type spritePixel struct {
	colorIndex       uint8
	paletteIndex     uint8
	behindBackground bool
	transparent      bool
}

// RenderScanline composites scanline y using the scroll/sprite state the
// PPU recorded for it. It is a no-op if the PPU has not yet evaluated y
// this frame (e.g. rendering disabled).
func (r *Renderer) RenderScanline(y int) {
	if y < 0 || y >= 240 {
		return
	}
	snap := r.ppu.Snapshot(y)
	if !snap.Valid {
		return
	}
	palette := r.ppu.PaletteSnapshot(y)
	spritesEnabled := snap.Mask&0x10 != 0
	spriteLeftClip := snap.Mask&0x04 == 0

	for x := 0; x < 256; x++ {
		bgColorIdx, bgPalIdx, bgTransparent := r.backgroundPixel(snap, x)

		top := spritePixel{transparent: true}
		sprite0Opaque := false
		if spritesEnabled {
			for _, s := range snap.Sprites {
				if spriteLeftClip && x < 8 {
					continue
				}
				sp := r.spriteColorAt(snap, y, x, s)
				if sp.transparent {
					continue
				}
				if s.IsSprite0 {
					sprite0Opaque = true
				}
				if top.transparent {
					top = sp
				}
			}
		}

		if sprite0Opaque && !bgTransparent && x != 255 && !r.ppu.IsSprite0HitSet() {
			r.ppu.MarkSprite0Hit()
		}

		r.frameBuffer[y*256+x] = compositeColor(palette, bgTransparent, bgPalIdx, bgColorIdx, top)
	}
}

// backgroundPixel computes the background color/palette index at column x
// of the scanline described by snap, reconstructing the tile/attribute/
// pattern fetch the PPU would have performed at that dot from its recorded
// scroll registers.
func (r *Renderer) backgroundPixel(snap ppu.ScanlineSnapshot, x int) (colorIndex, paletteIndex uint8, transparent bool) {
	if snap.Mask&0x08 == 0 {
		return 0, 0, true
	}
	if x < 8 && snap.Mask&0x02 == 0 {
		return 0, 0, true
	}

	total := x + int(snap.X)
	coarseXOffset := total / 8
	fineXInTile := total % 8

	coarseX := int(snap.V&0x1F) + coarseXOffset
	horizWraps := coarseX / 32
	coarseX %= 32

	ntSelect := int((snap.V >> 10) & 0x3)
	ntSelect ^= horizWraps & 1

	coarseY := int((snap.V >> 5) & 0x1F)
	fineY := int((snap.V >> 12) & 0x7)

	ntBase := uint16(0x2000 + ntSelect*0x400)
	ntAddr := ntBase + uint16(coarseY*32+coarseX)
	tileID := r.ppu.ReadNametable(ntAddr)

	attrAddr := ntBase + 0x3C0 + uint16((coarseY/4)*8+(coarseX/4))
	attrByte := r.ppu.ReadNametable(attrAddr)
	shift := uint(((coarseY%4)/2)*4 + ((coarseX%4)/2)*2)
	paletteIndex = (attrByte >> shift) & 0x03

	var patternTable uint16
	if snap.Ctrl&0x10 != 0 {
		patternTable = 0x1000
	}
	patternAddr := patternTable + uint16(tileID)*16 + uint16(fineY)
	low := r.ppu.ReadCHR(patternAddr)
	high := r.ppu.ReadCHR(patternAddr + 8)
	bit := uint(7 - fineXInTile)
	colorIndex = ((high>>bit)&1)<<1 | ((low >> bit) & 1)
	return colorIndex, paletteIndex, colorIndex == 0
}

// spriteColorAt computes the sprite pixel, if any, that slot s contributes
// at column x of the given scanline.
func (r *Renderer) spriteColorAt(snap ppu.ScanlineSnapshot, scanline, x int, s ppu.SpriteSlot) spritePixel {
	height := 8
	if snap.Ctrl&0x20 != 0 {
		height = 16
	}

	col := x - int(s.X)
	if col < 0 || col >= 8 {
		return spritePixel{transparent: true}
	}
	row := scanline - int(s.Y)
	if row < 0 || row >= height {
		return spritePixel{transparent: true}
	}

	if s.Attr&0x40 != 0 {
		col = 7 - col
	}
	if s.Attr&0x80 != 0 {
		row = height - 1 - row
	}

	var patternTable uint16
	tile := s.Tile
	if height == 16 {
		patternTable = uint16(s.Tile&0x01) * 0x1000
		tile = s.Tile &^ 0x01
		if row >= 8 {
			tile++
			row -= 8
		}
	} else if snap.Ctrl&0x08 != 0 {
		patternTable = 0x1000
	}

	patternAddr := patternTable + uint16(tile)*16 + uint16(row)
	low := r.ppu.ReadCHR(patternAddr)
	high := r.ppu.ReadCHR(patternAddr + 8)
	bit := uint(7 - col)
	colorIndex := ((high>>bit)&1)<<1 | ((low >> bit) & 1)

	return spritePixel{
		colorIndex:       colorIndex,
		paletteIndex:     s.Attr & 0x03,
		behindBackground: s.Attr&0x20 != 0,
		transparent:      colorIndex == 0,
	}
}

// compositeColor applies standard NES background/sprite priority rules.
func compositeColor(palette [32]uint8, bgTransparent bool, bgPalIdx, bgColorIdx uint8, sprite spritePixel) uint32 {
	switch {
	case bgTransparent && sprite.transparent:
		return nesColorPalette[palette[0]&0x3F]
	case sprite.transparent:
		return nesColorPalette[palette[bgPalIdx*4+bgColorIdx]&0x3F]
	case bgTransparent:
		return nesColorPalette[palette[0x10+sprite.paletteIndex*4+sprite.colorIndex]&0x3F]
	case sprite.behindBackground:
		return nesColorPalette[palette[bgPalIdx*4+bgColorIdx]&0x3F]
	default:
		return nesColorPalette[palette[0x10+sprite.paletteIndex*4+sprite.colorIndex]&0x3F]
	}
}

// NESColorToRGB converts a 6-bit NES color index to a packed 0xRRGGBB value.
func NESColorToRGB(colorIndex uint8) uint32 {
	return nesColorPalette[colorIndex&0x3F]
}

// nesColorPalette is the standard NTSC NES palette, 64 entries as 0xRRGGBB.
var nesColorPalette = [64]uint32{
	0x666666, 0x002A88, 0x1412A7, 0x3B00A4, 0x5C007E, 0x6E0040, 0x6C0600, 0x561D00,
	0x333500, 0x0B4800, 0x005200, 0x004F08, 0x00404D, 0x000000, 0x000000, 0x000000,
	0xADADAD, 0x155FD9, 0x4240FF, 0x7527FE, 0xA01ACC, 0xB71E7B, 0xB53120, 0x994E00,
	0x6B6D00, 0x388700, 0x0C9300, 0x008F32, 0x007C8D, 0x000000, 0x000000, 0x000000,
	0xFFFEFF, 0x64B0FF, 0x9290FF, 0xC676FF, 0xF36AFF, 0xFE6ECC, 0xFE8170, 0xEA9E22,
	0xBCBE00, 0x88D800, 0x5CE430, 0x45E082, 0x48CDDE, 0x4F4F4F, 0x000000, 0x000000,
	0xFFFEFF, 0xC0DFFF, 0xD3D2FF, 0xE8C8FF, 0xFBC2FF, 0xFEC4EA, 0xFECCC5, 0xF7D8A5,
	0xE4E594, 0xCFEF96, 0xBDF4AB, 0xB3F3CC, 0xB5EBF2, 0xB8B8B8, 0x000000, 0x000000,
}
