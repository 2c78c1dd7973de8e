package cartridge

// TestROMBuilder assembles an in-memory iNES image one option at a time, so
// cross-package tests (e.g. bus integration tests) can construct a cartridge
// without hand-rolling header bytes.
type TestROMBuilder struct {
	prgSize      uint8
	chrSize      uint8
	mirroring    MirrorMode
	battery      bool
	instructions []uint8
	data         map[uint16][]uint8
	resetVector  *uint16
	nmiVector    *uint16
	description  string
}

func NewTestROMBuilder() *TestROMBuilder {
	return &TestROMBuilder{prgSize: 1, chrSize: 1, data: make(map[uint16][]uint8)}
}

func (b *TestROMBuilder) WithPRGSize(size uint8) *TestROMBuilder { b.prgSize = size; return b }
func (b *TestROMBuilder) WithCHRSize(size uint8) *TestROMBuilder { b.chrSize = size; return b }
func (b *TestROMBuilder) WithMirroring(m MirrorMode) *TestROMBuilder {
	b.mirroring = m
	return b
}
func (b *TestROMBuilder) WithBattery() *TestROMBuilder { b.battery = true; return b }

// WithInstructions places raw opcode bytes at the start of PRG ROM (CPU
// address 0x8000).
func (b *TestROMBuilder) WithInstructions(instructions []uint8) *TestROMBuilder {
	b.instructions = instructions
	return b
}

// WithData places raw bytes at a CPU address within the PRG ROM window.
func (b *TestROMBuilder) WithData(address uint16, data []uint8) *TestROMBuilder {
	b.data[address] = data
	return b
}

func (b *TestROMBuilder) WithResetVector(address uint16) *TestROMBuilder {
	b.resetVector = &address
	return b
}

func (b *TestROMBuilder) WithNMIVector(address uint16) *TestROMBuilder {
	b.nmiVector = &address
	return b
}

func (b *TestROMBuilder) WithDescription(description string) *TestROMBuilder {
	b.description = description
	return b
}

// Build renders the accumulated options into a complete iNES image.
func (b *TestROMBuilder) Build() ([]byte, error) {
	prg := make([]uint8, int(b.prgSize)*16384)
	chr := make([]uint8, int(b.chrSize)*8192)

	place := func(address uint16, bytes []uint8) {
		offset := int(address) % len(prg)
		copy(prg[offset:], bytes)
	}
	if len(b.instructions) > 0 {
		place(0x8000, b.instructions)
	}
	for addr, bytes := range b.data {
		place(addr, bytes)
	}

	putVector := func(vectorAddr uint16, target *uint16) {
		if target == nil {
			return
		}
		offset := int(vectorAddr) % len(prg)
		prg[offset] = uint8(*target)
		prg[offset+1] = uint8(*target >> 8)
	}
	putVector(0xFFFC, b.resetVector)
	putVector(0xFFFA, b.nmiVector)

	header := make([]uint8, 16)
	copy(header[0:4], "NES\x1A")
	header[4] = b.prgSize
	header[5] = b.chrSize
	if b.mirroring == MirrorVertical {
		header[6] |= 0x01
	}
	if b.battery {
		header[6] |= 0x02
	}

	rom := append(header, prg...)
	rom = append(rom, chr...)
	return rom, nil
}

// BuildCartridge renders the image and loads it as a Cartridge in one step.
func (b *TestROMBuilder) BuildCartridge() (*Cartridge, error) {
	rom, err := b.Build()
	if err != nil {
		return nil, err
	}
	return LoadFromBytes(rom)
}
