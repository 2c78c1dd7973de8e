package cartridge

// MockCartridge is scaffolding for packages (bus, ppu) that need a cartridge
// collaborator without parsing a real iNES file.
type MockCartridge struct {
	prgROM    [0x8000]uint8
	chrROM    [0x2000]uint8
	prgRAM    [0x2000]uint8
	chrRAM    [0x2000]uint8
	mirroring MirrorMode

	prgReads  []uint16
	prgWrites []uint16
	chrReads  []uint16
	chrWrites []uint16
}

func NewMockCartridge() *MockCartridge {
	return &MockCartridge{mirroring: MirrorHorizontal}
}

func (c *MockCartridge) ReadPRG(address uint16) uint8 {
	c.prgReads = append(c.prgReads, address)
	if address >= 0x8000 {
		index := address - 0x8000
		if index >= 0x4000 && len(c.prgROM) == 0x4000 {
			index %= 0x4000
		}
		return c.prgROM[index]
	}
	return 0
}

func (c *MockCartridge) WritePRG(address uint16, value uint8) {
	c.prgWrites = append(c.prgWrites, address)
	if address >= 0x6000 && address < 0x8000 {
		c.prgRAM[address-0x6000] = value
	}
}

func (c *MockCartridge) ReadCHR(address uint16) uint8 {
	c.chrReads = append(c.chrReads, address)
	if address < 0x2000 {
		return c.chrROM[address]
	}
	return 0
}

func (c *MockCartridge) WriteCHR(address uint16, value uint8) {
	c.chrWrites = append(c.chrWrites, address)
	if address < 0x2000 {
		c.chrRAM[address] = value
	}
}

func (c *MockCartridge) LoadPRG(data []uint8) { copy(c.prgROM[:], data) }
func (c *MockCartridge) LoadCHR(data []uint8) { copy(c.chrROM[:], data) }

func (c *MockCartridge) SetMirroring(mode MirrorMode) { c.mirroring = mode }
func (c *MockCartridge) Mirroring() MirrorMode        { return c.mirroring }
func (c *MockCartridge) GetMirrorMode() MirrorMode    { return c.mirroring }
func (c *MockCartridge) HasBatteryBackedRAM() bool    { return false }

func (c *MockCartridge) ClearLogs() {
	c.prgReads = c.prgReads[:0]
	c.prgWrites = c.prgWrites[:0]
	c.chrReads = c.chrReads[:0]
	c.chrWrites = c.chrWrites[:0]
}
