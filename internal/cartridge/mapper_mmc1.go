package cartridge

// mapper1 implements MMC1 (iNES mapper 1): a 5-bit serial shift register
// loads four internal registers (control, CHR bank 0, CHR bank 1, PRG bank)
// one bit at a time, LSB first, committing on the fifth consecutive write. A
// write with bit 7 set instead resets the shift register and forces the
// control register's PRG mode to "fix last bank" — the power-up state real
// MMC1 boards come up in.
//
// Grounded on _examples/other_examples/384ab58d_yoshiomiyamae-gones__pkg-cartridge-mapper-mapper1.go.go
type mapper1 struct {
	cart *Cartridge

	shiftRegister uint8
	shiftCount    uint8

	control  uint8
	chrBank0 uint8
	chrBank1 uint8
	prgBank  uint8

	prgRAM [0x2000]uint8
}

func newMapper1(cart *Cartridge) *mapper1 {
	return &mapper1{
		cart:    cart,
		control: 0x0C, // PRG mode 3 (fix last bank), CHR mode 0 (8KB), mirror 0
	}
}

func (m *mapper1) prgMode() uint8 { return (m.control >> 2) & 0x03 }
func (m *mapper1) chrMode() uint8 { return (m.control >> 4) & 0x01 }

func (m *mapper1) Mirroring() MirrorMode {
	switch m.control & 0x03 {
	case 0:
		return MirrorSingleScreen0
	case 1:
		return MirrorSingleScreen1
	case 2:
		return MirrorVertical
	default:
		return MirrorHorizontal
	}
}

func (m *mapper1) HasBatteryBackedRAM() bool { return m.cart.hasBattery }

func (m *mapper1) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgBank&0x10 != 0 {
			// Bit 4 of the PRG bank register set disables PRG RAM;
			// reads then return all-ones.
			return 0xFF
		}
		return m.prgRAM[address-0x6000]
	case address >= 0x8000:
		return m.readPRGROM(address)
	default:
		return 0
	}
}

func (m *mapper1) readPRGROM(address uint16) uint8 {
	bankSize16K := len(m.cart.prgROM) / 0x4000
	if bankSize16K == 0 {
		return 0
	}
	offset := address - 0x8000

	switch m.prgMode() {
	case 0, 1:
		// 32KB mode: bank register's upper bits select a 32KB bank.
		bank := int(m.prgBank>>1) % (bankSize16K / 2)
		base := bank * 0x8000
		idx := base + int(offset)
		if idx < len(m.cart.prgROM) {
			return m.cart.prgROM[idx]
		}
		return 0
	case 2:
		// Fix first bank at $8000, switch $C000.
		if address < 0xC000 {
			return m.cart.prgROM[offset]
		}
		bank := int(m.prgBank&0x0F) % bankSize16K
		idx := bank*0x4000 + int(offset-0x4000)
		if idx < len(m.cart.prgROM) {
			return m.cart.prgROM[idx]
		}
		return 0
	default: // 3: fix last bank at $C000, switch $8000.
		if address < 0xC000 {
			bank := int(m.prgBank&0x0F) % bankSize16K
			idx := bank*0x4000 + int(offset)
			if idx < len(m.cart.prgROM) {
				return m.cart.prgROM[idx]
			}
			return 0
		}
		lastBank := bankSize16K - 1
		idx := lastBank*0x4000 + int(offset-0x4000)
		if idx < len(m.cart.prgROM) {
			return m.cart.prgROM[idx]
		}
		return 0
	}
}

func (m *mapper1) WritePRG(address uint16, value uint8) {
	if address < 0x6000 {
		return
	}
	if address < 0x8000 {
		if m.prgBank&0x10 == 0 {
			m.prgRAM[address-0x6000] = value
		}
		return
	}

	if value&0x80 != 0 {
		m.shiftRegister = 0
		m.shiftCount = 0
		m.control |= 0x0C
		return
	}

	m.shiftRegister = (m.shiftRegister >> 1) | ((value & 1) << 4)
	m.shiftCount++

	if m.shiftCount == 5 {
		m.writeRegister(address, m.shiftRegister)
		m.shiftRegister = 0
		m.shiftCount = 0
	}
}

func (m *mapper1) writeRegister(address uint16, value uint8) {
	switch {
	case address < 0xA000:
		m.control = value
	case address < 0xC000:
		m.chrBank0 = value
	case address < 0xE000:
		m.chrBank1 = value
	default:
		m.prgBank = value
	}
}

func (m *mapper1) ReadCHR(address uint16) uint8 {
	idx := m.chrIndex(address)
	if idx < 0 || idx >= len(m.cart.chrROM) {
		return 0
	}
	return m.cart.chrROM[idx]
}

func (m *mapper1) WriteCHR(address uint16, value uint8) {
	if !m.cart.hasCHRRAM {
		return
	}
	idx := m.chrIndex(address)
	if idx >= 0 && idx < len(m.cart.chrROM) {
		m.cart.chrROM[idx] = value
	}
}

func (m *mapper1) chrIndex(address uint16) int {
	if address >= 0x2000 {
		return -1
	}
	bankCount4K := len(m.cart.chrROM) / 0x1000
	if bankCount4K == 0 {
		bankCount4K = 1
	}

	if m.chrMode() == 0 {
		// 8KB mode: chrBank0's upper bits select an 8KB bank.
		bank8K := len(m.cart.chrROM) / 0x2000
		if bank8K == 0 {
			return int(address)
		}
		bank := int(m.chrBank0>>1) % bank8K
		return bank*0x2000 + int(address)
	}

	// 4KB mode: chrBank0 selects $0000-$0FFF, chrBank1 selects $1000-$1FFF.
	if address < 0x1000 {
		bank := int(m.chrBank0) % bankCount4K
		return bank*0x1000 + int(address)
	}
	bank := int(m.chrBank1) % bankCount4K
	return bank*0x1000 + int(address-0x1000)
}
