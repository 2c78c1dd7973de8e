// Package cpu implements the 6502 CPU emulation for the NES.
package cpu

import "fmt"

// AddressingMode identifies how an opcode's operand address is computed.
type AddressingMode int

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Relative
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
)

const (
	stackBase = 0x0100

	nFlagMask  = 0x80
	vFlagMask  = 0x40
	unusedMask = 0x20
	bFlagMask  = 0x10
	dFlagMask  = 0x08
	iFlagMask  = 0x04
	zFlagMask  = 0x02
	cFlagMask  = 0x01

	zeroPageMask = 0xFF
	pageMask     = 0xFF00

	nmiVector   = 0xFFFA
	resetVector = 0xFFFC
	irqVector   = 0xFFFE
)

// MemoryInterface defines the interface for CPU memory access.
type MemoryInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// opHandler executes one opcode's semantics and returns any cycles beyond
// the opcode's base cycle count (branch-taken, page-cross bonuses already
// folded in for branches; other instructions return 0 here since the page
// crossing bonus is applied uniformly by Step via pageCrossBonus).
type opHandler func(cpu *CPU, address uint16, pageCrossed bool) uint8

// opcode describes one entry of the 256-slot dispatch table: its mnemonic
// (for tracing), addressing mode, base cycle count, whether an indexed
// addressing mode that crosses a page boundary costs an extra cycle, and
// the handler that implements it.
type opcode struct {
	name       string
	mode       AddressingMode
	cycles     uint8
	pageCross  bool
	handler    opHandler
}

// CPU represents the 6502 processor used in the NES.
type CPU struct {
	A  uint8
	X  uint8
	Y  uint8
	SP uint8
	PC uint16

	C bool // Carry
	Z bool // Zero
	I bool // Interrupt disable
	D bool // Decimal (unused on the NES's 2A03)
	B bool // Break
	V bool // Overflow
	N bool // Negative

	memory MemoryInterface
	cycles uint64

	nmiPending  bool
	irqPending  bool
	nmiPrevious bool
}

// New creates a new CPU instance.
func New(memory MemoryInterface) *CPU {
	return &CPU{
		memory: memory,
		SP:     0xFD,
	}
}

// Reset performs the 6502 power-up/reset sequence: registers take their
// documented reset values and the CPU spends 7 cycles reading the reset
// vector off the bus before fetching its first real instruction.
func (cpu *CPU) Reset() {
	cpu.A = 0x00
	cpu.X = 0x00
	cpu.Y = 0x00
	cpu.SP = 0xFD

	cpu.C = false
	cpu.Z = false
	cpu.I = true
	cpu.D = false
	cpu.B = true
	cpu.V = false
	cpu.N = false

	for i := 0; i < 5; i++ {
		cpu.memory.Read(cpu.PC)
		cpu.cycles++
	}

	low := uint16(cpu.memory.Read(resetVector))
	high := uint16(cpu.memory.Read(resetVector + 1))
	cpu.PC = (high << 8) | low
	cpu.cycles += 2
}

// Step executes a single instruction and returns the number of cycles it
// took, including any page-crossing or branch-taken penalty.
func (cpu *CPU) Step() uint64 {
	opByte := cpu.memory.Read(cpu.PC)
	op := &opcodeTable[opByte]

	if op.handler == nil {
		cpu.PC++
		cpu.cycles += 2
		return 2
	}

	address, pageCrossed := cpu.getOperandAddress(op.mode)
	extra := op.handler(cpu, address, pageCrossed)
	if pageCrossed && op.pageCross {
		extra++
	}

	total := uint64(op.cycles) + uint64(extra)
	cpu.cycles += total

	cpu.ProcessPendingInterrupts()
	return total
}

// getOperandAddress computes the effective address for the given addressing
// mode, advancing PC past the instruction's operand bytes, and reports
// whether an indexed access crossed a page boundary.
func (cpu *CPU) getOperandAddress(mode AddressingMode) (uint16, bool) {
	switch mode {
	case Implied, Accumulator:
		cpu.PC++
		return 0, false

	case Immediate:
		address := cpu.PC + 1
		cpu.PC += 2
		return address, false

	case ZeroPage:
		address := uint16(cpu.memory.Read(cpu.PC + 1))
		cpu.PC += 2
		return address, false

	case ZeroPageX:
		base := cpu.memory.Read(cpu.PC + 1)
		address := uint16((base + cpu.X) & zeroPageMask)
		cpu.PC += 2
		return address, false

	case ZeroPageY:
		base := cpu.memory.Read(cpu.PC + 1)
		address := uint16((base + cpu.Y) & zeroPageMask)
		cpu.PC += 2
		return address, false

	case Relative:
		offset := int8(cpu.memory.Read(cpu.PC + 1))
		oldPC := cpu.PC + 2
		newPC := uint16(int32(oldPC) + int32(offset))
		cpu.PC = oldPC
		return newPC, (oldPC & pageMask) != (newPC & pageMask)

	case Absolute:
		low := uint16(cpu.memory.Read(cpu.PC + 1))
		high := uint16(cpu.memory.Read(cpu.PC + 2))
		cpu.PC += 3
		return (high << 8) | low, false

	case AbsoluteX:
		low := uint16(cpu.memory.Read(cpu.PC + 1))
		high := uint16(cpu.memory.Read(cpu.PC + 2))
		base := (high << 8) | low
		address := base + uint16(cpu.X)
		cpu.PC += 3
		return address, (base & pageMask) != (address & pageMask)

	case AbsoluteY:
		low := uint16(cpu.memory.Read(cpu.PC + 1))
		high := uint16(cpu.memory.Read(cpu.PC + 2))
		base := (high << 8) | low
		address := base + uint16(cpu.Y)
		cpu.PC += 3
		return address, (base & pageMask) != (address & pageMask)

	case Indirect: // JMP only; reproduces the page-wrap fetch bug
		lowPtr := uint16(cpu.memory.Read(cpu.PC + 1))
		highPtr := uint16(cpu.memory.Read(cpu.PC + 2))
		ptr := (highPtr << 8) | lowPtr

		var address uint16
		if (ptr & zeroPageMask) == zeroPageMask {
			low := uint16(cpu.memory.Read(ptr))
			high := uint16(cpu.memory.Read(ptr & pageMask))
			address = (high << 8) | low
		} else {
			low := uint16(cpu.memory.Read(ptr))
			high := uint16(cpu.memory.Read(ptr + 1))
			address = (high << 8) | low
		}
		cpu.PC += 3
		return address, false

	case IndexedIndirect: // (zp,X)
		base := cpu.memory.Read(cpu.PC + 1)
		ptr := (base + cpu.X) & zeroPageMask
		low := uint16(cpu.memory.Read(uint16(ptr)))
		high := uint16(cpu.memory.Read(uint16((ptr + 1) & zeroPageMask)))
		cpu.PC += 2
		return (high << 8) | low, false

	case IndirectIndexed: // (zp),Y
		ptr := uint16(cpu.memory.Read(cpu.PC + 1))
		low := uint16(cpu.memory.Read(ptr))
		high := uint16(cpu.memory.Read((ptr + 1) & zeroPageMask))
		base := (high << 8) | low
		address := base + uint16(cpu.Y)
		cpu.PC += 2
		return address, (base & pageMask) != (address & pageMask)

	default:
		return 0, false
	}
}

func (cpu *CPU) push(value uint8) {
	cpu.memory.Write(stackBase+uint16(cpu.SP), value)
	cpu.SP--
}

func (cpu *CPU) pop() uint8 {
	cpu.SP++
	return cpu.memory.Read(stackBase + uint16(cpu.SP))
}

func (cpu *CPU) pushWord(value uint16) {
	cpu.push(uint8(value >> 8))
	cpu.push(uint8(value & 0xFF))
}

func (cpu *CPU) popWord() uint16 {
	low := uint16(cpu.pop())
	high := uint16(cpu.pop())
	return (high << 8) | low
}

func (cpu *CPU) setZN(value uint8) {
	cpu.Z = value == 0
	cpu.N = (value & nFlagMask) != 0
}

func (cpu *CPU) handleNMI() {
	cpu.pushWord(cpu.PC)
	status := cpu.GetStatusByte()&^uint8(bFlagMask) | unusedMask
	cpu.push(status)
	cpu.I = true
	low := uint16(cpu.memory.Read(nmiVector))
	high := uint16(cpu.memory.Read(nmiVector + 1))
	cpu.PC = (high << 8) | low
	cpu.cycles += 7
}

func (cpu *CPU) handleIRQ() {
	cpu.pushWord(cpu.PC)
	status := cpu.GetStatusByte()&^uint8(bFlagMask) | unusedMask
	cpu.push(status)
	cpu.I = true
	low := uint16(cpu.memory.Read(irqVector))
	high := uint16(cpu.memory.Read(irqVector + 1))
	cpu.PC = (high << 8) | low
	cpu.cycles += 7
}

// SetNMI latches the NMI line; the NMI fires on a high-to-low transition.
func (cpu *CPU) SetNMI(state bool) {
	if cpu.nmiPrevious && !state {
		cpu.nmiPending = true
	}
	cpu.nmiPrevious = state
}

// SetIRQ sets the level-triggered IRQ line state.
func (cpu *CPU) SetIRQ(state bool) {
	cpu.irqPending = state
}

// ProcessPendingInterrupts services a pending NMI or (if unmasked) IRQ.
// Called after each instruction, giving interrupts their one-instruction
// dispatch delay.
func (cpu *CPU) ProcessPendingInterrupts() {
	if cpu.nmiPending {
		cpu.nmiPending = false
		cpu.handleNMI()
		return
	}
	if cpu.irqPending && !cpu.I {
		cpu.handleIRQ()
	}
}

// TriggerNMI and TriggerIRQ let a caller mark an interrupt pending directly,
// bypassing the edge/level line state tracked by SetNMI/SetIRQ; it is
// serviced at the next ProcessPendingInterrupts (which Step calls).
func (cpu *CPU) TriggerNMI() { cpu.nmiPending = true }
func (cpu *CPU) TriggerIRQ() { cpu.irqPending = true }

// SetIRQPending is an alias of TriggerIRQ for callers that model the IRQ
// line as a one-shot pending flag rather than a level.
func (cpu *CPU) SetIRQPending() { cpu.irqPending = true }

// ClearNMIPending re-arms NMI edge detection after a pending NMI has been
// serviced, without waiting for a fresh high-to-low SetNMI transition.
func (cpu *CPU) ClearNMIPending() { cpu.nmiPending = false }

// GetStatusByte packs the flags into the 6502 status register layout.
func (cpu *CPU) GetStatusByte() uint8 {
	var status uint8
	if cpu.N {
		status |= nFlagMask
	}
	if cpu.V {
		status |= vFlagMask
	}
	status |= unusedMask
	if cpu.B {
		status |= bFlagMask
	}
	if cpu.D {
		status |= dFlagMask
	}
	if cpu.I {
		status |= iFlagMask
	}
	if cpu.Z {
		status |= zFlagMask
	}
	if cpu.C {
		status |= cFlagMask
	}
	return status
}

// SetStatusByte unpacks a status register byte into the flag fields.
func (cpu *CPU) SetStatusByte(status uint8) {
	cpu.N = (status & nFlagMask) != 0
	cpu.V = (status & vFlagMask) != 0
	cpu.B = (status & bFlagMask) != 0
	cpu.D = (status & dFlagMask) != 0
	cpu.I = (status & iFlagMask) != 0
	cpu.Z = (status & zFlagMask) != 0
	cpu.C = (status & cFlagMask) != 0
}

// GetStatusString renders the flags in NESDev trace notation (N V - B D I Z C).
func (cpu *CPU) GetStatusString() string {
	bit := func(set bool, ch byte) byte {
		if set {
			return ch
		}
		return '-'
	}
	return string([]byte{
		bit(cpu.N, 'N'), bit(cpu.V, 'V'), '-', bit(cpu.B, 'B'),
		bit(cpu.D, 'D'), bit(cpu.I, 'I'), bit(cpu.Z, 'Z'), bit(cpu.C, 'C'),
	})
}

// --- Load/Store ---

func (cpu *CPU) lda(address uint16) uint8 { cpu.A = cpu.memory.Read(address); cpu.setZN(cpu.A); return 0 }
func (cpu *CPU) ldx(address uint16) uint8 { cpu.X = cpu.memory.Read(address); cpu.setZN(cpu.X); return 0 }
func (cpu *CPU) ldy(address uint16) uint8 { cpu.Y = cpu.memory.Read(address); cpu.setZN(cpu.Y); return 0 }
func (cpu *CPU) sta(address uint16) uint8 { cpu.memory.Write(address, cpu.A); return 0 }
func (cpu *CPU) stx(address uint16) uint8 { cpu.memory.Write(address, cpu.X); return 0 }
func (cpu *CPU) sty(address uint16) uint8 { cpu.memory.Write(address, cpu.Y); return 0 }

// --- Arithmetic ---

func (cpu *CPU) adc(address uint16) uint8 {
	value := cpu.memory.Read(address)
	carry := uint8(0)
	if cpu.C {
		carry = 1
	}
	result := uint16(cpu.A) + uint16(value) + uint16(carry)
	cpu.V = ((cpu.A^uint8(result))&0x80) != 0 && ((cpu.A^value)&0x80) == 0
	cpu.C = result > 0xFF
	cpu.A = uint8(result)
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) sbc(address uint16) uint8 {
	value := cpu.memory.Read(address) ^ 0xFF
	carry := uint8(0)
	if cpu.C {
		carry = 1
	}
	result := uint16(cpu.A) + uint16(value) + uint16(carry)
	cpu.V = ((cpu.A^uint8(result))&0x80) != 0 && ((cpu.A^value)&0x80) == 0
	cpu.C = result > 0xFF
	cpu.A = uint8(result)
	cpu.setZN(cpu.A)
	return 0
}

// --- Logical ---

func (cpu *CPU) and(address uint16) uint8 { cpu.A &= cpu.memory.Read(address); cpu.setZN(cpu.A); return 0 }
func (cpu *CPU) ora(address uint16) uint8 { cpu.A |= cpu.memory.Read(address); cpu.setZN(cpu.A); return 0 }
func (cpu *CPU) eor(address uint16) uint8 { cpu.A ^= cpu.memory.Read(address); cpu.setZN(cpu.A); return 0 }

// --- Shift / rotate (memory operand) ---

func (cpu *CPU) asl(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = (value & 0x80) != 0
	value <<= 1
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) lsr(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = (value & 0x01) != 0
	value >>= 1
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) rol(address uint16) uint8 {
	value := cpu.memory.Read(address)
	oldCarry := cpu.C
	cpu.C = (value & 0x80) != 0
	value <<= 1
	if oldCarry {
		value |= 0x01
	}
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) ror(address uint16) uint8 {
	value := cpu.memory.Read(address)
	oldCarry := cpu.C
	cpu.C = (value & 0x01) != 0
	value >>= 1
	if oldCarry {
		value |= 0x80
	}
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

// --- Shift / rotate (accumulator operand) ---

func (cpu *CPU) aslAcc() uint8 {
	cpu.C = (cpu.A & 0x80) != 0
	cpu.A <<= 1
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) lsrAcc() uint8 {
	cpu.C = (cpu.A & 0x01) != 0
	cpu.A >>= 1
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) rolAcc() uint8 {
	oldCarry := cpu.C
	cpu.C = (cpu.A & 0x80) != 0
	cpu.A <<= 1
	if oldCarry {
		cpu.A |= 0x01
	}
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) rorAcc() uint8 {
	oldCarry := cpu.C
	cpu.C = (cpu.A & 0x01) != 0
	cpu.A >>= 1
	if oldCarry {
		cpu.A |= 0x80
	}
	cpu.setZN(cpu.A)
	return 0
}

// --- Compare ---

func (cpu *CPU) cmp(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = cpu.A >= value
	cpu.setZN(cpu.A - value)
	return 0
}

func (cpu *CPU) cpx(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = cpu.X >= value
	cpu.setZN(cpu.X - value)
	return 0
}

func (cpu *CPU) cpy(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = cpu.Y >= value
	cpu.setZN(cpu.Y - value)
	return 0
}

// --- Increment / decrement ---

func (cpu *CPU) inc(address uint16) uint8 {
	value := cpu.memory.Read(address) + 1
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) dec(address uint16) uint8 {
	value := cpu.memory.Read(address) - 1
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) inx() uint8 { cpu.X++; cpu.setZN(cpu.X); return 0 }
func (cpu *CPU) dex() uint8 { cpu.X--; cpu.setZN(cpu.X); return 0 }
func (cpu *CPU) iny() uint8 { cpu.Y++; cpu.setZN(cpu.Y); return 0 }
func (cpu *CPU) dey() uint8 { cpu.Y--; cpu.setZN(cpu.Y); return 0 }

// --- Register transfers ---

func (cpu *CPU) tax() uint8 { cpu.X = cpu.A; cpu.setZN(cpu.X); return 0 }
func (cpu *CPU) txa() uint8 { cpu.A = cpu.X; cpu.setZN(cpu.A); return 0 }
func (cpu *CPU) tay() uint8 { cpu.Y = cpu.A; cpu.setZN(cpu.Y); return 0 }
func (cpu *CPU) tya() uint8 { cpu.A = cpu.Y; cpu.setZN(cpu.A); return 0 }
func (cpu *CPU) tsx() uint8 { cpu.X = cpu.SP; cpu.setZN(cpu.X); return 0 }
func (cpu *CPU) txs() uint8 { cpu.SP = cpu.X; return 0 }

// --- Stack ---

func (cpu *CPU) pha() uint8 { cpu.push(cpu.A); return 0 }
func (cpu *CPU) pla() uint8 { cpu.A = cpu.pop(); cpu.setZN(cpu.A); return 0 }
func (cpu *CPU) php() uint8 { cpu.push(cpu.GetStatusByte() | bFlagMask); return 0 }
func (cpu *CPU) plp() uint8 { cpu.SetStatusByte(cpu.pop()); return 0 }

// --- Flags ---

func (cpu *CPU) clc() uint8 { cpu.C = false; return 0 }
func (cpu *CPU) sec() uint8 { cpu.C = true; return 0 }
func (cpu *CPU) cli() uint8 { cpu.I = false; return 0 }
func (cpu *CPU) sei() uint8 { cpu.I = true; return 0 }
func (cpu *CPU) clv() uint8 { cpu.V = false; return 0 }
func (cpu *CPU) cld() uint8 { cpu.D = false; return 0 }
func (cpu *CPU) sed() uint8 { cpu.D = true; return 0 }

// --- Control flow ---

func (cpu *CPU) jmp(address uint16) uint8 { cpu.PC = address; return 0 }

func (cpu *CPU) jsr(address uint16) uint8 {
	cpu.pushWord(cpu.PC - 1)
	cpu.PC = address
	return 0
}

func (cpu *CPU) rts() uint8 { cpu.PC = cpu.popWord() + 1; return 0 }

func (cpu *CPU) rti() uint8 {
	cpu.SetStatusByte(cpu.pop())
	cpu.PC = cpu.popWord()
	return 0
}

// branch applies a conditional jump, returning the 1-cycle taken bonus plus
// a further 1-cycle bonus if taking the branch also crosses a page.
func (cpu *CPU) branch(take bool, address uint16, pageCrossed bool) uint8 {
	if !take {
		return 0
	}
	cpu.PC = address
	if pageCrossed {
		return 2
	}
	return 1
}

func (cpu *CPU) bcc(a uint16, p bool) uint8 { return cpu.branch(!cpu.C, a, p) }
func (cpu *CPU) bcs(a uint16, p bool) uint8 { return cpu.branch(cpu.C, a, p) }
func (cpu *CPU) bne(a uint16, p bool) uint8 { return cpu.branch(!cpu.Z, a, p) }
func (cpu *CPU) beq(a uint16, p bool) uint8 { return cpu.branch(cpu.Z, a, p) }
func (cpu *CPU) bpl(a uint16, p bool) uint8 { return cpu.branch(!cpu.N, a, p) }
func (cpu *CPU) bmi(a uint16, p bool) uint8 { return cpu.branch(cpu.N, a, p) }
func (cpu *CPU) bvc(a uint16, p bool) uint8 { return cpu.branch(!cpu.V, a, p) }
func (cpu *CPU) bvs(a uint16, p bool) uint8 { return cpu.branch(cpu.V, a, p) }

// --- Misc ---

func (cpu *CPU) bit(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.N = (value & nFlagMask) != 0
	cpu.V = (value & vFlagMask) != 0
	cpu.Z = (cpu.A & value) == 0
	return 0
}

func (cpu *CPU) nop() uint8 { return 0 }

// brk handles the BRK software interrupt. getOperandAddress's Implied-mode
// handling already advanced PC by 1 for BRK's padding byte; the pushed
// return address must reflect BRK's 2-byte encoding, so PC is bumped once
// more here before it's saved.
func (cpu *CPU) brk() uint8 {
	cpu.PC++
	cpu.pushWord(cpu.PC)
	cpu.push(cpu.GetStatusByte() | bFlagMask)
	cpu.I = true
	low := uint16(cpu.memory.Read(irqVector))
	high := uint16(cpu.memory.Read(irqVector + 1))
	cpu.PC = (high << 8) | low
	return 0
}

// --- Unofficial opcodes ---

func (cpu *CPU) lax(address uint16) uint8 {
	cpu.A = cpu.memory.Read(address)
	cpu.X = cpu.A
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) sax(address uint16) uint8 { cpu.memory.Write(address, cpu.A&cpu.X); return 0 }

func (cpu *CPU) dcp(address uint16) uint8 {
	value := cpu.memory.Read(address) - 1
	cpu.memory.Write(address, value)
	cpu.C = cpu.A >= value
	cpu.setZN(cpu.A - value)
	return 0
}

// isb increments memory then feeds the result into SBC, which re-reads the
// address it was just written to.
func (cpu *CPU) isb(address uint16) uint8 {
	value := cpu.memory.Read(address) + 1
	cpu.memory.Write(address, value)
	cpu.sbc(address)
	return 0
}

func (cpu *CPU) slo(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = (value & 0x80) != 0
	value <<= 1
	cpu.memory.Write(address, value)
	cpu.A |= value
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) rla(address uint16) uint8 {
	value := cpu.memory.Read(address)
	oldCarry := cpu.C
	cpu.C = (value & 0x80) != 0
	value <<= 1
	if oldCarry {
		value |= 0x01
	}
	cpu.memory.Write(address, value)
	cpu.A &= value
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) sre(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = (value & 0x01) != 0
	value >>= 1
	cpu.memory.Write(address, value)
	cpu.A ^= value
	cpu.setZN(cpu.A)
	return 0
}

// rra rotates memory right then feeds the result into ADC, which re-reads
// the address it was just written to.
func (cpu *CPU) rra(address uint16) uint8 {
	value := cpu.memory.Read(address)
	oldCarry := cpu.C
	cpu.C = (value & 0x01) != 0
	value >>= 1
	if oldCarry {
		value |= 0x80
	}
	cpu.memory.Write(address, value)
	cpu.adc(address)
	return 0
}

// jam represents the 6502's undocumented KIL/JAM opcodes, which lock the
// processor on real hardware; there's no bus state to return to, so this
// emulator surfaces it as a panic rather than silently idling forever.
func jam(opByte uint8) opHandler {
	return func(cpu *CPU, address uint16, pageCrossed bool) uint8 {
		panic(fmt.Sprintf("KIL/JAM opcode $%02X executed at $%04X: CPU halted", opByte, cpu.PC-1))
	}
}

// op0 / op1 / opB adapt instruction methods of different arities to the
// uniform opHandler signature the dispatch table stores.
func op0(f func(cpu *CPU) uint8) opHandler {
	return func(cpu *CPU, address uint16, pageCrossed bool) uint8 { return f(cpu) }
}

func op1(f func(cpu *CPU, address uint16) uint8) opHandler {
	return func(cpu *CPU, address uint16, pageCrossed bool) uint8 { return f(cpu, address) }
}

func opB(f func(cpu *CPU, address uint16, pageCrossed bool) uint8) opHandler {
	return f
}

// opcodeTable is the full 256-entry 6502 dispatch table: mnemonic, operand
// addressing mode, base cycle count, whether a crossed page on an indexed
// access costs an extra cycle, and the handler. Built once at package load
// rather than per-CPU-instance.
var opcodeTable = buildOpcodeTable()

func buildOpcodeTable() [256]opcode {
	var t [256]opcode

	set := func(code uint8, name string, mode AddressingMode, cycles uint8, pageCross bool, h opHandler) {
		t[code] = opcode{name, mode, cycles, pageCross, h}
	}

	// Load/Store
	set(0xA9, "LDA", Immediate, 2, false, op1((*CPU).lda))
	set(0xA5, "LDA", ZeroPage, 3, false, op1((*CPU).lda))
	set(0xB5, "LDA", ZeroPageX, 4, false, op1((*CPU).lda))
	set(0xAD, "LDA", Absolute, 4, false, op1((*CPU).lda))
	set(0xBD, "LDA", AbsoluteX, 4, true, op1((*CPU).lda))
	set(0xB9, "LDA", AbsoluteY, 4, true, op1((*CPU).lda))
	set(0xA1, "LDA", IndexedIndirect, 6, false, op1((*CPU).lda))
	set(0xB1, "LDA", IndirectIndexed, 5, true, op1((*CPU).lda))

	set(0xA2, "LDX", Immediate, 2, false, op1((*CPU).ldx))
	set(0xA6, "LDX", ZeroPage, 3, false, op1((*CPU).ldx))
	set(0xB6, "LDX", ZeroPageY, 4, false, op1((*CPU).ldx))
	set(0xAE, "LDX", Absolute, 4, false, op1((*CPU).ldx))
	set(0xBE, "LDX", AbsoluteY, 4, true, op1((*CPU).ldx))

	set(0xA0, "LDY", Immediate, 2, false, op1((*CPU).ldy))
	set(0xA4, "LDY", ZeroPage, 3, false, op1((*CPU).ldy))
	set(0xB4, "LDY", ZeroPageX, 4, false, op1((*CPU).ldy))
	set(0xAC, "LDY", Absolute, 4, false, op1((*CPU).ldy))
	set(0xBC, "LDY", AbsoluteX, 4, true, op1((*CPU).ldy))

	set(0x85, "STA", ZeroPage, 3, false, op1((*CPU).sta))
	set(0x95, "STA", ZeroPageX, 4, false, op1((*CPU).sta))
	set(0x8D, "STA", Absolute, 4, false, op1((*CPU).sta))
	set(0x9D, "STA", AbsoluteX, 5, true, op1((*CPU).sta))
	set(0x99, "STA", AbsoluteY, 5, true, op1((*CPU).sta))
	set(0x81, "STA", IndexedIndirect, 6, false, op1((*CPU).sta))
	set(0x91, "STA", IndirectIndexed, 6, true, op1((*CPU).sta))

	set(0x86, "STX", ZeroPage, 3, false, op1((*CPU).stx))
	set(0x96, "STX", ZeroPageY, 4, false, op1((*CPU).stx))
	set(0x8E, "STX", Absolute, 4, false, op1((*CPU).stx))

	set(0x84, "STY", ZeroPage, 3, false, op1((*CPU).sty))
	set(0x94, "STY", ZeroPageX, 4, false, op1((*CPU).sty))
	set(0x8C, "STY", Absolute, 4, false, op1((*CPU).sty))

	// Arithmetic
	set(0x69, "ADC", Immediate, 2, false, op1((*CPU).adc))
	set(0x65, "ADC", ZeroPage, 3, false, op1((*CPU).adc))
	set(0x75, "ADC", ZeroPageX, 4, false, op1((*CPU).adc))
	set(0x6D, "ADC", Absolute, 4, false, op1((*CPU).adc))
	set(0x7D, "ADC", AbsoluteX, 4, true, op1((*CPU).adc))
	set(0x79, "ADC", AbsoluteY, 4, true, op1((*CPU).adc))
	set(0x61, "ADC", IndexedIndirect, 6, false, op1((*CPU).adc))
	set(0x71, "ADC", IndirectIndexed, 5, true, op1((*CPU).adc))

	set(0xE9, "SBC", Immediate, 2, false, op1((*CPU).sbc))
	set(0xEB, "SBC", Immediate, 2, false, op1((*CPU).sbc)) // unofficial duplicate
	set(0xE5, "SBC", ZeroPage, 3, false, op1((*CPU).sbc))
	set(0xF5, "SBC", ZeroPageX, 4, false, op1((*CPU).sbc))
	set(0xED, "SBC", Absolute, 4, false, op1((*CPU).sbc))
	set(0xFD, "SBC", AbsoluteX, 4, true, op1((*CPU).sbc))
	set(0xF9, "SBC", AbsoluteY, 4, true, op1((*CPU).sbc))
	set(0xE1, "SBC", IndexedIndirect, 6, false, op1((*CPU).sbc))
	set(0xF1, "SBC", IndirectIndexed, 5, true, op1((*CPU).sbc))

	// Logical
	set(0x29, "AND", Immediate, 2, false, op1((*CPU).and))
	set(0x25, "AND", ZeroPage, 3, false, op1((*CPU).and))
	set(0x35, "AND", ZeroPageX, 4, false, op1((*CPU).and))
	set(0x2D, "AND", Absolute, 4, false, op1((*CPU).and))
	set(0x3D, "AND", AbsoluteX, 4, true, op1((*CPU).and))
	set(0x39, "AND", AbsoluteY, 4, true, op1((*CPU).and))
	set(0x21, "AND", IndexedIndirect, 6, false, op1((*CPU).and))
	set(0x31, "AND", IndirectIndexed, 5, true, op1((*CPU).and))

	set(0x09, "ORA", Immediate, 2, false, op1((*CPU).ora))
	set(0x05, "ORA", ZeroPage, 3, false, op1((*CPU).ora))
	set(0x15, "ORA", ZeroPageX, 4, false, op1((*CPU).ora))
	set(0x0D, "ORA", Absolute, 4, false, op1((*CPU).ora))
	set(0x1D, "ORA", AbsoluteX, 4, true, op1((*CPU).ora))
	set(0x19, "ORA", AbsoluteY, 4, true, op1((*CPU).ora))
	set(0x01, "ORA", IndexedIndirect, 6, false, op1((*CPU).ora))
	set(0x11, "ORA", IndirectIndexed, 5, true, op1((*CPU).ora))

	set(0x49, "EOR", Immediate, 2, false, op1((*CPU).eor))
	set(0x45, "EOR", ZeroPage, 3, false, op1((*CPU).eor))
	set(0x55, "EOR", ZeroPageX, 4, false, op1((*CPU).eor))
	set(0x4D, "EOR", Absolute, 4, false, op1((*CPU).eor))
	set(0x5D, "EOR", AbsoluteX, 4, true, op1((*CPU).eor))
	set(0x59, "EOR", AbsoluteY, 4, true, op1((*CPU).eor))
	set(0x41, "EOR", IndexedIndirect, 6, false, op1((*CPU).eor))
	set(0x51, "EOR", IndirectIndexed, 5, true, op1((*CPU).eor))

	// Shift / rotate
	set(0x0A, "ASL", Accumulator, 2, false, op0((*CPU).aslAcc))
	set(0x06, "ASL", ZeroPage, 5, false, op1((*CPU).asl))
	set(0x16, "ASL", ZeroPageX, 6, false, op1((*CPU).asl))
	set(0x0E, "ASL", Absolute, 6, false, op1((*CPU).asl))
	set(0x1E, "ASL", AbsoluteX, 7, false, op1((*CPU).asl))

	set(0x4A, "LSR", Accumulator, 2, false, op0((*CPU).lsrAcc))
	set(0x46, "LSR", ZeroPage, 5, false, op1((*CPU).lsr))
	set(0x56, "LSR", ZeroPageX, 6, false, op1((*CPU).lsr))
	set(0x4E, "LSR", Absolute, 6, false, op1((*CPU).lsr))
	set(0x5E, "LSR", AbsoluteX, 7, false, op1((*CPU).lsr))

	set(0x2A, "ROL", Accumulator, 2, false, op0((*CPU).rolAcc))
	set(0x26, "ROL", ZeroPage, 5, false, op1((*CPU).rol))
	set(0x36, "ROL", ZeroPageX, 6, false, op1((*CPU).rol))
	set(0x2E, "ROL", Absolute, 6, false, op1((*CPU).rol))
	set(0x3E, "ROL", AbsoluteX, 7, false, op1((*CPU).rol))

	set(0x6A, "ROR", Accumulator, 2, false, op0((*CPU).rorAcc))
	set(0x66, "ROR", ZeroPage, 5, false, op1((*CPU).ror))
	set(0x76, "ROR", ZeroPageX, 6, false, op1((*CPU).ror))
	set(0x6E, "ROR", Absolute, 6, false, op1((*CPU).ror))
	set(0x7E, "ROR", AbsoluteX, 7, false, op1((*CPU).ror))

	// Compare
	set(0xC9, "CMP", Immediate, 2, false, op1((*CPU).cmp))
	set(0xC5, "CMP", ZeroPage, 3, false, op1((*CPU).cmp))
	set(0xD5, "CMP", ZeroPageX, 4, false, op1((*CPU).cmp))
	set(0xCD, "CMP", Absolute, 4, false, op1((*CPU).cmp))
	set(0xDD, "CMP", AbsoluteX, 4, true, op1((*CPU).cmp))
	set(0xD9, "CMP", AbsoluteY, 4, true, op1((*CPU).cmp))
	set(0xC1, "CMP", IndexedIndirect, 6, false, op1((*CPU).cmp))
	set(0xD1, "CMP", IndirectIndexed, 5, true, op1((*CPU).cmp))

	set(0xE0, "CPX", Immediate, 2, false, op1((*CPU).cpx))
	set(0xE4, "CPX", ZeroPage, 3, false, op1((*CPU).cpx))
	set(0xEC, "CPX", Absolute, 4, false, op1((*CPU).cpx))

	set(0xC0, "CPY", Immediate, 2, false, op1((*CPU).cpy))
	set(0xC4, "CPY", ZeroPage, 3, false, op1((*CPU).cpy))
	set(0xCC, "CPY", Absolute, 4, false, op1((*CPU).cpy))

	// Increment / decrement
	set(0xE6, "INC", ZeroPage, 5, false, op1((*CPU).inc))
	set(0xF6, "INC", ZeroPageX, 6, false, op1((*CPU).inc))
	set(0xEE, "INC", Absolute, 6, false, op1((*CPU).inc))
	set(0xFE, "INC", AbsoluteX, 7, false, op1((*CPU).inc))

	set(0xC6, "DEC", ZeroPage, 5, false, op1((*CPU).dec))
	set(0xD6, "DEC", ZeroPageX, 6, false, op1((*CPU).dec))
	set(0xCE, "DEC", Absolute, 6, false, op1((*CPU).dec))
	set(0xDE, "DEC", AbsoluteX, 7, false, op1((*CPU).dec))

	set(0xE8, "INX", Implied, 2, false, op0((*CPU).inx))
	set(0xCA, "DEX", Implied, 2, false, op0((*CPU).dex))
	set(0xC8, "INY", Implied, 2, false, op0((*CPU).iny))
	set(0x88, "DEY", Implied, 2, false, op0((*CPU).dey))

	// Register transfers
	set(0xAA, "TAX", Implied, 2, false, op0((*CPU).tax))
	set(0x8A, "TXA", Implied, 2, false, op0((*CPU).txa))
	set(0xA8, "TAY", Implied, 2, false, op0((*CPU).tay))
	set(0x98, "TYA", Implied, 2, false, op0((*CPU).tya))
	set(0xBA, "TSX", Implied, 2, false, op0((*CPU).tsx))
	set(0x9A, "TXS", Implied, 2, false, op0((*CPU).txs))

	// Stack
	set(0x48, "PHA", Implied, 3, false, op0((*CPU).pha))
	set(0x68, "PLA", Implied, 4, false, op0((*CPU).pla))
	set(0x08, "PHP", Implied, 3, false, op0((*CPU).php))
	set(0x28, "PLP", Implied, 4, false, op0((*CPU).plp))

	// Flags
	set(0x18, "CLC", Implied, 2, false, op0((*CPU).clc))
	set(0x38, "SEC", Implied, 2, false, op0((*CPU).sec))
	set(0x58, "CLI", Implied, 2, false, op0((*CPU).cli))
	set(0x78, "SEI", Implied, 2, false, op0((*CPU).sei))
	set(0xB8, "CLV", Implied, 2, false, op0((*CPU).clv))
	set(0xD8, "CLD", Implied, 2, false, op0((*CPU).cld))
	set(0xF8, "SED", Implied, 2, false, op0((*CPU).sed))

	// Control flow
	set(0x4C, "JMP", Absolute, 3, false, op1((*CPU).jmp))
	set(0x6C, "JMP", Indirect, 5, false, op1((*CPU).jmp))
	set(0x20, "JSR", Absolute, 6, false, op1((*CPU).jsr))
	set(0x60, "RTS", Implied, 6, false, op0((*CPU).rts))
	set(0x40, "RTI", Implied, 6, false, op0((*CPU).rti))

	// Branches
	set(0x90, "BCC", Relative, 2, false, opB((*CPU).bcc))
	set(0xB0, "BCS", Relative, 2, false, opB((*CPU).bcs))
	set(0xD0, "BNE", Relative, 2, false, opB((*CPU).bne))
	set(0xF0, "BEQ", Relative, 2, false, opB((*CPU).beq))
	set(0x10, "BPL", Relative, 2, false, opB((*CPU).bpl))
	set(0x30, "BMI", Relative, 2, false, opB((*CPU).bmi))
	set(0x50, "BVC", Relative, 2, false, opB((*CPU).bvc))
	set(0x70, "BVS", Relative, 2, false, opB((*CPU).bvs))

	// Misc
	set(0x24, "BIT", ZeroPage, 3, false, op1((*CPU).bit))
	set(0x2C, "BIT", Absolute, 4, false, op1((*CPU).bit))
	set(0x00, "BRK", Implied, 7, false, op0((*CPU).brk))

	// Official + unofficial NOPs
	for _, code := range []uint8{0xEA, 0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA} {
		set(code, "NOP", Implied, 2, false, op0((*CPU).nop))
	}
	for _, code := range []uint8{0x80, 0x82, 0x89, 0xC2, 0xE2} {
		set(code, "NOP", Immediate, 2, false, op0((*CPU).nop))
	}
	for _, code := range []uint8{0x04, 0x44, 0x64} {
		set(code, "NOP", ZeroPage, 3, false, op0((*CPU).nop))
	}
	for _, code := range []uint8{0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4} {
		set(code, "NOP", ZeroPageX, 4, false, op0((*CPU).nop))
	}
	set(0x0C, "NOP", Absolute, 4, false, op0((*CPU).nop))
	for _, code := range []uint8{0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC} {
		set(code, "NOP", AbsoluteX, 4, true, op0((*CPU).nop))
	}

	// Unofficial: LAX
	set(0xA7, "LAX", ZeroPage, 3, false, op1((*CPU).lax))
	set(0xB7, "LAX", ZeroPageY, 4, false, op1((*CPU).lax))
	set(0xAF, "LAX", Absolute, 4, false, op1((*CPU).lax))
	set(0xBF, "LAX", AbsoluteY, 4, true, op1((*CPU).lax))
	set(0xA3, "LAX", IndexedIndirect, 6, false, op1((*CPU).lax))
	set(0xB3, "LAX", IndirectIndexed, 5, true, op1((*CPU).lax))

	// Unofficial: SAX
	set(0x87, "SAX", ZeroPage, 3, false, op1((*CPU).sax))
	set(0x97, "SAX", ZeroPageY, 4, false, op1((*CPU).sax))
	set(0x8F, "SAX", Absolute, 4, false, op1((*CPU).sax))
	set(0x83, "SAX", IndexedIndirect, 6, false, op1((*CPU).sax))

	// Unofficial read-modify-write combos: DCP, ISB, SLO, RLA, SRE, RRA.
	// Every addressing mode they support costs an extra cycle on a crossed
	// page the same way the corresponding read instruction would, even
	// though zero-page/absolute modes can never actually report a crossing.
	type rmw struct {
		name string
		h    func(*CPU, uint16) uint8
	}
	for _, c := range []rmw{
		{"DCP", (*CPU).dcp}, {"ISB", (*CPU).isb}, {"SLO", (*CPU).slo},
		{"RLA", (*CPU).rla}, {"SRE", (*CPU).sre}, {"RRA", (*CPU).rra},
	} {
		h := op1(c.h)
		base := rmwBase[c.name]
		set(base.zp, c.name, ZeroPage, 5, false, h)
		set(base.zpx, c.name, ZeroPageX, 6, false, h)
		set(base.abs, c.name, Absolute, 6, false, h)
		set(base.absx, c.name, AbsoluteX, 7, true, h)
		set(base.absy, c.name, AbsoluteY, 7, true, h)
		set(base.idx, c.name, IndexedIndirect, 8, true, h)
		set(base.idy, c.name, IndirectIndexed, 8, true, h)
	}

	for _, code := range []uint8{0x02, 0x12, 0x22, 0x32, 0x42, 0x52, 0x62, 0x72, 0x92, 0xB2, 0xD2, 0xF2} {
		set(code, "JAM", Implied, 2, false, jam(code))
	}

	return t
}

// rmwBase holds the seven opcode values (by addressing mode) for each
// unofficial read-modify-write mnemonic, keeping buildOpcodeTable's loop
// free of per-mnemonic magic numbers.
var rmwBase = map[string]struct{ zp, zpx, abs, absx, absy, idx, idy uint8 }{
	"DCP": {0xC7, 0xD7, 0xCF, 0xDF, 0xDB, 0xC3, 0xD3},
	"ISB": {0xE7, 0xF7, 0xEF, 0xFF, 0xFB, 0xE3, 0xF3},
	"SLO": {0x07, 0x17, 0x0F, 0x1F, 0x1B, 0x03, 0x13},
	"RLA": {0x27, 0x37, 0x2F, 0x3F, 0x3B, 0x23, 0x33},
	"SRE": {0x47, 0x57, 0x4F, 0x5F, 0x5B, 0x43, 0x53},
	"RRA": {0x67, 0x77, 0x6F, 0x7F, 0x7B, 0x63, 0x73},
}
