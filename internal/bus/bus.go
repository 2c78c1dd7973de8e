// Package bus implements the NES system bus: CPU address decoding, PPU/APU
// register routing, OAM DMA, and the whole-system timing loop that keeps
// the PPU stepping at 3x the CPU's rate.
package bus

import (
	"fmt"
	"io"

	"gones/internal/apu"
	"gones/internal/cartridge"
	"gones/internal/cpu"
	"gones/internal/input"
	"gones/internal/ppu"
	"gones/internal/render"
)

// Cartridge is the subset of cartridge.Cartridge the bus depends on.
type Cartridge interface {
	ReadPRG(address uint16) uint8
	WritePRG(address uint16, value uint8)
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
	GetMirrorMode() cartridge.MirrorMode
}

// Bus connects the CPU, PPU, APU, input and cartridge, and implements
// cpu.MemoryInterface directly over the CPU address space.
type Bus struct {
	CPU      *cpu.CPU
	PPU      *ppu.PPU
	APU      *apu.APU
	Renderer *render.Renderer
	Input    *input.InputState
	cart     Cartridge

	ram [0x800]uint8

	openBusValue uint8

	totalCycles uint64
	cpuCycles   uint64
	ppuCycles   uint64
	frameCount  uint64

	dmaSuspendCycles uint64
	dmaInProgress    bool
	nmiPending       bool

	trace          io.Writer
	loggingEnabled bool
	executionLog   []BusExecutionEvent
}

// BusExecutionEvent records the cycle counts after one Bus.Step call, for
// tests that need to verify the CPU/PPU 3:1 cycle relationship, plus the PC
// and opcode of the instruction that step ran (both zero for a DMA-stall step).
type BusExecutionEvent struct {
	CPUCycles     uint64
	PPUCycles     uint64
	PCValue       uint16
	InstructionOp uint8
}

// New creates a new system bus with all components wired together but no
// cartridge loaded.
func New() *Bus {
	b := &Bus{
		PPU:   ppu.New(),
		APU:   apu.New(),
		Input: input.NewInputState(),
	}
	b.Renderer = render.New(b.PPU)
	b.CPU = cpu.New(b)

	b.PPU.SetNMICallback(b.triggerNMI)
	b.PPU.SetFrameCompleteCallback(b.handleFrameComplete)
	b.PPU.SetScanlineCompleteCallback(b.Renderer.RenderScanline)

	b.Reset()
	return b
}

// Reset resets all components to their initial state.
func (b *Bus) Reset() {
	b.initializePowerUpRAM()

	b.CPU.Reset()
	b.PPU.Reset()
	b.APU.Reset()
	b.Input.Reset()
	b.Renderer.Clear()

	b.totalCycles = 0
	b.cpuCycles = 0
	b.ppuCycles = 0
	b.frameCount = 0
	b.dmaSuspendCycles = 0
	b.dmaInProgress = false
	b.nmiPending = false

	b.PPU.SetFrameCount(0)
}

// initializePowerUpRAM fills RAM with a fixed non-zero pattern rather than
// zeroing it, so code that incorrectly assumes zeroed RAM on power-up fails
// the same way it would on real hardware instead of silently working.
func (b *Bus) initializePowerUpRAM() {
	for i := range b.ram {
		if i%2 == 0 {
			b.ram[i] = 0x00
		} else {
			b.ram[i] = 0xFF
		}
	}
}

func (b *Bus) triggerNMI() {
	b.nmiPending = true
}

func (b *Bus) handleFrameComplete() {
	b.frameCount = b.PPU.GetFrameCount()
}

// LoadCartridge installs a cartridge and resets the system, deriving the
// PPU's mirroring mode from the mapper rather than caching it at load time
// (MMC1 can change mirroring at runtime).
func (b *Bus) LoadCartridge(cart Cartridge) {
	b.cart = cart
	b.PPU.SetCartridge(cartAdapter{cart})
	b.PPU.SetMirroring(toPPUMirror(cart.GetMirrorMode()))
	b.CPU.Reset()
}

// cartAdapter narrows Cartridge to ppu.Cartridge's CHR-only surface.
type cartAdapter struct{ Cartridge }

func toPPUMirror(m cartridge.MirrorMode) ppu.MirrorMode {
	switch m {
	case cartridge.MirrorVertical:
		return ppu.MirrorVertical
	case cartridge.MirrorSingleScreen0:
		return ppu.MirrorSingleScreen0
	case cartridge.MirrorSingleScreen1:
		return ppu.MirrorSingleScreen1
	case cartridge.MirrorFourScreen:
		return ppu.MirrorFourScreen
	default:
		return ppu.MirrorHorizontal
	}
}

// Read implements cpu.MemoryInterface over the full CPU address space.
func (b *Bus) Read(address uint16) uint8 {
	var value uint8
	switch {
	case address < 0x2000:
		value = b.ram[address&0x07FF]

	case address < 0x4000:
		value = b.PPU.ReadRegister(0x2000 + (address & 0x0007))
		if address&0x0007 != 2 && address&0x0007 != 4 && address&0x0007 != 7 {
			// Write-only registers report open bus via PPU itself.
		}

	case address == 0x4015:
		value = b.APU.ReadStatus()

	case address == 0x4016 || address == 0x4017:
		value = b.Input.Read(address)

	case address < 0x4020:
		value = b.openBusValue

	case address >= 0x6000 && address < 0x8000:
		if b.cart != nil {
			value = b.cart.ReadPRG(address)
		} else {
			value = b.openBusValue
		}

	case address < 0x8000:
		value = b.openBusValue

	default:
		if b.cart != nil {
			value = b.cart.ReadPRG(address)
		} else {
			value = b.openBusValue
		}
	}

	b.openBusValue = value
	return value
}

// Write implements cpu.MemoryInterface over the full CPU address space.
func (b *Bus) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		b.ram[address&0x07FF] = value

	case address < 0x4000:
		b.PPU.WriteRegister(0x2000+(address&0x0007), value)

	case address == 0x4014:
		b.TriggerOAMDMA(value)

	case address == 0x4016:
		b.Input.Write(address, value)

	case address >= 0x4000 && address <= 0x4013, address == 0x4015, address == 0x4017:
		b.APU.WriteRegister(address, value)

	case address >= 0x6000 && address < 0x8000:
		if b.cart != nil {
			b.cart.WritePRG(address, value)
		}

	case address < 0x8000:
		// unmapped expansion area

	default:
		if b.cart != nil {
			b.cart.WritePRG(address, value)
		}
	}

	if b.trace != nil {
		fmt.Fprintf(b.trace, "W $%04X = $%02X\n", address, value)
	}
}

// Trace directs a log of every CPU-bus write to w. Pass nil to disable.
func (b *Bus) Trace(w io.Writer) {
	b.trace = w
}

// Step executes one CPU instruction and advances PPU/APU accordingly.
func (b *Bus) Step() {
	var cpuCycles uint64
	var pc uint16
	var op uint8

	if b.dmaSuspendCycles > 0 {
		cpuCycles = 1
		b.dmaSuspendCycles--
		if b.dmaSuspendCycles == 0 {
			b.dmaInProgress = false
		}
	} else {
		if b.nmiPending {
			b.CPU.TriggerNMI()
			b.nmiPending = false
		}
		if b.loggingEnabled {
			pc = b.CPU.PC
			op = b.Read(pc)
		}
		cpuCycles = b.CPU.Step()
	}

	ppuCyclesToRun := cpuCycles * 3
	for i := uint64(0); i < ppuCyclesToRun; i++ {
		b.PPU.Step()
		b.ppuCycles++
	}

	for i := uint64(0); i < cpuCycles; i++ {
		b.APU.Step()
	}

	b.cpuCycles += cpuCycles
	b.totalCycles += cpuCycles

	if b.loggingEnabled {
		b.executionLog = append(b.executionLog, BusExecutionEvent{
			CPUCycles:     b.cpuCycles,
			PPUCycles:     b.ppuCycles,
			PCValue:       pc,
			InstructionOp: op,
		})
	}
}

// EnableExecutionLogging starts recording a BusExecutionEvent after every
// Step call.
func (b *Bus) EnableExecutionLogging() {
	b.loggingEnabled = true
}

// DisableExecutionLogging stops recording execution events.
func (b *Bus) DisableExecutionLogging() {
	b.loggingEnabled = false
}

// ClearExecutionLog discards all recorded execution events.
func (b *Bus) ClearExecutionLog() {
	b.executionLog = nil
}

// GetExecutionLog returns the recorded execution events.
func (b *Bus) GetExecutionLog() []BusExecutionEvent {
	return b.executionLog
}

// TriggerOAMDMA performs an OAM DMA transfer. Real hardware takes 513 or
// 514 cycles depending on CPU parity; this emulator uses the flat 513-cycle
// figure, which is close enough that no game depends on the one-cycle
// difference.
func (b *Bus) TriggerOAMDMA(sourcePage uint8) {
	if b.dmaInProgress {
		return
	}

	b.dmaInProgress = true
	b.dmaSuspendCycles = 513

	sourceAddress := uint16(sourcePage) << 8
	for i := 0; i < 256; i++ {
		data := b.Read(sourceAddress + uint16(i))
		b.PPU.WriteOAM(uint8(i), data)
	}
}

// Run runs the emulator for a specified number of frames.
func (b *Bus) Run(frames int) {
	targetFrames := b.frameCount + uint64(frames)
	for b.frameCount < targetFrames {
		b.Step()
	}
}

// RunCycles runs the emulator for a specified number of CPU cycles.
func (b *Bus) RunCycles(cycles uint64) {
	targetCycles := b.cpuCycles + cycles
	for b.cpuCycles < targetCycles {
		b.Step()
	}
}

// Frame executes one complete NTSC frame worth of CPU cycles.
func (b *Bus) Frame() {
	targetCycles := b.cpuCycles + 29781
	for b.cpuCycles < targetCycles {
		b.Step()
	}
}

// GetFrameRate returns the NTSC frame rate.
func (b *Bus) GetFrameRate() float64 {
	return 60.098803
}

// GetFrameBuffer returns the current composited frame.
func (b *Bus) GetFrameBuffer() []uint32 {
	frameBuffer := b.Renderer.GetFrameBuffer()
	return frameBuffer[:]
}

// GetChannelSamples returns the accumulated samples for one APU channel.
func (b *Bus) GetChannelSamples(channel int) []float32 {
	return b.APU.GetChannelSamples(channel)
}

// GetAudioSamples drains all four APU channels and averages them (each sample
// divided by four) into a single mono buffer, clamped to the DAC's -1.0..1.0 range. Consumers that want the
// channels independently (for per-channel volume or panning) should use
// GetChannelSamples instead.
func (b *Bus) GetAudioSamples() []float32 {
	channels := [4][]float32{
		b.APU.GetChannelSamples(0),
		b.APU.GetChannelSamples(1),
		b.APU.GetChannelSamples(2),
		b.APU.GetChannelSamples(3),
	}

	n := 0
	for _, c := range channels {
		if len(c) > n {
			n = len(c)
		}
	}
	if n == 0 {
		return nil
	}

	mixed := make([]float32, n)
	for _, c := range channels {
		for i, s := range c {
			mixed[i] += s / 4
		}
	}
	for i, s := range mixed {
		if s > 1 {
			mixed[i] = 1
		} else if s < -1 {
			mixed[i] = -1
		}
	}
	return mixed
}

// SetAudioSampleRate sets the target audio sample rate for the APU.
func (b *Bus) SetAudioSampleRate(rate int) {
	b.APU.SetSampleRate(rate)
}

// GetCycleCount returns the current CPU cycle count.
func (b *Bus) GetCycleCount() uint64 { return b.cpuCycles }

// GetFrameCount returns the current frame count.
func (b *Bus) GetFrameCount() uint64 { return b.frameCount }

// IsDMAInProgress returns whether DMA is currently in progress.
func (b *Bus) IsDMAInProgress() bool { return b.dmaInProgress }

// SetControllerButton sets the state of a controller button.
func (b *Bus) SetControllerButton(controller int, button input.Button, pressed bool) {
	switch controller {
	case 0, 1:
		b.Input.Controller1.SetButton(button, pressed)
	case 2:
		b.Input.Controller2.SetButton(button, pressed)
	}
}

// SetControllerButtons sets all button states for a controller at once.
func (b *Bus) SetControllerButtons(controller int, buttons [8]bool) {
	switch controller {
	case 0, 1:
		b.Input.SetButtons1(buttons)
	case 2:
		b.Input.SetButtons2(buttons)
	}
}

// GetInputState returns the input state for direct access.
func (b *Bus) GetInputState() *input.InputState {
	return b.Input
}

// GetCPUState returns the current CPU state, for tests and save states.
func (b *Bus) GetCPUState() CPUState {
	return CPUState{
		PC:     b.CPU.PC,
		A:      b.CPU.A,
		X:      b.CPU.X,
		Y:      b.CPU.Y,
		SP:     b.CPU.SP,
		Cycles: b.cpuCycles,
		Flags: CPUFlags{
			N: b.CPU.N,
			V: b.CPU.V,
			B: b.CPU.B,
			D: b.CPU.D,
			I: b.CPU.I,
			Z: b.CPU.Z,
			C: b.CPU.C,
		},
	}
}

// CPUState represents a CPU state snapshot for testing.
type CPUState struct {
	PC      uint16
	A, X, Y uint8
	SP      uint8
	Cycles  uint64
	Flags   CPUFlags
}

// CPUFlags represents CPU status flags for testing.
type CPUFlags struct {
	N, V, B, D, I, Z, C bool
}

// GetPPUState returns a simplified PPU state snapshot, for testing.
func (b *Bus) GetPPUState() PPUState {
	return PPUState{
		Scanline:    b.PPU.GetScanline(),
		Cycle:       b.PPU.GetCycle(),
		FrameCount:  b.frameCount,
		VBlankFlag:  b.PPU.IsVBlank(),
		RenderingOn: b.PPU.IsRenderingEnabled(),
	}
}

// PPUState represents a PPU state snapshot for testing.
type PPUState struct {
	Scanline    int
	Cycle       int
	FrameCount  uint64
	VBlankFlag  bool
	RenderingOn bool
}
