// Package app provides emulator integration for the main application.
package app

import (
	"fmt"
	"time"

	"gones/internal/bus"
)

// cyclesPerFrame is the exact NTSC CPU cycle count for one 60Hz frame.
const cyclesPerFrame uint64 = 29781

// Emulator drives the bus through one fixed-length frame per Update call,
// decoupling the emulation step rate from whatever draws its output.
type Emulator struct {
	bus *bus.Bus

	running    bool
	frameCount uint64
	cycleCount uint64
	lastFrame  time.Duration
}

// NewEmulator creates an emulator bound to bus, already reset and ready to run.
func NewEmulator(bus *bus.Bus, config *Config) *Emulator {
	e := &Emulator{bus: bus}
	e.bus.Reset()
	return e
}

// Start arms the emulator so subsequent Update calls advance emulation.
func (e *Emulator) Start() { e.running = true }

// Stop halts Update without losing any emulated state.
func (e *Emulator) Stop() { e.running = false }

// IsRunning reports whether Update currently advances emulation.
func (e *Emulator) IsRunning() bool { return e.running }

// Update advances the bus by exactly one frame's worth of CPU cycles. It is
// a no-op while stopped so a caller can poll it unconditionally from a fixed
// 60Hz tick.
func (e *Emulator) Update() error {
	if !e.running {
		return nil
	}
	if e.bus == nil {
		return fmt.Errorf("emulator: bus not initialized")
	}

	start := time.Now()
	target := e.bus.GetCycleCount() + cyclesPerFrame
	for e.bus.GetCycleCount() < target {
		e.bus.Step()
	}
	e.frameCount++
	e.cycleCount = e.bus.GetCycleCount()
	e.lastFrame = time.Since(start)
	return nil
}

// GetFrameCount returns the number of frames Update has completed.
func (e *Emulator) GetFrameCount() uint64 { return e.frameCount }

// GetCycleCount returns the bus's CPU cycle count as of the last Update.
func (e *Emulator) GetCycleCount() uint64 { return e.cycleCount }

// GetLastFrameTime returns how long the most recent Update call took.
func (e *Emulator) GetLastFrameTime() time.Duration { return e.lastFrame }

// GetCPUState returns the current CPU state for debugging.
func (e *Emulator) GetCPUState() bus.CPUState {
	if e.bus == nil {
		return bus.CPUState{}
	}
	return e.bus.GetCPUState()
}

// GetPPUState returns the current PPU state for debugging.
func (e *Emulator) GetPPUState() bus.PPUState {
	if e.bus == nil {
		return bus.PPUState{}
	}
	return e.bus.GetPPUState()
}

// Cleanup stops the emulator. The bus itself is owned and released by the
// Application.
func (e *Emulator) Cleanup() error {
	e.Stop()
	return nil
}
