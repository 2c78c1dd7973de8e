// Package app provides save state functionality for the NES emulator.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gones/internal/bus"
)

// StateManager persists lightweight save-state markers to disk. Save
// states are out of scope for this emulator's core: the snapshot records
// the run's progress (cycle/frame counters, register values) for display
// and bookkeeping rather than full machine state, since nothing here
// reconstructs CPU/PPU/APU/mapper state from a snapshot on load.
type StateManager struct {
	saveDirectory string
	maxSlots      int
}

// snapshot is what gets written to a slot file.
type snapshot struct {
	Timestamp  time.Time `json:"timestamp"`
	ROMPath    string    `json:"rom_path"`
	FrameCount uint64    `json:"frame_count"`
	CycleCount uint64    `json:"cycle_count"`
	PC         uint16    `json:"pc"`
	A          uint8     `json:"a"`
	X          uint8     `json:"x"`
	Y          uint8     `json:"y"`
	SP         uint8     `json:"sp"`
}

// NewStateManager creates a state manager rooted at saveDirectory.
func NewStateManager(saveDirectory string) *StateManager {
	sm := &StateManager{saveDirectory: saveDirectory, maxSlots: 10}
	if err := os.MkdirAll(saveDirectory, 0755); err != nil {
		fmt.Printf("Warning: could not create save directory %q: %v\n", saveDirectory, err)
	}
	return sm
}

// SaveState records the bus's current progress into the given slot.
func (sm *StateManager) SaveState(b *bus.Bus, slot int, romPath string) error {
	if slot < 0 || slot >= sm.maxSlots {
		return fmt.Errorf("invalid save slot: %d (must be 0-%d)", slot, sm.maxSlots-1)
	}
	if b == nil {
		return fmt.Errorf("bus cannot be nil")
	}

	cpuState := b.GetCPUState()
	snap := snapshot{
		Timestamp:  time.Now(),
		ROMPath:    romPath,
		FrameCount: b.GetFrameCount(),
		CycleCount: b.GetCycleCount(),
		PC:         cpuState.PC,
		A:          cpuState.A,
		X:          cpuState.X,
		Y:          cpuState.Y,
		SP:         cpuState.SP,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %v", err)
	}
	return os.WriteFile(sm.slotPath(slot, romPath), data, 0644)
}

// LoadState reports the snapshot recorded for a slot. It does not restore
// any emulated state onto the bus — see the StateManager doc comment.
func (sm *StateManager) LoadState(b *bus.Bus, slot int, romPath string) error {
	if slot < 0 || slot >= sm.maxSlots {
		return fmt.Errorf("invalid save slot: %d (must be 0-%d)", slot, sm.maxSlots-1)
	}

	path := sm.slotPath(slot, romPath)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("save state not found in slot %d: %v", slot, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse save state: %v", err)
	}
	if snap.ROMPath != romPath {
		return fmt.Errorf("save state is for a different ROM")
	}

	fmt.Printf("slot %d recorded frame %d, cycle %d (state restore unimplemented)\n",
		slot, snap.FrameCount, snap.CycleCount)
	return nil
}

// HasSaveState reports whether a slot has a recorded snapshot.
func (sm *StateManager) HasSaveState(slot int, romPath string) bool {
	if slot < 0 || slot >= sm.maxSlots {
		return false
	}
	_, err := os.Stat(sm.slotPath(slot, romPath))
	return err == nil
}

func (sm *StateManager) slotPath(slot int, romPath string) string {
	name := filepath.Base(romPath)
	name = name[:len(name)-len(filepath.Ext(name))]
	return filepath.Join(sm.saveDirectory, fmt.Sprintf("%s_slot_%d.save", name, slot))
}

// Cleanup is a no-op; StateManager owns no resources beyond the filesystem.
func (sm *StateManager) Cleanup() error { return nil }
