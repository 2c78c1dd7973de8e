//go:build headless
// +build headless

package graphics

import "fmt"

// When built with the headless tag, the real ebiten-backed implementation
// in ebitengine_backend.go is excluded (it would pull in ebiten's cgo/GL
// dependencies), so EbitengineBackend still needs to satisfy Backend here —
// it simply reports itself unavailable rather than being omitted entirely,
// so callers requesting it by name get a clear error instead of a missing
// symbol.

type EbitengineBackend struct{}
type EbitengineWindow struct{}

func NewEbitengineBackend() Backend { return &EbitengineBackend{} }

var errNoEbitengine = fmt.Errorf("ebitengine backend not available in a headless build")

func (b *EbitengineBackend) Initialize(config Config) error                  { return errNoEbitengine }
func (b *EbitengineBackend) CreateWindow(t string, w, h int) (Window, error) { return nil, errNoEbitengine }
func (b *EbitengineBackend) Cleanup() error                                   { return nil }
func (b *EbitengineBackend) IsHeadless() bool                                 { return true }
func (b *EbitengineBackend) GetName() string                                  { return "Ebitengine-Stub" }

func (w *EbitengineWindow) SetTitle(title string)                       {}
func (w *EbitengineWindow) GetSize() (width, height int)                { return 0, 0 }
func (w *EbitengineWindow) ShouldClose() bool                           { return true }
func (w *EbitengineWindow) SwapBuffers()                                {}
func (w *EbitengineWindow) PollEvents() []InputEvent                    { return nil }
func (w *EbitengineWindow) RenderFrame(fb [256 * 240]uint32) error      { return errNoEbitengine }
func (w *EbitengineWindow) Cleanup() error                              { return nil }
func (w *EbitengineWindow) Run() error                                  { return errNoEbitengine }
func (w *EbitengineWindow) SetEmulatorUpdateFunc(updateFunc func() error) {}
