//go:build !headless
// +build !headless

package graphics

// GetGameForTesting exposes the window's game instance to tests in this package.
func (w *EbitengineWindow) GetGameForTesting() *EbitengineGame {
	return w.game
}

// GetFrameBufferForTesting exposes the last frame buffer handed to RenderFrame.
func (w *EbitengineWindow) GetFrameBufferForTesting() [256 * 240]uint32 {
	if w.game == nil {
		return [256 * 240]uint32{}
	}
	return w.game.frameBuffer
}

// GetEmulatorUpdateFuncForTesting exposes the callback wired by SetEmulatorUpdateFunc.
func (w *EbitengineWindow) GetEmulatorUpdateFuncForTesting() func() error {
	return w.emulatorUpdateFunc
}
