//go:build !headless
// +build !headless

package graphics

import (
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// EbitengineBackend implements Backend on top of the ebiten game engine.
type EbitengineBackend struct {
	initialized bool
	config      Config
	game        *EbitengineGame
}

// EbitengineWindow implements Window for the Ebitengine backend.
type EbitengineWindow struct {
	backend            *EbitengineBackend
	title              string
	width              int
	height             int
	game               *EbitengineGame
	running            bool
	events             []InputEvent
	emulatorUpdateFunc func() error
}

// EbitengineGame implements ebiten.Game, bridging its per-tick callbacks to
// the Window/Backend abstraction.
type EbitengineGame struct {
	window       *EbitengineWindow
	frameBuffer  [256 * 240]uint32
	frameImage   *ebiten.Image
	nesWidth     int
	nesHeight    int
	windowWidth  int
	windowHeight int

	previousKeyStates map[ebiten.Key]bool
	scale             int
	drawCount         int

	imageBuffer *image.RGBA // reused across RenderFrame calls to avoid per-frame allocation
}

func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("ebitengine backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}
	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	game := &EbitengineGame{
		nesWidth:          256,
		nesHeight:         240,
		windowWidth:       width,
		windowHeight:      height,
		scale:             windowScale(width, height),
		frameImage:        ebiten.NewImage(256, 240),
		previousKeyStates: make(map[ebiten.Key]bool),
		imageBuffer:       image.NewRGBA(image.Rect(0, 0, 256, 240)),
	}

	window := &EbitengineWindow{
		backend: b,
		title:   title,
		width:   width,
		height:  height,
		game:    game,
		running: true,
	}
	game.window = window
	b.game = game

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(b.config.VSync)
	ebiten.SetFullscreen(b.config.Fullscreen)
	ebiten.SetScreenFilterEnabled(b.config.Filter == "linear")

	return window, nil
}

// windowScale picks an integer scale factor for a window sized to hold
// several multiples of the NES's 256x240 frame.
func windowScale(width, height int) int {
	switch {
	case width >= 1024 && height >= 960:
		return 4
	case width >= 512 && height >= 480:
		return 2
	default:
		return 1
	}
}

func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

func (b *EbitengineBackend) IsHeadless() bool { return b.config.Headless }
func (b *EbitengineBackend) GetName() string  { return "Ebitengine" }

func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

func (w *EbitengineWindow) GetSize() (width, height int) { return w.width, w.height }
func (w *EbitengineWindow) ShouldClose() bool            { return !w.running }
func (w *EbitengineWindow) SwapBuffers()                 {} // ebiten swaps automatically

// PollEvents returns and clears the input events accumulated since the last call.
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame converts an ARGB frame buffer into the game's ebiten image.
func (w *EbitengineWindow) RenderFrame(frameBuffer [256 * 240]uint32) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}

	w.game.frameBuffer = frameBuffer
	img := w.game.imageBuffer
	for y := 0; y < 240; y++ {
		for x := 0; x < 256; x++ {
			pixel := frameBuffer[y*256+x]
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(pixel >> 16),
				G: uint8(pixel >> 8),
				B: uint8(pixel),
				A: 255,
			})
		}
	}
	w.game.frameImage.ReplacePixels(img.Pix)
	return nil
}

func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run hands control to ebiten's game loop, which drives Update/Draw/Layout.
func (w *EbitengineWindow) Run() error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	return ebiten.RunGame(w.game)
}

func (w *EbitengineWindow) SetEmulatorUpdateFunc(updateFunc func() error) {
	w.emulatorUpdateFunc = updateFunc
}

func (g *EbitengineGame) Update() error {
	if g.window == nil {
		return nil
	}
	g.pollInput()
	if g.window.emulatorUpdateFunc != nil {
		if err := g.window.emulatorUpdateFunc(); err != nil {
			log.Printf("[ebitengine] emulator update error: %v", err)
		}
	}
	return nil
}

func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{A: 255})
	if g.frameImage == nil {
		return
	}

	scaleX := float64(g.windowWidth) / float64(g.nesWidth)
	scaleY := float64(g.windowHeight) / float64(g.nesHeight)
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}
	offsetX := (float64(g.windowWidth) - float64(g.nesWidth)*scale) / 2
	offsetY := (float64(g.windowHeight) - float64(g.nesHeight)*scale) / 2

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	screen.DrawImage(g.frameImage, op)
	g.drawCount++
}

func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

// keyMap and buttonMap fold ebiten's key space down to this package's
// Key/Button enums and then straight to NES controller buttons in one pass.
var keyMap = map[ebiten.Key]Key{
	ebiten.KeyEscape: KeyEscape, ebiten.KeyEnter: KeyEnter, ebiten.KeySpace: KeySpace,
	ebiten.KeyArrowUp: KeyUp, ebiten.KeyArrowDown: KeyDown, ebiten.KeyArrowLeft: KeyLeft, ebiten.KeyArrowRight: KeyRight,
	ebiten.KeyW: KeyW, ebiten.KeyA: KeyA, ebiten.KeyS: KeyS, ebiten.KeyD: KeyD,
	ebiten.KeyJ: KeyJ, ebiten.KeyK: KeyK, ebiten.KeyX: KeyX, ebiten.KeyZ: KeyZ,
	ebiten.Key1: Key1, ebiten.Key2: Key2, ebiten.Key3: Key3, ebiten.Key4: Key4,
	ebiten.Key5: Key5, ebiten.Key6: Key6, ebiten.Key7: Key7, ebiten.Key8: Key8,
	ebiten.KeyF1: KeyF1, ebiten.KeyF2: KeyF2, ebiten.KeyF3: KeyF3, ebiten.KeyF4: KeyF4, ebiten.KeyF5: KeyF5,
	ebiten.KeyF6: KeyF6, ebiten.KeyF7: KeyF7, ebiten.KeyF8: KeyF8, ebiten.KeyF9: KeyF9,
	ebiten.KeyF10: KeyF10, ebiten.KeyF11: KeyF11, ebiten.KeyF12: KeyF12,
}

var buttonMap = map[Key]Button{
	KeyUp: ButtonUp, KeyDown: ButtonDown, KeyLeft: ButtonLeft, KeyRight: ButtonRight,
	KeyW: ButtonUp, KeyS: ButtonDown, KeyA: ButtonLeft, KeyD: ButtonRight,
	KeyJ: ButtonA, KeyK: ButtonB, KeyEnter: ButtonStart, KeySpace: ButtonSelect,
	Key1: Button2Up, Key2: Button2Down, Key3: Button2Left, Key4: Button2Right,
	Key5: Button2A, Key6: Button2B, Key7: Button2Start, Key8: Button2Select,
}

// pollInput translates ebiten's just-pressed/just-released key transitions
// into InputEvents, mapping each key straight to its controller button
// where one exists and passing the rest (e.g. Escape) through as key events.
func (g *EbitengineGame) pollInput() {
	if g.window == nil {
		return
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.window.events = append(g.window.events, InputEvent{Type: InputEventTypeQuit, Pressed: true})
	}

	var events []InputEvent
	for ebitenKey, key := range keyMap {
		var pressed bool
		switch {
		case inpututil.IsKeyJustPressed(ebitenKey):
			pressed = true
		case inpututil.IsKeyJustReleased(ebitenKey):
			pressed = false
		default:
			continue
		}
		g.previousKeyStates[ebitenKey] = pressed

		if button, ok := buttonMap[key]; ok {
			events = append(events, InputEvent{Type: InputEventTypeButton, Button: button, Pressed: pressed})
		} else {
			events = append(events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: pressed})
		}
	}
	g.window.events = append(g.window.events, events...)
}
