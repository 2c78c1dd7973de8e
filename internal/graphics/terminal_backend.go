package graphics

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// TerminalBackend implements Backend by drawing frames as ANSI text art,
// for running the emulator over a plain SSH session or tmux pane.
type TerminalBackend struct {
	initialized bool
	config      Config
}

// TerminalWindow implements Window by downscaling each frame to a
// character grid and printing a brightness ramp.
type TerminalWindow struct {
	title   string
	width   int
	height  int
	running bool
	cols    int
	rows    int
	cell    *image.RGBA // reused downscale target
}

func NewTerminalBackend() Backend {
	return &TerminalBackend{}
}

func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	cols, rows := terminalGrid(width, height)
	return &TerminalWindow{
		title:   title,
		width:   width,
		height:  height,
		running: true,
		cols:    cols,
		rows:    rows,
		cell:    image.NewRGBA(image.Rect(0, 0, cols, rows)),
	}, nil
}

// terminalGrid derives a character grid from a requested pixel size,
// compensating for characters being roughly twice as tall as wide.
func terminalGrid(width, height int) (cols, rows int) {
	cols = width / 8
	rows = height / 16
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

func (b *TerminalBackend) IsHeadless() bool { return false }
func (b *TerminalBackend) GetName() string  { return "Terminal" }

func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
	fmt.Printf("\033]0;%s\007", title)
}

func (w *TerminalWindow) GetSize() (width, height int) { return w.width, w.height }
func (w *TerminalWindow) ShouldClose() bool            { return !w.running }
func (w *TerminalWindow) SwapBuffers()                 {}
func (w *TerminalWindow) PollEvents() []InputEvent     { return nil }

// ramp runs darkest to brightest; the downscaled pixel's luminance indexes into it.
const ramp = " .:-=+*#%@"

// RenderFrame downscales the NES frame to the window's character grid with
// a nearest-neighbor filter and prints one ramp character per cell.
func (w *TerminalWindow) RenderFrame(frameBuffer [256 * 240]uint32) error {
	src := image.NewRGBA(image.Rect(0, 0, 256, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 256; x++ {
			pixel := frameBuffer[y*256+x]
			src.SetRGBA(x, y, color.RGBA{
				R: uint8(pixel >> 16), G: uint8(pixel >> 8), B: uint8(pixel), A: 255,
			})
		}
	}

	draw.NearestNeighbor.Scale(w.cell, w.cell.Bounds(), src, src.Bounds(), draw.Src, nil)

	fmt.Print("\033[2J\033[H")
	for y := 0; y < w.rows; y++ {
		for x := 0; x < w.cols; x++ {
			c := w.cell.RGBAAt(x, y)
			luma := (299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000
			fmt.Print(string(ramp[luma*(len(ramp)-1)/255]))
		}
		fmt.Println()
	}
	return nil
}

func (w *TerminalWindow) Cleanup() error {
	w.running = false
	return nil
}
