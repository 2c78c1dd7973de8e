package graphics

import (
	"fmt"
	"os"
)

// HeadlessBackend implements Backend without opening any window, used for
// automated runs and CI where nothing can present a frame visually.
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow implements Window as a no-op sink, dumping a handful of
// frames to PPM files for inspection rather than displaying anything.
type HeadlessWindow struct {
	title      string
	width      int
	height     int
	running    bool
	frameCount int
}

func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}
	return &HeadlessWindow{title: title, width: width, height: height, running: true}, nil
}

func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

func (b *HeadlessBackend) IsHeadless() bool { return true }
func (b *HeadlessBackend) GetName() string  { return "Headless" }

func (w *HeadlessWindow) SetTitle(title string)           { w.title = title }
func (w *HeadlessWindow) GetSize() (width, height int)    { return w.width, w.height }
func (w *HeadlessWindow) ShouldClose() bool               { return !w.running }
func (w *HeadlessWindow) SwapBuffers()                    {}
func (w *HeadlessWindow) PollEvents() []InputEvent        { return nil }

// dumpFrames are the frame numbers sampled to disk for a quick visual
// sanity check of a headless run (roughly 0.5s, 1s, and 2s into playback).
var dumpFrames = map[int]bool{31: true, 61: true, 120: true}

func (w *HeadlessWindow) RenderFrame(frameBuffer [256 * 240]uint32) error {
	w.frameCount++
	if dumpFrames[w.frameCount] {
		return writePPM(fmt.Sprintf("frame_%03d.ppm", w.frameCount), frameBuffer)
	}
	return nil
}

func writePPM(filename string, frameBuffer [256 * 240]uint32) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %v", filename, err)
	}
	defer file.Close()

	fmt.Fprintf(file, "P3\n256 240\n255\n")
	for y := 0; y < 240; y++ {
		for x := 0; x < 256; x++ {
			pixel := frameBuffer[y*256+x]
			fmt.Fprintf(file, "%d %d %d ", (pixel>>16)&0xFF, (pixel>>8)&0xFF, pixel&0xFF)
		}
		fmt.Fprintln(file)
	}
	return nil
}

func (w *HeadlessWindow) Cleanup() error {
	w.running = false
	return nil
}

// GetFrameCount returns the number of frames rendered so far.
func (w *HeadlessWindow) GetFrameCount() int { return w.frameCount }
