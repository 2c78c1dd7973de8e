// Package apu implements the Audio Processing Unit for the NES (2A03): a
// frame sequencer driving two pulse channels, a triangle channel, and a
// noise channel. There is no DMC channel — this emulator has no CPU-bus
// sample playback path to drive one.
//
// Each channel's samples are produced synchronously by Step but handed off
// to the channel's own queue (queue.go) for consumption by an independent
// goroutine, mirroring the producer/consumer actor shape the original
// reference implementation used for its four audio streams.
package apu

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// APU represents the NES Audio Processing Unit.
type APU struct {
	pulse1   PulseChannel
	pulse2   PulseChannel
	triangle TriangleChannel
	noise    NoiseChannel

	frameCounter     uint16
	frameMode        bool // false = 4-step, true = 5-step
	frameIRQEnable   bool
	frameCounterStep uint8
	frameIRQFlag     bool

	channelEnable [4]bool // pulse1, pulse2, triangle, noise

	sampleRate       int
	cpuFrequency     float64
	cycleAccumulator float64
	cycles           uint64

	queues [4]*sampleQueue
	group  *errgroup.Group
	cancel context.CancelFunc
}

const numChannels = 4



// New creates a new APU instance and starts its per-channel consumer
// goroutines.
func New() *APU {
	apu := &APU{
		sampleRate:     44100,
		cpuFrequency:   1789773.0,
		frameIRQEnable: true,
	}
	apu.noise.shiftRegister = 1
	apu.startQueues()
	return apu
}

func (apu *APU) startQueues() {
	ctx, cancel := context.WithCancel(context.Background())
	apu.cancel = cancel
	group, _ := errgroup.WithContext(ctx)
	apu.group = group
	for i := 0; i < numChannels; i++ {
		q := newSampleQueue(channelQueueCapacity)
		apu.queues[i] = q
		group.Go(func() error {
			q.run(ctx)
			return nil
		})
	}
}

// Close stops the channel consumer goroutines. Safe to call once.
func (apu *APU) Close() {
	if apu.cancel != nil {
		apu.cancel()
		apu.group.Wait()
	}
}

// Reset returns the APU to its power-up state, restarting channel queues.
func (apu *APU) Reset() {
	apu.Close()

	apu.pulse1 = PulseChannel{}
	apu.pulse2 = PulseChannel{}
	apu.triangle = TriangleChannel{}
	apu.noise = NoiseChannel{shiftRegister: 1}

	apu.frameCounter = 0
	apu.frameCounterStep = 0
	apu.frameMode = false
	apu.frameIRQEnable = true
	apu.frameIRQFlag = false

	for i := range apu.channelEnable {
		apu.channelEnable[i] = false
	}

	apu.cycles = 0
	apu.cycleAccumulator = 0

	apu.startQueues()
}

// Step advances the APU by one CPU cycle.
func (apu *APU) Step() {
	apu.cycles++
	apu.stepFrameCounter()
	apu.stepChannelTimers()
	apu.generateSample()
}

// stepFrameCounter clocks envelopes, linear counters, length counters and
// sweep units on the NTSC 4-step/5-step schedule.
func (apu *APU) stepFrameCounter() {
	apu.frameCounter++

	if apu.frameMode {
		switch apu.frameCounter {
		case 7457:
			apu.clockEnvelopeAndLinear()
		case 14913:
			apu.clockEnvelopeAndLinear()
			apu.clockLengthAndSweep()
		case 22371:
			apu.clockEnvelopeAndLinear()
		case 37281:
			apu.clockEnvelopeAndLinear()
			apu.clockLengthAndSweep()
			apu.frameCounter = 0
			apu.frameCounterStep = 0
		}
	} else {
		switch apu.frameCounter {
		case 7457:
			apu.clockEnvelopeAndLinear()
		case 14913:
			apu.clockEnvelopeAndLinear()
			apu.clockLengthAndSweep()
		case 22371:
			apu.clockEnvelopeAndLinear()
		case 29829:
			apu.clockEnvelopeAndLinear()
			apu.clockLengthAndSweep()
		case 29830:
			if apu.frameIRQEnable {
				apu.frameIRQFlag = true
			}
			apu.frameCounter = 0
			apu.frameCounterStep = 0
		}
	}
}

func (apu *APU) clockEnvelopeAndLinear() {
	apu.clockPulseEnvelope(&apu.pulse1)
	apu.clockPulseEnvelope(&apu.pulse2)
	apu.clockNoiseEnvelope(&apu.noise)
	apu.clockTriangleLinear(&apu.triangle)
}

func (apu *APU) clockLengthAndSweep() {
	apu.clockPulseLength(&apu.pulse1)
	apu.clockPulseSweep(&apu.pulse1, true)
	apu.clockPulseLength(&apu.pulse2)
	apu.clockPulseSweep(&apu.pulse2, false)
	apu.clockTriangleLength(&apu.triangle)
	apu.clockNoiseLength(&apu.noise)
}

func (apu *APU) stepChannelTimers() {
	if apu.channelEnable[0] {
		apu.stepPulseTimer(&apu.pulse1)
	}
	if apu.channelEnable[1] {
		apu.stepPulseTimer(&apu.pulse2)
	}
	if apu.channelEnable[2] {
		apu.stepTriangleTimer(&apu.triangle)
	}
	if apu.channelEnable[3] {
		apu.stepNoiseTimer(&apu.noise)
	}
}

// generateSample converts from CPU frequency to the target sample rate and,
// once per output sample, pushes each channel's current output onto its own
// queue rather than pre-mixing — the audio sink owns mixing/volume.
func (apu *APU) generateSample() {
	apu.cycleAccumulator += float64(apu.sampleRate) / apu.cpuFrequency
	if apu.cycleAccumulator < 1.0 {
		return
	}
	apu.cycleAccumulator -= 1.0

	apu.queues[0].push(normalize(apu.getPulseOutput(&apu.pulse1)))
	apu.queues[1].push(normalize(apu.getPulseOutput(&apu.pulse2)))
	apu.queues[2].push(normalize(apu.getTriangleOutput(&apu.triangle)))
	apu.queues[3].push(normalize(apu.getNoiseOutput(&apu.noise)))
}

// normalize scales a 0-15 DAC level to -1.0..1.0.
func normalize(level uint8) float32 {
	return float32(level)/7.5 - 1.0
}

// GetChannelSamples drains the accumulated samples for one channel
// (0=pulse1, 1=pulse2, 2=triangle, 3=noise).
func (apu *APU) GetChannelSamples(channel int) []float32 {
	if channel < 0 || channel >= numChannels {
		return nil
	}
	return apu.queues[channel].drain()
}

// WriteRegister writes to an APU register.
func (apu *APU) WriteRegister(address uint16, value uint8) {
	switch address {
	case 0x4000:
		apu.writePulseControl(&apu.pulse1, value)
	case 0x4001:
		apu.writePulseSweep(&apu.pulse1, value)
	case 0x4002:
		apu.writePulseTimerLow(&apu.pulse1, value)
	case 0x4003:
		apu.writePulseTimerHigh(&apu.pulse1, value)
	case 0x4004:
		apu.writePulseControl(&apu.pulse2, value)
	case 0x4005:
		apu.writePulseSweep(&apu.pulse2, value)
	case 0x4006:
		apu.writePulseTimerLow(&apu.pulse2, value)
	case 0x4007:
		apu.writePulseTimerHigh(&apu.pulse2, value)
	case 0x4008:
		apu.writeTriangleControl(value)
	case 0x400A:
		apu.writeTriangleTimerLow(value)
	case 0x400B:
		apu.writeTriangleTimerHigh(value)
	case 0x400C:
		apu.writeNoiseControl(value)
	case 0x400E:
		apu.writeNoisePeriod(value)
	case 0x400F:
		apu.writeNoiseLength(value)
	case 0x4015:
		apu.writeChannelEnable(value)
	case 0x4017:
		apu.writeFrameCounter(value)
	}
}

// ReadStatus reads the APU status register ($4015).
func (apu *APU) ReadStatus() uint8 {
	status := uint8(0)
	if apu.pulse1.lengthCounter > 0 {
		status |= 0x01
	}
	if apu.pulse2.lengthCounter > 0 {
		status |= 0x02
	}
	if apu.triangle.lengthCounter > 0 {
		status |= 0x04
	}
	if apu.noise.lengthCounter > 0 {
		status |= 0x08
	}
	if apu.frameIRQFlag {
		status |= 0x40
	}
	apu.frameIRQFlag = false
	return status
}

func (apu *APU) writeChannelEnable(value uint8) {
	apu.channelEnable[0] = (value & 0x01) != 0
	apu.channelEnable[1] = (value & 0x02) != 0
	apu.channelEnable[2] = (value & 0x04) != 0
	apu.channelEnable[3] = (value & 0x08) != 0

	if !apu.channelEnable[0] {
		apu.pulse1.lengthCounter = 0
	}
	if !apu.channelEnable[1] {
		apu.pulse2.lengthCounter = 0
	}
	if !apu.channelEnable[2] {
		apu.triangle.lengthCounter = 0
	}
	if !apu.channelEnable[3] {
		apu.noise.lengthCounter = 0
	}
}

func (apu *APU) writeFrameCounter(value uint8) {
	apu.frameMode = (value & 0x80) != 0
	apu.frameIRQEnable = (value & 0x40) == 0
	if !apu.frameIRQEnable {
		apu.frameIRQFlag = false
	}
	apu.frameCounter = 0
	apu.frameCounterStep = 0
	if apu.frameMode {
		apu.clockEnvelopeAndLinear()
		apu.clockLengthAndSweep()
	}
}

// GetFrameIRQ returns the current frame counter IRQ flag.
func (apu *APU) GetFrameIRQ() bool { return apu.frameIRQFlag }

// SetSampleRate sets the target audio sample rate.
func (apu *APU) SetSampleRate(rate int) {
	apu.sampleRate = rate
	apu.cycleAccumulator = 0
}

// GetSampleRate returns the current sample rate.
func (apu *APU) GetSampleRate() int { return apu.sampleRate }

// IsChannelEnabled returns whether a channel is enabled.
func (apu *APU) IsChannelEnabled(channel int) bool {
	if channel < 0 || channel >= len(apu.channelEnable) {
		return false
	}
	return apu.channelEnable[channel]
}

// lengthTable is the standard NES length counter lookup table.
var lengthTable = [32]uint8{
	10, 254, 20, 2, 40, 4, 80, 6,
	160, 8, 60, 10, 14, 12, 26, 14,
	12, 16, 24, 8, 48, 6, 96, 4,
	192, 2, 72, 16, 28, 32, 52, 2,
}
