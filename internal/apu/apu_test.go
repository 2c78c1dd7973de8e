package apu

import "testing"

func TestWriteChannelEnableClearsLengthCounters(t *testing.T) {
	a := New()
	defer a.Close()

	a.WriteRegister(0x4000, 0x3F) // pulse1 duty/volume
	a.WriteRegister(0x4003, 0xF8) // load length counter
	if a.pulse1.lengthCounter == 0 {
		t.Fatal("expected length counter to load on $4003 write")
	}

	a.writeChannelEnable(0x00)
	if a.pulse1.lengthCounter != 0 {
		t.Error("expected pulse1 length counter cleared when its enable bit is off")
	}
}

func TestReadStatusReportsLengthCountersAndClearsIRQ(t *testing.T) {
	a := New()
	defer a.Close()

	a.writeChannelEnable(0x0F)
	a.WriteRegister(0x4003, 0xF8)
	a.frameIRQFlag = true

	status := a.ReadStatus()
	if status&0x01 == 0 {
		t.Error("expected pulse1 status bit set")
	}
	if status&0x40 == 0 {
		t.Error("expected frame IRQ bit set on first read")
	}
	if a.frameIRQFlag {
		t.Error("reading status should clear the frame IRQ flag")
	}
}

func TestFourStepFrameSequencerFiresIRQ(t *testing.T) {
	a := New()
	defer a.Close()

	a.writeFrameCounter(0x00) // 4-step mode, IRQ enabled
	for i := 0; i < 29830; i++ {
		a.stepFrameCounter()
	}
	if !a.frameIRQFlag {
		t.Error("expected frame IRQ flag set after one full 4-step sequence")
	}
}

func TestFiveStepFrameSequencerNeverSetsIRQ(t *testing.T) {
	a := New()
	defer a.Close()

	a.writeFrameCounter(0x80) // 5-step mode
	for i := 0; i < 37282; i++ {
		a.stepFrameCounter()
	}
	if a.frameIRQFlag {
		t.Error("5-step mode must never set the frame IRQ flag")
	}
}

func TestPulseSweepDoesNotClockWhenLengthCounterZero(t *testing.T) {
	a := New()
	defer a.Close()

	a.pulse1.lengthCounter = 0
	a.pulse1.timer = 100
	a.pulse1.sweepEnable = true
	a.pulse1.sweepShift = 1
	a.pulse1.sweepCounter = 0

	a.clockPulseSweep(&a.pulse1, true)
	if a.pulse1.timer != 100 {
		t.Errorf("sweep should not touch the timer while length counter is 0, got timer=%d", a.pulse1.timer)
	}
}

func TestPulseSweepClocksWhenLengthCounterNonZero(t *testing.T) {
	a := New()
	defer a.Close()

	a.pulse1.lengthCounter = 5
	a.pulse1.timer = 100
	a.pulse1.sweepEnable = true
	a.pulse1.sweepShift = 1
	a.pulse1.sweepCounter = 0
	a.pulse1.sweepNegate = false

	a.clockPulseSweep(&a.pulse1, true)
	if a.pulse1.timer == 100 {
		t.Error("expected sweep to adjust the timer when length counter is nonzero")
	}
}

func TestGetChannelSamplesDrainsQueue(t *testing.T) {
	a := New()
	defer a.Close()

	a.SetSampleRate(1789773) // 1:1 with the CPU clock so every Step yields a sample
	a.writeChannelEnable(0x0F)
	a.WriteRegister(0x4000, 0x3F)
	a.WriteRegister(0x4002, 0x10)
	a.WriteRegister(0x4003, 0xF8)

	for i := 0; i < 1000; i++ {
		a.Step()
	}

	samples := a.GetChannelSamples(0)
	if len(samples) == 0 {
		t.Error("expected pulse1 channel to have produced samples")
	}
	for _, s := range samples {
		if s < -1.0 || s > 1.0 {
			t.Errorf("sample out of range: %v", s)
		}
	}
}

func TestGetChannelSamplesInvalidChannel(t *testing.T) {
	a := New()
	defer a.Close()
	if got := a.GetChannelSamples(4); got != nil {
		t.Errorf("expected nil for out-of-range channel, got %v", got)
	}
}
