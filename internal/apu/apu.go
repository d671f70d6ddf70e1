// Package apu implements the NES's 5-channel Audio Processing Unit: two
// pulse channels, a triangle channel, a noise channel, and a delta
// modulation channel, driven by a shared frame sequencer.
package apu

// APU represents the NES Audio Processing Unit.
type APU struct {
	pulse1   PulseChannel
	pulse2   PulseChannel
	noise    NoiseChannel
	dmc      DMCChannel
	triangle TriangleChannel

	frameCounter     uint16
	frameMode        bool // false = 4-step, true = 5-step
	frameIRQEnable   bool
	frameCounterStep uint8
	frameIRQFlag     bool

	// frameResetDelay counts down the 3-or-4 CPU cycle delay before a
	// $4017 write actually resets frameCounter/frameCounterStep.
	frameResetDelay uint8

	// halfFrameTick is true for the one Step call in which the frame
	// sequencer clocked length counters and sweep, so a length-counter
	// reload landing on the same cycle can be discarded instead of
	// overwriting the just-clocked value.
	halfFrameTick bool

	channelEnable [5]bool // pulse1, pulse2, triangle, noise, dmc

	samples      ringBuffer
	sampleRate   int
	cpuFrequency float64
	cycleAcc     float64

	cycles uint64

	// memRead fetches one PRG byte for DMC sample playback; wired by the
	// bus at construction since the APU has no address space of its own.
	memRead func(addr uint16) uint8
}

// New creates a new APU instance with NTSC timing defaults.
func New() *APU {
	apu := &APU{
		samples:        newRingBuffer(8192),
		sampleRate:     44100,
		cpuFrequency:   1789773.0,
		frameMode:      false,
		frameIRQEnable: true,
	}
	apu.noise.shiftRegister = 1
	return apu
}

// SetMemoryReader wires the callback the DMC channel uses to fetch
// sample bytes from PRG space. Must be called before any DMC sample
// plays; a nil reader leaves DMC output silent instead of panicking.
func (apu *APU) SetMemoryReader(fn func(addr uint16) uint8) {
	apu.memRead = fn
}

// Reset restores the APU to its power-on state.
func (apu *APU) Reset() {
	apu.pulse1 = PulseChannel{}
	apu.pulse2 = PulseChannel{}
	apu.noise = NoiseChannel{shiftRegister: 1}
	apu.dmc = DMCChannel{}
	apu.triangle = TriangleChannel{}

	apu.frameCounter = 0
	apu.frameCounterStep = 0
	apu.frameMode = false
	apu.frameIRQEnable = true
	apu.frameIRQFlag = false
	apu.frameResetDelay = 0
	apu.halfFrameTick = false

	for i := range apu.channelEnable {
		apu.channelEnable[i] = false
	}

	apu.cycles = 0
	apu.cycleAcc = 0
	apu.samples.reset()
}

// Step advances the APU by one CPU cycle: frame sequencer, channel
// timers, and sample generation all share this cadence.
func (apu *APU) Step() {
	apu.cycles++
	apu.halfFrameTick = false
	apu.stepFrameCounter()
	apu.tickLengthReloadDelays()
	apu.stepChannelTimers()
	apu.generateSample()
}

func (apu *APU) stepFrameCounter() {
	if apu.frameResetDelay > 0 {
		apu.frameResetDelay--
		if apu.frameResetDelay == 0 {
			apu.frameCounter = 0
			apu.frameCounterStep = 0
		}
		return
	}

	apu.frameCounter++

	if apu.frameMode {
		switch apu.frameCounter {
		case 7457:
			apu.clockEnvelopesAndLinear()
		case 14913:
			apu.clockEnvelopesAndLinear()
			apu.clockLengthAndSweep()
		case 22371:
			apu.clockEnvelopesAndLinear()
		case 37281:
			apu.clockEnvelopesAndLinear()
			apu.clockLengthAndSweep()
			apu.frameCounter = 0
			apu.frameCounterStep = 0
		}
		return
	}

	switch apu.frameCounter {
	case 7457:
		apu.clockEnvelopesAndLinear()
	case 14913:
		apu.clockEnvelopesAndLinear()
		apu.clockLengthAndSweep()
	case 22371:
		apu.clockEnvelopesAndLinear()
	case 29829:
		apu.clockEnvelopesAndLinear()
		apu.clockLengthAndSweep()
	case 29830:
		if apu.frameIRQEnable {
			apu.frameIRQFlag = true
		}
		apu.frameCounter = 0
		apu.frameCounterStep = 0
	}
}

func (apu *APU) clockEnvelopesAndLinear() {
	apu.clockPulseEnvelope(&apu.pulse1)
	apu.clockPulseEnvelope(&apu.pulse2)
	apu.clockNoiseEnvelope(&apu.noise)
	apu.clockTriangleLinear(&apu.triangle)
}

func (apu *APU) clockLengthAndSweep() {
	apu.halfFrameTick = true
	apu.clockPulseLength(&apu.pulse1)
	apu.clockPulseSweep(&apu.pulse1, true)
	apu.clockPulseLength(&apu.pulse2)
	apu.clockPulseSweep(&apu.pulse2, false)
	apu.clockTriangleLength(&apu.triangle)
	apu.clockNoiseLength(&apu.noise)
}

// tickLengthReloadDelays lands any $4003/$4007/$400B/$400F length-counter
// reload whose one-cycle delay has elapsed, unless a half-frame clock
// landed on this very cycle, in which case the reload is discarded and
// the just-clocked counter value stands.
func (apu *APU) tickLengthReloadDelays() {
	applyLengthReload(&apu.pulse1.lengthReloadDelay, &apu.pulse1.pendingLength, &apu.pulse1.lengthCounter, apu.halfFrameTick)
	applyLengthReload(&apu.pulse2.lengthReloadDelay, &apu.pulse2.pendingLength, &apu.pulse2.lengthCounter, apu.halfFrameTick)
	applyLengthReload(&apu.triangle.lengthReloadDelay, &apu.triangle.pendingLength, &apu.triangle.lengthCounter, apu.halfFrameTick)
	applyLengthReload(&apu.noise.lengthReloadDelay, &apu.noise.pendingLength, &apu.noise.lengthCounter, apu.halfFrameTick)
}

func applyLengthReload(delay *uint8, pending *uint8, counter *uint8, clockedThisCycle bool) {
	if *delay == 0 {
		return
	}
	*delay--
	if *delay == 0 && !clockedThisCycle {
		*counter = *pending
	}
}

// stepChannelTimers clocks each channel's timer. The triangle timer
// clocks every CPU cycle; pulse, noise, and DMC timers clock every
// other CPU cycle (derived from the APU's own internal divide-by-two).
func (apu *APU) stepChannelTimers() {
	if apu.channelEnable[2] {
		apu.stepTriangleTimer(&apu.triangle)
	}
	if apu.cycles%2 == 1 {
		if apu.channelEnable[0] {
			apu.stepPulseTimer(&apu.pulse1)
		}
		if apu.channelEnable[1] {
			apu.stepPulseTimer(&apu.pulse2)
		}
		if apu.channelEnable[3] {
			apu.stepNoiseTimer(&apu.noise)
		}
		if apu.channelEnable[4] {
			apu.stepDMCTimer(&apu.dmc, apu.memRead)
		}
	}
}

// generateSample mixes all five channels and pushes one sample into the
// ring buffer whenever enough CPU cycles have accumulated for the
// target output sample rate.
func (apu *APU) generateSample() {
	apu.cycleAcc += float64(apu.sampleRate) / apu.cpuFrequency
	if apu.cycleAcc < 1.0 {
		return
	}
	apu.cycleAcc -= 1.0

	pulse1Out := apu.getPulseOutput(&apu.pulse1)
	pulse2Out := apu.getPulseOutput(&apu.pulse2)
	triangleOut := apu.getTriangleOutput(&apu.triangle)
	noiseOut := apu.getNoiseOutput(&apu.noise)
	dmcOut := apu.getDMCOutput(&apu.dmc)

	sample := apu.mixChannels(pulse1Out, pulse2Out, triangleOut, noiseOut, dmcOut)
	apu.samples.push(sample)
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
		apu.writeTriangleControl(&apu.triangle, value)
	case 0x400A:
		apu.writeTriangleTimerLow(&apu.triangle, value)
	case 0x400B:
		apu.writeTriangleTimerHigh(&apu.triangle, value)
	case 0x400C:
		apu.writeNoiseControl(value)
	case 0x400E:
		apu.writeNoisePeriod(value)
	case 0x400F:
		apu.writeNoiseLength(value)
	case 0x4010:
		apu.writeDMCControl(value)
	case 0x4011:
		apu.writeDMCDirectLoad(value)
	case 0x4012:
		apu.writeDMCSampleAddress(value)
	case 0x4013:
		apu.writeDMCSampleLength(value)
	case 0x4015:
		apu.writeChannelEnable(value)
	case 0x4017:
		apu.writeFrameCounter(value)
	}
}

// GetSamples drains the ring buffer, returning everything generated
// since the last call.
func (apu *APU) GetSamples() []float32 {
	return apu.samples.drain()
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
	if apu.dmc.bytesRemaining > 0 {
		status |= 0x10
	}
	if apu.frameIRQFlag {
		status |= 0x40
	}
	if apu.dmc.irqFlag {
		status |= 0x80
	}

	apu.frameIRQFlag = false
	return status
}

func (apu *APU) writeChannelEnable(value uint8) {
	apu.channelEnable[0] = value&0x01 != 0
	apu.channelEnable[1] = value&0x02 != 0
	apu.channelEnable[2] = value&0x04 != 0
	apu.channelEnable[3] = value&0x08 != 0
	apu.channelEnable[4] = value&0x10 != 0

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
	if !apu.channelEnable[4] {
		apu.dmc.bytesRemaining = 0
	} else if apu.dmc.bytesRemaining == 0 {
		apu.dmc.currentAddress = apu.dmc.sampleAddress
		apu.dmc.bytesRemaining = apu.dmc.sampleLength
	}
	apu.dmc.irqFlag = false
}

func (apu *APU) writeFrameCounter(value uint8) {
	apu.frameMode = value&0x80 != 0
	apu.frameIRQEnable = value&0x40 == 0
	if !apu.frameIRQEnable {
		apu.frameIRQFlag = false
	}

	// The actual counter reset doesn't land immediately: it takes 3 CPU
	// cycles if the write lands on an odd APU cycle, 4 if even.
	if apu.cycles%2 == 1 {
		apu.frameResetDelay = 3
	} else {
		apu.frameResetDelay = 4
	}

	if apu.frameMode {
		apu.clockEnvelopesAndLinear()
		apu.clockLengthAndSweep()
	}
}

// mixChannels applies the NES's non-linear mixer formula.
func (apu *APU) mixChannels(pulse1, pulse2, triangle, noise, dmc uint8) float32 {
	pulseSum := float64(pulse1 + pulse2)
	var pulseOut float64
	if pulseSum != 0 {
		pulseOut = 95.88 / ((8128.0 / pulseSum) + 100.0)
	}

	tndSum := (float64(triangle) / 8227.0) + (float64(noise) / 12241.0) + (float64(dmc) / 22638.0)
	var tndOut float64
	if tndSum != 0 {
		tndOut = 159.79 / ((1.0 / tndSum) + 100.0)
	}

	output := pulseOut + tndOut
	return float32(output/30.0 - 1.0)
}

// GetFrameIRQ reports the frame counter's IRQ flag.
func (apu *APU) GetFrameIRQ() bool { return apu.frameIRQFlag }

// GetDMCIRQ reports the DMC channel's IRQ flag.
func (apu *APU) GetDMCIRQ() bool { return apu.dmc.irqFlag }

// SetSampleRate changes the target output sample rate.
func (apu *APU) SetSampleRate(rate int) {
	apu.sampleRate = rate
	apu.cycleAcc = 0
}

// GetSampleRate returns the current target sample rate.
func (apu *APU) GetSampleRate() int { return apu.sampleRate }

// IsChannelEnabled reports whether channel (0=pulse1..4=dmc) is enabled.
func (apu *APU) IsChannelEnabled(channel int) bool {
	if channel < 0 || channel >= len(apu.channelEnable) {
		return false
	}
	return apu.channelEnable[channel]
}
