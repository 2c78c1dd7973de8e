// Package audio bridges the APU's four independent channel streams to the
// host audio device via ebiten's audio package.
package audio

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

const numChannels = 4

// channelStream is an io.Reader that ebiten's audio.Player pulls PCM16 stereo
// samples from. Push appends newly generated float32 samples (-1.0..1.0,
// mono) from the APU; Read drains them, converting to 16-bit stereo frames,
// zero-filling when the APU hasn't produced enough samples yet rather than
// blocking the audio callback.
type channelStream struct {
	mu     sync.Mutex
	buf    []float32
	volume float32
}

func (s *channelStream) Push(samples []float32) {
	s.mu.Lock()
	s.buf = append(s.buf, samples...)
	s.mu.Unlock()
}

func (s *channelStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(p) / 4 // 4 bytes per stereo frame (2 bytes/sample x 2 channels)
	for i := 0; i < frames; i++ {
		var sample float32
		if i < len(s.buf) {
			sample = s.buf[i] * s.volume
		}
		v := int16(sample * 32767)
		p[i*4] = byte(v)
		p[i*4+1] = byte(v >> 8)
		p[i*4+2] = byte(v)
		p[i*4+3] = byte(v >> 8)
	}
	if len(s.buf) > frames {
		s.buf = s.buf[frames:]
	} else {
		s.buf = s.buf[:0]
	}
	return len(p), nil
}

// Sink owns one ebiten audio.Player per APU channel, each volume-gated
// independently so a frontend can mute or balance pulse/triangle/noise
// separately rather than only a single master fader.
type Sink struct {
	streams [numChannels]*channelStream
	players [numChannels]*audio.Player
}

// NewSink creates a Sink and starts playback on all four channel players.
// sampleRate must match what the APU is configured to produce via
// Bus.SetAudioSampleRate.
func NewSink(context *audio.Context, sampleRate int, channelVolume [numChannels]float32) (*Sink, error) {
	s := &Sink{}
	for i := 0; i < numChannels; i++ {
		stream := &channelStream{volume: channelVolume[i]}
		s.streams[i] = stream

		player, err := context.NewPlayer(stream)
		if err != nil {
			return nil, err
		}
		player.Play()
		s.players[i] = player
	}
	return s, nil
}

// Push feeds freshly generated samples for one channel (0=pulse1, 1=pulse2,
// 2=triangle, 3=noise) into its player's stream.
func (s *Sink) Push(channel int, samples []float32) {
	if channel < 0 || channel >= numChannels || len(samples) == 0 {
		return
	}
	s.streams[channel].Push(samples)
}

// SetVolume adjusts one channel's gain without touching the others.
func (s *Sink) SetVolume(channel int, volume float32) {
	if channel < 0 || channel >= numChannels {
		return
	}
	s.streams[channel].mu.Lock()
	s.streams[channel].volume = volume
	s.streams[channel].mu.Unlock()
}

// Close stops all four players.
func (s *Sink) Close() error {
	for _, p := range s.players {
		if p != nil {
			p.Close()
		}
	}
	return nil
}
