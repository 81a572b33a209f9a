// ABOUTME: Test tone generator source
// ABOUTME: Generates a sine wave in any supported sample format
package source

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/Sendspin/audiosink/pkg/audio"
)

// DefaultToneFrequency is the A4 note
const DefaultToneFrequency = 440.0

// toneLevel keeps the tone at 50% volume to avoid clipping
const toneLevel = 0.5

// Tone generates a sine wave, duplicated to every channel
type Tone struct {
	format    audio.Format
	frequency float64
	put       audio.PutFunc
	width     int

	sampleMu    sync.Mutex
	sampleIndex uint64
	limit       uint64 // frames; 0 means endless

	// frame holds the last rendered frame; pending is its unread tail
	frame   []byte
	pending []byte
}

// NewTone creates a tone generator. A zero duration produces an endless tone.
func NewTone(format audio.Format, frequency float64, duration time.Duration) (*Tone, error) {
	if format.SampleFormat == audio.FormatUnknown {
		format.SampleFormat = audio.S16LE
	}
	if format.Channels == 0 {
		format.Channels = 1
	}
	if format.SampleRate == 0 {
		format.SampleRate = 48000
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tone format: %w", err)
	}
	if frequency == 0 {
		frequency = DefaultToneFrequency
	}

	var limit uint64
	if duration > 0 {
		limit = uint64(int64(format.SampleRate) * int64(duration) / int64(time.Second))
	}

	return &Tone{
		format:    format,
		frequency: frequency,
		put:       audio.Writer(format.SampleFormat),
		width:     format.SampleFormat.Width(),
		limit:     limit,
	}, nil
}

// Read fills p with tone samples. A buffer smaller than the remaining
// frame gets a partial frame; the rest is served by the next call.
func (s *Tone) Read(p []byte) (int, error) {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	if len(p) == 0 {
		return 0, nil
	}

	off := copy(p, s.pending)
	s.pending = s.pending[off:]
	if off == len(p) {
		return off, nil
	}

	frameSize := s.format.FrameSize()
	numFrames := uint64((len(p) - off) / frameSize)
	partial := (len(p)-off)%frameSize != 0
	if s.limit > 0 {
		remaining := s.limit - s.sampleIndex
		if remaining == 0 {
			if off > 0 {
				return off, nil
			}
			return 0, io.EOF
		}
		if numFrames >= remaining {
			numFrames = remaining
			partial = false
		}
	}

	for i := uint64(0); i < numFrames; i++ {
		s.writeFrame(p[off:off+frameSize], s.sampleIndex)
		s.sampleIndex++
		off += frameSize
	}

	if partial {
		if s.frame == nil {
			s.frame = make([]byte, frameSize)
		}
		s.writeFrame(s.frame, s.sampleIndex)
		s.sampleIndex++
		n := copy(p[off:], s.frame)
		s.pending = s.frame[n:]
		off += n
	}

	return off, nil
}

// writeFrame renders frame index into dst, one sample per channel
func (s *Tone) writeFrame(dst []byte, index uint64) {
	t := float64(index) / float64(s.format.SampleRate)
	v := float32(math.Sin(2*math.Pi*s.frequency*t) * toneLevel)

	for ch := 0; ch < s.format.Channels; ch++ {
		s.put(dst[ch*s.width:(ch+1)*s.width], v)
	}
}

func (s *Tone) Format() audio.Format { return s.format }
func (s *Tone) Metadata() (string, string, string) {
	return "Test Tone", fmt.Sprintf("%.0f Hz", s.frequency), "Test Signal"
}
func (s *Tone) Close() error { return nil }
