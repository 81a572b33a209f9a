// ABOUTME: PCM to mono float decoder
// ABOUTME: Downmixes interleaved PCM of any supported format to normalized mono
package decode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Sendspin/audiosink/pkg/audio"
)

// frameFunc decodes one interleaved frame of n channels to a mono sample
type frameFunc func(frame []byte, n int) float32

// Mono decodes raw PCM packets to normalized mono samples
type Mono struct {
	format    audio.Format
	frameSize int
	decode    frameFunc
}

// NewPCM creates a mono decoder for the given source format
func NewPCM(format audio.Format) (*Mono, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source format: %w", err)
	}

	var fn frameFunc
	switch format.SampleFormat {
	case audio.S16LE:
		fn = decodeS16
	case audio.S32LE:
		fn = decodeS32
	case audio.F32LE:
		fn = decodeF32
	case audio.S8:
		fn = decodeS8
	case audio.U8:
		fn = decodeU8
	default:
		return nil, fmt.Errorf("unsupported sample format: %v", format.SampleFormat)
	}

	return &Mono{
		format:    format,
		frameSize: format.FrameSize(),
		decode:    fn,
	}, nil
}

// Format returns the source format this decoder was built for
func (d *Mono) Format() audio.Format {
	return d.format
}

// Frames returns the number of complete frames in a packet of n bytes
func (d *Mono) Frames(n int) int {
	return n / d.frameSize
}

// Truncated returns how many trailing bytes of an n byte packet are discarded
func (d *Mono) Truncated(n int) int {
	return n % d.frameSize
}

// Decode converts a packet into a new slice of mono samples
func (d *Mono) Decode(data []byte) []float32 {
	return d.DecodeInto(nil, data)
}

// DecodeInto appends the mono samples of data to dst and returns it.
// Trailing bytes that do not form a whole frame are ignored.
func (d *Mono) DecodeInto(dst []float32, data []byte) []float32 {
	frames := d.Frames(len(data))
	if frames == 0 {
		return dst
	}

	dst = grow(dst, frames)
	channels := d.format.Channels
	for i := 0; i < frames; i++ {
		off := i * d.frameSize
		dst = append(dst, d.decode(data[off:off+d.frameSize], channels))
	}
	return dst
}

func grow(s []float32, n int) []float32 {
	if cap(s)-len(s) >= n {
		return s
	}
	out := make([]float32, len(s), len(s)+n)
	copy(out, s)
	return out
}

func decodeS16(frame []byte, n int) float32 {
	if n == 1 {
		return float32(int16(binary.LittleEndian.Uint16(frame))) / 32768
	}
	var acc int32
	for ch := 0; ch < n; ch++ {
		acc += int32(int16(binary.LittleEndian.Uint16(frame[ch*2:])))
	}
	avg := clampInt(int64(acc/int32(n)), math.MinInt16, math.MaxInt16)
	return float32(avg) / 32768
}

// decodeS32 keeps only the upper 16 bits of each sample
func decodeS32(frame []byte, n int) float32 {
	if n == 1 {
		return float32(int16(int32(binary.LittleEndian.Uint32(frame))>>16)) / 32768
	}
	var acc int64
	for ch := 0; ch < n; ch++ {
		acc += int64(int32(binary.LittleEndian.Uint32(frame[ch*4:])))
	}
	avg := clampInt(acc/int64(n), math.MinInt32, math.MaxInt32)
	return float32(int16(avg>>16)) / 32768
}

func decodeF32(frame []byte, n int) float32 {
	var acc float32
	for ch := 0; ch < n; ch++ {
		acc += math.Float32frombits(binary.LittleEndian.Uint32(frame[ch*4:]))
	}
	return audio.Clamp(acc / float32(n))
}

func decodeS8(frame []byte, n int) float32 {
	var acc int32
	for ch := 0; ch < n; ch++ {
		acc += int32(int8(frame[ch]))
	}
	avg := clampInt(int64(acc/int32(n)), math.MinInt8, math.MaxInt8)
	return float32(avg) / 128
}

func decodeU8(frame []byte, n int) float32 {
	var acc int32
	for ch := 0; ch < n; ch++ {
		acc += int32(frame[ch]) - 128
	}
	avg := clampInt(int64(acc/int32(n)), -128, 127)
	return float32(avg) / 128
}

func clampInt(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
