// ABOUTME: Audio type definitions
// ABOUTME: Defines PCM sample formats and stream format descriptors
package audio

import (
	"fmt"
	"strings"
)

// SampleFormat identifies the encoding of one PCM sample
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	S16LE                      // signed 16-bit little-endian
	S32LE                      // signed 32-bit little-endian
	F32LE                      // IEEE float 32-bit little-endian
	S8                         // signed 8-bit
	U8                         // unsigned 8-bit, 128 is silence
)

// Formats lists every supported sample format
var Formats = []SampleFormat{S16LE, S32LE, F32LE, S8, U8}

// ParseSampleFormat converts a format name such as "S16LE" to a SampleFormat
func ParseSampleFormat(name string) (SampleFormat, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "S16LE", "S16":
		return S16LE, nil
	case "S32LE", "S32":
		return S32LE, nil
	case "F32LE", "F32":
		return F32LE, nil
	case "S8":
		return S8, nil
	case "U8":
		return U8, nil
	default:
		return FormatUnknown, fmt.Errorf("unsupported sample format: %q (supported: S16LE, S32LE, F32LE, S8, U8)", name)
	}
}

// Width returns the size of one sample in bytes, or 0 for FormatUnknown
func (f SampleFormat) Width() int {
	switch f {
	case S16LE:
		return 2
	case S32LE, F32LE:
		return 4
	case S8, U8:
		return 1
	default:
		return 0
	}
}

// IsFloat reports whether samples are floating point
func (f SampleFormat) IsFloat() bool {
	return f == F32LE
}

func (f SampleFormat) String() string {
	switch f {
	case S16LE:
		return "S16LE"
	case S32LE:
		return "S32LE"
	case F32LE:
		return "F32LE"
	case S8:
		return "S8"
	case U8:
		return "U8"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// Format describes a PCM stream
type Format struct {
	SampleFormat SampleFormat
	Channels     int
	SampleRate   int
}

// FrameSize returns the number of bytes in one interleaved frame
func (f Format) FrameSize() int {
	return f.SampleFormat.Width() * f.Channels
}

// BytesPerSecond returns the byte rate of the stream
func (f Format) BytesPerSecond() int {
	return f.FrameSize() * f.SampleRate
}

// Validate checks that the format can be decoded
func (f Format) Validate() error {
	if f.SampleFormat.Width() == 0 {
		return fmt.Errorf("unsupported sample format: %v", f.SampleFormat)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", f.Channels)
	}
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%s %dHz %dch", f.SampleFormat, f.SampleRate, f.Channels)
}
