// ABOUTME: Normalized sample conversion helpers
// ABOUTME: Writes float samples into device sample formats
package audio

import (
	"encoding/binary"
	"math"
)

// PutFunc writes one normalized sample into b, which is exactly Width() bytes
type PutFunc func(b []byte, v float32)

// Clamp limits v to [-1.0, 1.0]; NaN becomes 0
func Clamp(v float32) float32 {
	if v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Writer returns the device output adaptation for f, or nil when f has none
func Writer(f SampleFormat) PutFunc {
	switch f {
	case F32LE:
		return putF32
	case S16LE:
		return putS16
	case S32LE:
		return putS32
	case S8:
		return putS8
	case U8:
		return putU8
	default:
		return nil
	}
}

func putF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func putS16(b []byte, v float32) {
	s := int16(Clamp(v) * 32767)
	binary.LittleEndian.PutUint16(b, uint16(s))
}

func putS32(b []byte, v float32) {
	s := int32(float64(Clamp(v)) * math.MaxInt32)
	binary.LittleEndian.PutUint32(b, uint32(s))
}

func putS8(b []byte, v float32) {
	b[0] = byte(int8(Clamp(v) * 127))
}

func putU8(b []byte, v float32) {
	b[0] = byte(int16(Clamp(v)*127) + 128)
}
