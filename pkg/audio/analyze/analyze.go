// ABOUTME: Per-packet signal statistics for raw PCM
// ABOUTME: Min, max, mean, zero crossings and RMS in the packet's native scale
package analyze

import (
	"encoding/binary"
	"math"

	"github.com/Sendspin/audiosink/pkg/audio"
)

// Stats summarizes one packet. Min and Max are on the 16-bit scale; Avg and
// RMS are in the sample format's own units (U8 centred on 128).
type Stats struct {
	Samples       int     `json:"samples"`
	Min           int16   `json:"min_value"`
	Max           int16   `json:"max_value"`
	Avg           float64 `json:"avg_value"`
	ZeroCrossings int     `json:"zero_crossings"`
	RMS           float64 `json:"rms"`
	DBFS          float64 `json:"dbfs"`
}

// silenceDBFS is reported for empty packets and digital silence
const silenceDBFS = -100.0

// Packet computes statistics for interleaved samples of the given format.
// Channels are not separated. Trailing bytes short of one sample are
// ignored. Unknown formats are treated as S16LE.
func Packet(data []byte, format audio.SampleFormat) Stats {
	switch format {
	case audio.S32LE:
		return integers(len(data)/4, func(i int) int64 {
			return int64(int32(binary.LittleEndian.Uint32(data[i*4:])))
		}, func(v int64) int16 {
			return int16(v >> 16)
		}, math.MaxInt32)
	case audio.F32LE:
		return floats(data)
	case audio.S8:
		return integers(len(data), func(i int) int64 {
			return int64(int8(data[i]))
		}, func(v int64) int16 {
			return int16(v)
		}, 128)
	case audio.U8:
		return integers(len(data), func(i int) int64 {
			return int64(data[i]) - 128
		}, func(v int64) int16 {
			return int16(v)
		}, 128)
	default:
		return integers(len(data)/2, func(i int) int64 {
			return int64(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}, func(v int64) int16 {
			return int16(v)
		}, 32768)
	}
}

func integers(n int, at func(int) int64, scale func(int64) int16, fullScale float64) Stats {
	if n == 0 {
		return Stats{DBFS: silenceDBFS}
	}

	minV, maxV := at(0), at(0)
	var sum, sumSq float64
	crossings := 0
	prev := int64(0)

	for i := 0; i < n; i++ {
		v := at(i)
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		f := float64(v)
		sum += f
		sumSq += f * f

		if i > 0 && ((prev < 0 && v >= 0) || (prev > 0 && v <= 0)) {
			crossings++
		}
		prev = v
	}

	rms := math.Sqrt(sumSq / float64(n))
	return Stats{
		Samples:       n,
		Min:           scale(minV),
		Max:           scale(maxV),
		Avg:           sum / float64(n),
		ZeroCrossings: crossings,
		RMS:           rms,
		DBFS:          dbfs(rms / fullScale),
	}
}

func floats(data []byte) Stats {
	n := len(data) / 4
	if n == 0 {
		return Stats{DBFS: silenceDBFS}
	}

	minV := float32(math.Inf(1))
	maxV := float32(math.Inf(-1))
	var sum, sumSq float64
	crossings := 0
	var prev float32

	for i := 0; i < n; i++ {
		v := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		// non-finite samples count as silence, as on the playback path
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			v = 0
		}
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		sum += float64(v)
		sumSq += float64(v) * float64(v)

		if i > 0 && ((prev < 0 && v >= 0) || (prev > 0 && v <= 0)) {
			crossings++
		}
		prev = v
	}

	rms := math.Sqrt(sumSq / float64(n))
	return Stats{
		Samples:       n,
		Min:           floatToInt16(minV),
		Max:           floatToInt16(maxV),
		Avg:           sum / float64(n),
		ZeroCrossings: crossings,
		RMS:           rms,
		DBFS:          dbfs(rms),
	}
}

// floatToInt16 scales by 32767 and saturates; NaN maps to 0
func floatToInt16(v float32) int16 {
	f := float64(v) * math.MaxInt16
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt16:
		return math.MaxInt16
	case f <= math.MinInt16:
		return math.MinInt16
	}
	return int16(f)
}

// dbfs converts a normalized RMS level to decibels relative to full scale
func dbfs(rms float64) float64 {
	if rms <= 0 || math.IsNaN(rms) {
		return silenceDBFS
	}
	if math.IsInf(rms, 1) {
		rms = math.MaxFloat32
	}
	db := 20 * math.Log10(rms)
	if db < silenceDBFS {
		return silenceDBFS
	}
	return db
}
