// ABOUTME: Simple linear resampler for converting mono sample rates
// ABOUTME: Converts one packet at a time using linear interpolation
package resample

import "math"

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	ratio      float64 // outputRate / inputRate
}

// New creates a new resampler
func New(inputRate, outputRate int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		ratio:      float64(outputRate) / float64(inputRate),
	}
}

// InputRate returns the source sample rate
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the target sample rate
func (r *Resampler) OutputRate() int { return r.outputRate }

// Passthrough reports whether the rates are equal
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// OutputLen returns how many samples Resample produces for n input samples
func (r *Resampler) OutputLen(n int) int {
	if n == 0 {
		return 0
	}
	if r.Passthrough() {
		return n
	}
	return int(math.Round(float64(n) * r.ratio))
}

// Resample converts input to the output rate in a new slice
func (r *Resampler) Resample(input []float32) []float32 {
	if r.Passthrough() {
		return input
	}
	return r.ResampleInto(nil, input)
}

// ResampleInto appends the resampled input to dst and returns it.
// Each call is independent; no phase is carried between packets.
func (r *Resampler) ResampleInto(dst, input []float32) []float32 {
	if len(input) == 0 {
		return dst
	}
	if r.Passthrough() {
		return append(dst, input...)
	}

	outLen := r.OutputLen(len(input))
	last := len(input) - 1

	if cap(dst)-len(dst) < outLen {
		grown := make([]float32, len(dst), len(dst)+outLen)
		copy(grown, dst)
		dst = grown
	}

	for k := 0; k < outLen; k++ {
		pos := float64(k) / r.ratio
		i := int(pos)
		frac := float32(pos - float64(i))

		if i > last {
			i = last
		}
		next := i + 1
		if next > last {
			next = last
		}

		s0 := input[i]
		s1 := input[next]
		dst = append(dst, s0+(s1-s0)*frac)
	}

	return dst
}
