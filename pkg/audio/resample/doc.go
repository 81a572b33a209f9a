// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts mono audio between different sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation between adjacent samples, with no anti-aliasing
// filter. This is cheap and good enough for speech and monitoring, but it
// will alias when downsampling wideband material.
//
// Example:
//
//	r := resample.New(48000, 44100)
//	out := r.ResampleInto(out[:0], mono)
package resample
