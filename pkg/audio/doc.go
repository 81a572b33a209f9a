// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines SampleFormat, Format and device sample writers
// Package audio provides fundamental PCM types shared by the sink packages.
//
// This package defines:
//   - SampleFormat: the closed set of linear PCM encodings (S16LE, S32LE,
//     F32LE, S8, U8)
//   - Format: sample format, channel count and sample rate of a stream
//
// It also provides Writer, which returns the function used to write a
// normalized float sample into a device buffer of a given format.
//
// Example:
//
//	format := audio.Format{
//	    SampleFormat: audio.S16LE,
//	    Channels:     2,
//	    SampleRate:   48000,
//	}
//
//	put := audio.Writer(audio.S16LE)
//	put(buf[0:2], 0.5)
package audio
