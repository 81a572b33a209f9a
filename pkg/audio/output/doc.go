// ABOUTME: Audio output package for callback-driven playback
// ABOUTME: Provides Output interface with malgo, oto and mock backends
// Package output provides audio playback backends.
//
// Backends negotiate a stream format with the host and then pull audio from
// a RenderFunc on their own real-time schedule:
//   - Malgo: miniaudio, opens the device at its native rate, channel count
//     and sample format
//   - Oto: ebitengine/oto, fixed format chosen by the caller
//   - Mock: no hardware, for tests and headless runs
//
// Example:
//
//	out := output.NewMalgo()
//	dev, err := out.Open(output.Request{})
//	err = out.Start(func(buf []byte, frames int) { ... })
package output
