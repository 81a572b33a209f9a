// ABOUTME: Audio decoder package for linear PCM packets
// ABOUTME: Provides the mono normalizing decoder used by the sink
// Package decode converts raw linear PCM packets to normalized mono samples.
//
// Supports: S16LE, S32LE, F32LE, S8 and U8 with any channel count.
// Multi-channel frames are downmixed by averaging, and every output sample
// lies in [-1.0, 1.0]. The per-format decode function is chosen once when
// the decoder is created.
//
// S32LE input is reduced to its upper 16 bits before normalization, so it
// carries no more precision than S16LE.
//
// Example:
//
//	decoder, err := decode.NewPCM(audio.Format{SampleFormat: audio.S16LE, Channels: 2, SampleRate: 48000})
//	mono := decoder.Decode(packet)
package decode
