// Package sink plays a stream of raw PCM packets on an audio output.
//
// Packets pushed into an Engine wait in a bounded PacketQueue. They are
// decoded to mono float32, resampled to the device rate and appended to a
// RingBuffer, either from inside the device callback or from a feeder
// goroutine. The Renderer answers every device callback: it plays buffered
// samples when enough are available, duplicated into every output channel,
// and writes silence otherwise.
//
// Both buffers drop their oldest contents when full, so latency stays
// bounded when the producer outruns the device.
//
// Example:
//
//	out, _ := output.New("malgo")
//	engine, err := sink.New(sink.Config{
//		Source: audio.Format{SampleFormat: audio.S16LE, Channels: 1, SampleRate: 48000},
//	}, out)
//	if err != nil {
//		return err
//	}
//	if err := engine.Start(ctx); err != nil {
//		return err
//	}
//	engine.Push(packet)
//	...
//	engine.Close()
package sink
