// ABOUTME: Real-time render path from queued packets to device frames
// ABOUTME: Refills the ring buffer, applies the prefill rule and writes channels
package sink

import (
	"sync"
	"sync/atomic"

	"github.com/Sendspin/audiosink/pkg/audio"
	"github.com/Sendspin/audiosink/pkg/audio/decode"
	"github.com/Sendspin/audiosink/pkg/audio/output"
	"github.com/Sendspin/audiosink/pkg/audio/resample"
)

// Renderer turns queued packets into frames for one negotiated device.
// Render is safe to call from the backend's real-time thread: it never
// blocks on a lock and answers with silence instead.
type Renderer struct {
	device     output.Device
	queue      *PacketQueue
	decoder    *decode.Mono
	resampler  *resample.Resampler
	put        audio.PutFunc
	width      int
	frameSize  int
	minPrefill int
	refill     bool

	stopping *atomic.Bool
	stats    *counters
	buffered atomic.Int64

	silence   []byte
	zeroBytes bool

	// mu guards ring and the callback scratch buffers
	mu        sync.Mutex
	ring      *RingBuffer
	decoded   []float32
	resampled []float32
	mono      []float32

	// feeder-owned scratch, only touched by Fill
	feedMu        sync.Mutex
	feedDecoded   []float32
	feedResampled []float32
}

type rendererConfig struct {
	device       output.Device
	decoder      *decode.Mono
	queue        *PacketQueue
	bufferFrames int
	prefill      int
	refill       bool
	stopping     *atomic.Bool
	stats        *counters
}

func newRenderer(cfg rendererConfig) *Renderer {
	put := audio.Writer(cfg.device.Format)
	width := cfg.device.Format.Width()

	silence := make([]byte, width)
	put(silence, 0)
	zeroBytes := true
	for _, b := range silence {
		if b != 0 {
			zeroBytes = false
		}
	}

	stopping := cfg.stopping
	if stopping == nil {
		stopping = &atomic.Bool{}
	}
	stats := cfg.stats
	if stats == nil {
		stats = &counters{}
	}

	return &Renderer{
		device:     cfg.device,
		queue:      cfg.queue,
		decoder:    cfg.decoder,
		resampler:  resample.New(cfg.decoder.Format().SampleRate, cfg.device.SampleRate),
		put:        put,
		width:      width,
		frameSize:  cfg.device.FrameSize(),
		minPrefill: cfg.prefill,
		refill:     cfg.refill,
		stopping:   stopping,
		stats:      stats,
		silence:    silence,
		zeroBytes:  zeroBytes,
		ring:       NewRingBuffer(cfg.bufferFrames),
	}
}

// Render fills out with frames interleaved device frames
func (r *Renderer) Render(out []byte, frames int) {
	r.stats.callbacks.Add(1)

	if limit := len(out) / r.frameSize; frames > limit {
		frames = limit
	}
	if frames <= 0 || r.stopping.Load() {
		r.fillSilence(out)
		return
	}

	if !r.mu.TryLock() {
		r.stats.lockMisses.Add(1)
		r.fillSilence(out)
		return
	}
	defer r.mu.Unlock()

	if r.refill {
		r.refillLocked(frames)
	}

	avail := r.ring.Available()
	if avail < frames && avail < r.minPrefill {
		r.stats.underruns.Add(1)
		r.fillSilence(out)
		return
	}

	if cap(r.mono) < frames {
		r.mono = make([]float32, frames)
	}
	mono := r.mono[:frames]
	n := r.ring.Read(mono)
	if n < frames {
		clear(mono[n:])
		r.stats.shortSamples.Add(int64(frames - n))
	}
	r.buffered.Store(int64(r.ring.Available()))

	off := 0
	for _, v := range mono {
		for c := 0; c < r.device.Channels; c++ {
			r.put(out[off:off+r.width], v)
			off += r.width
		}
	}
	if off < len(out) {
		r.fillSilence(out[off:])
	}

	r.stats.framesRendered.Add(int64(frames))
}

// refillLocked moves packets into the ring until it covers frames or the
// queue is empty. A busy queue counts as empty.
func (r *Renderer) refillLocked(frames int) {
	for r.ring.Available() < frames {
		if r.stopping.Load() {
			return
		}
		packet, ok := r.queue.tryDequeueNoWait()
		if !ok {
			return
		}

		r.decoded = r.decoder.DecodeInto(r.decoded[:0], packet)
		r.stats.truncatedBytes.Add(int64(r.decoder.Truncated(len(packet))))

		samples := r.decoded
		if !r.resampler.Passthrough() {
			r.resampled = r.resampler.ResampleInto(r.resampled[:0], r.decoded)
			samples = r.resampled
		}

		r.stats.evicted.Add(int64(r.ring.Write(samples)))
		r.stats.decoded.Add(1)
	}
	r.buffered.Store(int64(r.ring.Available()))
}

// Fill decodes queued packets into the ring until it holds at least target
// samples or the queue runs dry. Decoding happens outside the render lock.
// It returns the number of packets consumed.
func (r *Renderer) Fill(target int) int {
	r.feedMu.Lock()
	defer r.feedMu.Unlock()

	consumed := 0
	for !r.stopping.Load() {
		if int(r.buffered.Load()) >= target {
			return consumed
		}

		packet, ok := r.queue.TryDequeue()
		if !ok {
			return consumed
		}

		r.feedDecoded = r.decoder.DecodeInto(r.feedDecoded[:0], packet)
		r.stats.truncatedBytes.Add(int64(r.decoder.Truncated(len(packet))))

		samples := r.feedDecoded
		if !r.resampler.Passthrough() {
			r.feedResampled = r.resampler.ResampleInto(r.feedResampled[:0], r.feedDecoded)
			samples = r.feedResampled
		}

		r.mu.Lock()
		r.stats.evicted.Add(int64(r.ring.Write(samples)))
		r.buffered.Store(int64(r.ring.Available()))
		r.mu.Unlock()

		r.stats.decoded.Add(1)
		consumed++
	}
	return consumed
}

// Reset drops all buffered samples. It waits for a Fill in progress so a
// packet already taken from the queue cannot land after the reset.
func (r *Renderer) Reset() {
	r.feedMu.Lock()
	defer r.feedMu.Unlock()

	r.mu.Lock()
	r.ring.Reset()
	r.buffered.Store(0)
	r.mu.Unlock()
}

// Buffered returns the number of samples waiting in the ring buffer
func (r *Renderer) Buffered() int {
	return int(r.buffered.Load())
}

// BufferCap returns the ring buffer capacity in samples
func (r *Renderer) BufferCap() int {
	return r.ring.Cap()
}

func (r *Renderer) fillSilence(out []byte) {
	if r.zeroBytes {
		clear(out)
		return
	}
	for i := 0; i+r.width <= len(out); i += r.width {
		copy(out[i:], r.silence)
	}
}
