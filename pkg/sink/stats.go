// ABOUTME: Engine counters and point-in-time statistics
// ABOUTME: Counters are atomics so the render callback can update them lock-free
package sink

import (
	"sync/atomic"

	"github.com/Sendspin/audiosink/pkg/audio"
	"github.com/Sendspin/audiosink/pkg/audio/output"
)

// counters are updated from the producer, the feeder and the render callback
type counters struct {
	received       atomic.Int64
	receivedBytes  atomic.Int64
	discarded      atomic.Int64
	decoded        atomic.Int64
	truncatedBytes atomic.Int64
	evicted        atomic.Int64
	underruns      atomic.Int64
	lockMisses     atomic.Int64
	shortSamples   atomic.Int64
	callbacks      atomic.Int64
	framesRendered atomic.Int64
}

// Stats contains engine statistics
type Stats struct {
	ID     string
	State  State
	Source audio.Format
	Device output.Device

	Received       int64 // packets handed to Push
	ReceivedBytes  int64
	Dropped        int64 // packets evicted from a full queue
	Discarded      int64 // packets thrown away while not playing or on flush
	Decoded        int64 // packets moved into the ring buffer
	TruncatedBytes int64 // trailing partial-frame bytes ignored
	Evicted        int64 // samples evicted from a full ring buffer
	Underruns      int64 // callbacks answered with silence for lack of data
	LockMisses     int64 // callbacks answered with silence because the buffer was busy
	ShortSamples   int64 // zero samples padded onto partially filled callbacks
	Callbacks      int64
	FramesRendered int64

	QueueDepth     int
	QueueCap       int
	BufferedFrames int
	BufferCap      int
	BufferMs       int
}

func (c *counters) snapshot(s *Stats) {
	s.Received = c.received.Load()
	s.ReceivedBytes = c.receivedBytes.Load()
	s.Discarded = c.discarded.Load()
	s.Decoded = c.decoded.Load()
	s.TruncatedBytes = c.truncatedBytes.Load()
	s.Evicted = c.evicted.Load()
	s.Underruns = c.underruns.Load()
	s.LockMisses = c.lockMisses.Load()
	s.ShortSamples = c.shortSamples.Load()
	s.Callbacks = c.callbacks.Load()
	s.FramesRendered = c.framesRendered.Load()
}
