// ABOUTME: Playback engine lifecycle and packet ingress
// ABOUTME: Owns the output stream, background loops and shutdown ordering
package sink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sendspin/audiosink/pkg/audio"
	"github.com/Sendspin/audiosink/pkg/audio/decode"
	"github.com/Sendspin/audiosink/pkg/audio/output"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrStopped is returned by Start once the engine has stopped
	ErrStopped = errors.New("engine stopped")
	// ErrAlreadyStarted is returned by a second Start
	ErrAlreadyStarted = errors.New("engine already started")
)

// monitorInterval is how often loss counters are checked and logged
const monitorInterval = time.Second

// State is the engine lifecycle state
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Engine plays pushed PCM packets on an output device
type Engine struct {
	id     string
	config Config
	out    output.Output
	queue  *PacketQueue
	stats  counters

	state    atomic.Int32
	stopping atomic.Bool

	mu       sync.Mutex
	device   output.Device
	renderer *Renderer
	opened   bool
	cancel   context.CancelFunc
	group    *errgroup.Group
	waitErr  error
}

// New creates an idle engine. out may be nil when playback is disabled.
func New(config Config, out output.Output) (*Engine, error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if out == nil && !config.DisablePlayback {
		return nil, fmt.Errorf("an output is required unless playback is disabled")
	}

	return &Engine{
		id:     uuid.New().String(),
		config: config,
		out:    out,
		queue:  NewPacketQueue(config.MaxQueuePackets),
	}, nil
}

// ID returns the engine instance ID
func (e *Engine) ID() string {
	return e.id
}

// Config returns the configuration with defaults applied
func (e *Engine) Config() Config {
	return e.config
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Device returns the negotiated output stream, zero before Start
func (e *Engine) Device() output.Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.device
}

// Start opens the output and begins playback. A missing device is fatal:
// the error is returned and the engine stays idle. Cancelling ctx has the
// same effect as Shutdown.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.State() {
	case StateRunning, StateShuttingDown:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrStopped
	}

	var renderer *Renderer
	if e.config.DisablePlayback {
		log.Printf("Audio sink %s: playback disabled, packets will be discarded", e.id)
	} else {
		device, err := e.out.Open(e.config.Device)
		if err != nil {
			return fmt.Errorf("failed to open audio output: %w", err)
		}
		if err := validateDevice(device); err != nil {
			e.closeOutput()
			return err
		}

		decoder, err := decode.NewPCM(e.config.Source)
		if err != nil {
			e.closeOutput()
			return err
		}

		renderer = newRenderer(rendererConfig{
			device:       device,
			decoder:      decoder,
			queue:        e.queue,
			bufferFrames: samplesFor(e.config.BufferDuration, device.SampleRate),
			prefill:      samplesFor(e.config.Prefill, device.SampleRate),
			refill:       e.config.RefillMode == RefillInCallback,
			stopping:     &e.stopping,
			stats:        &e.stats,
		})
		e.device = device
		e.renderer = renderer
		e.opened = true
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	e.state.Store(int32(StateRunning))

	if renderer != nil {
		if err := e.out.Start(renderer.Render); err != nil {
			cancel()
			e.state.Store(int32(StateIdle))
			e.closeOutput()
			e.renderer = nil
			e.device = output.Device{}
			return fmt.Errorf("failed to start audio output: %w", err)
		}
	}

	e.cancel = cancel
	e.group = g

	g.Go(func() error {
		<-gctx.Done()
		e.beginShutdown()
		return nil
	})

	if renderer != nil && e.config.RefillMode == RefillInFeeder {
		target := samplesFor(e.config.FeederTarget, e.device.SampleRate)
		g.Go(func() error {
			return runFeeder(gctx, renderer, target, e.config.PollInterval)
		})
	}

	g.Go(func() error {
		return e.monitor(gctx)
	})

	if renderer != nil {
		log.Printf("Audio sink %s started: %s -> %s, refill=%s, queue=%d packets, buffer=%v, prefill=%v",
			e.id, e.config.Source, e.device, e.config.RefillMode,
			e.config.MaxQueuePackets, e.config.BufferDuration, e.config.Prefill)
	}

	return nil
}

func validateDevice(d output.Device) error {
	if d.SampleRate <= 0 || d.Channels <= 0 {
		return fmt.Errorf("output negotiated an unusable stream: %s", d)
	}
	if audio.Writer(d.Format) == nil {
		return fmt.Errorf("output negotiated an unsupported sample format: %s", d.Format)
	}
	return nil
}

// closeOutput releases the device (must hold e.mu)
func (e *Engine) closeOutput() error {
	if e.out == nil {
		return nil
	}
	e.opened = false
	return e.out.Close()
}

// Push hands one packet in the source format to the engine. The engine
// takes ownership of data. It reports whether the packet was queued.
func (e *Engine) Push(data []byte) bool {
	e.stats.received.Add(1)
	e.stats.receivedBytes.Add(int64(len(data)))

	if e.config.DisablePlayback || e.State() != StateRunning || e.stopping.Load() {
		e.stats.discarded.Add(1)
		return false
	}

	e.queue.Enqueue(data)
	return true
}

// Flush discards all queued and buffered audio without stopping playback.
// It returns the number of queued packets discarded.
func (e *Engine) Flush() int {
	if e.State() != StateRunning {
		return 0
	}

	n := len(e.queue.DequeueAll())
	e.stats.discarded.Add(int64(n))

	e.mu.Lock()
	renderer := e.renderer
	e.mu.Unlock()
	if renderer != nil {
		renderer.Reset()
	}
	return n
}

// Shutdown signals the engine to stop. It does not wait; call Wait.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	e.beginShutdown()
	cancel()
}

func (e *Engine) beginShutdown() {
	if !e.stopping.CompareAndSwap(false, true) {
		return
	}
	e.state.CompareAndSwap(int32(StateRunning), int32(StateShuttingDown))
	log.Printf("Audio sink %s: shutting down", e.id)
}

// Wait blocks until background work has finished, then closes the output.
// An engine that was never started stops immediately.
func (e *Engine) Wait() error {
	e.mu.Lock()
	group := e.group
	e.mu.Unlock()

	var err error
	if group != nil {
		err = group.Wait()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.State() == StateStopped {
		return e.waitErr
	}

	e.stopping.Store(true)
	if e.opened {
		if cerr := e.closeOutput(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close audio output: %w", cerr)
		}
	}

	if left := e.queue.DequeueAll(); len(left) > 0 {
		e.stats.discarded.Add(int64(len(left)))
		log.Printf("Audio sink %s: discarded %d queued packets on shutdown", e.id, len(left))
	}

	e.state.Store(int32(StateStopped))
	e.waitErr = err

	if e.config.OnError != nil && err != nil {
		e.config.OnError(err)
	}

	var s Stats
	e.stats.snapshot(&s)
	log.Printf("Audio sink %s stopped: received=%d decoded=%d dropped=%d discarded=%d underruns=%d",
		e.id, s.Received, s.Decoded, e.queue.Dropped(), s.Discarded, s.Underruns)

	return err
}

// Close shuts the engine down and waits for it to stop
func (e *Engine) Close() error {
	e.Shutdown()
	return e.Wait()
}

// Stats returns a snapshot of engine statistics
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	renderer := e.renderer
	device := e.device
	e.mu.Unlock()

	s := Stats{
		ID:         e.id,
		State:      e.State(),
		Source:     e.config.Source,
		Device:     device,
		Dropped:    e.queue.Dropped(),
		QueueDepth: e.queue.Len(),
		QueueCap:   e.queue.Cap(),
	}
	e.stats.snapshot(&s)

	if renderer != nil {
		s.BufferedFrames = renderer.Buffered()
		s.BufferCap = renderer.BufferCap()
		if device.SampleRate > 0 {
			s.BufferMs = s.BufferedFrames * 1000 / device.SampleRate
		}
	}
	return s
}

// monitor logs loss counters from outside the real-time path, at most once
// per interval and only when they changed
func (e *Engine) monitor(ctx context.Context) error {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	var prev Stats
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cur := e.Stats()
			dropped := cur.Dropped - prev.Dropped
			evicted := cur.Evicted - prev.Evicted
			truncated := cur.TruncatedBytes - prev.TruncatedBytes
			lockMisses := cur.LockMisses - prev.LockMisses

			// underruns before the first packet are just the device waiting
			underruns := int64(0)
			if prev.Decoded > 0 {
				underruns = cur.Underruns - prev.Underruns
			}

			if dropped > 0 || evicted > 0 || truncated > 0 {
				log.Printf("Audio sink %s: overflow in last %v: %d packets dropped, %d samples evicted, %d bytes truncated",
					e.id, monitorInterval, dropped, evicted, truncated)
			}
			if underruns > 0 || lockMisses > 0 {
				log.Printf("Audio sink %s: %d underruns, %d lock misses in last %v (buffered %dms, queue %d/%d)",
					e.id, underruns, lockMisses, monitorInterval, cur.BufferMs, cur.QueueDepth, cur.QueueCap)
			}
			prev = cur
		}
	}
}
