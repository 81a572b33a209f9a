// ABOUTME: Engine configuration and defaults
// ABOUTME: Source format, buffering limits and refill strategy
package sink

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sendspin/audiosink/pkg/audio"
	"github.com/Sendspin/audiosink/pkg/audio/output"
)

// Defaults applied by Config when a field is left zero
const (
	DefaultMaxQueuePackets = 100
	DefaultBufferDuration  = 5 * time.Second
	DefaultPrefill         = 100 * time.Millisecond
	DefaultPollInterval    = 10 * time.Millisecond
	MaxPollInterval        = 100 * time.Millisecond
)

// DefaultSource is the packet format assumed when none is configured
var DefaultSource = audio.Format{
	SampleFormat: audio.S16LE,
	Channels:     1,
	SampleRate:   48000,
}

// RefillMode selects where the ring buffer is topped up from the queue
type RefillMode int

const (
	// RefillInCallback decodes queued packets inside the render callback
	RefillInCallback RefillMode = iota
	// RefillInFeeder decodes on a background goroutine; the callback only copies
	RefillInFeeder
)

func (m RefillMode) String() string {
	switch m {
	case RefillInCallback:
		return "callback"
	case RefillInFeeder:
		return "feeder"
	default:
		return fmt.Sprintf("RefillMode(%d)", int(m))
	}
}

// ParseRefillMode parses "callback" or "feeder"
func ParseRefillMode(s string) (RefillMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "callback":
		return RefillInCallback, nil
	case "feeder":
		return RefillInFeeder, nil
	default:
		return 0, fmt.Errorf("unknown refill mode: %q (supported: callback, feeder)", s)
	}
}

// Config holds engine configuration
type Config struct {
	// Source is the format of every pushed packet (default: S16LE mono 48kHz)
	Source audio.Format

	// DisablePlayback skips all device I/O and discards pushed packets
	DisablePlayback bool

	// MaxQueuePackets bounds the packet queue (default: 100)
	MaxQueuePackets int

	// BufferDuration bounds the ring buffer at the device rate (default: 5s)
	BufferDuration time.Duration

	// Prefill is the minimum buffered audio before a short request is
	// played instead of silenced (default: 100ms)
	Prefill time.Duration

	// RefillMode selects callback or feeder refill
	RefillMode RefillMode

	// FeederTarget is the level the feeder keeps the ring at (default: 2 x Prefill)
	FeederTarget time.Duration

	// PollInterval is how often background loops run (default: 10ms, max 100ms)
	PollInterval time.Duration

	// Device is the preferred output stream; zero fields take the device's native values
	Device output.Request

	// OnError is called for errors that happen after Start returned
	OnError func(error)
}

func (c *Config) applyDefaults() {
	if c.Source.SampleFormat == audio.FormatUnknown {
		c.Source.SampleFormat = DefaultSource.SampleFormat
	}
	if c.Source.Channels == 0 {
		c.Source.Channels = DefaultSource.Channels
	}
	if c.Source.SampleRate == 0 {
		c.Source.SampleRate = DefaultSource.SampleRate
	}
	if c.MaxQueuePackets == 0 {
		c.MaxQueuePackets = DefaultMaxQueuePackets
	}
	if c.BufferDuration == 0 {
		c.BufferDuration = DefaultBufferDuration
	}
	if c.Prefill == 0 {
		c.Prefill = DefaultPrefill
	}
	if c.FeederTarget == 0 {
		c.FeederTarget = 2 * c.Prefill
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
}

// Validate checks the configuration after defaults are applied
func (c Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("invalid source format: %w", err)
	}
	if c.MaxQueuePackets < 1 {
		return fmt.Errorf("max queue packets must be positive, got %d", c.MaxQueuePackets)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer duration must be positive, got %v", c.BufferDuration)
	}
	if c.Prefill < 0 || c.Prefill > c.BufferDuration {
		return fmt.Errorf("prefill %v must be between 0 and the buffer duration %v", c.Prefill, c.BufferDuration)
	}
	if c.FeederTarget < 0 || c.FeederTarget > c.BufferDuration {
		return fmt.Errorf("feeder target %v must be between 0 and the buffer duration %v", c.FeederTarget, c.BufferDuration)
	}
	if c.PollInterval <= 0 || c.PollInterval > MaxPollInterval {
		return fmt.Errorf("poll interval must be in (0, %v], got %v", MaxPollInterval, c.PollInterval)
	}
	if c.RefillMode != RefillInCallback && c.RefillMode != RefillInFeeder {
		return fmt.Errorf("invalid refill mode: %v", c.RefillMode)
	}
	if c.Device.SampleRate < 0 || c.Device.Channels < 0 {
		return fmt.Errorf("invalid device request: %dHz, %d channels", c.Device.SampleRate, c.Device.Channels)
	}
	return nil
}

// samplesFor converts a duration to a sample count at rate
func samplesFor(d time.Duration, rate int) int {
	return int(int64(rate) * int64(d) / int64(time.Second))
}
