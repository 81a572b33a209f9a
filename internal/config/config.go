// ABOUTME: Command line and environment configuration for the sink binary
// ABOUTME: Flags default to environment variables, then to built-in values
package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Sendspin/audiosink/internal/debug"
	"github.com/Sendspin/audiosink/internal/source"
	"github.com/Sendspin/audiosink/pkg/audio"
	"github.com/Sendspin/audiosink/pkg/audio/output"
	"github.com/Sendspin/audiosink/pkg/sink"
)

// Environment variables read for defaults
const (
	EnvPlayback   = "ENABLE_PLAYBACK"
	EnvSampleRate = "AUDIO_SAMPLE_RATE"
	EnvChannels   = "AUDIO_CHANNELS"
	EnvDebug      = "ENABLE_DEBUG"
	EnvDebugFile  = "DEBUG_FILE"
	EnvDebugMax   = "DEBUG_MAX_ENTRIES"
)

// Config is the resolved configuration of one run
type Config struct {
	// Upstream
	Source         string
	Input          string
	Loop           bool
	Frequency      float64
	Format         audio.Format
	PacketDuration time.Duration

	// Engine
	Playback       bool
	Backend        string
	DeviceRate     int
	DeviceChannels int
	QueuePackets   int
	Buffer         time.Duration
	Prefill        time.Duration
	Refill         sink.RefillMode

	// Presentation
	NoTUI   bool
	LogFile string

	// Debug
	Debug     bool
	DebugFile string
	DebugMax  int
}

// Parse resolves configuration from args (without the program name) and
// the environment. getenv is usually os.Getenv.
func Parse(name string, args []string, getenv func(string) string, usage io.Writer) (*Config, error) {
	c := &Config{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if usage != nil {
		fs.SetOutput(usage)
	}

	var formatName, refillName string
	var streamLogs bool

	fs.StringVar(&c.Source, "source", "", "Upstream producer: tone, raw, wav, aiff, mp3, ogg, flac (default: from -input extension)")
	fs.StringVar(&c.Input, "input", "", "Input file; \"-\" reads raw PCM from stdin")
	fs.BoolVar(&c.Loop, "loop", false, "Restart file inputs at end of stream")
	fs.Float64Var(&c.Frequency, "freq", source.DefaultToneFrequency, "Test tone frequency in Hz")
	fs.StringVar(&formatName, "format", "S16LE", "Sample format of raw and tone input: S16LE, S32LE, F32LE, S8, U8")
	fs.IntVar(&c.Format.Channels, "channels", envInt(getenv, EnvChannels, 1), "Channels of raw and tone input")
	fs.IntVar(&c.Format.SampleRate, "rate", envInt(getenv, EnvSampleRate, 48000), "Sample rate of raw and tone input")
	fs.DurationVar(&c.PacketDuration, "packet", source.DefaultPacketDuration, "Audio duration of each pushed packet")

	fs.BoolVar(&c.Playback, "playback", envBool(getenv, EnvPlayback, true), "Play audio; false discards packets without opening a device")
	fs.StringVar(&c.Backend, "backend", "", "Output backend: malgo, oto, mock (default: malgo)")
	fs.IntVar(&c.DeviceRate, "device-rate", 0, "Preferred device sample rate (default: device native)")
	fs.IntVar(&c.DeviceChannels, "device-channels", 0, "Preferred device channel count (default: device native)")
	fs.IntVar(&c.QueuePackets, "queue", sink.DefaultMaxQueuePackets, "Maximum queued packets before the oldest is dropped")
	fs.DurationVar(&c.Buffer, "buffer", sink.DefaultBufferDuration, "Ring buffer capacity")
	fs.DurationVar(&c.Prefill, "prefill", sink.DefaultPrefill, "Minimum buffered audio before short requests are played")
	fs.StringVar(&refillName, "refill", "callback", "Refill strategy: callback or feeder")

	fs.BoolVar(&c.NoTUI, "no-tui", false, "Disable TUI, use streaming logs instead")
	fs.BoolVar(&streamLogs, "stream-logs", false, "Alias for -no-tui")
	fs.StringVar(&c.LogFile, "log-file", "audiosink.log", "Log file path")

	fs.BoolVar(&c.Debug, "debug", envBool(getenv, EnvDebug, false), "Record packet history and write it as JSON")
	fs.StringVar(&c.DebugFile, "debug-file", envString(getenv, EnvDebugFile, debug.DefaultFile), "Debug history file")
	fs.IntVar(&c.DebugMax, "debug-max", envInt(getenv, EnvDebugMax, debug.DefaultMaxEntries), "Packets kept in the debug history")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	sf, err := audio.ParseSampleFormat(formatName)
	if err != nil {
		return nil, err
	}
	c.Format.SampleFormat = sf

	if c.Refill, err = sink.ParseRefillMode(refillName); err != nil {
		return nil, err
	}
	c.NoTUI = c.NoTUI || streamLogs

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks values the engine and producers would reject later
func (c *Config) Validate() error {
	if err := c.Format.Validate(); err != nil {
		return fmt.Errorf("invalid input format: %w", err)
	}
	if c.Frequency <= 0 {
		return fmt.Errorf("tone frequency must be positive, got %v", c.Frequency)
	}
	if c.PacketDuration <= 0 {
		return fmt.Errorf("packet duration must be positive, got %v", c.PacketDuration)
	}
	if c.DeviceRate < 0 || c.DeviceChannels < 0 {
		return fmt.Errorf("device rate and channels must not be negative")
	}
	if c.QueuePackets < 1 {
		return fmt.Errorf("queue must hold at least one packet, got %d", c.QueuePackets)
	}
	if c.Buffer <= 0 {
		return fmt.Errorf("buffer must be positive, got %v", c.Buffer)
	}
	if c.Prefill < 0 || c.Prefill > c.Buffer {
		return fmt.Errorf("prefill %v must be between 0 and the buffer %v", c.Prefill, c.Buffer)
	}
	if c.DebugMax < 1 {
		return fmt.Errorf("debug history must hold at least one entry, got %d", c.DebugMax)
	}
	return nil
}

// SourceOptions describes the upstream producer
func (c *Config) SourceOptions() source.Options {
	return source.Options{
		Kind:      c.Source,
		Path:      c.Input,
		Format:    c.Format,
		Frequency: c.Frequency,
		Loop:      c.Loop,
	}
}

// Engine builds the engine configuration for packets in format
func (c *Config) Engine(format audio.Format, onError func(error)) sink.Config {
	return sink.Config{
		Source:          format,
		DisablePlayback: !c.Playback,
		MaxQueuePackets: c.QueuePackets,
		BufferDuration:  c.Buffer,
		Prefill:         c.Prefill,
		RefillMode:      c.Refill,
		Device: output.Request{
			SampleRate: c.DeviceRate,
			Channels:   c.DeviceChannels,
		},
		OnError: onError,
	}
}

// Recorder builds the debug recorder configuration
func (c *Config) Recorder(format audio.Format, engineID string) debug.Config {
	return debug.Config{
		Enabled:    c.Debug,
		File:       c.DebugFile,
		MaxEntries: c.DebugMax,
		Format:     format,
		EngineID:   engineID,
	}
}

func envString(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// envInt and envBool fall back to def when the variable is unset or unparsable
func envInt(getenv func(string) string, key string, def int) int {
	v, err := strconv.Atoi(getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envBool(getenv func(string) string, key string, def bool) bool {
	v, err := strconv.ParseBool(getenv(key))
	if err != nil {
		return def
	}
	return v
}
