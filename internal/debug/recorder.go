// ABOUTME: Packet history recorder for diagnosing upstream audio
// ABOUTME: Analyzes each packet, keeps recent records and dumps them as JSON
package debug

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"time"

	"github.com/Sendspin/audiosink/pkg/audio"
	"github.com/Sendspin/audiosink/pkg/audio/analyze"
)

const (
	// DefaultFile is where the history is written
	DefaultFile = "audio_debug.json"
	// DefaultMaxEntries bounds the in-memory history
	DefaultMaxEntries = 100

	dumpEvery   = 10
	statusEvery = 100

	edgeBytes = 16
)

// Record describes one received packet
type Record struct {
	Timestamp  time.Time     `json:"timestamp"`
	DataLength int           `json:"data_length"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Format     string        `json:"format"`
	FirstBytes string        `json:"first_bytes"`
	LastBytes  string        `json:"last_bytes"`
	Stats      analyze.Stats `json:"data_stats"`
}

// Dump is the document written to the debug file
type Dump struct {
	EngineID     string    `json:"engine_id,omitempty"`
	WrittenAt    time.Time `json:"written_at"`
	TotalPackets int64     `json:"total_packets"`
	TotalBytes   int64     `json:"total_bytes"`
	Entries      []Record  `json:"entries"`
}

// Summary is a point-in-time view for status displays
type Summary struct {
	Packets        int64
	Bytes          int64
	Last           analyze.Stats
	ExpectedRate   float64
	CalculatedRate float64
}

// Config configures a Recorder
type Config struct {
	// Enabled turns on history, per-packet reports and JSON dumps.
	// A disabled recorder only logs a status line every 100 packets.
	Enabled bool

	// File receives the JSON dump (default: audio_debug.json)
	File string

	// MaxEntries bounds the history (default: 100)
	MaxEntries int

	// Format of every observed packet
	Format audio.Format

	// EngineID tags dumps with the engine instance
	EngineID string

	// Now is the clock; tests replace it
	Now func() time.Time
}

// Recorder observes packets on their way into the engine
type Recorder struct {
	config Config

	mu      sync.Mutex
	history []Record
	packets int64
	bytes   int64
	frames  int64 // frames received before the latest packet
	first   time.Time
	last    Record
	rate    float64
}

// New creates a recorder, filling in defaults
func New(config Config) *Recorder {
	if config.File == "" {
		config.File = DefaultFile
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMaxEntries
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Recorder{config: config}
}

// Observe records one packet. It is safe to call from the producer goroutine.
func (r *Recorder) Observe(packet []byte) {
	now := r.config.Now()
	format := r.config.Format

	rec := Record{
		Timestamp:  now,
		DataLength: len(packet),
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		Format:     format.SampleFormat.String(),
		FirstBytes: hex.EncodeToString(packet[:min(edgeBytes, len(packet))]),
		LastBytes:  hex.EncodeToString(packet[max(0, len(packet)-edgeBytes):]),
		Stats:      analyze.Packet(packet, format.SampleFormat),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.packets == 0 {
		r.first = now
	}
	calculated := r.calculatedRateLocked(now)
	r.rate = calculated

	r.packets++
	r.bytes += int64(len(packet))
	if fs := format.FrameSize(); fs > 0 {
		r.frames += int64(len(packet) / fs)
	}
	r.last = rec

	if !r.config.Enabled {
		if r.packets%statusEvery == 0 {
			log.Printf("Audio sink: received %d packets, %d total bytes", r.packets, r.bytes)
		}
		return
	}

	if len(r.history) >= r.config.MaxEntries {
		copy(r.history, r.history[1:])
		r.history = r.history[:len(r.history)-1]
	}
	r.history = append(r.history, rec)

	r.report(rec, calculated)

	if r.packets%dumpEvery == 0 {
		if err := r.dumpLocked(); err != nil {
			log.Printf("Failed to write debug file: %v", err)
		}
	}
}

func (r *Recorder) report(rec Record, calculated float64) {
	expected := float64(r.config.Format.SampleRate)
	frameSize := r.config.Format.FrameSize()
	framesPerPacket := 0
	if frameSize > 0 {
		framesPerPacket = rec.DataLength / frameSize
	}

	log.Printf("Packet %d: %d bytes, %s, %d frames", r.packets, rec.DataLength, r.config.Format, framesPerPacket)
	log.Printf("  first 16 bytes: %s", rec.FirstBytes)
	log.Printf("  last 16 bytes:  %s", rec.LastBytes)
	log.Printf("  stats: min=%d max=%d avg=%.2f zero_crossings=%d rms=%.2f (%.1f dBFS)",
		rec.Stats.Min, rec.Stats.Max, rec.Stats.Avg, rec.Stats.ZeroCrossings, rec.Stats.RMS, rec.Stats.DBFS)
	log.Printf("  total packets: %d, total bytes: %d, average packet: %.2f bytes",
		r.packets, r.bytes, float64(r.bytes)/float64(r.packets))
	log.Printf("  sample rate: expected %.0fHz, calculated %.0fHz, difference %.0fHz",
		expected, calculated, math.Abs(calculated-expected))
}

// calculatedRateLocked derives the arrival rate from the frames received
// before now. It falls back to the declared rate until two packets exist.
func (r *Recorder) calculatedRateLocked(now time.Time) float64 {
	expected := float64(r.config.Format.SampleRate)
	if r.packets == 0 {
		return expected
	}
	elapsed := now.Sub(r.first)
	if elapsed <= 0 {
		return expected
	}
	return float64(r.frames) / elapsed.Seconds()
}

// History returns a copy of the retained records, oldest first
func (r *Recorder) History() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.history...)
}

// Summary returns totals and the latest packet statistics
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	expected := float64(r.config.Format.SampleRate)
	calculated := r.rate
	if r.packets == 0 {
		calculated = expected
	}
	return Summary{
		Packets:        r.packets,
		Bytes:          r.bytes,
		Last:           r.last.Stats,
		ExpectedRate:   expected,
		CalculatedRate: calculated,
	}
}

// Close writes the final dump when debugging is enabled
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.config.Enabled || len(r.history) == 0 {
		return nil
	}
	if err := r.dumpLocked(); err != nil {
		return err
	}
	log.Printf("Final debug info saved to %s", r.config.File)
	return nil
}

func (r *Recorder) dumpLocked() error {
	doc := Dump{
		EngineID:     r.config.EngineID,
		WrittenAt:    r.config.Now(),
		TotalPackets: r.packets,
		TotalBytes:   r.bytes,
		Entries:      r.history,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode debug history: %w", err)
	}
	if err := os.WriteFile(r.config.File, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.config.File, err)
	}
	return nil
}
