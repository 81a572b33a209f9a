// ABOUTME: Tests for the packet history recorder
// ABOUTME: Covers history bounds, rate calculation and JSON dumps
package debug

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sendspin/audiosink/pkg/audio"
)

var monoS16 = audio.Format{SampleFormat: audio.S16LE, Channels: 1, SampleRate: 48000}

// fakeClock advances by step on every call
func fakeClock(step time.Duration) func() time.Time {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func packet(frames int, value int16) []byte {
	b := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(value))
	}
	return b
}

func TestHistoryIsBounded(t *testing.T) {
	r := New(Config{
		Enabled:    true,
		File:       filepath.Join(t.TempDir(), "debug.json"),
		MaxEntries: 5,
		Format:     monoS16,
		Now:        fakeClock(20 * time.Millisecond),
	})

	for i := 0; i < 12; i++ {
		r.Observe(packet(960, int16(i)))
	}

	history := r.History()
	if len(history) != 5 {
		t.Fatalf("expected 5 records, got %d", len(history))
	}
	// oldest retained packet is number 7 (value 7)
	if history[0].Stats.Max != 7 {
		t.Errorf("expected oldest record from packet 7, got max %d", history[0].Stats.Max)
	}
	if history[4].Stats.Max != 11 {
		t.Errorf("expected newest record from packet 11, got max %d", history[4].Stats.Max)
	}
}

func TestRecordContents(t *testing.T) {
	r := New(Config{Enabled: true, File: filepath.Join(t.TempDir(), "d.json"), Format: monoS16})

	data := make([]byte, 40)
	for i := range data {
		data[i] = byte(i)
	}
	r.Observe(data)

	rec := r.History()[0]
	if rec.DataLength != 40 {
		t.Errorf("expected length 40, got %d", rec.DataLength)
	}
	if rec.FirstBytes != "000102030405060708090a0b0c0d0e0f" {
		t.Errorf("unexpected first bytes %s", rec.FirstBytes)
	}
	if rec.LastBytes != "18191a1b1c1d1e1f2021222324252627" {
		t.Errorf("unexpected last bytes %s", rec.LastBytes)
	}
	if rec.Format != "S16LE" || rec.SampleRate != 48000 || rec.Channels != 1 {
		t.Errorf("unexpected format fields: %s %d %d", rec.Format, rec.SampleRate, rec.Channels)
	}
}

func TestShortPacketEdges(t *testing.T) {
	r := New(Config{Enabled: true, File: filepath.Join(t.TempDir(), "d.json"), Format: monoS16})

	r.Observe([]byte{0xab, 0xcd})

	rec := r.History()[0]
	if rec.FirstBytes != "abcd" || rec.LastBytes != "abcd" {
		t.Errorf("expected both edges abcd, got %s and %s", rec.FirstBytes, rec.LastBytes)
	}
}

func TestCalculatedRate(t *testing.T) {
	r := New(Config{Format: monoS16, Now: fakeClock(20 * time.Millisecond)})

	if s := r.Summary(); s.CalculatedRate != 48000 {
		t.Errorf("expected declared rate before any packet, got %.0f", s.CalculatedRate)
	}

	for i := 0; i < 5; i++ {
		r.Observe(packet(960, 0))
	}
	s := r.Summary()
	if s.CalculatedRate < 47999 || s.CalculatedRate > 48001 {
		t.Errorf("expected calculated rate 48000, got %.2f", s.CalculatedRate)
	}

	// a producer running at half speed
	slow := New(Config{Format: monoS16, Now: fakeClock(40 * time.Millisecond)})
	for i := 0; i < 5; i++ {
		slow.Observe(packet(960, 0))
	}
	if rate := slow.Summary().CalculatedRate; rate < 23999 || rate > 24001 {
		t.Errorf("expected calculated rate 24000, got %.2f", rate)
	}
}

func TestPeriodicDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.json")
	r := New(Config{Enabled: true, File: path, Format: monoS16, EngineID: "engine-1"})

	for i := 0; i < 9; i++ {
		r.Observe(packet(10, 1))
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no dump before 10 packets, got %v", err)
	}

	r.Observe(packet(10, 1))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected dump after 10 packets: %v", err)
	}
	var doc Dump
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("failed to parse dump: %v", err)
	}
	if doc.EngineID != "engine-1" {
		t.Errorf("expected engine-1, got %s", doc.EngineID)
	}
	if doc.TotalPackets != 10 || len(doc.Entries) != 10 {
		t.Errorf("expected 10 packets and entries, got %d and %d", doc.TotalPackets, len(doc.Entries))
	}
	if doc.TotalBytes != 200 {
		t.Errorf("expected 200 bytes, got %d", doc.TotalBytes)
	}
}

func TestCloseWritesFinalDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.json")
	r := New(Config{Enabled: true, File: path, Format: monoS16})

	r.Observe(packet(10, 1))
	if err := r.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	var doc Dump
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected final dump: %v", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("failed to parse dump: %v", err)
	}
	if len(doc.Entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(doc.Entries))
	}
}

func TestDumpSurvivesNonFiniteFloats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.json")
	format := audio.Format{SampleFormat: audio.F32LE, Channels: 1, SampleRate: 48000}
	r := New(Config{Enabled: true, File: path, Format: format})

	bad := make([]byte, 8)
	binary.LittleEndian.PutUint32(bad, math.Float32bits(float32(math.NaN())))
	binary.LittleEndian.PutUint32(bad[4:], math.Float32bits(float32(math.Inf(1))))
	r.Observe(bad)
	for i := 0; i < 9; i++ {
		r.Observe(make([]byte, 8))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected periodic dump: %v", err)
	}
	var doc Dump
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("failed to parse dump: %v", err)
	}
	if len(doc.Entries) != 10 {
		t.Errorf("expected 10 entries, got %d", len(doc.Entries))
	}

	if err := r.Close(); err != nil {
		t.Errorf("expected final dump to succeed, got %v", err)
	}
}

func TestDisabledRecorderKeepsNoHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.json")
	r := New(Config{File: path, Format: monoS16})

	for i := 0; i < 150; i++ {
		r.Observe(packet(10, 100))
	}

	if len(r.History()) != 0 {
		t.Errorf("expected no history when disabled, got %d", len(r.History()))
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected no debug file when disabled")
	}

	s := r.Summary()
	if s.Packets != 150 || s.Bytes != 3000 {
		t.Errorf("expected 150 packets and 3000 bytes, got %d and %d", s.Packets, s.Bytes)
	}
	if s.Last.Max != 100 {
		t.Errorf("expected last packet max 100, got %d", s.Last.Max)
	}
}

func TestDefaults(t *testing.T) {
	r := New(Config{})
	if r.config.File != DefaultFile {
		t.Errorf("expected %s, got %s", DefaultFile, r.config.File)
	}
	if r.config.MaxEntries != DefaultMaxEntries {
		t.Errorf("expected %d, got %d", DefaultMaxEntries, r.config.MaxEntries)
	}
}
