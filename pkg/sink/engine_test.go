// ABOUTME: Tests for the engine lifecycle against the mock output
// ABOUTME: Covers start failures, push/pull flow, overflow and shutdown ordering
package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sendspin/audiosink/pkg/audio"
	"github.com/Sendspin/audiosink/pkg/audio/output"
)

var stereoF32 = output.Device{Name: "test", SampleRate: 48000, Channels: 2, Format: audio.F32LE}

func newTestEngine(t *testing.T, config Config) (*Engine, *output.Mock) {
	t.Helper()

	mock := output.NewMock(stereoF32, 0)
	e, err := New(config, mock)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e, mock
}

func TestNewAppliesDefaults(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	c := e.Config()

	if c.Source != DefaultSource {
		t.Errorf("expected source %v, got %v", DefaultSource, c.Source)
	}
	if c.MaxQueuePackets != 100 {
		t.Errorf("expected queue of 100, got %d", c.MaxQueuePackets)
	}
	if c.BufferDuration != 5*time.Second {
		t.Errorf("expected 5s buffer, got %v", c.BufferDuration)
	}
	if c.Prefill != 100*time.Millisecond {
		t.Errorf("expected 100ms prefill, got %v", c.Prefill)
	}
	if c.FeederTarget != 200*time.Millisecond {
		t.Errorf("expected 200ms feeder target, got %v", c.FeederTarget)
	}
	if c.PollInterval != 10*time.Millisecond {
		t.Errorf("expected 10ms poll interval, got %v", c.PollInterval)
	}
	if e.State() != StateIdle {
		t.Errorf("expected idle, got %v", e.State())
	}
	if e.ID() == "" {
		t.Error("expected engine ID")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"poll interval too long", Config{PollInterval: time.Second}},
		{"negative queue", Config{MaxQueuePackets: -1}},
		{"prefill beyond buffer", Config{BufferDuration: time.Second, Prefill: 2 * time.Second}},
		{"bad refill mode", Config{RefillMode: RefillMode(7)}},
		{"negative source rate", Config{Source: audio.Format{SampleFormat: audio.S16LE, Channels: 1, SampleRate: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.config, output.NewMock(stereoF32, 0)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := New(Config{}, nil); err == nil {
		t.Error("expected error for missing output")
	}
}

func TestStartWithoutDeviceFails(t *testing.T) {
	e, mock := newTestEngine(t, Config{})
	mock.OpenErr = output.ErrNoDevice

	err := e.Start(context.Background())
	if !errors.Is(err, output.ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
	if e.State() != StateIdle {
		t.Errorf("expected engine to stay idle, got %v", e.State())
	}
	if e.Push(constS16(960, 1)) {
		t.Error("expected push to be rejected while idle")
	}
}

func TestEngineLifecycle(t *testing.T) {
	e, mock := newTestEngine(t, Config{})

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if e.State() != StateRunning {
		t.Errorf("expected running, got %v", e.State())
	}
	if !mock.Started() {
		t.Error("expected output to be started")
	}
	if err := e.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}

	if !e.Push(constS16(960, 16384)) {
		t.Fatal("expected packet to be queued")
	}

	out := f32Samples(mock.Pull(480))
	if len(out) != 960 {
		t.Fatalf("expected 960 samples, got %d", len(out))
	}
	for i, v := range out {
		if v != 0.5 {
			t.Fatalf("expected 0.5 at %d, got %v", i, v)
		}
	}

	stats := e.Stats()
	if stats.Received != 1 || stats.Decoded != 1 {
		t.Errorf("expected 1 received and decoded, got %d and %d", stats.Received, stats.Decoded)
	}
	if stats.BufferedFrames != 480 {
		t.Errorf("expected 480 buffered, got %d", stats.BufferedFrames)
	}
	if stats.BufferMs != 10 {
		t.Errorf("expected 10ms buffered, got %d", stats.BufferMs)
	}
	if stats.Device != stereoF32 {
		t.Errorf("expected device %v, got %v", stereoF32, stats.Device)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
	if e.State() != StateStopped {
		t.Errorf("expected stopped, got %v", e.State())
	}
	if mock.Started() {
		t.Error("expected output to be closed")
	}
	if err := e.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if e.Push(constS16(960, 1)) {
		t.Error("expected push to be rejected after stop")
	}
}

func TestEngineSilentAfterShutdown(t *testing.T) {
	e, mock := newTestEngine(t, Config{})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	e.Push(constS16(960, 16384))
	e.Shutdown()

	if e.State() != StateShuttingDown {
		t.Errorf("expected shutting down, got %v", e.State())
	}
	for i, v := range f32Samples(mock.Pull(480)) {
		if v != 0 {
			t.Fatalf("expected silence at %d, got %v", i, v)
		}
	}
	if e.Push(constS16(960, 1)) {
		t.Error("expected push to be rejected while shutting down")
	}

	if err := e.Wait(); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if got := e.Stats().Discarded; got < 2 {
		t.Errorf("expected leftover and late packets to be discarded, got %d", got)
	}
}

func TestEngineContextCancel(t *testing.T) {
	e, _ := newTestEngine(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	if err := e.Start(ctx); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- e.Wait() }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("wait failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after context cancel")
	}
	if e.State() != StateStopped {
		t.Errorf("expected stopped, got %v", e.State())
	}
}

func TestEngineQueueOverflow(t *testing.T) {
	e, mock := newTestEngine(t, Config{})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	defer e.Close()

	for i := 0; i < 150; i++ {
		e.Push(constS16(960, int16(i*100)))
	}

	stats := e.Stats()
	if stats.Dropped != 50 {
		t.Errorf("expected 50 dropped, got %d", stats.Dropped)
	}
	if stats.QueueDepth != 100 {
		t.Errorf("expected 100 queued, got %d", stats.QueueDepth)
	}

	out := f32Samples(mock.Pull(960))
	expected := float32(int16(5000)) / 32768
	if out[0] != expected {
		t.Errorf("expected oldest surviving packet (%v), got %v", expected, out[0])
	}
}

func TestEngineFlush(t *testing.T) {
	e, mock := newTestEngine(t, Config{})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	defer e.Close()

	for i := 0; i < 4; i++ {
		e.Push(constS16(960, 16384))
	}
	mock.Pull(480)

	if n := e.Flush(); n != 3 {
		t.Errorf("expected 3 packets flushed, got %d", n)
	}
	stats := e.Stats()
	if stats.QueueDepth != 0 || stats.BufferedFrames != 0 {
		t.Errorf("expected empty queue and buffer, got %d and %d", stats.QueueDepth, stats.BufferedFrames)
	}
	if stats.Discarded != 3 {
		t.Errorf("expected 3 discarded, got %d", stats.Discarded)
	}
}

func TestEngineFeederMode(t *testing.T) {
	e, mock := newTestEngine(t, Config{RefillMode: RefillInFeeder})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	defer e.Close()

	for i := 0; i < 20; i++ {
		e.Push(constS16(960, 16384))
	}

	// default target is 200ms = 9600 samples at 48kHz
	deadline := time.Now().Add(2 * time.Second)
	for e.Stats().BufferedFrames < 9600 {
		if time.Now().After(deadline) {
			t.Fatalf("feeder did not fill the buffer, have %d", e.Stats().BufferedFrames)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := e.Stats().QueueDepth; got != 10 {
		t.Errorf("expected 10 packets left, got %d", got)
	}

	for i, v := range f32Samples(mock.Pull(480)) {
		if v != 0.5 {
			t.Fatalf("expected 0.5 at %d, got %v", i, v)
		}
	}
}

func TestEnginePlaybackDisabled(t *testing.T) {
	e, err := New(Config{DisablePlayback: true}, nil)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if e.State() != StateRunning {
		t.Errorf("expected running, got %v", e.State())
	}

	if e.Push(constS16(960, 1)) {
		t.Error("expected packet to be discarded")
	}

	stats := e.Stats()
	if stats.Received != 1 || stats.Discarded != 1 {
		t.Errorf("expected 1 received and discarded, got %d and %d", stats.Received, stats.Discarded)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
}

func TestWaitWithoutStart(t *testing.T) {
	e, _ := newTestEngine(t, Config{})

	if err := e.Wait(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if e.State() != StateStopped {
		t.Errorf("expected stopped, got %v", e.State())
	}
}

func TestParseRefillMode(t *testing.T) {
	tests := []struct {
		in       string
		expected RefillMode
		wantErr  bool
	}{
		{"callback", RefillInCallback, false},
		{"", RefillInCallback, false},
		{"Feeder", RefillInFeeder, false},
		{"thread", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseRefillMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: unexpected error state: %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.expected {
			t.Errorf("%q: expected %v, got %v", tt.in, tt.expected, got)
		}
	}
}
