// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for callback-driven playback backends
package output

import (
	"errors"
	"fmt"

	"github.com/Sendspin/audiosink/pkg/audio"
)

// ErrNoDevice is returned by Open when the host has no usable output device
var ErrNoDevice = errors.New("no output device available")

// RenderFunc fills out with frameCount interleaved frames in the device format.
// It runs on the backend's real-time thread and must not block.
type RenderFunc func(out []byte, frameCount int)

// Request describes the preferred stream parameters. Zero values ask the
// backend for the device's native setting.
type Request struct {
	SampleRate int
	Channels   int
	Format     audio.SampleFormat
}

// Device is the stream configuration negotiated with the host
type Device struct {
	Name       string
	SampleRate int
	Channels   int
	Format     audio.SampleFormat
}

// FrameSize returns the number of bytes in one interleaved output frame
func (d Device) FrameSize() int {
	return d.Format.Width() * d.Channels
}

func (d Device) String() string {
	return fmt.Sprintf("%s: %dHz, %d channels, %s", d.Name, d.SampleRate, d.Channels, d.Format)
}

// Output represents an audio output device
type Output interface {
	// Open acquires the device and negotiates the stream format
	Open(req Request) (Device, error)

	// Start begins pulling audio through render
	Start(render RenderFunc) error

	// Close stops the stream and releases output resources
	Close() error
}

// New returns the output backend with the given name
func New(name string) (Output, error) {
	switch name {
	case "", "malgo":
		return NewMalgo(), nil
	case "oto":
		return NewOto(), nil
	case "mock":
		return NewMock(Device{Name: "mock", SampleRate: 48000, Channels: 2, Format: audio.F32LE}, DefaultMockPeriod), nil
	default:
		return nil, fmt.Errorf("unknown output backend: %s (supported: malgo, oto, mock)", name)
	}
}
