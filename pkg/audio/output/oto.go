// ABOUTME: Oto-based audio output implementation
// ABOUTME: Drives the render callback from oto's player read loop
package output

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sendspin/audiosink/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

const (
	otoDefaultSampleRate = 48000
	otoDefaultChannels   = 2
	otoBufferSize        = 40 * time.Millisecond
)

// otoContext is the part of *oto.Context used after creation
type otoContext interface {
	NewPlayer(r io.Reader) *oto.Player
	Suspend() error
	Resume() error
}

// Oto output implementation using oto library. oto cannot query the device,
// so unset request fields fall back to 48kHz stereo float. The context
// outlives Close and is resumed by the next Open.
type Oto struct {
	otoCtx    otoContext
	suspended bool
	player    *oto.Player
	stream    *renderReader
	info      Device
	mu        sync.Mutex
}

// NewOto creates a new Oto output
func NewOto() Output {
	return &Oto{}
}

// Open initializes the output device
func (o *Oto) Open(req Request) (Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// oto only allows one context per process
	if o.otoCtx != nil {
		if o.suspended {
			if err := o.otoCtx.Resume(); err != nil {
				return Device{}, fmt.Errorf("failed to resume oto context: %w", err)
			}
			o.suspended = false
		}
		return o.info, nil
	}

	info := Device{
		Name:       "oto",
		SampleRate: req.SampleRate,
		Channels:   req.Channels,
		Format:     req.Format,
	}
	if info.SampleRate == 0 {
		info.SampleRate = otoDefaultSampleRate
	}
	if info.Channels == 0 {
		info.Channels = otoDefaultChannels
	}

	var format oto.Format
	switch info.Format {
	case audio.S16LE:
		format = oto.FormatSignedInt16LE
	case audio.U8:
		format = oto.FormatUnsignedInt8
	case audio.F32LE, audio.FormatUnknown:
		format = oto.FormatFloat32LE
		info.Format = audio.F32LE
	default:
		log.Printf("Warning: oto does not support %s output, falling back to float", info.Format)
		format = oto.FormatFloat32LE
		info.Format = audio.F32LE
	}

	op := &oto.NewContextOptions{
		SampleRate:   info.SampleRate,
		ChannelCount: info.Channels,
		Format:       format,
		BufferSize:   otoBufferSize,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return Device{}, fmt.Errorf("%w: failed to create oto context: %v", ErrNoDevice, err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.info = info

	log.Printf("Audio output initialized: %dHz, %d channels, %s (oto)",
		info.SampleRate, info.Channels, info.Format)

	return info, nil
}

// Start creates a persistent player that pulls from render
func (o *Oto) Start(render RenderFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx == nil {
		return fmt.Errorf("output not initialized")
	}

	o.stream = &renderReader{render: render, frameSize: o.info.FrameSize()}
	o.player = o.otoCtx.NewPlayer(o.stream)
	o.player.Play()
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stream != nil {
		o.stream.closed.Store(true)
	}
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			log.Printf("Warning: oto player close error: %v", err)
		}
		o.player = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Warning: oto suspend error: %v", err)
		} else {
			o.suspended = true
		}
	}
	return nil
}

// renderReader adapts a RenderFunc to the io.Reader oto pulls from
type renderReader struct {
	render    RenderFunc
	frameSize int
	closed    atomic.Bool
}

func (r *renderReader) Read(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, io.EOF
	}
	frames := len(p) / r.frameSize
	if frames == 0 {
		return 0, nil
	}
	n := frames * r.frameSize
	r.render(p[:n], frames)
	return n, nil
}
