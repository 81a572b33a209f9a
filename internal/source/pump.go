// ABOUTME: Paces a source into the engine one packet at a time
// ABOUTME: Mimics a live producer by pushing packets on a fixed tick
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// DefaultPacketDuration matches the 20ms chunks live producers send
const DefaultPacketDuration = 20 * time.Millisecond

// Pump reads fixed-duration packets from Source and hands them to Push
type Pump struct {
	Source Source

	// PacketDuration is the audio length of each packet (default: 20ms)
	PacketDuration time.Duration

	// Unpaced pushes packets as fast as the source produces them
	Unpaced bool

	// Push receives each packet and owns it afterwards
	Push func(packet []byte) bool

	// OnPacket, if set, sees every packet before it is pushed
	OnPacket func(packet []byte)
}

// PacketSize returns the packet length in bytes
func (p *Pump) PacketSize() int {
	d := p.PacketDuration
	if d <= 0 {
		d = DefaultPacketDuration
	}
	format := p.Source.Format()
	frames := int(int64(format.SampleRate) * int64(d) / int64(time.Second))
	if frames < 1 {
		frames = 1
	}
	return frames * format.FrameSize()
}

// Run pumps until the source ends or ctx is cancelled, and returns the
// number of packets pushed. End of stream and cancellation are not errors.
func (p *Pump) Run(ctx context.Context) (int, error) {
	d := p.PacketDuration
	if d <= 0 {
		d = DefaultPacketDuration
	}
	size := p.PacketSize()

	var tick <-chan time.Time
	if !p.Unpaced {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		tick = ticker.C
	}

	packets := 0
	for {
		if ctx.Err() != nil {
			return packets, nil
		}

		packet := make([]byte, size)
		n, err := io.ReadFull(p.Source, packet)
		if n > 0 {
			packet = packet[:n]
			if p.OnPacket != nil {
				p.OnPacket(packet)
			}
			p.Push(packet)
			packets++
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return packets, nil
		}
		if err != nil {
			return packets, fmt.Errorf("failed to read source: %w", err)
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return packets, nil
			case <-tick:
			}
		}
	}
}
