// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo with the device's native stream format
package output

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Sendspin/audiosink/pkg/audio"
	"github.com/gen2brain/malgo"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	info     Device
	render   atomic.Pointer[RenderFunc]
	mu       sync.Mutex
}

// NewMalgo creates a new Malgo output
func NewMalgo() Output {
	return &Malgo{}
}

// Open initializes the default playback device. Unset request fields are
// left to the device, and the negotiated values are reported back.
func (m *Malgo) Open(req Request) (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return m.info, nil
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return Device{}, fmt.Errorf("%w: failed to initialize malgo context: %v", ErrNoDevice, err)
		}
		m.malgoCtx = ctx
	}

	infos, err := m.malgoCtx.Devices(malgo.Playback)
	if err != nil {
		m.freeContext()
		return Device{}, fmt.Errorf("%w: failed to enumerate playback devices: %v", ErrNoDevice, err)
	}
	if len(infos) == 0 {
		m.freeContext()
		return Device{}, ErrNoDevice
	}

	name := infos[0].Name()
	for _, info := range infos {
		if info.IsDefault != 0 {
			name = info.Name()
			break
		}
	}

	device, err := m.initDevice(req, toMalgoFormat(req.Format))
	if err != nil {
		m.freeContext()
		return Device{}, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	format := fromMalgoFormat(device.PlaybackFormat())
	if audio.Writer(format) == nil {
		log.Printf("Device negotiated unsupported format %s, falling back to float output", formatName(device.PlaybackFormat()))
		device.Uninit()

		device, err = m.initDevice(req, malgo.FormatF32)
		if err != nil {
			m.freeContext()
			return Device{}, fmt.Errorf("%w: float fallback failed: %v", ErrNoDevice, err)
		}
		format = audio.F32LE
	}

	m.device = device
	m.info = Device{
		Name:       name,
		SampleRate: int(device.SampleRate()),
		Channels:   int(device.PlaybackChannels()),
		Format:     format,
	}

	log.Printf("Audio output initialized: %dHz, %d channels, %s (malgo/%s)",
		m.info.SampleRate, m.info.Channels, m.info.Format, name)

	return m.info, nil
}

func (m *Malgo) initDevice(req Request, format malgo.FormatType) (*malgo.Device, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(req.Channels)
	deviceConfig.SampleRate = uint32(req.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: m.dataCallback,
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	return device, nil
}

// Start installs the render callback and starts the device
func (m *Malgo) Start(render RenderFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return fmt.Errorf("output not initialized")
	}

	m.render.Store(&render)
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(pOutput, _ []byte, frameCount uint32) {
	render := m.render.Load()
	if render == nil {
		clear(pOutput)
		return
	}
	(*render)(pOutput, int(frameCount))
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	m.render.Store(nil)
	m.freeContext()
	return nil
}

// freeContext releases the malgo context (must hold m.mu)
func (m *Malgo) freeContext() {
	if m.malgoCtx == nil {
		return
	}
	if err := m.malgoCtx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil
}

func toMalgoFormat(f audio.SampleFormat) malgo.FormatType {
	switch f {
	case audio.U8:
		return malgo.FormatU8
	case audio.S16LE:
		return malgo.FormatS16
	case audio.S32LE:
		return malgo.FormatS32
	case audio.F32LE, audio.S8:
		return malgo.FormatF32
	default:
		return malgo.FormatUnknown
	}
}

func fromMalgoFormat(f malgo.FormatType) audio.SampleFormat {
	switch f {
	case malgo.FormatU8:
		return audio.U8
	case malgo.FormatS16:
		return audio.S16LE
	case malgo.FormatS32:
		return audio.S32LE
	case malgo.FormatF32:
		return audio.F32LE
	default:
		return audio.FormatUnknown
	}
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatU8:
		return "U8"
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	case malgo.FormatF32:
		return "F32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
