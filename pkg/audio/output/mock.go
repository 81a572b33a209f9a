// ABOUTME: Mock audio output for tests and headless runs
// ABOUTME: Pulls from the render callback on a ticker or on demand
package output

import (
	"fmt"
	"sync"
	"time"
)

// DefaultMockPeriod is the callback period used by the headless mock backend
const DefaultMockPeriod = 10 * time.Millisecond

// Mock is an Output with no hardware behind it. With a non-zero period it
// calls render on its own goroutine like a sound card would; with period 0
// the caller drives it through Pull.
type Mock struct {
	// OpenErr, when set, is returned by Open
	OpenErr error

	device Device
	period time.Duration

	mu      sync.Mutex
	render  RenderFunc
	opened  bool
	stopCh  chan struct{}
	done    chan struct{}
	pulls   int
	started bool
}

// NewMock creates a mock output that negotiates the given device
func NewMock(device Device, period time.Duration) *Mock {
	if device.Name == "" {
		device.Name = "mock"
	}
	return &Mock{
		device: device,
		period: period,
	}
}

// Open returns the configured device
func (m *Mock) Open(Request) (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.OpenErr != nil {
		return Device{}, m.OpenErr
	}
	m.opened = true
	return m.device, nil
}

// Start installs render and, for a clocked mock, starts the callback loop
func (m *Mock) Start(render RenderFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opened {
		return fmt.Errorf("output not initialized")
	}
	m.render = render
	m.started = true

	if m.period > 0 {
		m.stopCh = make(chan struct{})
		m.done = make(chan struct{})
		go m.loop(render, m.stopCh, m.done)
	}
	return nil
}

func (m *Mock) loop(render RenderFunc, stopCh, done chan struct{}) {
	defer close(done)

	frames := int(time.Duration(m.device.SampleRate) * m.period / time.Second)
	if frames == 0 {
		frames = 1
	}
	buf := make([]byte, frames*m.device.FrameSize())

	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			render(buf, frames)
			m.mu.Lock()
			m.pulls++
			m.mu.Unlock()
		}
	}
}

// Pull synchronously requests frameCount frames, as a device callback would
func (m *Mock) Pull(frameCount int) []byte {
	m.mu.Lock()
	render := m.render
	m.pulls++
	m.mu.Unlock()

	out := make([]byte, frameCount*m.device.FrameSize())
	if render != nil {
		render(out, frameCount)
	}
	return out
}

// Pulls returns how many times render has been invoked
func (m *Mock) Pulls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pulls
}

// Started reports whether Start has been called and Close has not
func (m *Mock) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Close stops the callback loop
func (m *Mock) Close() error {
	m.mu.Lock()
	stopCh, done := m.stopCh, m.done
	m.stopCh, m.done = nil, nil
	m.render = nil
	m.started = false
	m.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-done
	}
	return nil
}
