// ABOUTME: Fixed-capacity ring buffer of mono playback samples
// ABOUTME: Evicts the oldest samples when a write would overflow
package sink

// RingBuffer holds device-rate mono samples waiting to be played. Storage is
// allocated once. It is not synchronized; Renderer serializes access.
type RingBuffer struct {
	buffer []float32
	head   int
	count  int
}

// NewRingBuffer creates a ring buffer with given capacity (in samples)
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{
		buffer: make([]float32, capacity),
	}
}

// Write appends samples and drops from the front until the buffer fits.
// It returns the number of samples evicted.
func (rb *RingBuffer) Write(samples []float32) int {
	size := len(rb.buffer)

	if len(samples) >= size {
		evicted := rb.count + len(samples) - size
		copy(rb.buffer, samples[len(samples)-size:])
		rb.head = 0
		rb.count = size
		return evicted
	}

	evicted := 0
	if overflow := rb.count + len(samples) - size; overflow > 0 {
		rb.head = (rb.head + overflow) % size
		rb.count -= overflow
		evicted = overflow
	}

	tail := (rb.head + rb.count) % size
	n := copy(rb.buffer[tail:], samples)
	copy(rb.buffer, samples[n:])
	rb.count += len(samples)

	return evicted
}

// Read moves up to len(dst) samples from the front into dst and returns
// how many were read
func (rb *RingBuffer) Read(dst []float32) int {
	n := len(dst)
	if n > rb.count {
		n = rb.count
	}
	if n == 0 {
		return 0
	}

	first := copy(dst[:n], rb.buffer[rb.head:])
	copy(dst[first:n], rb.buffer)

	rb.head = (rb.head + n) % len(rb.buffer)
	rb.count -= n
	if rb.count == 0 {
		rb.head = 0
	}
	return n
}

// Available returns the number of samples available to read
func (rb *RingBuffer) Available() int {
	return rb.count
}

// Cap returns the capacity in samples
func (rb *RingBuffer) Cap() int {
	return len(rb.buffer)
}

// Reset discards all buffered samples
func (rb *RingBuffer) Reset() {
	rb.head = 0
	rb.count = 0
}
