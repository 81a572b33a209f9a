// ABOUTME: Tests for the playback ring buffer
// ABOUTME: Covers wraparound, eviction counts and the capacity bound
package sink

import (
	"testing"
)

func seq(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func TestRingBufferWriteRead(t *testing.T) {
	rb := NewRingBuffer(8)

	if evicted := rb.Write(seq(0, 5)); evicted != 0 {
		t.Errorf("expected no eviction, got %d", evicted)
	}
	if rb.Available() != 5 {
		t.Errorf("expected 5 available, got %d", rb.Available())
	}

	dst := make([]float32, 3)
	if n := rb.Read(dst); n != 3 {
		t.Fatalf("expected 3 read, got %d", n)
	}
	for i, v := range dst {
		if v != float32(i) {
			t.Errorf("expected %d at %d, got %v", i, i, v)
		}
	}
	if rb.Available() != 2 {
		t.Errorf("expected 2 available, got %d", rb.Available())
	}
}

func TestRingBufferWraparound(t *testing.T) {
	rb := NewRingBuffer(8)
	rb.Write(seq(0, 6))
	rb.Read(make([]float32, 5))

	// head is now at 5; this write wraps
	rb.Write(seq(6, 6))

	dst := make([]float32, 10)
	n := rb.Read(dst)
	if n != 7 {
		t.Fatalf("expected 7 read, got %d", n)
	}
	for i := 0; i < n; i++ {
		if dst[i] != float32(5+i) {
			t.Errorf("expected %d at %d, got %v", 5+i, i, dst[i])
		}
	}
}

func TestRingBufferEvictsOldest(t *testing.T) {
	rb := NewRingBuffer(8)
	rb.Write(seq(0, 6))

	evicted := rb.Write(seq(6, 5))
	if evicted != 3 {
		t.Errorf("expected 3 evicted, got %d", evicted)
	}
	if rb.Available() != 8 {
		t.Errorf("expected full buffer, got %d", rb.Available())
	}

	dst := make([]float32, 8)
	rb.Read(dst)
	for i, v := range dst {
		if v != float32(3+i) {
			t.Errorf("expected %d at %d, got %v", 3+i, i, v)
		}
	}
}

func TestRingBufferWriteLargerThanCapacity(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Write(seq(0, 2))

	evicted := rb.Write(seq(10, 10))
	if evicted != 8 {
		t.Errorf("expected 8 evicted, got %d", evicted)
	}

	dst := make([]float32, 4)
	rb.Read(dst)
	for i, v := range dst {
		if v != float32(16+i) {
			t.Errorf("expected %d at %d, got %v", 16+i, i, v)
		}
	}
}

func TestRingBufferNeverExceedsCapacity(t *testing.T) {
	rb := NewRingBuffer(100)
	sizes := []int{30, 70, 1, 99, 250, 3, 0, 64}
	next := 0

	for round := 0; round < 20; round++ {
		for _, n := range sizes {
			rb.Write(seq(next, n))
			next += n
			if rb.Available() > rb.Cap() {
				t.Fatalf("available %d exceeds capacity %d", rb.Available(), rb.Cap())
			}
		}
		rb.Read(make([]float32, 37))
	}

	// whatever is left must be the newest samples, in order
	avail := rb.Available()
	dst := make([]float32, avail)
	rb.Read(dst)
	for i, v := range dst {
		expected := float32(next - avail + i)
		if v != expected {
			t.Fatalf("expected %v at %d, got %v", expected, i, v)
		}
	}
}

func TestRingBufferReset(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Write(seq(0, 3))
	rb.Reset()

	if rb.Available() != 0 {
		t.Errorf("expected empty buffer after reset, got %d", rb.Available())
	}
	if n := rb.Read(make([]float32, 4)); n != 0 {
		t.Errorf("expected nothing to read, got %d", n)
	}
}
