// ABOUTME: Bounded packet queue between producer and playback
// ABOUTME: Drops the oldest packet on overflow to keep latency bounded
package sink

import (
	"sync"
	"sync/atomic"
)

// PacketQueue is a bounded FIFO of raw audio packets. When full, Enqueue
// evicts the oldest packet instead of blocking or failing.
type PacketQueue struct {
	mu      sync.Mutex
	items   [][]byte
	head    int
	count   int
	dropped atomic.Int64
}

// NewPacketQueue creates a queue holding at most capacity packets
func NewPacketQueue(capacity int) *PacketQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &PacketQueue{
		items: make([][]byte, capacity),
	}
}

// Enqueue appends a packet, evicting the oldest one when the queue is full.
// It reports whether an eviction happened.
func (q *PacketQueue) Enqueue(packet []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	evicted := false
	if q.count == len(q.items) {
		q.items[q.head] = nil
		q.head = (q.head + 1) % len(q.items)
		q.count--
		q.dropped.Add(1)
		evicted = true
	}

	q.items[(q.head+q.count)%len(q.items)] = packet
	q.count++
	return evicted
}

// TryDequeue removes and returns the oldest packet, or false when empty
func (q *PacketQueue) TryDequeue() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// tryDequeueNoWait is TryDequeue for the real-time path: a busy lock is
// treated as an empty queue.
func (q *PacketQueue) tryDequeueNoWait() ([]byte, bool) {
	if !q.mu.TryLock() {
		return nil, false
	}
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *PacketQueue) popLocked() ([]byte, bool) {
	if q.count == 0 {
		return nil, false
	}
	packet := q.items[q.head]
	q.items[q.head] = nil
	q.head = (q.head + 1) % len(q.items)
	q.count--
	return packet, true
}

// DequeueAll removes and returns every queued packet in arrival order
func (q *PacketQueue) DequeueAll() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	out := make([][]byte, 0, q.count)
	for q.count > 0 {
		packet, _ := q.popLocked()
		out = append(out, packet)
	}
	q.head = 0
	return out
}

// Len returns the number of queued packets
func (q *PacketQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the maximum number of queued packets
func (q *PacketQueue) Cap() int {
	return len(q.items)
}

// Dropped returns how many packets were evicted by overflow
func (q *PacketQueue) Dropped() int64 {
	return q.dropped.Load()
}
