package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/afroash/comfort-hub/internal/models"
)

// ReadingBuffer holds readings taken while the server is unreachable.
// It is a fixed-size ring; when full it drops either the oldest or the
// incoming reading depending on dropOldest.
type ReadingBuffer struct {
	ring       []*models.Reading
	head       int
	count      int
	dropOldest bool
	mu         sync.RWMutex
	stats      BufferStats
}

// BufferStats tracks buffer usage statistics
type BufferStats struct {
	TotalPushed   int64
	TotalDropped  int64
	TotalRequeued int64
	HighWaterMark int
	LastPushTime  time.Time
	LastDropTime  time.Time
}

// NewReadingBuffer creates a buffer that holds up to capacity readings
func NewReadingBuffer(capacity int, dropOldest bool) *ReadingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ReadingBuffer{
		ring:       make([]*models.Reading, capacity),
		dropOldest: dropOldest,
	}
}

func (rb *ReadingBuffer) index(i int) int {
	return (rb.head + i) % len(rb.ring)
}

// Push appends a reading.
// Returns false if the reading was dropped because the buffer is full in drop-newest mode.
func (rb *ReadingBuffer) Push(reading *models.Reading) bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	now := time.Now()
	if rb.count == len(rb.ring) {
		rb.stats.TotalDropped++
		rb.stats.LastDropTime = now
		if !rb.dropOldest {
			return false
		}
		rb.ring[rb.head] = nil
		rb.head = rb.index(1)
		rb.count--
	}

	rb.ring[rb.index(rb.count)] = reading
	rb.count++
	rb.stats.TotalPushed++
	rb.stats.LastPushTime = now
	if rb.count > rb.stats.HighWaterMark {
		rb.stats.HighWaterMark = rb.count
	}
	return true
}

// Requeue puts readings that failed to send back at the front, preserving
// their order. Readings that no longer fit are dropped from the front of
// the batch, so the newest buffered data survives.
func (rb *ReadingBuffer) Requeue(readings []*models.Reading) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	free := len(rb.ring) - rb.count
	if len(readings) > free {
		dropped := len(readings) - free
		rb.stats.TotalDropped += int64(dropped)
		rb.stats.LastDropTime = time.Now()
		readings = readings[dropped:]
	}
	for i := len(readings) - 1; i >= 0; i-- {
		rb.head = (rb.head - 1 + len(rb.ring)) % len(rb.ring)
		rb.ring[rb.head] = readings[i]
		rb.count++
	}
	rb.stats.TotalRequeued += int64(len(readings))
	if rb.count > rb.stats.HighWaterMark {
		rb.stats.HighWaterMark = rb.count
	}
}

// PopBatch removes and returns up to n readings, oldest first
func (rb *ReadingBuffer) PopBatch(n int) []*models.Reading {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	count := min(n, rb.count)
	if count <= 0 {
		return nil
	}
	result := make([]*models.Reading, count)
	for i := range result {
		result[i] = rb.ring[rb.head]
		rb.ring[rb.head] = nil
		rb.head = rb.index(1)
	}
	rb.count -= count
	return result
}

// Peek returns up to n readings, oldest first, without removing them
func (rb *ReadingBuffer) Peek(n int) []*models.Reading {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	count := min(n, rb.count)
	if count <= 0 {
		return nil
	}
	result := make([]*models.Reading, count)
	for i := range result {
		result[i] = rb.ring[rb.index(i)]
	}
	return result
}

// Size returns the current number of readings in the buffer
func (rb *ReadingBuffer) Size() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// IsFull returns true if buffer is at capacity
func (rb *ReadingBuffer) IsFull() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count == len(rb.ring)
}

// IsEmpty returns true if buffer has no readings
func (rb *ReadingBuffer) IsEmpty() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count == 0
}

// Clear removes all readings and resets the counters
func (rb *ReadingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	clear(rb.ring)
	rb.head = 0
	rb.count = 0
	rb.stats = BufferStats{}
}

// Capacity returns the maximum capacity of the buffer
func (rb *ReadingBuffer) Capacity() int {
	return len(rb.ring)
}

// Stats returns a copy of current buffer statistics
func (rb *ReadingBuffer) Stats() BufferStats {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.stats
}

// String returns a human-readable representation of buffer state
func (rb *ReadingBuffer) String() string {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	mode := "drop-newest"
	if rb.dropOldest {
		mode = "drop-oldest"
	}
	return fmt.Sprintf("Buffer[%d/%d, dropped: %d, mode: %s]",
		rb.count,
		len(rb.ring),
		rb.stats.TotalDropped,
		mode,
	)
}
