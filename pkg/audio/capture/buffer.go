// ABOUTME: Fixed-capacity capture buffer
// ABOUTME: Accumulates samples and hands out full-window copies
package capture

// Buffer accumulates samples into a fixed-capacity window.
// It is owned by a single producer and never shares its backing array.
type Buffer struct {
	samples []float32
	index   int
}

// NewBuffer creates a buffer holding capacity samples
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		samples: make([]float32, capacity),
	}
}

// Push appends samples at the write cursor. When the buffer fills, Push stops,
// resets the cursor and returns a copy of the full window along with the number
// of input samples consumed. Callers continue with samples[consumed:].
// Without a full window chunk is nil and consumed is len(samples).
func (b *Buffer) Push(samples []float32) (chunk []float32, consumed int) {
	for consumed < len(samples) {
		n := copy(b.samples[b.index:], samples[consumed:])
		b.index += n
		consumed += n

		if b.index == len(b.samples) {
			chunk = make([]float32, len(b.samples))
			copy(chunk, b.samples)
			b.index = 0
			return chunk, consumed
		}
	}
	return nil, consumed
}

// Len returns the number of buffered samples not yet emitted
func (b *Buffer) Len() int { return b.index }

// Cap returns the window capacity
func (b *Buffer) Cap() int { return len(b.samples) }

// Reset discards any partially filled window
func (b *Buffer) Reset() { b.index = 0 }
