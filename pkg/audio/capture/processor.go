// ABOUTME: Real-time capture processor
// ABOUTME: Feeds device callbacks into a Buffer and hands chunks to the control side
package capture

import (
	"sync/atomic"
)

// Processor consumes blocks of captured samples on the real-time audio thread.
// Process returns false once the processor should no longer be called.
type Processor interface {
	Process(input []float32) bool
}

// ChunkProcessor buffers captured audio and sends full windows on a channel.
// Process never blocks: if the consumer is behind, the chunk is dropped.
type ChunkProcessor struct {
	buffer  *Buffer
	out     chan<- []float32
	stopped atomic.Bool
	level   atomic.Uint64 // math.Float64bits of the last block's peak

	emitted atomic.Int64
	dropped atomic.Int64
}

// ProcessorStats reports chunk handoff counters
type ProcessorStats struct {
	Emitted int64
	Dropped int64
}

// NewChunkProcessor creates a processor emitting windows of capacity samples to out
func NewChunkProcessor(capacity int, out chan<- []float32) *ChunkProcessor {
	return &ChunkProcessor{
		buffer: NewBuffer(capacity),
		out:    out,
	}
}

// Process buffers one input block
func (p *ChunkProcessor) Process(input []float32) bool {
	if p.stopped.Load() {
		return false
	}

	p.level.Store(peakBits(input))

	for len(input) > 0 {
		chunk, n := p.buffer.Push(input)
		input = input[n:]
		if chunk == nil {
			continue
		}

		select {
		case p.out <- chunk:
			p.emitted.Add(1)
		default:
			p.dropped.Add(1)
		}
	}

	return true
}

// Stop makes further Process calls return false. The partial window is discarded
// when the owning device has stopped calling Process.
func (p *ChunkProcessor) Stop() {
	p.stopped.Store(true)
}

// Stopped reports whether Stop was called
func (p *ChunkProcessor) Stopped() bool {
	return p.stopped.Load()
}

// Reset discards the partial window. Only call when no callback is running.
func (p *ChunkProcessor) Reset() {
	p.buffer.Reset()
	p.stopped.Store(false)
}

// Level returns the peak level of the most recent input block
func (p *ChunkProcessor) Level() float64 {
	return levelFromBits(p.level.Load())
}

// Stats returns handoff counters
func (p *ChunkProcessor) Stats() ProcessorStats {
	return ProcessorStats{
		Emitted: p.emitted.Load(),
		Dropped: p.dropped.Load(),
	}
}
