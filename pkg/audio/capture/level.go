// ABOUTME: Lock-free level meter helpers
// ABOUTME: Stores peak levels as float bits for atomic access from audio callbacks
package capture

import (
	"math"

	"github.com/Sendspin/livetranslate-go/pkg/audio"
)

func peakBits(samples []float32) uint64 {
	return math.Float64bits(audio.Level(samples))
}

func levelFromBits(bits uint64) float64 {
	return math.Float64frombits(bits)
}
