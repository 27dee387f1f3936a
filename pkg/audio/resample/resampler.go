// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Streams mono float samples across chunk boundaries using linear interpolation
package resample

// Resampler performs linear interpolation to convert between sample rates.
// State is carried between calls so consecutive chunks join without clicks.
type Resampler struct {
	inputRate  int
	outputRate int
	ratio      float64
	position   float64
	last       float32
	primed     bool
}

// New creates a new mono resampler
func New(inputRate, outputRate int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// InputRate returns the source sample rate
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the target sample rate
func (r *Resampler) OutputRate() int { return r.outputRate }

// Resample converts input samples to the output rate.
// The final input sample is held back to interpolate against the next call.
func (r *Resampler) Resample(input []float32) []float32 {
	if len(input) == 0 {
		return nil
	}

	src := input
	if r.primed {
		src = make([]float32, 0, len(input)+1)
		src = append(src, r.last)
		src = append(src, input...)
	}

	output := make([]float32, 0, int(float64(len(src))/r.ratio)+1)
	last := len(src) - 1

	for r.position < float64(last) {
		idx := int(r.position)
		frac := float32(r.position - float64(idx))

		// Linear interpolation
		output = append(output, src[idx]*(1-frac)+src[idx+1]*frac)
		r.position += r.ratio
	}

	// Rebase position onto the held-back sample
	r.position -= float64(last)
	r.last = src[last]
	r.primed = true

	return output
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	r.last = 0
	r.primed = false
}
