// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for compressed audio file streams
package decode

// Stream decodes a compressed audio stream to mono float samples
type Stream interface {
	// Read fills samples with decoded mono audio and returns the count read
	Read(samples []float32) (int, error)

	// SampleRate returns the native sample rate of the stream
	SampleRate() int

	// Close releases decoder resources
	Close() error
}

// downmix averages interleaved frames into mono
func downmix(interleaved []float32, channels int, out []float32) int {
	if channels <= 1 {
		return copy(out, interleaved)
	}
	frames := len(interleaved) / channels
	if frames > len(out) {
		frames = len(out)
	}
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[i*channels+ch]
		}
		out[i] = sum / float32(channels)
	}
	return frames
}
