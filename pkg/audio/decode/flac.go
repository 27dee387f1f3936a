// ABOUTME: FLAC audio decoder
// ABOUTME: Streams FLAC frames as mono float samples
package decode

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// FLACStream decodes FLAC audio frame by frame
type FLACStream struct {
	stream   *flac.Stream
	channels int
	scale    float32
	pending  []float32
}

// NewFLAC creates a FLAC stream reading from r. r is closed by Close.
func NewFLAC(r io.ReadCloser) (*FLACStream, error) {
	stream, err := flac.New(r)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	bitDepth := int(stream.Info.BitsPerSample)
	if bitDepth < 4 || bitDepth > 32 {
		stream.Close()
		return nil, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}

	return &FLACStream{
		stream:   stream,
		channels: int(stream.Info.NChannels),
		scale:    float32(int64(1) << (bitDepth - 1)),
	}, nil
}

// Read fills samples with mono audio, parsing frames as needed
func (s *FLACStream) Read(samples []float32) (int, error) {
	read := 0
	for read < len(samples) {
		if len(s.pending) == 0 {
			if err := s.parseFrame(); err != nil {
				if read > 0 && err == io.EOF {
					return read, nil
				}
				return read, err
			}
		}
		n := copy(samples[read:], s.pending)
		s.pending = s.pending[n:]
		read += n
	}
	return read, nil
}

// parseFrame decodes the next frame into pending mono samples
func (s *FLACStream) parseFrame() error {
	frame, err := s.stream.ParseNext()
	if err != nil {
		return err
	}

	blockSize := int(frame.BlockSize)
	mono := make([]float32, blockSize)
	for i := 0; i < blockSize; i++ {
		var sum float32
		for ch := 0; ch < s.channels; ch++ {
			sum += float32(frame.Subframes[ch].Samples[i]) / s.scale
		}
		mono[i] = sum / float32(s.channels)
	}
	s.pending = mono
	return nil
}

// SampleRate returns the FLAC sample rate
func (s *FLACStream) SampleRate() int {
	return int(s.stream.Info.SampleRate)
}

// Close releases the stream and underlying reader
func (s *FLACStream) Close() error {
	return s.stream.Close()
}
