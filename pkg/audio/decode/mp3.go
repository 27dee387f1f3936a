// ABOUTME: MP3 audio decoder
// ABOUTME: Streams MP3 audio as mono float samples
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Sendspin/livetranslate-go/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Stream decodes MP3 audio. go-mp3 always outputs 16-bit stereo.
type MP3Stream struct {
	source  io.ReadCloser
	decoder *mp3.Decoder
	buf     []byte
	frames  []float32
}

// NewMP3 creates an MP3 stream reading from r. r is closed by Close.
func NewMP3(r io.ReadCloser) (*MP3Stream, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	return &MP3Stream{
		source:  r,
		decoder: decoder,
	}, nil
}

// Read fills samples with mono audio
func (s *MP3Stream) Read(samples []float32) (int, error) {
	numBytes := len(samples) * 4 // stereo int16 frames
	if cap(s.buf) < numBytes {
		s.buf = make([]byte, numBytes)
		s.frames = make([]float32, len(samples)*2)
	}
	buf := s.buf[:numBytes]

	n, err := io.ReadFull(s.decoder, buf)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}

	numFrames := n / 4
	interleaved := s.frames[:numFrames*2]
	for i := range interleaved {
		interleaved[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}

	read := downmix(interleaved, 2, samples)
	if read > 0 && err == io.EOF {
		return read, nil
	}
	return read, err
}

// SampleRate returns the MP3 sample rate
func (s *MP3Stream) SampleRate() int {
	return s.decoder.SampleRate()
}

// Close closes the underlying reader
func (s *MP3Stream) Close() error {
	return s.source.Close()
}
