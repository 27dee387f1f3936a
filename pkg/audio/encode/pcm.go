// ABOUTME: PCM audio encoder
// ABOUTME: Encodes normalized float samples to 16-bit little-endian PCM
package encode

import (
	"encoding/base64"
	"encoding/binary"

	"github.com/Sendspin/livetranslate-go/pkg/audio"
)

// PCM16 converts float samples to 16-bit little-endian PCM bytes.
// Samples outside [-1, 1] are clipped.
func PCM16(samples []float32) []byte {
	output := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(audio.SampleToInt16(sample)))
	}
	return output
}

// Base64PCM16 encodes samples as base64 PCM16, the media chunk payload format
func Base64PCM16(samples []float32) string {
	return base64.StdEncoding.EncodeToString(PCM16(samples))
}
