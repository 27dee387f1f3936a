// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 16-bit little-endian PCM and base64 payloads to float samples
package decode

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/Sendspin/livetranslate-go/pkg/audio"
)

// PCM16 converts 16-bit little-endian PCM bytes to float samples.
// A trailing odd byte is ignored.
func PCM16(data []byte) []float32 {
	numSamples := len(data) / 2
	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	return samples
}

// Base64PCM16 decodes a base64 PCM16 payload to float samples
func Base64PCM16(payload string) ([]float32, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio payload: %w", err)
	}
	return PCM16(data), nil
}
