// ABOUTME: Unit tests for PCM encoder
// ABOUTME: Tests PCM16 byte layout, clipping and base64 output
package encode

import (
	"encoding/base64"
	"encoding/binary"
	"testing"
)

func TestPCM16(t *testing.T) {
	samples := []float32{0, 1, -1, 0.5, -0.25}
	expected := []int16{0, 32767, -32768, 16384, -8192}

	output := PCM16(samples)

	if len(output) != len(samples)*2 {
		t.Fatalf("PCM16() output size = %d, want %d", len(output), len(samples)*2)
	}

	for i, want := range expected {
		got := int16(binary.LittleEndian.Uint16(output[i*2:]))
		if got != want {
			t.Errorf("Sample %d: got %d, want %d", i, got, want)
		}
	}
}

func TestPCM16Clipping(t *testing.T) {
	output := PCM16([]float32{3.5, -7})

	if got := int16(binary.LittleEndian.Uint16(output[0:])); got != 32767 {
		t.Errorf("expected positive clip to 32767, got %d", got)
	}
	if got := int16(binary.LittleEndian.Uint16(output[2:])); got != -32768 {
		t.Errorf("expected negative clip to -32768, got %d", got)
	}
}

func TestPCM16Empty(t *testing.T) {
	if output := PCM16(nil); len(output) != 0 {
		t.Errorf("expected empty output, got %d bytes", len(output))
	}
}

func TestBase64PCM16(t *testing.T) {
	encoded := Base64PCM16([]float32{0, 1})

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}

	want := []byte{0x00, 0x00, 0xFF, 0x7F}
	if string(raw) != string(want) {
		t.Errorf("expected %v, got %v", want, raw)
	}
}
