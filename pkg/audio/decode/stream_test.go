// ABOUTME: Tests for compressed file streams
// ABOUTME: Tests downmixing and rejection of invalid input
package decode

import (
	"bytes"
	"io"
	"testing"
)

func TestDownmix(t *testing.T) {
	out := make([]float32, 2)
	n := downmix([]float32{1, 0, -0.5, -0.5}, 2, out)

	if n != 2 {
		t.Fatalf("expected 2 frames, got %d", n)
	}
	if out[0] != 0.5 || out[1] != -0.5 {
		t.Errorf("unexpected downmix result: %v", out)
	}
}

func TestDownmix_Mono(t *testing.T) {
	out := make([]float32, 3)
	n := downmix([]float32{0.1, 0.2, 0.3}, 1, out)
	if n != 3 || out[2] != 0.3 {
		t.Errorf("expected mono passthrough, got %d %v", n, out)
	}
}

func TestDownmix_ShortOutput(t *testing.T) {
	out := make([]float32, 1)
	if n := downmix([]float32{1, 1, 1, 1}, 2, out); n != 1 {
		t.Errorf("expected output length to bound frames, got %d", n)
	}
}

func TestNewMP3_InvalidData(t *testing.T) {
	_, err := NewMP3(io.NopCloser(bytes.NewReader(nil)))
	if err == nil {
		t.Fatal("expected error for empty MP3 data, got nil")
	}
}

func TestNewFLAC_InvalidData(t *testing.T) {
	_, err := NewFLAC(io.NopCloser(bytes.NewReader([]byte("not a flac stream"))))
	if err == nil {
		t.Fatal("expected error for invalid FLAC data, got nil")
	}
}
