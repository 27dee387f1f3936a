// ABOUTME: Tests for the linear resampler
// ABOUTME: Tests rate conversion lengths, continuity and reset
package resample

import (
	"math"
	"testing"
)

func TestResampleSameRate(t *testing.T) {
	r := New(16000, 16000)

	out := r.Resample([]float32{0.1, 0.2, 0.3, 0.4})
	want := []float32{0.1, 0.2, 0.3}

	if len(out) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(out))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, out[i], want[i])
		}
	}

	// Held-back sample is emitted with the next chunk
	out = r.Resample([]float32{0.5})
	if len(out) != 1 || out[0] != 0.4 {
		t.Errorf("expected held sample 0.4, got %v", out)
	}
}

func TestResampleUpsampleLength(t *testing.T) {
	r := New(16000, 24000)

	total := 0
	for i := 0; i < 10; i++ {
		total += len(r.Resample(make([]float32, 1600)))
	}

	// 16000 input samples -> ~24000 output samples
	if math.Abs(float64(total-24000)) > 3 {
		t.Errorf("expected ~24000 output samples, got %d", total)
	}
}

func TestResampleDownsampleLength(t *testing.T) {
	r := New(48000, 16000)

	total := 0
	for i := 0; i < 4; i++ {
		total += len(r.Resample(make([]float32, 12000)))
	}

	if math.Abs(float64(total-16000)) > 2 {
		t.Errorf("expected ~16000 output samples, got %d", total)
	}
}

func TestResampleConstantSignal(t *testing.T) {
	r := New(16000, 24000)

	input := make([]float32, 320)
	for i := range input {
		input[i] = 0.25
	}

	for round := 0; round < 3; round++ {
		for i, s := range r.Resample(input) {
			if math.Abs(float64(s-0.25)) > 1e-6 {
				t.Fatalf("round %d sample %d: expected 0.25, got %v", round, i, s)
			}
		}
	}
}

func TestResampleEmpty(t *testing.T) {
	r := New(16000, 24000)
	if out := r.Resample(nil); out != nil {
		t.Errorf("expected nil for empty input, got %v", out)
	}
}

func TestReset(t *testing.T) {
	r := New(16000, 16000)
	r.Resample([]float32{1, 1})
	r.Reset()

	out := r.Resample([]float32{0.5, 0.5})
	if len(out) != 1 || out[0] != 0.5 {
		t.Errorf("expected reset resampler to drop held sample, got %v", out)
	}
}
