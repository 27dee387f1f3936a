// ABOUTME: Tests for live translation message types
// ABOUTME: Verifies envelope field names and audio part extraction
package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Sendspin/livetranslate-go/pkg/audio/decode"
)

func TestSetupEnvelope(t *testing.T) {
	data, err := json.Marshal(NewSetup("models/test", "Puck", "German"))
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	setup, ok := raw["setup"].(map[string]any)
	if !ok {
		t.Fatalf("expected setup object, got %s", data)
	}
	if _, ok := raw["realtime_input"]; ok {
		t.Error("setup envelope should not carry realtime_input")
	}
	if setup["model"] != "models/test" {
		t.Errorf("expected model models/test, got %v", setup["model"])
	}

	s := string(data)
	for _, want := range []string{
		`"response_modalities":["AUDIO"]`,
		`"speech_config":{"voice_config":{"prebuilt_voice_config":{"voice_name":"Puck"}}}`,
		`"system_instruction":{"parts":[{"text":"You are a translator. Translate to German."}]}`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
}

func TestAudioInputEnvelope(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1}

	data, err := json.Marshal(NewAudioInput(samples))
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if !strings.HasPrefix(string(data), `{"realtime_input":{"media_chunks":[{"mime_type":"audio/pcm","data":"`) {
		t.Fatalf("unexpected envelope: %s", data)
	}

	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	decoded, err := decode.Base64PCM16(msg.RealtimeInput.MediaChunks[0].Data)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded))
	}
	for i := range samples {
		if d := decoded[i] - samples[i]; d > 1.0/32768 || d < -1.0/32768 {
			t.Errorf("sample %d: expected %v, got %v", i, samples[i], decoded[i])
		}
	}
}

func TestAudioParts(t *testing.T) {
	tests := []struct {
		name string
		json string
		want int
	}{
		{"audio part", `{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"AAA="}}]}}}`, 1},
		{"text part ignored", `{"serverContent":{"modelTurn":{"parts":[{"text":"hallo"}]}}}`, 0},
		{"non-audio inline data ignored", `{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"image/png","data":"AAA="}}]}}}`, 0},
		{"mixed parts", `{"serverContent":{"modelTurn":{"parts":[{"text":"x"},{"inlineData":{"mimeType":"audio/pcm","data":"AAA="}},{"inlineData":{"mimeType":"audio/pcm","data":"AQA="}}]}}}`, 2},
		{"turn complete only", `{"serverContent":{"turnComplete":true}}`, 0},
		{"setup complete", `{"setupComplete":{}}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseServerMessage([]byte(tt.json))
			if err != nil {
				t.Fatalf("ParseServerMessage() error = %v", err)
			}
			if got := len(msg.AudioParts()); got != tt.want {
				t.Errorf("expected %d audio parts, got %d", tt.want, got)
			}
		})
	}
}

func TestParseSetupComplete(t *testing.T) {
	msg, err := ParseServerMessage([]byte(`{"setupComplete":{}}`))
	if err != nil {
		t.Fatal(err)
	}
	if msg.SetupComplete == nil {
		t.Error("expected setupComplete to be set")
	}

	if _, err := ParseServerMessage([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestSampleRate(t *testing.T) {
	tests := []struct {
		mime string
		want int
	}{
		{"audio/pcm", 24000},
		{"audio/pcm;rate=16000", 16000},
		{"audio/pcm; rate=48000", 48000},
		{"audio/pcm;rate=bogus", 24000},
		{"audio/pcm;channels=1", 24000},
	}
	for _, tt := range tests {
		if got := SampleRate(tt.mime, 24000); got != tt.want {
			t.Errorf("SampleRate(%q) = %d, want %d", tt.mime, got, tt.want)
		}
	}
}
