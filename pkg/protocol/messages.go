// ABOUTME: Live translation wire message definitions
// ABOUTME: JSON envelopes for setup, realtime audio input and server content
package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sendspin/livetranslate-go/pkg/audio"
	"github.com/Sendspin/livetranslate-go/pkg/audio/encode"
)

// ModalityAudio requests spoken responses
const ModalityAudio = "AUDIO"

// ClientMessage is the top-level envelope for everything the client sends.
// Exactly one field is set per message.
type ClientMessage struct {
	Setup         *Setup         `json:"setup,omitempty"`
	RealtimeInput *RealtimeInput `json:"realtime_input,omitempty"`
}

// Setup is sent once when the socket opens
type Setup struct {
	Model             string            `json:"model"`
	GenerationConfig  GenerationConfig  `json:"generation_config"`
	SystemInstruction SystemInstruction `json:"system_instruction"`
}

// GenerationConfig selects the response modality and voice
type GenerationConfig struct {
	ResponseModalities []string     `json:"response_modalities"`
	SpeechConfig       SpeechConfig `json:"speech_config"`
}

// SpeechConfig wraps the voice selection
type SpeechConfig struct {
	VoiceConfig VoiceConfig `json:"voice_config"`
}

// VoiceConfig wraps a prebuilt voice
type VoiceConfig struct {
	PrebuiltVoiceConfig PrebuiltVoiceConfig `json:"prebuilt_voice_config"`
}

// PrebuiltVoiceConfig names a voice offered by the service
type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voice_name"`
}

// SystemInstruction carries the translator prompt
type SystemInstruction struct {
	Parts []TextPart `json:"parts"`
}

// TextPart is a plain text content part
type TextPart struct {
	Text string `json:"text"`
}

// RealtimeInput carries captured audio
type RealtimeInput struct {
	MediaChunks []MediaChunk `json:"media_chunks"`
}

// MediaChunk is one base64 encoded block of media
type MediaChunk struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// ServerMessage is the envelope received from the service.
// Fields the client does not use are ignored.
type ServerMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
}

// ServerContent is a piece of the model's turn
type ServerContent struct {
	ModelTurn    *Content `json:"modelTurn,omitempty"`
	TurnComplete bool     `json:"turnComplete,omitempty"`
	Interrupted  bool     `json:"interrupted,omitempty"`
}

// Content is a list of parts
type Content struct {
	Parts []Part `json:"parts"`
}

// Part is a content part; audio arrives as inline data
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData is base64 media with its MIME type
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Instruction builds the translator prompt for a target language
func Instruction(language string) string {
	return fmt.Sprintf("You are a translator. Translate to %s.", language)
}

// NewSetup builds the setup envelope
func NewSetup(model, voice, language string) ClientMessage {
	return ClientMessage{
		Setup: &Setup{
			Model: model,
			GenerationConfig: GenerationConfig{
				ResponseModalities: []string{ModalityAudio},
				SpeechConfig: SpeechConfig{
					VoiceConfig: VoiceConfig{
						PrebuiltVoiceConfig: PrebuiltVoiceConfig{VoiceName: voice},
					},
				},
			},
			SystemInstruction: SystemInstruction{
				Parts: []TextPart{{Text: Instruction(language)}},
			},
		},
	}
}

// NewAudioInput builds a realtime input envelope carrying samples as base64 PCM16LE
func NewAudioInput(samples []float32) ClientMessage {
	return ClientMessage{
		RealtimeInput: &RealtimeInput{
			MediaChunks: []MediaChunk{{
				MimeType: audio.MimePCM,
				Data:     encode.Base64PCM16(samples),
			}},
		},
	}
}

// ParseServerMessage decodes a server envelope
func ParseServerMessage(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, fmt.Errorf("failed to parse server message: %w", err)
	}
	return msg, nil
}

// AudioParts returns the inline data parts of the model turn with an audio MIME type
func (m ServerMessage) AudioParts() []InlineData {
	if m.ServerContent == nil || m.ServerContent.ModelTurn == nil {
		return nil
	}
	var parts []InlineData
	for _, p := range m.ServerContent.ModelTurn.Parts {
		if p.InlineData != nil && strings.HasPrefix(p.InlineData.MimeType, "audio") {
			parts = append(parts, *p.InlineData)
		}
	}
	return parts
}

// SampleRate reads the rate parameter of an audio MIME type such as
// "audio/pcm;rate=24000", falling back to the given default
func SampleRate(mimeType string, fallback int) int {
	params := strings.Split(mimeType, ";")
	for _, p := range params[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || !strings.EqualFold(key, "rate") {
			continue
		}
		if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
			return rate
		}
	}
	return fallback
}
