// ABOUTME: Commented YAML template for config init
// ABOUTME: Builds a yaml.v3 node tree so every key carries its description
package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

var descriptions = map[string]string{
	"api_key":         "API key for the translation service (prefer LIVETRANSLATE_API_KEY)",
	"endpoint":        "WebSocket endpoint; the key is appended as ?key=",
	"model":           "Model used for the session",
	"voice":           "Prebuilt voice for the spoken translation",
	"target_language": "Language the speech is translated to",
	"mic":             "Capture device name (substring match, empty picks VoiceMeeter Out or the default)",
	"speaker":         "Playback device name (substring match, selects the malgo output)",
	"input":           "mic, tone, or a path to an .mp3/.flac file to stream instead of the microphone",
	"output":          "Playback backend: oto or malgo",
	"window_seconds":  "Seconds of audio per chunk sent to the service",
	"capture_rate":    "Sample rate of audio sent to the service",
	"playback_rate":   "Sample rate assumed for received audio without a rate parameter",
	"grace_ms":        "Milliseconds the socket must stay open before the session goes online",
	"volume":          "Playback volume (0-100)",
	"log_file":        "Log file path",
	"no_tui":          "Disable the terminal UI and log to the console",
	"metrics_addr":    "Address for the Prometheus /metrics endpoint (empty disables)",
	"local":           "Find a mock server on the local network via mDNS",
}

// WriteTemplate writes cfg as YAML with a comment above every key
func WriteTemplate(w io.Writer, cfg *Config) error {
	values := cfg.values()

	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range Keys {
		var value yaml.Node
		if err := value.Encode(values[key]); err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key, HeadComment: descriptions[key]},
			&value,
		)
	}
	doc.HeadComment = "livetranslate configuration"

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return enc.Close()
}
