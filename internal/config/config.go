// ABOUTME: Configuration loading for the translation client
// ABOUTME: Merges defaults, a YAML file, LIVETRANSLATE_ environment variables and flags
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sendspin/livetranslate-go/pkg/audio"
	"github.com/Sendspin/livetranslate-go/pkg/protocol"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment variable names
const EnvPrefix = "LIVETRANSLATE"

// ErrMissingAPIKey is returned when a remote endpoint is used without a key
var ErrMissingAPIKey = errors.New("api_key is required for remote endpoints (set LIVETRANSLATE_API_KEY)")

// Config represents the complete client configuration
type Config struct {
	APIKey         string `mapstructure:"api_key"`
	Endpoint       string `mapstructure:"endpoint"`
	Model          string `mapstructure:"model"`
	Voice          string `mapstructure:"voice"`
	TargetLanguage string `mapstructure:"target_language"`

	Mic     string `mapstructure:"mic"`
	Speaker string `mapstructure:"speaker"`
	Input   string `mapstructure:"input"`
	Output  string `mapstructure:"output"`

	WindowSeconds float64 `mapstructure:"window_seconds"`
	CaptureRate   int     `mapstructure:"capture_rate"`
	PlaybackRate  int     `mapstructure:"playback_rate"`
	GraceMS       int     `mapstructure:"grace_ms"`
	Volume        int     `mapstructure:"volume"`

	LogFile     string `mapstructure:"log_file"`
	NoTUI       bool   `mapstructure:"no_tui"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	Local       bool   `mapstructure:"local"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Endpoint:       protocol.DefaultEndpoint,
		Model:          "models/gemini-2.0-flash-exp",
		Voice:          "Puck",
		TargetLanguage: "English",
		Input:          "mic",
		Output:         "oto",
		WindowSeconds:  audio.DefaultWindow.Seconds(),
		CaptureRate:    audio.CaptureSampleRate,
		PlaybackRate:   audio.PlaybackSampleRate,
		GraceMS:        1000,
		Volume:         100,
		LogFile:        "livetranslate.log",
	}
}

// Keys lists every configuration key in template order
var Keys = []string{
	"api_key", "endpoint", "model", "voice", "target_language",
	"mic", "speaker", "input", "output",
	"window_seconds", "capture_rate", "playback_rate", "grace_ms", "volume",
	"log_file", "no_tui", "metrics_addr", "local",
}

// values maps keys to the fields of c
func (c *Config) values() map[string]any {
	return map[string]any{
		"api_key":         c.APIKey,
		"endpoint":        c.Endpoint,
		"model":           c.Model,
		"voice":           c.Voice,
		"target_language": c.TargetLanguage,
		"mic":             c.Mic,
		"speaker":         c.Speaker,
		"input":           c.Input,
		"output":          c.Output,
		"window_seconds":  c.WindowSeconds,
		"capture_rate":    c.CaptureRate,
		"playback_rate":   c.PlaybackRate,
		"grace_ms":        c.GraceMS,
		"volume":          c.Volume,
		"log_file":        c.LogFile,
		"no_tui":          c.NoTUI,
		"metrics_addr":    c.MetricsAddr,
		"local":           c.Local,
	}
}

// Load reads cfgFile (or livetranslate.yaml from the usual places) into v and
// returns the merged configuration. A missing default file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	for key, value := range Default().values() {
		v.SetDefault(key, value)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("livetranslate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ConfigDir returns the per-user configuration directory
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "livetranslate"), nil
}

// Window returns the capture chunk length
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowSeconds * float64(time.Second))
}

// Grace returns the handshake grace period
func (c *Config) Grace() time.Duration {
	return time.Duration(c.GraceMS) * time.Millisecond
}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("endpoint must use ws:// or wss://, got %q", c.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint has no host: %q", c.Endpoint)
	}

	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.Voice == "" {
		return fmt.Errorf("voice cannot be empty")
	}
	if c.TargetLanguage == "" {
		return fmt.Errorf("target_language cannot be empty")
	}

	if c.Output != "oto" && c.Output != "malgo" {
		return fmt.Errorf("output must be oto or malgo, got %q", c.Output)
	}

	if c.CaptureRate < 8000 || c.CaptureRate > 192000 {
		return fmt.Errorf("capture_rate must be between 8000 and 192000, got %d", c.CaptureRate)
	}
	if c.PlaybackRate < 8000 || c.PlaybackRate > 192000 {
		return fmt.Errorf("playback_rate must be between 8000 and 192000, got %d", c.PlaybackRate)
	}
	if c.WindowSeconds <= 0 || c.WindowSeconds > 60 {
		return fmt.Errorf("window_seconds must be in (0, 60], got %v", c.WindowSeconds)
	}
	if audio.Capacity(c.CaptureRate, c.Window()) < 1 {
		return fmt.Errorf("window_seconds %v holds no samples at %d Hz", c.WindowSeconds, c.CaptureRate)
	}
	if c.GraceMS < 0 {
		return fmt.Errorf("grace_ms cannot be negative, got %d", c.GraceMS)
	}
	if c.Volume < 0 || c.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Volume)
	}

	return nil
}

// IsLocalEndpoint reports whether the endpoint points at this machine
func (c *Config) IsLocalEndpoint() bool {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Hostname()) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// ValidateCredentials requires an API key unless the endpoint is local
func (c *Config) ValidateCredentials() error {
	if c.APIKey == "" && !c.Local && !c.IsLocalEndpoint() {
		return ErrMissingAPIKey
	}
	return nil
}
