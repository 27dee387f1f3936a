// ABOUTME: Entry point for the livetranslate client
// ABOUTME: Defines the CLI commands and starts a translation session
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sendspin/livetranslate-go/internal/app"
	"github.com/Sendspin/livetranslate-go/internal/config"
	"github.com/Sendspin/livetranslate-go/internal/logging"
	"github.com/Sendspin/livetranslate-go/internal/version"
	"github.com/Sendspin/livetranslate-go/pkg/audio/capture"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	cfgFile string
	debug   bool
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "livetranslate",
	Short: "Real-time speech translation in the terminal",
	Long: `livetranslate captures speech, streams it to a realtime translation model
and plays the spoken translation back as it arrives.`,
	SilenceUsage: true,
	RunE:         runSession,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a translation session",
	RunE:  runSession,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture and playback devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listDevices(cmd.OutOrStdout())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a commented configuration template",
	Args:  cobra.MaximumNArgs(1),
	RunE:  initConfig,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./livetranslate.yaml or the user config dir)")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")
	pf.String("log-file", "", "Log file path")
	pf.Bool("no-tui", false, "Disable TUI, use streaming logs instead")

	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		f := cmd.Flags()
		f.String("endpoint", "", "WebSocket endpoint of the translation service")
		f.String("model", "", "Model name")
		f.String("voice", "", "Prebuilt voice for the translation")
		f.StringP("language", "l", "", "Target language")
		f.String("mic", "", "Capture device (substring match)")
		f.String("speaker", "", "Playback device (substring match, uses malgo)")
		f.String("input", "", "mic, tone, or an .mp3/.flac file")
		f.String("output", "", "Playback backend: oto or malgo")
		f.Float64("window", 0, "Seconds of audio per chunk")
		f.Int("grace-ms", 0, "Handshake grace period in milliseconds")
		f.Int("volume", 0, "Playback volume (0-100)")
		f.String("metrics-addr", "", "Serve Prometheus metrics on this address")
		f.Bool("local", false, "Find a mock server on the local network via mDNS")
	}

	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"endpoint":     "endpoint",
	"model":        "model",
	"voice":        "voice",
	"language":     "target_language",
	"mic":          "mic",
	"speaker":      "speaker",
	"input":        "input",
	"output":       "output",
	"window":       "window_seconds",
	"grace-ms":     "grace_ms",
	"volume":       "volume",
	"metrics-addr": "metrics_addr",
	"local":        "local",
	"log-file":     "log_file",
	"no-tui":       "no_tui",
}

// loadConfig binds the command's flags over the file and environment values
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Without a terminal there is nothing to draw on
	if !cfg.NoTUI && !term.IsTerminal(int(os.Stdout.Fd())) {
		cfg.NoTUI = true
	}

	closeLog, err := logging.Setup(logging.Options{
		File:    cfg.LogFile,
		Console: cfg.NoTUI,
		Debug:   debug,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	log.Info().
		Str("version", version.Version).
		Str("model", cfg.Model).
		Str("language", cfg.TargetLanguage).
		Str("input", cfg.Input).
		Str("output", cfg.Output).
		Msg("Starting livetranslate")

	a, err := app.New(cfg, app.Options{})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Session ended with error")
		return err
	}

	log.Info().Msg("Stopped")
	return nil
}

func listDevices(w io.Writer) error {
	inputs, outputs, err := capture.ListDevices()
	if err != nil {
		return err
	}

	section := func(title string, devices []capture.DeviceInfo) {
		fmt.Fprintf(w, "%s:\n", title)
		if len(devices) == 0 {
			fmt.Fprintln(w, "  (none)")
		}
		for _, d := range devices {
			marker := " "
			if d.Default {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s %s\n", marker, d.Name)
		}
	}

	section("Capture devices", inputs)
	section("Playback devices", outputs)

	if selected, ok := capture.SelectDevice(inputs, capture.PreferredInput); ok {
		fmt.Fprintf(w, "\nDefault microphone: %s\n", selected.Name)
	}
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return config.WriteTemplate(cmd.OutOrStdout(), config.Default())
	}

	path := args[0]
	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := config.WriteTemplate(f, config.Default()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
