// ABOUTME: Entry point for the local mock translation server
// ABOUTME: Echoes received speech back as 24 kHz model turns for offline testing
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sendspin/livetranslate-go/internal/logging"
	"github.com/Sendspin/livetranslate-go/internal/mockserver"
	"github.com/Sendspin/livetranslate-go/internal/version"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	port        int
	name        string
	path        string
	apiKey      string
	quotaAfter  int
	rejectSetup bool
	outputRate  int
	logFile     string
	debug       bool
	noMDNS      bool
)

var rootCmd = &cobra.Command{
	Use:          "livetranslate-mock",
	Short:        "Local stand-in for the realtime translation service",
	Version:      version.Version,
	SilenceUsage: true,
	RunE:         serve,
}

func init() {
	f := rootCmd.Flags()
	f.IntVar(&port, "port", 8765, "WebSocket server port")
	f.StringVar(&name, "name", "", "Server friendly name (default: hostname-livetranslate-mock)")
	f.StringVar(&path, "path", mockserver.DefaultPath, "WebSocket path")
	f.StringVar(&apiKey, "api-key", "", "Require this key as the key query parameter")
	f.IntVar(&quotaAfter, "quota-after", 0, "Close with 1011 after this many chunks (0 disables)")
	f.BoolVar(&rejectSetup, "reject-setup", false, "Close every connection right after setup")
	f.IntVar(&outputRate, "output-rate", 24000, "Sample rate of returned audio")
	f.StringVar(&logFile, "log-file", "livetranslate-mock.log", "Log file path")
	f.BoolVar(&debug, "debug", false, "Enable debug logging")
	f.BoolVar(&noMDNS, "no-mdns", false, "Disable mDNS advertisement")
}

func serve(cmd *cobra.Command, args []string) error {
	closeLog, err := logging.Setup(logging.Options{File: logFile, Console: true, Debug: debug})
	if err != nil {
		return err
	}
	defer closeLog()

	serverName := name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-livetranslate-mock", hostname)
	}

	log.Info().Str("name", serverName).Int("port", port).Str("log_file", logFile).Msg("Starting mock server, press Ctrl-C to stop")

	srv := mockserver.NewServer(mockserver.Config{
		Port:        port,
		Name:        serverName,
		Path:        path,
		APIKey:      apiKey,
		QuotaAfter:  quotaAfter,
		RejectSetup: rejectSetup,
		OutputRate:  outputRate,
		EnableMDNS:  !noMDNS,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Stringer("signal", sig).Msg("Shutting down gracefully")
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	stats := srv.Stats()
	log.Info().
		Int64("connections", stats.Connections).
		Int64("chunks", stats.ChunksReceived).
		Int64("turns", stats.TurnsSent).
		Msg("Server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
