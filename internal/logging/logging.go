// ABOUTME: Global zerolog setup shared by the binaries
// ABOUTME: TUI mode logs to the file only, console mode logs to both
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options configures the global logger
type Options struct {
	// File is appended to; empty disables file logging
	File string
	// Console also writes human-readable output to Stderr
	Console bool
	// Debug lowers the level to debug
	Debug bool
	// Stderr overrides the console destination
	Stderr io.Writer
}

// Setup installs the global logger and returns a function that closes the log file
func Setup(opts Options) (func() error, error) {
	var writers []io.Writer
	closeFn := func() error { return nil }

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		writers = append(writers, f)
		closeFn = f.Close
	}

	if opts.Console {
		out := opts.Stderr
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	}

	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = zerolog.MultiLevelWriter(writers...)
	}

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return closeFn, nil
}
