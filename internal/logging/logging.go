// Package logging builds the process logger: zerolog behind a logr.Logger,
// human readable on a terminal and rotated when written to a file.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the level and destination of the logger.
type Options struct {
	Verbose bool
	Debug   bool
	// File, when set, receives the log through a rotating writer.
	File string
}

// New returns the process logger and a function releasing its file, if any.
func New(opts Options) (logr.Logger, func() error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerologr.NameFieldName = "logger"
	zerologr.NameSeparator = "/"

	var w io.Writer = os.Stderr
	closer := func() error { return nil }
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		w = rotating
		closer = rotating.Close
	} else if isTerminal() {
		w = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			NoColor:    !isColorTerminal(),
			TimeFormat: time.RFC3339,
		}
	}

	level := parseLevel(opts.Verbose, opts.Debug)
	zl := zerolog.New(w).Level(level).With().Caller().Timestamp().Logger()
	log := zerologr.New(&zl)
	log.V(1).Info("Logger initialized", "level", level.String())
	return log, closer
}

// parseLevel maps flags to a zerolog level. Debug enables V(1) output.
func parseLevel(verbose, debug bool) zerolog.Level {
	switch {
	case debug:
		return zerolog.DebugLevel
	case verbose:
		return zerolog.InfoLevel
	default:
		return zerolog.WarnLevel
	}
}

func isTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

func isColorTerminal() bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	term := os.Getenv("TERM")
	return strings.HasSuffix(term, "-256color") ||
		strings.HasSuffix(term, "-color") ||
		strings.HasPrefix(term, "xterm") ||
		strings.HasPrefix(term, "screen")
}
