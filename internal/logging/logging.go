// Package logging provides application-wide logging configuration.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Format selects how log lines are encoded.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

var debugEnabled bool

// Init initializes the global logger with human-readable output on stderr.
func Init(debug bool) {
	Setup(os.Stderr, FormatConsole, debug)
}

// Setup points the global logger at w. The MCP server uses it to keep stdout free for the protocol.
func Setup(w io.Writer, format Format, debug bool) {
	debugEnabled = debug
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if format == FormatJSON {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    w != os.Stderr,
	})
}

// DebugEnabled reports whether debug logging is enabled.
func DebugEnabled() bool {
	return debugEnabled
}
