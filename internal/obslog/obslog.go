// Package obslog wires zerolog into a colored console logger shared by the
// global node and query node binaries, and by the index components they
// host.
package obslog

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Configure sets the process-global zerolog logger and level from the
// MINIIVF_LOG environment variable: "off"/"0"/"false" disables logging
// entirely, "debug"/"full"/"all" enables debug-level console output,
// anything else (including unset) defaults to info level.
func Configure() {
	level := strings.TrimSpace(strings.ToLower(os.Getenv("MINIIVF_LOG")))
	switch level {
	case "0", "off", "false":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "debug", "full", "all":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.DefaultContextLogger = &log
}

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

// Logger is the process-wide logger. Call Configure before using it so the
// level and output respect MINIIVF_LOG.
func Logger() *zerolog.Logger {
	return &log
}

// Named returns a child logger tagged with a "component" field, the idiom
// used throughout the global node and query node to scope log lines to the
// subsystem that produced them (e.g. "coordinator", "querynode", "ivfpq").
func Named(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
