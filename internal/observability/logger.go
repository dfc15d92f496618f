// SPDX-License-Identifier: Apache-2.0

// Package observability builds the structured logger shared by the CLI and
// the MCP server.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig holds logger configuration.
type LogConfig struct {
	Level       string
	Format      string // json or console
	Output      io.Writer
	ServiceName string
}

// NewLogger creates a zerolog logger with the given configuration.
func NewLogger(cfg LogConfig) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	var zl zerolog.Logger
	if strings.EqualFold(cfg.Format, "console") {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		})
	} else {
		zl = zerolog.New(output)
	}

	ctx := zl.Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	return ctx.Logger()
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
