// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init builds the application logger, installs it as the zerolog global and
// returns it. format "json" writes one JSON object per line; anything else
// uses the colored console writer.
func Init(level, format string, w io.Writer) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(level))

	var logger zerolog.Logger
	if strings.ToLower(format) == "json" {
		logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.Kitchen,
		}
		logger = zerolog.New(output).With().Timestamp().Logger()
	}

	log.Logger = logger
	return logger
}

// ParseLevel maps a level name to a zerolog level; unknown names mean warn,
// which keeps CLI output quiet unless asked otherwise.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}
