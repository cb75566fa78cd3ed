// Package shared holds helpers common to the CLI commands.
package shared

import (
	"os"

	"github.com/charmbracelet/log"
)

// SetupLogger configures the root logger. Components derive their own
// prefixed loggers from it.
func SetupLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	logger.SetLevel(parseLevel(level))
	return logger
}

func parseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
