package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Level is the logging level.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var globalLogger = zerolog.Nop()

// Init initializes the logger.
func Init(enabled bool, levelStr, logFile string, console bool) error {
	if !enabled {
		globalLogger = zerolog.Nop()
		return nil
	}

	var writers []io.Writer

	if logFile != "" {
		dir := filepath.Dir(logFile)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
	}

	if console || len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"})
	}

	globalLogger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(toZerolog(parseLevel(levelStr))).
		With().
		Timestamp().
		Logger()

	return nil
}

// SetOutput redirects logging to w at the given level. Tests use it to
// capture output.
func SetOutput(w io.Writer, level Level) {
	globalLogger = zerolog.New(w).Level(toZerolog(level)).With().Timestamp().Logger()
}

// Get returns the underlying structured logger.
func Get() *zerolog.Logger {
	return &globalLogger
}

func parseLevel(levelStr string) Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return Debug
	case "info":
		return Info
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func toZerolog(level Level) zerolog.Level {
	switch level {
	case Debug:
		return zerolog.DebugLevel
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) {
	globalLogger.Debug().Msgf(format, args...)
}

// Infof logs an info message.
func Infof(format string, args ...interface{}) {
	globalLogger.Info().Msgf(format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) {
	globalLogger.Warn().Msgf(format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	globalLogger.Error().Msgf(format, args...)
}
