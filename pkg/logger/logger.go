// Package logger provides the application's structured logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output string // stdout or stderr
}

// Logger wraps logrus with the configuration the application uses.
type Logger struct {
	*logrus.Logger
}

// New builds a logger from config. Unknown values fall back to info-level
// text on stdout.
func New(cfg LoggingConfig) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	l.SetOutput(outputWriter(cfg.Output))
	return &Logger{Logger: l}
}

// Default returns an info-level text logger on stdout.
func Default() *Logger {
	return New(LoggingConfig{})
}

// Discard returns a logger that drops everything. Test use.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{Logger: l}
}

func outputWriter(name string) io.Writer {
	if strings.EqualFold(name, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}
