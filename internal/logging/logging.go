// Package logging builds the logrus logger shared by the CLI and the job
// runner.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup returns a logger writing to stderr. level is a logrus level name
// (default info); format is "text" (default) or "json".
func Setup(level, format string) *logrus.Logger {
	return New(os.Stderr, level, format)
}

// New returns a logger writing to w.
func New(w io.Writer, level, format string) *logrus.Logger {
	log := logrus.New()
	log.Out = w

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil || level == "" {
		lvl = logrus.InfoLevel
	}
	log.Level = lvl

	switch strings.ToLower(format) {
	case "json":
		log.Formatter = &logrus.JSONFormatter{}
	default:
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}
	return log
}

// Discard returns a logger that drops everything, for tests and library
// callers that do not want output.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}
