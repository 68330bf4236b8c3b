package middleware

import (
	"context"
	"log/slog"

	"github.com/sirupsen/logrus"
)

// Sink receives snapshots from the Logger middleware.
type Sink interface {
	Log(label string, snapshot any)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(label string, snapshot any)

// Log calls f(label, snapshot).
func (f SinkFunc) Log(label string, snapshot any) {
	f(label, snapshot)
}

// SlogSink writes snapshots to a structured logger.
type SlogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogSink creates a sink logging at level. A nil logger uses slog.Default().
func NewSlogSink(logger *slog.Logger, level slog.Level) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger, level: level}
}

// Log implements Sink.
func (s *SlogSink) Log(label string, snapshot any) {
	s.logger.Log(context.Background(), s.level, "state changed",
		"store", label,
		"state", snapshot)
}

// LogrusSink writes snapshots through logrus.
type LogrusSink struct {
	logger logrus.FieldLogger
	level  logrus.Level
}

// NewLogrusSink creates a sink logging at level. A nil logger uses the
// logrus standard logger.
func NewLogrusSink(logger logrus.FieldLogger, level logrus.Level) *LogrusSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusSink{logger: logger, level: level}
}

// Log implements Sink.
func (s *LogrusSink) Log(label string, snapshot any) {
	entry := s.logger.WithFields(logrus.Fields{
		"store": label,
		"state": snapshot,
	})
	switch s.level {
	case logrus.TraceLevel, logrus.DebugLevel:
		entry.Debug("state changed")
	case logrus.WarnLevel:
		entry.Warn("state changed")
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		entry.Error("state changed")
	default:
		entry.Info("state changed")
	}
}
