// Package metrics provides a fire-and-forget metric sink. Publishing never
// blocks the pipeline: backend failures are logged and dropped.
package metrics

import (
	"github.com/rs/zerolog"
)

// Sink receives application metrics.
type Sink interface {
	Publish(name string, value float64, unit string)
}

// NopSink discards all metrics.
type NopSink struct{}

// NewNopSink constructs a sink that drops everything.
func NewNopSink() *NopSink { return &NopSink{} }

// Publish drops the metric.
func (n *NopSink) Publish(string, float64, string) {}

// LogSink writes metrics to the structured log. It is the default backend
// for development environments.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink constructs a log-backed sink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "metrics").Logger()}
}

// Publish logs the metric at debug level.
func (l *LogSink) Publish(name string, value float64, unit string) {
	l.logger.Debug().Str("metric", name).Float64("value", value).Str("unit", unit).Msg("metric published")
}

var (
	_ Sink = (*NopSink)(nil)
	_ Sink = (*LogSink)(nil)
)
