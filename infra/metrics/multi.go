package metrics

import (
	"context"
	"errors"

	coremetrics "github.com/kilianp07/mqtt-test-client/core/metrics"
)

// MultiSink fans publish events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPublish forwards the event to every sink and joins their errors.
func (m *MultiSink) RecordPublish(ev coremetrics.PublishEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordPublish(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush flushes every sink implementing coremetrics.Flusher.
func (m *MultiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m.Sinks {
		if f, ok := s.(coremetrics.Flusher); ok {
			if err := f.Flush(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
