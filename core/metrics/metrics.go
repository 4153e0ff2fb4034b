package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/mqtt-test-client/core/mqtt"
)

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomePublished       Outcome = "published"
	OutcomeConfigError     Outcome = "config_error"
	OutcomeConnectionError Outcome = "connection_error"
	OutcomePublishError    Outcome = "publish_error"
	OutcomeError           Outcome = "error"
)

// OutcomeOf maps a run error onto an Outcome. A nil error is a publish.
func OutcomeOf(err error) Outcome {
	var (
		cfgErr  *mqtt.ConfigError
		connErr *mqtt.ConnectionError
		pubErr  *mqtt.PublishError
	)
	switch {
	case err == nil:
		return OutcomePublished
	case errors.As(err, &cfgErr):
		return OutcomeConfigError
	case errors.As(err, &connErr):
		return OutcomeConnectionError
	case errors.As(err, &pubErr):
		return OutcomePublishError
	default:
		return OutcomeError
	}
}

// PublishEvent describes one publish run.
type PublishEvent struct {
	ClientID string
	Broker   string
	Topic    string
	// Style is "suspend" or "callback".
	Style      string
	Outcome    Outcome
	FinalState string
	Error      string
	// ConnectLatency is zero when no connection was established.
	ConnectLatency time.Duration
	Duration       time.Duration
	Time           time.Time
}

// MetricsSink records publish runs for observability purposes.
type MetricsSink interface {
	RecordPublish(ev PublishEvent) error
}

// Flusher is implemented by sinks that buffer or push on exit.
type Flusher interface {
	Flush(ctx context.Context) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordPublish(PublishEvent) error { return nil }
func (NopSink) Flush(context.Context) error      { return nil }
