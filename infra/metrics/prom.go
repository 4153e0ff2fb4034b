package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/kilianp07/mqtt-test-client/core/metrics"
)

// PromSink records publish runs in Prometheus metrics held on a private
// registry. The process exits right after a run, so the registry is pushed
// to a Pushgateway on Flush instead of being scraped.
type PromSink struct {
	reg     *prometheus.Registry
	runs    *prometheus.CounterVec
	latency *prometheus.HistogramVec
	pusher  *push.Pusher
}

// NewPromSink creates a sink pushing to the Pushgateway at url under job.
func NewPromSink(url, job string) (*PromSink, error) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		return nil, err
	}
	s.pusher = push.New(url, job).Gatherer(reg)
	return s, nil
}

// NewPromSinkWithRegistry registers metrics on reg without a Pushgateway.
// Flush is then a no-op.
func NewPromSinkWithRegistry(reg *prometheus.Registry) (*PromSink, error) {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mqtt_publish_runs_total",
		Help: "Total number of publish runs by outcome",
	}, []string{"style", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mqtt_connect_latency_seconds",
		Help:    "Time between dialing the broker and receiving CONNACK",
		Buckets: prometheus.DefBuckets,
	}, []string{"style"})
	for _, c := range []prometheus.Collector{runs, latency} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return &PromSink{reg: reg, runs: runs, latency: latency}, nil
}

// RecordPublish increments the run counter and observes connect latency
// when a connection was made.
func (s *PromSink) RecordPublish(ev coremetrics.PublishEvent) error {
	s.runs.WithLabelValues(ev.Style, string(ev.Outcome)).Inc()
	if ev.ConnectLatency > 0 {
		s.latency.WithLabelValues(ev.Style).Observe(ev.ConnectLatency.Seconds())
	}
	return nil
}

// Flush pushes the registry to the Pushgateway.
func (s *PromSink) Flush(ctx context.Context) error {
	if s.pusher == nil {
		return nil
	}
	if err := s.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
