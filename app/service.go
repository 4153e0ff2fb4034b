package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/mqtt-test-client/config"
	coremetrics "github.com/kilianp07/mqtt-test-client/core/metrics"
	coremqtt "github.com/kilianp07/mqtt-test-client/core/mqtt"
	"github.com/kilianp07/mqtt-test-client/core/publish"
	"github.com/kilianp07/mqtt-test-client/infra/logger"
	"github.com/kilianp07/mqtt-test-client/infra/metrics"
	"github.com/kilianp07/mqtt-test-client/infra/mqtt"
)

// flushTimeout bounds pushing metrics on Close.
const flushTimeout = 5 * time.Second

// Service wires configuration, the MQTT connector and metrics sinks around
// the publish workflow.
type Service struct {
	source    publish.ConfigSource
	connector coremqtt.Connector
	sink      coremetrics.MetricsSink
	log       logger.Logger
	publisher *publish.Publisher
}

// Option customises a Service.
type Option func(*Service)

// WithSource replaces the configuration as the provider of connection
// settings.
func WithSource(src publish.ConfigSource) Option {
	return func(s *Service) { s.source = src }
}

// WithConnector replaces the Paho connector.
func WithConnector(c coremqtt.Connector) Option {
	return func(s *Service) { s.connector = c }
}

// WithSink replaces the sinks built from configuration.
func WithSink(sink coremetrics.MetricsSink) Option {
	return func(s *Service) { s.sink = sink }
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	svc := &Service{source: cfg, log: logger.New("publisher")}
	for _, o := range opts {
		o(svc)
	}
	if svc.connector == nil {
		svc.connector = mqtt.NewConnector(logger.New("mqtt_client"))
	}
	if svc.sink == nil {
		sink, err := metrics.NewSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		svc.sink = sink
	}
	svc.publisher = publish.NewPublisher(svc.connector, svc.log)
	return svc, nil
}

// Run performs one publish in the given style and records the outcome.
// The returned error is the one that ended the run.
func (s *Service) Run(ctx context.Context, style publish.Style) error {
	var (
		rep publish.Report
		err error
	)
	switch style {
	case publish.Callback:
		rep, err = s.publisher.RunCallback(ctx, s.source)
	case publish.Suspend:
		rep, err = s.publisher.Run(ctx, s.source)
	default:
		return fmt.Errorf("unknown style %q", style)
	}

	ev := coremetrics.PublishEvent{
		ClientID:       rep.ClientID,
		Broker:         rep.Broker,
		Topic:          rep.Topic,
		Style:          string(rep.Style),
		Outcome:        coremetrics.OutcomeOf(err),
		FinalState:     rep.Final().String(),
		ConnectLatency: rep.ConnectLatency,
		Duration:       rep.Duration,
		Time:           time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if rerr := s.sink.RecordPublish(ev); rerr != nil {
		s.log.Warnf("record metrics: %v", rerr)
	}
	return err
}

// Close flushes sinks that push on exit. Errors are logged, never returned,
// so metrics cannot change the exit status.
func (s *Service) Close() error {
	f, ok := s.sink.(coremetrics.Flusher)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := f.Flush(ctx); err != nil {
		s.log.Warnf("flush metrics: %v", err)
	}
	return nil
}
