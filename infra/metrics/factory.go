package metrics

import (
	"github.com/kilianp07/mqtt-test-client/config"
	"github.com/kilianp07/mqtt-test-client/core/factory"
	coremetrics "github.com/kilianp07/mqtt-test-client/core/metrics"
)

var sinkRegistry = factory.NewRegistry[config.MetricsConfig, coremetrics.MetricsSink]()

// init registers built-in metrics sinks.
func init() {
	_ = sinkRegistry.Register("prometheus", func(c config.MetricsConfig) (coremetrics.MetricsSink, error) {
		return NewPromSink(c.PushgatewayURL, c.PushgatewayJob)
	})
	_ = sinkRegistry.Register("influx", func(c config.MetricsConfig) (coremetrics.MetricsSink, error) {
		return NewInfluxSinkWithFallback(c.InfluxURL, c.InfluxToken, c.InfluxOrg, c.InfluxBucket), nil
	})
}

// NewSink builds the sinks named in cfg. No sink yields a NopSink, several
// are combined in a MultiSink.
func NewSink(cfg config.MetricsConfig) (coremetrics.MetricsSink, error) {
	names := cfg.SinkNames()
	if len(names) == 0 {
		return coremetrics.NopSink{}, nil
	}
	sinks := make([]coremetrics.MetricsSink, 0, len(names))
	for _, n := range names {
		s, err := sinkRegistry.Create(n, cfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}
