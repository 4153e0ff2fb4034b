// Package metrics defines the event emitted at the end of each publish run
// and the sink interface that records it. Sinks such as the Prometheus and
// InfluxDB implementations in infra/metrics can be combined with a MultiSink;
// sinks that push on exit also implement Flusher.
package metrics
