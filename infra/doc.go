// Package infra contains technical adapters: the MQTT v5 connector, the
// zerolog logger and the metrics sinks. These packages depend only on the
// interfaces defined in the core packages.
package infra
