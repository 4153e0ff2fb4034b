package config

import (
	"fmt"
	"strings"
)

// MetricsConfig defines where run outcomes are reported.
type MetricsConfig struct {
	// Sinks is a comma separated list of "prometheus" and "influx".
	Sinks string `json:"METRICS_SINKS"`

	PushgatewayURL string `json:"PUSHGATEWAY_URL"`
	PushgatewayJob string `json:"PUSHGATEWAY_JOB"`

	InfluxURL    string `json:"INFLUX_URL"`
	InfluxToken  string `json:"INFLUX_TOKEN"`
	InfluxOrg    string `json:"INFLUX_ORG"`
	InfluxBucket string `json:"INFLUX_BUCKET"`
}

// SetDefaults applies sane defaults.
func (c *MetricsConfig) SetDefaults() {
	if c.PushgatewayJob == "" {
		c.PushgatewayJob = "mqtt_test_client"
	}
}

// SinkNames returns the configured sink types, trimmed and lower cased.
func (c MetricsConfig) SinkNames() []string {
	var names []string
	for _, s := range strings.Split(c.Sinks, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			names = append(names, s)
		}
	}
	return names
}

// Validate checks that every enabled sink has a target.
func (c MetricsConfig) Validate() error {
	for _, name := range c.SinkNames() {
		switch name {
		case "prometheus":
			if c.PushgatewayURL == "" {
				return fmt.Errorf("prometheus sink requires PUSHGATEWAY_URL")
			}
		case "influx":
			if c.InfluxURL == "" || c.InfluxBucket == "" {
				return fmt.Errorf("influx sink requires INFLUX_URL and INFLUX_BUCKET")
			}
		default:
			return fmt.Errorf("unknown metrics sink %s", name)
		}
	}
	return nil
}
