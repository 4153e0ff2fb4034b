package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/mqtt-test-client/core/mqtt"
)

func TestOutcomeOf(t *testing.T) {
	cause := errors.New("boom")
	cases := []struct {
		err  error
		want Outcome
	}{
		{nil, OutcomePublished},
		{fmt.Errorf("load: %w", &mqtt.ConfigError{Err: cause}), OutcomeConfigError},
		{&mqtt.ConnectionError{Err: cause}, OutcomeConnectionError},
		{fmt.Errorf("run: %w", &mqtt.PublishError{Err: cause}), OutcomePublishError},
		{cause, OutcomeError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, OutcomeOf(c.err), "%v", c.err)
	}
}

func TestNopSink(t *testing.T) {
	var s MetricsSink = NopSink{}
	assert.NoError(t, s.RecordPublish(PublishEvent{}))
	assert.NoError(t, NopSink{}.Flush(context.Background()))
}
