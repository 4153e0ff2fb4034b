package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/mqtt-test-client/config"
	coremetrics "github.com/kilianp07/mqtt-test-client/core/metrics"
	coremqtt "github.com/kilianp07/mqtt-test-client/core/mqtt"
	"github.com/kilianp07/mqtt-test-client/core/publish"
	"github.com/kilianp07/mqtt-test-client/test/util"
)

type recordSink struct {
	events  []coremetrics.PublishEvent
	flushed bool
}

func (r *recordSink) RecordPublish(ev coremetrics.PublishEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recordSink) Flush(context.Context) error {
	r.flushed = true
	return nil
}

// brokerSource points the loaded configuration at the test broker's port.
type brokerSource struct {
	cfg  *config.Config
	port int
}

func (b brokerSource) ConnectionConfig() (coremqtt.ConnectionConfig, error) {
	cc, err := b.cfg.ConnectionConfig()
	cc.Port = b.port
	return cc, err
}

func setup(t *testing.T) (*util.Broker, *config.Config) {
	t.Helper()
	p, err := util.NewPKI()
	require.NoError(t, err)
	files, err := p.WriteFiles(t.TempDir())
	require.NoError(t, err)
	tlsCfg, err := p.ServerTLSConfig()
	require.NoError(t, err)
	b, err := util.StartBroker(tlsCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	cfg := &config.Config{
		MQTTHostname:   b.Host,
		CAChainFile:    files.CA,
		CertFile:       files.ClientCert,
		KeyFile:        files.ClientKey,
		ConnectTimeout: 5 * time.Second,
	}
	cfg.SetDefaults()
	return b, cfg
}

func TestServiceRun(t *testing.T) {
	for _, style := range []publish.Style{publish.Suspend, publish.Callback} {
		t.Run(string(style), func(t *testing.T) {
			b, cfg := setup(t)
			sink := &recordSink{}
			svc, err := New(cfg, WithSource(brokerSource{cfg: cfg, port: b.Port}), WithSink(sink))
			require.NoError(t, err)

			require.NoError(t, svc.Run(context.Background(), style))
			require.NoError(t, svc.Close())

			want := []string{util.PacketConnect, util.PacketPublish, util.PacketDisconnect}
			assert.Eventually(t, func() bool { return assert.ObjectsAreEqual(want, b.Types()) }, 2*time.Second, 10*time.Millisecond)
			pub := b.Observed()[1]
			assert.Equal(t, "nodejs/test", pub.Topic)
			assert.Equal(t, byte(0), pub.QoS)
			assert.False(t, pub.Retain)

			require.Len(t, sink.events, 1)
			ev := sink.events[0]
			assert.Equal(t, coremetrics.OutcomePublished, ev.Outcome)
			assert.Equal(t, "Closed", ev.FinalState)
			assert.Equal(t, string(style), ev.Style)
			assert.Equal(t, cfg.ClientID, ev.ClientID)
			assert.Positive(t, ev.ConnectLatency)
			assert.True(t, sink.flushed)
		})
	}
}

func TestServiceRunMissingCert(t *testing.T) {
	b, cfg := setup(t)
	cfg.CertFile = filepath.Join(t.TempDir(), "missing.crt")
	sink := &recordSink{}
	svc, err := New(cfg, WithSource(brokerSource{cfg: cfg, port: b.Port}), WithSink(sink))
	require.NoError(t, err)

	err = svc.Run(context.Background(), publish.Suspend)
	var ce *coremqtt.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "CERT_FILE_PATH", ce.Field)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, b.Types(), "no CONNECT is sent")
	require.Len(t, sink.events, 1)
	assert.Equal(t, coremetrics.OutcomeConfigError, sink.events[0].Outcome)
	assert.Equal(t, "Failed", sink.events[0].FinalState)
}

func TestServiceRunUnreachable(t *testing.T) {
	_, cfg := setup(t)
	host, port, err := util.UnusedAddr()
	require.NoError(t, err)
	cfg.MQTTHostname = host
	sink := &recordSink{}
	svc, err := New(cfg, WithSource(brokerSource{cfg: cfg, port: port}), WithSink(sink))
	require.NoError(t, err)

	err = svc.Run(context.Background(), publish.Callback)
	var ce *coremqtt.ConnectionError
	require.True(t, errors.As(err, &ce))
	require.Len(t, sink.events, 1)
	assert.Equal(t, coremetrics.OutcomeConnectionError, sink.events[0].Outcome)
	assert.NotEmpty(t, sink.events[0].Error)
}

func TestServiceUnknownStyle(t *testing.T) {
	svc, err := New(&config.Config{}, WithSink(coremetrics.NopSink{}))
	require.NoError(t, err)
	assert.Error(t, svc.Run(context.Background(), publish.Style("blocking")))
}
