package mqtt

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremqtt "github.com/kilianp07/mqtt-test-client/core/mqtt"
	"github.com/kilianp07/mqtt-test-client/test/util"
)

func newPKI(t *testing.T) *util.PKI {
	t.Helper()
	p, err := util.NewPKI()
	require.NoError(t, err)
	return p
}

func startBroker(t *testing.T, p *util.PKI) *util.Broker {
	t.Helper()
	tlsCfg, err := p.ServerTLSConfig()
	require.NoError(t, err)
	b, err := util.StartBroker(tlsCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func connCfg(p *util.PKI, host string, port int) coremqtt.ConnectionConfig {
	return coremqtt.ConnectionConfig{
		Host:           host,
		Port:           port,
		ClientID:       "mqtt_iot_client_test",
		Topic:          coremqtt.DefaultTopic,
		CA:             p.CAPEM,
		Cert:           p.ClientCertPEM,
		Key:            p.ClientKeyPEM,
		ConnectTimeout: 5 * time.Second,
	}
}

func TestNewTLSConfig(t *testing.T) {
	p := newPKI(t)
	cfg, err := NewTLSConfig(connCfg(p, "broker.example.com", 0))
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
	assert.NotNil(t, cfg.RootCAs)
	assert.Equal(t, "broker.example.com", cfg.ServerName)

	bad := connCfg(p, "b", 0)
	bad.CA = []byte("not pem")
	_, err = NewTLSConfig(bad)
	assert.ErrorIs(t, err, ErrNoCACerts)

	bad = connCfg(p, "b", 0)
	bad.Key = p.ServerKeyPEM
	_, err = NewTLSConfig(bad)
	assert.Error(t, err)
}

func TestConnectPublishClose(t *testing.T) {
	p := newPKI(t)
	b := startBroker(t, p)
	c := NewConnector(nil)
	ctx := context.Background()

	s, err := c.Connect(ctx, connCfg(p, b.Host, b.Port))
	require.NoError(t, err)
	require.NoError(t, s.Publish(ctx, coremqtt.Message{Topic: "nodejs/test", Payload: []byte("nodejs mqtt test async")}))
	require.NoError(t, s.Close(ctx))
	assert.NoError(t, s.Close(ctx), "second close is a no-op")

	want := []string{util.PacketConnect, util.PacketPublish, util.PacketDisconnect}
	assert.Eventually(t, func() bool { return assert.ObjectsAreEqual(want, b.Types()) }, 2*time.Second, 10*time.Millisecond)

	seen := b.Observed()
	require.Len(t, seen, 3)
	assert.Equal(t, byte(coremqtt.ProtocolVersion), seen[0].ProtocolVersion)
	assert.Equal(t, util.ClientCommonName, seen[0].PeerCommonName)
	assert.Equal(t, "mqtt_iot_client_test", seen[0].ClientID)
	assert.Equal(t, "nodejs/test", seen[1].Topic)
	assert.Equal(t, "nodejs mqtt test async", string(seen[1].Payload))
	assert.Equal(t, byte(0), seen[1].QoS)
	assert.False(t, seen[1].Retain)
}

func TestConnectAsync(t *testing.T) {
	p := newPKI(t)
	b := startBroker(t, p)
	c := NewConnector(nil)

	results := make(chan coremqtt.ConnectResult, 1)
	c.ConnectAsync(context.Background(), connCfg(p, b.Host, b.Port), func(r coremqtt.ConnectResult) {
		results <- r
	})
	select {
	case r := <-results:
		require.NoError(t, r.Err)
		require.NotNil(t, r.Session)
		assert.NoError(t, r.Session.Close(context.Background()))
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for connect result")
	}
}

func TestConnectUntrustedBroker(t *testing.T) {
	p := newPKI(t)
	b := startBroker(t, p)
	other := newPKI(t)

	cfg := connCfg(p, b.Host, b.Port)
	cfg.CA = other.CAPEM
	_, err := NewConnector(nil).Connect(context.Background(), cfg)

	var ce *coremqtt.ConnectionError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Broker, b.Host)
	assert.Empty(t, b.Types(), "no packet reaches the broker")
}

func TestConnectUnreachable(t *testing.T) {
	p := newPKI(t)
	host, port, err := util.UnusedAddr()
	require.NoError(t, err)

	_, err = NewConnector(nil).Connect(context.Background(), connCfg(p, host, port))
	var ce *coremqtt.ConnectionError
	assert.True(t, errors.As(err, &ce))
}

func TestConnectTimeout(t *testing.T) {
	p := newPKI(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		// accept and stay silent so the handshake never completes
		conn, err := l.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(2 * time.Second)
		}
	}()

	cfg := connCfg(p, "127.0.0.1", l.Addr().(*net.TCPAddr).Port)
	cfg.ConnectTimeout = 100 * time.Millisecond
	start := time.Now()
	_, err = NewConnector(nil).Connect(context.Background(), cfg)
	var ce *coremqtt.ConnectionError
	assert.True(t, errors.As(err, &ce))
	assert.Less(t, time.Since(start), time.Second)
}
