package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/paho"

	coremqtt "github.com/kilianp07/mqtt-test-client/core/mqtt"
	"github.com/kilianp07/mqtt-test-client/infra/logger"
)

// KeepAlive is the keep alive interval announced in CONNECT, in seconds.
const KeepAlive = 30

// Connector opens MQTT v5 sessions over mutual TLS using Eclipse Paho.
type Connector struct {
	log logger.Logger
}

var _ coremqtt.Connector = (*Connector)(nil)

// NewConnector returns a Connector logging through log. A nil logger
// discards output.
func NewConnector(log logger.Logger) *Connector {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Connector{log: log}
}

// Connect dials cfg.Addr over TLS, sends CONNECT and waits for a successful
// CONNACK. Without cfg.ConnectTimeout it waits until ctx is cancelled.
// Every failure is a *coremqtt.ConnectionError and leaves no open socket.
func (c *Connector) Connect(ctx context.Context, cfg coremqtt.ConnectionConfig) (coremqtt.Session, error) {
	broker := cfg.URL()
	fail := func(err error) error {
		return &coremqtt.ConnectionError{Broker: broker, Err: err}
	}

	tlsCfg, err := NewTLSConfig(cfg)
	if err != nil {
		return nil, fail(err)
	}
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	start := time.Now()
	d := &tls.Dialer{Config: tlsCfg}
	conn, err := d.DialContext(ctx, "tcp", cfg.Addr())
	if err != nil {
		return nil, fail(err)
	}
	c.log.Debugw("tls established", map[string]any{"broker": broker, "elapsed_ms": time.Since(start).Milliseconds()})

	cli := paho.NewClient(paho.ClientConfig{
		ClientID: cfg.ClientID,
		Conn:     conn,
		OnClientError: func(err error) {
			c.log.Errorf("mqtt client error: %v", err)
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			c.log.Warnf("broker sent disconnect, reason code %d", d.ReasonCode)
		},
	})
	ack, err := cli.Connect(ctx, &paho.Connect{
		ClientID:   cfg.ClientID,
		KeepAlive:  KeepAlive,
		CleanStart: true,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fail(err)
	}
	if ack.ReasonCode != 0 {
		_ = conn.Close()
		reason := ""
		if ack.Properties != nil {
			reason = ack.Properties.ReasonString
		}
		return nil, fail(fmt.Errorf("connack reason code %d %s", ack.ReasonCode, reason))
	}
	c.log.Infow("Connected", map[string]any{"broker": broker, "client_id": cfg.ClientID})
	return &session{cli: cli, log: c.log}, nil
}

// ConnectAsync runs Connect in a goroutine and reports the outcome to
// onConnect.
func (c *Connector) ConnectAsync(ctx context.Context, cfg coremqtt.ConnectionConfig, onConnect func(coremqtt.ConnectResult)) {
	go func() {
		s, err := c.Connect(ctx, cfg)
		onConnect(coremqtt.ConnectResult{Session: s, Err: err})
	}()
}

type session struct {
	cli  *paho.Client
	log  logger.Logger
	once sync.Once
	err  error
}

// Publish sends msg. For QoS 0 it returns once the packet is written.
func (s *session) Publish(ctx context.Context, msg coremqtt.Message) error {
	_, err := s.cli.Publish(ctx, &paho.Publish{
		Topic:   msg.Topic,
		Payload: msg.Payload,
		QoS:     msg.QoS,
		Retain:  msg.Retain,
	})
	if err != nil {
		return &coremqtt.PublishError{Topic: msg.Topic, Err: err}
	}
	return nil
}

// Close sends DISCONNECT with reason code 0. Paho closes the network
// connection whether or not the packet could be written. Safe to call twice.
func (s *session) Close(context.Context) error {
	s.once.Do(func() {
		s.err = s.cli.Disconnect(&paho.Disconnect{ReasonCode: 0})
		if s.err != nil {
			s.log.Warnf("disconnect: %v", s.err)
		}
	})
	return s.err
}
