package mqtt

import (
	"net"
	"strconv"
	"time"
)

const (
	// DefaultPort is the MQTT over TLS port.
	DefaultPort = 8883
	// Scheme identifies MQTT over TLS.
	Scheme = "mqtts"
	// ProtocolVersion is the MQTT protocol level spoken by the client.
	ProtocolVersion = 5
	// DefaultTopic is used when no topic is configured.
	DefaultTopic = "nodejs/test"
)

// ConnectionConfig carries everything needed to open one authenticated
// connection. It is built once at startup and not modified afterwards.
type ConnectionConfig struct {
	Host     string
	Port     int
	ClientID string
	Topic    string

	// PEM encoded material read from disk.
	CA   []byte
	Cert []byte
	Key  []byte

	// ConnectTimeout bounds dial, handshake and CONNACK. Zero blocks until
	// the broker answers or the context is cancelled.
	ConnectTimeout time.Duration
}

// Addr returns host:port, falling back to DefaultPort.
func (c ConnectionConfig) Addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// URL returns the broker address in mqtts://host:port form, for logs.
func (c ConnectionConfig) URL() string {
	return Scheme + "://" + c.Addr()
}

// Message is a single application message.
type Message struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}
