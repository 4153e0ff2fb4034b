package util

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
)

// Packet types as seen by the broker.
const (
	PacketConnect    = "CONNECT"
	PacketPublish    = "PUBLISH"
	PacketDisconnect = "DISCONNECT"
)

// Observed is one packet received by the test broker.
type Observed struct {
	Type            string
	ClientID        string
	ProtocolVersion byte
	// PeerCommonName is the subject of the client certificate, CONNECT only.
	PeerCommonName string
	Topic          string
	Payload        []byte
	QoS            byte
	Retain         bool
}

// recorder is a mochi hook that keeps the packets it sees in arrival order.
type recorder struct {
	mochi.HookBase
	mu   sync.Mutex
	seen []Observed
}

func (h *recorder) ID() string { return "recorder" }

func (h *recorder) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mochi.OnConnect,
		mochi.OnPublish,
		mochi.OnPacketRead,
	}, []byte{b})
}

func (h *recorder) OnConnect(cl *mochi.Client, pk packets.Packet) error {
	ob := Observed{Type: PacketConnect, ClientID: cl.ID, ProtocolVersion: pk.ProtocolVersion}
	if tc, ok := cl.Net.Conn.(*tls.Conn); ok {
		if certs := tc.ConnectionState().PeerCertificates; len(certs) > 0 {
			ob.PeerCommonName = certs[0].Subject.CommonName
		}
	}
	h.add(ob)
	return nil
}

func (h *recorder) OnPublish(cl *mochi.Client, pk packets.Packet) (packets.Packet, error) {
	h.add(Observed{
		Type:     PacketPublish,
		ClientID: cl.ID,
		Topic:    pk.TopicName,
		Payload:  append([]byte(nil), pk.Payload...),
		QoS:      pk.FixedHeader.Qos,
		Retain:   pk.FixedHeader.Retain,
	})
	return pk, nil
}

func (h *recorder) OnPacketRead(cl *mochi.Client, pk packets.Packet) (packets.Packet, error) {
	if pk.FixedHeader.Type == packets.Disconnect {
		h.add(Observed{Type: PacketDisconnect, ClientID: cl.ID})
	}
	return pk, nil
}

func (h *recorder) add(ob Observed) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, ob)
}

// Broker is an in-process MQTT v5 broker listening with mutual TLS on a
// random loopback port.
type Broker struct {
	Host string
	Port int

	server *mochi.Server
	rec    *recorder
}

// StartBroker launches the broker with the given TLS configuration.
func StartBroker(tlsCfg *tls.Config) (*Broker, error) {
	port, err := freePort()
	if err != nil {
		return nil, err
	}
	server := mochi.New(&mochi.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("allow hook: %w", err)
	}
	rec := &recorder{}
	if err := server.AddHook(rec, nil); err != nil {
		return nil, fmt.Errorf("recorder hook: %w", err)
	}
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	l := listeners.NewTCP(listeners.Config{ID: "mtls", Address: addr, TLSConfig: tlsCfg})
	if err := server.AddListener(l); err != nil {
		return nil, fmt.Errorf("add listener: %w", err)
	}
	go func() {
		_ = server.Serve()
	}()
	return &Broker{Host: "127.0.0.1", Port: port, server: server, rec: rec}, nil
}

// Observed returns a copy of the packets received so far.
func (b *Broker) Observed() []Observed {
	b.rec.mu.Lock()
	defer b.rec.mu.Unlock()
	return append([]Observed(nil), b.rec.seen...)
}

// Types returns the packet types received so far, in order.
func (b *Broker) Types() []string {
	var out []string
	for _, ob := range b.Observed() {
		out = append(out, ob.Type)
	}
	return out
}

// Close stops the broker.
func (b *Broker) Close() error {
	return b.server.Close()
}

// UnusedAddr returns a loopback address nothing listens on.
func UnusedAddr() (string, int, error) {
	port, err := freePort()
	return "127.0.0.1", port, err
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
