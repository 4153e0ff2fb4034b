package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	coremqtt "github.com/kilianp07/mqtt-test-client/core/mqtt"
)

// ErrNoCACerts is returned when the CA chain holds no usable PEM certificate.
var ErrNoCACerts = errors.New("no certificates found in CA chain")

// NewTLSConfig builds the client side of the mutual TLS handshake from the
// PEM material in cfg. The broker must present a certificate chaining to the
// configured CA, never to the system roots.
func NewTLSConfig(cfg coremqtt.ConnectionConfig) (*tls.Config, error) {
	cert, err := tls.X509KeyPair(cfg.Cert, cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("load client key pair: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(cfg.CA) {
		return nil, ErrNoCACerts
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		ServerName:   cfg.Host,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
