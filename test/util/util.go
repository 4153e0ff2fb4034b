// Package util provides helpers shared across tests.
//
// NewPKI creates a disposable certificate authority with server and client
// certificates, mirroring the CA chain plus client1-authn-ID material the
// publisher expects on disk.
//
// StartBroker runs an in-process MQTT v5 broker behind mutual TLS and records
// every CONNECT, PUBLISH and DISCONNECT it receives.
//
// StartMosquitto launches a Mosquitto broker with a mutual TLS listener in a
// Docker container for end-to-end tests.
package util

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MosquittoReadyTimeout bounds container startup.
const MosquittoReadyTimeout = 60 * time.Second

// StartMosquitto launches Mosquitto with a TLS listener on 8883 that requires
// client certificates signed by the PKI's CA. It returns the mapped host and
// port along with a cleanup function.
func StartMosquitto(ctx context.Context, p *PKI) (string, int, func(), error) {
	dir, err := os.MkdirTemp("", "mosq")
	if err != nil {
		return "", 0, nil, err
	}
	files, err := p.WriteFiles(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", 0, nil, err
	}
	conf := `listener 8883
protocol mqtt
cafile /mosquitto/config/ca.crt
certfile /mosquitto/config/server.crt
keyfile /mosquitto/config/server.key
require_certificate true
use_identity_as_username true
allow_anonymous true
persistence false
log_dest stdout
connection_messages true
`
	confPath := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(confPath, []byte(conf), 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return "", 0, nil, err
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"8883/tcp"},
		WaitingFor:   wait.ForListeningPort("8883/tcp").WithStartupTimeout(MosquittoReadyTimeout),
		Files: []tc.ContainerFile{
			{HostFilePath: confPath, ContainerFilePath: "/mosquitto/config/mosquitto.conf", FileMode: 0o644},
			{HostFilePath: files.CA, ContainerFilePath: "/mosquitto/config/ca.crt", FileMode: 0o644},
			{HostFilePath: files.ServerCert, ContainerFilePath: "/mosquitto/config/server.crt", FileMode: 0o644},
			{HostFilePath: files.ServerKey, ContainerFilePath: "/mosquitto/config/server.key", FileMode: 0o644},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", 0, nil, err
	}
	cleanup := func() {
		_ = cont.Terminate(context.Background())
		_ = os.RemoveAll(dir)
	}

	host, err := cont.Host(ctx)
	if err != nil {
		cleanup()
		return "", 0, nil, err
	}
	mapped, err := cont.MappedPort(ctx, "8883")
	if err != nil {
		cleanup()
		return "", 0, nil, err
	}
	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		cleanup()
		return "", 0, nil, fmt.Errorf("mapped port %q: %w", mapped.Port(), err)
	}
	return host, port, cleanup, nil
}
