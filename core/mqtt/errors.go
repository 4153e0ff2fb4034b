package mqtt

import (
	"errors"
	"fmt"
)

// ErrEmptyFile is returned when a certificate or key file has no content.
var ErrEmptyFile = errors.New("file is empty")

// ConfigError reports a certificate or key file that could not be loaded.
// It is never retryable.
type ConfigError struct {
	// Field names the configuration entry, e.g. CERT_FILE_PATH.
	Field string
	Path  string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %q: %v", e.Field, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConnectionError covers TLS handshake failures, broker rejections,
// unreachable hosts and DNS failures.
type ConnectionError struct {
	Broker string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Broker, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// PublishError is a transport failure while sending the message.
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %q: %v", e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
