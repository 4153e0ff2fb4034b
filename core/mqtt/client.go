package mqtt

import "context"

// Session is an established broker connection owned by a single publisher.
type Session interface {
	// Publish hands the message to the transport. For QoS 0 no broker
	// acknowledgment is awaited.
	Publish(ctx context.Context, msg Message) error

	// Close sends a DISCONNECT and releases the underlying socket.
	Close(ctx context.Context) error
}

// ConnectResult is delivered to callback style callers once the connection
// attempt completes. Exactly one of Session or Err is set.
type ConnectResult struct {
	Session Session
	Err     error
}

// Connector opens MQTT sessions from a ConnectionConfig.
type Connector interface {
	// Connect blocks until the session is ready or the attempt failed.
	Connect(ctx context.Context, cfg ConnectionConfig) (Session, error)

	// ConnectAsync starts the attempt and invokes onConnect exactly once with
	// the outcome. It does not block.
	ConnectAsync(ctx context.Context, cfg ConnectionConfig, onConnect func(ConnectResult))
}
