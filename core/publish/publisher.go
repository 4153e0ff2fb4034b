package publish

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/mqtt-test-client/core/logger"
	"github.com/kilianp07/mqtt-test-client/core/mqtt"
)

// Style selects how the connection outcome is awaited.
type Style string

const (
	// Suspend blocks the calling flow on each step.
	Suspend Style = "suspend"
	// Callback continues with publish inside the connect completion handler.
	Callback Style = "callback"
)

// Fixed payloads, one per style.
const (
	SuspendPayload  = "nodejs mqtt test async"
	CallbackPayload = "nodejs mqtt test"
)

// ErrNoSession is reported when a connector completes without a session or
// an error.
var ErrNoSession = errors.New("connector returned neither session nor error")

// ConfigSource produces the connection settings, reading the certificate
// material it refers to.
type ConfigSource interface {
	ConnectionConfig() (mqtt.ConnectionConfig, error)
}

// Report summarises one run.
type Report struct {
	Style    Style
	ClientID string
	Broker   string
	Topic    string
	// History lists every state entered, starting with Unconfigured.
	History        []State
	ConnectLatency time.Duration
	Duration       time.Duration
}

// Final returns the last state entered.
func (r Report) Final() State {
	if len(r.History) == 0 {
		return Unconfigured
	}
	return r.History[len(r.History)-1]
}

// Publisher runs the load, connect, publish, close sequence exactly once per
// call. Nothing is retried; the first error ends the run.
type Publisher struct {
	connector mqtt.Connector
	log       logger.Logger
}

// NewPublisher returns a Publisher opening sessions through connector.
func NewPublisher(connector mqtt.Connector, log logger.Logger) *Publisher {
	return &Publisher{connector: connector, log: log}
}

// Run executes the workflow in the suspend style: every step blocks until it
// completes.
func (p *Publisher) Run(ctx context.Context, src ConfigSource) (Report, error) {
	r := p.begin(Suspend)
	cfg, err := r.configure(src)
	if err != nil {
		return r.fail(err)
	}
	r.to(Connecting)
	start := time.Now()
	sess, err := p.connector.Connect(ctx, cfg)
	if err != nil {
		return r.fail(err)
	}
	r.connected(time.Since(start))
	return r.publishAndClose(ctx, sess, cfg, SuspendPayload)
}

// RunCallback executes the workflow in the callback style: publish and close
// run inside the connect completion handler and the caller waits for the
// handler to finish.
func (p *Publisher) RunCallback(ctx context.Context, src ConfigSource) (Report, error) {
	r := p.begin(Callback)
	cfg, err := r.configure(src)
	if err != nil {
		return r.fail(err)
	}
	r.to(Connecting)

	type outcome struct {
		rep Report
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	p.connector.ConnectAsync(ctx, cfg, func(res mqtt.ConnectResult) {
		var o outcome
		switch {
		case res.Err != nil:
			o.rep, o.err = r.fail(res.Err)
		case res.Session == nil:
			o.rep, o.err = r.fail(&mqtt.ConnectionError{Broker: cfg.URL(), Err: ErrNoSession})
		default:
			r.connected(time.Since(start))
			o.rep, o.err = r.publishAndClose(ctx, res.Session, cfg, CallbackPayload)
		}
		done <- o
	})
	o := <-done
	return o.rep, o.err
}

func (p *Publisher) begin(style Style) *run {
	r := &run{log: p.log, start: time.Now()}
	r.report.Style = style
	r.report.History = []State{Unconfigured}
	return r
}

// run holds the mutable state of one invocation. In the callback style it is
// handed to the completion goroutine and read back only after it finished.
type run struct {
	log    logger.Logger
	start  time.Time
	report Report
}

func (r *run) to(s State) {
	from := r.report.Final()
	r.report.History = append(r.report.History, s)
	r.log.Debugw("state transition", map[string]any{
		"style": string(r.report.Style),
		"from":  from.String(),
		"to":    s.String(),
	})
}

func (r *run) configure(src ConfigSource) (mqtt.ConnectionConfig, error) {
	cfg, err := src.ConnectionConfig()
	if err != nil {
		return mqtt.ConnectionConfig{}, err
	}
	r.report.ClientID = cfg.ClientID
	r.report.Broker = cfg.URL()
	r.report.Topic = cfg.Topic
	r.to(Configured)
	return cfg, nil
}

func (r *run) connected(latency time.Duration) {
	r.report.ConnectLatency = latency
	r.to(Connected)
}

// publishAndClose owns sess: it is closed on every path.
func (r *run) publishAndClose(ctx context.Context, sess mqtt.Session, cfg mqtt.ConnectionConfig, payload string) (Report, error) {
	r.to(Publishing)
	err := sess.Publish(ctx, mqtt.Message{
		Topic:   cfg.Topic,
		Payload: []byte(payload),
		QoS:     0,
		Retain:  false,
	})
	if err != nil {
		if cerr := sess.Close(ctx); cerr != nil {
			r.log.Warnf("close after failed publish: %v", cerr)
		}
		return r.fail(err)
	}
	r.to(Published)
	// QoS 0: the message has left the client, a failed DISCONNECT does not
	// undo it and paho releases the socket either way.
	if err := sess.Close(ctx); err != nil {
		r.log.Warnf("close: %v", err)
	}
	r.to(Closed)
	r.report.Duration = time.Since(r.start)
	r.log.Infow("Message published", map[string]any{
		"topic":     cfg.Topic,
		"broker":    r.report.Broker,
		"client_id": cfg.ClientID,
		"style":     string(r.report.Style),
	})
	return r.report, nil
}

func (r *run) fail(err error) (Report, error) {
	r.to(Failed)
	r.report.Duration = time.Since(r.start)
	return r.report, err
}
