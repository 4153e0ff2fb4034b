package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/mqtt-test-client/core/metrics"
)

func TestInfluxSink_RecordPublish(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer func() { _ = sink.Flush(context.Background()) }()
	now := time.Now()
	ev := coremetrics.PublishEvent{
		ClientID:       "mqtt_iot_client_1",
		Broker:         "mqtts://broker.example.com:8883",
		Topic:          "nodejs/test",
		Style:          "suspend",
		Outcome:        coremetrics.OutcomePublished,
		FinalState:     "Closed",
		ConnectLatency: 40 * time.Millisecond,
		Duration:       55 * time.Millisecond,
		Time:           now,
	}
	if err := sink.RecordPublish(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("mqtt_publish_run").
		AddTag("style", "suspend").
		AddTag("outcome", "published").
		AddTag("broker", "mqtts://broker.example.com:8883").
		AddTag("topic", "nodejs/test").
		AddField("client_id", "mqtt_iot_client_1").
		AddField("final_state", "Closed").
		AddField("connect_latency_ms", int64(40)).
		AddField("duration_ms", int64(55)).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestInfluxSink_RecordPublishError(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	err := sink.RecordPublish(coremetrics.PublishEvent{
		Style:   "callback",
		Outcome: coremetrics.OutcomeConnectionError,
		Error:   "connect mqtts://b:8883: refused",
		Time:    time.Now(),
	})
	if err != nil {
		t.Fatalf("record error: %v", err)
	}
	if !strings.Contains(body, `error="connect mqtts://b:8883: refused"`) {
		t.Errorf("error field missing: %s", body)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
