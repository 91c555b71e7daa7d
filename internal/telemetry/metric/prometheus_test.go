package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// scrape returns the text exposition of r.
func scrape(t *testing.T, r *Registry) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.registry == nil {
		t.Error("registry field is nil")
	}
	if r.CommandsTotal == nil || r.CommandDuration == nil {
		t.Error("command metrics are nil")
	}
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
}

func TestHandler(t *testing.T) {
	h := Handler()
	if h == nil {
		t.Fatal("Handler() returned nil")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(string(body), "process_") {
		t.Error("expected process metrics")
	}
}

func TestConnectionMetrics(t *testing.T) {
	r := NewRegistry()

	r.ConnectionOpened()
	r.ConnectionOpened()
	r.ConnectionClosed()

	body := scrape(t, r)
	if !strings.Contains(body, "respkv_connections_active 1") {
		t.Error("expected respkv_connections_active 1")
	}
	if !strings.Contains(body, "respkv_connections_total 2") {
		t.Error("expected respkv_connections_total 2")
	}
}

func TestCommandMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordCommand("get", "OK", 0.0001)
	r.RecordCommand("get", "OK", 0.0002)
	r.RecordCommand("set", "RK-CMD-4002", 0.0001)
	r.IncProtocolErrors()

	body := scrape(t, r)
	if !strings.Contains(body, `respkv_commands_total{command="get",status="OK"} 2`) {
		t.Error("expected respkv_commands_total for get OK")
	}
	if !strings.Contains(body, `respkv_commands_total{command="set",status="RK-CMD-4002"} 1`) {
		t.Error("expected respkv_commands_total for set syntax error")
	}
	if !strings.Contains(body, `respkv_command_duration_seconds_count{command="get"} 2`) {
		t.Error("expected respkv_command_duration_seconds_count for get")
	}
	if !strings.Contains(body, "respkv_protocol_errors_total 1") {
		t.Error("expected respkv_protocol_errors_total 1")
	}
}

func TestKeyspaceAndReplicationMetrics(t *testing.T) {
	r := NewRegistry()

	r.IncExpiredKeys()
	r.IncExpiredKeys()
	r.RecordHandshake("success")
	r.RecordHandshake("failed_pinged")

	body := scrape(t, r)
	if !strings.Contains(body, "respkv_expired_keys_total 2") {
		t.Error("expected respkv_expired_keys_total 2")
	}
	if !strings.Contains(body, `respkv_replication_handshakes_total{result="success"} 1`) {
		t.Error("expected handshake success count")
	}
	if !strings.Contains(body, `respkv_replication_handshakes_total{result="failed_pinged"} 1`) {
		t.Error("expected handshake failure count")
	}
}

func TestNilRegistry(t *testing.T) {
	var r *Registry

	// None of these should panic.
	r.ConnectionOpened()
	r.ConnectionClosed()
	r.RecordCommand("get", "OK", 0)
	r.IncProtocolErrors()
	r.IncExpiredKeys()
	r.RecordHandshake("success")
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.ConnectionOpened()
				r.RecordCommand("ping", "OK", 0.00001)
				r.ConnectionClosed()
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	body := scrape(t, r)
	if !strings.Contains(body, `respkv_commands_total{command="ping",status="OK"} 1000`) {
		t.Error("expected 1000 ping commands")
	}
	if !strings.Contains(body, "respkv_connections_active 0") {
		t.Error("expected respkv_connections_active 0")
	}
}
