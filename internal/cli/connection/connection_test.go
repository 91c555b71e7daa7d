package connection

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/respkv-go/internal/protocol/resp"
)

// ============================================================
// Test server
// ============================================================

type fakeServer struct {
	ln       net.Listener
	accepted atomic.Int32
}

// newFakeServer answers PING with PONG, ECHO with its argument, SNAP with
// +FULLRESYNC and a snapshot, and closes the connection on DROP.
func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeServer{ln: ln}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.accepted.Add(1)
			go s.serve(conn)
		}
	}()
	return s
}

func (s *fakeServer) addr() string {
	return s.ln.Addr().String()
}

func (s *fakeServer) serve(conn net.Conn) {
	defer conn.Close()
	r := resp.NewReader(conn)
	w := resp.NewWriter(conn)
	for {
		v, err := r.ReadValue()
		if err != nil {
			return
		}
		name, _ := v.Elems[0].Text()
		switch strings.ToUpper(name) {
		case "PING":
			_ = w.WriteValue(resp.SimpleString("PONG"))
		case "ECHO":
			_ = w.WriteValue(v.Elems[1])
		case "SNAP":
			_ = w.WriteValue(resp.SimpleString("FULLRESYNC x 0"))
			_ = w.WriteSnapshot([]byte("REDIS0011"))
		case "SLOW":
			time.Sleep(time.Second)
		case "DROP":
			return
		default:
			_ = w.WriteValue(resp.Error("ERR unknown command"))
		}
	}
}

// ============================================================
// Client
// ============================================================

func TestClient_Do(t *testing.T) {
	srv := newFakeServer(t)

	c, err := Dial(context.Background(), srv.addr(), time.Second)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	if c.Addr() != srv.addr() {
		t.Errorf("Addr() = %q, want %q", c.Addr(), srv.addr())
	}

	tests := []struct {
		args []string
		want resp.Value
	}{
		{[]string{"PING"}, resp.SimpleString("PONG")},
		{[]string{"ECHO", "hello world"}, resp.BulkStringFromString("hello world")},
		{[]string{"NOPE"}, resp.Error("ERR unknown command")},
	}

	for _, tt := range tests {
		got, err := c.Do(context.Background(), tt.args...)
		if err != nil {
			t.Fatalf("Do(%v) error = %v", tt.args, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("Do(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestClient_DoEmpty(t *testing.T) {
	srv := newFakeServer(t)
	c, err := Dial(context.Background(), srv.addr(), time.Second)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	if _, err := c.Do(context.Background()); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Do() error = %v, want ErrEmptyCommand", err)
	}
}

func TestClient_ReadSnapshot(t *testing.T) {
	srv := newFakeServer(t)
	c, err := Dial(context.Background(), srv.addr(), time.Second)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	v, err := c.Do(context.Background(), "SNAP")
	if err != nil || !v.Equal(resp.SimpleString("FULLRESYNC x 0")) {
		t.Fatalf("SNAP = %v, %v", v, err)
	}
	payload, err := c.ReadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if string(payload) != "REDIS0011" {
		t.Errorf("payload = %q", payload)
	}

	// The stream stays aligned for the next reply.
	if v, err := c.Do(context.Background(), "PING"); err != nil || !v.Equal(resp.SimpleString("PONG")) {
		t.Errorf("PING = %v, %v", v, err)
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := newFakeServer(t)
	c, err := Dial(context.Background(), srv.addr(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	_, err = c.Do(context.Background(), "SLOW")
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Errorf("Do(SLOW) error = %v, want timeout", err)
	}
}

func TestClient_ContextCancel(t *testing.T) {
	srv := newFakeServer(t)
	c, err := Dial(context.Background(), srv.addr(), 0)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.Do(ctx, "SLOW"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do(SLOW) error = %v, want context deadline", err)
	}
}

func TestDial_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := Dial(context.Background(), addr, time.Second); err == nil {
		t.Error("Dial() to a closed port should fail")
	}
}

// ============================================================
// Manager
// ============================================================

func TestNewManager(t *testing.T) {
	m := NewManager(WithTimeout(time.Second))
	if m.Current() != nil || m.IsConnected() {
		t.Error("new manager should have no current connection")
	}
	if m.timeout != time.Second {
		t.Errorf("timeout = %v", m.timeout)
	}
	if _, err := m.Do(context.Background(), "PING"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Do() error = %v, want ErrNotConnected", err)
	}
}

func TestManager_ConnectDisconnect(t *testing.T) {
	srv := newFakeServer(t)
	m := NewManager()

	if err := m.Connect(context.Background(), srv.addr()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !m.IsConnected() || m.Addr() != srv.addr() {
		t.Errorf("after Connect: connected=%v addr=%q", m.IsConnected(), m.Addr())
	}

	if err := m.Disconnect(); err != nil {
		t.Errorf("Disconnect() error = %v", err)
	}
	if m.IsConnected() {
		t.Error("IsConnected() should return false after Disconnect")
	}
	if m.Addr() != srv.addr() {
		t.Error("Disconnect should keep the address")
	}

	// The next command reconnects.
	if v, err := m.Do(context.Background(), "PING"); err != nil || !v.Equal(resp.SimpleString("PONG")) {
		t.Errorf("PING after Disconnect = %v, %v", v, err)
	}
	if n := srv.accepted.Load(); n != 2 {
		t.Errorf("accepted = %d, want 2", n)
	}
}

func TestManager_ConnectFailureKeepsCurrent(t *testing.T) {
	srv := newFakeServer(t)
	m := NewManager(WithTimeout(time.Second))
	if err := m.Connect(context.Background(), srv.addr()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	before := m.Current()

	ln, _ := net.Listen("tcp", "127.0.0.1:0")
	closed := ln.Addr().String()
	ln.Close()

	if err := m.Connect(context.Background(), closed); err == nil {
		t.Fatal("Connect() to a closed port should fail")
	}
	if m.Current() != before || m.Addr() != srv.addr() {
		t.Error("a failed Connect should keep the previous connection")
	}
}

func TestManager_DropsBrokenConnection(t *testing.T) {
	srv := newFakeServer(t)
	m := NewManager()
	m.SetAddr(srv.addr())

	if _, err := m.Do(context.Background(), "DROP"); err == nil {
		t.Fatal("Do(DROP) should fail when the server closes the connection")
	}
	if m.IsConnected() {
		t.Error("a broken connection should be dropped")
	}

	if v, err := m.Do(context.Background(), "PING"); err != nil || !v.Equal(resp.SimpleString("PONG")) {
		t.Errorf("PING after reconnect = %v, %v", v, err)
	}
}
