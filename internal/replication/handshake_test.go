package replication

import (
	"context"
	"errors"
	"io"
	"net"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/yndnr/respkv-go/internal/protocol/resp"
)

const testRunID = "8371b4fb-1155-b71f-4a04-d3e1bc3e18c4"

// hangUp as a reply makes fakePrimary close the connection instead of
// answering.
const hangUp = ""

// fakePrimary answers each received command with the next raw reply.
// After the last reply it writes tail, then closes conn unless keepOpen.
// Received commands are sent on the returned channel when it returns.
func fakePrimary(conn net.Conn, replies []string, tail string, keepOpen bool) <-chan [][]string {
	done := make(chan [][]string, 1)

	go func() {
		var received [][]string
		defer func() { done <- received }()

		r := resp.NewReader(conn)
		for _, reply := range replies {
			v, err := r.ReadValue()
			if err != nil {
				conn.Close()
				return
			}
			var args []string
			for _, e := range v.Elems {
				s, _ := e.Text()
				args = append(args, s)
			}
			received = append(received, args)

			if reply == hangUp {
				conn.Close()
				return
			}
			if _, err := io.WriteString(conn, reply); err != nil {
				return
			}
		}
		if tail != "" {
			if _, err := io.WriteString(conn, tail); err != nil {
				return
			}
		}
		if !keepOpen {
			conn.Close()
		}
	}()

	return done
}

func snapshotFrame(payload []byte) string {
	return "$" + strconv.Itoa(len(payload)) + "\r\n" + string(payload)
}

var happyReplies = []string{
	"+PONG\r\n",
	"+OK\r\n",
	"+OK\r\n",
	"+FULLRESYNC " + testRunID + " 0\r\n",
}

// ============================================================
// Handshake Tests
// ============================================================

func TestHandshake_Success(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	done := fakePrimary(server, happyReplies, snapshotFrame(EmptySnapshot()), false)

	hs := NewHandshake(client, 6380)
	res, err := hs.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.RunID != testRunID || res.Offset != 0 {
		t.Errorf("Run() = %+v", res)
	}
	if hs.Stage() != StageResyncAccepted {
		t.Errorf("Stage() = %v, want %v", hs.Stage(), StageResyncAccepted)
	}

	snap, err := hs.ReadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if len(snap) != 88 {
		t.Errorf("len(snapshot) = %d, want 88", len(snap))
	}

	want := [][]string{
		{"PING"},
		{"REPLCONF", "listening-port", "6380"},
		{"REPLCONF", "capa", "psync2"},
		{"PSYNC", "?", "-1"},
	}
	if got := <-done; !reflect.DeepEqual(got, want) {
		t.Errorf("primary received %q, want %q", got, want)
	}
}

func TestHandshake_Failures(t *testing.T) {
	tests := []struct {
		name      string
		replies   []string
		wantStage Stage
		wantErr   error
	}{
		{
			name:      "wrong reply to ping",
			replies:   []string{"+OK\r\n"},
			wantStage: StageInitial,
			wantErr:   ErrUnexpectedReply,
		},
		{
			name:      "error reply to ping",
			replies:   []string{"-ERR denied\r\n"},
			wantStage: StageInitial,
			wantErr:   ErrErrorReply,
		},
		{
			name:      "closed before pong",
			replies:   []string{hangUp},
			wantStage: StageInitial,
			wantErr:   io.ErrUnexpectedEOF,
		},
		{
			name:      "wrong reply to listening port",
			replies:   []string{"+PONG\r\n", "+NOPE\r\n"},
			wantStage: StagePinged,
			wantErr:   ErrUnexpectedReply,
		},
		{
			name:      "closed after pong",
			replies:   []string{"+PONG\r\n", hangUp},
			wantStage: StagePinged,
			wantErr:   io.ErrUnexpectedEOF,
		},
		{
			name:      "error reply to capabilities",
			replies:   []string{"+PONG\r\n", "+OK\r\n", "-ERR no\r\n"},
			wantStage: StagePortAnnounced,
			wantErr:   ErrErrorReply,
		},
		{
			name:      "bulk reply to capabilities",
			replies:   []string{"+PONG\r\n", "+OK\r\n", "$2\r\nOK\r\n"},
			wantStage: StagePortAnnounced,
			wantErr:   ErrUnexpectedReply,
		},
		{
			name:      "non zero offset",
			replies:   []string{"+PONG\r\n", "+OK\r\n", "+OK\r\n", "+FULLRESYNC abc 5\r\n"},
			wantStage: StageCapabilitiesAnnounced,
			wantErr:   ErrUnexpectedReply,
		},
		{
			name:      "partial resync",
			replies:   []string{"+PONG\r\n", "+OK\r\n", "+OK\r\n", "+CONTINUE\r\n"},
			wantStage: StageCapabilitiesAnnounced,
			wantErr:   ErrUnexpectedReply,
		},
		{
			name:      "missing run id",
			replies:   []string{"+PONG\r\n", "+OK\r\n", "+OK\r\n", "+FULLRESYNC 0\r\n"},
			wantStage: StageCapabilitiesAnnounced,
			wantErr:   ErrUnexpectedReply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := net.Pipe()
			defer client.Close()

			done := fakePrimary(server, tt.replies, "", false)

			hs := NewHandshake(client, 6380)
			_, err := hs.Run(context.Background())

			var hsErr *HandshakeError
			if !errors.As(err, &hsErr) {
				t.Fatalf("Run() error = %v, want *HandshakeError", err)
			}
			if hsErr.Stage != tt.wantStage {
				t.Errorf("Stage = %v, want %v", hsErr.Stage, tt.wantStage)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Run() error = %v, want %v", err, tt.wantErr)
			}

			client.Close()
			<-done
		})
	}
}

func TestHandshake_ContextCancel(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	// The primary reads PING but never answers.
	go func() {
		_, _ = resp.NewReader(server).ReadValue()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	hs := NewHandshake(client, 6380)
	_, err := hs.Run(ctx)

	var hsErr *HandshakeError
	if !errors.As(err, &hsErr) {
		t.Fatalf("Run() error = %v, want *HandshakeError", err)
	}
	if hsErr.Stage != StageInitial {
		t.Errorf("Stage = %v, want %v", hsErr.Stage, StageInitial)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestHandshake_InvalidSnapshot(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	done := fakePrimary(server, happyReplies, snapshotFrame([]byte("NOTRDB")), false)

	hs := NewHandshake(client, 6380)
	if _, err := hs.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := hs.ReadSnapshot(context.Background()); !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("ReadSnapshot() error = %v, want ErrInvalidSnapshot", err)
	}
	<-done
}

func TestStage_String(t *testing.T) {
	tests := map[Stage]string{
		StageInitial:               "initial",
		StagePinged:                "pinged",
		StagePortAnnounced:         "port_announced",
		StageCapabilitiesAnnounced: "capabilities_announced",
		StageResyncAccepted:        "resync_accepted",
		Stage(42):                  "unknown",
	}
	for stage, want := range tests {
		if got := stage.String(); got != want {
			t.Errorf("Stage(%d).String() = %q, want %q", int(stage), got, want)
		}
	}
}
