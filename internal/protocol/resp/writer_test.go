package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// ============================================================
// WriteValue Tests
// ============================================================

func TestWriteValue(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"simple string", SimpleString("PONG"), "+PONG\r\n"},
		{"error", Error("ERR unknown command 'foo'"), "-ERR unknown command 'foo'\r\n"},
		{"integer", Integer(1000), ":1000\r\n"},
		{"negative integer", Integer(-1), ":-1\r\n"},
		{"bulk string", BulkStringFromString("hello"), "$5\r\nhello\r\n"},
		{"empty bulk string", BulkString(nil), "$0\r\n\r\n"},
		{"null bulk string", NullBulkString(), "$-1\r\n"},
		{"empty array", Array(), "*0\r\n"},
		{"command", Command("PSYNC", "?", "-1"), "*3\r\n$5\r\nPSYNC\r\n$1\r\n?\r\n$2\r\n-1\r\n"},
		{"nested array", Array(Array(Integer(1)), NullBulkString()), "*2\r\n*1\r\n:1\r\n$-1\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf)
			if err := w.WriteValue(tt.value); err != nil {
				t.Fatalf("WriteValue() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("WriteValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteValue_InvalidKind(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteValue(Value{}); err == nil {
		t.Error("WriteValue(zero Value) should fail")
	}
}

func TestWriteValue_LineBreaks(t *testing.T) {
	tests := []struct {
		name  string
		value Value
	}{
		{"simple string LF", SimpleString("OK\n+PONG")},
		{"simple string CR", SimpleString("OK\r")},
		{"error CRLF", Error("ERR a\r\n:1")},
		{"nested in array", Array(BulkStringFromString("ok"), Array(SimpleString("x\ny")))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf)
			if err := w.WriteValue(tt.value); !errors.Is(err, ErrInvalidValue) {
				t.Errorf("WriteValue() error = %v, want ErrInvalidValue", err)
			}
			// Nothing may leak into the stream, including on a later write.
			if err := w.WriteValue(SimpleString("OK")); err != nil {
				t.Fatalf("WriteValue() after rejection error = %v", err)
			}
			if got := buf.String(); got != "+OK\r\n" {
				t.Errorf("stream = %q, want only the later value", got)
			}
		})
	}
}

func TestWriteCommand(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteCommand("REPLCONF", "capa", "psync2"); err != nil {
		t.Fatalf("WriteCommand() error = %v", err)
	}
	want := "*3\r\n$8\r\nREPLCONF\r\n$4\r\ncapa\r\n$6\r\npsync2\r\n"
	if buf.String() != want {
		t.Errorf("WriteCommand() = %q, want %q", buf.String(), want)
	}
}

func TestWriteSnapshot(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteSnapshot([]byte("REDIS0011")); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	if got, want := buf.String(), "$9\r\nREDIS0011"; got != want {
		t.Errorf("WriteSnapshot() = %q, want %q", got, want)
	}
}

// failingWriter fails every write.
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestWriteValue_FlushError(t *testing.T) {
	w := NewWriter(failingWriter{})
	if err := w.WriteValue(SimpleString("OK")); err == nil {
		t.Error("WriteValue() should surface the flush error")
	}
}

// ============================================================
// Round-trip Tests
// ============================================================

func TestRoundTrip(t *testing.T) {
	deep := Integer(7)
	for i := 0; i < 50; i++ {
		deep = Array(deep, BulkStringFromString(fmt.Sprintf("level-%d", i)))
	}

	values := []Value{
		SimpleString("OK"),
		SimpleString(""),
		Error("ERR something"),
		Integer(0),
		Integer(-9223372036854775808),
		Integer(9223372036854775807),
		BulkStringFromString("hello world"),
		BulkString([]byte{0, 1, 2, '\r', '\n', 255}),
		BulkString(nil),
		Array(),
		Command("SET", "k", "v", "PX", "100"),
		Array(Array(), Array(Array(SimpleString("x"))), Error("e"), Integer(3)),
		deep,
	}

	for i, v := range values {
		t.Run(fmt.Sprintf("value-%d", i), func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewWriter(&buf).WriteValue(v); err != nil {
				t.Fatalf("WriteValue() error = %v", err)
			}
			got, err := NewReader(&buf).ReadValue()
			if err != nil {
				t.Fatalf("ReadValue() error = %v", err)
			}
			if !got.Equal(v) {
				t.Errorf("round trip = %v, want %v", got, v)
			}
			if buf.Len() != 0 {
				t.Errorf("%d bytes left unread", buf.Len())
			}
		})
	}
}

func TestRoundTrip_Stream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := 0; i < 100; i++ {
		if err := w.WriteCommand("ECHO", strings.Repeat("x", i)); err != nil {
			t.Fatalf("WriteCommand() error = %v", err)
		}
	}

	r := NewReader(&buf)
	for i := 0; i < 100; i++ {
		v, err := r.ReadValue()
		if err != nil {
			t.Fatalf("ReadValue() #%d error = %v", i, err)
		}
		if !v.Equal(Command("ECHO", strings.Repeat("x", i))) {
			t.Fatalf("ReadValue() #%d = %v", i, v)
		}
	}
}

// ============================================================
// Value Tests
// ============================================================

func TestValue_Text(t *testing.T) {
	tests := []struct {
		value  Value
		want   string
		wantOK bool
	}{
		{SimpleString("a"), "a", true},
		{Error("b"), "b", true},
		{BulkStringFromString("c"), "c", true},
		{Integer(1), "", false},
		{NullBulkString(), "", false},
		{Array(), "", false},
	}

	for _, tt := range tests {
		got, ok := tt.value.Text()
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("%v.Text() = (%q, %v), want (%q, %v)", tt.value, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestValue_Equal(t *testing.T) {
	if SimpleString("a").Equal(BulkStringFromString("a")) {
		t.Error("different kinds should not be equal")
	}
	if Array(Integer(1)).Equal(Array(Integer(1), Integer(2))) {
		t.Error("arrays of different length should not be equal")
	}
	if !NullBulkString().Equal(NullBulkString()) {
		t.Error("null values should be equal")
	}
	if !BulkString(nil).Equal(BulkStringFromString("")) {
		t.Error("nil and empty bulk strings should be equal")
	}
}

func TestKind_String(t *testing.T) {
	if KindArray.String() != "array" {
		t.Errorf("KindArray.String() = %q", KindArray.String())
	}
	if Kind(99).String() != "unknown" {
		t.Errorf("Kind(99).String() = %q", Kind(99).String())
	}
}
