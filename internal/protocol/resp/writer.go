package resp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInvalidValue is returned for values that cannot be framed, such as a
// simple string containing CR or LF.
var ErrInvalidValue = errors.New("resp: invalid value")

// Writer encodes protocol values onto a byte stream.
//
// Every exported write method flushes before returning so the peer observes
// complete values promptly.
type Writer struct {
	bw *bufio.Writer
}

// NewWriter returns a Writer encoding to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// WriteValue encodes v and flushes. v is checked in full before anything is
// buffered, so an invalid value leaves the stream untouched.
func (w *Writer) WriteValue(v Value) error {
	if err := checkValue(v); err != nil {
		return err
	}
	if err := w.writeValue(v); err != nil {
		return err
	}
	return w.bw.Flush()
}

// WriteCommand encodes args as an array of bulk strings and flushes.
func (w *Writer) WriteCommand(args ...string) error {
	return w.WriteValue(Command(args...))
}

// WriteSnapshot writes payload as "$<len>\r\n<payload>" without a trailing
// CRLF, the framing used for full resynchronization transfers.
func (w *Writer) WriteSnapshot(payload []byte) error {
	if err := w.writeHeader(tagBulkString, len(payload)); err != nil {
		return err
	}
	if _, err := w.bw.Write(payload); err != nil {
		return err
	}
	return w.bw.Flush()
}

func (w *Writer) writeValue(v Value) error {
	switch v.Kind {
	case KindSimpleString:
		return w.writeLine(tagSimpleString, v.Str)
	case KindError:
		return w.writeLine(tagError, v.Str)
	case KindInteger:
		return w.writeLine(tagInteger, strconv.FormatInt(v.Int, 10))
	case KindBulkString:
		if err := w.writeHeader(tagBulkString, len(v.Bulk)); err != nil {
			return err
		}
		if _, err := w.bw.Write(v.Bulk); err != nil {
			return err
		}
		_, err := w.bw.WriteString("\r\n")
		return err
	case KindNull:
		_, err := w.bw.WriteString("$-1\r\n")
		return err
	case KindArray:
		if err := w.writeHeader(tagArray, len(v.Elems)); err != nil {
			return err
		}
		for _, e := range v.Elems {
			if err := w.writeValue(e); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: cannot encode value of kind %d", ErrInvalidValue, v.Kind)
	}
}

func checkValue(v Value) error {
	switch v.Kind {
	case KindSimpleString, KindError:
		if strings.ContainsAny(v.Str, "\r\n") {
			return fmt.Errorf("%w: line break in %s", ErrInvalidValue, v.Kind)
		}
	case KindInteger, KindBulkString, KindNull:
	case KindArray:
		for _, e := range v.Elems {
			if err := checkValue(e); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: cannot encode value of kind %d", ErrInvalidValue, v.Kind)
	}
	return nil
}

func (w *Writer) writeHeader(tag byte, n int) error {
	return w.writeLine(tag, strconv.Itoa(n))
}

func (w *Writer) writeLine(tag byte, s string) error {
	if err := w.bw.WriteByte(tag); err != nil {
		return err
	}
	if _, err := w.bw.WriteString(s); err != nil {
		return err
	}
	_, err := w.bw.WriteString("\r\n")
	return err
}
