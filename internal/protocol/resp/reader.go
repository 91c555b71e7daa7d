package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

// Protocol limits to keep untrusted peers from exhausting memory or stack.
const (
	// DefaultMaxDepth limits array nesting.
	DefaultMaxDepth = 128

	// DefaultMaxBulkLen limits a single bulk string (512MB, same as Redis).
	DefaultMaxBulkLen = 512 * 1024 * 1024

	// DefaultMaxArrayLen limits the declared element count of one array.
	DefaultMaxArrayLen = 1024 * 1024

	// maxLineLen limits simple strings, errors, integers and length headers.
	maxLineLen = 64 * 1024

	// Buffers sized from a declared length start at most this large and grow
	// with the data that actually arrives.
	maxPreallocBytes = 4 * 1024
	maxPreallocElems = 64
)

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = fmt.Errorf("%w: limit exceeded", ErrProtocol)
)

// Reader decodes protocol values from a byte stream.
type Reader struct {
	br          *bufio.Reader
	maxDepth    int
	maxBulkLen  int
	maxArrayLen int
	allowNull   bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxDepth sets the maximum array nesting depth. n <= 0 removes the limit.
func WithMaxDepth(n int) ReaderOption {
	return func(r *Reader) {
		r.maxDepth = n
	}
}

// WithMaxBulkLen sets the maximum bulk string length.
func WithMaxBulkLen(n int) ReaderOption {
	return func(r *Reader) {
		r.maxBulkLen = n
	}
}

// WithMaxArrayLen sets the maximum declared array length.
func WithMaxArrayLen(n int) ReaderOption {
	return func(r *Reader) {
		r.maxArrayLen = n
	}
}

// WithNullReplies makes the reader decode "$-1" and "*-1" as NullBulkString.
// Servers never accept null values from clients; clients need them to read
// replies such as a GET miss.
func WithNullReplies() ReaderOption {
	return func(r *Reader) {
		r.allowNull = true
	}
}

// NewReader returns a Reader decoding from rd.
func NewReader(rd io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{
		br:          bufio.NewReader(rd),
		maxDepth:    DefaultMaxDepth,
		maxBulkLen:  DefaultMaxBulkLen,
		maxArrayLen: DefaultMaxArrayLen,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadValue reads exactly one framed value.
//
// It returns io.EOF if the stream ended before the first byte of a value and
// io.ErrUnexpectedEOF if it ended inside one. Malformed input yields an error
// wrapping ErrProtocol.
func (r *Reader) ReadValue() (Value, error) {
	tag, err := r.br.ReadByte()
	if err != nil {
		return Value{}, err
	}
	return r.readBody(tag, 0)
}

// Wait blocks until the first byte of the next value is available without
// consuming it. It returns io.EOF if the stream ended cleanly.
func (r *Reader) Wait() error {
	_, err := r.br.Peek(1)
	return err
}

// ReadSnapshot reads a bulk payload written by Writer.WriteSnapshot, which
// unlike a bulk string carries no trailing CRLF.
func (r *Reader) ReadSnapshot() ([]byte, error) {
	tag, err := r.br.ReadByte()
	if err != nil {
		return nil, err
	}
	if tag != tagBulkString {
		return nil, fmt.Errorf("%w: expected snapshot payload, got type byte %q", ErrProtocol, tag)
	}
	n, _, err := r.readLength(r.maxBulkLen, false)
	if err != nil {
		return nil, err
	}
	return r.readPayload(n)
}

func (r *Reader) readValue(depth int) (Value, error) {
	tag, err := r.br.ReadByte()
	if err != nil {
		return Value{}, unexpected(err)
	}
	return r.readBody(tag, depth)
}

func (r *Reader) readBody(tag byte, depth int) (Value, error) {
	switch tag {
	case tagSimpleString:
		s, err := r.readText()
		if err != nil {
			return Value{}, err
		}
		return SimpleString(s), nil

	case tagError:
		s, err := r.readText()
		if err != nil {
			return Value{}, err
		}
		return Error(s), nil

	case tagInteger:
		line, err := r.readLine()
		if err != nil {
			return Value{}, err
		}
		n, err := strconv.ParseInt(string(line), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: invalid integer %q", ErrProtocol, line)
		}
		return Integer(n), nil

	case tagBulkString:
		n, null, err := r.readLength(r.maxBulkLen, r.allowNull)
		if err != nil {
			return Value{}, err
		}
		if null {
			return NullBulkString(), nil
		}
		payload, err := r.readPayload(n)
		if err != nil {
			return Value{}, err
		}
		var crlf [2]byte
		if _, err := io.ReadFull(r.br, crlf[:]); err != nil {
			return Value{}, unexpected(err)
		}
		if crlf[0] != '\r' || crlf[1] != '\n' {
			return Value{}, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
		}
		return BulkString(payload), nil

	case tagArray:
		if r.maxDepth > 0 && depth >= r.maxDepth {
			return Value{}, fmt.Errorf("%w: nesting depth exceeds %d", ErrLimitExceeded, r.maxDepth)
		}
		n, null, err := r.readLength(r.maxArrayLen, r.allowNull)
		if err != nil {
			return Value{}, err
		}
		if null {
			return NullBulkString(), nil
		}
		elems := make([]Value, 0, min(n, maxPreallocElems))
		for i := 0; i < n; i++ {
			elem, err := r.readValue(depth + 1)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, elem)
		}
		return Array(elems...), nil

	default:
		return Value{}, fmt.Errorf("%w: unknown type byte %q", ErrProtocol, tag)
	}
}

// readPayload reads exactly n bytes. The buffer grows as bytes arrive, so a
// large declared length on a short stream allocates little.
func (r *Reader) readPayload(n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	buf.Grow(min(n, maxPreallocBytes))
	if _, err := io.CopyN(&buf, r.br, int64(n)); err != nil {
		return nil, unexpected(err)
	}
	b := buf.Bytes()
	return b[:n:n], nil
}

// readLength parses a non-negative decimal length header. When allowNull is
// set, "-1" is accepted and reported through null.
func (r *Reader) readLength(limit int, allowNull bool) (n int, null bool, err error) {
	line, err := r.readLine()
	if err != nil {
		return 0, false, err
	}
	if allowNull && string(line) == "-1" {
		return 0, true, nil
	}
	u, err := strconv.ParseUint(string(line), 10, 63)
	if err != nil {
		return 0, false, fmt.Errorf("%w: invalid length %q", ErrProtocol, line)
	}
	if limit > 0 && u > uint64(limit) {
		return 0, false, fmt.Errorf("%w: length %d exceeds %d", ErrLimitExceeded, u, limit)
	}
	return int(u), false, nil
}

// readText reads a CRLF-terminated line that must be valid UTF-8.
func (r *Reader) readText() (string, error) {
	line, err := r.readLine()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(line) {
		return "", fmt.Errorf("%w: invalid UTF-8 in simple string", ErrProtocol)
	}
	return string(line), nil
}

// readLine reads up to and including CRLF and returns the line without it.
func (r *Reader) readLine() ([]byte, error) {
	var buf []byte
	for {
		frag, err := r.br.ReadSlice('\n')
		if err == nil {
			buf = append(buf, frag...)
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, frag...)
			if len(buf) > maxLineLen {
				return nil, fmt.Errorf("%w: line length exceeds %d", ErrLimitExceeded, maxLineLen)
			}
			continue
		}
		return nil, unexpected(err)
	}

	if len(buf) > maxLineLen+2 {
		return nil, fmt.Errorf("%w: line length exceeds %d", ErrLimitExceeded, maxLineLen)
	}
	if len(buf) < 2 || buf[len(buf)-2] != '\r' {
		return nil, fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	line := buf[:len(buf)-2]
	if bytes.IndexByte(line, '\r') >= 0 {
		return nil, fmt.Errorf("%w: stray CR in line", ErrProtocol)
	}
	return line, nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
