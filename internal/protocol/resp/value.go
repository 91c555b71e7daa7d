// Package resp implements the RESP2 wire codec.
package resp

import (
	"bytes"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindSimpleString Kind = iota + 1
	KindError
	KindInteger
	KindBulkString
	KindNull
	KindArray
)

// Wire tags.
const (
	tagSimpleString = '+'
	tagError        = '-'
	tagInteger      = ':'
	tagBulkString   = '$'
	tagArray        = '*'
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindSimpleString:
		return "simple-string"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulkString:
		return "bulk-string"
	case KindNull:
		return "null"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a single protocol value.
//
// Only the field matching Kind is meaningful: Str for simple strings and
// errors, Int for integers, Bulk for bulk strings and Elems for arrays.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Bulk  []byte
	Elems []Value
}

// SimpleString returns a simple string value. s must not contain CR or LF;
// Writer rejects such values.
func SimpleString(s string) Value {
	return Value{Kind: KindSimpleString, Str: s}
}

// Error returns a simple error value. Like SimpleString, s must not contain
// CR or LF.
func Error(s string) Value {
	return Value{Kind: KindError, Str: s}
}

// Integer returns an integer value.
func Integer(n int64) Value {
	return Value{Kind: KindInteger, Int: n}
}

// BulkString returns a bulk string holding b.
func BulkString(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{Kind: KindBulkString, Bulk: b}
}

// BulkStringFromString returns a bulk string holding the bytes of s.
func BulkStringFromString(s string) Value {
	return Value{Kind: KindBulkString, Bulk: []byte(s)}
}

// NullBulkString returns the null bulk string marker.
func NullBulkString() Value {
	return Value{Kind: KindNull}
}

// Array returns an array of the given elements.
func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{Kind: KindArray, Elems: elems}
}

// Command builds the array-of-bulk-strings form clients send.
func Command(args ...string) Value {
	elems := make([]Value, len(args))
	for i, a := range args {
		elems[i] = BulkStringFromString(a)
	}
	return Array(elems...)
}

// IsNull reports whether v is the null bulk string.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// Text returns the textual payload of a simple string, error or bulk string.
func (v Value) Text() (string, bool) {
	switch v.Kind {
	case KindSimpleString, KindError:
		return v.Str, true
	case KindBulkString:
		return string(v.Bulk), true
	default:
		return "", false
	}
}

// Equal reports whether v and o hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindSimpleString, KindError:
		return v.Str == o.Str
	case KindInteger:
		return v.Int == o.Int
	case KindBulkString:
		return bytes.Equal(v.Bulk, o.Bulk)
	case KindNull:
		return true
	case KindArray:
		if len(v.Elems) != len(o.Elems) {
			return false
		}
		for i := range v.Elems {
			if !v.Elems[i].Equal(o.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders v for logs and test failures.
func (v Value) String() string {
	var sb strings.Builder
	v.describe(&sb)
	return sb.String()
}

func (v Value) describe(sb *strings.Builder) {
	switch v.Kind {
	case KindSimpleString:
		sb.WriteString("+" + v.Str)
	case KindError:
		sb.WriteString("-" + v.Str)
	case KindInteger:
		sb.WriteString(":" + strconv.FormatInt(v.Int, 10))
	case KindBulkString:
		sb.WriteString(strconv.Quote(string(v.Bulk)))
	case KindNull:
		sb.WriteString("(nil)")
	case KindArray:
		sb.WriteByte('[')
		for i, e := range v.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.describe(sb)
		}
		sb.WriteByte(']')
	default:
		sb.WriteString("<invalid>")
	}
}
