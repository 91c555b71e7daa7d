package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/yndnr/respkv-go/internal/protocol/resp"
)

// Format represents the output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formatter writes one reply.
type Formatter interface {
	Format(w io.Writer, v resp.Value) error
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// NewFormatter creates a formatter for the given format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TextFormatter{}
	}
}

// ToData converts a reply into plain Go values for structured encoders.
func ToData(v resp.Value) any {
	switch v.Kind {
	case resp.KindSimpleString:
		return v.Str
	case resp.KindError:
		return map[string]string{"error": v.Str}
	case resp.KindInteger:
		return v.Int
	case resp.KindBulkString:
		return string(v.Bulk)
	case resp.KindArray:
		items := make([]any, len(v.Elems))
		for i, e := range v.Elems {
			items[i] = ToData(e)
		}
		return items
	default:
		return nil
	}
}
