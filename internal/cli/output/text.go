package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/respkv-go/internal/protocol/resp"
)

// TextFormatter renders replies the way redis-cli does on a terminal.
// Raw prints strings unquoted and without type annotations, which suits
// multi-line bulk replies such as INFO.
type TextFormatter struct {
	Raw bool
}

// Format writes v followed by a newline.
func (f *TextFormatter) Format(w io.Writer, v resp.Value) error {
	var b strings.Builder
	if f.Raw {
		formatRaw(&b, v)
	} else {
		formatTTY(&b, v, "")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// formatTTY writes v; prefix indents every line after the first.
func formatTTY(b *strings.Builder, v resp.Value, prefix string) {
	switch v.Kind {
	case resp.KindSimpleString:
		b.WriteString(v.Str)
	case resp.KindError:
		b.WriteString("(error) ")
		b.WriteString(v.Str)
	case resp.KindInteger:
		b.WriteString("(integer) ")
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case resp.KindBulkString:
		b.WriteString(Quote(v.Bulk))
	case resp.KindNull:
		b.WriteString("(nil)")
	case resp.KindArray:
		if len(v.Elems) == 0 {
			b.WriteString("(empty array)\n")
			return
		}
		width := len(strconv.Itoa(len(v.Elems)))
		inner := prefix + strings.Repeat(" ", width+2)
		for i, e := range v.Elems {
			if i > 0 {
				b.WriteString(prefix)
			}
			fmt.Fprintf(b, "%*d) ", width, i+1)
			formatTTY(b, e, inner)
		}
		return
	}
	b.WriteByte('\n')
}

func formatRaw(b *strings.Builder, v resp.Value) {
	switch v.Kind {
	case resp.KindSimpleString, resp.KindError:
		b.WriteString(v.Str)
	case resp.KindInteger:
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case resp.KindBulkString:
		b.Write(v.Bulk)
	case resp.KindArray:
		for _, e := range v.Elems {
			formatRaw(b, e)
		}
		return
	}
	b.WriteByte('\n')
}

// Quote returns s in double quotes with backslash escapes for quotes,
// backslashes, control characters and non-ASCII bytes.
func Quote(s []byte) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, c := range s {
		switch c {
		case '\\', '"':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\a':
			b.WriteString(`\a`)
		case '\b':
			b.WriteString(`\b`)
		default:
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				fmt.Fprintf(&b, `\x%02x`, c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
