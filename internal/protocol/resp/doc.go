// Package resp implements the RESP2 wire codec used by respkv.
//
// The codec converts between a byte stream and the recursive Value type:
//
//   - value.go: Value, its six variants and constructors
//   - reader.go: Reader, decoding one framed value per call
//   - writer.go: Writer, encoding and flushing one value per call
//
// Framing:
//
//	+<text>\r\n              simple string
//	-<text>\r\n              simple error
//	:<decimal>\r\n           integer
//	$<len>\r\n<bytes>\r\n    bulk string ($-1\r\n is the null bulk string)
//	*<count>\r\n<values...>  array
//
// Arrays nest arbitrarily; Reader bounds the depth (DefaultMaxDepth) so that
// hostile input cannot grow the call stack without limit.
//
// The package has no knowledge of commands.
package resp
