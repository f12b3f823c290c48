// Package scan decodes the packed sample records produced by Linux IIO
// buffered capture. Each enabled channel contributes one fixed-width field
// per record; the field layout is described by the per-channel scan-element
// attributes (index, type) exposed in sysfs or in the IIOD XML context.
package scan

import (
	"encoding/binary"
	"strings"
)

// Format describes how one scan-element field is stored in a record.
// A zero Bytes value marks a channel whose type string was not recognized;
// such channels occupy no bytes and decode to a constant zero.
type Format struct {
	Order  binary.ByteOrder
	Signed bool
	Bytes  int
}

// widthTokens maps the sign/width token of a scan-element type string
// (the part between ':' and '/') to its storage properties.
var widthTokens = map[string]struct {
	signed bool
	bytes  int
}{
	"s8":  {true, 1},
	"u8":  {false, 1},
	"s16": {true, 2},
	"u16": {false, 2},
	"s32": {true, 4},
	"u32": {false, 4},
	"s64": {true, 8},
	"u64": {false, 8},
}

// ParseFormat parses an IIO scan-element type string such as "le:s16/16>>0"
// or "be:u32/32". The endianness prefix defaults to little-endian unless it
// is exactly "be". Unknown or malformed sign/width tokens yield a zero-width
// Format rather than an error; unrecognized channel types are deliberately
// treated as non-contributing so a single odd channel cannot break capture.
func ParseFormat(s string) Format {
	f := Format{Order: binary.LittleEndian}
	if strings.HasPrefix(s, "be") {
		f.Order = binary.BigEndian
	}

	slash := strings.Index(s, "/")
	if slash < 0 {
		return f
	}
	start := strings.Index(s, ":") + 1
	if start > slash {
		return f
	}

	w, ok := widthTokens[s[start:slash]]
	if !ok {
		return f
	}
	f.Signed = w.signed
	f.Bytes = w.bytes
	return f
}
