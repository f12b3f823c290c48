package scan

import (
	"errors"
	"fmt"
)

// ErrShortRead reports a record whose length does not match the planned
// record size. Decoding is all-or-nothing: a mis-sized record yields no
// values at all rather than a truncated row.
var ErrShortRead = errors.New("record length does not match layout size")

// Value is one decoded channel reading. Raw is the field's integer before
// calibration and survives values too large for exact float64 representation
// (a nanosecond timestamp in particular); Value is (Raw+offset)*scale.
// For a channel named "timestamp" the caller interprets Raw as nanoseconds
// since the epoch; the decoder applies the same arithmetic as any other
// channel.
type Value struct {
	Name  string
	Raw   int64
	Value float64
}

// Decode interprets one fixed-size record against the layout and returns the
// channel values in layout order. record must be exactly layout.Size() bytes;
// anything else fails with ErrShortRead. Alignment gap bytes are never read.
func Decode(layout *Layout, record []byte) ([]Value, error) {
	if len(record) != layout.Size() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrShortRead, len(record), layout.Size())
	}

	values := make([]Value, 0, len(layout.Fields))
	for _, f := range layout.Fields {
		if f.Channel.Format.Bytes == 0 {
			values = append(values, Value{Name: f.Channel.Name})
			continue
		}
		raw, fraw := readField(f.Channel.Format, record[f.Start:f.End])
		values = append(values, Value{
			Name:  f.Channel.Name,
			Raw:   raw,
			Value: (fraw + f.Channel.Offset) * f.Channel.Scale,
		})
	}
	return values, nil
}

// readField decodes one fixed-width integer field, sign-extending when the
// format is signed. The float return preserves the magnitude of unsigned
// 64-bit fields that overflow int64.
func readField(f Format, b []byte) (int64, float64) {
	var u uint64
	switch f.Bytes {
	case 1:
		u = uint64(b[0])
	case 2:
		u = uint64(f.Order.Uint16(b))
	case 4:
		u = uint64(f.Order.Uint32(b))
	case 8:
		u = f.Order.Uint64(b)
	}
	if !f.Signed {
		return int64(u), float64(u)
	}
	shift := 64 - uint(f.Bytes)*8
	v := int64(u<<shift) >> shift
	return v, float64(v)
}
