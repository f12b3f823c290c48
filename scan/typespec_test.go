package scan

import (
	"encoding/binary"
	"testing"
)

func TestParseFormatKnownTypes(t *testing.T) {
	cases := []struct {
		in     string
		order  binary.ByteOrder
		signed bool
		bytes  int
	}{
		{"le:s16/16>>0", binary.LittleEndian, true, 2},
		{"be:s16/16>>0", binary.BigEndian, true, 2},
		{"le:u8/8>>0", binary.LittleEndian, false, 1},
		{"le:s8/8>>0", binary.LittleEndian, true, 1},
		{"be:u16/16>>4", binary.BigEndian, false, 2},
		{"le:s32/32>>0", binary.LittleEndian, true, 4},
		{"le:u32/32>>0", binary.LittleEndian, false, 4},
		{"le:s64/64>>0", binary.LittleEndian, true, 8},
		{"be:u64/64>>0", binary.BigEndian, false, 8},
	}
	for _, c := range cases {
		f := ParseFormat(c.in)
		if f.Order != c.order {
			t.Errorf("%s: wrong byte order", c.in)
		}
		if f.Signed != c.signed {
			t.Errorf("%s: signed=%v", c.in, f.Signed)
		}
		if f.Bytes != c.bytes {
			t.Errorf("%s: bytes=%d want %d", c.in, f.Bytes, c.bytes)
		}
	}
}

func TestParseFormatUnknownYieldsZeroWidth(t *testing.T) {
	for _, in := range []string{"", "garbage", "le:0/8>>0", "le:s24/32>>0", "le:s16", "be:", ":/"} {
		f := ParseFormat(in)
		if f.Bytes != 0 {
			t.Errorf("%q: expected zero width, got %d bytes", in, f.Bytes)
		}
	}
}

func TestParseFormatDefaultsToLittleEndian(t *testing.T) {
	f := ParseFormat("xx:s16/16>>0")
	if f.Order != binary.LittleEndian {
		t.Fatalf("non-be prefix should default to little-endian")
	}
	if f.Bytes != 2 {
		t.Fatalf("width should still parse, got %d", f.Bytes)
	}
}
