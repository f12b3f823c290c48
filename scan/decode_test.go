package scan

import (
	"errors"
	"testing"
)

func TestDecodeSignedLittleEndian(t *testing.T) {
	layout := Plan([]Channel{{Name: "accel_x", Index: 0, Format: le16(), Scale: 1}})
	// -1 as signed 16-bit LE, then record padding up to 8 bytes.
	record := []byte{0xFF, 0xFF, 0, 0, 0, 0, 0, 0}

	values, err := Decode(layout, record)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(values) != 1 {
		t.Fatalf("expected 1 value, got %d", len(values))
	}
	if values[0].Raw != -1 || values[0].Value != -1.0 {
		t.Fatalf("expected -1, got raw=%d value=%v", values[0].Raw, values[0].Value)
	}
}

func TestDecodeAppliesOffsetAndScale(t *testing.T) {
	layout := Plan([]Channel{{Name: "temp", Index: 0, Format: le16(), Offset: 10, Scale: 2}})
	record := []byte{5, 0, 0, 0, 0, 0, 0, 0}

	values, err := Decode(layout, record)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if values[0].Value != 30.0 {
		t.Fatalf("(5+10)*2 should be 30, got %v", values[0].Value)
	}
	if values[0].Raw != 5 {
		t.Fatalf("raw should stay uncalibrated, got %d", values[0].Raw)
	}
}

func TestDecodeBigEndianUnsigned(t *testing.T) {
	layout := Plan([]Channel{{Name: "adc0", Index: 0, Format: ParseFormat("be:u16/16>>0"), Scale: 1}})
	record := []byte{0x01, 0x02, 0, 0, 0, 0, 0, 0}

	values, err := Decode(layout, record)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if values[0].Raw != 0x0102 {
		t.Fatalf("expected 0x0102, got %#x", values[0].Raw)
	}
}

func TestDecodeTimestampArithmetic(t *testing.T) {
	layout := Plan([]Channel{
		{Name: "accel_x", Index: 0, Format: le16(), Scale: 1},
		{Name: "timestamp", Index: 1, Format: le64(), Scale: 1},
	})
	const ns = int64(1_700_000_123_456_789_001)
	record := make([]byte, layout.Size())
	record[0] = 0x2A
	for i := 0; i < 8; i++ {
		record[8+i] = byte(uint64(ns) >> (8 * i))
	}

	values, err := Decode(layout, record)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if values[1].Name != "timestamp" {
		t.Fatalf("unexpected order: %v", values)
	}
	// Raw must preserve every nanosecond; float64 cannot at this magnitude.
	if values[1].Raw != ns {
		t.Fatalf("timestamp raw %d, want %d", values[1].Raw, ns)
	}
	if values[0].Raw != 0x2A {
		t.Fatalf("field before gap misread: %d", values[0].Raw)
	}
}

func TestDecodeZeroWidthChannel(t *testing.T) {
	layout := Plan([]Channel{
		{Name: "ghost", Index: 0, Format: ParseFormat("bogus")},
		{Name: "accel_x", Index: 1, Format: le16(), Scale: 1},
	})
	record := []byte{0xFF, 0xFF, 0, 0, 0, 0, 0, 0}

	values, err := Decode(layout, record)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if values[0].Name != "ghost" || values[0].Value != 0 || values[0].Raw != 0 {
		t.Fatalf("zero-width channel should decode to 0: %+v", values[0])
	}
	if values[1].Value != -1.0 {
		t.Fatalf("zero-width channel consumed input bytes: %+v", values[1])
	}
}

func TestDecodeShortRead(t *testing.T) {
	layout := Plan([]Channel{{Name: "accel_x", Index: 0, Format: le16(), Scale: 1}})

	for _, n := range []int{0, 2, 7, 9, 16} {
		values, err := Decode(layout, make([]byte, n))
		if !errors.Is(err, ErrShortRead) {
			t.Errorf("len=%d: expected ErrShortRead, got %v", n, err)
		}
		if values != nil {
			t.Errorf("len=%d: mis-sized record must yield no values", n)
		}
	}
}

func TestDecodeEmptyLayout(t *testing.T) {
	layout := Plan(nil)
	for i := 0; i < 3; i++ {
		values, err := Decode(layout, nil)
		if err != nil {
			t.Fatalf("decode of empty layout failed: %v", err)
		}
		if len(values) != 0 {
			t.Fatalf("expected empty output, got %v", values)
		}
	}
}
