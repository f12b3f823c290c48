package scan

import (
	"reflect"
	"testing"
)

func le16() Format { return ParseFormat("le:s16/16>>0") }
func le64() Format { return ParseFormat("le:s64/64>>0") }

func TestPlanTimestampAlignment(t *testing.T) {
	layout := Plan([]Channel{
		{Name: "accel_x", Index: 0, Format: le16(), Scale: 1},
		{Name: "timestamp", Index: 1, Format: le64(), Scale: 1},
	})

	if got := layout.Fields[0]; got.Start != 0 || got.End != 2 {
		t.Errorf("accel_x span [%d,%d), want [0,2)", got.Start, got.End)
	}
	if got := layout.Fields[1]; got.Start != 8 || got.End != 16 {
		t.Errorf("timestamp span [%d,%d), want [8,16)", got.Start, got.End)
	}
	if layout.Size() != 16 {
		t.Errorf("size %d, want 16", layout.Size())
	}
}

func TestPlanSortsByIndex(t *testing.T) {
	layout := Plan([]Channel{
		{Name: "c", Index: 2, Format: le16(), Scale: 1},
		{Name: "a", Index: 0, Format: le16(), Scale: 1},
		{Name: "b", Index: 1, Format: le16(), Scale: 1},
	})
	var names []string
	for _, f := range layout.Fields {
		names = append(names, f.Channel.Name)
	}
	if !reflect.DeepEqual(names, []string{"a", "b", "c"}) {
		t.Fatalf("field order %v", names)
	}
	if layout.Fields[2].Start != 4 || layout.Fields[2].End != 6 {
		t.Fatalf("fields not contiguous: %+v", layout.Fields)
	}
	if layout.Size() != 8 {
		t.Fatalf("size %d, want 8 (padded)", layout.Size())
	}
}

func TestPlanDeterministic(t *testing.T) {
	channels := []Channel{
		{Name: "accel_x", Index: 0, Format: le16(), Scale: 1},
		{Name: "accel_y", Index: 1, Format: le16(), Scale: 1},
		{Name: "timestamp", Index: 2, Format: le64(), Scale: 1},
	}
	a := Plan(channels)
	b := Plan(channels)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two plans of the same channel set differ")
	}
}

func TestPlanSizeLowerBound(t *testing.T) {
	channels := []Channel{
		{Name: "a", Index: 0, Format: le16()},
		{Name: "b", Index: 1, Format: ParseFormat("le:u8/8>>0")},
		{Name: "timestamp", Index: 2, Format: le64()},
	}
	layout := Plan(channels)
	sum := 0
	for _, ch := range channels {
		sum += ch.Format.Bytes
	}
	if layout.Size() < sum {
		t.Fatalf("size %d smaller than channel sum %d", layout.Size(), sum)
	}
	if layout.Size()%Alignment != 0 {
		t.Fatalf("size %d not a multiple of %d", layout.Size(), Alignment)
	}
}

func TestPlanZeroWidthChannel(t *testing.T) {
	layout := Plan([]Channel{
		{Name: "ghost", Index: 0, Format: ParseFormat("unknown")},
		{Name: "accel_x", Index: 1, Format: le16()},
	})
	if f := layout.Fields[0]; f.Start != f.End {
		t.Fatalf("zero-width channel occupies bytes: [%d,%d)", f.Start, f.End)
	}
	if f := layout.Fields[1]; f.Start != 0 || f.End != 2 {
		t.Fatalf("accel_x span [%d,%d), want [0,2)", f.Start, f.End)
	}
}

func TestPlanEmpty(t *testing.T) {
	layout := Plan(nil)
	if layout.Size() != 0 {
		t.Fatalf("empty plan size %d, want 0", layout.Size())
	}
	if len(layout.Fields) != 0 {
		t.Fatalf("empty plan has fields")
	}
}

func TestPlanIndexCollision(t *testing.T) {
	layout := Plan([]Channel{
		{Name: "first", Index: 0, Format: le16()},
		{Name: "second", Index: 0, Format: le16()},
	})
	if len(layout.Fields) != 2 {
		t.Fatal("colliding channels must not be dropped")
	}
	if layout.Fields[0].Channel.Name != "first" {
		t.Fatal("stable order not preserved on collision")
	}
	if len(layout.Collisions) != 1 || layout.Collisions[0] != 0 {
		t.Fatalf("collision not reported: %v", layout.Collisions)
	}
}
