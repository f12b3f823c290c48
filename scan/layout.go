package scan

import "sort"

// Alignment is the record alignment unit in bytes. The kernel pads each
// record so the next one starts on this boundary, and a channel named
// "timestamp" always starts on it regardless of preceding field packing.
const Alignment = 8

// timestampChannel is the channel name carrying nanoseconds since the epoch.
const timestampChannel = "timestamp"

// Field is one channel's placement inside a record. Start and End are byte
// offsets; zero-width channels have Start == End.
type Field struct {
	Channel Channel
	Start   int
	End     int
}

// Layout is the computed byte layout of one capture record. It is read-only
// after Plan returns and may be shared across decode calls without locking.
type Layout struct {
	Fields []Field
	size   int

	// Collisions lists index values claimed by more than one channel.
	// Colliding channels keep their descriptor-set order; the caller
	// should log these since they usually indicate a misconfigured device.
	Collisions []int
}

// Size returns the record size in bytes, already rounded up to Alignment.
// A layout planned from zero channels has size 0.
func (l *Layout) Size() int { return l.size }

// align rounds n up to the next multiple of unit.
func align(n, unit int) int {
	if r := n % unit; r != 0 {
		return n + unit - r
	}
	return n
}

// Plan computes the record layout for a channel set. Channels are placed
// byte-contiguous in ascending scan index order, with an alignment gap
// inserted before the timestamp channel and final padding up to Alignment.
// The sort is stable: channels sharing an index keep their input order and
// the duplicate index is reported in Collisions.
func Plan(channels []Channel) *Layout {
	ordered := make([]Channel, len(channels))
	copy(ordered, channels)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	layout := &Layout{Fields: make([]Field, 0, len(ordered))}
	cursor := 0
	for i, ch := range ordered {
		if i > 0 && ch.Index == ordered[i-1].Index {
			layout.Collisions = append(layout.Collisions, ch.Index)
		}
		if ch.Name == timestampChannel {
			cursor = align(cursor, Alignment)
		}
		layout.Fields = append(layout.Fields, Field{
			Channel: ch,
			Start:   cursor,
			End:     cursor + ch.Format.Bytes,
		})
		cursor += ch.Format.Bytes
	}
	layout.size = align(cursor, Alignment)
	return layout
}
