package scan

import (
	"fmt"
	"strconv"
	"strings"
)

// RawChannel carries the unparsed per-channel attribute strings exactly as a
// descriptor source (sysfs, IIOD XML, replay manifest) delivers them.
// Offset and Scale may be empty when the device does not expose them.
type RawChannel struct {
	Name      string
	Direction string
	Enabled   string
	Index     string
	Type      string
	Offset    string
	Scale     string
}

// Channel holds one channel's resolved decode parameters. Channels are
// immutable after resolution; the planner and decoder only read them.
type Channel struct {
	Name      string
	Direction string
	Enabled   bool
	Index     int
	Format    Format
	Offset    float64
	Scale     float64
}

// Resolve converts a raw attribute bundle into a Channel. A missing offset
// defaults to 0 and a missing scale to 1, so channels without calibration
// attributes pass raw readings through unchanged. An index that does not
// parse as an integer is an error: such a channel has no defined position in
// the record and must be excluded from the layout by the caller.
func Resolve(raw RawChannel) (Channel, error) {
	ch := Channel{
		Name:      raw.Name,
		Direction: raw.Direction,
		Format:    ParseFormat(strings.TrimSpace(raw.Type)),
		Offset:    0,
		Scale:     1,
	}

	index, err := strconv.Atoi(strings.TrimSpace(raw.Index))
	if err != nil {
		return Channel{}, fmt.Errorf("channel %s: unusable scan index %q: %w", raw.Name, raw.Index, err)
	}
	ch.Index = index

	ch.Enabled = strings.TrimSpace(raw.Enabled) == "1"

	if v := strings.TrimSpace(raw.Offset); v != "" {
		offset, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Channel{}, fmt.Errorf("channel %s: bad offset %q: %w", raw.Name, raw.Offset, err)
		}
		ch.Offset = offset
	}
	if v := strings.TrimSpace(raw.Scale); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Channel{}, fmt.Errorf("channel %s: bad scale %q: %w", raw.Name, raw.Scale, err)
		}
		ch.Scale = scale
	}

	return ch, nil
}

// ResolveEnabled resolves a full raw descriptor set and returns the enabled
// channels, ready for layout planning. Channels that fail to resolve are
// collected in skipped rather than failing the whole set; the caller decides
// whether to log or abort.
func ResolveEnabled(raws []RawChannel) (channels []Channel, skipped []error) {
	for _, raw := range raws {
		ch, err := Resolve(raw)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		if !ch.Enabled {
			continue
		}
		channels = append(channels, ch)
	}
	return channels, skipped
}
