package source

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/rjboer/iioview/scan"
)

// Replay serves a fixed descriptor set and a canned byte stream. It stands in
// for real hardware in tests and lets a capture taken on a board be replayed
// on a workstation.
type Replay struct {
	Raw    []scan.RawChannel
	reader io.Reader
}

// NewReplay wraps a descriptor set and raw capture bytes.
func NewReplay(raws []scan.RawChannel, capture []byte) *Replay {
	return &Replay{Raw: raws, reader: bytes.NewReader(capture)}
}

// NewReplayReader is NewReplay with a streaming reader, e.g. an open capture
// file.
func NewReplayReader(raws []scan.RawChannel, r io.Reader) *Replay {
	return &Replay{Raw: raws, reader: r}
}

func (r *Replay) Channels(_ context.Context) ([]scan.RawChannel, error) {
	if len(r.Raw) == 0 {
		return nil, fmt.Errorf("replay source has no channel descriptors")
	}
	out := make([]scan.RawChannel, len(r.Raw))
	copy(out, r.Raw)
	return out, nil
}

func (r *Replay) Next(ctx context.Context, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := io.ReadFull(r.reader, buf)
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("read replay chunk: %w", err)
	}
	return nil
}

func (r *Replay) Close() error { return nil }
