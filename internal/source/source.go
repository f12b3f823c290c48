// Package source provides the descriptor and byte-stream backends the viewer
// can attach to: local sysfs, a remote board over SSH, an IIOD server, or a
// capture replay. All backends deliver the same two contracts so the decode
// path never knows where its data comes from.
package source

import (
	"context"

	"github.com/rjboer/iioview/scan"
)

// Descriptors enumerates a device's scan-element channels as raw attribute
// strings. Implementations read the descriptor set once at startup; the
// viewer never re-reads it mid-stream.
type Descriptors interface {
	Channels(ctx context.Context) ([]scan.RawChannel, error)
}

// ChunkSource delivers fixed-size capture records. Next blocks until exactly
// len(buf) bytes are available and fills buf, returns io.EOF when the stream
// ends cleanly, and returns a non-nil error for a short or failed read.
// Implementations need not be safe for concurrent Next calls; the viewer
// pulls from a single goroutine.
type ChunkSource interface {
	Next(ctx context.Context, buf []byte) error
	Close() error
}
