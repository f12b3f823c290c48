// Package app wires a descriptor source, a chunk source and the reporters
// into the viewer's capture loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rjboer/iioview/internal/logging"
	"github.com/rjboer/iioview/internal/source"
	"github.com/rjboer/iioview/internal/telemetry"
	"github.com/rjboer/iioview/scan"
)

// Config captures viewer level configuration.
type Config struct {
	// ContinueOnShortRead keeps the loop running after a truncated chunk
	// instead of stopping. The partial record is dropped either way; no
	// partial row is ever reported.
	ContinueOnShortRead bool
}

// Viewer pulls fixed-size records from a chunk source, decodes them against
// the layout planned at startup, and hands each row to the reporters.
// Single-threaded by design: one record in flight, decoded in arrival order.
type Viewer struct {
	descriptors source.Descriptors
	chunks      source.ChunkSource
	reporter    telemetry.Reporter
	metrics     *telemetry.Metrics
	logger      logging.Logger
	cfg         Config

	layout *scan.Layout
}

// NewViewer assembles a viewer. metrics may be nil.
func NewViewer(descriptors source.Descriptors, chunks source.ChunkSource, reporter telemetry.Reporter, metrics *telemetry.Metrics, logger logging.Logger, cfg Config) *Viewer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Viewer{
		descriptors: descriptors,
		chunks:      chunks,
		reporter:    reporter,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// Init reads the descriptor set once and plans the record layout. Channels
// whose attributes do not resolve are logged and excluded; index collisions
// are logged but never dropped.
func (v *Viewer) Init(ctx context.Context) error {
	raws, err := v.descriptors.Channels(ctx)
	if err != nil {
		return fmt.Errorf("read channel descriptors: %w", err)
	}

	channels, skipped := scan.ResolveEnabled(raws)
	for _, skipErr := range skipped {
		v.logger.Warn("channel excluded from layout", logging.Field{Key: "reason", Value: skipErr})
	}

	v.layout = scan.Plan(channels)
	for _, index := range v.layout.Collisions {
		v.logger.Warn("duplicate scan index, keeping descriptor order",
			logging.Field{Key: "index", Value: index})
	}

	v.logger.Info("record layout planned",
		logging.Field{Key: "channels", Value: len(v.layout.Fields)},
		logging.Field{Key: "record_bytes", Value: v.layout.Size()})
	return nil
}

// Layout returns the planned record layout. Valid after Init.
func (v *Viewer) Layout() *scan.Layout {
	return v.layout
}

// Run pulls and decodes records until the context is canceled, the stream
// ends, or a short read occurs with ContinueOnShortRead disabled. The
// achieved arrival rate is measured between consecutive records and attached
// to each row.
func (v *Viewer) Run(ctx context.Context) error {
	if v.layout == nil {
		return fmt.Errorf("viewer not initialized")
	}
	if v.layout.Size() == 0 {
		v.logger.Warn("no channels resolved, nothing to stream")
		return nil
	}

	buf := make([]byte, v.layout.Size())
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := v.chunks.Next(ctx, buf)
		if errors.Is(err, io.EOF) {
			v.logger.Info("capture stream ended")
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if err != nil {
			v.metrics.ObserveShortRead()
			if v.cfg.ContinueOnShortRead {
				v.logger.Warn("dropping truncated record", logging.Field{Key: "error", Value: err})
				continue
			}
			return fmt.Errorf("capture stream: %w", err)
		}

		values, err := scan.Decode(v.layout, buf)
		if err != nil {
			// Cannot happen with a full buffer, but honor the decoder's
			// all-or-nothing contract anyway.
			v.metrics.ObserveShortRead()
			if v.cfg.ContinueOnShortRead {
				continue
			}
			return err
		}

		now := time.Now()
		rate := 0.0
		if dt := now.Sub(last).Seconds(); dt > 0 {
			rate = 1 / dt
		}
		last = now

		if v.reporter != nil {
			v.reporter.Report(telemetry.Row{Time: now, RateHz: rate, Values: values})
		}
	}
}
