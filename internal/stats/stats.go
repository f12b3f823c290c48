// Package stats accumulates rolling per-channel statistics over decoded rows
// so the viewer can print a capture summary on shutdown.
package stats

import (
	"fmt"
	"strings"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rjboer/iioview/internal/telemetry"
)

// ChannelSummary is the aggregate of one channel's readings.
type ChannelSummary struct {
	Name   string
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Collector implements telemetry.Reporter and keeps a bounded window of
// readings per channel. The timestamp channel is excluded: wall-clock
// nanoseconds make no sense as a physical statistic.
type Collector struct {
	mu     sync.Mutex
	window int
	series map[string][]float64
	order  []string
}

// NewCollector keeps at most window readings per channel; 0 means unbounded.
func NewCollector(window int) *Collector {
	return &Collector{
		window: window,
		series: make(map[string][]float64),
	}
}

func (c *Collector) Report(row telemetry.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range row.Values {
		if v.Name == "timestamp" {
			continue
		}
		s, ok := c.series[v.Name]
		if !ok {
			c.order = append(c.order, v.Name)
		}
		s = append(s, v.Value)
		if c.window > 0 && len(s) > c.window {
			s = s[len(s)-c.window:]
		}
		c.series[v.Name] = s
	}
}

// Summaries returns per-channel aggregates in first-seen order.
func (c *Collector) Summaries() []ChannelSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ChannelSummary, 0, len(c.order))
	for _, name := range c.order {
		s := c.series[name]
		if len(s) == 0 {
			continue
		}
		mean, std := stat.MeanStdDev(s, nil)
		out = append(out, ChannelSummary{
			Name:   name,
			Count:  len(s),
			Min:    floats.Min(s),
			Max:    floats.Max(s),
			Mean:   mean,
			StdDev: std,
		})
	}
	return out
}

// String renders the summaries as an aligned table.
func (c *Collector) String() string {
	summaries := c.Summaries()
	if len(summaries) == 0 {
		return "no samples collected"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %8s %14s %14s %14s %14s\n", "channel", "count", "min", "max", "mean", "stddev")
	for _, s := range summaries {
		fmt.Fprintf(&b, "%-12s %8d %14.6f %14.6f %14.6f %14.6f\n", s.Name, s.Count, s.Min, s.Max, s.Mean, s.StdDev)
	}
	return strings.TrimRight(b.String(), "\n")
}
