package stats

import (
	"math"
	"strings"
	"testing"

	"github.com/rjboer/iioview/internal/telemetry"
	"github.com/rjboer/iioview/scan"
)

func row(x float64) telemetry.Row {
	return telemetry.Row{Values: []scan.Value{
		{Name: "accel_x", Value: x},
		{Name: "timestamp", Raw: 1_700_000_000_000_000_000, Value: 1.7e18},
	}}
}

func TestCollectorSummaries(t *testing.T) {
	c := NewCollector(0)
	for _, x := range []float64{1, 2, 3, 4} {
		c.Report(row(x))
	}

	summaries := c.Summaries()
	if len(summaries) != 1 {
		t.Fatalf("timestamp must be excluded, got %d series", len(summaries))
	}
	s := summaries[0]
	if s.Name != "accel_x" || s.Count != 4 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Min != 1 || s.Max != 4 {
		t.Errorf("min/max = %v/%v", s.Min, s.Max)
	}
	if math.Abs(s.Mean-2.5) > 1e-9 {
		t.Errorf("mean = %v, want 2.5", s.Mean)
	}
	if math.Abs(s.StdDev-math.Sqrt(5.0/3.0)) > 1e-9 {
		t.Errorf("stddev = %v", s.StdDev)
	}
}

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(2)
	for _, x := range []float64{10, 20, 30} {
		c.Report(row(x))
	}
	s := c.Summaries()[0]
	if s.Count != 2 || s.Min != 20 {
		t.Fatalf("window not applied: %+v", s)
	}
}

func TestCollectorString(t *testing.T) {
	c := NewCollector(0)
	if got := c.String(); got != "no samples collected" {
		t.Fatalf("empty collector string: %q", got)
	}
	c.Report(row(1))
	c.Report(row(2))
	if out := c.String(); !strings.Contains(out, "accel_x") {
		t.Fatalf("summary table missing channel: %q", out)
	}
}
