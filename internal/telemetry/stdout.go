package telemetry

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// StdoutReporter renders rows as a live, carriage-return refreshed line, the
// way the classic fifo viewers do: a header with the channel names once, then
// one overwritten row per record with the achieved sample frequency first.
// A channel named "timestamp" is formatted as wall-clock time from its raw
// nanoseconds instead of a scaled reading.
type StdoutReporter struct {
	Out       io.Writer
	headerOut bool
}

// NewStdoutReporter builds a reporter writing to out.
func NewStdoutReporter(out io.Writer) *StdoutReporter {
	return &StdoutReporter{Out: out}
}

func (r *StdoutReporter) Report(row Row) {
	if !r.headerOut {
		var b strings.Builder
		b.WriteString("sample_freq\t")
		for _, v := range row.Values {
			fmt.Fprintf(&b, "%-10s\t", v.Name)
		}
		fmt.Fprintln(r.Out, b.String())
		r.headerOut = true
	}

	var b strings.Builder
	b.WriteByte('\r')
	fmt.Fprintf(&b, "%+f\t", row.RateHz)
	for _, v := range row.Values {
		if v.Name == "timestamp" {
			fmt.Fprintf(&b, "%s\t", time.Unix(0, v.Raw).Format("2006-01-02 15:04:05.000000"))
			continue
		}
		fmt.Fprintf(&b, "%+f\t", v.Value)
	}
	fmt.Fprint(r.Out, b.String())
}
