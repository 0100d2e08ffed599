package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/utkarsh5026/multirw/stress"
)

// Output formats accepted by Write.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatNone  = "none"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(s); f {
	case FormatTable, FormatJSON, FormatNone:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or none)", s)
	}
}

// JSONReport wraps a run report with human-readable fields for JSON output.
type JSONReport struct {
	*stress.Report
	ElapsedStr    string  `json:"elapsed_str"`
	TotalBytes    uint64  `json:"total_bytes"`
	TotalBytesStr string  `json:"total_bytes_str"`
	Throughput    float64 `json:"throughput_bps"`
	ThroughputStr string  `json:"throughput_str"`
	IOPS          float64 `json:"iops"`
}

// SerializeToJSON converts a report to indented JSON.
func SerializeToJSON(r *stress.Report) ([]byte, error) {
	total := r.Totals()
	out := JSONReport{
		Report:        r,
		ElapsedStr:    FormatLatency(r.Elapsed),
		TotalBytes:    total.Bytes(),
		TotalBytesStr: humanize.IBytes(total.Bytes()),
		Throughput:    r.Throughput(),
		ThroughputStr: humanize.IBytes(uint64(r.Throughput())) + "/s",
		IOPS:          r.IOPS(),
	}
	return json.MarshalIndent(out, "", "  ")
}

// Write renders r to w in the given format.
func Write(w io.Writer, r *stress.Report, format string) error {
	switch format {
	case FormatNone:
		return nil
	case FormatJSON:
		data, err := SerializeToJSON(r)
		if err != nil {
			return fmt.Errorf("failed to serialize to JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		return RenderTable(w, r)
	}
}

// RenderTable prints the per-worker summary table followed by the totals.
func RenderTable(w io.Writer, r *stress.Report) error {
	_, _ = fmt.Fprintln(w)
	_, _ = Bold.Fprintln(w, "═══════════════════════════════════════════════════════════")
	_, _ = Bold.Fprintf(w, "RUN SUMMARY (%s, mmap: %t)\n", r.Mode, r.Mapped)
	_, _ = Bold.Fprintln(w, "═══════════════════════════════════════════════════════════")

	table := tablewriter.NewWriter(w)
	table.Header("Thread", "Bursts", "Reads", "Writes", "Read", "Written", "Tail", "Time")

	for _, ws := range r.Workers {
		if err := table.Append(
			fmt.Sprintf("#%d", ws.ID),
			humanize.Comma(int64(ws.Bursts)),
			humanize.Comma(int64(ws.Reads)),
			humanize.Comma(int64(ws.Writes)),
			humanize.IBytes(ws.BytesRead),
			humanize.IBytes(ws.BytesWritten),
			formatTail(ws.Tail),
			FormatLatency(ws.Elapsed),
		); err != nil {
			return err
		}
	}

	total := r.Totals()
	if err := table.Append(
		"total",
		humanize.Comma(int64(total.Bursts)),
		humanize.Comma(int64(total.Reads)),
		humanize.Comma(int64(total.Writes)),
		humanize.IBytes(total.BytesRead),
		humanize.IBytes(total.BytesWritten),
		"",
		FormatLatency(r.Elapsed),
	); err != nil {
		return err
	}

	if err := table.Render(); err != nil {
		return err
	}

	_, _ = Green.Fprintf(w, "%s transfers, %s moved, %s/s, %s IOPS\n",
		humanize.Comma(int64(total.Transfers())),
		humanize.IBytes(total.Bytes()),
		humanize.IBytes(uint64(r.Throughput())),
		humanize.Comma(int64(r.IOPS())))
	return nil
}

func formatTail(t *stress.Transfer) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%s %dB @%d", t.Mode, t.Size, t.Offset)
}

// FormatLatency formats a duration in the most appropriate unit
func FormatLatency(d time.Duration) string {
	if d == 0 {
		return "0"
	}

	ns := d.Nanoseconds()
	switch {
	case ns < 1000:
		return fmt.Sprintf("%dns", ns)
	case ns < 1_000_000:
		return fmt.Sprintf("%.1fµs", float64(ns)/1000.0)
	case ns < 1_000_000_000:
		return fmt.Sprintf("%.2fms", float64(ns)/1_000_000.0)
	default:
		return fmt.Sprintf("%.2fs", float64(ns)/1_000_000_000.0)
	}
}
