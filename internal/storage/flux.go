package storage

import (
	"fmt"
	"strings"
	"time"
)

// Flux builders for the two read paths. Both pivot fields back into rows so
// one record carries the full sensors map again.

func fluxLatestPerNode(bucket, nodeID string, horizon time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q)\n", bucket)
	fmt.Fprintf(&b, "  |> range(start: -%ds)\n", int64(horizon.Seconds()))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %q)\n", MeasurementReading)
	if nodeID != "" {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r.node_id == %q)\n", nodeID)
	}
	b.WriteString("  |> pivot(rowKey: [\"_time\"], columnKey: [\"_field\"], valueColumn: \"_value\")\n")
	b.WriteString("  |> group(columns: [\"node_id\"])\n")
	b.WriteString("  |> sort(columns: [\"_time\"], desc: true)\n")
	b.WriteString("  |> limit(n: 1)\n")
	return b.String()
}

func fluxRangeSince(bucket, measurement, nodeID string, since time.Time, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q)\n", bucket)
	fmt.Fprintf(&b, "  |> range(start: time(v: %q))\n", since.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %q)\n", measurement)
	if nodeID != "" {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r.node_id == %q)\n", nodeID)
	}
	b.WriteString("  |> pivot(rowKey: [\"_time\"], columnKey: [\"_field\"], valueColumn: \"_value\")\n")
	b.WriteString("  |> group()\n")
	b.WriteString("  |> sort(columns: [\"_time\"], desc: true)\n")
	if limit > 0 {
		fmt.Fprintf(&b, "  |> limit(n: %d)\n", limit)
	}
	return b.String()
}
