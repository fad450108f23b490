package reader

import (
	"math"
	"sort"
	"time"

	"github.com/hydroponia/telemetry/internal/model"
)

// The aggregation engine: pure functions over store query results. Nothing
// here touches I/O, which keeps the branching logic directly testable.

// SensorStats summarizes one sensor channel within a group.
type SensorStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}

// NodeStatistics is the per-node rollup over a time window.
type NodeStatistics struct {
	NodeID       string                 `json:"node_id"`
	Count        int                    `json:"count"`
	Sensors      map[string]SensorStats `json:"sensors"`
	FirstReading time.Time              `json:"first_reading"`
	LastReading  time.Time              `json:"last_reading"`
}

// Statistics groups readings by node and computes count, per-sensor
// min/max/mean and the window bounds. A reading lacking a sensor key is
// excluded from that sensor's numbers, not counted as zero. Nodes without
// readings simply do not appear.
func Statistics(readings []model.SensorReading) []NodeStatistics {
	type acc struct {
		count       int
		first, last time.Time
		sums        map[string]float64
		mins        map[string]float64
		maxs        map[string]float64
		counts      map[string]int
	}
	groups := map[string]*acc{}

	for _, r := range readings {
		g := groups[r.NodeID]
		if g == nil {
			g = &acc{
				first:  r.ServerTimestamp,
				last:   r.ServerTimestamp,
				sums:   map[string]float64{},
				mins:   map[string]float64{},
				maxs:   map[string]float64{},
				counts: map[string]int{},
			}
			groups[r.NodeID] = g
		}
		g.count++
		if r.ServerTimestamp.Before(g.first) {
			g.first = r.ServerTimestamp
		}
		if r.ServerTimestamp.After(g.last) {
			g.last = r.ServerTimestamp
		}
		for _, name := range model.SensorNames {
			v, ok := r.Sensors[name]
			if !ok {
				continue
			}
			if g.counts[name] == 0 || v < g.mins[name] {
				g.mins[name] = v
			}
			if g.counts[name] == 0 || v > g.maxs[name] {
				g.maxs[name] = v
			}
			g.sums[name] += v
			g.counts[name]++
		}
	}

	out := make([]NodeStatistics, 0, len(groups))
	for nodeID, g := range groups {
		st := NodeStatistics{
			NodeID:       nodeID,
			Count:        g.count,
			Sensors:      map[string]SensorStats{},
			FirstReading: g.first,
			LastReading:  g.last,
		}
		for _, name := range model.SensorNames {
			n := g.counts[name]
			if n == 0 {
				continue
			}
			st.Sensors[name] = SensorStats{
				Count: n,
				Min:   g.mins[name],
				Max:   g.maxs[name],
				Avg:   g.sums[name] / float64(n),
			}
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// Alert is a reading that violated at least one threshold, annotated with
// one tag per violated sensor.
type Alert struct {
	model.SensorReading
	AlertTypes []string `json:"alert_types"`
}

// DetectAlerts scans readings against the static thresholds. Strictly below
// min tags "<sensor>_low", strictly above max tags "<sensor>_high"; a
// missing sensor key is not checked. Results come back newest first by the
// record's own timestamp, capped at limit.
func DetectAlerts(readings []model.SensorReading, thresholds map[string]model.Threshold, limit int) []Alert {
	out := make([]Alert, 0)
	for _, r := range readings {
		var tags []string
		for _, name := range model.SensorNames {
			th, ok := thresholds[name]
			if !ok {
				continue
			}
			v, ok := r.Sensors[name]
			if !ok {
				continue
			}
			switch {
			case v < th.Min:
				tags = append(tags, name+"_low")
			case v > th.Max:
				tags = append(tags, name+"_high")
			}
		}
		if len(tags) > 0 {
			out = append(out, Alert{SensorReading: r, AlertTypes: tags})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DeviceTimestamp > out[j].DeviceTimestamp
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// NarrowSensor returns copies whose sensors map keeps only sensorType.
// Readings that never carried that key keep their full map, mirroring the
// historical filter behavior.
func NarrowSensor(readings []model.SensorReading, sensorType string) []model.SensorReading {
	if sensorType == "" {
		return readings
	}
	out := make([]model.SensorReading, len(readings))
	for i, r := range readings {
		if v, ok := r.Sensors[sensorType]; ok {
			r.Sensors = map[string]float64{sensorType: v}
		}
		out[i] = r
	}
	return out
}

// SummaryStats is the dashboard rollup for one sensor across all nodes.
type SummaryStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	StdDev float64 `json:"std_dev"`
}

// Summary computes per-sensor min/max/mean and population standard
// deviation (divide by N) across the whole window. The mean is computed
// once and reused for the deviation pass. Sensors with no samples are
// omitted.
func Summary(readings []model.SensorReading) map[string]SummaryStats {
	out := map[string]SummaryStats{}
	for _, name := range model.SensorNames {
		var values []float64
		for _, r := range readings {
			if v, ok := r.Sensors[name]; ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		minV, maxV, sum := values[0], values[0], 0.0
		for _, v := range values {
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
			sum += v
		}
		mean := sum / float64(len(values))
		var sq float64
		for _, v := range values {
			d := v - mean
			sq += d * d
		}
		out[name] = SummaryStats{
			Min:    minV,
			Max:    maxV,
			Avg:    mean,
			StdDev: math.Sqrt(sq / float64(len(values))),
		}
	}
	return out
}
