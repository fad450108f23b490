package storage

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/hydroponia/telemetry/internal/model"
)

// ReadingPoint normalizes a SensorReading into an Influx point. The point
// time is the server timestamp, so Influx's (series, time) index is exactly
// the (node_id, server_timestamp) lookup the queries need.
func ReadingPoint(r *model.SensorReading) *write.Point {
	tags := map[string]string{"node_id": r.NodeID}

	fields := map[string]interface{}{
		"device_timestamp":  r.DeviceTimestamp,
		"irrigation_active": r.IrrigationActive,
	}
	for name, v := range r.Sensors {
		fields[name] = v
	}
	if r.Status != "" {
		fields["status"] = r.Status
	}

	return influxdb2.NewPoint(MeasurementReading, tags, fields, r.ServerTimestamp)
}

// StatusPoint normalizes a StatusEvent. Action is a tag (low cardinality);
// duration becomes a field only when the node reported one.
func StatusPoint(ev *model.StatusEvent) *write.Point {
	tags := map[string]string{
		"node_id": ev.NodeID,
		"action":  ev.Action,
	}

	fields := map[string]interface{}{
		"irrigation_active": ev.IrrigationActive,
		"count":             int64(1), // guarantees at least one field
	}
	if ev.DeviceTimestamp != 0 {
		fields["device_timestamp"] = ev.DeviceTimestamp
	}
	if ev.Duration != nil {
		fields["duration"] = *ev.Duration
	}

	return influxdb2.NewPoint(MeasurementStatus, tags, fields, ev.ServerTimestamp)
}

// ReadingFromRecord rebuilds a SensorReading from one pivoted Flux row.
func ReadingFromRecord(vals map[string]interface{}) (model.SensorReading, bool) {
	nodeID, _ := vals["node_id"].(string)
	ts, okTime := vals["_time"].(time.Time)
	if nodeID == "" || !okTime {
		return model.SensorReading{}, false
	}

	r := model.SensorReading{
		NodeID:          nodeID,
		ServerTimestamp: ts.UTC(),
		Sensors:         map[string]float64{},
	}
	for _, name := range model.SensorNames {
		if v, ok := asFloat(vals[name]); ok {
			r.Sensors[name] = v
		}
	}
	if v, ok := asFloat(vals["device_timestamp"]); ok {
		r.DeviceTimestamp = v
	}
	if s, ok := vals["status"].(string); ok {
		r.Status = s
	}
	if b, ok := vals["irrigation_active"].(bool); ok {
		r.IrrigationActive = b
	}
	return r, true
}

// StatusFromRecord rebuilds a StatusEvent from one pivoted Flux row.
func StatusFromRecord(vals map[string]interface{}) (model.StatusEvent, bool) {
	nodeID, _ := vals["node_id"].(string)
	ts, okTime := vals["_time"].(time.Time)
	if nodeID == "" || !okTime {
		return model.StatusEvent{}, false
	}

	ev := model.StatusEvent{
		NodeID:          nodeID,
		ServerTimestamp: ts.UTC(),
	}
	if s, ok := vals["action"].(string); ok {
		ev.Action = s
	}
	if v, ok := asFloat(vals["device_timestamp"]); ok {
		ev.DeviceTimestamp = v
	}
	if v, ok := asFloat(vals["duration"]); ok {
		ev.Duration = &v
	}
	if b, ok := vals["irrigation_active"].(bool); ok {
		ev.IrrigationActive = b
	}
	return ev, true
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	}
	return 0, false
}
