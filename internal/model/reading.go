package model

import "time"

// Sensor names carried in the "sensors" map of a reading.
const (
	SensorTemperature = "temperature"
	SensorHumidity    = "humidity"
	SensorPH          = "ph"
	SensorGas         = "gas"
)

// SensorNames lists the four channels in a fixed order, so that
// aggregation output and alert tags are deterministic.
var SensorNames = []string{SensorTemperature, SensorHumidity, SensorPH, SensorGas}

// SensorReading is one telemetry sample published by a node on
// sensor/data/{node_id}. DeviceTimestamp comes from the node clock and is
// untrusted; ServerTimestamp is stamped by the store at append time and is
// the ordering key for every query.
type SensorReading struct {
	NodeID           string             `json:"node_id"`
	DeviceTimestamp  float64            `json:"timestamp"`
	ServerTimestamp  time.Time          `json:"server_timestamp,omitempty"`
	Sensors          map[string]float64 `json:"sensors"`
	Status           string             `json:"status,omitempty"`
	IrrigationActive bool               `json:"irrigation_active"`
}

// DeviceTime converts the node-reported epoch seconds into a time.Time.
func (r SensorReading) DeviceTime() time.Time {
	sec := int64(r.DeviceTimestamp)
	nsec := int64((r.DeviceTimestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
