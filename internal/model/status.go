package model

import "time"

// Actions reported by nodes on status/{node_id}.
const (
	ActionIrrigationStarted   = "irrigation_started"
	ActionIrrigationCompleted = "irrigation_completed"
	ActionIrrigationStopped   = "irrigation_stopped"
)

// StatusEvent is a discrete lifecycle/actuator event from a node.
// Duration is a pointer: an event without a duration (e.g. a manual stop)
// keeps it unset instead of storing a misleading zero.
type StatusEvent struct {
	NodeID           string    `json:"node_id"`
	Action           string    `json:"action"`
	Duration         *float64  `json:"duration,omitempty"`
	DeviceTimestamp  float64   `json:"timestamp,omitempty"`
	ServerTimestamp  time.Time `json:"server_timestamp,omitempty"`
	IrrigationActive bool      `json:"irrigation_active"`
}
