package model

// Irrigation command actions accepted on control/riego/{node_id} and
// control/riego/broadcast.
const (
	CommandActivate   = "activate"
	CommandDeactivate = "deactivate"
)

// IrrigationCommand instructs a node to switch its irrigation actuator.
// Duration is in seconds; it only applies to "activate".
type IrrigationCommand struct {
	Action   string  `json:"action"`
	Duration float64 `json:"duration,omitempty"`
}
