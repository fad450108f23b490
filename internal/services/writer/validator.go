package writer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hydroponia/telemetry/internal/model"
)

// ErrMalformed marks payloads that are not valid JSON. The origin will not
// resend, so callers log and drop.
var ErrMalformed = errors.New("malformed payload")

// MissingFieldError marks a structurally valid payload that lacks a
// required field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing required field: " + e.Field
}

// sensorPayload uses pointers where absence must be distinguished from the
// zero value.
type sensorPayload struct {
	NodeID           string             `json:"node_id"`
	Timestamp        *float64           `json:"timestamp"`
	Sensors          map[string]float64 `json:"sensors"`
	Status           string             `json:"status"`
	IrrigationActive bool               `json:"irrigation_active"`
}

// ParseSensorReading validates a sensor/data payload. node_id, timestamp and
// the sensors map are mandatory; anything else defaults.
func ParseSensorReading(payload []byte) (model.SensorReading, error) {
	var p sensorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return model.SensorReading{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.NodeID == "" {
		return model.SensorReading{}, &MissingFieldError{Field: "node_id"}
	}
	if p.Timestamp == nil {
		return model.SensorReading{}, &MissingFieldError{Field: "timestamp"}
	}
	if p.Sensors == nil {
		return model.SensorReading{}, &MissingFieldError{Field: "sensors"}
	}
	return model.SensorReading{
		NodeID:           p.NodeID,
		DeviceTimestamp:  *p.Timestamp,
		Sensors:          p.Sensors,
		Status:           p.Status,
		IrrigationActive: p.IrrigationActive,
	}, nil
}

// ParseStatusEvent validates a status payload. Only node_id is required;
// a missing duration stays unset, never zero.
func ParseStatusEvent(payload []byte) (model.StatusEvent, error) {
	var ev model.StatusEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return model.StatusEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ev.NodeID == "" {
		return model.StatusEvent{}, &MissingFieldError{Field: "node_id"}
	}
	// the store owns the trusted timestamp; ignore any inbound value
	ev.ServerTimestamp = time.Time{}
	return ev, nil
}
