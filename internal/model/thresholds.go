package model

// Threshold is the allowed band for one sensor. A value strictly below Min
// or strictly above Max is out of range.
type Threshold struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultThresholds are the static alert bands for the greenhouse. They are
// fixed for the lifetime of the service.
func DefaultThresholds() map[string]Threshold {
	return map[string]Threshold{
		SensorTemperature: {Min: 15, Max: 30},
		SensorHumidity:    {Min: 30, Max: 90},
		SensorPH:          {Min: 5.0, Max: 8.0},
		SensorGas:         {Min: 200, Max: 1000},
	}
}
