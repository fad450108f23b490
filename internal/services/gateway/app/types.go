package app

import "github.com/hydroponia/telemetry/internal/model"

// DTOs decoded from the reader API.

type LatestReadings struct {
	Readings []model.SensorReading `json:"readings"`
	Count    int                   `json:"count"`
}

type IrrigationEvents struct {
	Events []model.StatusEvent `json:"events"`
	Count  int                 `json:"count"`
}

// DashboardData is the single payload the dashboard UI polls.
type DashboardData struct {
	Readings    []model.SensorReading `json:"readings"`
	Irrigations []model.StatusEvent   `json:"irrigations"`
	Stats       map[string]float64    `json:"stats"`
	Timestamp   string                `json:"timestamp"`
}
