// Package storage owns the durable telemetry state: two append-only
// measurements in InfluxDB keyed by (node_id, server time).
package storage

import (
	"context"
	"time"

	"github.com/hydroponia/telemetry/internal/model"
)

const (
	MeasurementReading = "sensor_reading"
	MeasurementStatus  = "node_status"
)

// RangeQuery selects records with server timestamp >= Since, optionally for
// one node, newest first, up to Limit.
type RangeQuery struct {
	NodeID string
	Since  time.Time
	Limit  int
}

// Appender is the write side used by the ingestion router.
type Appender interface {
	AppendReading(ctx context.Context, r *model.SensorReading) error
	AppendStatus(ctx context.Context, ev *model.StatusEvent) error
}

// Querier is the read side used by the aggregation engine.
type Querier interface {
	LatestPerNode(ctx context.Context, nodeID string) ([]model.SensorReading, error)
	Readings(ctx context.Context, q RangeQuery) ([]model.SensorReading, error)
	StatusEvents(ctx context.Context, q RangeQuery) ([]model.StatusEvent, error)
	Ping(ctx context.Context) error
}
