package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/hydroponia/telemetry/internal/model"
)

// DefaultHorizon bounds the latest-per-node scan: a node silent for longer
// than this is considered gone and drops out of the snapshot.
const DefaultHorizon = 24 * time.Hour

// InfluxStore implements Appender and Querier on InfluxDB 2.x. Writes go
// through the async batching API so a slow flush never blocks the
// subscriber's receive loop; write errors surface on Errors().
type InfluxStore struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	queryAPI api.QueryAPI
	bucket   string
	horizon  time.Duration
	now      func() time.Time
}

func NewInfluxStore(client influxdb2.Client, org, bucket string) *InfluxStore {
	return &InfluxStore{
		client:   client,
		writeAPI: client.WriteAPI(org, bucket),
		queryAPI: client.QueryAPI(org),
		bucket:   bucket,
		horizon:  DefaultHorizon,
		now:      time.Now,
	}
}

// Errors exposes the async write error stream for the health tracker.
func (s *InfluxStore) Errors() <-chan error {
	return s.writeAPI.Errors()
}

// AppendReading stamps the trusted server timestamp (unless the caller
// already did) and enqueues the point. Blind append: duplicates from
// transport redelivery become new rows.
func (s *InfluxStore) AppendReading(_ context.Context, r *model.SensorReading) error {
	if r.ServerTimestamp.IsZero() {
		r.ServerTimestamp = s.now().UTC()
	}
	s.writeAPI.WritePoint(ReadingPoint(r))
	return nil
}

func (s *InfluxStore) AppendStatus(_ context.Context, ev *model.StatusEvent) error {
	if ev.ServerTimestamp.IsZero() {
		ev.ServerTimestamp = s.now().UTC()
	}
	s.writeAPI.WritePoint(StatusPoint(ev))
	return nil
}

// Flush forces the pending batch out, used on shutdown.
func (s *InfluxStore) Flush() {
	s.writeAPI.Flush()
}

func (s *InfluxStore) LatestPerNode(ctx context.Context, nodeID string) ([]model.SensorReading, error) {
	return s.queryReadings(ctx, fluxLatestPerNode(s.bucket, nodeID, s.horizon))
}

func (s *InfluxStore) Readings(ctx context.Context, q RangeQuery) ([]model.SensorReading, error) {
	return s.queryReadings(ctx, fluxRangeSince(s.bucket, MeasurementReading, q.NodeID, q.Since, q.Limit))
}

func (s *InfluxStore) queryReadings(ctx context.Context, flux string) ([]model.SensorReading, error) {
	res, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("influx query: %w", err)
	}
	defer res.Close()

	var out []model.SensorReading
	for res.Next() {
		if r, ok := ReadingFromRecord(res.Record().Values()); ok {
			out = append(out, r)
		}
	}
	if res.Err() != nil {
		return nil, fmt.Errorf("influx result: %w", res.Err())
	}
	return out, nil
}

func (s *InfluxStore) StatusEvents(ctx context.Context, q RangeQuery) ([]model.StatusEvent, error) {
	res, err := s.queryAPI.Query(ctx, fluxRangeSince(s.bucket, MeasurementStatus, q.NodeID, q.Since, q.Limit))
	if err != nil {
		return nil, fmt.Errorf("influx query: %w", err)
	}
	defer res.Close()

	var out []model.StatusEvent
	for res.Next() {
		if ev, ok := StatusFromRecord(res.Record().Values()); ok {
			out = append(out, ev)
		}
	}
	if res.Err() != nil {
		return nil, fmt.Errorf("influx result: %w", res.Err())
	}
	return out, nil
}

func (s *InfluxStore) Ping(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("influx not ready")
	}
	return nil
}

// WaitReady pings the store with exponential backoff so a stalled InfluxDB
// turns into a startup failure instead of an indefinite hang.
func WaitReady(ctx context.Context, client influxdb2.Client, maxElapsed time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed
	return backoff.Retry(func() error {
		ok, err := client.Ping(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("influx not ready")
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}
