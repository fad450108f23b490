package reader

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydroponia/telemetry/internal/model"
	"github.com/hydroponia/telemetry/internal/storage"
)

type fakeQuerier struct {
	latest   []model.SensorReading
	readings []model.SensorReading
	events   []model.StatusEvent
	lastQ    storage.RangeQuery
	err      error
	pingErr  error
}

func (f *fakeQuerier) LatestPerNode(_ context.Context, nodeID string) ([]model.SensorReading, error) {
	if f.err != nil {
		return nil, f.err
	}
	if nodeID == "" {
		return f.latest, nil
	}
	var out []model.SensorReading
	for _, r := range f.latest {
		if r.NodeID == nodeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeQuerier) Readings(_ context.Context, q storage.RangeQuery) ([]model.SensorReading, error) {
	f.lastQ = q
	if f.err != nil {
		return nil, f.err
	}
	return f.readings, nil
}

func (f *fakeQuerier) StatusEvents(_ context.Context, q storage.RangeQuery) ([]model.StatusEvent, error) {
	f.lastQ = q
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeQuerier) Ping(_ context.Context) error { return f.pingErr }

func doGet(t *testing.T, s *Server, url string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHandleHealth(t *testing.T) {
	s := NewServer(&fakeQuerier{})
	rec, body := doGet(t, s, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	s = NewServer(&fakeQuerier{pingErr: errors.New("no influx")})
	rec, body = doGet(t, s, "/api/health")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestHandleLastValues(t *testing.T) {
	older := time.Now().UTC().Add(-time.Minute)
	newer := time.Now().UTC()
	s := NewServer(&fakeQuerier{latest: []model.SensorReading{
		{NodeID: "a", ServerTimestamp: older, Sensors: map[string]float64{"ph": 6.0}},
		{NodeID: "b", ServerTimestamp: newer, Sensors: map[string]float64{"ph": 6.5}},
	}})

	rec, body := doGet(t, s, "/api/last-values")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["count"])

	readings := body["readings"].([]any)
	first := readings[0].(map[string]any)
	assert.Equal(t, "b", first["node_id"], "newest first")
}

func TestHandleLastValuesNodeFilter(t *testing.T) {
	s := NewServer(&fakeQuerier{latest: []model.SensorReading{
		{NodeID: "a", ServerTimestamp: time.Now().UTC()},
		{NodeID: "b", ServerTimestamp: time.Now().UTC()},
	}})

	_, body := doGet(t, s, "/api/last-values?node_id=a")
	assert.Equal(t, 1.0, body["count"])
}

func TestHandleHistoryBadParams(t *testing.T) {
	s := NewServer(&fakeQuerier{})

	rec, body := doGet(t, s, "/api/history?hours=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid parameter format", body["error"])

	rec, _ = doGet(t, s, "/api/history?limit=xyz")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHistoryDefaultsAndFilters(t *testing.T) {
	store := &fakeQuerier{readings: []model.SensorReading{
		{NodeID: "a", DeviceTimestamp: 100, Sensors: map[string]float64{"temperature": 20, "ph": 6.0}},
		{NodeID: "a", DeviceTimestamp: 200, Sensors: map[string]float64{"temperature": 22, "ph": 6.1}},
	}}
	s := NewServer(store)

	rec, body := doGet(t, s, "/api/history?node_id=a&sensor_type=temperature")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultHistoryLimit, store.lastQ.Limit)
	assert.Equal(t, "a", store.lastQ.NodeID)

	readings := body["readings"].([]any)
	require.Len(t, readings, 2)
	first := readings[0].(map[string]any)
	assert.Equal(t, 200.0, first["timestamp"], "newest first by device timestamp")
	sensors := first["sensors"].(map[string]any)
	assert.Len(t, sensors, 1, "narrowed to the requested sensor")

	filters := body["filters"].(map[string]any)
	assert.Equal(t, "temperature", filters["sensor_type"])
	assert.Equal(t, float64(defaultHistoryHours), filters["hours"])
}

func TestHandleHistoryNonPositiveParamsFallBack(t *testing.T) {
	store := &fakeQuerier{}
	s := NewServer(store)

	rec, _ := doGet(t, s, "/api/history?hours=0&limit=-5")
	assert.Equal(t, http.StatusOK, rec.Code, "zero and negative fall back to defaults")
	assert.Equal(t, defaultHistoryLimit, store.lastQ.Limit)
}

func TestHandleStatistics(t *testing.T) {
	s := NewServer(&fakeQuerier{readings: []model.SensorReading{
		{NodeID: "a", Sensors: map[string]float64{"temperature": 20}},
		{NodeID: "a", Sensors: map[string]float64{"temperature": 30}},
	}})

	rec, body := doGet(t, s, "/api/statistics")
	assert.Equal(t, http.StatusOK, rec.Code)

	stats := body["statistics"].([]any)
	require.Len(t, stats, 1)
	node := stats[0].(map[string]any)
	assert.Equal(t, "a", node["node_id"])
	temp := node["sensors"].(map[string]any)["temperature"].(map[string]any)
	assert.Equal(t, 25.0, temp["avg"])
}

func TestHandleAlerts(t *testing.T) {
	s := NewServer(&fakeQuerier{readings: []model.SensorReading{
		{NodeID: "a", DeviceTimestamp: 1, Sensors: map[string]float64{"temperature": 35}},
		{NodeID: "b", DeviceTimestamp: 2, Sensors: map[string]float64{"temperature": 25}},
	}})

	rec, body := doGet(t, s, "/api/alerts")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["count"])

	alerts := body["alerts"].([]any)
	a0 := alerts[0].(map[string]any)
	assert.Equal(t, []any{"temperature_high"}, a0["alert_types"])

	// the active thresholds ride along in the response
	th := body["thresholds"].(map[string]any)
	assert.Contains(t, th, "temperature")
}

func TestHandleSummary(t *testing.T) {
	s := NewServer(&fakeQuerier{readings: []model.SensorReading{
		{NodeID: "a", Sensors: map[string]float64{"ph": 6.0}},
		{NodeID: "b", Sensors: map[string]float64{"ph": 7.0}},
	}})

	rec, body := doGet(t, s, "/api/summary")
	assert.Equal(t, http.StatusOK, rec.Code)
	ph := body["summary"].(map[string]any)["ph"].(map[string]any)
	assert.Equal(t, 6.5, ph["avg"])
	assert.Equal(t, 0.5, ph["std_dev"])
}

func TestHandleNodes(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	s := NewServer(&fakeQuerier{latest: []model.SensorReading{
		{NodeID: "a", ServerTimestamp: now.Add(-time.Hour)},
		{NodeID: "b", ServerTimestamp: now},
	}})

	rec, body := doGet(t, s, "/api/nodes")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["count"])
	nodes := body["nodes"].([]any)
	assert.Equal(t, "b", nodes[0].(map[string]any)["node_id"], "most recently seen first")
}

func TestHandleIrrigation(t *testing.T) {
	d := 30.0
	store := &fakeQuerier{events: []model.StatusEvent{
		{NodeID: "a", Action: model.ActionIrrigationStarted, Duration: &d},
	}}
	s := NewServer(store)

	rec, body := doGet(t, s, "/api/irrigation/latest?node_id=a&limit=5")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["count"])
	assert.Equal(t, 5, store.lastQ.Limit)
	assert.Equal(t, "a", store.lastQ.NodeID)
}

func TestHandlersStoreError(t *testing.T) {
	s := NewServer(&fakeQuerier{err: errors.New("query failed")})

	for _, url := range []string{
		"/api/last-values", "/api/history", "/api/statistics",
		"/api/alerts", "/api/summary", "/api/nodes", "/api/irrigation/latest",
	} {
		rec, body := doGet(t, s, url)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, url)
		assert.Equal(t, "query failed", body["error"], url)
	}
}
