package reader

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hydroponia/telemetry/internal/model"
	"github.com/hydroponia/telemetry/internal/storage"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_api_requests_total",
		Help: "Query API requests by endpoint and status code.",
	}, []string{"endpoint", "code"})

	requestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "telemetry_api_request_duration_seconds",
		Help:    "Query API request duration by endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

const (
	defaultHistoryHours = 24
	defaultHistoryLimit = 100
	alertsCap           = 50
)

// Server exposes the aggregation engine over HTTP.
type Server struct {
	store        storage.Querier
	thresholds   map[string]model.Threshold
	queryTimeout time.Duration
}

func NewServer(store storage.Querier) *Server {
	return &Server{
		store:        store,
		thresholds:   model.DefaultThresholds(),
		queryTimeout: 5 * time.Second,
	}
}

func (s *Server) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.instrument("health", s.handleHealth))
	mux.HandleFunc("/api/nodes", s.instrument("nodes", s.handleNodes))
	mux.HandleFunc("/api/last-values", s.instrument("last-values", s.handleLastValues))
	mux.HandleFunc("/api/history", s.instrument("history", s.handleHistory))
	mux.HandleFunc("/api/statistics", s.instrument("statistics", s.handleStatistics))
	mux.HandleFunc("/api/alerts", s.instrument("alerts", s.handleAlerts))
	mux.HandleFunc("/api/summary", s.instrument("summary", s.handleSummary))
	mux.HandleFunc("/api/irrigation/latest", s.instrument("irrigation", s.handleIrrigation))
	return mux
}

// statusRecorder captures the code for the request counter.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(rec.code)).Inc()
		requestSeconds.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) queryCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.queryTimeout)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryCtx(r)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "reader-api",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleNodes lists the nodes seen within the liveness horizon, newest
// first. Liveness is inferred from recency, there is no node registry.
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryCtx(r)
	defer cancel()

	latest, err := s.store.LatestPerNode(ctx, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type nodeInfo struct {
		NodeID   string    `json:"node_id"`
		LastSeen time.Time `json:"last_seen"`
	}
	nodes := make([]nodeInfo, 0, len(latest))
	for _, rd := range latest {
		nodes = append(nodes, nodeInfo{NodeID: rd.NodeID, LastSeen: rd.ServerTimestamp})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].LastSeen.After(nodes[j].LastSeen) })

	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"count": len(nodes),
	})
}

func (s *Server) handleLastValues(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryCtx(r)
	defer cancel()

	nodeID := strings.TrimSpace(r.URL.Query().Get("node_id"))
	readings, err := s.store.LatestPerNode(ctx, nodeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].ServerTimestamp.After(readings[j].ServerTimestamp)
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"readings":  readings,
		"count":     len(readings),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nodeID := strings.TrimSpace(q.Get("node_id"))
	sensorType := strings.TrimSpace(q.Get("sensor_type"))

	hours, err := intParam(q.Get("hours"), defaultHistoryHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid parameter format")
		return
	}
	limit, err := intParam(q.Get("limit"), defaultHistoryLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid parameter format")
		return
	}

	ctx, cancel := s.queryCtx(r)
	defer cancel()

	readings, err := s.store.Readings(ctx, storage.RangeQuery{
		NodeID: nodeID,
		Since:  time.Now().UTC().Add(-time.Duration(hours) * time.Hour),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// order by the record's own timestamp, newest first
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].DeviceTimestamp > readings[j].DeviceTimestamp
	})
	readings = NarrowSensor(readings, sensorType)

	writeJSON(w, http.StatusOK, map[string]any{
		"readings": readings,
		"count":    len(readings),
		"filters": map[string]any{
			"node_id":     nodeID,
			"sensor_type": sensorType,
			"hours":       hours,
			"limit":       limit,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nodeID := strings.TrimSpace(q.Get("node_id"))
	hours, err := intParam(q.Get("hours"), defaultHistoryHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid parameter format")
		return
	}

	ctx, cancel := s.queryCtx(r)
	defer cancel()

	readings, err := s.store.Readings(ctx, storage.RangeQuery{
		NodeID: nodeID,
		Since:  time.Now().UTC().Add(-time.Duration(hours) * time.Hour),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"statistics":   Statistics(readings),
		"period_hours": hours,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r.URL.Query().Get("hours"), defaultHistoryHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid parameter format")
		return
	}

	ctx, cancel := s.queryCtx(r)
	defer cancel()

	readings, err := s.store.Readings(ctx, storage.RangeQuery{
		Since: time.Now().UTC().Add(-time.Duration(hours) * time.Hour),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	alerts := DetectAlerts(readings, s.thresholds, alertsCap)
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts":       alerts,
		"count":        len(alerts),
		"thresholds":   s.thresholds,
		"period_hours": hours,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r.URL.Query().Get("hours"), defaultHistoryHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid parameter format")
		return
	}

	ctx, cancel := s.queryCtx(r)
	defer cancel()

	readings, err := s.store.Readings(ctx, storage.RangeQuery{
		Since: time.Now().UTC().Add(-time.Duration(hours) * time.Hour),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary":      Summary(readings),
		"period_hours": hours,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleIrrigation returns the recent status events (irrigation activity)
// for the dashboard's event feed.
func (s *Server) handleIrrigation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hours, err := intParam(q.Get("hours"), defaultHistoryHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid parameter format")
		return
	}
	limit, err := intParam(q.Get("limit"), 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid parameter format")
		return
	}

	ctx, cancel := s.queryCtx(r)
	defer cancel()

	events, err := s.store.StatusEvents(ctx, storage.RangeQuery{
		NodeID: strings.TrimSpace(q.Get("node_id")),
		Since:  time.Now().UTC().Add(-time.Duration(hours) * time.Hour),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events":       events,
		"count":        len(events),
		"period_hours": hours,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// intParam parses an optional positive integer; a non-numeric value is a
// client error, never a server fault.
func intParam(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return def, nil
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
