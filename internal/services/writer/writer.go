package writer

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_ingest_stored_total",
		Help: "Records accepted and handed to the store, by record type.",
	}, []string{"type"})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_ingest_dropped_total",
		Help: "Messages dropped by the ingestion pipeline, by record type and reason.",
	}, []string{"type", "reason"})
)

// Tracker watches the async store error stream and keeps the time of the
// last write error for /healthz and /readyz. Ingest outcomes feed the
// Prometheus counters.
type Tracker struct {
	mu      sync.RWMutex
	lastErr time.Time
}

// NewTracker starts the error listener. errs may be nil (no async store,
// e.g. in tests).
func NewTracker(errs <-chan error) *Tracker {
	t := &Tracker{
		lastErr: time.Now().Add(-24 * time.Hour), // "long ago" by default
	}
	if errs != nil {
		go func() {
			for err := range errs {
				if err != nil {
					t.mu.Lock()
					t.lastErr = time.Now()
					t.mu.Unlock()
					log.Printf("writer: store write error: %v", err)
				}
			}
		}()
	}
	return t
}

// LastErrorAge reports how long the store has been writing cleanly.
func (t *Tracker) LastErrorAge() time.Duration {
	if t == nil {
		return 99999 * time.Hour
	}
	t.mu.RLock()
	last := t.lastErr
	t.mu.RUnlock()
	return time.Since(last)
}

func (t *Tracker) MarkStored(recordType string) {
	storedTotal.WithLabelValues(recordType).Inc()
}

func (t *Tracker) MarkDropped(recordType, reason string) {
	droppedTotal.WithLabelValues(recordType, reason).Inc()
}
