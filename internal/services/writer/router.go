package writer

import (
	"context"
	"errors"
	"strings"

	"github.com/hydroponia/telemetry/internal/storage"
)

// TopicKind is the closed classification of inbound topics. Classifying
// once up front keeps the suffix checks out of the rest of the pipeline.
type TopicKind int

const (
	TopicUnmatched TopicKind = iota
	TopicSensorData
	TopicStatus
)

const (
	sensorDataPrefix = "sensor/data/"
	statusPrefix     = "status/"
)

// ClassifyTopic maps a topic onto its kind and the node id carried in the
// topic path.
func ClassifyTopic(topic string) (TopicKind, string) {
	switch {
	case strings.HasPrefix(topic, sensorDataPrefix):
		return TopicSensorData, strings.Trim(strings.TrimPrefix(topic, sensorDataPrefix), "/")
	case strings.HasPrefix(topic, statusPrefix):
		return TopicStatus, strings.Trim(strings.TrimPrefix(topic, statusPrefix), "/")
	default:
		return TopicUnmatched, ""
	}
}

// Router demultiplexes inbound messages, validates them and hands the typed
// records to the store. Every failure is per-message: the subscriber loop
// never stops because of one bad payload.
type Router struct {
	store   storage.Appender
	tracker *Tracker
}

func NewRouter(store storage.Appender, tracker *Tracker) *Router {
	return &Router{store: store, tracker: tracker}
}

// Handle processes one (topic, payload) delivery. The returned error is
// diagnostic only; callers log it and move on (at-most-once semantics).
func (rt *Router) Handle(ctx context.Context, topic string, payload []byte) error {
	kind, _ := ClassifyTopic(topic)

	switch kind {
	case TopicSensorData:
		r, err := ParseSensorReading(payload)
		if err != nil {
			rt.tracker.MarkDropped("reading", dropReason(err))
			return err
		}
		if err := rt.store.AppendReading(ctx, &r); err != nil {
			rt.tracker.MarkDropped("reading", "store_error")
			return err
		}
		rt.tracker.MarkStored("reading")
		return nil

	case TopicStatus:
		ev, err := ParseStatusEvent(payload)
		if err != nil {
			rt.tracker.MarkDropped("status", dropReason(err))
			return err
		}
		if err := rt.store.AppendStatus(ctx, &ev); err != nil {
			rt.tracker.MarkDropped("status", "store_error")
			return err
		}
		rt.tracker.MarkStored("status")
		return nil

	default:
		// not our topic family: ignore, not an error
		return nil
	}
}

func dropReason(err error) string {
	var mf *MissingFieldError
	if errors.As(err, &mf) {
		return "missing_field"
	}
	if errors.Is(err, ErrMalformed) {
		return "malformed"
	}
	return "invalid"
}
