package node_simulator

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydroponia/telemetry/internal/model"
)

type fakePublisher struct {
	mu       sync.Mutex
	payloads []string
}

func (f *fakePublisher) PublishMessage(payload string) error {
	return f.PublishMessageQos(0, false, payload)
}

func (f *fakePublisher) PublishMessageQos(_ byte, _ bool, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakePublisher) Close() {}

func (f *fakePublisher) events(t *testing.T) []model.StatusEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.StatusEvent, 0, len(f.payloads))
	for _, p := range f.payloads {
		var ev model.StatusEvent
		require.NoError(t, json.Unmarshal([]byte(p), &ev))
		out = append(out, ev)
	}
	return out
}

type fakeMessage struct {
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return "control/riego/node-1" }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

var _ mqtt.Message = (*fakeMessage)(nil)

func newSim(status *fakePublisher) *NodeSimulator {
	return NewNodeSimulator(nil, &fakePublisher{}, status, NewDataGenerator(1), "node-1")
}

func cmdPayload(t *testing.T, action string, duration float64) []byte {
	t.Helper()
	b, err := json.Marshal(model.IrrigationCommand{Action: action, Duration: duration})
	require.NoError(t, err)
	return b
}

func TestActivatePublishesStartedEvent(t *testing.T) {
	status := &fakePublisher{}
	sim := newSim(status)

	err := sim.handleCommand("", &fakeMessage{payload: cmdPayload(t, model.CommandActivate, 300)})
	require.NoError(t, err)

	evs := status.events(t)
	require.Len(t, evs, 1)
	assert.Equal(t, model.ActionIrrigationStarted, evs[0].Action)
	assert.Equal(t, "node-1", evs[0].NodeID)
	require.NotNil(t, evs[0].Duration)
	assert.Equal(t, 300.0, *evs[0].Duration)
	assert.True(t, evs[0].IrrigationActive)
}

func TestCompletedAfterDurationElapses(t *testing.T) {
	status := &fakePublisher{}
	sim := newSim(status)

	require.NoError(t, sim.handleCommand("", &fakeMessage{payload: cmdPayload(t, model.CommandActivate, 0.02)}))

	assert.Eventually(t, func() bool {
		evs := status.events(t)
		return len(evs) == 2 && evs[1].Action == model.ActionIrrigationCompleted
	}, time.Second, 5*time.Millisecond)

	evs := status.events(t)
	assert.False(t, evs[1].IrrigationActive)
}

func TestDeactivatePublishesStoppedWithoutDuration(t *testing.T) {
	status := &fakePublisher{}
	sim := newSim(status)

	require.NoError(t, sim.handleCommand("", &fakeMessage{payload: cmdPayload(t, model.CommandActivate, 600)}))
	require.NoError(t, sim.handleCommand("", &fakeMessage{payload: cmdPayload(t, model.CommandDeactivate, 0)}))

	evs := status.events(t)
	require.Len(t, evs, 2)
	assert.Equal(t, model.ActionIrrigationStopped, evs[1].Action)
	assert.Nil(t, evs[1].Duration, "manual stop reports no duration")
}

func TestDeactivateWhenIdleIsSilent(t *testing.T) {
	status := &fakePublisher{}
	sim := newSim(status)

	require.NoError(t, sim.handleCommand("", &fakeMessage{payload: cmdPayload(t, model.CommandDeactivate, 0)}))
	assert.Empty(t, status.events(t))
}

func TestRedeliveredCommandAppliedOnce(t *testing.T) {
	status := &fakePublisher{}
	sim := newSim(status)

	payload := cmdPayload(t, model.CommandActivate, 600)
	require.NoError(t, sim.handleCommand("", &fakeMessage{payload: payload}))
	require.NoError(t, sim.handleCommand("", &fakeMessage{payload: payload}))

	assert.Len(t, status.events(t), 1, "identical redelivery is a duplicate")
}

func TestUnknownActionRejected(t *testing.T) {
	sim := newSim(&fakePublisher{})
	err := sim.handleCommand("", &fakeMessage{payload: []byte(`{"action": "explode"}`)})
	assert.Error(t, err)
}
