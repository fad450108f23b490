package node_simulator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydroponia/telemetry/internal/model"
)

func TestNextProducesAllChannels(t *testing.T) {
	g := NewDataGenerator(1)
	r := g.Next("node-1", false)

	assert.Equal(t, "node-1", r.NodeID)
	assert.Equal(t, "online", r.Status)
	assert.False(t, r.IrrigationActive)
	assert.NotZero(t, r.DeviceTimestamp)
	assert.True(t, r.ServerTimestamp.IsZero(), "device never sets the server timestamp")

	require.Len(t, r.Sensors, len(model.SensorNames))
	for _, name := range model.SensorNames {
		assert.Contains(t, r.Sensors, name)
	}
}

func TestNextStaysWithinBounds(t *testing.T) {
	g := NewDataGenerator(42)
	for i := 0; i < 500; i++ {
		r := g.Next("n", i%2 == 0)
		for name, spec := range channels {
			v := r.Sensors[name]
			assert.GreaterOrEqual(t, v, spec.min, name)
			assert.LessOrEqual(t, v, spec.max, name)
		}
	}
}

func TestNextRounding(t *testing.T) {
	g := NewDataGenerator(7)
	for i := 0; i < 50; i++ {
		r := g.Next("n", false)
		gas := r.Sensors[model.SensorGas]
		assert.Equal(t, math.Trunc(gas), gas, "gas is an integer reading")

		ph := r.Sensors[model.SensorPH]
		assert.InDelta(t, ph, math.Round(ph*100)/100, 1e-9, "ph keeps two decimals")
	}
}

func TestIrrigationPushesHumidityUp(t *testing.T) {
	dry := NewDataGenerator(99)
	wet := NewDataGenerator(99)

	var drySum, wetSum float64
	for i := 0; i < 100; i++ {
		drySum += dry.Next("n", false).Sensors[model.SensorHumidity]
		wetSum += wet.Next("n", true).Sensors[model.SensorHumidity]
	}
	assert.Greater(t, wetSum, drySum, "open valve drives humidity upward")
}

func TestDeterministicSeed(t *testing.T) {
	a := NewDataGenerator(5)
	b := NewDataGenerator(5)
	ra := a.Next("n", false)
	rb := b.Next("n", false)
	assert.Equal(t, ra.Sensors, rb.Sensors)
}
