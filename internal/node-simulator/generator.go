package node_simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/hydroponia/telemetry/internal/model"
)

// Baselines and drift bounds for the simulated channels. Values random-walk
// around the baseline and are clamped to [min, max].
type channelSpec struct {
	baseline float64
	min, max float64
	step     float64 // max drift per tick
	decimals int
}

var channels = map[string]channelSpec{
	model.SensorTemperature: {baseline: 22.0, min: 10, max: 40, step: 0.4, decimals: 2},
	model.SensorHumidity:    {baseline: 60.0, min: 20, max: 100, step: 1.5, decimals: 2},
	model.SensorPH:          {baseline: 6.5, min: 4.0, max: 9.0, step: 0.08, decimals: 2},
	model.SensorGas:         {baseline: 400.0, min: 100, max: 1500, step: 12, decimals: 0},
}

// humidityIrrigationGain is the extra upward humidity drift per tick while
// the valve is open.
const humidityIrrigationGain = 2.0

// DataGenerator keeps the per-channel state of one node and advances it on
// every tick.
type DataGenerator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	current map[string]float64
}

func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &DataGenerator{
		rng:     rand.New(rand.NewSource(seed)),
		current: make(map[string]float64, len(channels)),
	}
	for name, spec := range channels {
		g.current[name] = spec.baseline
	}
	return g
}

// Next advances the random walk and returns a reading for the node. The
// device timestamp is the node's own clock; the store stamps its own.
func (g *DataGenerator) Next(nodeID string, irrigationActive bool) model.SensorReading {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UTC()
	sensors := make(map[string]float64, len(channels))
	for name, spec := range channels {
		v := g.current[name] + (g.rng.Float64()*2-1)*spec.step
		// gentle pull back towards the baseline so long runs stay plausible
		v += (spec.baseline - v) * 0.02
		if name == model.SensorHumidity && irrigationActive {
			v += humidityIrrigationGain
		}
		v = clamp(v, spec.min, spec.max)
		g.current[name] = v
		sensors[name] = round(v, spec.decimals)
	}

	return model.SensorReading{
		NodeID:           nodeID,
		DeviceTimestamp:  float64(now.UnixNano()) / 1e9,
		Sensors:          sensors,
		Status:           "online",
		IrrigationActive: irrigationActive,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
