package node_simulator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/hydroponia/telemetry/internal/model"
	"github.com/hydroponia/telemetry/pkg/broker"
	"github.com/hydroponia/telemetry/pkg/dedup"
)

// NodeSimulator impersonates one hydroponic node: it publishes periodic
// readings on sensor/data/{node_id} and reacts to irrigation commands on
// control/riego/{node_id} and control/riego/broadcast.
type NodeSimulator struct {
	mu        sync.Mutex
	nodeID    string
	active    bool
	timer     *time.Timer // single revert timer
	generator *DataGenerator
	data      broker.IPublisher
	status    broker.IPublisher
	consumer  broker.IConsumer
	deduper   *dedup.Deduper
}

func NewNodeSimulator(consumer broker.IConsumer, data, status broker.IPublisher,
	gen *DataGenerator, nodeID string) *NodeSimulator {
	return &NodeSimulator{
		nodeID:    nodeID,
		generator: gen,
		data:      data,
		status:    status,
		consumer:  consumer,
		deduper:   dedup.New(2*time.Minute, 10000),
	}
}

// Start runs the publish loop until the context is cancelled.
func (s *NodeSimulator) Start(ctx context.Context, interval time.Duration) {
	s.consumer.SetHandler(s.handleCommand)
	go s.consumer.ConsumeMessage(ctx)

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.timer != nil {
				s.timer.Stop()
			}
			s.mu.Unlock()
			s.data.Close()
			return
		case <-time.After(interval):
			s.mu.Lock()
			active := s.active
			s.mu.Unlock()

			reading := s.generator.Next(s.nodeID, active)
			payload, _ := json.Marshal(reading)
			if err := s.data.PublishMessage(string(payload)); err != nil {
				log.Printf("simulator %s: publish error: %v", s.nodeID, err)
			}
		}
	}
}

// handleCommand applies an irrigation command. Commands arrive at QoS 1, so
// a redelivered payload hashes to the same fingerprint and is applied once.
func (s *NodeSimulator) handleCommand(_ string, msg mqtt.Message) error {
	h := sha256.Sum256(msg.Payload())
	if s.deduper != nil && !s.deduper.ShouldProcess(hex.EncodeToString(h[:])) {
		return nil
	}

	var cmd model.IrrigationCommand
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		return fmt.Errorf("invalid irrigation command: %w", err)
	}

	switch cmd.Action {
	case model.CommandActivate:
		s.activate(cmd.Duration)
	case model.CommandDeactivate:
		s.deactivate()
	default:
		return fmt.Errorf("unknown command action %q", cmd.Action)
	}
	return nil
}

func (s *NodeSimulator) activate(durationSec float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.active = true
	log.Printf("simulator %s: irrigation on for %.0fs", s.nodeID, durationSec)

	d := durationSec
	s.publishStatusLocked(model.ActionIrrigationStarted, &d)

	if durationSec > 0 {
		s.timer = time.AfterFunc(time.Duration(durationSec*float64(time.Second)), func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if !s.active {
				return
			}
			s.active = false
			s.timer = nil
			log.Printf("simulator %s: irrigation cycle complete", s.nodeID)
			s.publishStatusLocked(model.ActionIrrigationCompleted, &d)
		})
	}
}

func (s *NodeSimulator) deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.active {
		return
	}
	s.active = false
	log.Printf("simulator %s: irrigation off", s.nodeID)
	s.publishStatusLocked(model.ActionIrrigationStopped, nil)
}

// publishStatusLocked emits a status event; the caller holds the mutex.
func (s *NodeSimulator) publishStatusLocked(action string, duration *float64) {
	ev := model.StatusEvent{
		NodeID:           s.nodeID,
		Action:           action,
		Duration:         duration,
		DeviceTimestamp:  float64(time.Now().UTC().UnixNano()) / 1e9,
		IrrigationActive: s.active,
	}
	payload, _ := json.Marshal(ev)
	if err := s.status.PublishMessageQos(1, false, string(payload)); err != nil {
		log.Printf("simulator %s: status publish error: %v", s.nodeID, err)
	}
}
