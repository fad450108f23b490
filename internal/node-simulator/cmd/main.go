package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	nodeSimulator "github.com/hydroponia/telemetry/internal/node-simulator"
	"github.com/hydroponia/telemetry/pkg/broker"
)

func main() {
	nodeID := flag.String("node-id", "node-1", "unique node identifier")
	host := flag.String("mqtt-host", "localhost", "MQTT broker host")
	port := flag.Int("mqtt-port", 1883, "MQTT broker port")
	user := flag.String("mqtt-user", "", "MQTT username")
	password := flag.String("mqtt-password", "", "MQTT password")
	interval := flag.Duration("interval", 10*time.Second, "publish interval")
	seed := flag.Int64("seed", 0, "random seed (0 = time-based)")
	flag.Parse()

	cfg := &broker.Config{
		Host:     *host,
		Port:     *port,
		User:     *user,
		Password: *password,
		// suffix keeps several simulators for the same node from kicking
		// each other off the broker
		ClientID: fmt.Sprintf("sim-%s-%s", *nodeID, uuid.NewString()[:8]),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := broker.NewConn(cfg, ctx)
	if err != nil {
		log.Fatal(err)
	}

	data := broker.NewPublisher(client, "sensor/data/"+*nodeID)
	status := broker.NewPublisher(client, "status/"+*nodeID)
	commands := broker.NewMultiConsumer(client, []string{
		"control/riego/" + *nodeID,
		"control/riego/broadcast",
	}, nil)

	gen := nodeSimulator.NewDataGenerator(*seed)
	sim := nodeSimulator.NewNodeSimulator(commands, data, status, gen, *nodeID)

	log.Printf("simulator %s: publishing every %s", *nodeID, *interval)
	sim.Start(ctx, *interval)
}
