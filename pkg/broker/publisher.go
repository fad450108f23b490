package broker

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher publishes payloads to one fixed topic.
type IPublisher interface {
	PublishMessage(payload string) error
	PublishMessageQos(qos byte, retained bool, payload string) error
	Close()
}

type Publisher struct {
	client mqtt.Client
	topic  string
}

func NewPublisher(client mqtt.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// PublishMessage publishes at the topic family's default QoS.
func (p *Publisher) PublishMessage(payload string) error {
	return p.PublishMessageQos(qosFor(p.topic), false, payload)
}

func (p *Publisher) PublishMessageQos(qos byte, retained bool, payload string) error {
	token := p.client.Publish(p.topic, qos, retained, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, token.Error())
	}
	return nil
}

// Close disconnects the underlying client if it is still connected.
func (p *Publisher) Close() {
	Close(p.client)
}
