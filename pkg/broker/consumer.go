package broker

import (
	"context"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IConsumer is the subscription side of the transport adapter. Handlers
// receive the subscription filter plus the raw message.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler func(filter string, message mqtt.Message) error)
}

// qosFor picks the QoS per topic family: status events and control commands
// must survive a flaky link (QoS 1), periodic telemetry is fire-and-forget.
func qosFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "status/") || strings.HasPrefix(t, "control/") {
		return 1
	}
	return 0
}

// Consumer subscribes to a single topic filter.
type Consumer struct {
	client  mqtt.Client
	topic   string
	handler func(filter string, message mqtt.Message) error
}

func NewConsumer(client mqtt.Client, topic string, handler func(filter string, message mqtt.Message) error) *Consumer {
	return &Consumer{client: client, topic: topic, handler: handler}
}

func (c *Consumer) SetHandler(handler func(filter string, message mqtt.Message) error) {
	c.handler = handler
}

// ConsumeMessage subscribes and dispatches messages to the handler. It
// blocks until the context is cancelled, then unsubscribes.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	token := c.client.Subscribe(c.topic, qosFor(c.topic), func(_ mqtt.Client, message mqtt.Message) {
		if c.handler == nil {
			log.Printf("broker: no handler set for %s", c.topic)
			return
		}
		if err := c.handler(c.topic, message); err != nil {
			log.Printf("broker: handler error on %s: %v", message.Topic(), err)
		}
	})
	if token.Wait() && token.Error() != nil {
		log.Printf("broker: subscribe error on %s: %v", c.topic, token.Error())
		return
	}
	log.Printf("broker: subscribed to %s", c.topic)

	<-ctx.Done()

	unsub := c.client.Unsubscribe(c.topic)
	unsub.Wait()
}

// MultiConsumer subscribes to several topic filters with one handler.
type MultiConsumer struct {
	client  mqtt.Client
	topics  []string
	handler func(filter string, message mqtt.Message) error
}

func NewMultiConsumer(client mqtt.Client, topics []string, handler func(filter string, message mqtt.Message) error) *MultiConsumer {
	return &MultiConsumer{client: client, topics: topics, handler: handler}
}

func (m *MultiConsumer) SetHandler(handler func(filter string, message mqtt.Message) error) {
	m.handler = handler
}

func (m *MultiConsumer) ConsumeMessage(ctx context.Context) {
	for _, topic := range m.topics {
		topic := topic
		token := m.client.Subscribe(topic, qosFor(topic), func(_ mqtt.Client, msg mqtt.Message) {
			if m.handler == nil {
				log.Printf("broker: no handler set for %s", topic)
				return
			}
			if err := m.handler(topic, msg); err != nil {
				log.Printf("broker: handler error on %s: %v", msg.Topic(), err)
			}
		})
		token.Wait()
		if token.Error() != nil {
			log.Printf("broker: subscribe error on %s: %v", topic, token.Error())
		} else {
			log.Printf("broker: subscribed to %s", topic)
		}
	}

	<-ctx.Done()

	for _, topic := range m.topics {
		m.client.Unsubscribe(topic)
	}
}
