// Package mqtt publishes satellite events to an MQTT broker
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"voice-satellite/config"
	"voice-satellite/log"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Event is the JSON document published for every satellite event
type Event struct {
	Device    string                 `json:"device"`
	Event     string                 `json:"event"`
	Timestamp time.Time              `json:"timestamp"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Publisher sends events to {prefix}/{device}/{event}
type Publisher struct {
	client pahomqtt.Client
	prefix string
	device string
	now    func() time.Time
}

// NewPublisher connects to the configured broker
// Params:
//   - cfg: MQTT settings
//   - device: device name used in topics and payloads
//
// Returns:
//   - *Publisher: connected publisher, nil when MQTT is disabled
//   - error: when the broker rejects the connection
func NewPublisher(cfg *config.MQTTConfig, device string) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "voice-satellite-" + uuid.NewString()[:8]
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		log.Infof("mqtt: connected to %s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Warnf("mqtt: connection lost: %v", err)
	})

	client := pahomqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", cfg.Broker, token.Error())
	}
	return newPublisher(client, cfg.TopicPrefix, device), nil
}

func newPublisher(client pahomqtt.Client, prefix, device string) *Publisher {
	if prefix == "" {
		prefix = "voice-satellite"
	}
	return &Publisher{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		device: device,
		now:    time.Now,
	}
}

// Topic returns the topic an event is published on
func (p *Publisher) Topic(event string) string {
	return p.prefix + "/" + p.device + "/" + event
}

// Publish sends an event without waiting for the broker. Failures are logged.
func (p *Publisher) Publish(event string, fields map[string]interface{}) {
	if p == nil || !p.client.IsConnected() {
		return
	}
	data, err := json.Marshal(Event{
		Device:    p.device,
		Event:     event,
		Timestamp: p.now().UTC(),
		Fields:    fields,
	})
	if err != nil {
		log.Errorf("mqtt: marshal %s event: %v", event, err)
		return
	}

	token := p.client.Publish(p.Topic(event), 0, false, data)
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Warnf("mqtt: publish %s: %v", event, token.Error())
		}
	}()
}

// Close disconnects from the broker
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.client.Disconnect(250)
}
