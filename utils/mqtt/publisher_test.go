package mqtt

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"voice-satellite/config"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	pahomqtt.Client
	mu        sync.Mutex
	connected bool
	messages  []published
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic: topic, payload: payload.([]byte)})
	return doneToken{}
}

func TestPublish(t *testing.T) {
	client := &fakeClient{connected: true}
	p := newPublisher(client, "home/", "kitchen-a1b2c3")
	p.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	p.Publish("wake", map[string]interface{}{"wake_word": "okay_nabu"})

	if len(client.messages) != 1 {
		t.Fatalf("published %d messages", len(client.messages))
	}
	msg := client.messages[0]
	if msg.topic != "home/kitchen-a1b2c3/wake" {
		t.Fatalf("topic = %q", msg.topic)
	}
	var ev Event
	if err := json.Unmarshal(msg.payload, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Device != "kitchen-a1b2c3" || ev.Event != "wake" || ev.Fields["wake_word"] != "okay_nabu" {
		t.Fatalf("event = %#v", ev)
	}
	if !ev.Timestamp.Equal(p.now()) {
		t.Fatalf("timestamp = %v", ev.Timestamp)
	}
}

func TestPublishSkipsWhenDisconnected(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, "", "dev")
	p.Publish("muted", nil)
	if len(client.messages) != 0 {
		t.Fatal("published while disconnected")
	}
	if p.Topic("x") != "voice-satellite/dev/x" {
		t.Fatalf("default topic = %q", p.Topic("x"))
	}
}

func TestNilPublisher(t *testing.T) {
	var p *Publisher
	p.Publish("wake", nil)
	p.Close()
}

func TestDisabled(t *testing.T) {
	p, err := NewPublisher(&config.MQTTConfig{Enabled: false}, "dev")
	if err != nil || p != nil {
		t.Fatalf("disabled publisher = %v, %v", p, err)
	}
}
