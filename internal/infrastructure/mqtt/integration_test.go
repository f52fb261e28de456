//go:build integration

package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cogweb/cogweb-core/internal/infrastructure/config"
)

// Integration tests for the MQTT client.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -count=1 -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	cfg := testConfig()
	cfg.Broker.ClientID = clientID
	return cfg
}

func connect(t *testing.T, clientID string) *Client {
	t.Helper()
	client, err := Connect(integrationConfig(clientID), nil)
	if err != nil {
		t.Fatalf("Connect(%s) error = %v", clientID, err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIntegration_MessageRoundtrip(t *testing.T) {
	sub := connect(t, "cogweb-int-sub")
	pub := connect(t, "cogweb-int-pub")

	topic := "cogweb/int/roundtrip"
	received := make(chan string, 1)
	var once sync.Once
	err := sub.Subscribe(topic, 1, func(_ string, p []byte) error {
		once.Do(func() { received <- string(p) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := pub.Publish(topic, []byte("test-message-12345"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg != "test-message-12345" {
			t.Errorf("received %q", msg)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for message")
	}
}

// A handler that publishes a QoS 1 reply and waits for the acknowledgement
// must not stall the next message.
func TestIntegration_HandlerPublishesReply(t *testing.T) {
	server := connect(t, "cogweb-int-reply-server")
	client := connect(t, "cogweb-int-reply-client")

	requests := "cogweb/int/reply/request"
	replies := "cogweb/int/reply/response"

	err := server.Subscribe(requests, 1, func(_ string, p []byte) error {
		return server.Publish(replies, p, 1, false)
	})
	if err != nil {
		t.Fatalf("Subscribe(requests) error = %v", err)
	}

	got := make(chan string, 2)
	err = client.Subscribe(replies, 1, func(_ string, p []byte) error {
		got <- string(p)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe(replies) error = %v", err)
	}

	for _, id := range []string{"first", "second"} {
		if err := client.Publish(requests, []byte(id), 1, false); err != nil {
			t.Fatalf("Publish(%s) error = %v", id, err)
		}
	}

	seen := map[string]bool{}
	deadline := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case id := <-got:
			seen[id] = true
		case <-deadline:
			t.Fatalf("replies received = %v, want first and second", seen)
		}
	}
}

func TestIntegration_Unsubscribe(t *testing.T) {
	sub := connect(t, "cogweb-int-unsub")
	pub := connect(t, "cogweb-int-unsub-pub")

	topic := "cogweb/int/unsub"
	received := make(chan struct{}, 4)
	err := sub.Subscribe(topic, 1, func(string, []byte) error {
		received <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := sub.Unsubscribe(topic); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}

	if err := pub.Publish(topic, []byte("x"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	select {
	case <-received:
		t.Error("message delivered after Unsubscribe")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestIntegration_ConnectPublishesStatus(t *testing.T) {
	watcher := connect(t, "cogweb-int-status-sub")
	announcer := connect(t, "cogweb-int-status-pub")

	received := make(chan Status, 8)
	err := watcher.Subscribe(announcer.Topics().SystemStatus(), 1, func(_ string, p []byte) error {
		var s Status
		if err := json.Unmarshal(p, &s); err != nil {
			return err
		}
		received <- s
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case s := <-received:
		if s.Status == "" || s.ClientID == "" {
			t.Errorf("status = %+v", s)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for status message")
	}
}

func TestIntegration_Close(t *testing.T) {
	client, err := Connect(integrationConfig("cogweb-int-close"), nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := integrationConfig("cogweb-int-refused")
	cfg.Broker.Port = 19998

	_, err := Connect(cfg, nil)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}
