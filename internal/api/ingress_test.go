package api

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cogweb/cogweb-core/internal/infrastructure/mqtt"
)

// fakeBus records subscriptions and publishes in memory.
type fakeBus struct {
	topics mqtt.Topics

	mu        sync.Mutex
	handlers     map[string]mqtt.MessageHandler
	published    []publishedMessage
	unsubscribed []string
}

type publishedMessage struct {
	topic   string
	payload []byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		topics:   mqtt.NewTopics("test"),
		handlers: make(map[string]mqtt.MessageHandler),
	}
}

func (b *fakeBus) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
	b.unsubscribed = append(b.unsubscribed, topic)
	return nil
}

func (b *fakeBus) Publish(topic string, payload []byte, _ byte, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedMessage{topic: topic, payload: payload})
	return nil
}

func (b *fakeBus) Topics() mqtt.Topics {
	return b.topics
}

func (b *fakeBus) handler(t *testing.T) mqtt.MessageHandler {
	t.Helper()
	b.mu.Lock()
	handler := b.handlers[b.topics.AllRequests()]
	b.mu.Unlock()
	if handler == nil {
		t.Fatal("no handler subscribed to request topics")
	}
	return handler
}

// deliver invokes the handler subscribed to the request wildcard.
func (b *fakeBus) deliver(t *testing.T, topic string, payload string) error {
	t.Helper()
	return b.handler(t)(topic, []byte(payload))
}

func (b *fakeBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

func (b *fakeBus) last(t *testing.T) (string, IngressResponse) {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.published) == 0 {
		t.Fatal("nothing published")
	}
	msg := b.published[len(b.published)-1]

	var resp IngressResponse
	if err := json.Unmarshal(msg.payload, &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return msg.topic, resp
}

func newTestIngress(t *testing.T, timeout time.Duration) (*fakeBus, *testEnv) {
	t.Helper()
	bus, _, env := startIngress(t, timeout)
	return bus, env
}

func startIngress(t *testing.T, timeout time.Duration) (*fakeBus, *Ingress, *testEnv) {
	t.Helper()
	env := testServer(t, timeout)
	bus := newFakeBus()
	ing := NewIngress(bus, env.engine.Registry(), env.bridge, 1, testLogger())
	if err := ing.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return bus, ing, env
}

func TestIngress_Success(t *testing.T) {
	bus, _ := newTestIngress(t, time.Second)

	if err := bus.deliver(t, "test/request/get-atom", `{"id":"r1","params":{"handle":"1"}}`); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	topic, resp := bus.last(t)
	if topic != "test/response/get-atom" {
		t.Errorf("topic = %q", topic)
	}
	if resp.ID != "r1" || resp.Status != 200 {
		t.Errorf("response = %+v", resp)
	}
	body, ok := resp.Body.(map[string]any)
	if !ok {
		t.Fatalf("body = %#v", resp.Body)
	}
	result, _ := body["result"].(map[string]any)
	if result["name"] != "cat" {
		t.Errorf("result = %v", result)
	}
}

func TestIngress_EmptyPayload(t *testing.T) {
	bus, _ := newTestIngress(t, time.Second)

	if err := bus.deliver(t, "test/request/ping", ""); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	_, resp := bus.last(t)
	if resp.Status != 200 {
		t.Errorf("status = %d", resp.Status)
	}
}

func TestIngress_Errors(t *testing.T) {
	tests := []struct {
		name       string
		topic      string
		payload    string
		wantTopic  string
		wantStatus int
	}{
		{"unknown operation", "test/request/nope", `{"id":"a"}`, "test/response/nope", 404},
		{"invalid json", "test/request/ping", `{"id":`, "test/response/ping", 400},
		{"engine error", "test/request/get-atom", `{"id":"b","params":{"handle":"999"}}`, "test/response/get-atom", 500},
		{"timeout", "test/request/hang", `{"id":"c"}`, "test/response/hang", 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeout := time.Second
			if tt.name == "timeout" {
				timeout = 20 * time.Millisecond
			}
			bus, _ := newTestIngress(t, timeout)

			if err := bus.deliver(t, tt.topic, tt.payload); err != nil {
				t.Fatalf("handler error = %v", err)
			}
			topic, resp := bus.last(t)
			if topic != tt.wantTopic || resp.Status != tt.wantStatus {
				t.Errorf("got %s %d, want %s %d", topic, resp.Status, tt.wantTopic, tt.wantStatus)
			}
		})
	}
}

func TestIngress_NotARequestTopic(t *testing.T) {
	bus, _ := newTestIngress(t, time.Second)

	if err := bus.deliver(t, "test/atom/created/ConceptNode", "{}"); err == nil {
		t.Error("expected error for non-request topic")
	}
}

func TestIngress_RequestTopicFromClientSide(t *testing.T) {
	bus, _ := newTestIngress(t, time.Second)

	if err := bus.deliver(t, bus.topics.Request("ping"), `{"id":"p"}`); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	topic, resp := bus.last(t)
	if topic != bus.topics.Response("ping") || resp.ID != "p" {
		t.Errorf("got %s %+v", topic, resp)
	}
}

// A request stuck in the engine must not hold up one delivered after it.
func TestIngress_ConcurrentRequests(t *testing.T) {
	bus, env := newTestIngress(t, 500*time.Millisecond)
	handler := bus.handler(t)

	hung := make(chan error, 1)
	go func() { hung <- handler("test/request/hang", []byte(`{"id":"slow"}`)) }()
	waitFor(t, func() bool { return env.bridge.Stats().InFlight == 1 })

	if err := bus.deliver(t, "test/request/ping", `{"id":"fast"}`); err != nil {
		t.Fatalf("ping handler error = %v", err)
	}
	if n := bus.count(); n != 1 {
		t.Fatalf("published %d responses, want only the ping", n)
	}
	if _, resp := bus.last(t); resp.ID != "fast" || resp.Status != 200 {
		t.Errorf("response = %+v", resp)
	}

	env.unblock()
	if err := <-hung; err != nil {
		t.Errorf("hang handler error = %v", err)
	}
}

func TestIngress_Stop(t *testing.T) {
	bus, ing, env := startIngress(t, time.Second)
	handler := bus.handler(t)

	done := make(chan error, 1)
	go func() { done <- handler("test/request/hang", []byte(`{"id":"h"}`)) }()
	waitFor(t, func() bool { return env.bridge.Stats().InFlight == 1 })

	stopped := make(chan struct{})
	go func() {
		ing.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a request was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	env.unblock()
	<-stopped

	if err := <-done; err != nil {
		t.Errorf("in-flight handler error = %v", err)
	}
	if _, resp := bus.last(t); resp.ID != "h" {
		t.Errorf("in-flight request not answered, last = %+v", resp)
	}
	if len(bus.unsubscribed) != 1 || bus.unsubscribed[0] != bus.topics.AllRequests() {
		t.Errorf("unsubscribed = %v", bus.unsubscribed)
	}

	if err := handler("test/request/ping", nil); !errors.Is(err, errIngressStopped) {
		t.Errorf("handler after Stop error = %v, want errIngressStopped", err)
	}
	if n := bus.count(); n != 1 {
		t.Errorf("published %d responses, want 1", n)
	}
	ing.Stop()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}
