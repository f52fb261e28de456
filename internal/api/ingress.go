package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cogweb/cogweb-core/internal/bridge"
	"github.com/cogweb/cogweb-core/internal/command"
	"github.com/cogweb/cogweb-core/internal/infrastructure/logging"
	"github.com/cogweb/cogweb-core/internal/infrastructure/mqtt"
)

// MQTTBus is the part of the MQTT client used by the command ingress.
type MQTTBus interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Topics() mqtt.Topics
}

// IngressRequest is the payload published to <prefix>/request/<operation>.
type IngressRequest struct {
	ID     string            `json:"id"`
	Params map[string]string `json:"params"`
}

// IngressResponse is published to <prefix>/response/<operation>.
// Body has the same shape as the HTTP response body for the outcome.
type IngressResponse struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Body   any    `json:"body"`
}

// Ingress accepts commands over MQTT and answers on the response topic.
//
// It is a second front door to the same registry and bridge as the HTTP
// handlers; outcomes are rendered with the same status table.
type Ingress struct {
	bus      MQTTBus
	registry *command.Registry
	bridge   *bridge.Bridge
	qos      byte
	logger   *logging.Logger

	mu       sync.Mutex
	stopping bool
	inflight sync.WaitGroup
}

// errIngressStopped is returned for messages that arrive during shutdown.
var errIngressStopped = errors.New("ingress stopped")

// NewIngress creates an ingress. Call Start to subscribe.
func NewIngress(bus MQTTBus, registry *command.Registry, b *bridge.Bridge, qos byte, logger *logging.Logger) *Ingress {
	return &Ingress{
		bus:      bus,
		registry: registry,
		bridge:   b,
		qos:      qos,
		logger:   logger,
	}
}

// Start subscribes to every request topic.
func (i *Ingress) Start() error {
	topic := i.bus.Topics().AllRequests()
	if err := i.bus.Subscribe(topic, i.qos, i.receive); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	i.logger.Info("mqtt command ingress started", "topic", topic)
	return nil
}

// Stop unsubscribes from the request topics and waits for in-flight requests
// to be answered. Call it before closing the bridge.
func (i *Ingress) Stop() {
	i.mu.Lock()
	if i.stopping {
		i.mu.Unlock()
		return
	}
	i.stopping = true
	i.mu.Unlock()

	topic := i.bus.Topics().AllRequests()
	if err := i.bus.Unsubscribe(topic); err != nil {
		i.logger.Warn("unsubscribing command ingress", "topic", topic, "error", err)
	}
	i.inflight.Wait()
	i.logger.Info("mqtt command ingress stopped")
}

// receive is the subscription handler. The client delivers each message on
// its own goroutine.
func (i *Ingress) receive(topic string, payload []byte) error {
	i.mu.Lock()
	if i.stopping {
		i.mu.Unlock()
		return errIngressStopped
	}
	i.inflight.Add(1)
	i.mu.Unlock()
	defer i.inflight.Done()

	return i.handle(topic, payload)
}

// handle runs one request. It blocks for at most the bridge timeout.
func (i *Ingress) handle(topic string, payload []byte) error {
	op, ok := i.bus.Topics().OperationFromRequest(topic)
	if !ok {
		return fmt.Errorf("not a request topic: %s", topic)
	}

	var req IngressRequest
	var outcome command.Outcome
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			outcome = command.BadRequest("invalid JSON payload")
			return i.respond(op, req.ID, outcome)
		}
	}

	cmd, err := i.registry.Create(op, command.Params(req.Params))
	if err != nil {
		return i.respond(op, req.ID, outcomeFromError(err))
	}
	outcome, err = i.bridge.Submit(cmd)
	if err != nil {
		outcome = outcomeFromError(err)
	}
	return i.respond(op, req.ID, outcome)
}

func (i *Ingress) respond(op, id string, outcome command.Outcome) error {
	status, body := Render(outcome)
	data, err := json.Marshal(IngressResponse{ID: id, Status: status, Body: body})
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	if err := i.bus.Publish(i.bus.Topics().Response(op), data, i.qos, false); err != nil {
		return fmt.Errorf("publishing response: %w", err)
	}
	return nil
}
