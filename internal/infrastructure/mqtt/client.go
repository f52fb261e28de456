package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cogweb/cogweb-core/internal/infrastructure/config"
)

// Logger is the logging interface used by the client.
// *logging.Logger satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MessageHandler handles one inbound message. A returned error is logged.
//
// Messages are delivered without ordering guarantees, each on its own
// goroutine, so a handler may block and may publish.
type MessageHandler func(topic string, payload []byte) error

// Client is cogweb's broker session.
//
// It announces itself on the retained status topic, publishes atom events for
// the engine and carries the command ingress subscription. Subscriptions are
// replayed after every reconnect because sessions are clean.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	paho     pahomqtt.Client
	topics   Topics
	clientID string
	qos      byte
	logger   Logger

	connected atomic.Bool

	mu   sync.Mutex
	subs map[string]subscription
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Connect opens a session with the broker in cfg and waits for it to be
// established. A nil logger discards connection events.
func Connect(cfg config.MQTTConfig, logger Logger) (*Client, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	c := &Client{
		topics:   NewTopics(cfg.TopicPrefix),
		clientID: cfg.Broker.ClientID,
		qos:      byte(cfg.QoS),
		logger:   logger,
		subs:     make(map[string]subscription),
	}

	opts := buildClientOptions(cfg)
	opts.SetWill(c.topics.SystemStatus(), string(statusPayload(c.clientID, StatusOffline, ReasonUnexpected)), 1, true)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.onConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.onConnectionLost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		logger.Warn("mqtt reconnecting", "broker", cfg.Broker.Host)
	})

	c.paho = pahomqtt.NewClient(opts)
	token := c.paho.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// Stop the background connect retry.
		c.paho.Disconnect(0)
		return nil, fmt.Errorf("%w: %s:%d: timeout after %v", ErrConnectionFailed, cfg.Broker.Host, cfg.Broker.Port, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s:%d: %w", ErrConnectionFailed, cfg.Broker.Host, cfg.Broker.Port, err)
	}

	// The connect handler runs asynchronously; mark the session usable now.
	c.connected.Store(true)
	return c, nil
}

// onConnect runs on the initial connect and every reconnect.
func (c *Client) onConnect() {
	c.connected.Store(true)
	c.restoreSubscriptions()
	c.paho.Publish(c.topics.SystemStatus(), c.qos, true, statusPayload(c.clientID, StatusOnline, ""))
	c.log().Info("mqtt connected", "client_id", c.clientID)
}

func (c *Client) onConnectionLost(err error) {
	c.connected.Store(false)
	c.log().Warn("mqtt connection lost", "error", err)
}

// Close publishes a graceful offline status and disconnects.
// Safe on a client that never connected.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		token := c.paho.Publish(c.topics.SystemStatus(), c.qos, true, statusPayload(c.clientID, StatusOffline, ReasonShutdown))
		token.WaitTimeout(publishTimeout)
	}
	c.paho.Disconnect(disconnectQuiesceMS)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the session is currently usable.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.connected.Load() && c.paho.IsConnectionOpen()
}

// Topics returns the topic builders for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

func (c *Client) log() Logger {
	if c.logger == nil {
		return noopLogger{}
	}
	return c.logger
}
