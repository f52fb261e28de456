package influxdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/cogweb/cogweb-core/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second

	// ServiceTag is added to every point.
	ServiceTag  = "service"
	serviceName = "cogweb"
)

// Logger receives asynchronous write failures. *logging.Logger satisfies it.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Client writes cogweb measurements to one InfluxDB bucket.
//
// Writes are batched and never block the caller. Once closed, writes are
// dropped silently.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   Logger

	closed      atomic.Bool
	writeErrors atomic.Uint64
}

// Connect pings the server in cfg and starts the batched writer. Write
// failures are counted and logged through logger, which may be nil.
// It returns ErrDisabled when cfg.Enabled is false.
func Connect(cfg config.InfluxDBConfig, logger Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = noopLogger{}
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: %s: server not healthy", ErrConnectionFailed, cfg.URL)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		logger:   logger,
	}
	go c.drainErrors()
	return c, nil
}

// clientOptions applies batch defaults for unset or negative values.
func clientOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds())).
		AddDefaultTag(ServiceTag, serviceName)
}

// drainErrors runs until the write API's error channel is closed by Close.
func (c *Client) drainErrors() {
	for err := range c.writeAPI.Errors() {
		c.writeErrors.Add(1)
		c.logger.Warn("influxdb write failed", "error", err)
	}
}

// write queues one point unless the client is closed.
func (c *Client) write(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	if c.closed.Load() || c.writeAPI == nil {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
}

// Flush sends buffered points and waits for the batch to be written.
func (c *Client) Flush() {
	if c.closed.Load() || c.writeAPI == nil {
		return
	}
	c.writeAPI.Flush()
}

// WriteErrors returns the number of batches the server rejected or that
// could not be delivered.
func (c *Client) WriteErrors() uint64 {
	return c.writeErrors.Load()
}

// Close flushes pending points and releases the client. Later calls, and
// calls on a zero Client, do nothing.
func (c *Client) Close() error {
	if c.client == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.client == nil || c.closed.Load() {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check: server not healthy")
	}
	return nil
}
