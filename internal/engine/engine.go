package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cogweb/cogweb-core/internal/atomspace"
	"github.com/cogweb/cogweb-core/internal/command"
)

// Logger defines the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MQTTClient is the interface for publishing atom events to the broker.
type MQTTClient interface {
	// Publish sends a message to the specified MQTT topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// EventAtomCreated is the WebSocket channel for newly created atoms.
const EventAtomCreated = "atom.created"

// Options configures an Engine. Zero values are valid.
type Options struct {
	// Workers is the number of goroutines executing commands. Default 1.
	Workers int

	// MQTT publishes atom events when set together with AtomTopic.
	MQTT MQTTClient

	// AtomTopic builds the MQTT topic for a created atom of the given type.
	AtomTopic func(atomType string) string

	// QoS is the MQTT quality of service for atom events.
	QoS byte

	// Hub broadcasts atom events to WebSocket clients.
	Hub WSHub

	Logger Logger
}

// Stats is a point-in-time snapshot of engine counters. It holds nothing
// from the AtomSpace; atom counts are read with the "stats" operation.
type Stats struct {
	Workers    int    `json:"workers"`
	QueueDepth int    `json:"queue_depth"`
	Executed   uint64 `json:"executed"`
	Failed     uint64 `json:"failed"`
	Discarded  uint64 `json:"discarded"`
}

// Engine is the single owner of an AtomSpace.
//
// Work reaches it only as commands pushed onto its queue; worker goroutines
// pop them in FIFO order, execute them and raise their completion signal.
// Nothing outside the engine reads or writes the space.
//
// Thread Safety: Enqueue is safe for concurrent use. Register must only be
// called before Start.
type Engine struct {
	space    *atomspace.AtomSpace
	registry *command.Registry
	queue    *Queue
	opts     Options
	logger   Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	workers sync.WaitGroup
	events  sync.WaitGroup

	executed  atomic.Uint64
	failed    atomic.Uint64
	discarded atomic.Uint64
}

// New creates an engine owning space. Operations are bound in registry.
func New(space *atomspace.AtomSpace, registry *command.Registry, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		space:    space,
		registry: registry,
		queue:    NewQueue(),
		opts:     opts,
		logger:   logger,
	}
}

// Register binds an operation name so commands for it can be created and
// executed. It fails once the engine has started.
func (e *Engine) Register(name string, factory command.Factory) error {
	return e.registry.Register(name, factory)
}

// Registry returns the command registry the engine executes from.
func (e *Engine) Registry() *command.Registry {
	return e.registry
}

// Start seals the registry and launches the worker goroutines.
//
// Commands run with a context carrying ctx's values but not its
// cancellation; it is cancelled by Stop once the workers have drained, so a
// shutdown signal cannot fail commands that are still being answered.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return ErrAlreadyStarted
	}
	e.started = true
	e.registry.Seal()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	for i := 0; i < e.opts.Workers; i++ {
		e.workers.Add(1)
		go e.worker(runCtx, i)
	}

	e.logger.Info("engine started",
		"workers", e.opts.Workers,
		"operations", len(e.registry.Names()),
	)
	return nil
}

// Stop closes the queue, waits for running commands to finish and completes
// any still-queued command with ErrShuttingDown. Safe to call more than once.
func (e *Engine) Stop() {
	e.queue.Close()
	e.workers.Wait()

	pending := e.queue.Drain()
	for _, cmd := range pending {
		e.complete(cmd, nil, ErrShuttingDown)
	}

	e.events.Wait()

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	if len(pending) > 0 {
		e.logger.Warn("engine stopped with queued commands", "count", len(pending))
	} else {
		e.logger.Info("engine stopped")
	}
}

// Enqueue hands cmd to the workers. Returns ErrQueueClosed after Stop.
func (e *Engine) Enqueue(cmd *command.Command) error {
	return e.queue.Push(cmd)
}

// Stats returns current counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Workers:    e.opts.Workers,
		QueueDepth: e.queue.Len(),
		Executed:   e.executed.Load(),
		Failed:     e.failed.Load(),
		Discarded:  e.discarded.Load(),
	}
}

func (e *Engine) worker(ctx context.Context, id int) {
	defer e.workers.Done()
	e.logger.Debug("engine worker started", "worker", id)

	for {
		cmd, ok := e.queue.Pop()
		if !ok {
			e.logger.Debug("engine worker stopped", "worker", id)
			return
		}
		start := time.Now()
		result, err := e.execute(ctx, cmd)
		e.executed.Add(1)
		if err != nil {
			e.failed.Add(1)
		}
		e.complete(cmd, result, err)
		e.logger.Debug("command executed",
			"worker", id,
			"id", cmd.ID,
			"operation", cmd.Operation,
			"duration", time.Since(start),
			"error", err,
		)
	}
}

// execute runs cmd, converting a panic into an error.
func (e *Engine) execute(ctx context.Context, cmd *command.Command) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("request panicked",
				"id", cmd.ID,
				"operation", cmd.Operation,
				"panic", r,
			)
			result = nil
			err = fmt.Errorf("%w: %v", ErrRequestPanicked, r)
		}
	}()
	return cmd.Execute(ctx)
}

func (e *Engine) complete(cmd *command.Command, result any, err error) {
	cerr := cmd.Complete(result, err)
	switch {
	case cerr == nil:
	case errors.Is(cerr, command.ErrAbandoned):
		e.discarded.Add(1)
		e.logger.Debug("result discarded for abandoned command", "id", cmd.ID, "operation", cmd.Operation)
	default:
		e.logger.Warn("command completed twice", "id", cmd.ID, "operation", cmd.Operation)
	}
}

// atomCreated fans a new atom out to WebSocket clients and MQTT.
// MQTT publishing happens off the worker so a slow broker cannot stall it.
func (e *Engine) atomCreated(atom *atomspace.Atom) {
	if e.opts.Hub != nil {
		e.opts.Hub.Broadcast(EventAtomCreated, atom)
	}
	if e.opts.MQTT == nil || e.opts.AtomTopic == nil {
		return
	}

	payload, err := json.Marshal(atom)
	if err != nil {
		e.logger.Error("marshalling atom event", "handle", atom.Handle, "error", err)
		return
	}
	topic := e.opts.AtomTopic(atom.Type)

	e.events.Add(1)
	go func() {
		defer e.events.Done()
		if err := e.opts.MQTT.Publish(topic, payload, e.opts.QoS, false); err != nil {
			e.logger.Warn("publishing atom event", "topic", topic, "error", err)
		}
	}()
}
