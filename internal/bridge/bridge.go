// Package bridge hands commands from HTTP goroutines to the engine and waits,
// for a bounded time, for them to complete.
//
// Submit is the only call that may block an HTTP handler. It either returns
// the command's result as an Outcome, gives up after the timeout (marking the
// command abandoned so the engine drops the late result), or fails
// immediately with ErrEngineUnavailable once the bridge or engine is closing.
package bridge

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cogweb/cogweb-core/internal/command"
)

// DefaultTimeout bounds how long Submit waits for the engine.
const DefaultTimeout = 100 * time.Millisecond

// ErrEngineUnavailable is returned when the engine no longer accepts commands.
var ErrEngineUnavailable = errors.New("engine unavailable")

// Enqueuer is the part of the engine the bridge needs.
type Enqueuer interface {
	// Enqueue hands a command to the engine's workers.
	Enqueue(cmd *command.Command) error
}

// Recorder receives one sample per dispatched command.
type Recorder interface {
	RecordDispatch(operation, outcome string, duration time.Duration)
}

// Logger defines the logging interface used by the bridge.
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

// Options configures a Bridge. Zero values are valid.
type Options struct {
	// Timeout is the default wait for Submit. Defaults to DefaultTimeout.
	Timeout  time.Duration
	Recorder Recorder
	Logger   Logger
}

// Stats holds dispatch counters.
type Stats struct {
	Submitted   uint64 `json:"submitted"`
	Success     uint64 `json:"success"`
	EngineError uint64 `json:"engine_error"`
	Timeout     uint64 `json:"timeout"`
	Unavailable uint64 `json:"unavailable"`
	InFlight    int64  `json:"in_flight"`
}

// Bridge is the synchronous front of the engine's asynchronous queue.
//
// Thread Safety: Submit is safe for concurrent use by any number of
// goroutines.
type Bridge struct {
	engine   Enqueuer
	timeout  time.Duration
	recorder Recorder
	logger   Logger

	mu       sync.RWMutex // guards closing against inflight.Add
	closing  bool
	inflight sync.WaitGroup

	submitted   atomic.Uint64
	success     atomic.Uint64
	engineError atomic.Uint64
	timedOut    atomic.Uint64
	unavailable atomic.Uint64
	active      atomic.Int64
}

// New creates a bridge in front of engine.
func New(engine Enqueuer, opts Options) *Bridge {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{
		engine:   engine,
		timeout:  opts.Timeout,
		recorder: opts.Recorder,
		logger:   logger,
	}
}

// Timeout returns the default wait used by Submit.
func (b *Bridge) Timeout() time.Duration {
	return b.timeout
}

// Submit dispatches cmd and waits up to the default timeout.
func (b *Bridge) Submit(cmd *command.Command) (command.Outcome, error) {
	return b.SubmitTimeout(cmd, b.timeout)
}

// SubmitTimeout dispatches cmd and waits up to timeout.
//
// The returned Outcome is Success, EngineError or Timeout. The only error is
// ErrEngineUnavailable. A client going away does not cancel the command;
// giving up on timeout is a local decision and the engine still runs it.
func (b *Bridge) SubmitTimeout(cmd *command.Command, timeout time.Duration) (command.Outcome, error) {
	b.mu.RLock()
	if b.closing {
		b.mu.RUnlock()
		b.refuse(cmd, 0)
		return command.Outcome{}, ErrEngineUnavailable
	}
	b.inflight.Add(1)
	b.mu.RUnlock()
	defer b.inflight.Done()

	b.active.Add(1)
	defer b.active.Add(-1)

	start := time.Now()
	if err := b.engine.Enqueue(cmd); err != nil {
		b.refuse(cmd, time.Since(start))
		b.logger.Warn("enqueue failed", "id", cmd.ID, "operation", cmd.Operation, "error", err)
		return command.Outcome{}, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	b.submitted.Add(1)

	outcome := b.wait(cmd, timeout)
	elapsed := time.Since(start)

	switch outcome.Kind {
	case command.KindSuccess:
		b.success.Add(1)
	case command.KindTimeout:
		b.timedOut.Add(1)
	default:
		b.engineError.Add(1)
	}
	if b.recorder != nil {
		b.recorder.RecordDispatch(cmd.Operation, outcome.Kind.String(), elapsed)
	}
	b.logger.Debug("command dispatched",
		"id", cmd.ID,
		"operation", cmd.Operation,
		"outcome", outcome.Kind.String(),
		"duration", elapsed,
	)
	return outcome, nil
}

// Creator builds commands by operation name.
type Creator interface {
	Create(name string, params command.Params) (*command.Command, error)
}

// Call creates a command for op from reg and submits it with the default
// timeout. It is for callers outside an HTTP request that still need engine
// data, such as metrics collection.
func (b *Bridge) Call(reg Creator, op string, params command.Params) (command.Outcome, error) {
	cmd, err := reg.Create(op, params)
	if err != nil {
		return command.Outcome{}, err
	}
	return b.Submit(cmd)
}

// refuse counts and records a command the engine never received.
func (b *Bridge) refuse(cmd *command.Command, elapsed time.Duration) {
	b.unavailable.Add(1)
	if b.recorder != nil {
		b.recorder.RecordDispatch(cmd.Operation, command.KindUnavailable.String(), elapsed)
	}
}

func (b *Bridge) wait(cmd *command.Command, timeout time.Duration) command.Outcome {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-cmd.Done():
		return resultOutcome(cmd)
	case <-timer.C:
		if cmd.Abandon() {
			return command.Timeout()
		}
		// Completed between the timer firing and Abandon; the signal is
		// already raised so this receive does not block.
		<-cmd.Done()
		return resultOutcome(cmd)
	}
}

func resultOutcome(cmd *command.Command) command.Outcome {
	result, err := cmd.Result()
	if err != nil {
		return command.EngineError(err.Error())
	}
	return command.Success(result)
}

// Close refuses new submissions and waits for in-flight Submit calls to
// return. Each of those returns within its timeout, so Close is bounded.
// Safe to call more than once.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closing = true
	b.mu.Unlock()

	b.inflight.Wait()
	b.logger.Info("dispatch bridge closed")
}

// Stats returns current counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Submitted:   b.submitted.Load(),
		Success:     b.success.Load(),
		EngineError: b.engineError.Load(),
		Timeout:     b.timedOut.Load(),
		Unavailable: b.unavailable.Load(),
		InFlight:    b.active.Load(),
	}
}
