package command

import (
	"context"
	"sync/atomic"
	"time"
)

// Request is the executable body of a command. Implementations are built by
// a Factory for every command, so they may keep per-call state.
type Request interface {
	// Execute runs on an engine worker. The returned value becomes the
	// success payload; a non-nil error becomes an engine error.
	Execute(ctx context.Context, params Params) (any, error)
}

// RequestFunc adapts an ordinary function to the Request interface.
type RequestFunc func(ctx context.Context, params Params) (any, error)

// Execute calls f(ctx, params).
func (f RequestFunc) Execute(ctx context.Context, params Params) (any, error) {
	return f(ctx, params)
}

// Command states.
const (
	statePending int32 = iota
	stateCompleted
	stateAbandoned
	stateDiscarded
)

// Command is one unit of work submitted to the engine.
//
// The completion signal is a channel closed exactly once by Complete.
// Result must only be read after Done has been closed.
type Command struct {
	ID        uint64
	Operation string
	Params    Params
	CreatedAt time.Time

	request Request
	state   atomic.Int32
	done    chan struct{}
	result  any
	err     error
}

// newCommand builds a pending command.
func newCommand(id uint64, op string, params Params, req Request) *Command {
	return &Command{
		ID:        id,
		Operation: op,
		Params:    params.Clone(),
		CreatedAt: time.Now(),
		request:   req,
		done:      make(chan struct{}),
	}
}

// Execute runs the command's request. It does not complete the command.
func (c *Command) Execute(ctx context.Context) (any, error) {
	return c.request.Execute(ctx, c.Params)
}

// Complete stores the result and raises the completion signal.
//
// It returns ErrAbandoned if the waiter already gave up (the result is
// dropped) and ErrAlreadyCompleted on any further call.
func (c *Command) Complete(result any, err error) error {
	if c.state.CompareAndSwap(statePending, stateCompleted) {
		c.result = result
		c.err = err
		close(c.done)
		return nil
	}
	if c.state.CompareAndSwap(stateAbandoned, stateDiscarded) {
		return ErrAbandoned
	}
	return ErrAlreadyCompleted
}

// Abandon marks the command as no longer awaited.
// It returns false if the command has already been completed, in which case
// the caller should read the result instead.
func (c *Command) Abandon() bool {
	return c.state.CompareAndSwap(statePending, stateAbandoned)
}

// Done returns a channel closed when the command completes.
func (c *Command) Done() <-chan struct{} {
	return c.done
}

// Result returns the stored result. Only valid after Done is closed.
func (c *Command) Result() (any, error) {
	return c.result, c.err
}

// Abandoned reports whether the waiter gave up on the command.
func (c *Command) Abandoned() bool {
	s := c.state.Load()
	return s == stateAbandoned || s == stateDiscarded
}
