package engine

import (
	"sync"

	"github.com/cogweb/cogweb-core/internal/command"
)

// Queue is an unbounded FIFO of commands.
//
// Any number of goroutines may Push concurrently; any number may Pop.
// Commands are popped in the order they were pushed.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*command.Command
	closed bool
}

// NewQueue creates an empty, open queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends cmd. Returns ErrQueueClosed once Close has been called.
func (q *Queue) Push(cmd *command.Command) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, cmd)
	q.cond.Signal()
	return nil
}

// Pop blocks until a command is available or the queue is closed.
// After Close it returns false immediately, leaving queued commands for Drain.
func (q *Queue) Pop() (*command.Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return nil, false
	}
	cmd := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return cmd, true
}

// Close stops the queue and wakes all waiting consumers. Safe to call twice.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Drain removes and returns every queued command.
func (q *Queue) Drain() []*command.Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
