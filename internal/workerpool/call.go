package workerpool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type callState int

const (
	stateQueued callState = iota
	stateRunning
	stateDone
)

type outcome struct {
	result   json.RawMessage
	transfer [][]byte
	err      error
}

// call is one invocation. All fields past done are guarded by the pool mutex.
type call struct {
	id       string
	name     string
	args     json.RawMessage
	transfer [][]byte
	timeout  time.Duration
	seq      uint64
	done     chan outcome

	priority int
	state    callState
	slot     *slot
	timer    *time.Timer
	received *[][]byte
}

// finish settles c. Only the first outcome counts.
func (c *call) finish(out outcome) bool {
	if c.state == stateDone {
		return false
	}
	c.state = stateDone
	c.slot = nil
	if c.timer != nil {
		c.timer.Stop()
	}
	c.done <- out
	return true
}

// Option configures one invocation.
type Option func(*call)

// WithTransfer hands buffers to the worker. The caller gives up ownership.
func WithTransfer(bufs ...[]byte) Option {
	return func(c *call) { c.transfer = bufs }
}

// WithTimeout overrides Config.Timeout for this invocation. The clock starts
// when a worker picks the invocation up.
func WithTimeout(d time.Duration) Option {
	return func(c *call) { c.timeout = d }
}

// WithPriority sets the queue priority; lower runs first. The default is 0.
func WithPriority(p int) Option {
	return func(c *call) { c.priority = p }
}

// WithID stores the invocation id in *id before the invocation is queued, so
// another goroutine can pass it to SetPriority.
func WithID(id *string) Option {
	return func(c *call) {
		if id != nil {
			*id = c.id
		}
	}
}

// WithReceived stores buffers transferred back by the worker in *bufs.
func WithReceived(bufs *[][]byte) Option {
	return func(c *call) { c.received = bufs }
}

// Call invokes name on p and decodes the result into T.
func Call[T any](ctx context.Context, p *Pool, name string, args any, opts ...Option) (T, error) {
	var v T
	raw, err := p.Invoke(ctx, name, args, opts...)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode %s result: %w", name, err)
	}
	return v, nil
}
