// Package workerpool runs named functions in a bounded set of isolated
// workers. Invocations queue by priority, workers are created lazily and
// reaped when idle, and every invocation settles exactly once: with a result,
// or with ErrAborted, ErrTimeout, ErrTerminated or an *ExecutionError.
package workerpool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zjrosen/difflens/internal/log"
	"github.com/zjrosen/difflens/internal/metrics"
	"github.com/zjrosen/difflens/internal/pubsub"
	"github.com/zjrosen/difflens/internal/tracing"
)

const (
	DefaultAutoTerminate = 60 * time.Second
	DefaultSweepInterval = 10 * time.Second
	DefaultTimeout       = 10 * time.Second
	fallbackMaxWorkers   = 4
)

// DefaultMaxWorkers returns the number of CPUs, or 4 when that is unknown.
func DefaultMaxWorkers() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return fallbackMaxWorkers
}

// Config holds configuration for the pool. Zero values select defaults.
type Config struct {
	// Factory creates workers. Required.
	Factory Factory

	MaxWorkers    int           // Maximum live workers (default: NumCPU)
	AutoTerminate time.Duration // Idle time before a worker is reaped (default: 60s)
	SweepInterval time.Duration // How often idle workers are checked (default: 10s)
	Timeout       time.Duration // Per-invocation timeout from dispatch (default: 10s)
	MaxQueue      int           // Queued invocations allowed; 0 is unbounded
}

// slot is one live worker and what it is doing.
type slot struct {
	id         string
	w          Worker
	current    *call
	lastActive time.Time
	gone       chan struct{}
}

func (s *slot) alive() bool {
	select {
	case <-s.gone:
		return false
	default:
		return true
	}
}

// Pool dispatches invocations to workers.
type Pool struct {
	factory       Factory
	maxWorkers    int
	autoTerminate time.Duration
	timeout       time.Duration

	mu       sync.Mutex
	queue    *callQueue
	workers  map[string]*slot
	spawning int // reserved by dispatchers running the factory
	retiring int // torn down, Terminate still running
	seq      uint64
	closed   bool

	workerCounter uint64
	counters      metrics.PoolCounters
	broker        *pubsub.Broker[Event]
	stop          chan struct{}
	wg            sync.WaitGroup
}

// New creates a pool and starts its idle sweep.
func New(cfg Config) (*Pool, error) {
	if cfg.Factory == nil {
		return nil, errors.New("workerpool: Config.Factory is required")
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers()
	}
	if cfg.AutoTerminate <= 0 {
		cfg.AutoTerminate = DefaultAutoTerminate
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	p := &Pool{
		factory:       cfg.Factory,
		maxWorkers:    cfg.MaxWorkers,
		autoTerminate: cfg.AutoTerminate,
		timeout:       cfg.Timeout,
		queue:         newCallQueue(cfg.MaxQueue),
		workers:       make(map[string]*slot),
		broker:        pubsub.NewBroker[Event](),
		stop:          make(chan struct{}),
	}

	p.wg.Add(1)
	go p.sweep(cfg.SweepInterval)

	log.Debug(log.CatPool, "Pool created",
		"maxWorkers", cfg.MaxWorkers,
		"autoTerminate", cfg.AutoTerminate,
		"timeout", cfg.Timeout)
	return p, nil
}

// Invoke runs the function name with args (JSON-encoded unless already a
// json.RawMessage) on a worker and returns its JSON result. Cancelling ctx
// aborts the invocation, queued or running.
func (p *Pool) Invoke(ctx context.Context, name string, args any, opts ...Option) (json.RawMessage, error) {
	raw, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}

	c := &call{
		id:      uuid.NewString(),
		name:    name,
		args:    raw,
		timeout: p.timeout,
		done:    make(chan outcome, 1),
	}
	for _, opt := range opts {
		opt(c)
	}

	ctx, span := tracing.Tracer().Start(ctx, tracing.SpanPoolInvoke)
	defer span.End()
	span.SetAttributes(
		attribute.String(tracing.AttrInvocationID, c.id),
		attribute.String(tracing.AttrInvocationName, name),
		attribute.Int(tracing.AttrInvocationPriority, c.priority),
	)

	if err := p.enqueue(ctx, c); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	p.dispatch()

	var out outcome
	select {
	case out = <-c.done:
	case <-ctx.Done():
		p.abort(c, context.Cause(ctx))
		out = <-c.done
	}

	if out.err != nil {
		span.SetStatus(codes.Error, out.err.Error())
		span.SetAttributes(attribute.String(tracing.AttrInvocationOutcome, outcomeLabel(out.err)))
		return nil, out.err
	}
	span.SetAttributes(attribute.String(tracing.AttrInvocationOutcome, "ok"))
	if c.received != nil {
		*c.received = out.transfer
	}
	return out.result, nil
}

func encodeArgs(args any) (json.RawMessage, error) {
	switch a := args.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return a, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("workerpool: encode args: %w", err)
	}
	return raw, nil
}

func (p *Pool) enqueue(ctx context.Context, c *call) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		p.counters.Aborted.Add(1)
		return aborted(context.Cause(ctx))
	}
	p.seq++
	c.seq = p.seq
	c.state = stateQueued
	if err := p.queue.push(c); err != nil {
		return err
	}
	return nil
}

// SetPriority changes the priority of a queued invocation. It reports false
// when id is not queued (unknown, already dispatched or settled).
func (p *Pool) SetPriority(id string, priority int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.setPriority(id, priority)
}

// dispatch hands queued invocations to idle workers, creating workers while
// under the limit. Factories run without the lock held; the reserved
// spawning count keeps concurrent dispatchers under MaxWorkers.
func (p *Pool) dispatch() {
	for {
		p.mu.Lock()
		if p.closed || p.queue.len() == 0 {
			p.mu.Unlock()
			return
		}

		s := p.idleLocked()
		if s == nil {
			if len(p.workers)+p.spawning+p.retiring >= p.maxWorkers {
				p.mu.Unlock()
				return
			}
			p.spawning++
			p.workerCounter++
			id := fmt.Sprintf("worker-%d", p.workerCounter)
			p.mu.Unlock()

			w, err := p.factory(context.Background(), id)

			p.mu.Lock()
			p.spawning--
			if err != nil {
				log.ErrorErr(log.CatPool, "Failed to create worker", err, "workerID", id)
				// Nothing is rejected if the queue emptied while the factory ran.
				if c, ok := p.queue.pop(); ok {
					c.finish(outcome{err: &ExecutionError{WorkerID: id, Name: c.name, Message: err.Error(), Err: err}})
				}
				p.mu.Unlock()
				continue
			}
			if p.closed {
				p.mu.Unlock()
				_ = w.Terminate()
				return
			}
			s = &slot{id: id, w: w, lastActive: time.Now(), gone: make(chan struct{})}
			p.workers[id] = s
			p.counters.Spawned.Add(1)
			p.broker.Publish(pubsub.CreatedEvent, Event{Kind: EventSpawned, WorkerID: id})
			log.Debug(log.CatPool, "Spawned worker", "workerID", id, "live", len(p.workers))

			p.wg.Add(1)
			go p.watch(s)
		}

		// Another dispatcher may have drained the queue while the factory
		// ran; the new worker then stays idle until the next call.
		c, ok := p.queue.pop()
		if !ok {
			p.mu.Unlock()
			return
		}
		c.state = stateRunning
		c.slot = s
		s.current = c
		s.lastActive = time.Now()
		c.timer = time.AfterFunc(c.timeout, func() { p.expire(c) })
		p.counters.Dispatched.Add(1)
		req := Request{ID: c.id, Name: c.name, Args: c.args, Transfer: c.transfer}
		c.transfer = nil
		p.mu.Unlock()

		if err := s.w.Send(req); err != nil {
			p.mu.Lock()
			p.failLocked(s, fmt.Errorf("send: %w", err))
			p.mu.Unlock()
		}
	}
}

// idleLocked returns a live worker with nothing assigned.
func (p *Pool) idleLocked() *slot {
	for _, s := range p.workers {
		if s.current == nil {
			return s
		}
	}
	return nil
}

// watch relays a worker's messages until the worker is torn down.
func (p *Pool) watch(s *slot) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatPool, "Worker watcher panic recovered",
				"panic", r,
				"workerID", s.id,
				"stack", string(debug.Stack()))
			p.fail(s, fmt.Errorf("watcher panic: %v", r))
		}
	}()

	for {
		select {
		case <-s.gone:
			return
		case r, ok := <-s.w.Replies():
			if !ok {
				p.fail(s, errWorkerStopped)
				return
			}
			p.handleReply(s, r)
		case err, ok := <-s.w.Errors():
			if !ok {
				err = errWorkerStopped
			}
			p.fail(s, err)
			return
		}
	}
}

func (p *Pool) handleReply(s *slot, r Reply) {
	p.mu.Lock()
	if !s.alive() {
		p.mu.Unlock()
		return
	}

	c := s.current
	switch {
	case r.Kind != ReplyResult && r.Kind != ReplyError:
		log.Warn(log.CatPool, "Unknown reply kind from worker", "workerID", s.id, "kind", r.Kind)
		p.counters.Crashed.Add(1)
		p.teardownLocked(s, func(c *call) error {
			return &ExecutionError{WorkerID: s.id, Name: c.name, Message: fmt.Sprintf("unknown reply kind %q", r.Kind)}
		}, EventFailed)
		p.mu.Unlock()
		p.dispatch()
		return
	case c == nil || r.ID != c.id:
		log.Warn(log.CatPool, "Dropping reply for unassigned invocation", "workerID", s.id, "id", r.ID)
		p.mu.Unlock()
		return
	}

	s.current = nil
	s.lastActive = time.Now()
	if r.Kind == ReplyResult {
		p.counters.Completed.Add(1)
		c.finish(outcome{result: r.Result, transfer: r.Transfer})
	} else {
		p.counters.Failed.Add(1)
		c.finish(outcome{err: &ExecutionError{WorkerID: s.id, Name: c.name, Message: r.Error}})
	}
	p.mu.Unlock()
	p.dispatch()
}

// fail tears down a worker that crashed or could not be reached.
func (p *Pool) fail(s *slot, err error) {
	p.mu.Lock()
	p.failLocked(s, err)
	p.mu.Unlock()
	p.dispatch()
}

func (p *Pool) failLocked(s *slot, err error) {
	if !s.alive() {
		return
	}
	log.ErrorErr(log.CatPool, "Worker failed", err, "workerID", s.id)
	p.counters.Crashed.Add(1)
	p.teardownLocked(s, func(c *call) error {
		return &ExecutionError{WorkerID: s.id, Name: c.name, Message: err.Error(), Err: err}
	}, EventFailed)
}

// abort settles c with ErrAborted. A running invocation takes its worker down
// with it.
func (p *Pool) abort(c *call, cause error) {
	p.mu.Lock()
	switch c.state {
	case stateQueued:
		p.queue.remove(c)
		p.counters.Aborted.Add(1)
		c.finish(outcome{err: aborted(cause)})
		log.Debug(log.CatPool, "Aborted queued invocation", "id", c.id, "name", c.name)
	case stateRunning:
		s := c.slot
		p.counters.Aborted.Add(1)
		p.teardownLocked(s, func(*call) error { return aborted(cause) }, EventAborted)
		log.Debug(log.CatPool, "Aborted running invocation", "id", c.id, "name", c.name, "workerID", s.id)
	}
	p.mu.Unlock()
	p.dispatch()
}

// expire fires when a dispatched invocation's timer runs out.
func (p *Pool) expire(c *call) {
	p.mu.Lock()
	if c.state != stateRunning {
		p.mu.Unlock()
		return
	}
	s := c.slot
	log.Warn(log.CatPool, "Invocation timed out", "id", c.id, "name", c.name, "workerID", s.id, "timeout", c.timeout)
	p.counters.TimedOut.Add(1)
	p.teardownLocked(s, func(*call) error { return ErrTimeout }, EventTimedOut)
	p.mu.Unlock()
	p.dispatch()
}

// teardownLocked removes s from the pool, settles its current invocation
// with callErr(c) and terminates the worker in the background. Every
// invocation settled here counts as failed. The worker keeps its place
// against MaxWorkers until Terminate returns.
func (p *Pool) teardownLocked(s *slot, callErr func(*call) error, kind EventKind) {
	if !s.alive() {
		return
	}
	close(s.gone)
	delete(p.workers, s.id)

	ev := Event{Kind: kind, WorkerID: s.id}
	if c := s.current; c != nil {
		s.current = nil
		err := callErr(c)
		ev.InvocationID = c.id
		ev.Err = err.Error()
		if c.finish(outcome{err: err}) {
			p.counters.Failed.Add(1)
		}
	}
	p.broker.Publish(pubsub.DeletedEvent, ev)

	p.retiring++
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := s.w.Terminate(); err != nil {
			log.ErrorErr(log.CatPool, "Failed to terminate worker", err, "workerID", s.id)
		}
		p.mu.Lock()
		p.retiring--
		p.mu.Unlock()
		p.dispatch()
	}()
}

// sweep reaps idle workers until the pool stops.
func (p *Pool) sweep(interval time.Duration) {
	defer p.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case now := <-ticker.C:
			p.reapIdle(now)
		}
	}
}

func (p *Pool) reapIdle(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.workers {
		if s.current == nil && now.Sub(s.lastActive) >= p.autoTerminate {
			log.Debug(log.CatPool, "Reaping idle worker", "workerID", s.id, "idle", now.Sub(s.lastActive))
			p.counters.Reaped.Add(1)
			p.teardownLocked(s, nil, EventReaped)
		}
	}
}

// Terminate stops the sweep, tears down every worker and settles all pending
// invocations with ErrTerminated. Later calls to Invoke return ErrPoolClosed.
// It waits for workers to finish terminating.
func (p *Pool) Terminate() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.stop)

	for _, c := range p.queue.drain() {
		p.counters.Terminated.Add(1)
		c.finish(outcome{err: ErrTerminated})
	}
	for _, s := range p.workers {
		if s.current != nil {
			p.counters.Terminated.Add(1)
		}
		p.teardownLocked(s, func(*call) error { return ErrTerminated }, EventTerminated)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.broker.Close()
	log.Debug(log.CatPool, "Pool terminated")
	return nil
}

// Stats returns current gauges and totals.
func (p *Pool) Stats() metrics.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	busy := 0
	for _, s := range p.workers {
		if s.current != nil {
			busy++
		}
	}
	return p.counters.Snapshot(len(p.workers), busy, p.queue.len())
}

// Events subscribes to worker lifecycle events. The channel closes when ctx
// ends or the pool terminates.
func (p *Pool) Events(ctx context.Context) <-chan pubsub.Event[Event] {
	return p.broker.Subscribe(ctx)
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrAborted):
		return "aborted"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTerminated):
		return "terminated"
	case errors.Is(err, ErrExecution):
		return "failed"
	default:
		return "error"
	}
}
