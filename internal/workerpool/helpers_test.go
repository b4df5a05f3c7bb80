package workerpool

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recorder backs the handlers of testRegistry.
type recorder struct {
	mu      sync.Mutex
	seen    []string
	release chan struct{}
	started chan string
}

func (r *recorder) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.seen)
}

func testRegistry() (*Registry, *recorder) {
	rec := &recorder{release: make(chan struct{}), started: make(chan string, 64)}
	reg := NewRegistry()

	reg.Register("echo", func(_ context.Context, args json.RawMessage, _ [][]byte) (any, [][]byte, error) {
		s, err := DecodeArgs[string](args)
		return s, nil, err
	})
	reg.Register("record", func(_ context.Context, args json.RawMessage, _ [][]byte) (any, [][]byte, error) {
		s, err := DecodeArgs[string](args)
		if err != nil {
			return nil, nil, err
		}
		rec.mu.Lock()
		rec.seen = append(rec.seen, s)
		rec.mu.Unlock()
		return s, nil, nil
	})
	reg.Register("block", func(ctx context.Context, args json.RawMessage, _ [][]byte) (any, [][]byte, error) {
		s, _ := DecodeArgs[string](args)
		rec.started <- s
		select {
		case <-rec.release:
			return s, nil, nil
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	})
	reg.Register("fail", func(context.Context, json.RawMessage, [][]byte) (any, [][]byte, error) {
		return nil, nil, errors.New("boom")
	})
	reg.Register("panic", func(context.Context, json.RawMessage, [][]byte) (any, [][]byte, error) {
		panic("kaboom")
	})
	reg.Register("reverse", func(_ context.Context, _ json.RawMessage, in [][]byte) (any, [][]byte, error) {
		if len(in) == 0 {
			return nil, nil, errors.New("no buffer")
		}
		buf := in[0]
		slices.Reverse(buf)
		return len(buf), [][]byte{buf}, nil
	})
	return reg, rec
}

// countingFactory wraps LocalFactory and tracks how many workers are alive.
type countingFactory struct {
	reg     *Registry
	live    atomic.Int64
	peak    atomic.Int64
	created atomic.Int64
}

func (f *countingFactory) New(context.Context, string) (Worker, error) {
	n := f.live.Add(1)
	f.created.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return &countedWorker{LocalWorker: NewLocalWorker(f.reg), f: f}, nil
}

type countedWorker struct {
	*LocalWorker
	f    *countingFactory
	once sync.Once
}

func (w *countedWorker) Terminate() error {
	w.once.Do(func() { w.f.live.Add(-1) })
	return w.LocalWorker.Terminate()
}

// scriptedWorker forwards requests to the test, which answers by writing to
// its channels directly.
type scriptedWorker struct {
	sent       chan Request
	replies    chan Reply
	errs       chan error
	terminated atomic.Bool
}

func newScriptedWorker() *scriptedWorker {
	return &scriptedWorker{
		sent:    make(chan Request, 8),
		replies: make(chan Reply, 8),
		errs:    make(chan error, 1),
	}
}

func (w *scriptedWorker) Send(req Request) error {
	if w.terminated.Load() {
		return errWorkerStopped
	}
	w.sent <- req
	return nil
}

func (w *scriptedWorker) Replies() <-chan Reply { return w.replies }
func (w *scriptedWorker) Errors() <-chan error  { return w.errs }

func (w *scriptedWorker) Terminate() error {
	w.terminated.Store(true)
	return nil
}

func newTestPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	p, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Terminate() })
	return p
}

// invokeAsync runs Invoke on its own goroutine.
func invokeAsync(ctx context.Context, p *Pool, name string, args any, opts ...Option) <-chan error {
	errc := make(chan error, 1)
	go func() {
		_, err := p.Invoke(ctx, name, args, opts...)
		errc <- err
	}()
	return errc
}

func waitErr(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("invocation did not settle")
		return nil
	}
}

func waitStarted(t *testing.T, rec *recorder) string {
	t.Helper()
	select {
	case s := <-rec.started:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not start")
		return ""
	}
}

func waitQueued(t *testing.T, p *Pool, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return p.Stats().Queued == n }, 5*time.Second, time.Millisecond)
}
