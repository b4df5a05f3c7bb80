package workerpool

import "context"

// LocalWorker runs hosted functions on its own goroutine and talks to the
// pool only through channels.
type LocalWorker struct {
	reg      *Registry
	requests chan Request
	replies  chan Reply
	errors   chan error
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewLocalWorker starts a worker serving reg.
func NewLocalWorker(reg *Registry) *LocalWorker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &LocalWorker{
		reg:      reg,
		requests: make(chan Request, 1),
		replies:  make(chan Reply, 1),
		errors:   make(chan error, 1),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// LocalFactory returns a Factory producing LocalWorkers for reg.
func LocalFactory(reg *Registry) Factory {
	return func(context.Context, string) (Worker, error) {
		return NewLocalWorker(reg), nil
	}
}

func (w *LocalWorker) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case req := <-w.requests:
			reply := w.reg.Handle(w.ctx, req)
			select {
			case w.replies <- reply:
			case <-w.ctx.Done():
				return
			}
		}
	}
}

func (w *LocalWorker) Send(req Request) error {
	select {
	case <-w.ctx.Done():
		return errWorkerStopped
	default:
	}
	select {
	case w.requests <- req:
		return nil
	case <-w.ctx.Done():
		return errWorkerStopped
	}
}

func (w *LocalWorker) Replies() <-chan Reply { return w.replies }
func (w *LocalWorker) Errors() <-chan error  { return w.errors }

// Terminate cancels the running handler's context. The worker goroutine exits
// once the handler returns; Done is closed then.
func (w *LocalWorker) Terminate() error {
	w.cancel()
	return nil
}

// Done is closed when the worker goroutine has exited.
func (w *LocalWorker) Done() <-chan struct{} { return w.done }
