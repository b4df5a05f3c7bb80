package workerpool

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/zjrosen/difflens/internal/log"
)

// maxLineSize bounds one JSON message on a stream, transfers included.
const maxLineSize = 64 << 20

// StreamWorker is a worker on the far side of a byte stream, typically a
// child process speaking newline-delimited JSON (see Serve).
type StreamWorker struct {
	id      string
	enc     *json.Encoder
	w       io.WriteCloser
	encMu   sync.Mutex
	replies chan Reply
	errors  chan error
	closeFn func() error
	once    sync.Once
	stopped chan struct{}
}

// NewStreamWorker writes requests to w and reads replies from r. closeFn, if
// not nil, runs once on Terminate after w is closed.
func NewStreamWorker(id string, r io.Reader, w io.WriteCloser, closeFn func() error) *StreamWorker {
	sw := &StreamWorker{
		id:      id,
		enc:     json.NewEncoder(w),
		w:       w,
		replies: make(chan Reply, 1),
		errors:  make(chan error, 1),
		closeFn: closeFn,
		stopped: make(chan struct{}),
	}
	go sw.read(r)
	return sw
}

func (sw *StreamWorker) read(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		var reply Reply
		if err := json.Unmarshal(scanner.Bytes(), &reply); err != nil {
			sw.fail(fmt.Errorf("decode reply: %w", err))
			return
		}
		select {
		case sw.replies <- reply:
		case <-sw.stopped:
			return
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	sw.fail(fmt.Errorf("worker stream closed: %w", err))
}

func (sw *StreamWorker) fail(err error) {
	select {
	case sw.errors <- err:
	case <-sw.stopped:
	}
}

func (sw *StreamWorker) Send(req Request) error {
	select {
	case <-sw.stopped:
		return errWorkerStopped
	default:
	}
	sw.encMu.Lock()
	defer sw.encMu.Unlock()
	if err := sw.enc.Encode(req); err != nil {
		return fmt.Errorf("send to %s: %w", sw.id, err)
	}
	return nil
}

func (sw *StreamWorker) Replies() <-chan Reply { return sw.replies }
func (sw *StreamWorker) Errors() <-chan error  { return sw.errors }

func (sw *StreamWorker) Terminate() error {
	var err error
	sw.once.Do(func() {
		close(sw.stopped)
		err = sw.w.Close()
		if sw.closeFn != nil {
			err = errors.Join(err, sw.closeFn())
		}
	})
	return err
}

// ProcessFactory returns a Factory that starts name with args as a child
// process per worker and speaks to it over stdin/stdout. The child's stderr
// is passed through.
func ProcessFactory(name string, args ...string) Factory {
	return func(ctx context.Context, id string) (Worker, error) {
		cmd := exec.Command(name, args...) // #nosec G204 -- command comes from our own binary path
		cmd.Stderr = os.Stderr
		cmd.Env = append(os.Environ(), "DIFFLENS_WORKER_ID="+id)

		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("worker stdin: %w", err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("worker stdout: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("start worker process: %w", err)
		}
		log.Debug(log.CatPool, "Started worker process", "workerID", id, "pid", cmd.Process.Pid)

		closeFn := func() error {
			_ = cmd.Process.Kill()
			err := cmd.Wait()
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				// Killed on purpose.
				return nil
			}
			return err
		}
		return NewStreamWorker(id, stdout, stdin, closeFn), nil
	}
}
