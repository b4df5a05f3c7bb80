package workerpool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/zjrosen/difflens/internal/log"
)

// Serve is the worker side of a StreamWorker: it reads requests from r one
// line at a time, runs them against reg and writes replies to w. It returns
// nil when r reaches EOF and ctx.Err() when ctx ends.
func Serve(ctx context.Context, r io.Reader, w io.Writer, reg *Registry) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	enc := json.NewEncoder(w)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read request: %w", err)
					}
				default:
				}
				return nil
			}
			var req Request
			if err := json.Unmarshal(line, &req); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}
			log.Debug(log.CatEngine, "Serving request", "id", req.ID, "name", req.Name)
			if err := enc.Encode(reg.Handle(ctx, req)); err != nil {
				return fmt.Errorf("write reply: %w", err)
			}
		}
	}
}
