package workerpool

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/zjrosen/difflens/internal/log"
)

// Handler is a function hosted by a worker. It receives the raw JSON args and
// any transferred buffers, and returns a JSON-encodable result plus buffers to
// transfer back.
type Handler func(ctx context.Context, args json.RawMessage, transfer [][]byte) (result any, out [][]byte, err error)

// Registry maps function names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds h under name, replacing any previous handler.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Handle runs req and always produces a reply. Handler errors and panics
// become error replies.
func (r *Registry) Handle(ctx context.Context, req Request) (reply Reply) {
	reply = Reply{ID: req.ID, Kind: ReplyError}

	h, ok := r.Lookup(req.Name)
	if !ok {
		reply.Error = fmt.Sprintf("%s: %q", ErrUnknownFunction, req.Name)
		return reply
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error(log.CatEngine, "Hosted function panic recovered",
				"name", req.Name,
				"panic", p,
				"stack", string(debug.Stack()))
			reply = Reply{ID: req.ID, Kind: ReplyError, Error: fmt.Sprintf("panic: %v", p)}
		}
	}()

	result, out, err := h(ctx, req.Args, req.Transfer)
	if err != nil {
		reply.Error = err.Error()
		return reply
	}
	data, err := json.Marshal(result)
	if err != nil {
		reply.Error = fmt.Sprintf("encode result: %v", err)
		return reply
	}
	return Reply{ID: req.ID, Kind: ReplyResult, Result: data, Transfer: out}
}

// DecodeArgs unmarshals args into T. Empty args decode to the zero value.
func DecodeArgs[T any](args json.RawMessage) (T, error) {
	var v T
	if len(args) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return v, fmt.Errorf("decode args: %w", err)
	}
	return v, nil
}
