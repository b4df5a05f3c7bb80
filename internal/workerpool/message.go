package workerpool

import (
	"context"
	"encoding/json"
)

// ReplyKind tags a worker reply.
type ReplyKind string

const (
	ReplyResult ReplyKind = "result"
	ReplyError  ReplyKind = "error"
)

// Request asks a worker to run the hosted function Name. Transfer buffers are
// handed over to the worker; the caller must not touch them afterwards.
type Request struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Args     json.RawMessage `json:"args,omitempty"`
	Transfer [][]byte        `json:"transfer,omitempty"`
}

// Reply answers the Request with the same ID.
type Reply struct {
	ID       string          `json:"id"`
	Kind     ReplyKind       `json:"kind"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Transfer [][]byte        `json:"transfer,omitempty"`
}

// Worker is an isolated execution context reached only by messages. A worker
// runs one request at a time.
//
// Replies and Errors may be closed when the worker exits. Terminate must be
// safe to call more than once.
type Worker interface {
	Send(req Request) error
	Replies() <-chan Reply
	Errors() <-chan error
	Terminate() error
}

// Factory creates a worker. id is the pool-assigned worker id.
type Factory func(ctx context.Context, id string) (Worker, error)
