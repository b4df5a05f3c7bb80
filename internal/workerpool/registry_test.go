package workerpool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Handle(t *testing.T) {
	reg, _ := testRegistry()

	tests := []struct {
		name      string
		req       Request
		wantKind  ReplyKind
		wantError string
	}{
		{name: "result", req: Request{ID: "1", Name: "echo", Args: json.RawMessage(`"hi"`)}, wantKind: ReplyResult},
		{name: "handler error", req: Request{ID: "2", Name: "fail"}, wantKind: ReplyError, wantError: "boom"},
		{name: "panic", req: Request{ID: "3", Name: "panic"}, wantKind: ReplyError, wantError: "panic: kaboom"},
		{name: "unknown", req: Request{ID: "4", Name: "missing"}, wantKind: ReplyError, wantError: `unknown function: "missing"`},
		{name: "bad args", req: Request{ID: "5", Name: "echo", Args: json.RawMessage(`42`)}, wantKind: ReplyError, wantError: "decode args"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := reg.Handle(context.Background(), tt.req)
			require.Equal(t, tt.req.ID, reply.ID)
			require.Equal(t, tt.wantKind, reply.Kind)
			require.Contains(t, reply.Error, tt.wantError)
		})
	}
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	reg.Register("b", nil)
	reg.Register("a", nil)

	require.Equal(t, []string{"a", "b"}, reg.Names())
}

func TestDecodeArgs_Empty(t *testing.T) {
	v, err := DecodeArgs[map[string]int](nil)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestExecutionError_Unwrap(t *testing.T) {
	err := &ExecutionError{WorkerID: "worker-1", Name: "diffText", Message: "boom"}
	require.ErrorIs(t, err, ErrExecution)
	require.EqualError(t, err, "workerpool: diffText failed on worker-1: boom")
}
