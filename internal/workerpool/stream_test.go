package workerpool

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// pipeWorker connects a StreamWorker to Serve running on a goroutine.
func pipeWorker(t *testing.T, reg *Registry) (*StreamWorker, <-chan error) {
	t.Helper()
	reqR, reqW := io.Pipe()
	repR, repW := io.Pipe()

	served := make(chan error, 1)
	go func() {
		err := Serve(context.Background(), reqR, repW, reg)
		_ = repW.Close()
		served <- err
	}()

	sw := NewStreamWorker("stream-1", repR, reqW, nil)
	t.Cleanup(func() { _ = sw.Terminate() })
	return sw, served
}

func TestStreamWorker_RoundTrip(t *testing.T) {
	reg, _ := testRegistry()
	sw, _ := pipeWorker(t, reg)

	require.NoError(t, sw.Send(Request{ID: "1", Name: "reverse", Transfer: [][]byte{[]byte("xyz")}}))

	select {
	case r := <-sw.Replies():
		require.Equal(t, "1", r.ID)
		require.Equal(t, ReplyResult, r.Kind)
		require.JSONEq(t, "3", string(r.Result))
		require.Equal(t, [][]byte{[]byte("zyx")}, r.Transfer)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply")
	}
}

func TestStreamWorker_TerminateStopsServe(t *testing.T) {
	reg, _ := testRegistry()
	sw, served := pipeWorker(t, reg)

	require.NoError(t, sw.Terminate())

	select {
	case err := <-served:
		require.NoError(t, err, "EOF on the request stream ends Serve cleanly")
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	require.Error(t, sw.Send(Request{ID: "2", Name: "echo"}))
}

func TestStreamWorker_ReportsBrokenStream(t *testing.T) {
	r, w := io.Pipe()
	sw := NewStreamWorker("stream-1", r, nopWriteCloser{io.Discard}, nil)
	t.Cleanup(func() { _ = sw.Terminate() })

	_, _ = w.Write([]byte("not json\n"))

	select {
	case err := <-sw.Errors():
		require.ErrorContains(t, err, "decode reply")
	case <-time.After(5 * time.Second):
		t.Fatal("no error reported")
	}
}

func TestPool_WithStreamWorkers(t *testing.T) {
	reg, _ := testRegistry()
	factory := func(_ context.Context, id string) (Worker, error) {
		reqR, reqW := io.Pipe()
		repR, repW := io.Pipe()
		go func() {
			_ = Serve(context.Background(), reqR, repW, reg)
			_ = repW.Close()
		}()
		return NewStreamWorker(id, repR, reqW, nil), nil
	}
	p := newTestPool(t, Config{Factory: factory, MaxWorkers: 2})

	got, err := Call[string](context.Background(), p, "echo", "over the wire")
	require.NoError(t, err)
	require.Equal(t, "over the wire", got)

	_, err = p.Invoke(context.Background(), "fail", nil)
	require.ErrorIs(t, err, ErrExecution)
}

func TestServe_StopsOnContext(t *testing.T) {
	reg, _ := testRegistry()
	r, _ := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Serve(ctx, r, io.Discard, reg)
	require.ErrorIs(t, err, context.Canceled)
}

func TestServe_RejectsGarbage(t *testing.T) {
	reg, _ := testRegistry()
	r, w := io.Pipe()
	go func() {
		_, _ = w.Write([]byte("{broken\n"))
	}()

	err := Serve(context.Background(), r, io.Discard, reg)
	var syntaxErr *json.SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
