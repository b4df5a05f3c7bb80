package workerpool

// EventKind says what happened to a worker.
type EventKind string

const (
	EventSpawned    EventKind = "spawned"
	EventReaped     EventKind = "reaped"
	EventFailed     EventKind = "failed"
	EventAborted    EventKind = "aborted"
	EventTimedOut   EventKind = "timed_out"
	EventTerminated EventKind = "terminated"
)

// Event is published on the pool's broker whenever a worker is created or
// torn down. InvocationID and Err are set when the teardown settled an
// invocation.
type Event struct {
	Kind         EventKind `json:"kind"`
	WorkerID     string    `json:"worker_id"`
	InvocationID string    `json:"invocation_id,omitempty"`
	Err          string    `json:"error,omitempty"`
}
