package workerpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func queued(id string, priority int, seq uint64) *call {
	return &call{id: id, priority: priority, seq: seq}
}

func popIDs(q *callQueue) []string {
	var ids []string
	for {
		c, ok := q.pop()
		if !ok {
			return ids
		}
		ids = append(ids, c.id)
	}
}

func TestCallQueue_PriorityThenArrival(t *testing.T) {
	q := newCallQueue(0)
	require.NoError(t, q.push(queued("a", 5, 1)))
	require.NoError(t, q.push(queued("b", 1, 2)))
	require.NoError(t, q.push(queued("c", 3, 3)))
	require.NoError(t, q.push(queued("d", 1, 4)))
	require.NoError(t, q.push(queued("e", 0, 5)))

	require.Equal(t, []string{"e", "b", "d", "c", "a"}, popIDs(q))
}

func TestCallQueue_Full(t *testing.T) {
	q := newCallQueue(2)
	require.NoError(t, q.push(queued("a", 0, 1)))
	require.NoError(t, q.push(queued("b", 0, 2)))

	require.ErrorIs(t, q.push(queued("c", 0, 3)), ErrQueueFull)
	require.Equal(t, 2, q.len())
}

func TestCallQueue_SetPriorityKeepsArrivalOrder(t *testing.T) {
	q := newCallQueue(0)
	require.NoError(t, q.push(queued("a", 1, 1)))
	require.NoError(t, q.push(queued("b", 2, 2)))
	require.NoError(t, q.push(queued("c", 2, 3)))

	require.True(t, q.setPriority("c", 1))
	require.True(t, q.setPriority("a", 2))
	require.False(t, q.setPriority("missing", 0))

	require.Equal(t, []string{"c", "a", "b"}, popIDs(q))
}

func TestCallQueue_SetPriorityWhenFull(t *testing.T) {
	q := newCallQueue(2)
	require.NoError(t, q.push(queued("a", 1, 1)))
	require.NoError(t, q.push(queued("b", 1, 2)))

	require.True(t, q.setPriority("b", 0))
	require.Equal(t, []string{"b", "a"}, popIDs(q))
}

func TestCallQueue_RemoveAndDrain(t *testing.T) {
	q := newCallQueue(0)
	a, b, c := queued("a", 0, 1), queued("b", 0, 2), queued("c", 0, 3)
	for _, e := range []*call{a, b, c} {
		require.NoError(t, q.push(e))
	}

	require.True(t, q.remove(b))
	require.False(t, q.remove(b))
	require.Equal(t, []*call{a, c}, q.drain())
	require.Zero(t, q.len())
}
