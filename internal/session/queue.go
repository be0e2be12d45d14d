package session

import (
	"sync"

	"voxelnav/internal/pathcache"
	"voxelnav/internal/pathfinding"
	"voxelnav/internal/world"
)

// completion is a finished search waiting to be applied on the simulation thread.
type completion struct {
	generation  uint64
	key         pathcache.Key
	origin      world.Coord
	destination world.Coord
	options     pathfinding.Options
	result      pathfinding.Result
}

// completionQueue hands search results from workers back to Tick.
type completionQueue struct {
	mu      sync.Mutex
	pending []completion
}

func newCompletionQueue() *completionQueue {
	return &completionQueue{}
}

func (q *completionQueue) Enqueue(c completion) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, c)
}

func (q *completionQueue) Drain(max int) []completion {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	if max <= 0 || max >= len(q.pending) {
		batch := q.pending
		q.pending = nil
		return batch
	}
	batch := append([]completion(nil), q.pending[:max]...)
	remaining := copy(q.pending, q.pending[max:])
	clear(q.pending[remaining:])
	q.pending = q.pending[:remaining]
	return batch
}

func (q *completionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
