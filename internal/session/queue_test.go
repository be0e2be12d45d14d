package session

import (
	"testing"

	"voxelnav/internal/world"
)

func sampleCompletion(generation uint64) completion {
	return completion{generation: generation, destination: world.Coord{X: int(generation)}}
}

func TestCompletionQueueDrainReleasesReferences(t *testing.T) {
	q := newCompletionQueue()
	for i := 1; i <= 4; i++ {
		q.Enqueue(sampleCompletion(uint64(i)))
	}

	batch := q.Drain(0)
	if len(batch) != 4 {
		t.Fatalf("expected 4 completions in batch, got %d", len(batch))
	}
	if q.pending != nil {
		t.Fatalf("expected queue storage to be reset, got len=%d cap=%d", len(q.pending), cap(q.pending))
	}

	q.Enqueue(sampleCompletion(5))
	q.Enqueue(sampleCompletion(6))
	q.Enqueue(sampleCompletion(7))

	batch = q.Drain(2)
	if len(batch) != 2 || batch[0].generation != 5 || batch[1].generation != 6 {
		t.Fatalf("expected completions 5 and 6 in order, got %+v", batch)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 completion to remain in queue, got %d", q.Len())
	}
	if q.pending[0].generation != 7 {
		t.Fatalf("expected remaining completion to be 7, got %d", q.pending[0].generation)
	}
	if q.Drain(5)[0].generation != 7 || q.Drain(0) != nil {
		t.Fatalf("expected queue to empty")
	}
}
