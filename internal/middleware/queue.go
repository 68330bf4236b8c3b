package middleware

import "sync"

// writeRequest is either a serialized snapshot or a flush barrier.
type writeRequest struct {
	data    string
	barrier chan error
}

// writeQueue is a thread-safe FIFO queue feeding the persistence writer.
//
// The queue is unbounded so a commit never blocks on storage. It uses a
// buffered signal channel (size 1) that the writer blocks on until work
// arrives or the queue is closed.
type writeQueue struct {
	mu       sync.Mutex
	requests []writeRequest
	closed   bool
	signal   chan struct{}
}

func newWriteQueue() *writeQueue {
	return &writeQueue{
		requests: make([]writeRequest, 0, 8),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a request to the back of the queue.
// Returns false if the queue is closed.
func (q *writeQueue) Enqueue(r writeRequest) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.requests = append(q.requests, r)

	// Non-blocking: a buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// DrainAll removes and returns every queued request in order.
func (q *writeQueue) DrainAll() []writeRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return nil
	}
	batch := q.requests
	q.requests = make([]writeRequest, 0, 8)
	return batch
}

// Wait returns a channel that signals when requests may be available.
// The channel is closed when the queue is closed.
func (q *writeQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *writeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Close stops accepting requests and wakes the writer.
func (q *writeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
