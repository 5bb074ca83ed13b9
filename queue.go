package mediakit

import (
	"context"
	"sync"
)

// Queue is a thread-safe FIFO of jobs. FIFO arrival order is the only
// ordering guarantee. Capacity is enforced by the admission gateway before
// Push, so implementations treat a full Push as a caller bug and fail fast.
type Queue interface {
	// Push appends a job. Bounded implementations return ErrQueueFull at
	// capacity instead of blocking.
	Push(ctx context.Context, job *Job) error
	// Pop blocks until a job is available or ctx is cancelled.
	Pop(ctx context.Context) (*Job, error)
	// Len returns the current depth. It is safe to call concurrently with
	// Push and Pop.
	Len() int
}

// MemoryQueue is the default in-process queue. Capacity is fixed at
// construction; 0 means unbounded.
type MemoryQueue struct {
	mu       sync.Mutex
	items    []*Job
	capacity int
	wake     chan struct{}
}

// NewMemoryQueue creates a queue with the given capacity. Negative values
// are treated as unbounded.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity < 0 {
		capacity = 0
	}
	return &MemoryQueue{
		capacity: capacity,
		wake:     make(chan struct{}, 1),
	}
}

// Push appends a job to the tail. It returns ErrQueueFull when a bounded
// queue is at capacity.
func (q *MemoryQueue) Push(ctx context.Context, job *Job) error {
	q.mu.Lock()
	if q.capacity > 0 && len(q.items) >= q.capacity {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.items = append(q.items, job)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes and returns the head job, blocking while the queue is empty.
func (q *MemoryQueue) Pop(ctx context.Context) (*Job, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			job := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				// keep the wake token alive for the next waiter
				select {
				case q.wake <- struct{}{}:
				default:
				}
			}
			return job, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.wake:
		}
	}
}

// Len returns the current queue depth.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the configured maximum depth (0 = unbounded).
func (q *MemoryQueue) Capacity() int { return q.capacity }
