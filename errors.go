package mediakit

import "errors"

// ErrQueueFull is returned by bounded queues when Push is attempted at
// capacity. The gateway checks depth before pushing, so seeing this error
// means two admissions raced for the last slot.
var ErrQueueFull = errors.New("mediakit: queue full")

// ErrNoOperation is returned when a dequeued job references an endpoint
// with no registered operation.
var ErrNoOperation = errors.New("mediakit: no operation registered")
