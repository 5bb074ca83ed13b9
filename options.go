package mediakit

import (
	"net/http"
	"time"
)

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine, *dispatcherOptions)

// WithQueue replaces the default in-memory queue with another backend.
func WithQueue(q Queue) EngineOption {
	return func(e *Engine, _ *dispatcherOptions) {
		e.queue = q
	}
}

// WithLogger sets the engine logger.
func WithLogger(l Logger) EngineOption {
	return func(e *Engine, _ *dispatcherOptions) {
		if l != nil {
			e.log = l
		}
	}
}

// WithEncoder sets the serialization used for payloads, responses and
// webhook bodies.
func WithEncoder(enc Encoder) EngineOption {
	return func(e *Engine, _ *dispatcherOptions) {
		if enc != nil {
			e.enc = enc
		}
	}
}

// WithAdmissionHook registers a callback invoked after a job is enqueued.
// The hook runs on the request path and must be fast.
func WithAdmissionHook(fn func(*Job)) EngineOption {
	return func(e *Engine, _ *dispatcherOptions) {
		e.onAdmit = fn
	}
}

// WithCompletionHook registers a callback invoked by the worker loop with
// the finished job and its envelope, before webhook hand-off.
func WithCompletionHook(fn func(*Job, *Envelope)) EngineOption {
	return func(e *Engine, _ *dispatcherOptions) {
		e.onComplete = fn
	}
}

// WithHTTPClient replaces the webhook delivery client.
func WithHTTPClient(c *http.Client) EngineOption {
	return func(_ *Engine, d *dispatcherOptions) {
		if c != nil {
			d.client = c
		}
	}
}

// WithSleep replaces the dispatcher's backoff sleep. Tests substitute a
// recording or zero-delay function to assert attempt counts without
// wall-clock waits.
func WithSleep(fn func(time.Duration)) EngineOption {
	return func(_ *Engine, d *dispatcherOptions) {
		if fn != nil {
			d.sleep = fn
		}
	}
}

// WithBackoffUnit scales the exponential backoff between delivery
// attempts. The default unit is one second: delays of 1, 2, 4, ... units.
func WithBackoffUnit(unit time.Duration) EngineOption {
	return func(_ *Engine, d *dispatcherOptions) {
		if unit > 0 {
			d.unit = unit
		}
	}
}

// WithNotifyBuffer sizes the dispatcher submission channel. Submissions
// beyond the buffer while all workers are busy are dropped with a logged
// error rather than stalling the worker loop.
func WithNotifyBuffer(n int) EngineOption {
	return func(_ *Engine, d *dispatcherOptions) {
		if n > 0 {
			d.buffer = n
		}
	}
}
