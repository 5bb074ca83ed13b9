package mediakit

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Decision is the admission gateway's verdict for one request.
type Decision int

const (
	// DecideBypass executes the operation inline and returns the envelope.
	DecideBypass Decision = iota
	// DecideEnqueue admits the job and returns a 202 receipt.
	DecideEnqueue
	// DecideReject refuses the request with 429; no job is created.
	DecideReject
	// DecideExpire refuses the request with 408; the advisory pre-admission
	// wall-clock window was exceeded before dispatch.
	DecideExpire
)

// Decide is the admission decision as a pure function of payload, queue
// state and configuration:
//
//  1. If the request spent longer than the configured window before
//     reaching admission, expire it.
//  2. Bypass when the route is bypass-eligible or the payload carries no
//     webhook_url: with no asynchronous notification to perform, queueing
//     adds latency without benefit.
//  3. Reject when a finite capacity is configured and depth has reached it.
//  4. Otherwise enqueue.
func Decide(payload map[string]any, depth, capacity int, bypassEligible bool, elapsed, window time.Duration) Decision {
	if window > 0 && elapsed > window {
		return DecideExpire
	}
	if bypassEligible {
		return DecideBypass
	}
	if url, ok := stringField(payload, "webhook_url"); !ok || url == "" {
		return DecideBypass
	}
	if capacity > 0 && depth >= capacity {
		return DecideReject
	}
	return DecideEnqueue
}

// route holds per-endpoint admission settings.
type route struct {
	endpoint string
	op       Operation
	bypass   bool
	check    func(map[string]any) error
}

// RouteOption configures a single wrapped operation.
type RouteOption func(*route)

// BypassQueue marks the operation bypass-eligible: it always executes
// inline regardless of webhook_url.
func BypassQueue() RouteOption {
	return func(r *route) { r.bypass = true }
}

// WithPayloadCheck validates the decoded payload before admission. A
// non-nil error is surfaced synchronously as 400 and no job is created.
func WithPayloadCheck(fn func(map[string]any) error) RouteOption {
	return func(r *route) { r.check = fn }
}

// Handle wraps an operation with the admission gateway and returns the
// request handler. The endpoint label also registers the operation for
// queue backends that rebind work by reference.
func (e *Engine) Handle(endpoint string, op Operation, opts ...RouteOption) http.HandlerFunc {
	rt := &route{endpoint: endpoint, op: op}
	for _, opt := range opts {
		opt(rt)
	}
	e.register(endpoint, op)

	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		jobID := uuid.NewString()

		payload, err := e.decodePayload(r)
		if err != nil {
			e.writeJSON(w, 400, e.rejection(400, nil, jobID, "invalid JSON payload: "+err.Error()))
			return
		}
		callerID := payload["id"]
		if rt.check != nil {
			if cerr := rt.check(payload); cerr != nil {
				e.writeJSON(w, 400, e.rejection(400, callerID, jobID, cerr.Error()))
				return
			}
		}

		switch Decide(payload, e.queue.Len(), e.cfg.MaxQueueLength, rt.bypass, time.Since(started), e.cfg.RequestTimeout) {
		case DecideExpire:
			e.writeJSON(w, 408, e.rejection(408, callerID, jobID, "request timed out before admission"))

		case DecideReject:
			msg := fmt.Sprintf("MAX_QUEUE_LENGTH (%d) reached", e.cfg.MaxQueueLength)
			e.writeJSON(w, 429, e.rejection(429, callerID, jobID, msg))

		case DecideEnqueue:
			job := &Job{
				ID:         jobID,
				Endpoint:   endpoint,
				Payload:    payload,
				Work:       bindWork(rt.op, jobID, payload),
				AdmittedAt: time.Now(),
			}
			if perr := e.queue.Push(r.Context(), job); perr != nil {
				if perr == ErrQueueFull {
					msg := fmt.Sprintf("MAX_QUEUE_LENGTH (%d) reached", e.cfg.MaxQueueLength)
					e.writeJSON(w, 429, e.rejection(429, callerID, jobID, msg))
					return
				}
				e.log.Errorf("gateway: enqueue failed: job_id=%s endpoint=%s err=%v", jobID, endpoint, perr)
				e.writeJSON(w, 500, e.rejection(500, callerID, jobID, "enqueue failed"))
				return
			}
			if e.onAdmit != nil {
				e.onAdmit(job)
			}
			e.writeJSON(w, 202, &Receipt{
				Code:           202,
				ID:             callerID,
				JobID:          jobID,
				Message:        "processing",
				PID:            e.pid,
				QueueID:        e.queueID,
				MaxQueueLength: e.cfg.MaxQueueLength,
				QueueLength:    e.queue.Len(),
				BuildNumber:    BuildNumber,
			})

		default: // DecideBypass
			job := &Job{ID: jobID, Endpoint: endpoint, Payload: payload}
			runStart := time.Now()
			body, label, code := runBound(rt.op, jobID, payload)
			runTime := time.Since(runStart)
			env := e.envelope(job, body, label, code, runTime, 0, runTime)
			// synchronous responses omit the endpoint field
			env.Endpoint = ""
			e.writeJSON(w, code, env)
		}
	}
}

// bindWork captures the operation and its inputs as the job's zero-arg
// work function.
func bindWork(op Operation, jobID string, payload map[string]any) WorkFunc {
	return func() (any, string, int) {
		return op(jobID, payload)
	}
}

// runBound executes an operation inline with the same panic containment
// the worker loop applies.
func runBound(op Operation, jobID string, payload map[string]any) (body any, label string, code int) {
	defer func() {
		if r := recover(); r != nil {
			body, label, code = fmt.Sprintf("%v", r), "error", 500
		}
	}()
	return op(jobID, payload)
}

func (e *Engine) rejection(code int, callerID any, jobID, message string) *Rejection {
	return &Rejection{
		Code:        code,
		ID:          callerID,
		JobID:       jobID,
		Message:     message,
		PID:         e.pid,
		QueueID:     e.queueID,
		QueueLength: e.queue.Len(),
		BuildNumber: BuildNumber,
	}
}

// decodePayload reads the request body as a JSON object. An empty body is
// an empty payload, matching callers that pass no parameters.
func (e *Engine) decodePayload(r *http.Request) (map[string]any, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var payload map[string]any
	if err := e.enc.Decode(data, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

func (e *Engine) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := e.enc.Encode(v)
	if err != nil {
		e.log.Errorf("gateway: response encode failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
