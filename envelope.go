package mediakit

import "time"

// WorkFunc is a zero-argument unit of work bound to an admitted job.
// It returns the result body, the operation label, and an HTTP status code.
type WorkFunc func() (any, string, int)

// Operation is a route-level unit of work wrapped by the admission gateway.
// It receives the generated job ID and the caller's decoded payload.
type Operation func(jobID string, payload map[string]any) (any, string, int)

// Job is one admitted unit of asynchronous work. It is created by the
// admission gateway at enqueue time, consumed exactly once by the worker
// loop, and never mutated after creation.
type Job struct {
	// ID is the globally unique identifier generated at admission.
	ID string `json:"id"`
	// Endpoint is the operation label the job was admitted under.
	Endpoint string `json:"endpoint"`
	// Payload is the caller's request body, retained for echoing identity
	// fields and for the webhook target URL.
	Payload map[string]any `json:"payload"`
	// Work executes the operation. It captures everything it needs; the
	// queue core is otherwise opaque to its contents.
	Work WorkFunc `json:"-"`
	// AdmittedAt is the enqueue timestamp used to compute queue wait time.
	AdmittedAt time.Time `json:"admitted_at"`
}

// WebhookURL returns the caller-supplied notification target, if any.
func (j *Job) WebhookURL() string {
	s, _ := stringField(j.Payload, "webhook_url")
	return s
}

// Envelope is the structured outcome of executing a job. It is returned
// synchronously on the bypass path and delivered via the notification
// dispatcher otherwise.
//
// RunTime, QueueTime and TotalTime are computed from independently sampled
// timestamps, so RunTime+QueueTime does not exactly equal TotalTime. All
// three are non-negative and TotalTime >= RunTime.
type Envelope struct {
	// Endpoint is set on webhook payloads and worker-produced envelopes;
	// synchronous responses omit it.
	Endpoint    string  `json:"endpoint,omitempty"`
	Code        int     `json:"code"`
	ID          any     `json:"id"`
	JobID       string  `json:"job_id"`
	Response    any     `json:"response"`
	Message     string  `json:"message"`
	PID         int     `json:"pid"`
	QueueID     uint64  `json:"queue_id"`
	RunTime     float64 `json:"run_time"`
	QueueTime   float64 `json:"queue_time"`
	TotalTime   float64 `json:"total_time"`
	QueueLength int     `json:"queue_length"`
	BuildNumber string  `json:"build_number"`
}

// Receipt is the immediate 202 acknowledgment for an enqueued job.
type Receipt struct {
	Code           int    `json:"code"`
	ID             any    `json:"id"`
	JobID          string `json:"job_id"`
	Message        string `json:"message"`
	PID            int    `json:"pid"`
	QueueID        uint64 `json:"queue_id"`
	MaxQueueLength int    `json:"max_queue_length"`
	QueueLength    int    `json:"queue_length"`
	BuildNumber    string `json:"build_number"`
}

// Rejection is the synchronous error response for requests that never
// produce a job: queue overflow (429), malformed payload (400) and the
// advisory pre-admission timeout (408).
type Rejection struct {
	Code        int    `json:"code"`
	ID          any    `json:"id"`
	JobID       string `json:"job_id"`
	Message     string `json:"message"`
	PID         int    `json:"pid"`
	QueueID     uint64 `json:"queue_id"`
	QueueLength int    `json:"queue_length"`
	BuildNumber string `json:"build_number"`
}

// stringField extracts a string-typed key from a payload mapping.
func stringField(payload map[string]any, key string) (string, bool) {
	if payload == nil {
		return "", false
	}
	v, ok := payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
