package mediakit

import (
	"context"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// queueSeq hands out process-unique queue identities, echoed in responses
// so callers can tell queue instances apart across restarts of the handler
// wiring (but not across processes).
var queueSeq atomic.Uint64

// Engine is the admission-and-dispatch core: a bounded queue, a single
// perpetual worker, and a notification dispatcher pool. Construct one per
// process (or per test) with NewEngine; there are no package-level
// singletons.
type Engine struct {
	cfg      Config
	queue    Queue
	dispatch *Dispatcher
	enc      Encoder
	log      Logger

	pid     int
	queueID uint64

	onAdmit    func(*Job)
	onComplete func(*Job, *Envelope)

	opsMu sync.RWMutex
	ops   map[string]Operation

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewEngine creates an engine from the config. The in-memory bounded queue
// is used unless WithQueue supplies another backend.
func NewEngine(cfg Config, opts ...EngineOption) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:     cfg,
		enc:     &JSONEncoder{},
		log:     NewFmtLogger(),
		pid:     os.Getpid(),
		queueID: queueSeq.Add(1),
		ops:     make(map[string]Operation),
		ctx:     ctx,
		cancel:  cancel,
	}
	dopts := dispatcherDefaults(cfg)
	for _, opt := range opts {
		opt(e, &dopts)
	}
	if e.queue == nil {
		e.queue = NewMemoryQueue(cfg.MaxQueueLength)
	}
	e.dispatch = newDispatcher(dopts, e.enc, e.log)
	return e
}

// Start launches the worker loop and the notification dispatcher.
// It is idempotent and non-blocking.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started {
		e.log.Warnf("engine already started; ignoring Start()")
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	e.log.Infof("engine starting: queue_id=%d max_queue_length=%d workers=%d",
		e.queueID, e.cfg.MaxQueueLength, e.dispatch.workers)

	e.dispatch.start()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.workerLoop()
	}()
}

// Stop shuts the engine down: the worker loop exits after its current job
// and the dispatcher drains submitted notifications.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.log.Warnf("engine not started; ignoring Stop()")
		e.mu.Unlock()
		return
	}
	e.started = false
	e.mu.Unlock()

	e.log.Infof("engine stopping")
	e.cancel()
	e.wg.Wait()
	e.dispatch.stop()
}

// Queue exposes the engine's queue, mainly for tests and depth reporting.
func (e *Engine) Queue() Queue { return e.queue }

// QueueID returns the process-unique queue identity echoed in responses.
func (e *Engine) QueueID() uint64 { return e.queueID }

// Operation returns the operation registered under an endpoint label. It
// is the resolver used by queue backends that persist jobs by reference.
func (e *Engine) Operation(endpoint string) (Operation, bool) {
	e.opsMu.RLock()
	defer e.opsMu.RUnlock()
	op, ok := e.ops[endpoint]
	return op, ok
}

func (e *Engine) register(endpoint string, op Operation) {
	e.opsMu.Lock()
	e.ops[endpoint] = op
	e.opsMu.Unlock()
}

// envelope assembles the result of an executed job.
func (e *Engine) envelope(job *Job, body any, endpoint string, code int, run, queue, total time.Duration) *Envelope {
	env := &Envelope{
		Endpoint:    endpoint,
		Code:        code,
		JobID:       job.ID,
		Message:     "success",
		PID:         e.pid,
		QueueID:     e.queueID,
		RunTime:     roundSeconds(run),
		QueueTime:   roundSeconds(queue),
		TotalTime:   roundSeconds(total),
		QueueLength: e.queue.Len(),
		BuildNumber: BuildNumber,
	}
	if job.Payload != nil {
		env.ID = job.Payload["id"]
	}
	if code == 200 {
		env.Response = body
	} else {
		env.Message = messageText(body)
	}
	return env
}

// roundSeconds converts a duration to seconds rounded to the millisecond,
// the resolution reported in responses.
func roundSeconds(d time.Duration) float64 {
	if d < 0 {
		d = 0
	}
	return math.Round(d.Seconds()*1000) / 1000
}

func messageText(body any) string {
	switch v := body.(type) {
	case string:
		return v
	case error:
		return v.Error()
	case nil:
		return ""
	default:
		b, err := (&JSONEncoder{}).Encode(v)
		if err != nil {
			return "error"
		}
		return string(b)
	}
}
