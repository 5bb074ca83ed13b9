package mediakit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// workerLoop is the single perpetual consumer. Jobs execute strictly in
// FIFO arrival order. Per-job failures are contained by process; failures
// in the loop's own bookkeeping are logged at the highest severity and the
// loop continues, since a dead loop stalls the queue forever.
func (e *Engine) workerLoop() {
	for {
		job, err := e.queue.Pop(e.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || e.ctx.Err() != nil {
				return
			}
			e.log.Errorf("worker: queue pop failed: %v", err)
			continue
		}
		if job == nil {
			continue
		}
		e.process(job)
	}
}

// process executes one job and hands the envelope off. The three durations
// are sampled independently, so run+queue need not equal total exactly.
func (e *Engine) process(job *Job) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorf("worker: unexpected error processing job: job_id=%s err=%v", job.ID, r)
		}
	}()

	queueTime := time.Since(job.AdmittedAt)
	runStart := time.Now()
	body, endpoint, code := runWork(job)
	runTime := time.Since(runStart)
	totalTime := time.Since(job.AdmittedAt)

	env := e.envelope(job, body, endpoint, code, runTime, queueTime, totalTime)

	if e.onComplete != nil {
		e.onComplete(job, env)
	}

	if url := job.WebhookURL(); url != "" {
		// non-blocking hand-off; the loop never waits on delivery
		e.dispatch.Submit(url, env)
	}

	e.log.Debugf("worker: processed: job_id=%s endpoint=%s code=%d run_time=%.3f queue_time=%.3f",
		job.ID, endpoint, code, env.RunTime, env.QueueTime)
}

// runWork executes the job's work function, converting a panic into a
// synthetic (message, "error", 500) failure result.
func runWork(job *Job) (body any, endpoint string, code int) {
	defer func() {
		if r := recover(); r != nil {
			body, endpoint, code = fmt.Sprintf("%v", r), "error", 500
		}
	}()
	if job.Work == nil {
		return ErrNoOperation.Error(), "error", 500
	}
	return job.Work()
}
