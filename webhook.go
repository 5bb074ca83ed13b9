package mediakit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// notifyTask pairs a result envelope with its delivery target. Tasks are
// owned exclusively by the dispatcher and discarded after terminal success
// or retry exhaustion; nothing is persisted across restarts.
type notifyTask struct {
	url string
	env *Envelope
}

type dispatcherOptions struct {
	workers     int
	maxAttempts int
	unit        time.Duration
	sleep       func(time.Duration)
	client      *http.Client
	buffer      int
}

func dispatcherDefaults(cfg Config) dispatcherOptions {
	workers := cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	attempts := cfg.WebhookMaxRetries
	if attempts < 1 {
		attempts = 1
	}
	timeout := cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return dispatcherOptions{
		workers:     workers,
		maxAttempts: attempts,
		unit:        time.Second,
		sleep:       time.Sleep,
		client:      &http.Client{Timeout: timeout},
		buffer:      256,
	}
}

// Dispatcher delivers result envelopes to caller-supplied webhook URLs
// using a fixed pool of workers, decoupled from job execution so a slow
// notification target never stalls the worker loop.
type Dispatcher struct {
	tasks       chan notifyTask
	workers     int
	maxAttempts int
	unit        time.Duration
	sleep       func(time.Duration)
	client      *http.Client
	enc         Encoder
	log         Logger

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

func newDispatcher(opts dispatcherOptions, enc Encoder, log Logger) *Dispatcher {
	return &Dispatcher{
		tasks:       make(chan notifyTask, opts.buffer),
		workers:     opts.workers,
		maxAttempts: opts.maxAttempts,
		unit:        opts.unit,
		sleep:       opts.sleep,
		client:      opts.client,
		enc:         enc,
		log:         log,
	}
}

func (d *Dispatcher) start() {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for t := range d.tasks {
				d.deliver(t)
			}
		}()
	}
}

// stop closes the submission channel and waits for in-flight deliveries.
// Callers must guarantee no further Submit calls.
func (d *Dispatcher) stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	d.mu.Unlock()

	close(d.tasks)
	d.wg.Wait()
}

// Submit hands an envelope to the pool without blocking. If the buffer is
// full the task is dropped and logged; the original caller already holds
// its 202 acknowledgment and is never notified of dispatcher overload.
func (d *Dispatcher) Submit(url string, env *Envelope) {
	select {
	case d.tasks <- notifyTask{url: url, env: env}:
	default:
		d.log.Errorf("webhook buffer full; dropping notification: job_id=%s url=%s", env.JobID, url)
	}
}

// deliver POSTs the envelope, retrying with exponential backoff
// (1, 2, 4, ... units) up to the attempt budget. Exhaustion is logged and
// the task is discarded.
func (d *Dispatcher) deliver(t notifyTask) {
	body, err := d.enc.Encode(t.env)
	if err != nil {
		d.log.Errorf("webhook encode failed: job_id=%s err=%v", t.env.JobID, err)
		return
	}

	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		err = d.post(t.url, body)
		if err == nil {
			d.log.Debugf("webhook delivered: job_id=%s url=%s attempt=%d", t.env.JobID, t.url, attempt+1)
			return
		}
		d.log.Warnf("webhook attempt %d failed: job_id=%s url=%s err=%v", attempt+1, t.env.JobID, t.url, err)
		if attempt < d.maxAttempts-1 {
			d.sleep(time.Duration(1<<attempt) * d.unit)
		}
	}
	d.log.Errorf("webhook delivery exhausted after %d attempts: job_id=%s url=%s err=%v",
		d.maxAttempts, t.env.JobID, t.url, err)
}

func (d *Dispatcher) post(url string, body []byte) error {
	resp, err := d.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
