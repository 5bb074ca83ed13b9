// Package rqueue is a Redis-backed queue backend. Jobs are serialized into
// a per-queue list; work functions cannot cross the wire, so they are
// rebound on dequeue through an endpoint resolver.
package rqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	mediakit "github.com/mediakit/mediakit-go"
)

// Resolver maps an endpoint label back to its registered operation,
// normally Engine.Operation.
type Resolver func(endpoint string) (mediakit.Operation, bool)

// jobRec is the wire representation of an admitted job.
type jobRec struct {
	ID           string         `json:"id"`
	Endpoint     string         `json:"endpoint"`
	Payload      map[string]any `json:"payload"`
	AdmittedAtMs int64          `json:"admitted_at_ms"`
}

// Queue implements mediakit.Queue on a Redis list. Push is LPUSH, Pop is
// BRPOP, so FIFO order and blocking-pop semantics match the in-memory
// queue. Depth checks stay with the admission gateway.
type Queue struct {
	rdb     redis.UniversalClient
	key     string
	resolve Resolver
	enc     mediakit.Encoder
	log     mediakit.Logger
}

// New creates a Redis queue for the named queue. The hashtagged key keeps
// all queue keys on one cluster slot.
func New(rdb redis.UniversalClient, queue string, resolve Resolver, log mediakit.Logger) *Queue {
	if log == nil {
		log = mediakit.NewFmtLogger()
	}
	return &Queue{
		rdb:     rdb,
		key:     "mediakit:{" + queue + "}:pending",
		resolve: resolve,
		enc:     &mediakit.JSONEncoder{},
		log:     log,
	}
}

// Push serializes the job and appends it to the list.
func (q *Queue) Push(ctx context.Context, job *mediakit.Job) error {
	raw, err := q.enc.Encode(jobRec{
		ID:           job.ID,
		Endpoint:     job.Endpoint,
		Payload:      job.Payload,
		AdmittedAtMs: job.AdmittedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("rqueue: encode job: %w", err)
	}
	return q.rdb.LPush(ctx, q.key, raw).Err()
}

// Pop blocks until a job is available or ctx is cancelled. The work
// function is rebound from the resolver; a job whose endpoint has no
// registered operation still flows through the worker loop and produces a
// synthetic 500 envelope.
func (q *Queue) Pop(ctx context.Context) (*mediakit.Job, error) {
	for {
		res, err := q.rdb.BRPop(ctx, time.Second, q.key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if len(res) != 2 {
			continue
		}

		var rec jobRec
		if derr := q.enc.Decode([]byte(res[1]), &rec); derr != nil {
			q.log.Errorf("rqueue: dropping undecodable job: err=%v", derr)
			continue
		}

		job := &mediakit.Job{
			ID:         rec.ID,
			Endpoint:   rec.Endpoint,
			Payload:    rec.Payload,
			AdmittedAt: time.UnixMilli(rec.AdmittedAtMs),
		}
		if op, ok := q.resolve(rec.Endpoint); ok {
			id, payload := rec.ID, rec.Payload
			job.Work = func() (any, string, int) {
				return op(id, payload)
			}
		}
		return job, nil
	}
}

// Len returns the list length. Errors are logged and reported as depth 0
// rather than failing a depth check.
func (q *Queue) Len() int {
	n, err := q.rdb.LLen(context.Background(), q.key).Result()
	if err != nil {
		q.log.Warnf("rqueue: LLEN failed: %v", err)
		return 0
	}
	return int(n)
}
