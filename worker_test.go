package mediakit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEnvelopes(n int, ch <-chan *Envelope, t *testing.T) []*Envelope {
	t.Helper()
	out := make([]*Envelope, 0, n)
	for i := 0; i < n; i++ {
		select {
		case env := <-ch:
			out = append(out, env)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for envelope %d of %d", i+1, n)
		}
	}
	return out
}

func TestWorker_ProcessesInOrder(t *testing.T) {
	done := make(chan *Envelope, 8)
	e := newTestEngine(t, DefaultConfig(), WithCompletionHook(func(_ *Job, env *Envelope) {
		done <- env
	}))
	e.Start()
	defer e.Stop()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		n := i
		require.NoError(t, e.Queue().Push(ctx, &Job{
			ID:         fmt.Sprintf("job-%d", n),
			Endpoint:   "seq",
			AdmittedAt: time.Now(),
			Work: func() (any, string, int) {
				return n, "seq", 200
			},
		}))
	}

	envs := collectEnvelopes(3, done, t)
	for i, env := range envs {
		assert.Equal(t, fmt.Sprintf("job-%d", i), env.JobID)
		assert.Equal(t, 200, env.Code)
		assert.Equal(t, "success", env.Message)
		assert.Equal(t, "seq", env.Endpoint)
	}
}

func TestWorker_ErrorResult(t *testing.T) {
	done := make(chan *Envelope, 1)
	e := newTestEngine(t, DefaultConfig(), WithCompletionHook(func(_ *Job, env *Envelope) {
		done <- env
	}))
	e.Start()
	defer e.Stop()

	require.NoError(t, e.Queue().Push(context.Background(), &Job{
		ID:         "bad",
		Endpoint:   "fails",
		AdmittedAt: time.Now(),
		Work: func() (any, string, int) {
			return "conversion failed", "fails", 500
		},
	}))

	env := collectEnvelopes(1, done, t)[0]
	assert.Equal(t, 500, env.Code)
	assert.Equal(t, "conversion failed", env.Message)
	assert.Nil(t, env.Response)
}

func TestWorker_PanicDoesNotKillLoop(t *testing.T) {
	done := make(chan *Envelope, 2)
	e := newTestEngine(t, DefaultConfig(), WithCompletionHook(func(_ *Job, env *Envelope) {
		done <- env
	}))
	e.Start()
	defer e.Stop()

	ctx := context.Background()
	require.NoError(t, e.Queue().Push(ctx, &Job{
		ID:         "panics",
		AdmittedAt: time.Now(),
		Work: func() (any, string, int) {
			panic("exploded")
		},
	}))
	require.NoError(t, e.Queue().Push(ctx, &Job{
		ID:         "after",
		AdmittedAt: time.Now(),
		Work: func() (any, string, int) {
			return "still alive", "after", 200
		},
	}))

	envs := collectEnvelopes(2, done, t)
	assert.Equal(t, 500, envs[0].Code)
	assert.Equal(t, "exploded", envs[0].Message)
	assert.Equal(t, 200, envs[1].Code, "the loop must survive a panicking job")
}

func TestWorker_NilWorkIsSyntheticFailure(t *testing.T) {
	done := make(chan *Envelope, 1)
	e := newTestEngine(t, DefaultConfig(), WithCompletionHook(func(_ *Job, env *Envelope) {
		done <- env
	}))
	e.Start()
	defer e.Stop()

	require.NoError(t, e.Queue().Push(context.Background(), &Job{
		ID:         "unbound",
		AdmittedAt: time.Now(),
	}))

	env := collectEnvelopes(1, done, t)[0]
	assert.Equal(t, 500, env.Code)
	assert.Equal(t, ErrNoOperation.Error(), env.Message)
}

func TestWorker_Timings(t *testing.T) {
	done := make(chan *Envelope, 1)
	e := newTestEngine(t, DefaultConfig(), WithCompletionHook(func(_ *Job, env *Envelope) {
		done <- env
	}))
	e.Start()
	defer e.Stop()

	require.NoError(t, e.Queue().Push(context.Background(), &Job{
		ID:         "timed",
		AdmittedAt: time.Now().Add(-100 * time.Millisecond),
		Work: func() (any, string, int) {
			time.Sleep(20 * time.Millisecond)
			return nil, "timed", 200
		},
	}))

	env := collectEnvelopes(1, done, t)[0]
	assert.GreaterOrEqual(t, env.QueueTime, 0.1)
	assert.GreaterOrEqual(t, env.RunTime, 0.02)
	assert.GreaterOrEqual(t, env.TotalTime, env.RunTime)
}

func TestRoundSeconds(t *testing.T) {
	assert.Equal(t, 0.0, roundSeconds(0))
	assert.Equal(t, 0.0, roundSeconds(-time.Second))
	assert.Equal(t, 1.235, roundSeconds(1234567*time.Microsecond))
	assert.Equal(t, 0.001, roundSeconds(time.Millisecond))
}
