package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/semaphore"

	"optiroute/internal/metrics"
)

// ErrTimeout is returned when a call does not finish inside the runner's
// deadline. It is transient: the caller may retry or give up.
var ErrTimeout = errors.New("engine: invocation timed out")

// Runner enforces an overall timeout and bounds how many solves run at once.
// A solve that outlives its deadline keeps its slot until it returns.
type Runner struct {
	eng     *Engine
	sem     *semaphore.Weighted
	timeout time.Duration
}

func NewRunner(eng *Engine, maxConcurrent int64, timeout time.Duration) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{eng: eng, sem: semaphore.NewWeighted(maxConcurrent), timeout: timeout}
}

func (r *Runner) Engine() *Engine { return r.eng }

// Run invokes op under the runner's limits. The returned error is non-nil
// only for boundary failures (timeout, cancelled context); engine errors are
// carried in Response.Err.
func (r *Runner) Run(ctx context.Context, op string, payload []byte) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	start := time.Now()

	if ctx.Err() != nil {
		return r.abandon(op, start, ctx.Err())
	}
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return r.abandon(op, start, ctx.Err())
	}
	done := make(chan Response, 1)
	metrics.EngineInFlight.Inc()
	go func() {
		defer r.sem.Release(1)
		defer metrics.EngineInFlight.Dec()
		done <- r.eng.Call(op, payload)
	}()

	select {
	case resp := <-done:
		dur := time.Since(start)
		outcome := "ok"
		if resp.Err != nil {
			outcome = resp.Err.Error
		}
		metrics.EngineInvocations.WithLabelValues(op, resp.Algorithm, outcome).Inc()
		metrics.EngineDuration.WithLabelValues(op).Observe(dur.Seconds())
		log.Printf("engine op=%s algorithm=%s outcome=%s duration=%s", op, resp.Algorithm, outcome, dur)
		return resp, nil
	case <-ctx.Done():
		return r.abandon(op, start, ctx.Err())
	}
}

func (r *Runner) abandon(op string, start time.Time, cause error) (Response, error) {
	metrics.EngineInvocations.WithLabelValues(op, "", "timeout").Inc()
	log.Printf("engine op=%s outcome=timeout duration=%s cause=%v", op, time.Since(start), cause)
	if errors.Is(cause, context.Canceled) {
		return Response{}, cause
	}
	return Response{}, ErrTimeout
}
