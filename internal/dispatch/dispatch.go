// Package dispatch wraps every external call uniformly: it acquires a
// rate-limit token, applies the retry policy, and records the log
// line and metrics the observability surface relies on.
package dispatch

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kweiss/sprintbot/internal/fault"
	"github.com/kweiss/sprintbot/internal/metrics"
	"github.com/kweiss/sprintbot/internal/ratelimit"
)

// Policy bounds the retry behavior for external calls.
type Policy struct {
	// MaxAttempts is the total attempt cap per call, including the
	// first. Default 3.
	MaxAttempts int
	// InitialDelay is the first backoff interval. Default 200ms.
	InitialDelay time.Duration
	// BackoffCeiling caps a single backoff interval. Default 15s.
	BackoffCeiling time.Duration
	// MaxElapsed caps the total time spent retrying one call.
	// Default 2m.
	MaxElapsed time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 200 * time.Millisecond
	}
	if p.BackoffCeiling <= 0 {
		p.BackoffCeiling = 15 * time.Second
	}
	if p.MaxElapsed <= 0 {
		p.MaxElapsed = 2 * time.Minute
	}
	return p
}

// Call describes one external call for logging and accounting.
type Call struct {
	// RunID is the workflow run issuing the call.
	RunID string
	// Stage is the pipeline stage name.
	Stage string
	// Service is the capability name (ratelimit.Service*).
	Service string
	// Fn performs the call.
	Fn func(ctx context.Context) error
}

// Dispatcher sequences rate limiting, retries, and observability for
// external calls. It is safe for concurrent use; the limiter is the
// only shared state.
type Dispatcher struct {
	limiter *ratelimit.Limiter
	policy  Policy
	metrics *metrics.Metrics
}

// New creates a Dispatcher.
func New(limiter *ratelimit.Limiter, policy Policy, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		limiter: limiter,
		policy:  policy.withDefaults(),
		metrics: m,
	}
}

// Do executes the call under the retry policy. Failures classified
// RateLimited or TransientNetworkError are retried with exponential
// backoff and jitter up to MaxAttempts; every other kind propagates
// immediately. Returns the number of attempts made and the final
// error, if any.
func (d *Dispatcher) Do(ctx context.Context, call Call) (int, error) {
	attempts := 0

	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(fault.Wrap(fault.Cancelled, err))
		}

		waitStart := time.Now()
		if err := d.limiter.Wait(ctx, call.Service); err != nil {
			return backoff.Permanent(fault.Wrap(fault.Cancelled, err))
		}
		if d.metrics != nil {
			d.metrics.RateLimitWait.WithLabelValues(call.Service).Observe(time.Since(waitStart).Seconds())
		}

		attempts++
		if attempts > 1 && d.metrics != nil {
			d.metrics.Retries.WithLabelValues(call.Service).Inc()
		}

		start := time.Now()
		err := call.Fn(ctx)
		d.observe(call, attempts, time.Since(start), err)

		if err == nil {
			return nil
		}
		if !fault.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.policy.InitialDelay
	b.MaxInterval = d.policy.BackoffCeiling
	b.MaxElapsedTime = d.policy.MaxElapsed

	var policy backoff.BackOff = backoff.WithMaxRetries(b, uint64(d.policy.MaxAttempts-1))
	policy = backoff.WithContext(policy, ctx)

	err := backoff.Retry(op, policy)
	return attempts, err
}

func (d *Dispatcher) observe(call Call, attempt int, latency time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(fault.KindOf(err))
	}

	log.Printf("[dispatch] run=%s stage=%s service=%s attempt=%d latency=%s outcome=%s",
		call.RunID, call.Stage, call.Service, attempt, latency.Round(time.Millisecond), outcome)

	if d.metrics == nil {
		return
	}
	d.metrics.CallDuration.WithLabelValues(call.Service).Observe(latency.Seconds())
	if err != nil {
		d.metrics.ExternalCalls.WithLabelValues(call.Service, "error").Inc()
	} else {
		d.metrics.ExternalCalls.WithLabelValues(call.Service, "ok").Inc()
	}
}
