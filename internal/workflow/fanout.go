package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/kweiss/sprintbot/internal/dispatch"
	"github.com/kweiss/sprintbot/pkg/models"
)

// subCall is one independent sub-call within a fan-out group.
type subCall struct {
	// Subject names the sub-call for reporting (feature name,
	// meeting title).
	Subject string
	// Service is the capability the call is billed against.
	Service string
	// Fn performs the call and returns the produced artifact key.
	Fn func(ctx context.Context) (string, error)
}

// fanOut runs a group of independent sub-calls with bounded
// concurrency. Every scheduled sub-call runs to completion; failures
// never abort siblings. Results are collected by sub-call index, not
// completion order, so reporting is deterministic. Returns false if
// cancellation was observed, in which case nothing is recorded: the
// results of in-flight calls are discarded from the report.
func (e *Engine) fanOut(ctx context.Context, run *Run, stage string, calls []subCall) ([]StageResult, bool) {
	if run.Cancelled() {
		run.finalize(models.RunCancelled, "cancelled before stage "+stage)
		return nil, false
	}
	run.setStage(stage)

	results := make([]StageResult, len(calls))
	scheduled := make([]bool, len(calls))

	sem := make(chan struct{}, e.cfg.MaxConcurrency)
	var wg sync.WaitGroup

	for i, call := range calls {
		sem <- struct{}{}

		// Cooperative cancellation: checked after the slot is
		// acquired, so a cancel that lands while the loop is parked
		// on a full semaphore still stops scheduling. Sub-calls
		// already dispatched settle on their own.
		if run.Cancelled() {
			<-sem
			break
		}

		scheduled[i] = true
		wg.Add(1)

		go func(i int, call subCall) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			var artifact string
			attempts, err := e.disp.Do(ctx, dispatch.Call{
				RunID:   run.ID(),
				Stage:   stage,
				Service: call.Service,
				Fn: func(ctx context.Context) error {
					key, callErr := call.Fn(ctx)
					if callErr == nil {
						artifact = key
					}
					return callErr
				},
			})

			results[i] = StageResult{
				Stage:    stage,
				Subject:  call.Subject,
				Attempts: attempts,
				Duration: time.Since(start),
				Outcome:  outcomeFor(attempts, err),
				Err:      errString(err),
			}
			if err == nil {
				results[i].ArtifactKey = artifact
			}
		}(i, call)
	}

	wg.Wait()

	if run.Cancelled() {
		run.finalize(models.RunCancelled, "cancelled during stage "+stage)
		return nil, false
	}

	recorded := results[:0:0]
	for i := range results {
		if scheduled[i] {
			recorded = append(recorded, results[i])
		}
	}
	run.append(recorded...)
	return recorded, true
}

// failedSubjects extracts the failed sub-calls of a group.
func failedSubjects(results []StageResult) []models.Failure {
	var failures []models.Failure
	for _, r := range results {
		if r.Outcome == OutcomeFailed {
			failures = append(failures, models.Failure{Subject: r.Subject, Reason: r.Err})
		}
	}
	return failures
}
