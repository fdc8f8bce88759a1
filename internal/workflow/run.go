// Package workflow implements the orchestration engine: declarative
// pipelines of stages over the generator, tracker, and chat
// capabilities, with bounded fan-out, dependency short-circuiting,
// and partial-failure aggregation.
package workflow

import (
	"sync"
	"time"

	"github.com/kweiss/sprintbot/pkg/models"
)

// Outcome is the result classification of one stage or sub-call.
type Outcome string

const (
	// OutcomeOK means the stage succeeded on the first attempt.
	OutcomeOK Outcome = "ok"
	// OutcomeRetriedOK means the stage succeeded after retries.
	OutcomeRetriedOK Outcome = "retried-ok"
	// OutcomeFailed means the stage failed after exhausting its policy.
	OutcomeFailed Outcome = "failed"
)

// StageResult records one pipeline stage's (or fan-out sub-call's)
// outcome. Immutable once appended to a run.
type StageResult struct {
	// Stage is the pipeline stage name.
	Stage string
	// Subject names the fan-out sub-call's subject (feature name,
	// meeting title). Empty for non-fan-out stages.
	Subject string
	// Attempts is the number of attempts made.
	Attempts int
	// Duration is the total time spent including retries.
	Duration time.Duration
	// Outcome classifies the result.
	Outcome Outcome
	// Err holds the failure reason when Outcome is failed.
	Err string
	// ArtifactKey references the produced artifact (issue key,
	// document id), set if and only if the creation succeeded.
	ArtifactKey string
}

// Run is one end-to-end workflow execution. It is owned exclusively
// by the engine for its lifetime; other components observe it only
// through immutable snapshots. The cancellation flag is the one field
// written from outside, via Cancel.
type Run struct {
	id        string
	kind      models.WorkflowKind
	createdAt time.Time

	mu        sync.Mutex
	stage     string
	status    models.RunStatus
	detail    string
	results   []StageResult
	cancelled bool
}

// NewRun creates a pending run.
func NewRun(id string, kind models.WorkflowKind) *Run {
	return &Run{
		id:        id,
		kind:      kind,
		createdAt: time.Now(),
		status:    models.RunPending,
	}
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// Kind returns the workflow kind.
func (r *Run) Kind() models.WorkflowKind { return r.kind }

// Cancel requests cooperative cancellation. The engine checks the
// flag before scheduling each stage and each fan-out sub-call;
// already-dispatched calls finish but their results are discarded.
func (r *Run) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
}

// Cancelled reports whether cancellation was requested.
func (r *Run) Cancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// Status returns the current run status.
func (r *Run) Status() models.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Run) setStage(stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stage = stage
}

func (r *Run) setStatus(status models.RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

func (r *Run) finalize(status models.RunStatus, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return
	}
	r.status = status
	r.detail = detail
}

func (r *Run) append(results ...StageResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, results...)
}

// Snapshot is an immutable copy of a run's state for reporting.
type Snapshot struct {
	// ID is the run identifier.
	ID string
	// Kind is the workflow kind.
	Kind models.WorkflowKind
	// CreatedAt is when the run was created.
	CreatedAt time.Time
	// Stage is the stage the run was last executing.
	Stage string
	// Status is the run status at snapshot time.
	Status models.RunStatus
	// Detail is the hard-failure reason for failed runs.
	Detail string
	// Results lists every recorded stage result in pipeline order;
	// fan-out sub-calls appear in sub-call index order.
	Results []StageResult
}

// Snapshot returns an immutable copy of the run's state.
func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make([]StageResult, len(r.results))
	copy(results, r.results)

	return Snapshot{
		ID:        r.id,
		Kind:      r.kind,
		CreatedAt: r.createdAt,
		Stage:     r.stage,
		Status:    r.status,
		Detail:    r.detail,
		Results:   results,
	}
}
