// Package models defines the shared data types for sprintbot:
// workflow kinds, run statuses, tracker artifacts, and the normalized
// chat request/report shapes.
package models

// WorkflowKind identifies which pipeline a request runs.
type WorkflowKind string

const (
	// KindEpicCreation creates an epic with generated, linked user stories.
	KindEpicCreation WorkflowKind = "epic-creation"
	// KindMeetingBatch processes recent meeting notes into documents.
	KindMeetingBatch WorkflowKind = "meeting-batch"
	// KindMeetingSearch processes meetings matching a keyword.
	KindMeetingSearch WorkflowKind = "meeting-search"
)

// Valid returns true if the kind is a known value.
func (k WorkflowKind) Valid() bool {
	switch k {
	case KindEpicCreation, KindMeetingBatch, KindMeetingSearch:
		return true
	default:
		return false
	}
}

// RunStatus represents the state of a workflow run.
type RunStatus string

const (
	// RunPending indicates the run has been created but not started.
	RunPending RunStatus = "pending"
	// RunRunning indicates the run is executing stages.
	RunRunning RunStatus = "running"
	// RunSucceeded indicates every stage and sub-call succeeded.
	RunSucceeded RunStatus = "succeeded"
	// RunPartial indicates the primary artifact exists but at least
	// one fan-out sub-call failed.
	RunPartial RunStatus = "partial"
	// RunFailed indicates a non-optional stage failed.
	RunFailed RunStatus = "failed"
	// RunCancelled indicates cancellation was observed before completion.
	RunCancelled RunStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s RunStatus) Valid() bool {
	switch s {
	case RunPending, RunRunning, RunSucceeded, RunPartial, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a final state.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunSucceeded, RunPartial, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}
