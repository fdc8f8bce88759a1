package models

// CommandRequest is the normalized payload handed to the coordinator
// by the chat front end. Field names mirror the slash-command
// arguments; validation happens before any run is created.
type CommandRequest struct {
	// Kind selects the pipeline to run.
	Kind WorkflowKind `json:"kind"`
	// Fields carries the kind-specific arguments.
	Fields map[string]string `json:"fields"`
	// Channel is the chat channel the terminal report goes to.
	Channel string `json:"channel"`
	// RequestingUser identifies who issued the command.
	RequestingUser string `json:"requesting_user"`
}

// Field returns the named field, or empty string if absent.
func (r CommandRequest) Field(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

// Report is the single terminal message rendered for a run.
type Report struct {
	// RunID identifies the run the report describes.
	RunID string `json:"run_id"`
	// Kind is the pipeline that ran.
	Kind WorkflowKind `json:"kind"`
	// Status is the terminal run status.
	Status RunStatus `json:"status"`
	// Created lists every artifact identifier the run produced.
	Created []string `json:"created,omitempty"`
	// Failures lists every failed subject with a short reason.
	// A failed item is never silently dropped.
	Failures []Failure `json:"failures,omitempty"`
	// Detail carries the hard-failure reason for failed runs.
	Detail string `json:"detail,omitempty"`
}

// Failure pairs a failed subject with the reason it failed.
type Failure struct {
	// Subject names what failed, e.g. a feature or meeting title.
	Subject string `json:"subject"`
	// Reason is a short human-readable cause.
	Reason string `json:"reason"`
}
