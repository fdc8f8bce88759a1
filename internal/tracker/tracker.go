// Package tracker provides the issue-tracker/document capability:
// creating and linking issues, searching, transitioning, and managing
// documentation pages, keyed by opaque identifier strings.
package tracker

import "context"

// IssueKind is the tracker issue type.
type IssueKind string

const (
	// IssueEpic is a tracker epic.
	IssueEpic IssueKind = "Epic"
	// IssueStory is a tracker user story.
	IssueStory IssueKind = "Story"
	// IssueTask is a plain tracker task.
	IssueTask IssueKind = "Task"
)

// Issue is one search result from the tracker.
type Issue struct {
	// Key is the tracker-assigned issue key.
	Key string `json:"key"`
	// Summary is the issue summary line.
	Summary string `json:"summary"`
	// Status is the current workflow status name.
	Status string `json:"status"`
	// Kind is the issue type name.
	Kind string `json:"kind"`
}

// Client is the capability contract for the issue tracker and its
// document store. Implementations wrap network I/O and are stateless
// between calls; errors classify via the fault package.
type Client interface {
	// CreateIssue creates an issue and returns its key.
	CreateIssue(ctx context.Context, kind IssueKind, fields map[string]any) (string, error)
	// LinkIssues links a child issue under a parent.
	LinkIssues(ctx context.Context, childKey, parentKey string) error
	// SearchIssues runs a query-string search.
	SearchIssues(ctx context.Context, query string) ([]Issue, error)
	// TransitionIssue moves an issue to the target workflow state.
	TransitionIssue(ctx context.Context, key, targetState string) error
	// CreateDocument creates a documentation page and returns its id.
	CreateDocument(ctx context.Context, space, title, body string, labels []string) (string, error)
	// UpdateDocument replaces a documentation page's body.
	UpdateDocument(ctx context.Context, id, body string) error
}
