package models

// Priority represents an issue priority in the tracker.
type Priority string

const (
	PriorityHighest Priority = "Highest"
	PriorityHigh    Priority = "High"
	PriorityMedium  Priority = "Medium"
	PriorityLow     Priority = "Low"
	PriorityLowest  Priority = "Lowest"
)

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHighest, PriorityHigh, PriorityMedium, PriorityLow, PriorityLowest:
		return true
	default:
		return false
	}
}

// EpicRequest is the validated input for an epic-creation run.
type EpicRequest struct {
	// Title is the epic summary line.
	Title string `json:"title"`
	// Description provides detailed context for the epic.
	Description string `json:"description"`
	// Priority is the tracker priority. Defaults to Medium.
	Priority Priority `json:"priority,omitempty"`
	// Labels are optional tracker labels.
	Labels []string `json:"labels,omitempty"`
	// Features lists preferred features. When empty the generator
	// produces the list as the first pipeline stage.
	Features []string `json:"features,omitempty"`
}

// Epic represents a tracker epic.
type Epic struct {
	// Key is the tracker-assigned issue key. Empty until the
	// create-epic stage succeeds.
	Key string `json:"key,omitempty"`
	// Title is the epic summary line.
	Title string `json:"title"`
	// Description provides detailed context for the epic.
	Description string `json:"description"`
	// Priority is the tracker priority.
	Priority Priority `json:"priority"`
	// Labels are tracker labels.
	Labels []string `json:"labels,omitempty"`
	// Features lists the features the epic covers.
	Features []string `json:"features,omitempty"`
}

// UserStory represents a tracker story linked under an epic.
type UserStory struct {
	// Key is the tracker-assigned issue key. Empty until the
	// create-story stage succeeds.
	Key string `json:"key,omitempty"`
	// Title is the story summary line.
	Title string `json:"title"`
	// Description is the story body, typically in as-a/I-want form.
	Description string `json:"description"`
	// EpicKey is the parent epic key. Set only after the link stage
	// succeeds; never set before the epic itself has a key.
	EpicKey string `json:"epic_key,omitempty"`
	// Estimate is an optional story-point estimate.
	Estimate int `json:"estimate,omitempty"`
	// AcceptanceCriteria lists the completion criteria.
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
}
