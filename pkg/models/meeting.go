package models

import "time"

// MeetingArtifact represents one meeting flowing through a
// meeting-note pipeline: the raw source material plus everything the
// pipeline attaches to it.
type MeetingArtifact struct {
	// MeetingID identifies the source meeting.
	MeetingID string `json:"meeting_id"`
	// Title is the meeting title.
	Title string `json:"title"`
	// Date is when the meeting took place.
	Date time.Time `json:"date"`
	// Attendees lists participant names or emails.
	Attendees []string `json:"attendees,omitempty"`
	// Notes is the raw note text, if any.
	Notes string `json:"notes,omitempty"`
	// Transcript is the raw transcript text, if any.
	Transcript string `json:"transcript,omitempty"`
	// Summary is the structured summary produced by the generator.
	// Nil until the summarize stage succeeds.
	Summary *MeetingSummary `json:"summary,omitempty"`
	// PageID is the destination document identifier. Empty until the
	// publish stage succeeds.
	PageID string `json:"page_id,omitempty"`
}

// MeetingSummary is the structured content the generator extracts
// from raw meeting material.
type MeetingSummary struct {
	// Title is the summarized meeting title.
	Title string `json:"title"`
	// Overview is a short prose summary.
	Overview string `json:"overview,omitempty"`
	// Decisions lists decisions made in the meeting.
	Decisions []string `json:"decisions,omitempty"`
	// ActionItems lists follow-up actions with owners.
	ActionItems []ActionItem `json:"action_items,omitempty"`
	// Participants lists the people referenced in the discussion.
	Participants []string `json:"participants,omitempty"`
	// Tags are labels for the published document.
	Tags []string `json:"tags,omitempty"`
}

// ActionItem is one follow-up action from a meeting summary.
type ActionItem struct {
	// Description is what needs to be done.
	Description string `json:"description"`
	// Owner is who is responsible, if identified.
	Owner string `json:"owner,omitempty"`
	// Due is an optional due date in free text.
	Due string `json:"due,omitempty"`
}
