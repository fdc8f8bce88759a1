// Package chat provides the chat-notifier capability: posting
// progress and terminal reports, and opening forms that suspend a
// workflow awaiting user input.
package chat

import "context"

// FormField is one input in a form schema.
type FormField struct {
	// Name is the field identifier.
	Name string `json:"name"`
	// Label is the human-readable prompt.
	Label string `json:"label"`
	// Options restricts the value to a fixed set, when non-empty.
	Options []string `json:"options,omitempty"`
	// Required marks the field mandatory.
	Required bool `json:"required"`
}

// FormSchema describes a form posted into a channel.
type FormSchema struct {
	// Title is the form heading.
	Title string `json:"title"`
	// Prompt is explanatory text shown above the fields.
	Prompt string `json:"prompt,omitempty"`
	// Fields lists the inputs.
	Fields []FormField `json:"fields"`
}

// FormSubmission is the user's response to a form.
type FormSubmission struct {
	// User identifies who submitted.
	User string `json:"user"`
	// Values maps field names to submitted values.
	Values map[string]string `json:"values"`
}

// Notifier is the capability contract for the chat front end.
// PostMessage is fire-and-forget; OpenForm blocks the issuing flow
// until a submission arrives or the suspension times out, surfacing
// fault.UserInputTimeout on expiry.
type Notifier interface {
	PostMessage(ctx context.Context, channel, text string) error
	OpenForm(ctx context.Context, channel string, schema FormSchema) (FormSubmission, error)
}
