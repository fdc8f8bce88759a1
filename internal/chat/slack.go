package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack"

	"github.com/kweiss/sprintbot/internal/fault"
)

// SlackNotifier implements Notifier over the Slack Web API. Form
// submissions arrive from the transport layer (Socket Mode handler)
// through Submit; OpenForm correlates them by form id.
type SlackNotifier struct {
	api         *slack.Client
	formTimeout time.Duration

	mu      sync.Mutex
	pending map[string]chan FormSubmission
}

// NewSlackNotifier creates a notifier for the given bot token.
func NewSlackNotifier(botToken string, formTimeout time.Duration) *SlackNotifier {
	if formTimeout <= 0 {
		formTimeout = 5 * time.Minute
	}
	return &SlackNotifier{
		api:         slack.New(botToken),
		formTimeout: formTimeout,
		pending:     make(map[string]chan FormSubmission),
	}
}

// PostMessage implements Notifier.
func (s *SlackNotifier) PostMessage(ctx context.Context, channel, text string) error {
	_, _, err := s.api.PostMessageContext(ctx, channel,
		slack.MsgOptionBlocks(
			slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, text, false, false),
				nil, nil,
			),
		),
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return classifySlackError(err)
	}
	return nil
}

// OpenForm implements Notifier. It posts the form as a message and
// blocks until the transport delivers a submission for it, the
// context ends, or the suspension timeout expires.
func (s *SlackNotifier) OpenForm(ctx context.Context, channel string, schema FormSchema) (FormSubmission, error) {
	formID := uuid.New().String()[:8]

	ch := make(chan FormSubmission, 1)
	s.mu.Lock()
	s.pending[formID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, formID)
		s.mu.Unlock()
	}()

	if err := s.PostMessage(ctx, channel, renderForm(formID, schema)); err != nil {
		return FormSubmission{}, err
	}

	select {
	case submission := <-ch:
		return submission, nil
	case <-ctx.Done():
		return FormSubmission{}, fault.Wrap(fault.Cancelled, ctx.Err())
	case <-time.After(s.formTimeout):
		return FormSubmission{}, fault.Errorf(fault.UserInputTimeout,
			"no response to form %s within %s", formID, s.formTimeout)
	}
}

// Submit delivers a form submission from the transport layer. Returns
// false if no flow is waiting on the form id.
func (s *SlackNotifier) Submit(formID string, submission FormSubmission) bool {
	s.mu.Lock()
	ch, ok := s.pending[formID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case ch <- submission:
		return true
	default:
		return false
	}
}

// renderForm renders a form schema as a markdown message. The form id
// is embedded so replies can be correlated by the transport.
func renderForm(formID string, schema FormSchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* `[%s]`\n", schema.Title, formID)
	if schema.Prompt != "" {
		b.WriteString(schema.Prompt)
		b.WriteString("\n")
	}
	for _, f := range schema.Fields {
		fmt.Fprintf(&b, "• *%s*", f.Label)
		if len(f.Options) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(f.Options, " / "))
		}
		if f.Required {
			b.WriteString(" (required)")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func classifySlackError(err error) error {
	var rateErr *slack.RateLimitedError
	if errors.As(err, &rateErr) {
		return fault.Wrap(fault.RateLimited, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid_auth") || strings.Contains(msg, "not_authed") ||
		strings.Contains(msg, "token_revoked"):
		return fault.Wrap(fault.Auth, err)
	case strings.Contains(msg, "channel_not_found") || strings.Contains(msg, "is_archived"):
		return fault.Wrap(fault.NotFound, err)
	default:
		return fault.Wrap(fault.TransientNetwork, err)
	}
}
