package chat

import (
	"errors"
	"strings"
	"testing"

	"github.com/kweiss/sprintbot/internal/fault"
)

func TestRenderForm(t *testing.T) {
	schema := FormSchema{
		Title:  "Approve epic proposals",
		Prompt: "Review the proposals above.",
		Fields: []FormField{
			{Name: "decision", Label: "Decision", Options: []string{"approve", "cancel"}, Required: true},
		},
	}

	text := renderForm("abc123", schema)

	for _, want := range []string{"Approve epic proposals", "[abc123]", "approve / cancel", "required"} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered form missing %q:\n%s", want, text)
		}
	}
}

func TestSubmitWithoutPendingForm(t *testing.T) {
	s := NewSlackNotifier("xoxb-test", 0)

	if s.Submit("nope", FormSubmission{User: "u1"}) {
		t.Error("Submit should return false when no flow waits on the form")
	}
}

func TestClassifySlackError(t *testing.T) {
	tests := []struct {
		msg  string
		kind fault.Kind
	}{
		{"invalid_auth", fault.Auth},
		{"token_revoked", fault.Auth},
		{"channel_not_found", fault.NotFound},
		{"connection reset", fault.TransientNetwork},
	}

	for _, tt := range tests {
		err := classifySlackError(errors.New(tt.msg))
		if got := fault.KindOf(err); got != tt.kind {
			t.Errorf("classifySlackError(%q) = %q, want %q", tt.msg, got, tt.kind)
		}
	}
}
