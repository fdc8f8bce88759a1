package models

import "testing"

func TestWorkflowKindValid(t *testing.T) {
	valid := []WorkflowKind{KindEpicCreation, KindMeetingBatch, KindMeetingSearch}
	for _, k := range valid {
		if !k.Valid() {
			t.Errorf("kind %q should be valid", k)
		}
	}

	invalid := []WorkflowKind{"", "epic", "meeting", "story-batch"}
	for _, k := range invalid {
		if k.Valid() {
			t.Errorf("kind %q should be invalid", k)
		}
	}
}

func TestRunStatusTerminal(t *testing.T) {
	tests := []struct {
		status   RunStatus
		terminal bool
	}{
		{RunPending, false},
		{RunRunning, false},
		{RunSucceeded, true},
		{RunPartial, true},
		{RunFailed, true},
		{RunCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("status %q: Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestPriorityValid(t *testing.T) {
	if !PriorityMedium.Valid() {
		t.Error("Medium should be a valid priority")
	}
	if Priority("Urgent").Valid() {
		t.Error("Urgent should not be a valid priority")
	}
}

func TestCommandRequestField(t *testing.T) {
	req := CommandRequest{
		Kind:   KindEpicCreation,
		Fields: map[string]string{"title": "Checkout flow"},
	}

	if got := req.Field("title"); got != "Checkout flow" {
		t.Errorf("Field(title) = %q, want %q", got, "Checkout flow")
	}
	if got := req.Field("missing"); got != "" {
		t.Errorf("Field(missing) = %q, want empty", got)
	}

	var empty CommandRequest
	if got := empty.Field("title"); got != "" {
		t.Errorf("Field on nil map = %q, want empty", got)
	}
}
