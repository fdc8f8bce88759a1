package main

import (
	"testing"

	"github.com/kweiss/sprintbot/pkg/models"
)

func TestParseSlashEpic(t *testing.T) {
	req, ok := parseSlash("epic Self-serve onboarding | Let teams onboard alone priority=High labels=growth,auth", "C1", "dana")
	if !ok {
		t.Fatal("parseSlash rejected a valid epic command")
	}
	if req.Kind != models.KindEpicCreation {
		t.Errorf("kind = %s, want %s", req.Kind, models.KindEpicCreation)
	}
	if got := req.Field("title"); got != "Self-serve onboarding" {
		t.Errorf("title = %q", got)
	}
	if got := req.Field("description"); got != "Let teams onboard alone" {
		t.Errorf("description = %q", got)
	}
	if got := req.Field("priority"); got != "High" {
		t.Errorf("priority = %q", got)
	}
	if got := req.Field("labels"); got != "growth,auth" {
		t.Errorf("labels = %q", got)
	}
	if req.Channel != "C1" || req.RequestingUser != "dana" {
		t.Errorf("channel/user = %q/%q", req.Channel, req.RequestingUser)
	}
}

func TestParseSlashEpicWithoutDescription(t *testing.T) {
	req, ok := parseSlash("epic Billing revamp", "C1", "dana")
	if !ok {
		t.Fatal("parseSlash rejected a title-only epic command")
	}
	if got := req.Field("title"); got != "Billing revamp" {
		t.Errorf("title = %q", got)
	}
	if got := req.Field("description"); got != "" {
		t.Errorf("description = %q, want empty", got)
	}
}

func TestParseSlashMeetings(t *testing.T) {
	req, ok := parseSlash("meetings days=14 space=TEAM", "C1", "dana")
	if !ok {
		t.Fatal("parseSlash rejected a valid meetings command")
	}
	if req.Kind != models.KindMeetingBatch {
		t.Errorf("kind = %s, want %s", req.Kind, models.KindMeetingBatch)
	}
	if req.Field("days") != "14" || req.Field("space") != "TEAM" {
		t.Errorf("fields = %v", req.Fields)
	}
}

func TestParseSlashSearch(t *testing.T) {
	req, ok := parseSlash("search quarterly planning days=30", "C1", "dana")
	if !ok {
		t.Fatal("parseSlash rejected a valid search command")
	}
	if req.Kind != models.KindMeetingSearch {
		t.Errorf("kind = %s, want %s", req.Kind, models.KindMeetingSearch)
	}
	if got := req.Field("keyword"); got != "quarterly planning" {
		t.Errorf("keyword = %q", got)
	}
	if got := req.Field("days"); got != "30" {
		t.Errorf("days = %q", got)
	}
}

func TestParseSlashUnknownVerb(t *testing.T) {
	if _, ok := parseSlash("deploy to prod", "C1", "dana"); ok {
		t.Error("parseSlash accepted an unknown verb")
	}
}
