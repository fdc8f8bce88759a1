package coordinator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kweiss/sprintbot/internal/chat"
	"github.com/kweiss/sprintbot/internal/dispatch"
	"github.com/kweiss/sprintbot/internal/fault"
	"github.com/kweiss/sprintbot/internal/genai"
	"github.com/kweiss/sprintbot/internal/history"
	"github.com/kweiss/sprintbot/internal/metrics"
	"github.com/kweiss/sprintbot/internal/ratelimit"
	"github.com/kweiss/sprintbot/internal/tracker"
	"github.com/kweiss/sprintbot/internal/workflow"
	"github.com/kweiss/sprintbot/pkg/models"
)

// stubGen answers every prompt with a well-formed story.
type stubGen struct {
	calls atomic.Int64
}

func (g *stubGen) Generate(context.Context, genai.GenerateRequest) (string, error) {
	g.calls.Add(1)
	return `{"title": "Story", "description": "d", "acceptance_criteria": ["done"]}`, nil
}

type stubTracker struct {
	calls atomic.Int64
}

func (t *stubTracker) CreateIssue(context.Context, tracker.IssueKind, map[string]any) (string, error) {
	return fmt.Sprintf("PROJ-%d", t.calls.Add(1)), nil
}
func (t *stubTracker) LinkIssues(context.Context, string, string) error { return nil }
func (t *stubTracker) SearchIssues(context.Context, string) ([]tracker.Issue, error) {
	return nil, nil
}
func (t *stubTracker) TransitionIssue(context.Context, string, string) error { return nil }
func (t *stubTracker) CreateDocument(context.Context, string, string, string, []string) (string, error) {
	return "doc-1", nil
}
func (t *stubTracker) UpdateDocument(context.Context, string, string) error { return nil }

type stubNotifier struct {
	calls atomic.Int64
}

func (n *stubNotifier) PostMessage(context.Context, string, string) error {
	n.calls.Add(1)
	return nil
}
func (n *stubNotifier) OpenForm(context.Context, string, chat.FormSchema) (chat.FormSubmission, error) {
	return chat.FormSubmission{Values: map[string]string{"decision": "approve"}}, nil
}

type stubSource struct{}

func (stubSource) Recent(context.Context, int) ([]models.MeetingArtifact, error) {
	return nil, nil
}
func (stubSource) Search(context.Context, string, int) ([]models.MeetingArtifact, error) {
	return nil, nil
}

func newTestCoordinator(t *testing.T, gen *stubGen, tc *stubTracker, n *stubNotifier) (*Coordinator, *history.Store) {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open history store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	disp := dispatch.New(ratelimit.New(nil), dispatch.Policy{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
	}, metrics.New())
	engine := workflow.New(workflow.Config{ProjectKey: "PROJ"},
		gen, genai.DefaultPrompts(), tc, n, stubSource{}, disp, metrics.New())

	c := New(engine, store)
	t.Cleanup(c.Stop)
	return c, store
}

func waitForRecord(t *testing.T, store *history.Store, runID string) history.Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := store.Get(context.Background(), runID)
		if err == nil {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s never reached the history store", runID)
	return history.Record{}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     models.CommandRequest
		wantErr bool
	}{
		{
			name: "valid epic request",
			req: models.CommandRequest{
				Kind:    models.KindEpicCreation,
				Channel: "C1",
				Fields:  map[string]string{"title": "Onboarding"},
			},
		},
		{
			name:    "unknown kind",
			req:     models.CommandRequest{Kind: "mystery", Channel: "C1"},
			wantErr: true,
		},
		{
			name:    "missing channel",
			req:     models.CommandRequest{Kind: models.KindMeetingBatch},
			wantErr: true,
		},
		{
			name: "epic without title",
			req: models.CommandRequest{
				Kind:    models.KindEpicCreation,
				Channel: "C1",
				Fields:  map[string]string{"title": "   "},
			},
			wantErr: true,
		},
		{
			name: "epic with bad priority",
			req: models.CommandRequest{
				Kind:    models.KindEpicCreation,
				Channel: "C1",
				Fields:  map[string]string{"title": "t", "priority": "Urgent"},
			},
			wantErr: true,
		},
		{
			name: "search without keyword",
			req: models.CommandRequest{
				Kind:    models.KindMeetingSearch,
				Channel: "C1",
			},
			wantErr: true,
		},
		{
			name: "non-numeric days",
			req: models.CommandRequest{
				Kind:    models.KindMeetingBatch,
				Channel: "C1",
				Fields:  map[string]string{"days": "soon"},
			},
			wantErr: true,
		},
		{
			name: "valid meeting batch",
			req: models.CommandRequest{
				Kind:    models.KindMeetingBatch,
				Channel: "C1",
				Fields:  map[string]string{"days": "14"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.wantErr && err == nil {
				t.Error("Validate accepted an invalid request")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate rejected a valid request: %v", err)
			}
			if tt.wantErr && fault.KindOf(err) != fault.InvalidRequest {
				t.Errorf("error kind = %s, want %s", fault.KindOf(err), fault.InvalidRequest)
			}
		})
	}
}

func TestSubmitRejectsInvalidWithoutSideEffects(t *testing.T) {
	gen, tc, n := &stubGen{}, &stubTracker{}, &stubNotifier{}
	c, _ := newTestCoordinator(t, gen, tc, n)

	_, err := c.Submit(models.CommandRequest{Kind: "mystery", Channel: "C1"})
	if fault.KindOf(err) != fault.InvalidRequest {
		t.Fatalf("error kind = %s, want %s", fault.KindOf(err), fault.InvalidRequest)
	}
	if gen.calls.Load() != 0 || tc.calls.Load() != 0 || n.calls.Load() != 0 {
		t.Error("an invalid request reached an external service")
	}
	if c.Count() != 0 {
		t.Errorf("live runs = %d, want 0", c.Count())
	}
}

func TestSubmitRunsEpicToCompletion(t *testing.T) {
	gen, tc, n := &stubGen{}, &stubTracker{}, &stubNotifier{}
	c, store := newTestCoordinator(t, gen, tc, n)

	runID, err := c.Submit(models.CommandRequest{
		Kind:           models.KindEpicCreation,
		Channel:        "C1",
		RequestingUser: "dana",
		Fields: map[string]string{
			"title":    "Onboarding",
			"features": "signup, invites",
		},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	rec := waitForRecord(t, store, runID)
	if rec.Status != models.RunSucceeded {
		t.Errorf("status = %s, want %s", rec.Status, models.RunSucceeded)
	}
	if rec.RequestedBy != "dana" {
		t.Errorf("RequestedBy = %q, want dana", rec.RequestedBy)
	}
	// Epic plus two stories.
	if len(rec.Created) != 3 {
		t.Errorf("created = %v, want 3 artifacts", rec.Created)
	}
	if n.calls.Load() == 0 {
		t.Error("no terminal report was posted")
	}
}

func TestCancelUnknownRun(t *testing.T) {
	c, _ := newTestCoordinator(t, &stubGen{}, &stubTracker{}, &stubNotifier{})
	err := c.Cancel("nope")
	if fault.KindOf(err) != fault.NotFound {
		t.Errorf("error kind = %s, want %s", fault.KindOf(err), fault.NotFound)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, b ,, c ")
	if strings.Join(got, "|") != "a|b|c" {
		t.Errorf("splitList = %v", got)
	}
	if splitList("  ") != nil {
		t.Errorf("splitList of blanks = %v, want nil", splitList("  "))
	}
}
