package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kweiss/sprintbot/pkg/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func testRecord(id string, finished time.Time) Record {
	return Record{
		RunID:       id,
		Kind:        models.KindEpicCreation,
		Status:      models.RunPartial,
		Detail:      "",
		Created:     []string{"PROJ-1", "PROJ-2"},
		Failures:    []models.Failure{{Subject: "billing", Reason: "NotFound: gone"}},
		Channel:     "C123",
		RequestedBy: "dana",
		StartedAt:   finished.Add(-time.Minute),
		FinishedAt:  finished,
	}
}

func TestSaveAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	want := testRecord("r1", time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.RunID != want.RunID || got.Kind != want.Kind || got.Status != want.Status {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
	if len(got.Created) != 2 || got.Created[0] != "PROJ-1" {
		t.Errorf("Created = %v, want %v", got.Created, want.Created)
	}
	if len(got.Failures) != 1 || got.Failures[0].Subject != "billing" {
		t.Errorf("Failures = %v, want %v", got.Failures, want.Failures)
	}
}

func TestGetMissing(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); err == nil {
		t.Error("Get of a missing run did not fail")
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rec := testRecord("r1", time.Now().UTC())
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	rec.Status = models.RunSucceeded
	rec.Failures = nil
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.RunSucceeded {
		t.Errorf("Status = %s, want %s after replace", got.Status, models.RunSucceeded)
	}
	if len(got.Failures) != 0 {
		t.Errorf("Failures = %v, want none after replace", got.Failures)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		if err := s.Save(ctx, testRecord(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save %s failed: %v", id, err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d records, want 2", len(got))
	}
	if got[0].RunID != "r3" || got[1].RunID != "r2" {
		t.Errorf("Recent order = [%s, %s], want [r3, r2]", got[0].RunID, got[1].RunID)
	}
}
