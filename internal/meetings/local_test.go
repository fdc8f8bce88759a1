package meetings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/kweiss/sprintbot/pkg/models"
)

func writeMeeting(t *testing.T, dir string, m models.MeetingArtifact) {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, m.MeetingID+".json"), data, 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLocalSourceRecent(t *testing.T) {
	dir := t.TempDir()
	writeMeeting(t, dir, models.MeetingArtifact{
		MeetingID: "m1", Title: "Sprint planning", Date: time.Now().AddDate(0, 0, -2),
	})
	writeMeeting(t, dir, models.MeetingArtifact{
		MeetingID: "m2", Title: "Old retro", Date: time.Now().AddDate(0, 0, -60),
	})

	src := NewLocalSource(dir)
	meetings, err := src.Recent(context.Background(), 30)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(meetings) != 1 || meetings[0].MeetingID != "m1" {
		t.Errorf("meetings = %+v, want only m1", meetings)
	}
}

func TestLocalSourceSearch(t *testing.T) {
	dir := t.TempDir()
	writeMeeting(t, dir, models.MeetingArtifact{
		MeetingID: "m1", Title: "Checkout design review", Date: time.Now(),
	})
	writeMeeting(t, dir, models.MeetingArtifact{
		MeetingID: "m2", Title: "Standup", Notes: "discussed checkout bug", Date: time.Now(),
	})
	writeMeeting(t, dir, models.MeetingArtifact{
		MeetingID: "m3", Title: "All hands", Date: time.Now(),
	})

	src := NewLocalSource(dir)
	meetings, err := src.Search(context.Background(), "Checkout", 30)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(meetings) != 2 {
		t.Errorf("got %d meetings, want 2 (title and notes matches)", len(meetings))
	}
}

func TestLocalSourceMissingDir(t *testing.T) {
	src := NewLocalSource("/nonexistent/meetings")
	if _, err := src.Recent(context.Background(), 30); err == nil {
		t.Error("Recent on a missing directory should fail")
	}
}
