package meetings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/kweiss/sprintbot/pkg/models"
)

// LocalSource reads meeting JSON files from a directory. It exists so
// the bot runs end to end in development; production deployments plug
// in a calendar-backed Source instead.
type LocalSource struct {
	dir string
}

// NewLocalSource creates a Source over a directory of *.json meeting
// files, each holding one models.MeetingArtifact.
func NewLocalSource(dir string) *LocalSource {
	return &LocalSource{dir: dir}
}

// Recent implements Source.
func (l *LocalSource) Recent(ctx context.Context, daysBack int) ([]models.MeetingArtifact, error) {
	return l.load(ctx, daysBack, "")
}

// Search implements Source.
func (l *LocalSource) Search(ctx context.Context, keyword string, daysBack int) ([]models.MeetingArtifact, error) {
	return l.load(ctx, daysBack, strings.ToLower(keyword))
}

func (l *LocalSource) load(ctx context.Context, daysBack int, keyword string) ([]models.MeetingArtifact, error) {
	if daysBack <= 0 {
		daysBack = 30
	}
	cutoff := time.Now().AddDate(0, 0, -daysBack)

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("reading meetings dir %s: %w", l.dir, err)
	}

	var meetings []models.MeetingArtifact
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(l.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		var m models.MeetingArtifact
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}

		if m.Date.Before(cutoff) {
			continue
		}
		if keyword != "" && !matches(m, keyword) {
			continue
		}
		meetings = append(meetings, m)
	}
	return meetings, nil
}

func matches(m models.MeetingArtifact, keyword string) bool {
	return strings.Contains(strings.ToLower(m.Title), keyword) ||
		strings.Contains(strings.ToLower(m.Notes), keyword) ||
		strings.Contains(strings.ToLower(m.Transcript), keyword)
}
