// Package meetings defines the boundary to wherever meeting
// transcripts come from. Discovery itself (calendar APIs, drive
// exports) is a collaborator concern; the pipelines only consume this
// interface.
package meetings

import (
	"context"

	"github.com/kweiss/sprintbot/pkg/models"
)

// Source supplies raw meeting material to the meeting-note pipelines.
type Source interface {
	// Recent returns meetings from the last daysBack days.
	Recent(ctx context.Context, daysBack int) ([]models.MeetingArtifact, error)
	// Search returns meetings from the last daysBack days whose
	// title, notes, or transcript match the keyword.
	Search(ctx context.Context, keyword string, daysBack int) ([]models.MeetingArtifact, error)
}
