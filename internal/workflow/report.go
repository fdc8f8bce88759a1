package workflow

import (
	"fmt"
	"strings"

	"github.com/kweiss/sprintbot/pkg/models"
)

// RenderReport derives the terminal report from a run snapshot. It is
// a pure function of the snapshot: rendering the same snapshot twice
// yields identical reports.
func RenderReport(snap Snapshot) models.Report {
	report := models.Report{
		RunID:  snap.ID,
		Kind:   snap.Kind,
		Status: snap.Status,
		Detail: snap.Detail,
	}
	for _, r := range snap.Results {
		if r.Stage == "notify" {
			continue
		}
		if r.Outcome == OutcomeFailed {
			subject := r.Subject
			if subject == "" {
				subject = r.Stage
			}
			report.Failures = append(report.Failures, models.Failure{Subject: subject, Reason: r.Err})
			continue
		}
		if r.ArtifactKey != "" {
			report.Created = append(report.Created, r.ArtifactKey)
		}
	}
	return report
}

// FormatReport renders a report as a chat message.
func FormatReport(report models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*%s* run `%s`: %s\n", report.Kind, report.RunID, statusLine(report.Status))
	if len(report.Created) > 0 {
		fmt.Fprintf(&b, "Created: %s\n", strings.Join(report.Created, ", "))
	}
	for _, f := range report.Failures {
		fmt.Fprintf(&b, "• %s failed: %s\n", f.Subject, f.Reason)
	}
	if report.Detail != "" {
		fmt.Fprintf(&b, "Detail: %s\n", report.Detail)
	}
	return strings.TrimRight(b.String(), "\n")
}

func statusLine(status models.RunStatus) string {
	switch status {
	case models.RunSucceeded:
		return "succeeded ✓"
	case models.RunPartial:
		return "partially succeeded ⚠"
	case models.RunFailed:
		return "failed ✗"
	case models.RunCancelled:
		return "cancelled"
	default:
		return string(status)
	}
}
