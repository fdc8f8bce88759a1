package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/kweiss/sprintbot/internal/fault"
	"github.com/kweiss/sprintbot/internal/genai"
	"github.com/kweiss/sprintbot/internal/ratelimit"
	"github.com/kweiss/sprintbot/pkg/models"
)

// Meeting pipeline stage names.
const (
	StageFetchMeetings = "fetch-meetings"
	StageSummarize     = "summarize"
	StagePublish       = "publish"
)

// ServiceMeetings is the rate-limit bucket for the meeting source.
// Local sources pass through the limiter untouched.
const ServiceMeetings = "meetings"

// MeetingRequest selects which meetings to process and where the
// resulting documents go.
type MeetingRequest struct {
	// Keyword, when set, restricts the batch to matching meetings.
	Keyword string
	// DaysBack bounds how far back to look. Zero means the source
	// default.
	DaysBack int
	// Space is the destination document space. Empty means summaries
	// are produced but nothing is published.
	Space string
}

// RunMeetings executes the meeting documentation pipeline: fetch the
// candidate meetings, summarize each with the generator, then publish
// each summary as a document. Summarize and publish are bounded
// fan-outs; one bad transcript never blocks the rest of the batch.
func (e *Engine) RunMeetings(ctx context.Context, run *Run, req MeetingRequest, channel string) Snapshot {
	run.setStatus(models.RunRunning)
	defer e.notify(ctx, run, channel)

	if req.DaysBack <= 0 {
		req.DaysBack = 7
	}
	space := req.Space
	if space == "" {
		space = e.cfg.DocumentSpace
	}

	// Stage 1: fetch. An empty batch is a hard failure; there is
	// nothing to degrade to.
	var batch []models.MeetingArtifact
	_, ok := e.runStage(ctx, run, StageFetchMeetings, ServiceMeetings,
		func(ctx context.Context) (string, error) {
			var err error
			if req.Keyword != "" {
				batch, err = e.source.Search(ctx, req.Keyword, req.DaysBack)
			} else {
				batch, err = e.source.Recent(ctx, req.DaysBack)
			}
			if err != nil {
				return "", err
			}
			if len(batch) == 0 {
				return "", fault.Errorf(fault.NotFound, "no meetings found in the last %d days", req.DaysBack)
			}
			return "", nil
		})
	if !ok {
		e.shortCircuit(run, StageFetchMeetings)
		return run.Snapshot()
	}

	// Stage 2: summarize every meeting, bounded fan-out.
	summarizeCalls := make([]subCall, len(batch))
	for i := range batch {
		i := i
		summarizeCalls[i] = subCall{
			Subject: batch[i].Title,
			Service: ratelimit.ServiceGenerator,
			Fn: func(ctx context.Context) (string, error) {
				text, err := e.gen.Generate(ctx, genai.GenerateRequest{
					System:      e.prompts.MeetingSystem,
					User:        e.prompts.MeetingUser(batch[i]),
					MaxTokens:   e.cfg.MaxTokens,
					Temperature: e.cfg.Temperature,
				})
				if err != nil {
					return "", err
				}
				summary, err := genai.ParseMeetingSummary(text)
				if err != nil {
					return "", err
				}
				batch[i].Summary = summary
				return "", nil
			},
		}
	}
	summarizeResults, ok := e.fanOut(ctx, run, StageSummarize, summarizeCalls)
	if !ok {
		return run.Snapshot()
	}

	// Stage 3: publish every summarized meeting. Skipped entirely
	// when no document space is configured; summaries still appear in
	// the report.
	var publishResults []StageResult
	if space != "" {
		var publishCalls []subCall
		for i := range batch {
			if i >= len(summarizeResults) || summarizeResults[i].Outcome == OutcomeFailed {
				continue
			}
			m := &batch[i]
			publishCalls = append(publishCalls, subCall{
				Subject: m.Title,
				Service: ratelimit.ServiceTracker,
				Fn: func(ctx context.Context) (string, error) {
					// A meeting that already carries a page gets its
					// body replaced instead of a second page.
					if m.PageID != "" {
						if err := e.tracker.UpdateDocument(ctx, m.PageID, renderDocument(*m)); err != nil {
							return "", err
						}
						return m.PageID, nil
					}
					id, err := e.tracker.CreateDocument(ctx, space,
						documentTitle(*m), renderDocument(*m), m.Summary.Tags)
					if err != nil {
						return "", err
					}
					m.PageID = id
					return id, nil
				},
			})
		}
		publishResults, ok = e.fanOut(ctx, run, StagePublish, publishCalls)
		if !ok {
			return run.Snapshot()
		}
	}

	failed := len(failedSubjects(summarizeResults)) + len(failedSubjects(publishResults))
	switch {
	case failed == 0:
		run.finalize(models.RunSucceeded, "")
	case failed >= len(batch):
		run.finalize(models.RunFailed, "every meeting in the batch failed")
	default:
		run.finalize(models.RunPartial, "")
	}
	return run.Snapshot()
}

// documentTitle names the published page. Dated so repeated batches
// over the same meeting produce distinguishable pages.
func documentTitle(m models.MeetingArtifact) string {
	title := m.Title
	if m.Summary != nil && m.Summary.Title != "" {
		title = m.Summary.Title
	}
	return fmt.Sprintf("%s %s", m.Date.Format("2006-01-02"), title)
}

// renderDocument formats a summarized meeting as the document body.
func renderDocument(m models.MeetingArtifact) string {
	s := m.Summary
	var b strings.Builder

	fmt.Fprintf(&b, "h1. %s\n\n", documentTitle(m))
	if len(s.Participants) > 0 {
		fmt.Fprintf(&b, "*Participants:* %s\n\n", strings.Join(s.Participants, ", "))
	} else if len(m.Attendees) > 0 {
		fmt.Fprintf(&b, "*Participants:* %s\n\n", strings.Join(m.Attendees, ", "))
	}
	if s.Overview != "" {
		fmt.Fprintf(&b, "h2. Overview\n%s\n\n", s.Overview)
	}
	if len(s.Decisions) > 0 {
		b.WriteString("h2. Decisions\n")
		for _, d := range s.Decisions {
			fmt.Fprintf(&b, "* %s\n", d)
		}
		b.WriteString("\n")
	}
	if len(s.ActionItems) > 0 {
		b.WriteString("h2. Action items\n")
		for _, a := range s.ActionItems {
			line := "* " + a.Description
			if a.Owner != "" {
				line += " [" + a.Owner + "]"
			}
			if a.Due != "" {
				line += " (due " + a.Due + ")"
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
