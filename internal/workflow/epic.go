package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/kweiss/sprintbot/internal/chat"
	"github.com/kweiss/sprintbot/internal/genai"
	"github.com/kweiss/sprintbot/internal/ratelimit"
	"github.com/kweiss/sprintbot/internal/tracker"
	"github.com/kweiss/sprintbot/pkg/models"
)

// Epic pipeline stage names.
const (
	StageGenerateFeatures = "generate-features"
	StageApproval         = "approval"
	StageCreateEpic       = "create-epic"
	StageDraftStories     = "draft-stories"
	StageCreateStories    = "create-stories"
)

// RunEpic executes the epic-creation pipeline: generate features when
// none were supplied, create the epic, draft one story per feature,
// create and link each drafted story, then deliver the terminal
// report. The run ends Succeeded, PartialFailure (epic exists, some
// stories failed), Failed, or Cancelled.
func (e *Engine) RunEpic(ctx context.Context, run *Run, req models.EpicRequest, channel string) Snapshot {
	run.setStatus(models.RunRunning)
	defer e.notify(ctx, run, channel)

	projectContext := "Project: " + e.cfg.ProjectKey

	// Stage 1: feature list, generated only when the request did not
	// supply one.
	features := req.Features
	if len(features) == 0 {
		_, ok := e.runStage(ctx, run, StageGenerateFeatures, ratelimit.ServiceGenerator,
			func(ctx context.Context) (string, error) {
				text, err := e.gen.Generate(ctx, genai.GenerateRequest{
					System:      e.prompts.FeatureSystem,
					User:        e.prompts.FeatureUser(req.Title, req.Description, projectContext),
					MaxTokens:   e.cfg.MaxTokens,
					Temperature: e.cfg.Temperature,
				})
				if err != nil {
					return "", err
				}
				features, err = genai.ParseFeatureList(text)
				return "", err
			})
		if !ok {
			e.shortCircuit(run, StageGenerateFeatures)
			return run.Snapshot()
		}
	}

	// Optional approval gate before anything is written to the
	// tracker.
	if e.cfg.RequireApproval {
		if !e.awaitApproval(ctx, run, req, features, channel) {
			return run.Snapshot()
		}
	}

	// Stage 2: create the epic. Everything downstream depends on its
	// key, so a failure here fails the run.
	epicKey, ok := e.runStage(ctx, run, StageCreateEpic, ratelimit.ServiceTracker,
		func(ctx context.Context) (string, error) {
			return e.tracker.CreateIssue(ctx, tracker.IssueEpic, map[string]any{
				"summary":     req.Title,
				"description": req.Description,
				"priority":    string(priorityOrDefault(req.Priority)),
				"labels":      req.Labels,
			})
		})
	if !ok {
		e.shortCircuit(run, StageCreateEpic)
		return run.Snapshot()
	}

	// Stage 3: draft one story per feature, bounded fan-out.
	stories := make([]*models.UserStory, len(features))
	draftCalls := make([]subCall, len(features))
	for i, feature := range features {
		i, feature := i, feature
		draftCalls[i] = subCall{
			Subject: feature,
			Service: ratelimit.ServiceGenerator,
			Fn: func(ctx context.Context) (string, error) {
				text, err := e.gen.Generate(ctx, genai.GenerateRequest{
					System:      e.prompts.StorySystem,
					User:        e.prompts.StoryUser(req.Description, feature, projectContext),
					MaxTokens:   e.cfg.MaxTokens,
					Temperature: e.cfg.Temperature,
				})
				if err != nil {
					return "", err
				}
				story, err := genai.ParseStory(text)
				if err != nil {
					return "", err
				}
				stories[i] = story
				return "", nil
			},
		}
	}
	draftResults, ok := e.fanOut(ctx, run, StageDraftStories, draftCalls)
	if !ok {
		return run.Snapshot()
	}

	// Stage 4: create and link each successfully drafted story. Drafts
	// that failed stage 3 are already recorded by feature name and are
	// not attempted here.
	var createCalls []subCall
	for i := range features {
		if i >= len(draftResults) || draftResults[i].Outcome == OutcomeFailed {
			continue
		}
		story := stories[i]
		createCalls = append(createCalls, subCall{
			Subject: draftResults[i].Subject,
			Service: ratelimit.ServiceTracker,
			Fn: func(ctx context.Context) (string, error) {
				// Each tracker call is retried on its own. Once the
				// create has succeeded, later attempts re-run only
				// the link; the story issue is created at most once.
				if story.Key == "" {
					key, err := e.tracker.CreateIssue(ctx, tracker.IssueStory, map[string]any{
						"summary":             story.Title,
						"description":         story.Description,
						"estimate":            story.Estimate,
						"acceptance_criteria": story.AcceptanceCriteria,
					})
					if err != nil {
						return "", err
					}
					story.Key = key
				}
				if err := e.tracker.LinkIssues(ctx, story.Key, epicKey); err != nil {
					return "", fmt.Errorf("story %s created but not linked: %w", story.Key, err)
				}
				story.EpicKey = epicKey
				return story.Key, nil
			},
		})
	}
	createResults, ok := e.fanOut(ctx, run, StageCreateStories, createCalls)
	if !ok {
		return run.Snapshot()
	}

	// Terminal status: every sub-call succeeded means Succeeded; the
	// epic exists, so any sub-call failure degrades to partial rather
	// than failed.
	if len(failedSubjects(draftResults)) == 0 && len(failedSubjects(createResults)) == 0 {
		run.finalize(models.RunSucceeded, "")
	} else {
		run.finalize(models.RunPartial, "")
	}
	return run.Snapshot()
}

// awaitApproval opens a chat form and blocks the run until the user
// approves, cancels, or the suspension times out. Returns true when
// the pipeline may proceed.
func (e *Engine) awaitApproval(ctx context.Context, run *Run, req models.EpicRequest, features []string, channel string) bool {
	var submission chat.FormSubmission
	_, ok := e.runStage(ctx, run, StageApproval, ratelimit.ServiceChat,
		func(ctx context.Context) (string, error) {
			var err error
			submission, err = e.notifier.OpenForm(ctx, channel, chat.FormSchema{
				Title:  "Approve epic proposal",
				Prompt: fmt.Sprintf("Epic *%s* with features:\n• %s", req.Title, strings.Join(features, "\n• ")),
				Fields: []chat.FormField{
					{Name: "decision", Label: "Decision", Options: []string{"approve", "cancel"}, Required: true},
				},
			})
			return "", err
		})
	if !ok {
		e.shortCircuit(run, StageApproval)
		return false
	}

	if submission.Values["decision"] != "approve" {
		run.finalize(models.RunCancelled, "proposal rejected by "+submission.User)
		return false
	}
	return true
}

// shortCircuit marks the run failed after a non-optional stage
// failure, unless cancellation already made the run terminal. The
// dependent downstream stages are never started.
func (e *Engine) shortCircuit(run *Run, stage string) {
	if run.Status().Terminal() {
		return
	}
	detail := "stage " + stage + " failed"
	for _, r := range run.Snapshot().Results {
		if r.Stage == stage && r.Outcome == OutcomeFailed {
			detail = r.Err
		}
	}
	run.finalize(models.RunFailed, detail)
}

func priorityOrDefault(p models.Priority) models.Priority {
	if p == "" {
		return models.PriorityMedium
	}
	return p
}
