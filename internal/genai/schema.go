package genai

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/kweiss/sprintbot/internal/fault"
	"github.com/kweiss/sprintbot/pkg/models"
)

// The model is prompted to answer in JSON. Anything that fails to
// decode into the declared schema is a non-retryable InvalidResponse:
// regenerating on a schema mismatch is an input problem, not a
// transient one.

// ParseFeatureList decodes a generated feature list.
func ParseFeatureList(text string) ([]string, error) {
	var features []string
	if err := json.Unmarshal([]byte(extractJSON(text)), &features); err != nil {
		return nil, fault.Errorf(fault.InvalidResponse, "feature list is not a JSON string array: %v", err)
	}

	out := features[:0]
	for _, f := range features {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fault.New(fault.InvalidResponse, "feature list is empty")
	}
	return out, nil
}

type storySchema struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Estimate           int      `json:"estimate"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
}

// ParseStory decodes a generated user story.
func ParseStory(text string) (*models.UserStory, error) {
	var s storySchema
	if err := json.Unmarshal([]byte(extractJSON(text)), &s); err != nil {
		return nil, fault.Errorf(fault.InvalidResponse, "story is not valid JSON: %v", err)
	}
	if strings.TrimSpace(s.Title) == "" {
		return nil, fault.New(fault.InvalidResponse, "story is missing a title")
	}
	if len(s.AcceptanceCriteria) == 0 {
		return nil, fault.New(fault.InvalidResponse, "story has no acceptance criteria")
	}

	return &models.UserStory{
		Title:              strings.TrimSpace(s.Title),
		Description:        strings.TrimSpace(s.Description),
		Estimate:           s.Estimate,
		AcceptanceCriteria: s.AcceptanceCriteria,
	}, nil
}

type summarySchema struct {
	Title       string   `json:"title"`
	Overview    string   `json:"overview"`
	Decisions   []string `json:"decisions"`
	ActionItems []struct {
		Description string `json:"description"`
		Owner       string `json:"owner"`
		Due         string `json:"due"`
	} `json:"action_items"`
	Participants []string `json:"participants"`
	Tags         []string `json:"tags"`
}

// ParseMeetingSummary decodes a generated meeting summary.
func ParseMeetingSummary(text string) (*models.MeetingSummary, error) {
	var s summarySchema
	if err := json.Unmarshal([]byte(extractJSON(text)), &s); err != nil {
		return nil, fault.Errorf(fault.InvalidResponse, "meeting summary is not valid JSON: %v", err)
	}
	if strings.TrimSpace(s.Title) == "" {
		return nil, fault.New(fault.InvalidResponse, "meeting summary is missing a title")
	}

	summary := &models.MeetingSummary{
		Title:        strings.TrimSpace(s.Title),
		Overview:     strings.TrimSpace(s.Overview),
		Decisions:    s.Decisions,
		Participants: s.Participants,
		Tags:         s.Tags,
	}
	for _, item := range s.ActionItems {
		if strings.TrimSpace(item.Description) == "" {
			continue
		}
		summary.ActionItems = append(summary.ActionItems, models.ActionItem{
			Description: item.Description,
			Owner:       item.Owner,
			Due:         item.Due,
		})
	}
	return summary, nil
}

// extractJSON strips a markdown code fence if the model wrapped its
// answer in one, and trims surrounding prose down to the outermost
// JSON value.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		text = strings.TrimSpace(rest)
	}

	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return text
	}
	var closer byte
	if text[start] == '[' {
		closer = ']'
	} else {
		closer = '}'
	}
	end := strings.LastIndexByte(text, closer)
	if end <= start {
		return text
	}
	return text[start : end+1]
}
