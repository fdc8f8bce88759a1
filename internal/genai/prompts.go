package genai

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kweiss/sprintbot/pkg/models"
)

// defaultFeatureSystem instructs the model to break an epic into features.
const defaultFeatureSystem = `You are an experienced agile project manager.
Given an epic title and description, produce the list of features that
would deliver it. Answer with a JSON array of short feature names and
nothing else. Between 3 and 8 features.`

// defaultStorySystem instructs the model to draft one user story.
const defaultStorySystem = `You are an experienced agile project manager.
Draft a user story for the given feature of an epic. Answer with a
single JSON object and nothing else, with fields: "title" (string),
"description" (string, as-a/I-want/so-that form), "estimate" (integer
story points, 1-8), "acceptance_criteria" (array of strings, at least 2).`

// defaultMeetingSystem instructs the model to structure meeting notes.
const defaultMeetingSystem = `You are a meticulous note taker. Structure
the raw meeting material into a JSON object and nothing else, with
fields: "title" (string), "overview" (string), "decisions" (array of
strings), "action_items" (array of objects with "description", "owner",
"due"), "participants" (array of strings), "tags" (array of strings).`

// Prompts holds the system prompts for each generation schema. The
// zero value is unusable; use DefaultPrompts or LoadPrompts.
type Prompts struct {
	FeatureSystem string `yaml:"feature_system"`
	StorySystem   string `yaml:"story_system"`
	MeetingSystem string `yaml:"meeting_system"`
}

// DefaultPrompts returns the built-in prompt set.
func DefaultPrompts() Prompts {
	return Prompts{
		FeatureSystem: defaultFeatureSystem,
		StorySystem:   defaultStorySystem,
		MeetingSystem: defaultMeetingSystem,
	}
}

// LoadPrompts reads a YAML prompt override file. Fields left empty in
// the file keep their built-in defaults.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("reading prompt file: %w", err)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return p, fmt.Errorf("parsing prompt file %s: %w", path, err)
	}

	if override.FeatureSystem != "" {
		p.FeatureSystem = override.FeatureSystem
	}
	if override.StorySystem != "" {
		p.StorySystem = override.StorySystem
	}
	if override.MeetingSystem != "" {
		p.MeetingSystem = override.MeetingSystem
	}
	return p, nil
}

// FeatureUser builds the user prompt for feature generation.
func (p Prompts) FeatureUser(title, description, projectContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Epic: %s\n\n%s\n", title, description)
	if projectContext != "" {
		fmt.Fprintf(&b, "\nContext: %s\n", projectContext)
	}
	return b.String()
}

// StoryUser builds the user prompt for drafting one story.
func (p Prompts) StoryUser(epicDescription, feature, projectContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Feature: %s\n\nEpic description:\n%s\n", feature, epicDescription)
	if projectContext != "" {
		fmt.Fprintf(&b, "\nContext: %s\n", projectContext)
	}
	return b.String()
}

// MeetingUser builds the user prompt for summarizing a meeting.
func (p Prompts) MeetingUser(m models.MeetingArtifact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting: %s\nDate: %s\n", m.Title, m.Date.Format("2006-01-02 15:04"))
	if len(m.Attendees) > 0 {
		fmt.Fprintf(&b, "Attendees: %s\n", strings.Join(m.Attendees, ", "))
	}
	if m.Notes != "" {
		fmt.Fprintf(&b, "\nNotes:\n%s\n", m.Notes)
	}
	if m.Transcript != "" {
		fmt.Fprintf(&b, "\nTranscript:\n%s\n", m.Transcript)
	}
	return b.String()
}
