package main

import (
	"regexp"
	"strings"

	"github.com/kweiss/sprintbot/pkg/models"
)

// fieldToken matches key=value arguments in slash-command text, e.g.
// priority=High or labels=auth,billing.
var fieldToken = regexp.MustCompile(`^([a-z_]+)=(.*)$`)

// parseSlash turns raw slash-command text into a normalized command
// request. Supported forms:
//
//	epic <title> | <description> [priority=High] [labels=a,b] [features=x,y]
//	meetings [days=7] [space=TEAM]
//	search <keyword> [days=30] [space=TEAM]
//
// The first word selects the workflow; everything else is free text
// plus key=value fields. Returns false when the verb is not a
// workflow (cancel, status, help are handled by the transport).
func parseSlash(text, channel, user string) (models.CommandRequest, bool) {
	verb, rest := splitVerb(text)

	req := models.CommandRequest{
		Channel:        channel,
		RequestingUser: user,
		Fields:         map[string]string{},
	}

	switch verb {
	case "epic":
		req.Kind = models.KindEpicCreation
		free := collectFields(rest, req.Fields)
		title, description, _ := strings.Cut(free, "|")
		req.Fields["title"] = strings.TrimSpace(title)
		req.Fields["description"] = strings.TrimSpace(description)
	case "meetings":
		req.Kind = models.KindMeetingBatch
		collectFields(rest, req.Fields)
	case "search":
		req.Kind = models.KindMeetingSearch
		free := collectFields(rest, req.Fields)
		req.Fields["keyword"] = strings.TrimSpace(free)
	default:
		return models.CommandRequest{}, false
	}
	return req, true
}

func splitVerb(text string) (string, string) {
	text = strings.TrimSpace(text)
	verb, rest, _ := strings.Cut(text, " ")
	return strings.ToLower(verb), rest
}

// collectFields extracts key=value tokens into fields and returns the
// remaining free text.
func collectFields(text string, fields map[string]string) string {
	var free []string
	for _, token := range strings.Fields(text) {
		if m := fieldToken.FindStringSubmatch(token); m != nil {
			fields[m[1]] = m[2]
			continue
		}
		free = append(free, token)
	}
	return strings.Join(free, " ")
}
