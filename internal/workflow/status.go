package workflow

import (
	"context"
	"fmt"

	"github.com/kweiss/sprintbot/internal/dispatch"
	"github.com/kweiss/sprintbot/internal/fault"
	"github.com/kweiss/sprintbot/internal/ratelimit"
	"github.com/kweiss/sprintbot/internal/tracker"
)

// EpicStatus looks up an epic and its linked stories in the tracker.
// It is a direct query, not a run, but still goes through the
// dispatcher for rate limiting and retries like every external call.
func (e *Engine) EpicStatus(ctx context.Context, epicKey string) ([]tracker.Issue, error) {
	var issues []tracker.Issue
	_, err := e.disp.Do(ctx, dispatch.Call{
		RunID:   "adhoc",
		Stage:   "epic-status",
		Service: ratelimit.ServiceTracker,
		Fn: func(ctx context.Context) error {
			var err error
			issues, err = e.tracker.SearchIssues(ctx,
				fmt.Sprintf("key = %s OR parent = %s", epicKey, epicKey))
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	if len(issues) == 0 {
		return nil, fault.Errorf(fault.NotFound, "no issues match %s", epicKey)
	}
	return issues, nil
}

// TransitionEpic moves an issue to the target workflow state.
func (e *Engine) TransitionEpic(ctx context.Context, key, targetState string) error {
	_, err := e.disp.Do(ctx, dispatch.Call{
		RunID:   "adhoc",
		Stage:   "transition",
		Service: ratelimit.ServiceTracker,
		Fn: func(ctx context.Context) error {
			return e.tracker.TransitionIssue(ctx, key, targetState)
		},
	})
	return err
}
