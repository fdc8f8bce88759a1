// Package coordinator validates incoming commands, owns the registry
// of live runs, and drives each run through the workflow engine.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kweiss/sprintbot/internal/fault"
	"github.com/kweiss/sprintbot/internal/history"
	"github.com/kweiss/sprintbot/internal/workflow"
	"github.com/kweiss/sprintbot/pkg/models"
)

// Coordinator tracks concurrent runs and dispatches them to the
// engine. One coordinator serves the whole process.
type Coordinator struct {
	engine *workflow.Engine
	store  *history.Store

	// runs tracks live runs by ID
	runs map[string]*workflow.Run
	mu   sync.RWMutex

	// ctx and cancel for coordinator lifecycle
	ctx    context.Context
	cancel context.CancelFunc

	// wg tracks live runs
	wg sync.WaitGroup
}

// New creates a Coordinator. The history store may be nil, in which
// case finished runs are not persisted.
func New(engine *workflow.Engine, store *history.Store) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		engine: engine,
		store:  store,
		runs:   make(map[string]*workflow.Run),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit validates the request and, if it is well formed, starts a
// run asynchronously. Validation failures are returned immediately
// and reach no external service. Returns the run ID.
func (c *Coordinator) Submit(req models.CommandRequest) (string, error) {
	if err := Validate(req); err != nil {
		return "", err
	}

	runID := uuid.New().String()[:8]
	run := workflow.NewRun(runID, req.Kind)
	started := time.Now()

	c.mu.Lock()
	c.runs[runID] = run
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		var snap workflow.Snapshot
		switch req.Kind {
		case models.KindEpicCreation:
			snap = c.engine.RunEpic(c.ctx, run, epicRequest(req), req.Channel)
		case models.KindMeetingBatch, models.KindMeetingSearch:
			mr, _ := meetingRequest(req)
			snap = c.engine.RunMeetings(c.ctx, run, mr, req.Channel)
		}
		log.Printf("[coordinator] run=%s kind=%s finished status=%s", runID, req.Kind, snap.Status)

		c.persist(snap, req, started)

		c.mu.Lock()
		delete(c.runs, runID)
		c.mu.Unlock()
	}()

	return runID, nil
}

// Cancel requests cooperative cancellation of a live run.
func (c *Coordinator) Cancel(runID string) error {
	c.mu.RLock()
	run, ok := c.runs[runID]
	c.mu.RUnlock()
	if !ok {
		return fault.Errorf(fault.NotFound, "no active run %s", runID)
	}
	run.Cancel()
	return nil
}

// Active returns snapshots of every live run.
func (c *Coordinator) Active() []workflow.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]workflow.Snapshot, 0, len(c.runs))
	for _, run := range c.runs {
		out = append(out, run.Snapshot())
	}
	return out
}

// Count returns the number of live runs.
func (c *Coordinator) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.runs)
}

// Stop cancels every live run and waits for them to settle.
func (c *Coordinator) Stop() {
	c.mu.RLock()
	for _, run := range c.runs {
		run.Cancel()
	}
	c.mu.RUnlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Coordinator) persist(snap workflow.Snapshot, req models.CommandRequest, started time.Time) {
	if c.store == nil {
		return
	}
	report := workflow.RenderReport(snap)
	err := c.store.Save(context.Background(), history.Record{
		RunID:       snap.ID,
		Kind:        snap.Kind,
		Status:      snap.Status,
		Detail:      report.Detail,
		Created:     report.Created,
		Failures:    report.Failures,
		Channel:     req.Channel,
		RequestedBy: req.RequestingUser,
		StartedAt:   started,
		FinishedAt:  time.Now(),
	})
	if err != nil {
		log.Printf("[coordinator] run=%s history save failed: %v", snap.ID, err)
	}
}

// Validate checks a command request without touching any external
// service. A nil return means the request can become a run.
func Validate(req models.CommandRequest) error {
	if !req.Kind.Valid() {
		return fault.Errorf(fault.InvalidRequest, "unknown workflow kind %q", req.Kind)
	}
	if req.Channel == "" {
		return fault.New(fault.InvalidRequest, "channel is required")
	}

	switch req.Kind {
	case models.KindEpicCreation:
		if strings.TrimSpace(req.Field("title")) == "" {
			return fault.New(fault.InvalidRequest, "epic title is required")
		}
		if p := req.Field("priority"); p != "" && !models.Priority(p).Valid() {
			return fault.Errorf(fault.InvalidRequest, "unknown priority %q", p)
		}
	case models.KindMeetingSearch:
		if strings.TrimSpace(req.Field("keyword")) == "" {
			return fault.New(fault.InvalidRequest, "search keyword is required")
		}
	}

	if _, err := meetingRequest(req); err != nil {
		return err
	}
	return nil
}

func epicRequest(req models.CommandRequest) models.EpicRequest {
	return models.EpicRequest{
		Title:       strings.TrimSpace(req.Field("title")),
		Description: req.Field("description"),
		Priority:    models.Priority(req.Field("priority")),
		Labels:      splitList(req.Field("labels")),
		Features:    splitList(req.Field("features")),
	}
}

func meetingRequest(req models.CommandRequest) (workflow.MeetingRequest, error) {
	mr := workflow.MeetingRequest{
		Keyword: strings.TrimSpace(req.Field("keyword")),
		Space:   req.Field("space"),
	}
	if days := req.Field("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return mr, fault.New(fault.InvalidRequest, fmt.Sprintf("days must be a positive integer, got %q", days))
		}
		mr.DaysBack = n
	}
	return mr, nil
}

// splitList parses a comma-separated field into trimmed items.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
