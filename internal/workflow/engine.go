package workflow

import (
	"context"
	"log"
	"time"

	"github.com/kweiss/sprintbot/internal/chat"
	"github.com/kweiss/sprintbot/internal/dispatch"
	"github.com/kweiss/sprintbot/internal/genai"
	"github.com/kweiss/sprintbot/internal/meetings"
	"github.com/kweiss/sprintbot/internal/metrics"
	"github.com/kweiss/sprintbot/internal/ratelimit"
	"github.com/kweiss/sprintbot/internal/tracker"
	"github.com/kweiss/sprintbot/pkg/models"
)

// Config holds the engine knobs. It is passed by value into New; the
// engine has no global mutable configuration state.
type Config struct {
	// MaxConcurrency bounds fan-out sub-calls per group. Default 5.
	MaxConcurrency int
	// ProjectKey is the tracker project context for prompts.
	ProjectKey string
	// DocumentSpace is the default document space for meeting pages.
	// Empty means content is generated but not published.
	DocumentSpace string
	// MaxTokens caps each generation.
	MaxTokens int
	// Temperature is the generation sampling temperature.
	Temperature float64
	// RequireApproval gates tracker writes in the epic pipeline
	// behind a chat approval form.
	RequireApproval bool
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 5
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	return c
}

// Engine executes workflow pipelines. One engine serves all runs; the
// rate-limit buckets inside the dispatcher are the only state shared
// between concurrent runs.
type Engine struct {
	cfg      Config
	gen      genai.Generator
	prompts  genai.Prompts
	tracker  tracker.Client
	notifier chat.Notifier
	source   meetings.Source
	disp     *dispatch.Dispatcher
	metrics  *metrics.Metrics
}

// New creates an Engine.
func New(cfg Config, gen genai.Generator, prompts genai.Prompts, tc tracker.Client,
	notifier chat.Notifier, source meetings.Source, disp *dispatch.Dispatcher, m *metrics.Metrics) *Engine {
	return &Engine{
		cfg:      cfg.withDefaults(),
		gen:      gen,
		prompts:  prompts,
		tracker:  tc,
		notifier: notifier,
		source:   source,
		disp:     disp,
		metrics:  m,
	}
}

// runStage executes one non-fan-out stage through the dispatcher and
// records its result. Returns the produced artifact key and whether
// the stage succeeded. A false return with a terminal run status
// means the pipeline must stop.
func (e *Engine) runStage(ctx context.Context, run *Run, stage, service string,
	fn func(ctx context.Context) (string, error)) (string, bool) {

	if run.Cancelled() {
		run.finalize(models.RunCancelled, "cancelled before stage "+stage)
		return "", false
	}
	run.setStage(stage)

	start := time.Now()
	var artifact string
	attempts, err := e.disp.Do(ctx, dispatch.Call{
		RunID:   run.ID(),
		Stage:   stage,
		Service: service,
		Fn: func(ctx context.Context) error {
			key, callErr := fn(ctx)
			if callErr == nil {
				artifact = key
			}
			return callErr
		},
	})

	result := StageResult{
		Stage:    stage,
		Attempts: attempts,
		Duration: time.Since(start),
		Outcome:  outcomeFor(attempts, err),
	}
	if err != nil {
		result.Err = err.Error()
	} else {
		result.ArtifactKey = artifact
	}

	if run.Cancelled() {
		// The call was already in flight when cancellation arrived;
		// its result is discarded from the report.
		run.finalize(models.RunCancelled, "cancelled during stage "+stage)
		return "", false
	}
	run.append(result)

	if err != nil {
		log.Printf("[engine] run=%s stage=%s failed: %v", run.ID(), stage, err)
		return "", false
	}
	return artifact, true
}

// notify sends the terminal report. The run status is already final;
// a notify failure is logged and recorded but changes nothing.
func (e *Engine) notify(ctx context.Context, run *Run, channel string) {
	report := RenderReport(run.Snapshot())
	text := FormatReport(report)

	start := time.Now()
	attempts, err := e.disp.Do(ctx, dispatch.Call{
		RunID:   run.ID(),
		Stage:   "notify",
		Service: ratelimit.ServiceChat,
		Fn: func(ctx context.Context) error {
			return e.notifier.PostMessage(ctx, channel, text)
		},
	})
	run.append(StageResult{
		Stage:    "notify",
		Attempts: attempts,
		Duration: time.Since(start),
		Outcome:  outcomeFor(attempts, err),
		Err:      errString(err),
	})
	if err != nil {
		log.Printf("[engine] run=%s terminal report delivery failed: %v", run.ID(), err)
	}

	if e.metrics != nil {
		e.metrics.Runs.WithLabelValues(string(run.Kind()), string(run.Status())).Inc()
	}
}

func outcomeFor(attempts int, err error) Outcome {
	switch {
	case err != nil:
		return OutcomeFailed
	case attempts > 1:
		return OutcomeRetriedOK
	default:
		return OutcomeOK
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
