package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"github.com/spf13/cobra"

	"github.com/kweiss/sprintbot/internal/chat"
	"github.com/kweiss/sprintbot/internal/config"
	"github.com/kweiss/sprintbot/internal/coordinator"
	"github.com/kweiss/sprintbot/internal/dispatch"
	"github.com/kweiss/sprintbot/internal/genai"
	"github.com/kweiss/sprintbot/internal/history"
	"github.com/kweiss/sprintbot/internal/meetings"
	"github.com/kweiss/sprintbot/internal/metrics"
	"github.com/kweiss/sprintbot/internal/ratelimit"
	"github.com/kweiss/sprintbot/internal/tracker"
	"github.com/kweiss/sprintbot/internal/workflow"
)

var metricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to Slack and serve workflow commands",
	Long: `Start the assistant: connect to Slack over Socket Mode, handshake
with the tracker bridge, and serve slash commands until interrupted.

Requires chat.app_token (SLACK_APP_TOKEN) in addition to the bot
token. Prometheus metrics are exposed on --metrics-addr.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "listen address for /metrics and /healthz")
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if cfg.Chat.AppToken == "" {
		return fmt.Errorf("chat.app_token is required for serving (set SLACK_APP_TOKEN)")
	}
	printCheck("✓", "Configuration loaded", color.FgGreen)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	app.watchConfig()
	go serveMetrics(app.metrics)

	return app.serveSocketMode(ctx, cfg.Chat.BotToken, cfg.Chat.AppToken)
}

// app holds the wired service graph for one serve invocation.
type app struct {
	coordinator *coordinator.Coordinator
	engine      *workflow.Engine
	notifier    *chat.SlackNotifier
	store       *history.Store
	metrics     *metrics.Metrics
	limiter     *ratelimit.Limiter
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	m := metrics.New()

	gen, err := genai.NewClient(genai.ClientConfig{
		Backend:    cfg.Generator.Backend,
		APIKey:     cfg.Generator.APIKey,
		Model:      anthropic.Model(cfg.Generator.Model),
		AWSRegion:  cfg.Generator.AWSRegion,
		AWSProfile: cfg.Generator.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("create generator client: %w", err)
	}
	printCheck("✓", fmt.Sprintf("Generator backend %q ready", cfg.Generator.Backend), color.FgGreen)

	prompts, err := genai.LoadPrompts(cfg.Generator.PromptFile)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	handshakeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	bridge, err := tracker.NewMCPClient(handshakeCtx, tracker.MCPConfig{
		Endpoint:   cfg.Tracker.Endpoint,
		ProjectKey: cfg.Tracker.ProjectKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connect tracker bridge: %w", err)
	}
	printCheck("✓", "Tracker bridge connected", color.FgGreen)

	notifier := chat.NewSlackNotifier(cfg.Chat.BotToken, cfg.Workflow.UserInputTimeout)

	limiter := ratelimit.New(map[string]ratelimit.Bucket{
		ratelimit.ServiceGenerator: {PerSecond: cfg.Limits.Generator.PerSecond, Burst: cfg.Limits.Generator.Burst},
		ratelimit.ServiceTracker:   {PerSecond: cfg.Limits.Tracker.PerSecond, Burst: cfg.Limits.Tracker.Burst},
		ratelimit.ServiceChat:      {PerSecond: cfg.Limits.Chat.PerSecond, Burst: cfg.Limits.Chat.Burst},
	})
	disp := dispatch.New(limiter, dispatch.Policy{
		MaxAttempts:    cfg.Workflow.MaxAttempts,
		BackoffCeiling: cfg.Workflow.BackoffCeiling,
		MaxElapsed:     cfg.Workflow.MaxElapsed,
	}, m)

	var source meetings.Source = meetings.NewLocalSource(cfg.Meetings.Dir)
	if cfg.Meetings.Dir == "" {
		printCheck("⚠", "No meetings.dir configured; meeting workflows will find nothing", color.FgYellow)
	}

	engine := workflow.New(workflow.Config{
		MaxConcurrency:  cfg.Workflow.MaxConcurrency,
		ProjectKey:      cfg.Tracker.ProjectKey,
		DocumentSpace:   cfg.Tracker.DocumentSpace,
		MaxTokens:       cfg.Generator.MaxTokens,
		Temperature:     cfg.Generator.Temperature,
		RequireApproval: cfg.Workflow.RequireApproval,
	}, gen, prompts, bridge, notifier, source, disp, m)

	historyPath := cfg.History.Path
	if historyPath == "" {
		historyPath = history.DefaultPath()
	}
	store, err := history.Open(historyPath)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	printCheck("✓", fmt.Sprintf("Run history at %s", store.Path()), color.FgGreen)

	return &app{
		coordinator: coordinator.New(engine, store),
		engine:      engine,
		notifier:    notifier,
		store:       store,
		metrics:     m,
		limiter:     limiter,
	}, nil
}

// watchConfig reloads the rate-limit buckets when the config file
// changes. Runs already in flight keep the policy they started with.
func (a *app) watchConfig() {
	path := configPath
	if path == "" {
		path = config.UserConfigPath()
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	err := config.Watch(path, func(cfg *config.Config) {
		a.limiter.SetBucket(ratelimit.ServiceGenerator, ratelimit.Bucket{
			PerSecond: cfg.Limits.Generator.PerSecond, Burst: cfg.Limits.Generator.Burst})
		a.limiter.SetBucket(ratelimit.ServiceTracker, ratelimit.Bucket{
			PerSecond: cfg.Limits.Tracker.PerSecond, Burst: cfg.Limits.Tracker.Burst})
		a.limiter.SetBucket(ratelimit.ServiceChat, ratelimit.Bucket{
			PerSecond: cfg.Limits.Chat.PerSecond, Burst: cfg.Limits.Chat.Burst})
		log.Printf("[serve] rate-limit buckets reloaded from %s", path)
	})
	if err != nil {
		log.Printf("[serve] config watch disabled: %v", err)
	}
}

func (a *app) Close() {
	a.coordinator.Stop()
	a.store.Close()
}

func serveMetrics(m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	if err := http.ListenAndServe(metricsAddr, mux); err != nil {
		log.Printf("[serve] metrics listener stopped: %v", err)
	}
}

// serveSocketMode runs the Slack Socket Mode event loop until the
// context ends.
func (a *app) serveSocketMode(ctx context.Context, botToken, appToken string) error {
	api := slack.New(botToken, slack.OptionAppLevelToken(appToken))
	sm := socketmode.New(api)

	go func() {
		for evt := range sm.Events {
			switch evt.Type {
			case socketmode.EventTypeConnected:
				log.Printf("[serve] connected to Slack")
			case socketmode.EventTypeConnectionError:
				log.Printf("[serve] Slack connection error: %v", evt.Data)
			case socketmode.EventTypeSlashCommand:
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				reply := a.handleSlash(cmd)
				sm.Ack(*evt.Request, map[string]any{
					"response_type": "ephemeral",
					"text":          reply,
				})
			}
		}
	}()

	err := sm.RunContext(ctx)
	if ctx.Err() != nil {
		log.Printf("[serve] shutting down")
		return nil
	}
	return err
}

// handleSlash routes one slash command and returns the immediate
// ephemeral reply. Workflow commands are acknowledged right away; the
// run reports back to the channel when it finishes.
func (a *app) handleSlash(cmd slack.SlashCommand) string {
	verb, rest := splitVerb(cmd.Text)

	switch verb {
	case "cancel":
		runID := strings.TrimSpace(rest)
		if err := a.coordinator.Cancel(runID); err != nil {
			return fmt.Sprintf("Cannot cancel: %v", err)
		}
		return fmt.Sprintf("Cancellation requested for run `%s`.", runID)

	case "status":
		return a.statusReply()

	case "epic-status":
		return a.epicStatusReply(rest)

	case "transition":
		return a.transitionReply(rest)

	case "approve", "reject":
		return a.formReply(verb, rest, cmd.UserName)

	case "help", "":
		return helpText

	default:
		req, ok := parseSlash(cmd.Text, cmd.ChannelID, cmd.UserName)
		if !ok {
			return fmt.Sprintf("Unknown command %q.\n%s", verb, helpText)
		}
		runID, err := a.coordinator.Submit(req)
		if err != nil {
			return fmt.Sprintf("Rejected: %v", err)
		}
		return fmt.Sprintf("Started %s run `%s`. I will report back here.", req.Kind, runID)
	}
}

func (a *app) statusReply() string {
	active := a.coordinator.Active()
	if len(active) == 0 {
		return "No active runs."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d active run(s):\n", len(active))
	for _, snap := range active {
		fmt.Fprintf(&b, "• `%s` %s: %s (stage %s)\n", snap.ID, snap.Kind, snap.Status, snap.Stage)
	}
	return b.String()
}

// epicStatusReply looks up an epic and its linked stories.
func (a *app) epicStatusReply(rest string) string {
	key := strings.TrimSpace(rest)
	if key == "" {
		return "Usage: epic-status <epic-key>"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	issues, err := a.engine.EpicStatus(ctx, key)
	if err != nil {
		return fmt.Sprintf("Lookup failed: %v", err)
	}
	var b strings.Builder
	for _, issue := range issues {
		fmt.Fprintf(&b, "• `%s` %s [%s]\n", issue.Key, issue.Summary, issue.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}

// transitionReply moves an issue to a new workflow state.
func (a *app) transitionReply(rest string) string {
	key, state, _ := strings.Cut(strings.TrimSpace(rest), " ")
	state = strings.TrimSpace(state)
	if key == "" || state == "" {
		return "Usage: transition <issue-key> <target-state>"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.engine.TransitionEpic(ctx, key, state); err != nil {
		return fmt.Sprintf("Transition failed: %v", err)
	}
	return fmt.Sprintf("Moved `%s` to %q.", key, state)
}

// formReply resolves a pending approval form: "approve <formID>" or
// "reject <formID>".
func (a *app) formReply(verb, rest, user string) string {
	formID := strings.TrimSpace(rest)
	if formID == "" {
		return fmt.Sprintf("Usage: %s <form-id>", verb)
	}
	decision := "approve"
	if verb == "reject" {
		decision = "cancel"
	}
	if !a.notifier.Submit(formID, chat.FormSubmission{
		User:   user,
		Values: map[string]string{"decision": decision},
	}) {
		return fmt.Sprintf("No pending form `%s` (it may have timed out).", formID)
	}
	return fmt.Sprintf("Recorded your %s for form `%s`.", verb, formID)
}

const helpText = "Commands:\n" +
	"• `epic <title> | <description> [priority=High] [labels=a,b] [features=x,y]`\n" +
	"• `meetings [days=7] [space=TEAM]`\n" +
	"• `search <keyword> [days=30] [space=TEAM]`\n" +
	"• `epic-status <epic-key>`, `transition <issue-key> <state>`\n" +
	"• `status`, `cancel <run-id>`, `approve <form-id>`, `reject <form-id>`"

func printCheck(mark, msg string, attr color.Attribute) {
	fmt.Printf("%s %s\n", color.New(attr).Sprint(mark), msg)
}
