package genai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/kweiss/sprintbot/internal/fault"
)

// ClientConfig contains configuration for creating a Client.
type ClientConfig struct {
	// Backend is "anthropic" for the direct API or "bedrock" for the
	// enterprise AWS Bedrock variant.
	Backend string
	// APIKey is the Anthropic API key. If empty, uses the
	// ANTHROPIC_API_KEY env var.
	APIKey string
	// Model is the model to use. Empty selects the default.
	Model anthropic.Model
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
}

// Client implements Generator over the Anthropic SDK, for both the
// direct API and the Bedrock variant, with token usage tracking.
type Client struct {
	inner   anthropic.Client
	model   anthropic.Model
	tracker *TokenTracker
}

// NewClient creates a Generator backend per the configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	switch cfg.Backend {
	case "bedrock":
		ctx := context.Background()

		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	case "anthropic", "":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	default:
		return nil, fmt.Errorf("unknown generator backend %q", cfg.Backend)
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.Backend == "bedrock" {
		model = translateModelForBedrock(model)
	}

	return &Client{
		inner:   anthropic.NewClient(opts...),
		model:   model,
		tracker: NewTokenTracker(),
	}, nil
}

// translateModelForBedrock converts standard Anthropic model names to
// Bedrock inference profile format (us.anthropic.{model}-v1:0).
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// Generate implements Generator. Errors classify per the fault
// taxonomy so the dispatch layer can decide on retries.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return "", classifyAPIError(err)
	}

	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	if text == "" {
		return "", fault.New(fault.InvalidResponse, "model returned no text content")
	}
	return text, nil
}

// Model returns the configured model name.
func (c *Client) Model() anthropic.Model {
	return c.model
}

// Tracker returns the token tracker for this client.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// classifyAPIError maps SDK errors onto the fault taxonomy.
func classifyAPIError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 401, 403:
			return fault.Wrap(fault.Auth, err)
		case 404:
			return fault.Wrap(fault.NotFound, err)
		case 429:
			return fault.Wrap(fault.RateLimited, err)
		default:
			return fault.Wrap(fault.TransientNetwork, err)
		}
	}
	if errors.Is(err, context.Canceled) {
		return fault.Wrap(fault.Cancelled, err)
	}
	return fault.Wrap(fault.TransientNetwork, err)
}

// TokenTracker tracks token usage across API calls.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
