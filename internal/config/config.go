// Package config handles configuration loading for sprintbot.
// It supports XDG config paths, environment variables, and live reload
// of the non-core knobs via file watching.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for sprintbot. It is passed
// explicitly into constructors; the orchestration core keeps no
// global mutable configuration state.
type Config struct {
	Generator GeneratorConfig `mapstructure:"generator"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	History   HistoryConfig   `mapstructure:"history"`
	Meetings  MeetingsConfig  `mapstructure:"meetings"`
}

// GeneratorConfig selects and configures the generative-text backend.
type GeneratorConfig struct {
	// Backend is "anthropic" (direct API) or "bedrock" (enterprise).
	Backend string `mapstructure:"backend"`
	// APIKey is the API key for the direct backend. Falls back to the
	// ANTHROPIC_API_KEY environment variable.
	APIKey string `mapstructure:"api_key"`
	// Model is the model identifier. Empty selects the SDK default.
	Model string `mapstructure:"model"`
	// MaxTokens caps each generation. Defaults to 4096.
	MaxTokens int `mapstructure:"max_tokens"`
	// Temperature is the sampling temperature. Defaults to 0.7.
	Temperature float64 `mapstructure:"temperature"`
	// AWSRegion is the Bedrock region, e.g. "us-west-2".
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile name for Bedrock.
	AWSProfile string `mapstructure:"aws_profile"`
	// PromptFile optionally overrides the built-in prompt templates.
	PromptFile string `mapstructure:"prompt_file"`
}

// TrackerConfig configures the issue-tracker/document bridge.
type TrackerConfig struct {
	// Endpoint is the MCP bridge URL for the Atlassian tools.
	Endpoint string `mapstructure:"endpoint"`
	// ProjectKey is the tracker project new issues are created in.
	ProjectKey string `mapstructure:"project_key"`
	// DocumentSpace is the default document space for meeting pages.
	// Empty means meeting content is generated but not published.
	DocumentSpace string `mapstructure:"document_space"`
}

// ChatConfig configures the chat front end.
type ChatConfig struct {
	// BotToken is the Slack bot token (xoxb-).
	BotToken string `mapstructure:"bot_token"`
	// AppToken is the Slack app-level token for Socket Mode (xapp-).
	AppToken string `mapstructure:"app_token"`
}

// WorkflowConfig holds the engine knobs.
type WorkflowConfig struct {
	// MaxConcurrency bounds fan-out sub-calls per group. Default 5.
	MaxConcurrency int `mapstructure:"max_concurrency"`
	// MaxAttempts bounds attempts per external call. Default 3.
	MaxAttempts int `mapstructure:"max_attempts"`
	// BackoffCeiling caps a single retry delay. Default 15s.
	BackoffCeiling time.Duration `mapstructure:"backoff_ceiling"`
	// MaxElapsed caps the total retry wait per call. Default 2m.
	MaxElapsed time.Duration `mapstructure:"max_elapsed"`
	// UserInputTimeout bounds form suspensions. Default 5m.
	UserInputTimeout time.Duration `mapstructure:"user_input_timeout"`
	// RequireApproval gates tracker writes in the epic pipeline
	// behind a chat approval form.
	RequireApproval bool `mapstructure:"require_approval"`
}

// LimitsConfig holds per-capability token-bucket settings.
type LimitsConfig struct {
	Generator BucketConfig `mapstructure:"generator"`
	Tracker   BucketConfig `mapstructure:"tracker"`
	Chat      BucketConfig `mapstructure:"chat"`
}

// BucketConfig sizes one token bucket.
type BucketConfig struct {
	// PerSecond is the refill rate in tokens per second.
	PerSecond float64 `mapstructure:"per_second"`
	// Burst is the bucket capacity.
	Burst int `mapstructure:"burst"`
}

// HistoryConfig configures the run-history store.
type HistoryConfig struct {
	// Path is the sqlite database path. Empty uses the XDG default.
	Path string `mapstructure:"path"`
}

// MeetingsConfig configures the development meeting source.
type MeetingsConfig struct {
	// Dir is a directory of meeting JSON files.
	Dir string `mapstructure:"dir"`
	// DaysBack is the default lookback window. Default 30.
	DaysBack int `mapstructure:"days_back"`
}

// Load loads configuration from the user config file and environment.
// Precedence (highest to lowest): environment variables (SPRINTBOT_*
// plus the well-known token variables), user config
// (~/.config/sprintbot/config.yaml), built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	bindEnv(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandSecrets(cfg)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	bindEnv(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandSecrets(cfg)
	return cfg, nil
}

// Watch re-reads the config file whenever it changes and calls fn
// with the fresh configuration. Reload covers the non-core knobs;
// already-running workflows keep the config they started with.
func Watch(path string, fn func(*Config)) error {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config from %s: %w", path, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		cfg := &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			return
		}
		expandSecrets(cfg)
		fn(cfg)
	})
	v.WatchConfig()

	return nil
}

// Validate checks that the configuration is usable for serving.
func (c *Config) Validate() error {
	var missing []string

	switch c.Generator.Backend {
	case "anthropic":
		if c.Generator.APIKey == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
			missing = append(missing, "generator.api_key")
		}
	case "bedrock":
		if c.Generator.AWSRegion == "" {
			missing = append(missing, "generator.aws_region")
		}
	default:
		return fmt.Errorf("unknown generator backend %q", c.Generator.Backend)
	}

	if c.Tracker.Endpoint == "" {
		missing = append(missing, "tracker.endpoint")
	}
	if c.Tracker.ProjectKey == "" {
		missing = append(missing, "tracker.project_key")
	}
	if c.Chat.BotToken == "" {
		missing = append(missing, "chat.bot_token")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// UserConfigPath returns the path of the user config file.
func UserConfigPath() string {
	return filepath.Join(userConfigDir(), "config.yaml")
}

func userConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "sprintbot")
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("SPRINTBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("generator.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("chat.bot_token", "SLACK_BOT_TOKEN")
	v.BindEnv("chat.app_token", "SLACK_APP_TOKEN")
}

func expandSecrets(cfg *Config) {
	cfg.Generator.APIKey = expandEnv(cfg.Generator.APIKey)
	cfg.Chat.BotToken = expandEnv(cfg.Chat.BotToken)
	cfg.Chat.AppToken = expandEnv(cfg.Chat.AppToken)
}

// expandEnv expands ${VAR} references in a value.
func expandEnv(val string) string {
	if strings.Contains(val, "${") {
		return os.ExpandEnv(val)
	}
	return val
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("generator.backend", "anthropic")
	v.SetDefault("generator.max_tokens", 4096)
	v.SetDefault("generator.temperature", 0.7)

	v.SetDefault("workflow.max_concurrency", 5)
	v.SetDefault("workflow.max_attempts", 3)
	v.SetDefault("workflow.backoff_ceiling", "15s")
	v.SetDefault("workflow.max_elapsed", "2m")
	v.SetDefault("workflow.user_input_timeout", "5m")
	v.SetDefault("workflow.require_approval", false)

	v.SetDefault("limits.generator.per_second", 1.0)
	v.SetDefault("limits.generator.burst", 2)
	v.SetDefault("limits.tracker.per_second", 5.0)
	v.SetDefault("limits.tracker.burst", 10)
	v.SetDefault("limits.chat.per_second", 1.0)
	v.SetDefault("limits.chat.burst", 5)

	v.SetDefault("meetings.days_back", 30)
}
