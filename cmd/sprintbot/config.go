package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kweiss/sprintbot/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Display the effective configuration after merging defaults, the
config file, and environment variables. Secrets are masked.

Configuration is read from ~/.config/sprintbot/config.yaml unless
--config points elsewhere.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		displayConfig(cfg)
		return nil
	},
}

func displayConfig(cfg *config.Config) {
	fmt.Println("Generator:")
	fmt.Printf("  backend:      %s\n", cfg.Generator.Backend)
	fmt.Printf("  model:        %s\n", orUnset(cfg.Generator.Model))
	fmt.Printf("  api_key:      %s\n", mask(cfg.Generator.APIKey))
	fmt.Printf("  max_tokens:   %d\n", cfg.Generator.MaxTokens)
	fmt.Printf("  temperature:  %.2f\n", cfg.Generator.Temperature)
	if cfg.Generator.Backend == "bedrock" {
		fmt.Printf("  aws_region:   %s\n", cfg.Generator.AWSRegion)
		fmt.Printf("  aws_profile:  %s\n", orUnset(cfg.Generator.AWSProfile))
	}

	fmt.Println("Tracker:")
	fmt.Printf("  endpoint:       %s\n", orUnset(cfg.Tracker.Endpoint))
	fmt.Printf("  project_key:    %s\n", orUnset(cfg.Tracker.ProjectKey))
	fmt.Printf("  document_space: %s\n", orUnset(cfg.Tracker.DocumentSpace))

	fmt.Println("Chat:")
	fmt.Printf("  bot_token: %s\n", mask(cfg.Chat.BotToken))
	fmt.Printf("  app_token: %s\n", mask(cfg.Chat.AppToken))

	fmt.Println("Workflow:")
	fmt.Printf("  max_concurrency:    %d\n", cfg.Workflow.MaxConcurrency)
	fmt.Printf("  max_attempts:       %d\n", cfg.Workflow.MaxAttempts)
	fmt.Printf("  backoff_ceiling:    %s\n", cfg.Workflow.BackoffCeiling)
	fmt.Printf("  max_elapsed:        %s\n", cfg.Workflow.MaxElapsed)
	fmt.Printf("  user_input_timeout: %s\n", cfg.Workflow.UserInputTimeout)
	fmt.Printf("  require_approval:   %t\n", cfg.Workflow.RequireApproval)

	fmt.Println("Limits (per second / burst):")
	fmt.Printf("  generator: %.1f / %d\n", cfg.Limits.Generator.PerSecond, cfg.Limits.Generator.Burst)
	fmt.Printf("  tracker:   %.1f / %d\n", cfg.Limits.Tracker.PerSecond, cfg.Limits.Tracker.Burst)
	fmt.Printf("  chat:      %.1f / %d\n", cfg.Limits.Chat.PerSecond, cfg.Limits.Chat.Burst)

	fmt.Println("Meetings:")
	fmt.Printf("  dir:       %s\n", orUnset(cfg.Meetings.Dir))
	fmt.Printf("  days_back: %d\n", cfg.Meetings.DaysBack)
}

func mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "****"
}

func orUnset(val string) string {
	if val == "" {
		return "(not set)"
	}
	return val
}
