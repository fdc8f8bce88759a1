package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sprintbot",
	Short: "Conversational project-management assistant",
	Long: `Sprintbot turns chat commands into tracker artifacts.

It listens for slash commands in Slack, drives multi-step workflows
against a generative-text service and the issue tracker, and reports
back in the channel that asked.

Workflows:
  - epic creation: break an epic into features, draft one user story
    per feature, create and link everything in the tracker
  - meeting documentation: summarize recent development meetings and
    publish them as documentation pages
  - meeting search: the same pipeline, restricted by keyword`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.config/sprintbot/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
