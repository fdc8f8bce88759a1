package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kweiss/sprintbot/internal/history"
	"github.com/kweiss/sprintbot/pkg/models"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent workflow runs",
	Long: `Display recent finished runs from the history store.

Shows run id, workflow kind, terminal status, created artifacts, and
any per-item failures.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "number of runs to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	path := cfg.History.Path
	if path == "" {
		path = history.DefaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("No run history yet. Start the assistant with 'sprintbot serve'.")
		return nil
	}

	store, err := history.Open(path)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	records, err := store.Recent(context.Background(), statusLimit)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No finished runs recorded.")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  %-16s %s  %s\n",
			rec.FinishedAt.Local().Format("2006-01-02 15:04"),
			rec.Kind,
			statusColor(rec.Status).Sprintf("%-9s", rec.Status),
			rec.RunID,
		)
		if len(rec.Created) > 0 {
			fmt.Printf("    created: %v\n", rec.Created)
		}
		for _, f := range rec.Failures {
			fmt.Printf("    %s %s: %s\n", color.RedString("✗"), f.Subject, f.Reason)
		}
		if rec.Detail != "" {
			fmt.Printf("    detail: %s\n", rec.Detail)
		}
	}
	return nil
}

func statusColor(s models.RunStatus) *color.Color {
	switch s {
	case models.RunSucceeded:
		return color.New(color.FgGreen)
	case models.RunPartial:
		return color.New(color.FgYellow)
	case models.RunCancelled:
		return color.New(color.FgHiBlack)
	default:
		return color.New(color.FgRed)
	}
}
