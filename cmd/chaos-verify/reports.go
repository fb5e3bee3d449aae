package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hkwon/chaos-verify/pkg/config"
	"github.com/hkwon/chaos-verify/pkg/reporting"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Args:  cobra.NoArgs,
	Short: "List persisted verification runs",
	RunE:  listReports,
}

func listReports(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(cfg)
	storage, err := reporting.NewStorage(cfg.Reporting.OutputDir, cfg.Reporting.KeepLastN, logger)
	if err != nil {
		return fmt.Errorf("failed to open report storage: %w", err)
	}

	runs, err := storage.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	fmt.Printf("%-38s %-20s %7s %7s\n", "RUN ID", "STARTED", "PASSED", "FAILED")
	for _, run := range runs {
		fmt.Printf("%-38s %-20s %7d %7d\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Passed,
			run.Failed,
		)
	}
	return nil
}
