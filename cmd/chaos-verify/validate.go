package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hkwon/chaos-verify/pkg/config"
	"github.com/hkwon/chaos-verify/pkg/injection"
	"github.com/hkwon/chaos-verify/pkg/scenario"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Args:  cobra.NoArgs,
	Short: "Validate a scenario catalog without running it",
	RunE:  validateCatalog,
}

func init() {
	validateCmd.Flags().String("catalog", "", "path to scenario catalog YAML file")
}

func validateCatalog(cmd *cobra.Command, args []string) error {
	catalogPath, _ := cmd.Flags().GetString("catalog")
	if catalogPath == "" {
		return fmt.Errorf("--catalog flag is required")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	catalog, err := scenario.LoadCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	// A throwaway registry is enough to check kind coverage; no faults are
	// applied here.
	logger := newLogger(cfg)
	registry, err := injection.DefaultRegistry(injection.Deps{Logger: logger.Zerolog()})
	if err != nil {
		return fmt.Errorf("failed to build injector registry: %w", err)
	}
	if err := registry.Validate(catalog.Scenarios); err != nil {
		return fmt.Errorf("catalog validation failed: %w", err)
	}

	fmt.Printf("catalog is valid: %d scenarios\n", len(catalog.Scenarios))
	for _, s := range catalog.Scenarios {
		fmt.Printf("  %-30s %-20s impact=%-8s duration=%s\n", s.Name, s.Kind, s.Impact, s.Duration)
	}
	return nil
}
