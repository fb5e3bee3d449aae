package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/hkwon/chaos-verify/pkg/config"
	"github.com/hkwon/chaos-verify/pkg/emergency"
	"github.com/hkwon/chaos-verify/pkg/engine"
	"github.com/hkwon/chaos-verify/pkg/health"
	"github.com/hkwon/chaos-verify/pkg/injection"
	"github.com/hkwon/chaos-verify/pkg/metrics"
	"github.com/hkwon/chaos-verify/pkg/monitoring"
	"github.com/hkwon/chaos-verify/pkg/reporting"
	"github.com/hkwon/chaos-verify/pkg/runner"
	"github.com/hkwon/chaos-verify/pkg/scenario"
	"github.com/hkwon/chaos-verify/pkg/target"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Execute a scenario catalog",
	Long:  `Loads a scenario catalog YAML file and runs every scenario in order.`,
	RunE:  runVerification,
}

func init() {
	runCmd.Flags().String("catalog", "", "path to scenario catalog YAML file")
	runCmd.Flags().Bool("no-save", false, "skip persisting the run report")
}

func runVerification(cmd *cobra.Command, args []string) error {
	catalogPath, _ := cmd.Flags().GetString("catalog")
	if catalogPath == "" {
		return fmt.Errorf("--catalog flag is required")
	}
	noSave, _ := cmd.Flags().GetBool("no-save")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg)
	zlog := logger.Zerolog()
	logger.Info("chaos-verify starting", "version", version)

	catalog, err := scenario.LoadCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	logger.Info("catalog loaded", "file", catalogPath, "scenarios", len(catalog.Scenarios))

	env := target.NewEnvironment()
	provider := &metrics.SystemProvider{DiskPath: cfg.Execution.DiskPath}
	audit := injection.NewAudit()

	registry, err := injection.DefaultRegistry(injection.Deps{
		Env:      env,
		Provider: provider,
		Logger:   zlog,
		Audit:    audit,
	})
	if err != nil {
		return fmt.Errorf("failed to build injector registry: %w", err)
	}
	if err := registry.Validate(catalog.Scenarios); err != nil {
		return fmt.Errorf("catalog validation failed: %w", err)
	}

	assessor := health.NewAssessor(
		provider,
		&net.Dialer{Timeout: cfg.Health.ProbeTimeout.Std()},
		zlog,
		health.WithThresholds(cfg.Health.Thresholds),
		health.WithProbe(cfg.Health.ProbeAddress, cfg.Health.ProbeTimeout.Std()),
	)

	collector := monitoring.NewCollector()
	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Listen, collector, logger)
	}

	eng := engine.New(registry, provider, assessor, zlog,
		engine.WithPolicy(cfg.Policy),
		engine.WithObserver(collector),
	)
	r := runner.New(eng, nil, zlog, runner.WithCooldown(cfg.Execution.Cooldown.Std()))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	ctrl := emergency.New(emergency.Config{
		StopFile:             cfg.Emergency.StopFile,
		PollInterval:         cfg.Emergency.PollInterval.Std(),
		EnableSignalHandlers: true,
	}, zlog)
	ctrl.OnStop(cancel)
	ctrl.Start(ctx)

	run := r.RunMany(ctx, catalog.Scenarios)
	logger.Info(audit.Summary().String())

	text := reporting.Render(run.Results, cfg.Policy)
	fmt.Fprint(os.Stdout, text)

	if !noSave {
		storage, err := reporting.NewStorage(cfg.Reporting.OutputDir, cfg.Reporting.KeepLastN, logger)
		if err != nil {
			return fmt.Errorf("failed to create report storage: %w", err)
		}
		path, err := storage.SaveRun(run, cfg.Policy)
		if err != nil {
			return fmt.Errorf("failed to save run report: %w", err)
		}
		logger.Info("run report persisted", "path", path)
	}

	failed := 0
	for _, res := range run.Results {
		if !res.Passed(cfg.Policy) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(run.Results))
	}
	return nil
}

func serveMetrics(listen string, collector *monitoring.Collector, logger *reporting.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	logger.Info("metrics endpoint listening", "addr", listen)
	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.Warn("metrics endpoint stopped", "error", err)
	}
}

func newLogger(cfg *config.Config) *reporting.Logger {
	level := reporting.LogLevel(cfg.Framework.LogLevel)
	if verbose {
		level = reporting.LogLevelDebug
	}
	return reporting.NewLogger(reporting.LoggerConfig{
		Level:  level,
		Format: reporting.LogFormat(cfg.Framework.LogFormat),
		Output: os.Stderr,
	})
}
