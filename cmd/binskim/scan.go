package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xcbat/binskim/internal/config"
	"github.com/xcbat/binskim/internal/database"
	"github.com/xcbat/binskim/internal/log"
	"github.com/xcbat/binskim/internal/model"
	"github.com/xcbat/binskim/internal/pipeline"
	"github.com/xcbat/binskim/internal/report"
	"github.com/xcbat/binskim/internal/rules"
)

// errScanFailures signals that at least one rule reported a FAIL verdict.
// The root command turns this into a non-zero exit code so CI gates work.
var errScanFailures = errors.New("one or more hardening rules failed")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [binary-path...]",
		Short: "Scan PE binaries for missing security mitigations",
		Long: `Scan inspects Windows PE binaries and verifies that build-time security
mitigations are enabled.

For each binary it:
- Parses the PE headers and section table
- Builds a debug-symbol index from the COFF symbol table when present
- Evaluates every applicable hardening rule
- Reports one verdict per rule (PASS, FAIL, ERROR, NOT_APPLICABLE, INFO)

The command exits with a non-zero status when any rule fails, so it can be
used as a CI gate.

Examples:
  # Scan a single binary
  binskim scan build/app.exe

  # Scan multiple binaries
  binskim scan build/app.exe build/helper.dll

  # Scan binaries listed in a file (one path per line)
  binskim scan --list binaries.txt

  # Output JSON report
  binskim scan --json build/app.exe

  # Write a Markdown report to a file
  binskim scan --markdown --output report.md build/app.exe

  # Skip specific rules
  binskim scan --disable BA2013 build/app.exe

Configuration file (.binskim) example:
  defaults:
    disabledRules:
      - BA9999
  artifacts:
    "build/*.dll":
      disabledRules:
        - BA2013`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Target selection flags
	cmd.Flags().StringP("list", "l", "",
		"Read binary paths from the specified file (one per line)")

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent scans")

	// Rule selection flags
	cmd.Flags().StringSliceP("disable", "d", nil,
		"Rule IDs to skip (e.g., --disable BA2013)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .binskim in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Persistence flags
	cmd.Flags().Bool("no-db", false,
		"Do not save scan results to the history database")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runScan(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.DisabledRules, err = cmd.Flags().GetStringSlice("disable")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load rule overrides from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.RuleSets, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.RuleSets = &config.File{
			Artifacts: make(map[string]config.RuleOverrides),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	if !noDB {
		cfg.SaveToDB = true
		cfg.DBDir = config.XDGDataDir()
	}

	// Collect targets from positional arguments and the optional list file.
	cfg.Targets = args

	listFile, err := cmd.Flags().GetString("list")
	if err != nil {
		return nil, err
	}
	if listFile != "" {
		fromList, err := readTargetList(listFile)
		if err != nil {
			return nil, err
		}
		cfg.Targets = append(cfg.Targets, fromList...)
	}

	return cfg, nil
}

// readTargetList reads binary paths from a file, one per line.
// Blank lines and lines starting with '#' are skipped.
func readTargetList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open list file: %w", err)
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read list file: %w", err)
	}

	return targets, nil
}

// runScan executes the scan.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting scan",
		"targets", cfg.Targets,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.ScanDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	// Use batch processor for parallel scanning if multiple targets
	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchScan(ctx, cfg, db, logger)
	}

	return runSequentialScan(ctx, cfg, db, logger)
}

// runSequentialScan scans targets one at a time.
// Per-artifact rule overrides from the config file are applied here.
func runSequentialScan(ctx context.Context, cfg *config.Config, db *database.ScanDB, logger *slog.Logger) error {
	var failed bool
	reports := make([]*model.BinaryScanReport, 0, len(cfg.Targets))

	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p := pipeline.DefaultPipeline(
			registryForTarget(cfg, target),
			pipeline.WithLogger(logger),
		)

		scanReport := model.NewBinaryScanReport(target)

		startTime := time.Now()
		if err := p.Execute(ctx, scanReport); err != nil {
			logger.Error("scan failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Scan error for %s: %v\n", target, err)
		}
		logger.Debug("scan finished",
			"target", target,
			"elapsed", time.Since(startTime).Round(time.Millisecond),
		)

		if scanReport.HasFailures() {
			failed = true
		}
		reports = append(reports, scanReport)

		if err := saveScanReport(ctx, db, scanReport, logger); err != nil {
			logger.Error("failed to save scan report", "target", target, "error", err)
		}
	}

	if err := outputReports(cfg, reports); err != nil {
		logger.Error("report failed", "error", err)
	}

	if failed {
		return errScanFailures
	}
	return nil
}

// runBatchScan scans multiple targets concurrently using BatchProcessor.
func runBatchScan(ctx context.Context, cfg *config.Config, db *database.ScanDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch scan of %d targets (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	startTime := time.Now()

	// Warn user about batch processing limitation
	if cfg.RuleSets != nil && len(cfg.RuleSets.Artifacts) > 0 {
		logger.Warn("batch processing uses default rule overrides only; per-artifact overrides are ignored",
			"patternCount", len(cfg.RuleSets.Artifacts))
		fmt.Fprintf(os.Stderr, "Warning: Per-artifact rule overrides are ignored in batch mode. Use sequential mode (--batch 1) to apply them.\n\n")
	}

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			// Batch mode shares one registry configuration across targets.
			return pipeline.DefaultPipeline(
				defaultRegistry(cfg),
				pipeline.WithLogger(logger),
			)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	var mu sync.Mutex
	var failed bool
	// Slots are indexed by target position so the combined report keeps
	// the command-line ordering regardless of completion order.
	slots := make([]*model.BinaryScanReport, len(cfg.Targets))
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(scanReport *model.BinaryScanReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Printf("[%d/%d] Scan completed: %s\n", index+1, len(cfg.Targets), scanReport.Artifact)

		if scanReport.HasFailures() {
			failed = true
		}
		slots[index] = scanReport

		if err := saveScanReport(ctx, db, scanReport, logger); err != nil {
			logger.Error("failed to save scan report", "target", scanReport.Artifact, "error", err)
		}
	})

	// A cancelled batch leaves empty slots for the targets never scanned.
	reports := make([]*model.BinaryScanReport, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			reports = append(reports, r)
		}
	}
	if werr := outputReports(cfg, reports); werr != nil {
		logger.Error("report failed", "error", werr)
	}

	fmt.Printf("\nBatch scan completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	if err != nil {
		return err
	}
	if failed {
		return errScanFailures
	}
	return nil
}

// defaultRegistry builds the rule registry with global disables applied.
func defaultRegistry(cfg *config.Config) *rules.Registry {
	registry := rules.NewRegistry()

	registry.Disable(cfg.DisabledRules...)
	if cfg.RuleSets != nil {
		registry.Disable(cfg.RuleSets.Defaults.DisabledRules...)
	}

	return registry
}

// registryForTarget builds the rule registry for one artifact, applying
// pattern-matched overrides from the config file.
func registryForTarget(cfg *config.Config, target string) *rules.Registry {
	registry := rules.NewRegistry()

	registry.Disable(cfg.DisabledRules...)

	if cfg.RuleSets == nil {
		return registry
	}

	overrides := cfg.RuleSets.GetRuleOverrides(target)
	registry.Disable(overrides.DisabledRules...)

	// EnabledRules restricts the scan to the listed rule IDs.
	if len(overrides.EnabledRules) > 0 {
		enabled := make(map[string]bool, len(overrides.EnabledRules))
		for _, id := range overrides.EnabledRules {
			enabled[strings.ToUpper(strings.TrimSpace(id))] = true
		}
		for _, info := range registry.Infos() {
			if !enabled[info.ID] {
				registry.Disable(info.ID)
			}
		}
	}

	return registry
}

// outputReports writes the finished scan reports in the requested format.
// The destination is opened once and every report goes into the same
// document, so a multi-target scan with --output produces one file
// covering all targets.
func outputReports(cfg *config.Config, reports []*model.BinaryScanReport) error {
	if len(reports) == 0 {
		return nil
	}
	for _, r := range reports {
		if r.Summary == nil {
			r.Summary = model.NewScanSummary(r)
		}
	}

	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports describe internal build artifacts; keep them owner-readable.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output,
			report.WithPrettyPrint(),
			report.WithVersion(getVersion()),
		)
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if len(reports) == 1 {
		_, err := writer.Write(reports[0])
		return err
	}
	_, err := writer.WriteBatch(reports)
	return err
}

// saveScanReport saves the scan report to the database if enabled.
// If db is nil, this function is a no-op.
func saveScanReport(ctx context.Context, db *database.ScanDB, scanReport *model.BinaryScanReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if scanReport.Summary == nil {
		scanReport.Summary = model.NewScanSummary(scanReport)
	}

	id, err := db.SaveReport(ctx, scanReport)
	if err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}

	logger.Info("scan report saved to database", "target", scanReport.Artifact, "scanID", id)
	return nil
}
