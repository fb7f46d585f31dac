package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/xcbat/binskim/internal/config"
	"github.com/xcbat/binskim/internal/database"
	"github.com/xcbat/binskim/internal/model"
)

// Constants for hardening direction and summary messages.
const (
	directionWorsened  = "worsened"
	directionImproved  = "improved"
	directionUnchanged = "unchanged"
	noVerdictsMessage  = "No verdicts"
)

// NewCompareCmd creates the compare command.
// This command compares scan results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [binary-path]",
		Short: "Compare scan results with historical data",
		Long: `Compare displays differences between the current and previous scan results.

This command retrieves historical scan data from the database and shows:
- Rules that regressed since the last scan (e.g., PASS to FAIL)
- Rules that improved (e.g., FAIL to PASS)
- Changes in verdict level counts

The comparison requires at least two scans in the database for the specified
binary path. Use 'binskim scan' to perform scans and save results.

Examples:
  # Compare latest two scans for a binary
  binskim compare build/app.exe

  # List all scan history for a binary
  binskim compare --list build/app.exe

  # Compare with a specific historical scan by ID
  binskim compare --with-scan-id 5 build/app.exe

  # Compare scans since a specific date
  binskim compare --since "2026-01-01" build/app.exe

  # Show one rule's verdict level across all scans of a binary
  binskim compare --rule BA2013 build/app.exe

  # Output comparison in JSON format
  binskim compare --json build/app.exe

  # List all scanned binaries in the database
  binskim compare --list-artifacts`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List scan history for the specified binary path")
	cmd.Flags().BoolP("list-artifacts", "L", false,
		"List all scanned binaries in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare with a specific scan by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first scan after this date (format: YYYY-MM-DD)")
	cmd.Flags().StringP("rule", "r", "",
		"Show one rule's verdict history instead of a full comparison (e.g., --rule BA2013)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listArtifacts, err := cmd.Flags().GetBool("list-artifacts")
	if err != nil {
		return err
	}

	// Validate arguments before opening database (unless --list-artifacts).
	// This prevents database lock issues when validation fails.
	var artifact string
	if !listArtifacts {
		if len(args) == 0 {
			return errors.New("binary path is required (use --list-artifacts to see available binaries)")
		}
		artifact = args[0]
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if listArtifacts {
		return listScannedArtifacts(ctx, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listScanHistory(ctx, db, artifact)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	ruleID, err := cmd.Flags().GetString("rule")
	if err != nil {
		return err
	}
	if ruleID != "" {
		return runRuleHistory(ctx, db, artifact, ruleID, jsonOutput)
	}

	withScanID, err := cmd.Flags().GetInt64("with-scan-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	return runComparison(ctx, db, artifact, withScanID, sinceDate, jsonOutput)
}

// listScannedArtifacts lists all binaries that have scan records in the database.
func listScannedArtifacts(ctx context.Context, db *database.ScanDB) error {
	artifacts, err := db.ListScannedArtifacts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list artifacts: %w", err)
	}

	if len(artifacts) == 0 {
		fmt.Println("No scanned binaries found in the database.")
		fmt.Println("\nUse 'binskim scan <path>' to scan a binary.")
		return nil
	}

	fmt.Printf("Scanned binaries (%d):\n\n", len(artifacts))
	for _, artifact := range artifacts {
		fmt.Printf("  • %s\n", artifact)
	}
	fmt.Println("\nUse 'binskim compare --list <path>' to see scan history for a binary.")

	return nil
}

// listScanHistory lists all scan records for a specific binary path.
func listScanHistory(ctx context.Context, db *database.ScanDB, artifact string) error {
	metas, err := db.GetScanHistoryWithMetadata(ctx, artifact)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(metas) == 0 {
		fmt.Printf("No scan history found for %s\n", artifact)
		fmt.Println("\nUse 'binskim scan' to scan this binary.")
		return nil
	}

	fmt.Printf("Scan history for %s (%d scans):\n\n", artifact, len(metas))
	fmt.Printf("  %-6s  %-20s  %s\n", "ID", "Date", "Verdict Summary")
	fmt.Println("  " + strings.Repeat("-", 60))

	for _, meta := range metas {
		fmt.Printf("  %-6d  %-20s  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			formatVerdictSummary(meta.VerdictSummary),
		)
	}

	fmt.Println("\nUse 'binskim compare <path>' to compare the latest two scans.")
	fmt.Println("Use 'binskim compare --with-scan-id <id> <path>' to compare with a specific scan.")

	return nil
}

// runRuleHistory shows the stored outcomes of one rule for an artifact,
// read from the per-rule verdict table rather than the full report JSON.
func runRuleHistory(ctx context.Context, db *database.ScanDB, artifact, ruleID string, jsonOutput bool) error {
	ruleID = strings.ToUpper(strings.TrimSpace(ruleID))

	records, err := db.QueryVerdictHistory(ctx, artifact, ruleID)
	if err != nil {
		return fmt.Errorf("failed to query verdict history: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no recorded verdicts for rule %s on %s (use --list to see scan history)", ruleID, artifact)
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}

	writeRuleHistory(os.Stdout, artifact, ruleID, records)
	return nil
}

// writeRuleHistory renders the rule history table, newest scan first.
func writeRuleHistory(w io.Writer, artifact, ruleID string, records []database.VerdictRecord) {
	fmt.Fprintf(w, "Verdict history for %s on %s (%d scans):\n\n", ruleID, artifact, len(records))
	fmt.Fprintf(w, "  %-8s  %-20s  %s\n", "Scan ID", "Date", "Level")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 50))

	for _, rec := range records {
		fmt.Fprintf(w, "  %-8d  %-20s  %s\n",
			rec.ScanID,
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.Level,
		)
	}

	if msg := records[0].Message; msg != "" {
		fmt.Fprintf(w, "\nLatest: %s\n", msg)
	}
}

// formatVerdictSummary formats the verdict summary map into a human-readable string.
func formatVerdictSummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	if v := summary["fail"]; v > 0 {
		parts = append(parts, fmt.Sprintf("F:%d", v))
	}
	if v := summary["error"]; v > 0 {
		parts = append(parts, fmt.Sprintf("E:%d", v))
	}
	if v := summary["pass"]; v > 0 {
		parts = append(parts, fmt.Sprintf("P:%d", v))
	}
	if v := summary["not_applicable"]; v > 0 {
		parts = append(parts, fmt.Sprintf("NA:%d", v))
	}
	if v := summary["info"]; v > 0 {
		parts = append(parts, fmt.Sprintf("I:%d", v))
	}

	if len(parts) == 0 {
		return noVerdictsMessage
	}
	return strings.Join(parts, " ")
}

// runComparison performs the actual comparison between scan reports.
func runComparison(ctx context.Context, db *database.ScanDB, artifact string, withScanID int64, sinceDate string, jsonOutput bool) error {
	reports, err := db.GetScanHistory(ctx, artifact)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(reports) == 0 {
		return fmt.Errorf("no scan history found for %s", artifact)
	}

	if len(reports) < 2 && withScanID == 0 && sinceDate == "" {
		return fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(reports))
	}

	// Latest report is always the current one
	currentReport := reports[0]

	var previousReport *model.BinaryScanReport
	switch {
	case withScanID > 0:
		previousReport, err = db.GetReportByID(ctx, withScanID)
		if err != nil {
			return fmt.Errorf("failed to get scan with ID %d: %w", withScanID, err)
		}
		if previousReport == nil {
			return fmt.Errorf("scan with ID %d not found", withScanID)
		}
		if previousReport.Artifact != artifact {
			return fmt.Errorf("scan ID %d belongs to %s, not %s", withScanID, previousReport.Artifact, artifact)
		}
	case sinceDate != "":
		parsedDate, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Reports are sorted by timestamp DESC (newest first), so iterate in
		// reverse to find the first (oldest) report at or after the date.
		for i := len(reports) - 1; i >= 0; i-- {
			r := reports[i]
			if r.DateScanned.After(parsedDate) || r.DateScanned.Equal(parsedDate) {
				previousReport = r
				break
			}
		}
		if previousReport == nil {
			return fmt.Errorf("no scans found since %s", sinceDate)
		}
		if previousReport == currentReport {
			return fmt.Errorf("only one scan found since %s; at least 2 scans are required for comparison", sinceDate)
		}
	default:
		previousReport = reports[1]
	}

	comparison := compareReports(previousReport, currentReport)

	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	return outputComparisonText(comparison)
}

// ComparisonResult holds the result of comparing two scan reports.
type ComparisonResult struct {
	// Artifact is the scanned binary path.
	Artifact string `json:"artifact"`

	// PreviousScan contains metadata about the previous scan.
	PreviousScan ScanSnapshot `json:"previous_scan"`

	// CurrentScan contains metadata about the current scan.
	CurrentScan ScanSnapshot `json:"current_scan"`

	// Regressions contains rules whose verdict got worse.
	Regressions []VerdictChange `json:"regressions,omitempty"`

	// Improvements contains rules whose verdict got better.
	Improvements []VerdictChange `json:"improvements,omitempty"`

	// NewRules contains rules evaluated only in the current scan.
	NewRules []model.Verdict `json:"new_rules,omitempty"`

	// UnchangedCount is the number of rules with the same verdict in both scans.
	UnchangedCount int `json:"unchanged_count"`

	// Direction describes the overall change: "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`
}

// ScanSnapshot contains metadata about one scan for comparison display.
type ScanSnapshot struct {
	// DateScanned is when the scan was performed.
	DateScanned time.Time `json:"date_scanned"`

	// Digest is the SHA-256 of the binary at scan time.
	Digest string `json:"digest,omitempty"`

	// PassCount is the number of passing verdicts.
	PassCount int `json:"pass_count"`

	// FailCount is the number of failing verdicts.
	FailCount int `json:"fail_count"`

	// ErrorCount is the number of error verdicts.
	ErrorCount int `json:"error_count"`

	// NotApplicableCount is the number of not-applicable verdicts.
	NotApplicableCount int `json:"not_applicable_count"`

	// InfoCount is the number of informational verdicts.
	InfoCount int `json:"info_count"`
}

// VerdictChange describes a rule whose verdict level changed between scans.
type VerdictChange struct {
	// RuleID identifies the rule.
	RuleID string `json:"rule_id"`

	// RuleName is the rule's readable name.
	RuleName string `json:"rule_name"`

	// PreviousLevel is the verdict level in the previous scan.
	PreviousLevel model.Level `json:"previous_level"`

	// CurrentLevel is the verdict level in the current scan.
	CurrentLevel model.Level `json:"current_level"`

	// Message is the current scan's verdict message.
	Message string `json:"message,omitempty"`
}

// levelBadness ranks verdict levels for regression detection.
// A higher value means a worse outcome for the artifact.
var levelBadness = map[model.Level]int{
	model.LevelFail:          4,
	model.LevelError:         3,
	model.LevelNotApplicable: 2,
	model.LevelInformational: 1,
	model.LevelPass:          0,
}

// compareReports compares two scan reports and generates a comparison result.
func compareReports(previous, current *model.BinaryScanReport) *ComparisonResult {
	result := &ComparisonResult{
		Artifact:     current.Artifact,
		PreviousScan: snapshotOf(previous),
		CurrentScan:  snapshotOf(current),
	}

	previousVerdicts := make(map[string]model.Verdict, len(previous.Verdicts))
	for _, v := range previous.Verdicts {
		previousVerdicts[v.RuleID] = v
	}

	var worse, better int
	for _, cur := range current.Verdicts {
		prev, exists := previousVerdicts[cur.RuleID]
		if !exists {
			result.NewRules = append(result.NewRules, cur)
			continue
		}

		switch {
		case levelBadness[cur.Level] > levelBadness[prev.Level]:
			worse++
			result.Regressions = append(result.Regressions, VerdictChange{
				RuleID:        cur.RuleID,
				RuleName:      cur.RuleName,
				PreviousLevel: prev.Level,
				CurrentLevel:  cur.Level,
				Message:       cur.Message,
			})
		case levelBadness[cur.Level] < levelBadness[prev.Level]:
			better++
			result.Improvements = append(result.Improvements, VerdictChange{
				RuleID:        cur.RuleID,
				RuleName:      cur.RuleName,
				PreviousLevel: prev.Level,
				CurrentLevel:  cur.Level,
				Message:       cur.Message,
			})
		default:
			result.UnchangedCount++
		}
	}

	switch {
	case worse > 0:
		result.Direction = directionWorsened
	case better > 0:
		result.Direction = directionImproved
	default:
		result.Direction = directionUnchanged
	}

	return result
}

// snapshotOf extracts comparison metadata from a report.
func snapshotOf(r *model.BinaryScanReport) ScanSnapshot {
	summary := r.Summary
	if summary == nil {
		summary = model.NewScanSummary(r)
	}

	return ScanSnapshot{
		DateScanned:        r.DateScanned,
		Digest:             r.Digest,
		PassCount:          summary.PassCount,
		FailCount:          summary.FailCount,
		ErrorCount:         summary.ErrorCount,
		NotApplicableCount: summary.NotApplicableCount,
		InfoCount:          summary.InfoCount,
	}
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Scan Comparison: %s\n", result.Artifact)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nHardening Status: %s\n", formatDirection(result.Direction))

	fmt.Printf("\nPrevious scan: %s\n", result.PreviousScan.DateScanned.Format("2006-01-02 15:04:05"))
	fmt.Printf("Current scan:  %s\n", result.CurrentScan.DateScanned.Format("2006-01-02 15:04:05"))

	if result.PreviousScan.Digest != result.CurrentScan.Digest {
		fmt.Println("\nNote: the binary content changed between these scans.")
	}

	fmt.Println("\nVerdict Summary:")
	fmt.Printf("  %-16s  %-10s  %-10s  %-10s\n", "Level", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 50))
	printDeltaRow("Pass", result.PreviousScan.PassCount, result.CurrentScan.PassCount)
	printDeltaRow("Fail", result.PreviousScan.FailCount, result.CurrentScan.FailCount)
	printDeltaRow("Error", result.PreviousScan.ErrorCount, result.CurrentScan.ErrorCount)
	printDeltaRow("Not Applicable", result.PreviousScan.NotApplicableCount, result.CurrentScan.NotApplicableCount)
	printDeltaRow("Info", result.PreviousScan.InfoCount, result.CurrentScan.InfoCount)

	if len(result.Regressions) > 0 {
		fmt.Printf("\nRegressions (%d):\n", len(result.Regressions))
		for _, c := range result.Regressions {
			fmt.Printf("  [+] %s (%s): %s -> %s\n", c.RuleID, c.RuleName, c.PreviousLevel, c.CurrentLevel)
			if c.Message != "" {
				fmt.Printf("      %s\n", c.Message)
			}
		}
	}

	if len(result.Improvements) > 0 {
		fmt.Printf("\nImprovements (%d):\n", len(result.Improvements))
		for _, c := range result.Improvements {
			fmt.Printf("  [-] %s (%s): %s -> %s\n", c.RuleID, c.RuleName, c.PreviousLevel, c.CurrentLevel)
		}
	}

	if len(result.NewRules) > 0 {
		fmt.Printf("\nNew Rules (%d):\n", len(result.NewRules))
		for _, v := range result.NewRules {
			fmt.Printf("  [*] %s (%s): %s\n", v.RuleID, v.RuleName, v.Level)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Printf("\nUnchanged: %d rules\n", result.UnchangedCount)
	}

	return nil
}

// printDeltaRow prints one verdict level row of the comparison table.
func printDeltaRow(label string, previous, current int) {
	fmt.Printf("  %-16s  %-10d  %-10d  %-10s\n", label, previous, current, formatDelta(current-previous))
}

// formatDirection formats the change direction for display.
func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "IMPROVED (hardening got better)"
	case directionWorsened:
		return "WORSENED (hardening regressed)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
