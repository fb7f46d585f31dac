package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xcbat/binskim/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables printing PASS and NOT_APPLICABLE verdicts in full;
	// otherwise only failures and errors are listed individually.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with all verdicts listed.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one report in human-readable format.
func (w *SimpleWriter) Write(report *model.BinaryScanReport) (int, error) {
	var sb strings.Builder
	w.writeReport(&sb, report)
	return w.output.Write([]byte(sb.String()))
}

// WriteBatch outputs several reports in one document.
func (w *SimpleWriter) WriteBatch(reports []*model.BinaryScanReport) (int, error) {
	var sb strings.Builder
	for _, report := range reports {
		w.writeReport(&sb, report)
	}
	return w.output.Write([]byte(sb.String()))
}

// writeReport renders one artifact's report.
func (w *SimpleWriter) writeReport(sb *strings.Builder, report *model.BinaryScanReport) {
	w.writeHeader(sb, report)

	if report.ErrorMessage != "" {
		// The artifact never loaded; there are no verdicts to show.
		return
	}

	w.writeSummary(sb, report)
	w.writeVerdicts(sb, report)
	if w.verbose {
		w.writeGlobalFunctions(sb, report)
	}
}

// writeHeader writes the report header with artifact information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.BinaryScanReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         BINSKIM REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Artifact:     %s\n", report.Artifact)
	if report.Digest != "" {
		fmt.Fprintf(sb, "SHA-256:      %s\n", report.Digest)
	}
	fmt.Fprintf(sb, "Scan Date:    %s\n", report.DateScanned.Format("2006-01-02 15:04:05 MST"))
	if report.Machine != "" {
		fmt.Fprintf(sb, "Machine:      %s\n", report.Machine)
	}
	fmt.Fprintf(sb, "Symbols:      %s\n", symbolStatus(report))

	if report.ErrorMessage != "" {
		fmt.Fprintf(sb, "Status:       ERROR - %s\n", report.ErrorMessage)
	} else {
		sb.WriteString("Status:       Complete\n")
	}

	sb.WriteString("\n")
}

// symbolStatus describes the symbol index availability.
func symbolStatus(report *model.BinaryScanReport) string {
	if report.HasSymbolIndex {
		return "available"
	}
	return "unavailable"
}

// writeSummary writes the verdict level summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.BinaryScanReport) {
	summary := summaryOf(report)

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("VERDICT SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  PASS:           %d\n", summary.PassCount)
	fmt.Fprintf(sb, "  FAIL:           %d\n", summary.FailCount)
	fmt.Fprintf(sb, "  ERROR:          %d\n", summary.ErrorCount)
	fmt.Fprintf(sb, "  NOT_APPLICABLE: %d\n", summary.NotApplicableCount)
	fmt.Fprintf(sb, "  INFO:           %d\n", summary.InfoCount)
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:          %d rules evaluated\n", summary.Total())
	sb.WriteString("\n")
}

// writeVerdicts writes the individual verdict section.
// Failures and errors are always listed; passing verdicts appear only in
// verbose mode.
func (w *SimpleWriter) writeVerdicts(sb *strings.Builder, report *model.BinaryScanReport) {
	var shown []model.Verdict
	for _, v := range report.Verdicts {
		if w.verbose || v.Level == model.LevelFail || v.Level == model.LevelError {
			shown = append(shown, v)
		}
	}
	if len(shown) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("VERDICTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, v := range shown {
		fmt.Fprintf(sb, "[%s] %s (%s)\n", v.Level.String(), v.RuleID, v.RuleName)
		fmt.Fprintf(sb, "    %s\n\n", v.Message)
	}
}

// writeGlobalFunctions lists the global functions the symbol index
// resolved, with mangled names shown in their demangled form. Only
// rendered in verbose mode; the list is how a reader checks which
// symbols the verdicts were decided from.
func (w *SimpleWriter) writeGlobalFunctions(sb *strings.Builder, report *model.BinaryScanReport) {
	if report.Index == nil {
		return
	}
	functions := report.Index.GlobalFunctions()
	if len(functions) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "GLOBAL FUNCTIONS (%d)\n", len(functions))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, fn := range functions {
		display := fn.DisplayName()
		if display != fn.Name {
			fmt.Fprintf(sb, "  %s  [%s]\n", display, fn.Name)
			continue
		}
		fmt.Fprintf(sb, "  %s\n", display)
	}
	sb.WriteString("\n")
}
