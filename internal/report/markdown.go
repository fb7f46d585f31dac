package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/xcbat/binskim/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one report in Markdown format.
func (w *MarkdownWriter) Write(report *model.BinaryScanReport) (int, error) {
	return w.WriteBatch([]*model.BinaryScanReport{report})
}

// WriteBatch outputs several reports in one Markdown document.
func (w *MarkdownWriter) WriteBatch(reports []*model.BinaryScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("BinSkim Report")
	md.PlainText("")

	for _, report := range reports {
		w.writeArtifact(md, report)
	}

	return len(md.String()), md.Build()
}

// writeArtifact renders one artifact's section.
func (w *MarkdownWriter) writeArtifact(md *markdown.Markdown, report *model.BinaryScanReport) {
	md.H2(report.Artifact)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Artifact", "`" + report.Artifact + "`"},
			{"SHA-256", "`" + report.Digest + "`"},
			{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
			{"Machine", report.Machine},
			{"Symbols", symbolStatus(report)},
			{"Status", w.statusText(report)},
		},
	})
	md.PlainText("")

	if report.ErrorMessage != "" {
		return
	}

	w.writeSummary(md, report)
	w.writeVerdicts(md, report)
}

// statusText returns the status cell text based on report state.
func (w *MarkdownWriter) statusText(report *model.BinaryScanReport) string {
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// writeSummary writes the verdict summary section for one artifact.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.BinaryScanReport) {
	summary := summaryOf(report)

	md.H3("Verdict Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Level", "Count"},
		Rows: [][]string{
			{"✅ Pass", strconv.Itoa(summary.PassCount)},
			{"🔴 Fail", strconv.Itoa(summary.FailCount)},
			{"⚠️ Error", strconv.Itoa(summary.ErrorCount)},
			{"⏭️ Not Applicable", strconv.Itoa(summary.NotApplicableCount)},
			{"⚪ Info", strconv.Itoa(summary.InfoCount)},
			{"**Total**", "**" + strconv.Itoa(summary.Total()) + "**"},
		},
	})
	md.PlainText("")

	w.writePieChart(md, summary)
	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart for verdict level distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.ScanSummary) {
	if summary.Total() == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Verdict Distribution"),
		piechart.WithShowData(true),
	)

	if summary.PassCount > 0 {
		chart.LabelAndIntValue("Pass", uint64(summary.PassCount))
	}
	if summary.FailCount > 0 {
		chart.LabelAndIntValue("Fail", uint64(summary.FailCount))
	}
	if summary.ErrorCount > 0 {
		chart.LabelAndIntValue("Error", uint64(summary.ErrorCount))
	}
	if summary.NotApplicableCount > 0 {
		chart.LabelAndIntValue("NotApplicable", uint64(summary.NotApplicableCount))
	}
	if summary.InfoCount > 0 {
		chart.LabelAndIntValue("Info", uint64(summary.InfoCount))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on verdict counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.ScanSummary) {
	switch {
	case summary.FailCount > 0:
		md.Cautionf(
			"Hardening failures detected! %d rule(s) reported a defeated or missing mitigation.",
			summary.FailCount,
		)
	case summary.ErrorCount > 0:
		md.Warningf(
			"%d rule(s) could not be evaluated, typically because debug information was unavailable.",
			summary.ErrorCount,
		)
	case summary.Total() > 0:
		md.Tip("All applicable hardening rules passed.")
	default:
		md.Note("No rules were evaluated for this artifact.")
	}
	md.PlainText("")
}

// writeVerdicts writes the individual verdicts table for one artifact.
func (w *MarkdownWriter) writeVerdicts(md *markdown.Markdown, report *model.BinaryScanReport) {
	if len(report.Verdicts) == 0 {
		return
	}

	md.H3("Verdicts")
	md.PlainText("")

	rows := make([][]string, 0, len(report.Verdicts))
	for _, v := range report.Verdicts {
		rows = append(rows, []string{
			v.RuleID,
			v.RuleName,
			v.Level.String(),
			v.Message,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Rule", "Name", "Level", "Justification"},
		Rows:   rows,
	})
	md.PlainText("")
}
