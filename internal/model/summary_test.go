package model

import "testing"

// TestNewScanSummary tests verdict counting and worst-level computation.
func TestNewScanSummary(t *testing.T) {
	t.Parallel()

	t.Run("empty report", func(t *testing.T) {
		t.Parallel()

		report := NewBinaryScanReport("a.exe")
		s := NewScanSummary(report)

		if s.Total() != 0 {
			t.Errorf("expected 0 verdicts, got %d", s.Total())
		}
		if s.Worst != LevelPass {
			t.Errorf("expected worst PASS for empty report, got %v", s.Worst)
		}
	})

	t.Run("counts each level", func(t *testing.T) {
		t.Parallel()

		report := NewBinaryScanReport("a.exe")
		report.AddVerdict(Verdict{RuleID: "R1", Level: LevelPass})
		report.AddVerdict(Verdict{RuleID: "R2", Level: LevelPass})
		report.AddVerdict(Verdict{RuleID: "R3", Level: LevelFail})
		report.AddVerdict(Verdict{RuleID: "R4", Level: LevelError})
		report.AddVerdict(Verdict{RuleID: "R5", Level: LevelNotApplicable})
		report.AddVerdict(Verdict{RuleID: "R6", Level: LevelInformational})

		s := NewScanSummary(report)

		if s.PassCount != 2 {
			t.Errorf("PassCount = %d, want 2", s.PassCount)
		}
		if s.FailCount != 1 {
			t.Errorf("FailCount = %d, want 1", s.FailCount)
		}
		if s.ErrorCount != 1 {
			t.Errorf("ErrorCount = %d, want 1", s.ErrorCount)
		}
		if s.NotApplicableCount != 1 {
			t.Errorf("NotApplicableCount = %d, want 1", s.NotApplicableCount)
		}
		if s.InfoCount != 1 {
			t.Errorf("InfoCount = %d, want 1", s.InfoCount)
		}
		if s.Total() != 6 {
			t.Errorf("Total() = %d, want 6", s.Total())
		}
	})

	t.Run("worst is fail when any rule fails", func(t *testing.T) {
		t.Parallel()

		report := NewBinaryScanReport("a.exe")
		report.AddVerdict(Verdict{Level: LevelPass})
		report.AddVerdict(Verdict{Level: LevelError})
		report.AddVerdict(Verdict{Level: LevelFail})

		s := NewScanSummary(report)
		if s.Worst != LevelFail {
			t.Errorf("Worst = %v, want LevelFail", s.Worst)
		}
	})

	t.Run("error outranks not applicable", func(t *testing.T) {
		t.Parallel()

		report := NewBinaryScanReport("a.exe")
		report.AddVerdict(Verdict{Level: LevelNotApplicable})
		report.AddVerdict(Verdict{Level: LevelError})

		s := NewScanSummary(report)
		if s.Worst != LevelError {
			t.Errorf("Worst = %v, want LevelError", s.Worst)
		}
	})
}

// TestBinaryScanReportHasFailures tests failure detection on reports.
func TestBinaryScanReportHasFailures(t *testing.T) {
	t.Parallel()

	t.Run("no failures", func(t *testing.T) {
		t.Parallel()

		report := NewBinaryScanReport("a.exe")
		report.AddVerdict(Verdict{Level: LevelPass})
		report.AddVerdict(Verdict{Level: LevelError})

		if report.HasFailures() {
			t.Error("expected no failures")
		}
	})

	t.Run("with failure", func(t *testing.T) {
		t.Parallel()

		report := NewBinaryScanReport("a.exe")
		report.AddVerdict(Verdict{Level: LevelFail})

		if !report.HasFailures() {
			t.Error("expected failures to be detected")
		}
	})
}
