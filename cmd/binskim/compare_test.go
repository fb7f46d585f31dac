package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/xcbat/binskim/internal/database"
	"github.com/xcbat/binskim/internal/model"
)

// reportWithLevel creates a report holding one BA2013 verdict at the given level.
func reportWithLevel(artifact string, level model.Level) *model.BinaryScanReport {
	r := model.NewBinaryScanReport(artifact)
	r.AddVerdict(model.Verdict{
		RuleID:   "BA2013",
		RuleName: "InitializeStackProtection",
		Artifact: artifact,
		Level:    level,
		Message:  "verdict message",
	})
	r.Summary = model.NewScanSummary(r)
	return r
}

// TestCompareReports tests regression and improvement detection.
func TestCompareReports(t *testing.T) {
	t.Parallel()

	t.Run("detects regression", func(t *testing.T) {
		t.Parallel()

		previous := reportWithLevel("bin/app.exe", model.LevelPass)
		current := reportWithLevel("bin/app.exe", model.LevelFail)

		result := compareReports(previous, current)

		if result.Direction != directionWorsened {
			t.Errorf("expected direction %q, got %q", directionWorsened, result.Direction)
		}
		if len(result.Regressions) != 1 {
			t.Fatalf("expected 1 regression, got %d", len(result.Regressions))
		}
		if result.Regressions[0].RuleID != "BA2013" {
			t.Errorf("unexpected regression rule: %s", result.Regressions[0].RuleID)
		}
		if result.Regressions[0].PreviousLevel != model.LevelPass {
			t.Errorf("unexpected previous level: %s", result.Regressions[0].PreviousLevel)
		}
	})

	t.Run("detects improvement", func(t *testing.T) {
		t.Parallel()

		previous := reportWithLevel("bin/app.exe", model.LevelFail)
		current := reportWithLevel("bin/app.exe", model.LevelPass)

		result := compareReports(previous, current)

		if result.Direction != directionImproved {
			t.Errorf("expected direction %q, got %q", directionImproved, result.Direction)
		}
		if len(result.Improvements) != 1 {
			t.Errorf("expected 1 improvement, got %d", len(result.Improvements))
		}
	})

	t.Run("error to fail is a regression", func(t *testing.T) {
		t.Parallel()

		previous := reportWithLevel("bin/app.exe", model.LevelError)
		current := reportWithLevel("bin/app.exe", model.LevelFail)

		result := compareReports(previous, current)

		if result.Direction != directionWorsened {
			t.Errorf("expected direction %q, got %q", directionWorsened, result.Direction)
		}
	})

	t.Run("unchanged verdicts", func(t *testing.T) {
		t.Parallel()

		previous := reportWithLevel("bin/app.exe", model.LevelPass)
		current := reportWithLevel("bin/app.exe", model.LevelPass)

		result := compareReports(previous, current)

		if result.Direction != directionUnchanged {
			t.Errorf("expected direction %q, got %q", directionUnchanged, result.Direction)
		}
		if result.UnchangedCount != 1 {
			t.Errorf("expected 1 unchanged rule, got %d", result.UnchangedCount)
		}
	})

	t.Run("rule only in current scan is new", func(t *testing.T) {
		t.Parallel()

		previous := model.NewBinaryScanReport("bin/app.exe")
		previous.Summary = model.NewScanSummary(previous)
		current := reportWithLevel("bin/app.exe", model.LevelPass)

		result := compareReports(previous, current)

		if len(result.NewRules) != 1 {
			t.Fatalf("expected 1 new rule, got %d", len(result.NewRules))
		}
		if result.NewRules[0].RuleID != "BA2013" {
			t.Errorf("unexpected new rule: %s", result.NewRules[0].RuleID)
		}
	})

	t.Run("snapshot carries summary counts", func(t *testing.T) {
		t.Parallel()

		previous := reportWithLevel("bin/app.exe", model.LevelFail)
		previous.DateScanned = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		current := reportWithLevel("bin/app.exe", model.LevelPass)

		result := compareReports(previous, current)

		if result.PreviousScan.FailCount != 1 {
			t.Errorf("expected previous fail count 1, got %d", result.PreviousScan.FailCount)
		}
		if result.CurrentScan.PassCount != 1 {
			t.Errorf("expected current pass count 1, got %d", result.CurrentScan.PassCount)
		}
		if !result.PreviousScan.DateScanned.Equal(previous.DateScanned) {
			t.Error("expected previous scan date to be carried over")
		}
	})
}

// TestFormatVerdictSummary tests history summary formatting.
func TestFormatVerdictSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		summary map[string]int
		want    string
	}{
		{
			name:    "nil summary",
			summary: nil,
			want:    "N/A",
		},
		{
			name:    "empty summary",
			summary: map[string]int{},
			want:    noVerdictsMessage,
		},
		{
			name:    "mixed counts",
			summary: map[string]int{"fail": 2, "pass": 3},
			want:    "F:2 P:3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := formatVerdictSummary(tt.summary); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestRuleHistory tests rule-level verdict history from the database.
func TestRuleHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.SaveReport(ctx, reportWithLevel("bin/app.exe", model.LevelFail)); err != nil {
		t.Fatalf("failed to save first report: %v", err)
	}
	if _, err := db.SaveReport(ctx, reportWithLevel("bin/app.exe", model.LevelPass)); err != nil {
		t.Fatalf("failed to save second report: %v", err)
	}

	records, err := db.QueryVerdictHistory(ctx, "bin/app.exe", "BA2013")
	if err != nil {
		t.Fatalf("failed to query verdict history: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Level != model.LevelPass {
		t.Errorf("expected newest record first (PASS), got %s", records[0].Level)
	}
	if records[1].Level != model.LevelFail {
		t.Errorf("expected older record last (FAIL), got %s", records[1].Level)
	}

	var sb strings.Builder
	writeRuleHistory(&sb, "bin/app.exe", "BA2013", records)

	output := sb.String()
	if !strings.Contains(output, "Verdict history for BA2013 on bin/app.exe (2 scans)") {
		t.Error("expected history header")
	}
	passIdx := strings.Index(output, "PASS")
	failIdx := strings.Index(output, "FAIL")
	if passIdx < 0 || failIdx < 0 || passIdx > failIdx {
		t.Errorf("expected PASS row before FAIL row, got:\n%s", output)
	}
	if !strings.Contains(output, "Latest: verdict message") {
		t.Error("expected latest verdict message")
	}
}

// TestFormatDelta tests delta formatting.
func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		delta int
		want  string
	}{
		{delta: 3, want: "+3"},
		{delta: -2, want: "-2"},
		{delta: 0, want: "0"},
	}

	for _, tt := range tests {
		if got := formatDelta(tt.delta); got != tt.want {
			t.Errorf("formatDelta(%d): expected %q, got %q", tt.delta, tt.want, got)
		}
	}
}
