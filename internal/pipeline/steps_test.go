package pipeline

import (
	"context"
	"debug/pe"
	"strings"
	"testing"

	"github.com/xcbat/binskim/internal/model"
	"github.com/xcbat/binskim/internal/pefile"
	"github.com/xcbat/binskim/internal/rules"
)

// loadedReport builds a report whose image passed the loading step.
func loadedReport(syms []pefile.CoffSymbol) *model.BinaryScanReport {
	report := model.NewBinaryScanReport("testdata/app.exe")
	report.Image = &pefile.Image{
		Path:              report.Artifact,
		Machine:           pe.IMAGE_FILE_MACHINE_AMD64,
		Characteristics:   pefile.CharacteristicExecutableImage,
		HasOptionalHeader: true,
		Sections: []pefile.Section{
			{Name: ".text", Characteristics: pefile.SectionCntCode | pefile.SectionMemExecute},
		},
		CoffSymbols: syms,
	}
	return report
}

// TestImageStepMissingFile tests that unreadable artifacts fail the step.
func TestImageStepMissingFile(t *testing.T) {
	t.Parallel()

	step := NewImageStep(nil)
	report := model.NewBinaryScanReport("testdata/does-not-exist.exe")

	if err := step.Do(context.Background(), report); err == nil {
		t.Error("expected error for missing artifact")
	}
}

// TestSymbolIndexStep tests index construction and the stripped case.
func TestSymbolIndexStep(t *testing.T) {
	t.Parallel()

	t.Run("builds index when symbols present", func(t *testing.T) {
		t.Parallel()

		report := loadedReport([]pefile.CoffSymbol{
			{Name: "main", SectionNumber: 1, Type: 0x20, StorageClass: 2},
		})

		step := NewSymbolIndexStep(nil)
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("step failed: %v", err)
		}

		if !report.HasSymbolIndex {
			t.Error("expected HasSymbolIndex to be true")
		}
		if report.Index == nil {
			t.Error("expected index to be set")
		}
	})

	t.Run("stripped binary leaves index nil", func(t *testing.T) {
		t.Parallel()

		report := loadedReport(nil)

		step := NewSymbolIndexStep(nil)
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("step must not fail for stripped binaries: %v", err)
		}

		if report.HasSymbolIndex {
			t.Error("expected HasSymbolIndex to be false")
		}
		if report.Index != nil {
			t.Error("expected index to stay nil")
		}
	})

	t.Run("fails without loaded image", func(t *testing.T) {
		t.Parallel()

		report := model.NewBinaryScanReport("a.exe")
		step := NewSymbolIndexStep(nil)

		if err := step.Do(context.Background(), report); err == nil {
			t.Error("expected error when image is not loaded")
		}
	})
}

// TestRuleStep tests rule evaluation, gating, and verdict recording.
func TestRuleStep(t *testing.T) {
	t.Parallel()

	t.Run("one verdict per rule", func(t *testing.T) {
		t.Parallel()

		report := loadedReport([]pefile.CoffSymbol{
			{Name: "main", SectionNumber: 1, Type: 0x20, StorageClass: 2},
			{Name: "__security_check_cookie", SectionNumber: 1, Type: 0x20, StorageClass: 2},
			{Name: "__security_init_cookie", SectionNumber: 1, Type: 0x20, StorageClass: 2},
		})

		registry := rules.NewRegistry()
		index := NewSymbolIndexStep(nil)
		step := NewRuleStep(registry, nil)

		if err := index.Do(context.Background(), report); err != nil {
			t.Fatalf("symbol step failed: %v", err)
		}
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("rule step failed: %v", err)
		}

		if len(report.Verdicts) != registry.Count() {
			t.Errorf("verdicts = %d, want %d", len(report.Verdicts), registry.Count())
		}
		if report.Verdicts[0].Level != model.LevelPass {
			t.Errorf("verdict level = %v, want PASS", report.Verdicts[0].Level)
		}
	})

	t.Run("gated rule records not applicable with reason", func(t *testing.T) {
		t.Parallel()

		report := loadedReport(nil)
		report.Image.CLRHeaderSize = 72 // managed assembly

		step := NewRuleStep(rules.NewRegistry(), nil)
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("rule step failed: %v", err)
		}

		if len(report.Verdicts) == 0 {
			t.Fatal("expected a verdict for the gated rule")
		}
		v := report.Verdicts[0]
		if v.Level != model.LevelNotApplicable {
			t.Errorf("verdict level = %v, want NOT_APPLICABLE", v.Level)
		}
		if !strings.Contains(v.Message, rules.ReasonManagedAssembly) {
			t.Errorf("message = %q, want it to contain gate reason", v.Message)
		}
	})

	t.Run("stripped binary yields error verdict", func(t *testing.T) {
		t.Parallel()

		report := loadedReport(nil)

		step := NewRuleStep(rules.NewRegistry(), nil)
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("rule step failed: %v", err)
		}

		if len(report.Verdicts) == 0 {
			t.Fatal("expected a verdict")
		}
		if report.Verdicts[0].Level != model.LevelError {
			t.Errorf("verdict level = %v, want ERROR", report.Verdicts[0].Level)
		}
	})

	t.Run("fails without loaded image", func(t *testing.T) {
		t.Parallel()

		report := model.NewBinaryScanReport("a.exe")
		step := NewRuleStep(rules.NewRegistry(), nil)

		if err := step.Do(context.Background(), report); err == nil {
			t.Error("expected error when image is not loaded")
		}
	})
}

// TestSummaryStep tests summary computation.
func TestSummaryStep(t *testing.T) {
	t.Parallel()

	report := model.NewBinaryScanReport("a.exe")
	report.AddVerdict(model.Verdict{Level: model.LevelFail})
	report.AddVerdict(model.Verdict{Level: model.LevelPass})

	step := NewSummaryStep()
	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("summary step failed: %v", err)
	}

	if report.Summary == nil {
		t.Fatal("expected summary to be set")
	}
	if report.Summary.FailCount != 1 || report.Summary.PassCount != 1 {
		t.Errorf("summary counts = %+v, want 1 fail and 1 pass", report.Summary)
	}
	if report.Summary.Worst != model.LevelFail {
		t.Errorf("worst = %v, want FAIL", report.Summary.Worst)
	}
}
