package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xcbat/binskim/internal/model"
	"github.com/xcbat/binskim/internal/pefile"
	"github.com/xcbat/binskim/internal/rules"
	"github.com/xcbat/binskim/internal/symbols"
)

// ImageStep opens the artifact and records its header facts on the report.
// This is the step where unreadable or corrupt artifacts surface; rules
// never run for a report whose image failed to load.
type ImageStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// NewImageStep creates the image loading step.
func NewImageStep(logger *slog.Logger) *ImageStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageStep{logger: logger}
}

// Name returns the step name.
func (s *ImageStep) Name() string {
	return "load_image"
}

// Do executes the image loading step.
func (s *ImageStep) Do(_ context.Context, report *model.BinaryScanReport) error {
	im, err := pefile.Open(report.Artifact)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}

	report.Image = im
	report.Digest = im.Digest
	report.Machine = im.MachineName()
	report.Subsystem = im.Subsystem
	report.IsDLL = im.IsDLL()
	report.IsManaged = im.IsManaged()
	report.SectionCount = len(im.Sections)

	s.logger.Debug("image loaded",
		"artifact", report.Artifact,
		"machine", report.Machine,
		"sections", report.SectionCount,
	)
	return nil
}

// SymbolIndexStep builds the debug-symbol index for the artifact.
// An artifact without symbols yields no index; that is an expected state
// the rule step reports through an ERROR verdict, so this step never fails
// because of a stripped binary.
type SymbolIndexStep struct {
	logger *slog.Logger
}

// NewSymbolIndexStep creates the symbol-index step.
func NewSymbolIndexStep(logger *slog.Logger) *SymbolIndexStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SymbolIndexStep{logger: logger}
}

// Name returns the step name.
func (s *SymbolIndexStep) Name() string {
	return "symbol_index"
}

// Do executes the symbol-index step.
func (s *SymbolIndexStep) Do(_ context.Context, report *model.BinaryScanReport) error {
	if report.Image == nil {
		return fmt.Errorf("symbol index: image not loaded")
	}

	// FromImage returns a typed nil for stripped binaries; only assign a
	// non-nil index to the interface field so nil checks stay reliable.
	if idx := symbols.FromImage(report.Image); idx != nil {
		report.Index = idx
		report.HasSymbolIndex = true
		s.logger.Debug("symbol index built",
			"artifact", report.Artifact,
			"global_functions", idx.GlobalFunctionCount(),
		)
		return nil
	}

	s.logger.Debug("no debug symbols available", "artifact", report.Artifact)
	return nil
}

// RuleStep evaluates every registered rule against the artifact.
//
// For each rule, the applicability gate runs first; a not-applicable
// outcome is recorded as a NOT_APPLICABLE verdict carrying the gate
// reason, and Analyze is never called in that case. Exactly one verdict
// is recorded per rule.
type RuleStep struct {
	registry *rules.Registry
	logger   *slog.Logger
}

// NewRuleStep creates the rule evaluation step using the given registry.
func NewRuleStep(registry *rules.Registry, logger *slog.Logger) *RuleStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleStep{registry: registry, logger: logger}
}

// Name returns the step name.
func (s *RuleStep) Name() string {
	return "evaluate_rules"
}

// Do executes the rule evaluation step.
func (s *RuleStep) Do(ctx context.Context, report *model.BinaryScanReport) error {
	if report.Image == nil {
		return fmt.Errorf("evaluate rules: image not loaded")
	}

	for _, rule := range s.registry.List() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		applicable, reason := rule.CanAnalyze(report.Image)
		if !applicable {
			report.AddVerdict(model.Verdict{
				RuleID:   rule.ID(),
				RuleName: rule.Name(),
				Artifact: report.Artifact,
				Level:    model.LevelNotApplicable,
				Message:  fmt.Sprintf("%s: %s", report.Artifact, reason),
			})
			continue
		}

		v := rule.Analyze(report.Image, report.Index)
		report.AddVerdict(v)

		s.logger.Debug("rule evaluated",
			"rule", rule.ID(),
			"artifact", report.Artifact,
			"level", v.Level.String(),
		)
	}

	return nil
}

// SummaryStep computes the aggregated verdict counts for the report.
// It runs last so that the summary covers every recorded verdict.
type SummaryStep struct{}

// NewSummaryStep creates the summary step.
func NewSummaryStep() *SummaryStep {
	return &SummaryStep{}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summarize"
}

// Do executes the summary step.
func (s *SummaryStep) Do(_ context.Context, report *model.BinaryScanReport) error {
	report.Summary = model.NewScanSummary(report)
	return nil
}

// DefaultPipeline creates a pipeline with the standard scan steps in order:
// load the image, build the symbol index, evaluate rules, summarize.
func DefaultPipeline(registry *rules.Registry, opts ...Option) *Pipeline {
	p := New(opts...)

	logger := p.logger

	p.AddSteps(
		NewImageStep(logger),
		NewSymbolIndexStep(logger),
		NewRuleStep(registry, logger),
		NewSummaryStep(),
	)

	return p
}
