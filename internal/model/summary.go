package model

// ScanSummary aggregates verdict counts for one artifact.
// It provides the curated view used by the simple report writer and by
// the compare command.
//
// Design decision: We compute a separate summary struct rather than
// deriving counts at print time because:
//  1. It serializes to JSON for tools that want structured but simple output
//  2. It makes the exit-code decision (any FAIL present) explicit
//  3. It separates presentation concerns from the verdict records
type ScanSummary struct {
	// PassCount is the number of PASS verdicts.
	PassCount int `json:"pass_count"`

	// FailCount is the number of FAIL verdicts.
	FailCount int `json:"fail_count"`

	// ErrorCount is the number of ERROR verdicts.
	ErrorCount int `json:"error_count"`

	// NotApplicableCount is the number of NOT_APPLICABLE verdicts.
	NotApplicableCount int `json:"not_applicable_count"`

	// InfoCount is the number of INFO verdicts.
	InfoCount int `json:"info_count"`

	// Worst is the most severe level present in the scan.
	// Severity order, from worst: FAIL, ERROR, NOT_APPLICABLE, INFO, PASS.
	Worst Level `json:"worst"`
}

// severityRank orders levels for the Worst computation.
// Higher rank means more attention required.
func severityRank(l Level) int {
	switch l {
	case LevelFail:
		return 4
	case LevelError:
		return 3
	case LevelNotApplicable:
		return 2
	case LevelInformational:
		return 1
	case LevelPass:
		return 0
	default:
		return 0
	}
}

// NewScanSummary computes the summary for a report's verdicts.
func NewScanSummary(report *BinaryScanReport) *ScanSummary {
	s := &ScanSummary{Worst: LevelPass}
	for _, v := range report.Verdicts {
		switch v.Level {
		case LevelPass:
			s.PassCount++
		case LevelFail:
			s.FailCount++
		case LevelError:
			s.ErrorCount++
		case LevelNotApplicable:
			s.NotApplicableCount++
		case LevelInformational:
			s.InfoCount++
		}
		if severityRank(v.Level) > severityRank(s.Worst) {
			s.Worst = v.Level
		}
	}
	return s
}

// Total returns the total number of verdicts counted.
func (s *ScanSummary) Total() int {
	return s.PassCount + s.FailCount + s.ErrorCount + s.NotApplicableCount + s.InfoCount
}
