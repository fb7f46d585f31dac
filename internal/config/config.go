package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultBatchSize of 10 concurrent scans balances throughput with
	// resource usage. Binary parsing is I/O bound on the file read and
	// CPU bound on hashing, so modest parallelism is enough.
	DefaultBatchSize = 10

	// AppName is the application name used for XDG directory paths.
	AppName = "binskim"
)

// Config holds all configuration options for binskim.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., ScanConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Targets is the list of binary paths to scan.
	// Must contain at least one path.
	Targets []string

	// Verbose enables detailed log output using slog.LevelDebug and
	// lists passing verdicts in the simple report.
	Verbose bool

	// BatchSize is the number of concurrent scans when processing multiple
	// targets. Higher values increase throughput but may overwhelm the disk.
	BatchSize int

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable
	// format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// DBDir is the directory path for storing the SQLite database.
	// When set, scan results are saved to the database for historical
	// comparison. When empty, scan results are not persisted.
	// Defaults to XDG data directory (~/.local/share/binskim on Linux).
	DBDir string

	// SaveToDB indicates whether to save scan results to the database.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool

	// DisabledRules are rule IDs excluded from every scan.
	// Combined with any per-artifact overrides from the config file.
	DisabledRules []string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .binskim in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// RuleSets holds rule overrides loaded from the config file.
	// This is populated by LoadConfigFile and used during scanning.
	RuleSets *File
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because some defaults are non-zero (e.g., batch size).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		BatchSize: DefaultBatchSize,
	}
}

// XDGDataDir returns the XDG data directory for binskim.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/binskim
// On macOS: ~/Library/Application Support/binskim
// On Windows: %LOCALAPPDATA%\binskim
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for binskim.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/binskim
// On macOS: ~/Library/Application Support/binskim
// On Windows: %APPDATA%\binskim
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any scanning begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one target to scan
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	// BatchSize must be positive; zero would mean no scanning
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
