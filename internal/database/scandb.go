package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/xcbat/binskim/internal/model"
)

// ScanDB provides SQLite-based storage for scan reports.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all scanned binaries
// rather than separate files per artifact. This keeps history queries and
// cross-scan comparison simple and makes backup/restore a single-file
// operation.
type ScanDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ScanDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ScanDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ScanDB, error) {
	dbPath := filepath.Join(dbDir, "binskim.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses mode=rw to refuse creating new files and
	// mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; multiple connections buy nothing here.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &ScanDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Close closes the database connection.
func (sdb *ScanDB) Close() error {
	return sdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (sdb *ScanDB) createTables() error {
	schema := `
	-- Scans store complete scan reports as JSON plus queryable metadata
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		artifact TEXT NOT NULL,
		digest TEXT NOT NULL,
		machine TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		report_json TEXT NOT NULL,
		verdict_summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_scans_artifact ON scans(artifact);
	CREATE INDEX IF NOT EXISTS idx_scans_digest ON scans(digest);
	CREATE INDEX IF NOT EXISTS idx_scans_timestamp ON scans(timestamp);

	-- Verdicts store per-rule outcomes for rule-level history queries
	CREATE TABLE IF NOT EXISTS verdicts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id INTEGER NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
		rule_id TEXT NOT NULL,
		rule_name TEXT,
		level TEXT NOT NULL,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_verdicts_scan ON verdicts(scan_id);
	CREATE INDEX IF NOT EXISTS idx_verdicts_rule ON verdicts(rule_id);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport saves a complete scan report and its per-rule verdicts.
// Returns the database ID of the stored scan.
func (sdb *ScanDB) SaveReport(ctx context.Context, report *model.BinaryScanReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	summary := map[string]int{
		"pass":           0,
		"fail":           0,
		"error":          0,
		"not_applicable": 0,
		"info":           0,
	}
	if report.Summary != nil {
		summary["pass"] = report.Summary.PassCount
		summary["fail"] = report.Summary.FailCount
		summary["error"] = report.Summary.ErrorCount
		summary["not_applicable"] = report.Summary.NotApplicableCount
		summary["info"] = report.Summary.InfoCount
	}
	summaryJSON, _ := json.Marshal(summary) //nolint:errcheck,errchkjson // summary is a simple map; Marshal won't fail

	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	result, err := tx.ExecContext(ctx,
		`INSERT INTO scans (artifact, digest, machine, report_json, verdict_summary)
		VALUES (?, ?, ?, ?, ?)`,
		report.Artifact,
		report.Digest,
		report.Machine,
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan: %w", err)
	}

	scanID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get scan id: %w", err)
	}

	for _, v := range report.Verdicts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO verdicts (scan_id, rule_id, rule_name, level, message)
			VALUES (?, ?, ?, ?, ?)`,
			scanID,
			v.RuleID,
			v.RuleName,
			v.Level.String(),
			v.Message,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to save verdict: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scan: %w", err)
	}

	return scanID, nil
}

// GetLatestReport retrieves the most recent scan report for an artifact.
// Returns nil without error when the artifact has never been scanned.
func (sdb *ScanDB) GetLatestReport(ctx context.Context, artifact string) (*model.BinaryScanReport, error) {
	query := `
	SELECT report_json FROM scans
	WHERE artifact = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := sdb.db.QueryRowContext(ctx, query, artifact).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	var report model.BinaryScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// GetScanHistory retrieves all scan reports for an artifact, newest first.
func (sdb *ScanDB) GetScanHistory(ctx context.Context, artifact string) ([]*model.BinaryScanReport, error) {
	query := `
	SELECT report_json FROM scans
	WHERE artifact = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query, artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var reports []*model.BinaryScanReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report model.BinaryScanReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// ListScannedArtifacts returns the artifacts present in the database.
func (sdb *ScanDB) ListScannedArtifacts(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT artifact FROM scans
	ORDER BY artifact
	`

	rows, err := sdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []string
	for rows.Next() {
		var artifact string
		if err := rows.Scan(&artifact); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}

	return artifacts, rows.Err()
}

// ScanMetadata contains summary information about a stored scan.
// This is used for displaying scan history without loading the full report.
type ScanMetadata struct {
	// ID is the unique identifier of the scan in the database.
	ID int64

	// Artifact is the scanned binary path.
	Artifact string

	// Digest is the SHA-256 of the binary at scan time.
	Digest string

	// Timestamp is when the scan was performed.
	Timestamp time.Time

	// VerdictSummary contains counts of verdicts by level.
	VerdictSummary map[string]int
}

// GetScanHistoryWithMetadata retrieves scan metadata for an artifact.
// This is more efficient than GetScanHistory when only metadata is needed.
func (sdb *ScanDB) GetScanHistoryWithMetadata(ctx context.Context, artifact string) ([]ScanMetadata, error) {
	query := `
	SELECT id, artifact, digest, timestamp, verdict_summary
	FROM scans
	WHERE artifact = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query, artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var results []ScanMetadata
	for rows.Next() {
		var meta ScanMetadata
		var timestamp string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.Artifact, &meta.Digest, &timestamp, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)

		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.VerdictSummary); err != nil {
				meta.VerdictSummary = make(map[string]int)
			}
		} else {
			meta.VerdictSummary = make(map[string]int)
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetReportByID retrieves a scan report by its database ID.
func (sdb *ScanDB) GetReportByID(ctx context.Context, id int64) (*model.BinaryScanReport, error) {
	query := `
	SELECT report_json FROM scans
	WHERE id = ?
	`

	var reportJSON string
	err := sdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	var report model.BinaryScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// VerdictRecord is one stored rule outcome for an artifact scan.
type VerdictRecord struct {
	ScanID    int64       `json:"scan_id"`
	RuleID    string      `json:"rule_id"`
	RuleName  string      `json:"rule_name"`
	Level     model.Level `json:"level"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// QueryVerdictHistory returns the stored outcomes of one rule for an
// artifact, newest first. This backs rule-level regression queries.
func (sdb *ScanDB) QueryVerdictHistory(ctx context.Context, artifact, ruleID string) ([]VerdictRecord, error) {
	query := `
	SELECT v.scan_id, v.rule_id, v.rule_name, v.level, v.message, s.timestamp
	FROM verdicts v
	JOIN scans s ON s.id = v.scan_id
	WHERE s.artifact = ? AND v.rule_id = ?
	ORDER BY s.timestamp DESC, s.id DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query, artifact, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdict history: %w", err)
	}
	defer rows.Close()

	var results []VerdictRecord
	for rows.Next() {
		var rec VerdictRecord
		var level string
		var timestamp string

		if err := rows.Scan(&rec.ScanID, &rec.RuleID, &rec.RuleName, &level, &rec.Message, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}

		rec.Level = model.ParseLevel(level)
		rec.Timestamp = parseTimestamp(timestamp)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
