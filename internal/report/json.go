package report

import (
	"encoding/json"
	"io"

	"github.com/xcbat/binskim/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. It's sufficient for our needs
// 3. It provides consistent behavior across Go versions
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is the binskim version recorded in the document envelope.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// WithVersion records the tool version in the output envelope.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONDocument is the envelope around one or more scan reports.
//
// Design decision: We wrap reports rather than emitting a bare array
// because this allows adding output-specific metadata without polluting
// the core data structures.
type JSONDocument struct {
	// Version is the binskim version that generated this document.
	Version string `json:"version,omitempty"`

	// Reports contains one entry per scanned artifact.
	Reports []*model.BinaryScanReport `json:"reports"`
}

// Write outputs one report in JSON format.
func (w *JSONWriter) Write(report *model.BinaryScanReport) (int, error) {
	return w.WriteBatch([]*model.BinaryScanReport{report})
}

// WriteBatch outputs reports for several artifacts in one JSON document.
func (w *JSONWriter) WriteBatch(reports []*model.BinaryScanReport) (int, error) {
	for _, r := range reports {
		if r.Summary == nil {
			r.Summary = model.NewScanSummary(r)
		}
	}

	doc := JSONDocument{
		Version: w.version,
		Reports: reports,
	}
	return w.writeJSON(doc)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
