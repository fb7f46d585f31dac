// Package config provides configuration structures and utilities for binskim.
// It defines the main options for scanning binaries, rule selection,
// and report generation preferences.
package config
