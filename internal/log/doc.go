// Package log provides secure logging functionality with automatic
// sanitization of sensitive information, built on top of the standard
// slog package.
//
// This package extends slog to provide:
//   - Automatic masking of credential-shaped values (passwords, tokens, keys)
//   - Home directory redaction so scan logs are shareable across machines
//   - Configurable log levels with verbose mode support
//
// Scan logs are commonly attached to CI artifacts and bug reports. The
// SecureHandler ensures that neither secrets from the environment nor the
// operator's username (via home directory paths) leak into shared output.
//
// # Usage
//
//	// Create a secure logger
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("scan complete",
//	    "artifact", "/home/alice/bin/app.exe", // Logged as "~/bin/app.exe"
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
