// Package main provides the entry point for the binskim CLI.
//
// binskim verifies that Windows PE binaries were built with compiler and
// linker security mitigations enabled, such as stack protection.
//
// Usage:
//
//	binskim scan <binary-path>
//	binskim scan --list <file>
//
// See --help for all available options.
package main

// main is the entry point for binskim.
func main() {
	Execute()
}
