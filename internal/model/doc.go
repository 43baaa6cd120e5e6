// Package model defines the core data structures used throughout StackScan.
//
// This package contains the following main types:
//   - Page: Represents a fetched web page before classification
//   - Evidence: The normalized, page-scoped extraction of markup signals
//   - Classification: The per-page technology inventory, the unit of output
//   - ScanReport: The scan result for one start URL
//   - Summary: A summarized, human-readable view of a scan
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, extract, classify, report) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
