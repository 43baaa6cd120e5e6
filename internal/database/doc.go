// Package database provides SQLite-based storage for scan results.
//
// This package implements the ResultDB, which stores:
//   - Per-page classification records, keyed by page URL and scan seed
//   - Full scan reports as JSON for historical analysis
//   - Aggregated scan summaries for cheap history listings
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
