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

	"github.com/nao1215/stackscan/internal/model"
)

// ResultDB provides SQLite-based storage for classification records and
// scan reports. It manages connection pooling and provides methods for
// CRUD operations.
//
// Design decision: We use a single database file for all scanned sites
// rather than one file per site. This makes cross-site history queries
// trivial and keeps backup/restore a single-file operation.
type ResultDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ResultDB behavior.
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

// Open opens or creates a ResultDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ResultDB, error) {
	dbPath := filepath.Join(dbDir, "stackscan.db")

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

	// SQLite only supports one writer; a single pooled connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ResultDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *ResultDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *ResultDB) createTables() error {
	schema := `
	-- Classification records store per-page technology inventories
	CREATE TABLE IF NOT EXISTS classifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		start_url TEXT NOT NULL,
		title TEXT,
		technologies TEXT,
		cdns TEXT,
		analytics TEXT,
		scripts TEXT,
		meta_generator TEXT,
		server TEXT,
		detected_via TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(url, start_url)
	);

	CREATE INDEX IF NOT EXISTS idx_class_url ON classifications(url);
	CREATE INDEX IF NOT EXISTS idx_class_start ON classifications(start_url);
	CREATE INDEX IF NOT EXISTS idx_class_timestamp ON classifications(timestamp);

	-- Scan reports store complete scan results as JSON
	CREATE TABLE IF NOT EXISTS scan_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_url TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		report_json TEXT NOT NULL,
		summary_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_start ON scan_reports(start_url);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON scan_reports(timestamp);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// UpsertClassification inserts or updates a classification record scoped
// to a scan's start URL. Re-scanning a site replaces its per-page rows
// rather than accumulating duplicates.
func (rdb *ResultDB) UpsertClassification(ctx context.Context, startURL string, record *model.Classification) (int64, error) {
	technologies, err := json.Marshal(record.Technologies)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize technologies: %w", err)
	}
	cdns, err := json.Marshal(record.CDNs)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize cdns: %w", err)
	}
	analytics, err := json.Marshal(record.Analytics)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize analytics: %w", err)
	}
	scripts, err := json.Marshal(record.Scripts)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize scripts: %w", err)
	}
	detectedVia, err := json.Marshal(record.DetectedVia)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize detected_via: %w", err)
	}

	query := `
	INSERT INTO classifications (url, start_url, title, technologies, cdns, analytics, scripts, meta_generator, server, detected_via, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url, start_url) DO UPDATE SET
		title = excluded.title,
		technologies = excluded.technologies,
		cdns = excluded.cdns,
		analytics = excluded.analytics,
		scripts = excluded.scripts,
		meta_generator = excluded.meta_generator,
		server = excluded.server,
		detected_via = excluded.detected_via,
		timestamp = excluded.timestamp
	`

	result, err := rdb.db.ExecContext(ctx, query,
		record.URL,
		startURL,
		record.Title,
		string(technologies),
		string(cdns),
		string(analytics),
		string(scripts),
		record.MetaGenerator,
		record.Server,
		string(detectedVia),
		record.Timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert classification: %w", err)
	}

	return result.LastInsertId()
}

// GetClassification retrieves one classification record by page URL and
// scan start URL. Returns nil without error when no row matches.
func (rdb *ResultDB) GetClassification(ctx context.Context, pageURL, startURL string) (*model.Classification, error) {
	query := `
	SELECT url, title, technologies, cdns, analytics, scripts, meta_generator, server, detected_via, timestamp
	FROM classifications
	WHERE url = ? AND start_url = ?
	`

	record, err := scanClassification(rdb.db.QueryRowContext(ctx, query, pageURL, startURL))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classification: %w", err)
	}
	return record, nil
}

// QueryClassifications returns all classification records of one scan,
// ordered by page URL.
func (rdb *ResultDB) QueryClassifications(ctx context.Context, startURL string) ([]*model.Classification, error) {
	query := `
	SELECT url, title, technologies, cdns, analytics, scripts, meta_generator, server, detected_via, timestamp
	FROM classifications
	WHERE start_url = ?
	ORDER BY url
	`

	rows, err := rdb.db.QueryContext(ctx, query, startURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query classifications: %w", err)
	}
	defer rows.Close()

	var records []*model.Classification
	for rows.Next() {
		record, err := scanClassification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanClassification reconstructs a classification record from one row.
func scanClassification(row rowScanner) (*model.Classification, error) {
	var (
		record      model.Classification
		technology  string
		cdns        string
		analytics   string
		scripts     string
		detectedVia string
	)

	if err := row.Scan(
		&record.URL,
		&record.Title,
		&technology,
		&cdns,
		&analytics,
		&scripts,
		&record.MetaGenerator,
		&record.Server,
		&detectedVia,
		&record.Timestamp,
	); err != nil {
		return nil, err
	}

	for _, field := range []struct {
		raw  string
		dest any
	}{
		{technology, &record.Technologies},
		{cdns, &record.CDNs},
		{analytics, &record.Analytics},
		{scripts, &record.Scripts},
		{detectedVia, &record.DetectedVia},
	} {
		if field.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(field.raw), field.dest); err != nil {
			return nil, fmt.Errorf("failed to parse stored classification field: %w", err)
		}
	}

	return &record, nil
}

// SaveScanReport saves a complete scan report as JSON alongside its
// aggregated summary.
func (rdb *ResultDB) SaveScanReport(ctx context.Context, report *model.ScanReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	var summaryJSON []byte
	if report.Summary != nil {
		summaryJSON, err = json.Marshal(report.Summary)
		if err != nil {
			return fmt.Errorf("failed to serialize summary: %w", err)
		}
	}

	query := `
	INSERT INTO scan_reports (start_url, report_json, summary_json)
	VALUES (?, ?, ?)
	`

	_, err = rdb.db.ExecContext(ctx, query,
		report.StartURL,
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}

	return nil
}

// GetLatestScanReport retrieves the most recent scan report for a site.
// Returns nil without error when the site has never been scanned.
func (rdb *ResultDB) GetLatestScanReport(ctx context.Context, startURL string) (*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE start_url = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, query, startURL).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListScannedSites returns the start URLs of all stored scans.
func (rdb *ResultDB) ListScannedSites(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT start_url FROM scan_reports
	ORDER BY start_url
	`

	rows, err := rdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}

	return sites, rows.Err()
}

// GetScanHistory retrieves all scan reports for a site, newest first.
func (rdb *ResultDB) GetScanHistory(ctx context.Context, startURL string) ([]*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE start_url = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, startURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var reports []*model.ScanReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report model.ScanReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// ScanReportMetadata contains summary information about a stored scan.
// This is used for displaying scan history without loading full reports.
type ScanReportMetadata struct {
	// ID is the unique identifier of the scan report in the database.
	ID int64

	// StartURL is the scanned site's seed URL.
	StartURL string

	// Timestamp is when the scan was performed.
	Timestamp time.Time

	// Summary holds the aggregated scan summary, or nil if the stored
	// row predates summaries.
	Summary *model.Summary
}

// GetScanHistoryWithMetadata retrieves scan metadata for a site.
// This is more efficient than GetScanHistory when only the summary
// columns are needed.
func (rdb *ResultDB) GetScanHistoryWithMetadata(ctx context.Context, startURL string) ([]ScanReportMetadata, error) {
	query := `
	SELECT id, start_url, timestamp, summary_json
	FROM scan_reports
	WHERE start_url = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, startURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var results []ScanReportMetadata
	for rows.Next() {
		var meta ScanReportMetadata
		var timestamp string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.StartURL, &timestamp, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)

		if summaryJSON.Valid && summaryJSON.String != "" {
			var summary model.Summary
			if err := json.Unmarshal([]byte(summaryJSON.String), &summary); err == nil {
				meta.Summary = &summary
			}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetScanReportByID retrieves a scan report by its database ID.
// Returns nil without error when no row matches.
func (rdb *ResultDB) GetScanReportByID(ctx context.Context, id int64) (*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE id = ?
	`

	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
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
