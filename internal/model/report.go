package model

import "time"

// ScanReport is the main scan result structure for one start URL.
// It accumulates crawled pages and their classification records.
//
// Design decision: We keep one report per start URL rather than one global
// report because batch scans run start URLs concurrently; per-site reports
// need no locking and serialize independently to the database.
type ScanReport struct {
	// StartURL is the URL the crawl began from.
	StartURL string `json:"start_url"`

	// DateScanned is the timestamp when the scan was performed.
	DateScanned time.Time `json:"date_scanned"`

	// Records contains one classification record per classified page,
	// in crawl order.
	Records []Classification `json:"records,omitempty"`

	// Crawls maps URLs to their HTTP status codes.
	// Used to track which pages were fetched, including non-HTML ones
	// that never reached the classifier.
	Crawls map[string]int `json:"crawls,omitempty"`

	// Pages contains the fetched pages awaiting classification.
	// Excluded from JSON due to size; only the derived Records persist.
	Pages []*Page `json:"-"`

	// Summary contains the aggregated technology counts for
	// human-readable output.
	Summary *Summary `json:"summary,omitempty"`

	// TimedOut is true if the scan was terminated due to timeout or
	// cancellation.
	TimedOut bool `json:"timed_out"`

	// PerformedSteps lists the pipeline steps that were actually executed.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error contains any error that occurred during scanning.
	// Only set if the scan failed or partially failed.
	Error error `json:"-"` // Excluded from JSON

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewScanReport creates a new report for the given start URL.
func NewScanReport(startURL string) *ScanReport {
	return &ScanReport{
		StartURL:    startURL,
		DateScanned: time.Now(),
		Records:     make([]Classification, 0),
		Crawls:      make(map[string]int),
	}
}

// AddPage records a fetched page and its status code.
func (r *ScanReport) AddPage(page *Page) {
	r.Crawls[page.URL] = page.StatusCode
	r.Pages = append(r.Pages, page)
}

// AddRecord appends a classification record to the report.
// Records for the same URL are kept once; a later record for an already
// classified URL replaces the earlier one so re-fetches don't duplicate.
func (r *ScanReport) AddRecord(record Classification) {
	for i, existing := range r.Records {
		if existing.URL == record.URL {
			r.Records[i] = record
			return
		}
	}
	r.Records = append(r.Records, record)
}

// PagesCrawled returns the number of pages fetched during the scan.
func (r *ScanReport) PagesCrawled() int {
	return len(r.Crawls)
}
