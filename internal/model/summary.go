package model

import (
	"sort"
	"time"
)

// Summary is a summarized, human-readable view of a scan.
// It aggregates per-page classification records into site-level counts.
//
// Design decision: We create a separate summary rather than just printing
// parts of ScanReport because:
// 1. It provides a consistent, curated view of the most common findings
// 2. It can be serialized to JSON for tools that want structured but simple output
// 3. It separates presentation concerns from data collection
type Summary struct {
	// StartURL is the URL the crawl began from.
	StartURL string `json:"start_url"`

	// DateScanned is when the scan was performed.
	DateScanned time.Time `json:"date_scanned"`

	// PagesCrawled is the number of pages fetched.
	PagesCrawled int `json:"pages_crawled"`

	// PagesClassified is the number of pages that produced a record.
	PagesClassified int `json:"pages_classified"`

	// Technologies lists detected technologies with page counts,
	// most common first.
	Technologies []TechCount `json:"technologies,omitempty"`

	// CDNs lists all distinct CDN hosts seen across the scan.
	CDNs []string `json:"cdns,omitempty"`

	// Analytics lists all distinct analytics tools seen across the scan.
	Analytics []string `json:"analytics,omitempty"`

	// Servers maps derived server labels to page counts.
	Servers []TechCount `json:"servers,omitempty"`

	// TimedOut indicates if the scan was terminated early.
	TimedOut bool `json:"timed_out"`

	// Error contains any error message if the scan failed.
	Error string `json:"error,omitempty"`
}

// TechCount pairs a technology label with the number of pages it was
// detected on.
type TechCount struct {
	// Name is the technology or server label.
	Name string `json:"name"`

	// Pages is the number of pages the label was detected on.
	Pages int `json:"pages"`
}

// NewSummary creates a Summary by aggregating a report's records.
func NewSummary(report *ScanReport) *Summary {
	s := &Summary{
		StartURL:        report.StartURL,
		DateScanned:     report.DateScanned,
		PagesCrawled:    report.PagesCrawled(),
		PagesClassified: len(report.Records),
		TimedOut:        report.TimedOut,
	}

	if report.Error != nil {
		s.Error = report.Error.Error()
	}

	techCounts := make(map[string]int)
	serverCounts := make(map[string]int)
	cdnSeen := make(map[string]bool)
	analyticsSeen := make(map[string]bool)

	for _, rec := range report.Records {
		for _, t := range rec.Technologies {
			techCounts[t]++
		}
		if rec.Server != "" {
			serverCounts[rec.Server]++
		}
		for _, h := range rec.CDNs {
			if !cdnSeen[h] {
				cdnSeen[h] = true
				s.CDNs = append(s.CDNs, h)
			}
		}
		for _, a := range rec.Analytics {
			if !analyticsSeen[a] {
				analyticsSeen[a] = true
				s.Analytics = append(s.Analytics, a)
			}
		}
	}

	s.Technologies = sortedCounts(techCounts)
	s.Servers = sortedCounts(serverCounts)
	sort.Strings(s.CDNs)

	return s
}

// sortedCounts converts a count map into a slice ordered by descending
// count, then name, for stable output.
func sortedCounts(counts map[string]int) []TechCount {
	if len(counts) == 0 {
		return nil
	}

	result := make([]TechCount, 0, len(counts))
	for name, pages := range counts {
		result = append(result, TechCount{Name: name, Pages: pages})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Pages != result[j].Pages {
			return result[i].Pages > result[j].Pages
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// TopTechnology returns the most commonly detected technology name,
// or empty if nothing was detected.
func (s *Summary) TopTechnology() string {
	if len(s.Technologies) == 0 {
		return ""
	}
	return s.Technologies[0].Name
}
