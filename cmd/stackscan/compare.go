package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/stackscan/internal/config"
	"github.com/nao1215/stackscan/internal/database"
	"github.com/nao1215/stackscan/internal/model"
	"github.com/spf13/cobra"
)

// Constants for stack change direction and summary messages.
const (
	stackDirectionExpanded  = "expanded"
	stackDirectionReduced   = "reduced"
	stackDirectionChanged   = "changed"
	stackDirectionUnchanged = "unchanged"
	noTechnologiesMessage   = "No technologies detected"
)

// NewCompareCmd creates the compare command.
// This command compares scan results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [url]",
		Short: "Compare scan results with historical data",
		Long: `Compare displays differences between the current and previous scan results.

This command retrieves historical scan data from the database and shows:
- Technologies that appeared since the last scan
- Technologies that are no longer detected
- Changes in CDN providers and analytics tools

The comparison requires at least two scans in the database for the specified
site. Use 'stackscan scan' to perform scans and save results.

Examples:
  # Compare latest two scans for a site
  stackscan compare example.com

  # List all scan history for a site
  stackscan compare --list example.com

  # Compare with a specific historical scan by ID
  stackscan compare --with-scan-id 5 example.com

  # Compare scans since a specific date
  stackscan compare --since "2026-01-01" example.com

  # Output comparison in JSON format
  stackscan compare --json example.com

  # List all scanned sites in the database
  stackscan compare --list-sites`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List scan history for the specified site")
	cmd.Flags().BoolP("list-sites", "L", false,
		"List all scanned sites in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare with a specific scan by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first scan after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	// Handle --list-sites flag first (requires database but no URL)
	listSites, err := cmd.Flags().GetBool("list-sites")
	if err != nil {
		return err
	}

	// Validate arguments before opening database (unless --list-sites)
	// This prevents database lock issues when validation fails
	var siteURL string
	if !listSites {
		// Require a site URL for other operations
		if len(args) == 0 {
			return errors.New("site URL is required (use --list-sites to see available sites)")
		}

		// Normalize the site URL
		siteURL, err = normalizeTarget(args[0])
		if err != nil {
			return fmt.Errorf("invalid site URL: %w", err)
		}
	}

	// Use XDG data directory for database
	dbDir := config.XDGDataDir()

	// Open database
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Handle --list-sites flag
	if listSites {
		return listScannedSites(ctx, db)
	}

	// Handle --list flag
	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listScanHistory(ctx, db, siteURL)
	}

	// Get output format flags
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	// Get comparison target flags
	withScanID, err := cmd.Flags().GetInt64("with-scan-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	// Perform comparison
	return runComparison(ctx, db, siteURL, withScanID, sinceDate, jsonOutput, markdownOutput)
}

// listScannedSites lists all sites that have scan records in the database.
func listScannedSites(ctx context.Context, db *database.ResultDB) error {
	sites, err := db.ListScannedSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}

	if len(sites) == 0 {
		fmt.Println("No scanned sites found in the database.")
		fmt.Println("\nUse 'stackscan scan <url>' to scan a site.")
		return nil
	}

	fmt.Printf("Scanned sites (%d):\n\n", len(sites))
	for _, site := range sites {
		fmt.Printf("  • %s\n", site)
	}
	fmt.Println("\nUse 'stackscan compare --list <url>' to see scan history for a site.")

	return nil
}

// listScanHistory lists all scan records for a specific site.
func listScanHistory(ctx context.Context, db *database.ResultDB, siteURL string) error {
	reports, err := db.GetScanHistoryWithMetadata(ctx, siteURL)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(reports) == 0 {
		fmt.Printf("No scan history found for %s\n", siteURL)
		fmt.Println("\nUse 'stackscan scan' to scan this site.")
		return nil
	}

	fmt.Printf("Scan history for %s (%d scans):\n\n", siteURL, len(reports))
	fmt.Printf("  %-6s  %-20s  %s\n", "ID", "Date", "Stack Summary")
	fmt.Println("  " + strings.Repeat("-", 60))

	for _, meta := range reports {
		fmt.Printf("  %-6d  %-20s  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			formatStackSummary(meta.Summary),
		)
	}

	fmt.Println("\nUse 'stackscan compare <url>' to compare the latest two scans.")
	fmt.Println("Use 'stackscan compare --with-scan-id <id> <url>' to compare with a specific scan.")

	return nil
}

// formatStackSummary formats the scan summary into a one-line string.
func formatStackSummary(summary *model.Summary) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	if top := summary.TopTechnology(); top != "" {
		parts = append(parts, top)
	}
	if n := len(summary.Technologies); n > 0 {
		parts = append(parts, fmt.Sprintf("tech:%d", n))
	}
	if n := len(summary.CDNs); n > 0 {
		parts = append(parts, fmt.Sprintf("cdn:%d", n))
	}
	if n := len(summary.Analytics); n > 0 {
		parts = append(parts, fmt.Sprintf("analytics:%d", n))
	}

	if len(parts) == 0 {
		return noTechnologiesMessage
	}
	return strings.Join(parts, " ")
}

// runComparison performs the actual comparison between scan reports.
func runComparison(ctx context.Context, db *database.ResultDB, siteURL string, withScanID int64, sinceDate string, jsonOutput, markdownOutput bool) error {
	// Get the scan history
	reports, err := db.GetScanHistory(ctx, siteURL)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(reports) == 0 {
		return fmt.Errorf("no scan history found for %s", siteURL)
	}

	if len(reports) < 2 && withScanID == 0 && sinceDate == "" {
		return fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(reports))
	}

	// Determine which reports to compare
	var currentReport, previousReport *model.ScanReport

	// Latest report is always the current one
	currentReport = reports[0]

	if withScanID > 0 {
		// Find the report with the specified ID
		previousReport, err = db.GetScanReportByID(ctx, withScanID)
		if err != nil {
			return fmt.Errorf("failed to get scan with ID %d: %w", withScanID, err)
		}
		if previousReport == nil {
			return fmt.Errorf("scan with ID %d not found", withScanID)
		}
		// Validate that the scan ID belongs to the same site
		if previousReport.StartURL != siteURL {
			return fmt.Errorf("scan ID %d belongs to %s, not %s", withScanID, previousReport.StartURL, siteURL)
		}
	} else if sinceDate != "" {
		// Parse the date and find the first (oldest) report at or after the specified date
		parsedDate, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Reports are sorted by timestamp DESC (newest first), so iterate in reverse
		// to find the first (oldest) report at or after the date
		for i := len(reports) - 1; i >= 0; i-- {
			r := reports[i]
			if r.DateScanned.After(parsedDate) || r.DateScanned.Equal(parsedDate) {
				previousReport = r
				break // Stop at the first (oldest) matching report
			}
		}
		if previousReport == nil {
			return fmt.Errorf("no scans found since %s", sinceDate)
		}
		// If only one scan matches and it's the current report, we can't compare
		if previousReport == currentReport {
			return fmt.Errorf("only one scan found since %s; at least 2 scans are required for comparison", sinceDate)
		}
	} else {
		// Default: compare with the previous scan
		previousReport = reports[1]
	}

	// Generate comparison result
	comparison := compareReports(previousReport, currentReport)

	// Output the result
	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	if markdownOutput {
		return outputComparisonMarkdown(comparison)
	}
	return outputComparisonText(comparison)
}

// ComparisonResult holds the result of comparing two scan reports.
type ComparisonResult struct {
	// Site is the scanned site's seed URL.
	Site string `json:"site"`

	// PreviousScan contains metadata about the previous scan.
	PreviousScan ScanMetadata `json:"previous_scan"`

	// CurrentScan contains metadata about the current scan.
	CurrentScan ScanMetadata `json:"current_scan"`

	// AddedTechnologies lists technologies detected only in the current scan.
	AddedTechnologies []string `json:"added_technologies,omitempty"`

	// RemovedTechnologies lists technologies detected only in the previous scan.
	RemovedTechnologies []string `json:"removed_technologies,omitempty"`

	// AddedCDNs lists CDN hosts seen only in the current scan.
	AddedCDNs []string `json:"added_cdns,omitempty"`

	// RemovedCDNs lists CDN hosts seen only in the previous scan.
	RemovedCDNs []string `json:"removed_cdns,omitempty"`

	// AddedAnalytics lists analytics tools seen only in the current scan.
	AddedAnalytics []string `json:"added_analytics,omitempty"`

	// RemovedAnalytics lists analytics tools seen only in the previous scan.
	RemovedAnalytics []string `json:"removed_analytics,omitempty"`

	// UnchangedCount is the number of technologies detected in both scans.
	UnchangedCount int `json:"unchanged_count"`

	// StackChange describes the overall change in the technology stack.
	StackChange StackChange `json:"stack_change"`
}

// ScanMetadata contains metadata about a scan for comparison display.
type ScanMetadata struct {
	// DateScanned is when the scan was performed.
	DateScanned time.Time `json:"date_scanned"`

	// PagesCrawled is the number of pages fetched during the scan.
	PagesCrawled int `json:"pages_crawled"`

	// TechnologyCount is the number of distinct technologies detected.
	TechnologyCount int `json:"technology_count"`

	// CDNCount is the number of distinct CDN hosts seen.
	CDNCount int `json:"cdn_count"`

	// AnalyticsCount is the number of distinct analytics tools seen.
	AnalyticsCount int `json:"analytics_count"`
}

// StackChange describes the change in the technology stack between scans.
type StackChange struct {
	// Direction is "expanded", "reduced", "changed", or "unchanged".
	Direction string `json:"direction"`

	// TechnologyDelta is the change in detected technology count.
	TechnologyDelta int `json:"technology_delta"`

	// CDNDelta is the change in CDN host count.
	CDNDelta int `json:"cdn_delta"`

	// AnalyticsDelta is the change in analytics tool count.
	AnalyticsDelta int `json:"analytics_delta"`
}

// compareReports compares two scan reports and generates a comparison result.
func compareReports(previous, current *model.ScanReport) *ComparisonResult {
	result := &ComparisonResult{
		Site: current.StartURL,
	}

	result.PreviousScan = scanMetadata(previous)
	result.CurrentScan = scanMetadata(current)

	// Diff each category of the summary
	var prevSummary, currSummary model.Summary
	if previous.Summary != nil {
		prevSummary = *previous.Summary
	}
	if current.Summary != nil {
		currSummary = *current.Summary
	}

	result.AddedTechnologies, result.RemovedTechnologies = diffNames(
		techNames(prevSummary.Technologies), techNames(currSummary.Technologies))
	result.AddedCDNs, result.RemovedCDNs = diffNames(prevSummary.CDNs, currSummary.CDNs)
	result.AddedAnalytics, result.RemovedAnalytics = diffNames(prevSummary.Analytics, currSummary.Analytics)

	result.UnchangedCount = len(techNames(currSummary.Technologies)) - len(result.AddedTechnologies)

	// Calculate overall stack change
	result.StackChange = calculateStackChange(result)

	return result
}

// scanMetadata extracts display metadata from a scan report.
func scanMetadata(report *model.ScanReport) ScanMetadata {
	meta := ScanMetadata{DateScanned: report.DateScanned}
	if report.Summary != nil {
		meta.PagesCrawled = report.Summary.PagesCrawled
		meta.TechnologyCount = len(report.Summary.Technologies)
		meta.CDNCount = len(report.Summary.CDNs)
		meta.AnalyticsCount = len(report.Summary.Analytics)
	}
	return meta
}

// techNames extracts the technology names from a count list.
func techNames(counts []model.TechCount) []string {
	names := make([]string, 0, len(counts))
	for _, c := range counts {
		names = append(names, c.Name)
	}
	return names
}

// diffNames returns the names present only in current (added) and the
// names present only in previous (removed). Input order is preserved.
func diffNames(previous, current []string) (added, removed []string) {
	prevSet := make(map[string]bool, len(previous))
	for _, name := range previous {
		prevSet[name] = true
	}
	currSet := make(map[string]bool, len(current))
	for _, name := range current {
		currSet[name] = true
	}

	for _, name := range current {
		if !prevSet[name] {
			added = append(added, name)
		}
	}
	for _, name := range previous {
		if !currSet[name] {
			removed = append(removed, name)
		}
	}
	return added, removed
}

// calculateStackChange calculates the overall change in the stack.
func calculateStackChange(result *ComparisonResult) StackChange {
	change := StackChange{
		TechnologyDelta: result.CurrentScan.TechnologyCount - result.PreviousScan.TechnologyCount,
		CDNDelta:        result.CurrentScan.CDNCount - result.PreviousScan.CDNCount,
		AnalyticsDelta:  result.CurrentScan.AnalyticsCount - result.PreviousScan.AnalyticsCount,
	}

	added := len(result.AddedTechnologies) + len(result.AddedCDNs) + len(result.AddedAnalytics)
	removed := len(result.RemovedTechnologies) + len(result.RemovedCDNs) + len(result.RemovedAnalytics)

	switch {
	case added == 0 && removed == 0:
		change.Direction = stackDirectionUnchanged
	case removed == 0:
		change.Direction = stackDirectionExpanded
	case added == 0:
		change.Direction = stackDirectionReduced
	default:
		change.Direction = stackDirectionChanged
	}

	return change
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(result *ComparisonResult) error {
	fmt.Printf("# Scan Comparison: %s\n\n", result.Site)

	// Stack change summary
	fmt.Println("## Summary")
	fmt.Printf("\n**Stack Status:** %s\n\n", formatStackDirection(result.StackChange.Direction))

	// Scan metadata table
	fmt.Println("| Metric | Previous | Current | Change |")
	fmt.Println("|--------|----------|---------|--------|")
	fmt.Printf("| Date | %s | %s | - |\n",
		result.PreviousScan.DateScanned.Format("2006-01-02 15:04"),
		result.CurrentScan.DateScanned.Format("2006-01-02 15:04"))
	fmt.Printf("| Pages crawled | %d | %d | %s |\n",
		result.PreviousScan.PagesCrawled,
		result.CurrentScan.PagesCrawled,
		formatDelta(result.CurrentScan.PagesCrawled-result.PreviousScan.PagesCrawled))
	fmt.Printf("| Technologies | %d | %d | %s |\n",
		result.PreviousScan.TechnologyCount,
		result.CurrentScan.TechnologyCount,
		formatDelta(result.StackChange.TechnologyDelta))
	fmt.Printf("| CDN hosts | %d | %d | %s |\n",
		result.PreviousScan.CDNCount,
		result.CurrentScan.CDNCount,
		formatDelta(result.StackChange.CDNDelta))
	fmt.Printf("| Analytics | %d | %d | %s |\n",
		result.PreviousScan.AnalyticsCount,
		result.CurrentScan.AnalyticsCount,
		formatDelta(result.StackChange.AnalyticsDelta))

	// Added items
	writeMarkdownSection("Added Technologies", result.AddedTechnologies, false)
	writeMarkdownSection("Added CDN Hosts", result.AddedCDNs, false)
	writeMarkdownSection("Added Analytics", result.AddedAnalytics, false)

	// Removed items
	writeMarkdownSection("Removed Technologies", result.RemovedTechnologies, true)
	writeMarkdownSection("Removed CDN Hosts", result.RemovedCDNs, true)
	writeMarkdownSection("Removed Analytics", result.RemovedAnalytics, true)

	// Unchanged count
	if result.UnchangedCount > 0 {
		fmt.Printf("\n---\n\n*%d technologies unchanged*\n", result.UnchangedCount)
	}

	return nil
}

// writeMarkdownSection writes a markdown list section for added or
// removed items. Removed items are rendered with strikethrough.
func writeMarkdownSection(title string, items []string, strikethrough bool) {
	if len(items) == 0 {
		return
	}

	fmt.Printf("\n## %s (%d)\n\n", title, len(items))
	for _, item := range items {
		if strikethrough {
			fmt.Printf("- ~~%s~~\n", item)
		} else {
			fmt.Printf("- **%s**\n", item)
		}
	}
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Scan Comparison: %s\n", result.Site)
	fmt.Println(strings.Repeat("=", 60))

	// Stack change summary
	fmt.Printf("\nStack Status: %s\n", formatStackDirection(result.StackChange.Direction))

	// Scan dates
	fmt.Printf("\nPrevious scan: %s\n", result.PreviousScan.DateScanned.Format("2006-01-02 15:04:05"))
	fmt.Printf("Current scan:  %s\n", result.CurrentScan.DateScanned.Format("2006-01-02 15:04:05"))

	// Summary table
	fmt.Println("\nStack Summary:")
	fmt.Printf("  %-14s  %-10s  %-10s  %-10s\n", "Category", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 49))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Pages crawled",
		result.PreviousScan.PagesCrawled, result.CurrentScan.PagesCrawled,
		formatDelta(result.CurrentScan.PagesCrawled-result.PreviousScan.PagesCrawled))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Technologies",
		result.PreviousScan.TechnologyCount, result.CurrentScan.TechnologyCount,
		formatDelta(result.StackChange.TechnologyDelta))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "CDN hosts",
		result.PreviousScan.CDNCount, result.CurrentScan.CDNCount,
		formatDelta(result.StackChange.CDNDelta))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Analytics",
		result.PreviousScan.AnalyticsCount, result.CurrentScan.AnalyticsCount,
		formatDelta(result.StackChange.AnalyticsDelta))

	// Added items
	writeTextSection("Added", "+", result.AddedTechnologies, result.AddedCDNs, result.AddedAnalytics)

	// Removed items
	writeTextSection("Removed", "-", result.RemovedTechnologies, result.RemovedCDNs, result.RemovedAnalytics)

	// Unchanged count
	if result.UnchangedCount > 0 {
		fmt.Printf("\nUnchanged: %d technologies\n", result.UnchangedCount)
	}

	return nil
}

// writeTextSection writes a text list section for added or removed items
// across the technology, CDN, and analytics categories.
func writeTextSection(title, sign string, technologies, cdns, analytics []string) {
	total := len(technologies) + len(cdns) + len(analytics)
	if total == 0 {
		return
	}

	fmt.Printf("\n%s (%d):\n", title, total)
	for _, name := range technologies {
		fmt.Printf("  [%s] [Technology] %s\n", sign, name)
	}
	for _, name := range cdns {
		fmt.Printf("  [%s] [CDN] %s\n", sign, name)
	}
	for _, name := range analytics {
		fmt.Printf("  [%s] [Analytics] %s\n", sign, name)
	}
}

// formatStackDirection formats the stack change direction for display.
func formatStackDirection(direction string) string {
	switch direction {
	case stackDirectionExpanded:
		return "EXPANDED (new technologies detected)"
	case stackDirectionReduced:
		return "REDUCED (technologies no longer detected)"
	case stackDirectionChanged:
		return "CHANGED (technologies added and removed)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
