package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/stackscan/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no findings are shown.
	showEmpty bool

	// verbose enables per-page detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with per-page records.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
// It generates a summary from the report if not already present.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	summary := report.Summary
	if summary == nil {
		summary = model.NewSummary(report)
	}

	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeTechnologies(&sb, summary)
	w.writeServers(&sb, summary)
	w.writeHosts(&sb, summary)

	if w.verbose {
		w.writeRecords(&sb, report)
	}

	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteSummary outputs only the summary in human-readable format.
func (w *SimpleWriter) WriteSummary(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeTechnologies(&sb, summary)
	w.writeServers(&sb, summary)
	w.writeHosts(&sb, summary)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with scan information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         STACKSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Site:             %s\n", summary.StartURL))
	sb.WriteString(fmt.Sprintf("Scan Date:        %s\n", summary.DateScanned.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Pages Crawled:    %d\n", summary.PagesCrawled))
	sb.WriteString(fmt.Sprintf("Pages Classified: %d\n", summary.PagesClassified))

	if summary.TimedOut {
		sb.WriteString("Status:           TIMED OUT (partial results)\n")
	} else if summary.Error != "" {
		sb.WriteString(fmt.Sprintf("Status:           ERROR - %s\n", summary.Error))
	} else {
		sb.WriteString("Status:           Complete\n")
	}

	sb.WriteString("\n")
}

// writeTechnologies writes the detected technologies section.
func (w *SimpleWriter) writeTechnologies(sb *strings.Builder, summary *model.Summary) {
	if len(summary.Technologies) == 0 && !w.showEmpty {
		return
	}

	w.writeSectionHeader(sb, "DETECTED TECHNOLOGIES")

	if len(summary.Technologies) == 0 {
		sb.WriteString("  No technologies detected\n")
	} else {
		for _, tech := range summary.Technologies {
			sb.WriteString(fmt.Sprintf("  [+] %-30s %d page(s)\n", tech.Name, tech.Pages))
		}
	}
	sb.WriteString("\n")
}

// writeServers writes the derived server labels section.
func (w *SimpleWriter) writeServers(sb *strings.Builder, summary *model.Summary) {
	if len(summary.Servers) == 0 && !w.showEmpty {
		return
	}

	w.writeSectionHeader(sb, "PLATFORM / SERVER")

	if len(summary.Servers) == 0 {
		sb.WriteString("  No platform identified\n")
	} else {
		for _, server := range summary.Servers {
			sb.WriteString(fmt.Sprintf("  [+] %-30s %d page(s)\n", server.Name, server.Pages))
		}
	}
	sb.WriteString("\n")
}

// writeHosts writes the CDN and analytics sections.
func (w *SimpleWriter) writeHosts(sb *strings.Builder, summary *model.Summary) {
	if len(summary.CDNs) > 0 || w.showEmpty {
		w.writeSectionHeader(sb, "CDN HOSTS")
		if len(summary.CDNs) == 0 {
			sb.WriteString("  No CDN hosts detected\n")
		} else {
			for _, host := range summary.CDNs {
				sb.WriteString(fmt.Sprintf("  * %s\n", host))
			}
		}
		sb.WriteString("\n")
	}

	if len(summary.Analytics) > 0 || w.showEmpty {
		w.writeSectionHeader(sb, "ANALYTICS")
		if len(summary.Analytics) == 0 {
			sb.WriteString("  No analytics tools detected\n")
		} else {
			for _, tool := range summary.Analytics {
				sb.WriteString(fmt.Sprintf("  * %s\n", tool))
			}
		}
		sb.WriteString("\n")
	}
}

// writeRecords writes the per-page classification records.
func (w *SimpleWriter) writeRecords(sb *strings.Builder, report *model.ScanReport) {
	if len(report.Records) == 0 {
		return
	}

	w.writeSectionHeader(sb, "PER-PAGE RECORDS")

	for _, rec := range report.Records {
		sb.WriteString(fmt.Sprintf("  %s\n", rec.URL))
		if rec.Title != "" {
			sb.WriteString(fmt.Sprintf("    Title:        %s\n", rec.Title))
		}
		if len(rec.Technologies) > 0 {
			sb.WriteString(fmt.Sprintf("    Technologies: %s\n", strings.Join(rec.Technologies, ", ")))
		}
		if rec.Server != "" {
			sb.WriteString(fmt.Sprintf("    Server:       %s\n", rec.Server))
		}
		if len(rec.DetectedVia) > 0 {
			sb.WriteString(fmt.Sprintf("    Detected via: %s\n", strings.Join(rec.DetectedVia, ", ")))
		}
	}
	sb.WriteString("\n")
}

// writeSectionHeader writes a dashed section separator with a title.
func (w *SimpleWriter) writeSectionHeader(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by stackscan\n")
	sb.WriteString("https://github.com/nao1215/stackscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
