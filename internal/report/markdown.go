package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/stackscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	summary := report.Summary
	if summary == nil {
		summary = model.NewSummary(report)
	}

	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeTechnologies(md, summary)
	w.writeServers(md, summary)
	w.writeHosts(md, summary)
	w.writeRecords(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs only the summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeTechnologies(md, summary)
	w.writeServers(md, summary)
	w.writeHosts(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.Summary) {
	md.H1("Stackscan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + summary.StartURL + "`"},
			{"Scan Date", summary.DateScanned.Format("2006-01-02 15:04:05 MST")},
			{"Pages Crawled", strconv.Itoa(summary.PagesCrawled)},
			{"Pages Classified", strconv.Itoa(summary.PagesClassified)},
			{"Status", w.getStatusText(summary)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on scan state.
func (w *MarkdownWriter) getStatusText(summary *model.Summary) string {
	if summary.TimedOut {
		return "⚠️ Timed Out (partial results)"
	}
	if summary.Error != "" {
		return "❌ Error - " + summary.Error
	}
	return "✅ Complete"
}

// writeTechnologies writes the technology inventory with a distribution
// pie chart.
func (w *MarkdownWriter) writeTechnologies(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Detected Technologies")
	md.PlainText("")

	if len(summary.Technologies) == 0 {
		md.PlainText("No technologies detected.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.Technologies))
	for i, tech := range summary.Technologies {
		rows[i] = []string{tech.Name, strconv.Itoa(tech.Pages)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Technology", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, summary)
}

// writePieChart writes a mermaid pie chart of the technology distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Technology Distribution"),
		piechart.WithShowData(true),
	)

	for _, tech := range summary.Technologies {
		if tech.Pages > 0 {
			chart.LabelAndIntValue(tech.Name, uint64(tech.Pages))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeServers writes the derived platform labels section.
func (w *MarkdownWriter) writeServers(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Platform")
	md.PlainText("")

	if len(summary.Servers) == 0 {
		md.PlainText("No platform identified.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.Servers))
	for i, server := range summary.Servers {
		rows[i] = []string{server.Name, strconv.Itoa(server.Pages)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Platform", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeHosts writes the CDN hosts and analytics tools sections.
func (w *MarkdownWriter) writeHosts(md *markdown.Markdown, summary *model.Summary) {
	md.H2("CDN Hosts")
	md.PlainText("")
	if len(summary.CDNs) == 0 {
		md.PlainText("No CDN hosts detected.")
	} else {
		md.BulletList(summary.CDNs...)
	}
	md.PlainText("")

	md.H2("Analytics")
	md.PlainText("")
	if len(summary.Analytics) == 0 {
		md.PlainText("No analytics tools detected.")
	} else {
		md.BulletList(summary.Analytics...)
	}
	md.PlainText("")
}

// writeRecords writes the per-page classification table.
func (w *MarkdownWriter) writeRecords(md *markdown.Markdown, report *model.ScanReport) {
	if len(report.Records) == 0 {
		return
	}

	md.H2("Pages")
	md.PlainText("")

	rows := make([][]string, len(report.Records))
	for i, rec := range report.Records {
		technologies := strings.Join(rec.Technologies, ", ")
		if technologies == "" {
			technologies = "-"
		}
		server := rec.Server
		if server == "" {
			server = "-"
		}

		rows[i] = []string{
			truncateString(rec.URL, 60),
			truncateString(rec.Title, 40),
			truncateString(technologies, 60),
			truncateString(server, 30),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Title", "Technologies", "Platform"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [stackscan](https://github.com/nao1215/stackscan)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
