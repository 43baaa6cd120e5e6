package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nao1215/stackscan/internal/database"
	"github.com/nao1215/stackscan/internal/model"
	"github.com/nao1215/stackscan/internal/signature"
)

// wordpressHTML is a minimal page carrying WordPress fingerprints.
const wordpressHTML = `<html>
<head>
<title>Test Blog</title>
<meta name="generator" content="WordPress 6.4" />
<script src="https://cdn.jsdelivr.net/npm/lib.js"></script>
</head>
<body><p>hello</p></body>
</html>`

// TestCrawlStep tests the crawl step against a local HTTP server.
func TestCrawlStep(t *testing.T) {
	t.Parallel()

	t.Run("stores crawled pages on the report", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<html><body><a href="/about">about</a></body></html>`)
		})
		mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<html><head><title>About</title></head><body></body></html>`)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		step := NewCrawlStep(
			WithCrawlMaxDepth(1),
			WithCrawlMaxPages(10),
			WithCrawlDelay(0),
		)

		report := model.NewScanReport(server.URL)
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if report.PagesCrawled() != 2 {
			t.Errorf("expected 2 pages crawled, got %d", report.PagesCrawled())
		}
		if len(report.Pages) != 2 {
			t.Errorf("expected 2 pages stored, got %d", len(report.Pages))
		}
	})

	t.Run("fails when the site is unreachable", func(t *testing.T) {
		t.Parallel()

		step := NewCrawlStep(WithCrawlDelay(0))

		report := model.NewScanReport("http://127.0.0.1:1") // nothing listens here
		if err := step.Do(context.Background(), report); err == nil {
			t.Error("expected error for unreachable site")
		}
	})

	t.Run("step name is crawl", func(t *testing.T) {
		t.Parallel()

		if got := NewCrawlStep().Name(); got != "crawl" {
			t.Errorf("expected step name crawl, got %q", got)
		}
	})
}

// TestClassifyStep tests the classification step over stored pages.
func TestClassifyStep(t *testing.T) {
	t.Parallel()

	t.Run("classifies HTML pages", func(t *testing.T) {
		t.Parallel()

		report := model.NewScanReport("https://example.com")
		report.AddPage(&model.Page{
			URL:         "https://example.com/",
			StatusCode:  200,
			ContentType: "text/html; charset=utf-8",
			Body:        []byte(wordpressHTML),
		})

		step := NewClassifyStep(signature.Default())
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(report.Records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(report.Records))
		}
		record := report.Records[0]
		if !record.HasTechnology("WordPress") {
			t.Errorf("expected WordPress detected, got %v", record.Technologies)
		}
		if record.MetaGenerator != "WordPress 6.4" {
			t.Errorf("expected meta generator preserved, got %q", record.MetaGenerator)
		}
	})

	t.Run("skips non-HTML pages", func(t *testing.T) {
		t.Parallel()

		report := model.NewScanReport("https://example.com")
		report.AddPage(&model.Page{
			URL:         "https://example.com/data.json",
			StatusCode:  200,
			ContentType: "application/json",
			Body:        []byte(`{"key": "value"}`),
		})

		step := NewClassifyStep(signature.Default())
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(report.Records) != 0 {
			t.Errorf("expected no records for non-HTML page, got %d", len(report.Records))
		}
	})

	t.Run("no pages is not an error", func(t *testing.T) {
		t.Parallel()

		report := model.NewScanReport("https://example.com")

		step := NewClassifyStep(signature.Default())
		if err := step.Do(context.Background(), report); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("step name is classify", func(t *testing.T) {
		t.Parallel()

		if got := NewClassifyStep(signature.Default()).Name(); got != "classify" {
			t.Errorf("expected step name classify, got %q", got)
		}
	})
}

// TestSummarizeStep tests summary generation.
func TestSummarizeStep(t *testing.T) {
	t.Parallel()

	report := model.NewScanReport("https://example.com")
	record := model.NewClassification("https://example.com/")
	record.AddTechnology("WordPress")
	record.Server = "WordPress"
	report.AddRecord(*record)

	step := NewSummarizeStep()
	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Summary == nil {
		t.Fatal("expected summary to be generated")
	}
	if report.Summary.TopTechnology() != "WordPress" {
		t.Errorf("expected top technology WordPress, got %q", report.Summary.TopTechnology())
	}
	if step.Name() != "summarize" {
		t.Errorf("expected step name summarize, got %q", step.Name())
	}
}

// TestPersistStep tests database persistence.
func TestPersistStep(t *testing.T) {
	t.Parallel()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})

	report := model.NewScanReport("https://example.com")
	record := model.NewClassification("https://example.com/")
	record.AddTechnology("WordPress")
	report.AddRecord(*record)
	report.Summary = model.NewSummary(report)

	step := NewPersistStep(db)
	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()

	stored, err := db.GetClassification(ctx, "https://example.com/", "https://example.com")
	if err != nil {
		t.Fatalf("failed to read classification: %v", err)
	}
	if stored == nil {
		t.Fatal("expected classification to be persisted")
	}
	if !stored.HasTechnology("WordPress") {
		t.Errorf("expected WordPress in stored record, got %v", stored.Technologies)
	}

	latest, err := db.GetLatestScanReport(ctx, "https://example.com")
	if err != nil {
		t.Fatalf("failed to read scan report: %v", err)
	}
	if latest == nil {
		t.Fatal("expected scan report to be persisted")
	}
	if latest.StartURL != "https://example.com" {
		t.Errorf("unexpected start URL: %q", latest.StartURL)
	}

	if step.Name() != "persist" {
		t.Errorf("expected step name persist, got %q", step.Name())
	}
}

// TestDefaultPipeline tests the default pipeline composition.
func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("contains crawl, classify, and summarize", func(t *testing.T) {
		t.Parallel()

		p := DefaultPipeline(signature.Default(), nil)

		names := p.StepNames()
		expected := []string{"crawl", "classify", "summarize"}
		if len(names) != len(expected) {
			t.Fatalf("expected %d steps, got %d (%v)", len(expected), len(names), names)
		}
		for i, name := range names {
			if name != expected[i] {
				t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})

	t.Run("appends persist step when database is configured", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() {
			if err := db.Close(); err != nil {
				t.Errorf("failed to close database: %v", err)
			}
		})

		p := DefaultPipeline(signature.Default(), nil, WithPipelineDatabase(db))

		names := p.StepNames()
		if len(names) != 4 || names[3] != "persist" {
			t.Errorf("expected persist as final step, got %v", names)
		}
	})

	t.Run("end-to-end scan of a local site", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, wordpressHTML)
		}))
		defer server.Close()

		p := DefaultPipeline(signature.Default(), nil,
			WithPipelineCrawlDepth(0),
			WithPipelineCrawlDelay(0),
		)

		report := model.NewScanReport(server.URL)
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if report.PagesCrawled() != 1 {
			t.Errorf("expected 1 page crawled, got %d", report.PagesCrawled())
		}
		if len(report.Records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(report.Records))
		}
		if !report.Records[0].HasTechnology("WordPress") {
			t.Errorf("expected WordPress detected, got %v", report.Records[0].Technologies)
		}
		if report.Summary == nil {
			t.Error("expected summary to be generated")
		}
	})
}
