package classify

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/nao1215/stackscan/internal/model"
	"github.com/nao1215/stackscan/internal/signature"
)

func TestEngineClassifyEmptyEvidence(t *testing.T) {
	t.Parallel()

	engine := NewEngine(signature.Default(signature.WithLibraryDetection(true)))
	record := engine.Classify(&model.Evidence{PageURL: "https://example.com/"})

	if record.URL != "https://example.com/" {
		t.Errorf("URL = %q, want https://example.com/", record.URL)
	}
	if len(record.Technologies) != 0 {
		t.Errorf("Technologies = %v, want empty", record.Technologies)
	}
	if len(record.CDNs) != 0 {
		t.Errorf("CDNs = %v, want empty", record.CDNs)
	}
	if len(record.Analytics) != 0 {
		t.Errorf("Analytics = %v, want empty", record.Analytics)
	}
	if record.Server != "" {
		t.Errorf("Server = %q, want empty", record.Server)
	}
	if len(record.DetectedVia) != 0 {
		t.Errorf("DetectedVia = %v, want empty", record.DetectedVia)
	}
	if record.Timestamp == "" {
		t.Error("Timestamp is empty")
	}
}

func TestEngineClassifyIsIdempotent(t *testing.T) {
	t.Parallel()

	ev := &model.Evidence{
		PageURL: "https://example.com/",
		RawHTML: `<link href="/wp-content/x.css"><script>gtag('config','G-1');</script>`,
		ExternalScriptURLs: []string{
			"https://cdn.jsdelivr.net/npm/jquery/dist/jquery.min.js",
		},
		InlineScriptSnippets: []string{"gtag('config','G-1');"},
		MetaGenerator:        "WordPress 6.4",
	}

	engine := NewEngine(signature.Default(signature.WithLibraryDetection(true)))
	first := engine.Classify(ev)
	second := engine.Classify(ev)

	// Only the timestamp may differ between runs.
	second.Timestamp = first.Timestamp
	if !reflect.DeepEqual(first, second) {
		t.Errorf("records differ beyond timestamp:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

func TestEngineClassifyTechnologyOrder(t *testing.T) {
	t.Parallel()

	registry := signature.New()
	registry.Register(signature.Signature{
		Name:  "Alpha",
		Match: func(_, _ string) bool { return true },
	})
	registry.Register(signature.Signature{
		Name:  "Beta",
		Match: func(_, _ string) bool { return true },
	})
	registry.RegisterKeywordOverride(signature.KeywordOverride{Keyword: "gamma", Technology: "Gamma"})

	ev := &model.Evidence{
		PageURL:       "https://example.com/",
		RawHTML:       "<html></html>",
		MetaGenerator: "Hugo",
		MetaKeywords:  "gamma site",
	}

	record := NewEngine(registry).Classify(ev)

	// Registry-order signatures first, then the generator tag, then
	// keyword overrides.
	want := []string{"Alpha", "Beta", "Hugo", "Gamma"}
	if !reflect.DeepEqual(record.Technologies, want) {
		t.Errorf("Technologies = %v, want %v", record.Technologies, want)
	}
}

func TestEngineClassifyGeneratorDeduplication(t *testing.T) {
	t.Parallel()

	registry := signature.New()
	registry.Register(signature.Signature{
		Name:  "WordPress",
		Match: func(html, _ string) bool { return html != "" },
	})

	ev := &model.Evidence{
		PageURL:       "https://example.com/",
		RawHTML:       `<link href="/wp-content/x.css">`,
		MetaGenerator: "WordPress",
	}

	record := NewEngine(registry).Classify(ev)

	want := []string{"WordPress"}
	if !reflect.DeepEqual(record.Technologies, want) {
		t.Errorf("Technologies = %v, want %v", record.Technologies, want)
	}
	if record.Server != "WordPress" {
		t.Errorf("Server = %q, want WordPress", record.Server)
	}
}

func TestEngineClassifyGeneratorOnlyPage(t *testing.T) {
	t.Parallel()

	// A page whose only marker is the generator meta tag must still hit
	// the curated WordPress rule in addition to the versioned generator
	// string being appended.
	ev := &model.Evidence{
		PageURL:       "https://example.com/",
		RawHTML:       `<html><head><meta name="generator" content="WordPress 6.3"></head><body></body></html>`,
		MetaGenerator: "WordPress 6.3",
	}

	record := NewEngine(signature.Default()).Classify(ev)

	want := []string{"WordPress", "WordPress 6.3"}
	if !reflect.DeepEqual(record.Technologies, want) {
		t.Errorf("Technologies = %v, want %v", record.Technologies, want)
	}
	if record.Server != "WordPress 6.3" {
		t.Errorf("Server = %q, want WordPress 6.3", record.Server)
	}
}

func TestEngineClassifyScriptTruncation(t *testing.T) {
	t.Parallel()

	urls := make([]string, 0, 120)
	for i := range 120 {
		urls = append(urls, fmt.Sprintf("https://host%03d.example.com/app.js", i))
	}
	// The CDN-matching script sits past the truncation bound.
	urls[119] = "https://cdn.jsdelivr.net/npm/x.js"

	registry := signature.New()
	registry.RegisterCDNHost("cdn.jsdelivr.net")
	registry.Register(signature.Signature{
		Name: "TailMarker",
		Match: func(_, scripts string) bool {
			return strings.Contains(scripts, "https://cdn.jsdelivr.net/npm/x.js")
		},
	})

	ev := &model.Evidence{
		PageURL:            "https://example.com/",
		ExternalScriptURLs: urls,
	}

	record := NewEngine(registry).Classify(ev)

	if len(record.Scripts) != model.MaxScriptRefs {
		t.Errorf("len(Scripts) = %d, want %d", len(record.Scripts), model.MaxScriptRefs)
	}
	if record.Scripts[0].Host != "host000.example.com" {
		t.Errorf("Scripts[0].Host = %q, want host000.example.com", record.Scripts[0].Host)
	}
	// Truncation bounds the payload only; detection saw all 120 URLs.
	if len(record.CDNs) != 1 || record.CDNs[0] != "cdn.jsdelivr.net" {
		t.Errorf("CDNs = %v, want [cdn.jsdelivr.net]", record.CDNs)
	}
	if !record.HasTechnology("TailMarker") {
		t.Error("signature did not see evidence past the truncation bound")
	}
}

func TestEngineClassifyURLResolution(t *testing.T) {
	t.Parallel()

	t.Run("relative URLs resolve against the page", func(t *testing.T) {
		t.Parallel()

		ev := &model.Evidence{
			PageURL:            "https://example.com/shop/",
			ExternalScriptURLs: []string{"/assets/app.js", "vendor.js"},
		}

		record := NewEngine(signature.New()).Classify(ev)

		if len(record.Scripts) != 2 {
			t.Fatalf("len(Scripts) = %d, want 2", len(record.Scripts))
		}
		if record.Scripts[0].AbsoluteURL != "https://example.com/assets/app.js" {
			t.Errorf("Scripts[0].AbsoluteURL = %q", record.Scripts[0].AbsoluteURL)
		}
		if record.Scripts[1].AbsoluteURL != "https://example.com/shop/vendor.js" {
			t.Errorf("Scripts[1].AbsoluteURL = %q", record.Scripts[1].AbsoluteURL)
		}
		for i, ref := range record.Scripts {
			if ref.Host != "example.com" {
				t.Errorf("Scripts[%d].Host = %q, want example.com", i, ref.Host)
			}
		}
	})

	t.Run("malformed URL keeps original with empty host", func(t *testing.T) {
		t.Parallel()

		raw := "https://exa mple.com/x.js"
		ev := &model.Evidence{
			PageURL:            "https://example.com/",
			ExternalScriptURLs: []string{raw, "/ok.js"},
		}

		record := NewEngine(signature.New()).Classify(ev)

		if len(record.Scripts) != 2 {
			t.Fatalf("len(Scripts) = %d, want 2", len(record.Scripts))
		}
		if record.Scripts[0].AbsoluteURL != raw || record.Scripts[0].Host != "" {
			t.Errorf("Scripts[0] = %+v, want {%q, \"\"}", record.Scripts[0], raw)
		}
		if record.Scripts[1].Host != "example.com" {
			t.Errorf("classification aborted after malformed URL: %+v", record.Scripts[1])
		}
	})

	t.Run("resource hints contribute CDN evidence but not scripts", func(t *testing.T) {
		t.Parallel()

		registry := signature.New()
		registry.RegisterCDNHost("fonts.googleapis.com")

		ev := &model.Evidence{
			PageURL:          "https://example.com/",
			ResourceHintURLs: []string{"https://fonts.googleapis.com"},
		}

		record := NewEngine(registry).Classify(ev)

		if len(record.Scripts) != 0 {
			t.Errorf("Scripts = %v, want empty", record.Scripts)
		}
		if len(record.CDNs) != 1 || record.CDNs[0] != "fonts.googleapis.com" {
			t.Errorf("CDNs = %v, want [fonts.googleapis.com]", record.CDNs)
		}
	})
}

func TestEngineClassifyPanickingPredicate(t *testing.T) {
	t.Parallel()

	registry := signature.New()
	registry.Register(signature.Signature{
		Name:  "Broken",
		Match: func(_, _ string) bool { panic("bad rule") },
	})
	registry.Register(signature.Signature{
		Name:  "Healthy",
		Match: func(_, _ string) bool { return true },
	})

	record := NewEngine(registry).Classify(&model.Evidence{
		PageURL: "https://example.com/",
		RawHTML: "<html></html>",
	})

	if record.HasTechnology("Broken") {
		t.Error("panicking predicate counted as a match")
	}
	if !record.HasTechnology("Healthy") {
		t.Error("classification did not continue past the panicking predicate")
	}
}

func TestEngineClassifyTagManagerScenario(t *testing.T) {
	t.Parallel()

	ev := &model.Evidence{
		PageURL:            "https://example.com/",
		RawHTML:            `<script src="https://www.googletagmanager.com/gtag/js"></script>`,
		ExternalScriptURLs: []string{"https://www.googletagmanager.com/gtag/js"},
	}

	record := NewEngine(signature.Default()).Classify(ev)

	if !record.HasTechnology("Google Analytics") {
		t.Errorf("Technologies = %v, want Google Analytics", record.Technologies)
	}
	var analyticsMatched bool
	for _, a := range record.Analytics {
		if a == "Google Analytics" {
			analyticsMatched = true
		}
	}
	if !analyticsMatched {
		t.Errorf("Analytics = %v, want Google Analytics", record.Analytics)
	}

	var cdnMatched bool
	for _, h := range record.CDNs {
		if h == "www.googletagmanager.com" {
			cdnMatched = true
		}
	}
	if !cdnMatched {
		t.Errorf("CDNs = %v, want a googletagmanager.com host", record.CDNs)
	}

	wantTags := map[string]bool{
		model.ProvenanceCDN.String():       false,
		model.ProvenanceAnalytics.String(): false,
	}
	for _, tag := range record.DetectedVia {
		if _, ok := wantTags[tag]; ok {
			wantTags[tag] = true
		}
	}
	for tag, seen := range wantTags {
		if !seen {
			t.Errorf("DetectedVia = %v, missing %q", record.DetectedVia, tag)
		}
	}
}

func TestEngineClassifyProvenance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   *model.Evidence
		want []string
	}{
		{
			name: "no evidence no tags",
			ev:   &model.Evidence{PageURL: "https://example.com/"},
			want: []string{},
		},
		{
			name: "generator tag only",
			ev: &model.Evidence{
				PageURL:       "https://example.com/",
				MetaGenerator: "Hugo",
			},
			want: []string{model.ProvenanceGenerator.String()},
		},
		{
			name: "inline scripts only",
			ev: &model.Evidence{
				PageURL:              "https://example.com/",
				InlineScriptSnippets: []string{"console.log(1)"},
			},
			want: []string{model.ProvenanceInlineScript.String()},
		},
	}

	engine := NewEngine(signature.New())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			record := engine.Classify(tt.ev)
			if !reflect.DeepEqual(record.DetectedVia, tt.want) {
				t.Errorf("DetectedVia = %v, want %v", record.DetectedVia, tt.want)
			}
		})
	}
}
