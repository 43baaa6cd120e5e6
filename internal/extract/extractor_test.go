package extract

import (
	"strings"
	"testing"

	"github.com/nao1215/stackscan/internal/model"
)

func TestExtractorExtract(t *testing.T) {
	t.Parallel()

	t.Run("full page yields all fields", func(t *testing.T) {
		t.Parallel()

		body := []byte(`<!DOCTYPE html>
<html>
<head>
  <title>  Example Store  </title>
  <meta name="GENERATOR" content="WordPress 6.4">
  <meta name="Keywords" content="shop, wordpress, woocommerce">
  <link rel="preconnect" href="https://fonts.googleapis.com">
  <link rel="dns-prefetch" href="//cdn.example.com">
  <link rel="stylesheet" href="/style.css">
  <script src="https://cdn.jsdelivr.net/npm/vue@3/dist/vue.js"></script>
  <script src="/assets/app.js"></script>
  <script>window.dataLayer = window.dataLayer || [];</script>
</head>
<body><p>hello</p></body>
</html>`)

		ev := NewExtractor().Extract("https://example.com/", body)

		if ev.PageURL != "https://example.com/" {
			t.Errorf("PageURL = %q, want https://example.com/", ev.PageURL)
		}
		if ev.Title != "Example Store" {
			t.Errorf("Title = %q, want %q", ev.Title, "Example Store")
		}
		if ev.MetaGenerator != "WordPress 6.4" {
			t.Errorf("MetaGenerator = %q, want %q", ev.MetaGenerator, "WordPress 6.4")
		}
		if ev.MetaKeywords != "shop, wordpress, woocommerce" {
			t.Errorf("MetaKeywords = %q", ev.MetaKeywords)
		}

		wantScripts := []string{
			"https://cdn.jsdelivr.net/npm/vue@3/dist/vue.js",
			"/assets/app.js",
		}
		if len(ev.ExternalScriptURLs) != len(wantScripts) {
			t.Fatalf("ExternalScriptURLs = %v, want %v", ev.ExternalScriptURLs, wantScripts)
		}
		for i, want := range wantScripts {
			if ev.ExternalScriptURLs[i] != want {
				t.Errorf("ExternalScriptURLs[%d] = %q, want %q", i, ev.ExternalScriptURLs[i], want)
			}
		}

		if len(ev.InlineScriptSnippets) != 1 {
			t.Fatalf("InlineScriptSnippets = %v, want one entry", ev.InlineScriptSnippets)
		}
		if !strings.Contains(ev.InlineScriptSnippets[0], "dataLayer") {
			t.Errorf("InlineScriptSnippets[0] = %q, want dataLayer snippet", ev.InlineScriptSnippets[0])
		}

		wantHints := []string{"https://fonts.googleapis.com", "//cdn.example.com"}
		if len(ev.ResourceHintURLs) != len(wantHints) {
			t.Fatalf("ResourceHintURLs = %v, want %v", ev.ResourceHintURLs, wantHints)
		}
		for i, want := range wantHints {
			if ev.ResourceHintURLs[i] != want {
				t.Errorf("ResourceHintURLs[%d] = %q, want %q", i, ev.ResourceHintURLs[i], want)
			}
		}

		if !strings.Contains(ev.RawHTML, "<title>") {
			t.Error("RawHTML does not carry the original markup")
		}
	})

	t.Run("missing elements degrade to empty defaults", func(t *testing.T) {
		t.Parallel()

		ev := NewExtractor().Extract("https://example.com/", []byte("<html><body>plain</body></html>"))

		if ev.Title != "" || ev.MetaGenerator != "" || ev.MetaKeywords != "" {
			t.Errorf("string fields = (%q, %q, %q), want all empty",
				ev.Title, ev.MetaGenerator, ev.MetaKeywords)
		}
		if len(ev.ExternalScriptURLs) != 0 || len(ev.InlineScriptSnippets) != 0 || len(ev.ResourceHintURLs) != 0 {
			t.Error("slice fields not empty for element-free page")
		}
	})

	t.Run("inline snippets are capped", func(t *testing.T) {
		t.Parallel()

		long := strings.Repeat("a", model.InlineSnippetMaxLen*3)
		body := []byte("<html><head><script>" + long + "</script></head></html>")

		ev := NewExtractor().Extract("https://example.com/", body)

		if len(ev.InlineScriptSnippets) != 1 {
			t.Fatalf("InlineScriptSnippets = %v, want one entry", ev.InlineScriptSnippets)
		}
		if got := len(ev.InlineScriptSnippets[0]); got != model.InlineSnippetMaxLen {
			t.Errorf("snippet length = %d, want %d", got, model.InlineSnippetMaxLen)
		}
	})

	t.Run("empty and whitespace scripts are skipped", func(t *testing.T) {
		t.Parallel()

		body := []byte(`<html><head>
<script src="   "></script>
<script>   </script>
<script src="/real.js"></script>
</head></html>`)

		ev := NewExtractor().Extract("https://example.com/", body)

		if len(ev.ExternalScriptURLs) != 1 || ev.ExternalScriptURLs[0] != "/real.js" {
			t.Errorf("ExternalScriptURLs = %v, want [/real.js]", ev.ExternalScriptURLs)
		}
		if len(ev.InlineScriptSnippets) != 0 {
			t.Errorf("InlineScriptSnippets = %v, want empty", ev.InlineScriptSnippets)
		}
	})

	t.Run("non-hint link elements are ignored", func(t *testing.T) {
		t.Parallel()

		body := []byte(`<html><head>
<link rel="stylesheet" href="/style.css">
<link rel="icon" href="/favicon.ico">
<link rel="PRELOAD" href="/font.woff2">
</head></html>`)

		ev := NewExtractor().Extract("https://example.com/", body)

		if len(ev.ResourceHintURLs) != 1 || ev.ResourceHintURLs[0] != "/font.woff2" {
			t.Errorf("ResourceHintURLs = %v, want [/font.woff2]", ev.ResourceHintURLs)
		}
	})

	t.Run("raw markup survives for non-HTML body", func(t *testing.T) {
		t.Parallel()

		body := []byte("just some text with wp-content inside")
		ev := NewExtractor().Extract("https://example.com/", body)

		if ev.RawHTML != string(body) {
			t.Errorf("RawHTML = %q, want original body", ev.RawHTML)
		}
	})
}
