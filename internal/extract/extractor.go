package extract

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/stackscan/internal/model"
)

// Extractor builds evidence bundles from raw page markup.
//
// Design decision: the extractor takes raw bytes rather than a
// pre-parsed document for two reasons:
//  1. The raw markup must be retained verbatim in the evidence bundle
//     as a substring-search surface; a re-serialized DOM would not be
//     byte-identical to what the server sent.
//  2. Parse failures must not lose the page: an unparseable body still
//     produces a usable bundle with the structured fields empty.
type Extractor struct {
	logger *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets the logger for non-fatal extraction conditions.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor creates an Extractor with the given options.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract builds one evidence bundle from the page's markup.
// pageURL is the effective request URL after redirects; it becomes the
// relative-resolution base for script and resource URLs downstream.
// Extract never fails: on parse errors it returns a bundle carrying
// only the raw markup.
func (e *Extractor) Extract(pageURL string, body []byte) *model.Evidence {
	ev := &model.Evidence{
		PageURL: pageURL,
		RawHTML: string(body),
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		e.logger.Warn("markup parse failed, structured evidence degraded",
			"url", pageURL,
			"error", err)
		return ev
	}

	ev.Title = strings.TrimSpace(doc.Find("title").First().Text())
	ev.MetaGenerator = metaContent(doc, "generator")
	ev.MetaKeywords = metaContent(doc, "keywords")
	ev.ExternalScriptURLs, ev.InlineScriptSnippets = scriptEvidence(doc)
	ev.ResourceHintURLs = resourceHints(doc)

	return ev
}

// metaContent returns the content attribute of the first meta tag whose
// name matches case-insensitively, or empty. Selector attribute matching
// is case-sensitive, so the name comparison is done in Go.
func metaContent(doc *goquery.Document, name string) string {
	var content string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		n, ok := s.Attr("name")
		if !ok || !strings.EqualFold(n, name) {
			return true
		}
		content, _ = s.Attr("content")
		return false
	})
	return strings.TrimSpace(content)
}

// scriptEvidence walks all script elements in document order, splitting
// them into external sources (raw src values, unresolved) and inline
// snippets capped at model.InlineSnippetMaxLen characters.
func scriptEvidence(doc *goquery.Document) (external, inline []string) {
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && strings.TrimSpace(src) != "" {
			external = append(external, strings.TrimSpace(src))
			return
		}

		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		if len(text) > model.InlineSnippetMaxLen {
			text = text[:model.InlineSnippetMaxLen]
		}
		inline = append(inline, text)
	})
	return external, inline
}

// resourceHints returns the href values of preconnect, preload, and
// dns-prefetch link elements in document order. These hints name hosts
// the page will contact, which makes them CDN evidence even when no
// script tag references the host directly.
func resourceHints(doc *goquery.Document) []string {
	var hints []string
	doc.Find("link").Each(func(_ int, s *goquery.Selection) {
		rel, ok := s.Attr("rel")
		if !ok {
			return
		}
		switch strings.ToLower(strings.TrimSpace(rel)) {
		case "preconnect", "preload", "dns-prefetch":
		default:
			return
		}

		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		hints = append(hints, strings.TrimSpace(href))
	})
	return hints
}
