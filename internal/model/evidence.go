package model

// InlineSnippetMaxLen is the maximum number of characters kept from an
// inline script's text content. The cap bounds memory use and regex cost
// on pathological pages; signature predicates only need the head of the
// script where framework bootstrapping and tracker initialization live.
const InlineSnippetMaxLen = 200

// Evidence is the normalized, page-scoped extraction of markup-derived
// signals used as input to classification. One Evidence is built per
// fetched page and discarded after classification.
//
// Invariant: all string fields default to the empty string, never to an
// absent value, so downstream regex matching never operates on a missing
// field. Slice fields may be empty but their element strings follow the
// same rule.
type Evidence struct {
	// PageURL is the resolved absolute URL of the page.
	// It is the base for resolving relative script and resource URLs.
	PageURL string `json:"page_url"`

	// RawHTML is the full serialized markup.
	// Signature predicates use it as a fallback substring-search surface.
	RawHTML string `json:"-"` // Excluded from JSON due to size

	// Title is the trimmed text content of the page's title element.
	Title string `json:"title"`

	// MetaGenerator is the content of a generator meta tag
	// (case-insensitive name match), or empty.
	MetaGenerator string `json:"meta_generator"`

	// ExternalScriptURLs holds the raw src attribute values of script
	// elements that declare an external source, in document order.
	ExternalScriptURLs []string `json:"external_script_urls,omitempty"`

	// InlineScriptSnippets holds the first InlineSnippetMaxLen characters
	// of the text content of script elements without a src, in document order.
	InlineScriptSnippets []string `json:"inline_script_snippets,omitempty"`

	// ResourceHintURLs holds the href values of preconnect, preload, and
	// dns-prefetch link elements, in document order.
	ResourceHintURLs []string `json:"resource_hint_urls,omitempty"`

	// MetaKeywords is the content of a keywords meta tag, or empty.
	MetaKeywords string `json:"meta_keywords"`
}

// HasInlineScripts returns true if at least one inline script snippet
// was extracted. Used to derive the inline-script provenance tag.
func (e *Evidence) HasInlineScripts() bool {
	return len(e.InlineScriptSnippets) > 0
}
