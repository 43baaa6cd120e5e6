package signature

import "strings"

// Signature is a named, pure predicate rule that flags evidence of a
// specific technology's presence.
//
// Match receives the full page markup and the combined script corpus
// (external script URLs concatenated with inline script snippets).
// It must be a pure function; a predicate that panics is treated by the
// classification engine as "no match", never as a fatal error.
type Signature struct {
	// Name is the display label of the detected technology,
	// unique within the registry.
	Name string

	// Match reports whether the technology's fingerprint is present.
	Match func(html, scripts string) bool
}

// AnalyticsRule detects an analytics tool by fixed substrings in either
// the page markup or the external script URLs. Matching is
// case-insensitive. This is deliberately not a full Signature: the rule
// set is small, fixed, and evaluated independently of the main pass.
type AnalyticsRule struct {
	// Name is the analytics tool's display label.
	Name string

	// HTMLSubstrings match against the raw page markup.
	HTMLSubstrings []string

	// ScriptSubstrings match against external script URLs.
	ScriptSubstrings []string
}

// Matches reports whether the rule matches the page markup or any of the
// external script URLs.
func (r AnalyticsRule) Matches(html string, scriptURLs []string) bool {
	lower := strings.ToLower(html)
	for _, s := range r.HTMLSubstrings {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	for _, u := range scriptURLs {
		lowerURL := strings.ToLower(u)
		for _, s := range r.ScriptSubstrings {
			if strings.Contains(lowerURL, strings.ToLower(s)) {
				return true
			}
		}
	}
	return false
}

// ServerHint maps an HTML substring to a platform label. Hints are
// evaluated in order as a fallback when no generator meta tag is present;
// the first matching hint wins.
type ServerHint struct {
	// Substring is matched case-insensitively against the raw markup.
	Substring string

	// Label is the platform label reported as the server.
	Label string
}

// KeywordOverride maps a meta-keywords substring to a technology name.
// This is a narrow override path for platforms that advertise themselves
// in keywords, not a general rule mechanism; it never short-circuits the
// main signature pass.
type KeywordOverride struct {
	// Keyword is matched case-insensitively against the keywords meta tag.
	Keyword string

	// Technology is the name appended to the technology list on match.
	Technology string
}

// Registry holds the ordered rule collections consulted during
// classification. Order matters only for output ordering: all matching
// signatures are included, and registry order fixes the presentation
// order of the technologies list. Multiple technologies may legitimately
// co-occur on one page.
type Registry struct {
	// signatures is the ordered, append-only signature list.
	signatures []Signature

	// cdnHosts is the ordered list of host substrings recognized as
	// CDN or tracking hosts. Membership is tested by substring
	// containment against resolved hostnames, not exact match.
	cdnHosts []string

	// analytics is the fixed analytics-tool rule set.
	analytics []AnalyticsRule

	// serverHints is the ordered server-label fallback list.
	serverHints []ServerHint

	// keywordOverrides is the meta-keywords override list.
	keywordOverrides []KeywordOverride
}

// New creates an empty Registry. Most callers want Default instead;
// New exists for tests and for embedders that curate their own rules.
func New() *Registry {
	return &Registry{
		signatures:       make([]Signature, 0),
		cdnHosts:         make([]string, 0),
		analytics:        make([]AnalyticsRule, 0),
		serverHints:      make([]ServerHint, 0),
		keywordOverrides: make([]KeywordOverride, 0),
	}
}

// Register appends a signature to the registry.
// Registration must complete before the registry is shared across
// goroutines; the registry holds no locks.
func (r *Registry) Register(sig Signature) {
	r.signatures = append(r.signatures, sig)
}

// RegisterCDNHost appends a CDN host substring.
func (r *Registry) RegisterCDNHost(hostSubstring string) {
	r.cdnHosts = append(r.cdnHosts, strings.ToLower(hostSubstring))
}

// RegisterAnalyticsRule appends an analytics rule.
func (r *Registry) RegisterAnalyticsRule(rule AnalyticsRule) {
	r.analytics = append(r.analytics, rule)
}

// RegisterServerHint appends a server-label fallback hint.
func (r *Registry) RegisterServerHint(hint ServerHint) {
	r.serverHints = append(r.serverHints, hint)
}

// RegisterKeywordOverride appends a meta-keywords override.
func (r *Registry) RegisterKeywordOverride(o KeywordOverride) {
	r.keywordOverrides = append(r.keywordOverrides, o)
}

// Signatures returns the ordered signature list.
// The returned slice is shared; callers must not mutate it.
func (r *Registry) Signatures() []Signature {
	return r.signatures
}

// IsCDNHost reports whether the host contains any registered CDN host
// substring.
//
// Known imprecision: substring containment can false-positive on
// unrelated domains that embed a CDN name (e.g. a host like
// "cdn.jsdelivr.net.evil.example" matches "cdn.jsdelivr.net").
// This mirrors the matching the rule list was curated against; callers
// that need a stricter policy should match against registered suffixes
// themselves.
func (r *Registry) IsCDNHost(host string) bool {
	lower := strings.ToLower(host)
	for _, sub := range r.cdnHosts {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// AnalyticsRules returns the fixed analytics rule set in rule-set order.
func (r *Registry) AnalyticsRules() []AnalyticsRule {
	return r.analytics
}

// ServerLabel returns the platform label of the first server hint whose
// substring occurs in the markup, or empty if none match.
func (r *Registry) ServerLabel(html string) string {
	lower := strings.ToLower(html)
	for _, hint := range r.serverHints {
		if strings.Contains(lower, strings.ToLower(hint.Substring)) {
			return hint.Label
		}
	}
	return ""
}

// KeywordTechnologies returns the technologies implied by the keywords
// meta tag content, in override-list order.
func (r *Registry) KeywordTechnologies(metaKeywords string) []string {
	if metaKeywords == "" {
		return nil
	}

	lower := strings.ToLower(metaKeywords)
	var matched []string
	for _, o := range r.keywordOverrides {
		if strings.Contains(lower, strings.ToLower(o.Keyword)) {
			matched = append(matched, o.Technology)
		}
	}
	return matched
}

// Len returns the number of registered signatures.
func (r *Registry) Len() int {
	return len(r.signatures)
}
