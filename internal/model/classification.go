package model

import "time"

// MaxScriptRefs is the maximum number of resolved script references kept
// in a Classification. The truncation bounds record payload size; it never
// affects Technologies, CDNs, or Analytics, which are computed from the
// full untruncated evidence.
const MaxScriptRefs = 50

// ScriptRef is one resolved external script reference.
type ScriptRef struct {
	// AbsoluteURL is the script URL resolved against the page URL.
	// If resolution failed, it is the original raw attribute value.
	AbsoluteURL string `json:"absolute_url"`

	// Host is the hostname of the resolved URL, or empty if the URL
	// could not be parsed.
	Host string `json:"host"`
}

// Classification is the per-page technology inventory, the unit of output.
// One Evidence produces exactly one Classification; records are handed to
// the sink immediately after construction and not retained in memory.
//
// Design decision: We use a single flat struct rather than nesting
// per-category sub-structs because the record is the wire format consumed
// by the sink and report writers; a flat shape keeps JSON output stable
// and database column mapping trivial.
type Classification struct {
	// URL is the resolved absolute URL of the classified page.
	URL string `json:"url"`

	// Title is the page title, or empty.
	Title string `json:"title"`

	// Technologies lists matched signature names in registry order,
	// deduplicated, followed by any novel generator-tag and keyword
	// additions.
	Technologies []string `json:"technologies"`

	// CDNs lists hostnames that matched a known CDN or analytics host
	// substring. Deduplicated, unordered.
	CDNs []string `json:"cdns"`

	// Analytics lists analytics tool names in rule-set order, deduplicated.
	Analytics []string `json:"analytics"`

	// Scripts holds up to MaxScriptRefs resolved script references in
	// document order.
	Scripts []ScriptRef `json:"scripts"`

	// MetaGenerator is the verbatim content of the generator meta tag.
	MetaGenerator string `json:"meta_generator"`

	// Server is a best-effort single platform label derived from the
	// generator tag, or from an ordered HTML-substring fallback.
	Server string `json:"server"`

	// DetectedVia lists provenance tags describing which evidence
	// categories contributed to this record.
	DetectedVia []string `json:"detected_via"`

	// Timestamp is the classification time in ISO-8601 (RFC 3339) format.
	Timestamp string `json:"timestamp"`
}

// NewClassification creates a Classification for the given page URL with
// all collection fields initialized to empty, non-nil values and the
// timestamp set to now.
//
// Design decision: Collections start non-nil so the record always
// serializes as [] rather than null, which keeps downstream consumers
// from special-casing missing fields.
func NewClassification(pageURL string) *Classification {
	return &Classification{
		URL:          pageURL,
		Technologies: make([]string, 0),
		CDNs:         make([]string, 0),
		Analytics:    make([]string, 0),
		Scripts:      make([]ScriptRef, 0),
		DetectedVia:  make([]string, 0),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}

// HasTechnology returns true if the named technology is already present.
func (c *Classification) HasTechnology(name string) bool {
	for _, t := range c.Technologies {
		if t == name {
			return true
		}
	}
	return false
}

// AddTechnology appends a technology name if not already present,
// preserving insertion order.
func (c *Classification) AddTechnology(name string) {
	if name == "" || c.HasTechnology(name) {
		return
	}
	c.Technologies = append(c.Technologies, name)
}

// AddCDN appends a CDN hostname if not already present.
func (c *Classification) AddCDN(host string) {
	if host == "" {
		return
	}
	for _, h := range c.CDNs {
		if h == host {
			return
		}
	}
	c.CDNs = append(c.CDNs, host)
}

// AddAnalytics appends an analytics tool name if not already present,
// preserving rule-set order.
func (c *Classification) AddAnalytics(name string) {
	if name == "" {
		return
	}
	for _, a := range c.Analytics {
		if a == name {
			return
		}
	}
	c.Analytics = append(c.Analytics, name)
}

// TruncateScripts enforces the MaxScriptRefs bound on the script list.
func (c *Classification) TruncateScripts() {
	if len(c.Scripts) > MaxScriptRefs {
		c.Scripts = c.Scripts[:MaxScriptRefs]
	}
}
