package model

// provenanceUnknownStr is the string representation for unknown provenance values.
const provenanceUnknownStr = "unknown"

// ProvenanceTag marks which evidence category contributed to a
// classification. Tags exist purely for explainability and debugging of
// why a record was classified a certain way; no decision logic reads them.
type ProvenanceTag string

// Provenance tag constants.
const (
	// ProvenanceUnknown represents an unknown provenance tag.
	ProvenanceUnknown ProvenanceTag = ""
	// ProvenanceCDN is contributed when at least one CDN host matched.
	ProvenanceCDN ProvenanceTag = "cdn_hosts"
	// ProvenanceAnalytics is contributed when at least one analytics rule matched.
	ProvenanceAnalytics ProvenanceTag = "analytics_rules"
	// ProvenanceGenerator is contributed when the page carried a generator meta tag.
	ProvenanceGenerator ProvenanceTag = "meta_generator"
	// ProvenanceInlineScript is contributed when the page had inline scripts.
	ProvenanceInlineScript ProvenanceTag = "inline_scripts"
)

// String returns the string representation of the ProvenanceTag.
func (t ProvenanceTag) String() string {
	if t == ProvenanceUnknown {
		return provenanceUnknownStr
	}
	return string(t)
}

// IsValid returns true if this is a known provenance tag.
func (t ProvenanceTag) IsValid() bool {
	switch t {
	case ProvenanceCDN, ProvenanceAnalytics, ProvenanceGenerator, ProvenanceInlineScript:
		return true
	default:
		return false
	}
}

// ParseProvenanceTag converts a string to ProvenanceTag.
func ParseProvenanceTag(s string) ProvenanceTag {
	switch s {
	case "cdn_hosts":
		return ProvenanceCDN
	case "analytics_rules":
		return ProvenanceAnalytics
	case "meta_generator":
		return ProvenanceGenerator
	case "inline_scripts":
		return ProvenanceInlineScript
	default:
		return ProvenanceUnknown
	}
}
