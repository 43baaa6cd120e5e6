package model

import (
	"testing"
	"time"
)

// TestNewClassification tests record construction defaults.
func TestNewClassification(t *testing.T) {
	t.Parallel()

	t.Run("collections are empty but non-nil", func(t *testing.T) {
		t.Parallel()

		rec := NewClassification("https://example.com/")

		if rec.URL != "https://example.com/" {
			t.Errorf("got URL %q, expected 'https://example.com/'", rec.URL)
		}
		if rec.Technologies == nil || len(rec.Technologies) != 0 {
			t.Errorf("expected empty non-nil Technologies, got %v", rec.Technologies)
		}
		if rec.CDNs == nil || len(rec.CDNs) != 0 {
			t.Errorf("expected empty non-nil CDNs, got %v", rec.CDNs)
		}
		if rec.Scripts == nil || len(rec.Scripts) != 0 {
			t.Errorf("expected empty non-nil Scripts, got %v", rec.Scripts)
		}
	})

	t.Run("timestamp is RFC3339", func(t *testing.T) {
		t.Parallel()

		rec := NewClassification("https://example.com/")

		if _, err := time.Parse(time.RFC3339, rec.Timestamp); err != nil {
			t.Errorf("timestamp %q is not RFC3339: %v", rec.Timestamp, err)
		}
	})
}

// TestClassificationAddTechnology tests deduplicated ordered insertion.
func TestClassificationAddTechnology(t *testing.T) {
	t.Parallel()

	t.Run("preserves insertion order", func(t *testing.T) {
		t.Parallel()

		rec := NewClassification("https://example.com/")
		rec.AddTechnology("WordPress")
		rec.AddTechnology("jQuery")
		rec.AddTechnology("Bootstrap")

		expected := []string{"WordPress", "jQuery", "Bootstrap"}
		if len(rec.Technologies) != len(expected) {
			t.Fatalf("got %d technologies, expected %d", len(rec.Technologies), len(expected))
		}
		for i, name := range expected {
			if rec.Technologies[i] != name {
				t.Errorf("position %d: got %q, expected %q", i, rec.Technologies[i], name)
			}
		}
	})

	t.Run("duplicate names are kept once", func(t *testing.T) {
		t.Parallel()

		rec := NewClassification("https://example.com/")
		rec.AddTechnology("WordPress")
		rec.AddTechnology("WordPress")

		if len(rec.Technologies) != 1 {
			t.Errorf("got %d technologies, expected 1", len(rec.Technologies))
		}
	})

	t.Run("empty name is ignored", func(t *testing.T) {
		t.Parallel()

		rec := NewClassification("https://example.com/")
		rec.AddTechnology("")

		if len(rec.Technologies) != 0 {
			t.Errorf("got %d technologies, expected 0", len(rec.Technologies))
		}
	})
}

// TestClassificationAddCDN tests CDN host deduplication.
func TestClassificationAddCDN(t *testing.T) {
	t.Parallel()

	rec := NewClassification("https://example.com/")
	rec.AddCDN("cdn.jsdelivr.net")
	rec.AddCDN("cdnjs.cloudflare.com")
	rec.AddCDN("cdn.jsdelivr.net")
	rec.AddCDN("")

	if len(rec.CDNs) != 2 {
		t.Errorf("got %d CDN hosts, expected 2", len(rec.CDNs))
	}
}

// TestClassificationTruncateScripts tests the script list bound.
func TestClassificationTruncateScripts(t *testing.T) {
	t.Parallel()

	t.Run("does not truncate short list", func(t *testing.T) {
		t.Parallel()

		rec := NewClassification("https://example.com/")
		rec.Scripts = append(rec.Scripts, ScriptRef{AbsoluteURL: "https://example.com/app.js", Host: "example.com"})
		rec.TruncateScripts()

		if len(rec.Scripts) != 1 {
			t.Errorf("script list was modified")
		}
	})

	t.Run("truncates long list to MaxScriptRefs", func(t *testing.T) {
		t.Parallel()

		rec := NewClassification("https://example.com/")
		for i := 0; i < MaxScriptRefs+70; i++ {
			rec.Scripts = append(rec.Scripts, ScriptRef{AbsoluteURL: "https://example.com/a.js", Host: "example.com"})
		}
		rec.TruncateScripts()

		if len(rec.Scripts) != MaxScriptRefs {
			t.Errorf("got %d scripts, expected %d", len(rec.Scripts), MaxScriptRefs)
		}
	})
}

// TestProvenanceTag tests the provenance tag helpers.
func TestProvenanceTag(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected ProvenanceTag
		valid    bool
	}{
		{"cdn_hosts", ProvenanceCDN, true},
		{"analytics_rules", ProvenanceAnalytics, true},
		{"meta_generator", ProvenanceGenerator, true},
		{"inline_scripts", ProvenanceInlineScript, true},
		{"bogus", ProvenanceUnknown, false},
		{"", ProvenanceUnknown, false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()

			tag := ParseProvenanceTag(tc.input)
			if tag != tc.expected {
				t.Errorf("ParseProvenanceTag(%q) = %q, expected %q", tc.input, tag, tc.expected)
			}
			if tag.IsValid() != tc.valid {
				t.Errorf("IsValid() for %q = %v, expected %v", tc.input, tag.IsValid(), tc.valid)
			}
		})
	}

	t.Run("unknown tag stringifies to unknown", func(t *testing.T) {
		t.Parallel()

		if got := ProvenanceUnknown.String(); got != "unknown" {
			t.Errorf("got %q, expected 'unknown'", got)
		}
	})
}
