package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// Page represents a fetched web page before classification.
// It holds the raw response body and the small amount of transport
// metadata the classifier and the persistence layer care about.
type Page struct {
	// URL is the final resolved URL of the page, after redirects.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type of the response.
	// Extracted from the Content-Type header for convenience.
	ContentType string `json:"content_type"`

	// Body contains the raw response body bytes, limited to MaxPageSize.
	Body []byte `json:"-"` // Excluded from JSON to reduce report size

	// Hash is the SHA-256 hash of the body.
	// Used for deduplication and change detection in the result database.
	Hash string `json:"hash,omitempty"`
}

// MaxPageSize is the maximum size of raw page content to keep.
// Larger pages are truncated to this size to prevent memory exhaustion.
const MaxPageSize = 5 * 1024 * 1024 // 5 MB

// ComputeHash calculates and sets the SHA-256 hash of the page body.
// This should be called after setting the Body field.
func (p *Page) ComputeHash() {
	if len(p.Body) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256(p.Body)
	p.Hash = hex.EncodeToString(hash[:])
}

// IsHTML returns true if the page content type indicates HTML.
func (p *Page) IsHTML() bool {
	return p.ContentType == "text/html" ||
		p.ContentType == "application/xhtml+xml" ||
		// Handle content types with charset suffix
		len(p.ContentType) > 9 && p.ContentType[:9] == "text/html"
}

// TruncateBody ensures the body doesn't exceed MaxPageSize.
// Call this after setting Body to enforce the size limit.
func (p *Page) TruncateBody() {
	if len(p.Body) > MaxPageSize {
		p.Body = p.Body[:MaxPageSize]
	}
}
