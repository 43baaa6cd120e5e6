// Package signature holds the detection rule sets used to classify pages.
//
// A Registry bundles four independent rule collections:
//   - Signatures: named predicates over page markup and script text
//   - CDN host substrings: hostnames recognized as CDN or tracking hosts
//   - Analytics rules: fixed substring rules for analytics tool detection
//   - Server hints and keyword overrides: narrow fallback mappings
//
// Registry content is configuration, not computed state: it is seeded once
// at process start via Default and never mutated during a run, so a single
// Registry is safely shared read-only across concurrent classifications.
//
// Design decision: Signatures are plain predicates (name + pure function)
// rather than a declarative pattern DSL because the rule set is small and
// curated; a function gives each rule full expressive power while staying
// unit-testable in isolation.
package signature
