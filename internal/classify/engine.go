package classify

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/nao1215/stackscan/internal/model"
	"github.com/nao1215/stackscan/internal/signature"
)

// Engine classifies evidence bundles against a signature registry.
// The registry must be fully seeded before the first Classify call and
// never mutated afterwards; under that contract the engine is safe for
// concurrent use.
type Engine struct {
	registry *signature.Registry
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger for non-fatal classification conditions
// (panicking predicates, unresolvable URLs).
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an Engine over the given registry.
func NewEngine(registry *signature.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify produces one classification record from one evidence bundle.
//
// The pass order is fixed: curated signatures first (registry order),
// then the generator tag as a technology signal of its own, then the
// narrow keyword overrides. The keyword path never short-circuits the
// signature pass; it can only append. CDN and analytics detection run
// independently of the technology pass, over the full untruncated
// evidence.
func (e *Engine) Classify(ev *model.Evidence) *model.Classification {
	record := model.NewClassification(ev.PageURL)
	record.Title = ev.Title
	record.MetaGenerator = ev.MetaGenerator

	corpus := scriptCorpus(ev)

	for _, sig := range e.registry.Signatures() {
		if e.matchSignature(sig, ev.RawHTML, corpus, ev.PageURL) {
			record.AddTechnology(sig.Name)
		}
	}

	record.AddTechnology(ev.MetaGenerator)

	for _, tech := range e.registry.KeywordTechnologies(ev.MetaKeywords) {
		record.AddTechnology(tech)
	}

	e.resolveScripts(ev, record)

	for _, rule := range e.registry.AnalyticsRules() {
		if rule.Matches(ev.RawHTML, ev.ExternalScriptURLs) {
			record.AddAnalytics(rule.Name)
		}
	}

	record.Server = e.serverLabel(ev)
	record.DetectedVia = provenance(ev, record)
	record.TruncateScripts()

	return record
}

// matchSignature evaluates one predicate, converting a panic into a
// non-match. A rule author's bad regex or nil deref must never take
// down the page, let alone the scan.
func (e *Engine) matchSignature(sig signature.Signature, html, corpus, pageURL string) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("signature predicate panicked, treated as non-match",
				"signature", sig.Name,
				"url", pageURL,
				"panic", r)
			matched = false
		}
	}()
	return sig.Match(html, corpus)
}

// resolveScripts resolves every external script URL and resource hint
// against the page URL, fills the record's script list (scripts only),
// and collects CDN hosts from both sets. A URL that fails to parse is
// kept verbatim with an empty host and does not abort the page.
func (e *Engine) resolveScripts(ev *model.Evidence, record *model.Classification) {
	base, err := url.Parse(ev.PageURL)
	if err != nil {
		e.logger.Warn("page URL does not parse, script hosts unresolved",
			"url", ev.PageURL,
			"error", err)
		base = nil
	}

	for _, raw := range ev.ExternalScriptURLs {
		ref := e.resolveRef(base, raw, ev.PageURL)
		record.Scripts = append(record.Scripts, ref)
		if e.registry.IsCDNHost(ref.Host) {
			record.AddCDN(ref.Host)
		}
	}

	for _, raw := range ev.ResourceHintURLs {
		ref := e.resolveRef(base, raw, ev.PageURL)
		if e.registry.IsCDNHost(ref.Host) {
			record.AddCDN(ref.Host)
		}
	}
}

// resolveRef resolves one raw URL against the page base. Resolution
// failure degrades to the original string with an empty host.
func (e *Engine) resolveRef(base *url.URL, raw, pageURL string) model.ScriptRef {
	parsed, err := url.Parse(raw)
	if err != nil {
		e.logger.Warn("script URL does not parse, host left empty",
			"url", pageURL,
			"src", raw,
			"error", err)
		return model.ScriptRef{AbsoluteURL: raw}
	}

	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	return model.ScriptRef{
		AbsoluteURL: parsed.String(),
		Host:        parsed.Hostname(),
	}
}

// serverLabel derives the best-effort platform label: the generator tag
// verbatim when present, otherwise the first matching HTML-substring
// hint, otherwise empty.
func (e *Engine) serverLabel(ev *model.Evidence) string {
	if s := strings.TrimSpace(ev.MetaGenerator); s != "" {
		return s
	}
	return e.registry.ServerLabel(ev.RawHTML)
}

// provenance derives the detected-via tag set. Each evidence category
// contributes its tag independently; the set explains the record and is
// never read by decision logic.
func provenance(ev *model.Evidence, record *model.Classification) []string {
	tags := make([]string, 0, 4)
	if len(record.CDNs) > 0 {
		tags = append(tags, model.ProvenanceCDN.String())
	}
	if len(record.Analytics) > 0 {
		tags = append(tags, model.ProvenanceAnalytics.String())
	}
	if ev.MetaGenerator != "" {
		tags = append(tags, model.ProvenanceGenerator.String())
	}
	if ev.HasInlineScripts() {
		tags = append(tags, model.ProvenanceInlineScript.String())
	}
	return tags
}

// scriptCorpus joins external script URLs and inline snippets into the
// single searchable surface handed to signature predicates.
func scriptCorpus(ev *model.Evidence) string {
	if len(ev.ExternalScriptURLs) == 0 && len(ev.InlineScriptSnippets) == 0 {
		return ""
	}

	var b strings.Builder
	for _, u := range ev.ExternalScriptURLs {
		b.WriteString(u)
		b.WriteString("\n")
	}
	for _, s := range ev.InlineScriptSnippets {
		b.WriteString(s)
		b.WriteString("\n")
	}
	return b.String()
}
