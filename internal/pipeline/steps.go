package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/stackscan/internal/classify"
	"github.com/nao1215/stackscan/internal/config"
	"github.com/nao1215/stackscan/internal/crawler"
	"github.com/nao1215/stackscan/internal/database"
	"github.com/nao1215/stackscan/internal/extract"
	"github.com/nao1215/stackscan/internal/model"
	"github.com/nao1215/stackscan/internal/signature"
)

// CrawlStep fetches pages starting from the report's start URL.
// This step discovers pages and stores them on the report for
// classification.
//
// Design decision: Crawling is a separate step because:
// 1. It has different configuration (depth, limits, delay)
// 2. It produces raw pages, not classification results
// 3. It is the only step that touches the network
type CrawlStep struct {
	// maxDepth limits crawl recursion.
	maxDepth int

	// maxPages limits total pages to crawl.
	maxPages int

	// delay between requests for politeness.
	delay time.Duration

	// userAgent is the User-Agent header to send with requests.
	// A descriptive User-Agent helps site operators identify scanner traffic.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	// This prevents memory exhaustion from unexpectedly large responses.
	maxBodySize int64

	// sameHostOnly restricts crawling to the start URL's host.
	sameHostOnly bool

	// cookie is an optional Cookie header value for authenticated crawls.
	cookie string

	// headers are optional custom HTTP headers sent with every request.
	headers map[string]string

	// ignorePatterns are URL path patterns to skip during crawling.
	ignorePatterns []string

	// followPatterns are URL path patterns to follow during crawling.
	followPatterns []string

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlMaxDepth sets the maximum crawl depth.
func WithCrawlMaxDepth(depth int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxDepth = depth
	}
}

// WithCrawlMaxPages sets the maximum pages to crawl.
func WithCrawlMaxPages(maxPages int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxPages = maxPages
	}
}

// WithCrawlDelay sets the delay between requests.
func WithCrawlDelay(d time.Duration) CrawlStepOption {
	return func(s *CrawlStep) {
		s.delay = d
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// WithCrawlIgnorePatterns sets URL path patterns to skip during crawling.
func WithCrawlIgnorePatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.ignorePatterns = patterns
	}
}

// WithCrawlFollowPatterns sets URL path patterns to follow during crawling.
func WithCrawlFollowPatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.followPatterns = patterns
	}
}

// WithCrawlUserAgent sets the User-Agent header for HTTP requests.
// A descriptive User-Agent helps site operators identify scanner traffic.
func WithCrawlUserAgent(userAgent string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.userAgent = userAgent
	}
}

// WithCrawlMaxBodySize sets the maximum response body size in bytes.
// Responses larger than this are truncated to prevent memory exhaustion.
func WithCrawlMaxBodySize(maxBodySize int64) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxBodySize = maxBodySize
	}
}

// WithCrawlSameHostOnly restricts crawling to the start URL's host.
func WithCrawlSameHostOnly(sameHost bool) CrawlStepOption {
	return func(s *CrawlStep) {
		s.sameHostOnly = sameHost
	}
}

// WithCrawlCookie sets a Cookie header value for authenticated crawls.
func WithCrawlCookie(cookie string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.cookie = cookie
	}
}

// WithCrawlHeaders sets custom HTTP headers sent with every request.
func WithCrawlHeaders(headers map[string]string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.headers = headers
	}
}

// NewCrawlStep creates a new crawling step.
//
// Default politeness settings are conservative to be respectful of sites:
//   - delay: 500ms between requests (config.DefaultCrawlDelay)
//   - userAgent: identifies stackscan (config.DefaultUserAgent)
//   - maxBodySize: 5MB to prevent memory exhaustion (config.DefaultMaxBodySize)
func NewCrawlStep(opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		maxDepth:     config.DefaultCrawlDepth,
		maxPages:     config.DefaultMaxPages,
		delay:        config.DefaultCrawlDelay,
		userAgent:    config.DefaultUserAgent,
		maxBodySize:  config.DefaultMaxBodySize,
		sameHostOnly: true,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, report *model.ScanReport) error {
	// Build spider options including politeness settings
	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxDepth(s.maxDepth),
		crawler.WithMaxPages(s.maxPages),
		crawler.WithDelay(s.delay),
		crawler.WithSpiderUserAgent(s.userAgent),
		crawler.WithSpiderMaxBodySize(int(s.maxBodySize)),
		crawler.WithSameHostOnly(s.sameHostOnly),
		crawler.WithSpiderLogger(s.logger),
	}

	// Add pattern filtering if configured
	if len(s.ignorePatterns) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithIgnorePatterns(s.ignorePatterns))
	}
	if len(s.followPatterns) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithFollowPatterns(s.followPatterns))
	}

	// Site-specific authentication
	if s.cookie != "" {
		spiderOpts = append(spiderOpts, crawler.WithCookie(s.cookie))
	}
	if len(s.headers) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithHeaders(s.headers))
	}

	spider := crawler.NewSpider(spiderOpts...)

	pages, err := spider.Crawl(ctx, report.StartURL)

	// Store crawled pages in report
	for _, page := range pages {
		report.AddPage(page)
	}

	switch {
	case ctx.Err() != nil:
		// A cancelled crawl still yields the pages fetched so far;
		// record the partial result and flag the timeout.
		report.TimedOut = true
		s.logger.Warn("crawl stopped early", "error", ctx.Err(), "pages", len(pages))
	case err != nil:
		return fmt.Errorf("crawl failed: %w", err)
	case len(pages) == 0:
		// Fetch failures surface through colly's error callback, not the
		// Crawl return value; an empty result means even the start page
		// could not be fetched.
		return fmt.Errorf("crawl failed: no pages fetched from %s", report.StartURL)
	}

	s.logger.Info("crawl completed",
		"pages_fetched", len(pages),
		"site", report.StartURL,
	)

	return nil
}

// ClassifyStep classifies the crawled pages.
// For each HTML page it extracts evidence and runs the classification
// engine, appending one record per page to the report.
//
// Design decision: Classification is separate from crawling because:
// 1. It is pure computation over already-fetched pages
// 2. It has its own configuration (signature registry, deep scan)
// 3. It can be re-run over stored pages without network access
type ClassifyStep struct {
	// extractor pulls classification evidence out of raw HTML.
	extractor *extract.Extractor

	// engine matches evidence against the signature registry.
	engine *classify.Engine

	// logger for structured logging.
	logger *slog.Logger
}

// ClassifyStepOption configures a ClassifyStep.
type ClassifyStepOption func(*ClassifyStep)

// WithClassifyLogger sets a custom logger for the classify step.
func WithClassifyLogger(logger *slog.Logger) ClassifyStepOption {
	return func(s *ClassifyStep) {
		s.logger = logger
	}
}

// NewClassifyStep creates a new classification step using the given
// signature registry.
func NewClassifyStep(registry *signature.Registry, opts ...ClassifyStepOption) *ClassifyStep {
	s := &ClassifyStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.extractor = extract.NewExtractor(extract.WithLogger(s.logger))
	s.engine = classify.NewEngine(registry, classify.WithLogger(s.logger))

	return s
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return "classify"
}

// Do executes the classification step.
func (s *ClassifyStep) Do(ctx context.Context, report *model.ScanReport) error {
	if len(report.Pages) == 0 {
		s.logger.Debug("skipping classification, no pages crawled")
		return nil
	}

	classified := 0
	for _, page := range report.Pages {
		select {
		case <-ctx.Done():
			report.TimedOut = true
			return ctx.Err()
		default:
		}

		if !page.IsHTML() {
			s.logger.Debug("skipping non-HTML page",
				"url", page.URL,
				"content_type", page.ContentType,
			)
			continue
		}

		evidence := s.extractor.Extract(page.URL, page.Body)
		record := s.engine.Classify(evidence)
		report.AddRecord(*record)
		classified++
	}

	s.logger.Info("classification completed",
		"pages_classified", classified,
		"site", report.StartURL,
	)

	return nil
}

// SummarizeStep aggregates the report's classification records into a
// site-level summary of technologies, CDN hosts, and analytics services.
type SummarizeStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// SummarizeStepOption configures a SummarizeStep.
type SummarizeStepOption func(*SummarizeStep)

// WithSummarizeLogger sets a custom logger for the summarize step.
func WithSummarizeLogger(logger *slog.Logger) SummarizeStepOption {
	return func(s *SummarizeStep) {
		s.logger = logger
	}
}

// NewSummarizeStep creates a new summarization step.
func NewSummarizeStep(opts ...SummarizeStepOption) *SummarizeStep {
	s := &SummarizeStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SummarizeStep) Name() string {
	return "summarize"
}

// Do executes the summarization step.
func (s *SummarizeStep) Do(_ context.Context, report *model.ScanReport) error {
	report.Summary = model.NewSummary(report)

	s.logger.Debug("summary generated",
		"site", report.StartURL,
		"top_technology", report.Summary.TopTechnology(),
	)

	return nil
}

// PersistStep saves the scan report and its classification records to
// the SQLite database for historical comparison.
//
// Design decision: Persistence is a pipeline step rather than a CLI
// concern because batch scans run many pipelines concurrently; keeping
// the save inside the pipeline means each report is stored as soon as
// its scan finishes rather than after the whole batch.
type PersistStep struct {
	// db is the result database. The step does not own it; the caller
	// is responsible for closing it after all pipelines finish.
	db *database.ResultDB

	// logger for structured logging.
	logger *slog.Logger
}

// PersistStepOption configures a PersistStep.
type PersistStepOption func(*PersistStep)

// WithPersistLogger sets a custom logger for the persist step.
func WithPersistLogger(logger *slog.Logger) PersistStepOption {
	return func(s *PersistStep) {
		s.logger = logger
	}
}

// NewPersistStep creates a new persistence step writing to db.
func NewPersistStep(db *database.ResultDB, opts ...PersistStepOption) *PersistStep {
	s := &PersistStep{
		db:     db,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do executes the persistence step.
func (s *PersistStep) Do(ctx context.Context, report *model.ScanReport) error {
	for i := range report.Records {
		if _, err := s.db.UpsertClassification(ctx, report.StartURL, &report.Records[i]); err != nil {
			return fmt.Errorf("save classification for %s: %w", report.Records[i].URL, err)
		}
	}

	if err := s.db.SaveScanReport(ctx, report); err != nil {
		return fmt.Errorf("save scan report: %w", err)
	}

	s.logger.Info("scan report saved",
		"site", report.StartURL,
		"records", len(report.Records),
	)

	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// CrawlDepth is the maximum depth for web crawling.
	CrawlDepth int

	// CrawlMaxPages is the maximum number of pages to crawl.
	CrawlMaxPages int

	// Cookie is the cookie string to send with HTTP requests.
	Cookie string

	// Headers are additional HTTP headers to send with requests.
	Headers map[string]string

	// IgnorePatterns are URL path patterns to skip during crawling.
	IgnorePatterns []string

	// FollowPatterns are URL path patterns to follow during crawling.
	FollowPatterns []string

	// CrawlDelay is the delay between HTTP requests during crawling.
	// This is a "politeness" setting to avoid overwhelming sites.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	// A descriptive User-Agent helps site operators identify scanner traffic.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated to prevent memory exhaustion.
	MaxBodySize int64

	// SameHostOnly restricts crawling to the start URL's host.
	SameHostOnly bool

	// DB is the optional result database. When set, a persist step is
	// appended to the pipeline.
	DB *database.ResultDB
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineCrawlDepth sets the crawl depth for the pipeline.
func WithPipelineCrawlDepth(depth int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CrawlDepth = depth
	}
}

// WithPipelineCrawlMaxPages sets the maximum pages to crawl.
func WithPipelineCrawlMaxPages(maxPages int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CrawlMaxPages = maxPages
	}
}

// WithPipelineCookie sets the cookie for HTTP requests.
func WithPipelineCookie(cookie string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Cookie = cookie
	}
}

// WithPipelineHeaders sets additional HTTP headers.
func WithPipelineHeaders(headers map[string]string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Headers = headers
	}
}

// WithPipelineIgnorePatterns sets URL patterns to skip during crawling.
func WithPipelineIgnorePatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.IgnorePatterns = patterns
	}
}

// WithPipelineFollowPatterns sets URL patterns to follow during crawling.
func WithPipelineFollowPatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.FollowPatterns = patterns
	}
}

// WithPipelineCrawlDelay sets the delay between HTTP requests during crawling.
// This is a "politeness" setting to avoid overwhelming sites.
func WithPipelineCrawlDelay(delay time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CrawlDelay = delay
	}
}

// WithPipelineUserAgent sets the User-Agent header for HTTP requests.
// A descriptive User-Agent helps site operators identify scanner traffic.
func WithPipelineUserAgent(userAgent string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.UserAgent = userAgent
	}
}

// WithPipelineMaxBodySize sets the maximum response body size in bytes.
// Responses larger than this are truncated to prevent memory exhaustion.
func WithPipelineMaxBodySize(maxBodySize int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxBodySize = maxBodySize
	}
}

// WithPipelineSameHostOnly restricts crawling to the start URL's host.
func WithPipelineSameHostOnly(sameHost bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SameHostOnly = sameHost
	}
}

// WithPipelineDatabase sets the result database for the pipeline.
// When set, a persist step is appended after summarization.
func WithPipelineDatabase(db *database.ResultDB) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.DB = db
	}
}

// DefaultPipeline creates a pipeline with all default steps configured:
// crawl, classify, summarize, and optionally persist.
//
// Design decision: We provide a default pipeline because:
// 1. Most users want the full crawl-and-classify flow
// 2. Reduces boilerplate in CLI
// 3. Ensures consistent ordering
//
// The registry determines which signatures the classify step matches;
// build it with signature.Default and pass WithLibraryDetection for
// deep scans. The first variadic parameter accepts pipeline options
// (WithLogger, etc). The second accepts pipeline config options
// (WithPipelineCrawlDepth, etc).
func DefaultPipeline(registry *signature.Registry, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	// Apply default config with conservative politeness settings
	cfg := &DefaultPipelineConfig{
		CrawlDepth:    config.DefaultCrawlDepth,
		CrawlMaxPages: config.DefaultMaxPages,
		CrawlDelay:    config.DefaultCrawlDelay,
		UserAgent:     config.DefaultUserAgent,
		MaxBodySize:   config.DefaultMaxBodySize,
		SameHostOnly:  true,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	// Build crawl step options including politeness settings
	crawlOpts := []CrawlStepOption{
		WithCrawlMaxDepth(cfg.CrawlDepth),
		WithCrawlMaxPages(cfg.CrawlMaxPages),
		WithCrawlDelay(cfg.CrawlDelay),
		WithCrawlUserAgent(cfg.UserAgent),
		WithCrawlMaxBodySize(cfg.MaxBodySize),
		WithCrawlSameHostOnly(cfg.SameHostOnly),
		WithCrawlLogger(p.logger),
	}

	// Add pattern filtering options if configured
	if len(cfg.IgnorePatterns) > 0 {
		crawlOpts = append(crawlOpts, WithCrawlIgnorePatterns(cfg.IgnorePatterns))
	}
	if len(cfg.FollowPatterns) > 0 {
		crawlOpts = append(crawlOpts, WithCrawlFollowPatterns(cfg.FollowPatterns))
	}

	// Site-specific authentication
	if cfg.Cookie != "" {
		crawlOpts = append(crawlOpts, WithCrawlCookie(cfg.Cookie))
	}
	if len(cfg.Headers) > 0 {
		crawlOpts = append(crawlOpts, WithCrawlHeaders(cfg.Headers))
	}

	// Add steps in logical order
	p.AddSteps(
		NewCrawlStep(crawlOpts...),
		NewClassifyStep(registry, WithClassifyLogger(p.logger)),
		NewSummarizeStep(WithSummarizeLogger(p.logger)),
	)

	if cfg.DB != nil {
		p.AddStep(NewPersistStep(cfg.DB, WithPersistLogger(p.logger)))
	}

	return p
}
