package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/nao1215/stackscan/internal/model"
)

// Spider crawls web pages starting from a seed URL.
// It wraps a colly collector and returns fetched pages for
// classification.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. Distinguishes the component from the package name
//  3. Clearer in code: crawler.NewSpider() vs crawler.NewCrawler()
//
// Queueing, deduplication, depth tracking, and politeness delays are
// delegated to colly; the Spider only translates configuration, applies
// path-pattern filtering, and collects responses into pages.
type Spider struct {
	// maxDepth limits how deep to crawl from the starting URL.
	// 0 means only the starting page, 1 means one level of links, etc.
	maxDepth int

	// maxPages limits the total number of pages to crawl.
	// This prevents runaway crawling on large sites.
	maxPages int

	// delay is the time to wait between requests.
	// This is a politeness setting to avoid overwhelming servers.
	delay time.Duration

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int

	// sameHostOnly restricts the crawl to the seed URL's host.
	sameHostOnly bool

	// ignorePatterns are URL path patterns to skip during crawling.
	// Patterns use glob syntax (e.g., "/admin/*", "*.pdf").
	ignorePatterns []string

	// followPatterns are URL path patterns to follow during crawling.
	// If set, only URLs matching these patterns are crawled.
	// Empty means all URLs are allowed (subject to ignorePatterns).
	followPatterns []string

	// cookie is an optional Cookie header value sent with every request.
	// Used for crawling sites that require authentication.
	cookie string

	// headers are optional custom headers sent with every request.
	headers map[string]string

	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the starting page, 1 = starting page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to crawl.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithSpiderUserAgent sets a custom User-Agent header.
func WithSpiderUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithSpiderMaxBodySize sets the maximum response body size in bytes.
func WithSpiderMaxBodySize(size int) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithSameHostOnly restricts crawling to the seed URL's host.
func WithSameHostOnly(sameHost bool) SpiderOption {
	return func(s *Spider) {
		s.sameHostOnly = sameHost
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
// URLs matching any of these patterns will not be crawled.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// Patterns use glob syntax (e.g., "/api/*", "/public/*").
// If set, only URLs matching at least one pattern are crawled.
// Empty slice means all URLs are allowed (default behavior).
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithCookie sets a Cookie header value sent with every request.
// Format: "name=value" or "name1=value1; name2=value2".
func WithCookie(cookie string) SpiderOption {
	return func(s *Spider) {
		s.cookie = cookie
	}
}

// WithHeaders sets custom HTTP headers sent with every request.
func WithHeaders(headers map[string]string) SpiderOption {
	return func(s *Spider) {
		s.headers = headers
	}
}

// WithSpiderLogger sets the logger for non-fatal crawl conditions.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a new Spider with the given options.
func NewSpider(opts ...SpiderOption) *Spider {
	s := &Spider{
		maxDepth:     2,
		maxPages:     100,
		delay:        500 * time.Millisecond,
		userAgent:    "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0",
		maxBodySize:  model.MaxPageSize,
		sameHostOnly: true,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Crawl starts crawling from the given URL and returns all fetched pages.
//
// Design decision: We return a slice of pages rather than using a callback
// because:
//  1. Simpler API for callers
//  2. Pages are bounded by maxPages and maxBodySize
//  3. Caller can process all at once or iterate as needed
//
// Fetch failures for individual pages are logged and skipped; Crawl only
// fails when the seed URL is unusable or the collector cannot start.
func (s *Spider) Crawl(ctx context.Context, startURL string) ([]*model.Page, error) {
	start, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}
	if start.Scheme != "http" && start.Scheme != "https" {
		start.Scheme = "https"
	}

	c, err := s.newCollector(start)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		pages []*model.Page
	)

	c.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
			return
		default:
		}

		mu.Lock()
		full := len(pages) >= s.maxPages
		mu.Unlock()
		if full || !s.shouldCrawl(r.URL) {
			r.Abort()
			return
		}

		if s.cookie != "" {
			r.Headers.Set("Cookie", s.cookie)
		}
		for k, v := range s.headers {
			r.Headers.Set(k, v)
		}
	})

	c.OnResponse(func(r *colly.Response) {
		page := &model.Page{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        r.Body,
		}
		page.TruncateBody()
		page.ComputeHash()

		mu.Lock()
		if len(pages) < s.maxPages {
			pages = append(pages, page)
		}
		mu.Unlock()
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" {
			return
		}
		// Visit through the request so colly tracks depth; depth and
		// domain violations surface as errors we don't care about.
		if err := e.Request.Visit(link); err != nil {
			return
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		s.logger.Warn("page fetch failed",
			"url", r.Request.URL.String(),
			"status", r.StatusCode,
			"error", err)
	})

	if err := c.Visit(start.String()); err != nil {
		return nil, fmt.Errorf("crawl failed to start: %w", err)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return pages, err
	}
	return pages, nil
}

// newCollector builds the configured colly collector.
func (s *Spider) newCollector(start *url.URL) (*colly.Collector, error) {
	opts := []colly.CollectorOption{
		// colly counts the seed request as depth 1, our option counts
		// link levels from 0
		colly.MaxDepth(s.maxDepth + 1),
		colly.UserAgent(s.userAgent),
		colly.MaxBodySize(s.maxBodySize),
		colly.Async(true),
	}
	if s.sameHostOnly {
		opts = append(opts, colly.AllowedDomains(start.Hostname()))
	}

	c := colly.NewCollector(opts...)

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       s.delay,
		Parallelism: 2,
	}); err != nil {
		return nil, fmt.Errorf("invalid rate limit rule: %w", err)
	}
	return c, nil
}

// shouldCrawl checks if a URL should be crawled based on ignore/follow
// patterns.
//
// Logic:
//  1. If URL matches any ignorePattern, skip it (return false)
//  2. If followPatterns is set and URL matches none, skip it (return false)
//  3. Otherwise, crawl it (return true)
func (s *Spider) shouldCrawl(u *url.URL) bool {
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(s.followPatterns) > 0 {
		for _, pattern := range s.followPatterns {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}

	return true
}

// Normalize returns a stable deduplication key for a page URL: fragment
// stripped, scheme and host lowercased, empty path treated as "/".
// Scan reports use it to key their per-URL crawl counts.
func Normalize(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
