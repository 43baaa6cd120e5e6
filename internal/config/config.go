package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen to be polite to scanned sites while still
// collecting enough pages for a meaningful technology profile.
const (
	// DefaultTimeout is the overall time limit for scanning a single site.
	// Two minutes covers a 100-page crawl at the default delay with room
	// to spare; slow sites hit the timeout rather than hanging the scan.
	DefaultTimeout = 2 * time.Minute

	// DefaultCrawlDepth of 2 follows links two levels beyond the start page.
	// Technology fingerprints (meta generator, script includes, CDN hosts)
	// are almost always visible within the first couple of link levels,
	// so deeper crawls mostly add scan time without new evidence.
	DefaultCrawlDepth = 2

	// DefaultBatchSize of 10 concurrent scans balances throughput with
	// resource usage when processing a list of sites. Higher values may
	// trigger rate limiting on shared hosting.
	DefaultBatchSize = 10

	// DefaultMaxPages is the maximum number of pages to crawl per site.
	// This prevents runaway crawling on large or infinitely-generating sites.
	// Users can override this via the --max-pages CLI flag.
	DefaultMaxPages = 100

	// AppName is the application name used for XDG directory paths.
	AppName = "stackscan"

	// DefaultCrawlDelay is the delay between requests during crawling.
	// This is a politeness setting to avoid overwhelming scanned sites.
	// Can be adjusted via the --delay CLI flag.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultUserAgent identifies stackscan in HTTP requests.
	// Using a descriptive User-Agent is good practice and allows operators
	// to identify scanner traffic in their logs.
	DefaultUserAgent = "stackscan/1.0 (+https://github.com/nao1215/stackscan)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory exhaustion
	// from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Config holds all configuration options for stackscan.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// Timeout is the overall time limit for scanning a single site.
	// When exceeded, the scan stops and reports the pages collected so far
	// with the TimedOut flag set.
	Timeout time.Duration

	// CrawlDepth is the maximum link depth for web crawling.
	// Depth 0 means only fetch the start page.
	// Higher values find more content but take longer and use more resources.
	CrawlDepth int

	// MaxPages is the maximum number of pages to crawl per site.
	// This prevents runaway crawling on large or infinitely-generating sites.
	// A value of 0 means use the default (DefaultMaxPages).
	MaxPages int

	// SameHostOnly restricts crawling to the start URL's host.
	// When false, the crawler follows links to any host, which is rarely
	// what you want for a per-site technology profile.
	SameHostOnly bool

	// DeepScan enables the JavaScript library and framework signature tier.
	// Platform and tracker signatures are always active; library detection
	// (React, Vue.js, jQuery, and so on) adds noise for users who only care
	// about the hosting platform, so it is opt-in via the --deep CLI flag.
	DeepScan bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of concurrent scans when processing multiple sites.
	// Higher values increase throughput but may overwhelm system resources.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .stackscan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	// This is populated by LoadConfigFile and used during scanning.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of human-readable format.
	// When true, outputs detailed JSON with all collected data.
	// When false, outputs human-readable simple report (default).
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable format.
	// When true, outputs GitHub Flavored Markdown with tables and pie charts.
	// When false, outputs human-readable simple report (default).
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// Targets is the list of site URLs to scan.
	// Must contain at least one URL; bare hostnames get an https:// prefix.
	Targets []string

	// DBDir is the directory path for storing the SQLite database.
	// When set, scan results are saved to the database for historical comparison.
	// When empty, scan results are not persisted.
	// Defaults to XDG data directory (~/.local/share/stackscan on Linux).
	DBDir string

	// SaveToDB indicates whether to save scan results to the database.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool

	// CrawlDelay is the delay between HTTP requests during crawling.
	// This is a "politeness" setting to avoid overwhelming scanned sites.
	// Lower values may cause rate limiting or service disruption.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	// A descriptive User-Agent helps site operators identify scanner traffic.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated to prevent memory exhaustion.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, crawl delay).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:      DefaultTimeout,
		CrawlDepth:   DefaultCrawlDepth,
		MaxPages:     DefaultMaxPages,
		SameHostOnly: true,
		BatchSize:    DefaultBatchSize,
		CrawlDelay:   DefaultCrawlDelay,
		UserAgent:    DefaultUserAgent,
		MaxBodySize:  DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for stackscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/stackscan
// On macOS: ~/Library/Application Support/stackscan
// On Windows: %LOCALAPPDATA%\stackscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for stackscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/stackscan
// On macOS: ~/Library/Application Support/stackscan
// On Windows: %APPDATA%\stackscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for stackscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.cache/stackscan
// On macOS: ~/Library/Caches/stackscan
// On Windows: %LOCALAPPDATA%\stackscan\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any scanning begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one site to scan
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// CrawlDepth must be non-negative; depth 0 means start page only
	if c.CrawlDepth < 0 {
		return ErrInvalidCrawlDepth
	}

	// BatchSize must be positive; zero would mean no scanning
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	// CrawlDelay must be non-negative
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	// MaxBodySize must be positive if set
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
