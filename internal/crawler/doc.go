// Package crawler fetches the pages a scan classifies.
//
// # Architecture
//
// The package is designed around the Spider type, a thin coordinator
// over a colly collector. Queueing, URL deduplication, depth tracking,
// and politeness delays are delegated to colly; the Spider translates
// scan configuration into collector options, applies path-pattern
// filtering, and turns responses into model.Page values.
//
// Design decision: We delegate to colly rather than maintaining our own
// crawl loop because:
//  1. Fetching, retry, and link enqueueing are not where this tool adds
//     value; classification is
//  2. colly's async collector with rate limit rules covers the
//     politeness settings we expose
//  3. Same-host scoping falls out of the collector's allowed-domains
//     filter
//
// # Politeness
//
// The crawler is designed to be polite:
//   - Delays between requests (configurable)
//   - Limits concurrent requests
//   - Respects max depth and max page settings
//
// # Usage
//
//	spider := crawler.NewSpider(
//	    crawler.WithMaxDepth(2),
//	    crawler.WithMaxPages(50),
//	)
//	pages, err := spider.Crawl(ctx, "https://example.com")
package crawler
