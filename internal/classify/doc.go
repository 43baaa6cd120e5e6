// Package classify runs the signature registry against one page's
// evidence bundle and produces the page's classification record.
//
// The engine is a pure, synchronous, single-page computation: the
// registry is read-only after seeding, so one Engine may classify many
// pages concurrently with no locking. Cancellation and timeouts belong
// to the surrounding crawl layer; nothing inside the engine blocks.
package classify
