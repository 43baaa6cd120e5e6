// Package main provides the entry point for the stackscan CLI.
//
// stackscan crawls websites and identifies the technologies they are
// built with: platforms, JavaScript libraries, CDNs, analytics tools,
// and server software.
//
// Usage:
//
//	stackscan scan <url>
//	stackscan scan site1.example site2.example
//
// See --help for all available options.
package main

// main is the entry point for stackscan.
func main() {
	Execute()
}
