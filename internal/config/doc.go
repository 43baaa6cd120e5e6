// Package config provides configuration structures and utilities for stackscan.
// It defines the main configuration options for crawling sites, classifying
// their technology stacks, and report generation preferences.
package config
