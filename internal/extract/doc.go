// Package extract turns fetched page markup into the normalized
// evidence bundle consumed by classification.
//
// The extractor never fails a page: any per-field extraction problem
// (selector miss, malformed attribute, unparseable document) degrades
// that field to its empty default and the remaining fields are still
// extracted. Even a page goquery cannot parse still yields an evidence
// bundle carrying the raw markup, so substring-based signatures keep
// working.
package extract
