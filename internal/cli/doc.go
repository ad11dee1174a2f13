// Package cli implements the cs-events command: one-off scrapes and schema
// migration against the same configuration the HTTP service reads.
package cli
