// Package jsonl reads line-delimited JSON from plain or gzip-compressed sources.
// It only splits lines; parsing is left to the caller so malformed lines can
// be reported and skipped one at a time
package jsonl
