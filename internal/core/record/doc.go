// Package record holds the JSON value model and the record transformer
// Pipeline order
// 1 Clean trims strings, nulls become "N/A", empty strings become "Unknown"
// 2 RenameKeys lower-cases keys and turns spaces into underscores (objects only)
// 3 DeriveFeatures adds price_category and review_sentiment at the top level
//
// Values are immutable and every stage is a pure function, so records can
// be transformed on any goroutine
package record
