// Package ingest holds adapter shims for pipeline ports
package ingest

import (
	"reviewprep/internal/adapters/ingest/fetch"
	"reviewprep/internal/modkit"
	"reviewprep/internal/services/pipeline/domain"
)

// NewFetcher constructs a domain.Fetcher from config under RP_FETCH_*.
// This keeps config reading outside the service
func NewFetcher(deps modkit.Deps) domain.Fetcher {
	fc := deps.Cfg.Prefix("RP_FETCH_")
	return fetch.New(
		fetch.WithTimeout(fc.MayDuration("HTTP_TIMEOUT", 0)), // 0 == no client timeout
		fetch.WithRevalidate(fc.MayBool("REVALIDATE", true)),
		fetch.WithUserAgent(fc.MayString("USER_AGENT", "")),
	)
}
