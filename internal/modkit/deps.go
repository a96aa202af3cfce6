package modkit

import (
	"reviewprep/internal/modkit/repokit"
	"reviewprep/internal/platform/config"
	"reviewprep/internal/platform/logger"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner // nil when no database is configured
}

// HasPG reports whether a postgres seam was provided
func (d Deps) HasPG() bool { return d.PG != nil }
