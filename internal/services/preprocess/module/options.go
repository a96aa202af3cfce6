package module

import (
	"reviewprep/internal/platform/config"
)

// Options holds configuration options for the preprocess service
type Options struct {
	Workers      int
	BatchLines   int
	MaxMalformed int
	MaxLineBytes int
	Compact      bool
}

// FromConfig reads the preprocess options from config with RP_PREPROCESS_ prefix
func FromConfig(cfg config.Conf) Options {
	pp := cfg.Prefix("RP_PREPROCESS_")
	return Options{
		Workers:      pp.MayInt("WORKERS", 1),
		BatchLines:   pp.MayInt("BATCH_LINES", 4096),
		MaxMalformed: pp.MayInt("MAX_MALFORMED", 100),
		MaxLineBytes: pp.MayInt("MAX_LINE_BYTES", 32*1024*1024),
		Compact:      pp.MayBool("COMPACT", false),
	}
}
