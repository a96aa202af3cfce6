package module

import (
	"time"

	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/platform/config"
	"reviewprep/internal/platform/net/http/bind"
	"reviewprep/internal/services/pipeline/scheduler"
)

// Options holds configuration options for the pipeline
type Options struct {
	DataDir      string `json:"data_dir" validate:"required"`
	DatasetsFile string `json:"datasets_file"`

	Retries    int           `json:"retries" validate:"gte=0,lte=100"`
	RetryDelay time.Duration `json:"retry_delay" validate:"gte=0"`

	RunTimeout        time.Duration `json:"run_timeout" validate:"gte=0"`
	FetchTimeout      time.Duration `json:"fetch_timeout" validate:"gte=0"`
	PreprocessTimeout time.Duration `json:"preprocess_timeout" validate:"gte=0"`
	VerifyTimeout     time.Duration `json:"verify_timeout" validate:"gte=0"`
	PublishTimeout    time.Duration `json:"publish_timeout" validate:"gte=0"`

	Schedule string `json:"schedule" validate:"required"`

	// Cross instance lease, only with a Postgres ledger
	Leases   bool          `json:"leases"`
	LeaseTTL time.Duration `json:"lease_ttl" validate:"gte=0"`

	LedgerKeep int `json:"ledger_keep" validate:"gte=0"`

	VerifyMaxViolations int  `json:"verify_max_violations" validate:"gte=0"`
	VerifyAllowEmpty    bool `json:"verify_allow_empty"`
}

// FromConfig reads the pipeline options from config with RP_PIPELINE_ prefix
func FromConfig(cfg config.Conf) Options {
	pc := cfg.Prefix("RP_PIPELINE_")
	return Options{
		DataDir:             pc.MayString("DATA_DIR", "data"),
		DatasetsFile:        pc.MayString("DATASETS_FILE", ""),
		Retries:             pc.MayInt("RETRIES", 1),
		RetryDelay:          pc.MayDuration("RETRY_DELAY", 5*time.Minute),
		RunTimeout:          pc.MayDuration("RUN_TIMEOUT", 0),
		FetchTimeout:        pc.MayDuration("FETCH_TIMEOUT", 30*time.Minute),
		PreprocessTimeout:   pc.MayDuration("PREPROCESS_TIMEOUT", 0),
		VerifyTimeout:       pc.MayDuration("VERIFY_TIMEOUT", 0),
		PublishTimeout:      pc.MayDuration("PUBLISH_TIMEOUT", 10*time.Minute),
		Schedule:            cfg.Prefix("RP_SCHEDULE_").MayString("SPEC", scheduler.DefaultSpec),
		Leases:              pc.MayBool("LEASES", true),
		LeaseTTL:            pc.MayDuration("LEASE_TTL", 6*time.Hour),
		LedgerKeep:          pc.MayInt("LEDGER_KEEP", 50),
		VerifyMaxViolations: pc.MayInt("VERIFY_MAX_VIOLATIONS", 20),
		VerifyAllowEmpty:    pc.MayBool("VERIFY_ALLOW_EMPTY", false),
	}
}

// Validate checks option ranges
func (o Options) Validate() error {
	return validate(o, "pipeline options")
}

// validate runs the shared validator and maps the first failure to a coded error
func validate(v any, what string) error {
	if err := bind.Get().Validator.Struct(v); err != nil {
		field, msg := bind.ValidationFieldAndMessage(err)
		if msg == "" {
			msg = err.Error()
		}
		return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s: %s", what, msg), field)
	}
	return nil
}
