package config

import (
	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	pkgconfig "github.com/smykla-labs/crashtrace/pkg/config"
)

// ErrInvalidConfig marks every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validator checks a merged configuration.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns all problems found in cfg combined into one error.
func (*Validator) Validate(cfg *pkgconfig.Config) error {
	if cfg == nil {
		return errors.Wrap(ErrInvalidConfig, "configuration is nil")
	}

	var errs error

	if n := cfg.Events.GetMaxRecordCount(); n < 1 {
		errs = errors.CombineErrors(errs,
			errors.Wrapf(ErrInvalidConfig, "events.max_record_count must be at least 1, got %d", n))
	}

	if n := cfg.Signals.GetGuardLimit(); n < 1 {
		errs = errors.CombineErrors(errs,
			errors.Wrapf(ErrInvalidConfig, "signals.guard_limit must be at least 1, got %d", n))
	}

	if n := cfg.Report.GetMaxReports(); n < 0 {
		errs = errors.CombineErrors(errs,
			errors.Wrapf(ErrInvalidConfig, "report.max_reports must not be negative, got %d", n))
	}

	if v := cfg.Report.GetAppVersion(); v != "" {
		if _, err := semver.NewVersion(v); err != nil {
			errs = errors.CombineErrors(errs,
				errors.Wrapf(ErrInvalidConfig, "report.app_version %q is not a semantic version: %v", v, err))
		}
	}

	return errs
}
