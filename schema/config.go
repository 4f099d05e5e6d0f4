package schema

import (
	"os"
	"path/filepath"
)

// ServiceConfig defines defaults and limits for the core service.
type ServiceConfig struct {
	StateDir           string
	TranscriptMaxLines int
	// DefaultSafety is assigned to tag-derived proposals that carry no
	// producer safety tier. Producer-supplied tiers are never replaced.
	DefaultSafety SafetyTier
	// DisableAuditLogging disables audit trail logs for human decisions.
	DisableAuditLogging bool
}

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ServiceConfig{}, err
		}
		cfg.StateDir = filepath.Join(home, ".tiller", "state")
	}
	if cfg.TranscriptMaxLines <= 0 {
		cfg.TranscriptMaxLines = DefaultTranscriptMaxLines
	}
	if cfg.DefaultSafety == "" {
		cfg.DefaultSafety = SafetyHigh
	}
	if _, err := NormalizeSafetyTier(string(cfg.DefaultSafety)); err != nil {
		return ServiceConfig{}, err
	}
	return cfg, nil
}
