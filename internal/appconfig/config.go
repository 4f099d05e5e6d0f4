package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/tiller/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int            `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string         `mapstructure:"state_dir" yaml:"state_dir"`
	Upstream      UpstreamConfig `mapstructure:"upstream" yaml:"upstream"`
	Service       ServiceConfig  `mapstructure:"service" yaml:"service"`
	Browser       BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	HTTP          HTTPConfig     `mapstructure:"http" yaml:"http"`
	Auth          AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Logging       LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// UpstreamConfig configures the agent event stream endpoint.
type UpstreamConfig struct {
	URL                   string `mapstructure:"url" yaml:"url"`
	Token                 string `mapstructure:"token" yaml:"token"`
	ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds" yaml:"connect_timeout_seconds"`
}

// ServiceConfig controls core service behavior.
type ServiceConfig struct {
	TranscriptMaxLines int    `mapstructure:"transcript_max_lines" yaml:"transcript_max_lines"`
	DefaultSafety      string `mapstructure:"default_safety" yaml:"default_safety"`
}

// BrowserConfig configures the browser automation surface.
type BrowserConfig struct {
	Headless         bool   `mapstructure:"headless" yaml:"headless"`
	OpTimeoutSeconds int    `mapstructure:"op_timeout_seconds" yaml:"op_timeout_seconds"`
	UserDataDir      string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr                   string `mapstructure:"addr" yaml:"addr"`
	SessionCookie          string `mapstructure:"session_cookie" yaml:"session_cookie"`
	SessionTTLHours        int    `mapstructure:"session_ttl_hours" yaml:"session_ttl_hours"`
	InitialTranscriptLines int    `mapstructure:"initial_transcript_lines" yaml:"initial_transcript_lines"`
	UIMaxTranscriptLines   int    `mapstructure:"ui_max_transcript_lines" yaml:"ui_max_transcript_lines"`
}

// AuthConfig configures auth storage and seed users.
type AuthConfig struct {
	UserFile  string     `mapstructure:"user_file" yaml:"user_file"`
	SeedUsers []SeedUser `mapstructure:"seed_users" yaml:"seed_users"`
}

// LoggingConfig controls audit logging behavior.
type LoggingConfig struct {
	DisableAuditTrails bool `mapstructure:"disable_audit_trails" yaml:"disable_audit_trails"`
}

// SeedUser seeds a user record in the auth store.
type SeedUser struct {
	Username     string `mapstructure:"username" yaml:"username"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash"`
	TOTPSecret   string `mapstructure:"totp_secret" yaml:"totp_secret"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".tiller", "state"),
		Upstream: UpstreamConfig{
			URL:                   "http://127.0.0.1:27520/stream",
			Token:                 "",
			ConnectTimeoutSeconds: 30,
		},
		Service: ServiceConfig{
			TranscriptMaxLines: schema.DefaultTranscriptMaxLines,
			DefaultSafety:      string(schema.SafetyHigh),
		},
		Browser: BrowserConfig{
			Headless:         true,
			OpTimeoutSeconds: 30,
			UserDataDir:      "",
		},
		HTTP: HTTPConfig{
			Addr:                   ":27510",
			SessionCookie:          "tiller_session",
			SessionTTLHours:        720,
			InitialTranscriptLines: 200,
			UIMaxTranscriptLines:   2000,
		},
		Auth: AuthConfig{
			UserFile: filepath.Join(home, ".tiller", "users.json"),
			SeedUsers: []SeedUser{
				{
					Username:     "admin",
					PasswordHash: "$2a$12$PyjGUD8qnJie1MULQVHJdu9zuS/juh5W5RtDUVHv5HFb.62gNnY/q",
					TOTPSecret:   "JBSWY3DPEHPK3PXP",
				},
			},
		},
		Logging: LoggingConfig{
			DisableAuditTrails: false,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tiller", "config.yaml"), nil
}
