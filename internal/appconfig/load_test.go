package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 7
upstream:
  url: http://127.0.0.1:27520/stream
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsInvalidUpstreamURL(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
upstream:
  url: agent.example.com
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "upstream.url") {
		t.Fatalf("expected upstream.url error, got %v", err)
	}
}

func TestLoadRejectsInvalidDefaultSafety(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
upstream:
  url: http://127.0.0.1:27520/stream
service:
  default_safety: extreme
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "default_safety") {
		t.Fatalf("expected default_safety error, got %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
upstream:
  url: http://127.0.0.1:27520/stream
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":27510" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTP.Addr)
	}
	if cfg.Service.DefaultSafety != "high" {
		t.Fatalf("expected default safety high, got %q", cfg.Service.DefaultSafety)
	}
	if !cfg.Browser.Headless {
		t.Fatalf("expected headless default")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
