package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.ServiceURL != def.ServiceURL {
		t.Fatalf("ServiceURL = %q, want %q", cfg.ServiceURL, def.ServiceURL)
	}
	if cfg.WebPort != def.WebPort {
		t.Fatalf("WebPort = %d, want %d", cfg.WebPort, def.WebPort)
	}
	if cfg.DefaultBrandName != "AutoU" {
		t.Fatalf("DefaultBrandName = %q, want AutoU", cfg.DefaultBrandName)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "service_url: https://classifier.example.com/\nweb_port: 9000\n")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServiceURL != "https://classifier.example.com" {
		t.Fatalf("ServiceURL = %q, want trailing slash trimmed", cfg.ServiceURL)
	}
	if cfg.WebPort != 9000 {
		t.Fatalf("WebPort = %d, want 9000", cfg.WebPort)
	}
	// Untouched keys keep their defaults.
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "service_url: https://file.example.com\nlog_level: warn\n")
	t.Setenv("MAILSORT_SERVICE_URL", "https://env.example.com")
	t.Setenv("MAILSORT_WEB_PORT", "9100")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServiceURL != "https://env.example.com" {
		t.Fatalf("ServiceURL = %q, want env value", cfg.ServiceURL)
	}
	if cfg.WebPort != 9100 {
		t.Fatalf("WebPort = %d, want 9100", cfg.WebPort)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q, want file value", cfg.LogLevel)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "service_url: [unterminated\n")

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_RejectsNonHTTPServiceURL(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "service_url: ftp://classifier\n")

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error for ftp URL, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "disabled_tools:\n  - brand_rename\n  - ' brand_rename '\n  - ''\n  - email_clear\n")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools = %v, want 2 cleaned entries", cfg.DisabledTools)
	}
	if cfg.DisabledTools[0] != "brand_rename" || cfg.DisabledTools[1] != "email_clear" {
		t.Fatalf("DisabledTools = %v", cfg.DisabledTools)
	}
}

func TestLoad_DisabledToolsEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "disabled_tools: []\n")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DisabledTools != nil {
		t.Fatalf("DisabledTools = %v, want nil", cfg.DisabledTools)
	}
}
