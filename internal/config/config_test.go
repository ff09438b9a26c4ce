package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != 8080 || cfg.DataDir != "./data" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.CaptureTimeout().Seconds() != 30 {
		t.Fatalf("capture timeout = %v", cfg.CaptureTimeout())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CARBON_HTTP_PORT", "9090")
	t.Setenv("CARBON_DATA_DIR", "/var/lib/carbon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != 9090 || cfg.DataDir != "/var/lib/carbon" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadYAMLFileWithEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carbon.yaml")
	content := "http_port: 7000\ndata_dir: /from/file\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CARBON_CONFIG_FILE", path)
	t.Setenv("CARBON_HTTP_PORT", "7001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/from/file" {
		t.Fatalf("file value lost: %+v", cfg)
	}
	if cfg.HTTPPort != 7001 {
		t.Fatalf("env should override file: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CARBON_HTTP_PORT", "70000")
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid port rejection")
	}

	t.Setenv("CARBON_HTTP_PORT", "8080")
	t.Setenv("CARBON_RENDER_BASE_URL", "not-a-url")
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid render base url rejection")
	}
}
